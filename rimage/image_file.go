package rimage

import (
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/lmittmann/ppm"
	"github.com/pkg/errors"
	"github.com/xfmoulet/qoi"
	"go.viam.com/utils"
	"golang.org/x/image/draw"

	// register the webp decoder with image.Decode, which imaging uses.
	_ "golang.org/x/image/webp"
)

// ReadImageFromFile decodes png, jpeg, gif, bmp, tiff, webp, qoi or ppm files into an Image.
func ReadImageFromFile(path string) (*Image, error) {
	var img image.Image
	var err error
	if isPPM(path) {
		img, err = readPPM(path)
	} else {
		img, err = imaging.Open(path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "error reading image %q", path)
	}
	return NewImageFromStdImage(img), nil
}

// DecodeImageConfig reads only the header of an image file.
func DecodeImageConfig(path string) (image.Config, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return image.Config{}, errors.Wrapf(err, "error reading image %q", path)
	}
	defer utils.UncheckedErrorFunc(f.Close)

	var cfg image.Config
	if isPPM(path) {
		cfg, err = ppm.DecodeConfig(f)
	} else {
		cfg, _, err = image.DecodeConfig(f)
	}
	return cfg, errors.Wrapf(err, "error reading image %q", path)
}

func readPPM(path string) (image.Image, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(f.Close)
	return ppm.Decode(f)
}

// WriteImageToFile encodes img with the format implied by the path's extension.
func WriteImageToFile(path string, img image.Image) (err error) {
	encode, ok := streamEncoders[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return errors.Wrapf(imaging.Save(img, path), "error writing image %q", path)
	}

	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "error writing image %q", path)
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()
	return errors.Wrapf(encode(f, img), "error writing image %q", path)
}

// streamEncoders covers the formats imaging cannot write.
var streamEncoders = map[string]func(io.Writer, image.Image) error{
	".ppm": encodePPM,
	".qoi": qoi.Encode,
}

// encodePPM writes img as 8 bit RGB. Gray and alpha images are expanded to RGBA first.
func encodePPM(w io.Writer, img image.Image) error {
	if _, ok := img.(*image.RGBA); !ok {
		bounds := img.Bounds()
		rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
		img = rgba
	}
	return ppm.Encode(w, img)
}

func isPPM(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".ppm")
}
