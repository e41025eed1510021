// Package rimage holds the host-resident pixel buffer used by the IPM pipeline along with the
// resampling kernels that warp it.
package rimage

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
)

// Image is an interleaved 8-bit pixel buffer with 1 (gray), 3 (RGB) or 4 (RGBA) channels.
// Pixel (x, y) channel c lives at pix[(y*width+x)*channels+c].
type Image struct {
	width, height, channels int
	pix                     []uint8
}

// NewImage returns a zeroed image. Dimensions are trusted; use NewImageFromPix to validate.
func NewImage(width, height, channels int) *Image {
	return &Image{
		width:    width,
		height:   height,
		channels: channels,
		pix:      make([]uint8, width*height*channels),
	}
}

// NewImageFromPix wraps an existing interleaved buffer. The buffer is not copied.
func NewImageFromPix(width, height, channels int, pix []uint8) (*Image, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid image size (%d,%d)", width, height)
	}
	if !validChannels(channels) {
		return nil, errors.Errorf("unsupported channel count %d", channels)
	}
	if len(pix) != width*height*channels {
		return nil, errors.Errorf("pixel buffer has length %d, expected %d for %dx%dx%d",
			len(pix), width*height*channels, width, height, channels)
	}
	return &Image{width: width, height: height, channels: channels, pix: pix}, nil
}

// NewImageFromStdImage converts a decoded image. Gray images keep one channel, everything
// else becomes 3 channel RGB with alpha dropped.
func NewImageFromStdImage(img image.Image) *Image {
	bounds := img.Bounds()
	switch typed := img.(type) {
	case *image.Gray:
		out := NewImage(bounds.Dx(), bounds.Dy(), 1)
		for y := 0; y < out.height; y++ {
			start := typed.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			copy(out.pix[y*out.width:(y+1)*out.width], typed.Pix[start:start+out.width])
		}
		return out
	case *image.Gray16:
		out := NewImage(bounds.Dx(), bounds.Dy(), 1)
		for y := 0; y < out.height; y++ {
			for x := 0; x < out.width; x++ {
				out.pix[y*out.width+x] = uint8(typed.Gray16At(bounds.Min.X+x, bounds.Min.Y+y).Y >> 8)
			}
		}
		return out
	}

	out := NewImage(bounds.Dx(), bounds.Dy(), 3)
	for y := 0; y < out.height; y++ {
		for x := 0; x < out.width; x++ {
			c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			k := out.k(x, y)
			out.pix[k] = c.R
			out.pix[k+1] = c.G
			out.pix[k+2] = c.B
		}
	}
	return out
}

func validChannels(channels int) bool {
	return channels == 1 || channels == 3 || channels == 4
}

func (i *Image) k(x, y int) int {
	return (y*i.width + x) * i.channels
}

// Width returns the width in pixels.
func (i *Image) Width() int {
	return i.width
}

// Height returns the height in pixels.
func (i *Image) Height() int {
	return i.height
}

// Channels returns the number of interleaved channels.
func (i *Image) Channels() int {
	return i.channels
}

// Pix returns the underlying interleaved buffer.
func (i *Image) Pix() []uint8 {
	return i.pix
}

// In reports whether (x, y) is inside the image.
func (i *Image) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < i.width && y < i.height
}

// GetXY returns the channel values at (x, y) as a view into the buffer.
func (i *Image) GetXY(x, y int) []uint8 {
	k := i.k(x, y)
	return i.pix[k : k+i.channels]
}

// SetXY sets the channel values at (x, y). A single value is broadcast to every channel.
func (i *Image) SetXY(x, y int, values ...uint8) {
	k := i.k(x, y)
	if len(values) == 1 {
		for c := 0; c < i.channels; c++ {
			i.pix[k+c] = values[0]
		}
		return
	}
	copy(i.pix[k:k+i.channels], values)
}

// Clone returns a deep copy.
func (i *Image) Clone() *Image {
	out := NewImage(i.width, i.height, i.channels)
	copy(out.pix, i.pix)
	return out
}

// Bounds implements image.Image.
func (i *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, i.width, i.height)
}

// ColorModel implements image.Image.
func (i *Image) ColorModel() color.Model {
	switch i.channels {
	case 1:
		return color.GrayModel
	case 4:
		return color.NRGBAModel
	default:
		return color.RGBAModel
	}
}

// At implements image.Image.
func (i *Image) At(x, y int) color.Color {
	if !i.In(x, y) {
		return color.Transparent
	}
	v := i.GetXY(x, y)
	switch i.channels {
	case 1:
		return color.Gray{Y: v[0]}
	case 4:
		return color.NRGBA{R: v[0], G: v[1], B: v[2], A: v[3]}
	default:
		return color.RGBA{R: v[0], G: v[1], B: v[2], A: 255}
	}
}
