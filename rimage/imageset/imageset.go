// Package imageset groups image files from several cameras into frames, loads them and writes
// the warped results.
package imageset

import (
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/birdseye/rimage"
	"go.viam.com/birdseye/rimage/transform"
)

// FrameFiles are the image files of one scene instant, one per camera in camera order.
// Name is the base name of the first camera's file and names the frame's outputs.
type FrameFiles struct {
	Name  string
	Paths []string
}

// Group builds frames from one path per camera. Without batch, the paths are single images
// and form a single frame. With batch, every path is a directory; its entries are sorted by
// name, hidden files skipped, and the i-th entry of every directory forms frame i. Frames past
// the end of a shorter directory hold fewer paths than there are cameras.
func Group(paths []string, batch bool) ([]FrameFiles, error) {
	if len(paths) == 0 {
		return nil, errors.New("no image paths given")
	}
	if !batch {
		return []FrameFiles{{Name: filepath.Base(paths[0]), Paths: append([]string(nil), paths...)}}, nil
	}

	perCamera := make([][]string, 0, len(paths))
	for _, dir := range paths {
		entries, err := ListDir(dir)
		if err != nil {
			return nil, err
		}
		perCamera = append(perCamera, entries)
	}

	numFrames := lo.Max(lo.Map(perCamera, func(entries []string, _ int) int { return len(entries) }))
	if numFrames == 0 {
		return nil, errors.Errorf("no images found in %s", strings.Join(paths, ", "))
	}
	return lo.Times(numFrames, func(i int) FrameFiles {
		files := lo.FilterMap(perCamera, func(entries []string, _ int) (string, bool) {
			if i >= len(entries) {
				return "", false
			}
			return entries[i], true
		})
		return FrameFiles{Name: filepath.Base(files[0]), Paths: files}
	}), nil
}

// ListDir returns the sorted paths of the regular, non-hidden files in dir.
func ListDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "error listing image directory %q", dir)
	}
	files := lo.FilterMap(entries, func(entry os.DirEntry, _ int) (string, bool) {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			return "", false
		}
		return filepath.Join(dir, entry.Name()), true
	})
	sort.Strings(files)
	return files, nil
}

// Load decodes every image of a frame.
func Load(files FrameFiles) (transform.Frame, error) {
	frame := transform.Frame{Name: files.Name, Images: make([]*rimage.Image, 0, len(files.Paths))}
	for _, path := range files.Paths {
		img, err := rimage.ReadImageFromFile(path)
		if err != nil {
			return transform.Frame{Name: files.Name}, err
		}
		frame.Images = append(frame.Images, img)
	}
	return frame, nil
}

// ImageSize returns the size of the image at path from its header alone.
func ImageSize(path string) (image.Point, error) {
	cfg, err := rimage.DecodeImageConfig(path)
	if err != nil {
		return image.Point{}, err
	}
	return image.Point{X: cfg.Width, Y: cfg.Height}, nil
}

// Write encodes img into dir/name, creating dir if needed. The extension of name selects the
// encoder. It returns the written path.
func Write(dir, name string, img image.Image) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", errors.Wrapf(err, "error creating output directory %q", dir)
	}
	path := filepath.Join(dir, name)
	if err := rimage.WriteImageToFile(path, img); err != nil {
		return "", err
	}
	return path, nil
}
