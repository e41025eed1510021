package rimage

import (
	"image"
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// TransformationMatrix is a 3x3 projective matrix. gonum's mat.Matrix satisfies it.
type TransformationMatrix interface {
	At(i, j int) float64
}

// WarpOptions controls sampling during WarpImage.
type WarpOptions struct {
	Interpolation Interpolation
	// Background is written wherever the source has no data. It must have one value per source
	// channel; nil means all zeros (black).
	Background []uint8
}

// WarpImage resamples src into a new image of the given size. m maps destination pixel
// coordinates (u, v, 1) to homogeneous source coordinates. Destination pixels whose source
// coordinate has a non-positive homogeneous component, or lies outside src, get the background.
func WarpImage(src *Image, m TransformationMatrix, size image.Point, opts WarpOptions) (*Image, error) {
	if src == nil || src.width <= 0 || src.height <= 0 || len(src.pix) == 0 {
		return nil, errors.New("cannot warp an empty image")
	}
	if m == nil {
		return nil, errors.New("no transformation matrix given")
	}
	if size.X <= 0 || size.Y <= 0 {
		return nil, errors.Errorf("invalid output size (%d,%d)", size.X, size.Y)
	}
	background := opts.Background
	if background == nil {
		background = make([]uint8, src.channels)
	}
	if len(background) != src.channels {
		return nil, errors.Errorf("background has %d values but image has %d channels", len(background), src.channels)
	}

	var h [3][3]float64
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			h[r][c] = m.At(r, c)
		}
	}

	dst := NewImage(size.X, size.Y, src.channels)
	sample := make([]uint8, src.channels)
	for v := 0; v < size.Y; v++ {
		for u := 0; u < size.X; u++ {
			fu, fv := float64(u), float64(v)
			w := h[2][0]*fu + h[2][1]*fv + h[2][2]
			k := dst.k(u, v)
			if !(w > 0) || math.IsInf(w, 0) {
				copy(dst.pix[k:k+dst.channels], background)
				continue
			}
			pt := r2.Point{
				X: (h[0][0]*fu + h[0][1]*fv + h[0][2]) / w,
				Y: (h[1][0]*fu + h[1][1]*fv + h[1][2]) / w,
			}

			var ok bool
			switch opts.Interpolation {
			case Linear:
				ok = BilinearInterpolation(pt, src, background, sample)
			default:
				ok = NearestNeighbor(pt, src, sample)
			}
			if ok {
				copy(dst.pix[k:k+dst.channels], sample)
			} else {
				copy(dst.pix[k:k+dst.channels], background)
			}
		}
	}
	return dst, nil
}
