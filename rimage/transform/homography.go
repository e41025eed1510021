package transform

import (
	"fmt"
	"image"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/birdseye/rimage"
	"go.viam.com/birdseye/utils"
)

// Homography is a 3x3 matrix (represented as a 2D array) mapping points between two planar
// projections. Indices are [row][column]. An IPM homography maps source image pixels to
// bird's-eye output pixels.
type Homography [3][3]float64

// NewHomography creates a Homography from 9 row-major values.
func NewHomography(vals []float64) (Homography, error) {
	var h Homography
	if len(vals) != 9 {
		return h, errors.Errorf("input to NewHomography must have length of 9. Has length of %d", len(vals))
	}
	for i, v := range vals {
		h[i/3][i%3] = v
	}
	return h, nil
}

// NewHomographyFromMatrix copies a 3x3 matrix.
func NewHomographyFromMatrix(m mat.Matrix) (Homography, error) {
	var h Homography
	if r, c := m.Dims(); r != 3 || c != 3 {
		return h, errors.Errorf("homography must be 3x3, got %dx%d", r, c)
	}
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			h[row][col] = m.At(row, col)
		}
	}
	return h, nil
}

// At returns the value at row, col.
func (h Homography) At(row, col int) float64 {
	return h[row][col]
}

// Mat returns the homography as a gonum matrix.
func (h Homography) Mat() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		h[0][0], h[0][1], h[0][2],
		h[1][0], h[1][1], h[1][2],
		h[2][0], h[2][1], h[2][2],
	})
}

// ApplyHomogeneous returns h * (x, y, 1) without normalizing.
func (h Homography) ApplyHomogeneous(pt r2.Point) r3.Vector {
	return r3.Vector{
		X: h[0][0]*pt.X + h[0][1]*pt.Y + h[0][2],
		Y: h[1][0]*pt.X + h[1][1]*pt.Y + h[1][2],
		Z: h[2][0]*pt.X + h[2][1]*pt.Y + h[2][2],
	}
}

// Apply maps pt and divides by the homogeneous component.
func (h Homography) Apply(pt r2.Point) r2.Point {
	v := h.ApplyHomogeneous(pt)
	return r2.Point{X: v.X / v.Z, Y: v.Y / v.Z}
}

// Inverse returns the inverse homography.
func (h Homography) Inverse() (Homography, error) {
	var inv mat.Dense
	if err := inv.Inverse(h.Mat()); err != nil {
		return Homography{}, errors.Wrap(err, "homography is not invertible")
	}
	out, err := NewHomographyFromMatrix(&inv)
	if err != nil {
		return Homography{}, err
	}
	if !out.finite() {
		return Homography{}, errors.New("homography inverse is not finite")
	}
	return out, nil
}

func (h Homography) finite() bool {
	for _, row := range h {
		for _, v := range row {
			if !utils.IsFinite(v) {
				return false
			}
		}
	}
	return true
}

// String prints the matrix the way gonum formats it.
func (h Homography) String() string {
	return fmt.Sprintf("%v", mat.Formatted(h.Mat(), mat.Prefix(""), mat.Squeeze()))
}

// Warp applies an IPM homography to src. Like OpenCV's warpPerspective, the homography maps
// source pixels to output pixels and is inverted here to sample the source for every output
// pixel.
func Warp(src *rimage.Image, ipm Homography, size image.Point, opts rimage.WarpOptions) (*rimage.Image, error) {
	sampler, err := ipm.Inverse()
	if err != nil {
		return nil, err
	}
	return rimage.WarpImage(src, sampler, size, opts)
}
