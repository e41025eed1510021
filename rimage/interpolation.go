package rimage

import (
	"math"
	"strings"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// Interpolation selects how a non-integer source coordinate is sampled.
type Interpolation int

const (
	// Nearest picks the closest source pixel. Required for label or color-coded images, where
	// blending two class values would invent a class that does not exist.
	Nearest Interpolation = iota
	// Linear blends the four surrounding source pixels.
	Linear
)

func (interp Interpolation) String() string {
	switch interp {
	case Nearest:
		return "nearest"
	case Linear:
		return "linear"
	default:
		return "unknown"
	}
}

// InterpolationFromString parses "nearest" or "linear", case-insensitively.
func InterpolationFromString(inp string) (Interpolation, error) {
	switch strings.ToLower(strings.TrimSpace(inp)) {
	case "nearest", "nn":
		return Nearest, nil
	case "linear", "bilinear":
		return Linear, nil
	}
	return Linear, errors.Errorf("unknown interpolation %q, expected nearest or linear", inp)
}

// NearestNeighbor writes the pixel closest to pt into out and returns true. Returns false,
// leaving out untouched, when that pixel is outside img.
func NearestNeighbor(pt r2.Point, img *Image, out []uint8) bool {
	x, y := math.Floor(pt.X+0.5), math.Floor(pt.Y+0.5)
	if math.IsNaN(x) || math.IsNaN(y) || x < 0 || y < 0 || x >= float64(img.width) || y >= float64(img.height) {
		return false
	}
	copy(out, img.GetXY(int(x), int(y)))
	return true
}

// BilinearInterpolation blends the four pixels around pt into out. Taps that fall outside img
// contribute the background value. Returns false when all four taps are outside.
func BilinearInterpolation(pt r2.Point, img *Image, background, out []uint8) bool {
	if math.IsNaN(pt.X) || math.IsNaN(pt.Y) {
		return false
	}
	xf, yf := math.Floor(pt.X), math.Floor(pt.Y)
	// Far outside: also keeps the int conversion below in range.
	if xf < -1 || yf < -1 || xf >= float64(img.width) || yf >= float64(img.height) {
		return false
	}
	x0, y0 := int(xf), int(yf)
	dx, dy := pt.X-xf, pt.Y-yf

	taps := [4]struct {
		x, y int
		w    float64
	}{
		{x0, y0, (1 - dx) * (1 - dy)},
		{x0 + 1, y0, dx * (1 - dy)},
		{x0, y0 + 1, (1 - dx) * dy},
		{x0 + 1, y0 + 1, dx * dy},
	}

	inside := false
	for c := 0; c < img.channels; c++ {
		sum := 0.
		for _, tap := range taps {
			if img.In(tap.x, tap.y) {
				inside = true
				sum += tap.w * float64(img.pix[img.k(tap.x, tap.y)+c])
			} else {
				sum += tap.w * float64(background[c])
			}
		}
		out[c] = clampUint8(sum)
	}
	return inside
}

func clampUint8(v float64) uint8 {
	v = math.Floor(v + 0.5)
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}
