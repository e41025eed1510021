package transform

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// The world frame is x forward, y left, z up, with the ground at z = 0. The camera frame is
// x right, y down, z along the optical axis. Both conventions are defined here and nowhere else.

// worldToCameraAxes permutes world axes into camera axes: camera (x, y, z) = world (-y, -z, x).
var worldToCameraAxes = [9]float64{
	0, -1, 0,
	0, 0, -1,
	1, 0, 0,
}

// Output plane sign conventions. Image columns grow along world x, image rows grow along
// world -y, so the row axis is flipped relative to the world.
const (
	groundPlaneColSign = 1.0
	groundPlaneRowSign = -1.0
)

// gimbalLockTolerance bounds |cos(pitch)|; below it yaw and roll rotate about the same axis.
const gimbalLockTolerance = 1e-9

// rotationX is the right-handed rotation by angle about the x axis.
func rotationX(angle float64) *mat.Dense {
	s, c := math.Sincos(angle)
	return mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, c, -s,
		0, s, c,
	})
}

// rotationY is the right-handed rotation by angle about the y axis.
func rotationY(angle float64) *mat.Dense {
	s, c := math.Sincos(angle)
	return mat.NewDense(3, 3, []float64{
		c, 0, s,
		0, 1, 0,
		-s, 0, c,
	})
}

// rotationZ is the right-handed rotation by angle about the z axis.
func rotationZ(angle float64) *mat.Dense {
	s, c := math.Sincos(angle)
	return mat.NewDense(3, 3, []float64{
		c, -s, 0,
		s, c, 0,
		0, 0, 1,
	})
}

// worldToCameraRotation returns Raxes * Rz(-yaw) * Ry(-pitch) * Rx(-roll).
func worldToCameraRotation(yaw, pitch, roll float64) *mat.Dense {
	var pitchRoll, orientation, rot mat.Dense
	pitchRoll.Mul(rotationY(-pitch), rotationX(-roll))
	orientation.Mul(rotationZ(-yaw), &pitchRoll)

	axes := worldToCameraAxes
	rot.Mul(mat.NewDense(3, 3, axes[:]), &orientation)
	return &rot
}
