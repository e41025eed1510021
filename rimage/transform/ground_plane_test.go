package transform

import (
	"image"
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

func TestGroundPlaneSpec(t *testing.T) {
	spec := NewGroundPlaneSpec(20, 40, 20)
	test.That(t, spec.CheckValid(), test.ShouldBeNil)
	test.That(t, spec.Resolution(), test.ShouldResemble, image.Point{X: 400, Y: 800})

	m := spec.PlaneToWorld()
	r, c := m.Dims()
	test.That(t, r, test.ShouldEqual, 4)
	test.That(t, c, test.ShouldEqual, 3)
	expected := mat.NewDense(4, 3, []float64{
		0.05, 0, -10,
		0, -0.05, 20,
		0, 0, 0,
		0, 0, 1,
	})
	test.That(t, mat.EqualApprox(m, expected, 1e-12), test.ShouldBeTrue)

	anisotropic := GroundPlaneSpec{WidthM: 10, HeightM: 5, PxPerMRow: 4, PxPerMCol: 30}
	test.That(t, anisotropic.Resolution(), test.ShouldResemble, image.Point{X: 300, Y: 20})
}

func TestGroundPlaneSpecValidation(t *testing.T) {
	for _, tc := range []struct {
		name  string
		spec  GroundPlaneSpec
		field string
	}{
		{"zero width", NewGroundPlaneSpec(0, 40, 20), "width_m"},
		{"negative height", NewGroundPlaneSpec(20, -1, 20), "height_m"},
		{"nan resolution", NewGroundPlaneSpec(20, 40, math.NaN()), "px_per_m_row"},
		{"infinite column resolution", GroundPlaneSpec{WidthM: 1, HeightM: 1, PxPerMRow: 1, PxPerMCol: math.Inf(1)}, "px_per_m_col"},
		{"less than a pixel", NewGroundPlaneSpec(0.01, 0.01, 1), "resolution"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.spec.CheckValid()
			var confErr *ConfigurationError
			test.That(t, errors.As(err, &confErr), test.ShouldBeTrue)
			test.That(t, confErr.Field, test.ShouldEqual, tc.field)

			mapper, err := NewGroundPlaneMapper(tc.spec)
			test.That(t, mapper, test.ShouldBeNil)
			test.That(t, err, test.ShouldNotBeNil)
		})
	}
}

func TestPixelWorldConversion(t *testing.T) {
	mapper, err := NewGroundPlaneMapper(NewGroundPlaneSpec(20, 40, 20))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mapper.OutputSize(), test.ShouldResemble, image.Point{X: 400, Y: 800})

	test.That(t, mapper.PixelToWorld(r2.Point{X: 200, Y: 400}), test.ShouldResemble, r3.Vector{})

	corner := mapper.PixelToWorld(r2.Point{})
	test.That(t, corner.X, test.ShouldAlmostEqual, -10)
	test.That(t, corner.Y, test.ShouldAlmostEqual, 20)
	test.That(t, corner.Z, test.ShouldEqual, 0.)

	// columns grow forward, rows grow to the right
	leftLane := mapper.WorldToPixel(r3.Vector{X: 3, Y: 1.75})
	test.That(t, leftLane.X, test.ShouldAlmostEqual, 260)
	test.That(t, leftLane.Y, test.ShouldAlmostEqual, 365)
	rightLane := mapper.WorldToPixel(r3.Vector{X: 3, Y: -1.75})
	test.That(t, rightLane.Y, test.ShouldAlmostEqual, 435)

	for _, pt := range []r2.Point{{X: 0, Y: 0}, {X: 13.5, Y: 700.25}, {X: 399, Y: 1}} {
		back := mapper.WorldToPixel(mapper.PixelToWorld(pt))
		test.That(t, back.X, test.ShouldAlmostEqual, pt.X, 1e-9)
		test.That(t, back.Y, test.ShouldAlmostEqual, pt.Y, 1e-9)
	}
}

func TestComputeIPMRoundTrip(t *testing.T) {
	mapper, err := NewGroundPlaneMapper(NewGroundPlaneSpec(20, 40, 20))
	test.That(t, err, test.ShouldBeNil)

	for _, params := range []CalibrationParameters{
		roadCameraParams(),
		{Fx: 900, Fy: 880, Px: 320, Py: 240, Yaw: 0.2, Pitch: 0.3, Roll: -0.05, Position: r3.Vector{X: -12, Y: 2, Z: 3}},
		{Fx: 400, Fy: 400, Px: 200, Py: 150, Yaw: -0.4, Pitch: 1.2, Roll: 0.1, Position: r3.Vector{X: -1, Y: -3, Z: 15}},
	} {
		cam, err := NewCameraModel(params)
		test.That(t, err, test.ShouldBeNil)
		ipm, err := mapper.ComputeIPM(cam)
		test.That(t, err, test.ShouldBeNil)

		var product mat.Dense
		product.Mul(ipm.Mat(), mapper.ProjectPlane(cam))
		product.Scale(1/product.At(2, 2), &product)
		test.That(t, mat.EqualApprox(&product, mat.NewDiagDense(3, []float64{1, 1, 1}), 1e-9), test.ShouldBeTrue)
	}
}

func TestIPMMapsProjectedGroundPoints(t *testing.T) {
	mapper, err := NewGroundPlaneMapper(NewGroundPlaneSpec(20, 40, 20))
	test.That(t, err, test.ShouldBeNil)
	cam, err := NewCameraModel(roadCameraParams())
	test.That(t, err, test.ShouldBeNil)
	ipm, err := mapper.ComputeIPM(cam)
	test.That(t, err, test.ShouldBeNil)

	for _, out := range []r2.Point{{X: 150, Y: 365}, {X: 390, Y: 435}, {X: 250, Y: 100}, {X: 300.5, Y: 612.25}} {
		src, ok := cam.Project(mapper.PixelToWorld(out))
		test.That(t, ok, test.ShouldBeTrue)

		h := ipm.ApplyHomogeneous(src)
		test.That(t, h.Z, test.ShouldBeGreaterThan, 0)
		back := ipm.Apply(src)
		test.That(t, back.X, test.ShouldAlmostEqual, out.X, 1e-6)
		test.That(t, back.Y, test.ShouldAlmostEqual, out.Y, 1e-6)
	}

	// source pixels above the horizon see no ground
	sky := ipm.ApplyHomogeneous(r2.Point{X: 640, Y: 10})
	test.That(t, sky.Z, test.ShouldBeLessThan, 0)
}

func TestComputeIPMDegenerate(t *testing.T) {
	mapper, err := NewGroundPlaneMapper(NewGroundPlaneSpec(20, 40, 20))
	test.That(t, err, test.ShouldBeNil)

	straightDown := roadCameraParams()
	straightDown.Pitch = math.Pi / 2
	onGround := roadCameraParams()
	onGround.Position.Z = 0

	for _, params := range []CalibrationParameters{straightDown, onGround} {
		cam, err := NewCameraModel(params)
		test.That(t, err, test.ShouldBeNil)
		_, err = mapper.ComputeIPM(cam)
		var geomErr *DegenerateGeometryError
		test.That(t, errors.As(err, &geomErr), test.ShouldBeTrue)
	}

	_, err = mapper.ComputeIPM(nil)
	var confErr *ConfigurationError
	test.That(t, errors.As(err, &confErr), test.ShouldBeTrue)
}

func TestComputeIPMs(t *testing.T) {
	mapper, err := NewGroundPlaneMapper(NewGroundPlaneSpec(20, 40, 20))
	test.That(t, err, test.ShouldBeNil)

	front, err := NewCameraModel(roadCameraParams())
	test.That(t, err, test.ShouldBeNil)
	leftParams := roadCameraParams()
	leftParams.Yaw = 0.3
	left, err := NewCameraModel(leftParams)
	test.That(t, err, test.ShouldBeNil)

	ipms, err := mapper.ComputeIPMs([]*CameraModel{front, left})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ipms, test.ShouldHaveLength, 2)
	single, err := mapper.ComputeIPM(front)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ipms[0], test.ShouldResemble, single)
	test.That(t, ipms[1], test.ShouldNotResemble, single)

	bad := roadCameraParams()
	bad.Position.Z = 0
	grounded, err := NewCameraModel(bad)
	test.That(t, err, test.ShouldBeNil)

	ipms, err = mapper.ComputeIPMs([]*CameraModel{front, grounded, left})
	test.That(t, ipms, test.ShouldBeNil)
	var geomErr *DegenerateGeometryError
	test.That(t, errors.As(err, &geomErr), test.ShouldBeTrue)
	test.That(t, geomErr.Camera, test.ShouldEqual, "camera 1")
	test.That(t, err.Error(), test.ShouldContainSubstring, "camera 1")
}
