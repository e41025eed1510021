package transform

import (
	"fmt"
	"image"
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/birdseye/utils"
)

// minNormalizedDeterminant is the smallest |det(P*M)| / (product of its column norms) that is
// still treated as invertible. The ratio is 1 for orthogonal columns and 0 for singular ones,
// independent of focal length and resolution scale.
const minNormalizedDeterminant = 1e-12

// GroundPlaneSpec describes the bird's-eye output: its extent on the ground in meters and its
// pixel density along rows and columns.
type GroundPlaneSpec struct {
	WidthM  float64 `json:"width_m"`
	HeightM float64 `json:"height_m"`

	PxPerMRow float64 `json:"px_per_m_row"`
	PxPerMCol float64 `json:"px_per_m_col"`
}

// NewGroundPlaneSpec returns a spec with the same density along both axes.
func NewGroundPlaneSpec(widthM, heightM, pxPerM float64) GroundPlaneSpec {
	return GroundPlaneSpec{WidthM: widthM, HeightM: heightM, PxPerMRow: pxPerM, PxPerMCol: pxPerM}
}

// CheckValid checks that the plane has a positive, finite extent and density.
func (spec GroundPlaneSpec) CheckValid() error {
	named := []struct {
		name string
		val  float64
	}{
		{"width_m", spec.WidthM}, {"height_m", spec.HeightM},
		{"px_per_m_row", spec.PxPerMRow}, {"px_per_m_col", spec.PxPerMCol},
	}
	for _, n := range named {
		if !utils.IsFinite(n.val) || n.val <= 0 {
			return NewConfigurationError(n.name, fmt.Sprintf("must be positive and finite, got %v", n.val))
		}
	}
	if size := spec.Resolution(); size.X < 1 || size.Y < 1 {
		return NewConfigurationError("resolution", fmt.Sprintf("output would be %dx%d pixels", size.X, size.Y))
	}
	return nil
}

// Resolution returns the output size in pixels: X is the width (columns), Y the height (rows).
func (spec GroundPlaneSpec) Resolution() image.Point {
	return image.Point{
		X: int(math.Round(spec.WidthM * spec.PxPerMCol)),
		Y: int(math.Round(spec.HeightM * spec.PxPerMRow)),
	}
}

// PlaneToWorld returns the 4x3 matrix M taking homogeneous output pixels (u, v, 1) to
// homogeneous world points (x, y, 0, 1) on the ground, centered on the output image.
func (spec GroundPlaneSpec) PlaneToWorld() *mat.Dense {
	size := spec.Resolution()
	shiftCol := float64(size.X) / 2
	shiftRow := float64(size.Y) / 2
	colScale := groundPlaneColSign / spec.PxPerMCol
	rowScale := groundPlaneRowSign / spec.PxPerMRow
	return mat.NewDense(4, 3, []float64{
		colScale, 0, -shiftCol * colScale,
		0, rowScale, -shiftRow * rowScale,
		0, 0, 0,
		0, 0, 1,
	})
}

// GroundPlaneMapper derives IPM homographies for cameras sharing one output plane.
type GroundPlaneMapper struct {
	spec GroundPlaneSpec
	m    *mat.Dense
}

// NewGroundPlaneMapper validates spec and precomputes its plane to world mapping.
func NewGroundPlaneMapper(spec GroundPlaneSpec) (*GroundPlaneMapper, error) {
	if err := spec.CheckValid(); err != nil {
		return nil, err
	}
	return &GroundPlaneMapper{spec: spec, m: spec.PlaneToWorld()}, nil
}

// Spec returns the output plane description.
func (g *GroundPlaneMapper) Spec() GroundPlaneSpec {
	return g.spec
}

// OutputSize returns the output resolution in pixels.
func (g *GroundPlaneMapper) OutputSize() image.Point {
	return g.spec.Resolution()
}

// PixelToWorld returns the ground point under output pixel (u, v).
func (g *GroundPlaneMapper) PixelToWorld(pt r2.Point) r3.Vector {
	var world mat.VecDense
	world.MulVec(g.m, mat.NewVecDense(3, []float64{pt.X, pt.Y, 1}))
	return r3.Vector{X: world.AtVec(0), Y: world.AtVec(1), Z: world.AtVec(2)}
}

// WorldToPixel returns the output pixel over ground point pt. Z is ignored.
func (g *GroundPlaneMapper) WorldToPixel(pt r3.Vector) r2.Point {
	size := g.spec.Resolution()
	return r2.Point{
		X: pt.X*g.spec.PxPerMCol/groundPlaneColSign + float64(size.X)/2,
		Y: pt.Y*g.spec.PxPerMRow/groundPlaneRowSign + float64(size.Y)/2,
	}
}

// ProjectPlane returns P*M for cam: the 3x3 homography from output pixels to source pixels.
func (g *GroundPlaneMapper) ProjectPlane(cam *CameraModel) *mat.Dense {
	var pm mat.Dense
	pm.Mul(cam.p, g.m)
	return &pm
}

// ComputeIPM returns inverse(P*M), mapping source image pixels of cam onto the output plane.
func (g *GroundPlaneMapper) ComputeIPM(cam *CameraModel) (Homography, error) {
	return g.computeIPM(cam, "")
}

// ComputeIPMs computes one IPM per camera against the shared plane. It stops at the first
// camera that fails; the error names its index.
func (g *GroundPlaneMapper) ComputeIPMs(cams []*CameraModel) ([]Homography, error) {
	ipms := make([]Homography, 0, len(cams))
	for i, cam := range cams {
		ipm, err := g.computeIPM(cam, fmt.Sprintf("camera %d", i))
		if err != nil {
			return nil, err
		}
		ipms = append(ipms, ipm)
	}
	return ipms, nil
}

func (g *GroundPlaneMapper) computeIPM(cam *CameraModel, label string) (Homography, error) {
	if cam == nil {
		return Homography{}, NewConfigurationError("camera", "no camera model given")
	}
	if math.Abs(math.Cos(cam.params.Pitch)) < gimbalLockTolerance {
		return Homography{}, NewDegenerateGeometryError(label,
			fmt.Sprintf("pitch of %.4g degrees is at +-90 degrees where yaw and roll coincide", utils.RadToDeg(cam.params.Pitch)))
	}

	pm := g.ProjectPlane(cam)
	if ratio := normalizedDeterminant(pm); !(ratio >= minNormalizedDeterminant) {
		return Homography{}, NewDegenerateGeometryError(label,
			fmt.Sprintf("projection of the ground plane is singular (normalized determinant %g), "+
				"is the camera on the ground plane?", ratio))
	}

	var ipm mat.Dense
	if err := ipm.Inverse(pm); err != nil {
		return Homography{}, NewDegenerateGeometryError(label, err.Error())
	}
	h, err := NewHomographyFromMatrix(&ipm)
	if err != nil {
		return Homography{}, err
	}
	if !h.finite() {
		return Homography{}, NewDegenerateGeometryError(label, "inverse projection is not finite")
	}
	return h, nil
}

// normalizedDeterminant is |det(m)| divided by the product of m's column norms (Hadamard's
// bound), so it lies in [0, 1].
func normalizedDeterminant(m *mat.Dense) float64 {
	_, cols := m.Dims()
	bound := 1.
	for c := 0; c < cols; c++ {
		bound *= mat.Norm(m.ColView(c), 2)
	}
	if bound == 0 {
		return 0
	}
	return math.Abs(mat.Det(m)) / bound
}
