package transform

import (
	"fmt"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/birdseye/utils"
)

// CalibrationParameters are the intrinsic and extrinsic parameters of one physical camera.
// Angles are in radians, Position is in meters in the world frame.
type CalibrationParameters struct {
	Fx, Fy float64
	Px, Py float64

	Yaw, Pitch, Roll float64

	Position r3.Vector
}

// CheckValid checks that every parameter is finite and that the focal lengths and principal
// point can describe a real camera.
func (params CalibrationParameters) CheckValid() error {
	named := []struct {
		name string
		val  float64
	}{
		{"fx", params.Fx}, {"fy", params.Fy}, {"px", params.Px}, {"py", params.Py},
		{"yaw", params.Yaw}, {"pitch", params.Pitch}, {"roll", params.Roll},
		{"XCam", params.Position.X}, {"YCam", params.Position.Y}, {"ZCam", params.Position.Z},
	}
	for _, n := range named {
		if !utils.IsFinite(n.val) {
			return NewConfigurationError(n.name, fmt.Sprintf("must be finite, got %v", n.val))
		}
	}
	if params.Fx <= 0 {
		return NewConfigurationError("fx", fmt.Sprintf("focal length must be positive, got %v", params.Fx))
	}
	if params.Fy <= 0 {
		return NewConfigurationError("fy", fmt.Sprintf("focal length must be positive, got %v", params.Fy))
	}
	if params.Px < 0 {
		return NewConfigurationError("px", fmt.Sprintf("principal point must not be negative, got %v", params.Px))
	}
	if params.Py < 0 {
		return NewConfigurationError("py", fmt.Sprintf("principal point must not be negative, got %v", params.Py))
	}
	return nil
}

// CameraModel is the pinhole projection of one camera. It is immutable once built; the
// accessors hand out copies.
type CameraModel struct {
	params CalibrationParameters
	k      *mat.Dense // 3x3 intrinsics
	r      *mat.Dense // 3x3 world to camera rotation
	t      *mat.Dense // 3x1 world origin in the camera frame
	p      *mat.Dense // 3x4 projection K[R|t]
}

// NewCameraModel validates params and builds K, R, t and P from them.
func NewCameraModel(params CalibrationParameters) (*CameraModel, error) {
	if err := params.CheckValid(); err != nil {
		return nil, err
	}

	k := mat.NewDense(3, 3, []float64{
		params.Fx, 0, params.Px,
		0, params.Fy, params.Py,
		0, 0, 1,
	})

	r := worldToCameraRotation(params.Yaw, params.Pitch, params.Roll)

	var t mat.Dense
	t.Mul(r, mat.NewDense(3, 1, []float64{params.Position.X, params.Position.Y, params.Position.Z}))
	t.Scale(-1, &t)

	rt := mat.NewDense(3, 4, nil)
	rt.Slice(0, 3, 0, 3).(*mat.Dense).Copy(r)
	rt.Slice(0, 3, 3, 4).(*mat.Dense).Copy(&t)

	var p mat.Dense
	p.Mul(k, rt)

	return &CameraModel{
		params: params,
		k:      k,
		r:      r,
		t:      &t,
		p:      &p,
	}, nil
}

// Parameters returns the parameters the model was built from.
func (cam *CameraModel) Parameters() CalibrationParameters {
	return cam.params
}

// K returns a copy of the 3x3 intrinsic matrix.
func (cam *CameraModel) K() *mat.Dense {
	return mat.DenseCopyOf(cam.k)
}

// R returns a copy of the 3x3 world to camera rotation.
func (cam *CameraModel) R() *mat.Dense {
	return mat.DenseCopyOf(cam.r)
}

// T returns a copy of the 3x1 translation.
func (cam *CameraModel) T() *mat.Dense {
	return mat.DenseCopyOf(cam.t)
}

// P returns a copy of the 3x4 projection matrix.
func (cam *CameraModel) P() *mat.Dense {
	return mat.DenseCopyOf(cam.p)
}

// Project maps a world point to pixel coordinates. The bool is false when the point is not in
// front of the camera.
func (cam *CameraModel) Project(pt r3.Vector) (r2.Point, bool) {
	var img mat.VecDense
	img.MulVec(cam.p, mat.NewVecDense(4, []float64{pt.X, pt.Y, pt.Z, 1}))
	w := img.AtVec(2)
	if w <= 0 {
		return r2.Point{}, false
	}
	return r2.Point{X: img.AtVec(0) / w, Y: img.AtVec(1) / w}, true
}
