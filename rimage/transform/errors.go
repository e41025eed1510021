package transform

import (
	"fmt"
)

// ConfigurationError is returned when a calibration record or output plane description is
// missing a field or holds a value no camera model can be built from.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration field %q: %s", e.Field, e.Reason)
}

// NewConfigurationError is used when a configuration field is missing or invalid.
func NewConfigurationError(field, reason string) error {
	return &ConfigurationError{Field: field, Reason: reason}
}

// DegenerateGeometryError is returned when a camera's view of the ground plane cannot be
// inverted, e.g. the camera sits on the plane or its pitch is gimbal locked.
type DegenerateGeometryError struct {
	Camera string
	Reason string
}

func (e *DegenerateGeometryError) Error() string {
	if e.Camera == "" {
		return "degenerate ground plane geometry: " + e.Reason
	}
	return fmt.Sprintf("degenerate ground plane geometry for %s: %s", e.Camera, e.Reason)
}

// NewDegenerateGeometryError is used when the composed projection cannot be inverted.
func NewDegenerateGeometryError(camera, reason string) error {
	return &DegenerateGeometryError{Camera: camera, Reason: reason}
}

// ShapeMismatchError is returned when a frame holds a different number of images than there
// are configured cameras.
type ShapeMismatchError struct {
	Images  int
	Cameras int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("frame has %d images but %d cameras are configured", e.Images, e.Cameras)
}

// NewShapeMismatchError is used when images and cameras cannot be paired up.
func NewShapeMismatchError(images, cameras int) error {
	return &ShapeMismatchError{Images: images, Cameras: cameras}
}
