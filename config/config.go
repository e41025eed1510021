// Package config describes a bird's-eye run: the output plane, how images are sampled and
// which cameras and image sets feed the warp.
package config

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.viam.com/utils"

	"go.viam.com/birdseye/rimage"
	"go.viam.com/birdseye/rimage/transform"
)

// Defaults used when a field is left out.
const (
	DefaultWidthM        = 20.
	DefaultHeightM       = 40.
	DefaultResolution    = 20.
	DefaultInterpolation = "linear"
	DefaultOutputDir     = "output"
)

// Config is the complete description of a run.
type Config struct {
	Output  OutputConfig  `yaml:"output" json:"output"`
	Cameras []CameraInput `yaml:"cameras" json:"cameras"`

	// Batch treats each camera's Images as a directory of frames instead of a single image.
	Batch bool `yaml:"batch" json:"batch"`

	// MatricesOnly prints the homographies and skips warping.
	MatricesOnly bool `yaml:"matrices_only" json:"matrices_only"`

	// Workers bounds how many frames are warped at once. Zero means one per CPU.
	Workers int `yaml:"workers" json:"workers"`

	Debug bool `yaml:"-" json:"-"`

	ConfigFilePath string `yaml:"-" json:"-"`
}

// OutputConfig describes the bird's-eye image.
type OutputConfig struct {
	WidthM  float64 `yaml:"width_m" json:"width_m"`
	HeightM float64 `yaml:"height_m" json:"height_m"`

	// Resolution is the pixel density in px/m along both axes. PxPerMRow and PxPerMCol, when
	// set, override it for one axis.
	Resolution float64 `yaml:"resolution" json:"resolution"`
	PxPerMRow  float64 `yaml:"px_per_m_row,omitempty" json:"px_per_m_row,omitempty"`
	PxPerMCol  float64 `yaml:"px_per_m_col,omitempty" json:"px_per_m_col,omitempty"`

	Interpolation string  `yaml:"interpolation" json:"interpolation"`
	Background    []uint8 `yaml:"background,omitempty" json:"background,omitempty"`
	Dir           string  `yaml:"dir" json:"dir"`
}

// A CameraInput pairs a calibration file with the image (or directory of images) it took.
type CameraInput struct {
	Config string `yaml:"config" json:"config"`
	Images string `yaml:"images" json:"images"`
}

// NewDefault returns a config holding every default and no cameras.
func NewDefault() *Config {
	return &Config{
		Output: OutputConfig{
			WidthM:        DefaultWidthM,
			HeightM:       DefaultHeightM,
			Resolution:    DefaultResolution,
			Interpolation: DefaultInterpolation,
			Dir:           DefaultOutputDir,
		},
	}
}

// Ensure ensures all parts of the config are valid and that at least one camera is given.
func (c *Config) Ensure() error {
	if err := c.ensureSettings(); err != nil {
		return err
	}
	if len(c.Cameras) == 0 {
		return utils.NewConfigValidationFieldRequiredError("", "cameras")
	}
	return nil
}

// ensureSettings validates whatever is set. Cameras may still be missing, since a run file can
// leave them to the command line.
func (c *Config) ensureSettings() error {
	if err := c.Output.Validate("output"); err != nil {
		return err
	}
	for idx := range c.Cameras {
		if err := c.Cameras[idx].Validate(fmt.Sprintf("%s.%d", "cameras", idx)); err != nil {
			return err
		}
	}
	if c.Workers < 0 {
		return utils.NewConfigValidationError("workers", errors.Errorf("must not be negative, got %d", c.Workers))
	}
	return nil
}

// Validate ensures all parts of the config are valid.
func (config *OutputConfig) Validate(path string) error {
	if !positive(config.Resolution) && (!positive(config.PxPerMRow) || !positive(config.PxPerMCol)) {
		return utils.NewConfigValidationFieldRequiredError(path, "resolution")
	}
	if _, err := config.ParseInterpolation(); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	if config.Dir == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "dir")
	}
	if err := config.GroundPlane().CheckValid(); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	return nil
}

// GroundPlane returns the output plane described by the config.
func (config *OutputConfig) GroundPlane() transform.GroundPlaneSpec {
	spec := transform.NewGroundPlaneSpec(config.WidthM, config.HeightM, config.Resolution)
	if positive(config.PxPerMRow) {
		spec.PxPerMRow = config.PxPerMRow
	}
	if positive(config.PxPerMCol) {
		spec.PxPerMCol = config.PxPerMCol
	}
	return spec
}

// ParseInterpolation returns the configured interpolation, linear when unset.
func (config *OutputConfig) ParseInterpolation() (rimage.Interpolation, error) {
	if config.Interpolation == "" {
		return rimage.Linear, nil
	}
	return rimage.InterpolationFromString(config.Interpolation)
}

// WarpOptions returns the sampling options for the warp kernel.
func (config *OutputConfig) WarpOptions() (rimage.WarpOptions, error) {
	interp, err := config.ParseInterpolation()
	if err != nil {
		return rimage.WarpOptions{}, err
	}
	return rimage.WarpOptions{Interpolation: interp, Background: config.Background}, nil
}

// Validate ensures all parts of the config are valid.
func (config *CameraInput) Validate(path string) error {
	if config.Config == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "config")
	}
	if config.Images == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "images")
	}
	return nil
}

// CalibrationFiles returns the calibration file of every camera, in order.
func (c *Config) CalibrationFiles() []string {
	return lo.Map(c.Cameras, func(cam CameraInput, _ int) string { return cam.Config })
}

// ImagePaths returns the image path of every camera, in order.
func (c *Config) ImagePaths() []string {
	return lo.Map(c.Cameras, func(cam CameraInput, _ int) string { return cam.Images })
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}
