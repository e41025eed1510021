package config

import (
	"image"
	"math"
	"testing"

	"go.viam.com/test"

	"go.viam.com/birdseye/rimage"
)

func validConfig() *Config {
	cfg := NewDefault()
	cfg.Cameras = []CameraInput{
		{Config: "front.yaml", Images: "front.png"},
		{Config: "rear.yaml", Images: "rear.png"},
	}
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := validConfig()
	test.That(t, cfg.Ensure(), test.ShouldBeNil)

	spec := cfg.Output.GroundPlane()
	test.That(t, spec.Resolution(), test.ShouldResemble, image.Point{X: 400, Y: 800})

	opts, err := cfg.Output.WarpOptions()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, opts.Interpolation, test.ShouldEqual, rimage.Linear)
	test.That(t, opts.Background, test.ShouldBeNil)

	test.That(t, cfg.CalibrationFiles(), test.ShouldResemble, []string{"front.yaml", "rear.yaml"})
	test.That(t, cfg.ImagePaths(), test.ShouldResemble, []string{"front.png", "rear.png"})
}

func TestPerAxisResolution(t *testing.T) {
	cfg := validConfig()
	cfg.Output.Resolution = 0
	cfg.Output.PxPerMRow = 10
	test.That(t, cfg.Ensure(), test.ShouldNotBeNil)

	cfg.Output.PxPerMCol = 5
	test.That(t, cfg.Ensure(), test.ShouldBeNil)
	test.That(t, cfg.Output.GroundPlane().Resolution(), test.ShouldResemble, image.Point{X: 100, Y: 400})

	cfg.Output.Resolution = 20
	cfg.Output.PxPerMCol = 0
	test.That(t, cfg.Output.GroundPlane().Resolution(), test.ShouldResemble, image.Point{X: 400, Y: 400})
}

func TestEnsureErrors(t *testing.T) {
	for _, tc := range []struct {
		name     string
		modify   func(*Config)
		contains string
	}{
		{"no cameras", func(c *Config) { c.Cameras = nil }, "cameras"},
		{"camera without config", func(c *Config) { c.Cameras[1].Config = "" }, "cameras.1"},
		{"camera without images", func(c *Config) { c.Cameras[0].Images = "" }, "images"},
		{"bad interpolation", func(c *Config) { c.Output.Interpolation = "cubic" }, "cubic"},
		{"no resolution", func(c *Config) { c.Output.Resolution = math.Inf(1) }, "resolution"},
		{"zero width", func(c *Config) { c.Output.WidthM = 0 }, "width_m"},
		{"no output dir", func(c *Config) { c.Output.Dir = "" }, "dir"},
		{"negative workers", func(c *Config) { c.Workers = -2 }, "workers"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.modify(cfg)
			err := cfg.Ensure()
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.contains)
		})
	}
}

func TestWarpOptions(t *testing.T) {
	cfg := validConfig()
	cfg.Output.Interpolation = "Nearest"
	cfg.Output.Background = []uint8{1, 2, 3}
	opts, err := cfg.Output.WarpOptions()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, opts.Interpolation, test.ShouldEqual, rimage.Nearest)
	test.That(t, opts.Background, test.ShouldResemble, []uint8{1, 2, 3})

	cfg.Output.Interpolation = ""
	interp, err := cfg.Output.ParseInterpolation()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, interp, test.ShouldEqual, rimage.Linear)
}
