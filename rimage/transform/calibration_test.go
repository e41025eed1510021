package transform

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

const frontCameraYAML = `# front camera
fx: 640
fy: 640.0
px: 1
py: 2
yaw: 0
pitch: 10
roll: "0.5"
XCam: -15
YCam: 0
ZCam: 8
`

const frontCameraJSON = `{"fx": 640, "fy": 640, "yaw": 0, "pitch": 10, "roll": 0.5, "XCam": -15, "YCam": 0, "ZCam": "8"}`

func writeFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	test.That(t, os.WriteFile(path, []byte(contents), 0o600), test.ShouldBeNil)
	return path
}

func TestReadCalibrationFile(t *testing.T) {
	for _, tc := range []struct {
		name     string
		contents string
	}{
		{"front.yaml", frontCameraYAML},
		{"front.yml", frontCameraYAML},
		{"front.json", frontCameraJSON},
	} {
		t.Run(tc.name, func(t *testing.T) {
			record, err := ReadCalibrationFile(writeFile(t, tc.name, tc.contents))
			test.That(t, err, test.ShouldBeNil)
			test.That(t, *record.Fx, test.ShouldEqual, 640.)
			test.That(t, *record.Pitch, test.ShouldEqual, 10.)
			test.That(t, *record.Roll, test.ShouldEqual, 0.5)
			test.That(t, *record.ZCam, test.ShouldEqual, 8.)

			params, err := record.Parameters(1280, 720)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, params.Px, test.ShouldEqual, 640.)
			test.That(t, params.Py, test.ShouldEqual, 360.)
			test.That(t, params.Pitch, test.ShouldAlmostEqual, 10*math.Pi/180)
			test.That(t, params.Roll, test.ShouldAlmostEqual, 0.5*math.Pi/180)
			test.That(t, params.Position.X, test.ShouldEqual, -15.)

			cam, err := NewCameraModel(params)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, cam.K().At(0, 2), test.ShouldEqual, 640.)
		})
	}
}

func TestCalibrationPrincipalPoint(t *testing.T) {
	record, err := ReadCalibrationFile(writeFile(t, "front.yaml", frontCameraYAML))
	test.That(t, err, test.ShouldBeNil)

	params, err := record.Parameters(0, 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, params.Px, test.ShouldEqual, 1.)
	test.That(t, params.Py, test.ShouldEqual, 2.)

	record, err = ReadCalibrationFile(writeFile(t, "front.json", frontCameraJSON))
	test.That(t, err, test.ShouldBeNil)
	_, err = record.Parameters(0, 0)
	var confErr *ConfigurationError
	test.That(t, errors.As(err, &confErr), test.ShouldBeTrue)
	test.That(t, confErr.Field, test.ShouldEqual, "px")
}

func TestCalibrationRecordErrors(t *testing.T) {
	_, err := ReadCalibrationFile(filepath.Join(t.TempDir(), "missing.yaml"))
	test.That(t, err, test.ShouldNotBeNil)

	_, err = ReadCalibrationFile(writeFile(t, "front.txt", frontCameraYAML))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, ".yaml")

	_, err = ReadCalibrationFile(writeFile(t, "broken.json", `{"fx": `))
	test.That(t, err, test.ShouldNotBeNil)

	path := writeFile(t, "nozcam.yaml", "fx: 1\nfy: 1\nyaw: 0\npitch: 0\nroll: 0\nXCam: 0\nYCam: 0\n")
	_, err = ReadCalibrationFile(path)
	var confErr *ConfigurationError
	test.That(t, errors.As(err, &confErr), test.ShouldBeTrue)
	test.That(t, confErr.Field, test.ShouldEqual, "ZCam")
	test.That(t, err.Error(), test.ShouldContainSubstring, path)

	_, err = NewCalibrationRecordFromMap(map[string]interface{}{
		"fx": "not a number", "fy": 1, "yaw": 0, "pitch": 0, "roll": 0, "XCam": 0, "YCam": 0, "ZCam": 1,
	})
	test.That(t, errors.As(err, &confErr), test.ShouldBeTrue)

	record, err := NewCalibrationRecordFromMap(map[string]interface{}{
		"fx": 500, "fy": 500, "yaw": 0, "pitch": 0, "roll": 0, "XCam": 0, "YCam": 0, "ZCam": 1,
	})
	test.That(t, err, test.ShouldBeNil)
	negative := -500.
	record.Fx = &negative
	_, err = record.Parameters(640, 480)
	test.That(t, errors.As(err, &confErr), test.ShouldBeTrue)
	test.That(t, confErr.Field, test.ShouldEqual, "fx")
}
