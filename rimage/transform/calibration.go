package transform

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"go.viam.com/birdseye/utils"
)

// maxCalibrationFileSize guards against pointing the loader at an image or a dataset by mistake.
const maxCalibrationFileSize = 1 << 20

// CalibrationRecord is the key/value description of a camera as stored in calibration files.
// Angles are in degrees. Px and Py are optional since they are normally taken from the image
// size at load time.
type CalibrationRecord struct {
	Fx *float64 `mapstructure:"fx" json:"fx"`
	Fy *float64 `mapstructure:"fy" json:"fy"`
	Px *float64 `mapstructure:"px" json:"px,omitempty"`
	Py *float64 `mapstructure:"py" json:"py,omitempty"`

	Yaw   *float64 `mapstructure:"yaw" json:"yaw"`
	Pitch *float64 `mapstructure:"pitch" json:"pitch"`
	Roll  *float64 `mapstructure:"roll" json:"roll"`

	XCam *float64 `mapstructure:"XCam" json:"XCam"`
	YCam *float64 `mapstructure:"YCam" json:"YCam"`
	ZCam *float64 `mapstructure:"ZCam" json:"ZCam"`
}

// floatHook lets records carry numbers as ints or numeric strings.
func floatHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if to.Kind() != reflect.Float64 || from.Kind() == reflect.Float64 {
		return data, nil
	}
	return cast.ToFloat64E(data)
}

// NewCalibrationRecordFromMap decodes a loaded key/value record.
func NewCalibrationRecordFromMap(raw map[string]interface{}) (*CalibrationRecord, error) {
	record := &CalibrationRecord{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: floatHook,
		Result:     record,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, NewConfigurationError("record", err.Error())
	}
	if err := record.checkComplete(); err != nil {
		return nil, err
	}
	return record, nil
}

// ReadCalibrationFile reads a YAML (.yaml, .yml) or JSON (.json) calibration record.
func ReadCalibrationFile(path string) (*CalibrationRecord, error) {
	cleanPath := filepath.Clean(path)
	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, errors.Wrap(err, "error opening calibration file")
	}
	if info.Size() > maxCalibrationFileSize {
		return nil, errors.Errorf("calibration file %q too large: %d bytes (max %d)", cleanPath, info.Size(), maxCalibrationFileSize)
	}
	//nolint:gosec
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, errors.Wrap(err, "error reading calibration file")
	}

	raw := map[string]interface{}{}
	switch strings.ToLower(filepath.Ext(cleanPath)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	case ".json":
		err = json.Unmarshal(data, &raw)
	default:
		return nil, errors.Errorf("calibration file %q must be .yaml, .yml or .json", cleanPath)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "error parsing calibration file %q", cleanPath)
	}

	record, err := NewCalibrationRecordFromMap(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "calibration file %q", cleanPath)
	}
	return record, nil
}

func (record *CalibrationRecord) checkComplete() error {
	required := []struct {
		name string
		val  *float64
	}{
		{"fx", record.Fx}, {"fy", record.Fy},
		{"yaw", record.Yaw}, {"pitch", record.Pitch}, {"roll", record.Roll},
		{"XCam", record.XCam}, {"YCam", record.YCam}, {"ZCam", record.ZCam},
	}
	for _, r := range required {
		if r.val == nil {
			return NewConfigurationError(r.name, "missing")
		}
	}
	return nil
}

// Parameters converts the record into CalibrationParameters. When imageWidth and imageHeight
// are positive, the principal point is set to the image center, overriding px and py.
func (record *CalibrationRecord) Parameters(imageWidth, imageHeight int) (CalibrationParameters, error) {
	if err := record.checkComplete(); err != nil {
		return CalibrationParameters{}, err
	}
	params := CalibrationParameters{
		Fx:    *record.Fx,
		Fy:    *record.Fy,
		Yaw:   utils.DegToRad(*record.Yaw),
		Pitch: utils.DegToRad(*record.Pitch),
		Roll:  utils.DegToRad(*record.Roll),
	}
	params.Position.X, params.Position.Y, params.Position.Z = *record.XCam, *record.YCam, *record.ZCam

	switch {
	case imageWidth > 0 && imageHeight > 0:
		params.Px = float64(imageWidth) / 2
		params.Py = float64(imageHeight) / 2
	case record.Px != nil && record.Py != nil:
		params.Px, params.Py = *record.Px, *record.Py
	default:
		return CalibrationParameters{}, NewConfigurationError("px", "no principal point and no image size to derive it from")
	}
	return params, params.CheckValid()
}
