package config

import (
	"bytes"
	"io"
	"path/filepath"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"go.viam.com/birdseye/logging"
)

// Read reads a config from the given YAML file. Environment variables in the file are expanded,
// and relative camera paths are taken relative to the file's directory. The file may leave out
// cameras; call Ensure once every source has been merged.
func Read(filePath string, logger logging.Logger) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return FromReader(filePath, bytes.NewReader(buf), logger)
}

// FromReader reads a config from the given reader and specifies
// where, if applicable, the file the reader originated from.
func FromReader(originalPath string, r io.Reader, logger logging.Logger) (*Config, error) {
	cfg := NewDefault()
	cfg.ConfigFilePath = originalPath

	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrapf(err, "failed to decode Config from yaml")
	}

	if originalPath != "" {
		base := filepath.Dir(originalPath)
		for idx := range cfg.Cameras {
			cfg.Cameras[idx].Config = resolvePath(base, cfg.Cameras[idx].Config)
			cfg.Cameras[idx].Images = resolvePath(base, cfg.Cameras[idx].Images)
		}
		cfg.Output.Dir = resolvePath(base, cfg.Output.Dir)
	}

	if err := cfg.ensureSettings(); err != nil {
		return nil, errors.Wrapf(err, "failed to process Config")
	}
	logger.Debugw("read config", "path", originalPath, "cameras", len(cfg.Cameras))
	return cfg, nil
}

func resolvePath(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
