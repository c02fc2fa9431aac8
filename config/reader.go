package config

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/a8m/envsubst"
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"

	"go.viam.com/gpio/logging"
)

// Read reads a config from the given file, expanding environment variables first. An empty path
// returns the defaults.
func Read(filePath string, logger logging.Logger) (*Config, error) {
	if filePath == "" {
		return Default(), nil
	}
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return FromReader(filePath, bytes.NewReader(buf), logger)
}

// FromReader reads a config from the given reader and specifies
// where, if applicable, the file the reader originated from.
func FromReader(originalPath string, r io.Reader, logger logging.Logger) (*Config, error) {
	var attributes map[string]interface{}
	if err := json.NewDecoder(r).Decode(&attributes); err != nil {
		return nil, errors.Wrapf(err, "failed to decode Config from json")
	}

	conf := Default()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		ErrorUnused: true,
		Result:      conf,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(attributes); err != nil {
		return nil, errors.Wrapf(err, "failed to decode Config %s", originalPath)
	}
	conf.ConfigFilePath = originalPath

	if err := conf.Validate(originalPath); err != nil {
		return nil, err
	}
	logger.Debugw("read config", "path", originalPath, "numbering", conf.Scheme().String())
	return conf, nil
}
