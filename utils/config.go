package utils

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// Validator is implemented by configuration structs that check themselves. The path names the
// configuration source in returned errors.
type Validator interface {
	Validate(path string) error
}

// LoadJSONConfig decodes the JSON file at path into cfg and validates it.
func LoadJSONConfig(path string, cfg Validator) error {
	filePath := filepath.Clean(path)
	//nolint:gosec
	configFile, err := os.Open(filePath)
	if err != nil {
		return errors.Wrapf(err, "cannot open config %q", filePath)
	}
	defer utils.UncheckedErrorFunc(configFile.Close)

	jsonParser := json.NewDecoder(configFile)
	jsonParser.DisallowUnknownFields()
	if err := jsonParser.Decode(cfg); err != nil {
		return errors.Wrapf(err, "cannot decode config %q", filePath)
	}
	return cfg.Validate(path)
}
