package pyramid

import (
	"math"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	rutils "go.viam.com/robustvision/utils"
)

// Config describes the levels of a pyramid and the blur applied between them.
type Config struct {
	// ScaleFactors gives each level's size reduction relative to the input image. The first
	// entry is at least 1 and every following entry is strictly larger than the one before.
	ScaleFactors []float64 `json:"scale_factors"`
	// SaveOriginalReference makes level 0 share the input image when its scale is 1.
	SaveOriginalReference bool `json:"save_original_reference"`
	// Sigma is the standard deviation of the gaussian blur.
	Sigma float64 `json:"sigma"`
	// Radius is the half width of the blur kernel. Zero picks one from sigma.
	Radius int `json:"radius,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	var errs error
	if len(cfg.ScaleFactors) == 0 {
		errs = multierr.Append(errs, errors.New("scale_factors must have at least one level"))
	}
	for i, s := range cfg.ScaleFactors {
		switch {
		case math.IsNaN(s) || math.IsInf(s, 0):
			errs = multierr.Append(errs, errors.Errorf("scale_factors[%d] is not finite", i))
		case i == 0 && s < 1:
			errs = multierr.Append(errs, errors.Errorf("scale_factors[0] should be >= 1, got %v", s))
		case i > 0 && s <= cfg.ScaleFactors[i-1]:
			errs = multierr.Append(errs,
				errors.Errorf("scale_factors[%d] = %v must be larger than the previous level's %v", i, s, cfg.ScaleFactors[i-1]))
		}
	}
	if math.IsNaN(cfg.Sigma) || cfg.Sigma <= 0 {
		errs = multierr.Append(errs, errors.New("sigma should be > 0"))
	}
	if cfg.Radius < 0 {
		errs = multierr.Append(errs, errors.New("radius cannot be negative"))
	}
	if errs != nil {
		return utils.NewConfigValidationError(path, errs)
	}
	return nil
}

// LoadConfig reads and validates a pyramid configuration from a JSON file.
func LoadConfig(file string) (*Config, error) {
	var cfg Config
	if err := rutils.LoadJSONConfig(file, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ScaleFactorsFromRatio returns levels scale factors starting at 1, each ratio times the one
// before it.
func ScaleFactorsFromRatio(ratio float64, levels int) ([]float64, error) {
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) || ratio <= 1 {
		return nil, errors.Errorf("ratio should be a finite number > 1, got %v", ratio)
	}
	if levels <= 0 {
		return nil, errors.Errorf("levels should be > 0, got %d", levels)
	}
	scales := make([]float64, levels)
	scales[0] = 1
	for i := 1; i < levels; i++ {
		scales[i] = scales[i-1] * ratio
	}
	return scales, nil
}
