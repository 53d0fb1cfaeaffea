package lmeds

import (
	"math"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
)

// Config holds the parameters of a Least Median of Squares run.
type Config struct {
	// RandSeed seeds the sampler.
	RandSeed int64 `json:"rand_seed"`
	// TotalCycles is the number of minimal samples drawn.
	TotalCycles int `json:"total_cycles"`
	// MaxMedianError is the largest best median still considered a successful fit.
	MaxMedianError float64 `json:"max_median_error"`
	// InlierFraction is the fraction of points, closest to the final model, kept as the
	// inlier set. Zero turns extraction off and the whole data set is returned instead.
	InlierFraction float64 `json:"inlier_fraction"`
	// SampleSize overrides the generator's minimum number of points when set.
	SampleSize int `json:"sample_size,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	var errs error
	if cfg.TotalCycles <= 0 {
		errs = multierr.Append(errs, errors.New("total_cycles should be > 0"))
	}
	if math.IsNaN(cfg.MaxMedianError) || cfg.MaxMedianError < 0 {
		errs = multierr.Append(errs, errors.New("max_median_error should be >= 0"))
	}
	if math.IsNaN(cfg.InlierFraction) || cfg.InlierFraction < 0 || cfg.InlierFraction > 1 {
		errs = multierr.Append(errs, errors.New("inlier_fraction must be in [0, 1]"))
	}
	if cfg.SampleSize < 0 {
		errs = multierr.Append(errs, errors.New("sample_size cannot be negative"))
	}
	if errs != nil {
		return utils.NewConfigValidationError(path, errs)
	}
	return nil
}
