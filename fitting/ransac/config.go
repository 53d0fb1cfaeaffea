package ransac

import (
	"math"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
)

// Config holds the parameters of a RANSAC run.
type Config struct {
	// RandSeed seeds the sampler. The same seed, data and generator give the same result.
	RandSeed int64 `json:"rand_seed"`
	// MaxIterations is the number of hypotheses drawn, or the upper bound when adaptive
	// termination is enabled.
	MaxIterations int `json:"max_iterations"`
	// InlierThreshold is the exclusive distance bound for a point to agree with a model.
	InlierThreshold float64 `json:"inlier_threshold"`
	// SampleSize overrides the generator's minimum number of points when set.
	SampleSize int `json:"sample_size,omitempty"`
	// MinInliers is the smallest consensus accepted as a solution. Defaults to SampleSize+1.
	MinInliers int `json:"min_inliers,omitempty"`
	// SuccessProbability enables adaptive termination when in (0, 1): the iteration budget is
	// lowered to log(1-p)/log(1-w^k) each time a better model raises the inlier ratio w.
	SuccessProbability float64 `json:"success_probability,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	var errs error
	if cfg.MaxIterations <= 0 {
		errs = multierr.Append(errs, errors.New("max_iterations should be > 0"))
	}
	if math.IsNaN(cfg.InlierThreshold) || cfg.InlierThreshold < 0 {
		errs = multierr.Append(errs, errors.New("inlier_threshold should be >= 0"))
	}
	if cfg.SampleSize < 0 {
		errs = multierr.Append(errs, errors.New("sample_size cannot be negative"))
	}
	if cfg.MinInliers < 0 {
		errs = multierr.Append(errs, errors.New("min_inliers cannot be negative"))
	}
	if math.IsNaN(cfg.SuccessProbability) || cfg.SuccessProbability < 0 || cfg.SuccessProbability >= 1 {
		errs = multierr.Append(errs, errors.New("success_probability should be in [0, 1)"))
	}
	if errs != nil {
		return utils.NewConfigValidationError(path, errs)
	}
	return nil
}
