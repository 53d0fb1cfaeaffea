// Package ransac implements RANdom SAmple Consensus for arbitrary model and point types.
//
// For every iteration a minimal sample is drawn without replacement, candidate models are
// generated from it and each candidate is scored by the number of points closer than the
// inlier threshold. The candidate with the strictly largest consensus wins, so on ties the
// earliest model found is kept.
package ransac

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"

	"go.viam.com/robustvision/fitting/modelset"
	"go.viam.com/robustvision/logging"
)

// Ransac is a modelset.ModelMatcher. It is not safe for concurrent use.
type Ransac[M, P any] struct {
	cfg        Config
	sampleSize int
	minInliers int

	generator modelset.ModelGenerator[M, P]
	distance  modelset.DistanceFromModel[M, P]
	refiner   modelset.ModelFitter[M, P]
	observer  modelset.HypothesisObserver[M, P]
	logger    logging.Logger

	sampler   *modelset.Sampler
	sample    []P
	residuals modelset.DistanceBuffer

	iterations  int
	found       bool
	bestModel   M
	bestInliers int
	matchSet    []P
	matchToData []int
	fitError    float64
}

// New validates cfg and returns a matcher using generator and distance.
func New[M, P any](
	cfg Config,
	generator modelset.ModelGenerator[M, P],
	distance modelset.DistanceFromModel[M, P],
	logger logging.Logger,
) (*Ransac[M, P], error) {
	if err := cfg.Validate("ransac"); err != nil {
		return nil, err
	}
	if generator == nil || distance == nil {
		return nil, errors.New("ransac needs both a model generator and a distance metric")
	}
	minPoints := generator.MinimumPoints()
	if minPoints <= 0 {
		return nil, errors.Errorf("generator minimum points should be > 0, got %d", minPoints)
	}
	sampleSize := cfg.SampleSize
	if sampleSize == 0 {
		sampleSize = minPoints
	}
	if sampleSize < minPoints {
		return nil, errors.Errorf("sample_size %d is below the generator minimum of %d", sampleSize, minPoints)
	}
	minInliers := cfg.MinInliers
	if minInliers == 0 {
		minInliers = sampleSize + 1
	}
	if logger == nil {
		logger = logging.NewBlankLogger("ransac")
	}

	return &Ransac[M, P]{
		cfg:        cfg,
		sampleSize: sampleSize,
		minInliers: minInliers,
		generator:  generator,
		distance:   distance,
		logger:     logger,
		sampler:    modelset.NewSampler(cfg.RandSeed),
		sample:     make([]P, 0, sampleSize),
		fitError:   math.Inf(1),
	}, nil
}

// SetRefiner installs a fitter that re-estimates the best model from its whole consensus set
// after sampling. The refined model replaces the sampled one only if its consensus is at least
// as large.
func (r *Ransac[M, P]) SetRefiner(refiner modelset.ModelFitter[M, P]) {
	r.refiner = refiner
}

// SetHypothesisObserver installs a callback invoked for every scored hypothesis. The score is
// the hypothesis' inlier count.
func (r *Ransac[M, P]) SetHypothesisObserver(observer modelset.HypothesisObserver[M, P]) {
	r.observer = observer
}

func (r *Ransac[M, P]) reset() {
	var zero M
	r.iterations = 0
	r.found = false
	r.bestModel = zero
	r.bestInliers = 0
	r.matchSet = r.matchSet[:0]
	r.matchToData = r.matchToData[:0]
	r.fitError = math.Inf(1)
}

// Process searches dataSet for the model with the largest consensus. It returns false when the
// data set is smaller than the sample size (without iterating) or when the best consensus is
// below the configured minimum.
func (r *Ransac[M, P]) Process(ctx context.Context, dataSet []P) (bool, error) {
	r.reset()
	n := len(dataSet)
	if n < r.sampleSize {
		r.logger.Debugw("data set smaller than sample size", "points", n, "sample_size", r.sampleSize)
		return false, nil
	}

	r.sampler.Reset(n)
	residuals := r.residuals.Resize(n)
	maxIterations := r.cfg.MaxIterations
	degenerate := 0

	for r.iterations < maxIterations {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		r.iterations++

		var err error
		r.sample, err = modelset.RandomDraw(r.sampler, dataSet, r.sampleSize, r.sample)
		if err != nil {
			return false, err
		}
		candidates := r.generator.Generate(r.sample)
		if len(candidates) == 0 {
			degenerate++
			continue
		}

		for _, candidate := range candidates {
			modelset.ComputeResiduals(r.distance, candidate, dataSet, residuals)
			inliers := r.countInliers(residuals)
			if r.observer != nil {
				r.observer(modelset.Hypothesis[M, P]{Model: candidate, Sample: r.sample, Score: float64(inliers)})
			}
			if !r.found || inliers > r.bestInliers {
				r.found = true
				r.bestModel = candidate
				r.bestInliers = inliers
				r.logger.Debugw("new best hypothesis", "iteration", r.iterations, "inliers", inliers)

				if r.cfg.SuccessProbability > 0 {
					needed := modelset.IterationsForProbability(
						r.cfg.SuccessProbability, float64(inliers)/float64(n), r.sampleSize)
					if needed < maxIterations {
						maxIterations = needed
					}
				}
			}
		}
	}

	r.logger.Debugw("sampling finished",
		"iterations", r.iterations, "degenerate", degenerate, "best_inliers", r.bestInliers)
	if !r.found || r.bestInliers < r.minInliers {
		return false, nil
	}

	r.selectMatchSet(dataSet, residuals)
	if r.refiner != nil {
		r.refine(dataSet, residuals)
	}
	return true, nil
}

func (r *Ransac[M, P]) countInliers(residuals []float64) int {
	count := 0
	for _, d := range residuals {
		if d < r.cfg.InlierThreshold {
			count++
		}
	}
	return count
}

// selectMatchSet rebuilds the consensus set of the current best model.
func (r *Ransac[M, P]) selectMatchSet(dataSet []P, residuals []float64) {
	modelset.ComputeResiduals(r.distance, r.bestModel, dataSet, residuals)
	r.matchSet = r.matchSet[:0]
	r.matchToData = r.matchToData[:0]
	inlierErrors := make([]float64, 0, r.bestInliers)
	for i, d := range residuals {
		if d < r.cfg.InlierThreshold {
			r.matchSet = append(r.matchSet, dataSet[i])
			r.matchToData = append(r.matchToData, i)
			inlierErrors = append(inlierErrors, d)
		}
	}
	r.bestInliers = len(r.matchSet)
	r.fitError = stat.Mean(inlierErrors, nil)
}

func (r *Ransac[M, P]) refine(dataSet []P, residuals []float64) {
	refined, ok := r.refiner.FitModel(r.matchSet, r.bestModel)
	if !ok {
		r.logger.Debug("refinement failed, keeping sampled model")
		return
	}
	modelset.ComputeResiduals(r.distance, refined, dataSet, residuals)
	inliers := r.countInliers(residuals)
	if inliers < r.bestInliers {
		r.logger.Debugw("refined model has a smaller consensus, keeping sampled model",
			"sampled", r.bestInliers, "refined", inliers)
		return
	}
	r.bestModel = refined
	r.selectMatchSet(dataSet, residuals)
}

// Model returns the best model found by the last call to Process.
func (r *Ransac[M, P]) Model() M {
	return r.bestModel
}

// MatchSet returns the inliers of the best model, in data set order.
func (r *Ransac[M, P]) MatchSet() []P {
	return r.matchSet
}

// InputIndex returns the data set index of the matchIndex-th inlier.
func (r *Ransac[M, P]) InputIndex(matchIndex int) int {
	return r.matchToData[matchIndex]
}

// Error returns the mean distance of the inliers to the best model, or +Inf when the last call
// to Process found none.
func (r *Ransac[M, P]) Error() float64 {
	return r.fitError
}

// MinimumSize returns the number of points in each sample.
func (r *Ransac[M, P]) MinimumSize() int {
	return r.sampleSize
}

// Iterations returns the number of samples drawn by the last call to Process.
func (r *Ransac[M, P]) Iterations() int {
	return r.iterations
}
