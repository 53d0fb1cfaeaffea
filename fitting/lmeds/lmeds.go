// Package lmeds implements the Least Median of Squares (LMedS) robust estimator.
//
// Like RANSAC a minimal sample is drawn each cycle and candidate models are fitted to it, but
// a candidate is scored by the median of its distances over the whole data set rather than by
// counting points under a threshold. The model with the smallest median wins. The median is
// the lower median, the value at sorted rank n/2, found by quick-select.
package lmeds

import (
	"context"
	"math"
	"slices"

	"github.com/pkg/errors"

	"go.viam.com/robustvision/fitting/modelset"
	"go.viam.com/robustvision/logging"
	"go.viam.com/robustvision/sorting"
)

// LeastMedianOfSquares is a modelset.ModelMatcher. It is not safe for concurrent use.
type LeastMedianOfSquares[M, P any] struct {
	cfg        Config
	sampleSize int

	generator modelset.ModelGenerator[M, P]
	distance  modelset.DistanceFromModel[M, P]
	observer  modelset.HypothesisObserver[M, P]
	logger    logging.Logger

	sampler   *modelset.Sampler
	sample    []P
	residuals modelset.DistanceBuffer
	indexes   []int

	iterations  int
	found       bool
	bestModel   M
	bestMedian  float64
	matchSet    []P
	matchToData []int
}

// New validates cfg and returns a matcher using generator and distance.
func New[M, P any](
	cfg Config,
	generator modelset.ModelGenerator[M, P],
	distance modelset.DistanceFromModel[M, P],
	logger logging.Logger,
) (*LeastMedianOfSquares[M, P], error) {
	if err := cfg.Validate("lmeds"); err != nil {
		return nil, err
	}
	if generator == nil || distance == nil {
		return nil, errors.New("lmeds needs both a model generator and a distance metric")
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
	if logger == nil {
		logger = logging.NewBlankLogger("lmeds")
	}

	return &LeastMedianOfSquares[M, P]{
		cfg:        cfg,
		sampleSize: sampleSize,
		generator:  generator,
		distance:   distance,
		logger:     logger,
		sampler:    modelset.NewSampler(cfg.RandSeed),
		sample:     make([]P, 0, sampleSize),
		bestMedian: math.Inf(1),
	}, nil
}

// SetHypothesisObserver installs a callback invoked for every scored hypothesis. The score is
// the hypothesis' median distance.
func (lm *LeastMedianOfSquares[M, P]) SetHypothesisObserver(observer modelset.HypothesisObserver[M, P]) {
	lm.observer = observer
}

func (lm *LeastMedianOfSquares[M, P]) reset() {
	var zero M
	lm.iterations = 0
	lm.found = false
	lm.bestModel = zero
	lm.bestMedian = math.Inf(1)
	lm.matchSet = nil
	lm.matchToData = lm.matchToData[:0]
}

// Process searches dataSet for the model with the smallest median distance. It returns true
// when that median is at most the configured maximum. A data set smaller than the sample size
// fails without iterating.
func (lm *LeastMedianOfSquares[M, P]) Process(ctx context.Context, dataSet []P) (bool, error) {
	lm.reset()
	n := len(dataSet)
	if n < lm.sampleSize {
		lm.logger.Debugw("data set smaller than sample size", "points", n, "sample_size", lm.sampleSize)
		return false, nil
	}

	lm.sampler.Reset(n)
	residuals := lm.residuals.Resize(n)
	degenerate := 0

	for lm.iterations < lm.cfg.TotalCycles {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		lm.iterations++

		var err error
		lm.sample, err = modelset.RandomDraw(lm.sampler, dataSet, lm.sampleSize, lm.sample)
		if err != nil {
			return false, err
		}
		candidates := lm.generator.Generate(lm.sample)
		if len(candidates) == 0 {
			degenerate++
			continue
		}

		for _, candidate := range candidates {
			modelset.ComputeResiduals(lm.distance, candidate, dataSet, residuals)
			median := sorting.Median(residuals, n)
			if lm.observer != nil {
				lm.observer(modelset.Hypothesis[M, P]{Model: candidate, Sample: lm.sample, Score: median})
			}
			if !lm.found || median < lm.bestMedian {
				lm.found = true
				lm.bestModel = candidate
				lm.bestMedian = median
				lm.logger.Debugw("new best hypothesis", "cycle", lm.iterations, "median", median)
			}
		}
	}

	lm.logger.Debugw("sampling finished",
		"cycles", lm.iterations, "degenerate", degenerate, "best_median", lm.bestMedian)
	if !lm.found {
		return false, nil
	}

	lm.computeInlierSet(dataSet, residuals)
	return lm.bestMedian <= lm.cfg.MaxMedianError, nil
}

// computeInlierSet keeps the configured fraction of points closest to the best model. When the
// fraction is off, or would not even exceed the sample size, the whole data set is used.
func (lm *LeastMedianOfSquares[M, P]) computeInlierSet(dataSet []P, residuals []float64) {
	n := len(dataSet)
	numPts := int(float64(n) * lm.cfg.InlierFraction)

	if lm.cfg.InlierFraction <= 0 || numPts <= lm.sampleSize {
		lm.matchSet = dataSet
		lm.matchToData = lm.matchToData[:0]
		for i := range dataSet {
			lm.matchToData = append(lm.matchToData, i)
		}
		return
	}

	modelset.ComputeResiduals(lm.distance, lm.bestModel, dataSet, residuals)
	lm.indexes = sorting.SelectIndex(residuals, numPts, n, lm.indexes)

	lm.matchToData = append(lm.matchToData[:0], lm.indexes[:numPts]...)
	slices.Sort(lm.matchToData)
	lm.matchSet = make([]P, 0, numPts)
	for _, idx := range lm.matchToData {
		lm.matchSet = append(lm.matchSet, dataSet[idx])
	}
}

// Model returns the model with the smallest median found by the last call to Process.
func (lm *LeastMedianOfSquares[M, P]) Model() M {
	return lm.bestModel
}

// MatchSet returns the extracted inliers, or the whole data set when extraction is off.
func (lm *LeastMedianOfSquares[M, P]) MatchSet() []P {
	return lm.matchSet
}

// InputIndex returns the data set index of the matchIndex-th inlier.
func (lm *LeastMedianOfSquares[M, P]) InputIndex(matchIndex int) int {
	return lm.matchToData[matchIndex]
}

// Error returns the best median distance.
func (lm *LeastMedianOfSquares[M, P]) Error() float64 {
	return lm.bestMedian
}

// MinimumSize returns the number of points in each sample.
func (lm *LeastMedianOfSquares[M, P]) MinimumSize() int {
	return lm.sampleSize
}

// Iterations returns the number of cycles run by the last call to Process.
func (lm *LeastMedianOfSquares[M, P]) Iterations() int {
	return lm.iterations
}
