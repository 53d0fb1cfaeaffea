// Package modelset defines the strategy interfaces shared by the robust model matchers
// (RANSAC, LMedS) together with the sampling and scoring helpers they are built from.
//
// A matcher is handed a data set of points P, a ModelGenerator that fits candidate models M
// to minimal samples, and a DistanceFromModel that scores every point against a candidate.
// Both P and M are opaque to the matchers.
package modelset

import (
	"context"
	"math"
)

// ModelGenerator fits candidate models to a minimal sample of points.
type ModelGenerator[M, P any] interface {
	// Generate returns zero or more models consistent with the sample. Returning no models
	// means the sample was degenerate (e.g. collinear points); it is not an error. Each
	// returned model must be a fresh value the caller may keep.
	Generate(sample []P) []M
	// MinimumPoints is the number of points in a minimal sample. It is fixed per instance and
	// greater than zero.
	MinimumPoints() int
}

// DistanceFromModel scores points against a model.
type DistanceFromModel[M, P any] interface {
	// SetModel binds the metric to a model.
	SetModel(model M)
	// ComputeDistance returns the non-negative distance of pt to the bound model.
	ComputeDistance(pt P) float64
	// ComputeDistances writes the distance of every point into distances. The results must
	// be identical to calling ComputeDistance on each point.
	ComputeDistances(pts []P, distances []float64)
	// IsZeroMinimum reports whether a perfect fit has a distance of zero.
	IsZeroMinimum() bool
}

// ModelFitter refines a model using every point in a consensus set.
type ModelFitter[M, P any] interface {
	// FitModel returns the refined model and whether the fit succeeded.
	FitModel(dataSet []P, initial M) (M, bool)
}

// ModelMatcher robustly fits a model to a data set containing outliers.
type ModelMatcher[M, P any] interface {
	// Process runs the estimator. A false result with a nil error means no acceptable model
	// was found, which is a normal outcome. The error is only set when ctx is done.
	Process(ctx context.Context, dataSet []P) (bool, error)
	// Model is the best model found by the last call to Process.
	Model() M
	// MatchSet is the consensus set of the best model.
	MatchSet() []P
	// InputIndex maps an index into MatchSet back to the index in the data set.
	InputIndex(matchIndex int) int
	// Error is the matcher specific fit error of the best model.
	Error() float64
	// MinimumSize is the number of points drawn for each hypothesis.
	MinimumSize() int
}

// Hypothesis is a candidate model, the minimal sample it was generated from and the score the
// matcher gave it. Sample is only valid for the duration of the observer call.
type Hypothesis[M, P any] struct {
	Model  M
	Sample []P
	Score  float64
}

// HypothesisObserver is called by matchers for every scored hypothesis.
type HypothesisObserver[M, P any] func(h Hypothesis[M, P])

// ComputeDistances is the loop distance metrics delegate their batched form to, which keeps
// it identical to the scalar form.
func ComputeDistances[P any](pts []P, distances []float64, distance func(pt P) float64) {
	for i, pt := range pts {
		distances[i] = distance(pt)
	}
}

// ComputeResiduals binds model to metric and fills distances for every point in dataSet.
// Non-finite distances are replaced by +Inf so they never count as inliers and sort last.
func ComputeResiduals[M, P any](metric DistanceFromModel[M, P], model M, dataSet []P, distances []float64) {
	metric.SetModel(model)
	metric.ComputeDistances(dataSet, distances[:len(dataSet)])
	for i, d := range distances[:len(dataSet)] {
		if math.IsNaN(d) || math.IsInf(d, 0) {
			distances[i] = math.Inf(1)
		}
	}
}

// DistanceBuffer is a growable scratch slice of per point residuals. A matcher owns one and
// passes it explicitly to each scoring step instead of reallocating per hypothesis.
type DistanceBuffer struct {
	data []float64
}

// Resize returns a slice of length n backed by the buffer, growing it if needed. Contents
// are unspecified.
func (buf *DistanceBuffer) Resize(n int) []float64 {
	if cap(buf.data) < n {
		buf.data = make([]float64, n)
	}
	buf.data = buf.data[:n]
	return buf.data
}

// maxIterations caps IterationsForProbability when no finite bound exists.
const maxIterations = math.MaxInt32

// IterationsForProbability returns how many random minimal samples of size k must be drawn so
// that, with probability p, at least one of them contains only inliers when the inlier ratio
// is w: log(1-p) / log(1-w^k).
func IterationsForProbability(p, w float64, k int) int {
	if w >= 1 {
		return 1
	}
	if w <= 0 || p <= 0 {
		return maxIterations
	}
	allInliers := math.Pow(w, float64(k))
	denom := math.Log1p(-allInliers)
	if allInliers <= 0 || denom == 0 {
		return maxIterations
	}
	iterations := math.Ceil(math.Log1p(-p) / denom)
	if iterations >= maxIterations {
		return maxIterations
	}
	if iterations < 1 {
		return 1
	}
	return int(iterations)
}
