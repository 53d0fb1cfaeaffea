package transform

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"go.viam.com/robustvision/fitting/modelset"
	rutils "go.viam.com/robustvision/utils"
)

// FundamentalGenerator fits a fundamental matrix through eight pairs with the normalized eight
// point algorithm. The matrix maps sources to epipolar lines in the destination image,
// dst^T F src = 0.
type FundamentalGenerator struct{}

// MinimumPoints is eight.
func (FundamentalGenerator) MinimumPoints() int { return 8 }

// Generate returns the rank two fundamental matrix of the sample, or nothing when the sample is
// degenerate.
func (FundamentalGenerator) Generate(sample []PointPair) []*mat.Dense {
	src, dst := SplitPairs(sample)
	f, err := ComputeFundamentalMatrixAllPoints(src, dst, true)
	if err != nil {
		return nil
	}
	for _, v := range f.RawMatrix().Data {
		if !rutils.IsFinite(v) {
			return nil
		}
	}
	return []*mat.Dense{f}
}

// SampsonDistance is the first order approximation of the squared geometric distance of a
// pair to the epipolar geometry of a fundamental matrix.
type SampsonDistance struct {
	model *mat.Dense
}

// SetModel sets the fundamental matrix residuals are computed against.
func (d *SampsonDistance) SetModel(model *mat.Dense) { d.model = model }

// ComputeDistance returns the Sampson error of pair.
func (d *SampsonDistance) ComputeDistance(pair PointPair) float64 {
	f := d.model
	x1 := [3]float64{pair.Src.X, pair.Src.Y, 1}
	x2 := [3]float64{pair.Dst.X, pair.Dst.Y, 1}

	var fx1, ftx2 [3]float64
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			fx1[r] += f.At(r, c) * x1[c]
			ftx2[r] += f.At(c, r) * x2[c]
		}
	}
	num := x2[0]*fx1[0] + x2[1]*fx1[1] + x2[2]*fx1[2]
	den := fx1[0]*fx1[0] + fx1[1]*fx1[1] + ftx2[0]*ftx2[0] + ftx2[1]*ftx2[1]
	if den == 0 {
		if num == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return num * num / den
}

// ComputeDistances fills distances with the Sampson error of each pair.
func (d *SampsonDistance) ComputeDistances(pairs []PointPair, distances []float64) {
	modelset.ComputeDistances(pairs, distances, d.ComputeDistance)
}

// IsZeroMinimum is true.
func (d *SampsonDistance) IsZeroMinimum() bool { return true }

// FundamentalLeastSquares refits the fundamental matrix to all inliers.
type FundamentalLeastSquares struct{}

// FitModel returns the eight point estimate over every pair.
func (FundamentalLeastSquares) FitModel(pairs []PointPair, initial *mat.Dense) (*mat.Dense, bool) {
	src, dst := SplitPairs(pairs)
	f, err := ComputeFundamentalMatrixAllPoints(src, dst, true)
	if err != nil {
		return initial, false
	}
	return f, true
}
