package transform

import (
	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/robustvision/fitting/modelset"
	rutils "go.viam.com/robustvision/utils"
)

// Affine2D maps (x, y) to (A*x + B*y + Tx, C*x + D*y + Ty).
type Affine2D struct {
	A, B, Tx float64
	C, D, Ty float64
}

// Apply maps pt through the transform.
func (a Affine2D) Apply(pt r2.Point) r2.Point {
	return r2.Point{
		X: a.A*pt.X + a.B*pt.Y + a.Tx,
		Y: a.C*pt.X + a.D*pt.Y + a.Ty,
	}
}

// AffineGenerator solves the affine transform through three pairs exactly. Samples whose source
// points are collinear produce no model.
type AffineGenerator struct{}

// MinimumPoints is three.
func (AffineGenerator) MinimumPoints() int { return 3 }

// Generate returns the transform that maps every sample source onto its destination.
func (AffineGenerator) Generate(sample []PointPair) []Affine2D {
	if collinear(sample[0].Src, sample[1].Src, sample[2].Src) {
		return nil
	}
	model, ok := solveAffine(sample[:3])
	if !ok {
		return nil
	}
	return []Affine2D{model}
}

// solveAffine fits the transform in the least squares sense. Both coordinates share the design
// matrix so they are solved together as two right hand sides.
func solveAffine(pairs []PointPair) (Affine2D, bool) {
	n := len(pairs)
	design := mat.NewDense(n, 3, nil)
	targets := mat.NewDense(n, 2, nil)
	for i, p := range pairs {
		design.SetRow(i, []float64{p.Src.X, p.Src.Y, 1})
		targets.SetRow(i, []float64{p.Dst.X, p.Dst.Y})
	}
	var params mat.Dense
	if err := params.Solve(design, targets); err != nil {
		return Affine2D{}, false
	}
	model := Affine2D{
		A: params.At(0, 0), B: params.At(1, 0), Tx: params.At(2, 0),
		C: params.At(0, 1), D: params.At(1, 1), Ty: params.At(2, 1),
	}
	for _, v := range []float64{model.A, model.B, model.Tx, model.C, model.D, model.Ty} {
		if !rutils.IsFinite(v) {
			return Affine2D{}, false
		}
	}
	return model, true
}

// AffineDistanceSq is the squared distance between a mapped source point and its destination.
type AffineDistanceSq struct {
	model Affine2D
}

// SetModel sets the transform residuals are computed against.
func (d *AffineDistanceSq) SetModel(model Affine2D) { d.model = model }

// ComputeDistance returns the squared transfer error of pair.
func (d *AffineDistanceSq) ComputeDistance(pair PointPair) float64 {
	diff := d.model.Apply(pair.Src).Sub(pair.Dst)
	return diff.Dot(diff)
}

// ComputeDistances fills distances with the squared transfer error of each pair.
func (d *AffineDistanceSq) ComputeDistances(pairs []PointPair, distances []float64) {
	modelset.ComputeDistances(pairs, distances, d.ComputeDistance)
}

// IsZeroMinimum is true, an exact transform maps every pair with no error.
func (d *AffineDistanceSq) IsZeroMinimum() bool { return true }

// AffineLeastSquares refits the transform to all inliers.
type AffineLeastSquares struct{}

// FitModel returns the least squares transform over pairs.
func (AffineLeastSquares) FitModel(pairs []PointPair, initial Affine2D) (Affine2D, bool) {
	if len(pairs) < 3 {
		return initial, false
	}
	model, ok := solveAffine(pairs)
	if !ok {
		return initial, false
	}
	return model, true
}
