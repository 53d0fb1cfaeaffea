package transform

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/robustvision/fitting/modelset"
	rutils "go.viam.com/robustvision/utils"
)

// Homography is a 3x3 matrix used to transform a plane from the perspective of a 2D
// camera to the perspective of another 2D camera.
type Homography struct {
	matrix *mat.Dense
}

// NewHomography creates a homography from a slice of floats in row major order.
func NewHomography(vals []float64) (*Homography, error) {
	if len(vals) != 9 {
		return nil, errors.Errorf("input to NewHomography must have length of 9. Has length of %d", len(vals))
	}
	for _, v := range vals {
		if !rutils.IsFinite(v) {
			return nil, errors.New("homography entries must be finite")
		}
	}
	return &Homography{mat.NewDense(3, 3, append([]float64(nil), vals...))}, nil
}

// At returns the value of the homography at the given row and column.
func (h *Homography) At(row, col int) float64 {
	return h.matrix.At(row, col)
}

// Matrix returns a copy of the underlying matrix.
func (h *Homography) Matrix() *mat.Dense {
	return mat.DenseCopyOf(h.matrix)
}

// Apply maps pt through the homography. It returns false when pt maps to infinity.
func (h *Homography) Apply(pt r2.Point) (r2.Point, bool) {
	x := h.At(0, 0)*pt.X + h.At(0, 1)*pt.Y + h.At(0, 2)
	y := h.At(1, 0)*pt.X + h.At(1, 1)*pt.Y + h.At(1, 2)
	z := h.At(2, 0)*pt.X + h.At(2, 1)*pt.Y + h.At(2, 2)
	if math.Abs(z) < 1e-12 {
		return r2.Point{}, false
	}
	return r2.Point{X: x / z, Y: y / z}, true
}

// Inverse returns the inverse homography.
func (h *Homography) Inverse() (*Homography, error) {
	var inv mat.Dense
	if err := inv.Inverse(h.matrix); err != nil {
		return nil, errors.Wrap(err, "homography is not invertible")
	}
	return normalizeHomography(&inv)
}

// normalizeHomography scales m so that its bottom right entry is 1, or its norm is 1 when that
// entry is zero.
func normalizeHomography(m *mat.Dense) (*Homography, error) {
	scale := m.At(2, 2)
	if math.Abs(scale) < 1e-12 {
		scale = mat.Norm(m, 2)
	}
	if scale == 0 || !rutils.IsFinite(scale) {
		return nil, errors.New("homography is degenerate")
	}
	m.Scale(1/scale, m)
	return &Homography{m}, nil
}

// EstimateHomography runs the normalized direct linear transform over at least four pairs.
func EstimateHomography(pairs []PointPair) (*Homography, error) {
	if len(pairs) < 4 {
		return nil, errors.Errorf("need at least 4 point pairs to estimate a homography, got %d", len(pairs))
	}
	src, dst := SplitPairs(pairs)
	srcNorm, t1, err := normalizePoints(src)
	if err != nil {
		return nil, err
	}
	dstNorm, t2, err := normalizePoints(dst)
	if err != nil {
		return nil, err
	}

	a := mat.NewDense(2*len(pairs), 9, nil)
	for i := range srcNorm {
		x, y := srcNorm[i].X, srcNorm[i].Y
		u, v := dstNorm[i].X, dstNorm[i].Y
		a.SetRow(2*i, []float64{-x, -y, -1, 0, 0, 0, u * x, u * y, u})
		a.SetRow(2*i+1, []float64{0, 0, 0, -x, -y, -1, v * x, v * y, v})
	}
	hNorm, err := nullVector3x3(a)
	if err != nil {
		return nil, err
	}

	// H = T2^-1 @ Hnorm @ T1
	var t2Inv, h mat.Dense
	if err := t2Inv.Inverse(t2); err != nil {
		return nil, errors.Wrap(err, "cannot undo point normalization")
	}
	h.Mul(&t2Inv, hNorm)
	h.Mul(&h, t1)
	if math.Abs(mat.Det(&h)) < 1e-12*math.Pow(mat.Norm(&h, 2), 3) {
		return nil, errors.New("estimated homography is singular")
	}
	return normalizeHomography(&h)
}

// HomographyGenerator fits a homography through four pairs. Samples where three source or three
// destination points are collinear produce no model.
type HomographyGenerator struct{}

// MinimumPoints is four.
func (HomographyGenerator) MinimumPoints() int { return 4 }

// Generate returns the homography mapping every sample source onto its destination.
func (HomographyGenerator) Generate(sample []PointPair) []*Homography {
	src, dst := SplitPairs(sample[:4])
	for _, pts := range [][]r2.Point{src, dst} {
		for i := 0; i < 4; i++ {
			if collinear(pts[i], pts[(i+1)%4], pts[(i+2)%4]) {
				return nil
			}
		}
	}
	h, err := EstimateHomography(sample[:4])
	if err != nil {
		return nil
	}
	return []*Homography{h}
}

// HomographyTransferErrorSq is the squared distance between a mapped source point and its
// destination. Points mapped to infinity are infinitely far.
type HomographyTransferErrorSq struct {
	model *Homography
}

// SetModel sets the homography residuals are computed against.
func (d *HomographyTransferErrorSq) SetModel(model *Homography) { d.model = model }

// ComputeDistance returns the squared transfer error of pair.
func (d *HomographyTransferErrorSq) ComputeDistance(pair PointPair) float64 {
	mapped, ok := d.model.Apply(pair.Src)
	if !ok {
		return math.Inf(1)
	}
	diff := mapped.Sub(pair.Dst)
	return diff.Dot(diff)
}

// ComputeDistances fills distances with the squared transfer error of each pair.
func (d *HomographyTransferErrorSq) ComputeDistances(pairs []PointPair, distances []float64) {
	modelset.ComputeDistances(pairs, distances, d.ComputeDistance)
}

// IsZeroMinimum is true.
func (d *HomographyTransferErrorSq) IsZeroMinimum() bool { return true }

// HomographyLeastSquares refits the homography to all inliers with the direct linear transform.
type HomographyLeastSquares struct{}

// FitModel returns the homography estimated from every pair.
func (HomographyLeastSquares) FitModel(pairs []PointPair, initial *Homography) (*Homography, bool) {
	h, err := EstimateHomography(pairs)
	if err != nil {
		return initial, false
	}
	return h, true
}
