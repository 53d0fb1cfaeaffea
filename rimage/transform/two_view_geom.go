package transform

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// GetEssentialMatrixFromFundamental returns the essential matrix from the fundamental matrix and intrinsics parameters.
// The result is projected onto the essential manifold: two equal singular values and a zero one.
func GetEssentialMatrixFromFundamental(k1, k2, f *mat.Dense) (*mat.Dense, error) {
	var essMat, tmp mat.Dense
	tmp.Mul(k2.T(), f)
	essMat.Mul(&tmp, k1)
	// enforce rank 2
	mats, err := performSVD(&essMat)
	if err != nil {
		return nil, err
	}
	s := eye(3)
	s.Set(2, 2, 0)

	essMat.Mul(mats.U, s)
	essMat.Mul(&essMat, mats.VT)
	return &essMat, nil
}

// DecomposeEssentialMatrix decomposes the Essential matrix into 2 possible 3D rotations and a 3D translation.
// The translation is known up to sign and scale; the four candidate poses are (R1, ±t) and (R2, ±t).
func DecomposeEssentialMatrix(essMat *mat.Dense) (*mat.Dense, *mat.Dense, *mat.Dense, error) {
	mats, err := performSVD(essMat)
	if err != nil {
		return nil, nil, nil, err
	}
	// check determinant sign of U and V
	if mat.Det(mats.U) < 0 {
		mats.U.Scale(-1, mats.U)
	}
	if mat.Det(mats.VT) < 0 {
		mats.VT.Scale(-1, mats.VT)
	}
	w := mat.NewDense(3, 3, []float64{
		0, 1, 0,
		-1, 0, 0,
		0, 0, 1,
	})
	// UWV^T
	var r1, r2 mat.Dense
	r1.Mul(mats.U, w)
	r1.Mul(&r1, mats.VT)
	// UW^TV^T
	r2.Mul(mats.U, w.T())
	r2.Mul(&r2, mats.VT)

	u3 := mats.U.ColView(2)
	t := mat.NewDense(3, 1, []float64{u3.AtVec(0), u3.AtVec(1), u3.AtVec(2)})
	return &r1, &r2, t, nil
}

// Convert2DPointsToHomogeneousPoints converts float64 image coordinates to homogeneous float64 coordinates.
func Convert2DPointsToHomogeneousPoints(pts []r2.Point) []r3.Vector {
	ptsHomogeneous := make([]r3.Vector, len(pts))
	for i, pt := range pts {
		ptsHomogeneous[i] = r3.Vector{X: pt.X, Y: pt.Y, Z: 1}
	}
	return ptsHomogeneous
}

// ComputeFundamentalMatrixAllPoints compute the fundamental matrix from all points with the eight point
// algorithm. The result satisfies pts2[i]^T F pts1[i] = 0 and is scaled so that F(2, 2) is 1.
func ComputeFundamentalMatrixAllPoints(pts1, pts2 []r2.Point, normalize bool) (*mat.Dense, error) {
	if len(pts1) != len(pts2) {
		return nil, errors.New("sets of points pts1 and pts2 must have the same number of elements")
	}
	if len(pts1) < 8 {
		return nil, errors.New("sets of points must have at least 8 elements")
	}
	nPoints := len(pts1)

	points1, points2 := pts1, pts2
	t1, t2 := eye(3), eye(3)
	if normalize {
		var err error
		if points1, t1, err = normalizePoints(pts1); err != nil {
			return nil, err
		}
		if points2, t2, err = normalizePoints(pts2); err != nil {
			return nil, err
		}
	}

	m := mat.NewDense(nPoints, 9, nil)
	for i := range points1 {
		v1 := points1[i]
		v2 := points2[i]
		m.SetRow(i, []float64{
			v2.X * v1.X, v2.X * v1.Y, v2.X,
			v2.Y * v1.X, v2.Y * v1.Y, v2.Y,
			v1.X, v1.Y, 1,
		})
	}

	f, err := nullVector3x3(m)
	if err != nil {
		return nil, err
	}

	// enforce rank 2 of F
	mats, err := performSVD(f)
	if err != nil {
		return nil, err
	}
	mats.S.Set(2, 2, 0)
	f.Mul(mats.U, mats.S)
	f.Mul(f, mats.VT)

	// undo the normalization: T2^T @ F @ T1
	f.Mul(t2.T(), f)
	f.Mul(f, t1)

	if math.Abs(f.At(2, 2)) < 1e-12 {
		return nil, errors.New("fundamental matrix cannot be scaled, F(2, 2) is zero")
	}
	f.Scale(1/f.At(2, 2), f)
	return f, nil
}

// nullVector3x3 returns the right singular vector of m with the smallest singular value, reshaped
// row major into a 3x3 matrix.
func nullVector3x3(m *mat.Dense) (*mat.Dense, error) {
	mats, err := performSVD(m)
	if err != nil {
		return nil, err
	}
	_, cols := mats.V.Dims()
	last := mats.V.ColView(cols - 1)
	data := make([]float64, 9)
	for i := range data {
		data[i] = last.AtVec(i)
	}
	return mat.NewDense(3, 3, data), nil
}

// normalizePoints normalizes points as described in Multiple View Geometry, Alg 11.1: the centroid moves to the
// origin and the mean distance to it becomes sqrt(2).
func normalizePoints(pts []r2.Point) ([]r2.Point, *mat.Dense, error) {
	nPoints := float64(len(pts))
	mu := r2.Point{}
	for _, pt := range pts {
		mu = mu.Add(pt)
	}
	mu = mu.Mul(1. / nPoints)

	d := 0.0
	for _, pt := range pts {
		d += pt.Sub(mu).Norm() / nPoints
	}
	if d < 1e-12 {
		return nil, nil, errors.New("cannot normalize points that all coincide")
	}
	scale := math.Sqrt(2) / d
	transform := mat.NewDense(3, 3, []float64{
		scale, 0, -scale * mu.X,
		0, scale, -scale * mu.Y,
		0, 0, 1,
	})
	out := make([]r2.Point, len(pts))
	for i, pt := range pts {
		out[i] = pt.Sub(mu).Mul(scale)
	}
	return out, transform, nil
}

// eye create an identity matrix of size nxn.
func eye(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// matsSVD stores the matrices from SVD decomposition.
type matsSVD struct {
	U  *mat.Dense
	V  *mat.Dense
	VT *mat.Dense
	S  *mat.Dense
}

// performSVD performs SVD on inputMatrix and returns matrices U, Sigma and V from the decomposition.
func performSVD(inputMatrix mat.Matrix) (*matsSVD, error) {
	var svd mat.SVD
	if ok := svd.Factorize(inputMatrix, mat.SVDFull); !ok {
		return nil, errors.New("svd factorization failed")
	}

	u, v, sigma, vt := &mat.Dense{}, &mat.Dense{}, &mat.Dense{}, &mat.Dense{}
	svd.UTo(u)
	svd.VTo(v)
	vt.CloneFrom(v.T())
	sigma.CloneFrom(mat.NewDiagDense(len(svd.Values(nil)), svd.Values(nil)))

	return &matsSVD{U: u, V: v, VT: vt, S: sigma}, nil
}
