package transform

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/robustvision/fitting/ransac"
	"go.viam.com/robustvision/logging"
)

func trueHomography(t *testing.T) *Homography {
	t.Helper()
	h, err := NewHomography([]float64{
		1.02, 0.05, 10,
		-0.03, 0.98, 5,
		1e-4, 2e-4, 1,
	})
	test.That(t, err, test.ShouldBeNil)
	return h
}

func mustApply(h *Homography) func(r2.Point) r2.Point {
	return func(pt r2.Point) r2.Point {
		out, _ := h.Apply(pt)
		return out
	}
}

func TestNewHomography(t *testing.T) {
	_, err := NewHomography([]float64{})
	test.That(t, err, test.ShouldBeError, errors.New("input to NewHomography must have length of 9. Has length of 0"))

	vals := []float64{2.32700501e-01, -8.33535395e-03, -3.61894025e+01, -1.90671303e-03, 2.35303232e-01, 8.38582614e+00, -6.39101664e-05, -4.64582754e-05, 1.00000000e+00}
	h, err := NewHomography(vals)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, h.At(0, 2), test.ShouldEqual, vals[2])
	vals[2] = 0
	test.That(t, h.At(0, 2), test.ShouldNotEqual, 0.)

	_, err = NewHomography([]float64{1, 0, 0, 0, 1, 0, 0, 0, math.NaN()})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestHomographyApplyInverse(t *testing.T) {
	h := trueHomography(t)
	inv, err := h.Inverse()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, inv.At(2, 2), test.ShouldAlmostEqual, 1, 1e-12)

	pt := r2.Point{X: 120, Y: 45}
	mapped, ok := h.Apply(pt)
	test.That(t, ok, test.ShouldBeTrue)
	back, ok := inv.Apply(mapped)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, back.X, test.ShouldAlmostEqual, pt.X, 1e-9)
	test.That(t, back.Y, test.ShouldAlmostEqual, pt.Y, 1e-9)

	// the line 1e-4*x + 2e-4*y + 1 = 0 maps to infinity
	_, ok = h.Apply(r2.Point{X: -10000, Y: 0})
	test.That(t, ok, test.ShouldBeFalse)
	dist := &HomographyTransferErrorSq{}
	dist.SetModel(h)
	test.That(t, math.IsInf(dist.ComputeDistance(PointPair{Src: r2.Point{X: -10000}}), 1), test.ShouldBeTrue)

	singular, err := NewHomography([]float64{1, 2, 3, 2, 4, 6, 0, 0, 1})
	test.That(t, err, test.ShouldBeNil)
	_, err = singular.Inverse()
	test.That(t, err, test.ShouldNotBeNil)
}

func TestHomographyGenerator(t *testing.T) {
	h := trueHomography(t)
	sample := makePairs(rand.New(rand.NewSource(6)), mustApply(h), 4, 0, 300, 0)
	models := HomographyGenerator{}.Generate(sample)
	test.That(t, models, test.ShouldHaveLength, 1)

	dist := &HomographyTransferErrorSq{}
	dist.SetModel(models[0])
	for _, p := range makePairs(rand.New(rand.NewSource(7)), mustApply(h), 20, 0, 300, 0) {
		test.That(t, dist.ComputeDistance(p), test.ShouldBeLessThan, 1e-8)
	}

	square := []r2.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}, {X: 0, Y: 1}}
	degenerate := make([]PointPair, 4)
	for i, p := range square {
		degenerate[i] = PointPair{Src: p, Dst: p.Mul(2)}
	}
	test.That(t, HomographyGenerator{}.Generate(degenerate), test.ShouldBeEmpty)
}

func TestHomographyRansac(t *testing.T) {
	h := trueHomography(t)
	pairs := makePairs(rand.New(rand.NewSource(8)), mustApply(h), 80, 20, 300, 0.05)

	r, err := ransac.New[*Homography, PointPair](
		ransac.Config{RandSeed: 3, MaxIterations: 300, InlierThreshold: 1},
		HomographyGenerator{}, &HomographyTransferErrorSq{}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	r.SetRefiner(HomographyLeastSquares{})

	ok, err := r.Process(context.Background(), pairs)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, countBelow(matchedIndexes(r), 80), test.ShouldBeGreaterThanOrEqualTo, 60)

	for _, pt := range []r2.Point{{X: 10, Y: 10}, {X: 150, Y: 150}, {X: 290, Y: 20}} {
		expected, _ := h.Apply(pt)
		actual, ok := r.Model().Apply(pt)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, actual.Sub(expected).Norm(), test.ShouldBeLessThan, 0.5)
	}
}

func TestEstimateHomographyErrors(t *testing.T) {
	_, err := EstimateHomography(make([]PointPair, 3))
	test.That(t, err, test.ShouldNotBeNil)
	_, err = EstimateHomography(make([]PointPair, 5))
	test.That(t, err, test.ShouldNotBeNil)

	model, ok := HomographyLeastSquares{}.FitModel(make([]PointPair, 2), nil)
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, model, test.ShouldBeNil)
}
