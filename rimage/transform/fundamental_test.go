package transform

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/robustvision/fitting/ransac"
	"go.viam.com/robustvision/logging"
)

// stereoScene holds two pinhole views of the same points. The second camera is rotated about
// the y axis and translated mostly along x.
type stereoScene struct {
	K     *mat.Dense
	R     *mat.Dense
	T     r3.Vector
	Pairs []PointPair
}

func newStereoScene(rnd *rand.Rand, numInliers, numOutliers int) *stereoScene {
	angle := 0.1
	scene := &stereoScene{
		K: mat.NewDense(3, 3, []float64{
			500, 0, 320,
			0, 500, 240,
			0, 0, 1,
		}),
		R: mat.NewDense(3, 3, []float64{
			math.Cos(angle), 0, math.Sin(angle),
			0, 1, 0,
			-math.Sin(angle), 0, math.Cos(angle),
		}),
		T: r3.Vector{X: 1, Y: 0.1, Z: 0.1},
	}
	project := func(p r3.Vector) r2.Point {
		return r2.Point{X: 500*p.X/p.Z + 320, Y: 500*p.Y/p.Z + 240}
	}
	for i := 0; i < numInliers; i++ {
		world := r3.Vector{X: rnd.Float64()*4 - 2, Y: rnd.Float64()*4 - 2, Z: 4 + rnd.Float64()*6}
		var moved mat.VecDense
		moved.MulVec(scene.R, mat.NewVecDense(3, []float64{world.X, world.Y, world.Z}))
		second := r3.Vector{X: moved.AtVec(0), Y: moved.AtVec(1), Z: moved.AtVec(2)}.Add(scene.T)
		scene.Pairs = append(scene.Pairs, PointPair{Src: project(world), Dst: project(second)})
	}
	for i := 0; i < numOutliers; i++ {
		scene.Pairs = append(scene.Pairs, PointPair{
			Src: r2.Point{X: rnd.Float64() * 640, Y: rnd.Float64() * 480},
			Dst: r2.Point{X: rnd.Float64() * 640, Y: rnd.Float64() * 480},
		})
	}
	return scene
}

func TestFundamentalGenerator(t *testing.T) {
	scene := newStereoScene(rand.New(rand.NewSource(9)), 40, 0)
	models := FundamentalGenerator{}.Generate(scene.Pairs[:8])
	test.That(t, models, test.ShouldHaveLength, 1)
	test.That(t, models[0].At(2, 2), test.ShouldAlmostEqual, 1, 1e-12)

	dist := &SampsonDistance{}
	dist.SetModel(models[0])
	distances := make([]float64, len(scene.Pairs))
	dist.ComputeDistances(scene.Pairs, distances)
	for _, d := range distances {
		test.That(t, d, test.ShouldBeLessThan, 1e-6)
	}

	_, err := ComputeFundamentalMatrixAllPoints(make([]r2.Point, 7), make([]r2.Point, 7), true)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = ComputeFundamentalMatrixAllPoints(make([]r2.Point, 8), make([]r2.Point, 9), true)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, FundamentalGenerator{}.Generate(make([]PointPair, 8)), test.ShouldBeEmpty)
}

func TestFundamentalRansac(t *testing.T) {
	scene := newStereoScene(rand.New(rand.NewSource(10)), 80, 20)
	r, err := ransac.New[*mat.Dense, PointPair](
		ransac.Config{RandSeed: 5, MaxIterations: 500, InlierThreshold: 0.5},
		FundamentalGenerator{}, &SampsonDistance{}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	r.SetRefiner(FundamentalLeastSquares{})

	ok, err := r.Process(context.Background(), scene.Pairs)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, countBelow(matchedIndexes(r), 80), test.ShouldBeGreaterThanOrEqualTo, 60)

	dist := &SampsonDistance{}
	dist.SetModel(r.Model())
	for _, p := range scene.Pairs[:80] {
		test.That(t, dist.ComputeDistance(p), test.ShouldBeLessThan, 0.5)
	}
}

func TestEssentialMatrixDecomposition(t *testing.T) {
	scene := newStereoScene(rand.New(rand.NewSource(11)), 30, 0)
	src, dst := SplitPairs(scene.Pairs)
	f, err := ComputeFundamentalMatrixAllPoints(src, dst, true)
	test.That(t, err, test.ShouldBeNil)

	essMat, err := GetEssentialMatrixFromFundamental(scene.K, scene.K, f)
	test.That(t, err, test.ShouldBeNil)
	var svd mat.SVD
	test.That(t, svd.Factorize(essMat, mat.SVDNone), test.ShouldBeTrue)
	values := svd.Values(nil)
	test.That(t, values[0], test.ShouldAlmostEqual, values[1], 1e-9)
	test.That(t, values[2], test.ShouldAlmostEqual, 0, 1e-9)

	r1, r2, tr, err := DecomposeEssentialMatrix(essMat)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mat.EqualApprox(r1, scene.R, 1e-6) || mat.EqualApprox(r2, scene.R, 1e-6), test.ShouldBeTrue)
	test.That(t, mat.Det(r1), test.ShouldAlmostEqual, 1, 1e-9)
	test.That(t, mat.Det(r2), test.ShouldAlmostEqual, 1, 1e-9)

	direction := scene.T.Normalize()
	dot := direction.Dot(r3.Vector{X: tr.At(0, 0), Y: tr.At(1, 0), Z: tr.At(2, 0)})
	test.That(t, math.Abs(dot), test.ShouldAlmostEqual, 1, 1e-6)
}

func TestConvert2DPointsToHomogeneousPoints(t *testing.T) {
	pts := Convert2DPointsToHomogeneousPoints([]r2.Point{{X: 1, Y: 2}, {X: -3, Y: 0.5}})
	test.That(t, pts, test.ShouldResemble, []r3.Vector{{X: 1, Y: 2, Z: 1}, {X: -3, Y: 0.5, Z: 1}})
}
