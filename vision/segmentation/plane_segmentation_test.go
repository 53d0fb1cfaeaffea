package segmentation

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/robustvision/logging"
)

// makeScene returns floor points on z = 0, wall points on x = 5 above the floor, and scattered
// points, in that order.
func makeScene(rnd *rand.Rand, floor, wall, scattered int) []r3.Vector {
	pts := make([]r3.Vector, 0, floor+wall+scattered)
	for i := 0; i < floor; i++ {
		pts = append(pts, r3.Vector{X: rnd.Float64() * 4, Y: rnd.Float64() * 4, Z: (rnd.Float64() - 0.5) * 0.002})
	}
	for i := 0; i < wall; i++ {
		pts = append(pts, r3.Vector{X: 5 + (rnd.Float64()-0.5)*0.002, Y: rnd.Float64() * 4, Z: 1 + rnd.Float64()*4})
	}
	for i := 0; i < scattered; i++ {
		pts = append(pts, r3.Vector{X: rnd.Float64()*10 - 5, Y: rnd.Float64()*10 - 5, Z: 1 + rnd.Float64()*10})
	}
	return pts
}

var sceneConfig = PlaneSegmentationConfig{Iterations: 300, Threshold: 0.01, MinPoints: 30, RandSeed: 1}

func TestSegmentPlane(t *testing.T) {
	pts := makeScene(rand.New(rand.NewSource(1)), 100, 60, 20)
	plane, remaining, err := SegmentPlane(context.Background(), pts, sceneConfig, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	test.That(t, len(plane.Points()), test.ShouldBeGreaterThanOrEqualTo, 100)
	test.That(t, len(plane.Points())+len(remaining), test.ShouldEqual, len(pts))
	test.That(t, math.Abs(plane.Equation().Normal.Z), test.ShouldAlmostEqual, 1, 1e-3)
	test.That(t, plane.Equation().Offset, test.ShouldAlmostEqual, 0, 1e-2)
	for _, pt := range plane.Points() {
		test.That(t, math.Abs(plane.Distance(pt)), test.ShouldBeLessThan, 0.01)
	}
	// wall points are left over, in their original order
	test.That(t, remaining[0], test.ShouldResemble, pts[100])
}

func TestSegmentPlaneWRTGround(t *testing.T) {
	pts := makeScene(rand.New(rand.NewSource(2)), 40, 100, 10)

	// the wall is the biggest plane
	plane, _, err := SegmentPlane(context.Background(), pts, sceneConfig, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, math.Abs(plane.Equation().Normal.X), test.ShouldAlmostEqual, 1, 1e-3)

	// but only the floor faces up
	plane, _, err = SegmentPlaneWRTGround(context.Background(), pts, sceneConfig, 30, r3.Vector{Z: 1}, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(plane.Points()), test.ShouldBeGreaterThanOrEqualTo, 40)
	test.That(t, math.Abs(plane.Equation().Normal.Z), test.ShouldAlmostEqual, 1, 1e-3)

	_, _, err = SegmentPlaneWRTGround(context.Background(), pts, sceneConfig, 120, r3.Vector{Z: 1}, nil)
	test.That(t, err, test.ShouldNotBeNil)
	_, _, err = SegmentPlaneWRTGround(context.Background(), pts, sceneConfig, 30, r3.Vector{}, nil)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSegmentPlaneTooFewPoints(t *testing.T) {
	pts := []r3.Vector{{X: 1}, {Y: 1}, {Z: 1}}
	plane, remaining, err := SegmentPlane(context.Background(), pts, sceneConfig, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, plane.Points(), test.ShouldBeEmpty)
	test.That(t, remaining, test.ShouldResemble, pts)
}

func TestFindPlanes(t *testing.T) {
	pts := makeScene(rand.New(rand.NewSource(3)), 100, 60, 20)
	planes, remaining, err := FindPlanes(context.Background(), pts, sceneConfig, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, planes, test.ShouldHaveLength, 2)

	total := len(remaining)
	for _, p := range planes {
		total += len(p.Points())
	}
	test.That(t, total, test.ShouldEqual, len(pts))
	test.That(t, math.Abs(planes[0].Equation().Normal.Z), test.ShouldAlmostEqual, 1, 1e-3)
	test.That(t, math.Abs(planes[1].Equation().Normal.X), test.ShouldAlmostEqual, 1, 1e-3)
	test.That(t, len(remaining), test.ShouldBeLessThanOrEqualTo, 20)
}

func TestPlaneGenerator(t *testing.T) {
	models := PlaneGenerator{}.Generate([]r3.Vector{{X: 0}, {X: 1}, {Y: 1}})
	test.That(t, models, test.ShouldHaveLength, 1)
	test.That(t, math.Abs(models[0].Normal.Z), test.ShouldAlmostEqual, 1, 1e-12)
	test.That(t, models[0].Coefficients()[3], test.ShouldAlmostEqual, 0, 1e-12)

	collinear := []r3.Vector{{X: 0}, {X: 1}, {X: 2}}
	test.That(t, PlaneGenerator{}.Generate(collinear), test.ShouldBeEmpty)

	vertical := []r3.Vector{{X: 0}, {X: 1}, {Z: 1}}
	test.That(t, PlaneGenerator{Reference: r3.Vector{Z: 1}, MaxAngle: 10}.Generate(vertical), test.ShouldBeEmpty)
}

func TestPlaneLeastSquares(t *testing.T) {
	// z = 0.5 plane with the initial normal pointing down
	pts := []r3.Vector{{X: 0, Y: 0, Z: 0.5}, {X: 1, Y: 0, Z: 0.5}, {X: 0, Y: 1, Z: 0.5}, {X: 1, Y: 1, Z: 0.5}}
	eq, ok := PlaneLeastSquares{}.FitModel(pts, PlaneEquation{Normal: r3.Vector{Z: -1}})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, eq.Normal.Z, test.ShouldAlmostEqual, -1, 1e-9)
	test.That(t, eq.Offset, test.ShouldAlmostEqual, 0.5, 1e-9)

	_, ok = PlaneLeastSquares{}.FitModel(pts[:2], PlaneEquation{})
	test.That(t, ok, test.ShouldBeFalse)
}

func TestPlaneSegmentationConfig(t *testing.T) {
	test.That(t, sceneConfig.Validate("planes"), test.ShouldBeNil)
	cfg := PlaneSegmentationConfig{Iterations: 0, Threshold: -1, MinPoints: -2}
	err := cfg.Validate("planes")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "iterations")
	test.That(t, err.Error(), test.ShouldContainSubstring, "threshold")
	test.That(t, err.Error(), test.ShouldContainSubstring, "min_points")

	_, _, err = SegmentPlane(context.Background(), makeScene(rand.New(rand.NewSource(4)), 10, 0, 0), cfg, nil)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSegmentPlaneCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := SegmentPlane(ctx, makeScene(rand.New(rand.NewSource(5)), 20, 0, 0), sceneConfig, nil)
	test.That(t, err, test.ShouldBeError, context.Canceled)
}
