// Package segmentation finds planar structure in sets of 3D points.
package segmentation

import (
	"context"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/robustvision/fitting/modelset"
	"go.viam.com/robustvision/fitting/ransac"
	"go.viam.com/robustvision/logging"
)

// PlaneEquation is the plane Normal·p + Offset = 0 with a unit normal.
type PlaneEquation struct {
	Normal r3.Vector
	Offset float64
}

// Distance returns the signed distance from the plane to pt.
func (eq PlaneEquation) Distance(pt r3.Vector) float64 {
	return eq.Normal.Dot(pt) + eq.Offset
}

// Coefficients returns the plane equation [0]x + [1]y + [2]z + [3] = 0.
func (eq PlaneEquation) Coefficients() []float64 {
	return []float64{eq.Normal.X, eq.Normal.Y, eq.Normal.Z, eq.Offset}
}

// Plane defines a planar object in a set of points.
type Plane struct {
	points   []r3.Vector
	equation PlaneEquation
}

// NewEmptyPlane initializes an empty plane object.
func NewEmptyPlane() *Plane {
	return &Plane{}
}

// Points returns the points that lie on the plane.
func (p *Plane) Points() []r3.Vector {
	return p.points
}

// Equation returns the plane equation.
func (p *Plane) Equation() PlaneEquation {
	return p.equation
}

// Distance calculates the distance from the plane to the input point.
func (p *Plane) Distance(pt r3.Vector) float64 {
	return p.equation.Distance(pt)
}

// PlaneGenerator fits the plane through three points. Collinear samples produce no plane. When
// Reference is non zero, planes whose normal is more than MaxAngle degrees away from it, in
// either direction, are rejected as well.
type PlaneGenerator struct {
	Reference r3.Vector
	MaxAngle  float64
}

// MinimumPoints is three.
func (g PlaneGenerator) MinimumPoints() int { return 3 }

// Generate returns the plane through the sample.
func (g PlaneGenerator) Generate(sample []r3.Vector) []PlaneEquation {
	p1, p2, p3 := sample[0], sample[1], sample[2]
	// get 2 vectors that are going to define the plane
	v1 := p2.Sub(p1)
	v2 := p3.Sub(p1)
	cross := v1.Cross(v2)
	if cross.Norm() <= 1e-12*(v1.Norm2()+v2.Norm2()) {
		return nil
	}
	normal := cross.Normalize()
	if g.Reference != (r3.Vector{}) {
		cos := math.Abs(normal.Dot(g.Reference.Normalize()))
		if math.Acos(math.Min(cos, 1))*180/math.Pi > g.MaxAngle {
			return nil
		}
	}
	return []PlaneEquation{{Normal: normal, Offset: -normal.Dot(p1)}}
}

// PlaneDistance is the absolute point to plane distance.
type PlaneDistance struct {
	equation PlaneEquation
}

// SetModel sets the plane distances are computed against.
func (d *PlaneDistance) SetModel(model PlaneEquation) { d.equation = model }

// ComputeDistance returns the unsigned distance of pt to the plane.
func (d *PlaneDistance) ComputeDistance(pt r3.Vector) float64 {
	return math.Abs(d.equation.Distance(pt))
}

// ComputeDistances fills distances with the unsigned distance of every point.
func (d *PlaneDistance) ComputeDistances(pts []r3.Vector, distances []float64) {
	modelset.ComputeDistances(pts, distances, d.ComputeDistance)
}

// IsZeroMinimum is true.
func (d *PlaneDistance) IsZeroMinimum() bool { return true }

// PlaneLeastSquares refits the plane through the centroid of all inliers, with the normal along
// the direction of least variance.
type PlaneLeastSquares struct{}

// FitModel returns the total least squares plane of pts.
func (PlaneLeastSquares) FitModel(pts []r3.Vector, initial PlaneEquation) (PlaneEquation, bool) {
	if len(pts) < 3 {
		return initial, false
	}
	centroid := r3.Vector{}
	for _, pt := range pts {
		centroid = centroid.Add(pt)
	}
	centroid = centroid.Mul(1 / float64(len(pts)))

	centered := mat.NewDense(len(pts), 3, nil)
	for i, pt := range pts {
		c := pt.Sub(centroid)
		centered.SetRow(i, []float64{c.X, c.Y, c.Z})
	}
	var svd mat.SVD
	if ok := svd.Factorize(centered, mat.SVDThinV); !ok {
		return initial, false
	}
	var v mat.Dense
	svd.VTo(&v)
	normal := r3.Vector{X: v.At(0, 2), Y: v.At(1, 2), Z: v.At(2, 2)}.Normalize()
	// keep the orientation of the initial plane
	if normal.Dot(initial.Normal) < 0 {
		normal = normal.Mul(-1)
	}
	return PlaneEquation{Normal: normal, Offset: -normal.Dot(centroid)}, true
}

// PlaneSegmentationConfig controls the search for planes.
type PlaneSegmentationConfig struct {
	// Iterations is the number of samples drawn for every plane. log(1-p)/log(1-(1-e)^3) samples
	// give probability p of one clean sample with outlier ratio e.
	Iterations int `json:"iterations"`
	// Threshold is the maximum distance between a point and the plane it belongs to.
	Threshold float64 `json:"threshold"`
	// MinPoints is the number of points a plane needs to be kept by FindPlanes.
	MinPoints int `json:"min_points"`
	// RandSeed seeds the sampler.
	RandSeed int64 `json:"rand_seed"`
}

// Validate ensures all parts of the config are valid.
func (cfg *PlaneSegmentationConfig) Validate(path string) error {
	var errs error
	if cfg.Iterations <= 0 {
		errs = multierr.Append(errs, errors.New("iterations should be > 0"))
	}
	if math.IsNaN(cfg.Threshold) || cfg.Threshold <= 0 {
		errs = multierr.Append(errs, errors.New("threshold should be > 0"))
	}
	if cfg.MinPoints < 0 {
		errs = multierr.Append(errs, errors.New("min_points cannot be negative"))
	}
	if errs != nil {
		return utils.NewConfigValidationError(path, errs)
	}
	return nil
}

// SegmentPlane segments the biggest plane in pts.
// It returns the plane with its points, as well as the remaining points, in their original order.
// With three points or fewer, or when no plane is found, the plane is empty and every point remains.
func SegmentPlane(
	ctx context.Context,
	pts []r3.Vector,
	cfg PlaneSegmentationConfig,
	logger logging.Logger,
) (*Plane, []r3.Vector, error) {
	return segmentPlane(ctx, pts, cfg, PlaneGenerator{}, logger)
}

// SegmentPlaneWRTGround segments the biggest plane whose normal is within angleThresh degrees of
// groundNormal.
func SegmentPlaneWRTGround(
	ctx context.Context,
	pts []r3.Vector,
	cfg PlaneSegmentationConfig,
	angleThresh float64,
	groundNormal r3.Vector,
	logger logging.Logger,
) (*Plane, []r3.Vector, error) {
	if groundNormal == (r3.Vector{}) {
		return nil, nil, errors.New("ground normal cannot be the zero vector")
	}
	if angleThresh < 0 || angleThresh > 90 {
		return nil, nil, errors.Errorf("angle threshold must be in degrees, between 0 and 90, got %v", angleThresh)
	}
	return segmentPlane(ctx, pts, cfg, PlaneGenerator{Reference: groundNormal, MaxAngle: angleThresh}, logger)
}

func segmentPlane(
	ctx context.Context,
	pts []r3.Vector,
	cfg PlaneSegmentationConfig,
	generator PlaneGenerator,
	logger logging.Logger,
) (*Plane, []r3.Vector, error) {
	if err := cfg.Validate("plane_segmentation"); err != nil {
		return nil, nil, err
	}
	// if there are not even 3 points, return the original points with no planes
	if len(pts) <= 3 {
		return NewEmptyPlane(), pts, nil
	}
	if logger == nil {
		logger = logging.NewBlankLogger("segmentation")
	}

	matcher, err := ransac.New[PlaneEquation, r3.Vector](
		ransac.Config{
			RandSeed:        cfg.RandSeed,
			MaxIterations:   cfg.Iterations,
			InlierThreshold: cfg.Threshold,
		},
		generator,
		&PlaneDistance{},
		logger.Sublogger("ransac"),
	)
	if err != nil {
		return nil, nil, err
	}
	matcher.SetRefiner(PlaneLeastSquares{})

	ok, err := matcher.Process(ctx, pts)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return NewEmptyPlane(), pts, nil
	}

	inPlane := make(map[int]struct{}, len(matcher.MatchSet()))
	for i := range matcher.MatchSet() {
		inPlane[matcher.InputIndex(i)] = struct{}{}
	}
	remaining := lo.Filter(pts, func(_ r3.Vector, i int) bool {
		_, ok := inPlane[i]
		return !ok
	})
	planePoints := append([]r3.Vector(nil), matcher.MatchSet()...)
	logger.Debugw("plane found", "points", len(planePoints), "remaining", len(remaining))
	return &Plane{points: planePoints, equation: matcher.Model()}, remaining, nil
}

// FindPlanes repeatedly segments the biggest plane out of pts and returns the planes with more
// than cfg.MinPoints points, together with the leftover points.
func FindPlanes(
	ctx context.Context,
	pts []r3.Vector,
	cfg PlaneSegmentationConfig,
	logger logging.Logger,
) ([]*Plane, []r3.Vector, error) {
	planes := make([]*Plane, 0)
	remaining := pts
	for {
		plane, nonPlane, err := SegmentPlane(ctx, remaining, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		if len(plane.Points()) <= cfg.MinPoints {
			// the failed plane's points stay with the leftovers
			return planes, remaining, nil
		}
		planes = append(planes, plane)
		remaining = nonPlane
	}
}
