package transform

import (
	"math/rand"

	"github.com/golang/geo/r2"
)

// makePairs maps numInliers random points with mapping plus up to noise of jitter, then appends
// numOutliers pairs with unrelated destinations. Inliers come first.
func makePairs(
	rnd *rand.Rand,
	mapping func(r2.Point) r2.Point,
	numInliers, numOutliers int,
	extent, noise float64,
) []PointPair {
	pairs := make([]PointPair, 0, numInliers+numOutliers)
	jitter := func() float64 { return (rnd.Float64() - 0.5) * 2 * noise }
	for i := 0; i < numInliers; i++ {
		src := r2.Point{X: rnd.Float64() * extent, Y: rnd.Float64() * extent}
		dst := mapping(src)
		pairs = append(pairs, PointPair{Src: src, Dst: r2.Point{X: dst.X + jitter(), Y: dst.Y + jitter()}})
	}
	for i := 0; i < numOutliers; i++ {
		pairs = append(pairs, PointPair{
			Src: r2.Point{X: rnd.Float64() * extent, Y: rnd.Float64() * extent},
			Dst: r2.Point{X: rnd.Float64() * extent, Y: rnd.Float64() * extent},
		})
	}
	return pairs
}

// countBelow returns how many of the matched input indexes are below limit.
func countBelow(indexes []int, limit int) int {
	n := 0
	for _, idx := range indexes {
		if idx < limit {
			n++
		}
	}
	return n
}
