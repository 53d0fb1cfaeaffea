// Package transform provides the geometric models fitted from associated image points: 2D
// affine transforms, homographies and fundamental matrices, each with a minimal sample
// generator and a residual usable by the robust matchers in fitting/.
package transform

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.viam.com/utils"
)

// PointPair associates a point in a source image with its match in a destination image.
type PointPair struct {
	Src r2.Point `json:"src"`
	Dst r2.Point `json:"dst"`
}

// SplitPairs returns the source and destination points of pairs, in order.
func SplitPairs(pairs []PointPair) ([]r2.Point, []r2.Point) {
	src := lo.Map(pairs, func(p PointPair, _ int) r2.Point { return p.Src })
	dst := lo.Map(pairs, func(p PointPair, _ int) r2.Point { return p.Dst })
	return src, dst
}

// ZipPairs pairs src[i] with dst[i].
func ZipPairs(src, dst []r2.Point) ([]PointPair, error) {
	if len(src) != len(dst) {
		return nil, errors.Errorf("cannot pair %d source points with %d destination points", len(src), len(dst))
	}
	return lo.Map(src, func(p r2.Point, i int) PointPair { return PointPair{Src: p, Dst: dst[i]} }), nil
}

// LoadPointPairs reads a JSON array of pairs, each {"src": {"X": .., "Y": ..}, "dst": {...}}.
func LoadPointPairs(file string) ([]PointPair, error) {
	//nolint:gosec
	f, err := os.Open(filepath.Clean(file))
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open point pairs %q", file)
	}
	defer utils.UncheckedErrorFunc(f.Close)

	var pairs []PointPair
	if err := json.NewDecoder(f).Decode(&pairs); err != nil {
		return nil, errors.Wrapf(err, "cannot decode point pairs %q", file)
	}
	return pairs, nil
}

// collinear reports whether a, b and c lie on one line, relative to their spread.
func collinear(a, b, c r2.Point) bool {
	ab, ac := b.Sub(a), c.Sub(a)
	spread := ab.Dot(ab) + ac.Dot(ac)
	if spread == 0 {
		return true
	}
	return math.Abs(ab.Cross(ac)) <= 1e-9*spread
}
