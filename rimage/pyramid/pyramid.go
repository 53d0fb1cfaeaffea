// Package pyramid builds image pyramids: an ordered set of progressively blurred and subsampled
// copies of one input image, used for scale invariant feature detection.
package pyramid

import (
	"go.viam.com/robustvision/rimage"
	"go.viam.com/robustvision/utils"
)

// Pyramid holds the levels of an image pyramid and each level's scale relative to the input.
// Level 0 is the largest.
type Pyramid[T rimage.Number] struct {
	levels []*rimage.Gray[T]
	scales []float64
}

// NumLevels returns the number of levels.
func (p *Pyramid[T]) NumLevels() int {
	return len(p.levels)
}

// Level returns the image at level i.
func (p *Pyramid[T]) Level(i int) *rimage.Gray[T] {
	return p.levels[i]
}

// Scale returns how many input pixels span one pixel of level i.
func (p *Pyramid[T]) Scale(i int) float64 {
	return p.scales[i]
}

// LevelSizes returns the width and height of every level of a pyramid built over a
// width by height image. Each level's size is the previous one divided by the incremental
// scale and rounded up.
func LevelSizes(scales []float64, width, height int) [][2]int {
	sizes := make([][2]int, len(scales))
	prevW, prevH, prevScale := width, height, 1.0
	for i, s := range scales {
		inc := s / prevScale
		prevW = utils.CeilDiv(prevW, inc)
		prevH = utils.CeilDiv(prevH, inc)
		prevScale = s
		sizes[i] = [2]int{prevW, prevH}
	}
	return sizes
}

// initialize sizes the levels below level 0 for an input of the given size, reusing existing
// buffers. Level 0 may be the caller's image and is left to the builder.
func (p *Pyramid[T]) initialize(width, height int) {
	if len(p.levels) != len(p.scales) {
		p.levels = make([]*rimage.Gray[T], len(p.scales))
	}
	for i, size := range LevelSizes(p.scales, width, height) {
		if i == 0 {
			continue
		}
		if p.levels[i] == nil {
			p.levels[i] = &rimage.Gray[T]{}
		}
		p.levels[i].Reshape(size[0], size[1])
	}
}
