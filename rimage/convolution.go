package rimage

import (
	"context"
	"math"

	"github.com/pkg/errors"

	"go.viam.com/robustvision/utils"
)

// DownSampleNoBorder blurs src with kernel in both directions and samples the result every step
// pixels. Output pixel (x, y) is taken from source pixel (floor(x*step), floor(y*step)) and dst
// is reshaped to ceil(width/step) by ceil(height/step). Nothing is extrapolated past the image
// edge: where the kernel does not fit entirely inside src the unblurred source pixel is written.
//
// The horizontal pass is kept in storage, which is reshaped and reused when non-nil. Rows are
// processed in parallel. dst must not share pixels with src.
func DownSampleNoBorder[T Number](
	ctx context.Context,
	kernel *Kernel1D,
	src, dst *Gray[T],
	step float64,
	storage *Gray[float64],
) error {
	if kernel == nil || kernel.Width() == 0 {
		return errors.New("downsampling needs a non empty kernel")
	}
	if math.IsNaN(step) || math.IsInf(step, 0) || step <= 0 {
		return errors.Errorf("downsampling step should be a positive finite number, got %v", step)
	}
	if len(dst.Pix) > 0 && len(src.Pix) > 0 && &dst.Pix[0] == &src.Pix[0] {
		return errors.New("downsampling destination shares pixels with the source")
	}

	outW := utils.CeilDiv(src.Width, step)
	outH := utils.CeilDiv(src.Height, step)
	dst.Reshape(outW, outH)
	if outW == 0 || outH == 0 {
		return nil
	}
	if storage == nil {
		storage = &Gray[float64]{}
	}
	storage.Reshape(outW, src.Height)

	srcX := sampleCoordinates(outW, step, src.Width)
	srcY := sampleCoordinates(outH, step, src.Height)
	width, offset := kernel.Width(), kernel.Offset
	fits := func(p, size int) bool {
		return p-offset >= 0 && p-offset+width <= size
	}

	// horizontal
	if err := utils.ParallelForEachRow(ctx, src.Height, func(y int) {
		in := src.Row(y)
		out := storage.Row(y)
		for x, sx := range srcX {
			if !fits(sx, src.Width) {
				out[x] = float64(in[sx])
				continue
			}
			base := sx - offset
			var sum float64
			for i, w := range kernel.Weights {
				sum += w * float64(in[base+i])
			}
			out[x] = sum
		}
	}); err != nil {
		return err
	}

	// vertical
	convert := FromFloat[T]()
	return utils.ParallelForEachRow(ctx, outH, func(y int) {
		sy := srcY[y]
		out := dst.Row(y)
		rowFits := fits(sy, src.Height)
		base := sy - offset
		for x, sx := range srcX {
			if !rowFits || !fits(sx, src.Width) {
				out[x] = src.At(sx, sy)
				continue
			}
			var sum float64
			for i, w := range kernel.Weights {
				sum += w * storage.At(x, base+i)
			}
			out[x] = convert(sum)
		}
	})
}

// sampleCoordinates returns floor(i*step) for every output index, kept inside [0, size).
func sampleCoordinates(n int, step float64, size int) []int {
	coords := make([]int, n)
	for i := range coords {
		coords[i] = utils.MinInt(int(math.Floor(float64(i)*step)), size-1)
	}
	return coords
}
