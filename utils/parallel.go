package utils

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ParallelFactor controls the max level of parallelization. This might be useful
// to set in tests where too much parallelism actually slows tests down in
// aggregate.
var ParallelFactor = runtime.GOMAXPROCS(0)

func init() {
	if ParallelFactor <= 0 {
		ParallelFactor = 1
	}
}

// ParallelForEachRow calls f for every row in [0, height). Rows are split into contiguous
// bands, one goroutine per band, so f must only write state owned by its row. A panic in f
// is returned as an error. Cancellation is checked before each band starts.
func ParallelForEachRow(ctx context.Context, height int, f func(y int)) error {
	if height <= 0 {
		return nil
	}
	numBands := MinInt(ParallelFactor, height)
	bandSize := height / numBands
	extra := height % numBands

	group, ctx := errgroup.WithContext(ctx)
	from := 0
	for band := 0; band < numBands; band++ {
		to := from + bandSize
		if band < extra {
			to++
		}
		start, end := from, to
		group.Go(func() (err error) {
			defer func() {
				if thePanic := recover(); thePanic != nil {
					err = fmt.Errorf("got panic processing rows [%d, %d): %v", start, end, thePanic)
				}
			}()
			if err := ctx.Err(); err != nil {
				return err
			}
			for y := start; y < end; y++ {
				f(y)
			}
			return nil
		})
		from = to
	}
	return group.Wait()
}
