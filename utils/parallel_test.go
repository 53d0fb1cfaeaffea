package utils

import (
	"context"
	"sync/atomic"
	"testing"

	"go.viam.com/test"
)

func TestParallelForEachRow(t *testing.T) {
	for _, height := range []int{0, 1, 7, 64, 1001} {
		seen := make([]int32, height)
		err := ParallelForEachRow(context.Background(), height, func(y int) {
			atomic.AddInt32(&seen[y], 1)
		})
		test.That(t, err, test.ShouldBeNil)
		for y := range seen {
			test.That(t, seen[y], test.ShouldEqual, int32(1))
		}
	}
}

func TestParallelForEachRowPanic(t *testing.T) {
	err := ParallelForEachRow(context.Background(), 10, func(y int) {
		if y == 3 {
			panic("bad row")
		}
	})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "bad row")
}

func TestParallelForEachRowCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var calls int32
	err := ParallelForEachRow(ctx, 100, func(y int) {
		atomic.AddInt32(&calls, 1)
	})
	test.That(t, err, test.ShouldBeError, context.Canceled)
	test.That(t, calls, test.ShouldEqual, int32(0))
}
