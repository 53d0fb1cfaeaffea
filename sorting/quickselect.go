// Package sorting implements partial selection over slices. It is used to find medians and
// the k smallest residuals without paying for a full sort.
package sorting

import (
	"cmp"
)

// Select partially reorders data[:n] so that data[k] holds the value found at rank k of the
// sorted sequence, and returns that value. Every element before k is <= data[k] and every
// element after it is >=. The average cost is O(n), also when many values are equal. Inputs
// must not contain NaN.
//
// k must be in [0, n) and n <= len(data).
func Select[T cmp.Ordered](data []T, k, n int) T {
	lo, hi := 0, n-1
	for hi > lo {
		lt, gt := partition(data, lo, hi)
		switch {
		case k < lt:
			hi = lt - 1
		case k > gt:
			lo = gt + 1
		default:
			return data[k]
		}
	}
	return data[k]
}

// Median returns the lower median of data[:n], the value at rank n/2, reordering data in the
// process.
func Median[T cmp.Ordered](data []T, n int) T {
	return Select(data, n/2, n)
}

// medianOfThree returns the middle value of a, b and c.
func medianOfThree[T cmp.Ordered](a, b, c T) T {
	if b < a {
		a, b = b, a
	}
	if c < b {
		b = c
		if b < a {
			b = a
		}
	}
	return b
}

// partition splits data[lo:hi+1] in three bands around a median-of-three pivot and returns
// their bounds: data[lo:lt] < pivot, data[lt:gt+1] == pivot and data[gt+1:hi+1] > pivot.
func partition[T cmp.Ordered](data []T, lo, hi int) (lt, gt int) {
	pivot := medianOfThree(data[lo], data[lo+(hi-lo)/2], data[hi])
	lt, gt = lo, hi
	for i := lo; i <= gt; {
		switch v := data[i]; {
		case v < pivot:
			data[i], data[lt] = data[lt], data[i]
			lt++
			i++
		case pivot < v:
			data[i], data[gt] = data[gt], data[i]
			gt--
		default:
			i++
		}
	}
	return lt, gt
}

// SelectIndex finds the k smallest values of data[:n] without modifying data. On return the
// first k entries of the returned slice are their indexes (in no particular order) and entries
// k..n-1 hold the remaining indexes. indexes is reused when it has room for n entries.
func SelectIndex[T cmp.Ordered](data []T, k, n int, indexes []int) []int {
	if cap(indexes) < n {
		indexes = make([]int, n)
	}
	indexes = indexes[:n]
	for i := range indexes {
		indexes[i] = i
	}
	if k <= 0 || k >= n {
		return indexes
	}

	target := k - 1
	lo, hi := 0, n-1
	for hi > lo {
		lt, gt := partitionIndex(data, indexes, lo, hi)
		switch {
		case target < lt:
			hi = lt - 1
		case target > gt:
			lo = gt + 1
		default:
			return indexes
		}
	}
	return indexes
}

// partitionIndex is partition applied to indexes, comparing the values they point at.
func partitionIndex[T cmp.Ordered](data []T, indexes []int, lo, hi int) (lt, gt int) {
	pivot := medianOfThree(data[indexes[lo]], data[indexes[lo+(hi-lo)/2]], data[indexes[hi]])
	lt, gt = lo, hi
	for i := lo; i <= gt; {
		switch v := data[indexes[i]]; {
		case v < pivot:
			indexes[i], indexes[lt] = indexes[lt], indexes[i]
			lt++
			i++
		case pivot < v:
			indexes[i], indexes[gt] = indexes[gt], indexes[i]
			gt--
		default:
			i++
		}
	}
	return lt, gt
}
