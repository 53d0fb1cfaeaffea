package rimage

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// Kernel1D is a one dimensional convolution kernel. Weight i is applied to the source element
// at position p - Offset + i when computing output position p.
type Kernel1D struct {
	Weights []float64
	Offset  int
}

// NewKernel1D validates and returns a kernel. The offset must point inside the weights.
func NewKernel1D(weights []float64, offset int) (*Kernel1D, error) {
	if len(weights) == 0 {
		return nil, errors.New("kernel needs at least one weight")
	}
	if offset < 0 || offset >= len(weights) {
		return nil, errors.Errorf("kernel offset %d outside of [0, %d)", offset, len(weights))
	}
	for _, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, errors.New("kernel weights must be finite")
		}
	}
	return &Kernel1D{Weights: weights, Offset: offset}, nil
}

// Width is the number of weights.
func (k *Kernel1D) Width() int {
	return len(k.Weights)
}

// Radius is the larger of the two extents around the offset.
func (k *Kernel1D) Radius() int {
	left := k.Offset
	right := len(k.Weights) - 1 - k.Offset
	if left > right {
		return left
	}
	return right
}

// Helper function for building kernels. When used with i, dx := range makeRangeArray(n)
// i is the position within the kernel and dx gives the offset from the center.
// if length is even, then the origin is to the right of middle i.e. 4 -> {-2, -1, 0, 1}
func makeRangeArray(length int) []int {
	if length <= 0 {
		return make([]int, 0)
	}
	rangeArray := make([]int, length)
	span := length / 2
	for i := range rangeArray {
		rangeArray[i] = i - span
	}
	return rangeArray
}

// GaussianFunction1D takes in a sigma and returns a gaussian function useful for weighing averages or blurring.
func GaussianFunction1D(sigma float64) func(p float64) float64 {
	if sigma <= 0. {
		return func(p float64) float64 {
			return 1.
		}
	}
	return func(p float64) float64 {
		return math.Exp(-0.5*p*p/(sigma*sigma)) / (sigma * math.Sqrt(2.*math.Pi))
	}
}

// Gaussian1D returns a normalized, symmetric gaussian kernel with 2*radius+1 weights. A radius
// of zero picks one that covers three sigma.
func Gaussian1D(sigma float64, radius int) (*Kernel1D, error) {
	if math.IsNaN(sigma) || sigma <= 0 {
		return nil, errors.Errorf("gaussian sigma should be > 0, got %v", sigma)
	}
	if radius < 0 {
		return nil, errors.Errorf("gaussian radius cannot be negative, got %d", radius)
	}
	if radius == 0 {
		radius = int(math.Ceil(3 * sigma))
	}
	gaus := GaussianFunction1D(sigma)
	weights := make([]float64, 2*radius+1)
	for i, dx := range makeRangeArray(len(weights)) {
		weights[i] = gaus(float64(dx))
	}
	floats.Scale(1/floats.Sum(weights), weights)
	return NewKernel1D(weights, radius)
}
