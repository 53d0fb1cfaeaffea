package rimage

import (
	"math"
	"testing"

	"go.viam.com/test"
	"gonum.org/v1/gonum/floats"
)

func TestMakeRangeArray(t *testing.T) {
	test.That(t, makeRangeArray(0), test.ShouldResemble, []int{})
	test.That(t, makeRangeArray(1), test.ShouldResemble, []int{0})
	test.That(t, makeRangeArray(3), test.ShouldResemble, []int{-1, 0, 1})
	test.That(t, makeRangeArray(4), test.ShouldResemble, []int{-2, -1, 0, 1})
	test.That(t, makeRangeArray(5), test.ShouldResemble, []int{-2, -1, 0, 1, 2})
}

func TestGaussian1D(t *testing.T) {
	kernel, err := Gaussian1D(1, 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, kernel.Width(), test.ShouldEqual, 7)
	test.That(t, kernel.Offset, test.ShouldEqual, 3)
	test.That(t, kernel.Radius(), test.ShouldEqual, 3)
	test.That(t, floats.Sum(kernel.Weights), test.ShouldAlmostEqual, 1, 1e-12)
	for i := 0; i < 3; i++ {
		test.That(t, kernel.Weights[i], test.ShouldAlmostEqual, kernel.Weights[6-i], 1e-15)
		test.That(t, kernel.Weights[i], test.ShouldBeLessThan, kernel.Weights[i+1])
	}

	kernel, err = Gaussian1D(2, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, kernel.Width(), test.ShouldEqual, 3)

	_, err = Gaussian1D(0, 2)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = Gaussian1D(math.NaN(), 2)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = Gaussian1D(1, -1)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestGaussianFunction1D(t *testing.T) {
	gaus := GaussianFunction1D(1)
	test.That(t, gaus(0), test.ShouldAlmostEqual, 1/math.Sqrt(2*math.Pi), 1e-12)
	test.That(t, gaus(1), test.ShouldAlmostEqual, gaus(-1), 1e-15)
	test.That(t, GaussianFunction1D(0)(5), test.ShouldEqual, 1.)
}

func TestNewKernel1D(t *testing.T) {
	kernel, err := NewKernel1D([]float64{0.25, 0.5, 0.25, 0}, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, kernel.Radius(), test.ShouldEqual, 2)

	_, err = NewKernel1D(nil, 0)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewKernel1D([]float64{1, 2}, 2)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewKernel1D([]float64{1, math.Inf(1)}, 0)
	test.That(t, err, test.ShouldNotBeNil)
}
