// Package rimage holds the single channel image type used by the pyramid builder together with
// the separable kernels and convolutions that run over it.
package rimage

import (
	"image"
	"image/color"
	"math"
	"reflect"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"

	"go.viam.com/robustvision/utils"
)

// Number is the set of pixel element types an image can hold.
type Number interface {
	constraints.Integer | constraints.Float
}

// Gray is a single channel image stored row major. Stride is the distance in elements between
// the starts of two consecutive rows and may exceed Width.
type Gray[T Number] struct {
	Pix    []T
	Width  int
	Height int
	Stride int
}

// NewGray returns a zeroed image of the given size.
func NewGray[T Number](width, height int) *Gray[T] {
	return &Gray[T]{
		Pix:    make([]T, width*height),
		Width:  width,
		Height: height,
		Stride: width,
	}
}

// Bounds returns the image rectangle, anchored at the origin.
func (g *Gray[T]) Bounds() image.Rectangle {
	return image.Rect(0, 0, g.Width, g.Height)
}

// At returns the pixel at (x, y). There is no bounds checking.
func (g *Gray[T]) At(x, y int) T {
	return g.Pix[y*g.Stride+x]
}

// Set sets the pixel at (x, y).
func (g *Gray[T]) Set(x, y int, v T) {
	g.Pix[y*g.Stride+x] = v
}

// Row returns the pixels of row y.
func (g *Gray[T]) Row(y int) []T {
	start := y * g.Stride
	return g.Pix[start : start+g.Width]
}

// Reshape changes the size of the image, reusing the backing array when it is large enough.
// Pixel values are undefined afterwards.
func (g *Gray[T]) Reshape(width, height int) {
	n := width * height
	if cap(g.Pix) < n {
		g.Pix = make([]T, n)
	}
	g.Pix = g.Pix[:n]
	g.Width = width
	g.Height = height
	g.Stride = width
}

// SetTo makes g a copy of src, reshaping g if needed.
func (g *Gray[T]) SetTo(src *Gray[T]) {
	g.Reshape(src.Width, src.Height)
	for y := 0; y < src.Height; y++ {
		copy(g.Row(y), src.Row(y))
	}
}

// Clone returns a deep copy of the image with a compact stride.
func (g *Gray[T]) Clone() *Gray[T] {
	out := &Gray[T]{}
	out.SetTo(g)
	return out
}

// SubImage returns a view onto the rectangle r of g. The view shares pixels with g.
func (g *Gray[T]) SubImage(r image.Rectangle) (*Gray[T], error) {
	if !r.In(g.Bounds()) {
		return nil, errors.Errorf("rectangle %v is not inside image bounds %v", r, g.Bounds())
	}
	if r.Empty() {
		return &Gray[T]{}, nil
	}
	start := r.Min.Y*g.Stride + r.Min.X
	end := (r.Max.Y-1)*g.Stride + r.Max.X
	return &Gray[T]{
		Pix:    g.Pix[start:end],
		Width:  r.Dx(),
		Height: r.Dy(),
		Stride: g.Stride,
	}, nil
}

// GrayFromImage converts any image to an 8 bit gray image using imaging's luminance weights.
func GrayFromImage(img image.Image) *Gray[uint8] {
	gray := imaging.Grayscale(img)
	bounds := gray.Bounds()
	out := NewGray[uint8](bounds.Dx(), bounds.Dy())
	for y := 0; y < out.Height; y++ {
		row := out.Row(y)
		src := gray.Pix[y*gray.Stride:]
		for x := range row {
			// every channel of a grayscale NRGBA holds the luminance
			row[x] = src[4*x]
		}
	}
	return out
}

// ToStdGray converts the image to an *image.Gray, rounding and clamping values to [0, 255].
func ToStdGray[T Number](g *Gray[T]) *image.Gray {
	out := image.NewGray(g.Bounds())
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			v := utils.ClampF64(math.Round(float64(g.At(x, y))), 0, 255)
			out.SetGray(x, y, color.Gray{Y: uint8(v)})
		}
	}
	return out
}

// ConvertGray returns a copy of src with every pixel converted to U. Values are rounded and
// clamped to the range of U when it is an integer type.
func ConvertGray[U, T Number](src *Gray[T]) *Gray[U] {
	out := NewGray[U](src.Width, src.Height)
	convert := FromFloat[U]()
	for y := 0; y < src.Height; y++ {
		row := out.Row(y)
		for x, v := range src.Row(y) {
			row[x] = convert(float64(v))
		}
	}
	return out
}

// FromFloat returns the conversion from float64 to T. Float types convert directly. Integer
// types round to the nearest value and saturate at the bounds of T, with NaN mapped to zero.
func FromFloat[T Number]() func(float64) T {
	var lowest, highest T
	typ := reflect.TypeOf((*T)(nil)).Elem()
	switch typ.Kind() {
	case reflect.Float32, reflect.Float64:
		return func(v float64) T { return T(v) }
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		bits := typ.Bits()
		reflect.ValueOf(&lowest).Elem().SetInt(math.MinInt64 >> (64 - bits))
		reflect.ValueOf(&highest).Elem().SetInt(math.MaxInt64 >> (64 - bits))
	default:
		reflect.ValueOf(&highest).Elem().SetUint(math.MaxUint64 >> (64 - typ.Bits()))
	}

	// float64(highest) can round up past the bound for 64 bit types, so compare with >=.
	low, high := float64(lowest), float64(highest)
	return func(v float64) T {
		switch {
		case math.IsNaN(v):
			return 0
		case v <= low:
			return lowest
		case v >= high:
			return highest
		default:
			return T(math.Round(v))
		}
	}
}
