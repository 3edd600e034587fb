package common

import (
	"unsafe"

	"github.com/chewxy/math32"
)

// Vec2 is a two-component float32 vector, used for texture coordinates and texel sizes.
type Vec2 [2]float32

// X returns the first component.
func (v Vec2) X() float32 { return v[0] }

// Y returns the second component.
func (v Vec2) Y() float32 { return v[1] }

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v[0] + o[0], v[1] + o[1]} }

// Sub returns v - o.
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v[0] - o[0], v[1] - o[1]} }

// Mul returns the component-wise product of v and o.
func (v Vec2) Mul(o Vec2) Vec2 { return Vec2{v[0] * o[0], v[1] * o[1]} }

// Scale returns v multiplied by s.
func (v Vec2) Scale(s float32) Vec2 { return Vec2{v[0] * s, v[1] * s} }

// Length returns the euclidean length of v.
func (v Vec2) Length() float32 { return math32.Sqrt(v[0]*v[0] + v[1]*v[1]) }

// Clamp restricts x to the closed range [lo, hi].
//
// Parameters:
//   - x: the value to clamp
//   - lo: the lower bound
//   - hi: the upper bound
//
// Returns:
//   - float32: the clamped value
func Clamp(x, lo, hi float32) float32 {
	return math32.Max(lo, math32.Min(hi, x))
}

// Saturate clamps x to [0, 1].
func Saturate(x float32) float32 {
	return Clamp(x, 0, 1)
}

// Mix linearly interpolates between a and b by t, matching the WGSL mix builtin.
//
// Parameters:
//   - a: the value at t = 0
//   - b: the value at t = 1
//   - t: the interpolation factor
//
// Returns:
//   - float32: a + (b - a) * t
func Mix(a, b, t float32) float32 {
	return a + (b-a)*t
}

// Smoothstep performs Hermite interpolation between 0 and 1 when edge0 < x < edge1, matching the WGSL builtin.
//
// Parameters:
//   - edge0: the lower edge
//   - edge1: the upper edge
//   - x: the source value
//
// Returns:
//   - float32: the interpolated value in [0, 1]
func Smoothstep(edge0, edge1, x float32) float32 {
	if edge0 == edge1 {
		if x < edge0 {
			return 0
		}
		return 1
	}
	t := Saturate((x - edge0) / (edge1 - edge0))
	return t * t * (3 - 2*t)
}

// Fract returns the fractional part of x, matching the WGSL fract builtin.
func Fract(x float32) float32 {
	return x - math32.Floor(x)
}

// RoundInt rounds x half away from zero and converts it to an int.
//
// Parameters:
//   - x: the value to round
//
// Returns:
//   - int: the rounded value
func RoundInt(x float32) int {
	return int(math32.Round(x))
}

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// Coalesce returns the first value that is not the zero value of T.
//
// Parameters:
//   - values: the candidates in priority order
//
// Returns:
//   - T: the first non-zero candidate, or the zero value when every candidate is zero
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// LinearizeDepth converts a window-space depth value to a normalized linear distance between the
// near and far planes. Orthographic depth is already linear and is only clamped.
//
// Parameters:
//   - d: the depth buffer value in [0, 1]
//   - near: the near plane distance
//   - far: the far plane distance
//   - perspective: whether d came from a perspective projection
//
// Returns:
//   - float32: the linear depth in [0, 1]
func LinearizeDepth(d, near, far float32, perspective bool) float32 {
	if !perspective {
		return Saturate(d)
	}
	viewZ := (near * far) / ((far-near)*d - far)
	return Saturate((viewZ + near) / (near - far))
}
