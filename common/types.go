// package common contains common types that are used throughout the pipeline. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// Size is a width and height in pixels.
type Size struct {
	Width  int
	Height int
}

// Empty reports whether either dimension is zero or negative.
//
// Returns:
//   - bool: true if the size covers no pixels
func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Aspect returns width divided by height, or 1 for an empty size.
//
// Returns:
//   - float32: the aspect ratio
func (s Size) Aspect() float32 {
	if s.Height <= 0 {
		return 1
	}
	return float32(s.Width) / float32(s.Height)
}

// PixelType identifies the per-channel storage of a color buffer.
type PixelType int

const (
	// PixelTypeUnsignedByte stores 8 bits per channel. This is the default frame buffer type.
	PixelTypeUnsignedByte PixelType = iota

	// PixelTypeHalfFloat stores 16-bit floats per channel.
	PixelTypeHalfFloat

	// PixelTypeFloat stores 32-bit floats per channel. Not filterable on every adapter.
	PixelTypeFloat
)

// String returns the name of the pixel type.
func (p PixelType) String() string {
	switch p {
	case PixelTypeUnsignedByte:
		return "uint8"
	case PixelTypeHalfFloat:
		return "float16"
	case PixelTypeFloat:
		return "float32"
	default:
		return "unknown"
	}
}

// ColorSpace identifies how color values are encoded.
type ColorSpace int

const (
	// ColorSpaceNone means the color space is unspecified and no conversion is applied.
	ColorSpaceNone ColorSpace = iota

	// ColorSpaceLinear is linear-light sRGB primaries.
	ColorSpaceLinear

	// ColorSpaceSRGB is gamma-encoded sRGB.
	ColorSpaceSRGB
)

// String returns the name of the color space.
func (c ColorSpace) String() string {
	switch c {
	case ColorSpaceLinear:
		return "linear"
	case ColorSpaceSRGB:
		return "srgb"
	default:
		return "none"
	}
}

// TextureKind distinguishes color textures from depth attachments.
type TextureKind int

const (
	// TextureKindColor is an RGBA color texture.
	TextureKindColor TextureKind = iota

	// TextureKindDepth is a depth-only texture.
	TextureKindDepth

	// TextureKindDepthStencil is a combined depth and stencil texture.
	TextureKindDepthStencil
)

// Texture is a read-only view of a texture owned by a renderer backend.
// Materials reference textures through this interface without knowing the backend.
type Texture interface {
	// Name returns the debug name of the texture.
	//
	// Returns:
	//   - string: the texture name
	Name() string

	// Width returns the texture width in pixels.
	//
	// Returns:
	//   - int: the width
	Width() int

	// Height returns the texture height in pixels.
	//
	// Returns:
	//   - int: the height
	Height() int

	// Kind returns whether this is a color or depth texture.
	//
	// Returns:
	//   - TextureKind: the texture kind
	Kind() TextureKind

	// PixelType returns the channel storage type of a color texture.
	//
	// Returns:
	//   - PixelType: the pixel type
	PixelType() PixelType

	// ColorSpace returns the encoding of a color texture.
	//
	// Returns:
	//   - ColorSpace: the color space
	ColorSpace() ColorSpace
}

// SamplerDescriptor holds the configuration for a sampler binding pending GPU creation.
// The renderer keeps one sampler per distinct descriptor.
type SamplerDescriptor struct {
	// AddressModeU, AddressModeV, AddressModeW specify the addressing mode for texture coordinates outside the [0, 1] range in each dimension (U, V, W).
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	// MagFilter and MinFilter specify the filtering mode for magnification and minification.
	MagFilter, MinFilter wgpu.FilterMode
	// MipmapFilter specifies the filtering mode for mipmap level selection.
	MipmapFilter wgpu.MipmapFilterMode
	// LodMinClamp and LodMaxClamp specify the minimum and maximum level of detail (LOD) for mipmapping.
	LodMinClamp, LodMaxClamp float32
	// MaxAnisotropy specifies the maximum anisotropy level. Values above the adapter limit are clamped.
	MaxAnisotropy uint16
}

// LinearClampSampler is the sampler used for every full-screen input by default.
var LinearClampSampler = SamplerDescriptor{
	AddressModeU:  wgpu.AddressModeClampToEdge,
	AddressModeV:  wgpu.AddressModeClampToEdge,
	AddressModeW:  wgpu.AddressModeClampToEdge,
	MagFilter:     wgpu.FilterModeLinear,
	MinFilter:     wgpu.FilterModeLinear,
	MipmapFilter:  wgpu.MipmapFilterModeLinear,
	LodMinClamp:   0,
	LodMaxClamp:   32,
	MaxAnisotropy: 1,
}

// NearestClampSampler samples the closest texel without filtering.
var NearestClampSampler = SamplerDescriptor{
	AddressModeU:  wgpu.AddressModeClampToEdge,
	AddressModeV:  wgpu.AddressModeClampToEdge,
	AddressModeW:  wgpu.AddressModeClampToEdge,
	MagFilter:     wgpu.FilterModeNearest,
	MinFilter:     wgpu.FilterModeNearest,
	MipmapFilter:  wgpu.MipmapFilterModeNearest,
	LodMinClamp:   0,
	LodMaxClamp:   32,
	MaxAnisotropy: 1,
}
