package effect

import (
	"slices"

	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/material"
)

// EffectBuilderOption is a function that configures an effect.
type EffectBuilderOption func(*Base)

// WithAttributes sets the effect requirements.
//
// Parameters:
//   - a: the attribute bit set
//
// Returns:
//   - EffectBuilderOption: the option function
func WithAttributes(a Attribute) EffectBuilderOption {
	return func(b *Base) {
		b.attributes = a
	}
}

// WithUniform declares a uniform referenced by the effect source under key.
//
// Parameters:
//   - key: the name used in the effect source
//   - u: the uniform
//
// Returns:
//   - EffectBuilderOption: the option function
func WithUniform(key string, u *material.Uniform) EffectBuilderOption {
	return func(b *Base) {
		b.setUniform(key, u)
	}
}

// WithDefine sets a define. Valued defines become module constants of the merged program.
//
// Parameters:
//   - name: the define name
//   - value: the define value, may be empty
//
// Returns:
//   - EffectBuilderOption: the option function
func WithDefine(name, value string) EffectBuilderOption {
	return func(b *Base) {
		b.defines[name] = value
	}
}

// WithBlendFunction sets the blend function.
//
// Parameters:
//   - fn: the blend function
//
// Returns:
//   - EffectBuilderOption: the option function
func WithBlendFunction(fn BlendFunction) EffectBuilderOption {
	return func(b *Base) {
		b.blendMode.SetFunction(fn)
	}
}

// WithOpacity sets the blend opacity.
//
// Parameters:
//   - opacity: the opacity in [0, 1]
//
// Returns:
//   - EffectBuilderOption: the option function
func WithOpacity(opacity float32) EffectBuilderOption {
	return func(b *Base) {
		b.blendMode.SetOpacity(opacity)
	}
}

// WithVertexShader sets the vertex source holding mainSupport.
//
// Parameters:
//   - src: the WGSL vertex source
//
// Returns:
//   - EffectBuilderOption: the option function
func WithVertexShader(src string) EffectBuilderOption {
	return func(b *Base) {
		b.vertexShader = src
	}
}

// WithKernels sets the CPU kernels.
//
// Parameters:
//   - k: the kernels
//
// Returns:
//   - EffectBuilderOption: the option function
func WithKernels(k Kernels) EffectBuilderOption {
	return func(b *Base) {
		b.kernels = k
	}
}

// WithInputColorSpace sets the color space mainImage expects.
func WithInputColorSpace(cs common.ColorSpace) EffectBuilderOption {
	return func(b *Base) {
		b.inputColorSpace = cs
	}
}

// WithOutputColorSpace sets the color space mainImage produces.
func WithOutputColorSpace(cs common.ColorSpace) EffectBuilderOption {
	return func(b *Base) {
		b.outputColorSpace = cs
	}
}

// WithExtensions adds WGSL extensions enabled by the merged program.
func WithExtensions(extensions ...string) EffectBuilderOption {
	return func(b *Base) {
		for _, ext := range extensions {
			if !slices.Contains(b.extensions, ext) {
				b.extensions = append(b.extensions, ext)
			}
		}
	}
}
