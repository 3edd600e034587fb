package effect

import (
	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/material"
)

type chromaticAberrationEffect struct {
	*Base

	offset *material.Uniform
}

// ChromaticAberrationEffect shifts the red and blue channels in opposite directions. It samples
// the input buffer at neighboring coordinates and is therefore a convolution effect.
type ChromaticAberrationEffect interface {
	Effect

	// Offset retrieves the channel shift in uv units.
	Offset() common.Vec2

	// SetOffset sets the channel shift in uv units. The vertical shift is scaled by the aspect ratio.
	SetOffset(offset common.Vec2)
}

var _ ChromaticAberrationEffect = &chromaticAberrationEffect{}

// NewChromaticAberrationEffect creates a chromatic aberration with a shift of (0.001, 0.0005).
func NewChromaticAberrationEffect(options ...EffectBuilderOption) ChromaticAberrationEffect {
	e := &chromaticAberrationEffect{offset: material.Vec2Uniform(common.Vec2{0.001, 0.0005})}
	base := []EffectBuilderOption{
		WithUniform("offset", e.offset),
		WithAttributes(AttributeConvolution),
		WithVertexShader(chromaticAberrationVertexSource),
	}
	e.Base = NewBase("ChromaticAberrationEffect", chromaticAberrationSource, append(base, options...)...)
	return e
}

func (e *chromaticAberrationEffect) Offset() common.Vec2 {
	return e.offset.Vec2()
}

func (e *chromaticAberrationEffect) SetOffset(offset common.Vec2) {
	e.offset.SetVec2(offset)
}

func (e *chromaticAberrationEffect) Kernels() Kernels {
	return Kernels{Image: func(ctx *material.FragmentContext, in common.Color, uv common.Vec2, _ float32) common.Color {
		shift := e.offset.Vec2().Mul(common.Vec2{1, ctx.Frame.Aspect})
		out := in
		out[0] = ctx.Input(uv.Add(shift))[0]
		out[2] = ctx.Input(uv.Sub(shift))[2]
		return out
	}}
}
