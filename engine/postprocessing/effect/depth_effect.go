package effect

import (
	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/material"
)

const defineInverted = "INVERTED"

type depthEffect struct {
	*Base
}

// DepthEffect visualizes the scene depth buffer.
type DepthEffect interface {
	Effect

	// Inverted reports whether near surfaces are drawn bright.
	Inverted() bool

	// SetInverted sets whether near surfaces are drawn bright.
	SetInverted(inverted bool)
}

var _ DepthEffect = &depthEffect{}

// NewDepthEffect creates a depth visualization that replaces the image.
func NewDepthEffect(options ...EffectBuilderOption) DepthEffect {
	base := []EffectBuilderOption{
		WithAttributes(AttributeDepth),
		WithBlendFunction(BlendFunctionSrc),
	}
	return &depthEffect{Base: NewBase("DepthEffect", depthSource, append(base, options...)...)}
}

func (e *depthEffect) Inverted() bool {
	_, ok := e.Define(defineInverted)
	return ok
}

func (e *depthEffect) SetInverted(inverted bool) {
	e.setDefined(defineInverted, inverted)
}

func (e *depthEffect) Kernels() Kernels {
	inverted := e.Inverted()
	return Kernels{Image: func(_ *material.FragmentContext, in common.Color, _ common.Vec2, depth float32) common.Color {
		if inverted {
			depth = 1 - depth
		}
		return common.Color{depth, depth, depth, in[3]}
	}}
}
