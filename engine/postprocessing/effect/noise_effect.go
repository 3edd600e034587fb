package effect

import (
	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/material"
	"github.com/chewxy/math32"
)

const definePremultiply = "PREMULTIPLY"

type noiseEffect struct {
	*Base
}

// NoiseEffect adds animated white noise.
type NoiseEffect interface {
	Effect

	// Premultiply reports whether the noise is multiplied with the input color.
	Premultiply() bool

	// SetPremultiply sets whether the noise is multiplied with the input color.
	SetPremultiply(premultiply bool)
}

var _ NoiseEffect = &noiseEffect{}

// NewNoiseEffect creates a noise effect blended with Screen.
func NewNoiseEffect(options ...EffectBuilderOption) NoiseEffect {
	base := []EffectBuilderOption{WithBlendFunction(BlendFunctionScreen)}
	return &noiseEffect{Base: NewBase("NoiseEffect", noiseSource, append(base, options...)...)}
}

func (e *noiseEffect) Premultiply() bool {
	_, ok := e.Define(definePremultiply)
	return ok
}

func (e *noiseEffect) SetPremultiply(premultiply bool) {
	e.setDefined(definePremultiply, premultiply)
}

func (e *noiseEffect) Kernels() Kernels {
	premultiply := e.Premultiply()
	return Kernels{Image: func(ctx *material.FragmentContext, in common.Color, uv common.Vec2, _ float32) common.Color {
		n := rand(uv.Scale(1 + ctx.Frame.Time))
		if premultiply {
			return common.Color{min(in[0]*n, 1), min(in[1]*n, 1), min(in[2]*n, 1), in[3]}
		}
		return common.Color{n, n, n, in[3]}
	}}
}

// rand mirrors the rand function of the common shader chunk.
func rand(co common.Vec2) float32 {
	return common.Fract(math32.Sin(co[0]*12.9898+co[1]*78.233) * 43758.5453)
}
