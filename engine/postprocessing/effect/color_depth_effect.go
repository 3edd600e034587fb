package effect

import (
	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/material"
	"github.com/chewxy/math32"
)

type colorDepthEffect struct {
	*Base

	bits   int
	factor *material.Uniform
}

// ColorDepthEffect reduces the number of representable colors.
type ColorDepthEffect interface {
	Effect

	// Bits retrieves the total color depth in bits.
	Bits() int

	// SetBits sets the total color depth in bits, shared evenly by the three channels.
	SetBits(bits int)
}

var _ ColorDepthEffect = &colorDepthEffect{}

// NewColorDepthEffect creates a 16 bit color depth reduction.
func NewColorDepthEffect(options ...EffectBuilderOption) ColorDepthEffect {
	e := &colorDepthEffect{factor: material.FloatUniform(0)}
	base := []EffectBuilderOption{WithUniform("factor", e.factor)}
	e.Base = NewBase("ColorDepthEffect", colorDepthSource, append(base, options...)...)
	e.SetBits(16)
	return e
}

func (e *colorDepthEffect) Bits() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bits
}

func (e *colorDepthEffect) SetBits(bits int) {
	bits = max(bits, 1)
	e.mu.Lock()
	e.bits = bits
	e.mu.Unlock()
	e.factor.SetFloat(math32.Pow(2, float32(bits)/3))
}

func (e *colorDepthEffect) Kernels() Kernels {
	return Kernels{Image: func(_ *material.FragmentContext, in common.Color, _ common.Vec2, _ float32) common.Color {
		f := e.factor.Float()
		out := in
		for i := 0; i < 3; i++ {
			out[i] = math32.Floor(in[i]*f+0.5) / f
		}
		return out
	}}
}
