package effect

import (
	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/material"
)

type sepiaEffect struct {
	*Base

	intensity *material.Uniform
}

// SepiaEffect tints the image with the classic sepia matrix.
type SepiaEffect interface {
	Effect

	// Intensity retrieves the mix factor between the input and the sepia tone.
	Intensity() float32

	// SetIntensity sets the mix factor between the input and the sepia tone.
	SetIntensity(intensity float32)
}

var _ SepiaEffect = &sepiaEffect{}

// NewSepiaEffect creates a full intensity sepia tint.
func NewSepiaEffect(options ...EffectBuilderOption) SepiaEffect {
	e := &sepiaEffect{intensity: material.FloatUniform(1)}
	base := []EffectBuilderOption{WithUniform("intensity", e.intensity)}
	e.Base = NewBase("SepiaEffect", sepiaSource, append(base, options...)...)
	return e
}

func (e *sepiaEffect) Intensity() float32 {
	return e.intensity.Float()
}

func (e *sepiaEffect) SetIntensity(intensity float32) {
	e.intensity.SetFloat(intensity)
}

var sepiaMatrix = [3][3]float32{
	{0.393, 0.769, 0.189},
	{0.349, 0.686, 0.168},
	{0.272, 0.534, 0.131},
}

func (e *sepiaEffect) Kernels() Kernels {
	return Kernels{Image: func(_ *material.FragmentContext, in common.Color, _ common.Vec2, _ float32) common.Color {
		t := e.intensity.Float()
		out := in
		for i, row := range sepiaMatrix {
			s := min(in[0]*row[0]+in[1]*row[1]+in[2]*row[2], 1)
			out[i] = common.Mix(in[i], s, t)
		}
		return out
	}}
}
