package effect

import (
	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/material"
)

type brightnessContrastEffect struct {
	*Base

	brightness *material.Uniform
	contrast   *material.Uniform
}

// BrightnessContrastEffect adjusts brightness and contrast in sRGB space.
type BrightnessContrastEffect interface {
	Effect

	// Brightness retrieves the brightness offset in [-1, 1].
	Brightness() float32

	// SetBrightness sets the brightness offset in [-1, 1].
	SetBrightness(brightness float32)

	// Contrast retrieves the contrast in [-1, 1].
	Contrast() float32

	// SetContrast sets the contrast in [-1, 1].
	SetContrast(contrast float32)
}

var _ BrightnessContrastEffect = &brightnessContrastEffect{}

// NewBrightnessContrastEffect creates a neutral brightness and contrast adjustment.
func NewBrightnessContrastEffect(options ...EffectBuilderOption) BrightnessContrastEffect {
	e := &brightnessContrastEffect{
		brightness: material.FloatUniform(0),
		contrast:   material.FloatUniform(0),
	}
	base := []EffectBuilderOption{
		WithUniform("brightness", e.brightness),
		WithUniform("contrast", e.contrast),
		WithInputColorSpace(common.ColorSpaceSRGB),
	}
	e.Base = NewBase("BrightnessContrastEffect", brightnessContrastSource, append(base, options...)...)
	return e
}

func (e *brightnessContrastEffect) Brightness() float32 {
	return e.brightness.Float()
}

func (e *brightnessContrastEffect) SetBrightness(brightness float32) {
	e.brightness.SetFloat(brightness)
}

func (e *brightnessContrastEffect) Contrast() float32 {
	return e.contrast.Float()
}

func (e *brightnessContrastEffect) SetContrast(contrast float32) {
	e.contrast.SetFloat(contrast)
}

func (e *brightnessContrastEffect) Kernels() Kernels {
	return Kernels{Image: func(_ *material.FragmentContext, in common.Color, _ common.Vec2, _ float32) common.Color {
		brightness, contrast := e.brightness.Float(), e.contrast.Float()
		out := in
		for i := 0; i < 3; i++ {
			c := in[i] + brightness - 0.5
			if contrast > 0 {
				c /= 1 - contrast
			} else {
				c *= 1 + contrast
			}
			out[i] = c + 0.5
		}
		return out
	}}
}
