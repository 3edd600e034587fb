package effect

import (
	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/material"
	"github.com/chewxy/math32"
)

type hueSaturationEffect struct {
	*Base

	angle      float32
	hue        *material.Uniform
	saturation *material.Uniform
}

// HueSaturationEffect rotates hue and scales saturation in sRGB space.
type HueSaturationEffect interface {
	Effect

	// Hue retrieves the hue rotation in radians.
	Hue() float32

	// SetHue sets the hue rotation in radians.
	SetHue(angle float32)

	// Saturation retrieves the saturation adjustment in [-1, 1].
	Saturation() float32

	// SetSaturation sets the saturation adjustment in [-1, 1].
	SetSaturation(saturation float32)
}

var _ HueSaturationEffect = &hueSaturationEffect{}

// NewHueSaturationEffect creates a neutral hue and saturation adjustment.
func NewHueSaturationEffect(options ...EffectBuilderOption) HueSaturationEffect {
	e := &hueSaturationEffect{
		hue:        material.Vec3Uniform(1, 0, 0),
		saturation: material.FloatUniform(0),
	}
	base := []EffectBuilderOption{
		WithUniform("hue", e.hue),
		WithUniform("saturation", e.saturation),
		WithInputColorSpace(common.ColorSpaceSRGB),
	}
	e.Base = NewBase("HueSaturationEffect", hueSaturationSource, append(base, options...)...)
	e.SetHue(0)
	return e
}

func (e *hueSaturationEffect) Hue() float32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.angle
}

// SetHue stores the rotation as the weights of a rotation around the gray axis.
func (e *hueSaturationEffect) SetHue(angle float32) {
	e.mu.Lock()
	e.angle = angle
	e.mu.Unlock()
	s, c := math32.Sincos(angle)
	sqrt3 := math32.Sqrt(3)
	e.hue.SetVec3((2*c+1)/3, (-sqrt3*s-c+1)/3, (sqrt3*s-c+1)/3)
}

func (e *hueSaturationEffect) Saturation() float32 {
	return e.saturation.Float()
}

func (e *hueSaturationEffect) SetSaturation(saturation float32) {
	e.saturation.SetFloat(saturation)
}

func (e *hueSaturationEffect) Kernels() Kernels {
	return Kernels{Image: func(_ *material.FragmentContext, in common.Color, _ common.Vec2, _ float32) common.Color {
		h := e.hue.Vec3()
		saturation := e.saturation.Float()
		dot := func(a, b, c float32) float32 { return in[0]*a + in[1]*b + in[2]*c }
		rgb := [3]float32{dot(h[0], h[1], h[2]), dot(h[2], h[0], h[1]), dot(h[1], h[2], h[0])}
		average := (rgb[0] + rgb[1] + rgb[2]) / 3
		out := in
		for i, c := range rgb {
			diff := average - c
			if saturation > 0 {
				c += diff * (1 - 1/(1.001-saturation))
			} else {
				c += diff * -saturation
			}
			out[i] = min(c, 1)
		}
		return out
	}}
}
