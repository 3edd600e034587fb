package effect

import (
	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/material"
)

// VignetteTechnique selects the vignette falloff.
type VignetteTechnique int

const (
	// VignetteTechniqueDefault darkens with a smooth radial falloff.
	VignetteTechniqueDefault VignetteTechnique = iota

	// VignetteTechniqueEskil mixes towards a darkness color by the squared distance from the center.
	VignetteTechniqueEskil
)

const defineEskil = "ESKIL"

type vignetteEffect struct {
	*Base

	offset   *material.Uniform
	darkness *material.Uniform
}

// VignetteEffect darkens the image towards its edges.
type VignetteEffect interface {
	Effect

	// Offset retrieves the falloff offset.
	Offset() float32

	// SetOffset sets the falloff offset.
	SetOffset(offset float32)

	// Darkness retrieves the darkness amount.
	Darkness() float32

	// SetDarkness sets the darkness amount.
	SetDarkness(darkness float32)

	// Technique retrieves the falloff technique.
	Technique() VignetteTechnique

	// SetTechnique selects the falloff technique.
	SetTechnique(t VignetteTechnique)
}

var _ VignetteEffect = &vignetteEffect{}

// NewVignetteEffect creates a vignette with offset 0.5 and darkness 0.5.
//
// Parameters:
//   - options: EffectBuilderOption functions to configure the effect
//
// Returns:
//   - VignetteEffect: the effect
func NewVignetteEffect(options ...EffectBuilderOption) VignetteEffect {
	e := &vignetteEffect{
		offset:   material.FloatUniform(0.5),
		darkness: material.FloatUniform(0.5),
	}
	base := []EffectBuilderOption{
		WithUniform("offset", e.offset),
		WithUniform("darkness", e.darkness),
	}
	e.Base = NewBase("VignetteEffect", vignetteSource, append(base, options...)...)
	return e
}

func (e *vignetteEffect) Offset() float32 {
	return e.offset.Float()
}

func (e *vignetteEffect) SetOffset(offset float32) {
	e.offset.SetFloat(offset)
}

func (e *vignetteEffect) Darkness() float32 {
	return e.darkness.Float()
}

func (e *vignetteEffect) SetDarkness(darkness float32) {
	e.darkness.SetFloat(darkness)
}

func (e *vignetteEffect) Technique() VignetteTechnique {
	if _, ok := e.Define(defineEskil); ok {
		return VignetteTechniqueEskil
	}
	return VignetteTechniqueDefault
}

func (e *vignetteEffect) SetTechnique(t VignetteTechnique) {
	e.setDefined(defineEskil, t == VignetteTechniqueEskil)
}

// Kernels snapshots the technique. Switching it bumps the version, so the owning pass asks again.
func (e *vignetteEffect) Kernels() Kernels {
	eskil := e.Technique() == VignetteTechniqueEskil
	return Kernels{Image: func(_ *material.FragmentContext, in common.Color, uv common.Vec2, _ float32) common.Color {
		offset, darkness := e.offset.Float(), e.darkness.Float()
		if eskil {
			coord := uv.Sub(common.Vec2{0.5, 0.5}).Scale(offset)
			dark := common.Color{1 - darkness, 1 - darkness, 1 - darkness, in[3]}
			return in.Mix(dark, coord[0]*coord[0]+coord[1]*coord[1])
		}
		d := uv.Sub(common.Vec2{0.5, 0.5}).Length()
		return in.ScaleRGB(common.Smoothstep(0.8, offset*0.799, d*(darkness+offset)))
	}}
}
