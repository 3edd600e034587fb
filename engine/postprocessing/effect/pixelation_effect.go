package effect

import (
	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/material"
	"github.com/chewxy/math32"
)

type pixelationEffect struct {
	*Base

	granularity float32
	size        common.Size
	enabled     *material.Uniform
	cells       *material.Uniform
}

// PixelationEffect snaps uv coordinates to a grid of square cells. It transforms uv coordinates,
// so it cannot share a pass with a convolution effect.
type PixelationEffect interface {
	Effect

	// Granularity retrieves the cell size in pixels.
	Granularity() float32

	// SetGranularity sets the cell size in pixels. Sizes are rounded down to an even number;
	// zero disables the effect.
	SetGranularity(granularity float32)
}

var _ PixelationEffect = &pixelationEffect{}

// NewPixelationEffect creates a pixelation effect.
//
// Parameters:
//   - granularity: the cell size in pixels
//   - options: EffectBuilderOption functions to configure the effect
//
// Returns:
//   - PixelationEffect: the effect
func NewPixelationEffect(granularity float32, options ...EffectBuilderOption) PixelationEffect {
	e := &pixelationEffect{
		size:    common.Size{Width: 1, Height: 1},
		enabled: material.BoolUniform(false),
		cells:   material.Vec4Uniform(common.Color{}),
	}
	base := []EffectBuilderOption{
		WithUniform("enabled", e.enabled),
		WithUniform("cells", e.cells),
	}
	e.Base = NewBase("PixelationEffect", pixelationSource, append(base, options...)...)
	e.SetGranularity(granularity)
	return e
}

func (e *pixelationEffect) Granularity() float32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.granularity
}

func (e *pixelationEffect) SetGranularity(granularity float32) {
	g := math32.Floor(max(granularity, 0))
	if int(g)%2 > 0 {
		g++
	}
	e.mu.Lock()
	e.granularity = g
	size := e.size
	e.mu.Unlock()

	e.enabled.SetBool(g > 0)
	if g <= 0 {
		e.cells.SetVec4(common.Color{})
		return
	}
	dx, dy := g/float32(size.Width), g/float32(size.Height)
	e.cells.SetVec4(common.Color{dx, dy, 1 / dx, 1 / dy})
}

func (e *pixelationEffect) SetSize(width, height int) {
	e.mu.Lock()
	e.size = common.Size{Width: max(width, 1), Height: max(height, 1)}
	g := e.granularity
	e.mu.Unlock()
	e.SetGranularity(g)
}

func (e *pixelationEffect) Kernels() Kernels {
	return Kernels{UV: func(_ *material.FragmentContext, uv common.Vec2) common.Vec2 {
		if !e.enabled.Bool() {
			return uv
		}
		d := e.cells.Vec4()
		return common.Vec2{
			d[0] * (math32.Floor(uv[0]*d[2]) + 0.5),
			d[1] * (math32.Floor(uv[1]*d[3]) + 0.5),
		}
	}}
}
