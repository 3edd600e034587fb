package effect

import (
	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/material"
	"github.com/chewxy/math32"
)

type scanlineEffect struct {
	*Base

	density     float32
	height      int
	count       *material.Uniform
	scrollSpeed *material.Uniform
}

// ScanlineEffect overlays horizontal scanlines whose count follows the drawing buffer height.
type ScanlineEffect interface {
	Effect

	// Density retrieves the scanlines per pixel row.
	Density() float32

	// SetDensity sets the scanlines per pixel row.
	SetDensity(density float32)

	// Count retrieves the current scanline count.
	Count() float32

	// ScrollSpeed retrieves the vertical scroll speed in uv units per second.
	ScrollSpeed() float32

	// SetScrollSpeed sets the vertical scroll speed in uv units per second.
	SetScrollSpeed(speed float32)
}

var _ ScanlineEffect = &scanlineEffect{}

// NewScanlineEffect creates scanlines with density 1.25 blended with Overlay.
func NewScanlineEffect(options ...EffectBuilderOption) ScanlineEffect {
	e := &scanlineEffect{
		density:     1.25,
		height:      1,
		count:       material.FloatUniform(0),
		scrollSpeed: material.FloatUniform(0),
	}
	base := []EffectBuilderOption{
		WithUniform("count", e.count),
		WithUniform("scrollSpeed", e.scrollSpeed),
		WithBlendFunction(BlendFunctionOverlay),
	}
	e.Base = NewBase("ScanlineEffect", scanlineSource, append(base, options...)...)
	e.updateCount()
	return e
}

func (e *scanlineEffect) Density() float32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.density
}

func (e *scanlineEffect) SetDensity(density float32) {
	e.mu.Lock()
	e.density = density
	e.mu.Unlock()
	e.updateCount()
}

func (e *scanlineEffect) Count() float32 {
	return e.count.Float()
}

func (e *scanlineEffect) ScrollSpeed() float32 {
	return e.scrollSpeed.Float()
}

func (e *scanlineEffect) SetScrollSpeed(speed float32) {
	e.scrollSpeed.SetFloat(speed)
}

func (e *scanlineEffect) SetSize(_, height int) {
	e.mu.Lock()
	e.height = max(height, 1)
	e.mu.Unlock()
	e.updateCount()
}

func (e *scanlineEffect) updateCount() {
	e.mu.Lock()
	count := math32.Round(float32(e.height) * e.density)
	e.mu.Unlock()
	e.count.SetFloat(count)
}

func (e *scanlineEffect) Kernels() Kernels {
	return Kernels{Image: func(ctx *material.FragmentContext, in common.Color, uv common.Vec2, _ float32) common.Color {
		y := (uv[1] + ctx.Frame.Time*e.scrollSpeed.Float()) * e.count.Float()
		s, c := math32.Sincos(y)
		return common.Color{s, c, s, in[3]}
	}}
}
