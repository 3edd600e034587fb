package pass

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-fx/engine/resolution"
)

const defineThreshold = "THRESHOLD"

// luminancePass is the implementation of the LuminancePass interface.
type luminancePass struct {
	*Base
	mu *sync.Mutex

	material    material.Material
	target      renderer.RenderTarget
	res         resolution.Resolution
	colorOutput bool
	stopDrive   func()
}

// LuminancePass renders the luminance of the input buffer into a target of its own, optionally
// keeping the input color and applying a smooth threshold. It never swaps.
type LuminancePass interface {
	Pass

	// Texture retrieves the texture holding the luminance.
	Texture() common.Texture

	// Target retrieves the destination target.
	Target() renderer.RenderTarget

	// Resolution retrieves the resolution that sizes the target.
	Resolution() resolution.Resolution

	// Material retrieves the luminance material.
	Material() material.Material

	// Threshold retrieves the luminance threshold.
	Threshold() float32

	// SetThreshold sets the luminance below which pixels fade out and enables thresholding.
	SetThreshold(threshold float32)

	// Smoothing retrieves the width of the threshold transition.
	Smoothing() float32

	// SetSmoothing sets the width of the threshold transition.
	SetSmoothing(smoothing float32)

	// SetThresholdEnabled enables or disables thresholding.
	SetThresholdEnabled(enabled bool)
}

var _ LuminancePass = &luminancePass{}

// NewLuminancePass creates a luminance pass with a full resolution target.
//
// Parameters:
//   - options: LuminancePassBuilderOption functions to configure the pass
//
// Returns:
//   - LuminancePass: the luminance pass
func NewLuminancePass(options ...LuminancePassBuilderOption) LuminancePass {
	p := &luminancePass{
		Base: NewBase("LuminancePass", nil, nil),
		mu:   &sync.Mutex{},
		res:  resolution.NewResolution("LuminancePass.Resolution"),
	}
	p.SetNeedsSwap(false)
	for _, opt := range options {
		opt(p)
	}
	p.material = material.NewLuminanceMaterial(p.colorOutput)
	p.target = newLocalTarget("LuminancePass.Target", p.res.Size(), common.PixelTypeUnsignedByte, common.ColorSpaceLinear)
	p.stopDrive = p.res.Drive(resizeFunc(func(w, h int) { p.Target().SetSize(w, h) }))
	return p
}

func (p *luminancePass) Texture() common.Texture {
	return p.Target().Texture()
}

func (p *luminancePass) Target() renderer.RenderTarget {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.target
}

func (p *luminancePass) Resolution() resolution.Resolution {
	return p.res
}

func (p *luminancePass) Material() material.Material {
	return p.material
}

func (p *luminancePass) Threshold() float32 {
	return p.material.Uniform("threshold").Float()
}

func (p *luminancePass) SetThreshold(threshold float32) {
	p.material.Uniform("threshold").SetFloat(threshold)
	p.SetThresholdEnabled(true)
}

func (p *luminancePass) Smoothing() float32 {
	return p.material.Uniform("smoothing").Float()
}

func (p *luminancePass) SetSmoothing(smoothing float32) {
	p.material.Uniform("smoothing").SetFloat(smoothing)
}

func (p *luminancePass) SetThresholdEnabled(enabled bool) {
	if enabled {
		p.material.SetDefine(defineThreshold, "")
		return
	}
	p.material.DeleteDefine(defineThreshold)
}

func (p *luminancePass) Render(r renderer.Renderer, input, _ renderer.RenderTarget, _ float32, _ bool) error {
	bindTexture(p.material, material.UniformInputBuffer, input.Texture())
	r.SetRenderTarget(p.Destination(p.Target()))
	return r.DrawFullscreen(p.material)
}

func (p *luminancePass) SetSize(width, height int) {
	p.res.SetBaseSize(width, height)
}

func (p *luminancePass) Initialize(r renderer.Renderer, _ bool, frameBufferType common.PixelType) error {
	pixelType, cs := targetFormat(r, frameBufferType)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.target.PixelType() == pixelType && p.target.ColorSpace() == cs {
		return nil
	}
	next := newLocalTarget(p.target.Name(), p.res.Size(), pixelType, cs)
	p.target.Dispose()
	p.target = next
	return nil
}

func (p *luminancePass) Dispose() {
	p.Base.Dispose()
	p.stopDrive()
	p.material.Dispose()
	p.Target().Dispose()
}
