package pass

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/material"
	"github.com/chewxy/math32"
)

// DefaultMipLevels is the number of downsampling levels of a new MipmapBlurPass.
const DefaultMipLevels = 8

// mipmapBlurPass is the implementation of the MipmapBlurPass interface.
type mipmapBlurPass struct {
	*Base
	mu *sync.Mutex

	downsampling material.Material
	upsampling   material.Material
	down         []renderer.RenderTarget
	up           []renderer.RenderTarget
	levels       int
	size         common.Size
	pixelType    common.PixelType
	colorSpace   common.ColorSpace
}

// MipmapBlurPass blurs by downsampling the input into a chain of half sized targets and
// upsampling back, mixing each level over the matching downsampled level by a radius. The
// result is kept in the first upsampling target, or in the first downsampling target when there
// is a single level. It never swaps.
type MipmapBlurPass interface {
	Blur

	// Levels retrieves the number of downsampling levels.
	Levels() int

	// SetLevels sets the number of downsampling levels and reallocates the chain.
	// Values below 1 are raised to 1.
	SetLevels(levels int)

	// Radius retrieves the blend factor of each upsampling step.
	Radius() float32

	// SetRadius sets the blend factor of each upsampling step.
	SetRadius(radius float32)

	// DownsamplingTargets retrieves the downsampling chain from finest to coarsest.
	DownsamplingTargets() []renderer.RenderTarget

	// UpsamplingTargets retrieves the upsampling chain from finest to coarsest.
	UpsamplingTargets() []renderer.RenderTarget
}

var _ MipmapBlurPass = &mipmapBlurPass{}

// NewMipmapBlurPass creates a mip chain blur.
//
// Parameters:
//   - options: MipmapBlurPassBuilderOption functions to configure the pass
//
// Returns:
//   - MipmapBlurPass: the blur pass
func NewMipmapBlurPass(options ...MipmapBlurPassBuilderOption) MipmapBlurPass {
	p := &mipmapBlurPass{
		Base:         NewBase("MipmapBlurPass", nil, nil),
		mu:           &sync.Mutex{},
		downsampling: material.NewDownsamplingMaterial(),
		upsampling:   material.NewUpsamplingMaterial(),
		levels:       DefaultMipLevels,
		size:         common.Size{Width: 1, Height: 1},
		colorSpace:   common.ColorSpaceLinear,
	}
	p.SetNeedsSwap(false)
	for _, opt := range options {
		opt(p)
	}
	p.allocate()
	return p
}

// allocate rebuilds both chains for the current level count. Requires mu or exclusive access.
func (p *mipmapBlurPass) allocate() {
	p.release()
	p.down = make([]renderer.RenderTarget, p.levels)
	for i := range p.down {
		p.down[i] = newLocalTarget(fmt.Sprintf("Downsampling.Mipmap%d", i), p.size, p.pixelType, p.colorSpace)
	}
	p.up = make([]renderer.RenderTarget, p.levels-1)
	for i := range p.up {
		p.up[i] = newLocalTarget(fmt.Sprintf("Upsampling.Mipmap%d", i), p.size, p.pixelType, p.colorSpace)
	}
	p.resize()
}

// resize halves the size for every level. Requires mu or exclusive access.
func (p *mipmapBlurPass) resize() {
	w, h := float32(p.size.Width), float32(p.size.Height)
	for i, mip := range p.down {
		w, h = math32.Round(w*0.5), math32.Round(h*0.5)
		mip.SetSize(int(w), int(h))
		if i < len(p.up) {
			p.up[i].SetSize(int(w), int(h))
		}
	}
}

func (p *mipmapBlurPass) release() {
	for _, t := range p.down {
		t.Dispose()
	}
	for _, t := range p.up {
		t.Dispose()
	}
	p.down, p.up = nil, nil
}

func (p *mipmapBlurPass) Levels() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.levels
}

func (p *mipmapBlurPass) SetLevels(levels int) {
	levels = max(levels, 1)
	p.mu.Lock()
	defer p.mu.Unlock()
	if levels == p.levels {
		return
	}
	p.levels = levels
	p.allocate()
}

func (p *mipmapBlurPass) Radius() float32 {
	return p.upsampling.Uniform("radius").Float()
}

func (p *mipmapBlurPass) SetRadius(radius float32) {
	p.upsampling.Uniform("radius").SetFloat(radius)
}

func (p *mipmapBlurPass) DownsamplingTargets() []renderer.RenderTarget {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]renderer.RenderTarget(nil), p.down...)
}

func (p *mipmapBlurPass) UpsamplingTargets() []renderer.RenderTarget {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]renderer.RenderTarget(nil), p.up...)
}

func (p *mipmapBlurPass) Texture() common.Texture {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.up) > 0 {
		return p.up[0].Texture()
	}
	return p.down[0].Texture()
}

func (p *mipmapBlurPass) Blur(r renderer.Renderer, input renderer.RenderTarget) (common.Texture, error) {
	p.mu.Lock()
	down, up := p.down, p.up
	p.mu.Unlock()

	previous := input
	for _, mip := range down {
		material.SetTexelSize(p.downsampling, previous.Width(), previous.Height())
		bindTexture(p.downsampling, material.UniformInputBuffer, previous.Texture())
		r.SetRenderTarget(mip)
		if err := r.DrawFullscreen(p.downsampling); err != nil {
			return nil, err
		}
		previous = mip
	}

	for i := len(up) - 1; i >= 0; i-- {
		mip := up[i]
		material.SetTexelSize(p.upsampling, previous.Width(), previous.Height())
		bindTexture(p.upsampling, material.UniformInputBuffer, previous.Texture())
		bindTexture(p.upsampling, "supportBuffer", down[i].Texture())
		r.SetRenderTarget(mip)
		if err := r.DrawFullscreen(p.upsampling); err != nil {
			return nil, err
		}
		previous = mip
	}
	return previous.Texture(), nil
}

func (p *mipmapBlurPass) Render(r renderer.Renderer, input, _ renderer.RenderTarget, _ float32, _ bool) error {
	_, err := p.Blur(r, input)
	return err
}

func (p *mipmapBlurPass) SetSize(width, height int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.size = common.Size{Width: max(width, 1), Height: max(height, 1)}
	p.resize()
}

func (p *mipmapBlurPass) Initialize(r renderer.Renderer, _ bool, frameBufferType common.PixelType) error {
	pixelType, cs := targetFormat(r, frameBufferType)
	p.mu.Lock()
	defer p.mu.Unlock()
	if pixelType == p.pixelType && cs == p.colorSpace {
		return nil
	}
	p.pixelType, p.colorSpace = pixelType, cs
	p.allocate()
	return nil
}

func (p *mipmapBlurPass) Dispose() {
	p.Base.Dispose()
	p.downsampling.Dispose()
	p.upsampling.Dispose()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.release()
}
