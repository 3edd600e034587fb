package pass

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/material"
)

// copyPass is the implementation of the CopyPass interface.
type copyPass struct {
	*Base
	mu *sync.Mutex

	material   material.Material
	target     renderer.RenderTarget
	ownsTarget bool
	autoResize bool
}

// CopyPass copies the input buffer into a target of its own, keeping a snapshot of the image at
// that point of the chain. It never swaps.
type CopyPass interface {
	Pass

	// Target retrieves the destination target.
	Target() renderer.RenderTarget

	// Texture retrieves the texture of the destination target.
	Texture() common.Texture

	// AutoResize reports whether SetSize resizes the target.
	AutoResize() bool

	// SetAutoResize sets whether SetSize resizes the target.
	SetAutoResize(autoResize bool)
}

var _ CopyPass = &copyPass{}

// NewCopyPass creates a copy pass with its own auto-resized target.
//
// Parameters:
//   - options: CopyPassBuilderOption functions to configure the pass
//
// Returns:
//   - CopyPass: the copy pass
func NewCopyPass(options ...CopyPassBuilderOption) CopyPass {
	p := &copyPass{
		Base:       NewBase("CopyPass", nil, nil),
		mu:         &sync.Mutex{},
		material:   material.NewCopyMaterial(),
		autoResize: true,
	}
	p.SetNeedsSwap(false)
	for _, opt := range options {
		opt(p)
	}
	if p.target == nil {
		p.target = newLocalTarget("CopyPass.Target", common.Size{Width: 1, Height: 1}, common.PixelTypeUnsignedByte, common.ColorSpaceLinear)
		p.ownsTarget = true
	}
	return p
}

func (p *copyPass) Target() renderer.RenderTarget {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.target
}

func (p *copyPass) Texture() common.Texture {
	return p.Target().Texture()
}

func (p *copyPass) AutoResize() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.autoResize
}

func (p *copyPass) SetAutoResize(autoResize bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.autoResize = autoResize
}

func (p *copyPass) Render(r renderer.Renderer, input, _ renderer.RenderTarget, _ float32, _ bool) error {
	bindTexture(p.material, material.UniformInputBuffer, input.Texture())
	r.SetRenderTarget(p.Destination(p.Target()))
	return r.DrawFullscreen(p.material)
}

func (p *copyPass) SetSize(width, height int) {
	if p.AutoResize() {
		p.Target().SetSize(width, height)
	}
}

func (p *copyPass) Initialize(r renderer.Renderer, _ bool, frameBufferType common.PixelType) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.ownsTarget {
		return nil
	}
	pixelType, cs := targetFormat(r, frameBufferType)
	if p.target.PixelType() == pixelType && p.target.ColorSpace() == cs {
		return nil
	}
	next := newLocalTarget(p.target.Name(), p.target.Size(), pixelType, cs)
	p.target.Dispose()
	p.target = next
	return nil
}

func (p *copyPass) Dispose() {
	p.Base.Dispose()
	p.material.Dispose()
	if p.ownsTarget {
		p.Target().Dispose()
	}
}
