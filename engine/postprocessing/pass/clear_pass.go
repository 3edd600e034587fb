package pass

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer"
)

// NoAlphaOverride leaves the alpha of the clear color untouched.
const NoAlphaOverride float32 = -1

// clearPass is the implementation of the ClearPass interface.
type clearPass struct {
	*Base
	mu *sync.Mutex

	color   bool
	depth   bool
	stencil bool

	overrideColor *common.Color
	overrideAlpha float32
}

// ClearPass clears the input buffer, or the screen when rendering to screen. It never swaps.
type ClearPass interface {
	Pass

	// OverrideClearColor retrieves the color used instead of the renderer clear color, or nil.
	OverrideClearColor() *common.Color

	// SetOverrideClearColor sets the color used instead of the renderer clear color. Nil removes it.
	SetOverrideClearColor(c *common.Color)

	// OverrideClearAlpha retrieves the alpha used instead of the clear color alpha, or NoAlphaOverride.
	OverrideClearAlpha() float32

	// SetOverrideClearAlpha sets the alpha used instead of the clear color alpha. Negative values remove it.
	SetOverrideClearAlpha(alpha float32)

	// Clears reports which buffers the pass clears.
	//
	// Returns:
	//   - color: whether color is cleared
	//   - depth: whether depth is cleared
	//   - stencil: whether stencil is cleared
	Clears() (color, depth, stencil bool)
}

var _ ClearPass = &clearPass{}

// NewClearPass creates a pass that clears the selected buffers.
//
// Parameters:
//   - color: whether to clear color
//   - depth: whether to clear depth
//   - stencil: whether to clear stencil
//   - options: ClearPassBuilderOption functions to configure the pass
//
// Returns:
//   - ClearPass: the clear pass
func NewClearPass(color, depth, stencil bool, options ...ClearPassBuilderOption) ClearPass {
	p := &clearPass{
		Base:          NewBase("ClearPass", nil, nil),
		mu:            &sync.Mutex{},
		color:         color,
		depth:         depth,
		stencil:       stencil,
		overrideAlpha: NoAlphaOverride,
	}
	p.SetNeedsSwap(false)
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *clearPass) OverrideClearColor() *common.Color {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.overrideColor == nil {
		return nil
	}
	c := *p.overrideColor
	return &c
}

func (p *clearPass) SetOverrideClearColor(c *common.Color) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c == nil {
		p.overrideColor = nil
		return
	}
	v := *c
	p.overrideColor = &v
}

func (p *clearPass) OverrideClearAlpha() float32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.overrideAlpha
}

func (p *clearPass) SetOverrideClearAlpha(alpha float32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if alpha < 0 {
		alpha = NoAlphaOverride
	}
	p.overrideAlpha = alpha
}

func (p *clearPass) Clears() (bool, bool, bool) {
	return p.color, p.depth, p.stencil
}

func (p *clearPass) Render(r renderer.Renderer, input, _ renderer.RenderTarget, _ float32, _ bool) error {
	return p.clear(r, p.Destination(input))
}

// clear clears target with the override color applied and restores the renderer clear color.
func (p *clearPass) clear(r renderer.Renderer, target renderer.RenderTarget) error {
	saved := r.ClearColor()
	c := saved
	if o := p.OverrideClearColor(); o != nil {
		c = *o
	}
	if a := p.OverrideClearAlpha(); a >= 0 {
		c = c.WithAlpha(a)
	}

	r.SetRenderTarget(target)
	r.SetClearColor(c)
	err := r.Clear(p.color, p.depth, p.stencil)
	r.SetClearColor(saved)
	return err
}
