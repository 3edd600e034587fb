package pass

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-fx/engine/camera"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer"
	"github.com/cogentcore/webgpu/wgpu"
)

// stencilAll compares and writes every stencil bit.
const stencilAll uint32 = 0xFFFFFFFF

// maskPass is the implementation of the MaskPass interface.
type maskPass struct {
	*Base
	mu *sync.Mutex

	clear    *clearPass
	inverted bool
	masking  bool // the last Render opened the bracket
}

// MaskPass opens a stencil mask bracket. It writes the silhouette of a scene into the stencil
// buffers of both composer buffers with color and depth writes locked off, then leaves the stencil
// test locked to EQUAL 1 so that following passes only touch the masked region. The bracket stays
// open until a ClearMaskPass runs. Nested brackets are not supported; a second MaskPass rewrites
// the stencil.
type MaskPass interface {
	Pass
	StencilMasker

	// Inverted reports whether the mask selects the region outside the silhouette.
	Inverted() bool

	// SetInverted sets whether the mask selects the region outside the silhouette.
	SetInverted(inverted bool)

	// ClearPass retrieves the stencil-only clear run before the silhouette is drawn.
	ClearPass() ClearPass
}

var _ MaskPass = &maskPass{}

// NewMaskPass creates a mask pass that draws the silhouette of scene as seen from cam.
//
// Parameters:
//   - scene: the mask geometry
//   - cam: the viewing camera
//   - options: MaskPassBuilderOption functions to configure the pass
//
// Returns:
//   - MaskPass: the mask pass
func NewMaskPass(scene renderer.Scene, cam camera.Camera, options ...MaskPassBuilderOption) MaskPass {
	p := &maskPass{
		Base: NewBase("MaskPass", scene, cam),
		mu:   &sync.Mutex{},
	}
	p.clear = NewClearPass(false, false, true).(*clearPass)
	p.SetNeedsSwap(false)
	for _, opt := range options {
		opt(p)
	}
	return p
}

// MasksStencil reports false until Render has drawn a silhouette, or when the last Render had no
// scene or camera to draw.
func (p *maskPass) MasksStencil() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.masking
}

func (p *maskPass) Inverted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inverted
}

func (p *maskPass) SetInverted(inverted bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inverted = inverted
}

func (p *maskPass) ClearPass() ClearPass {
	return p.clear
}

func (p *maskPass) Render(r renderer.Renderer, input, output renderer.RenderTarget, _ float32, _ bool) error {
	scene, cam := p.Scene(), p.Camera()
	p.mu.Lock()
	p.masking = scene != nil && cam != nil
	inverted := p.inverted
	p.mu.Unlock()
	if scene == nil || cam == nil {
		return nil
	}

	writeValue, clearValue := uint32(1), uint32(0)
	if inverted {
		writeValue, clearValue = 0, 1
	}

	targets := []renderer.RenderTarget{input, output}
	if p.RenderToScreen() {
		targets = []renderer.RenderTarget{nil}
	}

	s := r.State()
	s.Color.SetMask(false)
	s.Depth.SetMask(false)
	s.Color.SetLocked(true)
	s.Depth.SetLocked(true)

	s.Stencil.SetTest(true)
	s.Stencil.SetOp(wgpu.StencilOperationReplace, wgpu.StencilOperationReplace, wgpu.StencilOperationReplace)
	s.Stencil.SetFunc(wgpu.CompareFunctionAlways, writeValue, stencilAll)
	s.Stencil.SetClear(clearValue)
	s.Stencil.SetLocked(true)

	err := p.drawSilhouette(r, scene, cam, targets)

	s.Color.SetLocked(false)
	s.Depth.SetLocked(false)
	s.Color.SetMask(true)
	s.Depth.SetMask(true)

	s.Stencil.SetLocked(false)
	s.Stencil.SetFunc(wgpu.CompareFunctionEqual, 1, stencilAll)
	s.Stencil.SetOp(wgpu.StencilOperationKeep, wgpu.StencilOperationKeep, wgpu.StencilOperationKeep)
	s.Stencil.SetLocked(true)
	return err
}

func (p *maskPass) drawSilhouette(r renderer.Renderer, scene renderer.Scene, cam camera.Camera, targets []renderer.RenderTarget) error {
	if p.clear.Enabled() {
		for _, t := range targets {
			if err := p.clear.clear(r, t); err != nil {
				return err
			}
		}
	}
	for _, t := range targets {
		r.SetRenderTarget(t)
		if err := r.Render(scene, cam); err != nil {
			return err
		}
	}
	return nil
}

// clearMaskPass is the implementation of the ClearMaskPass interface.
type clearMaskPass struct {
	*Base
}

// ClearMaskPass closes a stencil mask bracket by unlocking and disabling the stencil test.
type ClearMaskPass interface {
	Pass
	StencilMasker
}

var _ ClearMaskPass = &clearMaskPass{}

// NewClearMaskPass creates a pass that closes the active stencil mask bracket.
//
// Returns:
//   - ClearMaskPass: the clear mask pass
func NewClearMaskPass() ClearMaskPass {
	p := &clearMaskPass{Base: NewBase("ClearMaskPass", nil, nil)}
	p.SetNeedsSwap(false)
	return p
}

func (p *clearMaskPass) MasksStencil() bool {
	return false
}

func (p *clearMaskPass) Render(r renderer.Renderer, _, _ renderer.RenderTarget, _ float32, _ bool) error {
	s := r.State()
	s.Stencil.SetLocked(false)
	s.Stencil.SetTest(false)
	return nil
}
