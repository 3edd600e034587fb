package pass

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-fx/engine/camera"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer"
)

// renderPass is the implementation of the RenderPass interface.
type renderPass struct {
	*Base
	mu *sync.Mutex

	clear            ClearPass
	ignoreBackground bool
}

// RenderPass draws a scene into the input buffer, or the screen when rendering to screen.
// It clears color and depth first and never swaps.
type RenderPass interface {
	Pass

	// ClearPass retrieves the pass that clears before drawing.
	ClearPass() ClearPass

	// IgnoreBackground reports whether the scene background is skipped.
	IgnoreBackground() bool

	// SetIgnoreBackground sets whether the scene background is skipped.
	SetIgnoreBackground(ignore bool)
}

var _ RenderPass = &renderPass{}

// NewRenderPass creates a pass that draws scene from cam. Nil scene or camera fall back to the
// composer's main scene and camera.
//
// Parameters:
//   - scene: the scene to draw
//   - cam: the viewing camera
//   - options: RenderPassBuilderOption functions to configure the pass
//
// Returns:
//   - RenderPass: the render pass
func NewRenderPass(scene renderer.Scene, cam camera.Camera, options ...RenderPassBuilderOption) RenderPass {
	p := &renderPass{
		Base:  NewBase("RenderPass", scene, cam),
		mu:    &sync.Mutex{},
		clear: NewClearPass(true, true, false),
	}
	p.SetNeedsSwap(false)
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *renderPass) ClearPass() ClearPass {
	return p.clear
}

func (p *renderPass) IgnoreBackground() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ignoreBackground
}

func (p *renderPass) SetIgnoreBackground(ignore bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ignoreBackground = ignore
}

func (p *renderPass) SetRenderToScreen(renderToScreen bool) {
	p.Base.SetRenderToScreen(renderToScreen)
	p.clear.SetRenderToScreen(renderToScreen)
}

func (p *renderPass) Render(r renderer.Renderer, input, output renderer.RenderTarget, delta float32, stencilTest bool) error {
	scene, cam := p.Scene(), p.Camera()
	if scene == nil || cam == nil {
		return nil
	}

	if p.clear.Enabled() {
		if err := p.clear.Render(r, input, output, delta, stencilTest); err != nil {
			return err
		}
	}

	r.SetRenderTarget(p.Destination(input))
	if p.IgnoreBackground() {
		bg := scene.Background()
		scene.SetBackground(nil)
		defer scene.SetBackground(bg)
	}
	return r.Render(scene, cam)
}
