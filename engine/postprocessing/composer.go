// Package postprocessing sequences full-screen passes over a pair of ping-pong buffers. The
// Composer owns the buffers and an optional depth texture shared by every pass that reads scene
// depth; EffectPass merges any number of effects into a single program drawn by one pass.
package postprocessing

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/camera"
	"github.com/Carmen-Shannon/oxy-fx/engine/postprocessing/pass"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/material"
	"github.com/cogentcore/webgpu/wgpu"
)

// stencilAll compares every stencil bit.
const stencilAll uint32 = 0xFFFFFFFF

// composer is the implementation of the Composer interface.
type composer struct {
	mu *sync.Mutex

	r      renderer.Renderer
	input  renderer.RenderTarget
	output renderer.RenderTarget
	passes []pass.Pass

	depthBuffer     bool
	stencilBuffer   bool
	frameBufferType common.PixelType
	samples         int

	depthTexture   renderer.DepthTexture
	depthConsumers map[pass.Pass]bool

	autoRenderToScreen bool
	mainScene          renderer.Scene
	mainCamera         camera.Camera

	copyMaterial material.Material
	timer        Timer
	observer     func(name string, d time.Duration)
	disposed     bool
}

// Composer runs an ordered list of passes once per frame. Each enabled pass reads the input
// buffer; passes that declare NeedsSwap write into the output buffer, after which the buffers
// trade places for the next pass. Between a MaskPass and a ClearMaskPass the pixels outside the
// mask are copied across before every swap so they survive the bracket.
type Composer interface {
	// Renderer retrieves the renderer the passes draw with.
	Renderer() renderer.Renderer

	// ReplaceRenderer swaps the renderer, keeps the screen size and re-initializes every pass.
	//
	// Parameters:
	//   - r: the new renderer
	//
	// Returns:
	//   - renderer.Renderer: the previous renderer
	//   - error: an error if a pass fails to initialize
	ReplaceRenderer(r renderer.Renderer) (renderer.Renderer, error)

	// InputBuffer retrieves the buffer the first pass of a frame reads.
	InputBuffer() renderer.RenderTarget

	// OutputBuffer retrieves the buffer the first swapping pass of a frame writes.
	OutputBuffer() renderer.RenderTarget

	// Passes retrieves the pass list in execution order.
	Passes() []pass.Pass

	// AddPass appends p, resizes and initializes it.
	//
	// Parameters:
	//   - p: the pass
	//
	// Returns:
	//   - error: an error if the pass fails to initialize
	AddPass(p pass.Pass) error

	// AddPassAt inserts p before the pass at index.
	//
	// Parameters:
	//   - p: the pass
	//   - index: the insertion index, at most len(Passes())
	//
	// Returns:
	//   - error: ErrPassIndex for an invalid index, or an initialization error
	AddPassAt(p pass.Pass, index int) error

	// RemovePass removes p without disposing it. Removing the last depth consumer releases the
	// shared depth texture.
	//
	// Parameters:
	//   - p: the pass
	//
	// Returns:
	//   - bool: true if p was in the list
	RemovePass(p pass.Pass) bool

	// RemoveAllPasses removes every pass without disposing them.
	RemoveAllPasses()

	// Render runs every enabled pass once.
	//
	// Parameters:
	//   - delta: the frame time in seconds; a negative value measures it with the Timer
	//
	// Returns:
	//   - error: the first pass error, wrapped with the pass name
	Render(delta float32) error

	// SetSize resizes the buffers and every pass to the drawing buffer size.
	//
	// Parameters:
	//   - width: the logical width
	//   - height: the logical height
	//   - updateRenderer: whether the renderer is resized too
	SetSize(width, height int, updateRenderer bool)

	// Size retrieves the size of the buffers.
	Size() common.Size

	// Reset disposes every pass and the buffers and starts over with fresh buffers.
	Reset()

	// SetMainScene hands scene to every pass that was not given one.
	SetMainScene(scene renderer.Scene)

	// SetMainCamera hands cam to every pass that was not given one.
	SetMainCamera(cam camera.Camera)

	// Multisampling retrieves the sample count of the buffers.
	Multisampling() int

	// SetMultisampling sets the sample count of the buffers, clamped by the renderer.
	SetMultisampling(samples int)

	// AutoRenderToScreen reports whether the last pass is flagged to render to the screen.
	AutoRenderToScreen() bool

	// SetAutoRenderToScreen sets whether the last pass is flagged to render to the screen.
	SetAutoRenderToScreen(auto bool)

	// DepthTexture retrieves the shared depth texture, or nil while no pass reads depth.
	DepthTexture() renderer.DepthTexture

	// Timer retrieves the timer used when Render is called with a negative delta.
	Timer() Timer

	// Dispose releases the buffers, the depth texture and every pass.
	Dispose()
}

var _ Composer = &composer{}

// NewComposer creates a composer drawing with r. The buffers are sized to the drawing buffer and
// have a depth buffer and no stencil unless configured otherwise.
//
// Parameters:
//   - r: the renderer
//   - options: ComposerBuilderOption functions to configure the composer
//
// Returns:
//   - Composer: the composer
//   - error: ErrNoRenderer when r is nil
func NewComposer(r renderer.Renderer, options ...ComposerBuilderOption) (Composer, error) {
	if r == nil {
		return nil, ErrNoRenderer
	}
	c := &composer{
		mu:                 &sync.Mutex{},
		r:                  r,
		depthBuffer:        true,
		frameBufferType:    common.PixelTypeUnsignedByte,
		depthConsumers:     make(map[pass.Pass]bool),
		autoRenderToScreen: true,
		copyMaterial:       material.NewCopyMaterial(),
		timer:              NewTimer(),
	}
	for _, opt := range options {
		opt(c)
	}
	c.input = c.createBuffer("Composer.Buffer0")
	c.output = c.createBuffer("Composer.Buffer1")
	return c, nil
}

// createBuffer allocates a ping-pong buffer sized to the drawing buffer. 8-bit buffers follow the
// screen encoding.
func (c *composer) createBuffer(name string) renderer.RenderTarget {
	size := c.r.DrawingBufferSize()
	cs := common.ColorSpaceLinear
	if c.frameBufferType == common.PixelTypeUnsignedByte && c.r.OutputColorSpace() == common.ColorSpaceSRGB {
		cs = common.ColorSpaceSRGB
	}
	return renderer.NewRenderTarget(size.Width, size.Height,
		renderer.WithTargetName(name),
		renderer.WithDepthBuffer(c.depthBuffer),
		renderer.WithStencilBuffer(c.stencilBuffer),
		renderer.WithPixelType(c.frameBufferType),
		renderer.WithColorSpace(cs),
		renderer.WithSamples(c.samples),
	)
}

func (c *composer) Renderer() renderer.Renderer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.r
}

func (c *composer) ReplaceRenderer(r renderer.Renderer) (renderer.Renderer, error) {
	c.mu.Lock()
	old := c.r
	if r == nil || r == old {
		c.mu.Unlock()
		return old, nil
	}
	c.r = r
	passes := slices.Clone(c.passes)
	frameBufferType := c.frameBufferType
	c.mu.Unlock()

	size := old.Size()
	r.SetPixelRatio(old.PixelRatio())
	r.SetSize(size.Width, size.Height)
	for _, p := range passes {
		if err := p.Initialize(r, r.AlphaSupported(), frameBufferType); err != nil {
			return old, fmt.Errorf("postprocessing: initialize %s: %w", p.Name(), err)
		}
	}
	common.Logger().Info("composer renderer replaced", "passes", len(passes), "width", size.Width, "height", size.Height)
	return old, nil
}

func (c *composer) InputBuffer() renderer.RenderTarget {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

func (c *composer) OutputBuffer() renderer.RenderTarget {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.output
}

func (c *composer) Passes() []pass.Pass {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.passes)
}

func (c *composer) AddPass(p pass.Pass) error {
	c.mu.Lock()
	n := len(c.passes)
	c.mu.Unlock()
	return c.AddPassAt(p, n)
}

func (c *composer) AddPassAt(p pass.Pass, index int) error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrComposerDisposed
	}
	if index < 0 || index > len(c.passes) {
		c.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrPassIndex, index)
	}
	r, scene, cam, frameBufferType := c.r, c.mainScene, c.mainCamera, c.frameBufferType
	size := c.input.Size()

	if c.autoRenderToScreen {
		if len(c.passes) > 0 && index == len(c.passes) {
			c.passes[len(c.passes)-1].SetRenderToScreen(false)
		}
		if p.RenderToScreen() {
			c.autoRenderToScreen = false
		}
	}
	c.passes = slices.Insert(c.passes, index, p)
	if c.autoRenderToScreen {
		c.passes[len(c.passes)-1].SetRenderToScreen(true)
	}
	c.mu.Unlock()

	if scene != nil {
		p.SetMainScene(scene)
	}
	if cam != nil {
		p.SetMainCamera(cam)
	}
	p.SetSize(size.Width, size.Height)
	if err := p.Initialize(r, r.AlphaSupported(), frameBufferType); err != nil {
		return fmt.Errorf("postprocessing: initialize %s: %w", p.Name(), err)
	}
	if p.NeedsDepthTexture() {
		c.acquireDepth(p)
	}
	return nil
}

func (c *composer) RemovePass(p pass.Pass) bool {
	c.mu.Lock()
	i := slices.Index(c.passes, p)
	if i < 0 {
		c.mu.Unlock()
		return false
	}
	c.passes = slices.Delete(c.passes, i, i+1)
	if c.autoRenderToScreen && p.RenderToScreen() {
		p.SetRenderToScreen(false)
		if len(c.passes) > 0 {
			c.passes[len(c.passes)-1].SetRenderToScreen(true)
		}
	}
	c.mu.Unlock()

	c.releaseDepth(p)
	return true
}

func (c *composer) RemoveAllPasses() {
	for _, p := range c.Passes() {
		c.RemovePass(p)
	}
}

// acquireDepth registers p as a depth consumer, creating the shared depth texture for the first one.
func (c *composer) acquireDepth(p pass.Pass) {
	c.mu.Lock()
	if c.depthConsumers[p] {
		c.mu.Unlock()
		return
	}
	c.depthConsumers[p] = true
	t := c.depthTexture
	created := t == nil
	if created {
		size := c.input.Size()
		t = renderer.NewDepthTexture(size.Width, size.Height, c.stencilBuffer)
		c.depthTexture = t
		c.input.SetDepthTexture(t)
	}
	consumers := make([]pass.Pass, 0, len(c.depthConsumers))
	for _, q := range c.passes {
		if c.depthConsumers[q] {
			consumers = append(consumers, q)
		}
	}
	c.mu.Unlock()

	if !created {
		p.SetDepthTexture(t)
		return
	}
	common.Logger().Debug("composer depth texture created", "consumer", p.Name())
	for _, q := range consumers {
		q.SetDepthTexture(t)
	}
}

// releaseDepth unregisters p and releases the shared depth texture once nobody reads it.
func (c *composer) releaseDepth(p pass.Pass) {
	c.mu.Lock()
	if !c.depthConsumers[p] {
		c.mu.Unlock()
		return
	}
	delete(c.depthConsumers, p)
	var t renderer.DepthTexture
	if len(c.depthConsumers) == 0 {
		t = c.depthTexture
		c.depthTexture = nil
		c.input.SetDepthTexture(nil)
	}
	c.mu.Unlock()

	p.SetDepthTexture(nil)
	if t != nil {
		t.Dispose()
		common.Logger().Debug("composer depth texture released", "consumer", p.Name())
	}
}

// syncDepth reconciles the consumer set with the current NeedsDepthTexture flags.
func (c *composer) syncDepth(passes []pass.Pass) {
	for _, p := range passes {
		c.mu.Lock()
		registered := c.depthConsumers[p]
		c.mu.Unlock()
		switch needs := p.NeedsDepthTexture(); {
		case needs && !registered:
			c.acquireDepth(p)
		case !needs && registered:
			c.releaseDepth(p)
		}
	}
}

func (c *composer) Render(delta float32) error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrComposerDisposed
	}
	r, input, output := c.r, c.input, c.output
	passes := slices.Clone(c.passes)
	observer := c.observer
	c.mu.Unlock()

	if delta < 0 {
		c.timer.Update()
		delta = c.timer.Delta()
	}
	c.syncDepth(passes)

	stencilTest := false
	for _, p := range passes {
		if !p.Enabled() {
			continue
		}
		start := time.Now()
		if err := p.Render(r, input, output, delta, stencilTest); err != nil {
			return fmt.Errorf("postprocessing: %s: %w", p.Name(), err)
		}
		if p.NeedsSwap() {
			if stencilTest {
				if err := c.copyUnmasked(r, input, output, p.RenderToScreen()); err != nil {
					return fmt.Errorf("postprocessing: stencil copy after %s: %w", p.Name(), err)
				}
			}
			input, output = output, input
		}
		if m, ok := p.(pass.StencilMasker); ok {
			stencilTest = m.MasksStencil()
		}
		if observer != nil {
			observer(p.Name(), time.Since(start))
		}
	}
	return nil
}

// copyUnmasked copies input into output wherever the stencil mask is not set, so the pixels
// outside an active mask bracket survive the swap.
func (c *composer) copyUnmasked(r renderer.Renderer, input, output renderer.RenderTarget, toScreen bool) error {
	s := r.State()
	fn, ref, mask := s.Stencil.Func()
	s.Stencil.SetFunc(wgpu.CompareFunctionNotEqual, 1, stencilAll)
	defer s.Stencil.SetFunc(fn, ref, mask)

	c.copyMaterial.Uniform(material.UniformInputBuffer).SetTexture(input.Texture())
	if toScreen {
		output = nil
	}
	r.SetRenderTarget(output)
	return r.DrawFullscreen(c.copyMaterial)
}

func (c *composer) SetSize(width, height int, updateRenderer bool) {
	c.mu.Lock()
	r := c.r
	c.mu.Unlock()

	var size common.Size
	if updateRenderer {
		if cur := r.Size(); cur.Width != width || cur.Height != height {
			r.SetSize(width, height)
		}
		size = r.DrawingBufferSize()
	} else {
		ratio := r.PixelRatio()
		size = common.Size{
			Width:  max(common.RoundInt(float32(width)*ratio), 1),
			Height: max(common.RoundInt(float32(height)*ratio), 1),
		}
	}

	c.mu.Lock()
	c.input.SetSize(size.Width, size.Height)
	c.output.SetSize(size.Width, size.Height)
	passes := slices.Clone(c.passes)
	c.mu.Unlock()

	for _, p := range passes {
		p.SetSize(size.Width, size.Height)
	}
}

func (c *composer) Size() common.Size {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input.Size()
}

func (c *composer) Reset() {
	c.mu.Lock()
	auto := c.autoRenderToScreen
	c.mu.Unlock()

	c.release()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.autoRenderToScreen = auto
	c.disposed = false
	c.input = c.createBuffer("Composer.Buffer0")
	c.output = c.createBuffer("Composer.Buffer1")
	c.timer.Reset()
}

func (c *composer) SetMainScene(scene renderer.Scene) {
	c.mu.Lock()
	c.mainScene = scene
	passes := slices.Clone(c.passes)
	c.mu.Unlock()
	for _, p := range passes {
		p.SetMainScene(scene)
	}
}

func (c *composer) SetMainCamera(cam camera.Camera) {
	c.mu.Lock()
	c.mainCamera = cam
	passes := slices.Clone(c.passes)
	c.mu.Unlock()
	for _, p := range passes {
		p.SetMainCamera(cam)
	}
}

func (c *composer) Multisampling() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.samples
}

func (c *composer) SetMultisampling(samples int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.samples = max(samples, 0)
	c.input.SetSamples(c.samples)
	c.output.SetSamples(c.samples)
}

func (c *composer) AutoRenderToScreen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.autoRenderToScreen
}

func (c *composer) SetAutoRenderToScreen(auto bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autoRenderToScreen = auto
	if auto && len(c.passes) > 0 {
		for _, p := range c.passes[:len(c.passes)-1] {
			p.SetRenderToScreen(false)
		}
		c.passes[len(c.passes)-1].SetRenderToScreen(true)
	}
}

func (c *composer) DepthTexture() renderer.DepthTexture {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.depthTexture
}

func (c *composer) Timer() Timer {
	return c.timer
}

func (c *composer) Dispose() {
	c.release()
	c.copyMaterial.Dispose()
}

// release disposes the passes, the buffers and the depth texture.
func (c *composer) release() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	passes := c.passes
	c.passes = nil
	depth := c.depthTexture
	c.depthTexture = nil
	c.depthConsumers = make(map[pass.Pass]bool)
	input, output := c.input, c.output
	c.mu.Unlock()

	for _, p := range passes {
		p.SetDepthTexture(nil)
		p.Dispose()
	}
	input.SetDepthTexture(nil)
	input.Dispose()
	output.Dispose()
	if depth != nil {
		depth.Dispose()
	}
}
