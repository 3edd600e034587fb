package renderer

import (
	"fmt"
	"image"
	"sync"

	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/camera"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/material"
	"github.com/anthonynsimon/bild/clone"
	"github.com/chewxy/math32"
	"github.com/cogentcore/webgpu/wgpu"
)

// Surface is the window the wgpu backend presents into.
type Surface interface {
	SurfaceDescriptor() *wgpu.SurfaceDescriptor
	Width() int
	Height() int
}

// RenderInfo counts the work submitted since the renderer was created.
type RenderInfo struct {
	Draws  uint64
	Clears uint64
	Frames uint64
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	backendType RendererBackendType
	backend     RendererBackend
	state       *State

	target *renderTarget
	face   int

	width            int
	height           int
	pixelRatio       float32
	clearColor       common.Color
	outputColorSpace common.ColorSpace
	alpha            bool

	lost     bool
	disposed bool
	info     RenderInfo

	// Pre-creation config collected from builder options
	surface              Surface
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
	pendingMSAA          *MSAASampleCount
}

// Renderer defines the interface for the rendering system consumed by the post-processing pipeline.
//
// The Renderer owns the fixed-function State, the current render target and the screen. Drawing
// calls resolve the state into the backend, which allocates target storage lazily. Render targets
// and depth textures are created with NewRenderTarget and NewDepthTexture and work with any backend.
type Renderer interface {
	// BackendType retrieves the backend implementation in use.
	//
	// Returns:
	//   - RendererBackendType: the backend type
	BackendType() RendererBackendType

	// Capabilities reports what the backend supports.
	//
	// Returns:
	//   - Capabilities: the backend limits
	Capabilities() Capabilities

	// State retrieves the fixed-function state cache.
	//
	// Returns:
	//   - *State: the state
	State() *State

	// SetRenderTarget selects the target subsequent draws write to. Nil selects the screen.
	// Multisample counts above Capabilities().MaxSamples are clamped and float targets fall back
	// to half float when unsupported, each with a one-time warning.
	//
	// Parameters:
	//   - target: the render target, or nil
	SetRenderTarget(target RenderTarget)

	// SetRenderTargetFace selects a target and the cube face and mip level to draw into.
	//
	// Parameters:
	//   - target: the render target, or nil
	//   - face: the cube face, 0 for 2D targets
	//   - mip: the mip level, must be 0
	//
	// Returns:
	//   - error: ErrCubeTarget for a nonzero face on a 2D target, ErrMipLevel for a nonzero mip level
	SetRenderTargetFace(target RenderTarget, face, mip int) error

	// RenderTarget retrieves the current target, or nil for the screen.
	//
	// Returns:
	//   - RenderTarget: the current target
	RenderTarget() RenderTarget

	// Render draws the scene as seen by cam into the current target. Render never clears, except
	// that a scene background clears color and depth to the background color first.
	//
	// Parameters:
	//   - scene: the scene to draw
	//   - cam: the viewing camera
	//
	// Returns:
	//   - error: an error if the renderer cannot draw
	Render(scene Scene, cam camera.Camera) error

	// DrawFullscreen applies the material's render state and draws a full-screen triangle with it.
	//
	// Parameters:
	//   - m: the material
	//
	// Returns:
	//   - error: an error if the renderer cannot draw or the material fails to compile
	DrawFullscreen(m material.Material) error

	// Clear clears the selected attachments of the current target to the clear values of the State
	// and the clear color. Masked attachments are left untouched.
	//
	// Parameters:
	//   - color: clear the color attachment
	//   - depth: clear the depth attachment
	//   - stencil: clear the stencil attachment
	//
	// Returns:
	//   - error: an error if the renderer cannot draw
	Clear(color, depth, stencil bool) error

	// ClearColor retrieves the color used by Clear, alpha included.
	ClearColor() common.Color

	// SetClearColor sets the color used by Clear.
	SetClearColor(c common.Color)

	// Size retrieves the logical screen size.
	Size() common.Size

	// SetSize sets the logical screen size and resizes the drawing buffer.
	//
	// Parameters:
	//   - width: the logical width
	//   - height: the logical height
	SetSize(width, height int)

	// PixelRatio retrieves the ratio of drawing buffer pixels to logical pixels.
	PixelRatio() float32

	// SetPixelRatio sets the pixel ratio and resizes the drawing buffer.
	SetPixelRatio(ratio float32)

	// DrawingBufferSize retrieves the screen size in physical pixels.
	DrawingBufferSize() common.Size

	// OutputColorSpace retrieves the encoding of the screen.
	OutputColorSpace() common.ColorSpace

	// SetOutputColorSpace sets the encoding of the screen.
	SetOutputColorSpace(cs common.ColorSpace)

	// AlphaSupported reports whether the screen keeps an alpha channel.
	AlphaSupported() bool

	// ReadPixels synchronously reads a target back as 8-bit RGBA encoded in the target's color
	// space. Pix holds the stored channel values without premultiplication. Nil reads the screen.
	//
	// Parameters:
	//   - target: the render target, or nil
	//
	// Returns:
	//   - *image.RGBA: the pixels
	//   - error: an error if the target cannot be read
	ReadPixels(target RenderTarget) (*image.RGBA, error)

	// ReadDepth synchronously reads the depth values of a target, row-major from the top left.
	//
	// Parameters:
	//   - target: the render target, or nil
	//
	// Returns:
	//   - []float32: the depth values
	//   - error: an error if the target has no depth storage
	ReadDepth(target RenderTarget) ([]float32, error)

	// UploadImage creates an sRGB texture holding img.
	//
	// Parameters:
	//   - name: the texture name
	//   - img: the image
	//
	// Returns:
	//   - common.Texture: the texture
	//   - error: an error if the image is empty
	UploadImage(name string, img image.Image) (common.Texture, error)

	// Present displays the screen.
	//
	// Returns:
	//   - error: an error if presentation fails
	Present() error

	// Lose simulates a context loss. Every allocation is freed and drawing fails with
	// ErrContextLost until Restore.
	Lose()

	// Restore recovers from Lose. Textures are reallocated lazily with undefined contents and the
	// State is reset.
	Restore()

	// Lost reports whether the context is lost.
	Lost() bool

	// Info retrieves the draw counters.
	Info() RenderInfo

	// Dispose releases the backend. Drawing fails with ErrDisposed afterwards.
	Dispose()
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer with the specified backend. The wgpu backend presents into
// the surface given with WithSurface, or renders off-screen without one.
//
// Parameters:
//   - backendType: the type of rendering backend to use
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: the renderer
//   - error: an error if the backend cannot be created
func NewRenderer(backendType RendererBackendType, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:               &sync.Mutex{},
		backendType:      backendType,
		state:            NewState(),
		width:            1,
		height:           1,
		pixelRatio:       1,
		clearColor:       common.Color{0, 0, 0, 1},
		outputColorSpace: common.ColorSpaceSRGB,
		alpha:            true,
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}
	if r.surface != nil && r.width <= 1 && r.height <= 1 {
		r.width, r.height = r.surface.Width(), r.surface.Height()
	}

	switch backendType {
	case BackendTypeHeadless:
		hb := newHeadlessRendererBackend()
		hb.SetOutputColorSpace(r.outputColorSpace)
		r.backend = hb
	case BackendTypeWGPU:
		var desc *wgpu.SurfaceDescriptor
		if r.surface != nil {
			desc = r.surface.SurfaceDescriptor()
		}
		wb, err := newWGPURendererBackend(desc, r.forceFallbackAdapter)
		if err != nil {
			return nil, fmt.Errorf("renderer: create wgpu backend: %w", err)
		}
		wb.SetOutputColorSpace(r.outputColorSpace)
		r.backend = wb
	default:
		return nil, fmt.Errorf("renderer: unknown backend type %d", backendType)
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}
	size := r.drawingBufferSize()
	r.backend.ConfigureSurface(size.Width, size.Height)

	common.Logger().Info("renderer created",
		"backend", backendType.String(),
		"width", size.Width,
		"height", size.Height)
	return r, nil
}

func (r *renderer) BackendType() RendererBackendType {
	return r.backendType
}

func (r *renderer) Capabilities() Capabilities {
	caps := r.backend.Capabilities()
	if r.pendingMSAA != nil {
		caps.MaxSamples = min(caps.MaxSamples, int(*r.pendingMSAA))
	}
	return caps
}

func (r *renderer) State() *State {
	return r.state
}

func (r *renderer) SetRenderTarget(target RenderTarget) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.target = asTarget(target)
	r.face = 0
	r.prepareTarget(r.target)
}

func (r *renderer) SetRenderTargetFace(target RenderTarget, face, mip int) error {
	rt := asTarget(target)
	if mip != 0 {
		return fmt.Errorf("%w: level %d", ErrMipLevel, mip)
	}
	if face != 0 && (rt == nil || !rt.cube) {
		return fmt.Errorf("%w: face %d", ErrCubeTarget, face)
	}
	if face < 0 || face >= CubeFaces {
		return fmt.Errorf("%w: face %d out of range", ErrCubeTarget, face)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.target = rt
	r.face = face
	r.prepareTarget(rt)
	return nil
}

func (r *renderer) RenderTarget() RenderTarget {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.target == nil {
		return nil
	}
	return r.target
}

func (r *renderer) Render(scene Scene, cam camera.Camera) error {
	dst, err := r.destination()
	if err != nil {
		return err
	}
	if bg := scene.Background(); bg != nil {
		c := *bg
		if err := r.clear(dst, &c, true, true, false); err != nil {
			return err
		}
	}

	rs := material.SceneRenderState()
	r.state.ApplyRenderState(&rs)
	if err := r.backend.DrawQuads(dst, scene.Quads(cam), r.state.snapshot(material.BlendingNone)); err != nil {
		return err
	}
	r.count(func(info *RenderInfo) { info.Draws++ })
	return nil
}

func (r *renderer) DrawFullscreen(m material.Material) error {
	dst, err := r.destination()
	if err != nil {
		return err
	}
	if m.Disposed() {
		return fmt.Errorf("renderer: material %q has been disposed", m.Name())
	}
	rs := m.RenderState()
	r.state.ApplyRenderState(rs)
	if err := r.backend.DrawFullscreen(dst, m, r.state.snapshot(rs.Blending)); err != nil {
		return err
	}
	r.count(func(info *RenderInfo) { info.Draws++ })
	return nil
}

func (r *renderer) Clear(color, depth, stencil bool) error {
	dst, err := r.destination()
	if err != nil {
		return err
	}
	return r.clear(dst, nil, color, depth, stencil)
}

func (r *renderer) ClearColor() common.Color {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clearColor
}

func (r *renderer) SetClearColor(c common.Color) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearColor = c
}

func (r *renderer) Size() common.Size {
	r.mu.Lock()
	defer r.mu.Unlock()
	return common.Size{Width: r.width, Height: r.height}
}

func (r *renderer) SetSize(width, height int) {
	r.mu.Lock()
	r.width, r.height = max(width, 1), max(height, 1)
	size := r.drawingBufferSize()
	r.mu.Unlock()
	r.backend.ConfigureSurface(size.Width, size.Height)
}

func (r *renderer) PixelRatio() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pixelRatio
}

func (r *renderer) SetPixelRatio(ratio float32) {
	r.mu.Lock()
	if ratio <= 0 {
		ratio = 1
	}
	r.pixelRatio = ratio
	size := r.drawingBufferSize()
	r.mu.Unlock()
	r.backend.ConfigureSurface(size.Width, size.Height)
}

func (r *renderer) DrawingBufferSize() common.Size {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.drawingBufferSize()
}

func (r *renderer) OutputColorSpace() common.ColorSpace {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outputColorSpace
}

func (r *renderer) SetOutputColorSpace(cs common.ColorSpace) {
	r.mu.Lock()
	r.outputColorSpace = cs
	r.mu.Unlock()
	if cb, ok := r.backend.(interface{ SetOutputColorSpace(common.ColorSpace) }); ok {
		cb.SetOutputColorSpace(cs)
	}
}

func (r *renderer) AlphaSupported() bool {
	return r.alpha
}

func (r *renderer) ReadPixels(target RenderTarget) (*image.RGBA, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	return r.backend.ReadPixels(destination{target: asTarget(target)})
}

func (r *renderer) ReadDepth(target RenderTarget) ([]float32, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	return r.backend.ReadDepth(destination{target: asTarget(target)})
}

func (r *renderer) UploadImage(name string, img image.Image) (common.Texture, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("renderer: upload %q: empty image", name)
	}
	rgba := clone.AsRGBA(img)
	b := rgba.Bounds()
	t := newTexture(name, b.Dx(), b.Dy(), common.TextureKindColor)
	t.colorSpace = common.ColorSpaceSRGB
	t.source = rgba
	return t, nil
}

func (r *renderer) Present() error {
	if err := r.ready(); err != nil {
		return err
	}
	if err := r.backend.Present(); err != nil {
		return err
	}
	r.count(func(info *RenderInfo) { info.Frames++ })
	return nil
}

func (r *renderer) Lose() {
	r.mu.Lock()
	if r.lost || r.disposed {
		r.mu.Unlock()
		return
	}
	r.lost = true
	r.mu.Unlock()
	r.backend.ReleaseResources()
	common.Logger().Warn("renderer context lost", "backend", r.backendType.String())
}

func (r *renderer) Restore() {
	r.mu.Lock()
	if !r.lost || r.disposed {
		r.mu.Unlock()
		return
	}
	r.lost = false
	size := r.drawingBufferSize()
	r.mu.Unlock()
	r.state.Reset()
	r.backend.ConfigureSurface(size.Width, size.Height)
	common.Logger().Info("renderer context restored", "backend", r.backendType.String())
}

func (r *renderer) Lost() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lost
}

func (r *renderer) Info() RenderInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.info
}

func (r *renderer) Dispose() {
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		return
	}
	r.disposed = true
	r.mu.Unlock()
	r.backend.Release()
}

// ready reports why the renderer cannot draw, if it cannot.
func (r *renderer) ready() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case r.disposed:
		return ErrDisposed
	case r.lost:
		return ErrContextLost
	}
	return nil
}

// destination resolves the current target for a draw.
func (r *renderer) destination() (destination, error) {
	if err := r.ready(); err != nil {
		return destination{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.target != nil && r.target.Disposed() {
		return destination{}, fmt.Errorf("%w: %s", ErrTargetDisposed, r.target.name)
	}
	return destination{target: r.target, face: r.face}, nil
}

// clear clears dst honoring the masks of the State. A nil color uses the clear color.
func (r *renderer) clear(dst destination, color *common.Color, clearColor, depth, stencil bool) error {
	op := clearOp{stencilWriteMask: r.state.Stencil.Mask()}
	if clearColor && r.state.Color.Mask() {
		c := r.ClearColor()
		if color != nil {
			c = *color
		}
		op.color = &c
	}
	if depth && r.state.Depth.Mask() {
		d := r.state.Depth.ClearValue()
		op.depth = &d
	}
	if stencil && op.stencilWriteMask != 0 {
		s := r.state.Stencil.ClearValue()
		op.stencil = &s
	}
	if op.color == nil && op.depth == nil && op.stencil == nil {
		return nil
	}
	if err := r.backend.Clear(dst, op); err != nil {
		return err
	}
	r.count(func(info *RenderInfo) { info.Clears++ })
	return nil
}

// prepareTarget applies capability fallbacks to a target before it is drawn into. Requires mu.
func (r *renderer) prepareTarget(rt *renderTarget) {
	if rt == nil {
		return
	}
	caps := r.Capabilities()
	if s := rt.Samples(); s > caps.MaxSamples {
		common.WarnOnce(common.WarnKey("samples", rt.name),
			"multisample count not supported, clamping",
			"target", rt.name, "requested", s, "max", caps.MaxSamples)
		rt.SetSamples(caps.MaxSamples)
	}
	if rt.PixelType() == common.PixelTypeFloat && !caps.FloatTextures {
		common.WarnOnce(common.WarnKey("float-target", rt.name),
			"float render targets not supported, using half float", "target", rt.name)
		rt.texture.setFormat(common.PixelTypeHalfFloat, rt.ColorSpace())
	}
}

// drawingBufferSize returns the physical screen size. Requires mu.
func (r *renderer) drawingBufferSize() common.Size {
	return common.Size{
		Width:  max(int(math32.Round(float32(r.width)*r.pixelRatio)), 1),
		Height: max(int(math32.Round(float32(r.height)*r.pixelRatio)), 1),
	}
}

func (r *renderer) count(fn func(info *RenderInfo)) {
	r.mu.Lock()
	fn(&r.info)
	r.mu.Unlock()
}
