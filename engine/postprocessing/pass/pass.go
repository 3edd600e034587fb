// Package pass contains the units of work scheduled by the post-processing composer. A pass reads
// the composer's input buffer and either writes into the output buffer, in which case it sets
// NeedsSwap so the composer swaps the buffers afterwards, or only changes renderer state or a
// target of its own.
package pass

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/camera"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer"
)

// Pass defines the contract between the composer and a unit of post-processing work.
type Pass interface {
	// Name retrieves the debug name of the pass.
	Name() string

	// Enabled reports whether the composer runs the pass.
	Enabled() bool

	// SetEnabled enables or disables the pass.
	SetEnabled(enabled bool)

	// NeedsSwap reports whether Render writes its result into the output buffer.
	NeedsSwap() bool

	// SetNeedsSwap overrides whether the composer swaps buffers after the pass.
	SetNeedsSwap(needsSwap bool)

	// NeedsDepthTexture reports whether the pass reads the shared scene depth texture.
	NeedsDepthTexture() bool

	// DepthTexture retrieves the depth texture handed to the pass, or nil.
	DepthTexture() renderer.DepthTexture

	// SetDepthTexture hands the shared depth texture to the pass. Nil revokes it.
	SetDepthTexture(t renderer.DepthTexture)

	// RenderToScreen reports whether the pass draws to the screen instead of the output buffer.
	RenderToScreen() bool

	// SetRenderToScreen sets whether the pass draws to the screen.
	SetRenderToScreen(renderToScreen bool)

	// SetMainScene sets the scene used by passes that were not given one explicitly.
	SetMainScene(scene renderer.Scene)

	// SetMainCamera sets the camera used by passes that were not given one explicitly.
	SetMainCamera(cam camera.Camera)

	// Render runs the pass.
	//
	// Parameters:
	//   - r: the renderer
	//   - input: the buffer holding the current image
	//   - output: the buffer to write to when NeedsSwap is true
	//   - delta: the frame time in seconds
	//   - stencilTest: whether a stencil mask bracket is active
	//
	// Returns:
	//   - error: an error if drawing fails
	Render(r renderer.Renderer, input, output renderer.RenderTarget, delta float32, stencilTest bool) error

	// SetSize resizes the pass-local targets to the drawing buffer size.
	//
	// Parameters:
	//   - width: the drawing buffer width
	//   - height: the drawing buffer height
	SetSize(width, height int)

	// Initialize performs one-time setup once the owning composer is known.
	//
	// Parameters:
	//   - r: the renderer
	//   - alpha: whether the screen keeps alpha
	//   - frameBufferType: the pixel type of the composer buffers
	//
	// Returns:
	//   - error: an error if the pass cannot be set up
	Initialize(r renderer.Renderer, alpha bool, frameBufferType common.PixelType) error

	// Dispose releases the targets and materials owned by the pass.
	Dispose()
}

// StencilMasker is implemented by passes that open or close a stencil mask bracket.
// The composer threads the resulting state into every following Render call.
type StencilMasker interface {
	// MasksStencil reports whether the bracket is active after the pass ran.
	MasksStencil() bool
}

// Blur is a multi-pass blur that can be driven directly by an effect. Blur renders the blurred
// input into a target of its own and returns the texture holding the result.
type Blur interface {
	Pass

	// Blur blurs input.
	//
	// Parameters:
	//   - r: the renderer
	//   - input: the target to blur
	//
	// Returns:
	//   - common.Texture: the blurred image
	//   - error: an error if drawing fails
	Blur(r renderer.Renderer, input renderer.RenderTarget) (common.Texture, error)

	// Texture retrieves the texture Blur writes its result to.
	Texture() common.Texture
}

// Disposable is a resource released together with the pass that owns it.
type Disposable interface {
	Dispose()
}

// Base holds the state shared by every pass. Concrete passes embed a *Base and implement Render.
type Base struct {
	mu *sync.Mutex

	name              string
	enabled           bool
	needsSwap         bool
	needsDepthTexture bool
	renderToScreen    bool
	depthTexture      renderer.DepthTexture

	scene      renderer.Scene
	cam        camera.Camera
	mainScene  renderer.Scene
	mainCamera camera.Camera

	owned []Disposable
}

// NewBase creates the shared pass state. The pass starts enabled with NeedsSwap set.
//
// Parameters:
//   - name: the debug name
//   - scene: the scene the pass draws, or nil to use the main scene
//   - cam: the camera the pass uses, or nil to use the main camera
//
// Returns:
//   - *Base: the pass state
func NewBase(name string, scene renderer.Scene, cam camera.Camera) *Base {
	return &Base{
		mu:        &sync.Mutex{},
		name:      name,
		enabled:   true,
		needsSwap: true,
		scene:     scene,
		cam:       cam,
	}
}

func (b *Base) Name() string {
	return b.name
}

func (b *Base) Enabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enabled
}

func (b *Base) SetEnabled(enabled bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enabled = enabled
}

func (b *Base) NeedsSwap() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.needsSwap
}

func (b *Base) SetNeedsSwap(needsSwap bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.needsSwap = needsSwap
}

func (b *Base) NeedsDepthTexture() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.needsDepthTexture
}

// SetNeedsDepthTexture declares whether the pass reads the shared depth texture. The composer
// reads the flag when the pass is added.
func (b *Base) SetNeedsDepthTexture(needs bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.needsDepthTexture = needs
}

func (b *Base) DepthTexture() renderer.DepthTexture {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.depthTexture
}

func (b *Base) SetDepthTexture(t renderer.DepthTexture) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.depthTexture = t
}

func (b *Base) RenderToScreen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.renderToScreen
}

func (b *Base) SetRenderToScreen(renderToScreen bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.renderToScreen = renderToScreen
}

func (b *Base) SetMainScene(scene renderer.Scene) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mainScene = scene
}

func (b *Base) SetMainCamera(cam camera.Camera) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mainCamera = cam
}

// Scene retrieves the scene given at construction, or the main scene.
func (b *Base) Scene() renderer.Scene {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.scene != nil {
		return b.scene
	}
	return b.mainScene
}

// Camera retrieves the camera given at construction, or the main camera.
func (b *Base) Camera() camera.Camera {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cam != nil {
		return b.cam
	}
	return b.mainCamera
}

// Destination returns nil when the pass renders to the screen and target otherwise.
//
// Parameters:
//   - target: the off-screen destination
//
// Returns:
//   - renderer.RenderTarget: the target to select
func (b *Base) Destination(target renderer.RenderTarget) renderer.RenderTarget {
	if b.RenderToScreen() {
		return nil
	}
	return target
}

// Own registers resources released by Dispose.
func (b *Base) Own(resources ...Disposable) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.owned = append(b.owned, resources...)
}

func (b *Base) SetSize(width, height int) {}

func (b *Base) Initialize(renderer.Renderer, bool, common.PixelType) error {
	return nil
}

func (b *Base) Dispose() {
	b.mu.Lock()
	owned := b.owned
	b.owned = nil
	b.mu.Unlock()
	for _, d := range owned {
		d.Dispose()
	}
}

// resizeFunc adapts a function to resolution.Resizable.
type resizeFunc func(width, height int)

func (f resizeFunc) SetSize(width, height int) {
	f(width, height)
}

// targetFormat returns the pixel type and color space of pass-local targets. 8-bit targets follow
// the screen encoding.
func targetFormat(r renderer.Renderer, frameBufferType common.PixelType) (common.PixelType, common.ColorSpace) {
	if frameBufferType == common.PixelTypeUnsignedByte && r.OutputColorSpace() == common.ColorSpaceSRGB {
		return frameBufferType, common.ColorSpaceSRGB
	}
	return frameBufferType, common.ColorSpaceLinear
}

// newLocalTarget creates a color-only target owned by a pass.
func newLocalTarget(name string, size common.Size, pixelType common.PixelType, cs common.ColorSpace) renderer.RenderTarget {
	return renderer.NewRenderTarget(size.Width, size.Height,
		renderer.WithTargetName(name),
		renderer.WithDepthBuffer(false),
		renderer.WithPixelType(pixelType),
		renderer.WithColorSpace(cs),
	)
}
