package renderer

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-fx/common"
)

// CubeFaces is the number of faces of a cube render target.
const CubeFaces = 6

// renderTarget is the implementation of the RenderTarget interface.
type renderTarget struct {
	mu *sync.Mutex

	name          string
	width         int
	height        int
	texture       *texture
	depthBuffer   bool
	stencilBuffer bool
	depthTexture  *texture
	samples       int
	cube          bool
	disposed      bool

	// version changes whenever the internal depth-stencil storage must be reallocated.
	version uint64
}

// RenderTarget defines the interface for an off-screen color buffer with optional depth and
// stencil attachments. The color Texture handle is stable for the lifetime of the target, so
// materials can keep referencing it across resizes.
type RenderTarget interface {
	// Name retrieves the debug name of the target.
	//
	// Returns:
	//   - string: the target name
	Name() string

	// Width retrieves the width in pixels.
	Width() int

	// Height retrieves the height in pixels.
	Height() int

	// Size retrieves width and height.
	//
	// Returns:
	//   - common.Size: the target size
	Size() common.Size

	// SetSize resizes the target and its attached depth texture. The contents are lost.
	// Resizing to the current size is a no-op.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	SetSize(width, height int)

	// Texture retrieves the color texture.
	//
	// Returns:
	//   - common.Texture: the color texture
	Texture() common.Texture

	// DepthBuffer reports whether the target has depth storage, either internal or a depth texture.
	DepthBuffer() bool

	// StencilBuffer reports whether the target has stencil storage.
	StencilBuffer() bool

	// DepthTexture retrieves the attached depth texture, or nil.
	DepthTexture() DepthTexture

	// SetDepthTexture attaches a depth texture, replacing the internal depth buffer. The texture is
	// resized to the target. Nil detaches it.
	//
	// Parameters:
	//   - t: the depth texture, or nil
	SetDepthTexture(t DepthTexture)

	// Samples retrieves the requested multisample count, 0 when multisampling is off.
	Samples() int

	// SetSamples sets the multisample count. Backends clamp it to their maximum.
	//
	// Parameters:
	//   - samples: the sample count, 0 to disable multisampling
	SetSamples(samples int)

	// PixelType retrieves the color channel storage.
	PixelType() common.PixelType

	// ColorSpace retrieves the color encoding of the texture.
	ColorSpace() common.ColorSpace

	// SetColorSpace changes the color encoding of the texture.
	//
	// Parameters:
	//   - cs: the color space
	SetColorSpace(cs common.ColorSpace)

	// Cube reports whether the target is a cube map with six faces.
	Cube() bool

	// Clone creates a new target with the same size and configuration and no shared storage.
	// An attached depth texture is not cloned.
	//
	// Returns:
	//   - RenderTarget: the copy
	Clone() RenderTarget

	// Dispose releases the backend storage of the target and its color texture.
	Dispose()

	// Disposed reports whether Dispose was called.
	Disposed() bool
}

var _ RenderTarget = &renderTarget{}

// NewRenderTarget creates a render target. Backend storage is allocated on first use.
// By default the target has an 8-bit linear color buffer, a depth buffer, no stencil and no
// multisampling.
//
// Parameters:
//   - width: the width in pixels
//   - height: the height in pixels
//   - options: RenderTargetBuilderOption functions to configure the target
//
// Returns:
//   - RenderTarget: the render target
func NewRenderTarget(width, height int, options ...RenderTargetBuilderOption) RenderTarget {
	rt := &renderTarget{
		mu:          &sync.Mutex{},
		width:       max(width, 1),
		height:      max(height, 1),
		depthBuffer: true,
	}
	rt.texture = newTexture("", rt.width, rt.height, common.TextureKindColor)
	for _, opt := range options {
		opt(rt)
	}
	if rt.name == "" {
		rt.name = fmt.Sprintf("target-%d", rt.texture.id)
	}
	rt.texture.name = rt.name
	if rt.cube {
		rt.texture.setFaces(CubeFaces)
	}
	if rt.depthTexture != nil {
		rt.depthTexture.SetSize(rt.width, rt.height)
	}
	return rt
}

func (rt *renderTarget) Name() string {
	return rt.name
}

func (rt *renderTarget) Width() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.width
}

func (rt *renderTarget) Height() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.height
}

func (rt *renderTarget) Size() common.Size {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return common.Size{Width: rt.width, Height: rt.height}
}

func (rt *renderTarget) SetSize(width, height int) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	width, height = max(width, 1), max(height, 1)
	if rt.width == width && rt.height == height {
		return
	}
	rt.width = width
	rt.height = height
	rt.version++
	rt.texture.SetSize(width, height)
	if rt.depthTexture != nil {
		rt.depthTexture.SetSize(width, height)
	}
}

func (rt *renderTarget) Texture() common.Texture {
	return rt.texture
}

func (rt *renderTarget) DepthBuffer() bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.depthBuffer || rt.depthTexture != nil
}

func (rt *renderTarget) StencilBuffer() bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.depthTexture != nil {
		return rt.depthTexture.Stencil()
	}
	return rt.stencilBuffer
}

func (rt *renderTarget) DepthTexture() DepthTexture {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.depthTexture == nil {
		return nil
	}
	return rt.depthTexture
}

func (rt *renderTarget) SetDepthTexture(t DepthTexture) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	dt := asDepthTexture(t)
	if dt == rt.depthTexture {
		return
	}
	rt.depthTexture = dt
	rt.version++
	if dt != nil {
		dt.SetSize(rt.width, rt.height)
	}
}

func (rt *renderTarget) Samples() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.samples
}

func (rt *renderTarget) SetSamples(samples int) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	samples = max(samples, 0)
	if rt.samples == samples {
		return
	}
	rt.samples = samples
	rt.version++
}

func (rt *renderTarget) PixelType() common.PixelType {
	return rt.texture.PixelType()
}

func (rt *renderTarget) ColorSpace() common.ColorSpace {
	return rt.texture.ColorSpace()
}

func (rt *renderTarget) SetColorSpace(cs common.ColorSpace) {
	rt.texture.setFormat(rt.texture.PixelType(), cs)
}

func (rt *renderTarget) Cube() bool {
	return rt.cube
}

func (rt *renderTarget) Clone() RenderTarget {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return NewRenderTarget(rt.width, rt.height,
		WithTargetName(rt.name+"-clone"),
		WithDepthBuffer(rt.depthBuffer),
		WithStencilBuffer(rt.stencilBuffer),
		WithPixelType(rt.texture.PixelType()),
		WithColorSpace(rt.texture.ColorSpace()),
		WithSamples(rt.samples),
		WithCube(rt.cube),
	)
}

func (rt *renderTarget) Dispose() {
	rt.mu.Lock()
	rt.disposed = true
	rt.mu.Unlock()
	rt.texture.Dispose()
}

func (rt *renderTarget) Disposed() bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.disposed
}

// attachments returns a consistent view of the target's depth configuration.
func (rt *renderTarget) attachments() targetAttachments {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return targetAttachments{
		width:        rt.width,
		height:       rt.height,
		depth:        rt.depthBuffer,
		stencil:      rt.stencilBuffer,
		depthTexture: rt.depthTexture,
		samples:      rt.samples,
		version:      rt.version,
	}
}

// targetAttachments is a snapshot of the depth-stencil setup of a target.
type targetAttachments struct {
	width        int
	height       int
	depth        bool
	stencil      bool
	depthTexture *texture
	samples      int
	version      uint64
}

// asTarget resolves a RenderTarget to the renderer implementation, or nil.
func asTarget(t RenderTarget) *renderTarget {
	if t == nil {
		return nil
	}
	rt, _ := t.(*renderTarget)
	return rt
}

func asDepthTexture(t DepthTexture) *texture {
	if t == nil {
		return nil
	}
	tex, _ := t.(*texture)
	return tex
}
