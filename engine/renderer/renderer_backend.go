package renderer

import (
	"image"

	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/material"
)

// RendererBackendType identifies the backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU RendererBackendType = iota

	// BackendTypeHeadless selects the CPU rasterizer. It needs no GPU or window and executes
	// material kernels instead of WGSL.
	BackendTypeHeadless
)

// String returns the name of the backend type.
func (t RendererBackendType) String() string {
	switch t {
	case BackendTypeWGPU:
		return "wgpu"
	case BackendTypeHeadless:
		return "headless"
	default:
		return "unknown"
	}
}

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// MSAASampleCount controls the number of samples used for multisample anti-aliasing (MSAA).
// Only specific power-of-two values are valid for GPU hardware. WebGPU guarantees support for
// 1 (off) and 4; higher values (8, 16) are adapter-dependent and may not be available.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1).
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4× multisample anti-aliasing.
	MSAA4x MSAASampleCount = 4

	// MSAA8x enables 8× multisample anti-aliasing. Adapter-dependent; not all hardware supports this.
	MSAA8x MSAASampleCount = 8

	// MSAA16x enables 16× multisample anti-aliasing. Adapter-dependent; not all hardware supports this.
	MSAA16x MSAASampleCount = 16
)

// Capabilities reports what the active backend supports.
type Capabilities struct {
	// MaxSamples is the largest multisample count a render target may use.
	MaxSamples int

	// FloatTextures reports whether 32-bit float color targets are renderable and filterable.
	// Float targets fall back to half float otherwise.
	FloatTextures bool

	// DepthTextures reports whether depth attachments can be sampled.
	DepthTextures bool

	// MaxTextureSize is the largest texture dimension in pixels.
	MaxTextureSize int
}

// destination addresses the attachment a backend call writes to. A nil target is the screen.
type destination struct {
	target *renderTarget
	face   int
}

// RendererBackend is the backend interface behind the Renderer. The renderer resolves state and
// validates arguments; backends only allocate storage and execute draws.
type RendererBackend interface {
	// Capabilities reports the backend limits.
	Capabilities() Capabilities

	// ConfigureSurface resizes the screen to the drawing buffer size.
	//
	// Parameters:
	//   - width: the drawing buffer width in pixels
	//   - height: the drawing buffer height in pixels
	ConfigureSurface(width, height int)

	// SetPresentMode sets the surface present mode.
	SetPresentMode(mode PresentMode)

	// Clear clears the attachments selected by op.
	Clear(dst destination, op clearOp) error

	// DrawFullscreen draws a full-screen triangle with m.
	DrawFullscreen(dst destination, m material.Material, ds drawState) error

	// DrawQuads draws scene quads in order, each with its own blending.
	DrawQuads(dst destination, quads []Quad, ds drawState) error

	// ReadPixels reads the color attachment back as 8-bit RGBA encoded in the target color space.
	ReadPixels(dst destination) (*image.RGBA, error)

	// ReadDepth reads the depth attachment back, row-major from the top left.
	ReadDepth(dst destination) ([]float32, error)

	// Present displays the screen.
	Present() error

	// ReleaseResources frees every allocation. Storage is recreated lazily afterwards.
	ReleaseResources()

	// Release frees the backend itself.
	Release()
}
