package renderer

import "github.com/Carmen-Shannon/oxy-fx/common"

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithSurface sets the window the wgpu backend presents into. The window size becomes the
// initial renderer size unless WithSize is given.
//
// Parameters:
//   - s: the surface, usually a window.Window
//
// Returns:
//   - RendererBuilderOption: a function that applies the surface option to a renderer
func WithSurface(s Surface) RendererBuilderOption {
	return func(r *renderer) {
		r.surface = s
	}
}

// WithSize sets the initial logical size.
//
// Parameters:
//   - width: the width in logical pixels
//   - height: the height in logical pixels
//
// Returns:
//   - RendererBuilderOption: a function that applies the size option to a renderer
func WithSize(width, height int) RendererBuilderOption {
	return func(r *renderer) {
		r.width, r.height = max(width, 1), max(height, 1)
	}
}

// WithPixelRatio sets the ratio of drawing buffer pixels to logical pixels.
//
// Parameters:
//   - ratio: the pixel ratio, values not above zero select 1
//
// Returns:
//   - RendererBuilderOption: a function that applies the pixel ratio option to a renderer
func WithPixelRatio(ratio float32) RendererBuilderOption {
	return func(r *renderer) {
		if ratio > 0 {
			r.pixelRatio = ratio
		}
	}
}

// WithClearColor sets the initial clear color.
//
// Parameters:
//   - c: the clear color
//
// Returns:
//   - RendererBuilderOption: a function that applies the clear color option to a renderer
func WithClearColor(c common.Color) RendererBuilderOption {
	return func(r *renderer) {
		r.clearColor = c
	}
}

// WithOutputColorSpace sets the encoding of the screen. The default is sRGB.
//
// Parameters:
//   - cs: the color space
//
// Returns:
//   - RendererBuilderOption: a function that applies the output color space option to a renderer
func WithOutputColorSpace(cs common.ColorSpace) RendererBuilderOption {
	return func(r *renderer) {
		r.outputColorSpace = cs
	}
}

// WithAlpha sets whether the screen keeps an alpha channel.
//
// Parameters:
//   - alpha: true to keep alpha
//
// Returns:
//   - RendererBuilderOption: a function that applies the alpha option to a renderer
func WithAlpha(alpha bool) RendererBuilderOption {
	return func(r *renderer) {
		r.alpha = alpha
	}
}

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - RendererBuilderOption: a function that applies the present mode option to a renderer
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingPresentMode = &mode
	}
}

// WithMSAA caps the multisample count render targets may request. Higher values (MSAA8x,
// MSAA16x) are adapter-dependent and are further clamped to what the backend supports.
//
// Parameters:
//   - count: the MSAASampleCount to allow (MSAAOff, MSAA4x, MSAA8x, or MSAA16x)
//
// Returns:
//   - RendererBuilderOption: a function that applies the MSAA option to a renderer
func WithMSAA(count MSAASampleCount) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingMSAA = &count
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - RendererBuilderOption: a function that applies the force software renderer option to a renderer
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}
