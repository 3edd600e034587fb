package renderer

import "github.com/Carmen-Shannon/oxy-fx/common"

// RenderTargetBuilderOption is a functional option applied to a render target during construction via NewRenderTarget.
type RenderTargetBuilderOption func(*renderTarget)

// WithTargetName sets the debug name of the target and its texture.
//
// Parameters:
//   - name: the name
//
// Returns:
//   - RenderTargetBuilderOption: a function that applies the name option to a render target
func WithTargetName(name string) RenderTargetBuilderOption {
	return func(rt *renderTarget) {
		rt.name = name
	}
}

// WithDepthBuffer enables or disables the internal depth buffer.
//
// Parameters:
//   - enabled: whether the target has depth storage
//
// Returns:
//   - RenderTargetBuilderOption: a function that applies the depth buffer option to a render target
func WithDepthBuffer(enabled bool) RenderTargetBuilderOption {
	return func(rt *renderTarget) {
		rt.depthBuffer = enabled
	}
}

// WithStencilBuffer enables or disables the internal stencil buffer.
//
// Parameters:
//   - enabled: whether the target has stencil storage
//
// Returns:
//   - RenderTargetBuilderOption: a function that applies the stencil buffer option to a render target
func WithStencilBuffer(enabled bool) RenderTargetBuilderOption {
	return func(rt *renderTarget) {
		rt.stencilBuffer = enabled
	}
}

// WithPixelType sets the color channel storage.
//
// Parameters:
//   - pixelType: the pixel type
//
// Returns:
//   - RenderTargetBuilderOption: a function that applies the pixel type option to a render target
func WithPixelType(pixelType common.PixelType) RenderTargetBuilderOption {
	return func(rt *renderTarget) {
		rt.texture.setFormat(pixelType, rt.texture.colorSpace)
	}
}

// WithColorSpace sets the color encoding of the texture.
//
// Parameters:
//   - cs: the color space
//
// Returns:
//   - RenderTargetBuilderOption: a function that applies the color space option to a render target
func WithColorSpace(cs common.ColorSpace) RenderTargetBuilderOption {
	return func(rt *renderTarget) {
		rt.texture.setFormat(rt.texture.pixelType, cs)
	}
}

// WithSamples sets the multisample count.
//
// Parameters:
//   - samples: the sample count, 0 to disable multisampling
//
// Returns:
//   - RenderTargetBuilderOption: a function that applies the samples option to a render target
func WithSamples(samples int) RenderTargetBuilderOption {
	return func(rt *renderTarget) {
		rt.samples = max(samples, 0)
	}
}

// WithCube makes the target a cube map with six faces.
//
// Parameters:
//   - cube: whether the target is a cube map
//
// Returns:
//   - RenderTargetBuilderOption: a function that applies the cube option to a render target
func WithCube(cube bool) RenderTargetBuilderOption {
	return func(rt *renderTarget) {
		rt.cube = cube
	}
}

// WithDepthTexture attaches a depth texture at construction.
//
// Parameters:
//   - t: the depth texture
//
// Returns:
//   - RenderTargetBuilderOption: a function that applies the depth texture option to a render target
func WithDepthTexture(t DepthTexture) RenderTargetBuilderOption {
	return func(rt *renderTarget) {
		rt.depthTexture = asDepthTexture(t)
	}
}
