package postprocessing

import (
	"time"

	"github.com/Carmen-Shannon/oxy-fx/common"
)

// ComposerBuilderOption is a function that configures a Composer.
type ComposerBuilderOption func(*composer)

// WithDepthBuffer sets whether the ping-pong buffers carry a depth buffer. Defaults to true.
//
// Parameters:
//   - depth: whether to allocate depth
//
// Returns:
//   - ComposerBuilderOption: a function that applies the setting
func WithDepthBuffer(depth bool) ComposerBuilderOption {
	return func(c *composer) {
		c.depthBuffer = depth
	}
}

// WithStencilBuffer sets whether the ping-pong buffers carry a stencil buffer. MaskPass needs one.
//
// Parameters:
//   - stencil: whether to allocate stencil
//
// Returns:
//   - ComposerBuilderOption: a function that applies the setting
func WithStencilBuffer(stencil bool) ComposerBuilderOption {
	return func(c *composer) {
		c.stencilBuffer = stencil
	}
}

// WithMultisampling sets the sample count of the ping-pong buffers. Zero disables multisampling.
//
// Parameters:
//   - samples: the sample count
//
// Returns:
//   - ComposerBuilderOption: a function that applies the sample count
func WithMultisampling(samples int) ComposerBuilderOption {
	return func(c *composer) {
		c.samples = max(samples, 0)
	}
}

// WithFrameBufferType sets the pixel type of the ping-pong buffers. Use PixelTypeHalfFloat to
// keep values above 1 between passes.
//
// Parameters:
//   - t: the pixel type
//
// Returns:
//   - ComposerBuilderOption: a function that applies the pixel type
func WithFrameBufferType(t common.PixelType) ComposerBuilderOption {
	return func(c *composer) {
		c.frameBufferType = t
	}
}

// WithAutoRenderToScreen sets whether the last pass is flagged to render to the screen. Defaults
// to true.
//
// Parameters:
//   - auto: whether to flag the last pass
//
// Returns:
//   - ComposerBuilderOption: a function that applies the setting
func WithAutoRenderToScreen(auto bool) ComposerBuilderOption {
	return func(c *composer) {
		c.autoRenderToScreen = auto
	}
}

// WithTimer replaces the timer used when Render is called with a negative delta.
//
// Parameters:
//   - t: the timer
//
// Returns:
//   - ComposerBuilderOption: a function that applies the timer
func WithTimer(t Timer) ComposerBuilderOption {
	return func(c *composer) {
		if t != nil {
			c.timer = t
		}
	}
}

// WithPassObserver registers a function called with the wall time of every pass that ran.
//
// Parameters:
//   - observer: the function receiving the pass name and duration
//
// Returns:
//   - ComposerBuilderOption: a function that applies the observer
func WithPassObserver(observer func(name string, d time.Duration)) ComposerBuilderOption {
	return func(c *composer) {
		c.observer = observer
	}
}
