package pass

import "github.com/Carmen-Shannon/oxy-fx/engine/renderer"

// CopyPassBuilderOption is a function that configures a CopyPass.
type CopyPassBuilderOption func(*copyPass)

// WithCopyTarget copies into target instead of a target owned by the pass.
//
// Parameters:
//   - target: the destination target
//
// Returns:
//   - CopyPassBuilderOption: a function that applies the target
func WithCopyTarget(target renderer.RenderTarget) CopyPassBuilderOption {
	return func(p *copyPass) {
		p.target = target
	}
}

// WithAutoResize sets whether the composer resizes the target.
//
// Parameters:
//   - autoResize: whether to resize
//
// Returns:
//   - CopyPassBuilderOption: a function that applies the setting
func WithAutoResize(autoResize bool) CopyPassBuilderOption {
	return func(p *copyPass) {
		p.autoResize = autoResize
	}
}
