package pass

// RenderPassBuilderOption is a function that configures a RenderPass.
type RenderPassBuilderOption func(*renderPass)

// WithIgnoreBackground skips the scene background when drawing.
//
// Parameters:
//   - ignore: whether to skip the background
//
// Returns:
//   - RenderPassBuilderOption: a function that applies the setting
func WithIgnoreBackground(ignore bool) RenderPassBuilderOption {
	return func(p *renderPass) {
		p.ignoreBackground = ignore
	}
}

// WithClear enables or disables the color and depth clear before drawing.
//
// Parameters:
//   - enabled: whether to clear
//
// Returns:
//   - RenderPassBuilderOption: a function that applies the setting
func WithClear(enabled bool) RenderPassBuilderOption {
	return func(p *renderPass) {
		p.clear.SetEnabled(enabled)
	}
}
