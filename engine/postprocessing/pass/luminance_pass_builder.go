package pass

// LuminancePassBuilderOption is a function that configures a LuminancePass.
type LuminancePassBuilderOption func(*luminancePass)

// WithColorOutput keeps the input color scaled by the clamped luminance.
//
// Parameters:
//   - colorOutput: whether to keep the input color
//
// Returns:
//   - LuminancePassBuilderOption: a function that applies the setting
func WithColorOutput(colorOutput bool) LuminancePassBuilderOption {
	return func(p *luminancePass) {
		p.colorOutput = colorOutput
	}
}

// WithLuminanceResolutionScale scales the luminance target relative to the drawing buffer.
//
// Parameters:
//   - scale: the resolution scale
//
// Returns:
//   - LuminancePassBuilderOption: a function that applies the scale
func WithLuminanceResolutionScale(scale float32) LuminancePassBuilderOption {
	return func(p *luminancePass) {
		p.res.SetScale(scale)
	}
}
