package postprocessing

// EffectPassBuilderOption is a function that configures an EffectPass.
type EffectPassBuilderOption func(*effectPass)

// WithShaderValidation compiles every merged program with the WGSL compiler and reports failures
// as composition errors wrapping ErrShaderValidation.
//
// Parameters:
//   - validate: whether to validate
//
// Returns:
//   - EffectPassBuilderOption: a function that applies the setting
func WithShaderValidation(validate bool) EffectPassBuilderOption {
	return func(p *effectPass) {
		p.validate = validate
	}
}

// WithDithering applies ordered dithering to the output.
//
// Parameters:
//   - dithering: whether to dither
//
// Returns:
//   - EffectPassBuilderOption: a function that applies the setting
func WithDithering(dithering bool) EffectPassBuilderOption {
	return func(p *effectPass) {
		p.dithering = dithering
	}
}

// WithEncodeOutput gamma encodes the output in the program, for screens without an sRGB format.
//
// Parameters:
//   - encode: whether to encode
//
// Returns:
//   - EffectPassBuilderOption: a function that applies the setting
func WithEncodeOutput(encode bool) EffectPassBuilderOption {
	return func(p *effectPass) {
		p.encodeOutput = encode
	}
}

// WithTimeScale scales the frame time accumulated into the time uniform.
//
// Parameters:
//   - scale: the time scale
//
// Returns:
//   - EffectPassBuilderOption: a function that applies the scale
func WithTimeScale(scale float32) EffectPassBuilderOption {
	return func(p *effectPass) {
		p.timeScale = scale
	}
}

// WithTimeRange sets the value accumulated time wraps back to and the limit that triggers the wrap.
//
// Parameters:
//   - minTime: the wrap target
//   - maxTime: the limit
//
// Returns:
//   - EffectPassBuilderOption: a function that applies the range
func WithTimeRange(minTime, maxTime float32) EffectPassBuilderOption {
	return func(p *effectPass) {
		p.minTime, p.maxTime = minTime, maxTime
	}
}
