package pass

// KawaseBlurPassBuilderOption is a function that configures a KawaseBlurPass.
type KawaseBlurPassBuilderOption func(*kawaseBlurPass)

// WithKernelSize sets the kernel size class.
//
// Parameters:
//   - size: the kernel size
//
// Returns:
//   - KawaseBlurPassBuilderOption: a function that applies the kernel size
func WithKernelSize(size KernelSize) KawaseBlurPassBuilderOption {
	return func(p *kawaseBlurPass) {
		p.kernelSize = size
	}
}

// WithBlurScale sets the tap offset multiplier.
//
// Parameters:
//   - scale: the offset multiplier
//
// Returns:
//   - KawaseBlurPassBuilderOption: a function that applies the scale
func WithBlurScale(scale float32) KawaseBlurPassBuilderOption {
	return func(p *kawaseBlurPass) {
		p.blurMaterial.Uniform("scale").SetFloat(scale)
	}
}

// WithKawaseResolutionScale scales the blur targets relative to the drawing buffer.
//
// Parameters:
//   - scale: the resolution scale
//
// Returns:
//   - KawaseBlurPassBuilderOption: a function that applies the scale
func WithKawaseResolutionScale(scale float32) KawaseBlurPassBuilderOption {
	return func(p *kawaseBlurPass) {
		p.res.SetScale(scale)
	}
}
