package pass

// MipmapBlurPassBuilderOption is a function that configures a MipmapBlurPass.
type MipmapBlurPassBuilderOption func(*mipmapBlurPass)

// WithLevels sets the number of downsampling levels.
//
// Parameters:
//   - levels: the level count, at least 1
//
// Returns:
//   - MipmapBlurPassBuilderOption: a function that applies the level count
func WithLevels(levels int) MipmapBlurPassBuilderOption {
	return func(p *mipmapBlurPass) {
		p.levels = max(levels, 1)
	}
}

// WithRadius sets the blend factor of each upsampling step.
//
// Parameters:
//   - radius: the blend factor in [0, 1]
//
// Returns:
//   - MipmapBlurPassBuilderOption: a function that applies the radius
func WithRadius(radius float32) MipmapBlurPassBuilderOption {
	return func(p *mipmapBlurPass) {
		p.upsampling.Uniform("radius").SetFloat(radius)
	}
}
