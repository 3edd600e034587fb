package resolution

// ResolutionBuilderOption is a function that configures a resolution during construction.
type ResolutionBuilderOption func(*resolution)

// WithPreferredSize sets explicit dimensions. Pass AutoSize for a derived dimension.
//
// Parameters:
//   - width: the preferred width, or AutoSize
//   - height: the preferred height, or AutoSize
//
// Returns:
//   - ResolutionBuilderOption: a function that applies the preferred size option to a resolution
func WithPreferredSize(width, height int) ResolutionBuilderOption {
	return func(r *resolution) {
		r.preferredWidth = normalize(width)
		r.preferredHeight = normalize(height)
	}
}

// WithScale sets the factor applied to the base size.
//
// Parameters:
//   - scale: the scale factor, must be positive
//
// Returns:
//   - ResolutionBuilderOption: a function that applies the scale option to a resolution
func WithScale(scale float32) ResolutionBuilderOption {
	return func(r *resolution) {
		if scale > 0 {
			r.scale = scale
		}
	}
}

// WithBaseSize sets the initial base size.
//
// Parameters:
//   - width: the base width
//   - height: the base height
//
// Returns:
//   - ResolutionBuilderOption: a function that applies the base size option to a resolution
func WithBaseSize(width, height int) ResolutionBuilderOption {
	return func(r *resolution) {
		r.baseWidth, r.baseHeight = max(width, 1), max(height, 1)
	}
}
