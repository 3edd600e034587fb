package pass

// MaskPassBuilderOption is a function that configures a MaskPass.
type MaskPassBuilderOption func(*maskPass)

// WithInverted selects the region outside the silhouette.
//
// Parameters:
//   - inverted: whether to invert the mask
//
// Returns:
//   - MaskPassBuilderOption: a function that applies the setting
func WithInverted(inverted bool) MaskPassBuilderOption {
	return func(p *maskPass) {
		p.inverted = inverted
	}
}
