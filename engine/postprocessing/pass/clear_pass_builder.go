package pass

import "github.com/Carmen-Shannon/oxy-fx/common"

// ClearPassBuilderOption is a function that configures a ClearPass.
type ClearPassBuilderOption func(*clearPass)

// WithOverrideClearColor clears with c instead of the renderer clear color.
//
// Parameters:
//   - c: the clear color
//
// Returns:
//   - ClearPassBuilderOption: a function that applies the override color
func WithOverrideClearColor(c common.Color) ClearPassBuilderOption {
	return func(p *clearPass) {
		p.overrideColor = &c
	}
}

// WithOverrideClearAlpha clears with alpha instead of the clear color alpha.
//
// Parameters:
//   - alpha: the clear alpha
//
// Returns:
//   - ClearPassBuilderOption: a function that applies the override alpha
func WithOverrideClearAlpha(alpha float32) ClearPassBuilderOption {
	return func(p *clearPass) {
		if alpha >= 0 {
			p.overrideAlpha = alpha
		}
	}
}
