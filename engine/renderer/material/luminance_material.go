package material

import "github.com/Carmen-Shannon/oxy-fx/common"

// NewLuminanceMaterial creates a material that outputs the luminance of inputBuffer.
// With colorOutput the input color is kept and scaled by the clamped luminance, with the
// luminance in alpha. Setting the THRESHOLD define applies a smooth luminance threshold.
//
// Parameters:
//   - colorOutput: whether to keep the input color
//
// Returns:
//   - Material: the luminance material
func NewLuminanceMaterial(colorOutput bool) Material {
	options := []MaterialBuilderOption{
		WithUniform(UniformInputBuffer, TextureUniform(nil)),
		WithUniform("threshold", FloatUniform(0)),
		WithUniform("smoothing", FloatUniform(1)),
		WithKernel(luminanceKernel),
	}
	if colorOutput {
		options = append(options, WithDefine("COLOR", ""))
	}
	return NewShaderMaterial("luminance", luminanceSource, options...)
}

func luminanceKernel(ctx *FragmentContext) common.Color {
	texel := ctx.Input(ctx.UV)
	l := texel.Luminance()
	if ctx.Defined("THRESHOLD") {
		threshold := ctx.Float("threshold")
		l = common.Smoothstep(threshold, threshold+ctx.Float("smoothing"), l) * l
	}
	if ctx.Defined("COLOR") {
		return texel.ScaleRGB(common.Saturate(l)).WithAlpha(l)
	}
	return common.Color{l, l, l, l}
}
