package material

import "github.com/Carmen-Shannon/oxy-fx/common"

// NewCopyMaterial creates a material that copies inputBuffer scaled by an opacity uniform (default 1).
//
// Returns:
//   - Material: the copy material
func NewCopyMaterial() Material {
	return NewShaderMaterial("copy", CopySource,
		WithUniform(UniformInputBuffer, TextureUniform(nil)),
		WithUniform("opacity", FloatUniform(1)),
		WithKernel(copyKernel),
	)
}

func copyKernel(ctx *FragmentContext) common.Color {
	return ctx.Input(ctx.UV).Scale(ctx.Float("opacity"))
}
