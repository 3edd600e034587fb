package material

import "github.com/Carmen-Shannon/oxy-fx/common"

type tap struct {
	offset common.Vec2
	weight float32
}

// downsamplingTaps is the 13-tap box filter used to build each mip level.
var downsamplingTaps = []tap{
	{common.Vec2{0, 0}, 0.125},
	{common.Vec2{-1, 1}, 0.125},
	{common.Vec2{1, 1}, 0.125},
	{common.Vec2{-1, -1}, 0.125},
	{common.Vec2{1, -1}, 0.125},
	{common.Vec2{-2, 2}, 0.03125},
	{common.Vec2{2, 2}, 0.03125},
	{common.Vec2{-2, -2}, 0.03125},
	{common.Vec2{2, -2}, 0.03125},
	{common.Vec2{0, 2}, 0.0625},
	{common.Vec2{-2, 0}, 0.0625},
	{common.Vec2{2, 0}, 0.0625},
	{common.Vec2{0, -2}, 0.0625},
}

// upsamplingTaps is the 9-tap tent filter used to combine mip levels.
var upsamplingTaps = []tap{
	{common.Vec2{0, 0}, 0.25},
	{common.Vec2{-1, 1}, 0.0625},
	{common.Vec2{0, 1}, 0.125},
	{common.Vec2{1, 1}, 0.0625},
	{common.Vec2{-1, 0}, 0.125},
	{common.Vec2{1, 0}, 0.125},
	{common.Vec2{-1, -1}, 0.0625},
	{common.Vec2{0, -1}, 0.125},
	{common.Vec2{1, -1}, 0.0625},
}

// NewDownsamplingMaterial creates the 13-tap downsampling material of the mip chain blur.
// texelSize must be the texel size of the input level.
//
// Returns:
//   - Material: the downsampling material
func NewDownsamplingMaterial() Material {
	return NewShaderMaterial("downsampling", downsamplingSource,
		WithUniform(UniformInputBuffer, TextureUniform(nil)),
		WithUniform("texelSize", Vec2Uniform(common.Vec2{})),
		WithKernel(func(ctx *FragmentContext) common.Color {
			return filter(ctx, UniformInputBuffer, downsamplingTaps)
		}),
	)
}

// NewUpsamplingMaterial creates the 9-tap upsampling material of the mip chain blur. The
// filtered inputBuffer is mixed over supportBuffer by radius.
//
// Returns:
//   - Material: the upsampling material
func NewUpsamplingMaterial() Material {
	return NewShaderMaterial("upsampling", upsamplingSource,
		WithUniform(UniformInputBuffer, TextureUniform(nil)),
		WithUniform("supportBuffer", TextureUniform(nil)),
		WithUniform("texelSize", Vec2Uniform(common.Vec2{})),
		WithUniform("radius", FloatUniform(0.85)),
		WithKernel(func(ctx *FragmentContext) common.Color {
			c := filter(ctx, UniformInputBuffer, upsamplingTaps)
			base := ctx.Sample("supportBuffer", ctx.UV)
			return base.Mix(c, ctx.Float("radius"))
		}),
	)
}

// SetTexelSize sets the vec2 texelSize uniform of m from a texture size.
//
// Parameters:
//   - m: the material
//   - width: the width in pixels
//   - height: the height in pixels
func SetTexelSize(m Material, width, height int) {
	if u := m.Uniform("texelSize"); u != nil {
		u.SetVec2(common.Vec2{1 / float32(max(width, 1)), 1 / float32(max(height, 1))})
	}
}

func filter(ctx *FragmentContext, key string, taps []tap) common.Color {
	texel := ctx.Vec2("texelSize")
	var c common.Color
	for _, t := range taps {
		c = c.Add(ctx.Sample(key, ctx.UV.Add(texel.Mul(t.offset))).Scale(t.weight))
	}
	return c
}
