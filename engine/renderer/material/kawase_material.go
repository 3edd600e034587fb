package material

import "github.com/Carmen-Shannon/oxy-fx/common"

// NewKawaseBlurMaterial creates a four-tap Kawase blur material. The offset of the taps is
// (texelSize.xy * kernel + texelSize.zw) * scale, where zw is half a texel.
//
// Returns:
//   - Material: the Kawase blur material
func NewKawaseBlurMaterial() Material {
	return NewShaderMaterial("kawase_blur", kawaseSource,
		WithUniform(UniformInputBuffer, TextureUniform(nil)),
		WithUniform("texelSize", Vec4Uniform(common.Color{})),
		WithUniform("scale", FloatUniform(1)),
		WithUniform("kernel", FloatUniform(0)),
		WithKernel(kawaseKernel),
	)
}

// SetKawaseTexelSize sets the texelSize uniform of a Kawase material from the input size.
//
// Parameters:
//   - m: the Kawase material
//   - width: the input width in pixels
//   - height: the input height in pixels
func SetKawaseTexelSize(m Material, width, height int) {
	if u := m.Uniform("texelSize"); u != nil {
		x, y := 1/float32(max(width, 1)), 1/float32(max(height, 1))
		u.SetVec4(common.Color{x, y, x * 0.5, y * 0.5})
	}
}

func kawaseKernel(ctx *FragmentContext) common.Color {
	texel := ctx.Vec4("texelSize")
	kernel, scale := ctx.Float("kernel"), ctx.Float("scale")
	d := common.Vec2{(texel[0]*kernel + texel[2]) * scale, (texel[1]*kernel + texel[3]) * scale}
	uv := ctx.UV
	c := ctx.Input(uv.Add(common.Vec2{-d[0], d[1]}))
	c = c.Add(ctx.Input(uv.Add(d)))
	c = c.Add(ctx.Input(uv.Add(common.Vec2{d[0], -d[1]})))
	c = c.Add(ctx.Input(uv.Sub(d)))
	return c.Scale(0.25)
}
