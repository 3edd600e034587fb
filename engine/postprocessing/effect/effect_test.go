package effect

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/postprocessing/pass"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/material"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext(width, height int) *material.FragmentContext {
	m := material.NewShaderMaterial("test", "")
	return material.NewFragmentContext(m, material.NewFrame(width, height), nil)
}

func TestBaseVersion(t *testing.T) {
	b := NewBase("test", "fn mainImage(inputColor: vec4f, uv: vec2f) -> vec4f { return inputColor; }",
		WithUniform("a", material.FloatUniform(1)),
		WithUniform("b", material.FloatUniform(2)),
	)
	assert.Equal(t, []string{"a", "b"}, b.UniformKeys())
	assert.Equal(t, common.ColorSpaceLinear, b.InputColorSpace())
	assert.Equal(t, common.ColorSpaceNone, b.OutputColorSpace())
	assert.Equal(t, BlendFunctionNormal, b.BlendMode().Function())

	v := b.Version()
	b.SetDefine("FOO", "")
	assert.Greater(t, b.Version(), v)

	v = b.Version()
	b.SetDefine("FOO", "")
	b.DeleteDefine("BAR")
	b.Uniform("a").SetFloat(3)
	b.BlendMode().SetOpacity(0.5)
	assert.Equal(t, v, b.Version())

	b.BlendMode().SetFunction(BlendFunctionAdd)
	assert.Greater(t, b.Version(), v)

	v = b.Version()
	b.SetUniform("c", material.FloatUniform(0))
	assert.Greater(t, b.Version(), v)
	assert.Equal(t, []string{"a", "b", "c"}, b.UniformKeys())
}

func TestAttributeString(t *testing.T) {
	assert.Equal(t, "none", AttributeNone.String())
	assert.Equal(t, "depth|convolution", (AttributeDepth | AttributeConvolution).String())
	assert.True(t, (AttributeDepth | AttributeConvolution).Has(AttributeDepth))
	assert.False(t, AttributeDepth.Has(AttributeConvolution))
}

func TestVignetteKernel(t *testing.T) {
	e := NewVignetteEffect()
	ctx := newContext(4, 4)
	in := common.Color{0.8, 0.8, 0.8, 1}

	center := e.Kernels().Image(ctx, in, common.Vec2{0.5, 0.5}, 1)
	assert.Equal(t, in, center)
	corner := e.Kernels().Image(ctx, in, common.Vec2{0, 0}, 1)
	assert.Less(t, corner[0], in[0])
	assert.Equal(t, float32(1), corner[3])

	v := e.Version()
	e.SetTechnique(VignetteTechniqueEskil)
	assert.Greater(t, e.Version(), v)
	assert.Equal(t, VignetteTechniqueEskil, e.Technique())
	assert.Equal(t, in, e.Kernels().Image(ctx, in, common.Vec2{0.5, 0.5}, 1))
}

func TestToneMappingKernel(t *testing.T) {
	e := NewToneMappingEffect()
	assert.Equal(t, ToneMappingACESFilmic, e.Mode())
	ctx := newContext(1, 1)

	e.SetMode(ToneMappingReinhard)
	out := e.Kernels().Image(ctx, common.Color{1, 3, 0, 0.5}, common.Vec2{}, 1)
	assert.InDelta(t, 0.5, out[0], 1e-6)
	assert.InDelta(t, 0.75, out[1], 1e-6)
	assert.Equal(t, float32(0.5), out[3])

	e.SetMode(ToneMappingUncharted2)
	white := e.Kernels().Image(ctx, common.Color{16, 16, 16, 1}, common.Vec2{}, 1)
	assert.InDelta(t, 1, white[0], 1e-5)

	e.SetMode(ToneMappingLinear)
	e.SetExposure(2)
	out = e.Kernels().Image(ctx, common.Color{0.25, 0.75, 0, 1}, common.Vec2{}, 1)
	assert.InDelta(t, 0.5, out[0], 1e-6)
	assert.Equal(t, float32(1), out[1])

	mode, ok := ParseToneMappingMode("aces")
	assert.True(t, ok)
	assert.Equal(t, ToneMappingACESFilmic, mode)
}

func TestColorAdjustmentKernels(t *testing.T) {
	ctx := newContext(1, 1)
	in := common.Color{0.2, 0.5, 0.7, 1}

	hs := NewHueSaturationEffect()
	assert.Equal(t, common.ColorSpaceSRGB, hs.InputColorSpace())
	assert.True(t, hs.Kernels().Image(ctx, in, common.Vec2{}, 1).ApproxEqual(in, 1e-5))
	hs.SetSaturation(-1)
	gray := hs.Kernels().Image(ctx, in, common.Vec2{}, 1)
	assert.InDelta(t, gray[0], gray[2], 1e-5)

	bc := NewBrightnessContrastEffect()
	assert.True(t, bc.Kernels().Image(ctx, in, common.Vec2{}, 1).ApproxEqual(in, 1e-6))
	bc.SetBrightness(0.1)
	assert.InDelta(t, 0.3, bc.Kernels().Image(ctx, in, common.Vec2{}, 1)[0], 1e-6)

	sepia := NewSepiaEffect()
	sepia.SetIntensity(0)
	assert.Equal(t, in, sepia.Kernels().Image(ctx, in, common.Vec2{}, 1))

	cd := NewColorDepthEffect()
	cd.SetBits(3)
	out := cd.Kernels().Image(ctx, common.Color{0.2, 0.7, 1, 1}, common.Vec2{}, 1)
	assert.Equal(t, common.Color{0, 0.5, 1, 1}, out)
}

func TestPixelationKernel(t *testing.T) {
	e := NewPixelationEffect(5)
	assert.Equal(t, float32(6), e.Granularity())
	e.SetSize(60, 30)

	uv := e.Kernels().UV(newContext(60, 30), common.Vec2{0.123, 0.3})
	assert.InDelta(t, 0.15, uv[0], 1e-5)
	assert.InDelta(t, 0.3, uv[1], 1e-5)

	e.SetGranularity(0)
	assert.Equal(t, common.Vec2{0.123, 0.3}, e.Kernels().UV(newContext(60, 30), common.Vec2{0.123, 0.3}))
}

func TestEffectDefaults(t *testing.T) {
	assert.Equal(t, AttributeConvolution, NewChromaticAberrationEffect().Attributes())
	assert.NotEmpty(t, NewChromaticAberrationEffect().VertexShader())
	assert.Equal(t, AttributeDepth, NewDepthEffect().Attributes())
	assert.Equal(t, BlendFunctionSrc, NewDepthEffect().BlendMode().Function())
	assert.Equal(t, BlendFunctionScreen, NewNoiseEffect().BlendMode().Function())
	assert.Equal(t, BlendFunctionOverlay, NewScanlineEffect().BlendMode().Function())

	s := NewScanlineEffect()
	s.SetSize(800, 600)
	assert.Equal(t, float32(750), s.Count())

	d := NewDepthEffect()
	d.SetInverted(true)
	out := d.Kernels().Image(newContext(1, 1), common.Color{0, 0, 0, 1}, common.Vec2{}, 0.25)
	assert.Equal(t, common.Color{0.75, 0.75, 0.75, 1}, out)
}

func TestBloomEffect(t *testing.T) {
	r, err := renderer.NewRenderer(renderer.BackendTypeHeadless, renderer.WithSize(8, 4))
	require.NoError(t, err)
	t.Cleanup(r.Dispose)

	e := NewBloomEffect(nil)
	t.Cleanup(e.Dispose)
	assert.Equal(t, BlendFunctionScreen, e.BlendMode().Function())
	assert.InDelta(t, 0.9, e.Luminance().Threshold(), 1e-6)

	e.SetSize(64, 32)
	assert.Equal(t, 64, e.Luminance().Target().Width())
	mip, ok := e.Blur().(pass.MipmapBlurPass)
	require.True(t, ok)
	assert.Equal(t, 32, mip.DownsamplingTargets()[0].Width())

	e.Resolution().SetScale(0.5)
	assert.Equal(t, 32, e.Luminance().Target().Width())
	assert.Equal(t, 16, mip.DownsamplingTargets()[0].Width())

	input := renderer.NewRenderTarget(64, 32)
	fill := pass.NewClearPass(true, true, false, pass.WithOverrideClearColor(common.White))
	require.NoError(t, fill.Render(r, input, nil, 0, false))
	require.NoError(t, e.Update(r, input, 0))
	assert.NotNil(t, e.Texture())
}

func TestBloomKawaseStrategy(t *testing.T) {
	blur := pass.NewKawaseBlurPass()
	e := NewBloomEffect(blur)
	t.Cleanup(e.Dispose)
	e.SetSize(100, 50)
	assert.Equal(t, 50, blur.Resolution().Width())
	assert.Equal(t, 100, blur.Resolution().BaseSize().Width)
}
