package postprocessing

import (
	"errors"
	"regexp"
	"runtime"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/camera"
	"github.com/Carmen-Shannon/oxy-fx/engine/postprocessing/effect"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/material"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passThrough = "fn mainImage(inputColor: vec4f, uv: vec2f) -> vec4f { return inputColor; }"

func convolutionEffect(name string) effect.Effect {
	return effect.NewBase(name, passThrough, effect.WithAttributes(effect.AttributeConvolution))
}

func TestEffectPassWithoutEffectsSkips(t *testing.T) {
	p, err := NewEffectPass(nil, nil)
	require.NoError(t, err)
	assert.True(t, p.SkipRendering())
	assert.False(t, p.NeedsSwap())
	assert.True(t, p.Program().Empty())

	r := newTestRenderer(t, 4, 2)
	in, out := renderer.NewRenderTarget(4, 2), renderer.NewRenderTarget(4, 2)
	draws := r.Info().Draws
	require.NoError(t, p.Render(r, in, out, 0.1, false))
	assert.Equal(t, draws, r.Info().Draws)
}

func TestEffectPassConvolutionConflict(t *testing.T) {
	_, err := NewEffectPass(nil, []effect.Effect{convolutionEffect("First"), convolutionEffect("Second")})
	require.ErrorIs(t, err, ErrConvolutionConflict)

	var ce *CompositionError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "Second", ce.Effect)
}

func TestEffectPassUVConvolutionConflict(t *testing.T) {
	_, err := NewEffectPass(nil, []effect.Effect{convolutionEffect("Blur"), effect.NewPixelationEffect(8)})
	require.ErrorIs(t, err, ErrUVConvolutionConflict)

	var ce *CompositionError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "PixelationEffect", ce.Effect)
}

func TestEffectPassMissingHooks(t *testing.T) {
	_, err := NewEffectPass(nil, []effect.Effect{effect.NewBase("Helper", "fn helper() -> f32 { return 1.0; }")})
	assert.ErrorIs(t, err, ErrMissingHook)

	_, err = NewEffectPass(nil, []effect.Effect{effect.NewBase("Empty", "")})
	assert.ErrorIs(t, err, ErrMissingFragmentShader)

	_, err = NewEffectPass(nil, []effect.Effect{effect.NewBase("Bad", "fn mainImage(uv: vec2f) -> vec4f { return vec4f(uv, 0.0, 1.0); }")})
	assert.ErrorIs(t, err, ErrInvalidHook)
}

func TestEffectPassNamespacesUniforms(t *testing.T) {
	a, b := effect.NewSepiaEffect(), effect.NewSepiaEffect()
	a.SetIntensity(0.25)
	p, err := NewEffectPass(nil, []effect.Effect{a, b})
	require.NoError(t, err)

	prog := p.Program()
	assert.Equal(t, []string{"e0_intensity", "e0_blendOpacity", "e1_intensity", "e1_blendOpacity"}, prog.UniformKeys)
	assert.Equal(t, 1, strings.Count(prog.FragmentShader, "e0_intensity:"))
	assert.Equal(t, 1, strings.Count(prog.FragmentShader, "e1_intensity:"))
	assert.False(t, regexp.MustCompile(`\bintensity\b`).MatchString(prog.FragmentShader), "no effect symbol escapes its namespace")
	assert.Equal(t, 1, strings.Count(prog.FragmentShader, "fn e0_mainImage("))
	assert.Equal(t, 1, strings.Count(prog.FragmentShader, "fn e1_mainImage("))

	// merged uniforms share the effect's pointer
	assert.Same(t, prog.Uniforms["e0_intensity"], p.Material().Uniform("e0_intensity"))
	assert.InDelta(t, 0.25, p.Material().Uniform("e0_intensity").Float(), 1e-6)
	a.SetIntensity(0.75)
	assert.InDelta(t, 0.75, p.Material().Uniform("e0_intensity").Float(), 1e-6)
	assert.False(t, p.Dirty(), "value changes do not rebuild the program")
}

func TestEffectPassDestinationBlendNeedsDepthOnly(t *testing.T) {
	depth := effect.NewDepthEffect(effect.WithBlendFunction(effect.BlendFunctionDst))
	p, err := NewEffectPass(camera.NewCamera(), []effect.Effect{depth})
	require.NoError(t, err)
	assert.True(t, p.NeedsDepthTexture())
	assert.True(t, p.SkipRendering())
	assert.False(t, p.NeedsSwap())
}

// updateCounter counts the Update calls it receives.
type updateCounter struct {
	*effect.Base
	updates int
}

func (e *updateCounter) Update(renderer.Renderer, renderer.RenderTarget, float32) error {
	e.updates++
	return nil
}

func TestEffectPassUpdatesSkippedEffects(t *testing.T) {
	counter := &updateCounter{Base: effect.NewBase("Counter", passThrough, effect.WithBlendFunction(effect.BlendFunctionDst))}
	p, err := NewEffectPass(nil, []effect.Effect{counter})
	require.NoError(t, err)
	require.True(t, p.SkipRendering())

	r := newTestRenderer(t, 4, 2)
	in, out := renderer.NewRenderTarget(4, 2), renderer.NewRenderTarget(4, 2)
	draws := r.Info().Draws
	require.NoError(t, p.Render(r, in, out, 0.1, false))
	require.NoError(t, p.Render(r, in, out, 0.1, false))
	assert.Equal(t, 2, counter.updates)
	assert.Equal(t, draws, r.Info().Draws, "skipped passes do not draw")
}

func TestEffectPassOrdersByAttributes(t *testing.T) {
	sepia := effect.NewSepiaEffect()
	depth := effect.NewDepthEffect()
	p, err := NewEffectPass(camera.NewCamera(), []effect.Effect{sepia, depth})
	require.NoError(t, err)

	prog := p.Program()
	assert.Equal(t, []effect.Effect{depth, sepia}, prog.Effects)
	assert.Equal(t, "e0", prog.IDs[depth])
	assert.True(t, p.NeedsDepthTexture())
	assert.Contains(t, prog.FragmentShader, "texture_depth_2d")
}

func TestEffectPassRecompilesOnVersionChange(t *testing.T) {
	sepia := effect.NewSepiaEffect()
	p, err := NewEffectPass(nil, []effect.Effect{sepia})
	require.NoError(t, err)
	before := p.Program()

	sepia.SetDefine("STRENGTH", "2.0")
	assert.True(t, p.Dirty())

	r := newTestRenderer(t, 4, 2)
	in, out := renderer.NewRenderTarget(4, 2), renderer.NewRenderTarget(4, 2)
	require.NoError(t, p.Render(r, in, out, 0, false))
	assert.False(t, p.Dirty())
	assert.NotSame(t, before, p.Program())
	assert.Equal(t, "2.0", p.Program().Defines["e0_STRENGTH"])
	assert.Contains(t, p.Program().FragmentShader, "const e0_STRENGTH = 2.0;")
}

func TestEffectPassFailedRecompileKeepsProgram(t *testing.T) {
	custom := effect.NewBase("Custom", passThrough)
	p, err := NewEffectPass(nil, []effect.Effect{custom})
	require.NoError(t, err)
	before := p.Program()

	custom.SetFragmentShader("fn nothing() {}")
	assert.ErrorIs(t, p.Recompile(), ErrMissingHook)
	assert.Same(t, before, p.Program())
	assert.False(t, p.Dirty(), "a failed version is not retried every frame")
}

func TestEffectPassTimeWraps(t *testing.T) {
	p, err := NewEffectPass(nil, []effect.Effect{effect.NewSepiaEffect()}, WithTimeRange(1, 2), WithTimeScale(2))
	require.NoError(t, err)
	assert.Equal(t, float32(2), p.TimeScale())

	r := newTestRenderer(t, 4, 2)
	in, out := renderer.NewRenderTarget(4, 2), renderer.NewRenderTarget(4, 2)
	require.NoError(t, p.Render(r, in, out, 0.5, false))
	assert.InDelta(t, 1.0, p.Time(), 1e-6)
	assert.InDelta(t, 1.0, p.Material().Uniform(material.UniformTime).Float(), 1e-6)

	require.NoError(t, p.Render(r, in, out, 0.75, false))
	assert.InDelta(t, 1.0, p.Time(), 1e-6, "time above the maximum wraps to the minimum")
}

func TestEffectPassCameraUniforms(t *testing.T) {
	cam := camera.NewCamera()
	p, err := NewEffectPass(cam, []effect.Effect{effect.NewDepthEffect()})
	require.NoError(t, err)
	m := p.Material()
	assert.InDelta(t, cam.Near(), m.Uniform(material.UniformCameraNear).Float(), 1e-6)
	assert.InDelta(t, cam.Far(), m.Uniform(material.UniformCameraFar).Float(), 1e-6)
	_, perspective := m.Define(material.DefinePerspectiveCamera)
	assert.Equal(t, cam.Perspective(), perspective)
}

func TestEffectPassDrawsMergedKernel(t *testing.T) {
	r := newTestRenderer(t, 4, 2)
	in, out := renderer.NewRenderTarget(4, 2), renderer.NewRenderTarget(4, 2)
	r.SetRenderTarget(in)
	r.SetClearColor(common.Color{0.5, 0.5, 0.5, 1})
	require.NoError(t, r.Clear(true, true, true))

	sepia := effect.NewSepiaEffect()
	p, err := NewEffectPass(nil, []effect.Effect{sepia})
	require.NoError(t, err)
	require.NoError(t, p.Render(r, in, out, 0, false))

	src, dst := pixel(read(t, r, in), 0, 0), pixel(read(t, r, out), 0, 0)
	assert.Greater(t, dst[0], src[0], "sepia warms the red channel")
	assert.Less(t, dst[2], src[2], "sepia cools the blue channel")
}

func TestEffectPassOutputOptionsRecompile(t *testing.T) {
	p, err := NewEffectPass(nil, []effect.Effect{effect.NewSepiaEffect()})
	require.NoError(t, err)
	assert.NotContains(t, p.Program().FragmentShader, "linearToSRGB(color)")

	require.NoError(t, p.SetEncodeOutput(true))
	assert.True(t, p.EncodeOutput())
	assert.Contains(t, p.Program().FragmentShader, "linearToSRGB(color)")

	require.NoError(t, p.SetDithering(true))
	assert.True(t, p.Dithering())
}

// constSampler returns one color for every sample and one value for every depth read.
type constSampler struct {
	color common.Color
	depth float32
}

func (s constSampler) Sample(common.Texture, common.Vec2) common.Color { return s.color }
func (s constSampler) Load(common.Texture, int, int) common.Color      { return s.color }
func (s constSampler) Depth(common.Texture, common.Vec2) float32       { return s.depth }

func evalKernel(p EffectPass, s constSampler) common.Color {
	m := p.Material()
	m.Uniform(material.UniformInputBuffer).SetTexture(renderer.NewRenderTarget(1, 1).Texture())
	ctx := material.NewFragmentContext(m, material.Frame{}, s)
	ctx.UV = common.Vec2{0.5, 0.5}
	return p.Program().Kernel(ctx)
}

func TestEffectPassBridgesColorSpaces(t *testing.T) {
	var seen common.Color
	display := effect.NewBase("Display", passThrough,
		effect.WithInputColorSpace(common.ColorSpaceSRGB),
		effect.WithKernels(effect.Kernels{Image: func(_ *material.FragmentContext, in common.Color, _ common.Vec2, _ float32) common.Color {
			seen = in
			return in
		}}),
	)
	p, err := NewEffectPass(nil, []effect.Effect{display})
	require.NoError(t, err)

	frag := p.Program().FragmentShader
	toSRGB := strings.Index(frag, "color = linearToSRGB(color);")
	hook := strings.Index(frag, "e0_mainImage(color, uv)")
	toLinear := strings.LastIndex(frag, "color = sRGBToLinear(color);")
	require.NotEqual(t, -1, toSRGB)
	require.NotEqual(t, -1, hook)
	require.NotEqual(t, -1, toLinear)
	assert.Less(t, toSRGB, hook, "input is encoded before the effect runs")
	assert.Less(t, hook, toLinear, "output is decoded back to linear")

	in := common.Color{0.5, 0.25, 0.125, 1}
	out := evalKernel(p, constSampler{color: in})
	want := common.LinearToSRGB(in)
	for i := range 3 {
		assert.InDelta(t, want[i], seen[i], 1e-5)
		assert.InDelta(t, in[i], out[i], 1e-5)
	}
}

func TestEffectPassOutputColorSpaceDecodesResult(t *testing.T) {
	encoder := effect.NewBase("Encoder", "fn mainImage(inputColor: vec4f, uv: vec2f) -> vec4f { return linearToSRGB(inputColor); }",
		effect.WithOutputColorSpace(common.ColorSpaceSRGB),
		effect.WithKernels(effect.Kernels{Image: func(_ *material.FragmentContext, in common.Color, _ common.Vec2, _ float32) common.Color {
			return common.LinearToSRGB(in)
		}}),
	)
	p, err := NewEffectPass(nil, []effect.Effect{encoder})
	require.NoError(t, err)

	frag := p.Program().FragmentShader
	assert.Less(t, strings.Index(frag, "e0_mainImage(color, uv)"), strings.LastIndex(frag, "color = sRGBToLinear(color);"))

	in := common.Color{0.5, 0.25, 0.125, 1}
	out := evalKernel(p, constSampler{color: in})
	for i := range 3 {
		assert.InDelta(t, in[i], out[i], 1e-5)
	}
}

func TestEffectPassReadsDepthForDepthHooks(t *testing.T) {
	const depthHook = "fn mainImage(inputColor: vec4f, uv: vec2f, depth: f32) -> vec4f { return vec4f(vec3f(depth), inputColor.a); }"
	kernels := effect.Kernels{Image: func(_ *material.FragmentContext, in common.Color, _ common.Vec2, depth float32) common.Color {
		return common.Color{depth, depth, depth, in[3]}
	}}
	sampler := constSampler{color: common.Color{0, 0, 0, 1}, depth: 0.25}

	reader := effect.NewBase("Reader", depthHook, effect.WithAttributes(effect.AttributeDepth), effect.WithKernels(kernels))
	p, err := NewEffectPass(camera.NewCamera(), []effect.Effect{reader})
	require.NoError(t, err)
	frag := p.Program().FragmentShader
	assert.Contains(t, frag, "let depth = readDepth(uv);")
	assert.Contains(t, frag, "e0_mainImage(color, uv, depth)")

	p.Material().Uniform(material.UniformDepthBuffer).SetTexture(renderer.NewRenderTarget(1, 1).Texture())
	assert.InDelta(t, 0.25, evalKernel(p, sampler)[0], 1e-6)

	blind := effect.NewBase("Blind", depthHook, effect.WithKernels(kernels))
	p, err = NewEffectPass(nil, []effect.Effect{blind})
	require.NoError(t, err)
	frag = p.Program().FragmentShader
	assert.NotContains(t, frag, "readDepth(uv)")
	assert.Contains(t, frag, "e0_mainImage(color, uv, 1.0)")
	assert.InDelta(t, 1.0, evalKernel(p, sampler)[0], 1e-6)
}

func TestEffectPassesShareCompilePool(t *testing.T) {
	compile := func() {
		p, err := NewEffectPass(nil, []effect.Effect{effect.NewSepiaEffect(), effect.NewNoiseEffect()})
		require.NoError(t, err)
		p.Dispose()
	}
	compile()
	baseline := runtime.NumGoroutine()

	for i := 0; i < 20; i++ {
		compile()
	}
	assert.LessOrEqual(t, runtime.NumGoroutine(), baseline+2, "disposed passes must not leave workers behind")
}
