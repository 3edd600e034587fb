package material

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flatTexture is a common.Texture with a constant color.
type flatTexture struct {
	color common.Color
}

func (flatTexture) Name() string                  { return "flat" }
func (flatTexture) Width() int                    { return 4 }
func (flatTexture) Height() int                   { return 4 }
func (flatTexture) Kind() common.TextureKind      { return common.TextureKindColor }
func (flatTexture) PixelType() common.PixelType   { return common.PixelTypeFloat }
func (flatTexture) ColorSpace() common.ColorSpace { return common.ColorSpaceLinear }

// flatSampler returns the texture color regardless of coordinates.
type flatSampler struct{}

func (flatSampler) Sample(tex common.Texture, _ common.Vec2) common.Color {
	return tex.(flatTexture).color
}

func (flatSampler) Load(tex common.Texture, _, _ int) common.Color {
	return tex.(flatTexture).color
}

func (flatSampler) Depth(common.Texture, common.Vec2) float32 { return 0.5 }

func TestVersionTracksProgramChanges(t *testing.T) {
	m := NewShaderMaterial("test", "fn f() {}")
	v := m.Version()

	m.SetDefine("A", "1")
	assert.Greater(t, m.Version(), v)

	v = m.Version()
	m.SetDefine("A", "1")
	assert.Equal(t, v, m.Version(), "same define value")

	u := FloatUniform(1)
	m.SetUniform("x", u)
	v = m.Version()
	u.SetFloat(2)
	assert.Equal(t, v, m.Version(), "value changes do not rebuild")

	m.DeleteUniform("x")
	assert.Greater(t, m.Version(), v)
}

func TestDefaultVertexShader(t *testing.T) {
	m := NewShaderMaterial("test", "")
	assert.Equal(t, DefaultVertexShader, m.VertexShader())
	m.SetShaders("", "x")
	assert.Equal(t, DefaultVertexShader, m.VertexShader())
	assert.Equal(t, "x", m.FragmentShader())

	s, err := shader.NewShader("vs", shader.ShaderTypeVertex, DefaultVertexShader)
	require.NoError(t, err)
	assert.Equal(t, "vs_main", s.EntryPoint())
}

func TestPackUniforms(t *testing.T) {
	src := "struct U {\n  opacity: f32,\n  tint: vec3f,\n  missing: f32,\n}"
	layout, err := shader.UniformLayout(src, "U")
	require.NoError(t, err)

	buf := PackUniforms(layout, map[string]*Uniform{
		"opacity": FloatUniform(0.5),
		"tint":    Vec3Uniform(1, 2, 3),
	})
	require.Len(t, buf, int(layout.Size))

	f := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:])) }
	assert.Equal(t, float32(0.5), f(0))
	assert.Equal(t, float32(1), f(16))
	assert.Equal(t, float32(3), f(24))
	assert.Equal(t, float32(0), f(28))
}

func TestUniformStruct(t *testing.T) {
	uniforms := map[string]*Uniform{
		"e0_intensity": FloatUniform(1),
		"e0_map":       TextureUniform(nil),
		"e1_offset":    Vec2Uniform(common.Vec2{}),
	}
	src := UniformStruct("EffectUniforms", []string{"e0_intensity", "e0_map", "e1_offset"}, uniforms)
	assert.Equal(t, "struct EffectUniforms {\n    e0_intensity: f32,\n    e1_offset: vec2f,\n}\n", src)

	empty := UniformStruct("Empty", nil, nil)
	assert.Contains(t, empty, "padding: f32")
}

func TestCopyKernel(t *testing.T) {
	m := NewCopyMaterial()
	m.Uniform(UniformInputBuffer).SetTexture(flatTexture{common.Color{1, 0.5, 0.25, 1}})
	m.Uniform("opacity").SetFloat(0.5)

	ctx := NewFragmentContext(m, NewFrame(4, 4), flatSampler{})
	got := m.Kernel()(ctx)
	assert.Equal(t, common.Color{0.5, 0.25, 0.125, 0.5}, got)
}

func TestLuminanceKernel(t *testing.T) {
	tex := flatTexture{common.Color{1, 1, 1, 1}}

	m := NewLuminanceMaterial(false)
	m.Uniform(UniformInputBuffer).SetTexture(tex)
	got := m.Kernel()(NewFragmentContext(m, NewFrame(1, 1), flatSampler{}))
	assert.True(t, got.ApproxEqual(common.Color{1, 1, 1, 1}, 1e-5))

	m = NewLuminanceMaterial(true)
	m.SetDefine("THRESHOLD", "")
	m.Uniform("threshold").SetFloat(2)
	m.Uniform(UniformInputBuffer).SetTexture(tex)
	got = m.Kernel()(NewFragmentContext(m, NewFrame(1, 1), flatSampler{}))
	assert.Equal(t, common.Color{0, 0, 0, 0}, got, "below threshold")
}

func TestFilterWeightsSumToOne(t *testing.T) {
	for name, taps := range map[string][]tap{"down": downsamplingTaps, "up": upsamplingTaps} {
		var sum float32
		for _, tp := range taps {
			sum += tp.weight
		}
		assert.InDelta(t, 1, sum, 1e-6, name)
	}
}

func TestUpsamplingMixesSupport(t *testing.T) {
	m := NewUpsamplingMaterial()
	m.Uniform(UniformInputBuffer).SetTexture(flatTexture{common.Color{1, 1, 1, 1}})
	m.Uniform("supportBuffer").SetTexture(flatTexture{common.Color{0, 0, 0, 0}})
	m.Uniform("radius").SetFloat(0.25)

	got := m.Kernel()(NewFragmentContext(m, NewFrame(4, 4), flatSampler{}))
	assert.True(t, got.ApproxEqual(common.Color{0.25, 0.25, 0.25, 0.25}, 1e-6))
}

func TestReadDepthDefaults(t *testing.T) {
	m := NewShaderMaterial("depth", "")
	ctx := NewFragmentContext(m, NewFrame(1, 1), flatSampler{})
	assert.Equal(t, float32(1), ctx.ReadDepth(common.Vec2{}))

	m.SetUniform(UniformDepthBuffer, DepthTextureUniform(flatTexture{}))
	ctx = NewFragmentContext(m, NewFrame(1, 1), flatSampler{})
	assert.Equal(t, float32(0.5), ctx.ReadDepth(common.Vec2{}))
}

func TestLinearizeDepth(t *testing.T) {
	ctx := &FragmentContext{Frame: Frame{CameraNear: 0.1, CameraFar: 100, Perspective: true}}
	assert.InDelta(t, 0, ctx.LinearizeDepth(0), 1e-5)
	assert.Equal(t, float32(1), ctx.LinearizeDepth(1))

	ctx.Frame.Perspective = false
	assert.Equal(t, float32(0.3), ctx.LinearizeDepth(0.3))
}

func TestFrameFor(t *testing.T) {
	m := NewShaderMaterial("frame", "",
		WithUniform(UniformCameraNear, FloatUniform(0.5)),
		WithUniform(UniformCameraFar, FloatUniform(50)),
		WithDefine(DefinePerspectiveCamera, ""),
	)
	f := FrameFor(m, 200, 100)
	assert.Equal(t, common.Vec2{200, 100}, f.Resolution)
	assert.Equal(t, float32(2), f.Aspect)
	assert.Equal(t, float32(0.5), f.CameraNear)
	assert.Equal(t, float32(50), f.CameraFar)
	assert.True(t, f.Perspective)
	assert.Zero(t, f.Time)
}
