package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/camera"
	"github.com/Carmen-Shannon/oxy-fx/engine/postprocessing"
	"github.com/Carmen-Shannon/oxy-fx/engine/postprocessing/effect"
	"github.com/Carmen-Shannon/oxy-fx/engine/postprocessing/pass"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pipeline = `
title = "demo"
width = 64
height = 48
backend = "Headless"

[composer]
frame_buffer_type = "half"

[[pass]]
kind = "render"

[[pass]]
kind = "effect"
dithering = true
  [[pass.effect]]
  kind = "bloom"
  opacity = 0.5
  params = { intensity = 2, threshold = 0.6, blur = "kawase", kernel_size = "small" }

  [[pass.effect]]
  kind = "Sepia"
  blend = "multiply"
  params = { intensity = 0.25 }
`

func build(t *testing.T, cfg *Config) postprocessing.Composer {
	t.Helper()
	backend, err := cfg.BackendType()
	require.NoError(t, err)
	r, err := renderer.NewRenderer(backend, renderer.WithSize(cfg.Width, cfg.Height))
	require.NoError(t, err)
	t.Cleanup(r.Dispose)

	scene := renderer.NewScene(renderer.Quad{X0: 0.25, Y0: 0.25, X1: 0.75, Y1: 0.75, Depth: 0.5, Color: common.White})
	c, err := Build(cfg, r, scene, camera.NewCamera())
	require.NoError(t, err)
	t.Cleanup(c.Dispose)
	return c
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`[[pass]]
kind = "RENDER"`))
	require.NoError(t, err)

	assert.Equal(t, "oxy-fx", cfg.Title)
	assert.Equal(t, 1280, cfg.Width)
	assert.Equal(t, 720, cfg.Height)
	assert.Equal(t, float32(1), cfg.PixelRatio)
	assert.Equal(t, "wgpu", cfg.Backend)
	assert.Equal(t, "ubyte", cfg.Composer.FrameBufferType)
	assert.Nil(t, cfg.Composer.DepthBuffer)
	require.Len(t, cfg.Passes, 1)
	assert.Equal(t, "render", cfg.Passes[0].Kind)

	backend, err := cfg.BackendType()
	require.NoError(t, err)
	assert.Equal(t, renderer.BackendTypeWGPU, backend)
}

func TestParsePipeline(t *testing.T) {
	cfg, err := Parse([]byte(pipeline))
	require.NoError(t, err)

	assert.Equal(t, "demo", cfg.Title)
	assert.Equal(t, "headless", cfg.Backend)
	pt, err := cfg.Composer.PixelType()
	require.NoError(t, err)
	assert.Equal(t, common.PixelTypeHalfFloat, pt)

	require.Len(t, cfg.Passes, 2)
	effects := cfg.Passes[1].Effects
	require.Len(t, effects, 2)
	assert.Equal(t, "sepia", effects[1].Kind)
	require.NotNil(t, effects[0].Opacity)
	assert.Equal(t, float32(0.5), *effects[0].Opacity)
	assert.Equal(t, int64(2), effects[0].Params["intensity"])
	assert.Equal(t, 0.6, effects[0].Params["threshold"])
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		err  error
	}{
		{"unknown backend", `backend = "gl"`, ErrUnknownBackend},
		{"unknown pass", "[[pass]]\nkind = \"warp\"", ErrUnknownPass},
		{"unknown effect", "[[pass]]\nkind = \"effect\"\n[[pass.effect]]\nkind = \"glitch\"", ErrUnknownEffect},
		{"frame buffer type", "[composer]\nframe_buffer_type = \"double\"", ErrInvalidValue},
		{"negative size", "width = -2", ErrInvalidValue},
		{"clear color", "[[pass]]\nkind = \"clear\"\nclear_color = [1.0, 0.0]", ErrInvalidValue},
		{"mask rect", "[[pass]]\nkind = \"mask\"\nmask_rect = [0.0]", ErrInvalidValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestParseRejectsUnknownField(t *testing.T) {
	_, err := Parse([]byte("title = \"x\"\nfullscreen = true"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestParseSyntaxError(t *testing.T) {
	_, err := Parse([]byte("width = = 3"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: line 1")
}

func TestBuildPipeline(t *testing.T) {
	cfg, err := Parse([]byte(pipeline))
	require.NoError(t, err)
	c := build(t, cfg)

	passes := c.Passes()
	require.Len(t, passes, 2)
	assert.Implements(t, (*pass.RenderPass)(nil), passes[0])
	ep, ok := passes[1].(postprocessing.EffectPass)
	require.True(t, ok)
	assert.True(t, ep.RenderToScreen(), "the last pass renders to screen")

	effects := ep.Effects()
	require.Len(t, effects, 2)
	bloom, ok := effects[0].(effect.BloomEffect)
	require.True(t, ok)
	assert.Equal(t, float32(2), bloom.Intensity())
	assert.InDelta(t, 0.6, bloom.Luminance().Threshold(), 1e-6)
	assert.Equal(t, float32(0.5), bloom.BlendMode().Opacity().Float())

	sepia, ok := effects[1].(effect.SepiaEffect)
	require.True(t, ok)
	assert.Equal(t, float32(0.25), sepia.Intensity())
	assert.Equal(t, effect.BlendFunctionMultiply, sepia.BlendMode().Function())

	assert.Equal(t, common.Size{Width: 64, Height: 48}, c.Size())
	require.NoError(t, c.Render(0.016))
}

func TestBuildPassSettings(t *testing.T) {
	cfg, err := Parse([]byte(`backend = "headless"
width = 8
height = 8

[[pass]]
kind = "clear"
clear_color = [1.0, 0.0, 0.0]

[[pass]]
kind = "copy"
enabled = false
`))
	require.NoError(t, err)
	c := build(t, cfg)

	passes := c.Passes()
	require.Len(t, passes, 2)
	clear, ok := passes[0].(pass.ClearPass)
	require.True(t, ok)
	require.NotNil(t, clear.OverrideClearColor())
	assert.Equal(t, common.Color{1, 0, 0, 1}, *clear.OverrideClearColor())
	assert.False(t, passes[1].Enabled())
}

func TestBuildMaskEnablesStencil(t *testing.T) {
	cfg, err := Parse([]byte(`backend = "headless"
width = 16
height = 16

[[pass]]
kind = "render"

[[pass]]
kind = "mask"
mask_rect = [0.0, 0.0, 0.5, 1.0]

[[pass]]
kind = "effect"
  [[pass.effect]]
  kind = "vignette"
  params = { darkness = 0.8, technique = "eskil" }

[[pass]]
kind = "clear_mask"
`))
	require.NoError(t, err)
	c := build(t, cfg)

	assert.True(t, c.InputBuffer().StencilBuffer())
	_, ok := c.Passes()[1].(pass.MaskPass)
	assert.True(t, ok)
	require.NoError(t, c.Render(0))
}

func TestBuildEffectParamErrors(t *testing.T) {
	tests := []struct {
		name   string
		effect string
	}{
		{"unknown param", `kind = "sepia"
params = { strength = 1.0 }`},
		{"wrong type", `kind = "noise"
params = { premultiply = 1 }`},
		{"float for integer", `kind = "color_depth"
params = { bits = 4.5 }`},
		{"unknown param without setters", `kind = "pixelation"
params = { granularity = 8, size = 2 }`},
		{"blur kind", `kind = "bloom"
params = { blur = "box" }`},
		{"kernel size", `kind = "bloom"
params = { blur = "kawase", kernel_size = "tiny" }`},
		{"blend", `kind = "sepia"
blend = "sparkle"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte("backend = \"headless\"\n[[pass]]\nkind = \"effect\"\n[[pass.effect]]\n" + tt.effect))
			require.NoError(t, err)

			r, err := renderer.NewRenderer(renderer.BackendTypeHeadless, renderer.WithSize(4, 4))
			require.NoError(t, err)
			defer r.Dispose()
			_, err = Build(cfg, r, nil, camera.NewCamera())
			assert.Error(t, err)
		})
	}
}

func TestParamsAccessors(t *testing.T) {
	p := params{"levels": int64(3), "radius": 0.5, "ratio": int64(2), "mode": "AGX"}

	n, err := p.integer("levels", 1)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	n, err = p.integer("missing", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	_, err = p.integer("radius", 1)
	assert.ErrorIs(t, err, ErrInvalidValue)

	f, err := p.float("ratio", 1)
	require.NoError(t, err)
	assert.Equal(t, float32(2), f)

	s, ok := p.str("mode", "neutral")
	assert.True(t, ok)
	assert.Equal(t, "agx", s)
	s, ok = p.str("levels", "neutral")
	assert.False(t, ok)
	assert.Equal(t, "neutral", s)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.toml")
	require.NoError(t, os.WriteFile(path, []byte(pipeline), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Passes, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWatchShaders(t *testing.T) {
	dir := t.TempDir()
	src := "fn mainImage(inputColor: vec4f, uv: vec2f) -> vec4f {\n\treturn inputColor.bgra;\n}\n"
	path := filepath.Join(dir, "swizzle.wgsl")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))

	cfg, err := Parse([]byte(`backend = "headless"
width = 4
height = 4

[[pass]]
kind = "render"

[[pass]]
kind = "effect"
  [[pass.effect]]
  kind = "noise"

  [[pass.effect]]
  kind = "sepia"
  shader = "` + filepath.ToSlash(path) + `"
`))
	require.NoError(t, err)
	c := build(t, cfg)

	w, err := shader.NewWatcher()
	require.NoError(t, err)
	defer w.Close()

	n, err := WatchShaders(cfg, c, w)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	effects := c.Passes()[1].(postprocessing.EffectPass).Effects()
	assert.Equal(t, src, effects[1].FragmentShader())
	assert.NotEqual(t, src, effects[0].FragmentShader())
}

func TestDemoPipeline(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "cmd", "oxyfx", "pipeline.toml"))
	require.NoError(t, err)
	cfg.Backend = "headless"
	cfg.Width, cfg.Height = 128, 72
	c := build(t, cfg)

	assert.Len(t, c.Passes(), 6)
	assert.Equal(t, 4, c.Multisampling())
	assert.True(t, c.InputBuffer().StencilBuffer())
	require.NoError(t, c.Render(0.016))
}
