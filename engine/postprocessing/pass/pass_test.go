package pass

import (
	"image"
	"testing"

	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/camera"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/material"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRenderer(t *testing.T) renderer.Renderer {
	t.Helper()
	r, err := renderer.NewRenderer(renderer.BackendTypeHeadless, renderer.WithSize(4, 2))
	require.NoError(t, err)
	t.Cleanup(r.Dispose)
	return r
}

func pixel(img *image.RGBA, x, y int) [4]uint8 {
	o := img.PixOffset(x, y)
	return [4]uint8{img.Pix[o], img.Pix[o+1], img.Pix[o+2], img.Pix[o+3]}
}

func read(t *testing.T, r renderer.Renderer, target renderer.RenderTarget) *image.RGBA {
	t.Helper()
	img, err := r.ReadPixels(target)
	require.NoError(t, err)
	return img
}

// fill clears target to c through the renderer.
func fill(t *testing.T, r renderer.Renderer, target renderer.RenderTarget, c common.Color) {
	t.Helper()
	p := NewClearPass(true, true, true, WithOverrideClearColor(c))
	require.NoError(t, p.Render(r, target, nil, 0, false))
}

func TestBaseDefaults(t *testing.T) {
	b := NewBase("test", nil, nil)
	assert.Equal(t, "test", b.Name())
	assert.True(t, b.Enabled())
	assert.True(t, b.NeedsSwap())
	assert.False(t, b.NeedsDepthTexture())
	assert.False(t, b.RenderToScreen())
	assert.Nil(t, b.Scene())

	scene, cam := renderer.NewScene(), camera.NewCamera()
	b.SetMainScene(scene)
	b.SetMainCamera(cam)
	assert.Equal(t, scene, b.Scene())
	assert.Equal(t, cam, b.Camera())

	target := renderer.NewRenderTarget(1, 1)
	assert.Equal(t, target, b.Destination(target))
	b.SetRenderToScreen(true)
	assert.Nil(t, b.Destination(target))
}

func TestClearPassRestoresClearColor(t *testing.T) {
	r := newTestRenderer(t)
	r.SetClearColor(common.Black)
	target := renderer.NewRenderTarget(2, 2)

	p := NewClearPass(true, false, false,
		WithOverrideClearColor(common.Color{1, 0, 0, 1}),
		WithOverrideClearAlpha(0.5),
	)
	assert.False(t, p.NeedsSwap())
	require.NoError(t, p.Render(r, target, nil, 0, false))

	got := pixel(read(t, r, target), 1, 1)
	assert.Equal(t, [4]uint8{255, 0, 0, 128}, got)
	assert.Equal(t, common.Black, r.ClearColor())

	p.SetOverrideClearAlpha(-3)
	assert.Equal(t, NoAlphaOverride, p.OverrideClearAlpha())
	p.SetOverrideClearColor(nil)
	assert.Nil(t, p.OverrideClearColor())
}

func TestRenderPassDrawsIntoInput(t *testing.T) {
	r := newTestRenderer(t)
	r.SetClearColor(common.Black)
	scene := renderer.NewScene(renderer.Quad{X0: 0, Y0: 0, X1: 0.5, Y1: 1, Depth: 0.5, Color: common.Color{0, 1, 0, 1}})
	input, output := renderer.NewRenderTarget(4, 2), renderer.NewRenderTarget(4, 2)
	fill(t, r, output, common.White)

	p := NewRenderPass(scene, camera.NewCamera())
	assert.False(t, p.NeedsSwap())
	require.NoError(t, p.Render(r, input, output, 0, false))

	img := read(t, r, input)
	assert.Equal(t, [4]uint8{0, 255, 0, 255}, pixel(img, 0, 0))
	assert.Equal(t, [4]uint8{0, 0, 0, 255}, pixel(img, 3, 0))
	assert.Equal(t, [4]uint8{255, 255, 255, 255}, pixel(read(t, r, output), 0, 0), "output untouched")
}

func TestRenderPassIgnoreBackground(t *testing.T) {
	r := newTestRenderer(t)
	bg := common.Color{0, 0, 1, 1}
	scene := renderer.NewScene()
	scene.SetBackground(&bg)
	input := renderer.NewRenderTarget(1, 1)

	p := NewRenderPass(scene, camera.NewCamera(), WithClear(false), WithIgnoreBackground(true))
	fill(t, r, input, common.White)
	require.NoError(t, p.Render(r, input, nil, 0, false))
	assert.Equal(t, [4]uint8{255, 255, 255, 255}, pixel(read(t, r, input), 0, 0))
	require.NotNil(t, scene.Background(), "background is restored")

	p.SetIgnoreBackground(false)
	require.NoError(t, p.Render(r, input, nil, 0, false))
	assert.Equal(t, [4]uint8{0, 0, 255, 255}, pixel(read(t, r, input), 0, 0))
}

func TestRenderPassWithoutSceneIsNoop(t *testing.T) {
	r := newTestRenderer(t)
	p := NewRenderPass(nil, nil)
	assert.NoError(t, p.Render(r, renderer.NewRenderTarget(1, 1), nil, 0, false))
	assert.Equal(t, uint64(0), r.Info().Draws)
}

func TestShaderPassWritesOutput(t *testing.T) {
	r := newTestRenderer(t)
	input, output := renderer.NewRenderTarget(2, 2), renderer.NewRenderTarget(2, 2)
	fill(t, r, input, common.Color{0, 0, 1, 1})

	p := NewShaderPass(material.NewCopyMaterial(), "")
	assert.Equal(t, material.UniformInputBuffer, p.InputKey())
	assert.True(t, p.NeedsSwap())
	require.NoError(t, p.Render(r, input, output, 0, false))
	assert.Equal(t, [4]uint8{0, 0, 255, 255}, pixel(read(t, r, output), 1, 0))
}

func TestCopyPassKeepsSnapshot(t *testing.T) {
	r := newTestRenderer(t)
	input := renderer.NewRenderTarget(4, 2)
	fill(t, r, input, common.Color{1, 0, 0, 1})

	p := NewCopyPass()
	require.NoError(t, p.Initialize(r, true, common.PixelTypeHalfFloat))
	assert.Equal(t, common.PixelTypeHalfFloat, p.Target().PixelType())
	p.SetSize(4, 2)
	require.NoError(t, p.Render(r, input, nil, 0, false))

	fill(t, r, input, common.Black)
	assert.Equal(t, [4]uint8{255, 0, 0, 255}, pixel(read(t, r, p.Target()), 3, 1))

	p.SetAutoResize(false)
	p.SetSize(8, 8)
	assert.Equal(t, common.Size{Width: 4, Height: 2}, p.Target().Size())
}

func TestCopyPassForeignTargetIsKept(t *testing.T) {
	r := newTestRenderer(t)
	target := renderer.NewRenderTarget(3, 3)
	p := NewCopyPass(WithCopyTarget(target), WithAutoResize(false))
	require.NoError(t, p.Initialize(r, true, common.PixelTypeHalfFloat))
	assert.Equal(t, target, p.Target())
	p.Dispose()
	assert.False(t, target.Disposed())
}
