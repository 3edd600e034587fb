package renderer

import (
	"image"
	"image/color"
	"runtime"
	"sync/atomic"
	"testing"

	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/camera"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/material"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRenderer(t *testing.T, options ...RendererBuilderOption) Renderer {
	t.Helper()
	r, err := NewRenderer(BackendTypeHeadless, append([]RendererBuilderOption{WithSize(4, 2)}, options...)...)
	require.NoError(t, err)
	t.Cleanup(r.Dispose)
	return r
}

func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < w*h; i++ {
		img.Pix[i*4+0], img.Pix[i*4+1], img.Pix[i*4+2], img.Pix[i*4+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func pixel(img *image.RGBA, x, y int) [4]uint8 {
	o := img.PixOffset(x, y)
	return [4]uint8{img.Pix[o], img.Pix[o+1], img.Pix[o+2], img.Pix[o+3]}
}

func TestClearHonorsColorMask(t *testing.T) {
	r := newTestRenderer(t, WithClearColor(common.Color{1, 0, 0, 1}))
	rt := NewRenderTarget(2, 2)
	r.SetRenderTarget(rt)

	require.NoError(t, r.Clear(true, true, true))
	img, err := r.ReadPixels(rt)
	require.NoError(t, err)
	assert.Equal(t, [4]uint8{255, 0, 0, 255}, pixel(img, 1, 1))

	r.SetClearColor(common.Color{0, 1, 0, 1})
	r.State().Color.SetMask(false)
	require.NoError(t, r.Clear(true, false, false))
	img, err = r.ReadPixels(rt)
	require.NoError(t, err)
	assert.Equal(t, [4]uint8{255, 0, 0, 255}, pixel(img, 0, 0), "masked clear leaves color untouched")
	assert.Equal(t, uint64(1), r.Info().Clears)
}

func TestStencilMasksFullscreenDraw(t *testing.T) {
	r := newTestRenderer(t, WithClearColor(common.Transparent))
	rt := NewRenderTarget(4, 2, WithStencilBuffer(true))
	r.SetRenderTarget(rt)
	require.NoError(t, r.Clear(true, true, true))

	// write 1 into the stencil of the left half without touching color or depth
	s := r.State()
	s.Color.SetMask(false)
	s.Color.SetLocked(true)
	s.Depth.SetMask(false)
	s.Depth.SetLocked(true)
	s.Stencil.SetTest(true)
	s.Stencil.SetOp(wgpu.StencilOperationReplace, wgpu.StencilOperationReplace, wgpu.StencilOperationReplace)
	s.Stencil.SetFunc(wgpu.CompareFunctionAlways, 1, 0xFFFFFFFF)
	s.Stencil.SetLocked(true)
	scene := NewScene(Quad{X0: 0, Y0: 0, X1: 0.5, Y1: 1, Depth: 0.5, Color: common.White})
	require.NoError(t, r.Render(scene, camera.NewCamera()))

	img, err := r.ReadPixels(rt)
	require.NoError(t, err)
	assert.Equal(t, [4]uint8{0, 0, 0, 0}, pixel(img, 0, 0), "color writes were masked")

	s.Color.SetLocked(false)
	s.Depth.SetLocked(false)
	s.Stencil.SetLocked(false)
	s.Stencil.SetFunc(wgpu.CompareFunctionEqual, 1, 0xFFFFFFFF)
	s.Stencil.SetOp(wgpu.StencilOperationKeep, wgpu.StencilOperationKeep, wgpu.StencilOperationKeep)
	s.Stencil.SetLocked(true)

	white, err := r.UploadImage("white", solidImage(4, 2, color.RGBA{255, 255, 255, 255}))
	require.NoError(t, err)
	copyMaterial := material.NewCopyMaterial()
	copyMaterial.Uniform(material.UniformInputBuffer).SetTexture(white)
	require.NoError(t, r.DrawFullscreen(copyMaterial))

	img, err = r.ReadPixels(rt)
	require.NoError(t, err)
	assert.Equal(t, [4]uint8{255, 255, 255, 255}, pixel(img, 0, 0))
	assert.Equal(t, [4]uint8{255, 255, 255, 255}, pixel(img, 1, 1))
	assert.Equal(t, [4]uint8{0, 0, 0, 0}, pixel(img, 2, 0))
	assert.Equal(t, [4]uint8{0, 0, 0, 0}, pixel(img, 3, 1))
}

func TestDepthTestKeepsNearestQuad(t *testing.T) {
	r := newTestRenderer(t)
	rt := NewRenderTarget(2, 2)
	r.SetRenderTarget(rt)

	scene := NewScene(
		Quad{X0: 0, Y0: 0, X1: 1, Y1: 0.5, Depth: 0.2, Color: common.Color{1, 0, 0, 1}},
		Quad{X0: 0, Y0: 0, X1: 1, Y1: 1, Depth: 0.5, Color: common.Color{0, 1, 0, 1}},
	)
	require.NoError(t, r.Render(scene, camera.NewCamera()))

	img, err := r.ReadPixels(rt)
	require.NoError(t, err)
	assert.Equal(t, [4]uint8{255, 0, 0, 255}, pixel(img, 0, 0))
	assert.Equal(t, [4]uint8{0, 255, 0, 255}, pixel(img, 0, 1))

	depth, err := r.ReadDepth(rt)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, depth[0], 1e-6)
	assert.InDelta(t, 0.5, depth[2], 1e-6)
}

func TestNormalBlending(t *testing.T) {
	r := newTestRenderer(t, WithClearColor(common.Black))
	rt := NewRenderTarget(1, 1, WithDepthBuffer(false))
	r.SetRenderTarget(rt)
	require.NoError(t, r.Clear(true, false, false))

	scene := NewScene(Quad{X0: 0, Y0: 0, X1: 1, Y1: 1, Color: common.Color{1, 1, 1, 0.5}, Blending: material.BlendingNormal})
	require.NoError(t, r.Render(scene, camera.NewCamera()))

	img, err := r.ReadPixels(rt)
	require.NoError(t, err)
	got := pixel(img, 0, 0)
	assert.InDelta(t, 128, int(got[0]), 1)
	assert.Equal(t, uint8(255), got[3])
}

func TestReadPixelsEncodesSRGB(t *testing.T) {
	r := newTestRenderer(t, WithClearColor(common.Color{0.5, 0.5, 0.5, 1}))
	rt := NewRenderTarget(1, 1, WithColorSpace(common.ColorSpaceSRGB))
	r.SetRenderTarget(rt)
	require.NoError(t, r.Clear(true, false, false))

	img, err := r.ReadPixels(rt)
	require.NoError(t, err)
	assert.InDelta(t, 188, int(pixel(img, 0, 0)[0]), 1)
}

func TestUploadImageRoundTrip(t *testing.T) {
	r := newTestRenderer(t)
	src := solidImage(2, 2, color.RGBA{200, 100, 50, 255})
	tex, err := r.UploadImage("photo", src)
	require.NoError(t, err)
	assert.Equal(t, common.ColorSpaceSRGB, tex.ColorSpace())

	rt := NewRenderTarget(2, 2, WithColorSpace(common.ColorSpaceSRGB))
	r.SetRenderTarget(rt)
	m := material.NewCopyMaterial()
	m.Uniform(material.UniformInputBuffer).SetTexture(tex)
	require.NoError(t, r.DrawFullscreen(m))

	img, err := r.ReadPixels(rt)
	require.NoError(t, err)
	got := pixel(img, 1, 0)
	assert.InDelta(t, 200, int(got[0]), 1)
	assert.InDelta(t, 100, int(got[1]), 1)
	assert.InDelta(t, 50, int(got[2]), 1)

	_, err = r.UploadImage("empty", image.NewRGBA(image.Rect(0, 0, 0, 0)))
	assert.Error(t, err)
}

func TestMaterialWithoutKernelCopiesInput(t *testing.T) {
	r := newTestRenderer(t)
	src, err := r.UploadImage("gray", solidImage(1, 1, color.RGBA{0, 0, 255, 255}))
	require.NoError(t, err)

	m := material.NewShaderMaterial("custom", "fn f() {}",
		material.WithUniform(material.UniformInputBuffer, material.TextureUniform(src)))
	rt := NewRenderTarget(1, 1, WithColorSpace(common.ColorSpaceSRGB))
	r.SetRenderTarget(rt)
	require.NoError(t, r.DrawFullscreen(m))

	img, err := r.ReadPixels(rt)
	require.NoError(t, err)
	assert.Equal(t, [4]uint8{0, 0, 255, 255}, pixel(img, 0, 0))
}

func TestDisposedMaterialAndTarget(t *testing.T) {
	r := newTestRenderer(t)
	m := material.NewCopyMaterial()
	m.Dispose()
	assert.Error(t, r.DrawFullscreen(m))

	rt := NewRenderTarget(1, 1)
	r.SetRenderTarget(rt)
	rt.Dispose()
	assert.ErrorIs(t, r.DrawFullscreen(material.NewCopyMaterial()), ErrTargetDisposed)
}

func TestSetRenderTargetFace(t *testing.T) {
	r := newTestRenderer(t)
	flat := NewRenderTarget(1, 1)
	assert.ErrorIs(t, r.SetRenderTargetFace(flat, 1, 0), ErrCubeTarget)
	assert.ErrorIs(t, r.SetRenderTargetFace(flat, 0, 1), ErrMipLevel)

	cube := NewRenderTarget(1, 1, WithCube(true))
	require.NoError(t, r.SetRenderTargetFace(cube, 5, 0))
	assert.ErrorIs(t, r.SetRenderTargetFace(cube, CubeFaces, 0), ErrCubeTarget)
	assert.Equal(t, cube, r.RenderTarget())
}

func TestLoseAndRestore(t *testing.T) {
	r := newTestRenderer(t, WithClearColor(common.White))
	rt := NewRenderTarget(1, 1)
	r.SetRenderTarget(rt)
	require.NoError(t, r.Clear(true, true, true))

	r.Lose()
	assert.True(t, r.Lost())
	assert.ErrorIs(t, r.Clear(true, false, false), ErrContextLost)
	_, err := r.ReadPixels(rt)
	assert.ErrorIs(t, err, ErrContextLost)

	r.Restore()
	assert.False(t, r.Lost())
	img, err := r.ReadPixels(rt)
	require.NoError(t, err)
	assert.Equal(t, [4]uint8{0, 0, 0, 0}, pixel(img, 0, 0), "storage was recreated")
}

func TestCapabilitiesClampSamples(t *testing.T) {
	r := newTestRenderer(t, WithMSAA(MSAA4x))
	assert.Equal(t, 4, r.Capabilities().MaxSamples)

	rt := NewRenderTarget(1, 1, WithSamples(8))
	r.SetRenderTarget(rt)
	assert.Equal(t, 4, rt.Samples())
}

func TestSizeAndPixelRatio(t *testing.T) {
	r := newTestRenderer(t)
	r.SetPixelRatio(2)
	assert.Equal(t, common.Size{Width: 8, Height: 4}, r.DrawingBufferSize())
	r.SetSize(10, 5)
	assert.Equal(t, common.Size{Width: 10, Height: 5}, r.Size())
	assert.Equal(t, common.Size{Width: 20, Height: 10}, r.DrawingBufferSize())

	img, err := r.ReadPixels(nil)
	require.NoError(t, err)
	assert.Equal(t, 20, img.Bounds().Dx())
}

func TestDisposeRejectsDraws(t *testing.T) {
	r, err := NewRenderer(BackendTypeHeadless)
	require.NoError(t, err)
	r.Dispose()
	assert.ErrorIs(t, r.Present(), ErrDisposed)
}

func TestHeadlessBackendsShareRowPool(t *testing.T) {
	shade := func() {
		b := newHeadlessRendererBackend().(*headlessRendererBackendImpl)
		var rows atomic.Int64
		b.parallelRows(64, func(y0, y1 int) { rows.Add(int64(y1 - y0)) })
		assert.Equal(t, int64(64), rows.Load())
		b.Release()
	}
	shade()
	baseline := runtime.NumGoroutine()

	for i := 0; i < 20; i++ {
		shade()
	}
	assert.LessOrEqual(t, runtime.NumGoroutine(), baseline+2, "backends must not leave workers behind")
}
