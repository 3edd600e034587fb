package postprocessing

import (
	"errors"
	"image"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/camera"
	"github.com/Carmen-Shannon/oxy-fx/engine/postprocessing/effect"
	"github.com/Carmen-Shannon/oxy-fx/engine/postprocessing/pass"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRenderer(t *testing.T, width, height int) renderer.Renderer {
	t.Helper()
	r, err := renderer.NewRenderer(renderer.BackendTypeHeadless, renderer.WithSize(width, height))
	require.NoError(t, err)
	t.Cleanup(r.Dispose)
	return r
}

func newTestComposer(t *testing.T, r renderer.Renderer, options ...ComposerBuilderOption) Composer {
	t.Helper()
	c, err := NewComposer(r, options...)
	require.NoError(t, err)
	t.Cleanup(c.Dispose)
	return c
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

// recordingPass records the frames it was asked to render.
type recordingPass struct {
	*pass.Base

	deltas   []float32
	stencils []bool
	err      error
}

func newRecordingPass(name string) *recordingPass {
	p := &recordingPass{Base: pass.NewBase(name, nil, nil)}
	p.SetNeedsSwap(false)
	return p
}

func (p *recordingPass) Render(_ renderer.Renderer, _, _ renderer.RenderTarget, delta float32, stencilTest bool) error {
	p.deltas = append(p.deltas, delta)
	p.stencils = append(p.stencils, stencilTest)
	return p.err
}

func TestNewComposerRequiresRenderer(t *testing.T) {
	_, err := NewComposer(nil)
	assert.ErrorIs(t, err, ErrNoRenderer)
}

func TestComposerBuffers(t *testing.T) {
	r := newTestRenderer(t, 800, 600)
	c := newTestComposer(t, r, WithStencilBuffer(true), WithFrameBufferType(common.PixelTypeHalfFloat))

	in, out := c.InputBuffer(), c.OutputBuffer()
	assert.NotSame(t, in, out)
	for _, b := range []renderer.RenderTarget{in, out} {
		assert.Equal(t, common.Size{Width: 800, Height: 600}, b.Size())
		assert.True(t, b.DepthBuffer())
		assert.True(t, b.StencilBuffer())
		assert.Equal(t, common.PixelTypeHalfFloat, b.PixelType())
		assert.Equal(t, common.ColorSpaceLinear, b.ColorSpace())
	}
}

func TestComposerSetSize(t *testing.T) {
	r := newTestRenderer(t, 800, 600)
	c := newTestComposer(t, r)
	p := newRecordingPass("recording")
	require.NoError(t, c.AddPass(p))

	c.SetSize(400, 300, true)
	assert.Equal(t, common.Size{Width: 400, Height: 300}, r.Size())
	assert.Equal(t, common.Size{Width: 400, Height: 300}, c.InputBuffer().Size())
	assert.Equal(t, common.Size{Width: 400, Height: 300}, c.OutputBuffer().Size())

	c.SetSize(200, 100, false)
	assert.Equal(t, common.Size{Width: 400, Height: 300}, r.Size(), "the renderer keeps its size")
	assert.Equal(t, common.Size{Width: 200, Height: 100}, c.Size())

	c.SetSize(800, 600, true)
	assert.Equal(t, common.Size{Width: 800, Height: 600}, c.Size())
	assert.Equal(t, common.Size{Width: 800, Height: 600}, c.OutputBuffer().Size())
}

func TestComposerAutoRenderToScreen(t *testing.T) {
	c := newTestComposer(t, newTestRenderer(t, 4, 2))
	a, b := newRecordingPass("a"), newRecordingPass("b")

	require.NoError(t, c.AddPass(a))
	assert.True(t, a.RenderToScreen())
	require.NoError(t, c.AddPass(b))
	assert.False(t, a.RenderToScreen())
	assert.True(t, b.RenderToScreen())

	assert.True(t, c.RemovePass(b))
	assert.True(t, a.RenderToScreen(), "the new last pass renders to screen")
	assert.False(t, c.RemovePass(b))

	manual := newRecordingPass("manual")
	manual.SetRenderToScreen(true)
	require.NoError(t, c.AddPass(manual))
	assert.False(t, c.AutoRenderToScreen(), "a pass flagged by hand disables the automatic flag")
}

func TestComposerAddPassAt(t *testing.T) {
	c := newTestComposer(t, newTestRenderer(t, 4, 2), WithAutoRenderToScreen(false))
	a, b, mid := newRecordingPass("a"), newRecordingPass("b"), newRecordingPass("mid")
	require.NoError(t, c.AddPass(a))
	require.NoError(t, c.AddPass(b))
	require.NoError(t, c.AddPassAt(mid, 1))
	assert.Equal(t, []pass.Pass{a, mid, b}, c.Passes())
	assert.False(t, b.RenderToScreen())

	assert.ErrorIs(t, c.AddPassAt(newRecordingPass("bad"), 5), ErrPassIndex)

	c.RemoveAllPasses()
	assert.Empty(t, c.Passes())
}

func TestComposerRenderSkipsDisabledPasses(t *testing.T) {
	c := newTestComposer(t, newTestRenderer(t, 4, 2))
	a, b := newRecordingPass("a"), newRecordingPass("b")
	b.SetEnabled(false)
	require.NoError(t, c.AddPass(a))
	require.NoError(t, c.AddPass(b))

	require.NoError(t, c.Render(0.5))
	assert.Equal(t, []float32{0.5}, a.deltas)
	assert.Empty(t, b.deltas)
}

func TestComposerRenderMeasuresDelta(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	c := newTestComposer(t, newTestRenderer(t, 4, 2), WithTimer(newTimer(clock.Now)))
	p := newRecordingPass("a")
	require.NoError(t, c.AddPass(p))

	require.NoError(t, c.Render(-1))
	clock.advance(250 * time.Millisecond)
	require.NoError(t, c.Render(-1))
	assert.Equal(t, []float32{0, 0.25}, p.deltas)
}

func TestComposerRenderWrapsPassErrors(t *testing.T) {
	c := newTestComposer(t, newTestRenderer(t, 4, 2))
	boom := errors.New("boom")
	p := newRecordingPass("failing")
	p.err = boom
	next := newRecordingPass("next")
	require.NoError(t, c.AddPass(p))
	require.NoError(t, c.AddPass(next))

	err := c.Render(0)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failing")
	assert.Empty(t, next.deltas, "passes after a failure do not run")
}

func TestComposerPassObserver(t *testing.T) {
	var names []string
	c := newTestComposer(t, newTestRenderer(t, 4, 2), WithPassObserver(func(name string, d time.Duration) {
		assert.GreaterOrEqual(t, d, time.Duration(0))
		names = append(names, name)
	}))
	require.NoError(t, c.AddPass(newRecordingPass("a")))
	require.NoError(t, c.AddPass(newRecordingPass("b")))
	require.NoError(t, c.Render(0))
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestComposerRenderChain(t *testing.T) {
	r := newTestRenderer(t, 800, 600)
	c := newTestComposer(t, r)
	scene := renderer.NewScene(renderer.Quad{X0: 0.25, Y0: 0.25, X1: 0.75, Y1: 0.75, Depth: 0.5, Color: common.White})
	cam := camera.NewCamera()

	bloom := effect.NewBloomEffect(nil)
	ep, err := NewEffectPass(cam, []effect.Effect{bloom})
	require.NoError(t, err)
	require.NoError(t, c.AddPass(pass.NewRenderPass(scene, cam)))
	require.NoError(t, c.AddPass(ep))
	assert.True(t, ep.RenderToScreen())

	require.NoError(t, c.Render(1.0/60))
	img := read(t, r, nil)
	assert.Equal(t, 800, img.Bounds().Dx())
	assert.Equal(t, 600, img.Bounds().Dy())
	center := pixel(img, 400, 300)
	assert.Equal(t, uint8(255), center[0])
}

func TestComposerTracksStencilBracket(t *testing.T) {
	c := newTestComposer(t, newTestRenderer(t, 4, 2), WithStencilBuffer(true))
	before, inside, after := newRecordingPass("before"), newRecordingPass("inside"), newRecordingPass("after")
	require.NoError(t, c.AddPass(before))
	require.NoError(t, c.AddPass(pass.NewMaskPass(renderer.NewScene(), camera.NewCamera())))
	require.NoError(t, c.AddPass(inside))
	require.NoError(t, c.AddPass(pass.NewClearMaskPass()))
	require.NoError(t, c.AddPass(after))

	require.NoError(t, c.Render(0))
	assert.Equal(t, []bool{false}, before.stencils)
	assert.Equal(t, []bool{true}, inside.stencils)
	assert.Equal(t, []bool{false}, after.stencils)
}

// maskedSepia runs [clear gray, mask, sepia, clear mask] and returns the composited output.
func maskedSepia(t *testing.T, scene renderer.Scene) (*image.RGBA, *image.RGBA) {
	t.Helper()
	r := newTestRenderer(t, 4, 2)
	c := newTestComposer(t, r, WithStencilBuffer(true))
	cam := camera.NewCamera()
	gray := common.Color{0.5, 0.5, 0.5, 1}

	sepia, err := NewEffectPass(cam, []effect.Effect{effect.NewSepiaEffect()})
	require.NoError(t, err)
	require.NoError(t, c.AddPass(pass.NewClearPass(true, true, true, pass.WithOverrideClearColor(gray))))
	require.NoError(t, c.AddPass(pass.NewMaskPass(scene, cam)))
	require.NoError(t, c.AddPass(sepia))
	require.NoError(t, c.AddPass(pass.NewClearMaskPass()))

	require.NoError(t, c.Render(0))
	return read(t, r, c.InputBuffer()), read(t, r, c.OutputBuffer())
}

func TestEmptyMaskBracketChangesNoPixels(t *testing.T) {
	input, output := maskedSepia(t, renderer.NewScene())
	assert.Equal(t, input.Pix, output.Pix)
}

func TestMaskWithoutSceneKeepsEffectOutput(t *testing.T) {
	input, output := maskedSepia(t, nil)
	assert.NotEqual(t, pixel(input, 0, 0), pixel(output, 0, 0), "the effect output is not overwritten")
	assert.NotEqual(t, pixel(input, 3, 1), pixel(output, 3, 1))
}

func TestMaskBracketCopiesUnmaskedPixels(t *testing.T) {
	left := renderer.NewScene(renderer.Quad{X0: 0, Y0: 0, X1: 0.5, Y1: 1, Depth: 0.5, Color: common.White})
	input, output := maskedSepia(t, left)

	assert.NotEqual(t, pixel(input, 0, 0), pixel(output, 0, 0), "masked pixels run the effect")
	assert.NotEqual(t, pixel(input, 1, 1), pixel(output, 1, 1))
	assert.Equal(t, pixel(input, 2, 0), pixel(output, 2, 0), "unmasked pixels are copied")
	assert.Equal(t, pixel(input, 3, 1), pixel(output, 3, 1))
}

func TestComposerDepthTextureArena(t *testing.T) {
	c := newTestComposer(t, newTestRenderer(t, 4, 2))
	cam := camera.NewCamera()

	a, err := NewEffectPass(cam, []effect.Effect{effect.NewDepthEffect()})
	require.NoError(t, err)
	b, err := NewEffectPass(cam, []effect.Effect{effect.NewDepthEffect()})
	require.NoError(t, err)
	plain := newRecordingPass("plain")

	require.NoError(t, c.AddPass(plain))
	assert.Nil(t, c.DepthTexture())

	require.NoError(t, c.AddPass(a))
	depth := c.DepthTexture()
	require.NotNil(t, depth)
	assert.Equal(t, depth, a.DepthTexture())
	assert.Equal(t, depth, c.InputBuffer().DepthTexture())
	assert.Nil(t, plain.DepthTexture())

	require.NoError(t, c.AddPass(b))
	assert.Equal(t, depth, c.DepthTexture(), "consumers share one texture")
	assert.Equal(t, depth, b.DepthTexture())

	c.RemovePass(a)
	assert.Equal(t, depth, c.DepthTexture())
	assert.Nil(t, a.DepthTexture())
	assert.False(t, depth.Disposed())

	c.RemovePass(b)
	assert.Nil(t, c.DepthTexture())
	assert.Nil(t, c.InputBuffer().DepthTexture())
	assert.True(t, depth.Disposed())
}

func TestComposerDepthFollowsNeedsDepthTexture(t *testing.T) {
	c := newTestComposer(t, newTestRenderer(t, 4, 2))
	ep, err := NewEffectPass(camera.NewCamera(), []effect.Effect{effect.NewSepiaEffect()})
	require.NoError(t, err)
	require.NoError(t, c.AddPass(ep))
	assert.Nil(t, c.DepthTexture())

	require.NoError(t, ep.SetEffects(effect.NewDepthEffect()))
	require.NoError(t, c.Render(0))
	require.NotNil(t, c.DepthTexture())

	require.NoError(t, ep.SetEffects(effect.NewSepiaEffect()))
	require.NoError(t, c.Render(0))
	assert.Nil(t, c.DepthTexture())
}

func TestComposerReplaceRenderer(t *testing.T) {
	old := newTestRenderer(t, 8, 4)
	c := newTestComposer(t, old)
	require.NoError(t, c.AddPass(newRecordingPass("a")))

	next := newTestRenderer(t, 1, 1)
	prev, err := c.ReplaceRenderer(next)
	require.NoError(t, err)
	assert.Equal(t, old, prev)
	assert.Equal(t, next, c.Renderer())
	assert.Equal(t, common.Size{Width: 8, Height: 4}, next.Size())
	assert.Equal(t, common.Size{Width: 8, Height: 4}, c.Size())
}

func TestComposerResetAndDispose(t *testing.T) {
	c := newTestComposer(t, newTestRenderer(t, 4, 2))
	require.NoError(t, c.AddPass(newRecordingPass("a")))
	in := c.InputBuffer()

	c.Reset()
	assert.Empty(t, c.Passes())
	assert.True(t, in.Disposed())
	assert.False(t, c.InputBuffer().Disposed())
	assert.True(t, c.AutoRenderToScreen())
	require.NoError(t, c.Render(0))

	c.Dispose()
	assert.ErrorIs(t, c.Render(0), ErrComposerDisposed)
	assert.ErrorIs(t, c.AddPass(newRecordingPass("b")), ErrComposerDisposed)
}

func TestComposerMultisampling(t *testing.T) {
	c := newTestComposer(t, newTestRenderer(t, 4, 2), WithMultisampling(4))
	assert.Equal(t, 4, c.Multisampling())
	c.SetMultisampling(0)
	assert.Equal(t, 0, c.Multisampling())
	assert.Equal(t, 0, c.InputBuffer().Samples())
}
