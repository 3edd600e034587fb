package pass

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/camera"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/material"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func maskFixture(t *testing.T) (renderer.Renderer, renderer.RenderTarget, renderer.RenderTarget, renderer.Scene) {
	t.Helper()
	r := newTestRenderer(t)
	input := renderer.NewRenderTarget(4, 2, renderer.WithStencilBuffer(true))
	output := renderer.NewRenderTarget(4, 2, renderer.WithStencilBuffer(true))
	fill(t, r, input, common.White)
	fill(t, r, output, common.Black)
	scene := renderer.NewScene(renderer.Quad{X0: 0, Y0: 0, X1: 0.5, Y1: 1, Depth: 0.5, Color: common.Color{1, 0, 0, 1}})
	return r, input, output, scene
}

func TestEmptyMaskBracketChangesNothing(t *testing.T) {
	r, input, output, scene := maskFixture(t)
	before := read(t, r, input).Pix
	beforeOut := read(t, r, output).Pix

	mask := NewMaskPass(scene, camera.NewCamera())
	require.NoError(t, mask.Render(r, input, output, 0, false))
	assert.True(t, mask.MasksStencil())

	clearMask := NewClearMaskPass()
	require.NoError(t, clearMask.Render(r, input, output, 0, true))
	assert.False(t, clearMask.MasksStencil())

	assert.Equal(t, before, read(t, r, input).Pix)
	assert.Equal(t, beforeOut, read(t, r, output).Pix)
	assert.False(t, r.State().Stencil.Test())
	assert.False(t, r.State().Stencil.Locked())
	assert.False(t, r.State().Color.Locked())
	assert.False(t, r.State().Depth.Locked())
	assert.True(t, r.State().Color.Mask(), "clears after the bracket are not masked")
}

func TestMaskWithoutSceneDoesNotMask(t *testing.T) {
	r, input, output, _ := maskFixture(t)
	before := read(t, r, output).Pix

	mask := NewMaskPass(nil, camera.NewCamera())
	assert.False(t, mask.MasksStencil())
	require.NoError(t, mask.Render(r, input, output, 0, false))
	assert.False(t, mask.MasksStencil())
	assert.False(t, r.State().Stencil.Locked())
	assert.Equal(t, before, read(t, r, output).Pix)
}

func TestMaskRestrictsFollowingPasses(t *testing.T) {
	r, input, output, scene := maskFixture(t)

	mask := NewMaskPass(scene, camera.NewCamera())
	assert.False(t, mask.NeedsSwap())
	require.NoError(t, mask.Render(r, input, output, 0, false))

	fn, ref, _ := r.State().Stencil.Func()
	assert.Equal(t, wgpu.CompareFunctionEqual, fn)
	assert.Equal(t, uint32(1), ref)
	assert.True(t, r.State().Stencil.Locked())

	copyPass := NewShaderPass(material.NewCopyMaterial(), "")
	require.NoError(t, copyPass.Render(r, input, output, 0, true))

	img := read(t, r, output)
	assert.Equal(t, [4]uint8{255, 255, 255, 255}, pixel(img, 0, 0))
	assert.Equal(t, [4]uint8{255, 255, 255, 255}, pixel(img, 1, 1))
	assert.Equal(t, [4]uint8{0, 0, 0, 255}, pixel(img, 2, 0))
	assert.Equal(t, [4]uint8{0, 0, 0, 255}, pixel(img, 3, 1))
}

func TestInvertedMask(t *testing.T) {
	r, input, output, scene := maskFixture(t)

	mask := NewMaskPass(scene, camera.NewCamera(), WithInverted(true))
	assert.True(t, mask.Inverted())
	require.NoError(t, mask.Render(r, input, output, 0, false))
	require.NoError(t, NewShaderPass(material.NewCopyMaterial(), "").Render(r, input, output, 0, true))

	img := read(t, r, output)
	assert.Equal(t, [4]uint8{0, 0, 0, 255}, pixel(img, 0, 0))
	assert.Equal(t, [4]uint8{255, 255, 255, 255}, pixel(img, 3, 0))
}
