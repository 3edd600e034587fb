package renderer

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTargetSetSize(t *testing.T) {
	rt := NewRenderTarget(4, 4, WithTargetName("scene"))
	inner := asTarget(rt)
	v := inner.texture.version

	rt.SetSize(4, 4)
	assert.Equal(t, v, inner.texture.version, "same size is a no-op")

	rt.SetSize(8, 2)
	assert.Equal(t, common.Size{Width: 8, Height: 2}, rt.Size())
	assert.Equal(t, 8, rt.Texture().Width())
	assert.Greater(t, inner.texture.version, v)

	rt.SetSize(0, -1)
	assert.Equal(t, common.Size{Width: 1, Height: 1}, rt.Size())
	assert.Equal(t, "scene", rt.Name())
}

func TestDepthTextureFollowsTarget(t *testing.T) {
	depth := NewDepthTexture(1, 1, true)
	rt := NewRenderTarget(16, 8, WithDepthTexture(depth))
	assert.Equal(t, 16, depth.Width())
	assert.True(t, rt.DepthBuffer())
	assert.True(t, rt.StencilBuffer())
	assert.Equal(t, common.TextureKindDepthStencil, depth.Kind())

	rt.SetSize(32, 16)
	assert.Equal(t, 32, depth.Width())
	assert.Equal(t, 16, depth.Height())

	rt.SetDepthTexture(nil)
	assert.Nil(t, rt.DepthTexture())
	assert.False(t, rt.StencilBuffer())
}

func TestRenderTargetClone(t *testing.T) {
	rt := NewRenderTarget(3, 5,
		WithTargetName("buffer"),
		WithStencilBuffer(true),
		WithPixelType(common.PixelTypeHalfFloat),
		WithColorSpace(common.ColorSpaceSRGB),
		WithSamples(4),
	)
	c := rt.Clone()
	assert.Equal(t, "buffer-clone", c.Name())
	assert.Equal(t, rt.Size(), c.Size())
	assert.True(t, c.StencilBuffer())
	assert.Equal(t, common.PixelTypeHalfFloat, c.PixelType())
	assert.Equal(t, common.ColorSpaceSRGB, c.ColorSpace())
	assert.Equal(t, 4, c.Samples())
	assert.NotSame(t, rt.Texture().(*texture), c.Texture().(*texture))
}

func TestTextureDisposeListeners(t *testing.T) {
	tex := newTexture("t", 1, 1, common.TextureKindColor)
	calls := 0
	tex.addDisposeListener(func() { calls++ })
	tex.Dispose()
	tex.Dispose()
	assert.Equal(t, 1, calls)

	tex.addDisposeListener(func() { calls++ })
	assert.Equal(t, 2, calls, "listeners added after dispose run immediately")
	assert.True(t, tex.Disposed())
}

func TestCubeTargetHasSixFaces(t *testing.T) {
	rt := NewRenderTarget(2, 2, WithCube(true))
	require.True(t, rt.Cube())
	assert.Equal(t, CubeFaces, asTarget(rt).texture.describe().faces)
}
