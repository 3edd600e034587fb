package pass

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var flat = common.Color{0.5, 0.25, 1, 1}

func assertFlat(t *testing.T, r renderer.Renderer, target renderer.RenderTarget) {
	t.Helper()
	img := read(t, r, target)
	want := [4]uint8{128, 64, 255, 255}
	for y := 0; y < target.Height(); y++ {
		for x := 0; x < target.Width(); x++ {
			got := pixel(img, x, y)
			for c := range got {
				assert.InDelta(t, int(want[c]), int(got[c]), 1, "pixel %d,%d channel %d", x, y, c)
			}
		}
	}
}

func TestLuminancePass(t *testing.T) {
	r := newTestRenderer(t)
	p := NewLuminancePass(WithLuminanceResolutionScale(0.5))
	p.SetSize(8, 4)
	assert.Equal(t, common.Size{Width: 4, Height: 2}, p.Target().Size())
	assert.Equal(t, 4, p.Texture().Width())

	input := renderer.NewRenderTarget(8, 4)
	fill(t, r, input, common.White)
	require.NoError(t, p.Render(r, input, nil, 0, false))
	assert.Equal(t, [4]uint8{255, 255, 255, 255}, pixel(read(t, r, p.Target()), 0, 0))

	p.SetThreshold(0.5)
	assert.Equal(t, float32(0.5), p.Threshold())
	_, ok := p.Material().Define(defineThreshold)
	assert.True(t, ok)
	p.SetThresholdEnabled(false)
	_, ok = p.Material().Define(defineThreshold)
	assert.False(t, ok)
}

func TestLuminanceInitializeKeepsResolution(t *testing.T) {
	r := newTestRenderer(t)
	p := NewLuminancePass()
	p.SetSize(6, 2)
	require.NoError(t, p.Initialize(r, true, common.PixelTypeHalfFloat))
	assert.Equal(t, common.PixelTypeHalfFloat, p.Target().PixelType())
	assert.Equal(t, common.Size{Width: 6, Height: 2}, p.Target().Size())

	p.SetSize(10, 4)
	assert.Equal(t, common.Size{Width: 10, Height: 4}, p.Target().Size(), "the new target is driven")
}

func TestKernelSizeSequence(t *testing.T) {
	assert.Equal(t, []float32{0, 0}, KernelSizeVerySmall.Sequence())
	assert.Equal(t, []float32{0, 1, 2, 2, 3}, KernelSizeLarge.Sequence())
	assert.Len(t, KernelSizeHuge.Sequence(), 10)
	assert.Equal(t, KernelSizeLarge.Sequence(), KernelSize(42).Sequence())

	seq := KernelSizeSmall.Sequence()
	seq[0] = 9
	assert.Equal(t, float32(0), KernelSizeSmall.Sequence()[0], "presets are copied")
}

func TestKawaseBlurPass(t *testing.T) {
	r := newTestRenderer(t)
	p := NewKawaseBlurPass(WithKernelSize(KernelSizeSmall), WithBlurScale(1.5))
	assert.Equal(t, float32(1.5), p.Scale())
	assert.Equal(t, float32(0.5), p.Resolution().Scale())

	p.SetSize(8, 4)
	assert.Equal(t, common.Size{Width: 4, Height: 2}, p.Resolution().Size())

	input, output := renderer.NewRenderTarget(8, 4), renderer.NewRenderTarget(8, 4)
	fill(t, r, input, flat)
	tex, err := p.Blur(r, input)
	require.NoError(t, err)
	assert.Same(t, p.Texture(), tex, "three iterations end in target A")
	assert.Equal(t, 4, tex.Width())

	require.NoError(t, p.Render(r, input, output, 0, false))
	assertFlat(t, r, output)

	p.SetKernelSize(KernelSizeMedium)
	tex, err = p.Blur(r, input)
	require.NoError(t, err)
	assert.Same(t, p.Texture(), tex)
}

func TestMipmapBlurLevels(t *testing.T) {
	p := NewMipmapBlurPass()
	assert.Equal(t, DefaultMipLevels, p.Levels())
	assert.InDelta(t, 0.85, p.Radius(), 1e-6)

	for _, n := range []int{1, 2, 5, 8} {
		p.SetLevels(n)
		assert.Len(t, p.DownsamplingTargets(), n)
		assert.Len(t, p.UpsamplingTargets(), n-1)
	}
	p.SetLevels(0)
	assert.Equal(t, 1, p.Levels())
	assert.Same(t, p.DownsamplingTargets()[0].Texture(), p.Texture())
}

func TestMipmapBlurSizes(t *testing.T) {
	p := NewMipmapBlurPass(WithLevels(4))
	p.SetSize(800, 600)
	down, up := p.DownsamplingTargets(), p.UpsamplingTargets()
	want := []common.Size{{Width: 400, Height: 300}, {Width: 200, Height: 150}, {Width: 100, Height: 75}, {Width: 50, Height: 38}}
	for i, w := range want {
		assert.Equal(t, w, down[i].Size())
		if i < len(up) {
			assert.Equal(t, w, up[i].Size())
		}
	}

	p.SetLevels(6)
	assert.Equal(t, common.Size{Width: 13, Height: 10}, p.DownsamplingTargets()[5].Size(), "reallocated chains keep the size")
	assert.Same(t, p.UpsamplingTargets()[0].Texture(), p.Texture())
}

func TestMipmapBlurPreservesFlatImage(t *testing.T) {
	r := newTestRenderer(t)
	p := NewMipmapBlurPass(WithLevels(3), WithRadius(0.5))
	assert.False(t, p.NeedsSwap())
	p.SetSize(16, 8)

	input := renderer.NewRenderTarget(16, 8)
	fill(t, r, input, flat)
	require.NoError(t, p.Render(r, input, nil, 0, false))
	assertFlat(t, r, p.UpsamplingTargets()[0])
}
