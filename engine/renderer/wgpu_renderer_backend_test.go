package renderer

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
)

func TestHalfToFloat(t *testing.T) {
	cases := map[uint16]float32{
		0x0000: 0,
		0x3C00: 1,
		0xC000: -2,
		0x3800: 0.5,
		0x7BFF: 65504,
		0x0001: float32(math.Pow(2, -24)),
	}
	for h, want := range cases {
		assert.Equal(t, want, halfToFloat(h), "%#04x", h)
	}
	assert.True(t, math.IsInf(float64(halfToFloat(0x7C00)), 1))
	assert.True(t, math.IsNaN(float64(halfToFloat(0x7E00))))
}

func TestDecodePixelsSwapsBGRA(t *testing.T) {
	img := decodePixels([]byte{1, 2, 3, 4}, wgpu.TextureFormatBGRA8Unorm, common.ColorSpaceLinear, 1, 1)
	assert.Equal(t, []uint8{3, 2, 1, 4}, img.Pix)
}

func TestDecodePixelsHalfFloat(t *testing.T) {
	data := make([]byte, 8)
	for i, h := range []uint16{0x3C00, 0x3800, 0x0000, 0x3C00} {
		binary.LittleEndian.PutUint16(data[i*2:], h)
	}
	img := decodePixels(data, wgpu.TextureFormatRGBA16Float, common.ColorSpaceLinear, 1, 1)
	assert.Equal(t, []uint8{255, 128, 0, 255}, img.Pix)

	img = decodePixels(data, wgpu.TextureFormatRGBA16Float, common.ColorSpaceSRGB, 1, 1)
	assert.InDelta(t, 188, int(img.Pix[1]), 1)
}

func TestPickSurfaceFormat(t *testing.T) {
	formats := []wgpu.TextureFormat{wgpu.TextureFormatBGRA8Unorm, wgpu.TextureFormatBGRA8UnormSrgb}
	assert.Equal(t, wgpu.TextureFormatBGRA8UnormSrgb, pickSurfaceFormat(formats, common.ColorSpaceSRGB))
	assert.Equal(t, wgpu.TextureFormatBGRA8Unorm, pickSurfaceFormat(formats, common.ColorSpaceLinear))
	assert.Equal(t, wgpu.TextureFormatRGBA16Float,
		pickSurfaceFormat([]wgpu.TextureFormat{wgpu.TextureFormatRGBA16Float}, common.ColorSpaceSRGB))
}

func TestColorFormat(t *testing.T) {
	assert.Equal(t, wgpu.TextureFormatRGBA8Unorm, colorFormat(textureDesc{}))
	assert.Equal(t, wgpu.TextureFormatRGBA8UnormSrgb, colorFormat(textureDesc{colorSpace: common.ColorSpaceSRGB}))
	assert.Equal(t, wgpu.TextureFormatRGBA16Float, colorFormat(textureDesc{pixelType: common.PixelTypeHalfFloat}))
}

func TestMergeBindings(t *testing.T) {
	vertex := []shader.Binding{{Group: 0, Binding: 0, Name: "frame"}}
	fragment := []shader.Binding{
		{Group: 1, Binding: 0, Name: "tex"},
		{Group: 0, Binding: 1, Name: "inputBuffer"},
		{Group: 0, Binding: 0, Name: "frame"},
	}
	merged := mergeBindings(vertex, fragment)
	names := make([]string, len(merged))
	for i, b := range merged {
		names[i] = b.Name
	}
	assert.Equal(t, []string{"frame", "inputBuffer", "tex"}, names)
}

func TestMergeBindGroupLayoutsOrsVisibility(t *testing.T) {
	vertex := map[int]wgpu.BindGroupLayoutDescriptor{
		0: {Entries: []wgpu.BindGroupLayoutEntry{{Binding: 0, Visibility: wgpu.ShaderStageVertex}}},
	}
	fragment := map[int]wgpu.BindGroupLayoutDescriptor{
		0: {Entries: []wgpu.BindGroupLayoutEntry{
			{Binding: 1, Visibility: wgpu.ShaderStageFragment},
			{Binding: 0, Visibility: wgpu.ShaderStageFragment},
		}},
	}
	merged := mergeBindGroupLayouts(vertex, fragment)
	entries := merged[0].Entries
	if assert.Len(t, entries, 2) {
		assert.Equal(t, uint32(0), entries[0].Binding)
		assert.Equal(t, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, entries[0].Visibility)
		assert.Equal(t, uint32(1), entries[1].Binding)
	}
}

func TestUniformStructLayoutFrame(t *testing.T) {
	layout, err := uniformStructLayout("FrameUniforms")
	if assert.NoError(t, err) {
		assert.Equal(t, uint64((&shader.GPUFrameUniforms{}).Size()), layout.Size)
	}
	_, err = uniformStructLayout("Missing", "struct Other { a: f32 }")
	assert.Error(t, err)
}
