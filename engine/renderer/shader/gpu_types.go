package shader

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// FrameUniformsSource is the canonical WGSL definition of the FrameUniforms struct.
// Matches GPUFrameUniforms layout exactly (32 bytes).
//
//go:embed assets/frame.wgsl
var FrameUniformsSource string

//go:embed assets/common.wgsl
var commonChunkSource string

//go:embed assets/color.wgsl
var colorChunkSource string

// depthChunkSource reads the depth buffer. It expects a depthBuffer binding and the frame uniform.
//
//go:embed assets/depth.wgsl
var depthChunkSource string

//go:embed assets/fullscreen.wgsl
var fullscreenChunkSource string

// GPUFrameUniforms is the GPU-aligned representation of the per-draw frame uniform buffer.
// Matches the WGSL FrameUniforms struct layout exactly (see FrameUniformsSource).
// Size: 32 bytes.
type GPUFrameUniforms struct {
	Resolution [2]float32 // offset  0: render target size in pixels
	TexelSize  [2]float32 // offset  8: 1 / resolution
	CameraNear float32    // offset 16: camera near plane
	CameraFar  float32    // offset 20: camera far plane
	Time       float32    // offset 24: accumulated time in seconds
	Aspect     float32    // offset 28: resolution aspect ratio
}

// Size returns the size of the GPUFrameUniforms struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (32)
func (g *GPUFrameUniforms) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUFrameUniforms struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUFrameUniforms) Marshal() []byte {
	buf := make([]byte, g.Size())
	fields := [8]float32{
		g.Resolution[0], g.Resolution[1],
		g.TexelSize[0], g.TexelSize[1],
		g.CameraNear, g.CameraFar, g.Time, g.Aspect,
	}
	for i, f := range fields {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
