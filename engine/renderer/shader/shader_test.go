package shader

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const copyFragment = `
//@oxy:group 0 0 uniform frame frame
@group(0) @binding(1) var inputBuffer: texture_2d<f32>;
@group(0) @binding(2) var inputSampler: sampler;
@group(0) @binding(3) var depthBuffer: texture_depth_2d;

struct Uniforms {
    opacity: f32,
    tint: vec3f,
    offsets: array<vec4f, 2>,
}
@group(1) @binding(0) var<uniform> uniforms: Uniforms;

@fragment
fn fs_main(@location(0) uv: vec2f) -> @location(0) vec4f {
    return textureSample(inputBuffer, inputSampler, uv) * uniforms.opacity;
}
`

func TestNewShaderParsesBindings(t *testing.T) {
	s, err := NewShader("copy", ShaderTypeFragment, copyFragment)
	require.NoError(t, err)
	assert.Equal(t, "fs_main", s.EntryPoint())

	binding, ok := s.BindGroupFromVarName(0, "inputSampler")
	require.True(t, ok)
	assert.Equal(t, 2, binding)
	assert.Equal(t, "uniforms", s.BindGroupVarName(1, 0))

	g0 := s.BindGroupLayoutDescriptor(0)
	require.Len(t, g0.Entries, 4)
	assert.Equal(t, wgpu.BufferBindingTypeUniform, g0.Entries[0].Buffer.Type)
	assert.Equal(t, uint64(32), g0.Entries[0].Buffer.MinBindingSize)
	assert.Equal(t, wgpu.TextureSampleTypeFloat, g0.Entries[1].Texture.SampleType)
	assert.Equal(t, wgpu.SamplerBindingTypeFiltering, g0.Entries[2].Sampler.Type)
	assert.Equal(t, wgpu.TextureSampleTypeDepth, g0.Entries[3].Texture.SampleType)
	assert.Equal(t, wgpu.ShaderStageFragment, g0.Entries[3].Visibility)

	g1 := s.BindGroupLayoutDescriptor(1)
	require.Len(t, g1.Entries, 1)
	assert.Equal(t, uint64(64), g1.Entries[0].Buffer.MinBindingSize)
}

func TestNewShaderRequiresEntryPoint(t *testing.T) {
	_, err := NewShader("broken", ShaderTypeVertex, copyFragment)
	assert.Error(t, err)
}

func TestUniformLayout(t *testing.T) {
	layout, err := UniformLayout(copyFragment, "Uniforms")
	require.NoError(t, err)
	assert.Equal(t, uint64(64), layout.Size)

	want := []FieldLayout{
		{Name: "opacity", Type: "f32", Offset: 0, Size: 4},
		{Name: "tint", Type: "vec3f", Offset: 16, Size: 12},
		{Name: "offsets", Type: "array<vec4f, 2>", Offset: 32, Size: 32},
	}
	assert.Equal(t, want, layout.Fields)

	_, err = UniformLayout(copyFragment, "Missing")
	assert.Error(t, err)
}

func TestFrameUniformsMatchesWGSL(t *testing.T) {
	layout, err := UniformLayout(FrameUniformsSource, "FrameUniforms")
	require.NoError(t, err)
	var g GPUFrameUniforms
	assert.Equal(t, int(layout.Size), g.Size())
	assert.Len(t, g.Marshal(), g.Size())
	f, ok := layout.Field("time")
	require.True(t, ok)
	assert.Equal(t, uint64(24), f.Offset)
}
