package pipeline

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPipelineDefaults(t *testing.T) {
	p := NewPipeline("copy")
	assert.Equal(t, "copy", p.PipelineKey())
	assert.Equal(t, wgpu.TextureFormatRGBA8Unorm, p.ColorFormat())
	assert.Equal(t, wgpu.TextureFormatUndefined, p.DepthStencilFormat())
	assert.Equal(t, uint32(1), p.SampleCount())
	assert.Nil(t, p.BlendState())

	desc := p.Descriptor(nil, nil, nil)
	assert.Nil(t, desc.DepthStencil, "no depth attachment")
	require.Len(t, desc.Fragment.Targets, 1)
	assert.Equal(t, wgpu.ColorWriteMaskAll, desc.Fragment.Targets[0].WriteMask)
}

func TestDescriptorStencil(t *testing.T) {
	s := StencilState{
		Compare:     wgpu.CompareFunctionEqual,
		FailOp:      wgpu.StencilOperationKeep,
		DepthFailOp: wgpu.StencilOperationKeep,
		PassOp:      wgpu.StencilOperationReplace,
		ReadMask:    0xFF,
		WriteMask:   0xFF,
	}
	p := NewPipeline("mask",
		WithDepthStencilFormat(wgpu.TextureFormatDepth24PlusStencil8),
		WithDepth(wgpu.CompareFunctionLessEqual, true),
		WithStencil(s),
		WithSampleCount(0),
	)
	desc := p.Descriptor(nil, nil, nil)
	require.NotNil(t, desc.DepthStencil)
	assert.Equal(t, wgpu.CompareFunctionEqual, desc.DepthStencil.StencilFront.Compare)
	assert.Equal(t, wgpu.StencilOperationReplace, desc.DepthStencil.StencilBack.PassOp)
	assert.True(t, desc.DepthStencil.DepthWriteEnabled)
	assert.Equal(t, uint32(1), desc.Multisample.Count, "sample count is at least one")
}

func TestStateKeyDistinguishesState(t *testing.T) {
	a := NewPipeline("x")
	b := NewPipeline("x", WithWriteMask(wgpu.ColorWriteMaskNone))
	c := NewPipeline("y")
	assert.NotEqual(t, a.StateKey(), b.StateKey())
	assert.Equal(t, a.StateKey(), c.StateKey(), "key is independent of the name")
}
