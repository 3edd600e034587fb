package pipeline

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// StencilState is the stencil configuration baked into a render pipeline.
// The reference value is dynamic and set on the render pass instead.
type StencilState struct {
	Compare     wgpu.CompareFunction
	FailOp      wgpu.StencilOperation
	DepthFailOp wgpu.StencilOperation
	PassOp      wgpu.StencilOperation
	ReadMask    uint32
	WriteMask   uint32
}

// DisabledStencil always passes and never writes.
var DisabledStencil = StencilState{
	Compare:     wgpu.CompareFunctionAlways,
	FailOp:      wgpu.StencilOperationKeep,
	DepthFailOp: wgpu.StencilOperationKeep,
	PassOp:      wgpu.StencilOperationKeep,
	ReadMask:    0xFF,
	WriteMask:   0,
}

// pipeline is the implementation of the Pipeline interface.
type pipeline struct {
	pipelineKey string

	// shaders
	vertexShader, fragmentShader shader.Shader

	// renderPipeline is the created GPU pipeline, nil until the backend creates it.
	renderPipeline *wgpu.RenderPipeline

	// attachment formats
	colorFormat        wgpu.TextureFormat
	depthStencilFormat wgpu.TextureFormat
	sampleCount        uint32

	// fixed-function state
	depthCompare      wgpu.CompareFunction
	depthWriteEnabled bool
	stencil           StencilState
	writeMask         wgpu.ColorWriteMask
	blendState        *wgpu.BlendState
	topology          wgpu.PrimitiveTopology
	vertexBuffers     []wgpu.VertexBufferLayout
}

// Pipeline defines the interface for a render pipeline description and its GPU object.
// A Pipeline captures every piece of fixed-function state that wgpu bakes into a pipeline:
// attachment formats, sample count, depth and stencil state, color write mask and blending.
// The backend caches pipelines by material program and StateKey.
type Pipeline interface {
	// PipelineKey retrieves the unique identifier for this pipeline.
	//
	// Returns:
	//   - string: the key of the pipeline
	PipelineKey() string

	// Shader retrieves the shader of the given stage.
	//
	// Parameters:
	//   - shaderType: ShaderTypeVertex or ShaderTypeFragment
	//
	// Returns:
	//   - shader.Shader: the shader, or nil if not set
	Shader(shaderType shader.ShaderType) shader.Shader

	// RenderPipeline retrieves the created GPU pipeline, or nil.
	//
	// Returns:
	//   - *wgpu.RenderPipeline: the GPU pipeline
	RenderPipeline() *wgpu.RenderPipeline

	// SetRenderPipeline stores the created GPU pipeline.
	//
	// Parameters:
	//   - p: the GPU pipeline
	SetRenderPipeline(p *wgpu.RenderPipeline)

	// ColorFormat retrieves the color attachment format.
	ColorFormat() wgpu.TextureFormat

	// DepthStencilFormat retrieves the depth-stencil attachment format, or TextureFormatUndefined when there is none.
	DepthStencilFormat() wgpu.TextureFormat

	// SampleCount retrieves the multisample count of the attachments.
	SampleCount() uint32

	// DepthCompare retrieves the depth compare function.
	DepthCompare() wgpu.CompareFunction

	// DepthWriteEnabled reports whether depth values are written.
	DepthWriteEnabled() bool

	// Stencil retrieves the stencil configuration.
	Stencil() StencilState

	// WriteMask retrieves the color write mask.
	WriteMask() wgpu.ColorWriteMask

	// BlendState retrieves the blend state, or nil when blending is disabled.
	BlendState() *wgpu.BlendState

	// Topology retrieves the primitive topology.
	Topology() wgpu.PrimitiveTopology

	// StateKey returns a string that identifies the fixed-function state and formats of the pipeline.
	// Two pipelines with the same shaders and StateKey are interchangeable.
	//
	// Returns:
	//   - string: the state key
	StateKey() string

	// Descriptor assembles the wgpu descriptor used to create the GPU pipeline.
	//
	// Parameters:
	//   - layout: the pipeline layout
	//   - vs: the vertex shader module
	//   - fs: the fragment shader module
	//
	// Returns:
	//   - *wgpu.RenderPipelineDescriptor: the descriptor
	Descriptor(layout *wgpu.PipelineLayout, vs, fs *wgpu.ShaderModule) *wgpu.RenderPipelineDescriptor

	// Release releases the GPU pipeline.
	Release()
}

var _ Pipeline = &pipeline{}

// NewPipeline creates a new render Pipeline description. Defaults: RGBA8Unorm color, no
// depth-stencil attachment, one sample, depth compare Always without writes, disabled stencil,
// full color write mask, no blending and a triangle list.
//
// Parameters:
//   - pipelineKey: a unique identifier for the pipeline
//   - opts: variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: the configured pipeline description
func NewPipeline(pipelineKey string, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		pipelineKey:        pipelineKey,
		colorFormat:        wgpu.TextureFormatRGBA8Unorm,
		depthStencilFormat: wgpu.TextureFormatUndefined,
		sampleCount:        1,
		depthCompare:       wgpu.CompareFunctionAlways,
		stencil:            DisabledStencil,
		writeMask:          wgpu.ColorWriteMaskAll,
		topology:           wgpu.PrimitiveTopologyTriangleList,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Shader(shaderType shader.ShaderType) shader.Shader {
	switch shaderType {
	case shader.ShaderTypeVertex:
		return p.vertexShader
	case shader.ShaderTypeFragment:
		return p.fragmentShader
	default:
		return nil
	}
}

func (p *pipeline) RenderPipeline() *wgpu.RenderPipeline {
	return p.renderPipeline
}

func (p *pipeline) SetRenderPipeline(rp *wgpu.RenderPipeline) {
	p.renderPipeline = rp
}

func (p *pipeline) ColorFormat() wgpu.TextureFormat {
	return p.colorFormat
}

func (p *pipeline) DepthStencilFormat() wgpu.TextureFormat {
	return p.depthStencilFormat
}

func (p *pipeline) SampleCount() uint32 {
	return p.sampleCount
}

func (p *pipeline) DepthCompare() wgpu.CompareFunction {
	return p.depthCompare
}

func (p *pipeline) DepthWriteEnabled() bool {
	return p.depthWriteEnabled
}

func (p *pipeline) Stencil() StencilState {
	return p.stencil
}

func (p *pipeline) WriteMask() wgpu.ColorWriteMask {
	return p.writeMask
}

func (p *pipeline) BlendState() *wgpu.BlendState {
	return p.blendState
}

func (p *pipeline) Topology() wgpu.PrimitiveTopology {
	return p.topology
}

func (p *pipeline) StateKey() string {
	blend := "none"
	if p.blendState != nil {
		blend = fmt.Sprintf("%v", *p.blendState)
	}
	return fmt.Sprintf("c%d|ds%d|s%d|dc%d|dw%t|st%v|wm%d|b%s|t%d|vb%d",
		p.colorFormat, p.depthStencilFormat, p.sampleCount,
		p.depthCompare, p.depthWriteEnabled, p.stencil,
		p.writeMask, blend, p.topology, len(p.vertexBuffers))
}

func (p *pipeline) Descriptor(layout *wgpu.PipelineLayout, vs, fs *wgpu.ShaderModule) *wgpu.RenderPipelineDescriptor {
	desc := &wgpu.RenderPipelineDescriptor{
		Label:  p.pipelineKey + " Render Pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:  vs,
			Buffers: p.vertexBuffers,
		},
		Fragment: &wgpu.FragmentState{
			Module: fs,
			Targets: []wgpu.ColorTargetState{
				{
					Format:    p.colorFormat,
					WriteMask: p.writeMask,
					Blend:     p.blendState,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  p.topology,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: p.sampleCount,
			Mask:  0xFFFFFFFF,
		},
	}
	if p.vertexShader != nil {
		desc.Vertex.EntryPoint = p.vertexShader.EntryPoint()
	}
	if p.fragmentShader != nil {
		desc.Fragment.EntryPoint = p.fragmentShader.EntryPoint()
	}
	if p.depthStencilFormat != wgpu.TextureFormatUndefined {
		face := wgpu.StencilFaceState{
			Compare:     p.stencil.Compare,
			FailOp:      p.stencil.FailOp,
			DepthFailOp: p.stencil.DepthFailOp,
			PassOp:      p.stencil.PassOp,
		}
		desc.DepthStencil = &wgpu.DepthStencilState{
			Format:            p.depthStencilFormat,
			DepthWriteEnabled: p.depthWriteEnabled,
			DepthCompare:      p.depthCompare,
			StencilFront:      face,
			StencilBack:       face,
			StencilReadMask:   p.stencil.ReadMask,
			StencilWriteMask:  p.stencil.WriteMask,
		}
	}
	return desc
}

func (p *pipeline) Release() {
	if p.renderPipeline != nil {
		p.renderPipeline.Release()
		p.renderPipeline = nil
	}
}
