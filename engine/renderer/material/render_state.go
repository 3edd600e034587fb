package material

import "github.com/cogentcore/webgpu/wgpu"

// Blending selects how a material's output is combined with the target color.
type Blending int

const (
	// BlendingNone overwrites the target.
	BlendingNone Blending = iota

	// BlendingNormal is source-over alpha blending.
	BlendingNormal

	// BlendingAdditive adds the alpha-weighted source to the target.
	BlendingAdditive
)

// BlendState returns the wgpu blend state for the mode, or nil for BlendingNone.
//
// Returns:
//   - *wgpu.BlendState: the blend state, or nil when blending is disabled
func (b Blending) BlendState() *wgpu.BlendState {
	switch b {
	case BlendingNormal:
		return &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				Operation: wgpu.BlendOperationAdd,
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			},
			Alpha: wgpu.BlendComponent{
				Operation: wgpu.BlendOperationAdd,
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			},
		}
	case BlendingAdditive:
		return &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				Operation: wgpu.BlendOperationAdd,
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOne,
			},
			Alpha: wgpu.BlendComponent{
				Operation: wgpu.BlendOperationAdd,
				SrcFactor: wgpu.BlendFactorZero,
				DstFactor: wgpu.BlendFactorOne,
			},
		}
	default:
		return nil
	}
}

// RenderState holds the fixed-function settings a material applies to the renderer state
// before each draw. Stencil settings other than StencilWrite only take effect when
// StencilWrite is true.
type RenderState struct {
	DepthTest  bool
	DepthWrite bool
	DepthFunc  wgpu.CompareFunction
	ColorWrite bool
	Blending   Blending

	StencilWrite     bool
	StencilFunc      wgpu.CompareFunction
	StencilRef       uint32
	StencilFuncMask  uint32
	StencilWriteMask uint32
	StencilFail      wgpu.StencilOperation
	StencilZFail     wgpu.StencilOperation
	StencilZPass     wgpu.StencilOperation
}

// FullscreenRenderState is the state used by full-screen materials: no depth test, no depth
// write and no blending.
func FullscreenRenderState() RenderState {
	return RenderState{
		DepthFunc:        wgpu.CompareFunctionLessEqual,
		ColorWrite:       true,
		StencilFunc:      wgpu.CompareFunctionAlways,
		StencilFuncMask:  0xFF,
		StencilWriteMask: 0xFF,
		StencilFail:      wgpu.StencilOperationKeep,
		StencilZFail:     wgpu.StencilOperationKeep,
		StencilZPass:     wgpu.StencilOperationKeep,
	}
}

// SceneRenderState is the state used for scene geometry: depth tested, depth written.
func SceneRenderState() RenderState {
	s := FullscreenRenderState()
	s.DepthTest = true
	s.DepthWrite = true
	return s
}
