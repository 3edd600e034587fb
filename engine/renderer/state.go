package renderer

import (
	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/material"
	"github.com/cogentcore/webgpu/wgpu"
)

// ColorBuffer is the color write state of the renderer.
type ColorBuffer struct {
	mask   bool
	locked bool
}

// SetMask enables or disables color writes. Ignored while locked.
func (c *ColorBuffer) SetMask(mask bool) {
	if !c.locked {
		c.mask = mask
	}
}

// Mask reports whether color writes are enabled.
func (c *ColorBuffer) Mask() bool { return c.mask }

// SetLocked locks or unlocks the color mask.
func (c *ColorBuffer) SetLocked(locked bool) { c.locked = locked }

// Locked reports whether the color mask is locked.
func (c *ColorBuffer) Locked() bool { return c.locked }

// DepthBuffer is the depth test and write state of the renderer.
type DepthBuffer struct {
	test   bool
	mask   bool
	fn     wgpu.CompareFunction
	clear  float32
	locked bool
}

// SetTest enables or disables the depth test.
func (d *DepthBuffer) SetTest(test bool) { d.test = test }

// Test reports whether the depth test is enabled.
func (d *DepthBuffer) Test() bool { return d.test }

// SetMask enables or disables depth writes. Ignored while locked.
func (d *DepthBuffer) SetMask(mask bool) {
	if !d.locked {
		d.mask = mask
	}
}

// Mask reports whether depth writes are enabled.
func (d *DepthBuffer) Mask() bool { return d.mask }

// SetFunc sets the depth compare function.
func (d *DepthBuffer) SetFunc(fn wgpu.CompareFunction) { d.fn = fn }

// Func returns the depth compare function.
func (d *DepthBuffer) Func() wgpu.CompareFunction { return d.fn }

// SetClear sets the value depth clears write.
func (d *DepthBuffer) SetClear(v float32) { d.clear = v }

// ClearValue returns the value depth clears write.
func (d *DepthBuffer) ClearValue() float32 { return d.clear }

// SetLocked locks or unlocks the depth mask.
func (d *DepthBuffer) SetLocked(locked bool) { d.locked = locked }

// Locked reports whether the depth mask is locked.
func (d *DepthBuffer) Locked() bool { return d.locked }

// StencilBuffer is the stencil test and write state of the renderer.
type StencilBuffer struct {
	test      bool
	fn        wgpu.CompareFunction
	ref       uint32
	funcMask  uint32
	fail      wgpu.StencilOperation
	zFail     wgpu.StencilOperation
	zPass     wgpu.StencilOperation
	writeMask uint32
	clear     uint32
	locked    bool
}

// SetTest enables or disables the stencil test. Ignored while locked.
func (s *StencilBuffer) SetTest(test bool) {
	if !s.locked {
		s.test = test
	}
}

// Test reports whether the stencil test is enabled.
func (s *StencilBuffer) Test() bool { return s.test }

// SetFunc sets the stencil compare function, reference value and compare mask.
//
// Parameters:
//   - fn: the compare function
//   - ref: the reference value
//   - mask: the mask applied to both the reference and the stored value before comparing
func (s *StencilBuffer) SetFunc(fn wgpu.CompareFunction, ref, mask uint32) {
	s.fn = fn
	s.ref = ref
	s.funcMask = mask
}

// Func returns the compare function, reference value and compare mask.
func (s *StencilBuffer) Func() (wgpu.CompareFunction, uint32, uint32) {
	return s.fn, s.ref, s.funcMask
}

// SetOp sets the operations applied when the stencil test fails, when the depth test fails and
// when both pass.
func (s *StencilBuffer) SetOp(fail, zFail, zPass wgpu.StencilOperation) {
	s.fail = fail
	s.zFail = zFail
	s.zPass = zPass
}

// Op returns the fail, depth fail and pass operations.
func (s *StencilBuffer) Op() (wgpu.StencilOperation, wgpu.StencilOperation, wgpu.StencilOperation) {
	return s.fail, s.zFail, s.zPass
}

// SetMask sets the stencil write mask. Ignored while locked.
func (s *StencilBuffer) SetMask(mask uint32) {
	if !s.locked {
		s.writeMask = mask
	}
}

// Mask returns the stencil write mask.
func (s *StencilBuffer) Mask() uint32 { return s.writeMask }

// SetClear sets the value stencil clears write.
func (s *StencilBuffer) SetClear(v uint32) { s.clear = v }

// ClearValue returns the value stencil clears write.
func (s *StencilBuffer) ClearValue() uint32 { return s.clear }

// SetLocked locks or unlocks the stencil test and write mask.
func (s *StencilBuffer) SetLocked(locked bool) { s.locked = locked }

// Locked reports whether the stencil state is locked.
func (s *StencilBuffer) Locked() bool { return s.locked }

// State is the fixed-function state cache of a Renderer. Materials apply their RenderState
// through it before every draw, so a locked mask keeps its value across materials.
type State struct {
	Color   ColorBuffer
	Depth   DepthBuffer
	Stencil StencilBuffer
}

// NewState creates a State with the defaults of a fresh context: color writes on, depth test off
// with writes on, stencil test off, compare functions LessEqual and Always.
//
// Returns:
//   - *State: the state
func NewState() *State {
	s := &State{}
	s.Reset()
	return s
}

// Reset restores the defaults and clears every lock.
func (s *State) Reset() {
	s.Color = ColorBuffer{mask: true}
	s.Depth = DepthBuffer{mask: true, fn: wgpu.CompareFunctionLessEqual, clear: 1}
	s.Stencil = StencilBuffer{
		fn:        wgpu.CompareFunctionAlways,
		funcMask:  0xFF,
		fail:      wgpu.StencilOperationKeep,
		zFail:     wgpu.StencilOperationKeep,
		zPass:     wgpu.StencilOperationKeep,
		writeMask: 0xFF,
	}
}

// ApplyRenderState applies a material state the way a draw does. Depth function, depth test,
// depth mask and color mask are set first, then the stencil test. The remaining stencil settings
// only change when the material writes stencil.
//
// Parameters:
//   - rs: the material render state
func (s *State) ApplyRenderState(rs *material.RenderState) {
	s.Depth.SetFunc(rs.DepthFunc)
	s.Depth.SetTest(rs.DepthTest)
	s.Depth.SetMask(rs.DepthWrite)
	s.Color.SetMask(rs.ColorWrite)
	s.Stencil.SetTest(rs.StencilWrite)
	if rs.StencilWrite {
		s.Stencil.SetMask(rs.StencilWriteMask)
		s.Stencil.SetFunc(rs.StencilFunc, rs.StencilRef, rs.StencilFuncMask)
		s.Stencil.SetOp(rs.StencilFail, rs.StencilZFail, rs.StencilZPass)
	}
}

// snapshot captures the state used by one draw.
func (s *State) snapshot(blending material.Blending) drawState {
	return drawState{
		colorMask:        s.Color.mask,
		depthTest:        s.Depth.test,
		depthMask:        s.Depth.mask,
		depthFunc:        s.Depth.fn,
		stencilTest:      s.Stencil.test,
		stencilFunc:      s.Stencil.fn,
		stencilRef:       s.Stencil.ref,
		stencilFuncMask:  s.Stencil.funcMask,
		stencilFail:      s.Stencil.fail,
		stencilZFail:     s.Stencil.zFail,
		stencilZPass:     s.Stencil.zPass,
		stencilWriteMask: s.Stencil.writeMask,
		blending:         blending,
	}
}

// drawState is the resolved fixed-function state of one draw.
type drawState struct {
	colorMask bool

	depthTest bool
	depthMask bool
	depthFunc wgpu.CompareFunction

	stencilTest      bool
	stencilFunc      wgpu.CompareFunction
	stencilRef       uint32
	stencilFuncMask  uint32
	stencilFail      wgpu.StencilOperation
	stencilZFail     wgpu.StencilOperation
	stencilZPass     wgpu.StencilOperation
	stencilWriteMask uint32

	blending material.Blending
}

// clearOp describes which attachments a clear writes. Nil fields are left untouched.
type clearOp struct {
	color            *common.Color
	depth            *float32
	stencil          *uint32
	stencilWriteMask uint32
}

// compare evaluates a compare function as ref OP stored.
func compare(fn wgpu.CompareFunction, ref, stored float32) bool {
	switch fn {
	case wgpu.CompareFunctionNever:
		return false
	case wgpu.CompareFunctionLess:
		return ref < stored
	case wgpu.CompareFunctionEqual:
		return ref == stored
	case wgpu.CompareFunctionLessEqual:
		return ref <= stored
	case wgpu.CompareFunctionGreater:
		return ref > stored
	case wgpu.CompareFunctionNotEqual:
		return ref != stored
	case wgpu.CompareFunctionGreaterEqual:
		return ref >= stored
	default:
		return true
	}
}

// stencilOp applies a stencil operation to an 8-bit stencil value.
func stencilOp(op wgpu.StencilOperation, stored uint8, ref uint32) uint8 {
	switch op {
	case wgpu.StencilOperationZero:
		return 0
	case wgpu.StencilOperationReplace:
		return uint8(ref)
	case wgpu.StencilOperationInvert:
		return ^stored
	case wgpu.StencilOperationIncrementClamp:
		if stored == 0xFF {
			return stored
		}
		return stored + 1
	case wgpu.StencilOperationDecrementClamp:
		if stored == 0 {
			return stored
		}
		return stored - 1
	case wgpu.StencilOperationIncrementWrap:
		return stored + 1
	case wgpu.StencilOperationDecrementWrap:
		return stored - 1
	default:
		return stored
	}
}
