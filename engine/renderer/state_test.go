package renderer

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/material"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
)

func TestStateDefaults(t *testing.T) {
	s := NewState()
	assert.True(t, s.Color.Mask())
	assert.True(t, s.Depth.Mask())
	assert.False(t, s.Depth.Test())
	assert.Equal(t, float32(1), s.Depth.ClearValue())
	assert.False(t, s.Stencil.Test())
	assert.Equal(t, uint32(0xFF), s.Stencil.Mask())

	fn, ref, mask := s.Stencil.Func()
	assert.Equal(t, wgpu.CompareFunctionAlways, fn)
	assert.Zero(t, ref)
	assert.Equal(t, uint32(0xFF), mask)
}

func TestLocksBlockMasks(t *testing.T) {
	s := NewState()

	s.Color.SetMask(false)
	s.Color.SetLocked(true)
	s.Color.SetMask(true)
	assert.False(t, s.Color.Mask())

	s.Depth.SetMask(false)
	s.Depth.SetLocked(true)
	s.Depth.SetMask(true)
	assert.False(t, s.Depth.Mask())
	s.Depth.SetTest(true)
	assert.True(t, s.Depth.Test(), "depth lock only guards the mask")

	s.Stencil.SetTest(true)
	s.Stencil.SetLocked(true)
	s.Stencil.SetTest(false)
	s.Stencil.SetMask(0)
	assert.True(t, s.Stencil.Test())
	assert.Equal(t, uint32(0xFF), s.Stencil.Mask())

	s.Stencil.SetFunc(wgpu.CompareFunctionEqual, 1, 0xFFFFFFFF)
	fn, ref, _ := s.Stencil.Func()
	assert.Equal(t, wgpu.CompareFunctionEqual, fn, "func is not lock guarded")
	assert.Equal(t, uint32(1), ref)

	s.Reset()
	assert.False(t, s.Color.Locked())
	assert.False(t, s.Stencil.Locked())
}

func TestApplyRenderStateHonorsLocks(t *testing.T) {
	s := NewState()
	s.Color.SetMask(false)
	s.Color.SetLocked(true)
	s.Stencil.SetTest(true)
	s.Stencil.SetFunc(wgpu.CompareFunctionEqual, 1, 0xFFFFFFFF)
	s.Stencil.SetLocked(true)

	rs := material.SceneRenderState()
	s.ApplyRenderState(&rs)

	assert.True(t, s.Depth.Test())
	assert.True(t, s.Depth.Mask())
	assert.False(t, s.Color.Mask())
	assert.True(t, s.Stencil.Test(), "locked stencil test survives a material without stencil writes")
	fn, _, _ := s.Stencil.Func()
	assert.Equal(t, wgpu.CompareFunctionEqual, fn)
}

func TestApplyRenderStateStencilWrite(t *testing.T) {
	s := NewState()
	rs := material.FullscreenRenderState()
	rs.StencilWrite = true
	rs.StencilFunc = wgpu.CompareFunctionAlways
	rs.StencilRef = 3
	rs.StencilZPass = wgpu.StencilOperationReplace
	s.ApplyRenderState(&rs)

	assert.True(t, s.Stencil.Test())
	_, ref, _ := s.Stencil.Func()
	assert.Equal(t, uint32(3), ref)
	_, _, zPass := s.Stencil.Op()
	assert.Equal(t, wgpu.StencilOperationReplace, zPass)

	ds := s.snapshot(material.BlendingNormal)
	assert.True(t, ds.stencilTest)
	assert.Equal(t, material.BlendingNormal, ds.blending)
}

func TestStencilOp(t *testing.T) {
	assert.Equal(t, uint8(0), stencilOp(wgpu.StencilOperationZero, 7, 1))
	assert.Equal(t, uint8(1), stencilOp(wgpu.StencilOperationReplace, 7, 1))
	assert.Equal(t, uint8(0xFF), stencilOp(wgpu.StencilOperationIncrementClamp, 0xFF, 0))
	assert.Equal(t, uint8(0), stencilOp(wgpu.StencilOperationIncrementWrap, 0xFF, 0))
	assert.Equal(t, uint8(0), stencilOp(wgpu.StencilOperationDecrementClamp, 0, 0))
	assert.Equal(t, uint8(0xF8), stencilOp(wgpu.StencilOperationInvert, 7, 0))
	assert.Equal(t, uint8(7), stencilOp(wgpu.StencilOperationKeep, 7, 0))
}

func TestCompare(t *testing.T) {
	assert.True(t, compare(wgpu.CompareFunctionLessEqual, 0, 1))
	assert.False(t, compare(wgpu.CompareFunctionLess, 1, 1))
	assert.True(t, compare(wgpu.CompareFunctionNotEqual, 1, 0))
	assert.False(t, compare(wgpu.CompareFunctionNever, 0, 0))
	assert.True(t, compare(wgpu.CompareFunctionAlways, 5, 0))
}
