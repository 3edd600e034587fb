package material

import (
	"encoding/binary"
	"math"

	"github.com/Carmen-Shannon/oxy-fx/common"
)

// UniformType identifies the WGSL type a Uniform is uploaded as.
type UniformType int

const (
	// UniformTypeFloat is a single f32.
	UniformTypeFloat UniformType = iota

	// UniformTypeVec2 is a vec2f.
	UniformTypeVec2

	// UniformTypeVec3 is a vec3f.
	UniformTypeVec3

	// UniformTypeVec4 is a vec4f, also used for colors.
	UniformTypeVec4

	// UniformTypeInt is an i32.
	UniformTypeInt

	// UniformTypeBool is uploaded as a u32 because bool is not host-shareable in WGSL.
	UniformTypeBool

	// UniformTypeTexture is a sampled color texture binding.
	UniformTypeTexture

	// UniformTypeDepthTexture is a depth texture binding.
	UniformTypeDepthTexture
)

// WGSLType returns the WGSL type used to declare a uniform of this type.
//
// Returns:
//   - string: the WGSL type name
func (t UniformType) WGSLType() string {
	switch t {
	case UniformTypeFloat:
		return "f32"
	case UniformTypeVec2:
		return "vec2f"
	case UniformTypeVec3:
		return "vec3f"
	case UniformTypeVec4:
		return "vec4f"
	case UniformTypeInt:
		return "i32"
	case UniformTypeBool:
		return "u32"
	case UniformTypeTexture:
		return "texture_2d<f32>"
	case UniformTypeDepthTexture:
		return "texture_depth_2d"
	default:
		return ""
	}
}

// IsTexture reports whether the uniform is bound as a texture instead of packed into a buffer.
func (t UniformType) IsTexture() bool {
	return t == UniformTypeTexture || t == UniformTypeDepthTexture
}

// Uniform is a single named shader input. Uniforms are shared by pointer, so a material that
// references another component's uniform observes every change without copying.
type Uniform struct {
	typ UniformType
	f   [4]float32
	i   int32
	tex common.Texture
}

// NewUniform creates a zero valued uniform of the given type.
//
// Parameters:
//   - typ: the uniform type
//
// Returns:
//   - *Uniform: the new uniform
func NewUniform(typ UniformType) *Uniform {
	return &Uniform{typ: typ}
}

// FloatUniform creates an f32 uniform.
func FloatUniform(v float32) *Uniform {
	return &Uniform{typ: UniformTypeFloat, f: [4]float32{v}}
}

// Vec2Uniform creates a vec2f uniform.
func Vec2Uniform(v common.Vec2) *Uniform {
	return &Uniform{typ: UniformTypeVec2, f: [4]float32{v[0], v[1]}}
}

// Vec3Uniform creates a vec3f uniform.
func Vec3Uniform(x, y, z float32) *Uniform {
	return &Uniform{typ: UniformTypeVec3, f: [4]float32{x, y, z}}
}

// Vec4Uniform creates a vec4f uniform.
func Vec4Uniform(v common.Color) *Uniform {
	return &Uniform{typ: UniformTypeVec4, f: v}
}

// IntUniform creates an i32 uniform.
func IntUniform(v int32) *Uniform {
	return &Uniform{typ: UniformTypeInt, i: v}
}

// BoolUniform creates a bool uniform.
func BoolUniform(v bool) *Uniform {
	u := &Uniform{typ: UniformTypeBool}
	u.SetBool(v)
	return u
}

// TextureUniform creates a color texture uniform. The texture may be nil.
func TextureUniform(tex common.Texture) *Uniform {
	return &Uniform{typ: UniformTypeTexture, tex: tex}
}

// DepthTextureUniform creates a depth texture uniform. The texture may be nil.
func DepthTextureUniform(tex common.Texture) *Uniform {
	return &Uniform{typ: UniformTypeDepthTexture, tex: tex}
}

// Type returns the uniform type.
func (u *Uniform) Type() UniformType { return u.typ }

// Float returns the first component.
func (u *Uniform) Float() float32 { return u.f[0] }

// SetFloat sets the first component.
func (u *Uniform) SetFloat(v float32) { u.f[0] = v }

// Vec2 returns the first two components.
func (u *Uniform) Vec2() common.Vec2 { return common.Vec2{u.f[0], u.f[1]} }

// SetVec2 sets the first two components.
func (u *Uniform) SetVec2(v common.Vec2) { u.f[0], u.f[1] = v[0], v[1] }

// Vec3 returns the first three components.
func (u *Uniform) Vec3() [3]float32 { return [3]float32{u.f[0], u.f[1], u.f[2]} }

// SetVec3 sets the first three components.
func (u *Uniform) SetVec3(x, y, z float32) { u.f[0], u.f[1], u.f[2] = x, y, z }

// Vec4 returns all four components.
func (u *Uniform) Vec4() common.Color { return u.f }

// SetVec4 sets all four components.
func (u *Uniform) SetVec4(v common.Color) { u.f = v }

// Int returns the integer value.
func (u *Uniform) Int() int32 { return u.i }

// SetInt sets the integer value.
func (u *Uniform) SetInt(v int32) { u.i = v }

// Bool returns the boolean value.
func (u *Uniform) Bool() bool { return u.i != 0 }

// SetBool sets the boolean value.
func (u *Uniform) SetBool(v bool) {
	u.i = 0
	if v {
		u.i = 1
	}
}

// Texture returns the bound texture, or nil.
func (u *Uniform) Texture() common.Texture { return u.tex }

// SetTexture binds a texture. Passing nil unbinds it.
func (u *Uniform) SetTexture(tex common.Texture) { u.tex = tex }

// Clone returns an independent copy of the uniform.
//
// Returns:
//   - *Uniform: the copy
func (u *Uniform) Clone() *Uniform {
	c := *u
	return &c
}

// Bytes encodes the uniform value as little-endian data for a uniform buffer.
// Texture uniforms have no buffer representation and return nil.
//
// Returns:
//   - []byte: the encoded value
func (u *Uniform) Bytes() []byte {
	var n int
	switch u.typ {
	case UniformTypeFloat:
		n = 1
	case UniformTypeVec2:
		n = 2
	case UniformTypeVec3:
		n = 3
	case UniformTypeVec4:
		n = 4
	case UniformTypeInt, UniformTypeBool:
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, uint32(u.i))
		return buf
	default:
		return nil
	}
	buf := make([]byte, n*4)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(u.f[i]))
	}
	return buf
}
