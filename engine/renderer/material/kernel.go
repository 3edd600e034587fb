package material

import (
	"github.com/Carmen-Shannon/oxy-fx/common"
)

// Frame holds the per-draw values exposed to shaders through the frame uniform.
type Frame struct {
	Resolution  common.Vec2
	TexelSize   common.Vec2
	CameraNear  float32
	CameraFar   float32
	Time        float32
	Aspect      float32
	Perspective bool
}

// NewFrame derives resolution, texel size and aspect from a target size.
//
// Parameters:
//   - width: the target width in pixels
//   - height: the target height in pixels
//
// Returns:
//   - Frame: the frame with size dependent fields set
func NewFrame(width, height int) Frame {
	w, h := float32(max(width, 1)), float32(max(height, 1))
	return Frame{
		Resolution: common.Vec2{w, h},
		TexelSize:  common.Vec2{1 / w, 1 / h},
		Aspect:     w / h,
	}
}

const (
	// UniformCameraNear is the key of the float uniform holding the camera near plane.
	UniformCameraNear = "cameraNear"

	// UniformCameraFar is the key of the float uniform holding the camera far plane.
	UniformCameraFar = "cameraFar"

	// UniformTime is the key of the float uniform holding the accumulated time in seconds.
	UniformTime = "time"

	// DefinePerspectiveCamera marks materials whose depth reads come from a perspective camera.
	DefinePerspectiveCamera = "PERSPECTIVE_CAMERA"
)

// FrameFor builds the frame uniform for drawing m into a target of the given size. Camera planes
// and time come from the material's cameraNear, cameraFar and time uniforms when present.
//
// Parameters:
//   - m: the material being drawn
//   - width: the target width in pixels
//   - height: the target height in pixels
//
// Returns:
//   - Frame: the frame uniform
func FrameFor(m Material, width, height int) Frame {
	f := NewFrame(width, height)
	if u := m.Uniform(UniformCameraNear); u != nil {
		f.CameraNear = u.Float()
	}
	if u := m.Uniform(UniformCameraFar); u != nil {
		f.CameraFar = u.Float()
	}
	if u := m.Uniform(UniformTime); u != nil {
		f.Time = u.Float()
	}
	_, f.Perspective = m.Define(DefinePerspectiveCamera)
	return f
}

// TextureSampler reads texels from backend textures on behalf of a Kernel.
type TextureSampler interface {
	// Sample filters the texture bilinearly at uv with clamp-to-edge addressing.
	Sample(tex common.Texture, uv common.Vec2) common.Color

	// Load reads a single texel without filtering. Coordinates are clamped to the texture.
	Load(tex common.Texture, x, y int) common.Color

	// Depth reads the nearest depth value at uv.
	Depth(tex common.Texture, uv common.Vec2) float32
}

// Kernel is the CPU evaluation of a material's fragment shader, used by the headless backend.
// It is called once per covered pixel and returns the color written before blending.
type Kernel func(ctx *FragmentContext) common.Color

// FragmentContext is the per-pixel input of a Kernel.
type FragmentContext struct {
	// UV is the texture coordinate of the pixel center, with (0, 0) at the top left.
	UV common.Vec2

	// X and Y are the pixel coordinates.
	X, Y int

	// Frame is the frame uniform for the draw.
	Frame Frame

	uniforms map[string]*Uniform
	defines  map[string]string
	sampler  TextureSampler
}

// NewFragmentContext creates a context for evaluating kernels of m.
//
// Parameters:
//   - m: the material whose uniforms and defines the kernel reads
//   - frame: the frame uniform for the draw
//   - sampler: the backend texture reader
//
// Returns:
//   - *FragmentContext: the context, reused for every pixel of the draw
func NewFragmentContext(m Material, frame Frame, sampler TextureSampler) *FragmentContext {
	return &FragmentContext{
		Frame:    frame,
		uniforms: m.Uniforms(),
		defines:  m.Defines(),
		sampler:  sampler,
	}
}

// Uniform returns the uniform stored under key, or nil.
func (c *FragmentContext) Uniform(key string) *Uniform {
	return c.uniforms[key]
}

// Float returns the value of an f32 uniform, or 0 when it is missing.
func (c *FragmentContext) Float(key string) float32 {
	if u := c.uniforms[key]; u != nil {
		return u.Float()
	}
	return 0
}

// Vec2 returns the value of a vec2f uniform.
func (c *FragmentContext) Vec2(key string) common.Vec2 {
	if u := c.uniforms[key]; u != nil {
		return u.Vec2()
	}
	return common.Vec2{}
}

// Vec3 returns the value of a vec3f uniform.
func (c *FragmentContext) Vec3(key string) [3]float32 {
	if u := c.uniforms[key]; u != nil {
		return u.Vec3()
	}
	return [3]float32{}
}

// Vec4 returns the value of a vec4f uniform.
func (c *FragmentContext) Vec4(key string) common.Color {
	if u := c.uniforms[key]; u != nil {
		return u.Vec4()
	}
	return common.Color{}
}

// Int returns the value of an i32 uniform.
func (c *FragmentContext) Int(key string) int32 {
	if u := c.uniforms[key]; u != nil {
		return u.Int()
	}
	return 0
}

// Bool returns the value of a bool uniform.
func (c *FragmentContext) Bool(key string) bool {
	if u := c.uniforms[key]; u != nil {
		return u.Bool()
	}
	return false
}

// Defined reports whether the material sets the named define.
func (c *FragmentContext) Defined(name string) bool {
	_, ok := c.defines[name]
	return ok
}

// Define returns the value of the named define, or an empty string.
func (c *FragmentContext) Define(name string) string {
	return c.defines[name]
}

// Sample filters the texture uniform stored under key at uv.
// Unbound textures read as transparent black.
//
// Parameters:
//   - key: the texture uniform key
//   - uv: the texture coordinate
//
// Returns:
//   - common.Color: the filtered color
func (c *FragmentContext) Sample(key string, uv common.Vec2) common.Color {
	u := c.uniforms[key]
	if u == nil || u.Texture() == nil || c.sampler == nil {
		return common.Transparent
	}
	return c.sampler.Sample(u.Texture(), uv)
}

// SampleTexture filters tex at uv. The texture must be bound to one of the material's uniforms.
// A nil texture reads as transparent black.
//
// Parameters:
//   - tex: the texture
//   - uv: the texture coordinate
//
// Returns:
//   - common.Color: the filtered color
func (c *FragmentContext) SampleTexture(tex common.Texture, uv common.Vec2) common.Color {
	if tex == nil || c.sampler == nil {
		return common.Transparent
	}
	return c.sampler.Sample(tex, uv)
}

// Input samples the inputBuffer uniform at uv.
func (c *FragmentContext) Input(uv common.Vec2) common.Color {
	return c.Sample(UniformInputBuffer, uv)
}

// ReadDepth returns the nearest value of the depthBuffer uniform at uv, or 1 when no depth
// texture is bound.
func (c *FragmentContext) ReadDepth(uv common.Vec2) float32 {
	u := c.uniforms[UniformDepthBuffer]
	if u == nil || u.Texture() == nil || c.sampler == nil {
		return 1
	}
	return c.sampler.Depth(u.Texture(), uv)
}

// LinearizeDepth converts a depth buffer value to a linear [0, 1] distance using the frame's
// camera planes. Orthographic depth is already linear.
//
// Parameters:
//   - d: the depth buffer value
//
// Returns:
//   - float32: the linear depth
func (c *FragmentContext) LinearizeDepth(d float32) float32 {
	return common.LinearizeDepth(d, c.Frame.CameraNear, c.Frame.CameraFar, c.Frame.Perspective)
}
