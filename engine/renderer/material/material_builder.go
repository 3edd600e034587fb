package material

import (
	"maps"

	"github.com/cogentcore/webgpu/wgpu"
)

// MaterialBuilderOption is a function that configures a material instance during construction.
type MaterialBuilderOption func(*material)

// WithVertexShader replaces the default full-screen vertex shader.
//
// Parameters:
//   - source: the WGSL vertex source
//
// Returns:
//   - MaterialBuilderOption: a function that applies the vertex shader option to a material
func WithVertexShader(source string) MaterialBuilderOption {
	return func(m *material) {
		if source != "" {
			m.vertexShader = source
		}
	}
}

// WithUniform stores a uniform under key.
//
// Parameters:
//   - key: the shader-visible name
//   - u: the uniform
//
// Returns:
//   - MaterialBuilderOption: a function that applies the uniform option to a material
func WithUniform(key string, u *Uniform) MaterialBuilderOption {
	return func(m *material) {
		m.uniforms[key] = u
	}
}

// WithUniforms stores every uniform of the map.
//
// Parameters:
//   - uniforms: uniforms keyed by shader-visible name
//
// Returns:
//   - MaterialBuilderOption: a function that applies the uniforms option to a material
func WithUniforms(uniforms map[string]*Uniform) MaterialBuilderOption {
	return func(m *material) {
		maps.Copy(m.uniforms, uniforms)
	}
}

// WithDefine sets a define.
//
// Parameters:
//   - name: the define name
//   - value: the define value, may be empty
//
// Returns:
//   - MaterialBuilderOption: a function that applies the define option to a material
func WithDefine(name, value string) MaterialBuilderOption {
	return func(m *material) {
		m.defines[name] = value
	}
}

// WithDefines sets every define of the map.
//
// Parameters:
//   - defines: the define names and values
//
// Returns:
//   - MaterialBuilderOption: a function that applies the defines option to a material
func WithDefines(defines map[string]string) MaterialBuilderOption {
	return func(m *material) {
		maps.Copy(m.defines, defines)
	}
}

// WithKernel sets the CPU kernel used by the headless backend.
//
// Parameters:
//   - k: the kernel
//
// Returns:
//   - MaterialBuilderOption: a function that applies the kernel option to a material
func WithKernel(k Kernel) MaterialBuilderOption {
	return func(m *material) {
		m.kernel = k
	}
}

// WithRenderState replaces the whole render state.
//
// Parameters:
//   - state: the render state
//
// Returns:
//   - MaterialBuilderOption: a function that applies the render state option to a material
func WithRenderState(state RenderState) MaterialBuilderOption {
	return func(m *material) {
		m.state = state
	}
}

// WithDepthTest enables or disables depth testing with the given compare function.
//
// Parameters:
//   - enabled: whether the depth test is active
//   - fn: the compare function used when enabled
//
// Returns:
//   - MaterialBuilderOption: a function that applies the depth test option to a material
func WithDepthTest(enabled bool, fn wgpu.CompareFunction) MaterialBuilderOption {
	return func(m *material) {
		m.state.DepthTest = enabled
		m.state.DepthFunc = fn
	}
}

// WithDepthWrite enables or disables depth writes.
//
// Parameters:
//   - enabled: whether depth values are written
//
// Returns:
//   - MaterialBuilderOption: a function that applies the depth write option to a material
func WithDepthWrite(enabled bool) MaterialBuilderOption {
	return func(m *material) {
		m.state.DepthWrite = enabled
	}
}

// WithBlending sets the blending mode.
//
// Parameters:
//   - blending: the blending mode
//
// Returns:
//   - MaterialBuilderOption: a function that applies the blending option to a material
func WithBlending(blending Blending) MaterialBuilderOption {
	return func(m *material) {
		m.state.Blending = blending
	}
}
