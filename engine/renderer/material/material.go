package material

import (
	_ "embed"
	"maps"
	"slices"
	"sync"
)

const (
	// UniformInputBuffer is the conventional key of the texture a full-screen material reads.
	UniformInputBuffer = "inputBuffer"

	// UniformDepthBuffer is the conventional key of the scene depth texture.
	UniformDepthBuffer = "depthBuffer"
)

// DefaultVertexShader is the full-screen triangle vertex shader used when a material does not
// provide its own. It outputs FullscreenOutput with uv (0, 0) at the top left.
//
//go:embed assets/fullscreen_vertex.wgsl
var DefaultVertexShader string

// material is the implementation of the Material interface.
type material struct {
	mu *sync.Mutex

	name           string
	vertexShader   string
	fragmentShader string
	defines        map[string]string
	uniforms       map[string]*Uniform
	kernel         Kernel
	state          RenderState
	version        uint64
	disposed       bool
}

// Material defines the interface for a shader material used by full-screen passes and the
// scene renderer. A material owns WGSL sources for the GPU backend, an optional CPU Kernel for
// the headless backend, a set of named uniforms and defines, and the fixed-function
// RenderState applied before each draw.
//
// The version increases whenever the sources, defines or uniform set change. Backends key
// compiled pipelines on it, so changing uniform values never triggers a rebuild.
type Material interface {
	// Name retrieves the material identifier.
	//
	// Returns:
	//   - string: the name of the material
	Name() string

	// VertexShader retrieves the WGSL vertex source.
	//
	// Returns:
	//   - string: the vertex shader source
	VertexShader() string

	// FragmentShader retrieves the WGSL fragment source.
	//
	// Returns:
	//   - string: the fragment shader source
	FragmentShader() string

	// SetShaders replaces both shader sources. An empty vertex source selects DefaultVertexShader.
	//
	// Parameters:
	//   - vertex: the WGSL vertex source
	//   - fragment: the WGSL fragment source
	SetShaders(vertex, fragment string)

	// Defines returns a copy of the defines.
	//
	// Returns:
	//   - map[string]string: define names and values
	Defines() map[string]string

	// Define returns the value of a define and whether it is set.
	Define(name string) (string, bool)

	// SetDefine sets a define. Setting an existing define to the same value does not bump the version.
	//
	// Parameters:
	//   - name: the define name
	//   - value: the define value, may be empty
	SetDefine(name, value string)

	// DeleteDefine removes a define.
	DeleteDefine(name string)

	// Uniform returns the uniform stored under key, or nil.
	Uniform(key string) *Uniform

	// Uniforms returns a copy of the uniform table. The uniforms themselves are shared.
	//
	// Returns:
	//   - map[string]*Uniform: uniforms keyed by name
	Uniforms() map[string]*Uniform

	// UniformKeys returns the uniform keys in sorted order.
	UniformKeys() []string

	// SetUniform stores u under key, replacing any previous uniform.
	//
	// Parameters:
	//   - key: the shader-visible name
	//   - u: the uniform
	SetUniform(key string, u *Uniform)

	// DeleteUniform removes the uniform stored under key.
	DeleteUniform(key string)

	// Kernel returns the CPU kernel, or nil.
	Kernel() Kernel

	// SetKernel replaces the CPU kernel.
	SetKernel(k Kernel)

	// RenderState returns the mutable fixed-function state of the material.
	//
	// Returns:
	//   - *RenderState: the render state
	RenderState() *RenderState

	// Version returns a counter that changes whenever the compiled program would change.
	Version() uint64

	// NeedsUpdate forces a version bump.
	NeedsUpdate()

	// Dispose marks the material as released. Backends drop compiled programs for disposed materials.
	Dispose()

	// Disposed reports whether Dispose was called.
	Disposed() bool
}

var _ Material = &material{}

// NewShaderMaterial creates a material from a WGSL fragment source, using DefaultVertexShader
// and FullscreenRenderState unless options override them.
//
// Parameters:
//   - name: the material identifier, used in labels and pipeline keys
//   - fragmentShader: the WGSL fragment source
//   - options: MaterialBuilderOption functions to configure the material
//
// Returns:
//   - Material: the new material
func NewShaderMaterial(name, fragmentShader string, options ...MaterialBuilderOption) Material {
	m := &material{
		mu:             &sync.Mutex{},
		name:           name,
		vertexShader:   DefaultVertexShader,
		fragmentShader: fragmentShader,
		defines:        make(map[string]string),
		uniforms:       make(map[string]*Uniform),
		state:          FullscreenRenderState(),
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *material) Name() string {
	return m.name
}

func (m *material) VertexShader() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.vertexShader
}

func (m *material) FragmentShader() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fragmentShader
}

func (m *material) SetShaders(vertex, fragment string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if vertex == "" {
		vertex = DefaultVertexShader
	}
	m.vertexShader = vertex
	m.fragmentShader = fragment
	m.version++
}

func (m *material) Defines() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.defines)
}

func (m *material) Define(name string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.defines[name]
	return v, ok
}

func (m *material) SetDefine(name, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.defines[name]; ok && old == value {
		return
	}
	m.defines[name] = value
	m.version++
}

func (m *material) DeleteDefine(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.defines[name]; !ok {
		return
	}
	delete(m.defines, name)
	m.version++
}

func (m *material) Uniform(key string) *Uniform {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.uniforms[key]
}

func (m *material) Uniforms() map[string]*Uniform {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.uniforms)
}

func (m *material) UniformKeys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Sorted(maps.Keys(m.uniforms))
}

func (m *material) SetUniform(key string, u *Uniform) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.uniforms[key] == u {
		return
	}
	m.uniforms[key] = u
	m.version++
}

func (m *material) DeleteUniform(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.uniforms[key]; !ok {
		return
	}
	delete(m.uniforms, key)
	m.version++
}

func (m *material) Kernel() Kernel {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.kernel
}

func (m *material) SetKernel(k Kernel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kernel = k
}

func (m *material) RenderState() *RenderState {
	return &m.state
}

func (m *material) Version() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.version
}

func (m *material) NeedsUpdate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.version++
}

func (m *material) Dispose() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disposed = true
}

func (m *material) Disposed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.disposed
}
