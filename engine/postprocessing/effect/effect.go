// Package effect contains the visual effects merged into a single full-screen program by an
// EffectPass. An effect contributes WGSL hooks, uniforms, defines and a blend mode, plus CPU
// kernels that evaluate the same hooks for the headless renderer backend.
//
// Fragment sources may declare:
//
//	fn mainImage(inputColor: vec4f, uv: vec2f) -> vec4f
//	fn mainImage(inputColor: vec4f, uv: vec2f, depth: f32) -> vec4f
//	fn mainUv(uv: vec2f) -> vec2f
//
// and vertex sources may declare fn mainSupport(uv: vec2f) together with //@oxy:varying
// annotations. Module-scope symbols are namespaced when merged, so effects never clash.
package effect

import (
	"maps"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/camera"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
)

const (
	// HookImage is the name of the color transform hook.
	HookImage = "mainImage"

	// HookUV is the name of the uv transform hook.
	HookUV = "mainUv"

	// HookSupport is the name of the vertex support hook.
	HookSupport = "mainSupport"
)

// ImageKernel is the CPU evaluation of mainImage. depth is the raw depth buffer value at uv, or
// 1 when the effect does not read depth.
type ImageKernel func(ctx *material.FragmentContext, inputColor common.Color, uv common.Vec2, depth float32) common.Color

// UVKernel is the CPU evaluation of mainUv.
type UVKernel func(ctx *material.FragmentContext, uv common.Vec2) common.Vec2

// Kernels holds the CPU evaluations of an effect's hooks. A nil kernel leaves its input unchanged.
type Kernels struct {
	Image ImageKernel
	UV    UVKernel
}

// Effect defines a composable shader fragment merged into an EffectPass.
type Effect interface {
	// Name retrieves the effect name, used in errors and debug labels.
	Name() string

	// FragmentShader retrieves the WGSL fragment source holding the effect's hooks.
	FragmentShader() string

	// SetFragmentShader replaces the fragment source and bumps the version.
	SetFragmentShader(src string)

	// VertexShader retrieves the optional WGSL vertex source, or an empty string.
	VertexShader() string

	// SetVertexShader replaces the vertex source and bumps the version.
	SetVertexShader(src string)

	// Attributes retrieves the effect requirements.
	Attributes() Attribute

	// SetAttributes replaces the effect requirements and bumps the version.
	SetAttributes(a Attribute)

	// BlendMode retrieves the blend mode.
	BlendMode() BlendMode

	// UniformKeys returns the uniform keys in declaration order.
	UniformKeys() []string

	// Uniforms returns a copy of the uniform table. The uniforms themselves are shared.
	//
	// Returns:
	//   - map[string]*material.Uniform: uniforms keyed by the name used in the effect source
	Uniforms() map[string]*material.Uniform

	// Uniform returns the uniform stored under key, or nil.
	Uniform(key string) *material.Uniform

	// Defines returns a copy of the defines.
	Defines() map[string]string

	// Define returns the value of a define and whether it is set.
	Define(name string) (string, bool)

	// SetDefine sets a define and bumps the version if it changed.
	SetDefine(name, value string)

	// DeleteDefine removes a define and bumps the version if it was set.
	DeleteDefine(name string)

	// Extensions returns the WGSL extensions the effect enables.
	Extensions() []string

	// InputColorSpace retrieves the color space mainImage expects its input in.
	InputColorSpace() common.ColorSpace

	// OutputColorSpace retrieves the color space mainImage produces, or ColorSpaceNone when it
	// leaves the accumulated space unchanged.
	OutputColorSpace() common.ColorSpace

	// Kernels retrieves the CPU kernels. The owning pass asks again whenever Version changes,
	// so kernels may capture defines and other versioned state.
	Kernels() Kernels

	// Version returns a counter that changes whenever the merged program would change.
	Version() uint64

	// SetDepthTexture hands the shared scene depth texture to the effect. Nil revokes it.
	SetDepthTexture(t renderer.DepthTexture)

	// SetMainScene sets the scene rendered by the owning pipeline.
	SetMainScene(scene renderer.Scene)

	// SetMainCamera sets the camera used by the owning pipeline.
	SetMainCamera(cam camera.Camera)

	// Update runs once per frame before the merged program is drawn. Effects with render
	// targets of their own render them here.
	//
	// Parameters:
	//   - r: the renderer
	//   - input: the buffer holding the current image
	//   - delta: the frame time in seconds
	//
	// Returns:
	//   - error: an error if drawing fails
	Update(r renderer.Renderer, input renderer.RenderTarget, delta float32) error

	// SetSize resizes the effect's own targets to the drawing buffer size.
	SetSize(width, height int)

	// Initialize performs one-time setup once the owning pipeline is known.
	//
	// Parameters:
	//   - r: the renderer
	//   - alpha: whether the screen keeps alpha
	//   - frameBufferType: the pixel type of the composer buffers
	//
	// Returns:
	//   - error: an error if the effect cannot be set up
	Initialize(r renderer.Renderer, alpha bool, frameBufferType common.PixelType) error

	// Dispose releases the effect's targets and materials.
	Dispose()
}

// Base holds the state shared by every effect. Concrete effects embed a *Base.
type Base struct {
	mu *sync.Mutex

	name             string
	fragmentShader   string
	vertexShader     string
	attributes       Attribute
	blendMode        BlendMode
	uniformKeys      []string
	uniforms         map[string]*material.Uniform
	defines          map[string]string
	extensions       []string
	inputColorSpace  common.ColorSpace
	outputColorSpace common.ColorSpace
	kernels          Kernels
	version          uint64

	depthTexture renderer.DepthTexture
	mainScene    renderer.Scene
	mainCamera   camera.Camera
}

// NewBase creates the shared effect state with a Normal blend mode at full opacity and a linear
// input color space.
//
// Parameters:
//   - name: the effect name
//   - fragmentShader: the WGSL fragment source
//   - options: EffectBuilderOption functions to configure the effect
//
// Returns:
//   - *Base: the effect state
func NewBase(name, fragmentShader string, options ...EffectBuilderOption) *Base {
	b := &Base{
		mu:              &sync.Mutex{},
		name:            name,
		fragmentShader:  fragmentShader,
		blendMode:       NewBlendMode(BlendFunctionNormal, 1),
		uniforms:        make(map[string]*material.Uniform),
		defines:         make(map[string]string),
		inputColorSpace: common.ColorSpaceLinear,
	}
	for _, opt := range options {
		opt(b)
	}
	return b
}

func (b *Base) Name() string {
	return b.name
}

func (b *Base) FragmentShader() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fragmentShader
}

func (b *Base) SetFragmentShader(src string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fragmentShader = src
	b.version++
}

func (b *Base) VertexShader() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.vertexShader
}

func (b *Base) SetVertexShader(src string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.vertexShader = src
	b.version++
}

func (b *Base) Attributes() Attribute {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attributes
}

func (b *Base) SetAttributes(a Attribute) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.attributes == a {
		return
	}
	b.attributes = a
	b.version++
}

func (b *Base) BlendMode() BlendMode {
	return b.blendMode
}

func (b *Base) UniformKeys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.uniformKeys)
}

func (b *Base) Uniforms() map[string]*material.Uniform {
	b.mu.Lock()
	defer b.mu.Unlock()
	return maps.Clone(b.uniforms)
}

func (b *Base) Uniform(key string) *material.Uniform {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.uniforms[key]
}

// SetUniform stores u under key. Adding a key or replacing a uniform bumps the version.
//
// Parameters:
//   - key: the name used in the effect source
//   - u: the uniform
func (b *Base) SetUniform(key string, u *material.Uniform) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setUniform(key, u)
}

// setUniform requires mu.
func (b *Base) setUniform(key string, u *material.Uniform) {
	prev, ok := b.uniforms[key]
	if ok && prev == u {
		return
	}
	if !ok {
		b.uniformKeys = append(b.uniformKeys, key)
	}
	b.uniforms[key] = u
	b.version++
}

func (b *Base) Defines() map[string]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return maps.Clone(b.defines)
}

func (b *Base) Define(name string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.defines[name]
	return v, ok
}

func (b *Base) SetDefine(name, value string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if v, ok := b.defines[name]; ok && v == value {
		return
	}
	b.defines[name] = value
	b.version++
}

func (b *Base) DeleteDefine(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.defines[name]; !ok {
		return
	}
	delete(b.defines, name)
	b.version++
}

// setDefined sets name to an empty value when on and deletes it otherwise.
func (b *Base) setDefined(name string, on bool) {
	if on {
		b.SetDefine(name, "")
	} else {
		b.DeleteDefine(name)
	}
}

func (b *Base) Extensions() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.extensions)
}

func (b *Base) InputColorSpace() common.ColorSpace {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inputColorSpace
}

func (b *Base) OutputColorSpace() common.ColorSpace {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.outputColorSpace
}

func (b *Base) Kernels() Kernels {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.kernels
}

func (b *Base) Version() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.version + b.blendMode.Version()
}

// Changed forces a version bump.
func (b *Base) Changed() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.version++
}

func (b *Base) SetDepthTexture(t renderer.DepthTexture) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.depthTexture = t
}

// DepthTexture retrieves the shared depth texture, or nil.
func (b *Base) DepthTexture() renderer.DepthTexture {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.depthTexture
}

func (b *Base) SetMainScene(scene renderer.Scene) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mainScene = scene
}

// MainScene retrieves the main scene, or nil.
func (b *Base) MainScene() renderer.Scene {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mainScene
}

func (b *Base) SetMainCamera(cam camera.Camera) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mainCamera = cam
}

// MainCamera retrieves the main camera, or nil.
func (b *Base) MainCamera() camera.Camera {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mainCamera
}

func (b *Base) Update(renderer.Renderer, renderer.RenderTarget, float32) error {
	return nil
}

func (b *Base) SetSize(width, height int) {}

func (b *Base) Initialize(renderer.Renderer, bool, common.PixelType) error {
	return nil
}

func (b *Base) Dispose() {}

// Watch reloads the fragment shader of e from path whenever the file changes. The owning
// EffectPass picks the new source up through the version bump on its next frame.
//
// Parameters:
//   - w: the shader watcher
//   - e: the effect to reload
//   - path: the WGSL file
//
// Returns:
//   - error: an error if the file cannot be read or watched
func Watch(w shader.Watcher, e Effect, path string) error {
	return w.Watch(path, func(src string) {
		if src == e.FragmentShader() {
			return
		}
		common.Logger().Info("effect shader reloaded", "effect", e.Name(), "path", path)
		e.SetFragmentShader(src)
	})
}
