package postprocessing

import (
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/camera"
	"github.com/Carmen-Shannon/oxy-fx/engine/postprocessing/effect"
	"github.com/Carmen-Shannon/oxy-fx/engine/postprocessing/pass"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/material"
	"github.com/chewxy/math32"
)

// passUniforms are the material uniforms owned by the pass rather than by a merged effect.
var passUniforms = []string{
	material.UniformInputBuffer,
	material.UniformDepthBuffer,
	material.UniformTime,
	material.UniformCameraNear,
	material.UniformCameraFar,
}

// effectPass is the implementation of the EffectPass interface.
type effectPass struct {
	*pass.Base
	mu *sync.Mutex

	effects  []effect.Effect
	versions []uint64
	program  *Program
	material material.Material
	compiler *effectCompiler

	skipRendering bool
	timeScale     float32
	minTime       float32
	maxTime       float32
	time          float32
	dithering     bool
	encodeOutput  bool
	validate      bool

	size            common.Size
	r               renderer.Renderer
	alpha           bool
	frameBufferType common.PixelType
}

// EffectPass merges a list of effects into a single full-screen program and draws it. The program
// is rebuilt from scratch whenever an effect reports a new version; the check runs once per frame
// before drawing. A pass whose effects all replace the destination, or that has no effects, skips
// rendering and does not swap.
type EffectPass interface {
	pass.Pass

	// Effects retrieves the effects in insertion order.
	Effects() []effect.Effect

	// SetEffects replaces the effects and rebuilds the program. Existing effects are not disposed.
	//
	// Parameters:
	//   - effects: the new effects
	//
	// Returns:
	//   - error: a CompositionError if the effects cannot be merged
	SetEffects(effects ...effect.Effect) error

	// Program retrieves the merged program currently drawn.
	Program() *Program

	// Material retrieves the full-screen material holding the merged program.
	Material() material.Material

	// Dirty reports whether an effect changed since the program was built.
	Dirty() bool

	// Recompile rebuilds the program now. On failure the previous program stays in use and the
	// failure is not retried until an effect changes again.
	//
	// Returns:
	//   - error: a CompositionError if the effects cannot be merged
	Recompile() error

	// SkipRendering reports whether Render is a no-op.
	SkipRendering() bool

	// TimeScale retrieves the factor applied to frame time before it is accumulated.
	TimeScale() float32

	// SetTimeScale sets the factor applied to frame time.
	SetTimeScale(scale float32)

	// MinTime retrieves the value accumulated time wraps back to.
	MinTime() float32

	// SetMinTime sets the value accumulated time wraps back to.
	SetMinTime(t float32)

	// MaxTime retrieves the accumulated time limit.
	MaxTime() float32

	// SetMaxTime sets the accumulated time limit.
	SetMaxTime(t float32)

	// Time retrieves the accumulated time exposed to effects.
	Time() float32

	// Dithering reports whether ordered dithering is applied to the output.
	Dithering() bool

	// SetDithering toggles dithering and rebuilds the program.
	SetDithering(dithering bool) error

	// EncodeOutput reports whether the output is gamma encoded by the program.
	EncodeOutput() bool

	// SetEncodeOutput toggles output encoding and rebuilds the program.
	SetEncodeOutput(encode bool) error
}

var _ EffectPass = &effectPass{}

// NewEffectPass creates a pass that merges effects. The program is built before NewEffectPass
// returns, so composition errors surface immediately.
//
// Parameters:
//   - cam: the camera whose planes depth effects use, or nil for the main camera
//   - effects: the effects to merge, in order
//   - options: EffectPassBuilderOption functions to configure the pass
//
// Returns:
//   - EffectPass: the effect pass
//   - error: a CompositionError if the effects cannot be merged
func NewEffectPass(cam camera.Camera, effects []effect.Effect, options ...EffectPassBuilderOption) (EffectPass, error) {
	p := &effectPass{
		Base:      pass.NewBase("EffectPass", nil, cam),
		mu:        &sync.Mutex{},
		effects:   slices.Clone(effects),
		compiler:  newEffectCompiler(),
		timeScale: 1,
		minTime:   1,
		maxTime:   math32.MaxFloat32,
		material: material.NewShaderMaterial("EffectPass", "",
			material.WithUniform(material.UniformInputBuffer, material.TextureUniform(nil)),
			material.WithUniform(material.UniformDepthBuffer, material.DepthTextureUniform(nil)),
			material.WithUniform(material.UniformTime, material.FloatUniform(0)),
			material.WithUniform(material.UniformCameraNear, material.FloatUniform(0.1)),
			material.WithUniform(material.UniformCameraFar, material.FloatUniform(1000)),
		),
	}
	for _, opt := range options {
		opt(p)
	}
	if err := p.Recompile(); err != nil {
		return nil, err
	}
	if cam != nil {
		p.applyCamera(cam)
	}
	return p, nil
}

func (p *effectPass) Effects() []effect.Effect {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.effects)
}

func (p *effectPass) SetEffects(effects ...effect.Effect) error {
	p.mu.Lock()
	p.effects = slices.Clone(effects)
	r, alpha, frameBufferType, size := p.r, p.alpha, p.frameBufferType, p.size
	p.mu.Unlock()

	depth, scene, cam := p.DepthTexture(), p.Scene(), p.Camera()
	for _, e := range effects {
		e.SetMainScene(scene)
		e.SetMainCamera(cam)
		e.SetDepthTexture(depth)
		if r != nil {
			if err := e.Initialize(r, alpha, frameBufferType); err != nil {
				return err
			}
		}
		if !size.Empty() {
			e.SetSize(size.Width, size.Height)
		}
	}
	return p.Recompile()
}

func (p *effectPass) Program() *Program {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.program
}

func (p *effectPass) Material() material.Material {
	return p.material
}

func (p *effectPass) Dirty() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dirty()
}

// dirty compares effect versions with the ones the program was built from. Requires mu.
func (p *effectPass) dirty() bool {
	if len(p.versions) != len(p.effects) {
		return true
	}
	for i, e := range p.effects {
		if e.Version() != p.versions[i] {
			return true
		}
	}
	return false
}

func (p *effectPass) Recompile() error {
	p.mu.Lock()
	effects := slices.Clone(p.effects)
	opts := compileOptions{dithering: p.dithering, encodeOutput: p.encodeOutput, validate: p.validate}
	p.mu.Unlock()

	versions := make([]uint64, len(effects))
	for i, e := range effects {
		versions[i] = e.Version()
	}
	prog, err := p.compiler.compile(effects, opts)

	p.mu.Lock()
	p.versions = versions
	p.mu.Unlock()
	if err != nil {
		common.Logger().Error("effect merge failed", "pass", p.Name(), "error", err)
		return err
	}
	p.install(prog)
	return nil
}

// install swaps the merged program into the material.
func (p *effectPass) install(prog *Program) {
	p.mu.Lock()
	p.program = prog
	p.skipRendering = prog.Empty()
	p.mu.Unlock()

	p.SetNeedsSwap(!prog.Empty())
	p.SetNeedsDepthTexture(prog.Attributes.Has(effect.AttributeDepth))

	m := p.material
	for _, key := range m.UniformKeys() {
		if !slices.Contains(passUniforms, key) {
			m.DeleteUniform(key)
		}
	}
	for _, key := range prog.UniformKeys {
		m.SetUniform(key, prog.Uniforms[key])
	}
	for name := range m.Defines() {
		if name != material.DefinePerspectiveCamera {
			m.DeleteDefine(name)
		}
	}
	for name, value := range prog.Defines {
		m.SetDefine(name, value)
	}
	m.SetKernel(prog.Kernel)
	m.SetShaders(prog.VertexShader, prog.FragmentShader)

	common.Logger().Debug("effect program built",
		"pass", p.Name(),
		"effects", len(prog.Effects),
		"uniforms", len(prog.UniformKeys),
		"attributes", prog.Attributes.String(),
	)
}

func (p *effectPass) SkipRendering() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.skipRendering
}

func (p *effectPass) TimeScale() float32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.timeScale
}

func (p *effectPass) SetTimeScale(scale float32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timeScale = scale
}

func (p *effectPass) MinTime() float32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.minTime
}

func (p *effectPass) SetMinTime(t float32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.minTime = t
}

func (p *effectPass) MaxTime() float32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxTime
}

func (p *effectPass) SetMaxTime(t float32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.maxTime = t
}

func (p *effectPass) Time() float32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.time
}

func (p *effectPass) Dithering() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dithering
}

func (p *effectPass) SetDithering(dithering bool) error {
	p.mu.Lock()
	changed := p.dithering != dithering
	p.dithering = dithering
	p.mu.Unlock()
	if !changed {
		return nil
	}
	return p.Recompile()
}

func (p *effectPass) EncodeOutput() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.encodeOutput
}

func (p *effectPass) SetEncodeOutput(encode bool) error {
	p.mu.Lock()
	changed := p.encodeOutput != encode
	p.encodeOutput = encode
	p.mu.Unlock()
	if !changed {
		return nil
	}
	return p.Recompile()
}

func (p *effectPass) SetDepthTexture(t renderer.DepthTexture) {
	p.Base.SetDepthTexture(t)
	var tex common.Texture
	if t != nil {
		tex = t
	}
	p.material.Uniform(material.UniformDepthBuffer).SetTexture(tex)
	for _, e := range p.Effects() {
		e.SetDepthTexture(t)
	}
}

func (p *effectPass) SetMainScene(scene renderer.Scene) {
	p.Base.SetMainScene(scene)
	for _, e := range p.Effects() {
		e.SetMainScene(scene)
	}
}

func (p *effectPass) SetMainCamera(cam camera.Camera) {
	p.Base.SetMainCamera(cam)
	for _, e := range p.Effects() {
		e.SetMainCamera(cam)
	}
	if c := p.Camera(); c != nil {
		p.applyCamera(c)
	}
}

// applyCamera copies the camera planes and projection kind into the material.
func (p *effectPass) applyCamera(cam camera.Camera) {
	p.material.Uniform(material.UniformCameraNear).SetFloat(cam.Near())
	p.material.Uniform(material.UniformCameraFar).SetFloat(cam.Far())
	_, perspective := p.material.Define(material.DefinePerspectiveCamera)
	switch {
	case cam.Perspective() && !perspective:
		p.material.SetDefine(material.DefinePerspectiveCamera, "")
	case !cam.Perspective() && perspective:
		p.material.DeleteDefine(material.DefinePerspectiveCamera)
	}
}

func (p *effectPass) Render(r renderer.Renderer, input, output renderer.RenderTarget, delta float32, _ bool) error {
	if p.Dirty() {
		if err := p.Recompile(); err != nil {
			return err
		}
	}
	for _, e := range p.Effects() {
		if err := e.Update(r, input, delta); err != nil {
			return err
		}
	}
	if p.SkipRendering() {
		return nil
	}

	p.mu.Lock()
	p.time += delta * p.timeScale
	if p.time > p.maxTime {
		p.time = p.minTime
	}
	t := p.time
	p.mu.Unlock()

	m := p.material
	m.Uniform(material.UniformTime).SetFloat(t)
	m.Uniform(material.UniformInputBuffer).SetTexture(input.Texture())
	if cam := p.Camera(); cam != nil {
		p.applyCamera(cam)
	}

	r.SetRenderTarget(p.Destination(output))
	return r.DrawFullscreen(m)
}

func (p *effectPass) SetSize(width, height int) {
	p.mu.Lock()
	p.size = common.Size{Width: width, Height: height}
	p.mu.Unlock()
	for _, e := range p.Effects() {
		e.SetSize(width, height)
	}
}

func (p *effectPass) Initialize(r renderer.Renderer, alpha bool, frameBufferType common.PixelType) error {
	p.mu.Lock()
	p.r, p.alpha, p.frameBufferType = r, alpha, frameBufferType
	p.mu.Unlock()
	for _, e := range p.Effects() {
		if err := e.Initialize(r, alpha, frameBufferType); err != nil {
			return err
		}
	}
	return nil
}

func (p *effectPass) Dispose() {
	p.Base.Dispose()
	for _, e := range p.Effects() {
		e.Dispose()
	}
	p.material.Dispose()
}
