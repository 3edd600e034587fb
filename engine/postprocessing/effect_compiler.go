package postprocessing

import (
	"bytes"
	_ "embed"
	"fmt"
	"maps"
	"runtime"
	"slices"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/postprocessing/effect"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
)

//go:embed assets/effect_fragment.wgsl.tmpl
var fragmentTemplateSource string

//go:embed assets/effect_vertex.wgsl.tmpl
var vertexTemplateSource string

var (
	fragmentTemplate = template.Must(template.New("effect_fragment").Parse(fragmentTemplateSource))
	vertexTemplate   = template.Must(template.New("effect_vertex").Parse(vertexTemplateSource))
)

// uniformBlendOpacity is the per-effect key suffix of the blend opacity uniform.
const uniformBlendOpacity = "blendOpacity"

// builtins are the symbols provided by the merged template, never namespaced.
var builtins = map[string]bool{
	"frame":              true,
	"uniforms":           true,
	"inputBuffer":        true,
	"inputSampler":       true,
	"linearSampler":      true,
	"depthBuffer":        true,
	"PI":                 true,
	"rand":               true,
	"luminance":          true,
	"linearToSRGB":       true,
	"sRGBToLinear":       true,
	"readDepth":          true,
	"linearizeDepth":     true,
	"fullscreenVertex":   true,
	"FullscreenOutput":   true,
	"FrameUniforms":      true,
	"EffectUniforms":     true,
	"EffectVertexOutput": true,
	"time":               true,
	"cameraNear":         true,
	"cameraFar":          true,
}

// Program is the merged artifact of an EffectPass: one fragment shader evaluating every merged
// effect, an optional vertex shader, and the namespaced uniforms and defines that go with them.
// A Program without effects has an empty FragmentShader and is never drawn.
type Program struct {
	FragmentShader string

	// VertexShader is empty unless an effect contributes a vertex support hook or varyings.
	VertexShader string

	// Defines holds every effect define under its namespaced name.
	Defines map[string]string

	// Uniforms holds every effect uniform under its namespaced key, sharing the effect's pointer.
	Uniforms map[string]*material.Uniform

	// UniformKeys lists the keys of Uniforms in merge order.
	UniformKeys []string

	Extensions []string

	// Attributes is the union of the attributes of every effect, including skipped ones.
	Attributes effect.Attribute

	// Effects lists the merged effects in execution order.
	Effects []effect.Effect

	// IDs maps each merged effect to its namespace prefix.
	IDs map[effect.Effect]string

	// Kernel evaluates the program on the CPU for the headless backend.
	Kernel material.Kernel
}

// Empty reports whether no effect survived partitioning.
func (p *Program) Empty() bool {
	return len(p.Effects) == 0
}

// compileOptions are the EffectPass settings that shape the merged program.
type compileOptions struct {
	dithering    bool
	encodeOutput bool
	validate     bool
}

// colorConversion is the color-space bridge inserted before an image hook.
type colorConversion int

const (
	conversionNone colorConversion = iota
	conversionToSRGB
	conversionToLinear
)

// unit is one effect prepared for merging.
type unit struct {
	effect effect.Effect
	id     string

	fragment string
	vertex   string
	varyings []shader.Varying

	image      bool
	uv         bool
	support    bool
	depthParam bool

	blend   effect.BlendFunction
	opacity *material.Uniform
	kernels effect.Kernels
}

// varyingSlot is a varying with its location in the generated vertex output.
type varyingSlot struct {
	Name     string
	Type     string
	Location int
}

// textureBinding is a texture uniform bound in group 1.
type textureBinding struct {
	Name    string
	Type    string
	Binding int
}

// templateData feeds the fragment and vertex templates.
type templateData struct {
	Extensions    []string
	Depth         bool
	ReadsDepth    bool
	UniformStruct string
	Textures      []textureBinding
	Varyings      []varyingSlot
	InputType     string
	Blends        []string
	Heads         []string
	UVCalls       []string
	ImageSteps    []string
	VertexHeads   []string
	SupportCalls  []string
	Dithering     bool
	EncodeOutput  bool
}

// imageStep is one link of the CPU blend chain.
type imageStep struct {
	id         string
	kernel     effect.ImageKernel
	conversion colorConversion
	blend      effect.BlendFunction
	opacity    *material.Uniform
}

// compilePool is shared by every effect compiler. Its workers live for the life of the process.
var compilePool = sync.OnceValue(func() worker.DynamicWorkerPool {
	return worker.NewDynamicWorkerPool(max(runtime.NumCPU()/2, 1), 256, 1*time.Second)
})

// effectCompiler merges effects into a Program. Effect sources are prepared concurrently on a
// worker pool; everything after the barrier runs in effect order.
type effectCompiler struct {
	pool func() worker.DynamicWorkerPool
}

func newEffectCompiler() *effectCompiler {
	return &effectCompiler{pool: compilePool}
}

// compile merges effects into a Program.
//
// Parameters:
//   - effects: the effects in insertion order
//   - opts: the pass settings
//
// Returns:
//   - *Program: the merged program
//   - error: a CompositionError when the effects cannot be merged
func (c *effectCompiler) compile(effects []effect.Effect, opts compileOptions) (*Program, error) {
	prog := &Program{
		Defines:  make(map[string]string),
		Uniforms: make(map[string]*material.Uniform),
		IDs:      make(map[effect.Effect]string),
	}

	// effects that replace the destination only contribute their depth requirement
	merged := make([]effect.Effect, 0, len(effects))
	for _, e := range effects {
		if e.BlendMode().Function() == effect.BlendFunctionDst {
			prog.Attributes |= e.Attributes() & effect.AttributeDepth
			continue
		}
		prog.Attributes |= e.Attributes()
		merged = append(merged, e)
	}
	if len(merged) == 0 {
		return prog, nil
	}

	var convolution effect.Effect
	for _, e := range merged {
		if !e.Attributes().Has(effect.AttributeConvolution) {
			continue
		}
		if convolution != nil {
			return nil, compositionError(e.Name(), ErrConvolutionConflict)
		}
		convolution = e
	}

	slices.SortStableFunc(merged, func(a, b effect.Effect) int {
		return int(b.Attributes()) - int(a.Attributes())
	})

	units, err := c.prepare(merged)
	if err != nil {
		return nil, err
	}
	if convolution != nil {
		for _, u := range units {
			if u.uv {
				return nil, compositionError(u.effect.Name(), ErrUVConvolutionConflict)
			}
		}
	}

	data, steps, uvKernels := c.assemble(prog, units, opts)
	var frag bytes.Buffer
	if err := fragmentTemplate.Execute(&frag, data); err != nil {
		return nil, fmt.Errorf("postprocessing: render fragment template: %w", err)
	}
	prog.FragmentShader = frag.String()
	if len(data.Varyings) > 0 || len(data.SupportCalls) > 0 {
		var vert bytes.Buffer
		if err := vertexTemplate.Execute(&vert, data); err != nil {
			return nil, fmt.Errorf("postprocessing: render vertex template: %w", err)
		}
		prog.VertexShader = vert.String()
	}

	if opts.validate {
		if err := validateProgram(prog); err != nil {
			return nil, err
		}
	}

	prog.Kernel = mergedKernel(uvKernels, steps, data.ReadsDepth, opts)
	return prog, nil
}

// prepare preprocesses and namespaces every effect on the worker pool.
func (c *effectCompiler) prepare(effects []effect.Effect) ([]*unit, error) {
	units := make([]*unit, len(effects))
	errs := make([]error, len(effects))
	pool := c.pool()

	var wg sync.WaitGroup
	for i, e := range effects {
		wg.Add(1)
		idx, eCap := i, e
		pool.SubmitTask(worker.Task{
			ID: idx,
			Do: func() (any, error) {
				defer wg.Done()
				units[idx], errs[idx] = prepareUnit(eCap, fmt.Sprintf("e%d", idx))
				return nil, nil
			},
		})
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, compositionError(effects[i].Name(), err)
		}
	}
	return units, nil
}

// prepareUnit preprocesses the sources of e with its defines, checks its hooks and namespaces
// every symbol it declares under id.
func prepareUnit(e effect.Effect, id string) (*unit, error) {
	src := e.FragmentShader()
	if strings.TrimSpace(src) == "" {
		return nil, ErrMissingFragmentShader
	}

	defines := e.Defines()
	pp := shader.NewPreProcessor()
	frag, err := pp.Process(src, copyDefines(defines))
	if err != nil {
		return nil, fmt.Errorf("fragment shader: %w", err)
	}
	varyings := slices.Clone(pp.Varyings())

	vert := ""
	if src := e.VertexShader(); strings.TrimSpace(src) != "" {
		if vert, err = pp.Process(src, copyDefines(defines)); err != nil {
			return nil, fmt.Errorf("vertex shader: %w", err)
		}
		for _, v := range pp.Varyings() {
			if !slices.ContainsFunc(varyings, func(o shader.Varying) bool { return o.Name == v.Name }) {
				varyings = append(varyings, v)
			}
		}
	}

	u := &unit{
		effect:  e,
		id:      id,
		blend:   e.BlendMode().Function(),
		opacity: e.BlendMode().Opacity(),
		kernels: e.Kernels(),
	}
	if err := u.checkHooks(frag, vert); err != nil {
		return nil, err
	}

	var consts strings.Builder
	for _, name := range slices.Sorted(maps.Keys(defines)) {
		if v := defines[name]; v != "" {
			fmt.Fprintf(&consts, "const %s = %s;\n", name, v)
		}
	}
	frag = consts.String() + frag
	if vert != "" {
		vert = consts.String() + vert
	}

	prefix := id + "_"
	uniforms := e.Uniforms()
	extra := shader.DeclaredSymbols(vert)
	for _, v := range varyings {
		extra = append(extra, v.Name)
	}
	values := make(map[string]string)
	for _, key := range e.UniformKeys() {
		if uniforms[key].Type().IsTexture() {
			extra = append(extra, key)
		} else {
			values[key] = "uniforms." + prefix + key
		}
	}

	frag, renames := shader.Namespace(frag, prefix, extra, builtins)
	u.fragment = shader.Rename(frag, values)
	if vert != "" {
		u.vertex = shader.Rename(shader.Rename(vert, renames), values)
	}
	for _, v := range varyings {
		u.varyings = append(u.varyings, shader.Varying{Type: v.Type, Name: renames[v.Name]})
	}
	return u, nil
}

// copyDefines returns a writable copy of defines for the pre-processor.
func copyDefines(defines map[string]string) map[string]string {
	out := make(map[string]string, len(defines))
	maps.Copy(out, defines)
	return out
}

// checkHooks records which hooks the preprocessed sources declare and validates their signatures.
func (u *unit) checkHooks(frag, vert string) error {
	img, hasImage := shader.FindFunction(frag, effect.HookImage)
	uv, hasUV := shader.FindFunction(frag, effect.HookUV)
	if !hasImage && !hasUV {
		return ErrMissingHook
	}

	if hasImage {
		n := len(img.Params)
		if n < 2 || n > 3 || wgslType(img.Params[0].Type) != "vec4f" || wgslType(img.Params[1].Type) != "vec2f" ||
			(n == 3 && img.Params[2].Type != "f32") || wgslType(img.Result) != "vec4f" {
			return fmt.Errorf("%w: %s must be fn(vec4f, vec2f[, f32]) -> vec4f", ErrInvalidHook, effect.HookImage)
		}
		u.image = true
		u.depthParam = n == 3
	}
	if hasUV {
		if len(uv.Params) != 1 || wgslType(uv.Params[0].Type) != "vec2f" || wgslType(uv.Result) != "vec2f" {
			return fmt.Errorf("%w: %s must be fn(vec2f) -> vec2f", ErrInvalidHook, effect.HookUV)
		}
		u.uv = true
	}
	if vert != "" {
		support, ok := shader.FindFunction(vert, effect.HookSupport)
		if !ok || len(support.Params) != 1 || wgslType(support.Params[0].Type) != "vec2f" || support.Result != "" {
			return fmt.Errorf("%w: vertex shader must declare fn %s(vec2f)", ErrInvalidHook, effect.HookSupport)
		}
		u.support = true
	}
	return nil
}

// wgslType folds the long vector spellings into their aliases.
func wgslType(t string) string {
	switch t {
	case "vec2<f32>":
		return "vec2f"
	case "vec4<f32>":
		return "vec4f"
	}
	return t
}

// assemble fills the template slots in effect order and collects the merged uniforms.
func (c *effectCompiler) assemble(prog *Program, units []*unit, opts compileOptions) (templateData, []imageStep, []effect.UVKernel) {
	data := templateData{
		InputType:    "FullscreenOutput",
		Dithering:    opts.dithering,
		EncodeOutput: opts.encodeOutput,
	}
	var (
		mergedAttrs effect.Attribute
		valueKeys   []string
		steps       []imageStep
		uvKernels   []effect.UVKernel
		blends      = make(map[effect.BlendFunction]bool)
	)
	for _, u := range units {
		mergedAttrs |= u.effect.Attributes()
	}
	data.Depth = mergedAttrs.Has(effect.AttributeDepth)
	data.ReadsDepth = data.Depth && slices.ContainsFunc(units, func(u *unit) bool { return u.depthParam })

	space := common.ColorSpaceLinear
	for _, u := range units {
		e := u.effect
		prog.Effects = append(prog.Effects, e)
		prog.IDs[e] = u.id
		prefix := u.id + "_"

		uniforms := e.Uniforms()
		for _, key := range e.UniformKeys() {
			nk := prefix + key
			un := uniforms[key]
			prog.Uniforms[nk] = un
			prog.UniformKeys = append(prog.UniformKeys, nk)
			if un.Type().IsTexture() {
				data.Textures = append(data.Textures, textureBinding{Name: nk, Type: un.Type().WGSLType(), Binding: len(data.Textures)})
			} else {
				valueKeys = append(valueKeys, nk)
			}
		}
		for name, value := range e.Defines() {
			prog.Defines[prefix+name] = value
		}
		for _, ext := range e.Extensions() {
			if !slices.Contains(prog.Extensions, ext) {
				prog.Extensions = append(prog.Extensions, ext)
			}
		}

		data.Heads = append(data.Heads, u.fragment)
		if u.vertex != "" {
			data.VertexHeads = append(data.VertexHeads, u.vertex)
		}
		if u.support {
			data.SupportCalls = append(data.SupportCalls, prefix+effect.HookSupport)
		}
		for _, v := range u.varyings {
			data.Varyings = append(data.Varyings, varyingSlot{Name: v.Name, Type: v.Type, Location: len(data.Varyings) + 1})
		}
		if u.uv {
			data.UVCalls = append(data.UVCalls, prefix+effect.HookUV)
			if u.kernels.UV != nil {
				uvKernels = append(uvKernels, u.kernels.UV)
			} else {
				common.WarnOnce(common.WarnKey("effect-uv-kernel", e.Name()), "effect has no CPU uv kernel, headless output ignores it", "effect", e.Name())
			}
		}
		if !u.image {
			continue
		}

		opacityKey := prefix + uniformBlendOpacity
		prog.Uniforms[opacityKey] = u.opacity
		prog.UniformKeys = append(prog.UniformKeys, opacityKey)
		valueKeys = append(valueKeys, opacityKey)

		step := imageStep{id: u.id, kernel: u.kernels.Image, blend: u.blend, opacity: u.opacity}
		switch in := e.InputColorSpace(); {
		case in == common.ColorSpaceSRGB && space != common.ColorSpaceSRGB:
			step.conversion = conversionToSRGB
			data.ImageSteps = append(data.ImageSteps, "color = linearToSRGB(color);")
			space = in
		case in == common.ColorSpaceLinear && space != common.ColorSpaceLinear:
			step.conversion = conversionToLinear
			data.ImageSteps = append(data.ImageSteps, "color = sRGBToLinear(color);")
			space = in
		}
		if out := e.OutputColorSpace(); out != common.ColorSpaceNone {
			space = out
		}
		if step.kernel == nil {
			common.WarnOnce(common.WarnKey("effect-image-kernel", e.Name()), "effect has no CPU image kernel, headless output passes its input through", "effect", e.Name())
		}
		steps = append(steps, step)

		args := "color, uv"
		if u.depthParam && data.ReadsDepth {
			args += ", depth"
		} else if u.depthParam {
			args += ", 1.0"
		}
		data.ImageSteps = append(data.ImageSteps, fmt.Sprintf("color = %s(color, %s%s(%s), uniforms.%s);",
			u.blend.FunctionName(), prefix, effect.HookImage, args, opacityKey))
		if !blends[u.blend] {
			blends[u.blend] = true
			data.Blends = append(data.Blends, u.blend.WGSL())
		}
	}
	if space == common.ColorSpaceSRGB {
		data.ImageSteps = append(data.ImageSteps, "color = sRGBToLinear(color);")
		steps = append(steps, imageStep{conversion: conversionToLinear})
	}

	if len(data.Varyings) > 0 {
		data.InputType = "EffectVertexOutput"
	}
	data.Extensions = prog.Extensions
	data.UniformStruct = material.UniformStruct("EffectUniforms", valueKeys, prog.Uniforms)
	return data, steps, uvKernels
}

// validateProgram runs the merged sources through the WGSL compiler.
func validateProgram(prog *Program) error {
	sources := []string{prog.FragmentShader}
	if prog.VertexShader != "" {
		sources = append(sources, prog.VertexShader)
	}
	for _, src := range sources {
		processed, err := shader.NewPreProcessor().Process(src, copyDefines(prog.Defines))
		if err == nil {
			err = shader.Validate(processed)
		}
		if err != nil {
			return compositionError("EffectPass", fmt.Errorf("%w: %v", ErrShaderValidation, err))
		}
	}
	return nil
}

// mergedKernel evaluates the merged program on the CPU in the same order as the fragment shader.
func mergedKernel(uvKernels []effect.UVKernel, steps []imageStep, readsDepth bool, opts compileOptions) material.Kernel {
	return func(ctx *material.FragmentContext) common.Color {
		uv := ctx.UV
		for _, k := range uvKernels {
			uv = k(ctx, uv)
		}
		color := ctx.Input(uv)
		depth := float32(1)
		if readsDepth {
			depth = ctx.ReadDepth(uv)
		}
		for _, s := range steps {
			switch s.conversion {
			case conversionToSRGB:
				color = common.LinearToSRGB(color)
			case conversionToLinear:
				color = common.SRGBToLinear(color)
			}
			if s.opacity == nil {
				continue
			}
			out := color
			if s.kernel != nil {
				out = s.kernel(ctx, color, uv, depth)
			}
			color = s.blend.Apply(color, out, s.opacity.Float())
		}
		if opts.dithering {
			d := dither(float32(ctx.X)+0.5, float32(ctx.Y)+0.5)
			color = common.Color{color[0] + d[0], color[1] + d[1], color[2] + d[2], color[3]}
		}
		if opts.encodeOutput {
			color = common.LinearToSRGB(color)
		}
		return color
	}
}

// dither returns the ordered noise added by the dithering option.
func dither(x, y float32) [3]float32 {
	d := 171*x + 231*y
	return [3]float32{
		(common.Fract(d/103) - 0.5) / 255,
		(common.Fract(d/71) - 0.5) / 255,
		(common.Fract(d/97) - 0.5) / 255,
	}
}
