package config

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/camera"
	"github.com/Carmen-Shannon/oxy-fx/engine/postprocessing"
	"github.com/Carmen-Shannon/oxy-fx/engine/postprocessing/effect"
	"github.com/Carmen-Shannon/oxy-fx/engine/postprocessing/pass"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
)

// buildContext carries the main scene and camera handed to every pass.
type buildContext struct {
	scene renderer.Scene
	cam   camera.Camera
}

type passBuilder func(ctx buildContext, pc PassConfig) (pass.Pass, error)

type effectBuilder func(p params, options []effect.EffectBuilderOption) (effect.Effect, error)

var passBuilders = map[string]passBuilder{
	"render":     buildRenderPass,
	"clear":      buildClearPass,
	"copy":       buildCopyPass,
	"mask":       buildMaskPass,
	"clear_mask": buildClearMaskPass,
	"effect":     buildEffectPass,
}

var effectBuilders = map[string]effectBuilder{
	"bloom":                buildBloom,
	"brightness_contrast":  buildBrightnessContrast,
	"chromatic_aberration": buildChromaticAberration,
	"color_depth":          buildColorDepth,
	"depth":                buildDepth,
	"hue_saturation":       buildHueSaturation,
	"noise":                buildNoise,
	"pixelation":           buildPixelation,
	"scanline":             buildScanline,
	"sepia":                buildSepia,
	"tone_mapping":         buildToneMapping,
	"vignette":             buildVignette,
}

// ComposerOptions translates the composer section into composer options.
//
// Returns:
//   - []postprocessing.ComposerBuilderOption: the options
//   - error: an error for an invalid frame buffer type
func (c *Config) ComposerOptions() ([]postprocessing.ComposerBuilderOption, error) {
	pt, err := c.Composer.PixelType()
	if err != nil {
		return nil, err
	}
	options := []postprocessing.ComposerBuilderOption{
		postprocessing.WithFrameBufferType(pt),
		postprocessing.WithMultisampling(c.Composer.Multisampling),
		postprocessing.WithStencilBuffer(c.Composer.StencilBuffer || c.usesMask()),
	}
	if c.Composer.DepthBuffer != nil {
		options = append(options, postprocessing.WithDepthBuffer(*c.Composer.DepthBuffer))
	}
	return options, nil
}

func (c *Config) usesMask() bool {
	for _, p := range c.Passes {
		if p.Kind == "mask" {
			return true
		}
	}
	return false
}

// Build creates a composer drawing with r and adds every configured pass in order.
//
// Parameters:
//   - cfg: the pipeline configuration
//   - r: the renderer
//   - scene: the main scene
//   - cam: the main camera
//   - options: extra composer options applied after the configured ones
//
// Returns:
//   - postprocessing.Composer: the composer
//   - error: an error if a pass or effect cannot be built
func Build(cfg *Config, r renderer.Renderer, scene renderer.Scene, cam camera.Camera, options ...postprocessing.ComposerBuilderOption) (postprocessing.Composer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base, err := cfg.ComposerOptions()
	if err != nil {
		return nil, err
	}
	c, err := postprocessing.NewComposer(r, append(base, options...)...)
	if err != nil {
		return nil, err
	}
	c.SetMainScene(scene)
	c.SetMainCamera(cam)

	ctx := buildContext{scene: scene, cam: cam}
	for i, pc := range cfg.Passes {
		p, err := passBuilders[pc.Kind](ctx, pc)
		if err != nil {
			c.Dispose()
			return nil, fmt.Errorf("config: pass %d (%s): %w", i, pc.Kind, err)
		}
		if pc.Enabled != nil {
			p.SetEnabled(*pc.Enabled)
		}
		if pc.RenderToScreen {
			p.SetRenderToScreen(true)
		}
		if err := c.AddPass(p); err != nil {
			c.Dispose()
			return nil, fmt.Errorf("config: pass %d (%s): %w", i, pc.Kind, err)
		}
	}
	common.Logger().Info("pipeline built", "passes", len(cfg.Passes), "size", fmt.Sprintf("%dx%d", c.Size().Width, c.Size().Height))
	return c, nil
}

// WatchShaders hot reloads every effect that names a shader file. c must have been built from cfg.
//
// Parameters:
//   - cfg: the pipeline configuration
//   - c: the composer returned by Build
//   - w: the shader watcher
//
// Returns:
//   - int: the number of watched effects
//   - error: an error if a shader file cannot be watched
func WatchShaders(cfg *Config, c postprocessing.Composer, w shader.Watcher) (int, error) {
	passes := c.Passes()
	watched := 0
	for i, pc := range cfg.Passes {
		if i >= len(passes) {
			break
		}
		ep, ok := passes[i].(postprocessing.EffectPass)
		if !ok {
			continue
		}
		effects := ep.Effects()
		for j, ec := range pc.Effects {
			if ec.Shader == "" || j >= len(effects) {
				continue
			}
			if err := effect.Watch(w, effects[j], ec.Shader); err != nil {
				return watched, fmt.Errorf("config: pass %d effect %d: %w", i, j, err)
			}
			watched++
		}
	}
	return watched, nil
}

func buildRenderPass(ctx buildContext, _ PassConfig) (pass.Pass, error) {
	return pass.NewRenderPass(ctx.scene, ctx.cam), nil
}

func buildClearPass(_ buildContext, pc PassConfig) (pass.Pass, error) {
	var options []pass.ClearPassBuilderOption
	if len(pc.ClearColor) > 0 {
		options = append(options, pass.WithOverrideClearColor(color(pc.ClearColor)))
	}
	return pass.NewClearPass(true, true, false, options...), nil
}

func buildCopyPass(buildContext, PassConfig) (pass.Pass, error) {
	return pass.NewCopyPass(), nil
}

func buildMaskPass(ctx buildContext, pc PassConfig) (pass.Pass, error) {
	scene := ctx.scene
	if r := pc.MaskRect; len(r) == 4 {
		scene = renderer.NewScene(renderer.Quad{X0: r[0], Y0: r[1], X1: r[2], Y1: r[3], Color: common.White})
	}
	return pass.NewMaskPass(scene, ctx.cam, pass.WithInverted(pc.Inverted)), nil
}

func buildClearMaskPass(buildContext, PassConfig) (pass.Pass, error) {
	return pass.NewClearMaskPass(), nil
}

func buildEffectPass(ctx buildContext, pc PassConfig) (pass.Pass, error) {
	effects := make([]effect.Effect, 0, len(pc.Effects))
	for j, ec := range pc.Effects {
		e, err := buildEffect(ec)
		if err != nil {
			return nil, fmt.Errorf("effect %d (%s): %w", j, ec.Kind, err)
		}
		effects = append(effects, e)
	}
	return postprocessing.NewEffectPass(ctx.cam, effects,
		postprocessing.WithDithering(pc.Dithering),
		postprocessing.WithEncodeOutput(pc.EncodeOutput),
		postprocessing.WithShaderValidation(pc.Validate),
	)
}

func buildEffect(ec EffectConfig) (effect.Effect, error) {
	var options []effect.EffectBuilderOption
	if ec.Blend != "" {
		fn, err := effect.ParseBlendFunction(ec.Blend)
		if err != nil {
			return nil, err
		}
		options = append(options, effect.WithBlendFunction(fn))
	}
	if ec.Opacity != nil {
		options = append(options, effect.WithOpacity(common.Saturate(*ec.Opacity)))
	}
	build, ok := effectBuilders[ec.Kind]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownEffect, ec.Kind)
	}
	return build(params(ec.Params), options)
}

// color expands an RGB or RGBA list into a color with opaque default alpha.
func color(v []float32) common.Color {
	c := common.Color{0, 0, 0, 1}
	copy(c[:], v)
	return c
}

var kernelSizes = map[string]pass.KernelSize{
	"very_small": pass.KernelSizeVerySmall,
	"small":      pass.KernelSizeSmall,
	"medium":     pass.KernelSizeMedium,
	"large":      pass.KernelSizeLarge,
	"very_large": pass.KernelSizeVeryLarge,
	"huge":       pass.KernelSizeHuge,
}

func buildBloom(p params, options []effect.EffectBuilderOption) (effect.Effect, error) {
	var blur pass.Blur
	switch kind, _ := p.str("blur", "mipmap"); kind {
	case "mipmap":
		levels, err := p.integer("levels", 8)
		if err != nil {
			return nil, err
		}
		radius, err := p.float("radius", 0.85)
		if err != nil {
			return nil, err
		}
		blur = pass.NewMipmapBlurPass(pass.WithLevels(levels), pass.WithRadius(radius))
	case "kawase":
		name, _ := p.str("kernel_size", "medium")
		size, ok := kernelSizes[name]
		if !ok {
			return nil, fmt.Errorf("%w: kernel_size %q", ErrInvalidValue, name)
		}
		blur = pass.NewKawaseBlurPass(pass.WithKernelSize(size))
	default:
		return nil, fmt.Errorf("%w: blur %q", ErrInvalidValue, kind)
	}

	e := effect.NewBloomEffect(blur, options...)
	if err := p.apply(
		floatSetter("intensity", e.SetIntensity),
		floatSetter("threshold", e.Luminance().SetThreshold),
		floatSetter("smoothing", e.Luminance().SetSmoothing),
		floatSetter("resolution_scale", e.Resolution().SetScale),
	); err != nil {
		return nil, err
	}
	return e, nil
}

func buildBrightnessContrast(p params, options []effect.EffectBuilderOption) (effect.Effect, error) {
	e := effect.NewBrightnessContrastEffect(options...)
	return e, p.apply(floatSetter("brightness", e.SetBrightness), floatSetter("contrast", e.SetContrast))
}

func buildChromaticAberration(p params, options []effect.EffectBuilderOption) (effect.Effect, error) {
	e := effect.NewChromaticAberrationEffect(options...)
	offset := e.Offset()
	if err := p.apply(
		floatSetter("offset_x", func(v float32) { offset[0] = v }),
		floatSetter("offset_y", func(v float32) { offset[1] = v }),
	); err != nil {
		return nil, err
	}
	e.SetOffset(offset)
	return e, nil
}

func buildColorDepth(p params, options []effect.EffectBuilderOption) (effect.Effect, error) {
	e := effect.NewColorDepthEffect(options...)
	bits, err := p.integer("bits", e.Bits())
	if err != nil {
		return nil, err
	}
	e.SetBits(bits)
	return e, p.apply()
}

func buildDepth(p params, options []effect.EffectBuilderOption) (effect.Effect, error) {
	e := effect.NewDepthEffect(options...)
	return e, p.apply(boolSetter("inverted", e.SetInverted))
}

func buildHueSaturation(p params, options []effect.EffectBuilderOption) (effect.Effect, error) {
	e := effect.NewHueSaturationEffect(options...)
	return e, p.apply(floatSetter("hue", e.SetHue), floatSetter("saturation", e.SetSaturation))
}

func buildNoise(p params, options []effect.EffectBuilderOption) (effect.Effect, error) {
	e := effect.NewNoiseEffect(options...)
	return e, p.apply(boolSetter("premultiply", e.SetPremultiply))
}

func buildPixelation(p params, options []effect.EffectBuilderOption) (effect.Effect, error) {
	granularity, err := p.float("granularity", 30)
	if err != nil {
		return nil, err
	}
	return effect.NewPixelationEffect(granularity, options...), p.apply()
}

func buildScanline(p params, options []effect.EffectBuilderOption) (effect.Effect, error) {
	e := effect.NewScanlineEffect(options...)
	return e, p.apply(floatSetter("density", e.SetDensity), floatSetter("scroll_speed", e.SetScrollSpeed))
}

func buildSepia(p params, options []effect.EffectBuilderOption) (effect.Effect, error) {
	e := effect.NewSepiaEffect(options...)
	return e, p.apply(floatSetter("intensity", e.SetIntensity))
}

func buildToneMapping(p params, options []effect.EffectBuilderOption) (effect.Effect, error) {
	e := effect.NewToneMappingEffect(options...)
	if name, ok := p.str("mode", ""); ok {
		mode, found := effect.ParseToneMappingMode(strings.ToLower(name))
		if !found {
			return nil, fmt.Errorf("%w: mode %q", ErrInvalidValue, name)
		}
		e.SetMode(mode)
	}
	return e, p.apply(floatSetter("exposure", e.SetExposure), floatSetter("white_point", e.SetWhitePoint))
}

func buildVignette(p params, options []effect.EffectBuilderOption) (effect.Effect, error) {
	e := effect.NewVignetteEffect(options...)
	if name, ok := p.str("technique", ""); ok {
		switch strings.ToLower(name) {
		case "default":
			e.SetTechnique(effect.VignetteTechniqueDefault)
		case "eskil":
			e.SetTechnique(effect.VignetteTechniqueEskil)
		default:
			return nil, fmt.Errorf("%w: technique %q", ErrInvalidValue, name)
		}
	}
	return e, p.apply(floatSetter("offset", e.SetOffset), floatSetter("darkness", e.SetDarkness))
}
