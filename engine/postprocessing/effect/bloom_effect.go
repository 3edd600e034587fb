package effect

import (
	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/postprocessing/pass"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-fx/engine/resolution"
)

type bloomEffect struct {
	*Base

	luminance  pass.LuminancePass
	blur       pass.Blur
	res        resolution.Resolution
	intensity  *material.Uniform
	mapTexture *material.Uniform
	stopDrive  func()
}

// BloomEffect extracts bright areas with a luminance pass, blurs them and adds the result on top
// of the image. The blur strategy is interchangeable; both the luminance pass and the blur follow
// the effect's Resolution.
type BloomEffect interface {
	Effect

	// Intensity retrieves the bloom intensity.
	Intensity() float32

	// SetIntensity sets the bloom intensity.
	SetIntensity(intensity float32)

	// Luminance retrieves the luminance pass, e.g. to change the threshold.
	Luminance() pass.LuminancePass

	// Blur retrieves the blur strategy.
	Blur() pass.Blur

	// Resolution retrieves the resolution of the bloom targets.
	Resolution() resolution.Resolution

	// Texture retrieves the blurred bloom texture sampled by the merged program.
	Texture() common.Texture
}

var _ BloomEffect = &bloomEffect{}

// NewBloomEffect creates a bloom effect blended with Screen. The luminance threshold is 0.9 with
// a smoothing of 0.025.
//
// Parameters:
//   - blur: the blur strategy, or nil for a MipmapBlurPass
//   - options: EffectBuilderOption functions to configure the effect
//
// Returns:
//   - BloomEffect: the effect
func NewBloomEffect(blur pass.Blur, options ...EffectBuilderOption) BloomEffect {
	if blur == nil {
		blur = pass.NewMipmapBlurPass()
	}
	e := &bloomEffect{
		luminance:  pass.NewLuminancePass(pass.WithColorOutput(true)),
		blur:       blur,
		res:        resolution.NewResolution("BloomEffect.Resolution"),
		intensity:  material.FloatUniform(1),
		mapTexture: material.TextureUniform(nil),
	}
	base := []EffectBuilderOption{
		WithUniform("map", e.mapTexture),
		WithUniform("intensity", e.intensity),
		WithBlendFunction(BlendFunctionScreen),
	}
	e.Base = NewBase("BloomEffect", bloomSource, append(base, options...)...)

	e.luminance.SetThreshold(0.9)
	e.luminance.SetSmoothing(0.025)
	// a fresh resolution has no parent, so binding cannot fail
	_ = e.luminance.Resolution().Bind(e.res)
	e.stopDrive = e.res.Drive(e.blur)
	return e
}

func (e *bloomEffect) Intensity() float32 {
	return e.intensity.Float()
}

func (e *bloomEffect) SetIntensity(intensity float32) {
	e.intensity.SetFloat(intensity)
}

func (e *bloomEffect) Luminance() pass.LuminancePass {
	return e.luminance
}

func (e *bloomEffect) Blur() pass.Blur {
	return e.blur
}

func (e *bloomEffect) Resolution() resolution.Resolution {
	return e.res
}

func (e *bloomEffect) Texture() common.Texture {
	return e.mapTexture.Texture()
}

func (e *bloomEffect) Update(r renderer.Renderer, input renderer.RenderTarget, delta float32) error {
	if err := e.luminance.Render(r, input, nil, delta, false); err != nil {
		return err
	}
	tex, err := e.blur.Blur(r, e.luminance.Target())
	if err != nil {
		return err
	}
	e.mapTexture.SetTexture(tex)
	return nil
}

func (e *bloomEffect) SetSize(width, height int) {
	e.res.SetBaseSize(width, height)
}

func (e *bloomEffect) Initialize(r renderer.Renderer, alpha bool, frameBufferType common.PixelType) error {
	if err := e.luminance.Initialize(r, alpha, frameBufferType); err != nil {
		return err
	}
	return e.blur.Initialize(r, alpha, frameBufferType)
}

func (e *bloomEffect) Dispose() {
	e.stopDrive()
	e.luminance.Dispose()
	e.blur.Dispose()
	e.mapTexture.SetTexture(nil)
}

func (e *bloomEffect) Kernels() Kernels {
	return Kernels{Image: func(ctx *material.FragmentContext, _ common.Color, uv common.Vec2, _ float32) common.Color {
		texel := ctx.SampleTexture(e.mapTexture.Texture(), uv)
		return texel.ScaleRGB(e.intensity.Float()).WithAlpha(1)
	}}
}
