package effect

import (
	"strconv"

	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/material"
)

// ToneMappingMode selects the operator that maps HDR colors into [0, 1].
type ToneMappingMode int

const (
	// ToneMappingLinear scales by the exposure and clamps.
	ToneMappingLinear ToneMappingMode = iota

	// ToneMappingReinhard applies c / (1 + c).
	ToneMappingReinhard

	// ToneMappingUncharted2 applies the Uncharted 2 filmic curve normalized by a white point.
	ToneMappingUncharted2

	// ToneMappingACESFilmic applies Narkowicz's ACES fit.
	ToneMappingACESFilmic
)

const defineToneMappingMode = "TONE_MAPPING_MODE"

var toneMappingModeNames = map[string]ToneMappingMode{
	"linear":     ToneMappingLinear,
	"reinhard":   ToneMappingReinhard,
	"uncharted2": ToneMappingUncharted2,
	"aces":       ToneMappingACESFilmic,
}

// ParseToneMappingMode looks up a mode by its lower case name: linear, reinhard, uncharted2 or aces.
func ParseToneMappingMode(name string) (ToneMappingMode, bool) {
	m, ok := toneMappingModeNames[name]
	return m, ok
}

type toneMappingEffect struct {
	*Base

	exposure   *material.Uniform
	whitePoint *material.Uniform
}

// ToneMappingEffect maps HDR colors to displayable colors.
type ToneMappingEffect interface {
	Effect

	// Mode retrieves the operator.
	Mode() ToneMappingMode

	// SetMode selects the operator.
	SetMode(mode ToneMappingMode)

	// Exposure retrieves the exposure multiplier.
	Exposure() float32

	// SetExposure sets the exposure multiplier.
	SetExposure(exposure float32)

	// WhitePoint retrieves the Uncharted 2 white point.
	WhitePoint() float32

	// SetWhitePoint sets the Uncharted 2 white point.
	SetWhitePoint(whitePoint float32)
}

var _ ToneMappingEffect = &toneMappingEffect{}

// NewToneMappingEffect creates an ACES filmic tone mapper with exposure 1 and white point 16.
//
// Parameters:
//   - options: EffectBuilderOption functions to configure the effect
//
// Returns:
//   - ToneMappingEffect: the effect
func NewToneMappingEffect(options ...EffectBuilderOption) ToneMappingEffect {
	e := &toneMappingEffect{
		exposure:   material.FloatUniform(1),
		whitePoint: material.FloatUniform(16),
	}
	base := []EffectBuilderOption{
		WithUniform("exposure", e.exposure),
		WithUniform("whitePoint", e.whitePoint),
		WithDefine(defineToneMappingMode, strconv.Itoa(int(ToneMappingACESFilmic))),
	}
	e.Base = NewBase("ToneMappingEffect", toneMappingSource, append(base, options...)...)
	return e
}

func (e *toneMappingEffect) Mode() ToneMappingMode {
	v, _ := e.Define(defineToneMappingMode)
	n, err := strconv.Atoi(v)
	if err != nil {
		return ToneMappingLinear
	}
	return ToneMappingMode(n)
}

func (e *toneMappingEffect) SetMode(mode ToneMappingMode) {
	e.SetDefine(defineToneMappingMode, strconv.Itoa(int(mode)))
}

func (e *toneMappingEffect) Exposure() float32 {
	return e.exposure.Float()
}

func (e *toneMappingEffect) SetExposure(exposure float32) {
	e.exposure.SetFloat(exposure)
}

func (e *toneMappingEffect) WhitePoint() float32 {
	return e.whitePoint.Float()
}

func (e *toneMappingEffect) SetWhitePoint(whitePoint float32) {
	e.whitePoint.SetFloat(whitePoint)
}

func (e *toneMappingEffect) Kernels() Kernels {
	mode := e.Mode()
	return Kernels{Image: func(_ *material.FragmentContext, in common.Color, _ common.Vec2, _ float32) common.Color {
		exposure := e.exposure.Float()
		out := in
		for i := 0; i < 3; i++ {
			out[i] = toneMap(mode, in[i]*exposure, e.whitePoint.Float())
		}
		return out
	}}
}

func toneMap(mode ToneMappingMode, c, whitePoint float32) float32 {
	switch mode {
	case ToneMappingReinhard:
		return common.Saturate(c / (1 + c))
	case ToneMappingUncharted2:
		return common.Saturate(uncharted2(c) / uncharted2(whitePoint))
	case ToneMappingACESFilmic:
		return common.Saturate((c * (2.51*c + 0.03)) / (c*(2.43*c+0.59) + 0.14))
	default:
		return common.Saturate(c)
	}
}

func uncharted2(x float32) float32 {
	const a, b, c, d, e, f = 0.15, 0.50, 0.10, 0.20, 0.02, 0.30
	return max(((x*(a*x+c*b)+d*e)/(x*(a*x+b)+d*f))-e/f, 0)
}
