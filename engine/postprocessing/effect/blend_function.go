package effect

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/chewxy/math32"
)

// BlendFunction selects how an effect's color is combined with the color accumulated so far.
type BlendFunction int

const (
	BlendFunctionAdd BlendFunction = iota
	BlendFunctionAlpha
	BlendFunctionAverage
	BlendFunctionColorBurn
	BlendFunctionColorDodge
	BlendFunctionDarken
	BlendFunctionDifference
	BlendFunctionDivide
	BlendFunctionDst
	BlendFunctionExclusion
	BlendFunctionHardLight
	BlendFunctionLighten
	BlendFunctionLinearBurn
	BlendFunctionLinearDodge
	BlendFunctionMultiply
	BlendFunctionNegation
	BlendFunctionNormal
	BlendFunctionOverlay
	BlendFunctionReflect
	BlendFunctionScreen
	BlendFunctionSoftLight
	BlendFunctionSrc
	BlendFunctionSubtract
)

// blendDef is the WGSL body and CPU evaluation of a blend function. Channel blends describe the
// color term z from a = x.rgb and b = y.rgb; other blends provide a full body and evaluator.
type blendDef struct {
	name    string
	rgb     string
	channel func(a, b float32) float32
	body    string
	apply   func(x, y common.Color, opacity float32) common.Color
}

var blendDefs = [...]blendDef{
	BlendFunctionAdd: {
		name:    "Add",
		rgb:     "a + b",
		channel: func(a, b float32) float32 { return a + b },
	},
	BlendFunctionAlpha: {
		name: "Alpha",
		body: "return mix(x, y, y.a * opacity);",
		apply: func(x, y common.Color, opacity float32) common.Color {
			return x.Mix(y, y[3]*opacity)
		},
	},
	BlendFunctionAverage: {
		name:    "Average",
		rgb:     "(a + b) * 0.5",
		channel: func(a, b float32) float32 { return (a + b) * 0.5 },
	},
	BlendFunctionColorBurn: {
		name: "ColorBurn",
		rgb:  "select(select(vec3f(1.0) - min(vec3f(1.0), (vec3f(1.0) - a) / max(b, vec3f(1e-9))), vec3f(0.0), b <= vec3f(0.0)), vec3f(1.0), a >= vec3f(1.0))",
		channel: func(a, b float32) float32 {
			switch {
			case a >= 1:
				return 1
			case b <= 0:
				return 0
			}
			return 1 - min(1, (1-a)/max(b, 1e-9))
		},
	},
	BlendFunctionColorDodge: {
		name: "ColorDodge",
		rgb:  "select(select(min(vec3f(1.0), a / max(vec3f(1.0) - b, vec3f(1e-9))), vec3f(1.0), b >= vec3f(1.0)), vec3f(0.0), a <= vec3f(0.0))",
		channel: func(a, b float32) float32 {
			switch {
			case a <= 0:
				return 0
			case b >= 1:
				return 1
			}
			return min(1, a/max(1-b, 1e-9))
		},
	},
	BlendFunctionDarken: {
		name:    "Darken",
		rgb:     "min(a, b)",
		channel: func(a, b float32) float32 { return min(a, b) },
	},
	BlendFunctionDifference: {
		name:    "Difference",
		rgb:     "abs(a - b)",
		channel: func(a, b float32) float32 { return math32.Abs(a - b) },
	},
	BlendFunctionDivide: {
		name:    "Divide",
		rgb:     "a / max(b, vec3f(1e-12))",
		channel: func(a, b float32) float32 { return a / max(b, 1e-12) },
	},
	BlendFunctionDst: {
		name:  "Dst",
		body:  "return x;",
		apply: func(x, _ common.Color, _ float32) common.Color { return x },
	},
	BlendFunctionExclusion: {
		name:    "Exclusion",
		rgb:     "a + b - 2.0 * a * b",
		channel: func(a, b float32) float32 { return a + b - 2*a*b },
	},
	BlendFunctionHardLight: {
		name:    "HardLight",
		rgb:     "select(vec3f(1.0) - 2.0 * (vec3f(1.0) - a) * (vec3f(1.0) - b), 2.0 * a * b, b < vec3f(0.5))",
		channel: func(a, b float32) float32 { return overlay(b, a) },
	},
	BlendFunctionLighten: {
		name:    "Lighten",
		rgb:     "max(a, b)",
		channel: func(a, b float32) float32 { return max(a, b) },
	},
	BlendFunctionLinearBurn: {
		name:    "LinearBurn",
		rgb:     "max(a + b - vec3f(1.0), vec3f(0.0))",
		channel: func(a, b float32) float32 { return max(a+b-1, 0) },
	},
	BlendFunctionLinearDodge: {
		name:    "LinearDodge",
		rgb:     "min(a + b, vec3f(1.0))",
		channel: func(a, b float32) float32 { return min(a+b, 1) },
	},
	BlendFunctionMultiply: {
		name:    "Multiply",
		rgb:     "a * b",
		channel: func(a, b float32) float32 { return a * b },
	},
	BlendFunctionNegation: {
		name:    "Negation",
		rgb:     "vec3f(1.0) - abs(vec3f(1.0) - a - b)",
		channel: func(a, b float32) float32 { return 1 - math32.Abs(1-a-b) },
	},
	BlendFunctionNormal: {
		name: "Normal",
		body: "return mix(x, y, opacity);",
		apply: func(x, y common.Color, opacity float32) common.Color {
			return x.Mix(y, opacity)
		},
	},
	BlendFunctionOverlay: {
		name:    "Overlay",
		rgb:     "select(vec3f(1.0) - 2.0 * (vec3f(1.0) - a) * (vec3f(1.0) - b), 2.0 * a * b, a < vec3f(0.5))",
		channel: overlay,
	},
	BlendFunctionReflect: {
		name: "Reflect",
		rgb:  "select(min(a * a / max(vec3f(1.0) - b, vec3f(1e-9)), vec3f(1.0)), b, b >= vec3f(1.0))",
		channel: func(a, b float32) float32 {
			if b >= 1 {
				return b
			}
			return min(a*a/max(1-b, 1e-9), 1)
		},
	},
	BlendFunctionScreen: {
		name:    "Screen",
		rgb:     "vec3f(1.0) - (vec3f(1.0) - a) * (vec3f(1.0) - b)",
		channel: func(a, b float32) float32 { return 1 - (1-a)*(1-b) },
	},
	BlendFunctionSoftLight: {
		name:    "SoftLight",
		rgb:     "(vec3f(1.0) - 2.0 * b) * a * a + 2.0 * b * a",
		channel: func(a, b float32) float32 { return (1-2*b)*a*a + 2*b*a },
	},
	BlendFunctionSrc: {
		name:  "Src",
		body:  "return y;",
		apply: func(_, y common.Color, _ float32) common.Color { return y },
	},
	BlendFunctionSubtract: {
		name:    "Subtract",
		rgb:     "max(a - b, vec3f(0.0))",
		channel: func(a, b float32) float32 { return max(a-b, 0) },
	},
}

func overlay(a, b float32) float32 {
	if a < 0.5 {
		return 2 * a * b
	}
	return 1 - 2*(1-a)*(1-b)
}

// BlendFunctions returns every blend function in declaration order.
func BlendFunctions() []BlendFunction {
	out := make([]BlendFunction, len(blendDefs))
	for i := range blendDefs {
		out[i] = BlendFunction(i)
	}
	return out
}

// ParseBlendFunction looks up a blend function by name, ignoring case, dashes and underscores.
//
// Parameters:
//   - name: the blend function name, e.g. "screen" or "color-dodge"
//
// Returns:
//   - BlendFunction: the blend function
//   - error: an error if the name is unknown
func ParseBlendFunction(name string) (BlendFunction, error) {
	key := strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToLower(name))
	for i, d := range blendDefs {
		if strings.ToLower(d.name) == key {
			return BlendFunction(i), nil
		}
	}
	return 0, fmt.Errorf("effect: unknown blend function %q", name)
}

func (f BlendFunction) valid() bool {
	return f >= 0 && int(f) < len(blendDefs)
}

func (f BlendFunction) String() string {
	if !f.valid() {
		return fmt.Sprintf("BlendFunction(%d)", int(f))
	}
	return blendDefs[f].name
}

// FunctionName returns the WGSL name of the blend function, e.g. blendScreen.
func (f BlendFunction) FunctionName() string {
	return "blend" + f.String()
}

// WGSL returns the declaration of the blend function:
// fn blend<Name>(x: vec4f, y: vec4f, opacity: f32) -> vec4f.
//
// Returns:
//   - string: the WGSL function source
func (f BlendFunction) WGSL() string {
	if !f.valid() {
		f = BlendFunctionNormal
	}
	d := blendDefs[f]
	var b strings.Builder
	fmt.Fprintf(&b, "fn %s(x: vec4f, y: vec4f, opacity: f32) -> vec4f {\n", f.FunctionName())
	if d.body != "" {
		fmt.Fprintf(&b, "    %s\n", d.body)
	} else {
		b.WriteString("    let a = x.rgb;\n")
		b.WriteString("    let b = y.rgb;\n")
		fmt.Fprintf(&b, "    let z = %s;\n", d.rgb)
		b.WriteString("    return mix(x, vec4f(z, max(x.a, y.a)), opacity);\n")
	}
	b.WriteString("}\n")
	return b.String()
}

// Apply evaluates the blend function on the CPU.
//
// Parameters:
//   - x: the accumulated color
//   - y: the effect color
//   - opacity: the blend opacity
//
// Returns:
//   - common.Color: the blended color
func (f BlendFunction) Apply(x, y common.Color, opacity float32) common.Color {
	if !f.valid() {
		f = BlendFunctionNormal
	}
	d := blendDefs[f]
	if d.apply != nil {
		return d.apply(x, y, opacity)
	}
	z := common.Color{d.channel(x[0], y[0]), d.channel(x[1], y[1]), d.channel(x[2], y[2]), max(x[3], y[3])}
	return x.Mix(z, opacity)
}
