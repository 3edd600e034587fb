package common

import (
	"image/color"

	"github.com/chewxy/math32"
)

// Color is a linear RGBA color with float32 channels.
type Color [4]float32

// Black is opaque black.
var Black = Color{0, 0, 0, 1}

// Transparent is fully transparent black.
var Transparent = Color{0, 0, 0, 0}

// White is opaque white.
var White = Color{1, 1, 1, 1}

// RGBA constructs a color from its four channels.
func RGBA(r, g, b, a float32) Color {
	return Color{r, g, b, a}
}

// R returns the red channel.
func (c Color) R() float32 { return c[0] }

// G returns the green channel.
func (c Color) G() float32 { return c[1] }

// B returns the blue channel.
func (c Color) B() float32 { return c[2] }

// A returns the alpha channel.
func (c Color) A() float32 { return c[3] }

// Add returns the channel-wise sum of c and o.
func (c Color) Add(o Color) Color {
	return Color{c[0] + o[0], c[1] + o[1], c[2] + o[2], c[3] + o[3]}
}

// Scale multiplies every channel by s.
func (c Color) Scale(s float32) Color {
	return Color{c[0] * s, c[1] * s, c[2] * s, c[3] * s}
}

// ScaleRGB multiplies the color channels by s and keeps alpha.
func (c Color) ScaleRGB(s float32) Color {
	return Color{c[0] * s, c[1] * s, c[2] * s, c[3]}
}

// Mix interpolates every channel between c and o by t.
func (c Color) Mix(o Color, t float32) Color {
	return Color{Mix(c[0], o[0], t), Mix(c[1], o[1], t), Mix(c[2], o[2], t), Mix(c[3], o[3], t)}
}

// Clamp restricts every channel to [0, 1].
func (c Color) Clamp() Color {
	return Color{Saturate(c[0]), Saturate(c[1]), Saturate(c[2]), Saturate(c[3])}
}

// WithAlpha returns c with its alpha channel replaced.
func (c Color) WithAlpha(a float32) Color {
	return Color{c[0], c[1], c[2], a}
}

// Luminance returns the Rec. 709 relative luminance of the color channels.
func (c Color) Luminance() float32 {
	return 0.2126*c[0] + 0.7152*c[1] + 0.0722*c[2]
}

// ApproxEqual reports whether every channel of c and o differs by at most eps.
func (c Color) ApproxEqual(o Color, eps float32) bool {
	for i := range c {
		if math32.Abs(c[i]-o[i]) > eps {
			return false
		}
	}
	return true
}

// NRGBA converts the color to an 8-bit non-premultiplied color, clamping out of range channels.
func (c Color) NRGBA() color.NRGBA {
	cl := c.Clamp()
	return color.NRGBA{
		R: uint8(math32.Round(cl[0] * 255)),
		G: uint8(math32.Round(cl[1] * 255)),
		B: uint8(math32.Round(cl[2] * 255)),
		A: uint8(math32.Round(cl[3] * 255)),
	}
}

// ColorFromRGBA8 converts 8-bit channels into a float color without any color space conversion.
func ColorFromRGBA8(r, g, b, a uint8) Color {
	return Color{float32(r) / 255, float32(g) / 255, float32(b) / 255, float32(a) / 255}
}

// LinearToSRGB gamma-encodes the color channels of c. Alpha is unchanged.
func LinearToSRGB(c Color) Color {
	return Color{linearToSRGB(c[0]), linearToSRGB(c[1]), linearToSRGB(c[2]), c[3]}
}

// SRGBToLinear gamma-decodes the color channels of c. Alpha is unchanged.
func SRGBToLinear(c Color) Color {
	return Color{sRGBToLinear(c[0]), sRGBToLinear(c[1]), sRGBToLinear(c[2]), c[3]}
}

// Quantize8 rounds every channel to the nearest 8-bit step, optionally in the sRGB domain.
// This emulates writing c into an 8-bit render target.
//
// Parameters:
//   - c: the linear color to store
//   - space: the color space of the target texture
//
// Returns:
//   - Color: the linear color that the target would read back
func Quantize8(c Color, space ColorSpace) Color {
	if space == ColorSpaceSRGB {
		c = LinearToSRGB(c)
	}
	for i := range c {
		c[i] = math32.Round(Saturate(c[i])*255) / 255
	}
	if space == ColorSpaceSRGB {
		c = SRGBToLinear(c)
	}
	return c
}

func linearToSRGB(x float32) float32 {
	if x <= 0.0031308 {
		return x * 12.92
	}
	return 1.055*math32.Pow(x, 1.0/2.4) - 0.055
}

func sRGBToLinear(x float32) float32 {
	if x <= 0.04045 {
		return x / 12.92
	}
	return math32.Pow((x+0.055)/1.055, 2.4)
}
