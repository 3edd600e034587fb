package effect

import "strings"

// Attribute is a bit set of effect requirements that constrain how effects are merged.
type Attribute uint8

const (
	// AttributeNone marks an effect without special requirements.
	AttributeNone Attribute = 0

	// AttributeDepth marks an effect that reads the scene depth texture.
	AttributeDepth Attribute = 1 << 0

	// AttributeConvolution marks an effect that samples neighboring pixels of the input buffer.
	// At most one convolution effect can be merged into a program, and never together with an
	// effect that transforms uv coordinates.
	AttributeConvolution Attribute = 1 << 1
)

// Has reports whether every bit of other is set.
func (a Attribute) Has(other Attribute) bool {
	return a&other == other
}

func (a Attribute) String() string {
	if a == AttributeNone {
		return "none"
	}
	var parts []string
	if a.Has(AttributeDepth) {
		parts = append(parts, "depth")
	}
	if a.Has(AttributeConvolution) {
		parts = append(parts, "convolution")
	}
	return strings.Join(parts, "|")
}
