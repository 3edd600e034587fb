// annotations.go defines the annotation types, argument constants, and parser for the
// Oxy WGSL shader pre-processor. Annotations are single-line WGSL comments prefixed
// with @oxy: that drive chunk injection, conditional compilation, bind group declaration
// and varying registration. The parsed results are stored as Annotation values and consumed
// by the PreProcessor and the effect compiler.
package shader

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// annotationPrefix is the marker that identifies an Oxy annotation within a WGSL comment line.
// Every annotation must appear on a line beginning with "//" followed by this prefix.
const annotationPrefix = "@oxy:"

// AnnotationType identifies the kind of annotation parsed from a WGSL comment line.
type AnnotationType string

const (
	// annotationTypeInclude injects the WGSL source of a registered chunk at the annotation site.
	//
	// Syntax: //@oxy:include <chunk>
	//
	// Example: //@oxy:include color
	annotationTypeInclude AnnotationType = "include"

	// annotationTypeIfdef keeps the following lines only when the named define is set.
	//
	// Syntax: //@oxy:ifdef <NAME>
	annotationTypeIfdef AnnotationType = "ifdef"

	// annotationTypeIfndef keeps the following lines only when the named define is not set.
	//
	// Syntax: //@oxy:ifndef <NAME>
	annotationTypeIfndef AnnotationType = "ifndef"

	// annotationTypeElse flips the innermost conditional block.
	//
	// Syntax: //@oxy:else
	annotationTypeElse AnnotationType = "else"

	// annotationTypeEndif closes the innermost conditional block.
	//
	// Syntax: //@oxy:endif
	annotationTypeEndif AnnotationType = "endif"

	// annotationTypeDefine sets a define for the remainder of the source. The value is optional.
	//
	// Syntax: //@oxy:define <NAME> [value]
	annotationTypeDefine AnnotationType = "define"

	// AnnotationTypeBindingGroup generates a WGSL @group/@binding variable declaration for a
	// registered struct type and appends an Annotation to the PreProcessor's declarations list.
	//
	// Syntax: //@oxy:group <group> <binding> <address_space> <var_name> <struct_type>
	//
	// Example: //@oxy:group 0 0 uniform frame frame
	AnnotationTypeBindingGroup AnnotationType = "group"

	// AnnotationTypeVarying declares a value written by an effect's vertex support hook and read
	// by its fragment hooks. It produces no WGSL output; the effect compiler generates the
	// vertex output field and the private variables in both stages.
	//
	// Syntax: //@oxy:varying <wgsl_type> <name>
	//
	// Example: //@oxy:varying vec2f rgbShift
	AnnotationTypeVarying AnnotationType = "varying"
)

// Annotation represents a single parsed @oxy: annotation from a WGSL shader source line.
type Annotation struct {
	// Type identifies which annotation was parsed.
	Type AnnotationType

	// Args holds the annotation's arguments. The contents depend on Type:
	//   - include:        [0] = chunk name
	//   - ifdef, ifndef:  [0] = define name
	//   - define:         [0] = define name, [1] = value (optional)
	//   - group:          [0] = address space, [1] = var name, [2] = struct type key
	//   - varying:        [0] = WGSL type, [1] = name
	Args []AnnotationArg

	// Line is the 1-based line number in the original WGSL source where this annotation
	// was found. Used for error reporting.
	Line int

	// Group is the @group index for group annotations. Nil otherwise.
	Group *int

	// Binding is the @binding index for group annotations. Nil otherwise.
	Binding *int
}

// AnnotationArg is a typed string constant used as an argument in annotations.
type AnnotationArg string

// ── Chunk arguments ────────────────────────────────────────────────────────────
// These identify WGSL chunks that can be injected with @oxy:include.

const (
	// AnnotationArgCommon identifies the shared math helpers chunk.
	AnnotationArgCommon AnnotationArg = "common"

	// AnnotationArgColor identifies the color space conversion and luminance chunk.
	AnnotationArgColor AnnotationArg = "color"

	// AnnotationArgDepth identifies the depth read and linearization chunk.
	AnnotationArgDepth AnnotationArg = "depth"

	// AnnotationArgFullscreen identifies the full-screen triangle vertex output chunk.
	AnnotationArgFullscreen AnnotationArg = "fullscreen"
)

// ── Struct type arguments ──────────────────────────────────────────────────────
// These identify registered WGSL struct types usable in @oxy:group annotations.

const (
	// AnnotationArgFrame identifies the per-draw FrameUniforms struct.
	AnnotationArgFrame AnnotationArg = "frame"
)

// ── Address space arguments ────────────────────────────────────────────────────

const (
	// annotationArgStorageTypeUniform maps to var<uniform>.
	annotationArgStorageTypeUniform AnnotationArg = "uniform"

	// annotationArgStorageTypeRead maps to var<storage, read>.
	annotationArgStorageTypeRead AnnotationArg = "storage_read"
)

// validStructTypes lists all AnnotationArg values that are accepted as struct type
// arguments in @oxy:group annotations.
var validStructTypes = []AnnotationArg{
	AnnotationArgFrame,
}

// validAddressSpaces lists all AnnotationArg values that are accepted as address
// space arguments in @oxy:group annotations.
var validAddressSpaces = []AnnotationArg{
	annotationArgStorageTypeUniform,
	annotationArgStorageTypeRead,
}

// identifierRegex matches a WGSL identifier.
var identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// parseAnnotation attempts to parse a single line of WGSL source as an @oxy: annotation.
// Returns nil with no error for lines that do not contain the annotation prefix. Returns
// a populated Annotation for valid annotations, or an error describing the problem for
// malformed annotations with correct prefix but invalid syntax or unknown arguments.
//
// Parameters:
//   - line: the raw WGSL source line to parse
//   - lineNum: the 1-based line number for error reporting
//
// Returns:
//   - *Annotation: the parsed annotation, or nil if the line is not an annotation
//   - error: a descriptive error if the annotation is malformed
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "//") {
		return nil, nil
	}
	_, after, ok := strings.Cut(trimmed, annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @oxy annotation", lineNum)
	}

	switch AnnotationType(args[0]) {
	case annotationTypeInclude:
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy include annotation requires exactly one argument", lineNum)
		}
		return &Annotation{Type: annotationTypeInclude, Args: []AnnotationArg{AnnotationArg(args[1])}, Line: lineNum}, nil
	case annotationTypeIfdef, annotationTypeIfndef:
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy %s annotation requires exactly one define name", lineNum, args[0])
		}
		if !identifierRegex.MatchString(args[1]) {
			return nil, fmt.Errorf("line %d: invalid define name %q in @oxy %s annotation", lineNum, args[1], args[0])
		}
		return &Annotation{Type: AnnotationType(args[0]), Args: []AnnotationArg{AnnotationArg(args[1])}, Line: lineNum}, nil
	case annotationTypeElse, annotationTypeEndif:
		if len(args) != 1 {
			return nil, fmt.Errorf("line %d: @oxy %s annotation takes no arguments", lineNum, args[0])
		}
		return &Annotation{Type: AnnotationType(args[0]), Line: lineNum}, nil
	case annotationTypeDefine:
		if len(args) < 2 {
			return nil, fmt.Errorf("line %d: @oxy define annotation requires a define name", lineNum)
		}
		if !identifierRegex.MatchString(args[1]) {
			return nil, fmt.Errorf("line %d: invalid define name %q in @oxy define annotation", lineNum, args[1])
		}
		defArgs := []AnnotationArg{AnnotationArg(args[1])}
		if len(args) > 2 {
			defArgs = append(defArgs, AnnotationArg(strings.Join(args[2:], " ")))
		}
		return &Annotation{Type: annotationTypeDefine, Args: defArgs, Line: lineNum}, nil
	case AnnotationTypeBindingGroup:
		if len(args) != 6 {
			return nil, fmt.Errorf("line %d: @oxy group annotation requires exactly five arguments (group number, binding number, address space, var name, struct type)", lineNum)
		}
		groupInt, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid group number %q in @oxy group annotation: %v", lineNum, args[1], err)
		}
		bindingInt, err := strconv.Atoi(args[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid binding number %q in @oxy group annotation: %v", lineNum, args[2], err)
		}
		if !slices.Contains(validAddressSpaces, AnnotationArg(args[3])) {
			return nil, fmt.Errorf("line %d: unknown address space %q in @oxy group annotation", lineNum, args[3])
		}
		if !identifierRegex.MatchString(args[4]) {
			return nil, fmt.Errorf("line %d: invalid variable name %q in @oxy group annotation", lineNum, args[4])
		}
		if !slices.Contains(validStructTypes, AnnotationArg(args[5])) {
			return nil, fmt.Errorf("line %d: unknown struct type %q in @oxy group annotation", lineNum, args[5])
		}
		return &Annotation{
			Type:    AnnotationTypeBindingGroup,
			Args:    []AnnotationArg{AnnotationArg(args[3]), AnnotationArg(args[4]), AnnotationArg(args[5])},
			Line:    lineNum,
			Group:   &groupInt,
			Binding: &bindingInt,
		}, nil
	case AnnotationTypeVarying:
		if len(args) != 3 {
			return nil, fmt.Errorf("line %d: @oxy varying annotation requires a type and a name", lineNum)
		}
		if !identifierRegex.MatchString(args[2]) {
			return nil, fmt.Errorf("line %d: invalid varying name %q", lineNum, args[2])
		}
		return &Annotation{Type: AnnotationTypeVarying, Args: []AnnotationArg{AnnotationArg(args[1]), AnnotationArg(args[2])}, Line: lineNum}, nil
	default:
		return nil, fmt.Errorf("line %d: unknown @oxy annotation type %q", lineNum, args[0])
	}
}
