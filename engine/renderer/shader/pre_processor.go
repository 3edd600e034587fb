// pre_processor.go implements the Oxy WGSL shader pre-processor. It scans shader
// source code for @oxy: annotations, injects registered chunks, evaluates conditional
// blocks against a set of defines, replaces group annotations with generated WGSL
// declarations and collects the declarations and varyings lists that the renderer and
// the effect compiler use to wire resources without manual string lookups.
//
// The pre-processor maintains two registries:
//   - chunkRegistry: maps AnnotationArg keys to embedded WGSL chunk sources and, for
//     struct chunks, their resolved type names. Used by @oxy:include (to inject the source)
//     and @oxy:group (to resolve the WGSL type name in the generated declaration).
//   - addressSpaceRegistry: maps address space argument keys to WGSL var<> syntax strings.
package shader

import (
	"fmt"
	"maps"
	"strings"
	"sync"
)

// registryEntry pairs a WGSL chunk source string (embedded from a .wgsl asset file)
// with the resolved WGSL type name used in generated @group/@binding declarations.
type registryEntry struct {
	// Source is the raw WGSL text injected by @oxy:include.
	Source string

	// Type is the WGSL type name emitted in @oxy:group declarations. Empty for function chunks.
	Type string
}

// Varying is a value passed from an effect's vertex support hook to its fragment hooks.
type Varying struct {
	// Type is the WGSL type of the varying, e.g. "vec2f".
	Type string

	// Name is the identifier the effect uses for the varying.
	Name string
}

var (
	globalChunksMu sync.RWMutex
	globalChunks   = map[AnnotationArg]registryEntry{}
)

// RegisterChunk makes a WGSL chunk available to @oxy:include in every pre-processor created afterwards.
// Registering an existing name replaces it.
//
// Parameters:
//   - name: the chunk name used in the include annotation
//   - source: the WGSL source of the chunk
func RegisterChunk(name, source string) {
	globalChunksMu.Lock()
	globalChunks[AnnotationArg(name)] = registryEntry{Source: source}
	globalChunksMu.Unlock()
}

// conditional tracks one open ifdef/ifndef block.
type conditional struct {
	line     int
	active   bool
	parent   bool
	seenElse bool
}

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	// chunkRegistry maps chunk argument keys to their embedded WGSL source and type name.
	chunkRegistry map[AnnotationArg]registryEntry

	// addressSpaceRegistry maps address space argument keys to WGSL var<> syntax strings.
	addressSpaceRegistry map[AnnotationArg]string

	// declarations accumulates AnnotationTypeBindingGroup annotations during a Process call.
	declarations []Annotation

	// varyings accumulates AnnotationTypeVarying annotations during a Process call.
	varyings []Varying
}

// PreProcessor processes raw WGSL shader source code containing @oxy: annotations,
// replacing them with generated declarations or injected chunk sources while collecting
// a declarations list for downstream resource wiring.
type PreProcessor interface {
	// Process takes raw WGSL shader source code and pre-processes it by replacing
	// @oxy: annotations with their corresponding WGSL output. @oxy:include annotations
	// are replaced with chunk source text, each chunk at most once per call. Lines inside
	// a failed @oxy:ifdef or @oxy:ifndef block are dropped. @oxy:group annotations are replaced
	// with generated @group/@binding variable declarations. @oxy:varying annotations produce
	// no WGSL output but are recorded in the varyings list.
	//
	// The declarations and varyings lists are reset at the start of each call.
	//
	// Parameters:
	//   - source: the raw WGSL shader source code containing annotations to be processed
	//   - defines: the defines visible to conditional blocks; may be nil
	//
	// Returns:
	//   - string: the processed WGSL shader source code with annotations replaced
	//   - error: an error if any annotation is malformed, unbalanced or references an unknown chunk
	Process(source string, defines map[string]string) (string, error)

	// Declarations returns the AnnotationTypeBindingGroup annotations collected during the
	// most recent call to Process, in source-order.
	//
	// Returns:
	//   - []Annotation: the declarations collected during the last Process call
	Declarations() []Annotation

	// Varyings returns the varyings declared in active blocks during the most recent call to Process.
	//
	// Returns:
	//   - []Varying: the varyings in source-order
	Varyings() []Varying
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a new PreProcessor with the built-in chunks, every chunk added
// through RegisterChunk and the address space mappings pre-populated.
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor() PreProcessor {
	p := &preProcessor{
		chunkRegistry: map[AnnotationArg]registryEntry{
			AnnotationArgCommon:     {Source: commonChunkSource},
			AnnotationArgColor:      {Source: colorChunkSource},
			AnnotationArgDepth:      {Source: depthChunkSource},
			AnnotationArgFullscreen: {Source: fullscreenChunkSource},
			AnnotationArgFrame:      {Source: FrameUniformsSource, Type: "FrameUniforms"},
		},
		addressSpaceRegistry: map[AnnotationArg]string{
			annotationArgStorageTypeUniform: "var<uniform>",
			annotationArgStorageTypeRead:    "var<storage, read>",
		},
	}
	globalChunksMu.RLock()
	maps.Copy(p.chunkRegistry, globalChunks)
	globalChunksMu.RUnlock()
	return p
}

func (p *preProcessor) Process(source string, defines map[string]string) (string, error) {
	p.declarations = p.declarations[:0]
	p.varyings = p.varyings[:0]

	local := make(map[string]string, len(defines))
	maps.Copy(local, defines)
	included := make(map[AnnotationArg]bool)

	out, err := p.process(source, local, included, 0)
	if err != nil {
		return "", err
	}
	return strings.Join(out, "\n"), nil
}

// process expands one source body. Chunks are expanded recursively with the same defines.
func (p *preProcessor) process(source string, defines map[string]string, included map[AnnotationArg]bool, depth int) ([]string, error) {
	if depth > 8 {
		return nil, fmt.Errorf("include nesting too deep")
	}
	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	var stack []conditional

	active := func() bool {
		if len(stack) == 0 {
			return true
		}
		return stack[len(stack)-1].active
	}

	// iterate through each line of the source, evaluating conditionals first so that
	// annotations inside inactive blocks are never expanded.
	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return nil, err
		}
		if a == nil {
			if active() {
				out = append(out, line)
			}
			continue
		}

		switch a.Type {
		case annotationTypeIfdef, annotationTypeIfndef:
			_, set := defines[string(a.Args[0])]
			cond := set
			if a.Type == annotationTypeIfndef {
				cond = !set
			}
			parent := active()
			stack = append(stack, conditional{line: i + 1, active: parent && cond, parent: parent})
			continue
		case annotationTypeElse:
			if len(stack) == 0 {
				return nil, fmt.Errorf("line %d: @oxy:else without matching @oxy:ifdef", i+1)
			}
			top := &stack[len(stack)-1]
			if top.seenElse {
				return nil, fmt.Errorf("line %d: duplicate @oxy:else for block opened on line %d", i+1, top.line)
			}
			top.seenElse = true
			top.active = top.parent && !top.active
			continue
		case annotationTypeEndif:
			if len(stack) == 0 {
				return nil, fmt.Errorf("line %d: @oxy:endif without matching @oxy:ifdef", i+1)
			}
			stack = stack[:len(stack)-1]
			continue
		}

		if !active() {
			continue
		}

		// handle annotation based on its type and arguments
		switch a.Type {
		case annotationTypeInclude:
			entry, ok := p.chunkRegistry[a.Args[0]]
			if !ok {
				return nil, fmt.Errorf("line %d: unknown @oxy:include argument %q", i+1, a.Args[0])
			}
			if included[a.Args[0]] {
				continue
			}
			included[a.Args[0]] = true
			expanded, err := p.process(entry.Source, defines, included, depth+1)
			if err != nil {
				return nil, fmt.Errorf("line %d: chunk %q: %w", i+1, a.Args[0], err)
			}
			out = append(out, expanded...)
		case annotationTypeDefine:
			value := ""
			if len(a.Args) > 1 {
				value = string(a.Args[1])
			}
			defines[string(a.Args[0])] = value
		case AnnotationTypeBindingGroup:
			addrSpace := p.addressSpaceRegistry[a.Args[0]]
			varName := string(a.Args[1])
			entry := p.chunkRegistry[a.Args[2]]
			if !included[a.Args[2]] {
				included[a.Args[2]] = true
				out = append(out, entry.Source)
			}
			out = append(out, fmt.Sprintf("@group(%d) @binding(%d) %s %s: %s;", *a.Group, *a.Binding, addrSpace, varName, entry.Type))
			p.declarations = append(p.declarations, *a)
		case AnnotationTypeVarying:
			p.varyings = append(p.varyings, Varying{Type: string(a.Args[0]), Name: string(a.Args[1])})
		default:
			return nil, fmt.Errorf("line %d: unknown annotation type %q", i+1, a.Type)
		}
	}

	if len(stack) > 0 {
		return nil, fmt.Errorf("line %d: unterminated @oxy:%s block", stack[len(stack)-1].line, "ifdef")
	}
	return out, nil
}

func (p *preProcessor) Declarations() []Annotation {
	return p.declarations
}

func (p *preProcessor) Varyings() []Varying {
	return p.varyings
}
