package shader

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// vertexEntryRegex matches @vertex functions and captures the entry point name
	vertexEntryRegex = regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`)

	// fragmentEntryRegex matches @fragment functions and captures the entry point name
	fragmentEntryRegex = regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`)

	// bindGroupDeclRegex captures group, binding, optional address space, variable name, and type
	// from declarations like: @group(0) @binding(0) var<uniform> frame: FrameUniforms;
	// or handle types: @group(0) @binding(1) var inputBuffer: texture_2d<f32>;
	bindGroupDeclRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

// parseBindings extracts every @group(N) @binding(M) resource declaration from WGSL source,
// sorted by group then binding.
//
// Parameters:
//   - source: the raw WGSL source code string
//
// Returns:
//   - []Binding: the declared resources
func parseBindings(source string) []Binding {
	cleaned := stripComments(source)
	matches := bindGroupDeclRegex.FindAllStringSubmatch(cleaned, -1)
	out := make([]Binding, 0, len(matches))
	for _, match := range matches {
		group, _ := strconv.Atoi(match[1])
		binding, _ := strconv.Atoi(match[2])
		out = append(out, Binding{
			Group:        group,
			Binding:      binding,
			AddressSpace: strings.TrimSpace(match[3]),
			Name:         strings.TrimSpace(match[4]),
			Type:         strings.TrimSpace(match[5]),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Group != out[j].Group {
			return out[i].Group < out[j].Group
		}
		return out[i].Binding < out[j].Binding
	})
	return out
}

// parseBindGroupLayouts converts the resource declarations of WGSL source into
// wgpu.BindGroupLayoutDescriptor values grouped by group index. Each descriptor's entries are
// sorted by binding index. The provided visibility flag is applied to all entries.
//
// Parameters:
//   - source: the raw WGSL source code string
//   - visibility: the shader stage visibility flag to set on each entry
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: layout descriptors keyed by group index
//   - map[int]map[int]string: variable names keyed by group and binding index
func parseBindGroupLayouts(source string, visibility wgpu.ShaderStage) (map[int]wgpu.BindGroupLayoutDescriptor, map[int]map[int]string) {
	groups := make(map[int][]wgpu.BindGroupLayoutEntry)
	varNames := make(map[int]map[int]string)
	layouts := computeStructLayouts(parseStructBlocks(stripComments(source)))

	for _, b := range parseBindings(source) {
		entry := classifyResource(uint32(b.Binding), visibility, b.AddressSpace, b.Type)
		if entry.Buffer.Type != wgpu.BufferBindingTypeUndefined {
			if l, ok := layouts[b.Type]; ok && l.Size > 0 {
				entry.Buffer.MinBindingSize = l.Size
			} else if pl, ok := wgslPrimitiveLayoutMap[b.Type]; ok {
				entry.Buffer.MinBindingSize = roundUpAlign(16, pl.size)
			}
		}
		groups[b.Group] = append(groups[b.Group], entry)
		if varNames[b.Group] == nil {
			varNames[b.Group] = make(map[int]string)
		}
		varNames[b.Group][b.Binding] = b.Name
	}

	result := make(map[int]wgpu.BindGroupLayoutDescriptor, len(groups))
	for g, entries := range groups {
		result[g] = wgpu.BindGroupLayoutDescriptor{Entries: entries}
	}
	return result, varNames
}

// parseEntryPoint extracts the entry point function name for the given shader type
// from WGSL source. Returns an empty string if no matching entry point annotation is found.
//
// Parameters:
//   - source: the raw WGSL source code string
//   - shaderType: the shader type to search for (ShaderTypeVertex or ShaderTypeFragment)
//
// Returns:
//   - string: the entry point function name, or empty string if not found
func parseEntryPoint(source string, shaderType ShaderType) string {
	cleaned := stripComments(source)

	var re *regexp.Regexp
	switch shaderType {
	case ShaderTypeVertex:
		re = vertexEntryRegex
	case ShaderTypeFragment:
		re = fragmentEntryRegex
	default:
		return ""
	}

	if match := re.FindStringSubmatch(cleaned); match != nil {
		return match[1]
	}
	return ""
}

// UniformLayout computes the uniform address space layout of the named struct in source.
//
// Parameters:
//   - source: the WGSL source declaring the struct
//   - structName: the struct to lay out
//
// Returns:
//   - StructLayout: member offsets and the padded struct size
//   - error: an error if the struct is missing or uses a type without a known layout
func UniformLayout(source, structName string) (StructLayout, error) {
	structs := parseStructBlocks(stripComments(source))
	found := false
	for _, ps := range structs {
		if ps.name == structName {
			found = true
			break
		}
	}
	if !found {
		return StructLayout{}, fmt.Errorf("struct %q not declared", structName)
	}
	layout, ok := computeStructLayouts(structs)[structName]
	if !ok {
		return StructLayout{}, fmt.Errorf("struct %q has a member without a host-shareable layout", structName)
	}
	return layout, nil
}
