package material

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
)

// CopySource is the fragment shader of the copy material.
//
//go:embed assets/copy.wgsl
var CopySource string

//go:embed assets/luminance.wgsl
var luminanceSource string

//go:embed assets/kawase.wgsl
var kawaseSource string

//go:embed assets/downsampling.wgsl
var downsamplingSource string

//go:embed assets/upsampling.wgsl
var upsamplingSource string

//go:embed assets/quad.wgsl
var quadSource string

//go:embed assets/depth_readback.wgsl
var depthReadbackSource string

// PackUniforms serializes material uniforms into a buffer matching a WGSL struct layout.
// Each struct member is filled from the uniform whose key equals the member name; members
// without a uniform stay zero. Values longer than the member are truncated.
//
// Parameters:
//   - layout: the struct layout, see shader.UniformLayout
//   - uniforms: the uniforms keyed by member name
//
// Returns:
//   - []byte: the serialized buffer, layout.Size bytes long
func PackUniforms(layout shader.StructLayout, uniforms map[string]*Uniform) []byte {
	buf := make([]byte, layout.Size)
	for _, f := range layout.Fields {
		u := uniforms[f.Name]
		if u == nil {
			continue
		}
		data := u.Bytes()
		end := min(f.Offset+f.Size, uint64(len(buf)))
		copy(buf[f.Offset:end], data)
	}
	return buf
}

// UniformStruct generates a WGSL struct declaration holding every non-texture uniform of keys
// in the given order. WGSL forbids empty structs, so a struct without members gets a padding field.
//
// Parameters:
//   - name: the struct name
//   - keys: the uniform keys, in declaration order
//   - uniforms: the uniforms keyed by name
//
// Returns:
//   - string: the WGSL struct source
func UniformStruct(name string, keys []string, uniforms map[string]*Uniform) string {
	var b strings.Builder
	fmt.Fprintf(&b, "struct %s {\n", name)
	members := 0
	for _, key := range keys {
		u := uniforms[key]
		if u == nil || u.Type().IsTexture() {
			continue
		}
		fmt.Fprintf(&b, "    %s: %s,\n", key, u.Type().WGSLType())
		members++
	}
	if members == 0 {
		b.WriteString("    padding: f32,\n")
	}
	b.WriteString("}\n")
	return b.String()
}
