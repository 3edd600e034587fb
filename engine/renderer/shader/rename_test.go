package shader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const renameSource = `
struct Params { offset: vec2f, amount: f32 }
const amount: f32 = 0.5;
var<private> offset: vec2f;
fn helper(c: vec4f) -> vec4f {
    let local = 1.0;
    return c * amount * local;
}
fn mainImage(inputColor: vec4f, uv: vec2f) -> vec4f {
    var p: Params;
    p.amount = amount;
    // amount in a comment
    let amounts = 2.0;
    return helper(inputColor) + vec4f(offset, p.offset);
}
`

func TestDeclaredSymbols(t *testing.T) {
	assert.Equal(t, []string{"Params", "amount", "offset", "helper", "mainImage"}, DeclaredSymbols(renameSource))
}

func TestRenameSkipsMembersAndSubstrings(t *testing.T) {
	out := Rename(renameSource, map[string]string{
		"amount": "e0_amount",
		"offset": "e0_offset",
		"helper": "e0_helper",
	})
	assert.Contains(t, out, "struct Params { offset: vec2f, amount: f32 }")
	assert.Contains(t, out, "const e0_amount: f32 = 0.5;")
	assert.Contains(t, out, "var<private> e0_offset: vec2f;")
	assert.Contains(t, out, "p.amount = e0_amount;")
	assert.Contains(t, out, "// amount in a comment")
	assert.Contains(t, out, "let amounts = 2.0;")
	assert.Contains(t, out, "return e0_helper(inputColor) + vec4f(e0_offset, p.offset);")
}

func TestRenameMemberAccessAcrossWhitespace(t *testing.T) {
	out := Rename("let x = a . b + b;", map[string]string{"b": "e1_b"})
	assert.Equal(t, "let x = a . b + e1_b;", out)
}

func TestNamespaceKeepsBuiltins(t *testing.T) {
	src := "fn mainImage(c: vec4f, uv: vec2f) -> vec4f { return textureSample(inputBuffer, inputSampler, uv) * scale; }"
	out, renames := Namespace(src, "e2_", []string{"scale"}, map[string]bool{"mainImage": false})
	assert.Equal(t, map[string]string{"mainImage": "e2_mainImage", "scale": "e2_scale"}, renames)
	assert.Contains(t, out, "fn e2_mainImage(")
	assert.Contains(t, out, "* e2_scale;")
	assert.Contains(t, out, "inputBuffer, inputSampler")
}

func TestFindFunction(t *testing.T) {
	src := "fn mainImage(inputColor: vec4f, uv: vec2f, depth: f32) -> vec4f { return inputColor; }\n" +
		"@fragment fn fs_main(@builtin(position) pos: vec4f, @location(0) uv: vec2f) -> @location(0) vec4f { return vec4f(0.0); }"
	sig, ok := FindFunction(src, "mainImage")
	require.True(t, ok)
	assert.Equal(t, []Param{{"inputColor", "vec4f"}, {"uv", "vec2f"}, {"depth", "f32"}}, sig.Params)
	assert.Equal(t, "vec4f", sig.Result)

	sig, ok = FindFunction(src, "fs_main")
	require.True(t, ok)
	assert.Equal(t, []Param{{"pos", "vec4f"}, {"uv", "vec2f"}}, sig.Params)
	assert.Equal(t, "vec4f", sig.Result)

	assert.False(t, HasFunction(src, "mainUv"))
}
