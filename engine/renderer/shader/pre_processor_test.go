package shader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessConditionals(t *testing.T) {
	src := `a
//@oxy:ifdef INVERTED
b
//@oxy:ifndef OTHER
c
//@oxy:endif
//@oxy:else
d
//@oxy:endif
e`
	pp := NewPreProcessor()

	out, err := pp.Process(src, map[string]string{"INVERTED": ""})
	require.NoError(t, err)
	assert.Equal(t, "a\nb\nc\ne", out)

	out, err = pp.Process(src, nil)
	require.NoError(t, err)
	assert.Equal(t, "a\nd\ne", out)
}

func TestProcessDefineAnnotation(t *testing.T) {
	src := "//@oxy:define FAST 1\n//@oxy:ifdef FAST\nfast\n//@oxy:endif"
	out, err := NewPreProcessor().Process(src, nil)
	require.NoError(t, err)
	assert.Equal(t, "fast", out)
}

func TestProcessIncludeOnce(t *testing.T) {
	src := "//@oxy:include color\n//@oxy:include color\nfn f() {}"
	out, err := NewPreProcessor().Process(src, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, countOccurrences(out, "fn luminance("))
}

func TestProcessGroupDeclaration(t *testing.T) {
	pp := NewPreProcessor()
	out, err := pp.Process("//@oxy:group 0 0 uniform frame frame", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "struct FrameUniforms")
	assert.Contains(t, out, "@group(0) @binding(0) var<uniform> frame: FrameUniforms;")
	require.Len(t, pp.Declarations(), 1)
	assert.Equal(t, 0, *pp.Declarations()[0].Group)
}

func TestProcessVaryings(t *testing.T) {
	pp := NewPreProcessor()
	_, err := pp.Process("//@oxy:varying vec2f rgbShift\n//@oxy:ifdef NOPE\n//@oxy:varying f32 hidden\n//@oxy:endif", nil)
	require.NoError(t, err)
	assert.Equal(t, []Varying{{Type: "vec2f", Name: "rgbShift"}}, pp.Varyings())
}

func TestProcessRegisteredChunk(t *testing.T) {
	RegisterChunk("test_chunk", "fn fromChunk() {}")
	out, err := NewPreProcessor().Process("//@oxy:include test_chunk", nil)
	require.NoError(t, err)
	assert.Equal(t, "fn fromChunk() {}", out)
}

func TestProcessErrors(t *testing.T) {
	tests := []string{
		"//@oxy:endif",
		"//@oxy:else",
		"//@oxy:ifdef A\n//@oxy:else\n//@oxy:else\n//@oxy:endif",
		"//@oxy:ifdef A",
		"//@oxy:include missing",
		"//@oxy:bogus",
		"//@oxy:group x 0 uniform frame frame",
		"//@oxy:group 0 0 uniform frame unknown",
		"//@oxy:varying vec2f",
	}
	for _, src := range tests {
		_, err := NewPreProcessor().Process(src, nil)
		assert.Error(t, err, src)
	}
}

func countOccurrences(s, sub string) int {
	n := 0
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			n++
		}
	}
	return n
}
