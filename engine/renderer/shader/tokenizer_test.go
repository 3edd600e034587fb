package shader

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizeRoundTrip(t *testing.T) {
	src := "@group(0) @binding(1) var t: texture_2d<f32>;\n/* a /* nested */ block */ fn f() -> f32 { return 1.5e3f + .5 + 0x1Fu; } // tail"
	var b strings.Builder
	for _, tok := range Tokenize(src) {
		b.WriteString(tok.Text)
	}
	assert.Equal(t, src, b.String())
}

func TestTokenizeKinds(t *testing.T) {
	type kt struct {
		kind TokenKind
		text string
	}
	tests := []struct {
		src  string
		want []kt
	}{
		{"a.b", []kt{{TokenIdent, "a"}, {TokenPunct, "."}, {TokenIdent, "b"}}},
		{"@vertex fn", []kt{{TokenAttribute, "@vertex"}, {TokenSpace, " "}, {TokenIdent, "fn"}}},
		{"1.0f", []kt{{TokenNumber, "1.0f"}}},
		{"/* x /* y */ z */w", []kt{{TokenComment, "/* x /* y */ z */"}, {TokenIdent, "w"}}},
		{"x // c\ny", []kt{{TokenIdent, "x"}, {TokenSpace, " "}, {TokenComment, "// c"}, {TokenSpace, "\n"}, {TokenIdent, "y"}}},
	}
	for _, test := range tests {
		var got []kt
		for _, tok := range Tokenize(test.src) {
			got = append(got, kt{tok.Kind, tok.Text})
		}
		assert.Equal(t, test.want, got, test.src)
	}
}
