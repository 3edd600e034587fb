package effect

import (
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlendFunctionApply(t *testing.T) {
	x := common.Color{0.2, 0.4, 0.6, 1}
	y := common.Color{0.5, 0.5, 0.5, 0.5}
	cases := []struct {
		fn      BlendFunction
		opacity float32
		want    common.Color
	}{
		{BlendFunctionAdd, 1, common.Color{0.7, 0.9, 1.1, 1}},
		{BlendFunctionMultiply, 1, common.Color{0.1, 0.2, 0.3, 1}},
		{BlendFunctionScreen, 1, common.Color{0.6, 0.7, 0.8, 1}},
		{BlendFunctionDarken, 1, common.Color{0.2, 0.4, 0.5, 1}},
		{BlendFunctionLighten, 1, common.Color{0.5, 0.5, 0.6, 1}},
		{BlendFunctionDifference, 1, common.Color{0.3, 0.1, 0.1, 1}},
		{BlendFunctionSubtract, 1, common.Color{0, 0, 0.1, 1}},
		{BlendFunctionAverage, 1, common.Color{0.35, 0.45, 0.55, 1}},
		{BlendFunctionNormal, 0.5, common.Color{0.35, 0.45, 0.55, 0.75}},
		{BlendFunctionAlpha, 1, common.Color{0.35, 0.45, 0.55, 0.75}},
		{BlendFunctionSrc, 0.3, y},
		{BlendFunctionDst, 1, x},
		{BlendFunctionAdd, 0, x},
	}
	for _, tc := range cases {
		t.Run(tc.fn.String(), func(t *testing.T) {
			got := tc.fn.Apply(x, y, tc.opacity)
			assert.True(t, got.ApproxEqual(tc.want, 1e-5), "got %v, want %v", got, tc.want)
		})
	}
}

func TestBlendFunctionEdgeCases(t *testing.T) {
	black, white := common.Color{0, 0, 0, 1}, common.Color{1, 1, 1, 1}
	assert.Equal(t, white, BlendFunctionColorBurn.Apply(white, black, 1))
	assert.Equal(t, black, BlendFunctionColorBurn.Apply(common.Color{0.5, 0.5, 0.5, 1}, black, 1))
	assert.Equal(t, black, BlendFunctionColorDodge.Apply(black, white, 1))
	assert.Equal(t, white, BlendFunctionColorDodge.Apply(common.Color{0.5, 0.5, 0.5, 1}, white, 1))
	assert.Equal(t, white, BlendFunctionReflect.Apply(black, white, 1))

	gray := common.Color{0.5, 0.5, 0.5, 1}
	got := BlendFunctionDivide.Apply(gray, black, 1)
	assert.Greater(t, got[0], float32(1e6))
}

func TestBlendFunctionWGSL(t *testing.T) {
	seen := make(map[string]bool)
	for _, fn := range BlendFunctions() {
		src := fn.WGSL()
		assert.True(t, strings.HasPrefix(src, "fn "+fn.FunctionName()+"(x: vec4f, y: vec4f, opacity: f32) -> vec4f {"), src)
		assert.Contains(t, src, "return")
		assert.False(t, seen[fn.FunctionName()], "duplicate %s", fn)
		seen[fn.FunctionName()] = true
	}
	assert.Len(t, seen, 23)
	assert.Contains(t, BlendFunctionScreen.WGSL(), "max(x.a, y.a)")
	assert.Contains(t, BlendFunctionDst.WGSL(), "return x;")
}

func TestParseBlendFunction(t *testing.T) {
	for _, fn := range BlendFunctions() {
		got, err := ParseBlendFunction(strings.ToUpper(fn.String()))
		require.NoError(t, err)
		assert.Equal(t, fn, got)
	}
	got, err := ParseBlendFunction("color-dodge")
	require.NoError(t, err)
	assert.Equal(t, BlendFunctionColorDodge, got)

	_, err = ParseBlendFunction("glow")
	assert.Error(t, err)
	assert.Equal(t, "BlendFunction(99)", BlendFunction(99).String())
}
