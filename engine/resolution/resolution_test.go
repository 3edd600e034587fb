package resolution

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sizeRecorder struct {
	sizes []common.Size
}

func (s *sizeRecorder) SetSize(width, height int) {
	s.sizes = append(s.sizes, common.Size{Width: width, Height: height})
}

func TestEffectiveSize(t *testing.T) {
	tests := []struct {
		name    string
		options []ResolutionBuilderOption
		want    common.Size
	}{
		{"scale", []ResolutionBuilderOption{WithScale(0.5)}, common.Size{Width: 400, Height: 300}},
		{"explicit", []ResolutionBuilderOption{WithPreferredSize(64, 32)}, common.Size{Width: 64, Height: 32}},
		{"width keeps aspect", []ResolutionBuilderOption{WithPreferredSize(400, AutoSize)}, common.Size{Width: 400, Height: 300}},
		{"height keeps aspect", []ResolutionBuilderOption{WithPreferredSize(AutoSize, 240)}, common.Size{Width: 320, Height: 240}},
		{"explicit wins over scale", []ResolutionBuilderOption{WithScale(0.25), WithPreferredSize(100, AutoSize)}, common.Size{Width: 100, Height: 75}},
		{"tiny scale clamps", []ResolutionBuilderOption{WithScale(0.0001)}, common.Size{Width: 1, Height: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolution(tt.name, append([]ResolutionBuilderOption{WithBaseSize(800, 600)}, tt.options...)...)
			assert.Equal(t, tt.want, r.Size())
		})
	}
}

func TestChangeNotifiesSynchronously(t *testing.T) {
	r := NewResolution("blur", WithScale(0.5))
	target := &sizeRecorder{}
	stop := r.Drive(target)

	r.SetBaseSize(800, 600)
	require.Len(t, target.sizes, 2)
	assert.Equal(t, common.Size{Width: 400, Height: 300}, target.sizes[1])

	r.SetBaseSize(800, 600)
	assert.Len(t, target.sizes, 2, "unchanged effective size does not notify")

	r.SetScale(0.25)
	assert.Equal(t, common.Size{Width: 200, Height: 150}, target.sizes[2])

	stop()
	r.SetScale(1)
	assert.Len(t, target.sizes, 3)
}

func TestNegativePreferredIsAuto(t *testing.T) {
	r := NewResolution("r", WithBaseSize(10, 10))
	r.SetPreferredWidth(-7)
	assert.Equal(t, AutoSize, r.PreferredWidth())
	r.SetPreferredSize(4, -2)
	assert.Equal(t, common.Size{Width: 4, Height: 4}, r.Size())
}

func TestBindPropagatesDownTheTree(t *testing.T) {
	root := NewResolution("root")
	mid := NewResolution("mid", WithScale(0.5))
	leaf := NewResolution("leaf", WithScale(0.5))
	require.NoError(t, mid.Bind(root))
	require.NoError(t, leaf.Bind(mid))

	var seen []common.Size
	leaf.OnChange(func(s common.Size) { seen = append(seen, s) })

	root.SetBaseSize(1600, 800)
	assert.Equal(t, common.Size{Width: 800, Height: 400}, mid.Size())
	assert.Equal(t, common.Size{Width: 400, Height: 200}, leaf.Size())
	assert.Equal(t, []common.Size{{Width: 400, Height: 200}}, seen)
	assert.Equal(t, mid, leaf.Parent())

	require.NoError(t, leaf.Bind(nil))
	root.SetBaseSize(100, 100)
	assert.Equal(t, common.Size{Width: 400, Height: 200}, leaf.Size())
	assert.Nil(t, leaf.Parent())
}

func TestBindRejectsCycles(t *testing.T) {
	a := NewResolution("a")
	b := NewResolution("b")
	require.NoError(t, b.Bind(a))
	assert.ErrorIs(t, a.Bind(b), ErrCycle)
	assert.ErrorIs(t, a.Bind(a), ErrCycle)
	assert.Nil(t, a.Parent())
}
