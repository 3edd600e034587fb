package bind_group_provider

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
	"github.com/stretchr/testify/assert"
)

func TestNewBindGroupProvider(t *testing.T) {
	entries := []shader.Binding{{Group: 1, Binding: 0, Name: "frame"}}
	p := NewBindGroupProvider("test", WithGroup(1), WithEntries(entries))

	assert.Equal(t, "test", p.Label())
	assert.Equal(t, 1, p.Group())
	assert.Equal(t, entries, p.Entries())
	assert.True(t, p.Stale(), "no bind group yet")
	assert.Nil(t, p.Buffer(0))
	assert.Nil(t, p.TextureView(1))
	assert.Nil(t, p.Sampler(2))
}

func TestSetNilResourcesDoNotMarkStale(t *testing.T) {
	p := NewBindGroupProvider("test").(*bindGroupProvider)
	p.stale = false
	p.bindGroup = nil

	p.SetTextureView(0, nil)
	p.SetSampler(1, nil)
	assert.False(t, p.stale, "unchanged resources")
	assert.True(t, p.Stale(), "stale while no bind group exists")
}

func TestReleaseClearsResources(t *testing.T) {
	p := NewBindGroupProvider("test")
	p.Release()
	assert.Nil(t, p.BindGroup())
	assert.Nil(t, p.BindGroupLayout())
	assert.True(t, p.Stale())
}
