package profiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPassStatsMean(t *testing.T) {
	assert.Zero(t, PassStats{}.Mean())
	assert.Equal(t, 2*time.Millisecond, PassStats{Count: 2, Total: 4 * time.Millisecond}.Mean())
}

func TestProfilerReports(t *testing.T) {
	now := time.Unix(0, 0)
	var reports []Report
	p := NewProfiler(
		withClock(func() time.Time { return now }),
		WithInterval(time.Second),
		WithReportCallback(func(r Report) { reports = append(reports, r) }),
	)

	p.ObservePass("RenderPass", 2*time.Millisecond)
	p.ObservePass("EffectPass", time.Millisecond)
	p.ObservePass("EffectPass", 3*time.Millisecond)

	now = now.Add(500 * time.Millisecond)
	assert.False(t, p.Tick())
	now = now.Add(500 * time.Millisecond)
	assert.True(t, p.Tick())

	require.Len(t, reports, 1)
	r := p.LastReport()
	assert.InDelta(t, 2.0, r.FPS, 1e-9)
	assert.Positive(t, r.HeapMB)
	require.Len(t, r.Passes, 2)
	assert.Equal(t, PassStats{Name: "EffectPass", Count: 2, Total: 4 * time.Millisecond, Max: 3 * time.Millisecond}, r.Passes[0])
	assert.Equal(t, "RenderPass", r.Passes[1].Name)

	now = now.Add(time.Second)
	assert.True(t, p.Tick())
	assert.Empty(t, p.LastReport().Passes, "pass timings reset every interval")
}
