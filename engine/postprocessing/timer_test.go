package postprocessing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func TestTimer(t *testing.T) {
	clock := &fakeClock{now: time.Unix(100, 0)}
	tm := newTimer(clock.Now)

	tm.Update()
	assert.Zero(t, tm.Delta(), "the first update has no previous frame")

	clock.advance(500 * time.Millisecond)
	tm.Update()
	assert.InDelta(t, 0.5, tm.Delta(), 1e-6)
	assert.InDelta(t, 0.5, tm.Elapsed(), 1e-6)

	tm.SetTimeScale(2)
	clock.advance(250 * time.Millisecond)
	tm.Update()
	assert.InDelta(t, 0.5, tm.Delta(), 1e-6)
	assert.InDelta(t, 1.0, tm.Elapsed(), 1e-6)

	tm.SetTimeScale(-1)
	assert.Zero(t, tm.TimeScale())

	tm.Reset()
	assert.Zero(t, tm.Elapsed())
	clock.advance(time.Second)
	tm.Update()
	assert.Zero(t, tm.Delta())
}
