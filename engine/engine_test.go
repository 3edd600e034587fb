package engine

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-fx/engine/profiler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartRequiresCallback(t *testing.T) {
	e := NewEngine()
	assert.ErrorIs(t, e.Start(), ErrNoFrameCallback)
	assert.False(t, e.Running())
}

func TestRunStopsAfterMaxFrames(t *testing.T) {
	var deltas []float32
	e := NewEngine(WithMaxFrames(5), WithFrameCallback(func(dt float32) error {
		deltas = append(deltas, dt)
		return nil
	}))

	require.NoError(t, e.Run())
	assert.Equal(t, uint64(5), e.Frames())
	require.Len(t, deltas, 5)
	assert.Zero(t, deltas[0], "the first frame has no previous frame")
	assert.False(t, e.Running())
}

func TestStartStopIdempotentAndRestartable(t *testing.T) {
	var frames atomic.Int64
	e := NewEngine(WithFrameLimit(1000), WithFrameCallback(func(float32) error {
		frames.Add(1)
		return nil
	}))

	require.NoError(t, e.Start())
	require.NoError(t, e.Start())
	assert.True(t, e.Running())
	require.Eventually(t, func() bool { return frames.Load() > 2 }, time.Second, time.Millisecond)

	e.Stop()
	e.Stop()
	assert.False(t, e.Running())
	select {
	case <-e.Done():
	default:
		t.Fatal("done is not closed after Stop")
	}

	stopped := frames.Load()
	require.NoError(t, e.Start())
	require.Eventually(t, func() bool { return frames.Load() > stopped }, time.Second, time.Millisecond)
	e.Stop()
}

func TestStopFromFrameCallback(t *testing.T) {
	var e Engine
	e = NewEngine(WithFrameCallback(func(float32) error {
		if e.Frames() == 2 {
			e.Stop()
		}
		return nil
	}))

	require.NoError(t, e.Start())
	select {
	case <-e.Done():
	case <-time.After(time.Second):
		t.Fatal("loop did not exit after Stop inside the frame callback")
	}
	assert.False(t, e.Running())
	assert.Equal(t, uint64(3), e.Frames())
	assert.NoError(t, e.Err())
	e.Stop()
}

func TestClearingFrameCallbackEndsRun(t *testing.T) {
	var e Engine
	e = NewEngine(WithFrameCallback(func(float32) error {
		if e.Frames() == 2 {
			e.SetFrameCallback(nil)
		}
		return nil
	}))

	require.NoError(t, e.Run())
	assert.Equal(t, uint64(3), e.Frames())
	assert.False(t, e.Running())
}

func TestDefaultFrameLimit(t *testing.T) {
	capped := NewEngine(WithFrameCallback(func(float32) error { return nil })).(*engine)
	require.NoError(t, capped.Start())
	capped.Stop()
	assert.Equal(t, frameDuration(DefaultFrameLimit), capped.frameLimit)

	uncapped := NewEngine(WithFrameLimit(0), WithFrameCallback(func(float32) error { return nil })).(*engine)
	require.NoError(t, uncapped.Start())
	uncapped.Stop()
	assert.Zero(t, uncapped.frameLimit)

	bounded := NewEngine(WithMaxFrames(2), WithFrameCallback(func(float32) error { return nil })).(*engine)
	require.NoError(t, bounded.Run())
	assert.Zero(t, bounded.frameLimit)
}

func TestGoroutineID(t *testing.T) {
	id := goroutineID()
	assert.NotZero(t, id)
	assert.Equal(t, id, goroutineID())

	other := make(chan uint64)
	go func() { other <- goroutineID() }()
	assert.NotEqual(t, id, <-other)
}

func TestFrameErrorStopsLoop(t *testing.T) {
	boom := errors.New("boom")
	e := NewEngine(WithFrameCallback(func(float32) error { return boom }))

	err := e.Run()
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, e.Err(), boom)
	assert.Zero(t, e.Frames())
}

func TestFramePanicIsRecovered(t *testing.T) {
	e := NewEngine(WithFrameCallback(func(float32) error { panic("bad frame") }))
	err := e.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad frame")
}

func TestProfilerTickedEveryFrame(t *testing.T) {
	var reports int
	p := profiler.NewProfiler(
		profiler.WithInterval(time.Nanosecond),
		profiler.WithReportCallback(func(profiler.Report) { reports++ }),
	)
	e := NewEngine(WithProfiler(p), WithMaxFrames(3), WithFrameCallback(func(float32) error {
		time.Sleep(time.Millisecond)
		return nil
	}))
	require.NoError(t, e.Run())
	assert.Equal(t, 3, reports)
	assert.Equal(t, p, e.Profiler())
}

func TestFrameDuration(t *testing.T) {
	assert.Zero(t, frameDuration(0))
	assert.Zero(t, frameDuration(-1))
	assert.Equal(t, 20*time.Millisecond, frameDuration(50))
}
