package postprocessing

import (
	"sync"
	"time"
)

// timer is the implementation of the Timer interface.
type timer struct {
	mu *sync.Mutex

	now       func() time.Time
	last      time.Time
	delta     time.Duration
	elapsed   time.Duration
	timeScale float32
	started   bool
}

// Timer measures the time between consecutive composer frames. The composer uses it when Render
// is called without an explicit delta.
type Timer interface {
	// Update advances the timer to the current time.
	Update()

	// Delta retrieves the scaled time between the last two updates in seconds.
	Delta() float32

	// Elapsed retrieves the scaled time accumulated since the first update in seconds.
	Elapsed() float32

	// TimeScale retrieves the factor applied to measured time.
	TimeScale() float32

	// SetTimeScale sets the factor applied to measured time.
	SetTimeScale(scale float32)

	// Reset forgets every measurement. The next Update reports a zero delta.
	Reset()
}

var _ Timer = &timer{}

// NewTimer creates a timer driven by the wall clock.
//
// Returns:
//   - Timer: the timer
func NewTimer() Timer {
	return newTimer(time.Now)
}

func newTimer(now func() time.Time) *timer {
	return &timer{
		mu:        &sync.Mutex{},
		now:       now,
		timeScale: 1,
	}
}

func (t *timer) Update() {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	if !t.started {
		t.started = true
		t.last = now
		t.delta = 0
		return
	}
	t.delta = time.Duration(float64(now.Sub(t.last)) * float64(t.timeScale))
	t.elapsed += t.delta
	t.last = now
}

func (t *timer) Delta() float32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return float32(t.delta.Seconds())
}

func (t *timer) Elapsed() float32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return float32(t.elapsed.Seconds())
}

func (t *timer) TimeScale() float32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timeScale
}

func (t *timer) SetTimeScale(scale float32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timeScale = max(scale, 0)
}

func (t *timer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.started = false
	t.delta = 0
	t.elapsed = 0
}
