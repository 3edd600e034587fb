// Package engine drives the per-frame loop that renders a post-processing pipeline.
package engine

import (
	"bytes"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/profiler"
	"github.com/Carmen-Shannon/oxy-fx/engine/window"
)

// ErrNoFrameCallback is returned by Start when no frame callback is registered.
var ErrNoFrameCallback = errors.New("engine: no frame callback")

// FrameFunc renders one frame. A returned error stops the loop.
type FrameFunc func(delta float32) error

// DefaultFrameLimit caps headless runs that have neither a frame budget nor an explicit limit.
const DefaultFrameLimit = 60

// engine implements the Engine interface.
type engine struct {
	mu *sync.Mutex
	wg sync.WaitGroup

	running bool
	loopID  uint64 // goroutine running the current loop
	quit    chan struct{}
	done    chan struct{}
	err     error
	frames  uint64

	window   window.Window
	profiler profiler.Profiler

	frameCallback FrameFunc
	frameLimit    time.Duration // minimum frame duration; 0 = uncapped
	limitSet      bool
	maxFrames     uint64 // 0 = unbounded
	now           func() time.Time
}

// Engine runs a frame callback in its own goroutine until it is stopped or the frame budget is
// spent. A failing frame or a closed window also ends the run.
type Engine interface {
	// Start launches the frame loop. Starting a running engine is a no-op; a stopped engine can be
	// started again.
	//
	// Returns:
	//   - error: ErrNoFrameCallback when nothing would be rendered
	Start() error

	// Stop signals the frame loop to exit and waits for it. Safe to call multiple times. Called
	// from inside the frame callback it only signals; the loop exits when the callback returns.
	Stop()

	// Running reports whether the frame loop is active.
	Running() bool

	// Done returns a channel closed when the current run ends.
	Done() <-chan struct{}

	// Err retrieves the error that ended the last run, or nil.
	Err() error

	// Frames retrieves the number of frames rendered in the current or last run.
	Frames() uint64

	// Run starts the engine and blocks until it stops. With a window the message loop runs on
	// the calling goroutine and closing the window stops the engine.
	//
	// Returns:
	//   - error: the error that ended the run
	Run() error

	// SetFrameCallback registers the function called each frame. Clearing the callback with nil
	// ends the current run after the frame in progress.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds, or nil
	SetFrameCallback(callback FrameFunc)

	// SetFrameLimit sets a frame rate cap in frames per second. Pass 0 to uncap the loop. Without
	// a window, a frame budget or an explicit limit, runs are capped at DefaultFrameLimit.
	//
	// Parameters:
	//   - fps: maximum frames per second
	SetFrameLimit(fps float64)

	// Profiler retrieves the profiler ticked every frame, or nil when profiling is disabled.
	Profiler() profiler.Profiler

	// Window returns the window hosting the screen, or nil when running headless.
	Window() window.Window
}

var _ Engine = &engine{}

// NewEngine creates a stopped engine.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		mu:   &sync.Mutex{},
		done: closedChannel(),
		now:  time.Now,
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

func closedChannel() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (e *engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return nil
	}
	if e.frameCallback == nil {
		return ErrNoFrameCallback
	}
	e.running = true
	e.err = nil
	e.frames = 0
	e.quit = make(chan struct{})
	e.done = make(chan struct{})
	if !e.limitSet && e.window == nil && e.maxFrames == 0 {
		e.frameLimit = frameDuration(DefaultFrameLimit)
	}

	e.wg.Add(1)
	go e.loop(e.quit, e.done)
	common.Logger().Debug("engine started", "frame_limit", e.frameLimit, "max_frames", e.maxFrames)
	return nil
}

func (e *engine) Stop() {
	e.mu.Lock()
	if e.running {
		e.running = false
		close(e.quit)
	}
	loopID := e.loopID
	e.mu.Unlock()
	if loopID != 0 && loopID == goroutineID() {
		return
	}
	e.wg.Wait()
}

func (e *engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

func (e *engine) Done() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.done
}

func (e *engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

func (e *engine) Frames() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frames
}

func (e *engine) Run() error {
	if err := e.Start(); err != nil {
		return err
	}
	if e.window != nil {
		done := e.Done()
		e.window.SetUpdateCallback(func() {
			select {
			case <-done:
				_ = e.window.Close()
			default:
			}
		})
		e.window.ProcessMessages()
		e.Stop()
	} else {
		<-e.Done()
		e.Stop()
	}
	return e.Err()
}

// loop calls the frame callback until quit closes or the run ends on its own.
func (e *engine) loop(quit, done chan struct{}) {
	defer e.wg.Done()
	defer close(done)
	defer func() {
		if r := recover(); r != nil {
			e.finish(fmt.Errorf("engine: frame panicked: %v", r))
		}
	}()

	e.mu.Lock()
	e.loopID = goroutineID()
	callback, limit, maxFrames, prof, now := e.frameCallback, e.frameLimit, e.maxFrames, e.profiler, e.now
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.loopID = 0
		e.mu.Unlock()
	}()

	last := now()
	first := true
	for {
		select {
		case <-quit:
			return
		default:
		}

		start := now()
		var dt float32
		if !first {
			dt = float32(start.Sub(last).Seconds())
		}
		first = false
		last = start

		if err := callback(dt); err != nil {
			e.finish(err)
			return
		}
		if prof != nil {
			prof.Tick()
		}

		e.mu.Lock()
		e.frames++
		frames := e.frames
		callback = e.frameCallback
		limit = e.frameLimit
		e.mu.Unlock()

		if callback == nil || (maxFrames > 0 && frames >= maxFrames) {
			e.finish(nil)
			return
		}
		if limit > 0 {
			if remaining := limit - now().Sub(start); remaining > 0 {
				select {
				case <-quit:
					return
				case <-time.After(remaining):
				}
			}
		}
	}
}

// finish records why the loop ended on its own.
func (e *engine) finish(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.err = err
		common.Logger().Error("engine stopped", "frames", e.frames, "error", err)
	} else {
		common.Logger().Debug("engine finished", "frames", e.frames)
	}
	if e.running {
		e.running = false
		close(e.quit)
	}
}

func (e *engine) SetFrameCallback(callback FrameFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.frameCallback = callback
}

func (e *engine) SetFrameLimit(fps float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.frameLimit = frameDuration(fps)
	e.limitSet = true
}

func (e *engine) Profiler() profiler.Profiler {
	return e.profiler
}

func (e *engine) Window() window.Window {
	return e.window
}

// frameDuration converts a frame rate into the minimum frame duration.
func frameDuration(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}

// goroutineID parses the id of the calling goroutine from its stack header.
func goroutineID() uint64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i > 0 {
		b = b[:i]
	}
	id, _ := strconv.ParseUint(string(b), 10, 64)
	return id
}
