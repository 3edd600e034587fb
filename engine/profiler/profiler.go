package profiler

import (
	"log/slog"
	"maps"
	"os"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/shirou/gopsutil/v3/process"
)

// PassStats aggregates the wall time of one named pass over a report interval.
type PassStats struct {
	Name  string
	Count int
	Total time.Duration
	Max   time.Duration
}

// Mean returns the average pass duration, or zero when the pass never ran.
func (s PassStats) Mean() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

// Report is a snapshot produced at the end of each interval.
type Report struct {
	FPS        float64
	HeapMB     float64
	SysMB      float64
	RSSMB      float64
	CPUPercent float64
	GCCount    uint32
	Passes     []PassStats
}

// profiler is the implementation of the Profiler interface.
type profiler struct {
	mu *sync.Mutex

	now        func() time.Time
	interval   time.Duration
	frameCount int
	lastTime   time.Time
	memStats   runtime.MemStats
	proc       *process.Process
	passes     map[string]*PassStats
	last       Report
	onReport   func(Report)
}

// Profiler tracks frame rate, memory and per-pass timings, and logs a report at a fixed interval.
type Profiler interface {
	// Tick should be called once per frame.
	//
	// Returns:
	//   - bool: true if a report was produced this tick
	Tick() bool

	// ObservePass records the wall time of one pass execution.
	//
	// Parameters:
	//   - name: the pass name
	//   - d: the measured duration
	ObservePass(name string, d time.Duration)

	// LastReport retrieves the most recent report.
	LastReport() Report
}

var _ Profiler = &profiler{}

// NewProfiler creates a profiler reporting once per second.
//
// Parameters:
//   - options: ProfilerBuilderOption functions to configure the profiler
//
// Returns:
//   - Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) Profiler {
	p := &profiler{
		mu:       &sync.Mutex{},
		now:      time.Now,
		interval: time.Second,
		passes:   make(map[string]*PassStats),
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		common.WarnOnce("profiler-process", "process statistics unavailable", "error", err)
	} else {
		p.proc = proc
	}
	return p
}

func (p *profiler) ObservePass(name string, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.passes[name]
	if !ok {
		s = &PassStats{Name: name}
		p.passes[name] = s
	}
	s.Count++
	s.Total += d
	s.Max = max(s.Max, d)
}

func (p *profiler) Tick() bool {
	p.mu.Lock()
	p.frameCount++
	current := p.now()
	elapsed := current.Sub(p.lastTime)
	if elapsed < p.interval {
		p.mu.Unlock()
		return false
	}

	runtime.ReadMemStats(&p.memStats)
	r := Report{
		FPS:     float64(p.frameCount) / elapsed.Seconds(),
		HeapMB:  float64(p.memStats.Alloc) / 1024 / 1024,
		SysMB:   float64(p.memStats.Sys) / 1024 / 1024,
		GCCount: p.memStats.NumGC,
	}
	if p.proc != nil {
		if mem, err := p.proc.MemoryInfo(); err == nil {
			r.RSSMB = float64(mem.RSS) / 1024 / 1024
		}
		if cpu, err := p.proc.Percent(0); err == nil {
			r.CPUPercent = cpu
		}
	}
	for _, name := range slices.Sorted(maps.Keys(p.passes)) {
		r.Passes = append(r.Passes, *p.passes[name])
	}
	clear(p.passes)
	p.frameCount = 0
	p.lastTime = current
	p.last = r
	onReport := p.onReport
	p.mu.Unlock()

	attrs := []any{
		slog.Float64("fps", r.FPS),
		slog.Float64("heap_mb", r.HeapMB),
		slog.Float64("rss_mb", r.RSSMB),
		slog.Float64("cpu_percent", r.CPUPercent),
		slog.Uint64("gc", uint64(r.GCCount)),
	}
	for _, s := range r.Passes {
		attrs = append(attrs, slog.Group(s.Name,
			slog.Int("count", s.Count),
			slog.Duration("mean", s.Mean()),
			slog.Duration("max", s.Max),
		))
	}
	common.Logger().Info("profiler", attrs...)
	if onReport != nil {
		onReport(r)
	}
	return true
}

func (p *profiler) LastReport() Report {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}
