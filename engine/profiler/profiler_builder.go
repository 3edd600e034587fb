package profiler

import "time"

// ProfilerBuilderOption is a function that configures a Profiler.
type ProfilerBuilderOption func(*profiler)

// WithInterval sets how often a report is produced. Values <= 0 are ignored.
//
// Parameters:
//   - d: the report interval
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithInterval(d time.Duration) ProfilerBuilderOption {
	return func(p *profiler) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithReportCallback registers a function receiving every report after it is logged.
//
// Parameters:
//   - fn: the callback
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithReportCallback(fn func(Report)) ProfilerBuilderOption {
	return func(p *profiler) {
		p.onReport = fn
	}
}

// withClock replaces the wall clock.
func withClock(now func() time.Time) ProfilerBuilderOption {
	return func(p *profiler) {
		p.now = now
	}
}
