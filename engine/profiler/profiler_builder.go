package profiler

import (
	"time"

	"github.com/rs/zerolog"
)

type profilerConfig struct {
	clock    Clock
	interval time.Duration
	hook     func(e *zerolog.Event)
}

// ProfilerBuilderOption configures a Profiler.
type ProfilerBuilderOption func(*profilerConfig)

// WithClock sets the clock frames are timed with.
//
// Parameters:
//   - clock: the clock
//
// Returns:
//   - ProfilerBuilderOption: the option
func WithClock(clock Clock) ProfilerBuilderOption {
	return func(c *profilerConfig) {
		c.clock = clock
	}
}

// WithInterval sets the report interval. Intervals under one second are raised to one second.
//
// Parameters:
//   - interval: the report interval
//
// Returns:
//   - ProfilerBuilderOption: the option
func WithInterval(interval time.Duration) ProfilerBuilderOption {
	return func(c *profilerConfig) {
		c.interval = interval
	}
}

// WithReportHook adds fields to every report line.
//
// Parameters:
//   - hook: called with the pending log event before it is written
//
// Returns:
//   - ProfilerBuilderOption: the option
func WithReportHook(hook func(e *zerolog.Event)) ProfilerBuilderOption {
	return func(c *profilerConfig) {
		c.hook = hook
	}
}
