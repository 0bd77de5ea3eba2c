// Package profiler measures frame timing and reports frame rate and memory statistics.
package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/rs/zerolog"
)

// Profiler tracks frame rate and memory statistics for performance monitoring.
// Logs one line per update interval through the package logger.
type Profiler struct {
	counter        *FPSCounter
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	hook           func(e *zerolog.Event)
}

// NewProfiler creates a new Profiler.
// Update interval defaults to 1 second.
//
// Parameters:
//   - options: builder options
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	cfg := profilerConfig{interval: time.Second}
	for _, option := range options {
		option(&cfg)
	}
	return &Profiler{
		counter: NewFPSCounter(cfg.clock, cfg.interval),
		hook:    cfg.hook,
	}
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: FPS, frame time, heap usage, allocation rate, GC count/pause times, total memory,
// plus whatever the report hook adds.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	if !p.counter.Tick() {
		return false
	}
	elapsed := p.counter.Window()

	runtime.ReadMemStats(&p.memStats)
	// Alloc: Bytes of allocated heap objects (live memory)
	// TotalAlloc: Cumulative bytes allocated for heap objects (increases forever, tracks churn)
	// Sys: Total bytes of memory obtained from the OS (actual process footprint)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	gcCount := p.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		// PauseNs is a circular buffer of last 256 GC pauses
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000

		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			maxPauseUs = max(maxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	e := common.Logger().Info().
		Float64("fps", p.counter.FPS()).
		Float64("frame_ms", float64(p.counter.FrameTime().Microseconds())/1000).
		Float64("heap_mb", allocMB).
		Float64("alloc_mb_s", allocRateMB).
		Uint32("gc", gcCount).
		Uint64("gc_last_us", lastPauseUs).
		Uint64("gc_max_us", maxPauseUs).
		Float64("sys_mb", sysMB)
	if p.hook != nil {
		p.hook(e)
	}
	e.Msg("profiler")

	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}

// FPS returns the frame rate of the last completed interval.
func (p *Profiler) FPS() float64 {
	return p.counter.FPS()
}

// FrameTime returns the mean frame time of the last completed interval.
func (p *Profiler) FrameTime() time.Duration {
	return p.counter.FrameTime()
}
