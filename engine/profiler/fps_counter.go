package profiler

import "time"

// FPSCounter averages frame rate and frame time over a fixed window.
type FPSCounter struct {
	now      Clock
	interval time.Duration

	frames      int
	windowStart time.Time

	fps       float64
	frameTime time.Duration
	window    time.Duration
}

// NewFPSCounter creates a counter averaging over interval.
//
// Parameters:
//   - now: the clock to read, or nil for time.Now
//   - interval: the averaging window, at least one second
//
// Returns:
//   - *FPSCounter: the counter
func NewFPSCounter(now Clock, interval time.Duration) *FPSCounter {
	if now == nil {
		now = time.Now
	}
	interval = max(interval, time.Second)
	return &FPSCounter{now: now, interval: interval, windowStart: now()}
}

// Tick counts one frame.
//
// Returns:
//   - bool: true when the window closed and FPS and FrameTime were updated
func (c *FPSCounter) Tick() bool {
	c.frames++
	now := c.now()
	elapsed := now.Sub(c.windowStart)
	if elapsed < c.interval {
		return false
	}
	c.fps = float64(c.frames) / elapsed.Seconds()
	c.frameTime = elapsed / time.Duration(c.frames)
	c.window = elapsed
	c.frames = 0
	c.windowStart = now
	return true
}

// FPS returns the frame rate of the last completed window.
func (c *FPSCounter) FPS() float64 {
	return c.fps
}

// FrameTime returns the mean frame time of the last completed window.
func (c *FPSCounter) FrameTime() time.Duration {
	return c.frameTime
}

// Window returns the measured length of the last completed window.
func (c *FPSCounter) Window() time.Duration {
	return c.window
}
