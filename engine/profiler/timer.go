package profiler

import "time"

// Clock returns the current time. Tests substitute a manual clock.
type Clock func() time.Time

// Timer measures the time between frames and since start.
type Timer struct {
	now   Clock
	start time.Time
	last  time.Time
	delta time.Duration
}

// NewTimer creates a Timer started now.
//
// Parameters:
//   - now: the clock to read, or nil for time.Now
//
// Returns:
//   - *Timer: the started timer
func NewTimer(now Clock) *Timer {
	if now == nil {
		now = time.Now
	}
	t := &Timer{now: now}
	t.Reset()
	return t
}

// Reset restarts the timer and clears the last delta.
func (t *Timer) Reset() {
	t.start = t.now()
	t.last = t.start
	t.delta = 0
}

// Tick marks the start of a new frame.
//
// Returns:
//   - float32: seconds since the previous Tick
func (t *Timer) Tick() float32 {
	now := t.now()
	t.delta = now.Sub(t.last)
	t.last = now
	return float32(t.delta.Seconds())
}

// Delta returns the seconds between the last two ticks.
func (t *Timer) Delta() float32 {
	return float32(t.delta.Seconds())
}

// Elapsed returns the seconds from start to the last tick.
func (t *Timer) Elapsed() float32 {
	return float32(t.last.Sub(t.start).Seconds())
}
