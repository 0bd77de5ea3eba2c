// Package input holds the per-frame keyboard and mouse snapshot that the window writes and
// controllers read. Nothing in the engine polls devices directly; all reads go through a State.
package input

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/go-gl/mathgl/mgl32"
)

// State is the explicit input snapshot for one frame. Writers are the window callbacks;
// readers call the query methods between the callbacks and EndFrame.
type State struct {
	mu *sync.Mutex

	keys     [common.KeyLast + 1]bool
	prevKeys [common.KeyLast + 1]bool

	buttons     [common.MouseButtonLast + 1]bool
	prevButtons [common.MouseButtonLast + 1]bool

	cursor     mgl32.Vec2
	hasCursor  bool
	delta      mgl32.Vec2
	scroll     mgl32.Vec2
}

// NewState creates an empty input state.
//
// Returns:
//   - *State: the new state
func NewState() *State {
	return &State{mu: &sync.Mutex{}}
}

// SetKey records a key transition. Out of range key codes are ignored.
//
// Parameters:
//   - key: the key code
//   - down: true on press or repeat, false on release
func (s *State) SetKey(key int, down bool) {
	if key < 0 || key > common.KeyLast {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key] = down
}

// SetMouseButton records a mouse button transition. Out of range buttons are ignored.
//
// Parameters:
//   - button: the button code
//   - down: true on press, false on release
func (s *State) SetMouseButton(button int, down bool) {
	if button < 0 || button > common.MouseButtonLast {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buttons[button] = down
}

// SetMousePosition records the cursor position and accumulates the frame delta.
// The first position ever reported produces no delta.
//
// Parameters:
//   - x, y: cursor position in window pixels
func (s *State) SetMousePosition(x, y float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := mgl32.Vec2{x, y}
	if s.hasCursor {
		s.delta = s.delta.Add(p.Sub(s.cursor))
	}
	s.cursor = p
	s.hasCursor = true
}

// AddScroll accumulates scroll wheel offsets for the frame.
//
// Parameters:
//   - dx, dy: scroll offsets
func (s *State) AddScroll(dx, dy float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scroll = s.scroll.Add(mgl32.Vec2{dx, dy})
}

func (s *State) IsKeyDown(key int) bool {
	if key < 0 || key > common.KeyLast {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys[key]
}

// IsKeyPressed reports a key that went down this frame.
func (s *State) IsKeyPressed(key int) bool {
	if key < 0 || key > common.KeyLast {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys[key] && !s.prevKeys[key]
}

// IsKeyReleased reports a key that went up this frame.
func (s *State) IsKeyReleased(key int) bool {
	if key < 0 || key > common.KeyLast {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.keys[key] && s.prevKeys[key]
}

func (s *State) IsMouseButtonDown(button int) bool {
	if button < 0 || button > common.MouseButtonLast {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buttons[button]
}

// IsMouseButtonPressed reports a button that went down this frame.
func (s *State) IsMouseButtonPressed(button int) bool {
	if button < 0 || button > common.MouseButtonLast {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buttons[button] && !s.prevButtons[button]
}

func (s *State) MousePosition() mgl32.Vec2 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// MouseDelta returns the cursor movement accumulated since the last EndFrame.
func (s *State) MouseDelta() mgl32.Vec2 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delta
}

func (s *State) Scroll() mgl32.Vec2 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scroll
}

// EndFrame rolls the current state into the previous state and clears per-frame accumulators.
func (s *State) EndFrame() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prevKeys = s.keys
	s.prevButtons = s.buttons
	s.delta = mgl32.Vec2{}
	s.scroll = mgl32.Vec2{}
}
