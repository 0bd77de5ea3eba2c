package camera

import "github.com/Carmen-Shannon/oxy-forward/engine/input"

// CameraController drives a Camera from an explicit input snapshot. The default controller is a
// right-handed fly camera: mouse look while the look button is held, W/S forward and back along
// the heading, A/D strafe, E/Q up and down.
type CameraController interface {
	// Update applies one frame of input to the camera.
	//
	// Parameters:
	//   - cam: the camera to move
	//   - state: the input snapshot for this frame
	//   - dt: frame delta time in seconds
	Update(cam Camera, state *input.State, dt float32)

	// LookButton returns the mouse button that enables mouse look, or -1 when look is always on.
	//
	// Returns:
	//   - int: the mouse button code
	LookButton() int

	// SetEnabled turns input handling on or off.
	//
	// Parameters:
	//   - enabled: true to process input
	SetEnabled(enabled bool)

	// Enabled reports whether input is processed.
	//
	// Returns:
	//   - bool: true when enabled
	Enabled() bool
}
