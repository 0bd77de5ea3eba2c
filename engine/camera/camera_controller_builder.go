package camera

// CameraControllerOption is a functional option for configuring a CameraController.
type CameraControllerOption func(*cameraControllerImpl)

// WithLookButton sets the mouse button that must be held for mouse look.
// Pass -1 to look with every mouse movement.
//
// Parameters:
//   - button: the mouse button code
//
// Returns:
//   - CameraControllerOption: functional option to set the look button
func WithLookButton(button int) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.lookButton = button
	}
}

// WithSprint scales movement speed while a key is held.
//
// Parameters:
//   - key: the key code
//   - multiplier: the speed multiplier
//
// Returns:
//   - CameraControllerOption: functional option to set sprint
func WithSprint(key int, multiplier float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.sprintKey = key
		cc.sprintMultiplier = multiplier
	}
}
