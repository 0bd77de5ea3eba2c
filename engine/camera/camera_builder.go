package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraBuilderOption configures a Camera at construction.
type CameraBuilderOption func(*cameraImpl)

// WithPosition sets the camera's initial position.
//
// Parameters:
//   - x, y, z: world-space position
//
// Returns:
//   - CameraBuilderOption: a function that sets the position
func WithPosition(x, y, z float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.position = mgl32.Vec3{x, y, z}
	}
}

// WithTarget sets the camera's initial look-at point.
//
// Parameters:
//   - x, y, z: world-space target
//
// Returns:
//   - CameraBuilderOption: a function that sets the target
func WithTarget(x, y, z float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.target = mgl32.Vec3{x, y, z}
	}
}

// WithUp sets the camera's up vector.
//
// Parameters:
//   - x, y, z: up vector components
//
// Returns:
//   - CameraBuilderOption: a function that sets the up vector
func WithUp(x, y, z float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.up = mgl32.Vec3{x, y, z}
	}
}

// WithFov sets the camera's vertical field of view in radians.
//
// Parameters:
//   - fov: field of view in radians
//
// Returns:
//   - CameraBuilderOption: a function that sets the field of view
func WithFov(fov float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.fov = fov
	}
}

// WithAspect sets the camera's aspect ratio (width / height).
//
// Parameters:
//   - aspect: the aspect ratio to set
//
// Returns:
//   - CameraBuilderOption: a function that sets the aspect ratio
func WithAspect(aspect float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.aspect = aspect
	}
}

// WithClipPlanes sets the near and far clipping plane distances.
//
// Parameters:
//   - near: near plane distance
//   - far: far plane distance
//
// Returns:
//   - CameraBuilderOption: a function that sets the clip planes
func WithClipPlanes(near, far float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.near = near
		c.far = far
	}
}

// WithAngles sets the initial yaw and pitch and aims the target along them.
//
// Parameters:
//   - yaw: heading in radians
//   - pitch: elevation in radians
//
// Returns:
//   - CameraBuilderOption: a function that sets the angles
func WithAngles(yaw, pitch float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.yaw = yaw
		c.pitch = clampPitch(pitch)
		c.target = c.position.Add(direction(c.yaw, c.pitch))
	}
}

// WithSpeeds sets the fly movement and mouse-look speeds.
//
// Parameters:
//   - move: world units per second
//   - look: radians per pixel
//
// Returns:
//   - CameraBuilderOption: a function that sets the speeds
func WithSpeeds(move, look float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.moveSpeed = move
		c.lookSpeed = look
	}
}
