package camera

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/input"
	"github.com/go-gl/mathgl/mgl32"
)

type cameraControllerImpl struct {
	mu *sync.Mutex

	lookButton      int
	enabled         bool
	sprintKey       int
	sprintMultiplier float32
}

// Compile-time interface compliance check
var _ CameraController = &cameraControllerImpl{}

// NewCameraController creates a fly controller that looks while the right mouse button is held.
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - CameraController: the newly created controller
func NewCameraController(options ...CameraControllerOption) CameraController {
	cc := &cameraControllerImpl{
		mu:              &sync.Mutex{},
		lookButton:      common.MouseButtonRight,
		enabled:         true,
		sprintKey:       common.KeyLeftShift,
		sprintMultiplier: 1,
	}
	for _, option := range options {
		option(cc)
	}
	return cc
}

func (cc *cameraControllerImpl) LookButton() int {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.lookButton
}

func (cc *cameraControllerImpl) SetEnabled(enabled bool) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.enabled = enabled
}

func (cc *cameraControllerImpl) Enabled() bool {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.enabled
}

func (cc *cameraControllerImpl) Update(cam Camera, state *input.State, dt float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if !cc.enabled || cam == nil || state == nil {
		return
	}

	yaw, pitch := cam.Yaw(), cam.Pitch()
	if cc.lookButton < 0 || state.IsMouseButtonDown(cc.lookButton) {
		d := state.MouseDelta()
		look := cam.LookSpeed()
		yaw -= d[0] * look
		pitch -= d[1] * look
		cam.SetAngles(yaw, pitch)
	}

	// planar basis from the heading only, so looking up does not slow horizontal movement
	sy, cy := math.Sincos(float64(yaw))
	forward := mgl32.Vec3{float32(sy), 0, float32(cy)}
	right := mgl32.Vec3{float32(-cy), 0, float32(sy)}
	up := mgl32.Vec3{0, 1, 0}

	var move mgl32.Vec3
	if state.IsKeyDown(common.KeyW) {
		move = move.Add(forward)
	}
	if state.IsKeyDown(common.KeyS) {
		move = move.Sub(forward)
	}
	if state.IsKeyDown(common.KeyD) {
		move = move.Add(right)
	}
	if state.IsKeyDown(common.KeyA) {
		move = move.Sub(right)
	}
	if state.IsKeyDown(common.KeyE) {
		move = move.Add(up)
	}
	if state.IsKeyDown(common.KeyQ) {
		move = move.Sub(up)
	}

	speed := cam.MoveSpeed() * dt
	if state.IsKeyDown(cc.sprintKey) {
		speed *= cc.sprintMultiplier
	}
	if move.Len() > 0 {
		cam.SetPosition(cam.Position().Add(move.Mul(speed)))
	}
	cam.UpdateTargetFromAngles()
}
