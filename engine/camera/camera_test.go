package camera

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/input"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func vecNear(t *testing.T, expected, actual mgl32.Vec3) {
	t.Helper()
	assert.True(t, expected.ApproxEqualThreshold(actual, 1e-5), "expected %v, got %v", expected, actual)
}

func TestCameraDefaults(t *testing.T) {
	c := NewCamera()
	assert.Equal(t, mgl32.Vec3{0, 0, -5}, c.Position())
	assert.Equal(t, mgl32.Vec3{}, c.Target())
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, c.Up())
	assert.InDelta(t, math.Pi/4, c.Fov(), 1e-6)
	assert.InDelta(t, 16.0/9.0, c.Aspect(), 1e-6)
	assert.InDelta(t, 0.1, c.Near(), 1e-6)
	assert.InDelta(t, 1000, c.Far(), 1e-3)
	assert.InDelta(t, 5, c.MoveSpeed(), 1e-6)
	assert.InDelta(t, 0.002, c.LookSpeed(), 1e-6)
}

func TestViewProjectionMapsTargetToScreenCenter(t *testing.T) {
	c := NewCamera()
	clip := c.ViewProjection().Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	ndc := clip.Vec3().Mul(1 / clip[3])
	assert.InDelta(t, 0, ndc[0], 1e-5)
	assert.InDelta(t, 0, ndc[1], 1e-5)
	assert.True(t, ndc[2] > 0 && ndc[2] < 1)

	expected := c.Projection().Mul4(c.View())
	assert.True(t, expected.ApproxEqualThreshold(c.ViewProjection(), 1e-6))
}

func TestUpdateTargetFromAngles(t *testing.T) {
	c := NewCamera(WithPosition(1, 2, 3))
	c.SetAngles(0, 0)
	c.UpdateTargetFromAngles()
	vecNear(t, mgl32.Vec3{1, 2, 4}, c.Target())

	c.SetAngles(math.Pi/2, 0)
	c.UpdateTargetFromAngles()
	vecNear(t, mgl32.Vec3{2, 2, 3}, c.Target())
}

func TestPitchIsClamped(t *testing.T) {
	c := NewCamera()
	c.SetAngles(0, 10)
	assert.InDelta(t, MaxPitch, c.Pitch(), 1e-6)
	c.SetAngles(0, -10)
	assert.InDelta(t, -MaxPitch, c.Pitch(), 1e-6)
}

func TestControllerMovesAlongHeading(t *testing.T) {
	c := NewCamera(WithPosition(0, 0, 0), WithAngles(0, 0))
	cc := NewCameraController()
	s := input.NewState()

	s.SetKey(common.KeyW, true)
	cc.Update(c, s, 1)
	vecNear(t, mgl32.Vec3{0, 0, 5}, c.Position())
	vecNear(t, mgl32.Vec3{0, 0, 6}, c.Target())

	s.SetKey(common.KeyW, false)
	s.SetKey(common.KeyD, true)
	cc.Update(c, s, 1)
	// right-handed: facing +Z, right is -X
	vecNear(t, mgl32.Vec3{-5, 0, 5}, c.Position())

	s.SetKey(common.KeyD, false)
	s.SetKey(common.KeyE, true)
	cc.Update(c, s, 0.5)
	vecNear(t, mgl32.Vec3{-5, 2.5, 5}, c.Position())
}

func TestControllerLooksOnlyWithButtonHeld(t *testing.T) {
	c := NewCamera(WithAngles(0, 0))
	cc := NewCameraController()
	s := input.NewState()

	s.SetMousePosition(0, 0)
	s.SetMousePosition(100, 50)
	cc.Update(c, s, 0.016)
	assert.Zero(t, c.Yaw())
	assert.Zero(t, c.Pitch())

	s.SetMouseButton(common.MouseButtonRight, true)
	cc.Update(c, s, 0.016)
	assert.InDelta(t, -0.2, c.Yaw(), 1e-6)
	assert.InDelta(t, -0.1, c.Pitch(), 1e-6)
}

func TestDisabledControllerIgnoresInput(t *testing.T) {
	c := NewCamera(WithPosition(0, 0, 0), WithAngles(0, 0))
	cc := NewCameraController(WithLookButton(-1))
	cc.SetEnabled(false)
	s := input.NewState()
	s.SetKey(common.KeyW, true)

	cc.Update(c, s, 1)
	assert.Equal(t, mgl32.Vec3{}, c.Position())
	assert.False(t, cc.Enabled())
	assert.Equal(t, -1, cc.LookButton())
}
