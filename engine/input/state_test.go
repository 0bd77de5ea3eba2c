package input

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestKeyEdges(t *testing.T) {
	s := NewState()

	s.SetKey(common.KeyW, true)
	assert.True(t, s.IsKeyDown(common.KeyW))
	assert.True(t, s.IsKeyPressed(common.KeyW))
	assert.False(t, s.IsKeyReleased(common.KeyW))

	s.EndFrame()
	assert.True(t, s.IsKeyDown(common.KeyW))
	assert.False(t, s.IsKeyPressed(common.KeyW))

	s.SetKey(common.KeyW, false)
	assert.False(t, s.IsKeyDown(common.KeyW))
	assert.True(t, s.IsKeyReleased(common.KeyW))

	s.EndFrame()
	assert.False(t, s.IsKeyReleased(common.KeyW))
}

func TestOutOfRangeCodesAreIgnored(t *testing.T) {
	s := NewState()
	s.SetKey(-1, true)
	s.SetKey(common.KeyLast+1, true)
	s.SetMouseButton(common.MouseButtonLast+1, true)

	assert.False(t, s.IsKeyDown(-1))
	assert.False(t, s.IsKeyDown(common.KeyLast+1))
	assert.False(t, s.IsMouseButtonDown(common.MouseButtonLast+1))
}

func TestMouseButtons(t *testing.T) {
	s := NewState()
	s.SetMouseButton(common.MouseButtonRight, true)
	assert.True(t, s.IsMouseButtonDown(common.MouseButtonRight))
	assert.True(t, s.IsMouseButtonPressed(common.MouseButtonRight))

	s.EndFrame()
	assert.True(t, s.IsMouseButtonDown(common.MouseButtonRight))
	assert.False(t, s.IsMouseButtonPressed(common.MouseButtonRight))
}

func TestMouseDeltaAccumulatesPerFrame(t *testing.T) {
	s := NewState()
	s.SetMousePosition(100, 100)
	assert.Equal(t, mgl32.Vec2{}, s.MouseDelta())

	s.SetMousePosition(110, 95)
	s.SetMousePosition(120, 90)
	assert.Equal(t, mgl32.Vec2{20, -10}, s.MouseDelta())
	assert.Equal(t, mgl32.Vec2{120, 90}, s.MousePosition())

	s.AddScroll(0, 1)
	s.AddScroll(0, 2)
	assert.Equal(t, mgl32.Vec2{0, 3}, s.Scroll())

	s.EndFrame()
	assert.Equal(t, mgl32.Vec2{}, s.MouseDelta())
	assert.Equal(t, mgl32.Vec2{}, s.Scroll())

	s.SetMousePosition(121, 90)
	assert.Equal(t, mgl32.Vec2{1, 0}, s.MouseDelta())
}
