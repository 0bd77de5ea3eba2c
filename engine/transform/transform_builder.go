package transform

import (
	"github.com/Carmen-Shannon/oxy-forward/engine/ecs"
	"github.com/go-gl/mathgl/mgl32"
)

// TransformBuilderOption is a functional option applied to a Transform by NewTransform.
type TransformBuilderOption func(*Transform)

// WithPosition sets the local translation.
//
// Parameters:
//   - x, y, z: the translation
//
// Returns:
//   - TransformBuilderOption: option function to apply
func WithPosition(x, y, z float32) TransformBuilderOption {
	return func(t *Transform) {
		t.position = mgl32.Vec3{x, y, z}
	}
}

// WithRotation sets the local Euler rotation in radians.
//
// Parameters:
//   - x, y, z: rotation around each axis
//
// Returns:
//   - TransformBuilderOption: option function to apply
func WithRotation(x, y, z float32) TransformBuilderOption {
	return func(t *Transform) {
		t.rotation = mgl32.Vec3{x, y, z}
	}
}

// WithScale sets the local scale.
//
// Parameters:
//   - x, y, z: scale along each axis
//
// Returns:
//   - TransformBuilderOption: option function to apply
func WithScale(x, y, z float32) TransformBuilderOption {
	return func(t *Transform) {
		t.scale = mgl32.Vec3{x, y, z}
	}
}

// WithParent attaches the transform to a parent entity.
//
// Parameters:
//   - parent: the parent entity
//
// Returns:
//   - TransformBuilderOption: option function to apply
func WithParent(parent ecs.Entity) TransformBuilderOption {
	return func(t *Transform) {
		t.parent = parent
	}
}
