package transform

import (
	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/ecs"
	"github.com/go-gl/mathgl/mgl32"
)

// Transform is the spatial component of an entity. Position, rotation and scale describe the
// local frame relative to Parent; the cached world matrix is only valid while Dirty is false.
// Every setter marks the transform dirty. Only the hierarchy Updater clears the flag.
type Transform struct {
	position mgl32.Vec3
	rotation mgl32.Vec3 // Euler angles in radians (x = pitch, y = yaw, z = roll)
	scale    mgl32.Vec3
	parent   ecs.Entity

	world mgl32.Mat4
	dirty bool
	// resolved is the parent the cached world matrix was composed against; NoEntity when the
	// transform was last updated as a root.
	resolved ecs.Entity
}

// NewTransform creates a dirty identity transform and applies the given options.
//
// Parameters:
//   - options: functional options to configure the transform
//
// Returns:
//   - Transform: the new transform
func NewTransform(options ...TransformBuilderOption) Transform {
	t := Transform{
		scale: mgl32.Vec3{1, 1, 1},
		world: mgl32.Ident4(),
		dirty: true,
	}
	for _, opt := range options {
		opt(&t)
	}
	return t
}

func (t *Transform) Position() mgl32.Vec3 { return t.position }
func (t *Transform) Rotation() mgl32.Vec3 { return t.rotation }
func (t *Transform) Scale() mgl32.Vec3    { return t.scale }
func (t *Transform) Parent() ecs.Entity   { return t.parent }

// Dirty reports whether the cached world matrix is stale.
func (t *Transform) Dirty() bool { return t.dirty }

// WorldMatrix returns the cached world matrix. It reflects the last Updater pass.
func (t *Transform) WorldMatrix() mgl32.Mat4 { return t.world }

func (t *Transform) SetPosition(p mgl32.Vec3) {
	t.position = p
	t.dirty = true
}

func (t *Transform) SetRotation(r mgl32.Vec3) {
	t.rotation = r
	t.dirty = true
}

func (t *Transform) SetScale(s mgl32.Vec3) {
	t.scale = s
	t.dirty = true
}

// SetParent re-parents the transform. Pass ecs.NoEntity to make it a root.
func (t *Transform) SetParent(p ecs.Entity) {
	t.parent = p
	t.dirty = true
}

// MarkDirty forces the next Updater pass to recompute this transform and its descendants.
func (t *Transform) MarkDirty() {
	t.dirty = true
}

// LocalMatrix builds the local matrix from position, rotation and scale.
//
// Returns:
//   - mgl32.Mat4: T * R * S
func (t *Transform) LocalMatrix() mgl32.Mat4 {
	return common.BuildModelMatrix(t.position, t.rotation, t.scale)
}
