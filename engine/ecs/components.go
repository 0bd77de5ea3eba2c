package ecs

import (
	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/go-gl/mathgl/mgl32"
)

// Renderable marks an entity as drawable. The renderer only reads it.
type Renderable struct {
	// Visible controls whether the entity is drawn at all. Invisible entities are counted as culled.
	Visible bool
	// Color is the tint multiplied with the mesh vertex colors.
	Color common.Color
}

// NewRenderable returns a visible renderable with a white tint.
//
// Returns:
//   - Renderable: the default renderable
func NewRenderable() Renderable {
	return Renderable{Visible: true, Color: common.ColorWhite}
}

// BoundingBox is a local-space axis-aligned bounding box used for culling and shadow fitting.
type BoundingBox struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// AABB returns the box as a common.AABB.
//
// Returns:
//   - common.AABB: the local-space box
func (b BoundingBox) AABB() common.AABB {
	return common.AABB{Min: b.Min, Max: b.Max}
}

// MaterialRef selects the material table entry used when drawing an entity.
type MaterialRef struct {
	Index uint32
}
