package renderer

import (
	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/camera"
	"github.com/Carmen-Shannon/oxy-forward/engine/ecs"
	"github.com/Carmen-Shannon/oxy-forward/engine/light"
	"github.com/Carmen-Shannon/oxy-forward/engine/transform"
	"github.com/go-gl/mathgl/mgl32"
)

// SceneBounds returns the world-space box enclosing every visible renderable with a bounding box.
// World matrices must be up to date, so call it after transform.UpdateAll.
//
// Parameters:
//   - world: the scene
//
// Returns:
//   - common.AABB: the enclosing box
//   - bool: false if the scene has no visible bounded renderable
func SceneBounds(world *ecs.World) (common.AABB, bool) {
	bounds := common.EmptyAABB()
	ecs.Each3(world, func(_ ecs.Entity, t *transform.Transform, r *ecs.Renderable, b *ecs.BoundingBox) {
		if !r.Visible {
			return
		}
		m := t.WorldMatrix()
		box := common.EmptyAABB()
		for _, c := range b.AABB().Corners() {
			box = box.Extend(common.TransformPoint(m, c))
		}
		bounds = bounds.Union(box)
	})
	return bounds, !bounds.IsEmpty()
}

// BuildFrameConstants fills the camera block from a camera and the light block from the world's
// shadow-casting directional light. Without such a light the light block holds a white light
// pointing straight down and an identity light view-projection. ShadowParams is left for the
// renderer to fill.
//
// Parameters:
//   - world: the scene, with up-to-date world matrices
//   - cam: the camera
//   - time: seconds since start
//   - deltaTime: seconds since the previous frame
//
// Returns:
//   - PerFrameConstants: the constants in [0, 1] clip depth
func BuildFrameConstants(world *ecs.World, cam camera.Camera, time, deltaTime float32) PerFrameConstants {
	c := PerFrameConstants{
		View:                cam.View(),
		Projection:          cam.Projection(),
		ViewProjection:      cam.ViewProjection(),
		CameraPosition:      cam.Position().Vec4(1),
		Time:                time,
		DeltaTime:           deltaTime,
		LightViewProjection: mgl32.Ident4(),
		LightDirection:      mgl32.Vec4{0, -1, 0, 1},
		LightColor:          common.ColorWhite,
	}

	_, l, ok := light.FindShadowCaster(world)
	if !ok {
		return c
	}
	dir := l.Direction()
	c.LightDirection = dir.Vec4(l.Intensity())
	c.LightColor = l.Color().Vec4(1)
	if bounds, ok := SceneBounds(world); ok {
		c.LightViewProjection = light.ComputeLightViewProjection(dir, bounds)
	}
	return c
}
