package culling

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/ecs"
	"github.com/Carmen-Shannon/oxy-forward/engine/transform"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cameraFrustum() common.Frustum {
	view := common.LookAt(mgl32.Vec3{0, 0, 10}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	proj := common.Perspective(mgl32.DegToRad(60), 1, 0.1, 100)
	return common.ExtractFrustumFromMatrix(proj.Mul4(view))
}

func addCube(w *ecs.World, pos mgl32.Vec3, opts ...transform.TransformBuilderOption) ecs.Entity {
	e := w.CreateEntity()
	opts = append([]transform.TransformBuilderOption{transform.WithPosition(pos[0], pos[1], pos[2])}, opts...)
	ecs.Add(w, e, transform.NewTransform(opts...))
	ecs.Add(w, e, ecs.NewRenderable())
	ecs.Add(w, e, ecs.BoundingBox{Min: mgl32.Vec3{-0.5, -0.5, -0.5}, Max: mgl32.Vec3{0.5, 0.5, 0.5}})
	return e
}

func TestCullKeepsVisibleInCreationOrder(t *testing.T) {
	w := ecs.NewWorld()
	a := addCube(w, mgl32.Vec3{2, 0, 0})
	behind := addCube(w, mgl32.Vec3{0, 0, 20})
	b := addCube(w, mgl32.Vec3{-2, 0, 0})
	far := addCube(w, mgl32.Vec3{0, 0, -200})
	c := addCube(w, mgl32.Vec3{0, 0, 0})
	require.NoError(t, transform.UpdateAll(w))

	got := Cull(w, cameraFrustum())
	assert.Equal(t, []ecs.Entity{a, b, c}, got)
	assert.NotContains(t, got, behind)
	assert.NotContains(t, got, far)
}

func TestCullSkipsInvisibleAndIncompleteEntities(t *testing.T) {
	w := ecs.NewWorld()
	hidden := addCube(w, mgl32.Vec3{})
	r, _ := ecs.Get[ecs.Renderable](w, hidden)
	r.Visible = false

	noBox := w.CreateEntity()
	ecs.Add(w, noBox, transform.NewTransform())
	ecs.Add(w, noBox, ecs.NewRenderable())

	shown := addCube(w, mgl32.Vec3{1, 0, 0})
	require.NoError(t, transform.UpdateAll(w))

	assert.Equal(t, []ecs.Entity{shown}, Cull(w, cameraFrustum()))
}

func TestCullInflatesExtentsByScale(t *testing.T) {
	w := ecs.NewWorld()
	// Just outside the near-side of the right plane at unit scale, pulled in by a large scale.
	edge := addCube(w, mgl32.Vec3{9, 0, 0}, transform.WithScale(8, 1, 1))
	require.NoError(t, transform.UpdateAll(w))

	assert.Equal(t, []ecs.Entity{edge}, Cull(w, cameraFrustum()))

	tr, _ := ecs.Get[transform.Transform](w, edge)
	tr.SetScale(mgl32.Vec3{1, 1, 1})
	require.NoError(t, transform.UpdateAll(w))
	assert.Empty(t, Cull(w, cameraFrustum()))
}

func TestCullUsesHierarchyWorldMatrix(t *testing.T) {
	w := ecs.NewWorld()
	parent := w.CreateEntity()
	ecs.Add(w, parent, transform.NewTransform(transform.WithPosition(0, 0, 50)))
	child := addCube(w, mgl32.Vec3{}, transform.WithParent(parent))
	require.NoError(t, transform.UpdateAll(w))

	assert.NotContains(t, Cull(w, cameraFrustum()), child)
}

func TestParallelCullMatchesSequential(t *testing.T) {
	w := ecs.NewWorld()
	for i := range 500 {
		x := float32(i%25) - 12
		z := float32(i/25) * -4
		addCube(w, mgl32.Vec3{x, 0, z})
	}
	require.NoError(t, transform.UpdateAll(w))
	f := cameraFrustum()

	c := NewCuller(WithWorkerPool(4), WithParallelThreshold(16))
	assert.Equal(t, 4, c.Workers())

	expected := Cull(w, f)
	require.NotEmpty(t, expected)
	for range 3 {
		assert.Equal(t, expected, c.Cull(w, f))
	}
}

func TestSingleWorkerRunsInline(t *testing.T) {
	c := NewCuller(WithWorkerPool(1))
	assert.Equal(t, 0, c.Workers())

	w := ecs.NewWorld()
	e := addCube(w, mgl32.Vec3{})
	require.NoError(t, transform.UpdateAll(w))
	assert.Equal(t, []ecs.Entity{e}, c.Cull(w, cameraFrustum()))
}
