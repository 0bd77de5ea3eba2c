package transform

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-forward/engine/ecs"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chain builds root -> child -> grandchild with the given translations.
func chain(w *ecs.World, offsets ...mgl32.Vec3) []ecs.Entity {
	var out []ecs.Entity
	parent := ecs.NoEntity
	for _, o := range offsets {
		e := w.CreateEntity()
		ecs.Add(w, e, NewTransform(WithPosition(o[0], o[1], o[2]), WithParent(parent)))
		out = append(out, e)
		parent = e
	}
	return out
}

func worldOf(t *testing.T, w *ecs.World, e ecs.Entity) mgl32.Mat4 {
	tr, ok := ecs.Get[Transform](w, e)
	require.True(t, ok)
	return tr.WorldMatrix()
}

func TestThreeLevelChainComposesTranslations(t *testing.T) {
	w := ecs.NewWorld()
	es := chain(w, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 2, 0}, mgl32.Vec3{0, 0, 3})

	u := NewUpdater()
	require.NoError(t, u.UpdateAll(w))
	assert.Equal(t, 3, u.Recomputed())

	leaf := worldOf(t, w, es[2])
	assert.InDelta(t, 1.0, leaf.At(0, 3), 1e-6)
	assert.InDelta(t, 2.0, leaf.At(1, 3), 1e-6)
	assert.InDelta(t, 3.0, leaf.At(2, 3), 1e-6)

	for i := 1; i < len(es); i++ {
		parent := worldOf(t, w, es[i-1])
		tr, _ := ecs.Get[Transform](w, es[i])
		expected := parent.Mul4(tr.LocalMatrix())
		assert.True(t, expected.ApproxEqualThreshold(tr.WorldMatrix(), 1e-6))
	}
}

func TestChainWithRotationAndScale(t *testing.T) {
	w := ecs.NewWorld()
	root := w.CreateEntity()
	ecs.Add(w, root, NewTransform(WithPosition(5, 0, 0), WithRotation(0, mgl32.DegToRad(90), 0), WithScale(2, 2, 2)))
	child := w.CreateEntity()
	ecs.Add(w, child, NewTransform(WithPosition(1, 0, 0), WithParent(root)))

	require.NoError(t, UpdateAll(w))

	// the child's origin is rotated onto -z and scaled by 2 before the root translation
	m := worldOf(t, w, child)
	assert.InDelta(t, 5.0, m.At(0, 3), 1e-5)
	assert.InDelta(t, 0.0, m.At(1, 3), 1e-5)
	assert.InDelta(t, -2.0, m.At(2, 3), 1e-5)
}

func TestUpdateAllIsIdempotent(t *testing.T) {
	w := ecs.NewWorld()
	es := chain(w, mgl32.Vec3{1, 1, 1}, mgl32.Vec3{2, 0, 0}, mgl32.Vec3{0, 0, -4})

	u := NewUpdater()
	require.NoError(t, u.UpdateAll(w))
	first := make([]mgl32.Mat4, len(es))
	for i, e := range es {
		first[i] = worldOf(t, w, e)
	}

	require.NoError(t, u.UpdateAll(w))
	assert.Equal(t, 0, u.Recomputed())
	for i, e := range es {
		assert.Equal(t, first[i], worldOf(t, w, e))
		tr, _ := ecs.Get[Transform](w, e)
		assert.False(t, tr.Dirty())
	}
}

func TestDirtyParentPropagatesToCleanChildren(t *testing.T) {
	w := ecs.NewWorld()
	es := chain(w, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{1, 0, 0})
	u := NewUpdater()
	require.NoError(t, u.UpdateAll(w))

	root, _ := ecs.Get[Transform](w, es[0])
	root.SetPosition(mgl32.Vec3{10, 0, 0})

	require.NoError(t, u.UpdateAll(w))
	assert.Equal(t, 3, u.Recomputed())
	assert.InDelta(t, 12.0, worldOf(t, w, es[2]).At(0, 3), 1e-6)
}

func TestLateDirtiedChildUnderCleanParent(t *testing.T) {
	w := ecs.NewWorld()
	es := chain(w, mgl32.Vec3{3, 0, 0}, mgl32.Vec3{1, 0, 0})
	u := NewUpdater()
	require.NoError(t, u.UpdateAll(w))

	child, _ := ecs.Get[Transform](w, es[1])
	child.SetPosition(mgl32.Vec3{0, 4, 0})

	require.NoError(t, u.UpdateAll(w))
	assert.Equal(t, 1, u.Recomputed())
	m := worldOf(t, w, es[1])
	assert.InDelta(t, 3.0, m.At(0, 3), 1e-6)
	assert.InDelta(t, 4.0, m.At(1, 3), 1e-6)
}

func TestMissingParentIsTreatedAsRoot(t *testing.T) {
	w := ecs.NewWorld()
	ghost := w.CreateEntity()
	e := w.CreateEntity()
	ecs.Add(w, e, NewTransform(WithPosition(1, 2, 3), WithParent(ghost)))

	require.NoError(t, UpdateAll(w))
	assert.InDelta(t, 2.0, worldOf(t, w, e).At(1, 3), 1e-6)
}

func TestOrphanedChildFallsBackToLocal(t *testing.T) {
	detach := map[string]func(w *ecs.World, parent ecs.Entity){
		"destroyed parent": func(w *ecs.World, parent ecs.Entity) { w.DestroyEntity(parent) },
		"parent loses transform": func(w *ecs.World, parent ecs.Entity) {
			ecs.Remove[Transform](w, parent)
		},
	}
	for name, fn := range detach {
		t.Run(name, func(t *testing.T) {
			w := ecs.NewWorld()
			ids := chain(w, mgl32.Vec3{10, 0, 0}, mgl32.Vec3{1, 0, 0})
			require.NoError(t, UpdateAll(w))
			require.InDelta(t, 11.0, worldOf(t, w, ids[1]).At(0, 3), 1e-5)

			fn(w, ids[0])
			u := NewUpdater()
			require.NoError(t, u.UpdateAll(w))
			assert.Equal(t, 1, u.Recomputed())
			assert.InDelta(t, 1.0, worldOf(t, w, ids[1]).At(0, 3), 1e-5)

			require.NoError(t, u.UpdateAll(w))
			assert.Equal(t, 0, u.Recomputed(), "an orphan is recomputed once")
		})
	}
}

func TestCycleIsDetected(t *testing.T) {
	w := ecs.NewWorld()
	a := w.CreateEntity()
	b := w.CreateEntity()
	c := w.CreateEntity()
	ecs.Add(w, a, NewTransform(WithParent(c)))
	ecs.Add(w, b, NewTransform(WithParent(a)))
	ecs.Add(w, c, NewTransform(WithParent(b)))
	root := w.CreateEntity()
	ecs.Add(w, root, NewTransform(WithPosition(1, 0, 0)))

	err := UpdateAll(w)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCycleDetected))

	// nothing is touched when the hierarchy is rejected
	tr, _ := ecs.Get[Transform](w, root)
	assert.True(t, tr.Dirty())
}

func TestSelfParentIsACycle(t *testing.T) {
	w := ecs.NewWorld()
	e := w.CreateEntity()
	tr := ecs.Add(w, e, NewTransform())
	tr.SetParent(e)

	assert.ErrorIs(t, UpdateAll(w), ErrCycleDetected)
}

func TestSettersMarkDirty(t *testing.T) {
	tr := NewTransform()
	w := ecs.NewWorld()
	e := w.CreateEntity()
	p := ecs.Add(w, e, tr)
	require.NoError(t, UpdateAll(w))
	require.False(t, p.Dirty())

	setters := []func(){
		func() { p.SetPosition(mgl32.Vec3{1, 0, 0}) },
		func() { p.SetRotation(mgl32.Vec3{0, 1, 0}) },
		func() { p.SetScale(mgl32.Vec3{2, 2, 2}) },
		func() { p.SetParent(ecs.NoEntity) },
	}
	for _, set := range setters {
		set()
		assert.True(t, p.Dirty())
		require.NoError(t, UpdateAll(w))
		assert.False(t, p.Dirty())
	}
	assert.Equal(t, mgl32.Vec3{2, 2, 2}, p.Scale())
}
