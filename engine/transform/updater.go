package transform

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/ecs"
	"github.com/go-gl/mathgl/mgl32"
)

// ErrCycleDetected is returned when a Parent chain loops back on itself.
var ErrCycleDetected = errors.New("transform hierarchy cycle detected")

// Updater recomputes world matrices for the transform hierarchy.
type Updater interface {
	// UpdateAll walks every root transform depth-first and recomputes the world matrix of each
	// dirty node (and every descendant of a recomputed node) as parentWorld * local.
	// Clean nodes supply their cached world matrix to their children. A parent reference to an
	// entity without a Transform makes the node a root for this pass, and a node whose effective
	// parent changed that way is recomputed.
	// If any Parent chain loops, no matrix is touched and ErrCycleDetected is returned.
	//
	// Parameters:
	//   - world: the entity world to update
	//
	// Returns:
	//   - error: ErrCycleDetected (wrapped with the offending entity) if the hierarchy has a cycle
	UpdateAll(world *ecs.World) error

	// Recomputed returns how many world matrices the last UpdateAll recomputed.
	//
	// Returns:
	//   - int: recomputed node count
	Recomputed() int
}

type updater struct {
	children   map[ecs.Entity][]ecs.Entity
	roots      []ecs.Entity
	nodes      map[ecs.Entity]*Transform
	recomputed int
}

var _ Updater = &updater{}

// NewUpdater creates a hierarchy Updater. The children index is rebuilt on every UpdateAll
// and its backing storage is reused between frames.
//
// Returns:
//   - Updater: the new updater
func NewUpdater() Updater {
	return &updater{
		children: make(map[ecs.Entity][]ecs.Entity),
		nodes:    make(map[ecs.Entity]*Transform),
	}
}

// UpdateAll runs a single hierarchy pass with a throwaway Updater.
//
// Parameters:
//   - world: the entity world to update
//
// Returns:
//   - error: ErrCycleDetected if the hierarchy has a cycle
func UpdateAll(world *ecs.World) error {
	return NewUpdater().UpdateAll(world)
}

func (u *updater) Recomputed() int {
	return u.recomputed
}

func (u *updater) UpdateAll(world *ecs.World) error {
	u.recomputed = 0
	u.buildIndex(world)

	if err := u.checkReachable(); err != nil {
		return err
	}

	for _, root := range u.roots {
		u.visit(root, mgl32.Ident4(), false)
	}
	common.Logger().Debug().Int("recomputed", u.recomputed).Int("nodes", len(u.nodes)).Msg("transform hierarchy updated")
	return nil
}

// buildIndex collects all transforms and indexes children by parent in creation order.
func (u *updater) buildIndex(world *ecs.World) {
	clear(u.nodes)
	for k, v := range u.children {
		u.children[k] = v[:0]
	}
	u.roots = u.roots[:0]

	ecs.Each(world, func(e ecs.Entity, t *Transform) {
		u.nodes[e] = t
	})
	ecs.Each(world, func(e ecs.Entity, t *Transform) {
		parent := t.parent
		if _, ok := u.nodes[parent]; !ok {
			parent = ecs.NoEntity
		}
		// a parent that lost its transform leaves a world matrix composed against it
		if parent != t.resolved {
			t.resolved = parent
			t.dirty = true
		}
		if parent == ecs.NoEntity {
			u.roots = append(u.roots, e)
			return
		}
		u.children[parent] = append(u.children[parent], e)
	})
}

// checkReachable verifies that every transform hangs off a root. Nodes on a Parent cycle
// (and their descendants) are unreachable from any root.
func (u *updater) checkReachable() error {
	reached := 0
	stack := append([]ecs.Entity(nil), u.roots...)
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		reached++
		stack = append(stack, u.children[e]...)
	}
	if reached == len(u.nodes) {
		return nil
	}

	for e := range u.nodes {
		if u.onCycle(e) {
			return fmt.Errorf("%w: entity %d", ErrCycleDetected, e)
		}
	}
	return ErrCycleDetected
}

// onCycle reports whether following e's Parent chain returns to e.
func (u *updater) onCycle(e ecs.Entity) bool {
	seen := make(map[ecs.Entity]struct{}, 8)
	cur := e
	for {
		t, ok := u.nodes[cur]
		if !ok || t.parent == ecs.NoEntity {
			return false
		}
		if t.parent == e {
			return true
		}
		if _, dup := seen[cur]; dup {
			return false
		}
		seen[cur] = struct{}{}
		cur = t.parent
	}
}

func (u *updater) visit(e ecs.Entity, parentWorld mgl32.Mat4, parentRecomputed bool) {
	t := u.nodes[e]
	recomputed := false
	if t.dirty || parentRecomputed {
		t.world = parentWorld.Mul4(t.LocalMatrix())
		t.dirty = false
		u.recomputed++
		recomputed = true
	}
	for _, child := range u.children[e] {
		u.visit(child, t.world, recomputed)
	}
}
