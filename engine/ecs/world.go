// Package ecs provides the entity/component storage the frame pipeline reads from.
// Components are plain structs stored by pointer; systems enumerate entities that carry
// a given component set in entity creation order.
package ecs

import (
	"reflect"
	"slices"
)

// Entity is an opaque entity identifier. The zero value is never issued and means "no entity".
type Entity uint32

// NoEntity is the null entity reference.
const NoEntity Entity = 0

// store is the type-erased view of a componentStore used for entity destruction.
type store interface {
	remove(e Entity)
	len() int
}

type componentStore[T any] struct {
	items map[Entity]*T
}

func (s *componentStore[T]) remove(e Entity) { delete(s.items, e) }
func (s *componentStore[T]) len() int        { return len(s.items) }

// World owns entities and their components. A World is not safe for concurrent mutation;
// the frame pipeline only touches it from the driving goroutine.
type World struct {
	next     Entity
	entities []Entity
	alive    map[Entity]struct{}
	stores   map[reflect.Type]store
}

// NewWorld creates an empty World.
//
// Returns:
//   - *World: the new world
func NewWorld() *World {
	return &World{
		alive:  make(map[Entity]struct{}),
		stores: make(map[reflect.Type]store),
	}
}

// CreateEntity issues a new entity identifier.
//
// Returns:
//   - Entity: the new entity, never NoEntity
func (w *World) CreateEntity() Entity {
	w.next++
	e := w.next
	w.entities = append(w.entities, e)
	w.alive[e] = struct{}{}
	return e
}

// DestroyEntity removes an entity and all of its components. Destroying an unknown entity is a no-op.
//
// Parameters:
//   - e: the entity to destroy
func (w *World) DestroyEntity(e Entity) {
	if _, ok := w.alive[e]; !ok {
		return
	}
	delete(w.alive, e)
	for _, s := range w.stores {
		s.remove(e)
	}
	if i := slices.Index(w.entities, e); i >= 0 {
		w.entities = slices.Delete(w.entities, i, i+1)
	}
}

// Alive reports whether the entity exists.
//
// Parameters:
//   - e: the entity to check
//
// Returns:
//   - bool: true if e was created and not destroyed
func (w *World) Alive(e Entity) bool {
	_, ok := w.alive[e]
	return ok
}

// Entities returns a copy of all live entities in creation order.
//
// Returns:
//   - []Entity: the live entities
func (w *World) Entities() []Entity {
	return slices.Clone(w.entities)
}

// EntityCount returns the number of live entities.
//
// Returns:
//   - int: the live entity count
func (w *World) EntityCount() int {
	return len(w.entities)
}

func storeFor[T any](w *World, create bool) *componentStore[T] {
	key := reflect.TypeFor[T]()
	s, ok := w.stores[key]
	if !ok {
		if !create {
			return nil
		}
		cs := &componentStore[T]{items: make(map[Entity]*T)}
		w.stores[key] = cs
		return cs
	}
	return s.(*componentStore[T])
}

// Add attaches a component to an entity, replacing any existing component of the same type.
// Adding to an entity that is not alive does nothing and returns nil.
//
// Parameters:
//   - w: the world
//   - e: the entity
//   - c: the component value to store
//
// Returns:
//   - *T: a pointer to the stored component
func Add[T any](w *World, e Entity, c T) *T {
	if !w.Alive(e) {
		return nil
	}
	s := storeFor[T](w, true)
	p := &c
	s.items[e] = p
	return p
}

// Get returns the component of type T attached to an entity.
//
// Parameters:
//   - w: the world
//   - e: the entity
//
// Returns:
//   - *T: the component, or nil
//   - bool: true if the component exists
func Get[T any](w *World, e Entity) (*T, bool) {
	s := storeFor[T](w, false)
	if s == nil {
		return nil, false
	}
	c, ok := s.items[e]
	return c, ok
}

// Has reports whether an entity carries a component of type T.
//
// Parameters:
//   - w: the world
//   - e: the entity
//
// Returns:
//   - bool: true if the component exists
func Has[T any](w *World, e Entity) bool {
	_, ok := Get[T](w, e)
	return ok
}

// Remove detaches the component of type T from an entity, if present.
//
// Parameters:
//   - w: the world
//   - e: the entity
func Remove[T any](w *World, e Entity) {
	if s := storeFor[T](w, false); s != nil {
		s.remove(e)
	}
}

// Count returns how many entities carry a component of type T.
//
// Parameters:
//   - w: the world
//
// Returns:
//   - int: the number of components of type T
func Count[T any](w *World) int {
	if s := storeFor[T](w, false); s != nil {
		return s.len()
	}
	return 0
}

// Each calls fn for every entity carrying a T, in entity creation order.
//
// Parameters:
//   - w: the world
//   - fn: the visitor
func Each[T any](w *World, fn func(e Entity, a *T)) {
	sa := storeFor[T](w, false)
	if sa == nil {
		return
	}
	for _, e := range w.entities {
		if a, ok := sa.items[e]; ok {
			fn(e, a)
		}
	}
}

// Each2 calls fn for every entity carrying both an A and a B, in entity creation order.
//
// Parameters:
//   - w: the world
//   - fn: the visitor
func Each2[A, B any](w *World, fn func(e Entity, a *A, b *B)) {
	sa, sb := storeFor[A](w, false), storeFor[B](w, false)
	if sa == nil || sb == nil {
		return
	}
	for _, e := range w.entities {
		a, ok := sa.items[e]
		if !ok {
			continue
		}
		if b, ok := sb.items[e]; ok {
			fn(e, a, b)
		}
	}
}

// Each3 calls fn for every entity carrying an A, a B and a C, in entity creation order.
//
// Parameters:
//   - w: the world
//   - fn: the visitor
func Each3[A, B, C any](w *World, fn func(e Entity, a *A, b *B, c *C)) {
	sa, sb, sc := storeFor[A](w, false), storeFor[B](w, false), storeFor[C](w, false)
	if sa == nil || sb == nil || sc == nil {
		return
	}
	for _, e := range w.entities {
		a, ok := sa.items[e]
		if !ok {
			continue
		}
		b, ok := sb.items[e]
		if !ok {
			continue
		}
		if c, ok := sc.items[e]; ok {
			fn(e, a, b, c)
		}
	}
}
