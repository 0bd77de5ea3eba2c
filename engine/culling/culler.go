// Package culling selects the renderable entities whose world-space bounds intersect a view frustum.
package culling

import (
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/ecs"
	"github.com/Carmen-Shannon/oxy-forward/engine/transform"
	"github.com/go-gl/mathgl/mgl32"
)

// DefaultParallelThreshold is the candidate count below which culling always runs inline.
const DefaultParallelThreshold = 1024

// Culler tests renderable entities against a frustum.
type Culler interface {
	// Cull returns the visible entities in entity creation order.
	// Entities need a Transform, a Renderable and a BoundingBox to be considered.
	// Renderables with Visible == false are skipped.
	//
	// Parameters:
	//   - world: the entity world to read
	//   - frustum: the view frustum, extracted from a [0, 1] depth view-projection
	//
	// Returns:
	//   - []ecs.Entity: the visible entities
	Cull(world *ecs.World, frustum common.Frustum) []ecs.Entity

	// Workers returns the number of pool workers, 0 when culling runs inline.
	//
	// Returns:
	//   - int: the worker count
	Workers() int
}

type culler struct {
	mu        *sync.Mutex
	workers   int
	threshold int
	pool      worker.DynamicWorkerPool
}

var _ Culler = &culler{}

type candidate struct {
	entity  ecs.Entity
	center  mgl32.Vec3
	extents mgl32.Vec3
}

// NewCuller creates a Culler. Without WithWorkerPool the culler runs on the calling goroutine.
//
// Parameters:
//   - options: builder options
//
// Returns:
//   - Culler: the new culler
func NewCuller(options ...CullerBuilderOption) Culler {
	c := &culler{
		mu:        &sync.Mutex{},
		threshold: DefaultParallelThreshold,
	}
	for _, option := range options {
		option(c)
	}
	if c.workers > 0 {
		c.pool = worker.NewDynamicWorkerPool(c.workers, 256, 1*time.Second)
	}
	return c
}

// Cull runs the sequential culler.
//
// Parameters:
//   - world: the entity world to read
//   - frustum: the view frustum
//
// Returns:
//   - []ecs.Entity: the visible entities in entity creation order
func Cull(world *ecs.World, frustum common.Frustum) []ecs.Entity {
	return testCandidates(gather(world), &frustum)
}

func (c *culler) Workers() int {
	return c.workers
}

func (c *culler) Cull(world *ecs.World, frustum common.Frustum) []ecs.Entity {
	c.mu.Lock()
	defer c.mu.Unlock()

	cands := gather(world)
	if c.pool == nil || len(cands) < c.threshold {
		return testCandidates(cands, &frustum)
	}

	chunkSize := (len(cands) + c.workers - 1) / c.workers
	chunks := make([][]ecs.Entity, 0, c.workers)
	for start := 0; start < len(cands); start += chunkSize {
		chunks = append(chunks, nil)
	}

	// pool.Wait blocks until workers idle out, so each call joins on its own WaitGroup.
	var wg sync.WaitGroup
	for i := range chunks {
		start := i * chunkSize
		end := min(start+chunkSize, len(cands))
		part := cands[start:end]
		wg.Add(1)
		c.pool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				chunks[i] = testCandidates(part, &frustum)
				return nil, nil
			},
		})
	}
	wg.Wait()

	visible := make([]ecs.Entity, 0, len(cands))
	for _, chunk := range chunks {
		visible = append(visible, chunk...)
	}
	return visible
}

// gather resolves world-space bounds for every visible renderable.
// The world matrix is the one cached by the last transform update.
func gather(world *ecs.World) []candidate {
	var out []candidate
	ecs.Each3(world, func(e ecs.Entity, t *transform.Transform, r *ecs.Renderable, b *ecs.BoundingBox) {
		if !r.Visible {
			return
		}
		m := t.WorldMatrix()
		box := b.AABB()
		out = append(out, candidate{
			entity:  e,
			center:  common.TransformPoint(m, box.Center()),
			extents: box.Extents().Mul(common.MaxBasisScale(m)),
		})
	})
	return out
}

func testCandidates(cands []candidate, f *common.Frustum) []ecs.Entity {
	out := make([]ecs.Entity, 0, len(cands))
	for _, c := range cands {
		if f.TestBox(c.center, c.extents) {
			out = append(out, c.entity)
		}
	}
	return out
}
