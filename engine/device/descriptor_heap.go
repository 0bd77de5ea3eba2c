package device

import (
	"fmt"
	"sync"
)

// DescriptorHandle is a contiguous range of descriptor slots.
type DescriptorHandle struct {
	Index uint32
	Count uint32
}

// DescriptorHeap hands out descriptor slots. The heap is split into one persistent region for
// long-lived resources (textures, the shadow map) followed by one per-frame region per frame slot
// that is rewound each time the slot begins recording.
type DescriptorHeap interface {
	// AllocatePersistent reserves n contiguous slots in the persistent region.
	//
	// Parameters:
	//   - n: the slot count, at least 1
	//
	// Returns:
	//   - DescriptorHandle: the reserved range
	//   - error: ErrInvalidArgument for n == 0 or n beyond the region, ErrDescriptorHeapExhausted when full
	AllocatePersistent(n uint32) (DescriptorHandle, error)

	// FreePersistent returns a persistent range to the heap.
	//
	// Parameters:
	//   - h: a handle returned by AllocatePersistent
	FreePersistent(h DescriptorHandle)

	// AllocateFrame reserves n contiguous slots in a frame slot's region.
	//
	// Parameters:
	//   - slot: the frame slot
	//   - n: the slot count, at least 1
	//
	// Returns:
	//   - DescriptorHandle: the reserved range
	//   - error: ErrInvalidArgument for a bad slot, n == 0 or n beyond one frame's budget,
	//     ErrDescriptorHeapExhausted when the frame region is full
	AllocateFrame(slot int, n uint32) (DescriptorHandle, error)

	// ResetFrame rewinds a frame slot's region.
	//
	// Parameters:
	//   - slot: the frame slot
	ResetFrame(slot int)

	// PersistentInUse returns the number of allocated persistent slots.
	PersistentInUse() uint32

	// FrameInUse returns the number of allocated slots in a frame region.
	FrameInUse(slot int) uint32

	// Capacity returns the persistent and per-frame region sizes.
	Capacity() (persistent, perFrame uint32)
}

type descriptorHeap struct {
	mu *sync.Mutex

	persistentCap uint32
	perFrameCap   uint32

	// free lists sorted, non-overlapping ranges of the persistent region
	free       []DescriptorHandle
	persistent uint32

	frameCursor []uint32
}

var _ DescriptorHeap = &descriptorHeap{}

// NewDescriptorHeap creates a heap with a persistent region and frameCount per-frame regions.
//
// Parameters:
//   - persistent: slots in the persistent region
//   - perFrame: slots in each per-frame region
//   - frameCount: the number of frame slots
//
// Returns:
//   - DescriptorHeap: the new heap
func NewDescriptorHeap(persistent, perFrame uint32, frameCount int) DescriptorHeap {
	h := &descriptorHeap{
		mu:            &sync.Mutex{},
		persistentCap: persistent,
		perFrameCap:   perFrame,
		frameCursor:   make([]uint32, frameCount),
	}
	if persistent > 0 {
		h.free = []DescriptorHandle{{Index: 0, Count: persistent}}
	}
	return h
}

func (h *descriptorHeap) AllocatePersistent(n uint32) (DescriptorHandle, error) {
	if n == 0 || n > h.persistentCap {
		return DescriptorHandle{}, fmt.Errorf("%w: %d persistent descriptors (capacity %d)", ErrInvalidArgument, n, h.persistentCap)
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, r := range h.free {
		if r.Count < n {
			continue
		}
		out := DescriptorHandle{Index: r.Index, Count: n}
		if r.Count == n {
			h.free = append(h.free[:i], h.free[i+1:]...)
		} else {
			h.free[i] = DescriptorHandle{Index: r.Index + n, Count: r.Count - n}
		}
		h.persistent += n
		return out, nil
	}
	return DescriptorHandle{}, fmt.Errorf("%w: persistent region has %d of %d in use, requested %d",
		ErrDescriptorHeapExhausted, h.persistent, h.persistentCap, n)
}

func (h *descriptorHeap) FreePersistent(d DescriptorHandle) {
	if d.Count == 0 || d.Index+d.Count > h.persistentCap {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	i := 0
	for i < len(h.free) && h.free[i].Index < d.Index {
		i++
	}
	h.free = append(h.free, DescriptorHandle{})
	copy(h.free[i+1:], h.free[i:])
	h.free[i] = d
	h.persistent -= d.Count

	// coalesce with neighbours
	if i+1 < len(h.free) && h.free[i].Index+h.free[i].Count == h.free[i+1].Index {
		h.free[i].Count += h.free[i+1].Count
		h.free = append(h.free[:i+1], h.free[i+2:]...)
	}
	if i > 0 && h.free[i-1].Index+h.free[i-1].Count == h.free[i].Index {
		h.free[i-1].Count += h.free[i].Count
		h.free = append(h.free[:i], h.free[i+1:]...)
	}
}

func (h *descriptorHeap) AllocateFrame(slot int, n uint32) (DescriptorHandle, error) {
	if slot < 0 || slot >= len(h.frameCursor) {
		return DescriptorHandle{}, fmt.Errorf("%w: frame slot %d", ErrInvalidArgument, slot)
	}
	if n == 0 || n > h.perFrameCap {
		return DescriptorHandle{}, fmt.Errorf("%w: %d frame descriptors (budget %d)", ErrInvalidArgument, n, h.perFrameCap)
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	cur := h.frameCursor[slot]
	if cur+n > h.perFrameCap {
		return DescriptorHandle{}, fmt.Errorf("%w: frame slot %d has %d of %d in use, requested %d",
			ErrDescriptorHeapExhausted, slot, cur, h.perFrameCap, n)
	}
	h.frameCursor[slot] = cur + n
	base := h.persistentCap + uint32(slot)*h.perFrameCap
	return DescriptorHandle{Index: base + cur, Count: n}, nil
}

func (h *descriptorHeap) ResetFrame(slot int) {
	if slot < 0 || slot >= len(h.frameCursor) {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.frameCursor[slot] = 0
}

func (h *descriptorHeap) PersistentInUse() uint32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.persistent
}

func (h *descriptorHeap) FrameInUse(slot int) uint32 {
	if slot < 0 || slot >= len(h.frameCursor) {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.frameCursor[slot]
}

func (h *descriptorHeap) Capacity() (persistent, perFrame uint32) {
	return h.persistentCap, h.perFrameCap
}
