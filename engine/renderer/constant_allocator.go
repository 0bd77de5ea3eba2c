package renderer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/device"
	"github.com/gogpu/gputypes"
)

// DefaultConstantBudget is the per-slot constant memory budget: room for the frame block and
// a little over a thousand draws.
const DefaultConstantBudget = 256 * 1024

var (
	// ErrOutOfSpace is returned when an allocation does not fit in what is left of the frame budget.
	ErrOutOfSpace = errors.New("constant allocator out of space")

	// ErrInvalidAllocation is returned for zero-sized allocations and allocations larger than a
	// whole frame budget.
	ErrInvalidAllocation = errors.New("invalid constant allocation")
)

// constantAllocator is the implementation of the ConstantAllocator interface.
type constantAllocator struct {
	mu *sync.Mutex

	backend device.GraphicsBackend
	buffer  device.BufferID
	// staging mirrors the whole upload buffer; each slot owns budget bytes starting at slot*budget
	staging []byte
	budget  uint64
	slot    int
	cursor  uint64
}

// ConstantAllocator is a linear, frame-scoped allocator of constant buffer memory. One upload
// buffer is split into one region per frame slot; allocations bump a cursor inside the current
// slot's region and are only released all at once by Reset.
//
// A slot must only be Reset once the GPU has finished the slot's previous frame, which the
// Device guarantees by the time BeginFrame returns.
type ConstantAllocator interface {
	// Reset rewinds the cursor of a frame slot and makes it the current slot.
	//
	// Parameters:
	//   - slot: the frame slot, in [0, device.FrameCount)
	Reset(slot int)

	// Allocate bump-allocates size bytes, rounded up to device.ConstantAlignment, from the current slot.
	//
	// Parameters:
	//   - size: the byte size of the constant block
	//
	// Returns:
	//   - device.GPUAddress: the GPU range to bind
	//   - []byte: the CPU view to write the block into, len(size)
	//   - error: ErrInvalidAllocation or ErrOutOfSpace; nothing is allocated on error
	Allocate(size uint64) (device.GPUAddress, []byte, error)

	// Flush uploads everything written to the current slot since Reset.
	//
	// Returns:
	//   - error: an error if the upload fails
	Flush() error

	// Budget returns the per-slot byte budget.
	//
	// Returns:
	//   - uint64: the budget
	Budget() uint64

	// Used returns the bytes allocated from the current slot.
	//
	// Returns:
	//   - uint64: the used bytes, always a multiple of device.ConstantAlignment
	Used() uint64

	// Buffer returns the backing upload buffer.
	//
	// Returns:
	//   - device.BufferID: the buffer
	Buffer() device.BufferID

	// Release destroys the backing buffer.
	Release()
}

var _ ConstantAllocator = &constantAllocator{}

// NewConstantAllocator creates the backing upload buffer holding device.FrameCount slot regions.
//
// Parameters:
//   - backend: the backend owning the buffer
//   - budget: the per-slot budget in bytes, rounded up to device.ConstantAlignment
//
// Returns:
//   - ConstantAllocator: the allocator, with slot 0 current
//   - error: an error if the budget is zero or the buffer cannot be created
func NewConstantAllocator(backend device.GraphicsBackend, budget uint64) (ConstantAllocator, error) {
	if budget == 0 {
		return nil, fmt.Errorf("%w: constant budget must be non-zero", device.ErrInvalidArgument)
	}
	budget = common.AlignUp(budget, device.ConstantAlignment)
	total := budget * device.FrameCount

	id, err := backend.CreateBuffer(device.BufferDescriptor{
		Label: "frame_constants",
		Size:  total,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("creating %d byte constant buffer: %w", total, err)
	}

	return &constantAllocator{
		mu:      &sync.Mutex{},
		backend: backend,
		buffer:  id,
		staging: make([]byte, total),
		budget:  budget,
	}, nil
}

func (a *constantAllocator) Reset(slot int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if slot < 0 || slot >= device.FrameCount {
		return
	}
	a.slot = slot
	a.cursor = 0
}

func (a *constantAllocator) Allocate(size uint64) (device.GPUAddress, []byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if size == 0 || size > a.budget {
		return device.GPUAddress{}, nil, fmt.Errorf("%w: %d bytes against a %d byte frame budget", ErrInvalidAllocation, size, a.budget)
	}
	aligned := common.AlignUp(size, device.ConstantAlignment)
	if a.cursor+aligned > a.budget {
		return device.GPUAddress{}, nil, fmt.Errorf("%w: %d bytes requested, %d of %d left in slot %d",
			ErrOutOfSpace, aligned, a.budget-a.cursor, a.budget, a.slot)
	}

	offset := uint64(a.slot)*a.budget + a.cursor
	a.cursor += aligned

	cpu := a.staging[offset : offset+size : offset+size]
	clear(cpu)
	return device.GPUAddress{Buffer: a.buffer, Offset: offset, Size: size}, cpu, nil
}

func (a *constantAllocator) Flush() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cursor == 0 {
		return nil
	}
	base := uint64(a.slot) * a.budget
	if err := a.backend.WriteBuffer(a.buffer, base, a.staging[base:base+a.cursor]); err != nil {
		return fmt.Errorf("uploading %d constant bytes for slot %d: %w", a.cursor, a.slot, err)
	}
	return nil
}

func (a *constantAllocator) Budget() uint64 {
	return a.budget
}

func (a *constantAllocator) Used() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cursor
}

func (a *constantAllocator) Buffer() device.BufferID {
	return a.buffer
}

func (a *constantAllocator) Release() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.buffer != 0 {
		a.backend.DestroyBuffer(a.buffer)
		a.buffer = 0
	}
}
