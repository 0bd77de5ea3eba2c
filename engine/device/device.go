package device

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/gogpu/gputypes"
)

// DefaultFenceTimeout bounds every fence wait. A GPU that misses it is treated as lost.
const DefaultFenceTimeout = 5 * time.Second

// SlotState is the lifecycle state of a frame slot.
type SlotState int

const (
	// SlotIdle means the GPU has finished with the slot and the CPU may record into it.
	SlotIdle SlotState = iota
	// SlotRecording means the CPU is recording the slot's commands.
	SlotRecording
	// SlotSubmitted means the slot's commands were submitted and may still be executing.
	SlotSubmitted
)

func (s SlotState) String() string {
	switch s {
	case SlotIdle:
		return "idle"
	case SlotRecording:
		return "recording"
	case SlotSubmitted:
		return "submitted"
	default:
		return "unknown"
	}
}

// Device owns a GraphicsBackend, its back buffers and the depth buffer, and synchronizes the CPU
// with the GPU so that a frame slot is never re-recorded while the GPU may still read it.
type Device interface {
	// Backend returns the graphics backend.
	//
	// Returns:
	//   - GraphicsBackend: the backend
	Backend() GraphicsBackend

	// Capabilities returns the backend capabilities.
	//
	// Returns:
	//   - Capabilities: the capabilities
	Capabilities() Capabilities

	// DescriptorHeap returns the device's descriptor heap.
	//
	// Returns:
	//   - DescriptorHeap: the heap
	DescriptorHeap() DescriptorHeap

	// FrameIndex returns the frame slot currently being (or about to be) recorded.
	//
	// Returns:
	//   - int: the slot index
	FrameIndex() int

	// SlotState returns the state of a frame slot.
	//
	// Parameters:
	//   - slot: the slot index
	//
	// Returns:
	//   - SlotState: the slot state
	SlotState(slot int) SlotState

	// FenceValue returns the fence value tracked for a frame slot.
	//
	// Parameters:
	//   - slot: the slot index
	//
	// Returns:
	//   - uint64: the fence value
	FenceValue(slot int) uint64

	// Size returns the back buffer size.
	//
	// Returns:
	//   - width, height: the size in pixels
	Size() (width, height uint32)

	// DepthTarget returns the depth buffer matching the back buffers.
	//
	// Returns:
	//   - TextureID: the depth texture
	DepthTarget() TextureID

	// BeginFrame starts recording the current frame slot: it rewinds the slot's per-frame
	// descriptors, resets command recording and transitions the back buffer to a render target.
	//
	// Returns:
	//   - error: ErrFrameState if the slot is already recording, ErrDeviceLost on fence timeout
	BeginFrame() error

	// EndFrame submits and presents the current slot, signals its fence, advances to the next
	// back buffer and waits until the GPU has finished that buffer's previous frame.
	//
	// Returns:
	//   - error: ErrFrameState if no frame is recording, ErrDeviceLost on fence timeout
	EndFrame() error

	// WaitForGPU blocks until all submitted work has completed.
	//
	// Returns:
	//   - error: ErrDeviceLost on fence timeout
	WaitForGPU() error

	// ResizeBuffers recreates the back buffers and depth buffer. Zero dimensions are ignored.
	//
	// Parameters:
	//   - width, height: the new size in pixels
	//
	// Returns:
	//   - error: an error if the resources cannot be recreated
	ResizeBuffers(width, height uint32) error

	// Release waits for the GPU and destroys the device's resources and the backend.
	Release()
}

type device struct {
	mu *sync.Mutex

	backend     GraphicsBackend
	backendName string
	surface     Surface
	heap        DescriptorHeap

	width       uint32
	height      uint32
	presentMode PresentMode

	fenceTimeout time.Duration
	heapPersist  uint32
	heapPerFrame uint32
	depthTarget  TextureID
	frameIndex   int
	fenceValues  [FrameCount]uint64
	submitted    [FrameCount]uint64
	slots        [FrameCount]SlotState
	lost         bool
}

var _ Device = &device{}

// NewDevice selects and initializes a backend, creates the depth buffer and primes the fences.
// Without WithBackend or WithBackendName the highest priority registered backend is used.
//
// Parameters:
//   - options: builder options
//
// Returns:
//   - Device: the initialized device
//   - error: an *InitError describing the failed step
func NewDevice(options ...DeviceBuilderOption) (Device, error) {
	d := &device{
		mu:           &sync.Mutex{},
		fenceTimeout: DefaultFenceTimeout,
		heapPersist:  256,
		heapPerFrame: 1024,
	}
	for _, option := range options {
		option(d)
	}

	if d.backend == nil {
		var err error
		if d.backendName != "" {
			d.backend, err = Get(d.backendName)
		} else {
			d.backend, err = Default()
		}
		if err != nil {
			return nil, NewInitError("backend selection", err)
		}
	}

	if (d.width == 0 || d.height == 0) && d.surface != nil {
		w, h := d.surface.FramebufferSize()
		d.width, d.height = uint32(max(w, 0)), uint32(max(h, 0))
	}
	if d.width == 0 || d.height == 0 {
		d.width, d.height = 1280, 720
	}

	if err := d.backend.Init(d.surface, d.width, d.height, d.presentMode); err != nil {
		return nil, NewInitError(d.backend.Name()+" init", err)
	}
	d.heap = NewDescriptorHeap(d.heapPersist, d.heapPerFrame, FrameCount)

	if err := d.createDepthTarget(); err != nil {
		d.backend.Release()
		return nil, NewInitError("depth target", err)
	}

	d.frameIndex = d.backend.CurrentBackBufferIndex()
	d.fenceValues[d.frameIndex] = 1

	common.Logger().Info().
		Str("backend", d.backend.Name()).
		Uint32("width", d.width).
		Uint32("height", d.height).
		Msg("graphics device initialized")
	return d, nil
}

func (d *device) createDepthTarget() error {
	id, err := d.backend.CreateTexture(TextureDescriptor{
		Label:  "depth_buffer",
		Width:  d.width,
		Height: d.height,
		Format: gputypes.TextureFormatDepth32Float,
		Usage:  gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		return fmt.Errorf("creating %dx%d depth buffer: %w", d.width, d.height, err)
	}
	d.depthTarget = id
	return nil
}

func (d *device) Backend() GraphicsBackend {
	return d.backend
}

func (d *device) Capabilities() Capabilities {
	return d.backend.Capabilities()
}

func (d *device) DescriptorHeap() DescriptorHeap {
	return d.heap
}

func (d *device) FrameIndex() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frameIndex
}

func (d *device) SlotState(slot int) SlotState {
	d.mu.Lock()
	defer d.mu.Unlock()
	if slot < 0 || slot >= FrameCount {
		return SlotIdle
	}
	return d.slots[slot]
}

func (d *device) FenceValue(slot int) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if slot < 0 || slot >= FrameCount {
		return 0
	}
	return d.fenceValues[slot]
}

func (d *device) Size() (width, height uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.width, d.height
}

func (d *device) DepthTarget() TextureID {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.depthTarget
}

func (d *device) BeginFrame() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lost {
		return ErrDeviceLost
	}

	idx := d.frameIndex
	switch d.slots[idx] {
	case SlotRecording:
		return fmt.Errorf("%w: frame slot %d is already recording", ErrFrameState, idx)
	case SlotSubmitted:
		if err := d.waitFor(d.submitted[idx]); err != nil {
			return err
		}
		d.slots[idx] = SlotIdle
	}

	d.heap.ResetFrame(idx)
	if err := d.backend.BeginCommands(idx); err != nil {
		return fmt.Errorf("beginning frame slot %d: %w", idx, err)
	}
	d.backend.TransitionBackBuffer(ResourceStateRenderTarget)
	d.slots[idx] = SlotRecording
	return nil
}

func (d *device) EndFrame() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lost {
		return ErrDeviceLost
	}

	idx := d.frameIndex
	if d.slots[idx] != SlotRecording {
		return fmt.Errorf("%w: frame slot %d is %s, not recording", ErrFrameState, idx, d.slots[idx])
	}

	d.backend.TransitionBackBuffer(ResourceStatePresent)
	if err := d.backend.Submit(); err != nil {
		d.slots[idx] = SlotIdle
		return fmt.Errorf("submitting frame slot %d: %w", idx, err)
	}
	if err := d.backend.Present(); err != nil {
		d.slots[idx] = SlotIdle
		return fmt.Errorf("presenting frame slot %d: %w", idx, err)
	}

	current := d.fenceValues[idx]
	if err := d.backend.Signal(current); err != nil {
		return fmt.Errorf("signaling fence value %d: %w", current, err)
	}
	d.submitted[idx] = current
	d.slots[idx] = SlotSubmitted

	d.frameIndex = d.backend.CurrentBackBufferIndex()
	next := d.frameIndex
	if err := d.waitFor(d.fenceValues[next]); err != nil {
		return err
	}
	if d.slots[next] == SlotSubmitted {
		d.slots[next] = SlotIdle
	}
	d.fenceValues[next] = current + 1
	return nil
}

func (d *device) WaitForGPU() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.waitForGPU()
}

// waitForGPU signals a fresh fence value and blocks until it is reached. Caller must hold the mutex.
func (d *device) waitForGPU() error {
	if d.lost {
		return ErrDeviceLost
	}
	idx := d.frameIndex
	value := d.fenceValues[idx]
	if err := d.backend.Signal(value); err != nil {
		return fmt.Errorf("signaling fence value %d: %w", value, err)
	}
	if err := d.waitFor(value); err != nil {
		return err
	}
	d.fenceValues[idx] = value + 1
	for i := range d.slots {
		if d.slots[i] == SlotSubmitted {
			d.slots[i] = SlotIdle
		}
	}
	return nil
}

// waitFor blocks until the fence reaches value, bounded by the fence timeout.
// Caller must hold the mutex.
func (d *device) waitFor(value uint64) error {
	if d.backend.CompletedValue() >= value {
		return nil
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), d.fenceTimeout)
	defer cancel()
	if err := d.backend.WaitForValue(ctx, value); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			d.lost = true
			common.Logger().Error().
				Uint64("fence", value).
				Uint64("completed", d.backend.CompletedValue()).
				Dur("timeout", d.fenceTimeout).
				Msg("fence wait timed out")
			return fmt.Errorf("%w: fence value %d not reached within %s", ErrDeviceLost, value, d.fenceTimeout)
		}
		return fmt.Errorf("waiting for fence value %d: %w", value, err)
	}
	common.Logger().Debug().
		Uint64("fence", value).
		Dur("waited", time.Since(start)).
		Msg("fence wait")
	return nil
}

func (d *device) ResizeBuffers(width, height uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if width == 0 || height == 0 {
		common.Logger().Debug().Uint32("width", width).Uint32("height", height).Msg("resize skipped for minimized surface")
		return nil
	}
	if d.slots[d.frameIndex] == SlotRecording {
		return fmt.Errorf("%w: cannot resize while frame slot %d is recording", ErrFrameState, d.frameIndex)
	}
	if width == d.width && height == d.height {
		return nil
	}

	if err := d.waitForGPU(); err != nil {
		return err
	}

	if d.depthTarget != 0 {
		d.backend.DestroyTexture(d.depthTarget)
		d.depthTarget = 0
	}
	if err := d.backend.ResizeSwapchain(width, height); err != nil {
		return fmt.Errorf("resizing swapchain to %dx%d: %w", width, height, err)
	}
	d.width, d.height = width, height
	if err := d.createDepthTarget(); err != nil {
		return err
	}

	// every slot continues from the same fence value so signals stay monotonic
	// whichever back buffer the new swapchain starts on
	next := d.fenceValues[d.frameIndex]
	for i := range d.fenceValues {
		d.fenceValues[i] = next
	}
	d.frameIndex = d.backend.CurrentBackBufferIndex()

	common.Logger().Info().Uint32("width", width).Uint32("height", height).Msg("swapchain resized")
	return nil
}

func (d *device) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.lost {
		if err := d.waitForGPU(); err != nil {
			common.Logger().Warn().Err(err).Msg("releasing device without a GPU idle wait")
		}
	}
	if d.depthTarget != 0 {
		d.backend.DestroyTexture(d.depthTarget)
		d.depthTarget = 0
	}
	d.backend.Release()
	common.Logger().Info().Str("backend", d.backend.Name()).Msg("graphics device released")
}
