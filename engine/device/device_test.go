package device_test

import (
	"errors"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-forward/engine/device"
	"github.com/Carmen-Shannon/oxy-forward/engine/device/headless"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHeadlessDevice(t *testing.T, hb *headless.Backend, options ...device.DeviceBuilderOption) device.Device {
	t.Helper()
	options = append([]device.DeviceBuilderOption{device.WithBackend(hb), device.WithSize(320, 240)}, options...)
	d, err := device.NewDevice(options...)
	require.NoError(t, err)
	return d
}

func runFrame(t *testing.T, d device.Device) {
	t.Helper()
	require.NoError(t, d.BeginFrame())
	require.NoError(t, d.EndFrame())
}

func TestRegistryResolvesHeadless(t *testing.T) {
	assert.True(t, device.IsRegistered(device.BackendHeadless))
	assert.Contains(t, device.Available(), device.BackendHeadless)

	b, err := device.Get(device.BackendHeadless)
	require.NoError(t, err)
	assert.Equal(t, device.BackendHeadless, b.Name())

	_, err = device.Get("vulkan-ray-tracing")
	assert.ErrorIs(t, err, device.ErrBackendNotAvailable)
}

func TestRegistryRegisterAndUnregister(t *testing.T) {
	device.Register("test-backend", func() device.GraphicsBackend { return headless.New() })
	assert.True(t, device.IsRegistered("test-backend"))
	device.Unregister("test-backend")
	assert.False(t, device.IsRegistered("test-backend"))
}

func TestNewDeviceByName(t *testing.T) {
	d, err := device.NewDevice(device.WithBackendName(device.BackendHeadless), device.WithSize(64, 64))
	require.NoError(t, err)
	defer d.Release()
	assert.Equal(t, device.BackendHeadless, d.Backend().Name())
	w, h := d.Size()
	assert.Equal(t, uint32(64), w)
	assert.Equal(t, uint32(64), h)
}

func TestNewDeviceReportsInitError(t *testing.T) {
	hb := headless.New(headless.WithInitError(errors.New("no suitable adapter")))
	_, err := device.NewDevice(device.WithBackend(hb))
	require.Error(t, err)

	var ie *device.InitError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "headless init", ie.Stage)
	assert.Contains(t, err.Error(), "no suitable adapter")

	_, err = device.NewDevice(device.WithBackendName("missing"))
	require.ErrorAs(t, err, &ie)
	assert.ErrorIs(t, err, device.ErrBackendNotAvailable)
}

func TestInitialFenceState(t *testing.T) {
	d := newHeadlessDevice(t, headless.New())
	assert.Equal(t, 0, d.FrameIndex())
	assert.Equal(t, uint64(1), d.FenceValue(0))
	assert.Equal(t, uint64(0), d.FenceValue(1))
	assert.Equal(t, device.SlotIdle, d.SlotState(0))
	assert.NotZero(t, d.DepthTarget())
}

func TestFrameCycleAdvancesSlotsAndFences(t *testing.T) {
	hb := headless.New()
	d := newHeadlessDevice(t, hb)

	require.NoError(t, d.BeginFrame())
	assert.Equal(t, device.SlotRecording, d.SlotState(0))
	require.NoError(t, d.EndFrame())

	assert.Equal(t, 1, d.FrameIndex())
	assert.Equal(t, device.SlotSubmitted, d.SlotState(0))
	assert.Equal(t, uint64(2), d.FenceValue(1))
	assert.Equal(t, uint64(1), hb.Signaled())

	runFrame(t, d)
	assert.Equal(t, 0, d.FrameIndex())
	assert.Equal(t, uint64(3), d.FenceValue(0))
	assert.Equal(t, uint64(2), hb.Signaled())

	subs := hb.Submissions()
	require.Len(t, subs, 2)
	assert.Equal(t, 0, subs[0].Slot)
	assert.Equal(t, 1, subs[1].Slot)
	assert.Equal(t, []headless.CommandKind{
		headless.CmdBeginCommands,
		headless.CmdTransitionBackBuffer,
		headless.CmdTransitionBackBuffer,
		headless.CmdSubmit,
	}, subs[0].Kinds())
	assert.Equal(t, device.ResourceStateRenderTarget, subs[0].Commands[1].State)
	assert.Equal(t, device.ResourceStatePresent, subs[0].Commands[2].State)
}

func TestFrameStateErrors(t *testing.T) {
	d := newHeadlessDevice(t, headless.New())

	assert.ErrorIs(t, d.EndFrame(), device.ErrFrameState)

	require.NoError(t, d.BeginFrame())
	assert.ErrorIs(t, d.BeginFrame(), device.ErrFrameState)
	assert.ErrorIs(t, d.ResizeBuffers(640, 480), device.ErrFrameState)
	require.NoError(t, d.EndFrame())
}

func TestDeferredFenceWaitsBeforeReusingSlot(t *testing.T) {
	hb := headless.New(headless.WithFenceMode(headless.FenceDeferred))
	d := newHeadlessDevice(t, hb)

	runFrame(t, d)
	assert.Equal(t, 0, hb.FenceWaits(), "first frame has nothing in flight on slot 1")

	runFrame(t, d)
	assert.Equal(t, 1, hb.FenceWaits())
	assert.GreaterOrEqual(t, hb.CompletedValue(), uint64(1))
	assert.Equal(t, device.SlotIdle, d.SlotState(0))
	assert.Equal(t, device.SlotSubmitted, d.SlotState(1))

	for range 4 {
		runFrame(t, d)
	}
	assert.Equal(t, 5, hb.FenceWaits())
}

func TestHungGPUSurfacesDeviceLost(t *testing.T) {
	hb := headless.New(headless.WithFenceMode(headless.FenceHung))
	d := newHeadlessDevice(t, hb, device.WithFenceTimeout(20*time.Millisecond))

	runFrame(t, d)

	require.NoError(t, d.BeginFrame())
	err := d.EndFrame()
	require.Error(t, err)
	assert.ErrorIs(t, err, device.ErrDeviceLost)

	assert.ErrorIs(t, d.BeginFrame(), device.ErrDeviceLost)
	assert.ErrorIs(t, d.WaitForGPU(), device.ErrDeviceLost)
	d.Release()
}

func TestWaitForGPUIdlesAllSlots(t *testing.T) {
	hb := headless.New(headless.WithFenceMode(headless.FenceDeferred))
	d := newHeadlessDevice(t, hb)
	runFrame(t, d)
	runFrame(t, d)

	require.NoError(t, d.WaitForGPU())
	assert.Equal(t, hb.Signaled(), hb.CompletedValue())
	for i := range device.FrameCount {
		assert.Equal(t, device.SlotIdle, d.SlotState(i))
	}

	// frames keep signaling increasing values afterwards
	runFrame(t, d)
	runFrame(t, d)
}

func TestResizeToZeroIsANoOp(t *testing.T) {
	hb := headless.New()
	d := newHeadlessDevice(t, hb)
	runFrame(t, d)

	depth := d.DepthTarget()
	events := hb.ResourceEvents()
	signaled := hb.Signaled()

	require.NoError(t, d.ResizeBuffers(0, 480))
	require.NoError(t, d.ResizeBuffers(640, 0))

	assert.Equal(t, depth, d.DepthTarget())
	assert.Equal(t, events, hb.ResourceEvents())
	assert.Equal(t, signaled, hb.Signaled(), "no GPU wait is issued")
	w, h := d.Size()
	assert.Equal(t, uint32(320), w)
	assert.Equal(t, uint32(240), h)

	runFrame(t, d)
}

func TestResizeRecreatesBuffers(t *testing.T) {
	hb := headless.New()
	d := newHeadlessDevice(t, hb)
	runFrame(t, d)

	oldDepth := d.DepthTarget()
	before := len(hb.ResourceEvents())
	require.NoError(t, d.ResizeBuffers(800, 600))

	assert.NotEqual(t, oldDepth, d.DepthTarget())
	desc, ok := hb.TextureDescriptor(d.DepthTarget())
	require.True(t, ok)
	assert.Equal(t, uint32(800), desc.Width)
	assert.Equal(t, uint32(600), desc.Height)

	events := hb.ResourceEvents()[before:]
	assert.Contains(t, events, headless.ResourceEvent{Op: headless.OpDestroy, Kind: "texture", ID: uint32(oldDepth), Label: "depth_buffer"})
	assert.Contains(t, events, headless.ResourceEvent{Op: headless.OpCreate, Kind: "swapchain", Label: "800x600"})

	for range 3 {
		runFrame(t, d)
	}
}

func TestBeginFrameResetsFrameDescriptors(t *testing.T) {
	d := newHeadlessDevice(t, headless.New())
	heap := d.DescriptorHeap()

	require.NoError(t, d.BeginFrame())
	_, err := heap.AllocateFrame(d.FrameIndex(), 4)
	require.NoError(t, err)
	require.NoError(t, d.EndFrame())
	runFrame(t, d)

	require.Equal(t, 0, d.FrameIndex())
	assert.Equal(t, uint32(4), heap.FrameInUse(0))
	require.NoError(t, d.BeginFrame())
	assert.Equal(t, uint32(0), heap.FrameInUse(0))
	require.NoError(t, d.EndFrame())
}
