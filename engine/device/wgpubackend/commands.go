package wgpubackend

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-forward/engine/device"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/gputypes"
)

// pollInterval is how often WaitForValue drives the device while the fence is behind.
const pollInterval = 250 * time.Microsecond

// recorder is the command recording state of the frame being built.
type recorder struct {
	slot    int
	encoder *wgpu.CommandEncoder
	pass    *wgpu.RenderPassEncoder
	surface *wgpu.Texture
	view    *wgpu.TextureView

	frame, draw device.GPUAddress
	shadow      shadowKey
	pipeline    *pipeline

	// first recording error, returned from Submit
	err error
}

func (r *recorder) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *recorder) recording() bool {
	return r.encoder != nil
}

// abandon releases everything a frame holds without submitting it.
func (r *recorder) abandon() {
	if r.pass != nil {
		r.pass.Release()
	}
	if r.encoder != nil {
		r.encoder.Release()
	}
	r.releaseSurface()
	*r = recorder{}
}

func (r *recorder) releaseSurface() {
	if r.view != nil {
		r.view.Release()
	}
	if r.surface != nil {
		r.surface.Release()
	}
	r.view, r.surface = nil, nil
}

type fence struct {
	signaled  uint64
	completed *atomic.Uint64
}

func newFence() fence {
	return fence{completed: &atomic.Uint64{}}
}

func (b *Backend) BeginCommands(slot int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.device == nil {
		return errors.New("wgpu: backend is not initialized")
	}
	if b.rec.surface != nil {
		return errors.New("wgpu: previous back buffer not yet presented")
	}
	b.rec.abandon()

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("wgpu: acquiring back buffer: %w", err)
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return fmt.Errorf("wgpu: creating back buffer view: %w", err)
	}
	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return fmt.Errorf("wgpu: creating command encoder: %w", err)
	}

	b.rec = recorder{slot: slot, encoder: encoder, surface: surfaceTexture, view: view}
	return nil
}

// Transitions are implicit in WebGPU. The calls are still checked so that misuse surfaces the
// same way on every backend.
func (b *Backend) TransitionBackBuffer(state device.ResourceState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.rec.recording() {
		return
	}
	if b.rec.pass != nil {
		b.rec.fail(fmt.Errorf("wgpu: back buffer transitioned to %s inside a render pass", state))
	}
}

func (b *Backend) TransitionTexture(id device.TextureID, before, after device.ResourceState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.rec.recording() {
		return
	}
	if _, ok := b.textures[id]; !ok {
		b.rec.fail(fmt.Errorf("%w: transition of unknown texture %d", device.ErrInvalidArgument, id))
		return
	}
	if b.rec.pass != nil {
		b.rec.fail(fmt.Errorf("wgpu: texture %d transitioned %s -> %s inside a render pass", id, before, after))
	}
}

func (b *Backend) BeginRenderPass(desc device.RenderPassDescriptor) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.rec.recording() {
		return fmt.Errorf("wgpu: render pass %q begun outside BeginCommands", desc.Label)
	}
	if b.rec.pass != nil {
		return fmt.Errorf("wgpu: render pass %q begun inside another pass", desc.Label)
	}

	rpd := &wgpu.RenderPassDescriptor{Label: desc.Label}
	if desc.Color {
		load := wgpu.LoadOpClear
		if desc.LoadColor {
			load = wgpu.LoadOpLoad
		}
		c := desc.ClearColor
		rpd.ColorAttachments = []wgpu.RenderPassColorAttachment{{
			View:       b.rec.view,
			LoadOp:     load,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: float64(c[0]), G: float64(c[1]), B: float64(c[2]), A: float64(c[3])},
		}}
	}
	if desc.Depth != 0 {
		t, ok := b.textures[desc.Depth]
		if !ok {
			return fmt.Errorf("%w: render pass %q uses unknown depth texture %d", device.ErrInvalidArgument, desc.Label, desc.Depth)
		}
		load := wgpu.LoadOpClear
		if desc.LoadDepth {
			load = wgpu.LoadOpLoad
		}
		rpd.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:            t.view,
			DepthLoadOp:     load,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: desc.ClearDepth,
		}
	}

	b.rec.pass = b.rec.encoder.BeginRenderPass(rpd)
	b.rec.pipeline = nil
	b.rec.shadow = shadowKey{}
	return nil
}

func (b *Backend) EndRenderPass() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rec.pass == nil {
		b.rec.fail(errors.New("wgpu: EndRenderPass without a render pass"))
		return
	}
	b.rec.pass.End()
	b.rec.pass.Release()
	b.rec.pass = nil
}

func (b *Backend) SetPipeline(id device.PipelineID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rec.pass == nil {
		b.rec.fail(errors.New("wgpu: SetPipeline outside a render pass"))
		return
	}
	p, ok := b.pipelines[id]
	if !ok {
		b.rec.fail(fmt.Errorf("%w: unknown pipeline %d", device.ErrInvalidArgument, id))
		return
	}
	b.rec.pass.SetPipeline(p.pipeline)
	b.rec.pipeline = p
}

func (b *Backend) SetConstants(slot device.ConstantSlot, addr device.GPUAddress) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.rec.recording() {
		return
	}
	if addr.Offset%device.ConstantAlignment != 0 {
		b.rec.fail(fmt.Errorf("%w: constant offset %d is not %d-aligned", device.ErrInvalidArgument, addr.Offset, device.ConstantAlignment))
		return
	}
	switch slot {
	case device.ConstantSlotFrame:
		b.rec.frame = addr
	case device.ConstantSlotDraw:
		b.rec.draw = addr
	default:
		b.rec.fail(fmt.Errorf("%w: unknown constant slot %d", device.ErrInvalidArgument, slot))
	}
}

func (b *Backend) SetShadowMap(texture device.TextureID, sampler device.SamplerID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rec.pass == nil {
		b.rec.fail(errors.New("wgpu: SetShadowMap outside a render pass"))
		return
	}
	t, ok := b.textures[texture]
	s, sok := b.samplers[sampler]
	if !ok || !sok {
		b.rec.fail(fmt.Errorf("%w: shadow map %d/%d", device.ErrInvalidArgument, texture, sampler))
		return
	}
	key := shadowKey{texture: texture, sampler: sampler}
	bg, err := b.groups.shadowGroup(b.device, key, t.view, s)
	if err != nil {
		b.rec.fail(err)
		return
	}
	b.rec.pass.SetBindGroup(1, bg, nil)
	b.rec.shadow = key
}

func (b *Backend) SetVertexBuffer(id device.BufferID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rec.pass == nil {
		b.rec.fail(errors.New("wgpu: SetVertexBuffer outside a render pass"))
		return
	}
	buf, ok := b.buffers[id]
	if !ok {
		b.rec.fail(fmt.Errorf("%w: unknown vertex buffer %d", device.ErrInvalidArgument, id))
		return
	}
	b.rec.pass.SetVertexBuffer(0, buf, 0, wgpu.WholeSize)
}

func (b *Backend) SetIndexBuffer(id device.BufferID, format gputypes.IndexFormat) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rec.pass == nil {
		b.rec.fail(errors.New("wgpu: SetIndexBuffer outside a render pass"))
		return
	}
	buf, ok := b.buffers[id]
	if !ok {
		b.rec.fail(fmt.Errorf("%w: unknown index buffer %d", device.ErrInvalidArgument, id))
		return
	}
	b.rec.pass.SetIndexBuffer(buf, indexFormat(format), 0, wgpu.WholeSize)
}

func (b *Backend) DrawIndexed(indexCount, firstIndex uint32, baseVertex int32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r := &b.rec
	if r.pass == nil || r.pipeline == nil {
		r.fail(errors.New("wgpu: DrawIndexed without a pass and pipeline"))
		return
	}
	if r.pipeline.desc.SamplesShadowMap && r.shadow == (shadowKey{}) {
		r.fail(fmt.Errorf("wgpu: pipeline %q draws without a shadow map", r.pipeline.desc.Label))
		return
	}

	frame, fok := b.buffers[r.frame.Buffer]
	draw, dok := b.buffers[r.draw.Buffer]
	if !fok || !dok {
		r.fail(fmt.Errorf("%w: draw without bound constants", device.ErrInvalidArgument))
		return
	}
	bg, err := b.groups.constantsGroup(b.device, constantsKey{frame: r.frame.Buffer, draw: r.draw.Buffer}, frame, draw)
	if err != nil {
		r.fail(err)
		return
	}
	r.pass.SetBindGroup(0, bg, []uint32{uint32(r.frame.Offset), uint32(r.draw.Offset)})
	r.pass.DrawIndexed(indexCount, 1, firstIndex, baseVertex, 0)
}

func (b *Backend) Submit() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	r := &b.rec
	if !r.recording() {
		return errors.New("wgpu: Submit without BeginCommands")
	}
	if r.pass != nil {
		r.fail(errors.New("wgpu: Submit inside a render pass"))
		r.pass.End()
		r.pass.Release()
		r.pass = nil
	}

	encoder := r.encoder
	r.encoder = nil
	defer encoder.Release()
	if r.err != nil {
		err := r.err
		r.err = nil
		return err
	}

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("wgpu: finishing commands of slot %d: %w", r.slot, err)
	}
	defer commandBuffer.Release()
	b.queue.Submit(commandBuffer)
	return nil
}

func (b *Backend) Present() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rec.surface == nil {
		return errors.New("wgpu: Present without an acquired back buffer")
	}
	b.surface.Present()
	b.rec.releaseSurface()
	b.backBuffer = (b.backBuffer + 1) % device.FrameCount
	return nil
}

func (b *Backend) Signal(value uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if value <= b.fence.signaled {
		return fmt.Errorf("wgpu: fence value %d is not above %d", value, b.fence.signaled)
	}
	if b.queue == nil {
		return errors.New("wgpu: backend is not initialized")
	}
	b.fence.signaled = value
	completed := b.fence.completed
	b.queue.OnSubmittedWorkDone(func(wgpu.QueueWorkDoneStatus) {
		// callbacks fire in submission order
		completed.Store(value)
	})
	return nil
}

func (b *Backend) CompletedValue() uint64 {
	b.mu.Lock()
	if b.device != nil {
		b.device.Poll(false, nil)
	}
	b.mu.Unlock()
	return b.fence.completed.Load()
}

func (b *Backend) WaitForValue(ctx context.Context, value uint64) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		if b.CompletedValue() >= value {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
