package glbackend

import (
	"context"
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/device"
	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/gogpu/gputypes"
)

// waitSlice bounds one ClientWaitSync call in WaitForValue, in nanoseconds.
const waitSlice = 1_000_000

// op is one recorded command, replayed on the context at Submit.
type op func() error

// recorder validates recording calls and collects their ops.
type recorder struct {
	open bool
	slot int
	ops  []op
	err  error

	inPass   bool
	pipeline *pipeline
	shadow   bool
	frame    device.GPUAddress
	draw     device.GPUAddress
	vertex   uint32
	index    uint32
	itype    uint32
	isize    int
}

func (r *recorder) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *recorder) push(o op) {
	r.ops = append(r.ops, o)
}

func (b *Backend) BeginCommands(slot int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.initialized {
		return errors.New("gl: backend is not initialized")
	}
	b.rec = recorder{open: true, slot: slot, ops: b.rec.ops[:0]}
	return nil
}

// Transitions are implicit in GL. The calls are still checked so that misuse surfaces the
// same way on every backend.
func (b *Backend) TransitionBackBuffer(state device.ResourceState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.rec.open {
		return
	}
	if b.rec.inPass {
		b.rec.fail(fmt.Errorf("gl: back buffer transitioned to %s inside a render pass", state))
	}
}

func (b *Backend) TransitionTexture(id device.TextureID, before, after device.ResourceState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.rec.open {
		return
	}
	if _, ok := b.textures[id]; !ok {
		b.rec.fail(fmt.Errorf("%w: transition of unknown texture %d", device.ErrInvalidArgument, id))
		return
	}
	if b.rec.inPass {
		b.rec.fail(fmt.Errorf("gl: texture %d transitioned %s -> %s inside a render pass", id, before, after))
	}
}

func (b *Backend) BeginRenderPass(desc device.RenderPassDescriptor) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.rec.open {
		return fmt.Errorf("gl: render pass %q begun outside BeginCommands", desc.Label)
	}
	if b.rec.inPass {
		return fmt.Errorf("gl: render pass %q begun inside another pass", desc.Label)
	}

	var color, depth uint32
	var width, height uint32
	if desc.Color {
		color = b.backBuffers[b.backBuffer]
		width, height = b.width, b.height
	}
	if desc.Depth != 0 {
		t, ok := b.textures[desc.Depth]
		if !ok {
			return fmt.Errorf("%w: render pass %q uses unknown depth texture %d", device.ErrInvalidArgument, desc.Label, desc.Depth)
		}
		if !isDepthFormat(t.desc.Format) {
			return fmt.Errorf("%w: render pass %q depth texture %q is not a depth format", device.ErrInvalidArgument, desc.Label, t.desc.Label)
		}
		depth = t.name
		if !desc.Color {
			width, height = t.desc.Width, t.desc.Height
		}
	}
	if color == 0 && depth == 0 {
		return fmt.Errorf("%w: render pass %q has no attachments", device.ErrInvalidArgument, desc.Label)
	}

	fbo := b.fbo
	b.rec.push(func() error {
		gl.BindFramebuffer(gl.FRAMEBUFFER, fbo)
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, color, 0)
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.TEXTURE_2D, depth, 0)
		if color != 0 {
			gl.DrawBuffer(gl.COLOR_ATTACHMENT0)
		} else {
			gl.DrawBuffer(gl.NONE)
		}
		gl.ReadBuffer(gl.NONE)
		if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
			return fmt.Errorf("gl: render pass %q framebuffer incomplete (0x%x)", desc.Label, status)
		}
		gl.Viewport(0, 0, int32(width), int32(height))

		var mask uint32
		if color != 0 && !desc.LoadColor {
			c := desc.ClearColor
			gl.ColorMask(true, true, true, true)
			gl.ClearColor(c[0], c[1], c[2], c[3])
			mask |= gl.COLOR_BUFFER_BIT
		}
		if depth != 0 && !desc.LoadDepth {
			gl.DepthMask(true)
			gl.ClearDepth(float64(desc.ClearDepth))
			mask |= gl.DEPTH_BUFFER_BIT
		}
		if mask != 0 {
			gl.Clear(mask)
		}
		return nil
	})
	b.rec.inPass = true
	b.rec.pipeline = nil
	b.rec.shadow = false
	return nil
}

func (b *Backend) EndRenderPass() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.rec.inPass {
		b.rec.fail(errors.New("gl: EndRenderPass without a render pass"))
		return
	}
	b.rec.push(func() error {
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		return nil
	})
	b.rec.inPass = false
}

func (b *Backend) SetPipeline(id device.PipelineID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.rec.inPass {
		b.rec.fail(errors.New("gl: SetPipeline outside a render pass"))
		return
	}
	p, ok := b.pipelines[id]
	if !ok {
		b.rec.fail(fmt.Errorf("%w: unknown pipeline %d", device.ErrInvalidArgument, id))
		return
	}
	b.rec.push(func() error {
		applyPipeline(p)
		return nil
	})
	b.rec.pipeline = p
}

func applyPipeline(p *pipeline) {
	d := p.desc
	gl.UseProgram(p.program)

	if face, ok := cullFace(d.CullMode); ok {
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(face)
	} else {
		gl.Disable(gl.CULL_FACE)
	}
	gl.FrontFace(frontFace(d.FrontFace))

	gl.DepthFunc(compareFunc(d.DepthCompare))
	gl.DepthMask(d.DepthWriteEnabled)
	if d.DepthBias != 0 || d.DepthBiasSlopeScale != 0 {
		gl.Enable(gl.POLYGON_OFFSET_FILL)
		gl.PolygonOffset(d.DepthBiasSlopeScale, float32(d.DepthBias))
	} else {
		gl.Disable(gl.POLYGON_OFFSET_FILL)
	}

	if d.ColorTarget {
		gl.ColorMask(colorMask(d.ColorWriteMask))
	} else {
		gl.ColorMask(false, false, false, false)
	}
}

func (b *Backend) SetConstants(slot device.ConstantSlot, addr device.GPUAddress) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.rec.open {
		return
	}
	if addr.Offset%device.ConstantAlignment != 0 {
		b.rec.fail(fmt.Errorf("%w: constant offset %d is not %d-aligned", device.ErrInvalidArgument, addr.Offset, device.ConstantAlignment))
		return
	}
	buf, ok := b.buffers[addr.Buffer]
	if !ok {
		b.rec.fail(fmt.Errorf("%w: constants in unknown buffer %d", device.ErrInvalidArgument, addr.Buffer))
		return
	}
	switch slot {
	case device.ConstantSlotFrame:
		b.rec.frame = addr
	case device.ConstantSlotDraw:
		b.rec.draw = addr
	default:
		b.rec.fail(fmt.Errorf("%w: unknown constant slot %d", device.ErrInvalidArgument, slot))
		return
	}
	name := buf.name
	b.rec.push(func() error {
		gl.BindBufferRange(gl.UNIFORM_BUFFER, uint32(slot), name, int(addr.Offset), int(addr.Size))
		return nil
	})
}

func (b *Backend) SetShadowMap(texture device.TextureID, sampler device.SamplerID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.rec.inPass {
		b.rec.fail(errors.New("gl: SetShadowMap outside a render pass"))
		return
	}
	t, ok := b.textures[texture]
	s, sok := b.samplers[sampler]
	if !ok || !sok {
		b.rec.fail(fmt.Errorf("%w: shadow map %d/%d", device.ErrInvalidArgument, texture, sampler))
		return
	}
	name := t.name
	b.rec.push(func() error {
		gl.ActiveTexture(gl.TEXTURE0 + shadowMapUnit)
		gl.BindTexture(gl.TEXTURE_2D, name)
		gl.BindSampler(shadowMapUnit, s)
		return nil
	})
	b.rec.shadow = true
}

func (b *Backend) SetVertexBuffer(id device.BufferID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.rec.inPass {
		b.rec.fail(errors.New("gl: SetVertexBuffer outside a render pass"))
		return
	}
	buf, ok := b.buffers[id]
	if !ok {
		b.rec.fail(fmt.Errorf("%w: unknown vertex buffer %d", device.ErrInvalidArgument, id))
		return
	}
	b.rec.vertex = buf.name
}

func (b *Backend) SetIndexBuffer(id device.BufferID, format gputypes.IndexFormat) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.rec.inPass {
		b.rec.fail(errors.New("gl: SetIndexBuffer outside a render pass"))
		return
	}
	buf, ok := b.buffers[id]
	if !ok {
		b.rec.fail(fmt.Errorf("%w: unknown index buffer %d", device.ErrInvalidArgument, id))
		return
	}
	b.rec.index = buf.name
	b.rec.itype, b.rec.isize = indexType(format)
}

func (b *Backend) DrawIndexed(indexCount, firstIndex uint32, baseVertex int32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r := &b.rec
	if !r.inPass || r.pipeline == nil {
		r.fail(errors.New("gl: DrawIndexed without a pass and pipeline"))
		return
	}
	if r.vertex == 0 || r.index == 0 {
		r.fail(errors.New("gl: DrawIndexed without vertex and index buffers"))
		return
	}
	if r.frame.Buffer == 0 || r.draw.Buffer == 0 {
		r.fail(fmt.Errorf("%w: draw without bound constants", device.ErrInvalidArgument))
		return
	}
	if r.pipeline.desc.SamplesShadowMap && !r.shadow {
		r.fail(fmt.Errorf("gl: pipeline %q draws without a shadow map", r.pipeline.desc.Label))
		return
	}

	layout := r.pipeline.desc.Vertex
	mode := primitiveMode(r.pipeline.desc.Topology)
	vertex, index, itype := r.vertex, r.index, r.itype
	offset := int(firstIndex) * r.isize
	r.push(func() error {
		gl.BindBuffer(gl.ARRAY_BUFFER, vertex)
		for _, a := range layout.Attributes {
			n, err := vertexComponents(a.Format)
			if err != nil {
				return err
			}
			gl.EnableVertexAttribArray(a.Location)
			gl.VertexAttribPointer(a.Location, n, gl.FLOAT, false, int32(layout.Stride), gl.PtrOffset(int(a.Offset)))
		}
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, index)
		gl.DrawElementsBaseVertex(mode, int32(indexCount), itype, gl.PtrOffset(offset), baseVertex)
		return nil
	})
}

func (b *Backend) Submit() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	r := &b.rec
	if !r.open {
		return errors.New("gl: Submit without BeginCommands")
	}
	r.open = false
	if r.inPass {
		r.fail(errors.New("gl: Submit inside a render pass"))
		r.inPass = false
	}
	if r.err != nil {
		err := r.err
		r.err = nil
		return err
	}

	gl.BindVertexArray(b.vao)
	for _, o := range r.ops {
		if err := o(); err != nil {
			gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
			return err
		}
	}
	if b.checkErrors {
		if code := gl.GetError(); code != gl.NO_ERROR {
			return fmt.Errorf("gl: error 0x%x replaying slot %d", code, r.slot)
		}
	}
	return nil
}

func (b *Backend) Present() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.initialized {
		return errors.New("gl: backend is not initialized")
	}
	w, h := b.ctx.FramebufferSize()

	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, b.fbo)
	gl.FramebufferTexture2D(gl.READ_FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, b.backBuffers[b.backBuffer], 0)
	gl.FramebufferTexture2D(gl.READ_FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.TEXTURE_2D, 0, 0)
	gl.ReadBuffer(gl.COLOR_ATTACHMENT0)
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, 0)
	gl.BlitFramebuffer(0, 0, int32(b.width), int32(b.height), 0, 0, int32(w), int32(h), gl.COLOR_BUFFER_BIT, gl.LINEAR)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)

	b.ctx.SwapBuffers()
	b.backBuffer = (b.backBuffer + 1) % device.FrameCount
	return nil
}

type pendingSync struct {
	value uint64
	sync  uintptr
}

type fence struct {
	signaled  uint64
	completed uint64
	pending   []pendingSync

	// err is the first failed wait. A failed sync leaves the device lost, so it is sticky.
	err error

	// clientWait and deleteSync default to the GL entry points.
	clientWait func(sync uintptr, flags uint32, timeout uint64) uint32
	deleteSync func(sync uintptr)
}

// poll retires every signaled sync in order. Only the first wait may block, for at most timeout
// nanoseconds.
func (f *fence) poll(timeout uint64) error {
	if f.err != nil {
		return f.err
	}
	wait, del := f.clientWait, f.deleteSync
	if wait == nil {
		wait = gl.ClientWaitSync
	}
	if del == nil {
		del = gl.DeleteSync
	}
	for len(f.pending) > 0 {
		p := f.pending[0]
		switch wait(p.sync, gl.SYNC_FLUSH_COMMANDS_BIT, timeout) {
		case gl.ALREADY_SIGNALED, gl.CONDITION_SATISFIED:
			del(p.sync)
			f.completed = p.value
			f.pending = f.pending[1:]
			timeout = 0
		case gl.WAIT_FAILED:
			f.err = fmt.Errorf("%w: waiting for fence value %d failed", device.ErrDeviceLost, p.value)
			return f.err
		default:
			return nil
		}
	}
	return nil
}

func (f *fence) release() {
	for _, p := range f.pending {
		gl.DeleteSync(p.sync)
	}
	f.pending = nil
}

func (b *Backend) Signal(value uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.initialized {
		return errors.New("gl: backend is not initialized")
	}
	if value <= b.fence.signaled {
		return fmt.Errorf("gl: fence value %d is not above %d", value, b.fence.signaled)
	}
	sync := gl.FenceSync(gl.SYNC_GPU_COMMANDS_COMPLETE, 0)
	gl.Flush()
	b.fence.signaled = value
	b.fence.pending = append(b.fence.pending, pendingSync{value: value, sync: sync})
	return nil
}

func (b *Backend) CompletedValue() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.initialized {
		if err := b.fence.poll(0); err != nil {
			common.Logger().Error().Err(err).Uint64("completed", b.fence.completed).Msg("gl fence poll failed")
		}
	}
	return b.fence.completed
}

func (b *Backend) WaitForValue(ctx context.Context, value uint64) error {
	for {
		b.mu.Lock()
		if !b.initialized {
			b.mu.Unlock()
			return errors.New("gl: backend is not initialized")
		}
		if value > b.fence.signaled {
			b.mu.Unlock()
			return fmt.Errorf("%w: fence value %d was never signaled", device.ErrInvalidArgument, value)
		}
		err := b.fence.poll(waitSlice)
		done := b.fence.completed >= value
		b.mu.Unlock()

		if err != nil {
			return err
		}
		if done {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}
