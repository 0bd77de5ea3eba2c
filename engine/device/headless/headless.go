// Package headless is a GPU-free GraphicsBackend. It validates and records every command,
// keeps buffer contents in memory and simulates a fence timeline, so the frame pipeline can run
// in tests and on machines without a GPU.
package headless

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-forward/engine/device"
	"github.com/gogpu/gputypes"
)

func init() {
	device.Register(device.BackendHeadless, func() device.GraphicsBackend { return New() })
}

// FenceMode selects how the simulated GPU completes fence signals.
type FenceMode int

const (
	// FenceImmediate completes every signal as soon as it is enqueued.
	FenceImmediate FenceMode = iota
	// FenceDeferred completes signals only when the CPU waits for them.
	FenceDeferred
	// FenceHung never completes a signal, so every wait runs into its timeout.
	FenceHung
)

type buffer struct {
	desc device.BufferDescriptor
	data []byte
}

type texture struct {
	desc  device.TextureDescriptor
	data  []byte
	state device.ResourceState
}

// Backend is the headless GraphicsBackend.
type Backend struct {
	mu *sync.Mutex

	caps      device.Capabilities
	fenceMode FenceMode
	initErr   error
	failLabel string

	width, height uint32
	initialized   bool
	backBuffer    int
	backState     device.ResourceState

	nextID    uint32
	buffers   map[device.BufferID]*buffer
	textures  map[device.TextureID]*texture
	samplers  map[device.SamplerID]device.SamplerDescriptor
	shaders   map[device.ShaderID]device.ShaderDescriptor
	pipelines map[device.PipelineID]device.PipelineDescriptor

	recording   bool
	slot        int
	current     []Command
	recordErr   error
	inPass      bool
	pass        device.RenderPassDescriptor
	pipeline    device.PipelineID
	constants   map[device.ConstantSlot]device.GPUAddress
	vertex      device.BufferID
	index       device.BufferID
	submissions []Submission
	events      []ResourceEvent

	signaled  uint64
	completed uint64
	waits     int
}

var _ device.GraphicsBackend = &Backend{}

// New creates a headless backend.
//
// Parameters:
//   - options: builder options
//
// Returns:
//   - *Backend: the new backend
func New(options ...BackendBuilderOption) *Backend {
	b := &Backend{
		mu: &sync.Mutex{},
		caps: device.Capabilities{
			ClipDepth:        device.ClipDepthZeroToOne,
			ShaderLanguage:   device.ShaderLanguageWGSL,
			SwapchainFormat:  gputypes.TextureFormatBGRA8Unorm,
			ComparisonBorder: true,
		},
		buffers:   make(map[device.BufferID]*buffer),
		textures:  make(map[device.TextureID]*texture),
		samplers:  make(map[device.SamplerID]device.SamplerDescriptor),
		shaders:   make(map[device.ShaderID]device.ShaderDescriptor),
		pipelines: make(map[device.PipelineID]device.PipelineDescriptor),
		constants: make(map[device.ConstantSlot]device.GPUAddress),
	}
	for _, option := range options {
		option(b)
	}
	return b
}

func (b *Backend) Name() string { return device.BackendHeadless }

func (b *Backend) Capabilities() device.Capabilities {
	return b.caps
}

func (b *Backend) Init(_ device.Surface, width, height uint32, _ device.PresentMode) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.initErr != nil {
		return b.initErr
	}
	if width == 0 || height == 0 {
		return fmt.Errorf("headless: invalid swapchain size %dx%d", width, height)
	}
	b.width, b.height = width, height
	b.initialized = true
	b.backState = device.ResourceStatePresent
	b.events = append(b.events, ResourceEvent{Op: OpCreate, Kind: "swapchain", Label: fmt.Sprintf("%dx%d", width, height)})
	return nil
}

func (b *Backend) ResizeSwapchain(width, height uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if width == 0 || height == 0 {
		return fmt.Errorf("headless: invalid swapchain size %dx%d", width, height)
	}
	b.events = append(b.events,
		ResourceEvent{Op: OpDestroy, Kind: "swapchain", Label: fmt.Sprintf("%dx%d", b.width, b.height)},
		ResourceEvent{Op: OpCreate, Kind: "swapchain", Label: fmt.Sprintf("%dx%d", width, height)},
	)
	b.width, b.height = width, height
	b.backBuffer = 0
	return nil
}

func (b *Backend) CurrentBackBufferIndex() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.backBuffer
}

func (b *Backend) id() uint32 {
	b.nextID++
	return b.nextID
}

func (b *Backend) CreateBuffer(desc device.BufferDescriptor) (device.BufferID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if desc.Size == 0 {
		return 0, fmt.Errorf("headless: buffer %q has zero size", desc.Label)
	}
	id := device.BufferID(b.id())
	b.buffers[id] = &buffer{desc: desc, data: make([]byte, desc.Size)}
	b.events = append(b.events, ResourceEvent{Op: OpCreate, Kind: "buffer", ID: uint32(id), Label: desc.Label})
	return id, nil
}

func (b *Backend) WriteBuffer(id device.BufferID, offset uint64, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf, ok := b.buffers[id]
	if !ok {
		return fmt.Errorf("headless: write to unknown buffer %d", id)
	}
	if offset+uint64(len(data)) > uint64(len(buf.data)) {
		return fmt.Errorf("headless: write of %d bytes at %d overflows buffer %q (%d bytes)", len(data), offset, buf.desc.Label, len(buf.data))
	}
	copy(buf.data[offset:], data)
	return nil
}

func (b *Backend) DestroyBuffer(id device.BufferID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if buf, ok := b.buffers[id]; ok {
		delete(b.buffers, id)
		b.events = append(b.events, ResourceEvent{Op: OpDestroy, Kind: "buffer", ID: uint32(id), Label: buf.desc.Label})
	}
}

func (b *Backend) CreateTexture(desc device.TextureDescriptor) (device.TextureID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if desc.Width == 0 || desc.Height == 0 {
		return 0, fmt.Errorf("headless: texture %q has invalid size %dx%d", desc.Label, desc.Width, desc.Height)
	}
	id := device.TextureID(b.id())
	b.textures[id] = &texture{desc: desc, state: device.ResourceStateCommon}
	b.events = append(b.events, ResourceEvent{Op: OpCreate, Kind: "texture", ID: uint32(id), Label: desc.Label})
	return id, nil
}

func (b *Backend) WriteTexture(id device.TextureID, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	tex, ok := b.textures[id]
	if !ok {
		return fmt.Errorf("headless: write to unknown texture %d", id)
	}
	tex.data = slices.Clone(data)
	return nil
}

func (b *Backend) DestroyTexture(id device.TextureID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if tex, ok := b.textures[id]; ok {
		delete(b.textures, id)
		b.events = append(b.events, ResourceEvent{Op: OpDestroy, Kind: "texture", ID: uint32(id), Label: tex.desc.Label})
	}
}

func (b *Backend) CreateSampler(desc device.SamplerDescriptor) (device.SamplerID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := device.SamplerID(b.id())
	b.samplers[id] = desc
	b.events = append(b.events, ResourceEvent{Op: OpCreate, Kind: "sampler", ID: uint32(id), Label: desc.Label})
	return id, nil
}

func (b *Backend) DestroySampler(id device.SamplerID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if desc, ok := b.samplers[id]; ok {
		delete(b.samplers, id)
		b.events = append(b.events, ResourceEvent{Op: OpDestroy, Kind: "sampler", ID: uint32(id), Label: desc.Label})
	}
}

func (b *Backend) CreateShader(desc device.ShaderDescriptor) (device.ShaderID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if desc.Language != b.caps.ShaderLanguage {
		return 0, &device.ShaderCompileError{Label: desc.Label, Stage: "program",
			Log: fmt.Sprintf("headless: expected %s source, got %s", b.caps.ShaderLanguage, desc.Language)}
	}
	if desc.VertexSource == "" {
		return 0, &device.ShaderCompileError{Label: desc.Label, Stage: "vertex", Log: "empty vertex source"}
	}
	if b.failLabel != "" && desc.Label == b.failLabel {
		return 0, &device.ShaderCompileError{Label: desc.Label, Stage: "vertex", Log: "headless: forced compile failure"}
	}
	id := device.ShaderID(b.id())
	b.shaders[id] = desc
	b.events = append(b.events, ResourceEvent{Op: OpCreate, Kind: "shader", ID: uint32(id), Label: desc.Label})
	return id, nil
}

func (b *Backend) DestroyShader(id device.ShaderID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if desc, ok := b.shaders[id]; ok {
		delete(b.shaders, id)
		b.events = append(b.events, ResourceEvent{Op: OpDestroy, Kind: "shader", ID: uint32(id), Label: desc.Label})
	}
}

func (b *Backend) CreatePipeline(desc device.PipelineDescriptor) (device.PipelineID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.shaders[desc.Shader]; !ok {
		return 0, fmt.Errorf("headless: pipeline %q references unknown shader %d", desc.Label, desc.Shader)
	}
	if desc.Vertex.Stride == 0 {
		return 0, fmt.Errorf("headless: pipeline %q has no vertex layout", desc.Label)
	}
	id := device.PipelineID(b.id())
	b.pipelines[id] = desc
	b.events = append(b.events, ResourceEvent{Op: OpCreate, Kind: "pipeline", ID: uint32(id), Label: desc.Label})
	return id, nil
}

func (b *Backend) DestroyPipeline(id device.PipelineID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if desc, ok := b.pipelines[id]; ok {
		delete(b.pipelines, id)
		b.events = append(b.events, ResourceEvent{Op: OpDestroy, Kind: "pipeline", ID: uint32(id), Label: desc.Label})
	}
}

// fail records the first recording error; Submit returns it.
func (b *Backend) fail(format string, args ...any) {
	if b.recordErr == nil {
		b.recordErr = fmt.Errorf("headless: "+format, args...)
	}
}

func (b *Backend) record(c Command) {
	if !b.recording {
		b.fail("%s recorded outside BeginCommands/Submit", c.Kind)
		return
	}
	b.current = append(b.current, c)
}

func (b *Backend) BeginCommands(slot int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.initialized {
		return errors.New("headless: backend not initialized")
	}
	if slot != b.backBuffer {
		return fmt.Errorf("headless: recording slot %d but back buffer %d is current", slot, b.backBuffer)
	}
	b.recording = true
	b.slot = slot
	b.current = nil
	b.recordErr = nil
	b.inPass = false
	b.pipeline = 0
	b.vertex, b.index = 0, 0
	clear(b.constants)
	b.record(Command{Kind: CmdBeginCommands, Slot: slot})
	return nil
}

func (b *Backend) TransitionBackBuffer(state device.ResourceState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.inPass {
		b.fail("back buffer transition inside render pass %q", b.pass.Label)
	}
	b.record(Command{Kind: CmdTransitionBackBuffer, Before: b.backState, State: state})
	b.backState = state
}

func (b *Backend) TransitionTexture(id device.TextureID, before, after device.ResourceState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	tex, ok := b.textures[id]
	if !ok {
		b.fail("transition of unknown texture %d", id)
		return
	}
	if b.inPass {
		b.fail("texture %q transitioned inside render pass %q", tex.desc.Label, b.pass.Label)
	}
	if tex.state != before {
		b.fail("texture %q transition from %s but it is %s", tex.desc.Label, before, tex.state)
	}
	tex.state = after
	b.record(Command{Kind: CmdTransitionTexture, Texture: id, Before: before, State: after})
}

func (b *Backend) BeginRenderPass(desc device.RenderPassDescriptor) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.inPass {
		b.fail("render pass %q begun inside %q", desc.Label, b.pass.Label)
	}
	if desc.Color && b.backState != device.ResourceStateRenderTarget {
		b.fail("render pass %q draws to the back buffer in state %s", desc.Label, b.backState)
	}
	if desc.Depth != 0 {
		tex, ok := b.textures[desc.Depth]
		switch {
		case !ok:
			b.fail("render pass %q uses unknown depth texture %d", desc.Label, desc.Depth)
		case tex.state == device.ResourceStateShaderResource:
			b.fail("render pass %q writes depth texture %q while it is bound for sampling", desc.Label, tex.desc.Label)
		}
	}
	b.inPass = true
	b.pass = desc
	b.record(Command{Kind: CmdBeginRenderPass, Pass: desc})
	return b.recordErr
}

func (b *Backend) EndRenderPass() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.inPass {
		b.fail("EndRenderPass without a render pass")
	}
	b.inPass = false
	b.record(Command{Kind: CmdEndRenderPass, Pass: b.pass})
}

func (b *Backend) SetPipeline(id device.PipelineID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	desc, ok := b.pipelines[id]
	if !ok {
		b.fail("unknown pipeline %d", id)
		return
	}
	if desc.ColorTarget && !b.pass.Color {
		b.fail("pipeline %q needs a color target in pass %q", desc.Label, b.pass.Label)
	}
	b.pipeline = id
	b.record(Command{Kind: CmdSetPipeline, Pipeline: id, Label: desc.Label})
}

func (b *Backend) SetConstants(slot device.ConstantSlot, addr device.GPUAddress) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if addr.Offset%device.ConstantAlignment != 0 {
		b.fail("constant binding offset %d is not %d-byte aligned", addr.Offset, device.ConstantAlignment)
	}
	if _, ok := b.buffers[addr.Buffer]; !ok {
		b.fail("constant binding references unknown buffer %d", addr.Buffer)
	}
	b.constants[slot] = addr
	b.record(Command{Kind: CmdSetConstants, ConstantSlot: slot, Address: addr})
}

func (b *Backend) SetShadowMap(tex device.TextureID, sampler device.SamplerID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.textures[tex]
	switch {
	case !ok:
		b.fail("shadow map binding references unknown texture %d", tex)
	case t.state != device.ResourceStateShaderResource:
		b.fail("shadow map %q sampled in state %s", t.desc.Label, t.state)
	}
	if s, ok := b.samplers[sampler]; !ok || !s.Comparison {
		b.fail("shadow map sampler %d is not a comparison sampler", sampler)
	}
	b.record(Command{Kind: CmdSetShadowMap, Texture: tex, Sampler: sampler})
}

func (b *Backend) SetVertexBuffer(id device.BufferID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.vertex = id
	b.record(Command{Kind: CmdSetVertexBuffer, Buffer: id})
}

func (b *Backend) SetIndexBuffer(id device.BufferID, format gputypes.IndexFormat) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.index = id
	b.record(Command{Kind: CmdSetIndexBuffer, Buffer: id})
}

func (b *Backend) DrawIndexed(indexCount, firstIndex uint32, baseVertex int32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case !b.inPass:
		b.fail("draw outside a render pass")
	case b.pipeline == 0:
		b.fail("draw in pass %q without a pipeline", b.pass.Label)
	case b.vertex == 0 || b.index == 0:
		b.fail("draw in pass %q without geometry", b.pass.Label)
	}
	for _, slot := range []device.ConstantSlot{device.ConstantSlotFrame, device.ConstantSlotDraw} {
		if _, ok := b.constants[slot]; !ok {
			b.fail("draw in pass %q without constants in slot %d", b.pass.Label, slot)
		}
	}
	b.record(Command{
		Kind:       CmdDrawIndexed,
		Pipeline:   b.pipeline,
		Label:      b.pass.Label,
		IndexCount: indexCount,
		FirstIndex: firstIndex,
		BaseVertex: baseVertex,
		Frame:      b.constants[device.ConstantSlotFrame],
		Draw:       b.constants[device.ConstantSlotDraw],
	})
}

func (b *Backend) Submit() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.recording {
		return errors.New("headless: submit without recorded commands")
	}
	if b.inPass {
		b.fail("submit inside render pass %q", b.pass.Label)
	}
	b.record(Command{Kind: CmdSubmit})
	b.recording = false
	if b.recordErr != nil {
		return b.recordErr
	}
	b.submissions = append(b.submissions, Submission{Slot: b.slot, Commands: b.current})
	b.current = nil
	return nil
}

func (b *Backend) Present() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.backState != device.ResourceStatePresent {
		return fmt.Errorf("headless: present with back buffer in state %s", b.backState)
	}
	b.backBuffer = (b.backBuffer + 1) % device.FrameCount
	return nil
}

func (b *Backend) Signal(value uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if value <= b.signaled && b.signaled != 0 {
		return fmt.Errorf("headless: fence value %d is not above %d", value, b.signaled)
	}
	b.signaled = value
	if b.fenceMode == FenceImmediate {
		b.completed = value
	}
	return nil
}

func (b *Backend) CompletedValue() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.completed
}

func (b *Backend) WaitForValue(ctx context.Context, value uint64) error {
	b.mu.Lock()
	b.waits++
	if b.fenceMode != FenceHung && value <= b.signaled {
		b.completed = max(b.completed, value)
		b.mu.Unlock()
		return nil
	}
	b.mu.Unlock()
	<-ctx.Done()
	return ctx.Err()
}

func (b *Backend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.buffers)
	clear(b.textures)
	clear(b.samplers)
	clear(b.shaders)
	clear(b.pipelines)
	b.initialized = false
}
