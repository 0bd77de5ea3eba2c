package headless

import (
	"slices"

	"github.com/Carmen-Shannon/oxy-forward/engine/device"
)

// CommandKind identifies a recorded command.
type CommandKind int

const (
	CmdBeginCommands CommandKind = iota
	CmdTransitionBackBuffer
	CmdTransitionTexture
	CmdBeginRenderPass
	CmdEndRenderPass
	CmdSetPipeline
	CmdSetConstants
	CmdSetShadowMap
	CmdSetVertexBuffer
	CmdSetIndexBuffer
	CmdDrawIndexed
	CmdSubmit
)

var commandNames = map[CommandKind]string{
	CmdBeginCommands:        "begin_commands",
	CmdTransitionBackBuffer: "transition_back_buffer",
	CmdTransitionTexture:    "transition_texture",
	CmdBeginRenderPass:      "begin_render_pass",
	CmdEndRenderPass:        "end_render_pass",
	CmdSetPipeline:          "set_pipeline",
	CmdSetConstants:         "set_constants",
	CmdSetShadowMap:         "set_shadow_map",
	CmdSetVertexBuffer:      "set_vertex_buffer",
	CmdSetIndexBuffer:       "set_index_buffer",
	CmdDrawIndexed:          "draw_indexed",
	CmdSubmit:               "submit",
}

func (k CommandKind) String() string {
	if n, ok := commandNames[k]; ok {
		return n
	}
	return "unknown"
}

// Command is one recorded backend call. Only the fields relevant to Kind are set.
type Command struct {
	Kind CommandKind
	Slot int

	Before device.ResourceState
	State  device.ResourceState

	Pass     device.RenderPassDescriptor
	Pipeline device.PipelineID
	// Label is the pipeline label for CmdSetPipeline and the pass label for CmdDrawIndexed.
	Label string

	ConstantSlot device.ConstantSlot
	Address      device.GPUAddress

	Texture device.TextureID
	Sampler device.SamplerID
	Buffer  device.BufferID

	IndexCount uint32
	FirstIndex uint32
	BaseVertex int32
	// Frame and Draw are the constant bindings in effect for CmdDrawIndexed.
	Frame device.GPUAddress
	Draw  device.GPUAddress
}

// Submission is the command list of one submitted frame.
type Submission struct {
	Slot     int
	Commands []Command
}

// Draws returns the draw commands recorded in a pass.
//
// Parameters:
//   - pass: the render pass label
//
// Returns:
//   - []Command: the draws, in recording order
func (s Submission) Draws(pass string) []Command {
	var out []Command
	for _, c := range s.Commands {
		if c.Kind == CmdDrawIndexed && c.Label == pass {
			out = append(out, c)
		}
	}
	return out
}

// Passes returns the render pass labels in recording order.
//
// Returns:
//   - []string: the pass labels
func (s Submission) Passes() []string {
	var out []string
	for _, c := range s.Commands {
		if c.Kind == CmdBeginRenderPass {
			out = append(out, c.Pass.Label)
		}
	}
	return out
}

// Kinds returns the command kinds in recording order.
//
// Returns:
//   - []CommandKind: the kinds
func (s Submission) Kinds() []CommandKind {
	out := make([]CommandKind, len(s.Commands))
	for i, c := range s.Commands {
		out[i] = c.Kind
	}
	return out
}

// ResourceOp is a resource lifecycle operation.
type ResourceOp string

const (
	OpCreate  ResourceOp = "create"
	OpDestroy ResourceOp = "destroy"
)

// ResourceEvent records the creation or destruction of a backend object.
type ResourceEvent struct {
	Op    ResourceOp
	Kind  string
	ID    uint32
	Label string
}

// Submissions returns every submitted frame.
func (b *Backend) Submissions() []Submission {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.submissions)
}

// LastSubmission returns the most recently submitted frame.
//
// Returns:
//   - Submission: the last submission
//   - bool: false if nothing was submitted
func (b *Backend) LastSubmission() (Submission, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.submissions) == 0 {
		return Submission{}, false
	}
	return b.submissions[len(b.submissions)-1], true
}

// ResourceEvents returns the resource lifecycle log.
func (b *Backend) ResourceEvents() []ResourceEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.events)
}

// BufferData returns a copy of a buffer's contents.
//
// Parameters:
//   - id: the buffer
//   - offset: the first byte
//   - size: the number of bytes
//
// Returns:
//   - []byte: the bytes, or nil if the range is invalid
func (b *Backend) BufferData(id device.BufferID, offset, size uint64) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf, ok := b.buffers[id]
	if !ok || offset+size > uint64(len(buf.data)) {
		return nil
	}
	return slices.Clone(buf.data[offset : offset+size])
}

// TextureState returns the tracked state of a texture.
func (b *Backend) TextureState(id device.TextureID) (device.ResourceState, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	tex, ok := b.textures[id]
	if !ok {
		return device.ResourceStateCommon, false
	}
	return tex.state, true
}

// TextureDescriptor returns the descriptor a texture was created with.
func (b *Backend) TextureDescriptor(id device.TextureID) (device.TextureDescriptor, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	tex, ok := b.textures[id]
	if !ok {
		return device.TextureDescriptor{}, false
	}
	return tex.desc, true
}

// PipelineDescriptor returns the descriptor a pipeline was created with.
func (b *Backend) PipelineDescriptor(id device.PipelineID) (device.PipelineDescriptor, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	desc, ok := b.pipelines[id]
	return desc, ok
}

// FenceWaits returns how many times the CPU waited on the fence.
func (b *Backend) FenceWaits() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.waits
}

// Signaled returns the last signaled fence value.
func (b *Backend) Signaled() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.signaled
}

// Complete advances the simulated GPU to the last signaled value, as if all work finished.
func (b *Backend) Complete() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fenceMode != FenceHung {
		b.completed = b.signaled
	}
}
