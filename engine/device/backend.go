// Package device owns the graphics backend, the swapchain frame slots and the fence-based
// CPU/GPU synchronization that keeps the CPU from touching a frame slot the GPU still reads.
package device

import (
	"context"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/gogpu/gputypes"
)

// FrameCount is the number of frame slots (back buffers) in flight.
const FrameCount = 2

// ConstantAlignment is the byte alignment of every constant buffer binding.
const ConstantAlignment = 256

// Resource handles issued by a GraphicsBackend. The zero value of every handle is invalid.
type (
	BufferID   uint32
	TextureID  uint32
	SamplerID  uint32
	ShaderID   uint32
	PipelineID uint32
)

// GPUAddress identifies a byte range inside a backend buffer.
type GPUAddress struct {
	Buffer BufferID
	Offset uint64
	Size   uint64
}

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	PresentModeUncapped
)

// ResourceState is the logical usage state of a texture or the back buffer.
// Explicit APIs turn transitions into barriers; the others only track them.
type ResourceState int

const (
	ResourceStateCommon ResourceState = iota
	ResourceStateRenderTarget
	ResourceStatePresent
	ResourceStateDepthWrite
	ResourceStateShaderResource
	ResourceStateCopyDest
)

func (s ResourceState) String() string {
	switch s {
	case ResourceStateCommon:
		return "common"
	case ResourceStateRenderTarget:
		return "render_target"
	case ResourceStatePresent:
		return "present"
	case ResourceStateDepthWrite:
		return "depth_write"
	case ResourceStateShaderResource:
		return "shader_resource"
	case ResourceStateCopyDest:
		return "copy_dest"
	default:
		return "unknown"
	}
}

// ClipDepthRange is the normalized device depth range a backend rasterizes.
type ClipDepthRange int

const (
	// ClipDepthZeroToOne is the [0, 1] range used by WebGPU, Vulkan, Metal and D3D.
	ClipDepthZeroToOne ClipDepthRange = iota

	// ClipDepthNegativeOneToOne is the [-1, 1] range used by OpenGL without clip control.
	ClipDepthNegativeOneToOne
)

// ShaderLanguage is the source language a backend compiles.
type ShaderLanguage int

const (
	ShaderLanguageWGSL ShaderLanguage = iota
	ShaderLanguageGLSL
)

func (l ShaderLanguage) String() string {
	if l == ShaderLanguageGLSL {
		return "glsl"
	}
	return "wgsl"
}

// Capabilities describes the conventions a backend expects from the renderer.
type Capabilities struct {
	// ClipDepth is the depth range of clip space. Projections built for [0, 1] must be remapped
	// when this is ClipDepthNegativeOneToOne.
	ClipDepth ClipDepthRange

	// RowMajorConstants is true when the shading language reads matrices as rows, in which case
	// matrices must be transposed before upload.
	RowMajorConstants bool

	// ShaderLanguage is the source language CreateShader accepts.
	ShaderLanguage ShaderLanguage

	// SwapchainFormat is the color format of the back buffers.
	SwapchainFormat gputypes.TextureFormat

	// ComparisonBorder reports whether comparison samplers clamp to a border depth of 1.0.
	// Backends without border support clamp to the edge texel instead.
	ComparisonBorder bool
}

// ConstantSlot is a constant buffer binding point shared by every pipeline.
type ConstantSlot int

const (
	// ConstantSlotFrame holds the PerFrameConstants block.
	ConstantSlotFrame ConstantSlot = iota

	// ConstantSlotDraw holds the PerDrawConstants block.
	ConstantSlotDraw
)

// BufferDescriptor describes a GPU buffer.
type BufferDescriptor struct {
	Label string
	Size  uint64
	Usage gputypes.BufferUsage
}

// TextureDescriptor describes a single-mip 2D texture.
type TextureDescriptor struct {
	Label  string
	Width  uint32
	Height uint32
	Format gputypes.TextureFormat
	Usage  gputypes.TextureUsage
}

// SamplerDescriptor describes a linear clamping sampler. Comparison samplers compare a
// reference depth against the texel with Compare instead of returning the texel.
type SamplerDescriptor struct {
	Label      string
	Comparison bool
	Compare    gputypes.CompareFunction
	// Border requests clamp-to-border addressing with an opaque white border where supported.
	Border bool
}

// ShaderDescriptor carries the source of one vertex/fragment program.
type ShaderDescriptor struct {
	Label          string
	Language       ShaderLanguage
	VertexSource   string
	FragmentSource string
	VertexEntry    string
	FragmentEntry  string
}

// VertexAttribute describes one vertex input.
type VertexAttribute struct {
	Location uint32
	Format   gputypes.VertexFormat
	Offset   uint64
}

// VertexLayout describes the single interleaved vertex buffer every pipeline reads.
type VertexLayout struct {
	Stride     uint64
	Attributes []VertexAttribute
}

// PipelineDescriptor is the backend-agnostic render pipeline state.
type PipelineDescriptor struct {
	Label  string
	Shader ShaderID
	Vertex VertexLayout

	Topology  gputypes.PrimitiveTopology
	FrontFace gputypes.FrontFace
	CullMode  gputypes.CullMode

	// ColorTarget enables a color attachment in the swapchain format.
	ColorTarget    bool
	ColorWriteMask gputypes.ColorWriteMask

	DepthFormat         gputypes.TextureFormat
	DepthWriteEnabled   bool
	DepthCompare        gputypes.CompareFunction
	DepthBias           int32
	DepthBiasSlopeScale float32

	// SamplesShadowMap adds the shadow texture and comparison sampler bindings to the layout.
	SamplesShadowMap bool
}

// RenderPassDescriptor describes the attachments of one render pass.
type RenderPassDescriptor struct {
	Label string

	// Color renders into the current back buffer.
	Color      bool
	ClearColor common.Color
	// LoadColor keeps the existing back buffer contents instead of clearing.
	LoadColor bool

	// Depth is the depth attachment, or 0 for none.
	Depth      TextureID
	ClearDepth float32
	// LoadDepth keeps the existing depth contents instead of clearing.
	LoadDepth bool
}

// Surface is the window-side collaborator a backend renders into. Backends type-assert it to the
// richer interface they need (a WebGPU surface descriptor, a GL context).
type Surface interface {
	// FramebufferSize returns the drawable size in pixels.
	//
	// Returns:
	//   - width, height: the framebuffer size
	FramebufferSize() (width, height int)
}

// GraphicsBackend is the capability interface every graphics API implements. The renderer,
// device and shadow map only talk to the GPU through it.
//
// Recording calls (passes, bindings, draws) are only valid between BeginCommands and Submit.
// Errors from recording calls surface from Submit.
type GraphicsBackend interface {
	// Name returns the registry name of the backend.
	//
	// Returns:
	//   - string: the backend name
	Name() string

	// Capabilities returns the conventions the backend expects.
	//
	// Returns:
	//   - Capabilities: the backend capabilities
	Capabilities() Capabilities

	// Init creates the device and a swapchain of FrameCount back buffers.
	//
	// Parameters:
	//   - surface: the window surface, may be nil for offscreen backends
	//   - width, height: the initial back buffer size
	//   - mode: the present mode
	//
	// Returns:
	//   - error: a diagnostic error if the device cannot be created
	Init(surface Surface, width, height uint32, mode PresentMode) error

	// ResizeSwapchain recreates the back buffers at a new size. The GPU must be idle.
	//
	// Parameters:
	//   - width, height: the new size, both non-zero
	//
	// Returns:
	//   - error: an error if the swapchain cannot be recreated
	ResizeSwapchain(width, height uint32) error

	// CurrentBackBufferIndex returns the back buffer the next frame renders into.
	//
	// Returns:
	//   - int: an index in [0, FrameCount)
	CurrentBackBufferIndex() int

	CreateBuffer(desc BufferDescriptor) (BufferID, error)
	WriteBuffer(id BufferID, offset uint64, data []byte) error
	DestroyBuffer(id BufferID)

	CreateTexture(desc TextureDescriptor) (TextureID, error)
	// WriteTexture uploads tightly packed pixel rows for the whole texture.
	WriteTexture(id TextureID, data []byte) error
	DestroyTexture(id TextureID)

	CreateSampler(desc SamplerDescriptor) (SamplerID, error)
	DestroySampler(id SamplerID)

	// CreateShader compiles a program. Compile failures return a *ShaderCompileError.
	CreateShader(desc ShaderDescriptor) (ShaderID, error)
	DestroyShader(id ShaderID)

	CreatePipeline(desc PipelineDescriptor) (PipelineID, error)
	DestroyPipeline(id PipelineID)

	// BeginCommands resets the command recording state of a frame slot and acquires its back buffer.
	//
	// Parameters:
	//   - slot: the frame slot being recorded
	//
	// Returns:
	//   - error: an error if the back buffer cannot be acquired
	BeginCommands(slot int) error

	// TransitionBackBuffer moves the current back buffer to a new state.
	TransitionBackBuffer(state ResourceState)

	// TransitionTexture moves a texture between states.
	TransitionTexture(id TextureID, before, after ResourceState)

	BeginRenderPass(desc RenderPassDescriptor) error
	EndRenderPass()
	SetPipeline(id PipelineID)
	SetConstants(slot ConstantSlot, addr GPUAddress)
	SetShadowMap(texture TextureID, sampler SamplerID)
	SetVertexBuffer(id BufferID)
	SetIndexBuffer(id BufferID, format gputypes.IndexFormat)
	DrawIndexed(indexCount, firstIndex uint32, baseVertex int32)

	// Submit closes the recorded commands and hands them to the GPU queue.
	//
	// Returns:
	//   - error: an error if any recorded command failed
	Submit() error

	// Present shows the current back buffer and advances CurrentBackBufferIndex.
	//
	// Returns:
	//   - error: an error if presentation failed
	Present() error

	// Signal enqueues a fence signal that completes after all previously submitted work.
	//
	// Parameters:
	//   - value: the fence value, monotonically increasing
	//
	// Returns:
	//   - error: an error if the signal cannot be enqueued
	Signal(value uint64) error

	// CompletedValue returns the highest fence value the GPU has reached.
	//
	// Returns:
	//   - uint64: the completed fence value
	CompletedValue() uint64

	// WaitForValue blocks until the fence reaches value or ctx is done.
	//
	// Parameters:
	//   - ctx: bounds the wait
	//   - value: the fence value to wait for
	//
	// Returns:
	//   - error: ctx.Err() when the wait was abandoned
	WaitForValue(ctx context.Context, value uint64) error

	// Release destroys every backend object. The GPU must be idle.
	Release()
}
