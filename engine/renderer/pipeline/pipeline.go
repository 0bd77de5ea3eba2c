package pipeline

import (
	"github.com/Carmen-Shannon/oxy-forward/engine/device"
	"github.com/Carmen-Shannon/oxy-forward/engine/renderer/shader"
	"github.com/gogpu/gputypes"
)

// pipeline is the implementation of the Pipeline interface.
// It holds the backend-agnostic pipeline state and the backend handle once created.
type pipeline struct {
	// pipelineKey is the unique identifier for this pipeline, used for caching and lookups
	pipelineKey string
	// program is the built-in shader program the pipeline runs
	program shader.Program
	// handle is the backend pipeline, zero until the pipeline is created on a backend
	handle device.PipelineID

	depthTestEnabled    bool
	depthWriteEnabled   bool
	depthCompare        gputypes.CompareFunction
	depthBias           int32
	depthBiasSlopeScale float32
	cullMode            gputypes.CullMode
	topology            gputypes.PrimitiveTopology
	frontFace           gputypes.FrontFace
	writeMask           gputypes.ColorWriteMask
	colorTarget         bool
	samplesShadowMap    bool
}

// Pipeline describes the fixed-function state of a render pipeline in backend-neutral terms:
// depth test and write, depth bias, culling, topology, winding and color output. Backends
// translate the Descriptor into their native pipeline objects.
type Pipeline interface {
	// PipelineKey returns the unique key associated with this pipeline, used for caching and lookups.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	PipelineKey() string

	// Program returns the shader program the pipeline runs.
	//
	// Returns:
	//   - shader.Program: the program
	Program() shader.Program

	// Handle returns the backend pipeline created from this description.
	//
	// Returns:
	//   - device.PipelineID: the backend handle, or zero if not created yet
	Handle() device.PipelineID

	// SetHandle stores the backend pipeline created from this description.
	//
	// Parameters:
	//   - id: the backend handle
	SetHandle(id device.PipelineID)

	// DepthTestEnabled returns whether depth testing is enabled for this pipeline.
	//
	// Returns:
	//   - bool: true if depth testing is enabled, false otherwise
	DepthTestEnabled() bool

	// DepthWriteEnabled returns whether depth writing is enabled for this pipeline.
	//
	// Returns:
	//   - bool: true if depth writing is enabled, false otherwise
	DepthWriteEnabled() bool

	// DepthCompare returns the depth comparison function. Always when depth testing is disabled.
	//
	// Returns:
	//   - gputypes.CompareFunction: the comparison function
	DepthCompare() gputypes.CompareFunction

	// DepthBias returns the constant depth bias value configured for this pipeline.
	//
	// Returns:
	//   - int32: the depth bias value for this pipeline
	DepthBias() int32

	// DepthBiasSlopeScale returns the depth bias slope scale configured for this pipeline.
	//
	// Returns:
	//   - float32: the depth bias slope scale for this pipeline
	DepthBiasSlopeScale() float32

	// CullMode returns the cull mode configured for this pipeline.
	//
	// Returns:
	//   - gputypes.CullMode: the cull mode
	CullMode() gputypes.CullMode

	// Topology returns the primitive topology configured for this pipeline.
	//
	// Returns:
	//   - gputypes.PrimitiveTopology: the primitive topology
	Topology() gputypes.PrimitiveTopology

	// FrontFace returns the front face winding order configured for this pipeline.
	//
	// Returns:
	//   - gputypes.FrontFace: the winding order
	FrontFace() gputypes.FrontFace

	// WriteMask returns the color write mask configured for this pipeline.
	//
	// Returns:
	//   - gputypes.ColorWriteMask: the color write mask
	WriteMask() gputypes.ColorWriteMask

	// ColorTarget returns whether the pipeline writes to the swapchain color target.
	// Depth-only pipelines (shadow) have no color target.
	//
	// Returns:
	//   - bool: true if a color target is attached
	ColorTarget() bool

	// SamplesShadowMap returns whether the pipeline binds the shadow map and its comparison sampler.
	//
	// Returns:
	//   - bool: true if the shadow map is sampled
	SamplesShadowMap() bool

	// Descriptor builds the backend pipeline descriptor.
	//
	// Parameters:
	//   - shaderID: the backend program created for Program()
	//   - layout: the vertex buffer layout of the program
	//   - depthFormat: the format of the depth attachment
	//
	// Returns:
	//   - device.PipelineDescriptor: the descriptor
	Descriptor(shaderID device.ShaderID, layout device.VertexLayout, depthFormat gputypes.TextureFormat) device.PipelineDescriptor
}

var _ Pipeline = &pipeline{}

// NewPipeline creates a new Pipeline description. The defaults are a depth-tested, depth-writing
// (Less) triangle list with counter-clockwise front faces, back-face culling and a color target
// with all channels written.
//
// Parameters:
//   - pipelineKey: the unique key for this pipeline
//   - program: the shader program the pipeline runs
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: a new Pipeline instance with the specified configuration
func NewPipeline(pipelineKey string, program shader.Program, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		pipelineKey:       pipelineKey,
		program:           program,
		depthTestEnabled:  true,
		depthWriteEnabled: true,
		depthCompare:      gputypes.CompareFunctionLess,
		cullMode:          gputypes.CullModeBack,
		topology:          gputypes.PrimitiveTopologyTriangleList,
		frontFace:         gputypes.FrontFaceCCW,
		writeMask:         gputypes.ColorWriteMaskAll,
		colorTarget:       true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Program() shader.Program {
	return p.program
}

func (p *pipeline) Handle() device.PipelineID {
	return p.handle
}

func (p *pipeline) SetHandle(id device.PipelineID) {
	p.handle = id
}

func (p *pipeline) DepthTestEnabled() bool {
	return p.depthTestEnabled
}

func (p *pipeline) DepthWriteEnabled() bool {
	return p.depthWriteEnabled
}

func (p *pipeline) DepthCompare() gputypes.CompareFunction {
	if !p.depthTestEnabled {
		return gputypes.CompareFunctionAlways
	}
	return p.depthCompare
}

func (p *pipeline) DepthBias() int32 {
	return p.depthBias
}

func (p *pipeline) DepthBiasSlopeScale() float32 {
	return p.depthBiasSlopeScale
}

func (p *pipeline) CullMode() gputypes.CullMode {
	return p.cullMode
}

func (p *pipeline) Topology() gputypes.PrimitiveTopology {
	return p.topology
}

func (p *pipeline) FrontFace() gputypes.FrontFace {
	return p.frontFace
}

func (p *pipeline) WriteMask() gputypes.ColorWriteMask {
	if !p.colorTarget {
		return gputypes.ColorWriteMaskNone
	}
	return p.writeMask
}

func (p *pipeline) ColorTarget() bool {
	return p.colorTarget
}

func (p *pipeline) SamplesShadowMap() bool {
	return p.samplesShadowMap
}

func (p *pipeline) Descriptor(shaderID device.ShaderID, layout device.VertexLayout, depthFormat gputypes.TextureFormat) device.PipelineDescriptor {
	return device.PipelineDescriptor{
		Label:               p.pipelineKey,
		Shader:              shaderID,
		Vertex:              layout,
		Topology:            p.topology,
		FrontFace:           p.frontFace,
		CullMode:            p.cullMode,
		ColorTarget:         p.colorTarget,
		ColorWriteMask:      p.WriteMask(),
		DepthFormat:         depthFormat,
		DepthWriteEnabled:   p.depthWriteEnabled,
		DepthCompare:        p.DepthCompare(),
		DepthBias:           p.depthBias,
		DepthBiasSlopeScale: p.depthBiasSlopeScale,
		SamplesShadowMap:    p.samplesShadowMap,
	}
}
