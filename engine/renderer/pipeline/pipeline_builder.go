package pipeline

import (
	"github.com/Carmen-Shannon/oxy-forward/engine/light"
	"github.com/Carmen-Shannon/oxy-forward/engine/renderer/shader"
	"github.com/gogpu/gputypes"
)

// Keys of the preset pipelines.
const (
	KeyShadow           = "shadow"
	KeyDepthPrepass     = "depth_prepass"
	KeyForward          = "forward"
	KeyForwardNoPrepass = "forward_no_prepass"
)

// PipelineBuilderOption is a functional option used to configure a Pipeline during construction.
type PipelineBuilderOption func(*pipeline)

// WithDepthTestEnabled sets whether depth testing is enabled for this pipeline.
//
// Parameters:
//   - enabled: a boolean indicating whether depth testing should be enabled
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth test enabled state for this pipeline
func WithDepthTestEnabled(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthTestEnabled = enabled
	}
}

// WithDepthWriteEnabled sets whether depth writing is enabled for this pipeline.
//
// Parameters:
//   - enabled: a boolean indicating whether depth writing should be enabled
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth write enabled state for this pipeline
func WithDepthWriteEnabled(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthWriteEnabled = enabled
	}
}

// WithDepthCompare sets the depth comparison function for this pipeline.
//
// Parameters:
//   - compare: the comparison function
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth comparison for this pipeline
func WithDepthCompare(compare gputypes.CompareFunction) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthCompare = compare
	}
}

// WithDepthBias sets the constant depth bias and slope scale for this pipeline.
//
// Parameters:
//   - bias: the constant depth bias
//   - slopeScale: the slope-scaled depth bias
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth bias for this pipeline
func WithDepthBias(bias int32, slopeScale float32) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthBias = bias
		p.depthBiasSlopeScale = slopeScale
	}
}

// WithCullMode sets the face culling mode for this pipeline.
//
// Parameters:
//   - mode: the cull mode
//
// Returns:
//   - PipelineBuilderOption: a function that sets the cull mode for this pipeline
func WithCullMode(mode gputypes.CullMode) PipelineBuilderOption {
	return func(p *pipeline) {
		p.cullMode = mode
	}
}

// WithTopology sets the primitive topology for this pipeline.
//
// Parameters:
//   - topology: the primitive topology
//
// Returns:
//   - PipelineBuilderOption: a function that sets the topology for this pipeline
func WithTopology(topology gputypes.PrimitiveTopology) PipelineBuilderOption {
	return func(p *pipeline) {
		p.topology = topology
	}
}

// WithFrontFace sets the front face winding order for this pipeline.
//
// Parameters:
//   - frontFace: the winding order considered front-facing
//
// Returns:
//   - PipelineBuilderOption: a function that sets the front face for this pipeline
func WithFrontFace(frontFace gputypes.FrontFace) PipelineBuilderOption {
	return func(p *pipeline) {
		p.frontFace = frontFace
	}
}

// WithWriteMask sets the color write mask for this pipeline.
//
// Parameters:
//   - mask: the color channels to write
//
// Returns:
//   - PipelineBuilderOption: a function that sets the write mask for this pipeline
func WithWriteMask(mask gputypes.ColorWriteMask) PipelineBuilderOption {
	return func(p *pipeline) {
		p.writeMask = mask
	}
}

// WithColorTarget sets whether the pipeline renders into the swapchain color target.
//
// Parameters:
//   - enabled: false for depth-only pipelines
//
// Returns:
//   - PipelineBuilderOption: a function that sets the color target state for this pipeline
func WithColorTarget(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.colorTarget = enabled
	}
}

// WithShadowMapSampling sets whether the pipeline binds the shadow map for comparison sampling.
//
// Parameters:
//   - enabled: true to bind the shadow map group
//
// Returns:
//   - PipelineBuilderOption: a function that sets the shadow sampling state for this pipeline
func WithShadowMapSampling(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.samplesShadowMap = enabled
	}
}

// Shadow returns the depth-only shadow pipeline. It renders back faces culled with a
// constant and slope-scaled depth bias to keep lit surfaces from self-shadowing.
//
// Returns:
//   - Pipeline: the shadow pipeline
func Shadow() Pipeline {
	return NewPipeline(KeyShadow, shader.ProgramShadow,
		WithColorTarget(false),
		WithDepthBias(light.ShadowDepthBias, light.ShadowSlopeScale),
	)
}

// DepthPrepass returns the depth prepass pipeline. It writes scene depth with no color output.
//
// Returns:
//   - Pipeline: the depth prepass pipeline
func DepthPrepass() Pipeline {
	return NewPipeline(KeyDepthPrepass, shader.ProgramDepthPrepass,
		WithColorTarget(false),
		WithWriteMask(gputypes.ColorWriteMaskNone),
	)
}

// Forward returns the forward shading pipeline. With a prepass the depth buffer is already
// final, so the pipeline tests Equal and skips depth writes; without one it tests Less and writes.
//
// Parameters:
//   - withPrepass: whether a depth prepass runs before the forward pass
//
// Returns:
//   - Pipeline: the forward pipeline
func Forward(withPrepass bool) Pipeline {
	if withPrepass {
		return NewPipeline(KeyForward, shader.ProgramForward,
			WithDepthCompare(gputypes.CompareFunctionEqual),
			WithDepthWriteEnabled(false),
			WithShadowMapSampling(true),
		)
	}
	return NewPipeline(KeyForwardNoPrepass, shader.ProgramForward,
		WithShadowMapSampling(true),
	)
}
