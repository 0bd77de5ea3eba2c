package renderer

import (
	"github.com/Carmen-Shannon/oxy-forward/common"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithConstantBudget sets the per-frame-slot byte budget of the constant allocator.
// The value is rounded up to the constant alignment.
//
// Parameters:
//   - budget: bytes available to one frame slot
//
// Returns:
//   - RendererBuilderOption: a function that applies the constant budget option to a renderer
func WithConstantBudget(budget uint64) RendererBuilderOption {
	return func(r *renderer) {
		r.constantBudget = budget
	}
}

// WithShadowResolution sets the initial square resolution of the shadow map.
//
// Parameters:
//   - resolution: the shadow map width and height in texels
//
// Returns:
//   - RendererBuilderOption: a function that applies the shadow resolution option to a renderer
func WithShadowResolution(resolution uint32) RendererBuilderOption {
	return func(r *renderer) {
		r.shadowResolution = resolution
	}
}

// WithClearColor sets the color the forward pass clears the back buffer to.
//
// Parameters:
//   - color: the linear RGBA clear color
//
// Returns:
//   - RendererBuilderOption: a function that applies the clear color option to a renderer
func WithClearColor(color common.Color) RendererBuilderOption {
	return func(r *renderer) {
		r.clearColor = color
	}
}

// WithDepthPrepass enables or disables the depth prepass node of the frame graph.
//
// Parameters:
//   - enabled: true to lay down depth before the forward pass (default)
//
// Returns:
//   - RendererBuilderOption: a function that applies the depth prepass option to a renderer
func WithDepthPrepass(enabled bool) RendererBuilderOption {
	return func(r *renderer) {
		r.depthPrepass = enabled
	}
}

// WithShadows enables or disables the shadow pass node of the frame graph.
//
// Parameters:
//   - enabled: true to render and sample the shadow map (default)
//
// Returns:
//   - RendererBuilderOption: a function that applies the shadows option to a renderer
func WithShadows(enabled bool) RendererBuilderOption {
	return func(r *renderer) {
		r.shadows = enabled
	}
}
