package shader

import "github.com/Carmen-Shannon/oxy-forward/engine/device"

// ShaderBuilderOption is a function that configures a shader during construction.
type ShaderBuilderOption func(*shader)

// WithVertexSource sets the vertex stage source text.
//
// Parameters:
//   - source: the source text
//
// Returns:
//   - ShaderBuilderOption: a function that applies the vertex source option to a shader
func WithVertexSource(source string) ShaderBuilderOption {
	return func(s *shader) {
		s.vertexSource = source
	}
}

// WithFragmentSource sets the fragment stage source text. Leave unset for depth-only programs.
//
// Parameters:
//   - source: the source text
//
// Returns:
//   - ShaderBuilderOption: a function that applies the fragment source option to a shader
func WithFragmentSource(source string) ShaderBuilderOption {
	return func(s *shader) {
		s.fragmentSource = source
	}
}

// WithEntryPoints overrides the parsed WGSL entry point names.
//
// Parameters:
//   - vertex: the vertex entry point
//   - fragment: the fragment entry point, ignored for depth-only programs
//
// Returns:
//   - ShaderBuilderOption: a function that applies the entry point option to a shader
func WithEntryPoints(vertex, fragment string) ShaderBuilderOption {
	return func(s *shader) {
		s.vertexEntry = vertex
		s.fragmentEntry = fragment
	}
}

// WithVertexLayout overrides the parsed vertex buffer layout.
//
// Parameters:
//   - layout: the vertex buffer layout
//
// Returns:
//   - ShaderBuilderOption: a function that applies the vertex layout option to a shader
func WithVertexLayout(layout device.VertexLayout) ShaderBuilderOption {
	return func(s *shader) {
		s.vertexLayout = layout
	}
}
