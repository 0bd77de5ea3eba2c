package shader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-forward/engine/device"
)

// ShaderType identifies a programmable pipeline stage.
type ShaderType int

const (
	// ShaderTypeVertex is the vertex stage.
	ShaderTypeVertex ShaderType = iota

	// ShaderTypeFragment is the fragment stage, paired with a vertex stage in render pipelines.
	ShaderTypeFragment
)

// shader is the implementation of the Shader interface.
type shader struct {
	key            string
	language       device.ShaderLanguage
	vertexSource   string
	fragmentSource string
	vertexEntry    string
	fragmentEntry  string
	vertexLayout   device.VertexLayout
}

// Shader is a loaded shader program: the source text for each stage in one shading language,
// the stage entry points and the vertex buffer layout the vertex stage consumes.
//
// WGSL programs keep every stage in one module, so VertexSource and FragmentSource are the
// same text. A program without a fragment stage is depth-only.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used for labels and lookups.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Language returns the shading language of the sources.
	//
	// Returns:
	//   - device.ShaderLanguage: WGSL or GLSL
	Language() device.ShaderLanguage

	// VertexSource returns the vertex stage source text.
	//
	// Returns:
	//   - string: the source text
	VertexSource() string

	// FragmentSource returns the fragment stage source text, or an empty string for
	// depth-only programs.
	//
	// Returns:
	//   - string: the source text
	FragmentSource() string

	// EntryPoint returns the entry point name of a stage.
	//
	// Parameters:
	//   - shaderType: the stage
	//
	// Returns:
	//   - string: the entry point name, or an empty string if the stage is absent
	EntryPoint(shaderType ShaderType) string

	// VertexLayout returns the vertex buffer layout consumed by the vertex stage.
	//
	// Returns:
	//   - device.VertexLayout: the layout
	VertexLayout() device.VertexLayout

	// DepthOnly reports whether the program has no fragment stage.
	//
	// Returns:
	//   - bool: true for depth-only programs
	DepthOnly() bool

	// Descriptor returns the backend descriptor used to create the program.
	//
	// Returns:
	//   - device.ShaderDescriptor: the descriptor
	Descriptor() device.ShaderDescriptor
}

var _ Shader = &shader{}

// NewShader creates a new Shader from the provided sources. For WGSL sources the entry points
// and the vertex layout are parsed from the source unless set explicitly; GLSL entry points
// are always "main" and the layout is parsed from the vertex stage's location-qualified inputs.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - language: the shading language of the sources
//   - options: variadic list of ShaderBuilderOption functions to configure the shader
//
// Returns:
//   - Shader: the new shader
//   - error: an error if the vertex source is missing, or an entry point or the vertex layout cannot be determined
func NewShader(key string, language device.ShaderLanguage, options ...ShaderBuilderOption) (Shader, error) {
	s := &shader{key: key, language: language}
	for _, option := range options {
		option(s)
	}
	if s.vertexSource == "" {
		return nil, fmt.Errorf("shader %q: a vertex source is required", key)
	}

	switch language {
	case device.ShaderLanguageWGSL:
		if s.vertexEntry == "" {
			s.vertexEntry = parseEntryPoint(s.vertexSource, ShaderTypeVertex)
		}
		if s.fragmentSource != "" && s.fragmentEntry == "" {
			s.fragmentEntry = parseEntryPoint(s.fragmentSource, ShaderTypeFragment)
		}
		if len(s.vertexLayout.Attributes) == 0 {
			s.vertexLayout, _ = parseVertexLayout(s.vertexSource)
		}
	case device.ShaderLanguageGLSL:
		s.vertexEntry = "main"
		if s.fragmentSource != "" {
			s.fragmentEntry = "main"
		}
		if len(s.vertexLayout.Attributes) == 0 {
			s.vertexLayout, _ = parseGLSLVertexLayout(s.vertexSource)
		}
	}

	if s.fragmentSource == "" {
		s.fragmentEntry = ""
	}
	if s.vertexEntry == "" {
		return nil, fmt.Errorf("shader %q: no vertex entry point found", key)
	}
	if s.fragmentSource != "" && s.fragmentEntry == "" {
		return nil, fmt.Errorf("shader %q: no fragment entry point found", key)
	}
	if s.vertexLayout.Stride == 0 {
		return nil, fmt.Errorf("shader %q: no vertex input layout found", key)
	}
	return s, nil
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Language() device.ShaderLanguage {
	return s.language
}

func (s *shader) VertexSource() string {
	return s.vertexSource
}

func (s *shader) FragmentSource() string {
	return s.fragmentSource
}

func (s *shader) EntryPoint(shaderType ShaderType) string {
	switch shaderType {
	case ShaderTypeVertex:
		return s.vertexEntry
	case ShaderTypeFragment:
		return s.fragmentEntry
	}
	return ""
}

func (s *shader) VertexLayout() device.VertexLayout {
	return s.vertexLayout
}

func (s *shader) DepthOnly() bool {
	return s.fragmentSource == ""
}

func (s *shader) Descriptor() device.ShaderDescriptor {
	return device.ShaderDescriptor{
		Label:          s.key,
		Language:       s.language,
		VertexSource:   s.vertexSource,
		FragmentSource: s.fragmentSource,
		VertexEntry:    s.vertexEntry,
		FragmentEntry:  s.fragmentEntry,
	}
}
