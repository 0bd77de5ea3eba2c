package shader

import (
	"embed"
	"fmt"

	"github.com/Carmen-Shannon/oxy-forward/engine/device"
)

//go:embed assets/*
var assets embed.FS

// glslHeader is prepended to every GLSL stage.
const glslHeader = "#version 410 core\n"

// Program names one of the built-in shader programs.
type Program string

const (
	// ProgramShadow renders casters into the shadow map from the light's point of view. Depth-only.
	ProgramShadow Program = "shadow"

	// ProgramDepthPrepass lays down scene depth with the forward program's vertex stage. Depth-only.
	ProgramDepthPrepass Program = "depth_prepass"

	// ProgramForward shades geometry with one directional light and a shadow lookup.
	ProgramForward Program = "forward"
)

// Programs lists the built-in programs in creation order.
var Programs = []Program{ProgramShadow, ProgramDepthPrepass, ProgramForward}

type programFiles struct {
	wgsl          string
	glslVertex    string
	glslFragment  string
	wgslDepthOnly bool
}

var programSources = map[Program]programFiles{
	ProgramShadow:       {wgsl: "shadow.wgsl", glslVertex: "shadow.vert", wgslDepthOnly: true},
	ProgramDepthPrepass: {wgsl: "forward.wgsl", glslVertex: "forward.vert", wgslDepthOnly: true},
	ProgramForward:      {wgsl: "forward.wgsl", glslVertex: "forward.vert", glslFragment: "forward.frag"},
}

// Load builds one of the built-in programs in the requested shading language. The shared
// constant buffer and vertex declarations are prepended to every stage.
//
// Parameters:
//   - program: the program to load
//   - language: the shading language the backend consumes
//
// Returns:
//   - Shader: the loaded program
//   - error: an error if the program or language is unknown
func Load(program Program, language device.ShaderLanguage) (Shader, error) {
	files, ok := programSources[program]
	if !ok {
		return nil, fmt.Errorf("unknown shader program %q", program)
	}

	switch language {
	case device.ShaderLanguageWGSL:
		module, err := concat("common.wgsl", files.wgsl)
		if err != nil {
			return nil, err
		}
		options := []ShaderBuilderOption{WithVertexSource(module)}
		if !files.wgslDepthOnly {
			options = append(options, WithFragmentSource(module))
		}
		return NewShader(string(program), language, options...)

	case device.ShaderLanguageGLSL:
		vertex, err := concat("common.glsl", files.glslVertex)
		if err != nil {
			return nil, err
		}
		options := []ShaderBuilderOption{WithVertexSource(glslHeader + vertex)}
		if files.glslFragment != "" {
			fragment, err := concat("common.glsl", files.glslFragment)
			if err != nil {
				return nil, err
			}
			options = append(options, WithFragmentSource(glslHeader+fragment))
		}
		return NewShader(string(program), language, options...)
	}
	return nil, fmt.Errorf("shader program %q: unsupported language %s", program, language)
}

func concat(names ...string) (string, error) {
	var out []byte
	for _, name := range names {
		data, err := assets.ReadFile("assets/" + name)
		if err != nil {
			return "", fmt.Errorf("reading shader asset %q: %w", name, err)
		}
		out = append(out, data...)
		out = append(out, '\n')
	}
	return string(out), nil
}
