package shader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/device"
	"github.com/gogpu/naga"
)

// Validate checks a program with the shading language front-end before it reaches a device.
// WGSL modules are compiled with naga; the compiler's diagnostic is returned verbatim.
// GLSL has no front-end here and is validated by the driver when the backend compiles it.
//
// Parameters:
//   - s: the program to validate
//
// Returns:
//   - error: a *device.ShaderCompileError carrying the compiler diagnostic, or nil
func Validate(s Shader) error {
	if s.Language() != device.ShaderLanguageWGSL {
		return nil
	}
	if _, err := naga.Compile(s.VertexSource()); err != nil {
		return &device.ShaderCompileError{Label: s.Key(), Stage: "wgsl", Log: err.Error()}
	}
	if !s.DepthOnly() && s.FragmentSource() != s.VertexSource() {
		if _, err := naga.Compile(s.FragmentSource()); err != nil {
			return &device.ShaderCompileError{Label: s.Key(), Stage: "wgsl", Log: err.Error()}
		}
	}
	return nil
}

// Compile validates a program and creates it on a backend. This is the shader compile service
// the renderer uses for every built-in program.
//
// Parameters:
//   - backend: the backend to create the program on
//   - s: the program
//
// Returns:
//   - device.ShaderID: the backend program handle
//   - error: device.ErrInvalidArgument on a language mismatch, or a *device.ShaderCompileError
func Compile(backend device.GraphicsBackend, s Shader) (device.ShaderID, error) {
	if want := backend.Capabilities().ShaderLanguage; s.Language() != want {
		return 0, fmt.Errorf("%w: shader %q is %s but backend %s consumes %s",
			device.ErrInvalidArgument, s.Key(), s.Language(), backend.Name(), want)
	}
	if err := Validate(s); err != nil {
		return 0, err
	}
	id, err := backend.CreateShader(s.Descriptor())
	if err != nil {
		return 0, fmt.Errorf("creating shader %q: %w", s.Key(), err)
	}
	common.Logger().Debug().Str("shader", s.Key()).Str("language", s.Language().String()).Msg("shader compiled")
	return id, nil
}
