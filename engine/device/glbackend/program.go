package glbackend

import (
	"strings"

	"github.com/Carmen-Shannon/oxy-forward/engine/device"
	"github.com/go-gl/gl/v4.1-core/gl"
)

// Uniform block and sampler names shared by every GLSL program, and the binding points they use.
const (
	frameBlockName = "FrameConstants"
	drawBlockName  = "DrawConstants"
	shadowMapName  = "shadow_map"

	shadowMapUnit = 0
)

var blockBindings = map[string]device.ConstantSlot{
	frameBlockName: device.ConstantSlotFrame,
	drawBlockName:  device.ConstantSlotDraw,
}

// buildProgram compiles and links a GLSL program and binds its constant blocks and shadow
// sampler to the shared binding points. A program without fragment source is depth-only.
func buildProgram(desc device.ShaderDescriptor) (uint32, error) {
	vert, err := compileStage(desc.Label, "vertex", desc.VertexSource, gl.VERTEX_SHADER)
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(vert)

	prog := gl.CreateProgram()
	gl.AttachShader(prog, vert)
	if desc.FragmentSource != "" {
		frag, err := compileStage(desc.Label, "fragment", desc.FragmentSource, gl.FRAGMENT_SHADER)
		if err != nil {
			gl.DeleteProgram(prog)
			return 0, err
		}
		defer gl.DeleteShader(frag)
		gl.AttachShader(prog, frag)
	}
	gl.LinkProgram(prog)

	var status int32
	gl.GetProgramiv(prog, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(prog, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetProgramInfoLog(prog, logLen, nil, gl.Str(log))
		gl.DeleteProgram(prog)
		return 0, &device.ShaderCompileError{Label: desc.Label, Stage: "link", Log: strings.TrimRight(log, "\x00")}
	}

	for name, slot := range blockBindings {
		idx := gl.GetUniformBlockIndex(prog, gl.Str(name+"\x00"))
		if idx != gl.INVALID_INDEX {
			gl.UniformBlockBinding(prog, idx, uint32(slot))
		}
	}
	if loc := gl.GetUniformLocation(prog, gl.Str(shadowMapName+"\x00")); loc >= 0 {
		gl.UseProgram(prog)
		gl.Uniform1i(loc, shadowMapUnit)
		gl.UseProgram(0)
	}
	return prog, nil
}

func compileStage(label, stage, src string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csrc, free := gl.Strs(src + "\x00")
	gl.ShaderSource(shader, 1, csrc, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetShaderInfoLog(shader, logLen, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, &device.ShaderCompileError{Label: label, Stage: stage, Log: strings.TrimRight(log, "\x00")}
	}
	return shader, nil
}
