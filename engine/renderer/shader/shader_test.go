package shader

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-forward/engine/device"
	"github.com/Carmen-Shannon/oxy-forward/engine/device/headless"
	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cubeLayout = device.VertexLayout{
	Stride: 40,
	Attributes: []device.VertexAttribute{
		{Location: 0, Format: gputypes.VertexFormatFloat32x3, Offset: 0},
		{Location: 1, Format: gputypes.VertexFormatFloat32x3, Offset: 12},
		{Location: 2, Format: gputypes.VertexFormatFloat32x4, Offset: 24},
	},
}

func TestLoadWGSLPrograms(t *testing.T) {
	tests := []struct {
		program   Program
		vertex    string
		fragment  string
		depthOnly bool
	}{
		{ProgramShadow, "vs_shadow", "", true},
		{ProgramDepthPrepass, "vs_main", "", true},
		{ProgramForward, "vs_main", "fs_main", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.program), func(t *testing.T) {
			s, err := Load(tt.program, device.ShaderLanguageWGSL)
			require.NoError(t, err)
			assert.Equal(t, string(tt.program), s.Key())
			assert.Equal(t, tt.vertex, s.EntryPoint(ShaderTypeVertex))
			assert.Equal(t, tt.fragment, s.EntryPoint(ShaderTypeFragment))
			assert.Equal(t, tt.depthOnly, s.DepthOnly())
			assert.Equal(t, cubeLayout, s.VertexLayout())
		})
	}
}

func TestLoadGLSLPrograms(t *testing.T) {
	for _, p := range Programs {
		s, err := Load(p, device.ShaderLanguageGLSL)
		require.NoError(t, err, p)
		assert.Contains(t, s.VertexSource(), "#version 410 core")
		assert.Equal(t, "main", s.EntryPoint(ShaderTypeVertex))
		assert.Equal(t, p == ProgramForward, !s.DepthOnly(), p)
		assert.Equal(t, cubeLayout, s.VertexLayout(), p)
	}
}

func TestConstantBlocksMatchHostLayout(t *testing.T) {
	s, err := Load(ProgramForward, device.ShaderLanguageWGSL)
	require.NoError(t, err)

	size, ok := structSize(s.VertexSource(), "FrameConstants")
	require.True(t, ok)
	assert.Equal(t, uint64(512), size)

	size, ok = structSize(s.VertexSource(), "DrawConstants")
	require.True(t, ok)
	assert.Equal(t, uint64(256), size)
}

func TestNewShaderRequiresVertexStage(t *testing.T) {
	_, err := NewShader("empty", device.ShaderLanguageWGSL)
	assert.Error(t, err)

	_, err = NewShader("no-inputs", device.ShaderLanguageWGSL,
		WithVertexSource("@vertex fn vs() -> @builtin(position) vec4<f32> { return vec4<f32>(0.0); }"))
	assert.Error(t, err, "a vertex layout is required")

	s, err := NewShader("explicit", device.ShaderLanguageWGSL,
		WithVertexSource("@vertex fn vs() -> @builtin(position) vec4<f32> { return vec4<f32>(0.0); }"),
		WithVertexLayout(cubeLayout),
		WithEntryPoints("vs", "fs"))
	require.NoError(t, err)
	assert.Equal(t, "", s.EntryPoint(ShaderTypeFragment), "depth-only programs have no fragment entry")
}

func TestValidateReportsDiagnostic(t *testing.T) {
	broken, err := NewShader("broken", device.ShaderLanguageWGSL,
		WithVertexSource("struct V { @location(0) p: vec3<f32>, }\n@vertex fn vs(v: V) -> @builtin(position) vec4<f32> { return undefined_fn(v.p); }"))
	require.NoError(t, err)

	err = Validate(broken)
	var ce *device.ShaderCompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "broken", ce.Label)
	assert.NotEmpty(t, ce.Log)
}

func TestBuiltInProgramsValidate(t *testing.T) {
	for _, p := range Programs {
		s, err := Load(p, device.ShaderLanguageWGSL)
		require.NoError(t, err)
		assert.NoError(t, Validate(s), p)
	}
}

func TestCompile(t *testing.T) {
	b := headless.New()
	require.NoError(t, b.Init(nil, 16, 16, device.PresentModeVSync))

	s, err := Load(ProgramForward, device.ShaderLanguageWGSL)
	require.NoError(t, err)
	id, err := Compile(b, s)
	require.NoError(t, err)
	assert.NotZero(t, id)

	glsl, err := Load(ProgramForward, device.ShaderLanguageGLSL)
	require.NoError(t, err)
	_, err = Compile(b, glsl)
	assert.ErrorIs(t, err, device.ErrInvalidArgument)

	failing := headless.New(headless.WithShaderFailure("shadow"))
	require.NoError(t, failing.Init(nil, 16, 16, device.PresentModeVSync))
	shadow, err := Load(ProgramShadow, device.ShaderLanguageWGSL)
	require.NoError(t, err)
	_, err = Compile(failing, shadow)
	var ce *device.ShaderCompileError
	assert.ErrorAs(t, err, &ce)
}
