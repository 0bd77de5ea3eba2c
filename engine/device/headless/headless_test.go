package headless

import (
	"context"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-forward/engine/device"
	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initBackend(t *testing.T, options ...BackendBuilderOption) *Backend {
	t.Helper()
	b := New(options...)
	require.NoError(t, b.Init(nil, 64, 64, device.PresentModeVSync))
	return b
}

func TestBufferContentsAreKept(t *testing.T) {
	b := initBackend(t)
	id, err := b.CreateBuffer(device.BufferDescriptor{Label: "vb", Size: 16, Usage: gputypes.BufferUsageVertex})
	require.NoError(t, err)
	require.NoError(t, b.WriteBuffer(id, 4, []byte{1, 2, 3, 4}))
	assert.Equal(t, []byte{1, 2, 3, 4}, b.BufferData(id, 4, 4))

	assert.Error(t, b.WriteBuffer(id, 14, []byte{1, 2, 3, 4}), "write past the end")
}

func TestDrawWithoutPipelineFailsSubmit(t *testing.T) {
	b := initBackend(t)
	require.NoError(t, b.BeginCommands(0))
	b.TransitionBackBuffer(device.ResourceStateRenderTarget)
	require.NoError(t, b.BeginRenderPass(device.RenderPassDescriptor{Label: "forward", Color: true}))
	b.DrawIndexed(36, 0, 0)
	b.EndRenderPass()
	b.TransitionBackBuffer(device.ResourceStatePresent)

	err := b.Submit()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without a pipeline")
	assert.Empty(t, b.Submissions())
}

func TestTextureTransitionsAreChecked(t *testing.T) {
	b := initBackend(t)
	tex, err := b.CreateTexture(device.TextureDescriptor{Label: "shadow", Width: 8, Height: 8,
		Format: gputypes.TextureFormatDepth32Float,
		Usage:  gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding})
	require.NoError(t, err)

	require.NoError(t, b.BeginCommands(0))
	b.TransitionTexture(tex, device.ResourceStateCommon, device.ResourceStateDepthWrite)
	b.TransitionTexture(tex, device.ResourceStateDepthWrite, device.ResourceStateShaderResource)
	state, ok := b.TextureState(tex)
	require.True(t, ok)
	assert.Equal(t, device.ResourceStateShaderResource, state)

	_ = b.BeginRenderPass(device.RenderPassDescriptor{Label: "shadow", Depth: tex})
	b.EndRenderPass()
	err = b.Submit()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bound for sampling")
}

func TestPresentRequiresPresentState(t *testing.T) {
	b := initBackend(t)
	require.NoError(t, b.BeginCommands(0))
	b.TransitionBackBuffer(device.ResourceStateRenderTarget)
	require.NoError(t, b.Submit())
	assert.Error(t, b.Present())
	assert.Equal(t, 0, b.CurrentBackBufferIndex())

	require.NoError(t, b.BeginCommands(0))
	b.TransitionBackBuffer(device.ResourceStatePresent)
	require.NoError(t, b.Submit())
	require.NoError(t, b.Present())
	assert.Equal(t, 1, b.CurrentBackBufferIndex())
	assert.Error(t, b.BeginCommands(0), "slot 0 is not the current back buffer")
}

func TestFenceModes(t *testing.T) {
	b := initBackend(t)
	require.NoError(t, b.Signal(1))
	assert.Equal(t, uint64(1), b.CompletedValue())
	assert.Error(t, b.Signal(1), "signals must increase")

	d := initBackend(t, WithFenceMode(FenceDeferred))
	require.NoError(t, d.Signal(3))
	assert.Equal(t, uint64(0), d.CompletedValue())
	require.NoError(t, d.WaitForValue(context.Background(), 2))
	assert.Equal(t, uint64(2), d.CompletedValue())
	d.Complete()
	assert.Equal(t, uint64(3), d.CompletedValue())

	h := initBackend(t, WithFenceMode(FenceHung))
	require.NoError(t, h.Signal(1))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, h.WaitForValue(ctx, 1), context.DeadlineExceeded)
	assert.Equal(t, 1, h.FenceWaits())
}

func TestShaderLanguageMismatch(t *testing.T) {
	b := initBackend(t)
	_, err := b.CreateShader(device.ShaderDescriptor{Label: "forward", Language: device.ShaderLanguageGLSL, VertexSource: "void main(){}"})
	var ce *device.ShaderCompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "forward", ce.Label)

	f := initBackend(t, WithShaderFailure("shadow"))
	_, err = f.CreateShader(device.ShaderDescriptor{Label: "shadow", Language: device.ShaderLanguageWGSL, VertexSource: "@vertex fn vs_main() {}"})
	require.ErrorAs(t, err, &ce)
}
