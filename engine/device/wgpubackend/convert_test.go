package wgpubackend

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-forward/engine/device"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextureFormat(t *testing.T) {
	f, err := textureFormat(gputypes.TextureFormatDepth32Float)
	require.NoError(t, err)
	assert.Equal(t, wgpu.TextureFormatDepth32Float, f)

	_, err = textureFormat(gputypes.TextureFormatR8Unorm)
	assert.ErrorIs(t, err, device.ErrInvalidArgument)
}

func TestUsageFlags(t *testing.T) {
	assert.Equal(t, wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst,
		bufferUsage(gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst))
	assert.Equal(t, wgpu.TextureUsageRenderAttachment|wgpu.TextureUsageTextureBinding,
		textureUsage(gputypes.TextureUsageRenderAttachment|gputypes.TextureUsageTextureBinding))
}

func TestWriteMaskKeepsChannels(t *testing.T) {
	assert.Equal(t, wgpu.ColorWriteMask(0), writeMask(0))
	assert.Equal(t, wgpu.ColorWriteMaskRed|wgpu.ColorWriteMaskAlpha,
		writeMask(gputypes.ColorWriteMaskRed|gputypes.ColorWriteMaskAlpha))
}

func TestPipelineStateMapping(t *testing.T) {
	assert.Equal(t, wgpu.CompareFunctionLessEqual, compareFunction(gputypes.CompareFunctionLessEqual))
	assert.Equal(t, wgpu.CullModeBack, cullMode(gputypes.CullModeBack))
	assert.Equal(t, wgpu.FrontFaceCCW, frontFace(gputypes.FrontFaceCCW))
	assert.Equal(t, wgpu.IndexFormatUint32, indexFormat(gputypes.IndexFormatUint32))
	assert.Equal(t, wgpu.PresentModeImmediate, presentMode(device.PresentModeUncapped))
	assert.Equal(t, wgpu.PresentModeFifo, presentMode(device.PresentModeVSync))
}

func TestVertexLayout(t *testing.T) {
	vl, err := vertexLayout(device.VertexLayout{
		Stride: 32,
		Attributes: []device.VertexAttribute{
			{Location: 0, Format: gputypes.VertexFormatFloat32x3, Offset: 0},
			{Location: 1, Format: gputypes.VertexFormatFloat32x3, Offset: 12},
			{Location: 2, Format: gputypes.VertexFormatFloat32x2, Offset: 24},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(32), vl.ArrayStride)
	require.Len(t, vl.Attributes, 3)
	assert.Equal(t, uint32(2), vl.Attributes[2].ShaderLocation)
	assert.Equal(t, uint64(24), vl.Attributes[2].Offset)

	_, err = vertexLayout(device.VertexLayout{Attributes: []device.VertexAttribute{{Format: gputypes.VertexFormat(0)}}})
	assert.ErrorIs(t, err, device.ErrInvalidArgument)
}

func TestInitRequiresSurface(t *testing.T) {
	b := New()
	err := b.Init(nil, 64, 64, device.PresentModeVSync)
	assert.Error(t, err)
	b.Release()
}

func TestRegisteredUnderWGPU(t *testing.T) {
	b, err := device.Get(device.BackendWGPU)
	require.NoError(t, err)
	assert.Equal(t, device.BackendWGPU, b.Name())
}
