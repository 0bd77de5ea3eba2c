package glbackend

import (
	"context"
	"testing"

	"github.com/Carmen-Shannon/oxy-forward/engine/device"
	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapabilities(t *testing.T) {
	caps := New().Capabilities()
	assert.Equal(t, device.ClipDepthNegativeOneToOne, caps.ClipDepth)
	assert.Equal(t, device.ShaderLanguageGLSL, caps.ShaderLanguage)
	assert.True(t, caps.RowMajorConstants)
	assert.True(t, caps.ComparisonBorder)
}

func TestRegisteredUnderGL(t *testing.T) {
	b, err := device.Get(device.BackendGL)
	require.NoError(t, err)
	assert.Equal(t, device.BackendGL, b.Name())
}

func TestTextureFormat(t *testing.T) {
	f, err := textureFormat(gputypes.TextureFormatDepth32Float)
	require.NoError(t, err)
	assert.Equal(t, int32(gl.DEPTH_COMPONENT32F), f.internal)
	assert.Equal(t, uint32(gl.FLOAT), f.xtype)

	f, err = textureFormat(gputypes.TextureFormatBGRA8Unorm)
	require.NoError(t, err)
	assert.Equal(t, uint32(gl.BGRA), f.format)

	_, err = textureFormat(gputypes.TextureFormatR8Unorm)
	assert.ErrorIs(t, err, device.ErrInvalidArgument)
}

func TestStateMapping(t *testing.T) {
	assert.Equal(t, uint32(gl.LEQUAL), compareFunc(gputypes.CompareFunctionLessEqual))
	assert.Equal(t, uint32(gl.EQUAL), compareFunc(gputypes.CompareFunctionEqual))

	face, ok := cullFace(gputypes.CullModeBack)
	assert.True(t, ok)
	assert.Equal(t, uint32(gl.BACK), face)
	_, ok = cullFace(gputypes.CullModeNone)
	assert.False(t, ok)

	typ, size := indexType(gputypes.IndexFormatUint16)
	assert.Equal(t, uint32(gl.UNSIGNED_SHORT), typ)
	assert.Equal(t, 2, size)

	n, err := vertexComponents(gputypes.VertexFormatFloat32x3)
	require.NoError(t, err)
	assert.Equal(t, int32(3), n)

	r, g, b, a := colorMask(gputypes.ColorWriteMaskRed | gputypes.ColorWriteMaskBlue)
	assert.Equal(t, []bool{true, false, true, false}, []bool{r, g, b, a})

	assert.Equal(t, 0, swapInterval(device.PresentModeUncapped))
	assert.Equal(t, 1, swapInterval(device.PresentModeVSync))
}

func TestUninitializedBackendRefusesWork(t *testing.T) {
	b := New()
	assert.Error(t, b.Init(nil, 64, 64, device.PresentModeVSync))
	assert.Error(t, b.BeginCommands(0))
	assert.Error(t, b.Submit())
	assert.Error(t, b.Signal(1))
	assert.Error(t, b.WaitForValue(context.Background(), 1))

	_, err := b.CreateBuffer(device.BufferDescriptor{Label: "vb", Size: 64})
	assert.Error(t, err)
	b.Release()
}

func TestFailedFenceWaitIsKept(t *testing.T) {
	results := []uint32{gl.ALREADY_SIGNALED, gl.WAIT_FAILED}
	var deleted []uintptr
	b := New()
	b.initialized = true
	b.fence = fence{
		signaled: 2,
		pending:  []pendingSync{{value: 1, sync: 11}, {value: 2, sync: 12}},
		clientWait: func(_ uintptr, _ uint32, _ uint64) uint32 {
			r := results[0]
			results = results[1:]
			return r
		},
		deleteSync: func(sync uintptr) { deleted = append(deleted, sync) },
	}

	assert.Equal(t, uint64(1), b.CompletedValue())
	assert.Equal(t, []uintptr{11}, deleted)

	err := b.WaitForValue(context.Background(), 2)
	assert.ErrorIs(t, err, device.ErrDeviceLost)
	assert.Empty(t, results, "a failed sync is not waited on again")
	assert.ErrorIs(t, b.WaitForValue(context.Background(), 2), device.ErrDeviceLost)
}
