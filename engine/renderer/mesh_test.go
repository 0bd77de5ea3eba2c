package renderer

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-forward/engine/device/headless"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCubeGeometry(t *testing.T) {
	vertices, indices := CubeGeometry()
	require.Len(t, vertices, 24)
	require.Len(t, indices, 36)

	lo, hi := CubeBounds()
	for _, v := range vertices {
		for i := 0; i < 3; i++ {
			assert.GreaterOrEqual(t, v.Position[i], lo[i])
			assert.LessOrEqual(t, v.Position[i], hi[i])
		}
	}
}

func TestCubeTrianglesWindCounterClockwise(t *testing.T) {
	vertices, indices := CubeGeometry()
	for i := 0; i < len(indices); i += 3 {
		a := vertices[indices[i]]
		b := vertices[indices[i+1]]
		c := vertices[indices[i+2]]
		n := b.Position.Sub(a.Position).Cross(c.Position.Sub(a.Position))
		assert.Greater(t, n.Dot(a.Normal), float32(0), "triangle %d faces away from its normal", i/3)
	}
}

func TestUploadMesh(t *testing.T) {
	hb := headless.New()
	vertices, indices := CubeGeometry()
	m, err := UploadMesh(hb, "cube", vertices, indices)
	require.NoError(t, err)

	assert.Equal(t, uint32(24), m.VertexCount)
	assert.Equal(t, uint32(36), m.IndexCount)
	assert.Equal(t, uint32(12), m.TriangleCount())
	assert.Len(t, hb.BufferData(m.VertexBuffer, 0, 24*40), 24*40)

	m.Release(hb)
	destroyed := 0
	for _, ev := range hb.ResourceEvents() {
		if ev.Op == headless.OpDestroy && ev.Kind == "buffer" {
			destroyed++
		}
	}
	assert.Equal(t, 2, destroyed)
}
