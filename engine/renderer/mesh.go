package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/device"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
)

// Vertex is the interleaved vertex format read by every built-in program.
// Size: 40 bytes (position at 0, normal at 12, color at 24).
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	Color    mgl32.Vec4
}

// Mesh is an indexed triangle list uploaded to GPU buffers.
type Mesh struct {
	VertexBuffer device.BufferID
	IndexBuffer  device.BufferID
	VertexCount  uint32
	IndexCount   uint32
}

// TriangleCount returns the number of triangles drawn by one draw of the mesh.
//
// Returns:
//   - uint32: IndexCount / 3
func (m Mesh) TriangleCount() uint32 {
	return m.IndexCount / 3
}

type cubeFace struct {
	corners [4]mgl32.Vec3
	normal  mgl32.Vec3
	tint    mgl32.Vec4
}

var cubeFaces = [6]cubeFace{
	{ // front (-Z)
		corners: [4]mgl32.Vec3{{-.5, -.5, -.5}, {-.5, .5, -.5}, {.5, .5, -.5}, {.5, -.5, -.5}},
		normal:  mgl32.Vec3{0, 0, -1},
		tint:    mgl32.Vec4{1, .3, .3, 1},
	},
	{ // back (+Z)
		corners: [4]mgl32.Vec3{{.5, -.5, .5}, {.5, .5, .5}, {-.5, .5, .5}, {-.5, -.5, .5}},
		normal:  mgl32.Vec3{0, 0, 1},
		tint:    mgl32.Vec4{.3, 1, .3, 1},
	},
	{ // left (-X)
		corners: [4]mgl32.Vec3{{-.5, -.5, .5}, {-.5, .5, .5}, {-.5, .5, -.5}, {-.5, -.5, -.5}},
		normal:  mgl32.Vec3{-1, 0, 0},
		tint:    mgl32.Vec4{.3, .3, 1, 1},
	},
	{ // right (+X)
		corners: [4]mgl32.Vec3{{.5, -.5, -.5}, {.5, .5, -.5}, {.5, .5, .5}, {.5, -.5, .5}},
		normal:  mgl32.Vec3{1, 0, 0},
		tint:    mgl32.Vec4{1, 1, .3, 1},
	},
	{ // top (+Y)
		corners: [4]mgl32.Vec3{{-.5, .5, -.5}, {-.5, .5, .5}, {.5, .5, .5}, {.5, .5, -.5}},
		normal:  mgl32.Vec3{0, 1, 0},
		tint:    mgl32.Vec4{.3, 1, 1, 1},
	},
	{ // bottom (-Y)
		corners: [4]mgl32.Vec3{{-.5, -.5, .5}, {-.5, -.5, -.5}, {.5, -.5, -.5}, {.5, -.5, .5}},
		normal:  mgl32.Vec3{0, -1, 0},
		tint:    mgl32.Vec4{1, .3, 1, 1},
	},
}

// CubeGeometry returns the unit cube centered at the origin: 24 vertices with per-face normals
// and tints, and 36 indices wound counter-clockwise when viewed from outside.
//
// Returns:
//   - []Vertex: the vertices
//   - []uint16: the indices
func CubeGeometry() ([]Vertex, []uint16) {
	vertices := make([]Vertex, 0, 24)
	indices := make([]uint16, 0, 36)
	for _, f := range cubeFaces {
		base := uint16(len(vertices))
		for _, c := range f.corners {
			vertices = append(vertices, Vertex{Position: c, Normal: f.normal, Color: f.tint})
		}
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}
	return vertices, indices
}

// CubeBounds returns the local-space bounds of the cube from CubeGeometry.
//
// Returns:
//   - mgl32.Vec3: the minimum corner
//   - mgl32.Vec3: the maximum corner
func CubeBounds() (mgl32.Vec3, mgl32.Vec3) {
	return mgl32.Vec3{-.5, -.5, -.5}, mgl32.Vec3{.5, .5, .5}
}

// UploadMesh creates and fills the vertex and index buffers of a mesh.
//
// Parameters:
//   - backend: the backend owning the buffers
//   - label: the buffer label prefix
//   - vertices: the vertex data
//   - indices: the 16-bit index data
//
// Returns:
//   - Mesh: the uploaded mesh
//   - error: an error if buffer creation or upload fails
func UploadMesh(backend device.GraphicsBackend, label string, vertices []Vertex, indices []uint16) (Mesh, error) {
	vertexData := common.SliceToBytes(vertices)
	// index buffer sizes must stay 4-byte aligned for WriteBuffer
	indexData := make([]byte, common.AlignUp(uint64(len(indices)*2), 4))
	copy(indexData, common.SliceToBytes(indices))

	vb, err := backend.CreateBuffer(device.BufferDescriptor{
		Label: label + "_vertices",
		Size:  uint64(len(vertexData)),
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return Mesh{}, fmt.Errorf("creating %s vertex buffer: %w", label, err)
	}
	if err := backend.WriteBuffer(vb, 0, vertexData); err != nil {
		backend.DestroyBuffer(vb)
		return Mesh{}, fmt.Errorf("uploading %s vertices: %w", label, err)
	}

	ib, err := backend.CreateBuffer(device.BufferDescriptor{
		Label: label + "_indices",
		Size:  uint64(len(indexData)),
		Usage: gputypes.BufferUsageIndex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		backend.DestroyBuffer(vb)
		return Mesh{}, fmt.Errorf("creating %s index buffer: %w", label, err)
	}
	if err := backend.WriteBuffer(ib, 0, indexData); err != nil {
		backend.DestroyBuffer(vb)
		backend.DestroyBuffer(ib)
		return Mesh{}, fmt.Errorf("uploading %s indices: %w", label, err)
	}

	return Mesh{
		VertexBuffer: vb,
		IndexBuffer:  ib,
		VertexCount:  uint32(len(vertices)),
		IndexCount:   uint32(len(indices)),
	}, nil
}

// Release destroys the mesh buffers.
//
// Parameters:
//   - backend: the backend that created the buffers
func (m *Mesh) Release(backend device.GraphicsBackend) {
	if m.VertexBuffer != 0 {
		backend.DestroyBuffer(m.VertexBuffer)
		m.VertexBuffer = 0
	}
	if m.IndexBuffer != 0 {
		backend.DestroyBuffer(m.IndexBuffer)
		m.IndexBuffer = 0
	}
}
