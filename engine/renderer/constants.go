package renderer

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// PerFrameConstantsSize is the byte size of PerFrameConstants: a 256-byte camera block
// followed by a 256-byte light block.
const PerFrameConstantsSize = 512

// PerDrawConstantsSize is the byte size of PerDrawConstants, one constant buffer alignment unit.
const PerDrawConstantsSize = 256

// PerFrameConstants is the frame-wide uniform block shared by every draw of a frame.
// Matches the FrameConstants struct in common.wgsl and common.glsl exactly.
type PerFrameConstants struct {
	View           mgl32.Mat4 // offset 0
	Projection     mgl32.Mat4 // offset 64
	ViewProjection mgl32.Mat4 // offset 128
	CameraPosition mgl32.Vec4 // offset 192
	Time           float32    // offset 208
	DeltaTime      float32    // offset 212
	_              [2]float32
	_              [2][4]float32

	LightViewProjection mgl32.Mat4 // offset 256
	// LightDirection is the direction the light travels in xyz and its intensity in w.
	LightDirection mgl32.Vec4 // offset 320
	LightColor     mgl32.Vec4 // offset 336
	// ShadowParams holds x = shadows enabled (0 or 1), y = shadow map texel size, z = compare bias.
	ShadowParams mgl32.Vec4 // offset 352
	_            [9][4]float32
}

// PerDrawConstants is the uniform block of a single draw.
// Matches the DrawConstants struct in common.wgsl and common.glsl exactly.
type PerDrawConstants struct {
	World         mgl32.Mat4 // offset 0
	MaterialIndex uint32     // offset 64
	_             [3]uint32
	BaseColor     mgl32.Vec4 // offset 80
	_             [10][4]float32
}

// Size returns the size of the PerFrameConstants struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (c *PerFrameConstants) Size() int {
	return int(unsafe.Sizeof(*c))
}

// Marshal serializes the PerFrameConstants struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 512-byte buffer ready for GPU upload.
func (c *PerFrameConstants) Marshal() []byte {
	w := constantWriter{buf: make([]byte, PerFrameConstantsSize)}
	w.mat4(c.View)
	w.mat4(c.Projection)
	w.mat4(c.ViewProjection)
	w.vec4(c.CameraPosition)
	w.f32(c.Time)
	w.f32(c.DeltaTime)

	w.off = 256
	w.mat4(c.LightViewProjection)
	w.vec4(c.LightDirection)
	w.vec4(c.LightColor)
	w.vec4(c.ShadowParams)
	return w.buf
}

// Transposed returns a copy with every matrix transposed, for backends that read constant
// matrices as rows.
//
// Returns:
//   - PerFrameConstants: the transposed copy
func (c *PerFrameConstants) Transposed() PerFrameConstants {
	t := *c
	t.View = c.View.Transpose()
	t.Projection = c.Projection.Transpose()
	t.ViewProjection = c.ViewProjection.Transpose()
	t.LightViewProjection = c.LightViewProjection.Transpose()
	return t
}

// Size returns the size of the PerDrawConstants struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (c *PerDrawConstants) Size() int {
	return int(unsafe.Sizeof(*c))
}

// Marshal serializes the PerDrawConstants struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 256-byte buffer ready for GPU upload.
func (c *PerDrawConstants) Marshal() []byte {
	w := constantWriter{buf: make([]byte, PerDrawConstantsSize)}
	w.mat4(c.World)
	w.u32(c.MaterialIndex)
	w.off = 80
	w.vec4(c.BaseColor)
	return w.buf
}

// constantWriter writes little-endian scalars into a fixed constant block.
type constantWriter struct {
	buf []byte
	off int
}

func (w *constantWriter) u32(v uint32) {
	binary.LittleEndian.PutUint32(w.buf[w.off:w.off+4], v)
	w.off += 4
}

func (w *constantWriter) f32(v float32) {
	w.u32(math.Float32bits(v))
}

func (w *constantWriter) vec4(v mgl32.Vec4) {
	for _, f := range v {
		w.f32(f)
	}
}

// mat4 writes the matrix in column-major order.
func (w *constantWriter) mat4(m mgl32.Mat4) {
	for _, f := range m {
		w.f32(f)
	}
}
