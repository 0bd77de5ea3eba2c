package common

import (
	"math"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// Perspective creates a right-handed perspective projection matrix that maps view depth
// into the [0, 1] clip range (WebGPU convention).
//
// Parameters:
//   - fovY: vertical field of view in radians
//   - aspect: viewport aspect ratio (width/height)
//   - near: near clipping plane distance (must be > 0)
//   - far: far clipping plane distance (must be > near)
//
// Returns:
//   - mgl32.Mat4: the projection matrix (column-major)
func Perspective(fovY, aspect, near, far float32) mgl32.Mat4 {
	f := 1.0 / float32(math.Tan(float64(fovY)/2.0))

	var out mgl32.Mat4
	out[0] = f / aspect
	out[5] = f
	out[10] = far / (near - far)
	out[11] = -1.0
	out[14] = (near * far) / (near - far)
	return out
}

// OrthoOffCenter creates a right-handed orthographic projection for an arbitrary view-space box.
// View-space depth -near maps to 0 and -far maps to 1.
//
// Parameters:
//   - left, right: view-space x bounds
//   - bottom, top: view-space y bounds
//   - near, far: distances along the view direction
//
// Returns:
//   - mgl32.Mat4: the projection matrix (column-major)
func OrthoOffCenter(left, right, bottom, top, near, far float32) mgl32.Mat4 {
	out := mgl32.Ident4()
	out[0] = 2 / (right - left)
	out[5] = 2 / (top - bottom)
	out[10] = 1 / (near - far)
	out[12] = -(right + left) / (right - left)
	out[13] = -(top + bottom) / (top - bottom)
	out[14] = near / (near - far)
	return out
}

// LookAt creates a right-handed view matrix that positions and orients the camera.
// When eye and center coincide the identity matrix is returned.
//
// Parameters:
//   - eye: camera position in world space
//   - center: target point the camera looks at
//   - up: up vector defining camera orientation (typically 0,1,0)
//
// Returns:
//   - mgl32.Mat4: the view matrix (column-major)
func LookAt(eye, center, up mgl32.Vec3) mgl32.Mat4 {
	if eye.Sub(center).Len() < 1e-8 {
		return mgl32.Ident4()
	}
	return mgl32.LookAtV(eye, center, up)
}

// BuildModelMatrix constructs a 4x4 model matrix from position, Euler rotation, and scale.
// The rotation order is Y * X * Z (yaw-pitch-roll), so the matrix equals T * Ry * Rx * Rz * S.
//
// Parameters:
//   - position: translation in world space
//   - rotation: rotation angles in radians around the x, y and z axes
//   - scale: scale factors along each axis
//
// Returns:
//   - mgl32.Mat4: the model matrix (column-major)
func BuildModelMatrix(position, rotation, scale mgl32.Vec3) mgl32.Mat4 {
	cx := float32(math.Cos(float64(rotation[0])))
	sx := float32(math.Sin(float64(rotation[0])))
	cy := float32(math.Cos(float64(rotation[1])))
	sy := float32(math.Sin(float64(rotation[1])))
	cz := float32(math.Cos(float64(rotation[2])))
	sz := float32(math.Sin(float64(rotation[2])))

	var out mgl32.Mat4
	out[0] = (cy*cz + sy*sx*sz) * scale[0]
	out[1] = (cx * sz) * scale[0]
	out[2] = (-sy*cz + cy*sx*sz) * scale[0]

	out[4] = (cy*-sz + sy*sx*cz) * scale[1]
	out[5] = (cx * cz) * scale[1]
	out[6] = (sy*sz + cy*sx*cz) * scale[1]

	out[8] = (sy * cx) * scale[2]
	out[9] = (-sx) * scale[2]
	out[10] = (cy * cx) * scale[2]

	out[12] = position[0]
	out[13] = position[1]
	out[14] = position[2]
	out[15] = 1
	return out
}

// TransformPoint applies a 4x4 affine matrix to a point (w = 1).
//
// Parameters:
//   - m: the transform
//   - p: the point
//
// Returns:
//   - mgl32.Vec3: the transformed point
func TransformPoint(m mgl32.Mat4, p mgl32.Vec3) mgl32.Vec3 {
	return m.Mul4x1(p.Vec4(1)).Vec3()
}

// MaxBasisScale returns the largest length of the three basis vectors of a matrix's upper 3x3.
// This is the uniform worst-case scale used to inflate bounding volumes.
//
// Parameters:
//   - m: the transform
//
// Returns:
//   - float32: the largest basis vector length
func MaxBasisScale(m mgl32.Mat4) float32 {
	sx := m.Col(0).Vec3().Len()
	sy := m.Col(1).Vec3().Len()
	sz := m.Col(2).Vec3().Len()
	return max(sx, sy, sz)
}

// RemapClipDepth converts a projection producing [0, 1] clip depth into one producing
// [-1, 1] clip depth (OpenGL convention) by applying z' = 2z - w.
//
// Parameters:
//   - proj: the [0, 1] depth projection
//
// Returns:
//   - mgl32.Mat4: the remapped projection
func RemapClipDepth(proj mgl32.Mat4) mgl32.Mat4 {
	remap := mgl32.Ident4()
	remap[10] = 2
	remap[14] = -1
	return remap.Mul4(proj)
}
