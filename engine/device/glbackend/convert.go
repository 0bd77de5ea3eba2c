package glbackend

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-forward/engine/device"
	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/gogpu/gputypes"
)

// texFormat is the TexImage2D triple of a texture format.
type texFormat struct {
	internal int32
	format   uint32
	xtype    uint32
}

func textureFormat(f gputypes.TextureFormat) (texFormat, error) {
	switch f {
	case gputypes.TextureFormatRGBA8Unorm:
		return texFormat{gl.RGBA8, gl.RGBA, gl.UNSIGNED_BYTE}, nil
	case gputypes.TextureFormatBGRA8Unorm:
		return texFormat{gl.RGBA8, gl.BGRA, gl.UNSIGNED_BYTE}, nil
	case gputypes.TextureFormatDepth32Float:
		return texFormat{gl.DEPTH_COMPONENT32F, gl.DEPTH_COMPONENT, gl.FLOAT}, nil
	}
	return texFormat{}, fmt.Errorf("%w: unsupported texture format %v", device.ErrInvalidArgument, f)
}

func isDepthFormat(f gputypes.TextureFormat) bool {
	return f == gputypes.TextureFormatDepth32Float
}

// texelSize is the byte size of one texel of every format textureFormat accepts.
const texelSize = 4

func compareFunc(c gputypes.CompareFunction) uint32 {
	switch c {
	case gputypes.CompareFunctionNever:
		return gl.NEVER
	case gputypes.CompareFunctionLess:
		return gl.LESS
	case gputypes.CompareFunctionLessEqual:
		return gl.LEQUAL
	case gputypes.CompareFunctionEqual:
		return gl.EQUAL
	case gputypes.CompareFunctionNotEqual:
		return gl.NOTEQUAL
	case gputypes.CompareFunctionGreater:
		return gl.GREATER
	case gputypes.CompareFunctionGreaterEqual:
		return gl.GEQUAL
	}
	return gl.ALWAYS
}

// cullFace returns the face to cull and whether culling is enabled.
func cullFace(c gputypes.CullMode) (uint32, bool) {
	switch c {
	case gputypes.CullModeBack:
		return gl.BACK, true
	case gputypes.CullModeFront:
		return gl.FRONT, true
	}
	return gl.BACK, false
}

func frontFace(f gputypes.FrontFace) uint32 {
	if f == gputypes.FrontFaceCW {
		return gl.CW
	}
	return gl.CCW
}

func primitiveMode(t gputypes.PrimitiveTopology) uint32 {
	switch t {
	case gputypes.PrimitiveTopologyLineList:
		return gl.LINES
	case gputypes.PrimitiveTopologyPointList:
		return gl.POINTS
	}
	return gl.TRIANGLES
}

// indexType returns the element type and its byte size.
func indexType(f gputypes.IndexFormat) (uint32, int) {
	if f == gputypes.IndexFormatUint32 {
		return gl.UNSIGNED_INT, 4
	}
	return gl.UNSIGNED_SHORT, 2
}

// vertexComponents returns the float count of a vertex format.
func vertexComponents(f gputypes.VertexFormat) (int32, error) {
	switch f {
	case gputypes.VertexFormatFloat32:
		return 1, nil
	case gputypes.VertexFormatFloat32x2:
		return 2, nil
	case gputypes.VertexFormatFloat32x3:
		return 3, nil
	case gputypes.VertexFormatFloat32x4:
		return 4, nil
	}
	return 0, fmt.Errorf("%w: unsupported vertex format %v", device.ErrInvalidArgument, f)
}

// colorMask splits a write mask into per-channel flags.
func colorMask(m gputypes.ColorWriteMask) (r, g, b, a bool) {
	return m&gputypes.ColorWriteMaskRed != 0,
		m&gputypes.ColorWriteMaskGreen != 0,
		m&gputypes.ColorWriteMaskBlue != 0,
		m&gputypes.ColorWriteMaskAlpha != 0
}

func swapInterval(m device.PresentMode) int {
	if m == device.PresentModeUncapped {
		return 0
	}
	return 1
}
