package wgpubackend

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-forward/engine/device"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/gputypes"
)

func textureFormat(f gputypes.TextureFormat) (wgpu.TextureFormat, error) {
	switch f {
	case gputypes.TextureFormatRGBA8Unorm:
		return wgpu.TextureFormatRGBA8Unorm, nil
	case gputypes.TextureFormatBGRA8Unorm:
		return wgpu.TextureFormatBGRA8Unorm, nil
	case gputypes.TextureFormatDepth32Float:
		return wgpu.TextureFormatDepth32Float, nil
	}
	return wgpu.TextureFormatUndefined, fmt.Errorf("%w: unsupported texture format %v", device.ErrInvalidArgument, f)
}

// texelSize is the byte size of one texel of every format textureFormat accepts.
const texelSize = 4

func textureUsage(u gputypes.TextureUsage) wgpu.TextureUsage {
	var out wgpu.TextureUsage
	if u&gputypes.TextureUsageTextureBinding != 0 {
		out |= wgpu.TextureUsageTextureBinding
	}
	if u&gputypes.TextureUsageRenderAttachment != 0 {
		out |= wgpu.TextureUsageRenderAttachment
	}
	if u&gputypes.TextureUsageCopyDst != 0 {
		out |= wgpu.TextureUsageCopyDst
	}
	return out
}

func bufferUsage(u gputypes.BufferUsage) wgpu.BufferUsage {
	var out wgpu.BufferUsage
	if u&gputypes.BufferUsageVertex != 0 {
		out |= wgpu.BufferUsageVertex
	}
	if u&gputypes.BufferUsageIndex != 0 {
		out |= wgpu.BufferUsageIndex
	}
	if u&gputypes.BufferUsageUniform != 0 {
		out |= wgpu.BufferUsageUniform
	}
	if u&gputypes.BufferUsageCopyDst != 0 {
		out |= wgpu.BufferUsageCopyDst
	}
	return out
}

func compareFunction(c gputypes.CompareFunction) wgpu.CompareFunction {
	switch c {
	case gputypes.CompareFunctionLess:
		return wgpu.CompareFunctionLess
	case gputypes.CompareFunctionLessEqual:
		return wgpu.CompareFunctionLessEqual
	case gputypes.CompareFunctionEqual:
		return wgpu.CompareFunctionEqual
	case gputypes.CompareFunctionNotEqual:
		return wgpu.CompareFunctionNotEqual
	case gputypes.CompareFunctionGreater:
		return wgpu.CompareFunctionGreater
	case gputypes.CompareFunctionGreaterEqual:
		return wgpu.CompareFunctionGreaterEqual
	case gputypes.CompareFunctionNever:
		return wgpu.CompareFunctionNever
	}
	return wgpu.CompareFunctionAlways
}

func cullMode(c gputypes.CullMode) wgpu.CullMode {
	switch c {
	case gputypes.CullModeBack:
		return wgpu.CullModeBack
	case gputypes.CullModeFront:
		return wgpu.CullModeFront
	}
	return wgpu.CullModeNone
}

func frontFace(f gputypes.FrontFace) wgpu.FrontFace {
	if f == gputypes.FrontFaceCW {
		return wgpu.FrontFaceCW
	}
	return wgpu.FrontFaceCCW
}

func topology(t gputypes.PrimitiveTopology) wgpu.PrimitiveTopology {
	switch t {
	case gputypes.PrimitiveTopologyLineList:
		return wgpu.PrimitiveTopologyLineList
	case gputypes.PrimitiveTopologyPointList:
		return wgpu.PrimitiveTopologyPointList
	}
	return wgpu.PrimitiveTopologyTriangleList
}

func indexFormat(f gputypes.IndexFormat) wgpu.IndexFormat {
	if f == gputypes.IndexFormatUint32 {
		return wgpu.IndexFormatUint32
	}
	return wgpu.IndexFormatUint16
}

func writeMask(m gputypes.ColorWriteMask) wgpu.ColorWriteMask {
	var out wgpu.ColorWriteMask
	if m&gputypes.ColorWriteMaskRed != 0 {
		out |= wgpu.ColorWriteMaskRed
	}
	if m&gputypes.ColorWriteMaskGreen != 0 {
		out |= wgpu.ColorWriteMaskGreen
	}
	if m&gputypes.ColorWriteMaskBlue != 0 {
		out |= wgpu.ColorWriteMaskBlue
	}
	if m&gputypes.ColorWriteMaskAlpha != 0 {
		out |= wgpu.ColorWriteMaskAlpha
	}
	return out
}

func vertexFormat(f gputypes.VertexFormat) (wgpu.VertexFormat, error) {
	switch f {
	case gputypes.VertexFormatFloat32:
		return wgpu.VertexFormatFloat32, nil
	case gputypes.VertexFormatFloat32x2:
		return wgpu.VertexFormatFloat32x2, nil
	case gputypes.VertexFormatFloat32x3:
		return wgpu.VertexFormatFloat32x3, nil
	case gputypes.VertexFormatFloat32x4:
		return wgpu.VertexFormatFloat32x4, nil
	}
	return wgpu.VertexFormatUndefined, fmt.Errorf("%w: unsupported vertex format %v", device.ErrInvalidArgument, f)
}

func vertexLayout(l device.VertexLayout) (wgpu.VertexBufferLayout, error) {
	attrs := make([]wgpu.VertexAttribute, len(l.Attributes))
	for i, a := range l.Attributes {
		format, err := vertexFormat(a.Format)
		if err != nil {
			return wgpu.VertexBufferLayout{}, fmt.Errorf("vertex attribute %d: %w", a.Location, err)
		}
		attrs[i] = wgpu.VertexAttribute{Format: format, Offset: a.Offset, ShaderLocation: a.Location}
	}
	return wgpu.VertexBufferLayout{
		ArrayStride: l.Stride,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes:  attrs,
	}, nil
}

func presentMode(m device.PresentMode) wgpu.PresentMode {
	if m == device.PresentModeUncapped {
		return wgpu.PresentModeImmediate
	}
	return wgpu.PresentModeFifo
}
