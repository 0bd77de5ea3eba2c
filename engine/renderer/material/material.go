package material

import (
	"github.com/Carmen-Shannon/oxy-forward/common"
)

// TextureHandle indexes a texture in an AssetRegistry.
type TextureHandle uint32

// InvalidTexture is the handle of "no texture".
const InvalidTexture TextureHandle = 0xFFFFFFFF

// Valid reports whether the handle refers to a texture.
//
// Returns:
//   - bool: true unless the handle is InvalidTexture
func (h TextureHandle) Valid() bool {
	return h != InvalidTexture
}

// material is the implementation of the Material interface.
type material struct {
	name                      string
	baseColor                 common.Color
	baseColorTexture          TextureHandle
	normalTexture             TextureHandle
	roughness                 float32
	metalness                 float32
	roughnessMetalnessTexture TextureHandle
	alphaMask                 bool
	alphaCutoff               float32
}

// Material defines the interface for a surface material: a base color factor, optional texture
// references and the roughness, metalness and alpha mask parameters.
//
// Materials are immutable once built and are stored in an AssetRegistry, which hands out the
// material index referenced by ecs.MaterialRef.
type Material interface {
	// Name retrieves the material identifier.
	//
	// Returns:
	//   - string: the name of the material
	Name() string

	// BaseColor retrieves the base color factor of the material.
	//
	// Returns:
	//   - common.Color: the base color as RGBA values
	BaseColor() common.Color

	// BaseColorTexture retrieves the base color texture, or InvalidTexture.
	//
	// Returns:
	//   - TextureHandle: the texture handle
	BaseColorTexture() TextureHandle

	// NormalTexture retrieves the normal map, or InvalidTexture.
	//
	// Returns:
	//   - TextureHandle: the texture handle
	NormalTexture() TextureHandle

	// Roughness retrieves the roughness factor of the material.
	// A value of 0.0 represents a perfectly smooth surface, 1.0 represents a fully rough surface.
	//
	// Returns:
	//   - float32: the roughness factor
	Roughness() float32

	// Metalness retrieves the metalness factor of the material.
	// A value of 0.0 represents a dielectric surface, 1.0 represents a fully metallic surface.
	//
	// Returns:
	//   - float32: the metalness factor
	Metalness() float32

	// RoughnessMetalnessTexture retrieves the roughness/metalness texture, or InvalidTexture.
	//
	// Returns:
	//   - TextureHandle: the texture handle
	RoughnessMetalnessTexture() TextureHandle

	// AlphaMask reports whether fragments below the alpha cutoff are discarded.
	//
	// Returns:
	//   - bool: true if alpha masking is enabled
	AlphaMask() bool

	// AlphaCutoff retrieves the alpha mask threshold.
	//
	// Returns:
	//   - float32: the cutoff
	AlphaCutoff() float32
}

var _ Material = &material{}

// NewMaterial creates a new Material instance configured with the provided options.
// Defaults are a white base color, roughness 0.5, metalness 0, no textures and no alpha mask
// with a cutoff of 0.5.
//
// Parameters:
//   - options: variadic list of MaterialBuilderOption functions to configure the material
//
// Returns:
//   - Material: a new Material instance
func NewMaterial(options ...MaterialBuilderOption) Material {
	m := &material{
		name:                      "unnamed",
		baseColor:                 common.ColorWhite,
		baseColorTexture:          InvalidTexture,
		normalTexture:             InvalidTexture,
		roughness:                 0.5,
		roughnessMetalnessTexture: InvalidTexture,
		alphaCutoff:               0.5,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *material) Name() string {
	return m.name
}

func (m *material) BaseColor() common.Color {
	return m.baseColor
}

func (m *material) BaseColorTexture() TextureHandle {
	return m.baseColorTexture
}

func (m *material) NormalTexture() TextureHandle {
	return m.normalTexture
}

func (m *material) Roughness() float32 {
	return m.roughness
}

func (m *material) Metalness() float32 {
	return m.metalness
}

func (m *material) RoughnessMetalnessTexture() TextureHandle {
	return m.roughnessMetalnessTexture
}

func (m *material) AlphaMask() bool {
	return m.alphaMask
}

func (m *material) AlphaCutoff() float32 {
	return m.alphaCutoff
}
