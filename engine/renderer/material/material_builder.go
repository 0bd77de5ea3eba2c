package material

import (
	"github.com/Carmen-Shannon/oxy-forward/common"
)

// MaterialBuilderOption is a function that configures a material instance during construction.
type MaterialBuilderOption func(*material)

// WithName is an option builder that sets the name of the material.
//
// Parameters:
//   - name: the identifier for the material
//
// Returns:
//   - MaterialBuilderOption: a function that applies the name option to a material
func WithName(name string) MaterialBuilderOption {
	return func(m *material) {
		m.name = name
	}
}

// WithBaseColor is an option builder that sets the base color factor of the material.
//
// Parameters:
//   - color: the base color as RGBA values
//
// Returns:
//   - MaterialBuilderOption: a function that applies the base color option to a material
func WithBaseColor(color common.Color) MaterialBuilderOption {
	return func(m *material) {
		m.baseColor = color
	}
}

// WithMetalness is an option builder that sets the metalness factor of the material.
//
// Parameters:
//   - metalness: the metalness factor (0.0 = dielectric, 1.0 = metal)
//
// Returns:
//   - MaterialBuilderOption: a function that applies the metalness option to a material
func WithMetalness(metalness float32) MaterialBuilderOption {
	return func(m *material) {
		m.metalness = metalness
	}
}

// WithRoughness is an option builder that sets the roughness factor of the material.
//
// Parameters:
//   - roughness: the roughness factor (0.0 = smooth, 1.0 = rough)
//
// Returns:
//   - MaterialBuilderOption: a function that applies the roughness option to a material
func WithRoughness(roughness float32) MaterialBuilderOption {
	return func(m *material) {
		m.roughness = roughness
	}
}

// WithBaseColorTexture is an option builder that sets the base color texture.
//
// Parameters:
//   - tex: a texture handle from the AssetRegistry
//
// Returns:
//   - MaterialBuilderOption: a function that applies the base color texture option to a material
func WithBaseColorTexture(tex TextureHandle) MaterialBuilderOption {
	return func(m *material) {
		m.baseColorTexture = tex
	}
}

// WithNormalTexture is an option builder that sets the normal map texture.
//
// Parameters:
//   - tex: a texture handle from the AssetRegistry
//
// Returns:
//   - MaterialBuilderOption: a function that applies the normal texture option to a material
func WithNormalTexture(tex TextureHandle) MaterialBuilderOption {
	return func(m *material) {
		m.normalTexture = tex
	}
}

// WithRoughnessMetalnessTexture is an option builder that sets the roughness/metalness texture.
// The green channel holds roughness and the red channel metalness.
//
// Parameters:
//   - tex: a texture handle from the AssetRegistry
//
// Returns:
//   - MaterialBuilderOption: a function that applies the roughness/metalness texture option to a material
func WithRoughnessMetalnessTexture(tex TextureHandle) MaterialBuilderOption {
	return func(m *material) {
		m.roughnessMetalnessTexture = tex
	}
}

// WithAlphaMask is an option builder that enables alpha masking with a cutoff.
//
// Parameters:
//   - cutoff: fragments with alpha below this value are discarded
//
// Returns:
//   - MaterialBuilderOption: a function that applies the alpha mask option to a material
func WithAlphaMask(cutoff float32) MaterialBuilderOption {
	return func(m *material) {
		m.alphaMask = true
		m.alphaCutoff = cutoff
	}
}
