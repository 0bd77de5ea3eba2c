package material

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/device"
	"github.com/gogpu/gputypes"
)

// DefaultMaterial is the index of the material created with the registry. Entities without a
// MaterialRef draw with it.
const DefaultMaterial uint32 = 0

// TextureAsset is a GPU texture owned by an AssetRegistry.
type TextureAsset struct {
	Name       string
	Width      uint32
	Height     uint32
	Format     gputypes.TextureFormat
	Texture    device.TextureID
	Descriptor device.DescriptorHandle
	// IsDefault marks the fallback textures created with the registry.
	IsDefault bool
}

// assetRegistry is the implementation of the AssetRegistry interface.
type assetRegistry struct {
	mu *sync.Mutex

	backend device.GraphicsBackend
	heap    device.DescriptorHeap

	textures  []TextureAsset
	materials []Material

	defaultWhite              TextureHandle
	defaultNormal             TextureHandle
	defaultRoughnessMetalness TextureHandle
}

// AssetRegistry owns textures and the material table. It creates 1x1 fallback textures so that
// a material with no texture of a given kind still resolves to a valid one.
type AssetRegistry interface {
	// DefaultWhiteTexture returns the opaque white fallback texture.
	//
	// Returns:
	//   - TextureHandle: the handle
	DefaultWhiteTexture() TextureHandle

	// DefaultNormalTexture returns the flat +Z tangent-space normal fallback texture.
	//
	// Returns:
	//   - TextureHandle: the handle
	DefaultNormalTexture() TextureHandle

	// DefaultRoughnessMetalnessTexture returns the fallback with metalness 0 and roughness 0.5.
	//
	// Returns:
	//   - TextureHandle: the handle
	DefaultRoughnessMetalnessTexture() TextureHandle

	// CreateTexture creates and uploads an RGBA8 texture.
	//
	// Parameters:
	//   - name: the texture label
	//   - width, height: the size in pixels
	//   - pixels: tightly packed RGBA8 rows, width*height*4 bytes
	//
	// Returns:
	//   - TextureHandle: the new texture
	//   - error: an error if the pixel data does not match the size or creation fails
	CreateTexture(name string, width, height uint32, pixels []byte) (TextureHandle, error)

	// Texture returns a texture by handle.
	//
	// Parameters:
	//   - h: the handle
	//
	// Returns:
	//   - TextureAsset: the texture
	//   - bool: false if the handle is unknown
	Texture(h TextureHandle) (TextureAsset, bool)

	// TextureCount returns the number of textures, defaults included.
	//
	// Returns:
	//   - int: the count
	TextureCount() int

	// CreateMaterial appends a material to the table.
	//
	// Parameters:
	//   - m: the material
	//
	// Returns:
	//   - uint32: the material index
	CreateMaterial(m Material) uint32

	// Material returns a material by index.
	//
	// Parameters:
	//   - index: the material index
	//
	// Returns:
	//   - Material: the material
	//   - bool: false if the index is out of range
	Material(index uint32) (Material, bool)

	// MaterialCount returns the number of materials, the default material included.
	//
	// Returns:
	//   - uint32: the count
	MaterialCount() uint32

	// ResolveTextures returns the base color, normal and roughness/metalness textures of a
	// material, substituting the defaults for missing ones.
	//
	// Parameters:
	//   - index: the material index
	//
	// Returns:
	//   - [3]TextureHandle: base color, normal, roughness/metalness
	ResolveTextures(index uint32) [3]TextureHandle

	// Release destroys every texture and frees its descriptor.
	Release()
}

var _ AssetRegistry = &assetRegistry{}

// NewAssetRegistry creates the registry, its fallback textures and the default material.
//
// Parameters:
//   - backend: the backend creating the textures
//   - heap: the descriptor heap holding the texture descriptors
//
// Returns:
//   - AssetRegistry: the registry
//   - error: an error if a fallback texture cannot be created
func NewAssetRegistry(backend device.GraphicsBackend, heap device.DescriptorHeap) (AssetRegistry, error) {
	r := &assetRegistry{
		mu:      &sync.Mutex{},
		backend: backend,
		heap:    heap,
	}

	defaults := []struct {
		name   string
		pixel  []byte
		handle *TextureHandle
	}{
		{"default_white", []byte{255, 255, 255, 255}, &r.defaultWhite},
		{"default_normal", []byte{128, 128, 255, 255}, &r.defaultNormal},
		{"default_roughness_metalness", []byte{0, 128, 0, 255}, &r.defaultRoughnessMetalness},
	}
	for _, d := range defaults {
		h, err := r.createTexture(d.name, 1, 1, d.pixel, true)
		if err != nil {
			r.Release()
			return nil, err
		}
		*d.handle = h
	}

	r.materials = append(r.materials, NewMaterial(WithName("default")))
	return r, nil
}

func (r *assetRegistry) DefaultWhiteTexture() TextureHandle {
	return r.defaultWhite
}

func (r *assetRegistry) DefaultNormalTexture() TextureHandle {
	return r.defaultNormal
}

func (r *assetRegistry) DefaultRoughnessMetalnessTexture() TextureHandle {
	return r.defaultRoughnessMetalness
}

func (r *assetRegistry) CreateTexture(name string, width, height uint32, pixels []byte) (TextureHandle, error) {
	return r.createTexture(name, width, height, pixels, false)
}

func (r *assetRegistry) createTexture(name string, width, height uint32, pixels []byte, isDefault bool) (TextureHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if width == 0 || height == 0 {
		return InvalidTexture, fmt.Errorf("%w: texture %q has size %dx%d", device.ErrInvalidArgument, name, width, height)
	}
	if want := int(width) * int(height) * 4; len(pixels) != want {
		return InvalidTexture, fmt.Errorf("%w: texture %q needs %d bytes of RGBA8 data, got %d", device.ErrInvalidArgument, name, want, len(pixels))
	}

	id, err := r.backend.CreateTexture(device.TextureDescriptor{
		Label:  name,
		Width:  width,
		Height: height,
		Format: gputypes.TextureFormatRGBA8Unorm,
		Usage:  gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return InvalidTexture, fmt.Errorf("creating texture %q: %w", name, err)
	}
	if err := r.backend.WriteTexture(id, pixels); err != nil {
		r.backend.DestroyTexture(id)
		return InvalidTexture, fmt.Errorf("uploading texture %q: %w", name, err)
	}
	desc, err := r.heap.AllocatePersistent(1)
	if err != nil {
		r.backend.DestroyTexture(id)
		return InvalidTexture, fmt.Errorf("allocating descriptor for texture %q: %w", name, err)
	}

	h := TextureHandle(len(r.textures))
	r.textures = append(r.textures, TextureAsset{
		Name:       name,
		Width:      width,
		Height:     height,
		Format:     gputypes.TextureFormatRGBA8Unorm,
		Texture:    id,
		Descriptor: desc,
		IsDefault:  isDefault,
	})
	common.Logger().Debug().Str("texture", name).Uint32("width", width).Uint32("height", height).Msg("texture created")
	return h, nil
}

func (r *assetRegistry) Texture(h TextureHandle) (TextureAsset, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !h.Valid() || int(h) >= len(r.textures) {
		return TextureAsset{}, false
	}
	return r.textures[h], true
}

func (r *assetRegistry) TextureCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.textures)
}

func (r *assetRegistry) CreateMaterial(m Material) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.materials = append(r.materials, m)
	return uint32(len(r.materials) - 1)
}

func (r *assetRegistry) Material(index uint32) (Material, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if int(index) >= len(r.materials) {
		return nil, false
	}
	return r.materials[index], true
}

func (r *assetRegistry) MaterialCount() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return uint32(len(r.materials))
}

func (r *assetRegistry) ResolveTextures(index uint32) [3]TextureHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := [3]TextureHandle{r.defaultWhite, r.defaultNormal, r.defaultRoughnessMetalness}
	if int(index) >= len(r.materials) {
		return out
	}
	m := r.materials[index]
	for i, h := range []TextureHandle{m.BaseColorTexture(), m.NormalTexture(), m.RoughnessMetalnessTexture()} {
		if h.Valid() && int(h) < len(r.textures) {
			out[i] = h
		}
	}
	return out
}

func (r *assetRegistry) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.textures {
		r.backend.DestroyTexture(t.Texture)
		r.heap.FreePersistent(t.Descriptor)
	}
	r.textures = nil
}
