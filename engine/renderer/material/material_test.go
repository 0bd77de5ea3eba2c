package material

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/device"
	"github.com/Carmen-Shannon/oxy-forward/engine/device/headless"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T) (AssetRegistry, *headless.Backend, device.DescriptorHeap) {
	t.Helper()
	hb := headless.New()
	heap := device.NewDescriptorHeap(16, 16, device.FrameCount)
	r, err := NewAssetRegistry(hb, heap)
	require.NoError(t, err)
	return r, hb, heap
}

func TestNewMaterialDefaults(t *testing.T) {
	m := NewMaterial()
	assert.Equal(t, "unnamed", m.Name())
	assert.Equal(t, common.ColorWhite, m.BaseColor())
	assert.Equal(t, float32(0.5), m.Roughness())
	assert.Zero(t, m.Metalness())
	assert.False(t, m.BaseColorTexture().Valid())
	assert.False(t, m.AlphaMask())
	assert.Equal(t, float32(0.5), m.AlphaCutoff())

	m = NewMaterial(WithName("glass"), WithRoughness(0.1), WithMetalness(1), WithAlphaMask(0.25))
	assert.Equal(t, "glass", m.Name())
	assert.Equal(t, float32(0.1), m.Roughness())
	assert.Equal(t, float32(1), m.Metalness())
	assert.True(t, m.AlphaMask())
	assert.Equal(t, float32(0.25), m.AlphaCutoff())
}

func TestRegistryDefaults(t *testing.T) {
	r, _, heap := newRegistry(t)
	assert.Equal(t, 3, r.TextureCount())
	assert.Equal(t, uint32(1), r.MaterialCount())
	assert.Equal(t, uint32(3), heap.PersistentInUse())

	m, ok := r.Material(DefaultMaterial)
	require.True(t, ok)
	assert.Equal(t, "default", m.Name())

	white, ok := r.Texture(r.DefaultWhiteTexture())
	require.True(t, ok)
	assert.True(t, white.IsDefault)
	assert.Equal(t, uint32(1), white.Width)

	_, ok = r.Texture(InvalidTexture)
	assert.False(t, ok)
}

func TestCreateTextureValidatesSize(t *testing.T) {
	r, hb, _ := newRegistry(t)

	_, err := r.CreateTexture("empty", 0, 4, nil)
	assert.ErrorIs(t, err, device.ErrInvalidArgument)
	_, err = r.CreateTexture("short", 2, 2, make([]byte, 8))
	assert.ErrorIs(t, err, device.ErrInvalidArgument)

	h, err := r.CreateTexture("checker", 2, 2, make([]byte, 16))
	require.NoError(t, err)
	asset, ok := r.Texture(h)
	require.True(t, ok)
	assert.False(t, asset.IsDefault)
	desc, ok := hb.TextureDescriptor(asset.Texture)
	require.True(t, ok)
	assert.Equal(t, "checker", desc.Label)
}

func TestResolveTexturesFallsBack(t *testing.T) {
	r, _, _ := newRegistry(t)
	albedo, err := r.CreateTexture("albedo", 1, 1, []byte{10, 20, 30, 255})
	require.NoError(t, err)

	idx := r.CreateMaterial(NewMaterial(WithBaseColorTexture(albedo), WithNormalTexture(TextureHandle(99))))
	assert.Equal(t, uint32(1), idx)

	got := r.ResolveTextures(idx)
	assert.Equal(t, albedo, got[0])
	assert.Equal(t, r.DefaultNormalTexture(), got[1], "out-of-range handle falls back")
	assert.Equal(t, r.DefaultRoughnessMetalnessTexture(), got[2])

	got = r.ResolveTextures(42)
	assert.Equal(t, r.DefaultWhiteTexture(), got[0])
}

func TestReleaseFreesDescriptors(t *testing.T) {
	r, hb, heap := newRegistry(t)
	r.Release()
	assert.Zero(t, heap.PersistentInUse())

	destroyed := 0
	for _, ev := range hb.ResourceEvents() {
		if ev.Op == headless.OpDestroy && ev.Kind == "texture" {
			destroyed++
		}
	}
	assert.Equal(t, 3, destroyed)
}
