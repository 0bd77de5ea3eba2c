package light

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/device"
	"github.com/Carmen-Shannon/oxy-forward/engine/device/headless"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLightViewProjectionEnclosesBounds(t *testing.T) {
	cases := []struct {
		name   string
		dir    mgl32.Vec3
		bounds common.AABB
	}{
		{"demo light over three cubes", mgl32.Vec3{0, -1, 0.5}, common.AABB{Min: mgl32.Vec3{-3.5, -0.5, -0.5}, Max: mgl32.Vec3{3.5, 0.5, 0.5}}},
		{"straight down", mgl32.Vec3{0, -1, 0}, common.AABB{Min: mgl32.Vec3{-1, -1, -1}, Max: mgl32.Vec3{1, 1, 1}}},
		{"straight down over half-extent 5", mgl32.Vec3{0, -1, 0}, common.AABB{Min: mgl32.Vec3{-5, -5, -5}, Max: mgl32.Vec3{5, 5, 5}}},
		{"straight up over half-extent 5", mgl32.Vec3{0, 1, 0}, common.AABB{Min: mgl32.Vec3{-5, -5, -5}, Max: mgl32.Vec3{5, 5, 5}}},
		{"large scene", mgl32.Vec3{1, -1, 1}, common.AABB{Min: mgl32.Vec3{-200, 0, -200}, Max: mgl32.Vec3{200, 40, 200}}},
		{"zero direction", mgl32.Vec3{}, common.AABB{Min: mgl32.Vec3{0, 0, 0}, Max: mgl32.Vec3{2, 2, 2}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			vp := ComputeLightViewProjection(tc.dir, tc.bounds)
			for _, c := range tc.bounds.Corners() {
				clip := vp.Mul4x1(c.Vec4(1))
				assert.InDelta(t, 1.0, clip[3], 1e-4)
				assert.Less(t, abs32(clip[0]), float32(1), "x of %v", c)
				assert.Less(t, abs32(clip[1]), float32(1), "y of %v", c)
				assert.Greater(t, clip[2], float32(0), "z of %v", c)
				assert.Less(t, clip[2], float32(1), "z of %v", c)
			}
		})
	}
}

func TestLightViewProjectionDepthFollowsLight(t *testing.T) {
	bounds := common.AABB{Min: mgl32.Vec3{-1, -1, -1}, Max: mgl32.Vec3{1, 1, 1}}
	vp := ComputeLightViewProjection(mgl32.Vec3{0, -1, 0}, bounds)
	top := vp.Mul4x1(mgl32.Vec4{0, 1, 0, 1})
	bottom := vp.Mul4x1(mgl32.Vec4{0, -1, 0, 1})
	assert.Less(t, top[2], bottom[2], "points closer to the light have smaller depth")
}

func newShadowMap(t *testing.T, options ...ShadowMapBuilderOption) (*headless.Backend, device.DescriptorHeap, ShadowMap) {
	t.Helper()
	b := headless.New()
	require.NoError(t, b.Init(nil, 64, 64, device.PresentModeVSync))
	heap := device.NewDescriptorHeap(8, 8, device.FrameCount)
	sm, err := NewShadowMap(b, heap, options...)
	require.NoError(t, err)
	return b, heap, sm
}

func TestNewShadowMap(t *testing.T) {
	b, heap, sm := newShadowMap(t)
	assert.Equal(t, uint32(ShadowMapResolution), sm.Resolution())
	assert.Equal(t, uint32(1), heap.PersistentInUse())

	desc, ok := b.TextureDescriptor(sm.Texture())
	require.True(t, ok)
	assert.Equal(t, uint32(2048), desc.Width)
	assert.Equal(t, uint32(2048), desc.Height)
	assert.Equal(t, device.ResourceStateCommon, sm.State())

	_, err := NewShadowMap(b, heap, WithResolution(0))
	assert.ErrorIs(t, err, ErrInvalidResolution)
}

func TestShadowMapTransitions(t *testing.T) {
	b, _, sm := newShadowMap(t, WithResolution(256))
	require.NoError(t, b.BeginCommands(0))
	sm.BeginDepthWrite()
	sm.BeginSampling()
	sm.BeginSampling()

	state, _ := b.TextureState(sm.Texture())
	assert.Equal(t, device.ResourceStateShaderResource, state)
	assert.Equal(t, device.ResourceStateShaderResource, sm.State())

	sm.BeginDepthWrite()
	b.TransitionBackBuffer(device.ResourceStatePresent)
	require.NoError(t, b.Submit())

	sub, ok := b.LastSubmission()
	require.True(t, ok)
	transitions := 0
	for _, c := range sub.Commands {
		if c.Kind == headless.CmdTransitionTexture {
			transitions++
		}
	}
	assert.Equal(t, 3, transitions, "repeated transitions to the same state are skipped")
}

func TestShadowMapResize(t *testing.T) {
	b, heap, sm := newShadowMap(t, WithResolution(512))
	old := sm.Texture()

	assert.ErrorIs(t, sm.Resize(0), ErrInvalidResolution)
	assert.Equal(t, old, sm.Texture())

	require.NoError(t, sm.Resize(1024))
	assert.NotEqual(t, old, sm.Texture())
	assert.Equal(t, uint32(1024), sm.Resolution())
	assert.Equal(t, uint32(1), heap.PersistentInUse(), "the old descriptor slot is freed")
	_, ok := b.TextureDescriptor(old)
	assert.False(t, ok)

	sm.Release()
	assert.Equal(t, uint32(0), heap.PersistentInUse())
}
