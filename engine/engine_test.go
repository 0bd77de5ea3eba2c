package engine_test

import (
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-forward/engine"
	"github.com/Carmen-Shannon/oxy-forward/engine/camera"
	"github.com/Carmen-Shannon/oxy-forward/engine/config"
	"github.com/Carmen-Shannon/oxy-forward/engine/device"
	"github.com/Carmen-Shannon/oxy-forward/engine/device/headless"
	"github.com/Carmen-Shannon/oxy-forward/engine/ecs"
	"github.com/Carmen-Shannon/oxy-forward/engine/light"
	"github.com/Carmen-Shannon/oxy-forward/engine/renderer"
	"github.com/Carmen-Shannon/oxy-forward/engine/transform"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Window.Width, cfg.Window.Height = 320, 240
	cfg.Renderer.ShadowResolution = 256
	return cfg
}

func scene() (*ecs.World, []ecs.Entity, camera.Camera) {
	w := ecs.NewWorld()
	sun := w.CreateEntity()
	ecs.Add(w, sun, light.NewLight(light.LightTypeDirectional, light.WithDirection(0, -1, 0.5)))

	lo, hi := renderer.CubeBounds()
	var cubes []ecs.Entity
	for _, x := range []float32{-2, 0, 2} {
		e := w.CreateEntity()
		ecs.Add(w, e, transform.NewTransform(transform.WithPosition(x, 0, 0)))
		ecs.Add(w, e, ecs.NewRenderable())
		ecs.Add(w, e, ecs.BoundingBox{Min: lo, Max: hi})
		cubes = append(cubes, e)
	}
	cam := camera.NewCamera(camera.WithPosition(0, 3, 8), camera.WithTarget(0, 0, 0))
	return w, cubes, cam
}

func newEngine(t *testing.T, hb *headless.Backend, options ...engine.EngineBuilderOption) engine.Engine {
	t.Helper()
	w, _, cam := scene()
	opts := append([]engine.EngineBuilderOption{
		engine.WithConfig(testConfig()),
		engine.WithBackend(hb),
		engine.WithWorld(w),
		engine.WithCamera(cam),
	}, options...)
	e, err := engine.NewEngine(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestRunRendersFramesInPassOrder(t *testing.T) {
	hb := headless.New()
	e := newEngine(t, hb, engine.WithMaxFrames(3))

	require.NoError(t, e.Run())
	assert.Nil(t, e.Window())

	subs := hb.Submissions()
	require.Len(t, subs, 3)
	for i, sub := range subs {
		assert.Equal(t, i%device.FrameCount, sub.Slot)
		assert.Equal(t, []string{renderer.PassShadow, renderer.PassDepthPrepass, renderer.PassForward}, sub.Passes())
		assert.Len(t, sub.Draws(renderer.PassForward), 3)
	}

	stats := e.Renderer().Stats()
	assert.Equal(t, uint32(3), stats.ForwardDraws)
	assert.Equal(t, uint32(0), stats.CulledCount)
}

func TestCameraAspectFollowsDevice(t *testing.T) {
	hb := headless.New()
	e := newEngine(t, hb)
	assert.InDelta(t, 320.0/240.0, e.Camera().Aspect(), 1e-6)
}

func TestTickCallbackRunsBeforeCulling(t *testing.T) {
	hb := headless.New()
	w, cubes, cam := scene()
	var ticks int
	e, err := engine.NewEngine(
		engine.WithConfig(testConfig()),
		engine.WithBackend(hb),
		engine.WithWorld(w),
		engine.WithCamera(cam),
		engine.WithTickCallback(func(dt float32) {
			ticks++
			tr, ok := ecs.Get[transform.Transform](w, cubes[0])
			require.True(t, ok)
			tr.SetPosition(mgl32.Vec3{0, 0, 500})
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })

	require.NoError(t, e.Frame())
	assert.Equal(t, 1, ticks)

	stats := e.Renderer().Stats()
	assert.Equal(t, uint32(3), stats.ShadowDraws, "shadow casters are not frustum culled")
	assert.Equal(t, uint32(2), stats.ForwardDraws)
	assert.Equal(t, uint32(1), stats.CulledCount)
}

func TestEverythingCulledDrawsNothing(t *testing.T) {
	hb := headless.New()
	w, _, _ := scene()
	cam := camera.NewCamera(camera.WithPosition(0, 0, 50), camera.WithTarget(0, 0, 100))
	e, err := engine.NewEngine(
		engine.WithConfig(testConfig()),
		engine.WithBackend(hb),
		engine.WithWorld(w),
		engine.WithCamera(cam),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })

	require.NoError(t, e.Frame())
	sub, ok := hb.LastSubmission()
	require.True(t, ok)
	assert.Empty(t, sub.Draws(renderer.PassForward))
	assert.Equal(t, uint32(3), e.Renderer().Stats().CulledCount)
}

func TestCullingDisabledDrawsAll(t *testing.T) {
	hb := headless.New()
	cfg := testConfig()
	cfg.Culling.Enabled = false
	w, _, _ := scene()
	cam := camera.NewCamera(camera.WithPosition(0, 0, 50), camera.WithTarget(0, 0, 100))
	e, err := engine.NewEngine(
		engine.WithConfig(cfg),
		engine.WithBackend(hb),
		engine.WithWorld(w),
		engine.WithCamera(cam),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })

	require.NoError(t, e.Frame())
	sub, _ := hb.LastSubmission()
	assert.Len(t, sub.Draws(renderer.PassForward), 3)
}

func TestConfigDisablesPasses(t *testing.T) {
	hb := headless.New()
	cfg := testConfig()
	cfg.Renderer.Shadows = false
	cfg.Renderer.DepthPrepass = false
	e := newEngine(t, hb, engine.WithConfig(cfg))

	require.NoError(t, e.Frame())
	sub, ok := hb.LastSubmission()
	require.True(t, ok)
	assert.Equal(t, []string{renderer.PassForward}, sub.Passes())
}

func TestHungFenceStopsRun(t *testing.T) {
	hb := headless.New(headless.WithFenceMode(headless.FenceHung))
	cfg := testConfig()
	cfg.Device.FenceTimeout = 10 * time.Millisecond
	e := newEngine(t, hb, engine.WithConfig(cfg))

	err := e.Run()
	require.Error(t, err)
	assert.ErrorIs(t, err, device.ErrDeviceLost)
	assert.Len(t, hb.Submissions(), 2)
}

func TestQuitBeforeRun(t *testing.T) {
	hb := headless.New()
	e := newEngine(t, hb)

	e.Quit()
	e.Quit()
	require.NoError(t, e.Run())
	assert.Empty(t, hb.Submissions())
}

func TestRunAfterClose(t *testing.T) {
	hb := headless.New()
	e := newEngine(t, hb)

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())
	assert.ErrorIs(t, e.Run(), engine.ErrClosed)
}

func TestBackendByName(t *testing.T) {
	e, err := engine.NewEngine(
		engine.WithConfig(testConfig()),
		engine.WithBackendName(device.BackendHeadless),
		engine.WithMaxFrames(1),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })

	assert.Equal(t, device.BackendHeadless, e.Device().Backend().Name())
	assert.Nil(t, e.Window())
	assert.NotNil(t, e.World())
	assert.NotNil(t, e.Input())
	require.NoError(t, e.Run())
}

func TestInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Window.Width = 0
	_, err := engine.NewEngine(engine.WithConfig(cfg), engine.WithBackend(headless.New()))
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	_, err = engine.NewEngine(engine.WithConfig(testConfig()), engine.WithBackendName("vulkan"))
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}
