package renderer_test

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/camera"
	"github.com/Carmen-Shannon/oxy-forward/engine/culling"
	"github.com/Carmen-Shannon/oxy-forward/engine/device"
	"github.com/Carmen-Shannon/oxy-forward/engine/device/headless"
	"github.com/Carmen-Shannon/oxy-forward/engine/ecs"
	"github.com/Carmen-Shannon/oxy-forward/engine/light"
	"github.com/Carmen-Shannon/oxy-forward/engine/renderer"
	"github.com/Carmen-Shannon/oxy-forward/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-forward/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-forward/engine/transform"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRenderer(t *testing.T, hb *headless.Backend, options ...renderer.RendererBuilderOption) renderer.Renderer {
	t.Helper()
	d, err := device.NewDevice(device.WithBackend(hb), device.WithSize(320, 240))
	require.NoError(t, err)
	r, err := renderer.NewRenderer(d, options...)
	require.NoError(t, err)
	t.Cleanup(func() {
		r.Release()
		d.Release()
	})
	return r
}

func addCube(w *ecs.World, x, y, z float32) ecs.Entity {
	e := w.CreateEntity()
	ecs.Add(w, e, transform.NewTransform(transform.WithPosition(x, y, z)))
	ecs.Add(w, e, ecs.NewRenderable())
	lo, hi := renderer.CubeBounds()
	ecs.Add(w, e, ecs.BoundingBox{Min: lo, Max: hi})
	return e
}

// threeCubes builds the reference scene: three unit cubes on the x axis lit by one directional light.
func threeCubes(t *testing.T) (*ecs.World, []ecs.Entity, camera.Camera) {
	t.Helper()
	w := ecs.NewWorld()
	sun := w.CreateEntity()
	ecs.Add(w, sun, light.NewLight(light.LightTypeDirectional, light.WithDirection(0, -1, 0.5)))
	cubes := []ecs.Entity{addCube(w, -2, 0, 0), addCube(w, 0, 0, 0), addCube(w, 2, 0, 0)}
	require.NoError(t, transform.UpdateAll(w))

	cam := camera.NewCamera(
		camera.WithPosition(0, 3, 8),
		camera.WithTarget(0, 0, 0),
		camera.WithAspect(320.0/240.0),
	)
	return w, cubes, cam
}

func renderFrame(t *testing.T, r renderer.Renderer, w *ecs.World, cam camera.Camera) renderer.RenderStats {
	t.Helper()
	require.NoError(t, r.BeginFrame())
	require.NoError(t, r.SetPerFrameConstants(renderer.BuildFrameConstants(w, cam, 0, 1.0/60.0)))
	require.NoError(t, r.RenderFrame(w))
	stats := r.Stats()
	require.NoError(t, r.EndFrame())
	return stats
}

func pipelineLabel(t *testing.T, hb *headless.Backend, id device.PipelineID) string {
	t.Helper()
	desc, ok := hb.PipelineDescriptor(id)
	require.True(t, ok)
	return desc.Label
}

func TestThreeCubesWithShadows(t *testing.T) {
	hb := headless.New()
	r := newRenderer(t, hb)
	w, _, cam := threeCubes(t)

	stats := renderFrame(t, r, w, cam)
	assert.Equal(t, uint32(3), stats.ShadowDraws)
	assert.Equal(t, uint32(3), stats.ForwardDraws)
	assert.Equal(t, uint32(3), stats.PrepassDraws)
	assert.Equal(t, uint32(3), stats.DrawCount)
	assert.Equal(t, uint32(0), stats.CulledCount)
	assert.Equal(t, uint32(36), stats.TriangleCount)

	sub, ok := hb.LastSubmission()
	require.True(t, ok)
	assert.Equal(t, []string{renderer.PassShadow, renderer.PassDepthPrepass, renderer.PassForward}, sub.Passes())

	shadowDraws := sub.Draws(renderer.PassShadow)
	forwardDraws := sub.Draws(renderer.PassForward)
	require.Len(t, shadowDraws, 3)
	require.Len(t, forwardDraws, 3)
	for i := range forwardDraws {
		assert.Equal(t, uint32(36), forwardDraws[i].IndexCount)
		assert.Equal(t, pipeline.KeyForward, pipelineLabel(t, hb, forwardDraws[i].Pipeline))
		assert.Equal(t, pipeline.KeyShadow, pipelineLabel(t, hb, shadowDraws[i].Pipeline))
		assert.Equal(t, shadowDraws[i].Draw, forwardDraws[i].Draw, "passes share the per-draw block")
		assert.Zero(t, forwardDraws[i].Draw.Offset%device.ConstantAlignment)
	}
	assert.NotEqual(t, forwardDraws[0].Draw.Offset, forwardDraws[1].Draw.Offset)

	state, ok := hb.TextureState(r.ShadowMap().Texture())
	require.True(t, ok)
	assert.Equal(t, device.ResourceStateShaderResource, state)
}

func TestUploadedConstantsEnableShadows(t *testing.T) {
	hb := headless.New()
	r := newRenderer(t, hb)
	w, _, cam := threeCubes(t)
	renderFrame(t, r, w, cam)

	sub, _ := hb.LastSubmission()
	draw := sub.Draws(renderer.PassForward)[0]
	raw := hb.BufferData(draw.Frame.Buffer, draw.Frame.Offset, renderer.PerFrameConstantsSize)
	require.Len(t, raw, renderer.PerFrameConstantsSize)

	// ShadowParams sits at byte 352: enabled flag then texel size
	assert.Equal(t, []byte{0, 0, 0x80, 0x3f}, raw[352:356])
	assert.NotEqual(t, []byte{0, 0, 0, 0}, raw[356:360])
}

func TestThreeCubesWithoutPrepass(t *testing.T) {
	hb := headless.New()
	r := newRenderer(t, hb, renderer.WithDepthPrepass(false))
	w, _, cam := threeCubes(t)

	stats := renderFrame(t, r, w, cam)
	assert.Equal(t, uint32(0), stats.PrepassDraws)
	assert.Equal(t, uint32(3), stats.ForwardDraws)

	sub, _ := hb.LastSubmission()
	assert.Equal(t, []string{renderer.PassShadow, renderer.PassForward}, sub.Passes())
	for _, d := range sub.Draws(renderer.PassForward) {
		assert.Equal(t, pipeline.KeyForwardNoPrepass, pipelineLabel(t, hb, d.Pipeline))
	}
}

func TestWithoutShadowsForwardCountsDraws(t *testing.T) {
	hb := headless.New()
	r := newRenderer(t, hb, renderer.WithShadows(false))
	w, _, cam := threeCubes(t)

	stats := renderFrame(t, r, w, cam)
	assert.Equal(t, uint32(0), stats.ShadowDraws)
	assert.Equal(t, uint32(3), stats.DrawCount)
	assert.Equal(t, uint32(36), stats.TriangleCount)

	sub, _ := hb.LastSubmission()
	assert.Equal(t, []string{renderer.PassDepthPrepass, renderer.PassForward}, sub.Passes())
}

func TestInvisibleEntityIsCulled(t *testing.T) {
	hb := headless.New()
	r := newRenderer(t, hb)
	w, cubes, cam := threeCubes(t)
	rend, ok := ecs.Get[ecs.Renderable](w, cubes[1])
	require.True(t, ok)
	rend.Visible = false

	stats := renderFrame(t, r, w, cam)
	assert.Equal(t, uint32(2), stats.ShadowDraws)
	assert.Equal(t, uint32(2), stats.ForwardDraws)
	assert.Equal(t, uint32(1), stats.CulledCount)
	assert.Equal(t, uint32(24), stats.TriangleCount)
}

func TestVisibleSetFiltersScenePasses(t *testing.T) {
	hb := headless.New()
	r := newRenderer(t, hb)
	w, cubes, cam := threeCubes(t)
	far := addCube(w, 0, 0, -500)
	require.NoError(t, transform.UpdateAll(w))

	visible := culling.Cull(w, common.ExtractFrustumFromMatrix(cam.ViewProjection()))
	assert.Equal(t, cubes, visible)
	assert.NotContains(t, visible, far)
	r.SetVisibleSet(visible)

	stats := renderFrame(t, r, w, cam)
	assert.Equal(t, uint32(4), stats.ShadowDraws, "shadow casters are not frustum culled")
	assert.Equal(t, uint32(3), stats.ForwardDraws)
	assert.Equal(t, uint32(1), stats.CulledCount)

	r.SetVisibleSet(nil)
	stats = renderFrame(t, r, w, cam)
	assert.Equal(t, uint32(4), stats.ForwardDraws)
}

func TestMaterialTintsBaseColor(t *testing.T) {
	hb := headless.New()
	r := newRenderer(t, hb)
	w, cubes, cam := threeCubes(t)

	idx := r.Assets().CreateMaterial(material.NewMaterial(
		material.WithName("red"),
		material.WithBaseColor(common.Color{1, 0, 0, 1}),
	))
	ecs.Add(w, cubes[0], ecs.MaterialRef{Index: idx})
	renderFrame(t, r, w, cam)

	sub, _ := hb.LastSubmission()
	draw := sub.Draws(renderer.PassForward)[0]
	raw := hb.BufferData(draw.Draw.Buffer, draw.Draw.Offset, renderer.PerDrawConstantsSize)
	require.Len(t, raw, renderer.PerDrawConstantsSize)
	assert.Equal(t, byte(idx), raw[64])
	// BaseColor.g is zero for the red material
	assert.Equal(t, []byte{0, 0, 0, 0}, raw[84:88])
}

func TestPassesOutsideFrameFail(t *testing.T) {
	hb := headless.New()
	r := newRenderer(t, hb)
	w, _, _ := threeCubes(t)

	assert.ErrorIs(t, r.RenderShadowPass(w), device.ErrFrameState)
	assert.ErrorIs(t, r.RenderForwardPass(w), device.ErrFrameState)
	assert.ErrorIs(t, r.SetPerFrameConstants(renderer.PerFrameConstants{}), device.ErrFrameState)
	assert.ErrorIs(t, r.EndFrame(), device.ErrFrameState)

	require.NoError(t, r.BeginFrame())
	assert.ErrorIs(t, r.BeginFrame(), device.ErrFrameState)
	assert.ErrorIs(t, r.RenderDepthPrepass(w), device.ErrFrameState, "per-frame constants not set")
	assert.ErrorIs(t, r.ResizeBuffers(640, 480), device.ErrFrameState)
	assert.ErrorIs(t, r.SetShadowResolution(512), device.ErrFrameState)
	require.NoError(t, r.EndFrame())
}

func TestRenderSceneHonorsToggles(t *testing.T) {
	hb := headless.New()
	r := newRenderer(t, hb)
	w, _, cam := threeCubes(t)

	require.NoError(t, r.BeginFrame())
	require.NoError(t, r.SetPerFrameConstants(renderer.BuildFrameConstants(w, cam, 0, 0)))
	require.NoError(t, r.RenderShadowPass(w))
	require.NoError(t, r.RenderScene(w, false, true))
	stats := r.Stats()
	require.NoError(t, r.EndFrame())

	assert.Equal(t, uint32(3), stats.DrawCount)
	assert.Equal(t, uint32(0), stats.PrepassDraws)
	sub, _ := hb.LastSubmission()
	assert.Equal(t, []string{renderer.PassShadow, renderer.PassForward}, sub.Passes())
}

func TestShaderFailureIsInitError(t *testing.T) {
	hb := headless.New(headless.WithShaderFailure("forward"))
	d, err := device.NewDevice(device.WithBackend(hb), device.WithSize(64, 64))
	require.NoError(t, err)
	defer d.Release()

	_, err = renderer.NewRenderer(d)
	require.Error(t, err)
	var ie *device.InitError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "shader forward", ie.Stage)
	assert.Contains(t, ie.Diagnostic, "forced compile failure")

	created := map[string]int{}
	for _, ev := range hb.ResourceEvents() {
		if ev.Kind == "swapchain" {
			continue
		}
		if ev.Op == headless.OpCreate {
			created[ev.Kind]++
		} else {
			created[ev.Kind]--
		}
	}
	// only the device's depth target survives a failed renderer init
	assert.Equal(t, 1, created["texture"])
	assert.Zero(t, created["buffer"])
	assert.Zero(t, created["shader"])
	assert.Zero(t, created["sampler"])
}

func TestSetShadowResolution(t *testing.T) {
	hb := headless.New()
	r := newRenderer(t, hb, renderer.WithShadowResolution(1024))
	assert.Equal(t, uint32(1024), r.ShadowMap().Resolution())

	assert.ErrorIs(t, r.SetShadowResolution(0), light.ErrInvalidResolution)
	require.NoError(t, r.SetShadowResolution(512))
	assert.Equal(t, uint32(512), r.ShadowMap().Resolution())
	desc, ok := hb.TextureDescriptor(r.ShadowMap().Texture())
	require.True(t, ok)
	assert.Equal(t, uint32(512), desc.Width)

	w, _, cam := threeCubes(t)
	stats := renderFrame(t, r, w, cam)
	assert.Equal(t, uint32(3), stats.ShadowDraws)
}

func TestOpenGLConventions(t *testing.T) {
	hb := headless.New(headless.WithCapabilities(device.Capabilities{
		ClipDepth:         device.ClipDepthNegativeOneToOne,
		RowMajorConstants: true,
		ShaderLanguage:    device.ShaderLanguageGLSL,
		SwapchainFormat:   gputypes.TextureFormatRGBA8Unorm,
	}))
	r := newRenderer(t, hb)
	w, _, cam := threeCubes(t)
	frame := renderer.BuildFrameConstants(w, cam, 0, 0)

	require.NoError(t, r.BeginFrame())
	require.NoError(t, r.SetPerFrameConstants(frame))
	require.NoError(t, r.RenderFrame(w))
	require.NoError(t, r.EndFrame())

	sub, _ := hb.LastSubmission()
	draw := sub.Draws(renderer.PassForward)[0]
	raw := hb.BufferData(draw.Frame.Buffer, draw.Frame.Offset, renderer.PerFrameConstantsSize)
	require.Len(t, raw, renderer.PerFrameConstantsSize)

	want := renderer.PerFrameConstants{Projection: common.RemapClipDepth(frame.Projection)}
	want = want.Transposed()
	assert.Equal(t, want.Marshal()[64:128], raw[64:128])
}

func TestMultipleFramesCycleSlots(t *testing.T) {
	hb := headless.New()
	r := newRenderer(t, hb)
	w, _, cam := threeCubes(t)
	for i := 0; i < 4; i++ {
		stats := renderFrame(t, r, w, cam)
		assert.Equal(t, uint32(36), stats.TriangleCount)
	}

	subs := hb.Submissions()
	require.Len(t, subs, 4)
	assert.Equal(t, 0, subs[0].Slot)
	assert.Equal(t, 1, subs[1].Slot)
	assert.NotEqual(t,
		subs[0].Draws(renderer.PassForward)[0].Frame.Offset,
		subs[1].Draws(renderer.PassForward)[0].Frame.Offset,
		"each slot uses its own constant region")
}

func TestPipelinesAreCreated(t *testing.T) {
	hb := headless.New()
	r := newRenderer(t, hb)
	for _, key := range []string{pipeline.KeyShadow, pipeline.KeyDepthPrepass, pipeline.KeyForward, pipeline.KeyForwardNoPrepass} {
		p := r.Pipeline(key)
		require.NotNil(t, p, key)
		assert.NotZero(t, p.Handle())
	}
	assert.Nil(t, r.Pipeline("missing"))
	assert.Equal(t, uint32(36), r.Cube().IndexCount)
	assert.Equal(t, uint32(24), r.Cube().VertexCount)
}

func TestSceneBounds(t *testing.T) {
	w, _, _ := threeCubes(t)
	bounds, ok := renderer.SceneBounds(w)
	require.True(t, ok)
	assert.Equal(t, mgl32.Vec3{-2.5, -0.5, -0.5}, bounds.Min)
	assert.Equal(t, mgl32.Vec3{2.5, 0.5, 0.5}, bounds.Max)

	_, ok = renderer.SceneBounds(ecs.NewWorld())
	assert.False(t, ok)
}
