package renderer

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/device"
	"github.com/Carmen-Shannon/oxy-forward/engine/ecs"
	"github.com/Carmen-Shannon/oxy-forward/engine/light"
	"github.com/Carmen-Shannon/oxy-forward/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-forward/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-forward/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-forward/engine/transform"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
)

// RenderStats are the draw statistics of the current frame.
type RenderStats struct {
	// DrawCount is the number of draws of one scene pass: the shadow pass when it ran, the
	// forward pass otherwise.
	DrawCount uint32
	// CulledCount is the number of renderables skipped, invisible or outside the view frustum.
	CulledCount uint32
	// TriangleCount is the number of triangles of the draws counted in DrawCount.
	TriangleCount uint32

	ShadowDraws  uint32
	PrepassDraws uint32
	ForwardDraws uint32
}

// drawItem is one renderable resolved for drawing.
type drawItem struct {
	entity   ecs.Entity
	world    mgl32.Mat4
	material uint32
	color    common.Color
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	device  device.Device
	backend device.GraphicsBackend
	caps    device.Capabilities

	// builder configuration
	constantBudget   uint64
	shadowResolution uint32
	clearColor       common.Color
	depthPrepass     bool
	shadows          bool

	allocator ConstantAllocator
	assets    material.AssetRegistry
	shadowMap light.ShadowMap
	shaders   map[shader.Program]device.ShaderID
	pipelines map[string]pipeline.Pipeline
	layout    device.VertexLayout
	cube      Mesh
	graph     FrameGraph

	visible    map[ecs.Entity]struct{}
	graphWorld *ecs.World

	frameActive    bool
	frameSet       bool
	frameConstants PerFrameConstants
	frameAddr      device.GPUAddress
	frameCPU       []byte
	drawCache      map[ecs.Entity]device.GPUAddress
	shadowRan      bool
	prepassRan     bool
	stats          RenderStats
}

// Renderer records the frame's render passes in the fixed order shadow, depth prepass, forward.
//
// Every visible entity carrying a transform.Transform and an ecs.Renderable is drawn as the
// built-in cube. Per-frame and per-draw constants come from a frame-scoped ConstantAllocator,
// so a frame must be bracketed by BeginFrame and EndFrame and every pass needs the per-frame
// constants set first.
type Renderer interface {
	// Device returns the graphics device the renderer records into.
	//
	// Returns:
	//   - device.Device: the device
	Device() device.Device

	// FrameGraph returns the pass graph executed by RenderFrame. Disabling a pass here also
	// disables it for RenderScene.
	//
	// Returns:
	//   - FrameGraph: the frame graph
	FrameGraph() FrameGraph

	// Assets returns the texture and material registry.
	//
	// Returns:
	//   - material.AssetRegistry: the registry
	Assets() material.AssetRegistry

	// ShadowMap returns the shadow depth target.
	//
	// Returns:
	//   - light.ShadowMap: the shadow map
	ShadowMap() light.ShadowMap

	// Pipeline returns a created pipeline by key, or nil.
	//
	// Parameters:
	//   - key: one of the pipeline.Key constants
	//
	// Returns:
	//   - pipeline.Pipeline: the pipeline, or nil if not found
	Pipeline(key string) pipeline.Pipeline

	// Cube returns the uploaded cube mesh every renderable draws with.
	//
	// Returns:
	//   - Mesh: the cube mesh
	Cube() Mesh

	// BeginFrame begins a device frame, rewinds the slot's constant memory and resets the
	// frame statistics.
	//
	// Returns:
	//   - error: device.ErrFrameState if a frame is already active, or a device error
	BeginFrame() error

	// SetPerFrameConstants uploads the frame-wide constants. Projections are remapped for the
	// backend's clip depth range and matrices transposed for row-major backends. ShadowParams x
	// and y are owned by the renderer; z defaults to light.DefaultShadowBias when zero.
	//
	// Parameters:
	//   - c: the constants, in [0, 1] clip depth
	//
	// Returns:
	//   - error: device.ErrFrameState outside a frame, or an allocation error
	SetPerFrameConstants(c PerFrameConstants) error

	// SetVisibleSet restricts the depth prepass and forward pass to the given entities, typically
	// the output of the frustum culler. Renderables left out are counted as culled. A nil set
	// draws every visible renderable. The set persists across frames until replaced.
	//
	// Parameters:
	//   - entities: the entities to draw, or nil
	SetVisibleSet(entities []ecs.Entity)

	// RenderShadowPass resets the frame statistics and renders every visible renderable into
	// the shadow map with the light's view-projection, then leaves the shadow map ready for
	// sampling. Invisible renderables are counted as culled.
	//
	// Parameters:
	//   - world: the scene
	//
	// Returns:
	//   - error: a recording or allocation error
	RenderShadowPass(world *ecs.World) error

	// RenderDepthPrepass lays down scene depth with no color output.
	//
	// Parameters:
	//   - world: the scene
	//
	// Returns:
	//   - error: a recording or allocation error
	RenderDepthPrepass(world *ecs.World) error

	// RenderForwardPass shades every drawn renderable into the back buffer. It tests depth for
	// equality when a prepass ran this frame and samples the shadow map when a shadow pass ran.
	//
	// Parameters:
	//   - world: the scene
	//
	// Returns:
	//   - error: a recording or allocation error
	RenderForwardPass(world *ecs.World) error

	// RenderScene runs the depth prepass (when requested and enabled) followed by the forward pass.
	//
	// Parameters:
	//   - world: the scene
	//   - enableDepthPrepass: run the depth prepass first
	//   - enableShadows: sample the shadow map, if a shadow pass ran this frame
	//
	// Returns:
	//   - error: a recording or allocation error
	RenderScene(world *ecs.World, enableDepthPrepass, enableShadows bool) error

	// RenderFrame executes the frame graph's enabled passes against world.
	//
	// Parameters:
	//   - world: the scene
	//
	// Returns:
	//   - error: the first pass error
	RenderFrame(world *ecs.World) error

	// EndFrame uploads the frame's constants and ends the device frame.
	//
	// Returns:
	//   - error: device.ErrFrameState if no frame is active, or a device error
	EndFrame() error

	// ResizeBuffers resizes the device's back buffers and depth buffer. Zero dimensions are ignored.
	//
	// Parameters:
	//   - width, height: the new size in pixels
	//
	// Returns:
	//   - error: device.ErrFrameState during a frame, or a device error
	ResizeBuffers(width, height uint32) error

	// SetShadowResolution waits for the GPU and recreates the shadow map at a new resolution.
	//
	// Parameters:
	//   - resolution: the new square resolution
	//
	// Returns:
	//   - error: device.ErrFrameState during a frame, light.ErrInvalidResolution for 0
	SetShadowResolution(resolution uint32) error

	// Stats returns the statistics of the current frame.
	//
	// Returns:
	//   - RenderStats: the statistics
	Stats() RenderStats

	// Release waits for the GPU and destroys every renderer resource. The device is left alive.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates the renderer's GPU resources in order: constant allocator, asset registry,
// shadow map, shader programs, pipelines and cube geometry. Any failure is fatal and reported as
// a *device.InitError; resources created before the failure are released.
//
// Parameters:
//   - dev: the initialized device
//   - options: builder options
//
// Returns:
//   - Renderer: the renderer
//   - error: a *device.InitError naming the failed step
func NewRenderer(dev device.Device, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:               &sync.Mutex{},
		device:           dev,
		backend:          dev.Backend(),
		caps:             dev.Capabilities(),
		constantBudget:   DefaultConstantBudget,
		shadowResolution: light.ShadowMapResolution,
		clearColor:       common.Color{0.1, 0.1, 0.15, 1},
		depthPrepass:     true,
		shadows:          true,
		shaders:          make(map[shader.Program]device.ShaderID),
		pipelines:        make(map[string]pipeline.Pipeline),
		drawCache:        make(map[ecs.Entity]device.GPUAddress),
	}
	for _, option := range options {
		option(r)
	}

	if err := r.init(); err != nil {
		r.release()
		return nil, err
	}

	r.graph = NewFrameGraph()
	r.graph.AddPass(PassShadow, func() error { return r.RenderShadowPass(r.currentWorld()) })
	r.graph.AddPass(PassDepthPrepass, func() error { return r.RenderDepthPrepass(r.currentWorld()) })
	r.graph.AddPass(PassForward, func() error { return r.RenderForwardPass(r.currentWorld()) })
	r.graph.SetPassEnabled(PassShadow, r.shadows)
	r.graph.SetPassEnabled(PassDepthPrepass, r.depthPrepass)

	common.Logger().Info().
		Str("backend", r.backend.Name()).
		Uint32("shadow_resolution", r.shadowMap.Resolution()).
		Uint64("constant_budget", r.allocator.Budget()).
		Msg("renderer initialized")
	return r, nil
}

func (r *renderer) init() error {
	var err error
	if r.allocator, err = NewConstantAllocator(r.backend, r.constantBudget); err != nil {
		return device.NewInitError("constant allocator", err)
	}
	if r.assets, err = material.NewAssetRegistry(r.backend, r.device.DescriptorHeap()); err != nil {
		return device.NewInitError("asset registry", err)
	}
	if r.shadowMap, err = light.NewShadowMap(r.backend, r.device.DescriptorHeap(), light.WithResolution(r.shadowResolution)); err != nil {
		return device.NewInitError("shadow map", err)
	}

	for _, program := range shader.Programs {
		s, err := shader.Load(program, r.caps.ShaderLanguage)
		if err != nil {
			return device.NewInitError("shader "+string(program), err)
		}
		id, err := shader.Compile(r.backend, s)
		if err != nil {
			return device.NewInitError("shader "+string(program), err)
		}
		r.shaders[program] = id
		if program == shader.ProgramForward {
			r.layout = s.VertexLayout()
		}
	}

	for _, p := range []pipeline.Pipeline{
		pipeline.DepthPrepass(),
		pipeline.Forward(true),
		pipeline.Forward(false),
		pipeline.Shadow(),
	} {
		desc := p.Descriptor(r.shaders[p.Program()], r.layout, gputypes.TextureFormatDepth32Float)
		id, err := r.backend.CreatePipeline(desc)
		if err != nil {
			return device.NewInitError("pipeline "+p.PipelineKey(), err)
		}
		p.SetHandle(id)
		r.pipelines[p.PipelineKey()] = p
	}

	vertices, indices := CubeGeometry()
	if r.cube, err = UploadMesh(r.backend, "cube", vertices, indices); err != nil {
		return device.NewInitError("cube geometry", err)
	}
	return nil
}

func (r *renderer) Device() device.Device {
	return r.device
}

func (r *renderer) FrameGraph() FrameGraph {
	return r.graph
}

func (r *renderer) Assets() material.AssetRegistry {
	return r.assets
}

func (r *renderer) ShadowMap() light.ShadowMap {
	return r.shadowMap
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelines[key]
}

func (r *renderer) Cube() Mesh {
	return r.cube
}

func (r *renderer) BeginFrame() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frameActive {
		return fmt.Errorf("%w: renderer frame already active", device.ErrFrameState)
	}
	if err := r.device.BeginFrame(); err != nil {
		return err
	}
	r.allocator.Reset(r.device.FrameIndex())
	clear(r.drawCache)
	r.frameSet = false
	r.frameCPU = nil
	r.shadowRan = false
	r.prepassRan = false
	r.stats = RenderStats{}
	r.frameActive = true
	return nil
}

func (r *renderer) SetPerFrameConstants(c PerFrameConstants) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.frameActive {
		return fmt.Errorf("%w: per-frame constants set outside a frame", device.ErrFrameState)
	}

	if r.caps.ClipDepth == device.ClipDepthNegativeOneToOne {
		c.Projection = common.RemapClipDepth(c.Projection)
		c.ViewProjection = common.RemapClipDepth(c.ViewProjection)
		c.LightViewProjection = common.RemapClipDepth(c.LightViewProjection)
	}
	if r.caps.RowMajorConstants {
		c = c.Transposed()
	}
	bias := c.ShadowParams[2]
	if bias == 0 {
		bias = light.DefaultShadowBias
	}
	c.ShadowParams = mgl32.Vec4{0, 1 / float32(r.shadowMap.Resolution()), bias, 0}

	addr, cpu, err := r.allocator.Allocate(PerFrameConstantsSize)
	if err != nil {
		return fmt.Errorf("allocating per-frame constants: %w", err)
	}
	if _, err := r.device.DescriptorHeap().AllocateFrame(r.device.FrameIndex(), 1); err != nil {
		return fmt.Errorf("allocating per-frame constant descriptor: %w", err)
	}
	copy(cpu, c.Marshal())

	r.frameConstants = c
	r.frameAddr = addr
	r.frameCPU = cpu
	r.frameSet = true
	return nil
}

func (r *renderer) SetVisibleSet(entities []ecs.Entity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entities == nil {
		r.visible = nil
		return
	}
	r.visible = make(map[ecs.Entity]struct{}, len(entities))
	for _, e := range entities {
		r.visible[e] = struct{}{}
	}
}

func (r *renderer) RenderShadowPass(world *ecs.World) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkPassPreconditions(PassShadow); err != nil {
		return err
	}

	r.stats = RenderStats{}
	items, invisible := r.gather(world, false)
	r.stats.CulledCount += invisible

	r.shadowMap.BeginDepthWrite()
	if err := r.backend.BeginRenderPass(device.RenderPassDescriptor{
		Label:      PassShadow,
		Depth:      r.shadowMap.Texture(),
		ClearDepth: 1,
	}); err != nil {
		return fmt.Errorf("beginning shadow pass: %w", err)
	}
	draws, err := r.drawItems(r.pipelines[pipeline.KeyShadow], items)
	r.backend.EndRenderPass()
	r.shadowMap.BeginSampling()
	if err != nil {
		return err
	}

	r.stats.ShadowDraws += draws
	r.stats.DrawCount += draws
	r.stats.TriangleCount += draws * r.cube.TriangleCount()
	r.shadowRan = true
	common.Logger().Debug().Str("pass", PassShadow).Uint32("draws", draws).Uint32("culled", invisible).Msg("pass recorded")
	return nil
}

func (r *renderer) RenderDepthPrepass(world *ecs.World) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.renderDepthPrepass(world)
}

func (r *renderer) renderDepthPrepass(world *ecs.World) error {
	if err := r.checkPassPreconditions(PassDepthPrepass); err != nil {
		return err
	}
	items, _ := r.gather(world, true)

	if err := r.backend.BeginRenderPass(device.RenderPassDescriptor{
		Label:      PassDepthPrepass,
		Depth:      r.device.DepthTarget(),
		ClearDepth: 1,
	}); err != nil {
		return fmt.Errorf("beginning depth prepass: %w", err)
	}
	draws, err := r.drawItems(r.pipelines[pipeline.KeyDepthPrepass], items)
	r.backend.EndRenderPass()
	if err != nil {
		return err
	}

	r.stats.PrepassDraws += draws
	r.prepassRan = true
	common.Logger().Debug().Str("pass", PassDepthPrepass).Uint32("draws", draws).Msg("pass recorded")
	return nil
}

func (r *renderer) RenderForwardPass(world *ecs.World) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.renderForward(world, true)
}

func (r *renderer) renderForward(world *ecs.World, enableShadows bool) error {
	if err := r.checkPassPreconditions(PassForward); err != nil {
		return err
	}
	items, skipped := r.gather(world, true)
	if r.shadowRan {
		// invisible renderables were already counted by the shadow pass
		_, invisible := r.gather(world, false)
		skipped -= invisible
	}
	r.stats.CulledCount += skipped

	shadowsActive := enableShadows && r.shadowRan
	if shadowsActive {
		r.frameConstants.ShadowParams[0] = 1
	} else {
		r.frameConstants.ShadowParams[0] = 0
	}
	copy(r.frameCPU, r.frameConstants.Marshal())

	// the forward pipelines always bind the shadow group, so the map must be sampleable even
	// when no shadow pass ran
	r.shadowMap.BeginSampling()

	if err := r.backend.BeginRenderPass(device.RenderPassDescriptor{
		Label:      PassForward,
		Color:      true,
		ClearColor: r.clearColor,
		Depth:      r.device.DepthTarget(),
		ClearDepth: 1,
		LoadDepth:  r.prepassRan,
	}); err != nil {
		return fmt.Errorf("beginning forward pass: %w", err)
	}
	key := pipeline.KeyForwardNoPrepass
	if r.prepassRan {
		key = pipeline.KeyForward
	}
	draws, err := r.drawItems(r.pipelines[key], items)
	r.backend.EndRenderPass()
	if err != nil {
		return err
	}

	r.stats.ForwardDraws += draws
	if !r.shadowRan {
		r.stats.DrawCount += draws
		r.stats.TriangleCount += draws * r.cube.TriangleCount()
	}
	common.Logger().Debug().
		Str("pass", PassForward).
		Str("pipeline", key).
		Bool("shadows", shadowsActive).
		Uint32("draws", draws).
		Msg("pass recorded")
	return nil
}

func (r *renderer) RenderScene(world *ecs.World, enableDepthPrepass, enableShadows bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if enableDepthPrepass && r.graph.IsPassEnabled(PassDepthPrepass) {
		if err := r.renderDepthPrepass(world); err != nil {
			return err
		}
	}
	return r.renderForward(world, enableShadows && r.graph.IsPassEnabled(PassShadow))
}

func (r *renderer) RenderFrame(world *ecs.World) error {
	r.mu.Lock()
	r.graphWorld = world
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.graphWorld = nil
		r.mu.Unlock()
	}()
	return r.graph.Execute()
}

func (r *renderer) currentWorld() *ecs.World {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.graphWorld
}

func (r *renderer) EndFrame() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.frameActive {
		return fmt.Errorf("%w: no renderer frame active", device.ErrFrameState)
	}
	r.frameActive = false
	if err := r.allocator.Flush(); err != nil {
		return err
	}
	return r.device.EndFrame()
}

func (r *renderer) ResizeBuffers(width, height uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frameActive {
		return fmt.Errorf("%w: cannot resize during a frame", device.ErrFrameState)
	}
	return r.device.ResizeBuffers(width, height)
}

func (r *renderer) SetShadowResolution(resolution uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frameActive {
		return fmt.Errorf("%w: cannot resize the shadow map during a frame", device.ErrFrameState)
	}
	if resolution == 0 {
		return light.ErrInvalidResolution
	}
	if err := r.device.WaitForGPU(); err != nil {
		return err
	}
	return r.shadowMap.Resize(resolution)
}

func (r *renderer) Stats() RenderStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.device.WaitForGPU(); err != nil {
		common.Logger().Warn().Err(err).Msg("releasing renderer without a GPU idle wait")
	}
	r.release()
}

// release destroys every created resource. Safe on a partially initialized renderer.
func (r *renderer) release() {
	r.cube.Release(r.backend)
	for key, p := range r.pipelines {
		if p.Handle() != 0 {
			r.backend.DestroyPipeline(p.Handle())
		}
		delete(r.pipelines, key)
	}
	for program, id := range r.shaders {
		r.backend.DestroyShader(id)
		delete(r.shaders, program)
	}
	if r.shadowMap != nil {
		r.shadowMap.Release()
		r.shadowMap = nil
	}
	if r.assets != nil {
		r.assets.Release()
		r.assets = nil
	}
	if r.allocator != nil {
		r.allocator.Release()
		r.allocator = nil
	}
}

func (r *renderer) checkPassPreconditions(pass string) error {
	if !r.frameActive {
		return fmt.Errorf("%w: %s pass outside a frame", device.ErrFrameState, pass)
	}
	if !r.frameSet {
		return fmt.Errorf("%w: %s pass before SetPerFrameConstants", device.ErrFrameState, pass)
	}
	return nil
}

// gather resolves the renderables to draw in entity creation order. With useVisibleSet the
// renderer's visible set filters the result. skipped counts renderables not returned.
func (r *renderer) gather(world *ecs.World, useVisibleSet bool) (items []drawItem, skipped uint32) {
	if world == nil {
		return nil, 0
	}
	ecs.Each2(world, func(e ecs.Entity, t *transform.Transform, rend *ecs.Renderable) {
		if !rend.Visible {
			skipped++
			return
		}
		if useVisibleSet && r.visible != nil {
			if _, ok := r.visible[e]; !ok {
				skipped++
				return
			}
		}
		item := drawItem{entity: e, world: t.WorldMatrix(), material: material.DefaultMaterial, color: rend.Color}
		if ref, ok := ecs.Get[ecs.MaterialRef](world, e); ok && ref.Index < r.assets.MaterialCount() {
			item.material = ref.Index
		}
		items = append(items, item)
	})
	return items, skipped
}

// drawItems binds the pass state once and issues one indexed cube draw per item.
func (r *renderer) drawItems(p pipeline.Pipeline, items []drawItem) (uint32, error) {
	r.backend.SetPipeline(p.Handle())
	if p.SamplesShadowMap() {
		r.backend.SetShadowMap(r.shadowMap.Texture(), r.shadowMap.Sampler())
	}
	r.backend.SetVertexBuffer(r.cube.VertexBuffer)
	r.backend.SetIndexBuffer(r.cube.IndexBuffer, gputypes.IndexFormatUint16)
	r.backend.SetConstants(device.ConstantSlotFrame, r.frameAddr)

	var draws uint32
	for _, item := range items {
		addr, err := r.drawConstants(item)
		if err != nil {
			return draws, err
		}
		r.backend.SetConstants(device.ConstantSlotDraw, addr)
		r.backend.DrawIndexed(r.cube.IndexCount, 0, 0)
		draws++
	}
	return draws, nil
}

// drawConstants returns the entity's per-draw constant block for this frame, writing it on
// first use. Every pass of a frame reads the same block.
func (r *renderer) drawConstants(item drawItem) (device.GPUAddress, error) {
	if addr, ok := r.drawCache[item.entity]; ok {
		return addr, nil
	}

	dc := PerDrawConstants{
		World:         item.world,
		MaterialIndex: item.material,
		BaseColor:     item.color,
	}
	if m, ok := r.assets.Material(item.material); ok {
		base := m.BaseColor()
		for i := range dc.BaseColor {
			dc.BaseColor[i] *= base[i]
		}
	}
	if r.caps.RowMajorConstants {
		dc.World = dc.World.Transpose()
	}

	addr, cpu, err := r.allocator.Allocate(PerDrawConstantsSize)
	if err != nil {
		return device.GPUAddress{}, fmt.Errorf("allocating per-draw constants for entity %d: %w", item.entity, err)
	}
	if _, err := r.device.DescriptorHeap().AllocateFrame(r.device.FrameIndex(), 1); err != nil {
		return device.GPUAddress{}, fmt.Errorf("allocating per-draw descriptor for entity %d: %w", item.entity, err)
	}
	copy(cpu, dc.Marshal())
	r.drawCache[item.entity] = addr
	return addr, nil
}
