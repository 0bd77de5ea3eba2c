// Package wgpubackend implements device.GraphicsBackend on WebGPU through wgpu-native.
package wgpubackend

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/device"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/gputypes"
)

func init() {
	device.Register(device.BackendWGPU, func() device.GraphicsBackend { return New() })
}

// SurfaceProvider is the window surface the backend presents to.
type SurfaceProvider interface {
	device.Surface

	// SurfaceDescriptor returns the platform surface descriptor of the window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the descriptor, or nil if the window is closed
	SurfaceDescriptor() *wgpu.SurfaceDescriptor
}

type texture struct {
	desc    device.TextureDescriptor
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

type shader struct {
	desc     device.ShaderDescriptor
	vertex   *wgpu.ShaderModule
	fragment *wgpu.ShaderModule
}

type pipeline struct {
	desc     device.PipelineDescriptor
	layout   *wgpu.PipelineLayout
	pipeline *wgpu.RenderPipeline
}

// Backend is the WebGPU GraphicsBackend.
type Backend struct {
	mu *sync.Mutex

	forceFallbackAdapter bool

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface

	surfaceFormat wgpu.TextureFormat
	swapchain     gputypes.TextureFormat
	presentMode   wgpu.PresentMode
	width, height uint32
	backBuffer    int

	nextID    uint32
	buffers   map[device.BufferID]*wgpu.Buffer
	textures  map[device.TextureID]*texture
	samplers  map[device.SamplerID]*wgpu.Sampler
	shaders   map[device.ShaderID]*shader
	pipelines map[device.PipelineID]*pipeline
	groups    *bindGroups

	rec recorder

	fence fence
}

var _ device.GraphicsBackend = &Backend{}

// New creates an uninitialized WebGPU backend.
//
// Parameters:
//   - options: builder options
//
// Returns:
//   - *Backend: the backend
func New(options ...BackendBuilderOption) *Backend {
	b := &Backend{
		mu:        &sync.Mutex{},
		buffers:   make(map[device.BufferID]*wgpu.Buffer),
		textures:  make(map[device.TextureID]*texture),
		samplers:  make(map[device.SamplerID]*wgpu.Sampler),
		shaders:   make(map[device.ShaderID]*shader),
		pipelines: make(map[device.PipelineID]*pipeline),
		fence:     newFence(),
	}
	for _, option := range options {
		option(b)
	}
	return b
}

func (b *Backend) Name() string { return device.BackendWGPU }

func (b *Backend) Capabilities() device.Capabilities {
	b.mu.Lock()
	defer b.mu.Unlock()
	return device.Capabilities{
		ClipDepth:       device.ClipDepthZeroToOne,
		ShaderLanguage:  device.ShaderLanguageWGSL,
		SwapchainFormat: b.swapchain,
	}
}

func (b *Backend) Init(surface device.Surface, width, height uint32, mode device.PresentMode) error {
	sp, ok := surface.(SurfaceProvider)
	if !ok || sp.SurfaceDescriptor() == nil {
		return errors.New("wgpu: a window surface is required")
	}

	runtime.LockOSThread()
	b.mu.Lock()
	defer b.mu.Unlock()

	b.instance = wgpu.CreateInstance(nil)
	b.surface = b.instance.CreateSurface(sp.SurfaceDescriptor())

	adapter, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: b.forceFallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		b.releaseLocked()
		return fmt.Errorf("wgpu: requesting adapter: %w", err)
	}
	b.adapter = adapter

	d, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{Label: "oxy-forward"})
	if err != nil {
		b.releaseLocked()
		return fmt.Errorf("wgpu: requesting device: %w", err)
	}
	b.device = d
	b.queue = d.GetQueue()

	if b.groups, err = newBindGroups(d); err != nil {
		b.releaseLocked()
		return err
	}

	caps := b.surface.GetCapabilities(adapter)
	if len(caps.Formats) == 0 {
		b.releaseLocked()
		return errors.New("wgpu: surface reports no formats")
	}
	b.surfaceFormat, b.swapchain = caps.Formats[0], gputypes.TextureFormatRGBA8Unorm
	for _, f := range caps.Formats {
		if f == wgpu.TextureFormatBGRA8Unorm {
			b.surfaceFormat, b.swapchain = f, gputypes.TextureFormatBGRA8Unorm
			break
		}
	}
	b.presentMode = presentMode(mode)
	b.configure(width, height)

	common.Logger().Debug().Uint32("width", width).Uint32("height", height).Msg("wgpu surface configured")
	return nil
}

func (b *Backend) configure(width, height uint32) {
	caps := b.surface.GetCapabilities(b.adapter)
	alpha := wgpu.CompositeAlphaModeAuto
	if len(caps.AlphaModes) > 0 {
		alpha = caps.AlphaModes[0]
	}
	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.surfaceFormat,
		Width:       width,
		Height:      height,
		PresentMode: b.presentMode,
		AlphaMode:   alpha,
	})
	b.width, b.height = width, height
	b.backBuffer = 0
}

func (b *Backend) ResizeSwapchain(width, height uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if width == 0 || height == 0 {
		return fmt.Errorf("%w: swapchain size %dx%d", device.ErrInvalidArgument, width, height)
	}
	b.configure(width, height)
	return nil
}

func (b *Backend) CurrentBackBufferIndex() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.backBuffer
}

func (b *Backend) id() uint32 {
	b.nextID++
	return b.nextID
}

func (b *Backend) CreateBuffer(desc device.BufferDescriptor) (device.BufferID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: desc.Label,
		Size:  common.AlignUp(desc.Size, 4),
		Usage: bufferUsage(desc.Usage),
	})
	if err != nil {
		return 0, fmt.Errorf("wgpu: creating buffer %q: %w", desc.Label, err)
	}
	id := device.BufferID(b.id())
	b.buffers[id] = buf
	return id, nil
}

func (b *Backend) WriteBuffer(id device.BufferID, offset uint64, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf, ok := b.buffers[id]
	if !ok {
		return fmt.Errorf("%w: unknown buffer %d", device.ErrInvalidArgument, id)
	}
	b.queue.WriteBuffer(buf, offset, data)
	return nil
}

func (b *Backend) DestroyBuffer(id device.BufferID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if buf, ok := b.buffers[id]; ok {
		b.groups.forgetBuffer(id)
		buf.Release()
		delete(b.buffers, id)
	}
}

func (b *Backend) CreateTexture(desc device.TextureDescriptor) (device.TextureID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	format, err := textureFormat(desc.Format)
	if err != nil {
		return 0, err
	}
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         desc.Label,
		Usage:         textureUsage(desc.Usage),
		Dimension:     wgpu.TextureDimension2D,
		Size:          wgpu.Extent3D{Width: desc.Width, Height: desc.Height, DepthOrArrayLayers: 1},
		Format:        format,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return 0, fmt.Errorf("wgpu: creating texture %q: %w", desc.Label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return 0, fmt.Errorf("wgpu: creating view of texture %q: %w", desc.Label, err)
	}
	id := device.TextureID(b.id())
	b.textures[id] = &texture{desc: desc, texture: tex, view: view}
	return id, nil
}

func (b *Backend) WriteTexture(id device.TextureID, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.textures[id]
	if !ok {
		return fmt.Errorf("%w: unknown texture %d", device.ErrInvalidArgument, id)
	}
	if want := int(t.desc.Width * t.desc.Height * texelSize); len(data) != want {
		return fmt.Errorf("%w: texture %q needs %d bytes, got %d", device.ErrInvalidArgument, t.desc.Label, want, len(data))
	}
	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  t.texture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		data,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  t.desc.Width * texelSize,
			RowsPerImage: t.desc.Height,
		},
		&wgpu.Extent3D{Width: t.desc.Width, Height: t.desc.Height, DepthOrArrayLayers: 1},
	)
	return nil
}

func (b *Backend) DestroyTexture(id device.TextureID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t, ok := b.textures[id]; ok {
		b.groups.forgetTexture(id)
		t.view.Release()
		t.texture.Release()
		delete(b.textures, id)
	}
}

func (b *Backend) CreateSampler(desc device.SamplerDescriptor) (device.SamplerID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sd := &wgpu.SamplerDescriptor{
		Label:         desc.Label,
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	}
	if desc.Comparison {
		sd.Compare = compareFunction(desc.Compare)
	}
	s, err := b.device.CreateSampler(sd)
	if err != nil {
		return 0, fmt.Errorf("wgpu: creating sampler %q: %w", desc.Label, err)
	}
	id := device.SamplerID(b.id())
	b.samplers[id] = s
	return id, nil
}

func (b *Backend) DestroySampler(id device.SamplerID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.samplers[id]; ok {
		b.groups.forgetSampler(id)
		s.Release()
		delete(b.samplers, id)
	}
}

func (b *Backend) CreateShader(desc device.ShaderDescriptor) (device.ShaderID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if desc.Language != device.ShaderLanguageWGSL {
		return 0, fmt.Errorf("%w: wgpu consumes WGSL, got %s", device.ErrInvalidArgument, desc.Language)
	}

	vs, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          desc.Label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: desc.VertexSource},
	})
	if err != nil {
		return 0, &device.ShaderCompileError{Label: desc.Label, Stage: "vertex", Log: err.Error()}
	}
	s := &shader{desc: desc, vertex: vs}
	switch {
	case desc.FragmentSource == "":
	case desc.FragmentSource == desc.VertexSource:
		s.fragment = vs
	default:
		fs, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
			Label:          desc.Label,
			WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: desc.FragmentSource},
		})
		if err != nil {
			vs.Release()
			return 0, &device.ShaderCompileError{Label: desc.Label, Stage: "fragment", Log: err.Error()}
		}
		s.fragment = fs
	}

	id := device.ShaderID(b.id())
	b.shaders[id] = s
	return id, nil
}

func (b *Backend) DestroyShader(id device.ShaderID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.shaders[id]; ok {
		if s.fragment != nil && s.fragment != s.vertex {
			s.fragment.Release()
		}
		s.vertex.Release()
		delete(b.shaders, id)
	}
}

func (b *Backend) CreatePipeline(desc device.PipelineDescriptor) (device.PipelineID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.shaders[desc.Shader]
	if !ok {
		return 0, fmt.Errorf("%w: pipeline %q references unknown shader %d", device.ErrInvalidArgument, desc.Label, desc.Shader)
	}
	vl, err := vertexLayout(desc.Vertex)
	if err != nil {
		return 0, fmt.Errorf("pipeline %q: %w", desc.Label, err)
	}
	depthFormat, err := textureFormat(desc.DepthFormat)
	if err != nil {
		return 0, fmt.Errorf("pipeline %q: %w", desc.Label, err)
	}

	layout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            desc.Label,
		BindGroupLayouts: b.groups.layouts(desc.SamplesShadowMap),
	})
	if err != nil {
		return 0, fmt.Errorf("wgpu: creating layout of pipeline %q: %w", desc.Label, err)
	}

	rpd := &wgpu.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     s.vertex,
			EntryPoint: s.desc.VertexEntry,
			Buffers:    []wgpu.VertexBufferLayout{vl},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  topology(desc.Topology),
			FrontFace: frontFace(desc.FrontFace),
			CullMode:  cullMode(desc.CullMode),
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:              depthFormat,
			DepthWriteEnabled:   desc.DepthWriteEnabled,
			DepthCompare:        compareFunction(desc.DepthCompare),
			DepthBias:           desc.DepthBias,
			DepthBiasSlopeScale: desc.DepthBiasSlopeScale,
			StencilFront:        wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			StencilBack:         wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		},
	}
	// depth-only pipelines have no fragment stage
	if desc.ColorTarget && s.fragment != nil {
		rpd.Fragment = &wgpu.FragmentState{
			Module:     s.fragment,
			EntryPoint: s.desc.FragmentEntry,
			Targets: []wgpu.ColorTargetState{{
				Format:    b.surfaceFormat,
				WriteMask: writeMask(desc.ColorWriteMask),
			}},
		}
	}

	rp, err := b.device.CreateRenderPipeline(rpd)
	if err != nil {
		layout.Release()
		return 0, fmt.Errorf("wgpu: creating pipeline %q: %w", desc.Label, err)
	}
	id := device.PipelineID(b.id())
	b.pipelines[id] = &pipeline{desc: desc, layout: layout, pipeline: rp}
	return id, nil
}

func (b *Backend) DestroyPipeline(id device.PipelineID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p, ok := b.pipelines[id]; ok {
		p.pipeline.Release()
		p.layout.Release()
		delete(b.pipelines, id)
	}
}

func (b *Backend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.releaseLocked()
}

// releaseLocked destroys every object the backend owns. Safe on a partially initialized backend.
func (b *Backend) releaseLocked() {
	b.rec.abandon()
	for id, p := range b.pipelines {
		p.pipeline.Release()
		p.layout.Release()
		delete(b.pipelines, id)
	}
	for id, s := range b.shaders {
		if s.fragment != nil && s.fragment != s.vertex {
			s.fragment.Release()
		}
		s.vertex.Release()
		delete(b.shaders, id)
	}
	if b.groups != nil {
		b.groups.release()
		b.groups = nil
	}
	for id, s := range b.samplers {
		s.Release()
		delete(b.samplers, id)
	}
	for id, t := range b.textures {
		t.view.Release()
		t.texture.Release()
		delete(b.textures, id)
	}
	for id, buf := range b.buffers {
		buf.Release()
		delete(b.buffers, id)
	}
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}
