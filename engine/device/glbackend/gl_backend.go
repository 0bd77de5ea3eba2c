// Package glbackend implements device.GraphicsBackend on OpenGL 4.1 core.
//
// GL is an immediate API, so commands are validated while they are recorded and replayed on
// the context at Submit. Frames render into offscreen back buffers that Present blits to the
// window. Every method must be called from the thread that owns the context.
package glbackend

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/device"
	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/gogpu/gputypes"
)

func init() {
	device.Register(device.BackendGL, func() device.GraphicsBackend { return New() })
}

// ContextProvider is the window-side OpenGL context the backend renders with.
type ContextProvider interface {
	device.Surface

	// MakeContextCurrent binds the window's context to the calling thread.
	MakeContextCurrent()

	// SwapBuffers presents the window's default framebuffer.
	SwapBuffers()

	// SetSwapInterval sets how many vertical blanks a swap waits for.
	//
	// Parameters:
	//   - interval: 0 for uncapped, 1 for vsync
	SetSwapInterval(interval int)
}

type buffer struct {
	desc device.BufferDescriptor
	name uint32
}

type texture struct {
	desc   device.TextureDescriptor
	format texFormat
	name   uint32
}

type shader struct {
	desc    device.ShaderDescriptor
	program uint32
}

type pipeline struct {
	desc    device.PipelineDescriptor
	program uint32
}

// Backend is the OpenGL GraphicsBackend.
type Backend struct {
	mu *sync.Mutex

	checkErrors bool

	ctx           ContextProvider
	initialized   bool
	width, height uint32

	// offscreen back buffers, blitted to the window on Present
	backBuffers [device.FrameCount]uint32
	backBuffer  int
	fbo         uint32
	vao         uint32

	nextID    uint32
	buffers   map[device.BufferID]*buffer
	textures  map[device.TextureID]*texture
	samplers  map[device.SamplerID]uint32
	shaders   map[device.ShaderID]*shader
	pipelines map[device.PipelineID]*pipeline

	rec   recorder
	fence fence
}

var _ device.GraphicsBackend = &Backend{}

// New creates an uninitialized OpenGL backend.
//
// Parameters:
//   - options: builder options
//
// Returns:
//   - *Backend: the backend
func New(options ...BackendBuilderOption) *Backend {
	b := &Backend{
		mu:        &sync.Mutex{},
		buffers:   make(map[device.BufferID]*buffer),
		textures:  make(map[device.TextureID]*texture),
		samplers:  make(map[device.SamplerID]uint32),
		shaders:   make(map[device.ShaderID]*shader),
		pipelines: make(map[device.PipelineID]*pipeline),
	}
	for _, option := range options {
		option(b)
	}
	return b
}

func (b *Backend) Name() string { return device.BackendGL }

// Capabilities reports [-1, 1] clip depth and GLSL. The shared GLSL blocks are declared
// row_major, so matrices are uploaded transposed.
func (b *Backend) Capabilities() device.Capabilities {
	return device.Capabilities{
		ClipDepth:         device.ClipDepthNegativeOneToOne,
		RowMajorConstants: true,
		ShaderLanguage:    device.ShaderLanguageGLSL,
		SwapchainFormat:   gputypes.TextureFormatRGBA8Unorm,
		ComparisonBorder:  true,
	}
}

func (b *Backend) Init(surface device.Surface, width, height uint32, mode device.PresentMode) error {
	ctx, ok := surface.(ContextProvider)
	if !ok {
		return errors.New("gl: an OpenGL context is required")
	}

	runtime.LockOSThread()
	b.mu.Lock()
	defer b.mu.Unlock()

	ctx.MakeContextCurrent()
	if err := gl.Init(); err != nil {
		return fmt.Errorf("gl: loading entry points: %w", err)
	}
	common.Logger().Debug().Str("version", gl.GoStr(gl.GetString(gl.VERSION))).Msg("gl context ready")
	var align int32
	gl.GetIntegerv(gl.UNIFORM_BUFFER_OFFSET_ALIGNMENT, &align)
	if align <= 0 || device.ConstantAlignment%int(align) != 0 {
		return fmt.Errorf("gl: uniform offset alignment %d does not divide %d", align, device.ConstantAlignment)
	}
	ctx.SetSwapInterval(swapInterval(mode))
	b.ctx = ctx

	gl.GenFramebuffers(1, &b.fbo)
	gl.GenVertexArrays(1, &b.vao)
	gl.BindVertexArray(b.vao)
	gl.Enable(gl.DEPTH_TEST)

	if err := b.createBackBuffers(width, height); err != nil {
		b.releaseLocked()
		return err
	}
	b.initialized = true
	return nil
}

func (b *Backend) createBackBuffers(width, height uint32) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("%w: swapchain size %dx%d", device.ErrInvalidArgument, width, height)
	}
	b.deleteBackBuffers()
	gl.GenTextures(int32(len(b.backBuffers)), &b.backBuffers[0])
	for _, name := range b.backBuffers {
		gl.BindTexture(gl.TEXTURE_2D, name)
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(width), int32(height), 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
		setTextureParams()
	}
	gl.BindTexture(gl.TEXTURE_2D, 0)
	b.width, b.height = width, height
	b.backBuffer = 0
	return nil
}

func (b *Backend) deleteBackBuffers() {
	if b.backBuffers[0] != 0 {
		gl.DeleteTextures(int32(len(b.backBuffers)), &b.backBuffers[0])
		b.backBuffers = [device.FrameCount]uint32{}
	}
}

func setTextureParams() {
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
}

func (b *Backend) ResizeSwapchain(width, height uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.initialized {
		return errors.New("gl: backend is not initialized")
	}
	return b.createBackBuffers(width, height)
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

func bufferTarget(usage gputypes.BufferUsage) uint32 {
	switch {
	case usage&gputypes.BufferUsageIndex != 0:
		return gl.ELEMENT_ARRAY_BUFFER
	case usage&gputypes.BufferUsageUniform != 0:
		return gl.UNIFORM_BUFFER
	}
	return gl.ARRAY_BUFFER
}

func (b *Backend) CreateBuffer(desc device.BufferDescriptor) (device.BufferID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.initialized {
		return 0, errors.New("gl: backend is not initialized")
	}
	if desc.Size == 0 {
		return 0, fmt.Errorf("%w: buffer %q has zero size", device.ErrInvalidArgument, desc.Label)
	}
	buf := &buffer{desc: desc}
	target := bufferTarget(desc.Usage)
	gl.GenBuffers(1, &buf.name)
	gl.BindBuffer(target, buf.name)
	gl.BufferData(target, int(desc.Size), nil, gl.DYNAMIC_DRAW)
	gl.BindBuffer(target, 0)

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
	if offset+uint64(len(data)) > buf.desc.Size {
		return fmt.Errorf("%w: write of %d bytes at %d overruns buffer %q", device.ErrInvalidArgument, len(data), offset, buf.desc.Label)
	}
	if len(data) == 0 {
		return nil
	}
	// ARRAY_BUFFER does not disturb the VAO's element binding
	gl.BindBuffer(gl.ARRAY_BUFFER, buf.name)
	gl.BufferSubData(gl.ARRAY_BUFFER, int(offset), len(data), gl.Ptr(data))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return nil
}

func (b *Backend) DestroyBuffer(id device.BufferID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if buf, ok := b.buffers[id]; ok {
		gl.DeleteBuffers(1, &buf.name)
		delete(b.buffers, id)
	}
}

func (b *Backend) CreateTexture(desc device.TextureDescriptor) (device.TextureID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.initialized {
		return 0, errors.New("gl: backend is not initialized")
	}
	format, err := textureFormat(desc.Format)
	if err != nil {
		return 0, err
	}
	if desc.Width == 0 || desc.Height == 0 {
		return 0, fmt.Errorf("%w: texture %q has zero size", device.ErrInvalidArgument, desc.Label)
	}
	t := &texture{desc: desc, format: format}
	gl.GenTextures(1, &t.name)
	gl.BindTexture(gl.TEXTURE_2D, t.name)
	gl.TexImage2D(gl.TEXTURE_2D, 0, format.internal, int32(desc.Width), int32(desc.Height), 0, format.format, format.xtype, nil)
	setTextureParams()
	gl.BindTexture(gl.TEXTURE_2D, 0)

	id := device.TextureID(b.id())
	b.textures[id] = t
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
	gl.BindTexture(gl.TEXTURE_2D, t.name)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(t.desc.Width), int32(t.desc.Height), t.format.format, t.format.xtype, gl.Ptr(data))
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return nil
}

func (b *Backend) DestroyTexture(id device.TextureID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t, ok := b.textures[id]; ok {
		gl.DeleteTextures(1, &t.name)
		delete(b.textures, id)
	}
}

func (b *Backend) CreateSampler(desc device.SamplerDescriptor) (device.SamplerID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.initialized {
		return 0, errors.New("gl: backend is not initialized")
	}
	var s uint32
	gl.GenSamplers(1, &s)
	gl.SamplerParameteri(s, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.SamplerParameteri(s, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	wrap := int32(gl.CLAMP_TO_EDGE)
	if desc.Border {
		wrap = gl.CLAMP_TO_BORDER
		border := [4]float32{1, 1, 1, 1}
		gl.SamplerParameterfv(s, gl.TEXTURE_BORDER_COLOR, &border[0])
	}
	gl.SamplerParameteri(s, gl.TEXTURE_WRAP_S, wrap)
	gl.SamplerParameteri(s, gl.TEXTURE_WRAP_T, wrap)
	if desc.Comparison {
		gl.SamplerParameteri(s, gl.TEXTURE_COMPARE_MODE, gl.COMPARE_REF_TO_TEXTURE)
		gl.SamplerParameteri(s, gl.TEXTURE_COMPARE_FUNC, int32(compareFunc(desc.Compare)))
	}

	id := device.SamplerID(b.id())
	b.samplers[id] = s
	return id, nil
}

func (b *Backend) DestroySampler(id device.SamplerID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.samplers[id]; ok {
		gl.DeleteSamplers(1, &s)
		delete(b.samplers, id)
	}
}

func (b *Backend) CreateShader(desc device.ShaderDescriptor) (device.ShaderID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.initialized {
		return 0, errors.New("gl: backend is not initialized")
	}
	if desc.Language != device.ShaderLanguageGLSL {
		return 0, fmt.Errorf("%w: gl consumes GLSL, got %s", device.ErrInvalidArgument, desc.Language)
	}
	prog, err := buildProgram(desc)
	if err != nil {
		return 0, err
	}
	id := device.ShaderID(b.id())
	b.shaders[id] = &shader{desc: desc, program: prog}
	return id, nil
}

func (b *Backend) DestroyShader(id device.ShaderID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.shaders[id]; ok {
		gl.DeleteProgram(s.program)
		delete(b.shaders, id)
	}
}

// CreatePipeline only validates the descriptor. GL has no pipeline objects, the state is
// applied when a draw is replayed.
func (b *Backend) CreatePipeline(desc device.PipelineDescriptor) (device.PipelineID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.shaders[desc.Shader]
	if !ok {
		return 0, fmt.Errorf("%w: pipeline %q references unknown shader %d", device.ErrInvalidArgument, desc.Label, desc.Shader)
	}
	for _, a := range desc.Vertex.Attributes {
		if _, err := vertexComponents(a.Format); err != nil {
			return 0, fmt.Errorf("pipeline %q attribute %d: %w", desc.Label, a.Location, err)
		}
	}
	if !isDepthFormat(desc.DepthFormat) {
		return 0, fmt.Errorf("%w: pipeline %q needs a depth format", device.ErrInvalidArgument, desc.Label)
	}
	id := device.PipelineID(b.id())
	b.pipelines[id] = &pipeline{desc: desc, program: s.program}
	return id, nil
}

func (b *Backend) DestroyPipeline(id device.PipelineID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pipelines, id)
}

func (b *Backend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.releaseLocked()
}

func (b *Backend) releaseLocked() {
	b.rec = recorder{}
	if b.ctx == nil {
		return
	}
	b.fence.release()
	for id := range b.pipelines {
		delete(b.pipelines, id)
	}
	for id, s := range b.shaders {
		gl.DeleteProgram(s.program)
		delete(b.shaders, id)
	}
	for id, s := range b.samplers {
		gl.DeleteSamplers(1, &s)
		delete(b.samplers, id)
	}
	for id, t := range b.textures {
		gl.DeleteTextures(1, &t.name)
		delete(b.textures, id)
	}
	for id, buf := range b.buffers {
		gl.DeleteBuffers(1, &buf.name)
		delete(b.buffers, id)
	}
	b.deleteBackBuffers()
	if b.fbo != 0 {
		gl.DeleteFramebuffers(1, &b.fbo)
		b.fbo = 0
	}
	if b.vao != 0 {
		gl.DeleteVertexArrays(1, &b.vao)
		b.vao = 0
	}
	b.ctx = nil
	b.initialized = false
}
