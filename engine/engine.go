package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/camera"
	"github.com/Carmen-Shannon/oxy-forward/engine/config"
	"github.com/Carmen-Shannon/oxy-forward/engine/culling"
	"github.com/Carmen-Shannon/oxy-forward/engine/device"
	"github.com/Carmen-Shannon/oxy-forward/engine/ecs"
	"github.com/Carmen-Shannon/oxy-forward/engine/input"
	"github.com/Carmen-Shannon/oxy-forward/engine/profiler"
	"github.com/Carmen-Shannon/oxy-forward/engine/renderer"
	"github.com/Carmen-Shannon/oxy-forward/engine/transform"
	"github.com/Carmen-Shannon/oxy-forward/engine/window"
	"github.com/rs/zerolog"
)

// ErrClosed is returned by Run when the engine has already been closed.
var ErrClosed = errors.New("engine closed")

// engine implements the Engine interface.
// Drives the window, device, renderer and scene from a single loop on the calling goroutine.
type engine struct {
	mu *sync.Mutex

	cfg config.Config

	quitChannel chan struct{}
	quitOnce    sync.Once
	closed      bool

	window     window.Window
	ownsWindow bool
	backend    device.GraphicsBackend
	device     device.Device
	renderer   renderer.Renderer

	world      *ecs.World
	camera     camera.Camera
	controller camera.CameraController
	culler     culling.Culler
	updater    transform.Updater
	input      *input.State

	timer            *profiler.Timer
	profiler         *profiler.Profiler
	profilingEnabled bool

	tickCallback func(deltaTime float32)

	// pendingWidth and pendingHeight hold the last framebuffer size reported by the window,
	// applied at the start of the next frame.
	pendingWidth  int
	pendingHeight int
	resizePending bool

	renderFrameLimit time.Duration
	maxFrames        uint64
	frames           uint64
}

// Engine owns the graphics device, the renderer and the scene, and runs the frame loop:
// begin frame, update transforms, cull, render shadow, depth prepass and forward passes, end frame.
type Engine interface {
	// Window returns the window the engine presents to, or nil when running headless.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Device returns the graphics device.
	//
	// Returns:
	//   - device.Device: the device
	Device() device.Device

	// Renderer returns the forward renderer.
	//
	// Returns:
	//   - renderer.Renderer: the renderer
	Renderer() renderer.Renderer

	// World returns the entity world rendered each frame.
	//
	// Returns:
	//   - *ecs.World: the world
	World() *ecs.World

	// Camera returns the camera the scene is viewed through.
	//
	// Returns:
	//   - camera.Camera: the camera
	Camera() camera.Camera

	// Input returns the input state fed by the window.
	//
	// Returns:
	//   - *input.State: the input state
	Input() *input.State

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickCallback registers the function called once per frame before transforms are updated.
	// Use this for game logic and animation.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional frame rate cap in frames per second.
	// Pass 0 to uncap the loop (default).
	//
	// Parameters:
	//   - fps: maximum frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Frame runs one iteration of the frame loop.
	//
	// Returns:
	//   - error: the first error raised by any stage; the frame is abandoned
	Frame() error

	// Run runs frames until the window closes, Quit is called, the frame limit is reached or a
	// stage fails. It blocks and must be called from the goroutine that created the engine.
	//
	// Returns:
	//   - error: the error that stopped the loop, or nil on a normal shutdown
	Run() error

	// Quit asks Run to return after the current frame.
	// Safe to call multiple times and from any goroutine.
	Quit()

	// Close waits for the GPU and releases the renderer, the device and an engine-owned window.
	//
	// Returns:
	//   - error: an error if the GPU could not be drained or the window could not be closed
	Close() error
}

var _ Engine = &engine{}

// NewEngine creates the device, renderer and supporting systems from the configuration.
// Without WithWindow a window is created unless the selected backend is headless; the window's
// client API follows the backend.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
//   - error: an error if the configuration is invalid or any subsystem fails to initialize
func NewEngine(options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		mu:          &sync.Mutex{},
		cfg:         config.Default(),
		quitChannel: make(chan struct{}),
		updater:     transform.NewUpdater(),
	}
	for _, option := range options {
		option(e)
	}
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}
	if e.cfg.Profiling.Enabled {
		e.profilingEnabled = true
	}

	if err := e.init(); err != nil {
		e.release()
		return nil, err
	}
	return e, nil
}

func (e *engine) init() error {
	if e.backend == nil {
		var err error
		if e.cfg.Device.Backend != "" {
			e.backend, err = device.Get(e.cfg.Device.Backend)
		} else {
			e.backend, err = device.Default()
		}
		if err != nil {
			return fmt.Errorf("selecting backend: %w", err)
		}
	}

	if e.window == nil && e.backend.Name() != device.BackendHeadless {
		api := window.ClientAPINone
		if e.backend.Name() == device.BackendGL {
			api = window.ClientAPIOpenGL
		}
		opts := []window.WindowBuilderOption{
			window.WithTitle(e.cfg.Window.Title),
			window.WithSize(e.cfg.Window.Width, e.cfg.Window.Height),
			window.WithClientAPI(api),
		}
		if e.input != nil {
			opts = append(opts, window.WithInput(e.input))
		}
		w, err := window.NewWindow(opts...)
		if err != nil {
			return fmt.Errorf("creating window: %w", err)
		}
		e.window = w
		e.ownsWindow = true
	}
	if e.window != nil {
		e.input = e.window.Input()
		e.window.SetResizeCallback(e.onResize)
	}
	if e.input == nil {
		e.input = input.NewState()
	}

	devOpts := []device.DeviceBuilderOption{
		device.WithBackend(e.backend),
		device.WithSize(uint32(e.cfg.Window.Width), uint32(e.cfg.Window.Height)),
		device.WithPresentMode(e.cfg.PresentMode()),
		device.WithFenceTimeout(e.cfg.Device.FenceTimeout),
		device.WithDescriptorHeapSizes(e.cfg.Device.PersistentDescriptors, e.cfg.Device.FrameDescriptors),
	}
	if e.window != nil {
		w, h := e.window.FramebufferSize()
		devOpts = append(devOpts, device.WithSurface(e.window))
		if w > 0 && h > 0 {
			devOpts = append(devOpts, device.WithSize(uint32(w), uint32(h)))
		}
	}
	dev, err := device.NewDevice(devOpts...)
	if err != nil {
		return err
	}
	e.device = dev

	r, err := renderer.NewRenderer(dev,
		renderer.WithConstantBudget(e.cfg.Renderer.ConstantBudget),
		renderer.WithShadowResolution(e.cfg.Renderer.ShadowResolution),
		renderer.WithDepthPrepass(e.cfg.Renderer.DepthPrepass),
		renderer.WithShadows(e.cfg.Renderer.Shadows),
	)
	if err != nil {
		return fmt.Errorf("creating renderer: %w", err)
	}
	e.renderer = r

	if e.world == nil {
		e.world = ecs.NewWorld()
	}
	width, height := dev.Size()
	if e.camera == nil {
		e.camera = camera.NewCamera(camera.WithAspect(float32(width) / float32(height)))
	} else {
		e.camera.SetAspect(float32(width) / float32(height))
	}
	if e.cfg.Culling.Enabled {
		e.culler = culling.NewCuller(culling.WithWorkerPool(e.cfg.Culling.Workers))
	}

	e.timer = profiler.NewTimer(nil)
	e.profiler = profiler.NewProfiler(
		profiler.WithInterval(e.cfg.Profiling.Interval),
		profiler.WithReportHook(e.reportStats),
	)
	return nil
}

func (e *engine) reportStats(ev *zerolog.Event) {
	s := e.renderer.Stats()
	ev.Uint32("draws", s.DrawCount).
		Uint32("culled", s.CulledCount).
		Uint32("triangles", s.TriangleCount).
		Uint32("shadow_draws", s.ShadowDraws).
		Uint32("prepass_draws", s.PrepassDraws).
		Uint32("forward_draws", s.ForwardDraws)
}

func (e *engine) onResize(width, height int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pendingWidth, e.pendingHeight = width, height
	e.resizePending = true
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Device() device.Device {
	return e.device
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) World() *ecs.World {
	return e.world
}

func (e *engine) Camera() camera.Camera {
	return e.camera
}

func (e *engine) Input() *input.State {
	return e.input
}

func (e *engine) EnableProfiler() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profilingEnabled = true
}

func (e *engine) DisableProfiler() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profilingEnabled = false
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tickCallback = callback
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
}

// applyResize resizes the swapchain and depth buffer to the last reported framebuffer size.
// Zero sizes from a minimized window are skipped until a real size arrives.
func (e *engine) applyResize() error {
	e.mu.Lock()
	w, h, pending := e.pendingWidth, e.pendingHeight, e.resizePending
	if pending && w > 0 && h > 0 {
		e.resizePending = false
	}
	e.mu.Unlock()

	if !pending || w <= 0 || h <= 0 {
		return nil
	}
	if err := e.renderer.ResizeBuffers(uint32(w), uint32(h)); err != nil {
		return fmt.Errorf("resizing to %dx%d: %w", w, h, err)
	}
	e.camera.SetAspect(float32(w) / float32(h))
	common.Logger().Debug().Int("width", w).Int("height", h).Msg("swapchain resized")
	return nil
}

func (e *engine) Frame() error {
	if err := e.applyResize(); err != nil {
		return err
	}

	dt := e.timer.Tick()

	e.mu.Lock()
	tick := e.tickCallback
	e.mu.Unlock()

	if e.controller != nil {
		e.controller.Update(e.camera, e.input, dt)
	}
	if tick != nil {
		tick(dt)
	}

	if err := e.renderer.BeginFrame(); err != nil {
		return fmt.Errorf("beginning frame: %w", err)
	}
	if err := e.updater.UpdateAll(e.world); err != nil {
		return fmt.Errorf("updating transforms: %w", err)
	}

	if e.culler != nil {
		frustum := common.ExtractFrustumFromMatrix(e.camera.ViewProjection())
		visible := e.culler.Cull(e.world, frustum)
		if visible == nil {
			// nil would mean "draw everything"
			visible = []ecs.Entity{}
		}
		e.renderer.SetVisibleSet(visible)
	} else {
		e.renderer.SetVisibleSet(nil)
	}

	constants := renderer.BuildFrameConstants(e.world, e.camera, e.timer.Elapsed(), dt)
	if err := e.renderer.SetPerFrameConstants(constants); err != nil {
		return fmt.Errorf("setting frame constants: %w", err)
	}
	if err := e.renderer.RenderFrame(e.world); err != nil {
		return fmt.Errorf("rendering frame: %w", err)
	}
	if err := e.renderer.EndFrame(); err != nil {
		return fmt.Errorf("ending frame: %w", err)
	}

	e.input.EndFrame()
	e.frames++

	e.mu.Lock()
	profiling := e.profilingEnabled
	e.mu.Unlock()
	if profiling {
		e.profiler.Tick()
	}
	return nil
}

func (e *engine) Run() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	e.mu.Unlock()

	e.timer.Reset()
	log := common.Logger()
	log.Info().Str("backend", e.device.Backend().Name()).Msg("engine running")

	for {
		select {
		case <-e.quitChannel:
			log.Info().Uint64("frames", e.frames).Msg("engine stopped")
			return nil
		default:
		}

		start := time.Now()
		if e.window != nil {
			if !e.window.PollEvents() || !e.window.IsRunning() {
				e.Quit()
				continue
			}
		}

		if err := e.Frame(); err != nil {
			log.Error().Err(err).Uint64("frame", e.frames).Msg("frame failed")
			return err
		}
		if e.maxFrames > 0 && e.frames >= e.maxFrames {
			e.Quit()
			continue
		}

		e.mu.Lock()
		limit := e.renderFrameLimit
		e.mu.Unlock()
		if limit > 0 {
			if remaining := limit - time.Since(start); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
}

func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

func (e *engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	e.Quit()
	var errs []error
	if e.device != nil {
		if err := e.device.WaitForGPU(); err != nil {
			errs = append(errs, fmt.Errorf("draining gpu: %w", err))
		}
	}
	if err := e.release(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// release tears down whatever init managed to create, in reverse order.
func (e *engine) release() error {
	if e.renderer != nil {
		e.renderer.Release()
		e.renderer = nil
	}
	if e.device != nil {
		e.device.Release()
		e.device = nil
	}
	e.backend = nil
	if e.window != nil && e.ownsWindow {
		w := e.window
		e.window = nil
		if err := w.Close(); err != nil {
			return fmt.Errorf("closing window: %w", err)
		}
	}
	return nil
}
