package engine

import (
	"github.com/Carmen-Shannon/oxy-forward/engine/camera"
	"github.com/Carmen-Shannon/oxy-forward/engine/config"
	"github.com/Carmen-Shannon/oxy-forward/engine/device"
	"github.com/Carmen-Shannon/oxy-forward/engine/ecs"
	"github.com/Carmen-Shannon/oxy-forward/engine/input"
	"github.com/Carmen-Shannon/oxy-forward/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
type EngineBuilderOption func(*engine)

// WithConfig replaces the default configuration.
//
// Parameters:
//   - cfg: the configuration, validated by NewEngine
//
// Returns:
//   - EngineBuilderOption: the option function
func WithConfig(cfg config.Config) EngineBuilderOption {
	return func(e *engine) {
		e.cfg = cfg
	}
}

// WithBackendName selects a registered backend by name, overriding the configuration.
//
// Parameters:
//   - name: a registered backend name
//
// Returns:
//   - EngineBuilderOption: the option function
func WithBackendName(name string) EngineBuilderOption {
	return func(e *engine) {
		e.cfg.Device.Backend = name
	}
}

// WithBackend uses an already constructed, uninitialized backend. The engine initializes and
// releases it.
//
// Parameters:
//   - b: the backend
//
// Returns:
//   - EngineBuilderOption: the option function
func WithBackend(b device.GraphicsBackend) EngineBuilderOption {
	return func(e *engine) {
		e.backend = b
	}
}

// WithWindow presents to an existing window instead of creating one. The caller keeps
// ownership and closes it after the engine.
//
// Parameters:
//   - w: the window
//
// Returns:
//   - EngineBuilderOption: the option function
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithWorld renders an existing world instead of an empty one.
//
// Parameters:
//   - world: the entity world
//
// Returns:
//   - EngineBuilderOption: the option function
func WithWorld(world *ecs.World) EngineBuilderOption {
	return func(e *engine) {
		e.world = world
	}
}

// WithCamera views the scene through cam. Its aspect ratio is set from the device size.
//
// Parameters:
//   - cam: the camera
//
// Returns:
//   - EngineBuilderOption: the option function
func WithCamera(cam camera.Camera) EngineBuilderOption {
	return func(e *engine) {
		e.camera = cam
	}
}

// WithCameraController drives the camera from input each frame.
//
// Parameters:
//   - controller: the controller
//
// Returns:
//   - EngineBuilderOption: the option function
func WithCameraController(controller camera.CameraController) EngineBuilderOption {
	return func(e *engine) {
		e.controller = controller
	}
}

// WithInput feeds the engine from state. A window created by the engine writes into it.
//
// Parameters:
//   - state: the input state
//
// Returns:
//   - EngineBuilderOption: the option function
func WithInput(state *input.State) EngineBuilderOption {
	return func(e *engine) {
		e.input = state
	}
}

// WithProfiling enables or disables periodic performance logging.
//
// Parameters:
//   - enabled: true to log profiler reports
//
// Returns:
//   - EngineBuilderOption: the option function
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.cfg.Profiling.Enabled = enabled
		e.profilingEnabled = enabled
	}
}

// WithTickCallback sets the per-frame game logic callback.
//
// Parameters:
//   - callback: function receiving the delta time in seconds
//
// Returns:
//   - EngineBuilderOption: the option function
func WithTickCallback(callback func(deltaTime float32)) EngineBuilderOption {
	return func(e *engine) {
		e.tickCallback = callback
	}
}

// WithRenderFrameLimit caps the frame rate. 0 leaves it uncapped.
//
// Parameters:
//   - fps: maximum frames per second
//
// Returns:
//   - EngineBuilderOption: the option function
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.SetRenderFrameLimit(fps)
	}
}

// WithMaxFrames makes Run return after n frames. 0 runs until quit.
//
// Parameters:
//   - n: the number of frames to run
//
// Returns:
//   - EngineBuilderOption: the option function
func WithMaxFrames(n uint64) EngineBuilderOption {
	return func(e *engine) {
		e.maxFrames = n
	}
}
