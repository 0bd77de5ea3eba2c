package window

import (
	"github.com/Carmen-Shannon/oxy-forward/engine/input"
	"github.com/cogentcore/webgpu/wgpu"
)

// ClientAPI selects the graphics context the window is created with.
type ClientAPI int

const (
	// ClientAPINone creates a bare window for explicit APIs that bring their own surface (WebGPU).
	ClientAPINone ClientAPI = iota

	// ClientAPIOpenGL creates an OpenGL 4.1 core context.
	ClientAPIOpenGL
)

// Window provides platform windowing and writes input events into an input.State.
// It is the surface collaborator of every windowed graphics backend: it satisfies
// device.Surface, the WebGPU surface provider and the OpenGL context provider.
type Window interface {
	// SetResizeCallback sets the function called when the framebuffer is resized.
	//
	// Parameters:
	//   - callback: function receiving new width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// Input returns the input state the window writes events into.
	//
	// Returns:
	//   - *input.State: the input state
	Input() *input.State

	// SetCursorCaptured hides and locks the cursor for mouse-look, or releases it.
	//
	// Parameters:
	//   - captured: true to capture the cursor
	SetCursorCaptured(captured bool)

	// FramebufferSize returns the drawable size in pixels.
	//
	// Returns:
	//   - width, height: the framebuffer size
	FramebufferSize() (width, height int)

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor suitable for creating a WebGPU surface.
	// The descriptor is platform-appropriate (Windows HWND, X11 Xlib, Wayland, macOS Metal, etc.)
	// and is created by the wgpuglfw bridge from the underlying GLFW window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the platform-specific surface descriptor, or nil if window is not initialized
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// MakeContextCurrent binds the window's OpenGL context to the calling thread.
	// It does nothing for windows created with ClientAPINone.
	MakeContextCurrent()

	// SwapBuffers presents the OpenGL default framebuffer.
	SwapBuffers()

	// SetSwapInterval sets how many vertical blanks a buffer swap waits for.
	//
	// Parameters:
	//   - interval: 0 for uncapped, 1 for vsync
	SetSwapInterval(interval int)

	// PollEvents processes pending window events without blocking.
	//
	// Returns:
	//   - bool: true while the window is running
	PollEvents() bool

	// IsRunning returns true if the window is still active.
	//
	// Returns:
	//   - bool: true if window is running, false if closed
	IsRunning() bool

	// Close closes the window and releases platform resources.
	//
	// Returns:
	//   - error: error if close operation fails
	Close() error

	// Width returns the current framebuffer width in pixels.
	//
	// Returns:
	//   - int: width in pixels
	Width() int

	// Height returns the current framebuffer height in pixels.
	//
	// Returns:
	//   - int: height in pixels
	Height() int
}

// engineWindow is the implementation of the Window interface.
// Holds window configuration, GLFW state, and event callbacks.
type engineWindow struct {
	// title is the window title displayed in the title bar.
	title string

	// maxWidth and maxHeight bound the window size during resize.
	maxWidth, maxHeight int

	// minWidth and minHeight bound the window size during resize.
	minWidth, minHeight int

	// width and height are the current framebuffer size in pixels.
	width, height int

	clientAPI ClientAPI
	resizable bool

	// escapeCloses closes the window on Escape.
	escapeCloses bool

	input *input.State

	// internalWindow holds the platform-specific window data (glfwWindow).
	internalWindow any

	// onResize is called when the framebuffer is resized.
	onResize func(width, height int)
}

var _ Window = &engineWindow{}

// NewWindow creates and spawns a new Window with the specified options.
// Applies default values first, then each option in order.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the spawned window
//   - error: error if the platform window cannot be created
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := &engineWindow{
		title:        "oxy-forward",
		maxWidth:     3840,
		maxHeight:    2160,
		minWidth:     320,
		minHeight:    240,
		width:        1280,
		height:       720,
		resizable:    true,
		escapeCloses: true,
	}
	for _, opt := range options {
		opt(w)
	}
	if w.input == nil {
		w.input = input.NewState()
	}
	if err := newPlatformWindow(w); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) Input() *input.State {
	return w.input
}

func (w *engineWindow) SetCursorCaptured(captured bool) {
	platformSetCursorCaptured(w, captured)
}

func (w *engineWindow) FramebufferSize() (int, int) {
	return w.width, w.height
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) MakeContextCurrent() {
	platformMakeContextCurrent(w)
}

func (w *engineWindow) SwapBuffers() {
	platformSwapBuffers(w)
}

func (w *engineWindow) SetSwapInterval(interval int) {
	platformSetSwapInterval(w, interval)
}

func (w *engineWindow) PollEvents() bool {
	return platformProcessMessages(w)
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}

func (w *engineWindow) Width() int {
	return w.width
}

func (w *engineWindow) Height() int {
	return w.height
}
