package device

import "time"

// DeviceBuilderOption configures a Device at construction.
type DeviceBuilderOption func(*device)

// WithBackend uses an already constructed backend instead of the registry.
//
// Parameters:
//   - b: the backend, not yet initialized
//
// Returns:
//   - DeviceBuilderOption: the option
func WithBackend(b GraphicsBackend) DeviceBuilderOption {
	return func(d *device) {
		d.backend = b
	}
}

// WithBackendName selects a registered backend by name.
//
// Parameters:
//   - name: the registry name, e.g. BackendWGPU
//
// Returns:
//   - DeviceBuilderOption: the option
func WithBackendName(name string) DeviceBuilderOption {
	return func(d *device) {
		d.backendName = name
	}
}

// WithSurface sets the window surface the backend renders into.
//
// Parameters:
//   - s: the surface
//
// Returns:
//   - DeviceBuilderOption: the option
func WithSurface(s Surface) DeviceBuilderOption {
	return func(d *device) {
		d.surface = s
	}
}

// WithSize sets the initial back buffer size. Defaults to the surface size, or 1280x720.
//
// Parameters:
//   - width, height: the size in pixels
//
// Returns:
//   - DeviceBuilderOption: the option
func WithSize(width, height uint32) DeviceBuilderOption {
	return func(d *device) {
		d.width = width
		d.height = height
	}
}

// WithPresentMode sets the swapchain present mode.
//
// Parameters:
//   - mode: the present mode
//
// Returns:
//   - DeviceBuilderOption: the option
func WithPresentMode(mode PresentMode) DeviceBuilderOption {
	return func(d *device) {
		d.presentMode = mode
	}
}

// WithFenceTimeout bounds fence waits. A wait that exceeds it reports ErrDeviceLost.
//
// Parameters:
//   - timeout: the maximum wait, ignored if not positive
//
// Returns:
//   - DeviceBuilderOption: the option
func WithFenceTimeout(timeout time.Duration) DeviceBuilderOption {
	return func(d *device) {
		if timeout > 0 {
			d.fenceTimeout = timeout
		}
	}
}

// WithDescriptorHeapSizes sets the descriptor heap region sizes.
//
// Parameters:
//   - persistent: slots in the persistent region
//   - perFrame: slots in each per-frame region
//
// Returns:
//   - DeviceBuilderOption: the option
func WithDescriptorHeapSizes(persistent, perFrame uint32) DeviceBuilderOption {
	return func(d *device) {
		d.heapPersist = persistent
		d.heapPerFrame = perFrame
	}
}
