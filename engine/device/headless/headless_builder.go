package headless

import "github.com/Carmen-Shannon/oxy-forward/engine/device"

// BackendBuilderOption configures a headless Backend.
type BackendBuilderOption func(*Backend)

// WithFenceMode selects how the simulated GPU completes fences.
//
// Parameters:
//   - mode: the fence mode
//
// Returns:
//   - BackendBuilderOption: the option
func WithFenceMode(mode FenceMode) BackendBuilderOption {
	return func(b *Backend) {
		b.fenceMode = mode
	}
}

// WithCapabilities overrides the reported capabilities, e.g. to exercise the
// [-1, 1] clip depth or row-major constant paths.
//
// Parameters:
//   - caps: the capabilities
//
// Returns:
//   - BackendBuilderOption: the option
func WithCapabilities(caps device.Capabilities) BackendBuilderOption {
	return func(b *Backend) {
		b.caps = caps
	}
}

// WithInitError makes Init fail with err.
//
// Parameters:
//   - err: the error to return
//
// Returns:
//   - BackendBuilderOption: the option
func WithInitError(err error) BackendBuilderOption {
	return func(b *Backend) {
		b.initErr = err
	}
}

// WithShaderFailure makes CreateShader fail for the shader with the given label.
//
// Parameters:
//   - label: the shader label
//
// Returns:
//   - BackendBuilderOption: the option
func WithShaderFailure(label string) BackendBuilderOption {
	return func(b *Backend) {
		b.failLabel = label
	}
}
