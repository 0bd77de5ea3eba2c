package wgpubackend

// BackendBuilderOption configures a WebGPU Backend.
type BackendBuilderOption func(*Backend)

// WithForceFallbackAdapter requests the software fallback adapter instead of a hardware one.
//
// Parameters:
//   - force: true to force the fallback adapter
//
// Returns:
//   - BackendBuilderOption: the option
func WithForceFallbackAdapter(force bool) BackendBuilderOption {
	return func(b *Backend) {
		b.forceFallbackAdapter = force
	}
}
