package glbackend

// BackendBuilderOption configures an OpenGL Backend.
type BackendBuilderOption func(*Backend)

// WithErrorChecks makes Submit check glGetError after replaying a frame. It stalls the
// driver, so it is meant for debugging.
//
// Parameters:
//   - enabled: true to check for GL errors
//
// Returns:
//   - BackendBuilderOption: the option
func WithErrorChecks(enabled bool) BackendBuilderOption {
	return func(b *Backend) {
		b.checkErrors = enabled
	}
}
