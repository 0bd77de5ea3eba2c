package device

import (
	"errors"
	"fmt"
)

var (
	// ErrDeviceLost is returned when the GPU stops reaching fence values within the fence timeout.
	ErrDeviceLost = errors.New("device lost")

	// ErrFrameState is returned when a frame operation is called out of order.
	ErrFrameState = errors.New("invalid frame state")

	// ErrDescriptorHeapExhausted is returned when a descriptor heap region has no room left.
	ErrDescriptorHeapExhausted = errors.New("descriptor heap exhausted")

	// ErrInvalidArgument is returned for requests rejected before any GPU call is made.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrBackendNotAvailable is returned when no registered backend matches a request.
	ErrBackendNotAvailable = errors.New("graphics backend not available")
)

// InitError reports a fatal initialization failure. Stage names the step that failed and
// Diagnostic carries the backend or compiler message verbatim.
type InitError struct {
	Stage      string
	Diagnostic string
	Err        error
}

func (e *InitError) Error() string {
	msg := fmt.Sprintf("initialization failed at %s", e.Stage)
	if e.Diagnostic != "" {
		msg += ": " + e.Diagnostic
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InitError) Unwrap() error { return e.Err }

// NewInitError wraps err as an InitError for the given stage.
//
// Parameters:
//   - stage: the initialization step that failed
//   - err: the underlying error
//
// Returns:
//   - *InitError: the wrapped error, carrying a ShaderCompileError's log as its diagnostic
func NewInitError(stage string, err error) *InitError {
	ie := &InitError{Stage: stage, Err: err}
	var sce *ShaderCompileError
	if errors.As(err, &sce) {
		ie.Diagnostic = sce.Log
	}
	return ie
}

// ShaderCompileError carries the compiler log of a failed shader build.
type ShaderCompileError struct {
	Label string
	Stage string
	Log   string
}

func (e *ShaderCompileError) Error() string {
	return fmt.Sprintf("shader %q (%s) failed to compile", e.Label, e.Stage)
}
