package common

import (
	"sync/atomic"

	"github.com/rs/zerolog"
)

// loggerPtr stores the active engine logger. Accessed atomically so SetLogger can be
// called while the render loop is logging.
var loggerPtr atomic.Pointer[zerolog.Logger]

func init() {
	l := zerolog.Nop()
	loggerPtr.Store(&l)
}

// SetLogger installs the logger used by the engine and all of its sub-packages.
// By default the engine produces no log output. Passing nil restores the silent default.
//
// Log levels used by the engine:
//   - Debug: per-frame diagnostics (fence waits, pass execution)
//   - Info: lifecycle events (backend selected, resize, shutdown)
//   - Warn: recoverable issues (skipped resize, missing light)
//   - Error: fatal frame errors before they are returned to the driver
//
// Parameters:
//   - l: the logger to install, or nil to disable logging
func SetLogger(l *zerolog.Logger) {
	if l == nil {
		nop := zerolog.Nop()
		l = &nop
	}
	loggerPtr.Store(l)
}

// Logger returns the current engine logger.
//
// Returns:
//   - *zerolog.Logger: the active logger, never nil
func Logger() *zerolog.Logger {
	return loggerPtr.Load()
}
