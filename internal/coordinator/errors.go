package coordinator

import (
	"context"
	"errors"

	"cfgd/internal/runconfig"
)

// Process exit statuses.
const (
	ExitOK      = 0
	ExitConfig  = 1
	ExitRestart = 5
)

var (
	// ErrFatalIO marks failures of local resources the coordinator cannot run
	// without, such as the control socket or the run directory.
	ErrFatalIO = errors.New("fatal I/O")
	// ErrAlreadyRunning means another cfgd holds the instance lock.
	ErrAlreadyRunning = errors.New("another cfgd instance is already running")
)

// ExitCode maps a Run result to a process exit status. Failures default to
// ExitRestart so the supervisor starts cfgd again. A malformed startup
// payload is the deliberate exception: it maps to ExitConfig because a
// restart would read the same payload and fail the same way.
func ExitCode(err error) int {
	var decErr *runconfig.DecodeError
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return ExitOK
	case errors.Is(err, ErrAlreadyRunning), errors.As(err, &decErr):
		return ExitConfig
	default:
		return ExitRestart
	}
}
