package capture

import "errors"

var (
	// ErrStatePoisoned is returned once a critical section has panicked. The
	// capture state can no longer be trusted and the worker must stop.
	ErrStatePoisoned = errors.New("capture state poisoned by an earlier panic")
	// ErrHookStart reports that the OS input subscription could not be started.
	ErrHookStart = errors.New("input hook failed to start")
	// ErrHookTerminated reports that the OS input subscription ended on its own.
	ErrHookTerminated = errors.New("input hook terminated")
	// ErrInvalidScale is returned for a calibration with a non-positive scale.
	ErrInvalidScale = errors.New("calibration scale must be positive")
)
