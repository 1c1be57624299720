package sim

import "errors"

var (
	// ErrDegraded is returned by Advance when there is no valid compute
	// program. No work is dispatched and no time is accumulated.
	ErrDegraded = errors.New("sim: compute program unavailable")

	ErrInvalidStep = errors.New("sim: fixed step must be positive")
)
