package crossfade

import "errors"

// Domain errors for the crossfade package.
var (
	// ErrInvalidConfig is returned by New when the rotator config is unusable.
	ErrInvalidConfig = errors.New("crossfade: invalid config")
)
