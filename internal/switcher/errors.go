package switcher

import "errors"

// Domain errors for the switcher package.
var (
	// ErrInvalidConfig is returned by New when the controller config is unusable.
	ErrInvalidConfig = errors.New("switcher: invalid config")

	// ErrApplyScene is returned when OBS rejects or fails the scene change.
	ErrApplyScene = errors.New("switcher: applying scene failed")

	// ErrApplyTransition is returned when OBS rejects or fails the transition change.
	ErrApplyTransition = errors.New("switcher: applying transition failed")
)
