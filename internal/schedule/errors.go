package schedule

import "errors"

// Domain errors for the schedule package.
var (
	// ErrInvalidClock is returned when a boundary is not a valid "HH:MM" value.
	ErrInvalidClock = errors.New("schedule: invalid clock value")

	// ErrUnordered is returned when boundaries are not strictly increasing.
	ErrUnordered = errors.New("schedule: boundaries out of order")
)
