// Package schedule maps a local wall-clock time onto one of three fixed
// windows: daytime, evening and nighttime.
//
// Boundaries are zero-padded "HH:MM" strings, so membership is a plain
// lexicographic comparison:
//
//	daytime_start   <= now < evening_start   -> daytime
//	evening_start   <= now < nighttime_start -> evening
//	anything else                             -> nighttime
//
// Nighttime wraps midnight: it covers both [nighttime_start, 24:00) and
// [00:00, daytime_start). Every minute of the day lands in exactly one
// window as long as the boundaries are strictly increasing, which
// Validate enforces.
//
// Evaluation is pure and recomputed on every call.
package schedule
