package schedule

import (
	"fmt"
	"time"
)

// Window identifies one of the three daily time windows.
type Window string

// Known windows. None is the "nothing applied yet" sentinel and never
// equals a real window.
const (
	None      Window = ""
	Daytime   Window = "daytime"
	Evening   Window = "evening"
	Nighttime Window = "nighttime"
)

// clockLayout is the time.Format layout for "HH:MM".
const clockLayout = "15:04"

// Windows returns the real windows in the order they start each day.
func Windows() []Window {
	return []Window{Daytime, Evening, Nighttime}
}

// Valid reports whether w is one of the three real windows.
func (w Window) Valid() bool {
	switch w {
	case Daytime, Evening, Nighttime:
		return true
	default:
		return false
	}
}

// String returns the window identifier, or "none" for the unset sentinel.
func (w Window) String() string {
	if w == None {
		return "none"
	}
	return string(w)
}

// Schedule holds the three window boundaries as "HH:MM" local times.
type Schedule struct {
	DaytimeStart   string
	EveningStart   string
	NighttimeStart string
}

// Default returns the stock schedule: 06:00, 18:00 and 22:00.
func Default() Schedule {
	return Schedule{
		DaytimeStart:   "06:00",
		EveningStart:   "18:00",
		NighttimeStart: "22:00",
	}
}

// Evaluate returns the window containing clock, a zero-padded "HH:MM" value.
func (s Schedule) Evaluate(clock string) Window {
	switch {
	case s.DaytimeStart <= clock && clock < s.EveningStart:
		return Daytime
	case s.EveningStart <= clock && clock < s.NighttimeStart:
		return Evening
	default:
		return Nighttime
	}
}

// At returns the window containing t, read in t's own location.
func (s Schedule) At(t time.Time) Window {
	return s.Evaluate(t.Format(clockLayout))
}

// Validate checks every boundary is a valid clock value and that
// DaytimeStart < EveningStart < NighttimeStart.
func (s Schedule) Validate() error {
	bounds := []struct {
		name  string
		value string
	}{
		{"daytime_start", s.DaytimeStart},
		{"evening_start", s.EveningStart},
		{"nighttime_start", s.NighttimeStart},
	}

	for _, b := range bounds {
		if _, err := ParseClock(b.value); err != nil {
			return fmt.Errorf("%s: %w", b.name, err)
		}
	}

	if s.DaytimeStart >= s.EveningStart || s.EveningStart >= s.NighttimeStart {
		return fmt.Errorf("%w: %s, %s, %s", ErrUnordered, s.DaytimeStart, s.EveningStart, s.NighttimeStart)
	}

	return nil
}

// ParseClock validates a zero-padded 24-hour "HH:MM" string and returns it.
//
// The strict length check matters: lexicographic comparison only agrees
// with time order when both hours and minutes have two digits.
func ParseClock(clock string) (string, error) {
	if len(clock) != len(clockLayout) {
		return "", fmt.Errorf("%w: %q", ErrInvalidClock, clock)
	}
	if _, err := time.Parse(clockLayout, clock); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidClock, clock)
	}
	return clock, nil
}
