// Package history records applied scene switches in SQLite.
//
// The log is write-mostly: the scheduler never reads it back to seed its
// remembered window, so every process start still applies the current
// window on its first tick.
package history
