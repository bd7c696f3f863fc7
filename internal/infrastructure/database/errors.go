package database

import "errors"

// Sentinel errors for the database package.
var (
	// ErrNoPath is returned when no database file path is configured.
	ErrNoPath = errors.New("database path is empty")

	// ErrMigrationNotFound is returned when the latest applied migration
	// has no matching file to roll back with.
	ErrMigrationNotFound = errors.New("migration not found")

	// ErrNoDownSQL is returned when a migration cannot be rolled back.
	ErrNoDownSQL = errors.New("migration has no down SQL")
)
