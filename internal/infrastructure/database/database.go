package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers the "sqlite3" driver

	"github.com/nerrad567/obs-scene-scheduler/internal/infrastructure/config"
)

const (
	driverName = "sqlite3"

	historyDirMode  = 0750
	historyFileMode = 0600

	// openCheckTimeout bounds the ping issued by Open.
	openCheckTimeout = 5 * time.Second

	// recycleAfter keeps the single connection from living forever.
	recycleAfter = time.Hour
)

// DB wraps the history file. It embeds *sql.DB so repositories can be
// built directly on it.
type DB struct {
	*sql.DB
	path string
}

// Open prepares cfg.Path and returns a verified handle to it.
//
// Parameters:
//   - cfg: History section of the configuration
//
// Returns:
//   - *DB: Open database limited to one connection
//   - error: ErrNoPath, or a wrapped filesystem or driver error
func Open(cfg config.HistoryConfig) (*DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("opening database: %w", ErrNoPath)
	}
	if err := ensureDir(cfg.Path); err != nil {
		return nil, err
	}

	handle, err := sql.Open(driverName, dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", cfg.Path, err)
	}
	singleWriter(handle)

	if err := verify(handle); err != nil {
		handle.Close() //nolint:errcheck // Already failing
		return nil, fmt.Errorf("verifying %s: %w", cfg.Path, err)
	}

	// The driver creates the file on the first connection, so tighten it now.
	if err := os.Chmod(cfg.Path, historyFileMode); err != nil && !os.IsNotExist(err) {
		handle.Close() //nolint:errcheck // Already failing
		return nil, fmt.Errorf("restricting %s: %w", cfg.Path, err)
	}

	return &DB{DB: handle, path: cfg.Path}, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, historyDirMode); err != nil {
		return fmt.Errorf("creating history directory %s: %w", dir, err)
	}
	return nil
}

// singleWriter pins the pool to one connection so SQLite never sees
// concurrent writers from this process.
func singleWriter(handle *sql.DB) {
	handle.SetMaxOpenConns(1)
	handle.SetMaxIdleConns(1)
	handle.SetConnMaxLifetime(recycleAfter)
}

func verify(handle *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), openCheckTimeout)
	defer cancel()
	return handle.PingContext(ctx)
}

// dsn renders the go-sqlite3 connection string for cfg.
// See: https://github.com/mattn/go-sqlite3#connection-string
func dsn(cfg config.HistoryConfig) string {
	busy := time.Duration(cfg.BusyTimeout) * time.Second
	s := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on", cfg.Path, busy.Milliseconds())
	if cfg.WALMode {
		s += "&_journal_mode=WAL&_synchronous=NORMAL"
	}
	return s
}

// Close releases the handle. A nil *DB is a no-op.
func (db *DB) Close() error {
	if db == nil || db.DB == nil {
		return nil
	}
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", db.path, err)
	}
	return nil
}

// Path is the history file location.
func (db *DB) Path() string {
	return db.path
}

// HealthCheck runs SQLite's quick integrity check against the file.
func (db *DB) HealthCheck(ctx context.Context) error {
	var result string
	if err := db.QueryRowContext(ctx, "PRAGMA quick_check").Scan(&result); err != nil {
		return fmt.Errorf("history database unreachable: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("history database corrupt: %s", result)
	}
	return nil
}
