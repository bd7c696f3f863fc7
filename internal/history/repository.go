package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/obs-scene-scheduler/internal/schedule"
	"github.com/nerrad567/obs-scene-scheduler/internal/switcher"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500

	// timestampLayout keeps every switched_at the same width so the
	// column sorts chronologically as text.
	timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// Entry is one stored switch.
type Entry struct {
	ID         string          `json:"id"`
	Window     schedule.Window `json:"window"`
	Previous   schedule.Window `json:"previous"`
	Scene      string          `json:"scene"`
	Transition string          `json:"transition"`
	SwitchedAt time.Time       `json:"switched_at"`
}

// Repository defines the switch history operations.
type Repository interface {
	Record(ctx context.Context, sw switcher.Switch) error
	Count(ctx context.Context) (int, error)
	List(ctx context.Context, limit int) ([]Entry, error)
}

// SQLiteRepository stores switches in the scene_switches table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository over an already-migrated database.
func NewSQLiteRepository(db *sql.DB) (*SQLiteRepository, error) {
	if db == nil {
		return nil, ErrNilDB
	}
	return &SQLiteRepository{db: db}, nil
}

// Record inserts one switch with a generated ID. A zero At is stamped with
// the current time.
func (r *SQLiteRepository) Record(ctx context.Context, sw switcher.Switch) error {
	at := sw.At
	if at.IsZero() {
		at = time.Now()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO scene_switches (id, time_window, scene, transition, previous, switched_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		"sw-"+uuid.NewString()[:8],
		string(sw.Window), sw.Scene, sw.Transition, string(sw.Previous),
		at.UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting scene switch: %w", err)
	}
	return nil
}

// SceneSwitched implements switcher.Observer.
func (r *SQLiteRepository) SceneSwitched(ctx context.Context, sw switcher.Switch) error {
	return r.Record(ctx, sw)
}

// Count returns the number of recorded switches.
func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM scene_switches").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting scene switches: %w", err)
	}
	return n, nil
}

// List returns the most recent switches, newest first.
// limit defaults to 50 and is capped at 500.
func (r *SQLiteRepository) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, time_window, scene, transition, previous, switched_at
		 FROM scene_switches ORDER BY switched_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying scene switches: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                  Entry
			window, prev, when string
		)
		if err := rows.Scan(&e.ID, &window, &e.Scene, &e.Transition, &prev, &when); err != nil {
			return nil, fmt.Errorf("scanning scene switch: %w", err)
		}
		e.Window = schedule.Window(window)
		e.Previous = schedule.Window(prev)
		if e.SwitchedAt, err = time.Parse(time.RFC3339, when); err != nil {
			return nil, fmt.Errorf("parsing switched_at %q: %w", when, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating scene switches: %w", err)
	}
	return entries, nil
}
