package history

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/obs-scene-scheduler/internal/infrastructure/config"
	"github.com/nerrad567/obs-scene-scheduler/internal/infrastructure/database"
	"github.com/nerrad567/obs-scene-scheduler/internal/schedule"
	"github.com/nerrad567/obs-scene-scheduler/internal/switcher"
	"github.com/nerrad567/obs-scene-scheduler/migrations"
)

// compile-time check
var _ switcher.Observer = (*SQLiteRepository)(nil)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	db, err := database.Open(config.HistoryConfig{
		Path:        filepath.Join(t.TempDir(), "history.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if _, err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	repo, err := NewSQLiteRepository(db.DB)
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	return repo
}

func TestNewSQLiteRepository_NilDB(t *testing.T) {
	if _, err := NewSQLiteRepository(nil); !errors.Is(err, ErrNilDB) {
		t.Errorf("NewSQLiteRepository(nil) error = %v, want ErrNilDB", err)
	}
}

func TestRecordAndCount(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	n, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 0 {
		t.Fatalf("Count() on empty table = %d, want 0", n)
	}

	base := time.Date(2026, 6, 1, 5, 30, 0, 0, time.UTC)
	switches := []switcher.Switch{
		{Window: schedule.Nighttime, Scene: "Nighttime Scene", Transition: "Fade", At: base},
		{Window: schedule.Daytime, Previous: schedule.Nighttime, Scene: "Daytime Scene", Transition: "Fade", At: base.Add(30 * time.Minute)},
		{Window: schedule.Evening, Previous: schedule.Daytime, Scene: "Evening Scene", Transition: "Cut", At: base.Add(12*time.Hour + 30*time.Minute)},
	}
	for _, sw := range switches {
		if err := repo.SceneSwitched(ctx, sw); err != nil {
			t.Fatalf("SceneSwitched() error = %v", err)
		}
	}

	n, err = repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != len(switches) {
		t.Errorf("Count() = %d, want %d", n, len(switches))
	}
}

func TestList(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	base := time.Date(2026, 6, 1, 5, 30, 0, 0, time.UTC)
	if err := repo.Record(ctx, switcher.Switch{
		Window: schedule.Nighttime, Scene: "Nighttime Scene", Transition: "Fade", At: base,
	}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := repo.Record(ctx, switcher.Switch{
		Window: schedule.Daytime, Previous: schedule.Nighttime, Scene: "Daytime Scene", Transition: "Fade", At: base.Add(time.Hour),
	}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	entries, err := repo.List(ctx, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("List() returned %d entries, want 2", len(entries))
	}

	newest := entries[0]
	if newest.Window != schedule.Daytime || newest.Previous != schedule.Nighttime {
		t.Errorf("newest = %+v, want daytime after nighttime", newest)
	}
	if !newest.SwitchedAt.Equal(base.Add(time.Hour)) {
		t.Errorf("SwitchedAt = %v, want %v", newest.SwitchedAt, base.Add(time.Hour))
	}
	if !strings.HasPrefix(newest.ID, "sw-") || len(newest.ID) != len("sw-")+8 {
		t.Errorf("ID = %q, want sw-<8 hex>", newest.ID)
	}
	if entries[1].Previous != schedule.None {
		t.Errorf("first switch Previous = %q, want none", entries[1].Previous)
	}

	limited, err := repo.List(ctx, 1)
	if err != nil {
		t.Fatalf("List(1) error = %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("List(1) returned %d entries, want 1", len(limited))
	}
}

func TestList_OrdersWithinOneSecond(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	// Whole-second and sub-second stamps within the same second.
	base := time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)
	order := []time.Duration{0, 100 * time.Millisecond, 900 * time.Millisecond, time.Second}
	for i, offset := range order {
		if err := repo.Record(ctx, switcher.Switch{
			Window: schedule.Evening, Scene: fmt.Sprintf("scene-%d", i), Transition: "Fade", At: base.Add(offset),
		}); err != nil {
			t.Fatalf("Record(%d) error = %v", i, err)
		}
	}

	entries, err := repo.List(ctx, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != len(order) {
		t.Fatalf("List() returned %d entries, want %d", len(entries), len(order))
	}
	for i, e := range entries {
		want := base.Add(order[len(order)-1-i])
		if !e.SwitchedAt.Equal(want) {
			t.Errorf("entries[%d].SwitchedAt = %v, want %v", i, e.SwitchedAt, want)
		}
	}
}

func TestRecord_StampsZeroTime(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	before := time.Now().Add(-time.Second)
	if err := repo.Record(ctx, switcher.Switch{Window: schedule.Evening, Scene: "Evening Scene", Transition: "Fade"}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	entries, err := repo.List(ctx, 1)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 1 || entries[0].SwitchedAt.Before(before) {
		t.Errorf("entries = %+v, want one stamped after %v", entries, before)
	}
}

func TestRecord_CancelledContext(t *testing.T) {
	repo := newTestRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := repo.Record(ctx, switcher.Switch{Window: schedule.Daytime, Scene: "Daytime Scene", Transition: "Fade"}); err == nil {
		t.Error("Record() with cancelled context expected error")
	}
}
