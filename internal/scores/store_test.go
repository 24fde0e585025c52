package scores

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/Scrimzay/battleships/internal/battle"
)

func openTempStore(t *testing.T, limit int) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "scores.db"), limit)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open("  ", 10); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestOpenTwiceKeepsData(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "scores.db")
	first, err := Open(path, 0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if first.Limit() != DefaultLimit {
		t.Fatalf("limit = %d, want %d", first.Limit(), DefaultLimit)
	}
	if _, err := first.Add(context.Background(), HighScore{Name: "Kim", Score: 900}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second, err := Open(path, 0)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()
	n, err := second.Count(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("count = %d, want 1", n)
	}
}

func TestAddAndTopOrdering(t *testing.T) {
	t.Parallel()

	store := openTempStore(t, 10)
	ctx := context.Background()
	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	entries := []HighScore{
		{Name: "Low", Score: 100, CreatedAt: base},
		{Name: "TieOld", Score: 500, CreatedAt: base.Add(time.Minute)},
		{Name: "High", Score: 900, CreatedAt: base.Add(2 * time.Minute)},
		{Name: "TieNew", Score: 500, CreatedAt: base.Add(3 * time.Minute)},
	}
	for _, e := range entries {
		if _, err := store.Add(ctx, e); err != nil {
			t.Fatalf("add %s: %v", e.Name, err)
		}
	}

	top, err := store.Top(ctx, 0)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	want := []string{"High", "TieOld", "TieNew", "Low"}
	if len(top) != len(want) {
		t.Fatalf("len(top) = %d, want %d", len(top), len(want))
	}
	for i, name := range want {
		if top[i].Name != name {
			t.Fatalf("top[%d] = %q, want %q", i, top[i].Name, name)
		}
	}
	if !top[0].CreatedAt.Equal(base.Add(2 * time.Minute)) {
		t.Fatalf("created_at = %v, want %v", top[0].CreatedAt, base.Add(2*time.Minute))
	}

	two, err := store.Top(ctx, 2)
	if err != nil {
		t.Fatalf("top 2: %v", err)
	}
	if len(two) != 2 {
		t.Fatalf("len(top 2) = %d, want 2", len(two))
	}
}

func TestAddNormalizesEntry(t *testing.T) {
	t.Parallel()

	store := openTempStore(t, 10)
	placement, err := store.Add(context.Background(), HighScore{
		Name:       "   ",
		Score:      1200,
		Accuracy:   64,
		Turns:      31,
		Difficulty: "hard",
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if placement.Entry.Name != DefaultName {
		t.Fatalf("name = %q, want %q", placement.Entry.Name, DefaultName)
	}
	if placement.Entry.Difficulty != battle.Hard {
		t.Fatalf("difficulty = %q, want %q", placement.Entry.Difficulty, battle.Hard)
	}
	if placement.Rank != 1 || placement.Entry.ID == 0 {
		t.Fatalf("unexpected placement %+v", placement)
	}

	long, err := store.Add(context.Background(), HighScore{Name: strings.Repeat("x", 40), Score: 1})
	if err != nil {
		t.Fatalf("add long name: %v", err)
	}
	if len(long.Entry.Name) != maxNameLength {
		t.Fatalf("name length = %d, want %d", len(long.Entry.Name), maxNameLength)
	}
}

func TestAddRejectsInvalidEntries(t *testing.T) {
	t.Parallel()

	store := openTempStore(t, 10)
	for _, e := range []HighScore{
		{Score: -1},
		{Score: 10, Accuracy: 101},
		{Score: 10, Accuracy: -5},
		{Score: 10, Turns: -1},
	} {
		if _, err := store.Add(context.Background(), e); !errors.Is(err, ErrInvalidEntry) {
			t.Fatalf("add %+v error = %v, want %v", e, err, ErrInvalidEntry)
		}
	}
}

func TestAddKeepsTableAtLimit(t *testing.T) {
	t.Parallel()

	store := openTempStore(t, 3)
	ctx := context.Background()
	for _, score := range []int{300, 200, 100} {
		if _, err := store.Add(ctx, HighScore{Name: "Crew", Score: score}); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	ok, err := store.Qualifies(ctx, 50)
	if err != nil {
		t.Fatalf("qualifies: %v", err)
	}
	if ok {
		t.Fatal("50 should not qualify for a full table topping out at 100")
	}

	low, err := store.Add(ctx, HighScore{Name: "Late", Score: 50})
	if err != nil {
		t.Fatalf("add low: %v", err)
	}
	if low.Rank != 0 {
		t.Fatalf("rank = %d, want 0 for an entry that missed the table", low.Rank)
	}

	high, err := store.Add(ctx, HighScore{Name: "Ace", Score: 250})
	if err != nil {
		t.Fatalf("add high: %v", err)
	}
	if high.Rank != 2 {
		t.Fatalf("rank = %d, want 2", high.Rank)
	}

	n, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Fatalf("count = %d, want 3", n)
	}
	top, err := store.Top(ctx, 0)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if top[2].Score != 200 {
		t.Fatalf("lowest kept score = %d, want 200", top[2].Score)
	}
}

func TestPruneAndClear(t *testing.T) {
	t.Parallel()

	store := openTempStore(t, 10)
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		if _, err := store.Add(ctx, HighScore{Name: "Crew", Score: i * 100}); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	removed, err := store.Prune(ctx, 2)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 3 {
		t.Fatalf("removed = %d, want 3", removed)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	top, err := store.Top(ctx, 0)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 0 {
		t.Fatalf("len(top) = %d, want 0", len(top))
	}
}

func TestSeedSamplesOnlyFillsEmptyTable(t *testing.T) {
	t.Parallel()

	store := openTempStore(t, 10)
	ctx := context.Background()

	seeded, err := store.SeedSamples(ctx)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if !seeded {
		t.Fatal("expected samples on an empty table")
	}
	top, err := store.Top(ctx, 0)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != len(sampleScores) || top[0].Name != "Admiral Nelson" || top[0].Score != 15000 {
		t.Fatalf("unexpected samples %+v", top)
	}

	seeded, err = store.SeedSamples(ctx)
	if err != nil {
		t.Fatalf("seed again: %v", err)
	}
	if seeded {
		t.Fatal("expected no samples on a non-empty table")
	}
}

func TestCanceledContext(t *testing.T) {
	t.Parallel()

	store := openTempStore(t, 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.Top(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("top error = %v, want %v", err, context.Canceled)
	}
}

func TestUpSection(t *testing.T) {
	t.Parallel()

	got := upSection("-- +migrate Up\nCREATE TABLE a (id INTEGER);\n-- +migrate Down\nDROP TABLE a;\n")
	if strings.TrimSpace(got) != "CREATE TABLE a (id INTEGER);" {
		t.Fatalf("up section = %q", got)
	}
	if got := upSection("SELECT 1;"); got != "SELECT 1;" {
		t.Fatalf("unmarked section = %q", got)
	}
}

func TestApplyMigrationsRunsOnce(t *testing.T) {
	t.Parallel()

	store := openTempStore(t, 10)
	ctx := context.Background()
	extra := fstest.MapFS{
		"002_extra.sql": {Data: []byte("-- +migrate Up\nCREATE TABLE extra (id INTEGER);\n")},
	}

	for i := 0; i < 2; i++ {
		if err := applyMigrations(ctx, store.sqlDB, extra); err != nil {
			t.Fatalf("apply #%d: %v", i+1, err)
		}
	}

	var n int
	if err := store.sqlDB.QueryRow(`SELECT COUNT(*) FROM schema_migrations WHERE name = '002_extra.sql'`).Scan(&n); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if n != 1 {
		t.Fatalf("recorded = %d, want 1", n)
	}
}
