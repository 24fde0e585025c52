// Package scores persists the high-score table and player settings in SQLite.
package scores

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Scrimzay/battleships/internal/battle"
	"github.com/Scrimzay/battleships/internal/scores/migrations"
	_ "modernc.org/sqlite"
)

const (
	DefaultLimit  = 10
	DefaultName   = "Player"
	maxNameLength = 20
)

var (
	ErrInvalidEntry   = errors.New("invalid high score entry")
	ErrInvalidProfile = errors.New("invalid settings profile")
)

// HighScore is one row of the table.
type HighScore struct {
	ID         int64             `json:"id"`
	Name       string            `json:"name"`
	Score      int               `json:"score"`
	Accuracy   int               `json:"accuracy"`
	Turns      int               `json:"turns"`
	Difficulty battle.Difficulty `json:"difficulty"`
	CreatedAt  time.Time         `json:"createdAt"`
}

// Placement is where a newly added score landed. Rank is zero when the
// entry did not make the table.
type Placement struct {
	Entry HighScore `json:"entry"`
	Rank  int       `json:"rank"`
}

// Store persists scores and settings in SQLite.
type Store struct {
	sqlDB *sql.DB
	limit int
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens the store at path and applies embedded migrations. The table
// keeps at most limit entries; a non-positive limit means DefaultLimit.
func Open(path string, limit int) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{sqlDB: sqlDB, limit: limit}, nil
}

func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) Limit() int { return s.limit }

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

func normalizeEntry(e HighScore) (HighScore, error) {
	e.Name = strings.TrimSpace(e.Name)
	if e.Name == "" {
		e.Name = DefaultName
	}
	if utf8.RuneCountInString(e.Name) > maxNameLength {
		e.Name = string([]rune(e.Name)[:maxNameLength])
	}
	if e.Score < 0 {
		return HighScore{}, fmt.Errorf("%w: negative score %d", ErrInvalidEntry, e.Score)
	}
	if e.Accuracy < 0 || e.Accuracy > 100 {
		return HighScore{}, fmt.Errorf("%w: accuracy %d out of range", ErrInvalidEntry, e.Accuracy)
	}
	if e.Turns < 0 {
		return HighScore{}, fmt.Errorf("%w: negative turns %d", ErrInvalidEntry, e.Turns)
	}
	e.Difficulty = battle.ParseDifficulty(string(e.Difficulty))
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	e.CreatedAt = e.CreatedAt.UTC().Truncate(time.Millisecond)

	return e, nil
}

// Add records a score and trims the table back to its limit.
func (s *Store) Add(ctx context.Context, entry HighScore) (Placement, error) {
	if err := s.ready(ctx); err != nil {
		return Placement{}, err
	}
	entry, err := normalizeEntry(entry)
	if err != nil {
		return Placement{}, err
	}

	res, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO high_scores (name, score, accuracy, turns, difficulty, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.Name, entry.Score, entry.Accuracy, entry.Turns, string(entry.Difficulty), toMillis(entry.CreatedAt),
	)
	if err != nil {
		return Placement{}, fmt.Errorf("add high score: %w", err)
	}
	if entry.ID, err = res.LastInsertId(); err != nil {
		return Placement{}, fmt.Errorf("add high score id: %w", err)
	}

	if _, err := s.Prune(ctx, s.limit); err != nil {
		return Placement{}, err
	}

	top, err := s.Top(ctx, s.limit)
	if err != nil {
		return Placement{}, err
	}
	placement := Placement{Entry: entry}
	for i, row := range top {
		if row.ID == entry.ID {
			placement.Rank = i + 1
			break
		}
	}

	return placement, nil
}

// Qualifies reports whether score would make the table.
func (s *Store) Qualifies(ctx context.Context, score int) (bool, error) {
	top, err := s.Top(ctx, s.limit)
	if err != nil {
		return false, err
	}
	if len(top) < s.limit {
		return true, nil
	}

	return score > top[len(top)-1].Score, nil
}

// Top returns up to limit entries, best first. Ties go to the older entry.
func (s *Store) Top(ctx context.Context, limit int) ([]HighScore, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > s.limit {
		limit = s.limit
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, name, score, accuracy, turns, difficulty, created_at
		 FROM high_scores
		 ORDER BY score DESC, created_at ASC, id ASC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list high scores: %w", err)
	}
	defer rows.Close()

	out := make([]HighScore, 0, limit)
	for rows.Next() {
		var (
			row        HighScore
			difficulty string
			createdAt  int64
		)
		if err := rows.Scan(&row.ID, &row.Name, &row.Score, &row.Accuracy, &row.Turns, &difficulty, &createdAt); err != nil {
			return nil, fmt.Errorf("scan high score: %w", err)
		}
		row.Difficulty = battle.Difficulty(difficulty)
		row.CreatedAt = fromMillis(createdAt)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list high scores: %w", err)
	}

	return out, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}

	var n int
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM high_scores`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count high scores: %w", err)
	}
	return n, nil
}

// Prune deletes everything below the best keep entries.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	if keep < 0 {
		keep = 0
	}

	res, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM high_scores WHERE id NOT IN (
		   SELECT id FROM high_scores ORDER BY score DESC, created_at ASC, id ASC LIMIT ?
		 )`,
		keep,
	)
	if err != nil {
		return 0, fmt.Errorf("prune high scores: %w", err)
	}

	return res.RowsAffected()
}

func (s *Store) Clear(ctx context.Context) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM high_scores`); err != nil {
		return fmt.Errorf("clear high scores: %w", err)
	}
	return nil
}

var sampleScores = []HighScore{
	{Name: "Admiral Nelson", Score: 15000, Accuracy: 95, CreatedAt: time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC)},
	{Name: "Captain Ahab", Score: 12500, Accuracy: 88, CreatedAt: time.Date(2025, time.September, 28, 0, 0, 0, 0, time.UTC)},
	{Name: "Lt. Commander", Score: 10200, Accuracy: 82, CreatedAt: time.Date(2025, time.September, 25, 0, 0, 0, 0, time.UTC)},
	{Name: "Ensign Jones", Score: 8900, Accuracy: 75, CreatedAt: time.Date(2025, time.September, 20, 0, 0, 0, 0, time.UTC)},
	{Name: "Sailor Mike", Score: 7500, Accuracy: 70, CreatedAt: time.Date(2025, time.September, 15, 0, 0, 0, 0, time.UTC)},
}

// SeedSamples fills an empty table with the sample captains. It reports
// whether anything was written.
func (s *Store) SeedSamples(ctx context.Context) (bool, error) {
	n, err := s.Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}

	for _, entry := range sampleScores {
		if _, err := s.Add(ctx, entry); err != nil {
			return false, fmt.Errorf("seed %s: %w", entry.Name, err)
		}
	}
	return true, nil
}
