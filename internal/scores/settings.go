package scores

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Scrimzay/battleships/internal/battle"
)

const maxProfileLength = 64

// Settings are the per-profile game options.
type Settings struct {
	MasterVolume  float64           `json:"masterVolume"`
	SfxVolume     float64           `json:"sfxVolume"`
	MusicVolume   float64           `json:"musicVolume"`
	VisualEffects bool              `json:"visualEffects"`
	Animations    bool              `json:"animations"`
	Difficulty    battle.Difficulty `json:"difficulty"`
}

func DefaultSettings() Settings {
	return Settings{
		MasterVolume:  0.7,
		SfxVolume:     0.8,
		MusicVolume:   0.6,
		VisualEffects: true,
		Animations:    true,
		Difficulty:    battle.Normal,
	}
}

// SettingsUpdate holds the fields a client sent. Nil fields keep their
// current value.
type SettingsUpdate struct {
	MasterVolume  *float64 `json:"masterVolume"`
	SfxVolume     *float64 `json:"sfxVolume"`
	MusicVolume   *float64 `json:"musicVolume"`
	VisualEffects *bool    `json:"visualEffects"`
	Animations    *bool    `json:"animations"`
	Difficulty    *string  `json:"difficulty"`
}

func clampVolume(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func (s Settings) normalize() Settings {
	s.MasterVolume = clampVolume(s.MasterVolume)
	s.SfxVolume = clampVolume(s.SfxVolume)
	s.MusicVolume = clampVolume(s.MusicVolume)
	s.Difficulty = battle.ParseDifficulty(string(s.Difficulty))
	return s
}

// Merge applies u over s.
func (s Settings) Merge(u SettingsUpdate) Settings {
	if u.MasterVolume != nil {
		s.MasterVolume = *u.MasterVolume
	}
	if u.SfxVolume != nil {
		s.SfxVolume = *u.SfxVolume
	}
	if u.MusicVolume != nil {
		s.MusicVolume = *u.MusicVolume
	}
	if u.VisualEffects != nil {
		s.VisualEffects = *u.VisualEffects
	}
	if u.Animations != nil {
		s.Animations = *u.Animations
	}
	if u.Difficulty != nil {
		s.Difficulty = battle.Difficulty(*u.Difficulty)
	}

	return s.normalize()
}

func cleanProfile(profile string) (string, error) {
	profile = strings.TrimSpace(profile)
	if profile == "" || len(profile) > maxProfileLength {
		return "", fmt.Errorf("%w: %q", ErrInvalidProfile, profile)
	}
	return profile, nil
}

// LoadSettings returns the saved settings for profile, or the defaults when
// nothing was saved yet.
func (s *Store) LoadSettings(ctx context.Context, profile string) (Settings, error) {
	if err := s.ready(ctx); err != nil {
		return Settings{}, err
	}
	profile, err := cleanProfile(profile)
	if err != nil {
		return Settings{}, err
	}

	var (
		out        Settings
		fx, anim   int
		difficulty string
	)
	err = s.sqlDB.QueryRowContext(ctx,
		`SELECT master_volume, sfx_volume, music_volume, visual_effects, animations, difficulty
		 FROM settings WHERE profile = ?`,
		profile,
	).Scan(&out.MasterVolume, &out.SfxVolume, &out.MusicVolume, &fx, &anim, &difficulty)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultSettings(), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}
	out.VisualEffects = fx != 0
	out.Animations = anim != 0
	out.Difficulty = battle.Difficulty(difficulty)

	return out.normalize(), nil
}

// SaveSettings stores settings for profile after clamping them.
func (s *Store) SaveSettings(ctx context.Context, profile string, settings Settings) (Settings, error) {
	if err := s.ready(ctx); err != nil {
		return Settings{}, err
	}
	profile, err := cleanProfile(profile)
	if err != nil {
		return Settings{}, err
	}
	settings = settings.normalize()

	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO settings (profile, master_volume, sfx_volume, music_volume, visual_effects, animations, difficulty, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(profile) DO UPDATE SET
		   master_volume = excluded.master_volume,
		   sfx_volume = excluded.sfx_volume,
		   music_volume = excluded.music_volume,
		   visual_effects = excluded.visual_effects,
		   animations = excluded.animations,
		   difficulty = excluded.difficulty,
		   updated_at = excluded.updated_at`,
		profile,
		settings.MasterVolume,
		settings.SfxVolume,
		settings.MusicVolume,
		boolToInt(settings.VisualEffects),
		boolToInt(settings.Animations),
		string(settings.Difficulty),
		toMillis(time.Now()),
	)
	if err != nil {
		return Settings{}, fmt.Errorf("save settings: %w", err)
	}

	return settings, nil
}

// UpdateSettings merges u over the stored settings for profile and saves the result.
func (s *Store) UpdateSettings(ctx context.Context, profile string, u SettingsUpdate) (Settings, error) {
	current, err := s.LoadSettings(ctx, profile)
	if err != nil {
		return Settings{}, err
	}
	return s.SaveSettings(ctx, profile, current.Merge(u))
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
