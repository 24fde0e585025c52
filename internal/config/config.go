// Package config loads server settings from the environment.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/Scrimzay/battleships/internal/battle"
)

type Config struct {
	Port               string        `env:"PORT"                 envDefault:"8000"`
	DBPath             string        `env:"DB_PATH"              envDefault:"battleships.db"`
	DefaultDifficulty  string        `env:"DEFAULT_DIFFICULTY"   envDefault:"NORMAL"`
	HighScoreLimit     int           `env:"HIGH_SCORE_LIMIT"     envDefault:"10"`
	EnemyDelay         time.Duration `env:"ENEMY_DELAY"          envDefault:"600ms"`
	SessionIdleTimeout time.Duration `env:"SESSION_IDLE_TIMEOUT" envDefault:"30m"`
	WriteTimeout       time.Duration `env:"WRITE_TIMEOUT"        envDefault:"10s"`
	SeedSampleScores   bool          `env:"SEED_SAMPLE_SCORES"   envDefault:"false"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	port, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("PORT must be a port number, got %q", c.Port)
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("DB_PATH is required")
	}
	switch battle.Difficulty(strings.ToUpper(strings.TrimSpace(c.DefaultDifficulty))) {
	case battle.Easy, battle.Normal, battle.Hard:
	default:
		return fmt.Errorf("DEFAULT_DIFFICULTY must be EASY, NORMAL or HARD, got %q", c.DefaultDifficulty)
	}
	if c.HighScoreLimit <= 0 {
		return fmt.Errorf("HIGH_SCORE_LIMIT must be positive, got %d", c.HighScoreLimit)
	}
	if c.EnemyDelay <= 0 {
		return fmt.Errorf("ENEMY_DELAY must be positive, got %s", c.EnemyDelay)
	}
	if c.SessionIdleTimeout <= 0 {
		return fmt.Errorf("SESSION_IDLE_TIMEOUT must be positive, got %s", c.SessionIdleTimeout)
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("WRITE_TIMEOUT must be positive, got %s", c.WriteTimeout)
	}
	return nil
}

func (c Config) Difficulty() battle.Difficulty {
	return battle.ParseDifficulty(c.DefaultDifficulty)
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + strings.TrimSpace(c.Port)
}
