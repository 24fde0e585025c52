// Package session keeps one match per websocket connection and paces the
// enemy's turns.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/Scrimzay/battleships/internal/battle"
	"github.com/Scrimzay/battleships/internal/types"
	"github.com/gorilla/websocket"
)

var (
	ErrNoVictory  = errors.New("only a finished player victory can be saved")
	ErrScoreSaved = errors.New("score already saved for this game")
	ErrImported   = errors.New("imported games are not ranked")
)

// Conn is the part of a websocket connection a session writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type Session struct {
	ID string

	conn      Conn
	writeMu   sync.Mutex // gorilla allows one concurrent writer
	writeWait time.Duration

	mu         sync.Mutex
	match      *battle.Match
	rng        *rand.Rand
	lastSeen   time.Time
	scoreSaved bool
	imported   bool // match came from a client snapshot
}

func newSession(id string, conn Conn, writeWait time.Duration, d battle.Difficulty, seed int64, now time.Time) *Session {
	rng := rand.New(rand.NewSource(seed))
	return &Session{
		ID:        id,
		conn:      conn,
		writeWait: writeWait,
		match:     battle.NewMatch(d, rng),
		rng:       rng,
		lastSeen:  now,
	}
}

// Do runs fn with exclusive access to the session's match.
func (s *Session) Do(fn func(m *battle.Match) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.match)
}

// NewGame throws the current match away and opens a fresh setup phase.
func (s *Session) NewGame(d battle.Difficulty) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.match = battle.NewMatch(d, s.rng)
	s.scoreSaved = false
	s.imported = false
}

// Restore replaces the current match with one rebuilt from snap. A restored
// match can be played to the end but never ranked.
func (s *Session) Restore(snap battle.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := battle.RestoreMatch(snap, s.rng)
	if err != nil {
		return err
	}
	s.match = m
	s.scoreSaved = false
	s.imported = true
	return nil
}

// Ranked reports whether a win in the current match may enter the high scores.
func (s *Session) Ranked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.imported
}

// ClaimScore returns the summary of a won match the first time it is called
// for that match.
func (s *Session) ClaimScore() (battle.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.match.Phase() != battle.PhaseOver || s.match.Summary().Winner != battle.Player {
		return battle.Summary{}, ErrNoVictory
	}
	if s.imported {
		return battle.Summary{}, ErrImported
	}
	if s.scoreSaved {
		return battle.Summary{}, ErrScoreSaved
	}
	s.scoreSaved = true
	return s.match.Summary(), nil
}

// ReleaseScore undoes ClaimScore after a failed save.
func (s *Session) ReleaseScore() {
	s.mu.Lock()
	s.scoreSaved = false
	s.mu.Unlock()
}

func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleFor(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// State is the current state event for this session.
func (s *Session) State() types.StateEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return types.NewState(s.ID, s.match)
}

// Send writes v as a JSON text frame.
func (s *Session) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %T: %w", v, err)
	}
	return s.write(websocket.TextMessage, data)
}

func (s *Session) SendBinary(data []byte) error {
	return s.write(websocket.BinaryMessage, data)
}

func (s *Session) write(messageType int, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeWait)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	return s.conn.WriteMessage(messageType, data)
}

// playEnemyShot plays one AI shot if the match is waiting on the enemy and
// returns the events to push. It returns nil otherwise.
func (s *Session) playEnemyShot() ([]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.match
	if m.Phase() != battle.PhaseBattle || m.CurrentTurn() != battle.Enemy {
		return nil, nil
	}

	rep, err := m.EnemyShot()
	if err != nil {
		return nil, err
	}

	events := []any{types.EnemyShot(rep, m.Stats().Score)}
	if rep.GameOver {
		events = append(events, types.GameOverEvent{Event: types.EventGameOver, Summary: m.Summary()})
	}
	events = append(events, types.NewState(s.ID, m))

	return events, nil
}
