package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Scrimzay/battleships/internal/battle"
	"github.com/google/uuid"
)

var ErrHubClosed = errors.New("session hub is closed")

const minReapInterval = time.Second

type Options struct {
	Difficulty  battle.Difficulty
	EnemyDelay  time.Duration // pause between enemy shots
	IdleTimeout time.Duration
	WriteWait   time.Duration // longest a single write may block the hub
	// Seed returns the random seed for a new session. Nil means time based.
	Seed func() int64
}

// Hub owns every live session. Register, unregister, enemy turns and idle
// reaping all run on the Run goroutine.
type Hub struct {
	opts Options

	mu       sync.RWMutex
	sessions map[string]*Session

	register   chan *Session
	unregister chan *Session
	done       chan struct{}

	now func() time.Time
}

func NewHub(opts Options) *Hub {
	if opts.Difficulty == "" {
		opts.Difficulty = battle.Normal
	}
	if opts.EnemyDelay <= 0 {
		opts.EnemyDelay = 600 * time.Millisecond
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 30 * time.Minute
	}
	if opts.WriteWait <= 0 {
		opts.WriteWait = 10 * time.Second
	}
	if opts.Seed == nil {
		var counter atomic.Int64
		opts.Seed = func() int64 { return time.Now().UnixNano() + counter.Add(1) }
	}

	return &Hub{
		opts:       opts,
		sessions:   make(map[string]*Session),
		register:   make(chan *Session),
		unregister: make(chan *Session),
		done:       make(chan struct{}),
		now:        time.Now,
	}
}

func (h *Hub) DefaultDifficulty() battle.Difficulty { return h.opts.Difficulty }

// Register opens a session for conn and hands it to the hub. The hub sends
// the initial state.
func (h *Hub) Register(conn Conn) (*Session, error) {
	s := newSession(uuid.NewString(), conn, h.opts.WriteWait, h.opts.Difficulty, h.opts.Seed(), h.now())

	select {
	case h.register <- s:
		return s, nil
	case <-h.done:
		return nil, ErrHubClosed
	}
}

func (h *Hub) Unregister(s *Session) {
	select {
	case h.unregister <- s:
	case <-h.done:
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

func (h *Hub) Get(id string) (*Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.sessions[id]
	return s, ok
}

// Run serves the hub until ctx is done, then closes every connection.
func (h *Hub) Run(ctx context.Context) {
	enemyTicker := time.NewTicker(h.opts.EnemyDelay)
	reapInterval := h.opts.IdleTimeout / 2
	if reapInterval < minReapInterval {
		reapInterval = minReapInterval
	}
	reapTicker := time.NewTicker(reapInterval)
	defer func() {
		enemyTicker.Stop()
		reapTicker.Stop()
		h.closeAll()
		close(h.done)
	}()

	for {
		select {
		case s := <-h.register:
			h.mu.Lock()
			h.sessions[s.ID] = s
			h.mu.Unlock()
			log.Printf("session %s: connected (%d live)", s.ID, h.Len())

			if err := s.Send(s.State()); err != nil {
				log.Printf("session %s: initial send error: %v", s.ID, err)
				h.remove(s)
			}

		case s := <-h.unregister:
			if h.remove(s) {
				log.Printf("session %s: disconnected", s.ID)
			}

		case <-enemyTicker.C:
			h.playEnemyTurns()

		case <-reapTicker.C:
			h.reap(h.now())

		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) snapshotSessions() []*Session {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		out = append(out, s)
	}
	return out
}

// playEnemyTurns plays at most one enemy shot per session.
func (h *Hub) playEnemyTurns() {
	for _, s := range h.snapshotSessions() {
		events, err := s.playEnemyShot()
		if err != nil {
			log.Printf("session %s: enemy shot error: %v", s.ID, err)
			continue
		}

		for _, ev := range events {
			if err := s.Send(ev); err != nil {
				log.Printf("session %s: send error: %v", s.ID, err)
				h.remove(s)
				break
			}
		}
	}
}

// reap drops sessions idle for longer than the idle timeout.
func (h *Hub) reap(now time.Time) int {
	n := 0
	for _, s := range h.snapshotSessions() {
		if idle := s.idleFor(now); idle > h.opts.IdleTimeout {
			log.Printf("session %s: idle for %s, closing", s.ID, idle.Round(time.Second))
			if h.remove(s) {
				n++
			}
		}
	}
	return n
}

func (h *Hub) remove(s *Session) bool {
	h.mu.Lock()
	_, ok := h.sessions[s.ID]
	delete(h.sessions, s.ID)
	h.mu.Unlock()

	if ok {
		s.conn.Close()
	}
	return ok
}

func (h *Hub) closeAll() {
	for _, s := range h.snapshotSessions() {
		h.remove(s)
	}
}
