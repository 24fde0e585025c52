package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Scrimzay/battleships/internal/battle"
	"github.com/gorilla/websocket"
)

type frame struct {
	kind int
	data []byte
}

type fakeConn struct {
	mu     sync.Mutex
	frames []frame
	closed bool
	fail   bool
}

func (c *fakeConn) WriteMessage(kind int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail || c.closed {
		return errors.New("write on broken conn")
	}
	c.frames = append(c.frames, frame{kind: kind, data: append([]byte(nil), data...)})
	return nil
}

func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// events decodes the text frames and returns their event names.
func (c *fakeConn) events(t *testing.T) []map[string]any {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []map[string]any
	for _, f := range c.frames {
		if f.kind != websocket.TextMessage {
			continue
		}
		var ev map[string]any
		if err := json.Unmarshal(f.data, &ev); err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		out = append(out, ev)
	}
	return out
}

// stallConn is a client that never reads: a write blocks until its deadline.
type stallConn struct {
	mu       sync.Mutex
	deadline time.Time
	closed   chan struct{}
	once     sync.Once
}

func newStallConn() *stallConn {
	return &stallConn{closed: make(chan struct{})}
}

func (c *stallConn) SetWriteDeadline(t time.Time) error {
	c.mu.Lock()
	c.deadline = t
	c.mu.Unlock()
	return nil
}

func (c *stallConn) WriteMessage(int, []byte) error {
	c.mu.Lock()
	deadline := c.deadline
	c.mu.Unlock()

	var expired <-chan time.Time
	if !deadline.IsZero() {
		expired = time.After(time.Until(deadline))
	}
	select {
	case <-expired:
		return os.ErrDeadlineExceeded
	case <-c.closed:
		return errors.New("write on closed conn")
	}
}

func (c *stallConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *stallConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func newTestHub() *Hub {
	return NewHub(Options{
		Difficulty:  battle.Normal,
		EnemyDelay:  10 * time.Millisecond,
		IdleTimeout: time.Minute,
		Seed:        func() int64 { return 42 },
	})
}

var sessionCounter atomic.Int64

// addSession puts a session straight into the hub without running it.
func addSession(h *Hub, conn Conn) *Session {
	id := fmt.Sprintf("test-%d", sessionCounter.Add(1))
	s := newSession(id, conn, h.opts.WriteWait, h.opts.Difficulty, 7, h.now())
	h.sessions[s.ID] = s
	return s
}

func startBattle(t *testing.T, s *Session) {
	t.Helper()
	err := s.Do(func(m *battle.Match) error {
		if err := m.AutoPlace(); err != nil {
			return err
		}
		return m.Start()
	})
	if err != nil {
		t.Fatalf("start battle: %v", err)
	}
}

// missOnce fires at open water so the enemy gets the turn.
func missOnce(t *testing.T, s *Session) {
	t.Helper()
	err := s.Do(func(m *battle.Match) error {
		for row := 0; row < battle.GridSize; row++ {
			for col := 0; col < battle.GridSize; col++ {
				c := battle.Coord{Row: row, Col: col}
				if m.EnemyFleet().ShipAt(c) == nil && m.EnemyBoard()[row][col] == battle.CellEmpty {
					_, err := m.Fire(c)
					return err
				}
			}
		}
		return errors.New("no open water")
	})
	if err != nil {
		t.Fatalf("miss: %v", err)
	}
}

func TestHub_RegisterSendsStateAndUnregisterCloses(t *testing.T) {
	h := newTestHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	conn := &fakeConn{}
	s, err := h.Register(conn)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if s.ID == "" {
		t.Fatal("expected a session id")
	}

	waitFor(t, func() bool { return len(conn.events(t)) == 1 })
	ev := conn.events(t)[0]
	if ev["event"] != "state" || ev["sessionId"] != s.ID || ev["phase"] != "SETUP" {
		t.Fatalf("unexpected initial event %v", ev)
	}
	if got, ok := h.Get(s.ID); !ok || got != s {
		t.Fatal("session should be registered")
	}

	h.Unregister(s)
	waitFor(t, func() bool { return conn.isClosed() && h.Len() == 0 })
}

func TestHub_RegisterAfterCloseFails(t *testing.T) {
	h := newTestHub()
	ctx, cancel := context.WithCancel(context.Background())
	live := &fakeConn{}

	finished := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(finished)
	}()
	if _, err := h.Register(live); err != nil {
		t.Fatalf("register: %v", err)
	}
	cancel()
	<-finished

	if !live.isClosed() {
		t.Fatal("closing the hub should close live connections")
	}
	if _, err := h.Register(&fakeConn{}); !errors.Is(err, ErrHubClosed) {
		t.Fatalf("expected hub closed, got %v", err)
	}
	h.Unregister(&Session{ID: "gone"})
}

func TestHub_StalledClientDoesNotBlockHub(t *testing.T) {
	h := NewHub(Options{
		EnemyDelay:  10 * time.Millisecond,
		IdleTimeout: time.Minute,
		WriteWait:   20 * time.Millisecond,
		Seed:        func() int64 { return 42 },
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	stalled := newStallConn()
	if _, err := h.Register(stalled); err != nil {
		t.Fatalf("register stalled: %v", err)
	}

	healthy := &fakeConn{}
	registered := make(chan error, 1)
	go func() {
		_, err := h.Register(healthy)
		registered <- err
	}()

	select {
	case err := <-registered:
		if err != nil {
			t.Fatalf("register healthy: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("hub is stuck behind a client that does not read")
	}

	waitFor(t, func() bool { return len(healthy.events(t)) == 1 })
	waitFor(t, func() bool { return stalled.isClosed() && h.Len() == 1 })
}

func TestHub_EnemyPlaysOneShotPerTick(t *testing.T) {
	h := newTestHub()
	conn := &fakeConn{}
	s := addSession(h, conn)
	startBattle(t, s)

	h.playEnemyTurns()
	if len(conn.events(t)) != 0 {
		t.Fatal("enemy must not shoot on the player's turn")
	}

	missOnce(t, s)
	h.playEnemyTurns()

	events := conn.events(t)
	if len(events) < 2 {
		t.Fatalf("expected shot and state events, got %v", events)
	}
	if events[0]["event"] != "shot" || events[0]["side"] != "ENEMY" {
		t.Fatalf("expected enemy shot first, got %v", events[0])
	}
	if events[len(events)-1]["event"] != "state" {
		t.Fatalf("expected state last, got %v", events[len(events)-1])
	}

	var enemyShots int
	_ = s.Do(func(m *battle.Match) error {
		for _, row := range m.PlayerBoard() {
			for _, cell := range row {
				if cell == "miss" || cell == "hit" || cell == "sunk" {
					enemyShots++
				}
			}
		}
		return nil
	})
	if enemyShots != 1 {
		t.Fatalf("expected exactly one enemy shot per tick, got %d", enemyShots)
	}
}

func TestHub_EnemyFinishesGame(t *testing.T) {
	h := newTestHub()
	conn := &fakeConn{}
	s := addSession(h, conn)
	startBattle(t, s)

	for i := 0; i < 500; i++ {
		var phase battle.Phase
		var turn battle.Side
		_ = s.Do(func(m *battle.Match) error {
			phase, turn = m.Phase(), m.CurrentTurn()
			return nil
		})
		if phase == battle.PhaseOver {
			break
		}
		if turn == battle.Player {
			missOnce(t, s)
			continue
		}
		h.playEnemyTurns()
	}

	var gameOver map[string]any
	for _, ev := range conn.events(t) {
		if ev["event"] == "game_over" {
			gameOver = ev
		}
	}
	if gameOver == nil {
		t.Fatal("expected a game_over event")
	}
	if gameOver["winner"] != "ENEMY" || gameOver["qualifies"] != false {
		t.Fatalf("unexpected game over %v", gameOver)
	}
	if _, err := s.ClaimScore(); !errors.Is(err, ErrNoVictory) {
		t.Fatalf("expected no victory, got %v", err)
	}
}

func TestHub_DropsSessionOnSendError(t *testing.T) {
	h := newTestHub()
	conn := &fakeConn{}
	s := addSession(h, conn)
	startBattle(t, s)
	missOnce(t, s)

	conn.fail = true
	h.playEnemyTurns()
	if h.Len() != 0 || !conn.isClosed() {
		t.Fatal("a session that cannot be written to should be dropped")
	}
}

func TestHub_ReapIdleSessions(t *testing.T) {
	h := newTestHub()
	idle := &fakeConn{}
	busy := &fakeConn{}
	addSession(h, idle)
	b := addSession(h, busy)

	later := time.Now().Add(2 * time.Minute)
	b.Touch(later.Add(-time.Second))

	if n := h.reap(later); n != 1 {
		t.Fatalf("expected 1 reaped session, got %d", n)
	}
	if !idle.isClosed() || busy.isClosed() {
		t.Fatal("only the idle connection should be closed")
	}
	if h.Len() != 1 {
		t.Fatalf("expected 1 live session, got %d", h.Len())
	}
}

func TestSession_ClaimScoreOncePerGame(t *testing.T) {
	h := newTestHub()
	s := addSession(h, &fakeConn{})
	startBattle(t, s)

	if _, err := s.ClaimScore(); !errors.Is(err, ErrNoVictory) {
		t.Fatalf("expected no victory mid-game, got %v", err)
	}

	err := s.Do(func(m *battle.Match) error {
		for _, ship := range m.EnemyFleet().Ships() {
			for _, c := range ship.Coords() {
				if _, err := m.Fire(c); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("sink fleet: %v", err)
	}

	sum, err := s.ClaimScore()
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if sum.Winner != battle.Player || sum.Total <= 0 {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if _, err := s.ClaimScore(); !errors.Is(err, ErrScoreSaved) {
		t.Fatalf("expected score saved, got %v", err)
	}

	s.ReleaseScore()
	if _, err := s.ClaimScore(); err != nil {
		t.Fatalf("claim after release: %v", err)
	}

	s.NewGame(battle.Hard)
	if st := s.State(); st.Phase != battle.PhaseSetup || st.Difficulty != battle.Hard {
		t.Fatalf("expected fresh hard game, got %s/%s", st.Phase, st.Difficulty)
	}
}

func TestSession_ImportedGameIsNotRanked(t *testing.T) {
	h := newTestHub()
	s := addSession(h, &fakeConn{})
	startBattle(t, s)

	var snap battle.Snapshot
	err := s.Do(func(m *battle.Match) error {
		for _, ship := range m.EnemyFleet().Ships() {
			for _, c := range ship.Coords() {
				if _, err := m.Fire(c); err != nil {
					return err
				}
			}
		}
		snap = m.Snapshot()
		return nil
	})
	if err != nil {
		t.Fatalf("sink fleet: %v", err)
	}

	if err := s.Restore(snap); err != nil {
		t.Fatalf("restore won game: %v", err)
	}
	if s.Ranked() {
		t.Fatal("an imported match must not be ranked")
	}
	if _, err := s.ClaimScore(); !errors.Is(err, ErrImported) {
		t.Fatalf("expected imported, got %v", err)
	}

	s.NewGame(battle.Normal)
	if !s.Ranked() {
		t.Fatal("a new game should be ranked again")
	}
}

func TestSession_RestoreRejectsBadSnapshot(t *testing.T) {
	h := newTestHub()
	s := addSession(h, &fakeConn{})
	if err := s.Restore(battle.Snapshot{Version: 1, Phase: "PAUSED"}); !errors.Is(err, battle.ErrBadSnapshot) {
		t.Fatalf("expected bad snapshot, got %v", err)
	}
	if st := s.State(); st.Phase != battle.PhaseSetup {
		t.Fatalf("failed restore should keep the old match, got %s", st.Phase)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
