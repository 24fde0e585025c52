package battle

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

func roundTrip(t *testing.T, m *Match) *Match {
	t.Helper()
	data, err := m.Snapshot().Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	s, err := DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	restored, err := RestoreMatch(s, rand.New(rand.NewSource(99)))
	if err != nil {
		t.Fatalf("restore: %v", err)
	}

	return restored
}

func TestSnapshot_MidGameRoundTrip(t *testing.T) {
	m := startedMatch(t, Hard, 11)
	ships := enemyShipSquares(m)
	water := enemyWaterSquares(m)

	if _, err := m.SonarPing(Coord{Row: 4, Col: 4}); err != nil {
		t.Fatalf("sonar: %v", err)
	}
	for _, c := range ships[:3] {
		if _, err := m.Fire(c); err != nil {
			t.Fatalf("fire: %v", err)
		}
	}
	if _, err := m.Fire(water[0]); err != nil {
		t.Fatalf("fire: %v", err)
	}
	for m.CurrentTurn() == Enemy {
		if _, err := m.EnemyShot(); err != nil {
			t.Fatalf("enemy shot: %v", err)
		}
	}

	r := roundTrip(t, m)

	if r.Phase() != m.Phase() || r.Difficulty() != m.Difficulty() || r.CurrentTurn() != m.CurrentTurn() {
		t.Fatalf("expected %s/%s/%s, got %s/%s/%s",
			m.Phase(), m.Difficulty(), m.CurrentTurn(), r.Phase(), r.Difficulty(), r.CurrentTurn())
	}
	if r.Stats() != m.Stats() {
		t.Fatalf("expected stats %+v, got %+v", m.Stats(), r.Stats())
	}
	if r.PlayerBoard() != m.PlayerBoard() {
		t.Fatal("player board changed across the round trip")
	}
	if r.EnemyBoard() != m.EnemyBoard() {
		t.Fatal("enemy board changed across the round trip")
	}
	if r.SonarAvailable() {
		t.Fatal("sonar use should survive the round trip")
	}
	if len(r.ai.ActiveHits()) != len(m.ai.ActiveHits()) {
		t.Fatalf("expected %d active hits, got %d", len(m.ai.ActiveHits()), len(r.ai.ActiveHits()))
	}
	if r.ai.attacked.Size() != m.ai.attacked.Size() {
		t.Fatalf("expected %d attacked squares, got %d", m.ai.attacked.Size(), r.ai.attacked.Size())
	}

	if _, err := r.Fire(ships[0]); !errors.Is(err, ErrAlreadyAttacked) {
		t.Fatalf("expected already attacked after restore, got %v", err)
	}
	if _, err := r.Fire(ships[3]); err != nil {
		t.Fatalf("fire after restore: %v", err)
	}
}

func TestSnapshot_SetupPhase(t *testing.T) {
	m := newTestMatch(t, Easy, 12)
	if err := m.PlaceShip(Cruiser, Coord{Row: 3, Col: 3}, Vertical); err != nil {
		t.Fatalf("place: %v", err)
	}

	r := roundTrip(t, m)
	if r.Phase() != PhaseSetup {
		t.Fatalf("expected setup, got %s", r.Phase())
	}
	s := r.PlayerFleet().ShipOfType(Cruiser)
	if s == nil || s.Start != (Coord{Row: 3, Col: 3}) || s.Orientation != Vertical {
		t.Fatalf("cruiser not restored, got %+v", s)
	}
	if len(r.UnplacedShips()) != len(fleetClasses)-1 {
		t.Fatalf("expected %d unplaced, got %d", len(fleetClasses)-1, len(r.UnplacedShips()))
	}
	if !r.SonarAvailable() {
		t.Fatal("sonar should be available in a fresh match")
	}
}

func TestSnapshot_SnapshotIsDetached(t *testing.T) {
	m := startedMatch(t, Normal, 13)
	s := m.Snapshot()
	if _, err := m.Fire(enemyShipSquares(m)[0]); err != nil {
		t.Fatalf("fire: %v", err)
	}
	if len(s.Turns.PlayerAttacks) != 0 {
		t.Fatal("snapshot should not see later shots")
	}
}

func TestDecodeSnapshot_Rejects(t *testing.T) {
	if _, err := DecodeSnapshot([]byte{0xc1, 0x00}); !errors.Is(err, ErrBadSnapshot) {
		t.Fatalf("expected bad snapshot for garbage, got %v", err)
	}

	newer, err := msgpack.Marshal(&Snapshot{Version: snapshotVersion + 1, Phase: PhaseSetup})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, err := DecodeSnapshot(newer); !errors.Is(err, ErrBadSnapshot) {
		t.Fatalf("expected bad snapshot for newer version, got %v", err)
	}
}

func TestRestoreMatch_Rejects(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	tests := []struct {
		name string
		snap Snapshot
	}{
		{"unknown phase", Snapshot{Version: 1, Phase: "PAUSED"}},
		{"unknown ship", Snapshot{Version: 1, Phase: PhaseSetup, Player: []ShipState{{Type: "BATTLESHIP"}}}},
		{"duplicate ship", Snapshot{Version: 1, Phase: PhaseSetup, Player: []ShipState{
			{Type: Destroyer, Start: Coord{Row: 0, Col: 0}},
			{Type: Destroyer, Start: Coord{Row: 5, Col: 5}},
		}}},
		{"wrong hit count", Snapshot{Version: 1, Phase: PhaseSetup, Player: []ShipState{
			{Type: Destroyer, Hits: []bool{true}},
		}}},
		{"overlapping ships", Snapshot{Version: 1, Phase: PhaseSetup, Enemy: []ShipState{
			{Type: Destroyer, Start: Coord{Row: 0, Col: 0}},
			{Type: Cruiser, Start: Coord{Row: 0, Col: 1}},
		}}},
	}

	for _, tt := range tests {
		if _, err := RestoreMatch(tt.snap, rng); !errors.Is(err, ErrBadSnapshot) {
			t.Fatalf("%s: expected bad snapshot, got %v", tt.name, err)
		}
	}
}

// playedSnapshot is a Hard match after a sonar ping, three carrier hits, one
// miss and the enemy's reply.
func playedSnapshot(t *testing.T) Snapshot {
	t.Helper()
	m := startedMatch(t, Hard, 11)
	ships := enemyShipSquares(m)

	if _, err := m.SonarPing(Coord{Row: 4, Col: 4}); err != nil {
		t.Fatalf("sonar: %v", err)
	}
	for _, c := range ships[:3] {
		if _, err := m.Fire(c); err != nil {
			t.Fatalf("fire: %v", err)
		}
	}
	if _, err := m.Fire(enemyWaterSquares(m)[0]); err != nil {
		t.Fatalf("fire: %v", err)
	}
	for m.Phase() == PhaseBattle && m.CurrentTurn() == Enemy {
		if _, err := m.EnemyShot(); err != nil {
			t.Fatalf("enemy shot: %v", err)
		}
	}
	if m.Phase() != PhaseBattle {
		t.Fatalf("expected the battle to go on, got %s", m.Phase())
	}

	return m.Snapshot()
}

func TestRestoreMatch_RejectsInconsistentState(t *testing.T) {
	if _, err := RestoreMatch(playedSnapshot(t), rand.New(rand.NewSource(1))); err != nil {
		t.Fatalf("untouched snapshot should restore: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(s *Snapshot)
	}{
		{"player shot off the board", func(s *Snapshot) {
			s.Turns.PlayerAttacks = append(s.Turns.PlayerAttacks, Shot{Coord: Coord{Row: 40, Col: 3}})
		}},
		{"enemy shot off the board", func(s *Snapshot) {
			s.Turns.EnemyAttacks = append(s.Turns.EnemyAttacks, Shot{Coord: Coord{Row: 0, Col: -2}})
		}},
		{"square fired on twice", func(s *Snapshot) {
			s.Turns.PlayerAttacks = append(s.Turns.PlayerAttacks, s.Turns.PlayerAttacks[0])
		}},
		{"water claimed as a hit", func(s *Snapshot) {
			for i, sh := range s.Turns.PlayerAttacks {
				if !sh.Hit {
					s.Turns.PlayerAttacks[i].Hit = true
				}
			}
		}},
		{"hit segment without a shot", func(s *Snapshot) {
			s.Enemy[0].Hits[4] = true
		}},
		{"sonar contact off the board", func(s *Snapshot) {
			s.Sonar = append(s.Sonar, SonarContact{Coord: Coord{Row: -1, Col: 4}})
		}},
		{"sonar contacts without a ping", func(s *Snapshot) {
			s.Turns.SonarUsed = false
		}},
		{"negative ship length", func(s *Snapshot) {
			s.AI.Remaining = []int{-1}
		}},
		{"ship longer than the board", func(s *Snapshot) {
			s.AI.Remaining = []int{5, 3, 3, 2, GridSize + 1}
		}},
		{"ai square off the board", func(s *Snapshot) {
			s.AI.Attacked = append(s.AI.Attacked, Coord{Row: 99, Col: 99})
		}},
		{"unknown side to move", func(s *Snapshot) {
			s.Turns.Current = "NOBODY"
		}},
		{"enemy fleet missing", func(s *Snapshot) {
			s.Enemy = nil
			s.Turns.PlayerAttacks = nil
			s.Sonar = nil
		}},
		{"incomplete player fleet", func(s *Snapshot) {
			s.Player = s.Player[:4]
		}},
		{"forged victory", func(s *Snapshot) {
			s.Phase = PhaseOver
			s.Turns.GameOver = true
			s.Turns.Winner = Player
			s.Turns.Score = 999999
		}},
		{"score out of reach", func(s *Snapshot) {
			s.Turns.Score = 999999
		}},
		{"hits without shots", func(s *Snapshot) {
			s.Turns.TotalHits += 5
			s.Turns.TotalShots += 5
		}},
		{"nuke charge without sinks", func(s *Snapshot) {
			s.Turns.RowNukeCharges = 1
		}},
		{"setup with battle state", func(s *Snapshot) {
			s.Phase = PhaseSetup
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := playedSnapshot(t)
			tt.mutate(&snap)
			if _, err := RestoreMatch(snap, rand.New(rand.NewSource(1))); !errors.Is(err, ErrBadSnapshot) {
				t.Fatalf("expected bad snapshot, got %v", err)
			}
		})
	}
}

func TestSnapshot_FinishedGameRoundTrip(t *testing.T) {
	m := startedMatch(t, Normal, 14)
	for _, c := range enemyShipSquares(m) {
		if _, err := m.Fire(c); err != nil {
			t.Fatalf("fire: %v", err)
		}
	}

	r := roundTrip(t, m)
	if r.Phase() != PhaseOver || r.Summary() != m.Summary() {
		t.Fatalf("expected %+v, got %s %+v", m.Summary(), r.Phase(), r.Summary())
	}
}
