package battle

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/vmihailenco/msgpack/v5"
)

const snapshotVersion = 1

var ErrBadSnapshot = errors.New("bad snapshot")

// ShipState is a placed ship and the hit state of each of its segments.
type ShipState struct {
	Type        ShipType    `msgpack:"type"`
	Start       Coord       `msgpack:"start"`
	Orientation Orientation `msgpack:"orientation"`
	Hits        []bool      `msgpack:"hits"`
}

type AIState struct {
	ActiveHits []Coord `msgpack:"activeHits"`
	Attacked   []Coord `msgpack:"attacked"`
	Misses     []Coord `msgpack:"misses"`
	Sunk       []Coord `msgpack:"sunk"`
	Remaining  []int   `msgpack:"remaining"`
}

// Snapshot is everything needed to resume a match.
type Snapshot struct {
	Version    int            `msgpack:"version"`
	Difficulty Difficulty     `msgpack:"difficulty"`
	Phase      Phase          `msgpack:"phase"`
	Player     []ShipState    `msgpack:"player"`
	Enemy      []ShipState    `msgpack:"enemy"`
	AI         AIState        `msgpack:"ai"`
	Turns      Turns          `msgpack:"turns"`
	Sonar      []SonarContact `msgpack:"sonar"`
}

func fleetState(f *Fleet) []ShipState {
	out := make([]ShipState, 0, len(f.ships))
	for _, s := range f.ships {
		hits := make([]bool, len(s.Segments))
		for i, seg := range s.Segments {
			hits[i] = seg.Hit
		}
		out = append(out, ShipState{Type: s.Type, Start: s.Start, Orientation: s.Orientation, Hits: hits})
	}

	return out
}

// coordsOf lists the members of a set in row-major order.
func coordsOf(has func(Coord) bool) []Coord {
	var out []Coord
	for row := 0; row < GridSize; row++ {
		for col := 0; col < GridSize; col++ {
			if c := (Coord{Row: row, Col: col}); has(c) {
				out = append(out, c)
			}
		}
	}

	return out
}

func (a *AI) state() AIState {
	remaining := make([]int, len(a.remaining))
	copy(remaining, a.remaining)

	return AIState{
		ActiveHits: a.ActiveHits(),
		Attacked:   coordsOf(a.attacked.Has),
		Misses:     coordsOf(a.misses.Has),
		Sunk:       coordsOf(a.sunk.Has),
		Remaining:  remaining,
	}
}

func (a *AI) restore(st AIState) {
	a.Reset()
	a.activeHits = append([]Coord(nil), st.ActiveHits...)
	for _, c := range st.Attacked {
		a.attacked.Put(c)
	}
	for _, c := range st.Misses {
		a.misses.Put(c)
	}
	for _, c := range st.Sunk {
		a.sunk.Put(c)
	}
	a.remaining = append(a.remaining[:0], st.Remaining...)
}

// Snapshot captures the match. The result shares no memory with it.
func (m *Match) Snapshot() Snapshot {
	turns := *m.turns
	turns.PlayerAttacks = append([]Shot(nil), m.turns.PlayerAttacks...)
	turns.EnemyAttacks = append([]Shot(nil), m.turns.EnemyAttacks...)

	return Snapshot{
		Version:    snapshotVersion,
		Difficulty: m.difficulty,
		Phase:      m.phase,
		Player:     fleetState(m.player),
		Enemy:      fleetState(m.enemy),
		AI:         m.ai.state(),
		Turns:      turns,
		Sonar:      append([]SonarContact(nil), m.sonar...),
	}
}

func (s Snapshot) Encode() ([]byte, error) {
	data, err := msgpack.Marshal(&s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	return data, nil
}

func DecodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := msgpack.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrBadSnapshot, err)
	}
	if s.Version > snapshotVersion {
		return Snapshot{}, fmt.Errorf("%w: version %d is newer than %d", ErrBadSnapshot, s.Version, snapshotVersion)
	}

	return s, nil
}

func restoreFleet(f *Fleet, ships []ShipState) error {
	for _, st := range ships {
		class, ok := ClassOf(st.Type)
		if !ok {
			return fmt.Errorf("%w: %w %q", ErrBadSnapshot, ErrUnknownShip, st.Type)
		}
		if f.ShipOfType(st.Type) != nil {
			return fmt.Errorf("%w: duplicate %s", ErrBadSnapshot, st.Type)
		}
		if len(st.Hits) != 0 && len(st.Hits) != class.Length {
			return fmt.Errorf("%w: %s has %d segments, want %d", ErrBadSnapshot, st.Type, len(st.Hits), class.Length)
		}

		ship := NewShip(class)
		if err := f.PlaceShip(ship, st.Start, st.Orientation); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrBadSnapshot, st.Type, err)
		}
		for i, hit := range st.Hits {
			if hit {
				ship.CheckHit(ship.Segments[i].Coord)
			}
		}
	}

	return nil
}

// RestoreMatch rebuilds a match from a snapshot. Grid occupancy is derived from
// the ship segments, so duplicate-shot detection survives the round trip. The
// shot histories, score, sonar contacts and AI state must all agree with the
// fleets.
func RestoreMatch(s Snapshot, rng *rand.Rand) (*Match, error) {
	switch s.Phase {
	case PhaseSetup, PhaseBattle, PhaseOver:
	default:
		return nil, fmt.Errorf("%w: unknown phase %q", ErrBadSnapshot, s.Phase)
	}

	m := NewMatch(ParseDifficulty(string(s.Difficulty)), rng)
	m.phase = s.Phase
	if err := restoreFleet(m.player, s.Player); err != nil {
		return nil, fmt.Errorf("player fleet: %w", err)
	}
	if err := restoreFleet(m.enemy, s.Enemy); err != nil {
		return nil, fmt.Errorf("enemy fleet: %w", err)
	}

	turns := s.Turns
	if turns.Current == "" {
		turns.Current = Player
	}
	turns.PlayerAttacks = append([]Shot(nil), s.Turns.PlayerAttacks...)
	turns.EnemyAttacks = append([]Shot(nil), s.Turns.EnemyAttacks...)

	if err := checkPhase(s.Phase, &turns, m.player, m.enemy, len(s.Sonar)); err != nil {
		return nil, err
	}
	if err := checkShots(turns.PlayerAttacks, m.enemy); err != nil {
		return nil, fmt.Errorf("player attacks: %w", err)
	}
	if err := checkShots(turns.EnemyAttacks, m.player); err != nil {
		return nil, fmt.Errorf("enemy attacks: %w", err)
	}
	if err := checkScore(&turns, m.enemy); err != nil {
		return nil, err
	}
	if err := checkSonar(s.Sonar, turns.SonarUsed, m.enemy); err != nil {
		return nil, err
	}
	if err := checkAI(s.AI, turns.EnemyAttacks, m.player); err != nil {
		return nil, err
	}

	m.ai.restore(s.AI)
	*m.turns = turns
	m.sonar = append([]SonarContact(nil), s.Sonar...)

	return m, nil
}
