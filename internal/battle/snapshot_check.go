package battle

import (
	"fmt"
	"slices"

	"github.com/zyedidia/generic/mapset"
)

func badSnapshot(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBadSnapshot, fmt.Sprintf(format, args...))
}

// checkPhase makes the phase, the side to move and the game-over flags agree
// with the restored fleets.
func checkPhase(phase Phase, t *Turns, player, enemy *Fleet, sonar int) error {
	switch t.Current {
	case Player, Enemy:
	default:
		return badSnapshot("unknown side to move %q", t.Current)
	}

	if phase == PhaseSetup {
		fresh := t.Score == 0 && t.TotalShots == 0 && t.TotalHits == 0 && t.TurnCount == 0 &&
			len(t.PlayerAttacks) == 0 && len(t.EnemyAttacks) == 0 &&
			!t.SonarUsed && t.RowNukeCharges == 0 && t.ConsecutiveHits == 0 && t.ConsecutiveSinks == 0 &&
			!t.GameOver && t.Winner == ""
		if !fresh || len(enemy.ships) > 0 || sonar > 0 {
			return badSnapshot("setup phase carries battle state")
		}
		return nil
	}

	if !player.Complete() || !enemy.Complete() {
		return badSnapshot("%s phase needs both fleets complete", phase)
	}

	if phase == PhaseBattle {
		if t.GameOver || t.Winner != "" || player.Destroyed() || enemy.Destroyed() {
			return badSnapshot("battle phase with a finished game")
		}
		return nil
	}

	var winner Side
	switch {
	case enemy.Destroyed() && !player.Destroyed():
		winner = Player
	case player.Destroyed() && !enemy.Destroyed():
		winner = Enemy
	default:
		return badSnapshot("game over without exactly one fleet destroyed")
	}
	if !t.GameOver || t.Winner != winner {
		return badSnapshot("winner %q does not match the fleets, want %q", t.Winner, winner)
	}

	return nil
}

// checkShots matches one side's shot history against the fleet it fired on.
// Every shot is on the board and fired once, and a square counts as a hit
// exactly when a ship segment there is hit.
func checkShots(shots []Shot, target *Fleet) error {
	seen := mapset.New[Coord]()
	for _, sh := range shots {
		if !sh.InBounds() {
			return badSnapshot("shot at (%d,%d) is off the board", sh.Row, sh.Col)
		}
		if seen.Has(sh.Coord) {
			return badSnapshot("%s fired on twice", sh.Coord)
		}
		seen.Put(sh.Coord)

		ship := target.ShipAt(sh.Coord)
		if sh.Hit != (ship != nil) || (ship != nil && !ship.SegmentHit(sh.Coord)) {
			return badSnapshot("shot at %s disagrees with the fleet", sh.Coord)
		}
		if sh.Sunk && (ship == nil || !ship.Sunk) {
			return badSnapshot("shot at %s claims a sink", sh.Coord)
		}
	}

	for _, ship := range target.ships {
		for _, seg := range ship.Segments {
			if seg.Hit && !seen.Has(seg.Coord) {
				return badSnapshot("%s is hit at %s without a shot", ship.Type, seg.Coord)
			}
		}
	}

	return nil
}

// checkScore bounds the player's counters and score by what the attack
// history and the sunk enemy ships could have earned.
func checkScore(t *Turns, enemy *Fleet) error {
	if t.TotalShots < 0 || t.TotalHits < 0 || t.TotalHits > t.TotalShots ||
		t.RowNukeCharges < 0 || t.ConsecutiveHits < 0 || t.ConsecutiveHits > t.TotalHits ||
		t.ConsecutiveSinks < 0 || t.ConsecutiveSinks >= sinksPerNukeCharge {
		return badSnapshot("turn counters out of range")
	}
	if t.TurnCount != t.TotalShots-t.TotalHits {
		return badSnapshot("turn count %d does not match %d misses", t.TurnCount, t.TotalShots-t.TotalHits)
	}

	hits, misses := 0, 0
	for _, sh := range t.PlayerAttacks {
		if sh.Hit {
			hits++
		} else {
			misses++
		}
	}
	strikes := len(t.PlayerAttacks) - t.TotalShots
	if strikes < 0 || t.TotalHits > hits || t.TurnCount > misses {
		return badSnapshot("shot counters disagree with the attack history")
	}

	sunk, bonus := 0, 0
	for _, s := range enemy.ships {
		if s.Sunk {
			sunk++
			bonus += SinkBonus(s.Type)
		}
	}
	nukes := (strikes + GridSize - 1) / GridSize
	if nukes+t.RowNukeCharges > sunk/sinksPerNukeCharge {
		return badSnapshot("more row nukes than sinks could earn")
	}

	base := hits*HitPoints + bonus
	maxChain := (&Turns{ConsecutiveHits: GridSize * GridSize}).ChainBonus()
	if t.Score < base || t.Score > base+t.TotalHits*maxChain {
		return badSnapshot("score %d is out of reach", t.Score)
	}

	return nil
}

// checkSonar requires the contacts of a single ping that really happened.
func checkSonar(contacts []SonarContact, used bool, enemy *Fleet) error {
	if len(contacts) == 0 {
		return nil
	}
	if !used || len(contacts) > 9 {
		return badSnapshot("sonar contacts without a ping")
	}

	lo, hi := contacts[0].Coord, contacts[0].Coord
	for _, c := range contacts {
		if !c.InBounds() {
			return badSnapshot("sonar contact at (%d,%d) is off the board", c.Row, c.Col)
		}
		if c.Occupied != (enemy.ShipAt(c.Coord) != nil) {
			return badSnapshot("sonar contact at %s disagrees with the fleet", c.Coord)
		}
		lo.Row, lo.Col = min(lo.Row, c.Row), min(lo.Col, c.Col)
		hi.Row, hi.Col = max(hi.Row, c.Row), max(hi.Col, c.Col)
	}
	if hi.Row-lo.Row > 2 || hi.Col-lo.Col > 2 {
		return badSnapshot("sonar contacts span more than one zone")
	}

	return nil
}

// checkAI matches the saved AI state against the enemy's shots and the player
// fleet they were fired at.
func checkAI(st AIState, shots []Shot, player *Fleet) error {
	attacked, misses := mapset.New[Coord](), mapset.New[Coord]()
	for _, sh := range shots {
		attacked.Put(sh.Coord)
		if !sh.Hit {
			misses.Put(sh.Coord)
		}
	}

	sunk, active := mapset.New[Coord](), mapset.New[Coord]()
	var remaining []int
	for _, class := range fleetClasses {
		s := player.ShipOfType(class.Type)
		if s == nil || !s.Sunk {
			remaining = append(remaining, class.Length)
		}
		if s == nil {
			continue
		}
		for _, seg := range s.Segments {
			switch {
			case s.Sunk:
				sunk.Put(seg.Coord)
			case seg.Hit:
				active.Put(seg.Coord)
			}
		}
	}

	sets := []struct {
		name string
		got  []Coord
		want mapset.Set[Coord]
	}{
		{"attacked squares", st.Attacked, attacked},
		{"misses", st.Misses, misses},
		{"sunk squares", st.Sunk, sunk},
		{"active hits", st.ActiveHits, active},
	}
	for _, s := range sets {
		if !sameSquares(s.got, s.want) {
			return badSnapshot("ai %s disagree with the enemy's shots", s.name)
		}
	}

	got := slices.Clone(st.Remaining)
	slices.Sort(got)
	slices.Sort(remaining)
	if !slices.Equal(got, remaining) {
		return badSnapshot("ai remaining ships %v, want %v", st.Remaining, remaining)
	}

	return nil
}

func sameSquares(got []Coord, want mapset.Set[Coord]) bool {
	seen := mapset.New[Coord]()
	for _, c := range got {
		if !want.Has(c) || seen.Has(c) {
			return false
		}
		seen.Put(c)
	}

	return seen.Size() == want.Size()
}
