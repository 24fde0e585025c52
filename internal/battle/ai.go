package battle

import (
	"errors"
	"math/rand"
	"strings"

	"github.com/zyedidia/generic/mapset"
)

type Difficulty string

const (
	Easy   Difficulty = "EASY"
	Normal Difficulty = "NORMAL"
	Hard   Difficulty = "HARD"
)

// ParseDifficulty is case-insensitive; unknown values fall back to Normal.
func ParseDifficulty(s string) Difficulty {
	switch Difficulty(strings.ToUpper(strings.TrimSpace(s))) {
	case Easy:
		return Easy

	case Hard:
		return Hard

	default:
		return Normal
	}
}

var ErrPlacementFailed = errors.New("could not place fleet")

const (
	maxPlacementAttempts = 200 // per ship
	maxFleetAttempts     = 20  // whole-fleet retries after a ship runs out of attempts
	hardTopCandidates    = 4
)

// AI picks targets against the opposing fleet and places its own ships.
type AI struct {
	difficulty Difficulty
	rng        *rand.Rand

	activeHits []Coord           // hits on ships that are still afloat
	attacked   mapset.Set[Coord] // every square already fired on
	misses     mapset.Set[Coord]
	sunk       mapset.Set[Coord] // squares of ships already sunk
	remaining  []int             // lengths of enemy ships still afloat
}

func NewAI(d Difficulty, rng *rand.Rand) *AI {
	a := &AI{difficulty: d, rng: rng}
	a.Reset()
	return a
}

func (a *AI) Difficulty() Difficulty {
	return a.difficulty
}

// Reset clears targeting state for a new game.
func (a *AI) Reset() {
	a.activeHits = nil
	a.attacked = mapset.New[Coord]()
	a.misses = mapset.New[Coord]()
	a.sunk = mapset.New[Coord]()
	a.remaining = a.remaining[:0]
	for _, c := range fleetClasses {
		a.remaining = append(a.remaining, c.Length)
	}
}

// PlaceFleet places the standard fleet at random valid positions. The fleet is
// left empty when placement fails.
func (a *AI) PlaceFleet(f *Fleet) error {
	for attempt := 0; attempt < maxFleetAttempts; attempt++ {
		if a.tryPlaceFleet(f) {
			return nil
		}
		f.Reset()
	}

	return ErrPlacementFailed
}

func (a *AI) tryPlaceFleet(f *Fleet) bool {
	for _, class := range fleetClasses {
		ship := NewShip(class)
		placed := false
		for attempts := 0; !placed && attempts < maxPlacementAttempts; attempts++ {
			start := Coord{Row: a.rng.Intn(GridSize), Col: a.rng.Intn(GridSize)}
			o := Horizontal
			if a.rng.Float64() < 0.5 {
				o = Vertical
			}
			placed = f.PlaceShip(ship, start, o) == nil
		}

		if !placed {
			return false
		}
	}

	return true
}

// SelectTarget returns the next square to fire on. False once every square
// has been attacked.
func (a *AI) SelectTarget() (Coord, bool) {
	if a.attacked.Size() >= GridSize*GridSize {
		return Coord{}, false
	}

	switch a.difficulty {
	case Easy:
		return a.selectEasy(), true

	case Hard:
		return a.selectHard(), true

	default:
		return a.selectNormal(), true
	}
}

func (a *AI) selectEasy() Coord {
	available := a.available()
	return available[a.rng.Intn(len(available))]
}

// Normal: hunt around active hits, otherwise search on a checkerboard.
func (a *AI) selectNormal() Coord {
	if len(a.activeHits) > 0 {
		if adjacent := a.adjacentUnattacked(); len(adjacent) > 0 {
			return adjacent[a.rng.Intn(len(adjacent))]
		}
	}

	available := a.available()
	checker := make([]Coord, 0, len(available))
	for _, c := range available {
		if (c.Row+c.Col)%2 == 0 {
			checker = append(checker, c)
		}
	}
	if len(checker) > 0 {
		return checker[a.rng.Intn(len(checker))]
	}

	return available[a.rng.Intn(len(available))]
}

// Hard: follow a line of hits, then hunt, then search by placement density.
func (a *AI) selectHard() Coord {
	if len(a.activeHits) >= 2 {
		if c, ok := a.directedTarget(); ok {
			return c
		}
	}

	if len(a.activeHits) > 0 {
		if adjacent := a.adjacentUnattacked(); len(adjacent) > 0 {
			return adjacent[a.rng.Intn(len(adjacent))]
		}
	}

	top := a.rankByDensity()
	if len(top) > hardTopCandidates {
		top = top[:hardTopCandidates]
	}

	return top[a.rng.Intn(len(top))]
}

// Observe records the outcome of a shot the AI fired.
func (a *AI) Observe(c Coord, res AttackResult) {
	a.RegisterAttack(c)
	if !res.Hit {
		a.RegisterMiss(c)
		return
	}
	if res.Duplicate {
		return
	}

	a.RegisterHit(c)
	if res.Sunk && res.Ship != nil {
		a.RegisterSink(res.Ship.Coords())
	}
}

func (a *AI) RegisterAttack(c Coord) {
	a.attacked.Put(c)
}

func (a *AI) RegisterHit(c Coord) {
	a.activeHits = append(a.activeHits, c)
}

func (a *AI) RegisterMiss(c Coord) {
	a.misses.Put(c)
}

// RegisterSink drops the sunk ship's squares from the active hits. With no cells
// every active hit is dropped.
func (a *AI) RegisterSink(cells []Coord) {
	if len(cells) == 0 {
		a.activeHits = nil
		return
	}

	gone := mapset.New[Coord]()
	for _, c := range cells {
		gone.Put(c)
		a.sunk.Put(c)
	}

	kept := a.activeHits[:0]
	for _, h := range a.activeHits {
		if !gone.Has(h) {
			kept = append(kept, h)
		}
	}
	a.activeHits = kept

	for i, l := range a.remaining {
		if l == len(cells) {
			a.remaining = append(a.remaining[:i], a.remaining[i+1:]...)
			break
		}
	}
}

// ActiveHits returns a copy of the hits on ships still afloat.
func (a *AI) ActiveHits() []Coord {
	out := make([]Coord, len(a.activeHits))
	copy(out, a.activeHits)
	return out
}

func (a *AI) Attacked(c Coord) bool {
	return a.attacked.Has(c)
}

// available lists unattacked squares in row-major order.
func (a *AI) available() []Coord {
	out := make([]Coord, 0, GridSize*GridSize-a.attacked.Size())
	for row := 0; row < GridSize; row++ {
		for col := 0; col < GridSize; col++ {
			c := Coord{Row: row, Col: col}
			if !a.attacked.Has(c) {
				out = append(out, c)
			}
		}
	}

	return out
}

// adjacentUnattacked lists unattacked orthogonal neighbours of the active hits,
// without duplicates.
func (a *AI) adjacentUnattacked() []Coord {
	seen := mapset.New[Coord]()
	var out []Coord
	for _, h := range a.activeHits {
		for _, n := range h.neighbours() {
			if a.attacked.Has(n) || seen.Has(n) {
				continue
			}
			seen.Put(n)
			out = append(out, n)
		}
	}

	return out
}

// directedTarget extends a straight line of active hits at either end.
func (a *AI) directedTarget() (Coord, bool) {
	if len(a.activeHits) < 2 {
		return Coord{}, false
	}

	first, last := a.activeHits[0], a.activeHits[0]
	sameRow, sameCol := true, true
	for _, h := range a.activeHits[1:] {
		if h.Row != first.Row {
			sameRow = false
		}
		if h.Col != first.Col {
			sameCol = false
		}
		if h.Row < first.Row || (h.Row == first.Row && h.Col < first.Col) {
			first = h
		}
		if h.Row > last.Row || (h.Row == last.Row && h.Col > last.Col) {
			last = h
		}
	}

	var candidates []Coord
	switch {
	case sameRow:
		candidates = []Coord{{Row: first.Row, Col: first.Col - 1}, {Row: last.Row, Col: last.Col + 1}}
	case sameCol:
		candidates = []Coord{{Row: first.Row - 1, Col: first.Col}, {Row: last.Row + 1, Col: last.Col}}
	}

	valid := candidates[:0]
	for _, c := range candidates {
		if c.InBounds() && !a.attacked.Has(c) {
			valid = append(valid, c)
		}
	}
	if len(valid) == 0 {
		return Coord{}, false
	}

	return valid[a.rng.Intn(len(valid))], true
}
