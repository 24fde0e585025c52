package battle

import "errors"

var (
	ErrOutOfBounds = errors.New("ship extends beyond grid boundary")
	ErrOverlap     = errors.New("ship overlaps with another ship")
	ErrTooClose    = errors.New("ship too close to another ship (minimum 1 square spacing required)")
)

// Grid is the occupancy layer of a fleet: nil for open water.
type Grid [GridSize][GridSize]*Ship

func (g *Grid) at(c Coord) *Ship {
	if !c.InBounds() {
		return nil
	}

	return g[c.Row][c.Col]
}

// ValidatePlacement checks bounds, overlap and the adjacency buffer, in that order.
func ValidatePlacement(g *Grid, start Coord, length int, o Orientation) error {
	if length <= 0 || !start.InBounds() {
		return ErrOutOfBounds
	}
	if o == Horizontal && start.Col+length > GridSize {
		return ErrOutOfBounds
	}
	if o == Vertical && start.Row+length > GridSize {
		return ErrOutOfBounds
	}

	for _, c := range ShipCells(start, length, o) {
		if g[c.Row][c.Col] != nil {
			return ErrOverlap
		}
	}

	for _, c := range AdjacentCells(start, length, o) {
		if g.at(c) != nil {
			return ErrTooClose
		}
	}

	return nil
}

// PlacementPreview describes a prospective placement without committing it.
type PlacementPreview struct {
	Valid  bool    `json:"valid"`
	Reason string  `json:"reason"`
	Cells  []Coord `json:"cells"`
}
