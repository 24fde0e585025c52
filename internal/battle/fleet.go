package battle

// AttackResult is the outcome of one shot against a fleet.
type AttackResult struct {
	Hit       bool
	Ship      *Ship
	Sunk      bool
	Duplicate bool
}

// FleetStats is a summary of a fleet's health.
type FleetStats struct {
	TotalShips      int  `json:"totalShips"`
	SunkShips       int  `json:"sunkShips"`
	ShipsRemaining  int  `json:"shipsRemaining"`
	TotalHits       int  `json:"totalHits"`
	TotalHealth     int  `json:"totalHealth"`
	HealthRemaining int  `json:"healthRemaining"`
	IsDestroyed     bool `json:"isDestroyed"`
}

// Fleet is one side's ships and the grid they sit on.
type Fleet struct {
	grid  Grid
	ships []*Ship
}

func NewFleet() *Fleet {
	return &Fleet{}
}

// PlaceShip validates and commits a placement.
func (f *Fleet) PlaceShip(s *Ship, start Coord, o Orientation) error {
	if err := ValidatePlacement(&f.grid, start, s.Length, o); err != nil {
		return err
	}

	s.Place(start, o)
	for _, seg := range s.Segments {
		f.grid[seg.Row][seg.Col] = s
	}
	f.ships = append(f.ships, s)

	return nil
}

// RemoveShip lifts a placed ship off the grid. False if it was not placed.
func (f *Fleet) RemoveShip(s *Ship) bool {
	if s == nil || !s.Placed {
		return false
	}

	for _, seg := range s.Segments {
		if f.grid[seg.Row][seg.Col] == s {
			f.grid[seg.Row][seg.Col] = nil
		}
	}
	s.Unplace()

	for i, other := range f.ships {
		if other == s {
			f.ships = append(f.ships[:i], f.ships[i+1:]...)
			break
		}
	}

	return true
}

// ShipAt returns the ship on c, nil for open water or off-board squares.
func (f *Fleet) ShipAt(c Coord) *Ship {
	return f.grid.at(c)
}

// ShipOfType returns the placed ship of type t, if any.
func (f *Fleet) ShipOfType(t ShipType) *Ship {
	for _, s := range f.ships {
		if s.Type == t {
			return s
		}
	}

	return nil
}

// ReceiveAttack resolves a shot on c.
func (f *Fleet) ReceiveAttack(c Coord) AttackResult {
	s := f.ShipAt(c)
	if s == nil {
		return AttackResult{}
	}

	if s.SegmentHit(c) {
		return AttackResult{Hit: true, Ship: s, Sunk: s.Sunk, Duplicate: true}
	}

	hit := s.CheckHit(c)
	return AttackResult{Hit: hit, Ship: s, Sunk: s.Sunk}
}

// Destroyed is true once the fleet has ships and every one of them is sunk.
func (f *Fleet) Destroyed() bool {
	if len(f.ships) == 0 {
		return false
	}

	for _, s := range f.ships {
		if !s.Sunk {
			return false
		}
	}

	return true
}

// Complete reports whether every class of the standard fleet has been placed.
func (f *Fleet) Complete() bool {
	if len(f.ships) != len(fleetClasses) {
		return false
	}

	for _, c := range fleetClasses {
		if f.ShipOfType(c.Type) == nil {
			return false
		}
	}

	return true
}

// Ships returns a copy of the ship list.
func (f *Fleet) Ships() []*Ship {
	out := make([]*Ship, len(f.ships))
	copy(out, f.ships)
	return out
}

func (f *Fleet) Stats() FleetStats {
	st := FleetStats{TotalShips: len(f.ships)}
	for _, s := range f.ships {
		if s.Sunk {
			st.SunkShips++
		}
		st.TotalHits += s.Hits
		st.TotalHealth += s.Length
	}
	st.ShipsRemaining = st.TotalShips - st.SunkShips
	st.HealthRemaining = st.TotalHealth - st.TotalHits
	st.IsDestroyed = f.Destroyed()

	return st
}

// Reset unplaces every ship and clears the grid.
func (f *Fleet) Reset() {
	for _, s := range f.ships {
		s.Unplace()
	}
	f.ships = nil
	f.grid = Grid{}
}

// Preview validates a prospective placement; cells are only filled in when valid.
func (f *Fleet) Preview(start Coord, length int, o Orientation) PlacementPreview {
	if err := ValidatePlacement(&f.grid, start, length, o); err != nil {
		return PlacementPreview{Valid: false, Reason: err.Error(), Cells: []Coord{}}
	}

	return PlacementPreview{Valid: true, Cells: ShipCells(start, length, o)}
}
