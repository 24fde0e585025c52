package battle

type ShipType string

const (
	Carrier    ShipType = "CARRIER"
	NuclearSub ShipType = "NUCLEAR_SUB"
	Cruiser    ShipType = "CRUISER"
	AttackSub  ShipType = "ATTACK_SUB"
	Destroyer  ShipType = "DESTROYER"
)

// ShipClass is the static description of a ship type.
type ShipClass struct {
	Type      ShipType `json:"type"`
	Name      string   `json:"name"`
	Length    int      `json:"length"`
	SinkBonus int      `json:"sinkBonus"`
}

// standard fleet, in placement order
var fleetClasses = []ShipClass{
	{Type: Carrier, Name: "Carrier", Length: 5, SinkBonus: 100},
	{Type: NuclearSub, Name: "Nuclear Sub", Length: 3, SinkBonus: 75},
	{Type: Cruiser, Name: "Cruiser", Length: 3, SinkBonus: 75},
	{Type: AttackSub, Name: "Attack Sub", Length: 2, SinkBonus: 50},
	{Type: Destroyer, Name: "Destroyer", Length: 2, SinkBonus: 50},
}

const defaultSinkBonus = 50

// FleetClasses returns the standard fleet in placement order.
func FleetClasses() []ShipClass {
	out := make([]ShipClass, len(fleetClasses))
	copy(out, fleetClasses)
	return out
}

func ClassOf(t ShipType) (ShipClass, bool) {
	for _, c := range fleetClasses {
		if c.Type == t {
			return c, true
		}
	}

	return ShipClass{}, false
}

// SinkBonus is the score for sinking a ship of type t.
func SinkBonus(t ShipType) int {
	if c, ok := ClassOf(t); ok {
		return c.SinkBonus
	}

	return defaultSinkBonus
}

// Segment is one square of a placed ship.
type Segment struct {
	Coord
	Hit bool
}

type Ship struct {
	Type   ShipType
	Name   string
	Length int

	Placed      bool
	Orientation Orientation
	Start       Coord

	Segments []Segment
	Hits     int
	Sunk     bool
}

func NewShip(class ShipClass) *Ship {
	return &Ship{
		Type:   class.Type,
		Name:   class.Name,
		Length: class.Length,
	}
}

// Place puts the ship at start and regenerates its segments, all unhit.
func (s *Ship) Place(start Coord, o Orientation) {
	s.Start = start
	s.Orientation = o
	s.Placed = true
	s.Hits = 0
	s.Sunk = false

	s.Segments = s.Segments[:0]
	for _, c := range ShipCells(start, s.Length, o) {
		s.Segments = append(s.Segments, Segment{Coord: c})
	}
}

func (s *Ship) Unplace() {
	s.Placed = false
	s.Start = Coord{}
	s.Segments = nil
	s.Hits = 0
	s.Sunk = false
}

func (s *Ship) ToggleOrientation() {
	s.Orientation = s.Orientation.Toggle()
}

// CheckHit marks the segment at c as hit. It returns false when c is not part of
// the ship or was already hit.
func (s *Ship) CheckHit(c Coord) bool {
	for i := range s.Segments {
		seg := &s.Segments[i]
		if seg.Coord != c {
			continue
		}
		if seg.Hit {
			return false
		}

		seg.Hit = true
		s.Hits++
		if s.Hits >= s.Length {
			s.Sunk = true
		}

		return true
	}

	return false
}

func (s *Ship) Occupies(c Coord) bool {
	for _, seg := range s.Segments {
		if seg.Coord == c {
			return true
		}
	}

	return false
}

// SegmentHit reports whether the segment at c exists and is hit.
func (s *Ship) SegmentHit(c Coord) bool {
	for _, seg := range s.Segments {
		if seg.Coord == c {
			return seg.Hit
		}
	}

	return false
}

// Coords returns the squares the ship occupies.
func (s *Ship) Coords() []Coord {
	out := make([]Coord, len(s.Segments))
	for i, seg := range s.Segments {
		out[i] = seg.Coord
	}

	return out
}
