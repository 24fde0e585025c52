package battle

import (
	"fmt"
	"strconv"
	"strings"
)

const GridSize = 10

// Coord is a zero-based board square.
type Coord struct {
	Row int `json:"row" msgpack:"r"`
	Col int `json:"col" msgpack:"c"`
}

func (c Coord) InBounds() bool {
	return c.Row >= 0 && c.Row < GridSize && c.Col >= 0 && c.Col < GridSize
}

// String renders the board label, column letter then 1-based row: (0,0) is A1.
func (c Coord) String() string {
	return string(rune('A'+c.Col)) + strconv.Itoa(c.Row+1)
}

// ParseCoord reads a board label like "B7" or "j10".
func ParseCoord(label string) (Coord, error) {
	label = strings.ToUpper(strings.TrimSpace(label))
	if len(label) < 2 {
		return Coord{}, fmt.Errorf("bad coordinate %q", label)
	}

	col := int(label[0]) - 'A'
	row, err := strconv.Atoi(label[1:])
	if err != nil {
		return Coord{}, fmt.Errorf("bad coordinate %q: %w", label, err)
	}

	c := Coord{Row: row - 1, Col: col}
	if !c.InBounds() {
		return Coord{}, fmt.Errorf("coordinate %q is off the board", label)
	}

	return c, nil
}

// orthogonal neighbours: up, down, left, right
var directions = [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}

func (c Coord) neighbours() []Coord {
	out := make([]Coord, 0, 4)
	for _, d := range directions {
		n := Coord{Row: c.Row + d[0], Col: c.Col + d[1]}
		if n.InBounds() {
			out = append(out, n)
		}
	}

	return out
}

type Orientation uint8

const (
	Horizontal Orientation = iota
	Vertical
)

func (o Orientation) String() string {
	if o == Vertical {
		return "vertical"
	}

	return "horizontal"
}

func (o Orientation) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *Orientation) UnmarshalText(text []byte) error {
	parsed, err := ParseOrientation(string(text))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// Toggle flips horizontal and vertical.
func (o Orientation) Toggle() Orientation {
	if o == Vertical {
		return Horizontal
	}

	return Vertical
}

// ParseOrientation accepts "horizontal"/"vertical" (or h/v). Anything else is an error.
func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "horizontal", "h", "":
		return Horizontal, nil

	case "vertical", "v":
		return Vertical, nil

	default:
		return Horizontal, fmt.Errorf("unknown orientation %q", s)
	}
}

// ShipCells returns the squares a ship of the given length would cover.
func ShipCells(start Coord, length int, o Orientation) []Coord {
	cells := make([]Coord, 0, length)
	for i := 0; i < length; i++ {
		if o == Horizontal {
			cells = append(cells, Coord{Row: start.Row, Col: start.Col + i})
		} else {
			cells = append(cells, Coord{Row: start.Row + i, Col: start.Col})
		}
	}

	return cells
}

// AdjacentCells returns the one-square buffer ring around a ship, diagonals included.
// Off-board squares are part of the result; callers skip them.
func AdjacentCells(start Coord, length int, o Orientation) []Coord {
	adjacent := make([]Coord, 0, 2*length+6)

	if o == Horizontal {
		for c := start.Col - 1; c <= start.Col+length; c++ {
			adjacent = append(adjacent, Coord{Row: start.Row - 1, Col: c})
		}
		for c := start.Col - 1; c <= start.Col+length; c++ {
			adjacent = append(adjacent, Coord{Row: start.Row + 1, Col: c})
		}
		adjacent = append(adjacent,
			Coord{Row: start.Row, Col: start.Col - 1},
			Coord{Row: start.Row, Col: start.Col + length},
		)

		return adjacent
	}

	for r := start.Row - 1; r <= start.Row+length; r++ {
		adjacent = append(adjacent, Coord{Row: r, Col: start.Col - 1})
	}
	for r := start.Row - 1; r <= start.Row+length; r++ {
		adjacent = append(adjacent, Coord{Row: r, Col: start.Col + 1})
	}
	adjacent = append(adjacent,
		Coord{Row: start.Row - 1, Col: start.Col},
		Coord{Row: start.Row + length, Col: start.Col},
	)

	return adjacent
}
