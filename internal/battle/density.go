package battle

import (
	"math"
	"sort"
)

const parityBonus = 2.0

type scoredCoord struct {
	Coord
	score float64
}

// placementDensity counts, for every square, how many placements of the ships
// still afloat could cover it. Placements may not touch a known miss, a sunk
// ship or the buffer ring around a sunk ship.
func (a *AI) placementDensity() [GridSize][GridSize]int {
	var blocked [GridSize][GridSize]bool
	for row := 0; row < GridSize; row++ {
		for col := 0; col < GridSize; col++ {
			c := Coord{Row: row, Col: col}
			if a.misses.Has(c) {
				blocked[row][col] = true
			}
			if !a.sunk.Has(c) {
				continue
			}
			for dr := -1; dr <= 1; dr++ {
				for dc := -1; dc <= 1; dc++ {
					n := Coord{Row: row + dr, Col: col + dc}
					if n.InBounds() {
						blocked[n.Row][n.Col] = true
					}
				}
			}
		}
	}

	var density [GridSize][GridSize]int
	for _, length := range a.remaining {
		for row := 0; row < GridSize; row++ {
			for col := 0; col < GridSize; col++ {
				for _, o := range []Orientation{Horizontal, Vertical} {
					cells := ShipCells(Coord{Row: row, Col: col}, length, o)
					if !fits(cells, &blocked) {
						continue
					}
					for _, c := range cells {
						density[c.Row][c.Col]++
					}
				}
			}
		}
	}

	return density
}

func fits(cells []Coord, blocked *[GridSize][GridSize]bool) bool {
	for _, c := range cells {
		if !c.InBounds() || blocked[c.Row][c.Col] {
			return false
		}
	}

	return true
}

// rankByDensity scores every unattacked square, best first. Ties keep
// row-major order.
func (a *AI) rankByDensity() []Coord {
	density := a.placementDensity()

	available := a.available()
	scored := make([]scoredCoord, 0, len(available))
	for _, c := range available {
		score := float64(density[c.Row][c.Col])
		if (c.Row+c.Col)%2 == 0 {
			score += parityBonus
		}
		score += (5 - math.Abs(float64(c.Row)-4.5)) * 0.15
		score += (5 - math.Abs(float64(c.Col)-4.5)) * 0.15
		scored = append(scored, scoredCoord{Coord: c, score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	out := make([]Coord, len(scored))
	for i, s := range scored {
		out[i] = s.Coord
	}

	return out
}
