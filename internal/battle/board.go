package battle

type CellState string

const (
	CellEmpty   CellState = "empty"
	CellShip    CellState = "ship"
	CellHit     CellState = "hit"
	CellMiss    CellState = "miss"
	CellSunk    CellState = "sunk"
	CellContact CellState = "contact" // sonar saw a ship here
	CellClear   CellState = "clear"   // sonar saw open water here
)

// Board is a client view of one grid, indexed [row][col].
type Board [GridSize][GridSize]CellState

func emptyBoard() Board {
	var b Board
	for row := range b {
		for col := range b[row] {
			b[row][col] = CellEmpty
		}
	}

	return b
}

// PlayerBoard is the player's own waters: ships plus every enemy shot.
func (m *Match) PlayerBoard() Board {
	b := emptyBoard()
	for _, s := range m.player.ships {
		for _, seg := range s.Segments {
			switch {
			case s.Sunk:
				b[seg.Row][seg.Col] = CellSunk
			case seg.Hit:
				b[seg.Row][seg.Col] = CellHit
			default:
				b[seg.Row][seg.Col] = CellShip
			}
		}
	}

	for _, shot := range m.turns.EnemyAttacks {
		if !shot.Hit {
			b[shot.Row][shot.Col] = CellMiss
		}
	}

	return b
}

// EnemyBoard is the enemy waters as the player knows them. Unsunk ships stay
// hidden unless the game is over.
func (m *Match) EnemyBoard() Board {
	b := emptyBoard()
	for _, c := range m.sonar {
		if c.Occupied {
			b[c.Row][c.Col] = CellContact
		} else {
			b[c.Row][c.Col] = CellClear
		}
	}

	for _, shot := range m.turns.PlayerAttacks {
		if shot.Hit {
			b[shot.Row][shot.Col] = CellHit
		} else {
			b[shot.Row][shot.Col] = CellMiss
		}
	}

	for _, s := range m.enemy.ships {
		for _, seg := range s.Segments {
			switch {
			case s.Sunk:
				b[seg.Row][seg.Col] = CellSunk
			case m.phase == PhaseOver && !seg.Hit:
				b[seg.Row][seg.Col] = CellShip
			}
		}
	}

	return b
}
