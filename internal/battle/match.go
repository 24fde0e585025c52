package battle

import (
	"errors"
	"fmt"
	"math/rand"
)

type Phase string

const (
	PhaseSetup  Phase = "SETUP"
	PhaseBattle Phase = "BATTLE"
	PhaseOver   Phase = "OVER"
)

var (
	ErrWrongPhase      = errors.New("action not allowed in this phase")
	ErrNotYourTurn     = errors.New("not your turn")
	ErrOffBoard        = errors.New("square is off the board")
	ErrAlreadyAttacked = errors.New("square already attacked")
	ErrFleetIncomplete = errors.New("fleet is not complete")
	ErrUnknownShip     = errors.New("unknown ship type")
	ErrShipNotPlaced   = errors.New("ship is not placed")
	ErrSonarUsed       = errors.New("sonar ping already used")
	ErrNoNukeCharges   = errors.New("no row nuke charges")
)

// Match is a single player-versus-AI game. It is not safe for concurrent use.
type Match struct {
	difficulty Difficulty
	phase      Phase

	player *Fleet
	enemy  *Fleet
	ai     *AI
	turns  *Turns

	sonar []SonarContact
}

func NewMatch(d Difficulty, rng *rand.Rand) *Match {
	return &Match{
		difficulty: d,
		phase:      PhaseSetup,
		player:     NewFleet(),
		enemy:      NewFleet(),
		ai:         NewAI(d, rng),
		turns:      NewTurns(),
	}
}

func (m *Match) Difficulty() Difficulty { return m.difficulty }
func (m *Match) Phase() Phase           { return m.phase }
func (m *Match) CurrentTurn() Side      { return m.turns.Current }
func (m *Match) Stats() TurnStats       { return m.turns.Stats() }
func (m *Match) PlayerFleet() *Fleet    { return m.player }
func (m *Match) EnemyFleet() *Fleet     { return m.enemy }
func (m *Match) RowNukeCharges() int    { return m.turns.RowNukeCharges }
func (m *Match) SonarAvailable() bool   { return m.turns.SonarAvailable() }

// --- setup ---

// PlaceShip puts (or moves) the player's ship of type t. A failed move leaves
// the ship where it was.
func (m *Match) PlaceShip(t ShipType, start Coord, o Orientation) error {
	if m.phase != PhaseSetup {
		return ErrWrongPhase
	}
	class, ok := ClassOf(t)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownShip, t)
	}

	ship := m.player.ShipOfType(t)
	if ship == nil {
		return m.player.PlaceShip(NewShip(class), start, o)
	}

	oldStart, oldOrientation := ship.Start, ship.Orientation
	m.player.RemoveShip(ship)
	if err := m.player.PlaceShip(ship, start, o); err != nil {
		if restoreErr := m.player.PlaceShip(ship, oldStart, oldOrientation); restoreErr != nil {
			return fmt.Errorf("restore %s: %w", t, restoreErr)
		}
		return err
	}

	return nil
}

func (m *Match) RemoveShip(t ShipType) error {
	if m.phase != PhaseSetup {
		return ErrWrongPhase
	}
	if _, ok := ClassOf(t); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownShip, t)
	}
	if !m.player.RemoveShip(m.player.ShipOfType(t)) {
		return ErrShipNotPlaced
	}

	return nil
}

// RotateShip toggles a placed ship's orientation around its start square.
func (m *Match) RotateShip(t ShipType) error {
	if m.phase != PhaseSetup {
		return ErrWrongPhase
	}
	ship := m.player.ShipOfType(t)
	if ship == nil {
		if _, ok := ClassOf(t); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownShip, t)
		}
		return ErrShipNotPlaced
	}

	return m.PlaceShip(t, ship.Start, ship.Orientation.Toggle())
}

// Preview checks a placement for ship type t, ignoring the ship's own current spot.
func (m *Match) Preview(t ShipType, start Coord, o Orientation) (PlacementPreview, error) {
	class, ok := ClassOf(t)
	if !ok {
		return PlacementPreview{}, fmt.Errorf("%w: %q", ErrUnknownShip, t)
	}

	ship := m.player.ShipOfType(t)
	if ship == nil {
		return m.player.Preview(start, class.Length, o), nil
	}

	oldStart, oldOrientation := ship.Start, ship.Orientation
	m.player.RemoveShip(ship)
	preview := m.player.Preview(start, class.Length, o)
	if err := m.player.PlaceShip(ship, oldStart, oldOrientation); err != nil {
		return preview, fmt.Errorf("restore %s: %w", t, err)
	}

	return preview, nil
}

// UnplacedShips lists the classes the player still has to place.
func (m *Match) UnplacedShips() []ShipClass {
	var out []ShipClass
	for _, c := range fleetClasses {
		if m.player.ShipOfType(c.Type) == nil {
			out = append(out, c)
		}
	}

	return out
}

// AutoPlace replaces the player's fleet with a random valid one.
func (m *Match) AutoPlace() error {
	if m.phase != PhaseSetup {
		return ErrWrongPhase
	}

	m.player.Reset()
	return m.ai.PlaceFleet(m.player)
}

// Start places the enemy fleet and opens fire. The player shoots first.
func (m *Match) Start() error {
	if m.phase != PhaseSetup {
		return ErrWrongPhase
	}
	if !m.player.Complete() {
		return ErrFleetIncomplete
	}

	m.enemy.Reset()
	if err := m.ai.PlaceFleet(m.enemy); err != nil {
		return fmt.Errorf("enemy fleet: %w", err)
	}

	m.turns.Reset()
	m.phase = PhaseBattle
	return nil
}

// --- battle ---

// FireReport is the result of one player shot.
type FireReport struct {
	Shot
	Ship       ShipType            `json:"ship,omitempty"` // set when the shot sank a ship
	SunkCells  []Coord             `json:"sunkCells,omitempty"`
	Outcome    PlayerAttackOutcome `json:"outcome"`
	TurnPassed bool                `json:"turnPassed"`
	GameOver   bool                `json:"gameOver"`
	Winner     Side                `json:"winner,omitempty"`
}

// EnemyReport is the result of one AI shot.
type EnemyReport struct {
	Shot
	Ship       ShipType `json:"ship,omitempty"` // set on any hit, the player's own ship
	TurnPassed bool     `json:"turnPassed"`
	GameOver   bool     `json:"gameOver"`
	Winner     Side     `json:"winner,omitempty"`
}

func (m *Match) playerMayAct() error {
	if m.phase != PhaseBattle {
		return ErrWrongPhase
	}
	if m.turns.Current != Player {
		return ErrNotYourTurn
	}

	return nil
}

// Fire resolves a player shot at c. A miss hands the turn to the enemy.
func (m *Match) Fire(c Coord) (FireReport, error) {
	if err := m.playerMayAct(); err != nil {
		return FireReport{}, err
	}
	if !c.InBounds() {
		return FireReport{}, ErrOffBoard
	}
	if m.turns.PlayerAlreadyAttacked(c) {
		return FireReport{}, ErrAlreadyAttacked
	}

	res := m.enemy.ReceiveAttack(c)
	outcome := m.turns.ProcessPlayerAttack(c, res)
	if !outcome.Valid {
		return FireReport{}, ErrAlreadyAttacked
	}

	report := FireReport{Shot: Shot{Coord: c, Hit: res.Hit, Sunk: res.Sunk}, Outcome: outcome}
	if res.Sunk && res.Ship != nil {
		report.Ship = res.Ship.Type
		report.SunkCells = res.Ship.Coords()
	}

	switch {
	case m.enemy.Destroyed():
		m.finish(Player)
	case !res.Hit:
		m.turns.SwitchToEnemy()
		report.TurnPassed = true
	}
	report.GameOver, report.Winner = m.turns.GameOver, m.turns.Winner

	return report, nil
}

// EnemyShot plays one AI shot. A hit keeps the turn with the enemy.
func (m *Match) EnemyShot() (EnemyReport, error) {
	if m.phase != PhaseBattle {
		return EnemyReport{}, ErrWrongPhase
	}
	if m.turns.Current != Enemy {
		return EnemyReport{}, ErrNotYourTurn
	}

	c, ok := m.ai.SelectTarget()
	if !ok {
		return EnemyReport{}, errors.New("enemy has no squares left to attack")
	}

	res := m.player.ReceiveAttack(c)
	m.ai.Observe(c, res)
	m.turns.ProcessEnemyAttack(c, res)

	report := EnemyReport{Shot: Shot{Coord: c, Hit: res.Hit, Sunk: res.Sunk}}
	if res.Ship != nil {
		report.Ship = res.Ship.Type
	}

	switch {
	case m.player.Destroyed():
		m.finish(Enemy)
	case !res.Hit:
		m.turns.SwitchToPlayer()
		report.TurnPassed = true
	}
	report.GameOver, report.Winner = m.turns.GameOver, m.turns.Winner

	return report, nil
}

// SonarContact is one square revealed by a sonar ping.
type SonarContact struct {
	Coord
	Occupied bool `json:"occupied"`
}

// SonarPing reveals the 3x3 zone centred on c, clipped to the board. It is
// available once per game, is not a shot and does not end the turn.
func (m *Match) SonarPing(c Coord) ([]SonarContact, error) {
	if err := m.playerMayAct(); err != nil {
		return nil, err
	}
	if !c.InBounds() {
		return nil, ErrOffBoard
	}
	if m.turns.SonarUsed {
		return nil, ErrSonarUsed
	}

	var contacts []SonarContact
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			n := Coord{Row: c.Row + dr, Col: c.Col + dc}
			if !n.InBounds() {
				continue
			}
			contacts = append(contacts, SonarContact{Coord: n, Occupied: m.enemy.ShipAt(n) != nil})
		}
	}

	m.turns.SonarUsed = true
	m.sonar = append(m.sonar, contacts...)

	return contacts, nil
}

// NukeReport is the result of a Row Nuke.
type NukeReport struct {
	Row           int        `json:"row"`
	Strikes       []Shot     `json:"strikes"`
	Sunk          []ShipType `json:"sunk,omitempty"`
	SunkCells     [][]Coord  `json:"sunkCells,omitempty"`
	Points        int        `json:"points"`
	RowNukeEarned bool       `json:"rowNukeEarned"`
	GameOver      bool       `json:"gameOver"`
	Winner        Side       `json:"winner,omitempty"`
}

// RowNuke spends a charge to strike every square of row the player has not
// attacked yet. The player keeps the turn.
func (m *Match) RowNuke(row int) (NukeReport, error) {
	if err := m.playerMayAct(); err != nil {
		return NukeReport{}, err
	}
	if row < 0 || row >= GridSize {
		return NukeReport{}, ErrOffBoard
	}
	if m.turns.RowNukeCharges <= 0 {
		return NukeReport{}, ErrNoNukeCharges
	}

	var targets []Coord
	for col := 0; col < GridSize; col++ {
		if c := (Coord{Row: row, Col: col}); !m.turns.PlayerAlreadyAttacked(c) {
			targets = append(targets, c)
		}
	}
	if len(targets) == 0 {
		return NukeReport{}, ErrAlreadyAttacked
	}

	m.turns.RowNukeCharges--
	report := NukeReport{Row: row, Strikes: []Shot{}}
	before := m.turns.Score
	for _, c := range targets {
		res := m.enemy.ReceiveAttack(c)
		if m.turns.ProcessStrike(c, res) {
			report.RowNukeEarned = true
		}
		report.Strikes = append(report.Strikes, Shot{Coord: c, Hit: res.Hit, Sunk: res.Sunk})
		if res.Sunk && res.Ship != nil && !res.Duplicate {
			report.Sunk = append(report.Sunk, res.Ship.Type)
			report.SunkCells = append(report.SunkCells, res.Ship.Coords())
		}
	}
	report.Points = m.turns.Score - before

	if m.enemy.Destroyed() {
		m.finish(Player)
	}
	report.GameOver, report.Winner = m.turns.GameOver, m.turns.Winner

	return report, nil
}

func (m *Match) finish(winner Side) {
	m.turns.SetGameOver(winner)
	m.phase = PhaseOver
}

// Summary is the end-of-game report.
type Summary struct {
	ScoreBreakdown
	Winner              Side       `json:"winner"`
	Difficulty          Difficulty `json:"difficulty"`
	PlayerShipsLost     int        `json:"playerShipsLost"`
	EnemyShipsRemaining int        `json:"enemyShipsRemaining"`
}

func (m *Match) Summary() Summary {
	return Summary{
		ScoreBreakdown:      m.turns.FinalScore(),
		Winner:              m.turns.Winner,
		Difficulty:          m.difficulty,
		PlayerShipsLost:     m.player.Stats().SunkShips,
		EnemyShipsRemaining: m.enemy.Stats().ShipsRemaining,
	}
}
