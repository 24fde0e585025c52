package battle

import "math"

type Side string

const (
	Player Side = "PLAYER"
	Enemy  Side = "ENEMY"
)

const (
	HitPoints          = 10
	chainThreshold     = 3
	sinksPerNukeCharge = 2
)

// Shot is one entry in an attack history.
type Shot struct {
	Coord
	Hit  bool `json:"hit"`
	Sunk bool `json:"sunk"`
}

// PlayerAttackOutcome is what a processed player shot earned.
type PlayerAttackOutcome struct {
	Valid         bool `json:"valid"`
	BonusTurn     bool `json:"bonusTurn"`
	ChainBonus    int  `json:"chainBonus"`
	RowNukeEarned bool `json:"rowNukeEarned"`
}

// ScoreBreakdown is the end-of-game score.
type ScoreBreakdown struct {
	Total           int `json:"total"`
	BaseScore       int `json:"baseScore"`
	Accuracy        int `json:"accuracy"`
	AccuracyBonus   int `json:"accuracyBonus"`
	EfficiencyBonus int `json:"efficiencyBonus"`
	Turns           int `json:"turns"`
	Hits            int `json:"hits"`
	Shots           int `json:"shots"`
}

// TurnStats is the live scoreboard.
type TurnStats struct {
	Score       int  `json:"score"`
	Turns       int  `json:"turns"`
	Shots       int  `json:"shots"`
	Hits        int  `json:"hits"`
	Accuracy    int  `json:"accuracy"`
	CurrentTurn Side `json:"currentTurn"`
	GameOver    bool `json:"gameOver"`
	Winner      Side `json:"winner,omitempty"`
}

// Turns tracks whose turn it is, the player's score and the end of the game.
type Turns struct {
	Current  Side
	GameOver bool
	Winner   Side

	Score      int
	TotalShots int
	TotalHits  int
	TurnCount  int // misses that ended a player round

	PlayerAttacks []Shot
	EnemyAttacks  []Shot

	SonarUsed        bool
	RowNukeCharges   int
	ConsecutiveHits  int
	ConsecutiveSinks int
}

func NewTurns() *Turns {
	t := &Turns{}
	t.Reset()
	return t
}

func (t *Turns) Reset() {
	*t = Turns{Current: Player}
}

// ProcessPlayerAttack scores a resolved player shot. Duplicates are rejected and
// change nothing.
func (t *Turns) ProcessPlayerAttack(c Coord, res AttackResult) PlayerAttackOutcome {
	if res.Duplicate {
		return PlayerAttackOutcome{}
	}

	t.PlayerAttacks = append(t.PlayerAttacks, Shot{Coord: c, Hit: res.Hit, Sunk: res.Sunk})
	t.TotalShots++

	earned := false
	if res.Hit {
		t.TotalHits++
		t.ConsecutiveHits++
		earned = t.scoreHit(res)
	} else {
		t.TurnCount++
		t.ConsecutiveHits = 0
		t.ConsecutiveSinks = 0
	}

	chain := t.ChainBonus()
	t.Score += chain

	return PlayerAttackOutcome{Valid: true, BonusTurn: res.Hit, ChainBonus: chain, RowNukeEarned: earned}
}

// scoreHit adds hit and sink points and reports whether a Row Nuke charge was earned.
func (t *Turns) scoreHit(res AttackResult) bool {
	t.Score += HitPoints
	if !res.Sunk || res.Ship == nil {
		return false
	}

	t.Score += SinkBonus(res.Ship.Type)
	t.ConsecutiveSinks++
	if t.ConsecutiveSinks == sinksPerNukeCharge {
		t.RowNukeCharges++
		t.ConsecutiveSinks = 0
		return true
	}

	return false
}

// ProcessStrike records a Row Nuke strike. Hits and sinks score and sinks count
// toward the next charge, but shots, turns and the chain are untouched.
func (t *Turns) ProcessStrike(c Coord, res AttackResult) bool {
	if res.Duplicate {
		return false
	}

	t.PlayerAttacks = append(t.PlayerAttacks, Shot{Coord: c, Hit: res.Hit, Sunk: res.Sunk})
	if !res.Hit {
		return false
	}

	return t.scoreHit(res)
}

// ChainMultiplier is 2x for 3-4 consecutive hits, 3x for 5-6, 4x for 7+, else 1.
func (t *Turns) ChainMultiplier() int {
	switch {
	case t.ConsecutiveHits >= 7:
		return 4
	case t.ConsecutiveHits >= 5:
		return 3
	case t.ConsecutiveHits >= chainThreshold:
		return 2
	default:
		return 1
	}
}

func (t *Turns) ChainBonus() int {
	if t.ConsecutiveHits < chainThreshold {
		return 0
	}

	return HitPoints * t.ChainMultiplier()
}

// ProcessEnemyAttack records an AI shot; a hit grants the AI another shot.
func (t *Turns) ProcessEnemyAttack(c Coord, res AttackResult) bool {
	t.EnemyAttacks = append(t.EnemyAttacks, Shot{Coord: c, Hit: res.Hit, Sunk: res.Sunk})
	return res.Hit
}

func (t *Turns) PlayerAlreadyAttacked(c Coord) bool {
	for _, a := range t.PlayerAttacks {
		if a.Coord == c {
			return true
		}
	}

	return false
}

func (t *Turns) SwitchToEnemy() {
	t.Current = Enemy
}

func (t *Turns) SwitchToPlayer() {
	t.Current = Player
}

func (t *Turns) SetGameOver(winner Side) {
	t.GameOver = true
	t.Winner = winner
}

func (t *Turns) SonarAvailable() bool {
	return !t.SonarUsed
}

func (t *Turns) accuracy() float64 {
	if t.TotalShots == 0 {
		return 0
	}

	return float64(t.TotalHits) / float64(t.TotalShots) * 100
}

// FinalScore adds the accuracy and efficiency bonuses to the running score.
func (t *Turns) FinalScore() ScoreBreakdown {
	acc := t.accuracy()
	accBonus := int(math.Round(acc / 100 * 50))

	efficiency := 0
	switch {
	case t.TurnCount < 30:
		efficiency = 200
	case t.TurnCount < 50:
		efficiency = 100
	case t.TurnCount < 70:
		efficiency = 50
	}

	return ScoreBreakdown{
		Total:           t.Score + accBonus + efficiency,
		BaseScore:       t.Score,
		Accuracy:        int(math.Round(acc)),
		AccuracyBonus:   accBonus,
		EfficiencyBonus: efficiency,
		Turns:           t.TurnCount,
		Hits:            t.TotalHits,
		Shots:           t.TotalShots,
	}
}

func (t *Turns) Stats() TurnStats {
	return TurnStats{
		Score:       t.Score,
		Turns:       t.TurnCount,
		Shots:       t.TotalShots,
		Hits:        t.TotalHits,
		Accuracy:    int(math.Round(t.accuracy())),
		CurrentTurn: t.Current,
		GameOver:    t.GameOver,
		Winner:      t.Winner,
	}
}
