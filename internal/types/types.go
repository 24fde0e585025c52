// Package types holds the websocket payloads exchanged with the browser.
package types

import (
	"github.com/Scrimzay/battleships/internal/battle"
	"github.com/Scrimzay/battleships/internal/scores"
)

// Client actions.
const (
	ActionNewGame   = "new_game"
	ActionPlace     = "place"
	ActionPreview   = "preview"
	ActionRemove    = "remove"
	ActionRotate    = "rotate"
	ActionAutoPlace = "auto_place"
	ActionStart     = "start"
	ActionFire      = "fire"
	ActionSonar     = "sonar"
	ActionNuke      = "nuke"
	ActionState     = "state"
	ActionSaveScore = "save_score"
	ActionExport    = "export"
	ActionImport    = "import" // binary frame, never sent as text
)

// Server events.
const (
	EventState      = "state"
	EventShot       = "shot"
	EventSonar      = "sonar_result"
	EventNuke       = "nuke_result"
	EventPreview    = "preview"
	EventGameOver   = "game_over"
	EventScoreSaved = "score_saved"
	EventError      = "error"
)

type BaseAction struct {
	Action string `json:"action"`
}

type NewGameAction struct {
	Action     string `json:"action"`
	Difficulty string `json:"difficulty"`
}

// PlaceAction is shared by place and preview.
type PlaceAction struct {
	Action      string `json:"action"`
	Ship        string `json:"ship"`
	Row         int    `json:"row"`
	Col         int    `json:"col"`
	Orientation string `json:"orientation"`
}

// ShipAction is shared by remove and rotate.
type ShipAction struct {
	Action string `json:"action"`
	Ship   string `json:"ship"`
}

// TargetAction is shared by fire and sonar.
type TargetAction struct {
	Action string `json:"action"`
	Row    int    `json:"row"`
	Col    int    `json:"col"`
}

type NukeAction struct {
	Action string `json:"action"`
	Row    int    `json:"row"`
}

type SaveScoreAction struct {
	Action string `json:"action"`
	Name   string `json:"name"`
}

type StateEvent struct {
	Event          string             `json:"event"`
	SessionID      string             `json:"sessionId"`
	Difficulty     battle.Difficulty  `json:"difficulty"`
	Phase          battle.Phase       `json:"phase"`
	Stats          battle.TurnStats   `json:"stats"`
	PlayerBoard    battle.Board       `json:"playerBoard"`
	EnemyBoard     battle.Board       `json:"enemyBoard"`
	PlayerFleet    battle.FleetStats  `json:"playerFleet"`
	EnemyFleet     battle.FleetStats  `json:"enemyFleet"`
	Unplaced       []battle.ShipClass `json:"unplaced"`
	SonarAvailable bool               `json:"sonarAvailable"`
	RowNukeCharges int                `json:"rowNukeCharges"`
}

// NewState describes m as seen by the player of session id.
func NewState(id string, m *battle.Match) StateEvent {
	unplaced := m.UnplacedShips()
	if unplaced == nil {
		unplaced = []battle.ShipClass{}
	}

	return StateEvent{
		Event:          EventState,
		SessionID:      id,
		Difficulty:     m.Difficulty(),
		Phase:          m.Phase(),
		Stats:          m.Stats(),
		PlayerBoard:    m.PlayerBoard(),
		EnemyBoard:     m.EnemyBoard(),
		PlayerFleet:    m.PlayerFleet().Stats(),
		EnemyFleet:     m.EnemyFleet().Stats(),
		Unplaced:       unplaced,
		SonarAvailable: m.SonarAvailable(),
		RowNukeCharges: m.RowNukeCharges(),
	}
}

// ShotEvent reports one shot by either side.
type ShotEvent struct {
	Event         string          `json:"event"`
	Side          battle.Side     `json:"side"`
	Row           int             `json:"row"`
	Col           int             `json:"col"`
	Hit           bool            `json:"hit"`
	Sunk          bool            `json:"sunk"`
	Ship          battle.ShipType `json:"ship,omitempty"`
	SunkCells     []battle.Coord  `json:"sunkCells,omitempty"`
	ChainBonus    int             `json:"chainBonus,omitempty"`
	RowNukeEarned bool            `json:"rowNukeEarned,omitempty"`
	TurnPassed    bool            `json:"turnPassed"`
	Score         int             `json:"score"`
}

func PlayerShot(r battle.FireReport, score int) ShotEvent {
	return ShotEvent{
		Event:         EventShot,
		Side:          battle.Player,
		Row:           r.Row,
		Col:           r.Col,
		Hit:           r.Hit,
		Sunk:          r.Sunk,
		Ship:          r.Ship,
		SunkCells:     r.SunkCells,
		ChainBonus:    r.Outcome.ChainBonus,
		RowNukeEarned: r.Outcome.RowNukeEarned,
		TurnPassed:    r.TurnPassed,
		Score:         score,
	}
}

func EnemyShot(r battle.EnemyReport, score int) ShotEvent {
	return ShotEvent{
		Event:      EventShot,
		Side:       battle.Enemy,
		Row:        r.Row,
		Col:        r.Col,
		Hit:        r.Hit,
		Sunk:       r.Sunk,
		Ship:       r.Ship,
		TurnPassed: r.TurnPassed,
		Score:      score,
	}
}

type SonarEvent struct {
	Event    string                `json:"event"`
	Center   battle.Coord          `json:"center"`
	Contacts []battle.SonarContact `json:"contacts"`
}

type NukeEvent struct {
	Event string `json:"event"`
	battle.NukeReport
}

type PreviewEvent struct {
	Event string          `json:"event"`
	Ship  battle.ShipType `json:"ship"`
	battle.PlacementPreview
}

type GameOverEvent struct {
	Event string `json:"event"`
	battle.Summary
	Qualifies bool `json:"qualifies"` // a player win that would make the high-score table
}

type ScoreSavedEvent struct {
	Event string           `json:"event"`
	Rank  int              `json:"rank"`
	Entry scores.HighScore `json:"entry"`
}

type ErrorEvent struct {
	Event   string `json:"event"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
