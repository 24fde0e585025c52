package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/Scrimzay/battleships/internal/battle"
	"github.com/Scrimzay/battleships/internal/scores"
	"github.com/Scrimzay/battleships/internal/session"
	"github.com/Scrimzay/battleships/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const maxMessageSize = 64 << 10

// errorCodes maps rule violations to the codes sent in error events.
var errorCodes = []struct {
	err  error
	code string
}{
	{battle.ErrOutOfBounds, "out_of_bounds"},
	{battle.ErrOverlap, "overlap"},
	{battle.ErrTooClose, "too_close"},
	{battle.ErrWrongPhase, "wrong_phase"},
	{battle.ErrNotYourTurn, "not_your_turn"},
	{battle.ErrOffBoard, "off_board"},
	{battle.ErrAlreadyAttacked, "already_attacked"},
	{battle.ErrFleetIncomplete, "fleet_incomplete"},
	{battle.ErrUnknownShip, "unknown_ship"},
	{battle.ErrShipNotPlaced, "ship_not_placed"},
	{battle.ErrSonarUsed, "sonar_used"},
	{battle.ErrNoNukeCharges, "no_nuke_charges"},
	{battle.ErrBadSnapshot, "bad_snapshot"},
	{battle.ErrPlacementFailed, "placement_failed"},
	{session.ErrNoVictory, "no_victory"},
	{session.ErrScoreSaved, "score_saved"},
	{session.ErrImported, "imported_game"},
	{scores.ErrInvalidEntry, "invalid_entry"},
	{errBadAction, "bad_action"},
	{errUnknownAction, "unknown_action"},
}

var (
	errBadAction     = errors.New("malformed action")
	errUnknownAction = errors.New("unknown action")
)

func errorCode(err error) string {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return "internal"
}

func HandleWebsocket(hub *session.Hub, store *scores.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Println("WS upgrade error:", err)
			return
		}
		conn.SetReadLimit(maxMessageSize)

		s, err := hub.Register(conn)
		if err != nil {
			log.Println("WS register error:", err)
			conn.Close()
			return
		}
		defer hub.Unregister(s)

		h := &actionHandler{hub: hub, store: store, s: s}
		for {
			msgType, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			s.Touch(time.Now())

			var events []any
			switch msgType {
			case websocket.TextMessage:
				events = h.handleText(c.Request.Context(), msg)
			case websocket.BinaryMessage:
				events = h.handleImport(msg)
			}

			if err := h.send(events); err != nil {
				log.Printf("session %s: send error: %v", s.ID, err)
				return
			}
		}
	}
}

// actionHandler turns client actions on one session into events.
type actionHandler struct {
	hub   *session.Hub
	store *scores.Store
	s     *session.Session
}

// exportFrame is a snapshot to send as a binary frame.
type exportFrame []byte

func (h *actionHandler) send(events []any) error {
	for _, ev := range events {
		var err error
		if frame, ok := ev.(exportFrame); ok {
			err = h.s.SendBinary(frame)
		} else {
			err = h.s.Send(ev)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func failure(action string, err error) []any {
	return []any{types.ErrorEvent{
		Event:   types.EventError,
		Action:  action,
		Code:    errorCode(err),
		Message: err.Error(),
	}}
}

func (h *actionHandler) handleText(ctx context.Context, msg []byte) []any {
	var base types.BaseAction
	if err := json.Unmarshal(msg, &base); err != nil {
		log.Printf("session %s: JSON parse error: %v", h.s.ID, err)
		return failure("", errBadAction)
	}

	events, err := h.dispatch(ctx, base.Action, msg)
	if err != nil {
		return failure(base.Action, err)
	}
	return events
}

func decode(msg []byte, v any) error {
	if err := json.Unmarshal(msg, v); err != nil {
		return errBadAction
	}
	return nil
}

func (h *actionHandler) dispatch(ctx context.Context, action string, msg []byte) ([]any, error) {
	switch action {
	case types.ActionNewGame:
		var a types.NewGameAction
		if err := decode(msg, &a); err != nil {
			return nil, err
		}
		d := h.hub.DefaultDifficulty()
		if a.Difficulty != "" {
			d = battle.ParseDifficulty(a.Difficulty)
		}
		h.s.NewGame(d)
		return []any{h.s.State()}, nil

	case types.ActionPlace, types.ActionPreview:
		var a types.PlaceAction
		if err := decode(msg, &a); err != nil {
			return nil, err
		}
		o, err := battle.ParseOrientation(a.Orientation)
		if err != nil {
			return nil, errBadAction
		}
		ship := battle.ShipType(a.Ship)
		start := battle.Coord{Row: a.Row, Col: a.Col}

		if action == types.ActionPreview {
			var preview battle.PlacementPreview
			err := h.s.Do(func(m *battle.Match) error {
				var err error
				preview, err = m.Preview(ship, start, o)
				return err
			})
			if err != nil {
				return nil, err
			}
			return []any{types.PreviewEvent{Event: types.EventPreview, Ship: ship, PlacementPreview: preview}}, nil
		}
		return h.withState(func(m *battle.Match) error { return m.PlaceShip(ship, start, o) })

	case types.ActionRemove, types.ActionRotate:
		var a types.ShipAction
		if err := decode(msg, &a); err != nil {
			return nil, err
		}
		ship := battle.ShipType(a.Ship)
		if action == types.ActionRemove {
			return h.withState(func(m *battle.Match) error { return m.RemoveShip(ship) })
		}
		return h.withState(func(m *battle.Match) error { return m.RotateShip(ship) })

	case types.ActionAutoPlace:
		return h.withState(func(m *battle.Match) error { return m.AutoPlace() })

	case types.ActionStart:
		return h.withState(func(m *battle.Match) error { return m.Start() })

	case types.ActionFire:
		var a types.TargetAction
		if err := decode(msg, &a); err != nil {
			return nil, err
		}
		return h.fire(ctx, battle.Coord{Row: a.Row, Col: a.Col})

	case types.ActionSonar:
		var a types.TargetAction
		if err := decode(msg, &a); err != nil {
			return nil, err
		}
		center := battle.Coord{Row: a.Row, Col: a.Col}
		var contacts []battle.SonarContact
		events, err := h.withState(func(m *battle.Match) error {
			var err error
			contacts, err = m.SonarPing(center)
			return err
		})
		if err != nil {
			return nil, err
		}
		return append([]any{types.SonarEvent{Event: types.EventSonar, Center: center, Contacts: contacts}}, events...), nil

	case types.ActionNuke:
		var a types.NukeAction
		if err := decode(msg, &a); err != nil {
			return nil, err
		}
		return h.nuke(ctx, a.Row)

	case types.ActionState:
		return []any{h.s.State()}, nil

	case types.ActionSaveScore:
		var a types.SaveScoreAction
		if err := decode(msg, &a); err != nil {
			return nil, err
		}
		return h.saveScore(ctx, a.Name)

	case types.ActionExport:
		var data []byte
		err := h.s.Do(func(m *battle.Match) error {
			var err error
			data, err = m.Snapshot().Encode()
			return err
		})
		if err != nil {
			return nil, err
		}
		return []any{exportFrame(data)}, nil

	default:
		return nil, errUnknownAction
	}
}

// withState runs fn on the match and answers with the new state.
func (h *actionHandler) withState(fn func(m *battle.Match) error) ([]any, error) {
	var state types.StateEvent
	err := h.s.Do(func(m *battle.Match) error {
		if err := fn(m); err != nil {
			return err
		}
		state = types.NewState(h.s.ID, m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return []any{state}, nil
}

func (h *actionHandler) fire(ctx context.Context, target battle.Coord) ([]any, error) {
	var (
		shot    types.ShotEvent
		state   types.StateEvent
		summary *battle.Summary
	)
	err := h.s.Do(func(m *battle.Match) error {
		rep, err := m.Fire(target)
		if err != nil {
			return err
		}
		shot = types.PlayerShot(rep, m.Stats().Score)
		if rep.GameOver {
			sum := m.Summary()
			summary = &sum
		}
		state = types.NewState(h.s.ID, m)
		return nil
	})
	if err != nil {
		return nil, err
	}

	events := []any{shot}
	if summary != nil {
		events = append(events, h.gameOver(ctx, *summary))
	}
	return append(events, state), nil
}

func (h *actionHandler) nuke(ctx context.Context, row int) ([]any, error) {
	var (
		report  battle.NukeReport
		state   types.StateEvent
		summary *battle.Summary
	)
	err := h.s.Do(func(m *battle.Match) error {
		var err error
		if report, err = m.RowNuke(row); err != nil {
			return err
		}
		if report.GameOver {
			sum := m.Summary()
			summary = &sum
		}
		state = types.NewState(h.s.ID, m)
		return nil
	})
	if err != nil {
		return nil, err
	}

	events := []any{types.NukeEvent{Event: types.EventNuke, NukeReport: report}}
	if summary != nil {
		events = append(events, h.gameOver(ctx, *summary))
	}
	return append(events, state), nil
}

func (h *actionHandler) gameOver(ctx context.Context, sum battle.Summary) types.GameOverEvent {
	ev := types.GameOverEvent{Event: types.EventGameOver, Summary: sum}
	if sum.Winner != battle.Player || !h.s.Ranked() {
		return ev
	}

	ok, err := h.store.Qualifies(ctx, sum.Total)
	if err != nil {
		log.Printf("session %s: qualify check: %v", h.s.ID, err)
		return ev
	}
	ev.Qualifies = ok
	return ev
}

func (h *actionHandler) saveScore(ctx context.Context, name string) ([]any, error) {
	sum, err := h.s.ClaimScore()
	if err != nil {
		return nil, err
	}

	placement, err := h.store.Add(ctx, scores.HighScore{
		Name:       name,
		Score:      sum.Total,
		Accuracy:   sum.Accuracy,
		Turns:      sum.Turns,
		Difficulty: sum.Difficulty,
	})
	if err != nil {
		h.s.ReleaseScore()
		return nil, err
	}
	log.Printf("session %s: saved score %d for %q (rank %d)", h.s.ID, sum.Total, placement.Entry.Name, placement.Rank)

	return []any{types.ScoreSavedEvent{Event: types.EventScoreSaved, Rank: placement.Rank, Entry: placement.Entry}}, nil
}

// handleImport replaces the session's match with a binary snapshot.
func (h *actionHandler) handleImport(msg []byte) []any {
	snap, err := battle.DecodeSnapshot(msg)
	if err != nil {
		return failure(types.ActionImport, err)
	}
	if err := h.s.Restore(snap); err != nil {
		return failure(types.ActionImport, err)
	}
	log.Printf("session %s: restored %s match in %s phase", h.s.ID, snap.Difficulty, snap.Phase)
	return []any{h.s.State()}
}
