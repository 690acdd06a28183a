package live

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/szlgbiliard/biliard-api/internal/apperr"
	"github.com/szlgbiliard/biliard-api/internal/billiard"
	"github.com/szlgbiliard/biliard-api/internal/service"
)

// Command is one referee instruction on the scoring channel. Action decides
// which of the optional fields matter.
type Command struct {
	Action           string              `json:"action"`
	FrameID          *uuid.UUID          `json:"frame_id,omitempty"`
	WinnerID         *uuid.UUID          `json:"winner_id,omitempty"`
	EventID          *uuid.UUID          `json:"event_id,omitempty"`
	Event            *service.EventInput `json:"event,omitempty"`
	Player1BallGroup *billiard.BallGroup `json:"player1_ball_group,omitempty"`
	Player2BallGroup *billiard.BallGroup `json:"player2_ball_group,omitempty"`
}

const (
	ActionStartFrame       = "start_frame"
	ActionEndFrame         = "end_frame"
	ActionCreateEvent      = "create_event"
	ActionRemoveEvent      = "remove_event"
	ActionUndoLastEvent    = "undo_last_event"
	ActionClearFrameEvents = "clear_frame_events"
	ActionSetBallGroups    = "set_ball_groups"
)

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// RefereeHandler serves the bidirectional scoring channel. Routes mounting
// it must enforce referee auth; the handler itself trusts the context.
type RefereeHandler struct {
	svc      *service.MatchService
	hub      *Hub
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

func NewRefereeHandler(svc *service.MatchService, hub *Hub, allowedOrigin string, logger zerolog.Logger) *RefereeHandler {
	return &RefereeHandler{
		svc:      svc,
		hub:      hub,
		upgrader: newUpgrader(allowedOrigin),
		logger:   logger.With().Str("component", "referee_ws").Logger(),
	}
}

func (h *RefereeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	matchID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid match id", http.StatusBadRequest)
		return
	}

	// The referee follows the same broadcast stream as spectators, so a
	// scoring command's effect comes back as a notice. Subscribing before
	// the existence check leaves no window where a mutation goes unseen.
	sub := h.hub.Subscribe(matchID)
	defer h.hub.Unsubscribe(sub)

	if _, err := h.svc.GetMatchData(r.Context(), matchID); err != nil {
		http.Error(w, "match not found", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug().Err(err).Msg("upgrade failed")
		return
	}
	go writePump(conn, sub, h.logger)

	// Commands must outlive any deadline the router put on the upgrade
	// request; each mutation is individually bounded inside the service.
	ctx := context.WithoutCancel(r.Context())

	logger := h.logger.With().Str("match_id", matchID.String()).Logger()
	configureReader(conn)
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug().Err(err).Msg("referee connection dropped")
			}
			return
		}

		var cmd Command
		if err := json.Unmarshal(payload, &cmd); err != nil {
			h.sendError(sub, "malformed command")
			continue
		}
		if err := h.dispatch(ctx, matchID, cmd); err != nil {
			logger.Warn().Err(err).Str("action", cmd.Action).Msg("command rejected")
			h.sendError(sub, err.Error())
		}
	}
}

func (h *RefereeHandler) dispatch(ctx context.Context, matchID uuid.UUID, cmd Command) error {
	switch cmd.Action {
	case ActionStartFrame:
		_, err := h.svc.StartFrame(ctx, matchID)
		return err

	case ActionEndFrame:
		if cmd.FrameID == nil || cmd.WinnerID == nil {
			return apperr.Validation("end_frame needs frame_id and winner_id")
		}
		_, err := h.svc.EndFrame(ctx, *cmd.FrameID, *cmd.WinnerID)
		return err

	case ActionCreateEvent:
		if cmd.FrameID == nil || cmd.Event == nil {
			return apperr.Validation("create_event needs frame_id and event")
		}
		session, err := h.svc.SessionForFrame(ctx, *cmd.FrameID)
		if err != nil {
			return err
		}
		_, err = session.RecordEvent(ctx, *cmd.Event)
		return err

	case ActionRemoveEvent:
		if cmd.EventID == nil {
			return apperr.Validation("remove_event needs event_id")
		}
		return h.svc.RemoveEvent(ctx, *cmd.EventID)

	case ActionUndoLastEvent:
		if cmd.FrameID == nil {
			return apperr.Validation("undo_last_event needs frame_id")
		}
		session, err := h.svc.SessionForFrame(ctx, *cmd.FrameID)
		if err != nil {
			return err
		}
		_, err = session.UndoLastEvent(ctx)
		return err

	case ActionClearFrameEvents:
		if cmd.FrameID == nil {
			return apperr.Validation("clear_frame_events needs frame_id")
		}
		session, err := h.svc.SessionForFrame(ctx, *cmd.FrameID)
		if err != nil {
			return err
		}
		_, err = session.ClearEvents(ctx)
		return err

	case ActionSetBallGroups:
		if cmd.FrameID == nil || cmd.Player1BallGroup == nil || cmd.Player2BallGroup == nil {
			return apperr.Validation("set_ball_groups needs frame_id and both groups")
		}
		session, err := h.svc.SessionForFrame(ctx, *cmd.FrameID)
		if err != nil {
			return err
		}
		return session.SetBallGroups(ctx, *cmd.Player1BallGroup, *cmd.Player2BallGroup)

	default:
		return apperr.Validation("unknown action %q", cmd.Action)
	}
}

// sendError pushes an error frame through the subscriber mailbox so socket
// writes stay on the single writer goroutine.
func (h *RefereeHandler) sendError(sub *Subscription, message string) {
	payload, err := json.Marshal(errorMessage{Type: "error", Message: message})
	if err != nil {
		return
	}
	select {
	case sub.send <- payload:
	default:
	}
}
