package live

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/szlgbiliard/biliard-api/internal/service"
)

// stateMessage carries the full authoritative view. It opens every
// spectator connection; afterwards clients get lightweight notices and
// re-fetch when the version moves past their cache.
type stateMessage struct {
	Type    string             `json:"type"`
	Version int64              `json:"version"`
	Data    *service.MatchData `json:"data"`
}

const typeMatchState = "match_state"

// SpectatorHandler serves the receive-only match channel. No auth: anyone
// may watch.
type SpectatorHandler struct {
	svc      *service.MatchService
	hub      *Hub
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

func NewSpectatorHandler(svc *service.MatchService, hub *Hub, allowedOrigin string, logger zerolog.Logger) *SpectatorHandler {
	return &SpectatorHandler{
		svc:      svc,
		hub:      hub,
		upgrader: newUpgrader(allowedOrigin),
		logger:   logger.With().Str("component", "spectator_ws").Logger(),
	}
}

func (h *SpectatorHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	matchID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid match id", http.StatusBadRequest)
		return
	}

	// Subscribe before taking the snapshot: a mutation committing in
	// between is buffered here instead of lost. The client compares
	// versions, so notices the snapshot already covers are harmless.
	sub := h.hub.Subscribe(matchID)
	defer h.hub.Unsubscribe(sub)

	// Snapshot before upgrading so an unknown match is a clean 404
	// instead of an instant close.
	data, err := h.svc.GetMatchData(r.Context(), matchID)
	if err != nil {
		http.Error(w, "match not found", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug().Err(err).Msg("upgrade failed")
		return
	}

	initial, err := json.Marshal(stateMessage{Type: typeMatchState, Version: data.StateVersion, Data: data})
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to marshal match state")
		conn.Close()
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, initial); err != nil {
		conn.Close()
		return
	}

	go writePump(conn, sub, h.logger)

	// Spectators send nothing; the read loop only services control frames
	// and notices the peer going away.
	configureReader(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
