package live

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"github.com/szlgbiliard/biliard-api/internal/constants"
	"github.com/szlgbiliard/biliard-api/internal/service"
)

// Subscription is one connection's mailbox on a match channel.
type Subscription struct {
	ID      string
	matchID uuid.UUID
	send    chan []byte
}

// C is the stream of serialized frames for this subscriber.
func (s *Subscription) C() <-chan []byte { return s.send }

// Hub fans notices out to every subscriber of a match. Sends never block:
// a subscriber whose buffer is full misses the frame and catches up via the
// version carried on the next one.
type Hub struct {
	logger zerolog.Logger

	mu      sync.RWMutex
	matches map[uuid.UUID]map[string]*Subscription
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		logger:  logger.With().Str("component", "hub").Logger(),
		matches: make(map[uuid.UUID]map[string]*Subscription),
	}
}

func (h *Hub) Subscribe(matchID uuid.UUID) *Subscription {
	sub := &Subscription{
		ID:      gonanoid.Must(),
		matchID: matchID,
		send:    make(chan []byte, constants.SendBufferSize),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.matches[matchID]
	if !ok {
		subs = make(map[string]*Subscription)
		h.matches[matchID] = subs
	}
	subs[sub.ID] = sub

	h.logger.Debug().
		Str("match_id", matchID.String()).
		Str("subscription_id", sub.ID).
		Int("subscribers", len(subs)).
		Msg("subscribed")
	return sub
}

func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.matches[sub.matchID]
	if !ok {
		return
	}
	if _, ok := subs[sub.ID]; !ok {
		return
	}
	delete(subs, sub.ID)
	close(sub.send)
	if len(subs) == 0 {
		delete(h.matches, sub.matchID)
	}
}

// Publish implements service.Broadcaster.
func (h *Hub) Publish(matchID uuid.UUID, notice service.Notice) {
	payload, err := json.Marshal(notice)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to marshal notice")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.matches[matchID] {
		select {
		case sub.send <- payload:
		default:
			h.logger.Warn().
				Str("match_id", matchID.String()).
				Str("subscription_id", sub.ID).
				Str("type", notice.Type).
				Msg("subscriber buffer full, frame dropped")
		}
	}
}

// SubscriberCount reports how many connections follow a match.
func (h *Hub) SubscriberCount(matchID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.matches[matchID])
}
