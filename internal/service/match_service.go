package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/szlgbiliard/biliard-api/internal/apperr"
	"github.com/szlgbiliard/biliard-api/internal/billiard"
	"github.com/szlgbiliard/biliard-api/internal/constants"
	"github.com/szlgbiliard/biliard-api/internal/scoring"
	"github.com/szlgbiliard/biliard-api/internal/store"
)

// Notice is a state-change notification fanned out to a match's
// subscribers. It carries a version instead of a payload: subscribers
// re-fetch authoritative state when the version is ahead of their cache.
type Notice struct {
	Type    string `json:"type"`
	Version int64  `json:"version,omitempty"`
	Count   int64  `json:"count,omitempty"`
	Message string `json:"message,omitempty"`
}

const (
	NoticeMatchUpdate        = "match_update"
	NoticeFrameUpdate        = "frame_update"
	NoticeEventCreated       = "event_created"
	NoticeEventRemoved       = "event_removed"
	NoticeEventsRemoved      = "events_removed"
	NoticeFrameEventsCleared = "frame_events_cleared"
)

// Broadcaster pushes notices to every subscriber of a match. Implementations
// must not block the caller on slow subscribers.
type Broadcaster interface {
	Publish(matchID uuid.UUID, notice Notice)
}

// NopBroadcaster satisfies Broadcaster for tests and offline tooling.
type NopBroadcaster struct{}

func (NopBroadcaster) Publish(uuid.UUID, Notice) {}

// MatchService is the single logical writer for every match: all mutations
// of a match id serialize on its lock and run validate -> mutate -> persist
// -> publish to completion before the next command is accepted.
type MatchService struct {
	db          *sqlx.DB
	matches     *store.MatchStore
	frames      *store.FrameStore
	events      *store.EventStore
	profiles    *store.ProfileStore
	broadcaster Broadcaster
	logger      zerolog.Logger

	mu         sync.Mutex
	matchLocks map[uuid.UUID]*sync.Mutex
}

func NewMatchService(db *sqlx.DB, broadcaster Broadcaster, logger zerolog.Logger) *MatchService {
	return &MatchService{
		db:          db,
		matches:     store.NewMatchStore(db),
		frames:      store.NewFrameStore(db),
		events:      store.NewEventStore(db),
		profiles:    store.NewProfileStore(db),
		broadcaster: broadcaster,
		logger:      logger.With().Str("component", "match_service").Logger(),
		matchLocks:  make(map[uuid.UUID]*sync.Mutex),
	}
}

func (s *MatchService) lockFor(matchID uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.matchLocks[matchID]
	if !ok {
		lock = &sync.Mutex{}
		s.matchLocks[matchID] = lock
	}
	return lock
}

// mutate runs fn inside a bounded-timeout transaction while holding the
// match lock. Commit failures surface as transient errors with no partial
// state visible; notices queued by fn are published only after the commit.
func (s *MatchService) mutate(ctx context.Context, matchID uuid.UUID, fn func(ctx context.Context, tx *sqlx.Tx, notify func(Notice)) error) error {
	lock := s.lockFor(matchID)
	lock.Lock()
	defer lock.Unlock()

	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperr.Transient("failed to begin transaction", err)
	}
	defer tx.Rollback()

	var notices []Notice
	notify := func(n Notice) { notices = append(notices, n) }

	if err := fn(ctx, tx, notify); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return apperr.Transient("failed to commit transaction", err)
	}

	for _, n := range notices {
		s.broadcaster.Publish(matchID, n)
	}
	return nil
}

func mapRowErr(err error, what, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("%s %s not found", what, id)
	}
	return apperr.Transient("failed to load "+what, err)
}

type CreateMatchInput struct {
	Player1ID    uuid.UUID  `json:"player1_id"`
	Player2ID    uuid.UUID  `json:"player2_id"`
	FramesToWin  int        `json:"frames_to_win"`
	MatchDate    *time.Time `json:"match_date,omitempty"`
	BroadcastURL *string    `json:"broadcastURL,omitempty"`
}

func (s *MatchService) CreateMatch(ctx context.Context, input CreateMatchInput) (*billiard.Match, error) {
	if input.FramesToWin < 1 {
		return nil, apperr.Validation("frames_to_win must be at least 1")
	}
	if input.Player1ID == input.Player2ID {
		return nil, apperr.Validation("a match needs two distinct players")
	}

	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	for _, playerID := range []uuid.UUID{input.Player1ID, input.Player2ID} {
		if _, err := s.profiles.GetProfile(ctx, playerID); err != nil {
			return nil, mapRowErr(err, "profile", playerID.String())
		}
	}

	match := &billiard.Match{
		ID:           uuid.New(),
		Player1ID:    input.Player1ID,
		Player2ID:    input.Player2ID,
		FramesToWin:  input.FramesToWin,
		MatchDate:    input.MatchDate,
		BroadcastURL: input.BroadcastURL,
	}
	if err := s.matches.CreateMatch(ctx, match); err != nil {
		return nil, apperr.Transient("failed to create match", err)
	}
	return match, nil
}

// MatchData is the full authoritative view: the hydrated match plus the
// derived scoreboard, recomputed from persisted state on every call.
type MatchData struct {
	*billiard.Match
	Player1Wins     int                   `json:"player1_wins"`
	Player2Wins     int                   `json:"player2_wins"`
	LiveOutcome     billiard.MatchOutcome `json:"live_outcome"`
	CurrentFrameID  *uuid.UUID            `json:"current_frame_id,omitempty"`
	CurrentPlayerID *uuid.UUID            `json:"current_player_id,omitempty"`
}

func (s *MatchService) GetMatchData(ctx context.Context, matchID uuid.UUID) (*MatchData, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	match, err := s.matches.GetMatch(ctx, matchID.String())
	if err != nil {
		return nil, mapRowErr(err, "match", matchID.String())
	}

	players := make(map[uuid.UUID]*billiard.Profile, 2)
	for _, playerID := range []uuid.UUID{match.Player1ID, match.Player2ID} {
		p, err := s.profiles.GetProfile(ctx, playerID)
		if err != nil {
			return nil, mapRowErr(err, "profile", playerID.String())
		}
		players[playerID] = p
	}
	match.Player1 = players[match.Player1ID]
	match.Player2 = players[match.Player2ID]

	frames, err := s.frames.GetFrames(ctx, matchID.String())
	if err != nil {
		return nil, apperr.Transient("failed to load frames", err)
	}
	for i := range frames {
		f := &frames[i]
		events, err := s.events.GetEvents(ctx, f.ID.String())
		if err != nil {
			return nil, apperr.Transient("failed to load events", err)
		}
		for j := range events {
			if events[j].PlayerID != nil {
				events[j].Player = players[*events[j].PlayerID]
			}
		}
		f.Events = events
		if f.WinnerID != nil {
			f.Winner = players[*f.WinnerID]
		}
	}
	match.Frames = frames

	data := &MatchData{
		Match:       match,
		Player1Wins: scoring.WinsFor(match, match.Player1ID),
		Player2Wins: scoring.WinsFor(match, match.Player2ID),
		LiveOutcome: scoring.Outcome(match),
	}
	if current := scoring.CurrentFrame(match); current != nil {
		id := current.ID
		data.CurrentFrameID = &id
		playerID := scoring.CurrentPlayerID(current, match)
		data.CurrentPlayerID = &playerID
	}
	return data, nil
}

func (s *MatchService) ListMatches(ctx context.Context) ([]billiard.Match, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	matches, err := s.matches.ListMatches(ctx)
	if err != nil {
		return nil, apperr.Transient("failed to list matches", err)
	}
	for i := range matches {
		m := &matches[i]
		p1, err := s.profiles.GetProfile(ctx, m.Player1ID)
		if err != nil {
			return nil, mapRowErr(err, "profile", m.Player1ID.String())
		}
		p2, err := s.profiles.GetProfile(ctx, m.Player2ID)
		if err != nil {
			return nil, mapRowErr(err, "profile", m.Player2ID.String())
		}
		m.Player1, m.Player2 = p1, p2
	}
	return matches, nil
}

// StartFrame opens the next frame of a match. Valid only when no frame is
// active and the match is not over; frame numbers stay consecutive from 1.
func (s *MatchService) StartFrame(ctx context.Context, matchID uuid.UUID) (*billiard.Frame, error) {
	var frame *billiard.Frame
	err := s.mutate(ctx, matchID, func(ctx context.Context, tx *sqlx.Tx, notify func(Notice)) error {
		match, err := s.matches.GetMatchTx(ctx, tx, matchID.String())
		if err != nil {
			return mapRowErr(err, "match", matchID.String())
		}
		if match.IsCompleted() {
			return apperr.Conflict("match is already complete")
		}

		frames, err := s.frames.GetFramesTx(ctx, tx, matchID.String())
		if err != nil {
			return apperr.Transient("failed to load frames", err)
		}
		match.Frames = frames
		if scoring.IsMatchOver(match) {
			return apperr.Conflict("match is already decided")
		}

		active, err := s.frames.GetActiveFrameTx(ctx, tx, matchID.String())
		if err != nil {
			return apperr.Transient("failed to check active frame", err)
		}
		if active != nil {
			return apperr.Conflict("frame %d is still active", active.FrameNumber)
		}

		max, err := s.frames.MaxFrameNumberTx(ctx, tx, matchID.String())
		if err != nil {
			return apperr.Transient("failed to read frame numbers", err)
		}

		frame = &billiard.Frame{
			ID:          uuid.New(),
			MatchID:     matchID,
			FrameNumber: max + 1,
		}
		if err := s.frames.CreateFrameTx(ctx, tx, frame); err != nil {
			return apperr.Transient("failed to create frame", err)
		}

		// The start marker carries no player: a fresh frame opens on
		// player1's turn by convention.
		marker := &billiard.MatchEvent{
			ID:        uuid.New(),
			FrameID:   frame.ID,
			EventType: billiard.EventStart,
			Timestamp: time.Now().UTC(),
		}
		if err := s.events.CreateEventTx(ctx, tx, marker); err != nil {
			return apperr.Transient("failed to record frame start", err)
		}

		version, err := s.matches.BumpStateVersionTx(ctx, tx, matchID.String())
		if err != nil {
			return apperr.Transient("failed to bump state version", err)
		}
		notify(Notice{Type: NoticeFrameUpdate, Version: version})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("match_id", matchID.String()).
		Int("frame_number", frame.FrameNumber).
		Msg("frame started")
	return frame, nil
}

type EndFrameResult struct {
	Frame     *billiard.Frame       `json:"frame"`
	MatchOver bool                  `json:"match_over"`
	Outcome   billiard.MatchOutcome `json:"outcome"`
}

// EndFrame finalizes the frame with a winner. Finalization is terminal:
// a second call conflicts and the first result stands. The match outcome is
// persisted exactly once, at the transition into completion.
func (s *MatchService) EndFrame(ctx context.Context, frameID, winnerID uuid.UUID) (*EndFrameResult, error) {
	frame, err := s.frames.GetFrame(ctx, frameID.String())
	if err != nil {
		return nil, mapRowErr(err, "frame", frameID.String())
	}
	matchID := frame.MatchID

	result := &EndFrameResult{Outcome: billiard.OutcomeOngoing}
	err = s.mutate(ctx, matchID, func(ctx context.Context, tx *sqlx.Tx, notify func(Notice)) error {
		frame, err := s.frames.GetFrameTx(ctx, tx, frameID.String())
		if err != nil {
			return mapRowErr(err, "frame", frameID.String())
		}
		if !frame.Active() {
			return apperr.Conflict("frame %d is already finalized", frame.FrameNumber)
		}

		match, err := s.matches.GetMatchTx(ctx, tx, matchID.String())
		if err != nil {
			return mapRowErr(err, "match", matchID.String())
		}
		if match.IsCompleted() {
			return apperr.Conflict("match is already complete")
		}
		if !match.HasPlayer(winnerID) {
			return apperr.Validation("winner %s is not part of this match", winnerID)
		}

		marker := &billiard.MatchEvent{
			ID:        uuid.New(),
			FrameID:   frame.ID,
			EventType: billiard.EventEnd,
			PlayerID:  &winnerID,
			Timestamp: time.Now().UTC(),
		}
		if err := s.events.CreateEventTx(ctx, tx, marker); err != nil {
			return apperr.Transient("failed to record frame end", err)
		}
		if err := s.frames.SetWinnerTx(ctx, tx, frameID.String(), winnerID.String()); err != nil {
			return apperr.Transient("failed to set frame winner", err)
		}

		frames, err := s.frames.GetFramesTx(ctx, tx, matchID.String())
		if err != nil {
			return apperr.Transient("failed to load frames", err)
		}
		match.Frames = frames

		winner := winnerID
		frame.WinnerID = &winner
		result.Frame = frame
		result.MatchOver = scoring.IsMatchOver(match)

		if result.MatchOver {
			result.Outcome = scoring.Outcome(match)
			if _, err := s.matches.SetOutcomeTx(ctx, tx, matchID.String(), result.Outcome); err != nil {
				return apperr.Transient("failed to record match outcome", err)
			}
		}

		version, err := s.matches.BumpStateVersionTx(ctx, tx, matchID.String())
		if err != nil {
			return apperr.Transient("failed to bump state version", err)
		}
		notify(Notice{Type: NoticeFrameUpdate, Version: version})
		notify(Notice{Type: NoticeMatchUpdate, Version: version})
		return nil
	})
	if err != nil {
		return nil, err
	}

	log := s.logger.Info().
		Str("match_id", matchID.String()).
		Str("frame_id", frameID.String()).
		Str("winner_id", winnerID.String())
	if result.MatchOver {
		log = log.Str("outcome", string(result.Outcome))
	}
	log.Msg("frame ended")
	return result, nil
}
