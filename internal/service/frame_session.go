package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/szlgbiliard/biliard-api/internal/apperr"
	"github.com/szlgbiliard/biliard-api/internal/billiard"
	"github.com/szlgbiliard/biliard-api/internal/scoring"
)

// FrameSession owns the validated mutation of one frame's event log. All
// operations funnel through MatchService.mutate, so they hold the match
// lock and are atomic against the event store.
type FrameSession struct {
	svc     *MatchService
	matchID uuid.UUID
	frameID uuid.UUID
}

// SessionForFrame binds a session to an existing frame.
func (s *MatchService) SessionForFrame(ctx context.Context, frameID uuid.UUID) (*FrameSession, error) {
	frame, err := s.frames.GetFrame(ctx, frameID.String())
	if err != nil {
		return nil, mapRowErr(err, "frame", frameID.String())
	}
	return &FrameSession{svc: s, matchID: frame.MatchID, frameID: frame.ID}, nil
}

// ActiveSession binds a session to the match's active frame, or fails with
// a conflict when no frame is active.
func (s *MatchService) ActiveSession(ctx context.Context, matchID uuid.UUID) (*FrameSession, error) {
	var session *FrameSession
	err := s.mutate(ctx, matchID, func(ctx context.Context, tx *sqlx.Tx, notify func(Notice)) error {
		active, err := s.frames.GetActiveFrameTx(ctx, tx, matchID.String())
		if err != nil {
			return apperr.Transient("failed to look up active frame", err)
		}
		if active == nil {
			return apperr.Conflict("no active frame")
		}
		session = &FrameSession{svc: s, matchID: matchID, frameID: active.ID}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (sess *FrameSession) FrameID() uuid.UUID { return sess.frameID }
func (sess *FrameSession) MatchID() uuid.UUID { return sess.matchID }

// activeFrame re-reads the frame inside the transaction and enforces the
// active-frame precondition shared by every mutation.
func (sess *FrameSession) activeFrame(ctx context.Context, tx *sqlx.Tx) (*billiard.Frame, *billiard.Match, error) {
	frame, err := sess.svc.frames.GetFrameTx(ctx, tx, sess.frameID.String())
	if err != nil {
		return nil, nil, mapRowErr(err, "frame", sess.frameID.String())
	}
	if !frame.Active() {
		return nil, nil, apperr.Conflict("frame %d is already finalized", frame.FrameNumber)
	}
	match, err := sess.svc.matches.GetMatchTx(ctx, tx, sess.matchID.String())
	if err != nil {
		return nil, nil, mapRowErr(err, "match", sess.matchID.String())
	}
	if match.IsCompleted() {
		return nil, nil, apperr.Conflict("match is already complete")
	}
	return frame, match, nil
}

type EventInput struct {
	EventType billiard.EventType `json:"eventType"`
	PlayerID  uuid.UUID          `json:"player_id"`
	BallIDs   []string           `json:"ball_ids,omitempty"`
	Details   *string            `json:"details,omitempty"`
}

// recordable are the event types referees may append directly; start and
// end markers belong to the controller.
func recordable(t billiard.EventType) bool {
	switch t {
	case billiard.EventNextPlayer, billiard.EventBallsPotted,
		billiard.EventFoul, billiard.EventFoulAndNextPlayer,
		billiard.EventCueBallLeftTable, billiard.EventCueBallGetsPositioned:
		return true
	}
	return false
}

// RecordEvent appends one attributed event with a server-generated
// timestamp. It never advances the turn by itself; the attributed player of
// subsequent events decides whose turn the scoreboard shows.
func (sess *FrameSession) RecordEvent(ctx context.Context, input EventInput) (*billiard.MatchEvent, error) {
	if !input.EventType.Valid() {
		return nil, apperr.Validation("unknown event type %q", input.EventType)
	}
	if !recordable(input.EventType) {
		return nil, apperr.Validation("event type %q cannot be recorded directly", input.EventType)
	}
	if input.PlayerID == uuid.Nil {
		return nil, apperr.Validation("event needs an attributed player")
	}

	var event *billiard.MatchEvent
	err := sess.svc.mutate(ctx, sess.matchID, func(ctx context.Context, tx *sqlx.Tx, notify func(Notice)) error {
		frame, match, err := sess.activeFrame(ctx, tx)
		if err != nil {
			return err
		}
		if !match.HasPlayer(input.PlayerID) {
			return apperr.Validation("player %s is not part of this match", input.PlayerID)
		}

		if input.EventType == billiard.EventBallsPotted {
			if err := sess.validateBallIDs(ctx, tx, frame, input.BallIDs); err != nil {
				return err
			}
		} else if len(input.BallIDs) > 0 {
			return apperr.Validation("ball ids are only valid on balls_potted events")
		}

		playerID := input.PlayerID
		event = &billiard.MatchEvent{
			ID:        uuid.New(),
			FrameID:   frame.ID,
			EventType: input.EventType,
			PlayerID:  &playerID,
			BallIDs:   billiard.BallIDs(input.BallIDs),
			Details:   input.Details,
			Timestamp: time.Now().UTC(),
		}
		if err := sess.svc.events.CreateEventTx(ctx, tx, event); err != nil {
			return apperr.Transient("failed to record event", err)
		}

		version, err := sess.svc.matches.BumpStateVersionTx(ctx, tx, sess.matchID.String())
		if err != nil {
			return apperr.Transient("failed to bump state version", err)
		}
		notify(Notice{Type: NoticeEventCreated, Version: version})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

func (sess *FrameSession) validateBallIDs(ctx context.Context, tx *sqlx.Tx, frame *billiard.Frame, ballIDs []string) error {
	if len(ballIDs) == 0 {
		return apperr.Validation("balls_potted needs at least one ball")
	}

	seen := make(map[string]struct{}, len(ballIDs))
	for _, id := range ballIDs {
		if !billiard.IsValidBallID(id) {
			return apperr.Validation("unknown ball id %q", id)
		}
		if id == billiard.CueBallID {
			continue
		}
		if _, dup := seen[id]; dup {
			return apperr.Validation("ball %s listed twice", id)
		}
		seen[id] = struct{}{}
	}

	events, err := sess.svc.events.GetEventsTx(ctx, tx, frame.ID.String())
	if err != nil {
		return apperr.Transient("failed to load events", err)
	}
	frame.Events = events
	// Object balls leave the table once per frame; the cue ball comes back.
	for _, potted := range scoring.PottedBalls(frame) {
		if _, clash := seen[potted]; clash {
			return apperr.Validation("ball %s was already potted this frame", potted)
		}
	}
	return nil
}

func (sess *FrameSession) RecordBallsPotted(ctx context.Context, playerID uuid.UUID, ballIDs []string) (*billiard.MatchEvent, error) {
	return sess.RecordEvent(ctx, EventInput{EventType: billiard.EventBallsPotted, PlayerID: playerID, BallIDs: ballIDs})
}

func (sess *FrameSession) RecordFoul(ctx context.Context, playerID uuid.UUID) (*billiard.MatchEvent, error) {
	return sess.RecordEvent(ctx, EventInput{EventType: billiard.EventFoul, PlayerID: playerID})
}

func (sess *FrameSession) RecordNextPlayer(ctx context.Context, playerID uuid.UUID) (*billiard.MatchEvent, error) {
	return sess.RecordEvent(ctx, EventInput{EventType: billiard.EventNextPlayer, PlayerID: playerID})
}

func (sess *FrameSession) RecordCueBallLeftTable(ctx context.Context, playerID uuid.UUID) (*billiard.MatchEvent, error) {
	return sess.RecordEvent(ctx, EventInput{EventType: billiard.EventCueBallLeftTable, PlayerID: playerID})
}

func (sess *FrameSession) RecordCueBallPositioned(ctx context.Context, playerID uuid.UUID) (*billiard.MatchEvent, error) {
	return sess.RecordEvent(ctx, EventInput{EventType: billiard.EventCueBallGetsPositioned, PlayerID: playerID})
}

// SetBallGroups assigns both group fields atomically. Re-invoking swaps the
// assignment; equal groups are rejected before any state change.
func (sess *FrameSession) SetBallGroups(ctx context.Context, p1Group, p2Group billiard.BallGroup) error {
	if !p1Group.Valid() || !p2Group.Valid() {
		return apperr.Validation("ball groups must be %q or %q", billiard.GroupFull, billiard.GroupStriped)
	}
	if p1Group == p2Group {
		return apperr.Validation("players cannot share the %s group", p1Group)
	}

	return sess.svc.mutate(ctx, sess.matchID, func(ctx context.Context, tx *sqlx.Tx, notify func(Notice)) error {
		frame, _, err := sess.activeFrame(ctx, tx)
		if err != nil {
			return err
		}
		if err := sess.svc.frames.SetBallGroupsTx(ctx, tx, frame.ID.String(), p1Group, p2Group); err != nil {
			return apperr.Transient("failed to set ball groups", err)
		}
		version, err := sess.svc.matches.BumpStateVersionTx(ctx, tx, sess.matchID.String())
		if err != nil {
			return apperr.Transient("failed to bump state version", err)
		}
		notify(Notice{Type: NoticeFrameUpdate, Version: version})
		return nil
	})
}

// UndoLastEvent removes the chronologically last event, if any. Calling it
// on an empty log is a no-op, so repeated undos are safe. Returns the
// removed event, or nil when there was nothing to undo.
func (sess *FrameSession) UndoLastEvent(ctx context.Context) (*billiard.MatchEvent, error) {
	var removed *billiard.MatchEvent
	err := sess.svc.mutate(ctx, sess.matchID, func(ctx context.Context, tx *sqlx.Tx, notify func(Notice)) error {
		frame, _, err := sess.activeFrame(ctx, tx)
		if err != nil {
			return err
		}
		last, err := sess.svc.events.GetLastEventTx(ctx, tx, frame.ID.String())
		if err != nil {
			return apperr.Transient("failed to find last event", err)
		}
		if last == nil {
			removed = nil
			notify(Notice{Type: NoticeEventsRemoved, Count: 0})
			return nil
		}
		if _, err := sess.svc.events.DeleteEventTx(ctx, tx, last.ID.String()); err != nil {
			return apperr.Transient("failed to delete event", err)
		}
		removed = last

		version, err := sess.svc.matches.BumpStateVersionTx(ctx, tx, sess.matchID.String())
		if err != nil {
			return apperr.Transient("failed to bump state version", err)
		}
		notify(Notice{Type: NoticeEventsRemoved, Count: 1, Version: version})
		notify(Notice{Type: NoticeFrameUpdate, Version: version})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// RemoveEvent deletes one event by identity, wherever it sits in the
// sequence. Later events are not re-validated; the referee is trusted to
// remove in a consistent order.
func (sess *FrameSession) RemoveEvent(ctx context.Context, eventID uuid.UUID) error {
	return sess.svc.mutate(ctx, sess.matchID, func(ctx context.Context, tx *sqlx.Tx, notify func(Notice)) error {
		if _, _, err := sess.activeFrame(ctx, tx); err != nil {
			return err
		}
		event, err := sess.svc.events.GetEventTx(ctx, tx, eventID.String())
		if err != nil {
			return mapRowErr(err, "event", eventID.String())
		}
		if event.FrameID != sess.frameID {
			return apperr.NotFound("event %s not found in frame %s", eventID, sess.frameID)
		}
		if _, err := sess.svc.events.DeleteEventTx(ctx, tx, eventID.String()); err != nil {
			return apperr.Transient("failed to delete event", err)
		}

		version, err := sess.svc.matches.BumpStateVersionTx(ctx, tx, sess.matchID.String())
		if err != nil {
			return apperr.Transient("failed to bump state version", err)
		}
		notify(Notice{Type: NoticeEventRemoved, Version: version})
		notify(Notice{Type: NoticeFrameUpdate, Version: version})
		return nil
	})
}

// ClearEvents empties the frame's log and returns how many events were
// removed. Irreversible; the caller boundary is responsible for asking the
// referee to confirm.
func (sess *FrameSession) ClearEvents(ctx context.Context) (int64, error) {
	var count int64
	err := sess.svc.mutate(ctx, sess.matchID, func(ctx context.Context, tx *sqlx.Tx, notify func(Notice)) error {
		frame, _, err := sess.activeFrame(ctx, tx)
		if err != nil {
			return err
		}
		count, err = sess.svc.events.DeleteEventsByFrameTx(ctx, tx, frame.ID.String())
		if err != nil {
			return apperr.Transient("failed to clear events", err)
		}

		version, err := sess.svc.matches.BumpStateVersionTx(ctx, tx, sess.matchID.String())
		if err != nil {
			return apperr.Transient("failed to bump state version", err)
		}
		notify(Notice{Type: NoticeFrameEventsCleared, Count: count, Version: version})
		notify(Notice{Type: NoticeFrameUpdate, Version: version})
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// RemoveEvent resolves the owning frame of an event and deletes it. This is
// the controller-level entry the referee channel uses, where commands carry
// only the event id.
func (s *MatchService) RemoveEvent(ctx context.Context, eventID uuid.UUID) error {
	event, err := s.events.GetEvent(ctx, eventID.String())
	if err != nil {
		return mapRowErr(err, "event", eventID.String())
	}
	session, err := s.SessionForFrame(ctx, event.FrameID)
	if err != nil {
		return err
	}
	return session.RemoveEvent(ctx, eventID)
}
