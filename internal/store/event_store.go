package store

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/szlgbiliard/biliard-api/internal/billiard"
)

type EventStore struct {
	db *sqlx.DB
}

func NewEventStore(db *sqlx.DB) *EventStore {
	return &EventStore{db: db}
}

func (s *EventStore) CreateEventTx(ctx context.Context, tx *sqlx.Tx, event *billiard.MatchEvent) error {
	_, err := tx.NamedExecContext(ctx, `
		INSERT INTO match_events (id, frame_id, event_type, player_id, ball_ids, details, timestamp)
		VALUES (:id, :frame_id, :event_type, :player_id, :ball_ids, :details, :timestamp)`,
		event)
	return err
}

// Events come back in chronological order; rowid breaks timestamp ties in
// insertion order.
func (s *EventStore) GetEvents(ctx context.Context, frameID string) ([]billiard.MatchEvent, error) {
	var events []billiard.MatchEvent
	err := s.db.SelectContext(ctx, &events,
		"SELECT * FROM match_events WHERE frame_id = ? ORDER BY timestamp ASC, rowid ASC", frameID)
	return events, err
}

func (s *EventStore) GetEventsTx(ctx context.Context, tx *sqlx.Tx, frameID string) ([]billiard.MatchEvent, error) {
	var events []billiard.MatchEvent
	err := tx.SelectContext(ctx, &events,
		"SELECT * FROM match_events WHERE frame_id = ? ORDER BY timestamp ASC, rowid ASC", frameID)
	return events, err
}

func (s *EventStore) GetEvent(ctx context.Context, id string) (*billiard.MatchEvent, error) {
	var event billiard.MatchEvent
	err := s.db.GetContext(ctx, &event, "SELECT * FROM match_events WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (s *EventStore) GetEventTx(ctx context.Context, tx *sqlx.Tx, id string) (*billiard.MatchEvent, error) {
	var event billiard.MatchEvent
	err := tx.GetContext(ctx, &event, "SELECT * FROM match_events WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// GetLastEventTx returns the chronologically last event of a frame, or nil
// when the frame has no events.
func (s *EventStore) GetLastEventTx(ctx context.Context, tx *sqlx.Tx, frameID string) (*billiard.MatchEvent, error) {
	var event billiard.MatchEvent
	err := tx.GetContext(ctx, &event,
		"SELECT * FROM match_events WHERE frame_id = ? ORDER BY timestamp DESC, rowid DESC LIMIT 1", frameID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (s *EventStore) DeleteEventTx(ctx context.Context, tx *sqlx.Tx, id string) (bool, error) {
	res, err := tx.ExecContext(ctx, "DELETE FROM match_events WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteEventsByFrameTx clears a frame's log and returns how many events
// were removed.
func (s *EventStore) DeleteEventsByFrameTx(ctx context.Context, tx *sqlx.Tx, frameID string) (int64, error) {
	res, err := tx.ExecContext(ctx, "DELETE FROM match_events WHERE frame_id = ?", frameID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
