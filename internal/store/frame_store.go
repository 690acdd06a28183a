package store

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/szlgbiliard/biliard-api/internal/billiard"
)

type FrameStore struct {
	db *sqlx.DB
}

func NewFrameStore(db *sqlx.DB) *FrameStore {
	return &FrameStore{db: db}
}

func (s *FrameStore) CreateFrameTx(ctx context.Context, tx *sqlx.Tx, frame *billiard.Frame) error {
	_, err := tx.NamedExecContext(ctx, `
		INSERT INTO frames (id, match_id, frame_number, winner_id, player1_ball_group, player2_ball_group)
		VALUES (:id, :match_id, :frame_number, :winner_id, :player1_ball_group, :player2_ball_group)`,
		frame)
	return err
}

func (s *FrameStore) GetFrame(ctx context.Context, id string) (*billiard.Frame, error) {
	var frame billiard.Frame
	err := s.db.GetContext(ctx, &frame, "SELECT * FROM frames WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	return &frame, nil
}

func (s *FrameStore) GetFrameTx(ctx context.Context, tx *sqlx.Tx, id string) (*billiard.Frame, error) {
	var frame billiard.Frame
	err := tx.GetContext(ctx, &frame, "SELECT * FROM frames WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	return &frame, nil
}

func (s *FrameStore) GetFrames(ctx context.Context, matchID string) ([]billiard.Frame, error) {
	var frames []billiard.Frame
	err := s.db.SelectContext(ctx, &frames,
		"SELECT * FROM frames WHERE match_id = ? ORDER BY frame_number ASC", matchID)
	return frames, err
}

func (s *FrameStore) GetFramesTx(ctx context.Context, tx *sqlx.Tx, matchID string) ([]billiard.Frame, error) {
	var frames []billiard.Frame
	err := tx.SelectContext(ctx, &frames,
		"SELECT * FROM frames WHERE match_id = ? ORDER BY frame_number ASC", matchID)
	return frames, err
}

// GetActiveFrameTx returns the frame without a winner, or nil when none is
// active. The single-active-frame invariant makes at most one row possible.
func (s *FrameStore) GetActiveFrameTx(ctx context.Context, tx *sqlx.Tx, matchID string) (*billiard.Frame, error) {
	var frame billiard.Frame
	err := tx.GetContext(ctx, &frame,
		"SELECT * FROM frames WHERE match_id = ? AND winner_id IS NULL ORDER BY frame_number ASC LIMIT 1", matchID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &frame, nil
}

func (s *FrameStore) MaxFrameNumberTx(ctx context.Context, tx *sqlx.Tx, matchID string) (int, error) {
	var max int
	err := tx.GetContext(ctx, &max,
		"SELECT COALESCE(MAX(frame_number), 0) FROM frames WHERE match_id = ?", matchID)
	return max, err
}

func (s *FrameStore) SetWinnerTx(ctx context.Context, tx *sqlx.Tx, frameID string, winnerID string) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE frames SET winner_id = ? WHERE id = ?", winnerID, frameID)
	return err
}

func (s *FrameStore) SetBallGroupsTx(ctx context.Context, tx *sqlx.Tx, frameID string, p1, p2 billiard.BallGroup) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE frames SET player1_ball_group = ?, player2_ball_group = ? WHERE id = ?",
		p1, p2, frameID)
	return err
}
