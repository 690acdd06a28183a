package store

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/szlgbiliard/biliard-api/internal/billiard"
)

type MatchStore struct {
	db *sqlx.DB
}

func NewMatchStore(db *sqlx.DB) *MatchStore {
	return &MatchStore{db: db}
}

func (s *MatchStore) CreateMatch(ctx context.Context, match *billiard.Match) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO matches (id, player1_id, player2_id, frames_to_win, match_date, broadcast_url, state_version)
		VALUES (:id, :player1_id, :player2_id, :frames_to_win, :match_date, :broadcast_url, 0)`,
		match)
	return err
}

func (s *MatchStore) GetMatch(ctx context.Context, id string) (*billiard.Match, error) {
	var match billiard.Match
	err := s.db.GetContext(ctx, &match, "SELECT * FROM matches WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	return &match, nil
}

func (s *MatchStore) GetMatchTx(ctx context.Context, tx *sqlx.Tx, id string) (*billiard.Match, error) {
	var match billiard.Match
	err := tx.GetContext(ctx, &match, "SELECT * FROM matches WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	return &match, nil
}

func (s *MatchStore) ListMatches(ctx context.Context) ([]billiard.Match, error) {
	var matches []billiard.Match
	err := s.db.SelectContext(ctx, &matches,
		"SELECT * FROM matches ORDER BY created_at DESC")
	return matches, err
}

// SetOutcome records the final outcome exactly once. The WHERE clause keeps
// the write idempotent under racing end-of-match checks; the returned flag
// reports whether this call was the one that completed the match.
func (s *MatchStore) SetOutcomeTx(ctx context.Context, tx *sqlx.Tx, id string, outcome billiard.MatchOutcome) (bool, error) {
	res, err := tx.ExecContext(ctx,
		"UPDATE matches SET outcome = ? WHERE id = ? AND outcome IS NULL", outcome, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// BumpStateVersionTx advances the match's change counter and returns the
// new value, which every broadcast notification carries.
func (s *MatchStore) BumpStateVersionTx(ctx context.Context, tx *sqlx.Tx, id string) (int64, error) {
	if _, err := tx.ExecContext(ctx,
		"UPDATE matches SET state_version = state_version + 1 WHERE id = ?", id); err != nil {
		return 0, err
	}
	var version int64
	err := tx.GetContext(ctx, &version, "SELECT state_version FROM matches WHERE id = ?", id)
	return version, err
}
