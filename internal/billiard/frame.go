package billiard

import (
	"time"

	"github.com/google/uuid"
)

type BallGroup string

const (
	GroupFull    BallGroup = "full"
	GroupStriped BallGroup = "striped"
)

func (g BallGroup) Valid() bool {
	return g == GroupFull || g == GroupStriped
}

// Opposite returns the complementary group assignment.
func (g BallGroup) Opposite() BallGroup {
	if g == GroupFull {
		return GroupStriped
	}
	return GroupFull
}

type Frame struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	MatchID          uuid.UUID  `db:"match_id" json:"match"`
	FrameNumber      int        `db:"frame_number" json:"frame_number"`
	WinnerID         *uuid.UUID `db:"winner_id" json:"-"`
	Player1BallGroup *BallGroup `db:"player1_ball_group" json:"player1_ball_group,omitempty"`
	Player2BallGroup *BallGroup `db:"player2_ball_group" json:"player2_ball_group,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"-"`

	Winner *Profile     `db:"-" json:"winner,omitempty"`
	Events []MatchEvent `db:"-" json:"events"`
}

// Active means no winner has been recorded yet. A match holds at most one
// active frame at any time.
func (f *Frame) Active() bool {
	return f.WinnerID == nil
}
