package billiard

import (
	"time"

	"github.com/google/uuid"
)

type MatchOutcome string

const (
	OutcomeOngoing    MatchOutcome = "ongoing"
	OutcomePlayer1Won MatchOutcome = "player1"
	OutcomePlayer2Won MatchOutcome = "player2"
	OutcomeDraw       MatchOutcome = "draw"
)

type Match struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Player1ID    uuid.UUID  `db:"player1_id" json:"-"`
	Player2ID    uuid.UUID  `db:"player2_id" json:"-"`
	FramesToWin  int        `db:"frames_to_win" json:"frames_to_win"`
	MatchDate    *time.Time `db:"match_date" json:"match_date,omitempty"`
	BroadcastURL *string    `db:"broadcast_url" json:"broadcastURL,omitempty"`

	// Outcome is written exactly once, at the transition into match
	// completion. NULL while the match is ongoing.
	Outcome *MatchOutcome `db:"outcome" json:"outcome,omitempty"`

	// StateVersion increments on every accepted mutation so subscribers
	// can tell whether their cached view is stale.
	StateVersion int64 `db:"state_version" json:"state_version"`

	CreatedAt time.Time `db:"created_at" json:"-"`

	// Hydrated relations, not columns.
	Player1 *Profile `db:"-" json:"player1,omitempty"`
	Player2 *Profile `db:"-" json:"player2,omitempty"`
	Frames  []Frame  `db:"-" json:"match_frames"`
}

func (m *Match) IsCompleted() bool {
	return m.Outcome != nil
}

// HasPlayer reports whether the given profile is one of the two participants.
func (m *Match) HasPlayer(id uuid.UUID) bool {
	return m.Player1ID == id || m.Player2ID == id
}
