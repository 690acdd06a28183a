package billiard

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventStart                 EventType = "start"
	EventEnd                   EventType = "end"
	EventNextPlayer            EventType = "next_player"
	EventBallsPotted           EventType = "balls_potted"
	EventFoul                  EventType = "faul"
	EventFoulAndNextPlayer     EventType = "faul_and_next_player"
	EventCueBallLeftTable      EventType = "cue_ball_left_table"
	EventCueBallGetsPositioned EventType = "cue_ball_gets_positioned"
)

func (t EventType) Valid() bool {
	switch t {
	case EventStart, EventEnd, EventNextPlayer, EventBallsPotted,
		EventFoul, EventFoulAndNextPlayer,
		EventCueBallLeftTable, EventCueBallGetsPositioned:
		return true
	}
	return false
}

// BallIDs is stored as a JSON array in a single TEXT column.
type BallIDs []string

func (b BallIDs) Value() (driver.Value, error) {
	if b == nil {
		return nil, nil
	}
	data, err := json.Marshal([]string(b))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (b *BallIDs) Scan(src interface{}) error {
	if src == nil {
		*b = nil
		return nil
	}
	switch v := src.(type) {
	case string:
		return json.Unmarshal([]byte(v), b)
	case []byte:
		return json.Unmarshal(v, b)
	default:
		return fmt.Errorf("cannot scan %T into BallIDs", src)
	}
}

type MatchEvent struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	FrameID   uuid.UUID  `db:"frame_id" json:"-"`
	EventType EventType  `db:"event_type" json:"eventType"`
	PlayerID  *uuid.UUID `db:"player_id" json:"-"`
	BallIDs   BallIDs    `db:"ball_ids" json:"ball_ids,omitempty"`
	Details   *string    `db:"details" json:"details,omitempty"`
	Timestamp time.Time  `db:"timestamp" json:"timestamp"`

	Player *Profile `db:"-" json:"player,omitempty"`
}
