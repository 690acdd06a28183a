package scoring

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/szlgbiliard/biliard-api/internal/billiard"
)

func newTestMatch(framesToWin int) *billiard.Match {
	return &billiard.Match{
		ID:          uuid.New(),
		Player1ID:   uuid.New(),
		Player2ID:   uuid.New(),
		FramesToWin: framesToWin,
	}
}

func addFrame(m *billiard.Match, winnerID *uuid.UUID) {
	m.Frames = append(m.Frames, billiard.Frame{
		ID:          uuid.New(),
		MatchID:     m.ID,
		FrameNumber: len(m.Frames) + 1,
		WinnerID:    winnerID,
	})
}

func TestFramesNeeded(t *testing.T) {
	assert.Equal(t, 1, FramesNeeded(1))
	assert.Equal(t, 2, FramesNeeded(3))
	assert.Equal(t, 3, FramesNeeded(5))
	assert.Equal(t, 2, FramesNeeded(2))
	assert.Equal(t, 3, FramesNeeded(4))
	assert.Equal(t, 4, FramesNeeded(6))
}

func TestOddTargetNeverDraws(t *testing.T) {
	// framesToWin=3 needs ceil(3/2)=2 wins; alternate wins and check that
	// every terminal state is a win for somebody.
	m := newTestMatch(3)
	addFrame(m, &m.Player1ID)
	assert.False(t, IsMatchOver(m))
	assert.Equal(t, billiard.OutcomeOngoing, Outcome(m))

	addFrame(m, &m.Player2ID)
	assert.False(t, IsMatchOver(m))

	addFrame(m, &m.Player1ID)
	require.True(t, IsMatchOver(m))
	assert.Equal(t, billiard.OutcomePlayer1Won, Outcome(m))
	assert.Equal(t, 2, WinsFor(m, m.Player1ID))
}

func TestOddTargetStraightWin(t *testing.T) {
	m := newTestMatch(3)
	addFrame(m, &m.Player1ID)
	addFrame(m, &m.Player1ID)
	require.True(t, IsMatchOver(m))
	assert.Equal(t, billiard.OutcomePlayer1Won, Outcome(m))
	assert.Equal(t, 2, WinsFor(m, m.Player1ID))
	assert.Equal(t, 0, WinsFor(m, m.Player2ID))
}

func TestEvenTargetDraw(t *testing.T) {
	m := newTestMatch(4)
	addFrame(m, &m.Player1ID)
	addFrame(m, &m.Player2ID)
	addFrame(m, &m.Player1ID)
	assert.False(t, IsMatchOver(m))

	addFrame(m, &m.Player2ID)
	require.True(t, IsMatchOver(m))
	assert.Equal(t, billiard.OutcomeDraw, Outcome(m))
}

func TestEvenTargetOutrightWin(t *testing.T) {
	m := newTestMatch(4)
	addFrame(m, &m.Player2ID)
	addFrame(m, &m.Player2ID)
	assert.False(t, IsMatchOver(m), "2 of 4 is not enough for an even target")

	addFrame(m, &m.Player2ID)
	require.True(t, IsMatchOver(m))
	assert.Equal(t, billiard.OutcomePlayer2Won, Outcome(m))
}

func TestCurrentFrame(t *testing.T) {
	m := newTestMatch(3)
	assert.Nil(t, CurrentFrame(m))

	addFrame(m, &m.Player1ID)
	addFrame(m, nil)
	current := CurrentFrame(m)
	require.NotNil(t, current)
	assert.Equal(t, 2, current.FrameNumber)

	// Once the active frame gets a winner nothing is current anymore.
	m.Frames[1].WinnerID = &m.Player2ID
	assert.Nil(t, CurrentFrame(m))
}

func TestCurrentPlayerDefaultsToPlayer1(t *testing.T) {
	m := newTestMatch(3)
	f := &billiard.Frame{ID: uuid.New(), MatchID: m.ID, FrameNumber: 1}
	assert.Equal(t, m.Player1ID, CurrentPlayerID(f, m))
}

func TestCurrentPlayerFollowsLastAttributedEvent(t *testing.T) {
	m := newTestMatch(3)
	f := &billiard.Frame{ID: uuid.New(), MatchID: m.ID, FrameNumber: 1}

	f.Events = append(f.Events, billiard.MatchEvent{
		ID:        uuid.New(),
		EventType: billiard.EventBallsPotted,
		PlayerID:  &m.Player2ID,
		BallIDs:   billiard.BallIDs{"3"},
		Timestamp: time.Now(),
	})
	assert.Equal(t, m.Player2ID, CurrentPlayerID(f, m))

	// A trailing event without a player must not reset the turn.
	f.Events = append(f.Events, billiard.MatchEvent{
		ID:        uuid.New(),
		EventType: billiard.EventStart,
		Timestamp: time.Now(),
	})
	assert.Equal(t, m.Player2ID, CurrentPlayerID(f, m))
}

func TestPottedBallsPreservesOrder(t *testing.T) {
	m := newTestMatch(3)
	f := &billiard.Frame{ID: uuid.New(), MatchID: m.ID, FrameNumber: 1}

	f.Events = append(f.Events,
		billiard.MatchEvent{
			ID:        uuid.New(),
			EventType: billiard.EventBallsPotted,
			PlayerID:  &m.Player1ID,
			BallIDs:   billiard.BallIDs{"1", "7"},
		},
		billiard.MatchEvent{
			ID:        uuid.New(),
			EventType: billiard.EventFoul,
			PlayerID:  &m.Player1ID,
		},
		billiard.MatchEvent{
			ID:        uuid.New(),
			EventType: billiard.EventBallsPotted,
			PlayerID:  &m.Player2ID,
			BallIDs:   billiard.BallIDs{"9"},
		},
	)

	assert.Equal(t, []string{"1", "7", "9"}, PottedBalls(f))
}

func TestBallDomain(t *testing.T) {
	assert.True(t, billiard.IsValidBallID("cue"))
	assert.True(t, billiard.IsValidBallID("15"))
	assert.False(t, billiard.IsValidBallID("16"))
	assert.False(t, billiard.IsValidBallID(""))

	g, ok := billiard.GroupOf("7")
	require.True(t, ok)
	assert.Equal(t, billiard.GroupFull, g)

	g, ok = billiard.GroupOf("9")
	require.True(t, ok)
	assert.Equal(t, billiard.GroupStriped, g)

	_, ok = billiard.GroupOf("8")
	assert.False(t, ok, "eight ball belongs to neither group")
}
