// Package scoring derives scoreboard state from a match's frame and event
// lists. Everything here is a pure function of its inputs, so callers can
// recompute on every read instead of caching derived values.
package scoring

import (
	"github.com/google/uuid"

	"github.com/szlgbiliard/biliard-api/internal/billiard"
)

// WinsFor counts the frames won by the given player.
func WinsFor(m *billiard.Match, playerID uuid.UUID) int {
	wins := 0
	for i := range m.Frames {
		if m.Frames[i].WinnerID != nil && *m.Frames[i].WinnerID == playerID {
			wins++
		}
	}
	return wins
}

// FramesNeeded is the win count that ends the match outright.
// Odd targets need a strict majority, ceil(n/2). Even targets need n/2+1;
// an even target can instead end in a draw once both players hold exactly
// n/2. The asymmetry mirrors the club's house rule and is intentional.
func FramesNeeded(framesToWin int) int {
	if framesToWin%2 == 1 {
		return (framesToWin + 1) / 2
	}
	return framesToWin/2 + 1
}

// DrawPossible reports whether the configured target admits a drawn match.
func DrawPossible(framesToWin int) bool {
	return framesToWin%2 == 0
}

func IsMatchOver(m *billiard.Match) bool {
	needed := FramesNeeded(m.FramesToWin)
	p1 := WinsFor(m, m.Player1ID)
	p2 := WinsFor(m, m.Player2ID)
	if p1 >= needed || p2 >= needed {
		return true
	}
	return DrawPossible(m.FramesToWin) && p1+p2 >= m.FramesToWin
}

// Outcome classifies the match as ongoing, won, or drawn.
func Outcome(m *billiard.Match) billiard.MatchOutcome {
	if !IsMatchOver(m) {
		return billiard.OutcomeOngoing
	}
	needed := FramesNeeded(m.FramesToWin)
	p1 := WinsFor(m, m.Player1ID)
	p2 := WinsFor(m, m.Player2ID)
	switch {
	case p1 >= needed:
		return billiard.OutcomePlayer1Won
	case p2 >= needed:
		return billiard.OutcomePlayer2Won
	default:
		return billiard.OutcomeDraw
	}
}

// CurrentFrame returns the lowest-numbered frame without a winner, or nil.
func CurrentFrame(m *billiard.Match) *billiard.Frame {
	var current *billiard.Frame
	for i := range m.Frames {
		f := &m.Frames[i]
		if !f.Active() {
			continue
		}
		if current == nil || f.FrameNumber < current.FrameNumber {
			current = f
		}
	}
	return current
}

// CurrentPlayerID derives the turn holder of a frame: the attributed player
// of the most recent event that carries one. A fresh frame always opens on
// player1's turn. Events without a player (frame start markers) are skipped
// so the turn never becomes undefined.
func CurrentPlayerID(f *billiard.Frame, m *billiard.Match) uuid.UUID {
	for i := len(f.Events) - 1; i >= 0; i-- {
		if f.Events[i].PlayerID != nil {
			return *f.Events[i].PlayerID
		}
	}
	return m.Player1ID
}

// PottedBalls flattens the ball ids of every balls_potted event in the
// frame, preserving pot order.
func PottedBalls(f *billiard.Frame) []string {
	var potted []string
	for i := range f.Events {
		e := &f.Events[i]
		if e.EventType == billiard.EventBallsPotted {
			potted = append(potted, e.BallIDs...)
		}
	}
	return potted
}
