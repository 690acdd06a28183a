package service

import (
	"context"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/szlgbiliard/biliard-api/internal/apperr"
	"github.com/szlgbiliard/biliard-api/internal/billiard"
	"github.com/szlgbiliard/biliard-api/internal/store"
)

// setupTestDB creates an in-memory SQLite database and applies migrations
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := sqlx.Connect("sqlite3", "file::memory:")
	require.NoError(t, err, "Failed to connect to in-memory DB")

	_, err = database.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)

	driver, err := sqlite3.WithInstance(database.DB, &sqlite3.Config{})
	require.NoError(t, err, "Failed to create migrate driver instance")

	m, err := migrate.NewWithDatabaseInstance(
		"file://../../migrations",
		"sqlite3",
		driver,
	)
	require.NoError(t, err, "Failed to create migrate instance")

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		require.NoError(t, err, "Failed to apply migrations")
	}

	return database
}

// recordingBroadcaster captures published notices for assertions.
type recordingBroadcaster struct {
	notices []Notice
}

func (b *recordingBroadcaster) Publish(_ uuid.UUID, n Notice) {
	b.notices = append(b.notices, n)
}

func newTestService(t *testing.T, db *sqlx.DB) (*MatchService, *recordingBroadcaster) {
	t.Helper()
	broadcaster := &recordingBroadcaster{}
	return NewMatchService(db, broadcaster, zerolog.Nop()), broadcaster
}

func createMatchForTest(t *testing.T, svc *MatchService, db *sqlx.DB, framesToWin int) *billiard.Match {
	t.Helper()

	profiles := store.NewProfileStore(db)
	p1 := &billiard.Profile{ID: uuid.New(), FirstName: "Anna", LastName: "Nagy"}
	p2 := &billiard.Profile{ID: uuid.New(), FirstName: "Bence", LastName: "Tóth"}
	require.NoError(t, profiles.CreateProfile(context.Background(), p1))
	require.NoError(t, profiles.CreateProfile(context.Background(), p2))

	match, err := svc.CreateMatch(context.Background(), CreateMatchInput{
		Player1ID:   p1.ID,
		Player2ID:   p2.ID,
		FramesToWin: framesToWin,
	})
	require.NoError(t, err)
	return match
}

func winFrame(t *testing.T, svc *MatchService, matchID, winnerID uuid.UUID) *EndFrameResult {
	t.Helper()
	frame, err := svc.StartFrame(context.Background(), matchID)
	require.NoError(t, err)
	result, err := svc.EndFrame(context.Background(), frame.ID, winnerID)
	require.NoError(t, err)
	return result
}

func TestCreateMatchValidation(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	svc, _ := newTestService(t, db)

	p := uuid.New()
	_, err := svc.CreateMatch(context.Background(), CreateMatchInput{Player1ID: p, Player2ID: uuid.New(), FramesToWin: 0})
	assert.True(t, apperr.IsValidation(err))

	_, err = svc.CreateMatch(context.Background(), CreateMatchInput{Player1ID: p, Player2ID: p, FramesToWin: 3})
	assert.True(t, apperr.IsValidation(err))

	_, err = svc.CreateMatch(context.Background(), CreateMatchInput{Player1ID: p, Player2ID: uuid.New(), FramesToWin: 3})
	assert.True(t, apperr.IsNotFound(err), "unknown profiles are rejected")
}

func TestStartFrameNumbersAreConsecutive(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	svc, _ := newTestService(t, db)
	match := createMatchForTest(t, svc, db, 5)

	frame1, err := svc.StartFrame(context.Background(), match.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, frame1.FrameNumber)

	// A second start while frame 1 is active must conflict.
	_, err = svc.StartFrame(context.Background(), match.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))

	_, err = svc.EndFrame(context.Background(), frame1.ID, match.Player1ID)
	require.NoError(t, err)

	frame2, err := svc.StartFrame(context.Background(), match.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, frame2.FrameNumber)
}

func TestEndFrameValidatesWinner(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	svc, _ := newTestService(t, db)
	match := createMatchForTest(t, svc, db, 3)

	frame, err := svc.StartFrame(context.Background(), match.ID)
	require.NoError(t, err)

	_, err = svc.EndFrame(context.Background(), frame.ID, uuid.New())
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))

	// The failed call left the frame active.
	_, err = svc.EndFrame(context.Background(), frame.ID, match.Player2ID)
	require.NoError(t, err)
}

func TestEndFrameTwiceConflicts(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	svc, _ := newTestService(t, db)
	match := createMatchForTest(t, svc, db, 3)

	frame, err := svc.StartFrame(context.Background(), match.ID)
	require.NoError(t, err)

	_, err = svc.EndFrame(context.Background(), frame.ID, match.Player1ID)
	require.NoError(t, err)

	_, err = svc.EndFrame(context.Background(), frame.ID, match.Player2ID)
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err), "finalization is terminal")

	// The first result stands.
	data, err := svc.GetMatchData(context.Background(), match.ID)
	require.NoError(t, err)
	require.NotNil(t, data.Frames[0].WinnerID)
	assert.Equal(t, match.Player1ID, *data.Frames[0].WinnerID)
}

func TestRaceToThreeIsWonWithTwoFrames(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	svc, _ := newTestService(t, db)
	match := createMatchForTest(t, svc, db, 3)

	result := winFrame(t, svc, match.ID, match.Player1ID)
	assert.False(t, result.MatchOver)

	result = winFrame(t, svc, match.ID, match.Player1ID)
	assert.True(t, result.MatchOver)
	assert.Equal(t, billiard.OutcomePlayer1Won, result.Outcome)

	data, err := svc.GetMatchData(context.Background(), match.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, data.Player1Wins)
	require.NotNil(t, data.Outcome)
	assert.Equal(t, billiard.OutcomePlayer1Won, *data.Outcome)

	// Terminal state: no further frames may start.
	_, err = svc.StartFrame(context.Background(), match.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))
}

func TestEvenTargetEndsInDraw(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	svc, _ := newTestService(t, db)
	match := createMatchForTest(t, svc, db, 4)

	winFrame(t, svc, match.ID, match.Player1ID)
	winFrame(t, svc, match.ID, match.Player2ID)
	winFrame(t, svc, match.ID, match.Player1ID)
	result := winFrame(t, svc, match.ID, match.Player2ID)

	assert.True(t, result.MatchOver)
	assert.Equal(t, billiard.OutcomeDraw, result.Outcome)

	data, err := svc.GetMatchData(context.Background(), match.ID)
	require.NoError(t, err)
	require.NotNil(t, data.Outcome)
	assert.Equal(t, billiard.OutcomeDraw, *data.Outcome)
	assert.Equal(t, 2, data.Player1Wins)
	assert.Equal(t, 2, data.Player2Wins)
}

func TestCompletionIsSignaledOnce(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	svc, broadcaster := newTestService(t, db)
	match := createMatchForTest(t, svc, db, 1)

	result := winFrame(t, svc, match.ID, match.Player2ID)
	require.True(t, result.MatchOver)

	updates := 0
	for _, n := range broadcaster.notices {
		if n.Type == NoticeMatchUpdate {
			updates++
		}
	}
	assert.Equal(t, 1, updates, "one completion-bearing match_update")

	// A rejected mutation publishes nothing.
	before := len(broadcaster.notices)
	_, err := svc.StartFrame(context.Background(), match.ID)
	require.Error(t, err)
	assert.Len(t, broadcaster.notices, before)
}

func TestGetMatchDataDerivesCurrentPlayer(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	svc, _ := newTestService(t, db)
	match := createMatchForTest(t, svc, db, 3)

	frame, err := svc.StartFrame(context.Background(), match.ID)
	require.NoError(t, err)

	// Fresh frame: player1 opens even though the start marker has no player.
	data, err := svc.GetMatchData(context.Background(), match.ID)
	require.NoError(t, err)
	require.NotNil(t, data.CurrentFrameID)
	assert.Equal(t, frame.ID, *data.CurrentFrameID)
	require.NotNil(t, data.CurrentPlayerID)
	assert.Equal(t, match.Player1ID, *data.CurrentPlayerID)

	session, err := svc.SessionForFrame(context.Background(), frame.ID)
	require.NoError(t, err)
	_, err = session.RecordBallsPotted(context.Background(), match.Player2ID, []string{"9"})
	require.NoError(t, err)

	data, err = svc.GetMatchData(context.Background(), match.ID)
	require.NoError(t, err)
	require.NotNil(t, data.CurrentPlayerID)
	assert.Equal(t, match.Player2ID, *data.CurrentPlayerID)
}

func TestRemoveEventResolvesFrame(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	svc, _ := newTestService(t, db)
	match := createMatchForTest(t, svc, db, 3)

	frame, err := svc.StartFrame(context.Background(), match.ID)
	require.NoError(t, err)
	session, err := svc.SessionForFrame(context.Background(), frame.ID)
	require.NoError(t, err)

	event, err := session.RecordFoul(context.Background(), match.Player1ID)
	require.NoError(t, err)

	require.NoError(t, svc.RemoveEvent(context.Background(), event.ID))

	err = svc.RemoveEvent(context.Background(), event.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
}

func TestActiveSessionRequiresActiveFrame(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	svc, _ := newTestService(t, db)
	match := createMatchForTest(t, svc, db, 3)

	_, err := svc.ActiveSession(context.Background(), match.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))

	frame, err := svc.StartFrame(context.Background(), match.ID)
	require.NoError(t, err)

	session, err := svc.ActiveSession(context.Background(), match.ID)
	require.NoError(t, err)
	assert.Equal(t, frame.ID, session.FrameID())
}
