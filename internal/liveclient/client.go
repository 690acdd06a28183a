// Package liveclient implements the viewer side of the match channel: a
// session that dials the spectator endpoint, caches the last authoritative
// state and reconnects on abnormal closes.
package liveclient

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/szlgbiliard/biliard-api/internal/constants"
	"github.com/szlgbiliard/biliard-api/internal/service"
)

// Session follows one match. The zero value is not usable; use Dial.
//
// The server pushes the full state on every (re)connect and version-stamped
// notices afterwards. The session keeps the freshest state it has seen and
// reports staleness instead of guessing at partial updates.
type Session struct {
	url     string
	matchID uuid.UUID
	logger  zerolog.Logger
	backoff retry.Backoff

	mu          sync.RWMutex
	state       *service.MatchData
	seenVersion int64
	connected   bool

	notices chan service.Notice
	cancel  context.CancelFunc
	done    chan struct{}
}

type stateEnvelope struct {
	Type    string             `json:"type"`
	Version int64              `json:"version"`
	Message string             `json:"message,omitempty"`
	Count   int64              `json:"count,omitempty"`
	Data    *service.MatchData `json:"data,omitempty"`
}

// Dial starts a session against a spectator websocket URL. It returns
// immediately; connection state is visible through Connected and Notices.
func Dial(ctx context.Context, url string, matchID uuid.UUID, logger zerolog.Logger) *Session {
	return dial(ctx, url, matchID, logger, retry.NewConstant(constants.ReconnectDelay))
}

func dial(ctx context.Context, url string, matchID uuid.UUID, logger zerolog.Logger, backoff retry.Backoff) *Session {
	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		url:     url,
		matchID: matchID,
		logger:  logger.With().Str("component", "live_client").Str("match_id", matchID.String()).Logger(),
		backoff: backoff,
		notices: make(chan service.Notice, constants.SendBufferSize),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go s.run(ctx)
	return s
}

// Close tears the session down and waits for the reader to exit.
func (s *Session) Close() {
	s.cancel()
	<-s.done
}

// State returns the last authoritative snapshot, or nil before the first
// connect.
func (s *Session) State() *service.MatchData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Stale reports whether a notice has announced a version newer than the
// cached snapshot.
func (s *Session) Stale() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state != nil && s.seenVersion > s.state.StateVersion
}

func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Notices streams every notification received. Slow consumers lose
// notices, not ordering; staleness tracking is unaffected.
func (s *Session) Notices() <-chan service.Notice { return s.notices }

func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	defer close(s.notices)

	err := retry.Do(ctx, s.backoff, func(ctx context.Context) error {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
		if err != nil {
			s.logger.Warn().Err(err).Msg("dial failed, retrying")
			return retry.RetryableError(err)
		}
		s.setConnected(true)
		err = s.readLoop(ctx, conn)
		s.setConnected(false)
		conn.Close()

		if websocket.IsCloseError(err, websocket.CloseNormalClosure) || ctx.Err() != nil {
			return nil
		}
		s.logger.Warn().Err(err).Msg("connection lost, reconnecting")
		return retry.RetryableError(err)
	})
	if err != nil && ctx.Err() == nil {
		s.logger.Error().Err(err).Msg("session ended")
	}
}

func (s *Session) readLoop(ctx context.Context, conn *websocket.Conn) error {
	// The watcher is scoped to this connection; it must not outlive the
	// read loop or every reconnect would strand one goroutine.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-watchDone:
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		s.handle(payload)
	}
}

func (s *Session) handle(payload []byte) {
	var env stateEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		s.logger.Warn().Err(err).Msg("unparseable frame dropped")
		return
	}

	s.mu.Lock()
	if env.Data != nil {
		s.state = env.Data
		if env.Version > s.seenVersion {
			s.seenVersion = env.Version
		}
	} else if env.Version > s.seenVersion {
		s.seenVersion = env.Version
	}
	s.mu.Unlock()

	if env.Data != nil {
		return
	}
	select {
	case s.notices <- service.Notice{Type: env.Type, Version: env.Version, Count: env.Count, Message: env.Message}:
	default:
	}
}

func (s *Session) setConnected(v bool) {
	s.mu.Lock()
	s.connected = v
	s.mu.Unlock()
}
