package live

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/szlgbiliard/biliard-api/internal/constants"
)

// newUpgrader restricts the handshake to the configured origin. An empty
// origin setting keeps the check open for local development.
func newUpgrader(allowedOrigin string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if allowedOrigin == "" {
				return true
			}
			return r.Header.Get("Origin") == allowedOrigin
		},
	}
}

// writePump drains the subscription into the socket and keeps the
// connection alive with pings. It exits when the subscription closes or a
// write fails.
func writePump(conn *websocket.Conn, sub *Subscription, logger zerolog.Logger) {
	ticker := time.NewTicker(constants.PingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case payload, ok := <-sub.C():
			conn.SetWriteDeadline(time.Now().Add(constants.WriteWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Debug().Err(err).Msg("write failed, dropping connection")
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(constants.WriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func configureReader(conn *websocket.Conn) {
	conn.SetReadLimit(constants.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(constants.PongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(constants.PongWait))
		return nil
	})
}
