package constants

import "time"

const (
	DatabaseTimeout = 5 * time.Second
	RequestTimeout  = 30 * time.Second
	ShutdownTimeout = 5 * time.Second
)

// WebSocket channel tuning.
const (
	WriteWait      = 10 * time.Second
	PongWait       = 60 * time.Second
	PingPeriod     = 54 * time.Second
	MaxMessageSize = 4096
	SendBufferSize = 16
)

// ReconnectDelay is the fixed backoff viewer sessions wait between
// reconnection attempts after an abnormal close.
const ReconnectDelay = 3 * time.Second

const TokenLifetime = 24 * time.Hour
