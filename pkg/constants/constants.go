// Package constants defines magic numbers and default values shared across
// the inspection data plane.
package constants

import "time"

// Protocol inspection defaults (spec §6).
const (
	DefaultInspectMaxDepth    = 4
	DefaultData0BufferSize    = 4096
	DefaultData0WaitTimeout   = 60 * time.Second
	DefaultData0ReadTimeout   = 4 * time.Second
	DefaultMaxClientHelloSize = 1 << 16
)

// SMTP reply line limits (spec §3, §4.2).
const (
	SMTPMaxLineSize = 512
)

// SOCKS5s dialer defaults (spec §4.5).
const (
	DefaultPeerNegotiationTimeout = 10 * time.Second
)

// WebSocket close status codes used by C7 (spec §4.7).
const (
	WSStatusGoingAway     = 1001
	WSStatusInternalError = 1011
)
