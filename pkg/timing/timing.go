// Package timing measures the phases of a SOCKS5s control-channel
// negotiation (spec §4.5): TCP dial, TLS handshake, auth sub-negotiation,
// and the CONNECT/UDP ASSOCIATE request/reply round trip.
package timing

import (
	"fmt"
	"time"
)

// Metrics captures how long each negotiation phase took.
type Metrics struct {
	Dial         time.Duration `json:"dial"`
	TLSHandshake time.Duration `json:"tls_handshake"`
	Auth         time.Duration `json:"auth"`
	Request      time.Duration `json:"request"`
	Total        time.Duration `json:"total"`
}

// Timer measures the phases of a single SOCKS5s negotiation attempt.
type Timer struct {
	start time.Time

	dialStart time.Time
	dialEnd   time.Time

	tlsStart time.Time
	tlsEnd   time.Time

	authStart time.Time
	authEnd   time.Time

	reqStart time.Time
	reqEnd   time.Time
}

// NewTimer starts a negotiation timing session.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// StartDial marks the beginning of the TCP dial to the SOCKS5 peer. A nil
// *Timer is a no-op, so callers that don't care about timing can pass nil
// throughout instead of branching.
func (t *Timer) StartDial() {
	if t == nil {
		return
	}
	t.dialStart = time.Now()
}

// EndDial marks the end of the TCP dial.
func (t *Timer) EndDial() {
	if t == nil {
		return
	}
	t.dialEnd = time.Now()
}

// StartTLS marks the beginning of the TLS handshake.
func (t *Timer) StartTLS() {
	if t == nil {
		return
	}
	t.tlsStart = time.Now()
}

// EndTLS marks the end of the TLS handshake.
func (t *Timer) EndTLS() {
	if t == nil {
		return
	}
	t.tlsEnd = time.Now()
}

// StartAuth marks the beginning of the RFC 1928/1929 auth sub-negotiation.
func (t *Timer) StartAuth() {
	if t == nil {
		return
	}
	t.authStart = time.Now()
}

// EndAuth marks the end of the auth sub-negotiation.
func (t *Timer) EndAuth() {
	if t == nil {
		return
	}
	t.authEnd = time.Now()
}

// StartRequest marks the beginning of the CONNECT/UDP ASSOCIATE request.
func (t *Timer) StartRequest() {
	if t == nil {
		return
	}
	t.reqStart = time.Now()
}

// EndRequest marks receipt of the request's reply header.
func (t *Timer) EndRequest() {
	if t == nil {
		return
	}
	t.reqEnd = time.Now()
}

// GetMetrics returns the phase durations measured so far. A phase whose
// Start/End pair was never called reports zero.
func (t *Timer) GetMetrics() Metrics {
	m := Metrics{Total: time.Since(t.start)}

	if !t.dialStart.IsZero() && !t.dialEnd.IsZero() {
		m.Dial = t.dialEnd.Sub(t.dialStart)
	}
	if !t.tlsStart.IsZero() && !t.tlsEnd.IsZero() {
		m.TLSHandshake = t.tlsEnd.Sub(t.tlsStart)
	}
	if !t.authStart.IsZero() && !t.authEnd.IsZero() {
		m.Auth = t.authEnd.Sub(t.authStart)
	}
	if !t.reqStart.IsZero() && !t.reqEnd.IsZero() {
		m.Request = t.reqEnd.Sub(t.reqStart)
	}
	return m
}

// NegotiationTime returns the time spent on dial + TLS + auth, excluding
// the request/reply round trip itself.
func (m Metrics) NegotiationTime() time.Duration {
	return m.Dial + m.TLSHandshake + m.Auth
}

func (m Metrics) String() string {
	return fmt.Sprintf("dial=%v tls=%v auth=%v request=%v total=%v",
		m.Dial, m.TLSHandshake, m.Auth, m.Request, m.Total)
}
