package socks5s

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/outpost-proxy/dpicore/pkg/ioext"
	"github.com/outpost-proxy/dpicore/pkg/stats"
	"github.com/outpost-proxy/dpicore/pkg/taskerr"
	"github.com/outpost-proxy/dpicore/pkg/timing"
)

// Dialer negotiates TCP CONNECT and UDP ASSOCIATE through an upstream
// SOCKS5 peer over a TLS-wrapped control channel (spec §4.5).
type Dialer struct {
	ProxyAddr          string
	TLSConfig          *tls.Config
	Username           string
	Password           string
	NegotiationTimeout time.Duration
	NetDialer          net.Dialer
}

func (d *Dialer) negotiationTimeout() time.Duration {
	if d.NegotiationTimeout > 0 {
		return d.NegotiationTimeout
	}
	return 10 * time.Second
}

// handshakeTLS dials ProxyAddr and performs the TLS handshake, logging
// and classifying failures the way spec §4.5 requires ("TLS handshake
// errors and timeouts are logged via an escape log ... the error
// returned is UpstreamTlsHandshakeFailed(e) or
// UpstreamTlsHandshakeTimeout").
func (d *Dialer) handshakeTLS(ctx context.Context, timer *timing.Timer) (*tls.Conn, error) {
	timer.StartDial()
	rawConn, err := d.NetDialer.DialContext(ctx, "tcp", d.ProxyAddr)
	timer.EndDial()
	if err != nil {
		return nil, taskerr.NewConnectFailed(err).WithHost(d.ProxyAddr, 0)
	}

	timer.StartTLS()
	tlsConn := tls.Client(rawConn, d.TLSConfig)
	err = tlsConn.HandshakeContext(ctx)
	timer.EndTLS()
	if err != nil {
		rawConn.Close()
		if ctx.Err() != nil {
			return nil, taskerr.NewUpstreamTLSHandshakeTimeout().WithHost(d.ProxyAddr, 0)
		}
		return nil, taskerr.NewUpstreamTLSHandshakeFailed(err).WithHost(d.ProxyAddr, 0)
	}
	return tlsConn, nil
}

// authenticate performs the RFC 1928 method negotiation followed by the
// RFC 1929 username/password sub-negotiation if Username is set.
func (d *Dialer) authenticate(conn *tls.Conn) error {
	return d.authenticateTimed(conn, nil)
}

func (d *Dialer) authenticateTimed(conn *tls.Conn, timer *timing.Timer) error {
	timer.StartAuth()
	defer timer.EndAuth()

	methods := []byte{authNone}
	if d.Username != "" {
		methods = append(methods, authUsernamePass)
	}

	greeting := append([]byte{version5, byte(len(methods))}, methods...)
	if _, err := conn.Write(greeting); err != nil {
		return fmt.Errorf("socks5s: write method greeting: %w", err)
	}

	resp := make([]byte, 2)
	if _, err := io.ReadFull(conn, resp); err != nil {
		return fmt.Errorf("socks5s: read method selection: %w", err)
	}
	if resp[0] != version5 {
		return fmt.Errorf("socks5s: unexpected SOCKS version 0x%02x in method selection", resp[0])
	}

	switch resp[1] {
	case authNone:
		return nil
	case authUsernamePass:
		return d.authenticateUserPass(conn)
	case authNoAcceptable:
		return fmt.Errorf("socks5s: proxy rejected all offered authentication methods")
	default:
		return fmt.Errorf("socks5s: proxy selected unsupported auth method 0x%02x", resp[1])
	}
}

func (d *Dialer) authenticateUserPass(conn *tls.Conn) error {
	if len(d.Username) > 255 || len(d.Password) > 255 {
		return fmt.Errorf("socks5s: username/password must each be <= 255 bytes")
	}
	req := []byte{userPassVersion, byte(len(d.Username))}
	req = append(req, d.Username...)
	req = append(req, byte(len(d.Password)))
	req = append(req, d.Password...)
	if _, err := conn.Write(req); err != nil {
		return fmt.Errorf("socks5s: write username/password: %w", err)
	}

	resp := make([]byte, 2)
	if _, err := io.ReadFull(conn, resp); err != nil {
		return fmt.Errorf("socks5s: read username/password response: %w", err)
	}
	if resp[1] != userPassSuccess {
		return fmt.Errorf("socks5s: username/password authentication rejected")
	}
	return nil
}

// sendRequest writes a SOCKS5 request (RFC 1928 §4) and reads back the
// reply header, returning the bound address on success.
func (d *Dialer) sendRequest(conn net.Conn, cmd byte, host string, port int) (net.Addr, error) {
	return d.sendRequestTimed(conn, cmd, host, port, nil)
}

func (d *Dialer) sendRequestTimed(conn net.Conn, cmd byte, host string, port int, timer *timing.Timer) (net.Addr, error) {
	timer.StartRequest()
	defer timer.EndRequest()

	addr, err := encodeAddress(host, port)
	if err != nil {
		return nil, err
	}
	req := append([]byte{version5, cmd, 0x00}, addr...)
	if _, err := conn.Write(req); err != nil {
		return nil, fmt.Errorf("socks5s: write request: %w", err)
	}

	header := make([]byte, 4)
	if _, err := io.ReadFull(conn, header); err != nil {
		return nil, fmt.Errorf("socks5s: read reply header: %w", err)
	}
	if header[0] != version5 {
		return nil, fmt.Errorf("socks5s: unexpected SOCKS version 0x%02x in reply", header[0])
	}
	if header[1] != replySucceeded {
		return nil, fmt.Errorf("socks5s: %s (0x%02x)", replyError(header[1]), header[1])
	}

	return readBoundAddress(conn, header[3])
}

// ConnectTCP implements the "timed_*" wrapping of
// socks5_connect_tcp_connect_to (spec §4.5) directly: a TLS handshake to
// the peer followed by a SOCKS5 CONNECT to host:port, the whole
// negotiation bounded by NegotiationTimeout (a timeout while dialing
// surfaces as taskerr.ConnectFailed, one during the TLS handshake as
// taskerr.UpstreamTLSHandshakeTimeout, and one during authentication or
// the request as taskerr.NegotiationPeerTimeout, per spec's "timeout maps to
// NegotiationPeerTimeout (TCP)"). The returned net.Conn is the TLS
// connection itself; callers wrap it with pkg/ioext for byte accounting
// once the negotiation completes (spec §4.5 "After negotiation the duplex
// is split; each half is wrapped by C6").
func (d *Dialer) ConnectTCP(ctx context.Context, host string, port int) (*tls.Conn, net.Addr, error) {
	conn, boundAddr, _, err := d.ConnectTCPTimed(ctx, host, port)
	return conn, boundAddr, err
}

// ConnectTCPTimed is ConnectTCP plus a breakdown of how long each
// negotiation phase took, for callers that want to surface it (escape
// logging, diagnostics).
func (d *Dialer) ConnectTCPTimed(ctx context.Context, host string, port int) (*tls.Conn, net.Addr, timing.Metrics, error) {
	timer := timing.NewTimer()
	negCtx, cancel := context.WithTimeout(ctx, d.negotiationTimeout())
	defer cancel()

	conn, err := d.handshakeTLS(negCtx, timer)
	if err != nil {
		return nil, nil, timer.GetMetrics(), err
	}
	// Auth and the request do not observe negCtx themselves, so its expiry
	// is applied to conn as an already-passed deadline.
	stop := context.AfterFunc(negCtx, func() { conn.SetDeadline(time.Unix(1, 0)) })
	defer stop()
	if err := d.authenticateTimed(conn, timer); err != nil {
		conn.Close()
		return nil, nil, timer.GetMetrics(), classifyNegotiationError(negCtx, err)
	}
	boundAddr, err := d.sendRequestTimed(conn, cmdConnect, host, port, timer)
	if err != nil {
		conn.Close()
		return nil, nil, timer.GetMetrics(), classifyNegotiationError(negCtx, err)
	}
	if !stop() {
		conn.Close()
		return nil, nil, timer.GetMetrics(), taskerr.NewNegotiationPeerTimeout()
	}
	return conn, boundAddr, timer.GetMetrics(), nil
}

// WrapConnectedHalves wraps a successfully negotiated CONNECT's TLS
// connection with C6 byte accounting for both directions (spec §4.5's
// closing sentence).
func WrapConnectedHalves(ctx context.Context, conn *tls.Conn, limit ioext.SpeedLimit, taskSink, userSink *stats.Sink) *ioext.Conn {
	return ioext.NewConn(ctx, conn,
		ioext.Direction{Limit: limit.South(), Sinks: stats.Sinks{taskSink, userSink}},
		ioext.Direction{Limit: limit.North(), Sinks: stats.Sinks{taskSink, userSink}},
	)
}

func classifyNegotiationError(negCtx context.Context, err error) error {
	if negCtx.Err() != nil {
		return taskerr.NewNegotiationPeerTimeout()
	}
	return taskerr.NewInternalAdapterError(err.Error())
}
