package main

import (
	"bytes"
	"context"
	"io"
	"net"

	"github.com/sirupsen/logrus"

	"github.com/outpost-proxy/dpicore/pkg/config"
	"github.com/outpost-proxy/dpicore/pkg/dpi/tlsrecord"
	"github.com/outpost-proxy/dpicore/pkg/inspect"
	"github.com/outpost-proxy/dpicore/pkg/ioext"
	"github.com/outpost-proxy/dpicore/pkg/policy"
	"github.com/outpost-proxy/dpicore/pkg/socks5s"
	"github.com/outpost-proxy/dpicore/pkg/stats"
	"github.com/outpost-proxy/dpicore/pkg/tlsconfig"
)

// Server accepts client connections and dispatches each one through the
// inspection bridge, following tamecalm-signal-proxy's Server.Start
// accept-loop shape (net.Listener, one goroutine per connection, no
// connection pooling since each flow dials its own upstream exactly once).
type Server struct {
	cfg    config.Config
	logger *logrus.Logger
	stats  *stats.Registry
	bridge *inspect.Bridge
}

func NewServer(cfg config.Config, logger *logrus.Logger, statsReg *stats.Registry, pol *policy.Policy) *Server {
	return &Server{
		cfg:    cfg,
		logger: logger,
		stats:  statsReg,
		bridge: &inspect.Bridge{Policy: pol},
	}
}

// Start accepts connections on cfg.Listen.Address until the listener
// fails; each accepted connection is handled in its own goroutine.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Listen.Address)
	if err != nil {
		return err
	}
	defer ln.Close()

	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(conn)
	}
}

// handleConn sniffs the destination host out of conn's TLS ClientHello,
// checks it against the policy, dials it through the SOCKS5s peer, and
// dispatches the pair to the inspection bridge.
func (s *Server) handleConn(clientConn net.Conn) {
	defer clientConn.Close()

	notes := inspect.NewTaskNotes(clientConn.RemoteAddr(), "")
	taskID := notes.ID.String()

	var captured bytes.Buffer
	host, err := tlsrecord.ExtractSNI(io.TeeReader(clientConn, &captured), uint32(s.cfg.Inspect.MaxClientHelloLen))
	if err != nil {
		s.logger.WithField("task_id", taskID).WithError(err).Debug("sni sniff failed")
		return
	}
	if host == "" {
		s.logger.WithField("task_id", taskID).Debug("client hello carried no server_name extension")
		return
	}

	entry := config.TaskLogger(s.logger, taskID, string(host), "")

	ctx := context.Background()
	dialer, err := s.cfg.Peer.Dialer()
	if err != nil {
		entry.WithError(err).Error("invalid peer TLS configuration")
		return
	}
	upstreamConn, _, err := dialer.ConnectTCP(ctx, string(host), s.cfg.Inspect.DestinationPort)
	if err != nil {
		entry.WithError(err).Warn("failed to connect upstream via socks5s peer")
		return
	}
	defer upstreamConn.Close()

	entry.WithField("cipher_suite", tlsconfig.GetCipherSuiteName(upstreamConn.ConnectionState().CipherSuite)).
		Debug("control channel TLS handshake complete")

	taskNorth := s.stats.TaskSink("client_to_upstream")
	taskSouth := s.stats.TaskSink("upstream_to_client")

	upstreamWrapped := socks5s.WrapConnectedHalves(ctx, upstreamConn, s.cfg.Limits, taskSouth, nil)
	clientWrapped := ioext.NewConn(ctx, &sniffedConn{Conn: clientConn, pending: bytes.NewReader(captured.Bytes())},
		ioext.Direction{Limit: s.cfg.Limits.North(), Sinks: stats.Sinks{taskNorth}},
		ioext.Direction{Limit: s.cfg.Limits.South(), Sinks: stats.Sinks{taskSouth}},
	)

	sic := &inspect.StreamInspectContext{
		TaskNotes: notes,
		MaxDepth:  s.cfg.Inspect.MaxDepth,
		Sinks:     stats.Sinks{taskNorth},
		Logger:    entry,
	}
	halves := inspect.Halves{
		ClientReader:   clientWrapped,
		ClientWriter:   clientWrapped,
		UpstreamReader: upstreamWrapped,
		UpstreamWriter: upstreamWrapped,
	}

	if _, err := s.bridge.Dispatch(string(host), sic, halves, inspect.ProtocolTLS, captured.Bytes()); err != nil {
		entry.WithError(err).Debug("flow finished with error")
	}
}

// sniffedConn replays the bytes ExtractSNI already consumed from Conn
// before letting reads fall through to the live socket, so the ClientHello
// bytes sniffed for SNI are not lost to the transit the bridge performs
// afterward.
type sniffedConn struct {
	net.Conn
	pending *bytes.Reader
}

func (c *sniffedConn) Read(p []byte) (int, error) {
	if c.pending.Len() > 0 {
		return c.pending.Read(p)
	}
	return c.Conn.Read(p)
}
