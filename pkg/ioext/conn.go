package ioext

import (
	"context"
	"net"

	"github.com/outpost-proxy/dpicore/pkg/stats"
)

// Conn wraps a net.Conn with per-direction window-rate limiting and
// stats-sink fan-out (spec §4.6). North is client -> upstream, south is
// upstream -> client; callers pick which limiter/sinks apply to Read vs
// Write based on which side of the flow this half represents.
type Conn struct {
	net.Conn

	ctx context.Context

	readLimiter  *limiter
	writeLimiter *limiter

	readSinks  stats.Sinks
	writeSinks stats.Sinks
}

// Direction selects which half of a SpeedLimit/stats pairing a Conn's
// Read (ingress) and Write (egress) sides use.
type Direction struct {
	Limit Limit
	Sinks stats.Sinks
}

// NewConn wraps inner. read governs Conn.Read, write governs Conn.Write.
// ctx bounds how long Read/Write will block waiting for rate-limit
// headroom; a canceled ctx unblocks a pending Read/Write with ctx.Err().
func NewConn(ctx context.Context, inner net.Conn, read, write Direction) *Conn {
	return &Conn{
		Conn:         inner,
		ctx:          ctx,
		readLimiter:  newLimiter(read.Limit),
		writeLimiter: newLimiter(write.Limit),
		readSinks:    read.Sinks,
		writeSinks:   write.Sinks,
	}
}

// Read blocks until the read-side window has headroom, then performs one
// underlying Read and accounts its result.
func (c *Conn) Read(p []byte) (int, error) {
	if err := c.readLimiter.wait(c.ctx); err != nil {
		return 0, err
	}
	n, err := c.Conn.Read(p)
	if n > 0 {
		c.readLimiter.record(uint64(n), 0)
		c.readSinks.AddBytes(uint64(n))
	}
	return n, err
}

// Write blocks until the write-side window has headroom, then performs
// one underlying Write and accounts its result. Like net.Conn.Write, a
// short write without an error should not occur for stream sockets; if
// the underlying conn ever returns one, only the bytes actually written
// are accounted.
func (c *Conn) Write(p []byte) (int, error) {
	if err := c.writeLimiter.wait(c.ctx); err != nil {
		return 0, err
	}
	n, err := c.Conn.Write(p)
	if n > 0 {
		c.writeLimiter.record(uint64(n), 0)
		c.writeSinks.AddBytes(uint64(n))
	}
	return n, err
}
