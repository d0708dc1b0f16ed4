package ioext

import (
	"context"
	"net"

	"github.com/outpost-proxy/dpicore/pkg/stats"
)

// PacketConn wraps a connected net.Conn carrying UDP datagrams (the
// socket returned by a SOCKS5s UDP-ASSOCIATE dial, already connect()ed to
// the peer's relay address per spec §4.5) with per-direction rate
// limiting and stats accounting, counting both bytes and packets — unlike
// Conn, which only accounts bytes for byte-stream sockets.
type PacketConn struct {
	inner net.Conn

	ctx context.Context

	sendLimiter *limiter
	recvLimiter *limiter

	sendSinks stats.Sinks
	recvSinks stats.Sinks
}

// NewPacketConn wraps inner. send governs Send (egress datagrams), recv
// governs Recv (ingress datagrams).
func NewPacketConn(ctx context.Context, inner net.Conn, send, recv Direction) *PacketConn {
	return &PacketConn{
		inner:       inner,
		ctx:         ctx,
		sendLimiter: newLimiter(send.Limit),
		recvLimiter: newLimiter(recv.Limit),
		sendSinks:   send.Sinks,
		recvSinks:   recv.Sinks,
	}
}

// Send blocks until the send-side window has headroom for one more
// datagram, then writes it whole.
func (p *PacketConn) Send(datagram []byte) (int, error) {
	if err := p.sendLimiter.wait(p.ctx); err != nil {
		return 0, err
	}
	n, err := p.inner.Write(datagram)
	if n > 0 {
		p.sendLimiter.record(uint64(n), 1)
		p.sendSinks.AddBytes(uint64(n))
		p.sendSinks.AddPacket()
	}
	return n, err
}

// Recv blocks until the recv-side window has headroom for one more
// datagram, then reads one into buf.
func (p *PacketConn) Recv(buf []byte) (int, error) {
	if err := p.recvLimiter.wait(p.ctx); err != nil {
		return 0, err
	}
	n, err := p.inner.Read(buf)
	if n > 0 {
		p.recvLimiter.record(uint64(n), 1)
		p.recvSinks.AddBytes(uint64(n))
		p.recvSinks.AddPacket()
	}
	return n, err
}

// Close releases the underlying socket.
func (p *PacketConn) Close() error {
	return p.inner.Close()
}

// LocalAddr returns the local network address of the underlying socket.
func (p *PacketConn) LocalAddr() net.Addr {
	return p.inner.LocalAddr()
}

// RemoteAddr returns the peer relay address the underlying socket is
// connected to.
func (p *PacketConn) RemoteAddr() net.Addr {
	return p.inner.RemoteAddr()
}
