package tlsrecord

// coalescerState is the internal HandshakeCoalescer state (spec §3):
// Empty -> no bytes seen yet; Partial -> header and/or body still
// incomplete; Ready -> a full handshake message is buffered and waiting to
// be decoded exactly once.
type coalescerState int

const (
	coalescerEmpty coalescerState = iota
	coalescerPartial
	coalescerReady
)

// HandshakeCoalescer reassembles a single handshake message (the
// ClientHello, in practice) across however many TLS records it was split
// over. One coalescer instance is scoped to one handshake message; the same
// type is reused by pkg/dpi/quicinitial for CRYPTO-frame reassembly, where
// frames (and so the Initial packets carrying them) may arrive out of
// order (spec §4.1: "Out-of-order CRYPTO frames are permitted; the
// coalescer rebuilds by offset").
type HandshakeCoalescer struct {
	max      uint32
	raw      []byte
	pending  []cryptoSegment
	consumed bool
}

// cryptoSegment is a byte range at an absolute CRYPTO-stream offset that
// could not be appended to raw yet because an earlier gap hasn't closed.
type cryptoSegment struct {
	offset uint64
	data   []byte
}

// NewHandshakeCoalescer returns a coalescer that rejects a handshake
// message (4-byte header plus body) larger than max bytes (spec's
// max_client_hello_size, default 1<<16).
func NewHandshakeCoalescer(max uint32) *HandshakeCoalescer {
	return &HandshakeCoalescer{max: max}
}

func (c *HandshakeCoalescer) state() coalescerState {
	switch {
	case len(c.raw) == 0:
		return coalescerEmpty
	case len(c.raw) >= 4 && uint32(len(c.raw)) >= 4+u24(c.raw[1:4]):
		return coalescerReady
	default:
		return coalescerPartial
	}
}

func (c *HandshakeCoalescer) appendBytes(b []byte) error {
	if uint32(len(c.raw)+len(b)) > c.max {
		return handshakeErrorf("fragmented handshake exceeds %d byte limit", c.max)
	}
	c.raw = append(c.raw, b...)
	return nil
}

// FeedHandshakeBytes appends raw handshake bytes directly to the coalescer,
// bypassing the TLS record framing Record.ConsumeHandshake expects. This is
// what the in-order TLS record path uses: bytes always arrive contiguous
// with whatever has already been buffered, so the implicit offset is
// simply the current length.
func (c *HandshakeCoalescer) FeedHandshakeBytes(b []byte) error {
	return c.FeedHandshakeBytesAt(uint64(len(c.raw)), b)
}

// FeedHandshakeBytesAt places b at its absolute offset in the reassembled
// handshake message. A gap before offset (data that hasn't arrived yet)
// buffers b in pending; once the gap closes, drainPending folds it (and
// any later chunks it unblocks) into raw. This is what
// pkg/dpi/quicinitial uses to reassemble CRYPTO frame data that can arrive
// out of order across Initial packets.
func (c *HandshakeCoalescer) FeedHandshakeBytesAt(offset uint64, b []byte) error {
	if len(b) == 0 {
		return nil
	}
	c.pending = append(c.pending, cryptoSegment{offset: offset, data: b})
	return c.drainPending()
}

// drainPending repeatedly folds any pending segment that is now contiguous
// with raw (or fully overlapped by it) into raw, until a full pass makes no
// progress. Segments still separated from raw by a gap stay pending.
func (c *HandshakeCoalescer) drainPending() error {
	for progressed := true; progressed; {
		progressed = false
		for i, seg := range c.pending {
			start := uint64(len(c.raw))
			end := seg.offset + uint64(len(seg.data))
			switch {
			case end <= start:
				// entirely duplicate data already folded in; drop it.
			case seg.offset > start:
				continue // still a gap ahead of raw; leave pending
			default:
				if err := c.appendBytes(seg.data[start-seg.offset:]); err != nil {
					return err
				}
			}
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			progressed = true
			break
		}
	}
	return nil
}

// Ready reports whether a complete handshake message is currently buffered.
func (c *HandshakeCoalescer) Ready() bool { return c.state() == coalescerReady }

// ParseClientHello decodes the buffered handshake message as a ClientHello.
// It returns (nil, nil) if the coalescer does not yet hold a complete
// message, or if ParseClientHello already returned once for this coalescer
// (the message has been consumed).
func (c *HandshakeCoalescer) ParseClientHello() (*ClientHello, error) {
	if c.state() != coalescerReady || c.consumed {
		return nil, nil
	}
	c.consumed = true
	total := 4 + int(u24(c.raw[1:4]))
	msg := HandshakeMessage(c.raw[:total])
	return msg.ParseClientHello()
}

// HandshakeType identifies a TLS handshake message (RFC 8446 §4).
type HandshakeType byte

const (
	HandshakeTypeClientHello HandshakeType = 1
	HandshakeTypeServerHello HandshakeType = 2
)

// HandshakeMessage is a complete, unfragmented handshake message: a 4-byte
// header (type, 3-byte length) followed by its body.
type HandshakeMessage []byte

func (m HandshakeMessage) msgType() HandshakeType { return HandshakeType(m[0]) }
func (m HandshakeMessage) body() []byte           { return m[4:] }

// ParseClientHello decodes m as a ClientHello, failing if m is some other
// handshake message type. The ClientHello must be the first handshake
// message on the wire; any other type at this position is a protocol error.
func (m HandshakeMessage) ParseClientHello() (*ClientHello, error) {
	if len(m) < 4 {
		return nil, handshakeErrorf("truncated handshake header")
	}
	if m.msgType() != HandshakeTypeClientHello {
		return nil, handshakeErrorf("expected ClientHello, got handshake type %d", m.msgType())
	}
	return parseClientHelloBody(m.body())
}
