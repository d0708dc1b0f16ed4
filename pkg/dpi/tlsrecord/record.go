package tlsrecord

import "encoding/binary"

// ContentType is the TLS record content type (RFC 8446 §5.1).
type ContentType byte

const (
	ContentTypeChangeCipherSpec ContentType = 20
	ContentTypeAlert            ContentType = 21
	ContentTypeHandshake        ContentType = 22
	ContentTypeApplicationData  ContentType = 23
)

func (c ContentType) valid() bool {
	switch c {
	case ContentTypeChangeCipherSpec, ContentTypeAlert, ContentTypeHandshake, ContentTypeApplicationData:
		return true
	default:
		return false
	}
}

// maxFragmentSize is the largest plaintext TLS record fragment RFC 8446
// allows (2^14) plus the historical compatibility slack TLS stacks grant
// already-compressed/encrypted fragments.
const maxFragmentSize = 1<<14 + 2048

func validLegacyVersion(v uint16) bool {
	// SSL 3.0 (0x0300) through TLS 1.3's legacy_record_version (0x0304).
	return v >= 0x0300 && v <= 0x0304
}

// Record is one TLS record header plus its fragment, as read directly off
// the wire. Parse requires the complete record (header + fragment) to
// already be buffered; a record whose fragment is still arriving across
// reads is reported via NeedMoreData, not partially decoded.
type Record struct {
	ContentType ContentType
	Version     uint16
	Fragment    []byte

	encodedLen int
	done       bool
}

// Parse decodes a single TLS record from the front of b. It returns
// NeedMoreData when fewer than the declared record length are present.
func Parse(b []byte) (Record, error) {
	if len(b) < 5 {
		return Record{}, needMoreData(5 - len(b))
	}
	ct := ContentType(b[0])
	ver := binary.BigEndian.Uint16(b[1:3])
	fragLen := int(binary.BigEndian.Uint16(b[3:5]))

	if !ct.valid() {
		return Record{}, &ParseError{Kind: InvalidContentType}
	}
	if !validLegacyVersion(ver) {
		return Record{}, &ParseError{Kind: InvalidVersion}
	}
	if fragLen > maxFragmentSize {
		return Record{}, &ParseError{Kind: FragmentTooLarge}
	}
	total := 5 + fragLen
	if len(b) < total {
		return Record{}, needMoreData(total - len(b))
	}
	return Record{
		ContentType: ct,
		Version:     ver,
		Fragment:    b[5:total],
		encodedLen:  total,
	}, nil
}

// EncodedLen is the total number of bytes (header + fragment) this record
// occupied in the source buffer.
func (r Record) EncodedLen() int { return r.encodedLen }

// ConsumeDone reports whether, after the most recent ConsumeHandshake call,
// no partial trailing handshake message remains inside this record. A
// record that ends mid-handshake-header or mid-handshake-body (and whose
// bytes were not fully absorbed into the coalescer) returns false; the
// caller should treat that as a protocol error rather than read more.
func (r Record) ConsumeDone() bool { return r.done }

// ConsumeHandshake feeds this record's fragment into the handshake
// coalescer. It returns a non-nil HandshakeMessage only when the fragment
// by itself contains a complete handshake message without needing any
// coalescer state (the common single-record case); cross-record
// reassembly always returns through coalescer.ParseClientHello instead.
func (r *Record) ConsumeHandshake(c *HandshakeCoalescer) (*HandshakeMessage, error) {
	if r.ContentType != ContentTypeHandshake {
		r.done = true
		return nil, handshakeErrorf("record is not a handshake record (content type %d)", r.ContentType)
	}

	switch c.state() {
	case coalescerEmpty:
		return r.consumeFirst(c)
	case coalescerPartial:
		return nil, r.consumeContinuation(c)
	default: // coalescerReady: nothing further should arrive for this message
		r.done = len(r.Fragment) == 0
		return nil, nil
	}
}

func (r *Record) consumeFirst(c *HandshakeCoalescer) (*HandshakeMessage, error) {
	frag := r.Fragment
	if len(frag) >= 4 {
		total := 4 + int(u24(frag[1:4]))
		if len(frag) >= total {
			msg := HandshakeMessage(append([]byte(nil), frag[:total]...))
			leftover := frag[total:]
			r.done = allCompleteHandshakes(leftover)
			return &msg, nil
		}
	}
	if err := c.appendBytes(frag); err != nil {
		r.done = false
		return nil, err
	}
	r.done = true
	return nil, nil
}

func (r *Record) consumeContinuation(c *HandshakeCoalescer) error {
	total := 4 + int(u24(c.raw[1:4]))
	needed := total - len(c.raw)
	frag := r.Fragment

	if len(frag) <= needed {
		if err := c.appendBytes(frag); err != nil {
			r.done = false
			return err
		}
		r.done = true
		return nil
	}

	if err := c.appendBytes(frag[:needed]); err != nil {
		r.done = false
		return err
	}
	leftover := frag[needed:]
	r.done = allCompleteHandshakes(leftover)
	return nil
}

func u24(b []byte) uint32 {
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}

// allCompleteHandshakes reports whether b consists of zero or more complete
// handshake messages back to back, with no partial trailing message. It
// implements the "first complete message wins" rule for mixed-content
// records: extra complete messages after the first are tolerated, a
// partial trailing one is not.
func allCompleteHandshakes(b []byte) bool {
	for len(b) > 0 {
		if len(b) < 4 {
			return false
		}
		total := 4 + int(u24(b[1:4]))
		if len(b) < total {
			return false
		}
		b = b[total:]
	}
	return true
}
