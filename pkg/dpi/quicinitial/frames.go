package quicinitial

// Frame type values this walker understands (RFC 9000 §19): PADDING, PING,
// ACK, and CRYPTO frames, plus the two CONNECTION_CLOSE variants, which end
// the walk. Any other frame type is rejected.
const (
	frameTypePadding       = 0x00
	frameTypePing          = 0x01
	frameTypeAckWithoutECN = 0x02
	frameTypeAckWithECN    = 0x03
	frameTypeCrypto        = 0x06
	frameTypeConnCloseQUIC = 0x1c
	frameTypeConnCloseApp  = 0x1d
)

// CryptoChunk is one CRYPTO frame's data at its absolute offset in the
// handshake's CRYPTO stream (RFC 9000 §19.6). A single Initial packet's
// payload can carry more than one CRYPTO frame, and successive Initial
// packets are not guaranteed to arrive in stream order, so offsets are
// reported rather than assumed (spec §4.1: "Out-of-order CRYPTO frames are
// permitted; the coalescer rebuilds by offset").
type CryptoChunk struct {
	Offset uint64
	Data   []byte
}

// ExtractCryptoData walks a decrypted Initial packet payload and returns
// one CryptoChunk per CRYPTO frame found, in the order they appear on the
// wire (not necessarily in stream order). Reassembling chunks from
// multiple packets into the handshake byte stream is
// tlsrecord.HandshakeCoalescer's job (FeedHandshakeBytesAt), not this
// function's: a single packet's payload alone cannot tell whether a given
// offset is actually the next contiguous byte, since that depends on what
// earlier packets already delivered.
func ExtractCryptoData(payload []byte) ([]CryptoChunk, error) {
	var chunks []CryptoChunk
	pos := 0

	for pos < len(payload) {
		frameType := payload[pos]

		if frameType == frameTypePadding {
			pos++
			continue
		}

		typ, n, err := readVarint(payload[pos:])
		if err != nil {
			return nil, errf(InvalidHeader, "frame type: %v", err)
		}
		pos += n

		switch typ {
		case frameTypePing:
			// no payload
		case frameTypeAckWithoutECN, frameTypeAckWithECN:
			pos, err = skipAckFrame(payload, pos, typ == frameTypeAckWithECN)
			if err != nil {
				return nil, err
			}
		case frameTypeCrypto:
			offset, _, data, next, err := parseCryptoFrame(payload, pos)
			if err != nil {
				return nil, err
			}
			chunks = append(chunks, CryptoChunk{Offset: offset, Data: data})
			pos = next
		case frameTypeConnCloseQUIC, frameTypeConnCloseApp:
			// nothing meaningful to extract once the peer is closing
			return chunks, nil
		default:
			return nil, errf(InvalidHeader, "unsupported frame type 0x%x in client initial", typ)
		}
	}
	return chunks, nil
}

func parseCryptoFrame(b []byte, pos int) (offset, length uint64, data []byte, next int, err error) {
	offset, n, err := readVarint(b[pos:])
	if err != nil {
		return 0, 0, nil, 0, errf(InvalidHeader, "crypto frame offset: %v", err)
	}
	pos += n

	length, n, err = readVarint(b[pos:])
	if err != nil {
		return 0, 0, nil, 0, errf(InvalidHeader, "crypto frame length: %v", err)
	}
	pos += n

	if pos+int(length) > len(b) {
		return 0, 0, nil, 0, errf(ShortPacket, "crypto frame data truncated")
	}
	data = b[pos : pos+int(length)]
	return offset, length, data, pos + int(length), nil
}

func skipAckFrame(b []byte, pos int, hasECN bool) (int, error) {
	var n int
	var err error
	advance := func(label string) error {
		_, n, err = readVarint(b[pos:])
		if err != nil {
			return errf(InvalidHeader, "ack frame %s: %v", label, err)
		}
		pos += n
		return nil
	}
	if err := advance("largest acknowledged"); err != nil {
		return 0, err
	}
	if err := advance("ack delay"); err != nil {
		return 0, err
	}
	rangeCount, nn, err := readVarint(b[pos:])
	if err != nil {
		return 0, errf(InvalidHeader, "ack frame range count: %v", err)
	}
	pos += nn
	if err := advance("first ack range"); err != nil {
		return 0, err
	}
	for i := uint64(0); i < rangeCount; i++ {
		if err := advance("gap"); err != nil {
			return 0, err
		}
		if err := advance("ack range length"); err != nil {
			return 0, err
		}
	}
	if hasECN {
		for _, label := range []string{"ect0", "ect1", "ecn-ce"} {
			if err := advance(label); err != nil {
				return 0, err
			}
		}
	}
	return pos, nil
}
