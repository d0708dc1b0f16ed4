package quicinitial

import "github.com/outpost-proxy/dpicore/pkg/dpi/tlsrecord"

// FeedInitialPacket decrypts a single client-sent QUIC v1 Initial packet
// and feeds each of its CRYPTO frames into coalescer at that frame's
// absolute CRYPTO-stream offset. It returns the decoded ClientHello once
// enough Initial packets have been fed to complete it, or (nil, nil) if
// more packets are still needed.
//
// Unlike pkg/dpi/tlsrecord's Record, QUIC CRYPTO frame data is already
// unframed handshake bytes (header + body, no TLS record wrapper), so this
// feeds the coalescer directly rather than going through Record. Initial
// packets (and the CRYPTO frames within one) are not guaranteed to arrive
// in stream order, so each chunk is placed by its own offset rather than
// appended blindly; coalescer.FeedHandshakeBytesAt holds back any chunk
// that still has a gap in front of it.
func FeedInitialPacket(packet []byte, coalescer *tlsrecord.HandshakeCoalescer) (*tlsrecord.ClientHello, error) {
	payload, err := DecryptClientInitial(packet)
	if err != nil {
		return nil, err
	}
	chunks, err := ExtractCryptoData(payload)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, nil
	}
	for _, chunk := range chunks {
		if err := coalescer.FeedHandshakeBytesAt(chunk.Offset, chunk.Data); err != nil {
			return nil, err
		}
	}
	return coalescer.ParseClientHello()
}
