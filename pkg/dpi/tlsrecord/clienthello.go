package tlsrecord

import "encoding/binary"

// ExtensionType is a TLS extension_type value (RFC 8446 §4.2 and IANA TLS
// ExtensionType registry). Only the extensions the inspection path actually
// consumes are named; unrecognized ones still round-trip through Extension.
type ExtensionType uint16

const (
	ExtensionServerName         ExtensionType = 0
	ExtensionSupportedGroups    ExtensionType = 10
	ExtensionSignatureAlgorithm ExtensionType = 13
	ExtensionALPN               ExtensionType = 16
	ExtensionSupportedVersions  ExtensionType = 43
	ExtensionPSKKeyExchangeMode ExtensionType = 45
	ExtensionKeyShare           ExtensionType = 51
)

// Extension is a single extension entry from a ClientHello's extensions
// block: a type tag and its opaque, not-yet-decoded body.
type Extension struct {
	Type ExtensionType
	Data []byte
}

// ClientHello is the decoded subset of a TLS ClientHello body that the
// inspection path needs: protocol version, random, session id, cipher
// suites, and the extensions block. Compression methods are skipped over
// but not retained.
type ClientHello struct {
	LegacyVersion uint16
	Random        [32]byte
	SessionID     []byte
	CipherSuites  []uint16
	Extensions    []Extension
}

// GetExt returns the first extension of the given type, if present.
func (c *ClientHello) GetExt(t ExtensionType) (Extension, bool) {
	for _, e := range c.Extensions {
		if e.Type == t {
			return e, true
		}
	}
	return Extension{}, false
}

func parseClientHelloBody(b []byte) (*ClientHello, error) {
	r := cursor{b: b}

	legacyVersion, err := r.u16()
	if err != nil {
		return nil, handshakeErrorf("client hello: truncated legacy_version: %v", err)
	}

	randomBytes, err := r.take(32)
	if err != nil {
		return nil, handshakeErrorf("client hello: truncated random: %v", err)
	}
	var random [32]byte
	copy(random[:], randomBytes)

	sessIDLen, err := r.u8()
	if err != nil {
		return nil, handshakeErrorf("client hello: truncated session_id length: %v", err)
	}
	sessID, err := r.take(int(sessIDLen))
	if err != nil {
		return nil, handshakeErrorf("client hello: truncated session_id: %v", err)
	}

	cipherSuitesLen, err := r.u16()
	if err != nil {
		return nil, handshakeErrorf("client hello: truncated cipher_suites length: %v", err)
	}
	if cipherSuitesLen%2 != 0 {
		return nil, handshakeErrorf("client hello: odd cipher_suites length")
	}
	cipherSuiteBytes, err := r.take(int(cipherSuitesLen))
	if err != nil {
		return nil, handshakeErrorf("client hello: truncated cipher_suites: %v", err)
	}
	cipherSuites := make([]uint16, 0, len(cipherSuiteBytes)/2)
	for i := 0; i < len(cipherSuiteBytes); i += 2 {
		cipherSuites = append(cipherSuites, binary.BigEndian.Uint16(cipherSuiteBytes[i:i+2]))
	}

	compressionLen, err := r.u8()
	if err != nil {
		return nil, handshakeErrorf("client hello: truncated compression_methods length: %v", err)
	}
	if _, err := r.take(int(compressionLen)); err != nil {
		return nil, handshakeErrorf("client hello: truncated compression_methods: %v", err)
	}

	var extensions []Extension
	if r.remaining() > 0 {
		extLen, err := r.u16()
		if err != nil {
			return nil, handshakeErrorf("client hello: truncated extensions length: %v", err)
		}
		extBytes, err := r.take(int(extLen))
		if err != nil {
			return nil, handshakeErrorf("client hello: truncated extensions block: %v", err)
		}
		extensions, err = parseExtensions(extBytes)
		if err != nil {
			return nil, err
		}
	}

	return &ClientHello{
		LegacyVersion: legacyVersion,
		Random:        random,
		SessionID:     sessID,
		CipherSuites:  cipherSuites,
		Extensions:    extensions,
	}, nil
}

func parseExtensions(b []byte) ([]Extension, error) {
	r := cursor{b: b}
	var out []Extension
	for r.remaining() > 0 {
		typ, err := r.u16()
		if err != nil {
			return nil, handshakeErrorf("extension: truncated type: %v", err)
		}
		length, err := r.u16()
		if err != nil {
			return nil, handshakeErrorf("extension: truncated length: %v", err)
		}
		data, err := r.take(int(length))
		if err != nil {
			return nil, handshakeErrorf("extension: truncated data: %v", err)
		}
		out = append(out, Extension{Type: ExtensionType(typ), Data: data})
	}
	return out, nil
}

// cursor is a minimal big-endian byte-slice reader shared by clienthello.go
// and sni.go.
type cursor struct {
	b   []byte
	pos int
}

func (c *cursor) remaining() int { return len(c.b) - c.pos }

func (c *cursor) take(n int) ([]byte, error) {
	if n < 0 || c.remaining() < n {
		return nil, handshakeErrorf("need %d byte(s), have %d", n, c.remaining())
	}
	out := c.b[c.pos : c.pos+n]
	c.pos += n
	return out, nil
}

func (c *cursor) u8() (byte, error) {
	b, err := c.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *cursor) u16() (uint16, error) {
	b, err := c.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}
