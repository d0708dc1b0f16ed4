// Package quicinitial decrypts a client-sent QUIC v1 long-header Initial
// packet and feeds its CRYPTO frame data into the same HandshakeCoalescer
// type pkg/dpi/tlsrecord uses for fragmented TLS ClientHellos, so SNI
// sniffing works identically whether the client speaks TLS-over-TCP or
// TLS-over-QUIC (spec §4.1).
package quicinitial

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/hkdf"
)

// initialSaltV1 is the fixed QUIC version 1 Initial salt (RFC 9001 §5.2).
var initialSaltV1 = []byte{
	0x38, 0x76, 0x2c, 0xf7, 0xf5, 0x59, 0x34, 0xb3,
	0x4d, 0x17, 0x9a, 0xe6, 0xa4, 0xc8, 0x0c, 0xad,
	0xcc, 0xbb, 0x7f, 0x0a,
}

// Initial packet protection always uses AEAD_AES_128_GCM regardless of the
// cipher suite later negotiated (RFC 9001 §5.2).
const (
	initialKeyLen = 16
	initialIVLen  = 12
	initialHPLen  = 16
)

type initialKeys struct {
	key []byte
	iv  []byte
	hp  []byte
	aead cipher.AEAD
}

// deriveClientInitialKeys derives the keys used to protect packets the
// client sends, from the connection's destination connection ID.
func deriveClientInitialKeys(destConnID []byte) (*initialKeys, error) {
	initialSecret := hkdf.Extract(sha256.New, destConnID, initialSaltV1)
	clientSecret := hkdfExpandLabel(initialSecret, "client in", nil, 32)
	return deriveKeys(clientSecret)
}

func deriveKeys(secret []byte) (*initialKeys, error) {
	key := hkdfExpandLabel(secret, "quic key", nil, initialKeyLen)
	iv := hkdfExpandLabel(secret, "quic iv", nil, initialIVLen)
	hp := hkdfExpandLabel(secret, "quic hp", nil, initialHPLen)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &initialKeys{key: key, iv: iv, hp: hp, aead: aead}, nil
}

// hkdfExpandLabel implements the TLS 1.3 HKDF-Expand-Label construction
// (RFC 8446 §7.1) used throughout QUIC key derivation (RFC 9001 §5.1).
func hkdfExpandLabel(secret []byte, label string, context []byte, length int) []byte {
	fullLabel := "tls13 " + label
	hkdfLabel := make([]byte, 2+1+len(fullLabel)+1+len(context))

	hkdfLabel[0] = byte(length >> 8)
	hkdfLabel[1] = byte(length)
	hkdfLabel[2] = byte(len(fullLabel))
	copy(hkdfLabel[3:], fullLabel)
	offset := 3 + len(fullLabel)
	hkdfLabel[offset] = byte(len(context))
	copy(hkdfLabel[offset+1:], context)

	out := make([]byte, length)
	r := hkdf.Expand(sha256.New, secret, hkdfLabel)
	if _, err := r.Read(out); err != nil {
		// hkdf.Expand only fails to fill the reader when more output is
		// requested than HKDF-Expand can ever produce (255*hash size);
		// QUIC's fixed 12-32 byte outputs never hit that ceiling.
		panic(fmt.Sprintf("quicinitial: hkdf expand label: %v", err))
	}
	return out
}

func headerProtectionMask(hp, sample []byte) ([]byte, error) {
	block, err := aes.NewCipher(hp)
	if err != nil {
		return nil, err
	}
	mask := make([]byte, block.BlockSize())
	block.Encrypt(mask, sample)
	return mask, nil
}
