// Package socks5s implements the SOCKS5-over-TLS ("SOCKS5s") upstream
// dialer (spec §4.5): a TLS handshake to a configured SOCKS5 peer
// followed by a hand-rolled RFC 1928 CONNECT or UDP ASSOCIATE request
// over that encrypted control channel. No third-party SOCKS5 client
// library is used here — see DESIGN.md for why
// golang.org/x/net/proxy.SOCKS5 (the library the teacher's own
// connectViaSOCKS5Proxy in pkg/transport/transport.go reaches for) cannot
// serve this component.
package socks5s

const (
	version5 = 0x05

	authNone         = 0x00
	authUsernamePass = 0x02
	authNoAcceptable = 0xff

	cmdConnect      = 0x01
	cmdUDPAssociate = 0x03

	atypIPv4   = 0x01
	atypDomain = 0x03
	atypIPv6   = 0x04

	replySucceeded = 0x00

	userPassVersion = 0x01
	userPassSuccess = 0x00
)

// replyError maps a SOCKS5 reply status byte (RFC 1928 §6) to a
// human-readable reason.
func replyError(code byte) string {
	switch code {
	case 0x01:
		return "general SOCKS server failure"
	case 0x02:
		return "connection not allowed by ruleset"
	case 0x03:
		return "network unreachable"
	case 0x04:
		return "host unreachable"
	case 0x05:
		return "connection refused"
	case 0x06:
		return "TTL expired"
	case 0x07:
		return "command not supported"
	case 0x08:
		return "address type not supported"
	default:
		return "unknown SOCKS5 reply code"
	}
}
