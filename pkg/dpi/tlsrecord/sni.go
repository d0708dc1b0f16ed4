package tlsrecord

import (
	"net"
	"unicode/utf8"
)

const serverNameTypeHostName = 0

// ServerName is the decoded server_name extension value (RFC 6066 §3): a
// single host_name entry. The wire format allows a list, but every deployed
// client sends exactly one entry and the original treats more than one (or
// any non-host_name entry) as malformed rather than silently picking one.
type ServerName string

// ParseServerName decodes a server_name extension body (the bytes of
// Extension.Data for ExtensionServerName).
func ParseServerName(data []byte) (ServerName, error) {
	r := cursor{b: data}

	listLen, err := r.u16()
	if err != nil {
		return "", handshakeErrorf("server_name: truncated list length: %v", err)
	}
	list, err := r.take(int(listLen))
	if err != nil {
		return "", handshakeErrorf("server_name: truncated list: %v", err)
	}
	if r.remaining() != 0 {
		return "", handshakeErrorf("server_name: trailing bytes after list")
	}

	lr := cursor{b: list}
	nameType, err := lr.u8()
	if err != nil {
		return "", handshakeErrorf("server_name: empty list")
	}
	if nameType != serverNameTypeHostName {
		return "", handshakeErrorf("server_name: unsupported name type %d", nameType)
	}
	nameLen, err := lr.u16()
	if err != nil {
		return "", handshakeErrorf("server_name: truncated host_name length: %v", err)
	}
	nameBytes, err := lr.take(int(nameLen))
	if err != nil {
		return "", handshakeErrorf("server_name: truncated host_name: %v", err)
	}
	if lr.remaining() != 0 {
		return "", handshakeErrorf("server_name: more than one entry in server name list")
	}

	if !utf8.Valid(nameBytes) {
		return "", handshakeErrorf("server_name: host_name is not valid UTF-8")
	}
	name := string(nameBytes)
	if name == "" {
		return "", handshakeErrorf("server_name: empty host_name")
	}
	if net.ParseIP(name) != nil {
		return "", handshakeErrorf("server_name: host_name must not be an IP literal")
	}
	return ServerName(name), nil
}

// SNI is a convenience wrapper around GetExt + ParseServerName for the
// common case of pulling the server name straight off a ClientHello.
func (c *ClientHello) SNI() (ServerName, bool, error) {
	ext, ok := c.GetExt(ExtensionServerName)
	if !ok {
		return "", false, nil
	}
	name, err := ParseServerName(ext.Data)
	if err != nil {
		return "", true, err
	}
	return name, true, nil
}
