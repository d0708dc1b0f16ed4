package socks5s

import (
	"fmt"
	"io"
	"net"
)

// encodeAddress builds the ATYP/DST.ADDR/DST.PORT portion of a SOCKS5
// request (RFC 1928 §4) for host:port. IP literals are encoded as
// ATYP_IPV4/ATYP_IPV6; anything else is encoded as ATYP_DOMAINNAME, which
// lets the proxy peer perform its own DNS resolution.
func encodeAddress(host string, port int) ([]byte, error) {
	var buf []byte
	if ip := net.ParseIP(host); ip != nil {
		if ip4 := ip.To4(); ip4 != nil {
			buf = append(buf, atypIPv4)
			buf = append(buf, ip4...)
		} else {
			buf = append(buf, atypIPv6)
			buf = append(buf, ip.To16()...)
		}
	} else {
		if len(host) > 255 {
			return nil, fmt.Errorf("socks5s: domain name too long: %d bytes", len(host))
		}
		buf = append(buf, atypDomain, byte(len(host)))
		buf = append(buf, host...)
	}
	buf = append(buf, byte(port>>8), byte(port))
	return buf, nil
}

// readBoundAddress reads the BND.ADDR/BND.PORT fields of a SOCKS5 reply
// (RFC 1928 §6) given the already-consumed ATYP byte, returning the
// address the proxy bound or connected on.
func readBoundAddress(r io.Reader, atyp byte) (net.Addr, error) {
	var ip net.IP
	switch atyp {
	case atypIPv4:
		b := make([]byte, 4)
		if _, err := io.ReadFull(r, b); err != nil {
			return nil, fmt.Errorf("socks5s: read IPv4 bound address: %w", err)
		}
		ip = net.IP(b)
	case atypIPv6:
		b := make([]byte, 16)
		if _, err := io.ReadFull(r, b); err != nil {
			return nil, fmt.Errorf("socks5s: read IPv6 bound address: %w", err)
		}
		ip = net.IP(b)
	case atypDomain:
		lenBuf := make([]byte, 1)
		if _, err := io.ReadFull(r, lenBuf); err != nil {
			return nil, fmt.Errorf("socks5s: read domain length: %w", err)
		}
		name := make([]byte, lenBuf[0])
		if _, err := io.ReadFull(r, name); err != nil {
			return nil, fmt.Errorf("socks5s: read domain name: %w", err)
		}
		resolved, err := net.ResolveIPAddr("ip", string(name))
		if err != nil {
			return nil, fmt.Errorf("socks5s: resolve bound domain name %q: %w", name, err)
		}
		ip = resolved.IP
	default:
		return nil, fmt.Errorf("socks5s: unsupported ATYP 0x%02x in reply", atyp)
	}

	portBuf := make([]byte, 2)
	if _, err := io.ReadFull(r, portBuf); err != nil {
		return nil, fmt.Errorf("socks5s: read bound port: %w", err)
	}
	port := int(portBuf[0])<<8 | int(portBuf[1])

	return &net.UDPAddr{IP: ip, Port: port}, nil
}

// transmuteUDPPeerAddr rewrites a peer-advertised UDP relay address that
// is unroutable (0.0.0.0 or ::, meaning "same address as the control
// channel") into the control channel's actual peer IP, per spec §4.5:
// "used to work around peers that advertise unroutable addresses".
func transmuteUDPPeerAddr(peerUDP *net.UDPAddr, controlPeerIP net.IP) *net.UDPAddr {
	if peerUDP.IP == nil || peerUDP.IP.IsUnspecified() {
		return &net.UDPAddr{IP: controlPeerIP, Port: peerUDP.Port}
	}
	return peerUDP
}
