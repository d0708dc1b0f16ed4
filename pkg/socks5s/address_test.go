package socks5s

import (
	"bytes"
	"net"
	"strings"
	"testing"
)

func TestEncodeAddressIPv4(t *testing.T) {
	got, err := encodeAddress("192.0.2.1", 443)
	if err != nil {
		t.Fatalf("encodeAddress: %v", err)
	}
	want := []byte{atypIPv4, 192, 0, 2, 1, 0x01, 0xbb}
	if !bytes.Equal(got, want) {
		t.Fatalf("got % x, want % x", got, want)
	}
}

func TestEncodeAddressIPv6(t *testing.T) {
	got, err := encodeAddress("2001:db8::1", 80)
	if err != nil {
		t.Fatalf("encodeAddress: %v", err)
	}
	if got[0] != atypIPv6 {
		t.Fatalf("want ATYP_IPV6, got 0x%02x", got[0])
	}
	if len(got) != 1+16+2 {
		t.Fatalf("want 19 bytes, got %d", len(got))
	}
	if got[len(got)-2] != 0 || got[len(got)-1] != 80 {
		t.Fatalf("port not encoded correctly: % x", got[len(got)-2:])
	}
}

func TestEncodeAddressDomain(t *testing.T) {
	got, err := encodeAddress("example.com", 8080)
	if err != nil {
		t.Fatalf("encodeAddress: %v", err)
	}
	want := append([]byte{atypDomain, byte(len("example.com"))}, "example.com"...)
	want = append(want, byte(8080>>8), byte(8080))
	if !bytes.Equal(got, want) {
		t.Fatalf("got % x, want % x", got, want)
	}
}

func TestEncodeAddressDomainTooLong(t *testing.T) {
	_, err := encodeAddress(strings.Repeat("a", 256), 80)
	if err == nil {
		t.Fatal("expected error for oversized domain name")
	}
}

func TestReadBoundAddressIPv4(t *testing.T) {
	buf := bytes.NewReader([]byte{10, 0, 0, 1, 0x1f, 0x90})
	addr, err := readBoundAddress(buf, atypIPv4)
	if err != nil {
		t.Fatalf("readBoundAddress: %v", err)
	}
	udpAddr, ok := addr.(*net.UDPAddr)
	if !ok {
		t.Fatalf("want *net.UDPAddr, got %T", addr)
	}
	if !udpAddr.IP.Equal(net.IPv4(10, 0, 0, 1)) || udpAddr.Port != 8080 {
		t.Fatalf("got %v, want 10.0.0.1:8080", udpAddr)
	}
}

func TestReadBoundAddressIPv6(t *testing.T) {
	ip := net.ParseIP("2001:db8::2")
	payload := append(append([]byte{}, ip.To16()...), 0x00, 0x50)
	addr, err := readBoundAddress(bytes.NewReader(payload), atypIPv6)
	if err != nil {
		t.Fatalf("readBoundAddress: %v", err)
	}
	udpAddr := addr.(*net.UDPAddr)
	if !udpAddr.IP.Equal(ip) || udpAddr.Port != 80 {
		t.Fatalf("got %v, want [2001:db8::2]:80", udpAddr)
	}
}

func TestReadBoundAddressUnsupportedATYP(t *testing.T) {
	_, err := readBoundAddress(bytes.NewReader(nil), 0x7f)
	if err == nil {
		t.Fatal("expected error for unsupported ATYP")
	}
}

func TestTransmuteUDPPeerAddrRewritesUnspecified(t *testing.T) {
	peer := &net.UDPAddr{IP: net.IPv4zero, Port: 4000}
	controlPeer := net.ParseIP("203.0.113.5")

	got := transmuteUDPPeerAddr(peer, controlPeer)
	if !got.IP.Equal(controlPeer) || got.Port != 4000 {
		t.Fatalf("got %v, want %v:4000", got, controlPeer)
	}
}

func TestTransmuteUDPPeerAddrLeavesRoutableAddr(t *testing.T) {
	peer := &net.UDPAddr{IP: net.ParseIP("198.51.100.9"), Port: 4000}
	controlPeer := net.ParseIP("203.0.113.5")

	got := transmuteUDPPeerAddr(peer, controlPeer)
	if !got.IP.Equal(peer.IP) || got.Port != peer.Port {
		t.Fatalf("expected routable address left unchanged, got %v", got)
	}
}

func TestTransmuteUDPPeerAddrRewritesIPv6Unspecified(t *testing.T) {
	peer := &net.UDPAddr{IP: net.IPv6unspecified, Port: 5000}
	controlPeer := net.ParseIP("2001:db8::5")

	got := transmuteUDPPeerAddr(peer, controlPeer)
	if !got.IP.Equal(controlPeer) || got.Port != 5000 {
		t.Fatalf("got %v, want %v:5000", got, controlPeer)
	}
}
