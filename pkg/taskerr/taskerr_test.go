package taskerr

import (
	"errors"
	"testing"
)

func TestClassification(t *testing.T) {
	cases := []struct {
		kind Kind
		want Class
	}{
		{InvalidClientProtocol, ClassClientProtocol},
		{ClosedByClient, ClassClientProtocol},
		{ClientTCPReadFailed, ClassClientProtocol},
		{UpstreamTLSHandshakeFailed, ClassUpstreamPeer},
		{NegotiationPeerTimeout, ClassUpstreamPeer},
		{InternalAdapterError, ClassInternalAdapter},
	}
	for _, c := range cases {
		if got := c.kind.Class(); got != c.want {
			t.Errorf("%s.Class() = %v, want %v", c.kind, got, c.want)
		}
	}
}

func TestIsMatchesByKind(t *testing.T) {
	err := NewUpstreamTLSHandshakeFailed(errors.New("boom"))
	if !errors.Is(err, New(UpstreamTLSHandshakeFailed, "")) {
		t.Fatal("expected errors.Is to match by kind")
	}
	if errors.Is(err, New(ConnectFailed, "")) {
		t.Fatal("did not expect match across kinds")
	}
}

func TestErrorStringIncludesHostAndCause(t *testing.T) {
	err := NewConnectFailed(errors.New("refused")).WithHost("example.net", 443)
	got := err.Error()
	want := "[connect_failed] example.net:443: connect failed: refused"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
