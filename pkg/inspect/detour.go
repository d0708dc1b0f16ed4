package inspect

// Protocol names the application-layer protocol the bridge identified
// before deciding Intercept/Bypass/Block/Detour, carried into the
// DetourContext so the external inspector knows how to interpret the
// attached payload snapshot.
type Protocol int

const (
	ProtocolUnknown Protocol = iota
	ProtocolTLS
	ProtocolQUIC
	ProtocolSMTP
	ProtocolWebSocket
	ProtocolH2
)

func (p Protocol) String() string {
	switch p {
	case ProtocolTLS:
		return "tls"
	case ProtocolQUIC:
		return "quic"
	case ProtocolSMTP:
		return "smtp"
	case ProtocolWebSocket:
		return "websocket"
	case ProtocolH2:
		return "h2"
	default:
		return "unknown"
	}
}

// DetourAction is the external inspector's verdict after being handed a
// DetourContext (spec §4.4 step 5).
type DetourAction int

const (
	// DetourContinue relays through the detour stream.
	DetourContinue DetourAction = iota
	// DetourBypass finishes the detour stream and falls through to Bypass.
	DetourBypass
	// DetourBlock finishes the detour stream and falls through to Block.
	DetourBlock
)

func (a DetourAction) String() string {
	switch a {
	case DetourContinue:
		return "continue"
	case DetourBypass:
		return "bypass"
	case DetourBlock:
		return "block"
	default:
		return "unknown"
	}
}

// DetourContext is the snapshot handed to the external inspector when the
// policy decision is Detour (spec §4.4 step 5): who the flow belongs to,
// what it was headed for, and a protocol-specific payload (e.g. a
// serialized WebSocketNotes) giving the inspector enough context to
// decide without re-parsing the handshake itself.
type DetourContext struct {
	TaskNotes *TaskNotes
	Upstream  string
	Protocol  Protocol
	Payload   []byte
}
