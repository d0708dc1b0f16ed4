package inspect

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/outpost-proxy/dpicore/pkg/constants"
	"github.com/outpost-proxy/dpicore/pkg/policy"
	"github.com/outpost-proxy/dpicore/pkg/taskerr"
	"github.com/outpost-proxy/dpicore/pkg/wsclose"
)

// Halves is the accepted bidirectional stream pair the bridge dispatches
// on (spec §4.4's "bidirectional stream pair"): the client side and the
// upstream side, each already wrapped by C6 (pkg/ioext) for byte
// accounting before it ever reaches the bridge.
type Halves struct {
	ClientReader   io.Reader
	ClientWriter   io.Writer
	UpstreamReader io.Reader
	UpstreamWriter io.Writer
}

// State is the per-flow dispatch state (spec §4.4 "State machine (per
// flow)"). It exists for observability/logging; Bridge.Dispatch runs the
// whole sequence in one call rather than exposing transition methods,
// since the original's states are not independently suspendable — the
// only suspension points are blocking I/O, tracked implicitly by Go's
// scheduler.
type State int

const (
	StateAccepted State = iota
	StateParsingL7
	StateDecidedAction
	StateIntercepting
	StateBypassing
	StateBlocking
	StateDetouring
	StateFinished
)

// Bridge dispatches one flow's accepted halves to the branch its policy
// decision selects (spec §4.4).
type Bridge struct {
	Policy *policy.Policy
}

// Dispatch runs the full state machine for one flow: it looks up host in
// the policy, then routes to Intercept/Bypass/Block/Detour. protocol and
// payload are only used if the decision is Detour, to build the
// DetourContext. A nil sic or a nil sic.Audit (no audit handle available)
// downgrades any Detour decision to Bypass, since there is then nothing to
// detour through.
func (b *Bridge) Dispatch(host string, sic *StreamInspectContext, halves Halves, protocol Protocol, payload []byte) (State, error) {
	action := b.Policy.Check(host)
	logEntry(sic).WithField("decided_action", action).Debug("policy decision")

	switch action {
	case policy.Intercept:
		if err := TransitTransparent(halves.ClientReader, halves.ClientWriter, halves.UpstreamReader, halves.UpstreamWriter); err != nil {
			return StateIntercepting, err
		}
		return StateFinished, nil

	case policy.Bypass:
		if err := TransitTransparent(halves.ClientReader, halves.ClientWriter, halves.UpstreamReader, halves.UpstreamWriter); err != nil {
			return StateBypassing, err
		}
		return StateFinished, nil

	case policy.Block:
		logEntry(sic).Warn("blocking flow by policy")
		b.closeBlocked(halves)
		return StateBlocking, taskerr.NewInternalAdapterError("blocked by inspection policy")

	case policy.Detour:
		return b.dispatchDetour(host, sic, halves, protocol, payload)
	}

	return StateFinished, taskerr.NewInternalAdapterError("unreachable policy action")
}

func (b *Bridge) dispatchDetour(host string, sic *StreamInspectContext, halves Halves, protocol Protocol, payload []byte) (State, error) {
	if sic == nil || sic.Audit == nil {
		if err := TransitTransparent(halves.ClientReader, halves.ClientWriter, halves.UpstreamReader, halves.UpstreamWriter); err != nil {
			return StateBypassing, err
		}
		return StateFinished, nil
	}

	detour, err := sic.Audit.OpenDetourStream(sic.TaskNotes)
	if err != nil {
		logEntry(sic).WithError(err).Error("failed to open detour stream")
		b.closeDetourError(halves)
		return StateDetouring, taskerr.NewInternalAdapterError("failed to open detour stream: " + err.Error())
	}

	detourCtx := &DetourContext{
		TaskNotes: sic.TaskNotes,
		Upstream:  host,
		Protocol:  protocol,
		Payload:   payload,
	}

	verdict, err := detour.CheckAction(detourCtx)
	if err != nil {
		detour.Finish()
		b.closeDetourError(halves)
		return StateDetouring, taskerr.NewInternalAdapterError("detour action check failed: " + err.Error())
	}

	switch verdict {
	case DetourContinue:
		relayErr := RelayWithDetour(halves.ClientReader, halves.ClientWriter, detour)
		detour.Finish()
		if relayErr != nil {
			return StateDetouring, relayErr
		}
		return StateFinished, nil

	case DetourBypass:
		detour.Finish()
		if err := TransitTransparent(halves.ClientReader, halves.ClientWriter, halves.UpstreamReader, halves.UpstreamWriter); err != nil {
			return StateBypassing, err
		}
		return StateFinished, nil

	case DetourBlock:
		detour.Finish()
		b.closeBlocked(halves)
		return StateBlocking, taskerr.NewInternalAdapterError("blocked by inspection policy via detour")

	default:
		detour.Finish()
		b.closeDetourError(halves)
		return StateDetouring, taskerr.NewInternalAdapterError("unknown detour verdict")
	}
}

// closeBlocked emits the plain block close sequence (spec §4.4 step 4):
// server-side going-away toward the client, client-side going-away
// toward the upstream.
func (b *Bridge) closeBlocked(halves Halves) {
	server := wsclose.ServerCloseFrame(constants.WSStatusGoingAway)
	client := wsclose.ClientCloseFrame(constants.WSStatusGoingAway)
	halves.ClientWriter.Write(server[:])
	halves.UpstreamWriter.Write(client[:])
}

// closeDetourError emits the "detour error" close variant (spec §4.4 step
// 5's error path): server-side internal-error toward the client,
// client-side going-away toward the upstream.
func (b *Bridge) closeDetourError(halves Halves) {
	server := wsclose.ServerCloseFrame(constants.WSStatusInternalError)
	client := wsclose.ClientCloseFrame(constants.WSStatusGoingAway)
	halves.ClientWriter.Write(server[:])
	halves.UpstreamWriter.Write(client[:])
}

var discardLogger = func() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}()

// logEntry returns sic's task-scoped logger, or a discarding one if the
// flow carries none, so call sites never need a nil check of their own.
func logEntry(sic *StreamInspectContext) *logrus.Entry {
	if sic == nil || sic.Logger == nil {
		return discardLogger
	}
	return sic.Logger
}
