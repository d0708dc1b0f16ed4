// Package inspect implements the inspection bridge (spec §4.4): given an
// accepted client<->upstream stream pair and a policy decision, it
// dispatches to transparent transit, a protocol-correct block, or an
// out-of-band detour.
package inspect

import (
	"io"
	"net"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/outpost-proxy/dpicore/pkg/stats"
)

// TaskNotes is the immutable per-flow identity carried across both
// directions of a task for its whole lifetime (spec §3 "TaskNotes").
type TaskNotes struct {
	ID              uuid.UUID
	ClientAddr      net.Addr
	User            string
	InspectionDepth int
}

// NewTaskNotes creates a fresh TaskNotes for one accepted flow.
func NewTaskNotes(clientAddr net.Addr, user string) *TaskNotes {
	return &TaskNotes{
		ID:         uuid.New(),
		ClientAddr: clientAddr,
		User:       user,
	}
}

// WithDepth returns a copy of n with InspectionDepth set, used when a
// Detour branch recurses into a nested inspection of the detour stream.
func (n TaskNotes) WithDepth(depth int) *TaskNotes {
	n.InspectionDepth = depth
	return &n
}

// StreamInspectContext bundles everything the bridge needs to dispatch one
// flow (spec §4.4): the audit handle for opening detour streams, the
// task's identity, and the stats sinks C6 needs for the transit halves.
type StreamInspectContext struct {
	TaskNotes       *TaskNotes
	Audit           AuditHandle
	InspectionDepth int
	MaxDepth        int
	Sinks           stats.Sinks

	// Logger carries task/flow context (task id, upstream, action) the
	// way SPEC_FULL.md's ambient logging section calls for; nil disables
	// logging for this flow rather than requiring a no-op implementation.
	Logger *logrus.Entry
}

// AuditHandle is the external collaborator that opens out-of-band detour
// streams for the Detour branch (spec §4.4 step 5's "audit handle's
// stream_detour_client"). It is out of scope per spec §1 ("out of scope:
// ... the administrative control plane") — the bridge only consumes this
// interface.
type AuditHandle interface {
	OpenDetourStream(notes *TaskNotes) (DetourStream, error)
}

// DetourStream is the raw out-of-band stream to an external inspector,
// plus the explicit finish() the original requires on every exit path
// once opened (spec §5 "Cancellation and timeouts").
type DetourStream interface {
	io.ReadWriter

	// CheckAction negotiates with the external inspector and returns the
	// decision for how to proceed (spec §4.4 step 5's check_detour_action).
	CheckAction(detourCtx *DetourContext) (DetourAction, error)
	// Finish releases the detour stream; it is safe to call more than once.
	Finish() error
}
