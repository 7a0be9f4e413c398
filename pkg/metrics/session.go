package metrics

import "time"

// SessionMetrics provides observability for one client session: RPC
// outcomes, retransmission pressure, and fragment traffic. Pass nil to
// disable collection with zero overhead.
type SessionMetrics interface {
	// RecordRPC records one completed RPC with its operation name,
	// result code, and round-trip duration.
	RecordRPC(op string, result string, duration time.Duration)

	// RecordRetransmit records one packet retransmission for op.
	RecordRetransmit(op string)

	// RecordFragment records one outbound or inbound packet fragment.
	RecordFragment(direction string, bytes int)

	// SetSessionState reports the session's current lifecycle state
	// (NEW, PENDING_CONFIRM, CONFIRMED, EXPIRED) as a label on a single
	// gauge, so exactly one state is set per session at a time.
	SetSessionState(state string)

	// RecordEvent records one delivered EVENT or synthetic SESS_FAILED
	// notification.
	RecordEvent(kind string)
}
