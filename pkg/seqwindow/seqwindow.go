// Package seqwindow implements the inbound sequence-ID acceptance window
// and outbound sequence-ID minting, ported directly from
// accept_seqid/sess_next_seqid in the original client engine.
package seqwindow

import "github.com/cldc-go/cldc/pkg/wire"

// Decision is the outcome of presenting an inbound sequence ID to a Window.
type Decision int

const (
	// Accept means the packet advances next_in/window_low and must be
	// both delivered and ACKed.
	Accept Decision = iota
	// AcceptDuplicate means the packet falls in the remembered window: it
	// must be re-ACKed but not re-delivered.
	AcceptDuplicate
	// Reject means the packet falls outside the window and must be
	// dropped without an ACK.
	Reject
	// OutOfBand means the op carries no sequence semantics at all (e.g.
	// NOT-MASTER, ACK-FRAG); the seqid is ignored entirely.
	OutOfBand
)

// Window tracks one session's inbound acceptance window and outbound
// minting counter. It is not safe for concurrent use: the engine is
// single-threaded per session and callers must serialise access.
type Window struct {
	nextIn    uint64
	windowLow uint64
	nextOut   uint64
	size      uint64
}

// New creates a Window with the given remembered-window size (default 25)
// and an initial outbound counter (minted by the caller from a
// cryptographic RNG rather than the original's time-xor-pid seeding).
func New(rememberedWindow uint64, initialNextOut uint64) *Window {
	if rememberedWindow == 0 {
		rememberedWindow = wire.DefaultRememberedWindow
	}
	return &Window{size: rememberedWindow, nextOut: initialNextOut}
}

// Accept presents an inbound seqid for the message currently being
// accumulated, identified by op. NEW-SESS packets always seed the window;
// NOT-MASTER and ACK-FRAG carry no sequence semantics.
func (w *Window) Accept(op wire.Op, seqid uint64) Decision {
	switch op {
	case wire.OpNewSess:
		w.nextIn = seqid + 1
		w.windowLow = w.nextIn - w.size
		return Accept
	case wire.OpNotMaster, wire.OpAckFrag:
		return OutOfBand
	}

	switch {
	case seqid == w.nextIn:
		w.nextIn++
		w.windowLow++
		return Accept
	case inRange(seqid, w.windowLow, w.nextIn):
		return AcceptDuplicate
	default:
		return Reject
	}
}

// inRange reports whether seqid lies in [low, high), tolerating 64-bit
// wraparound exactly as the original signed-subtraction comparison does.
func inRange(seqid, low, high uint64) bool {
	return int64(seqid-low) >= 0 && int64(seqid-high) < 0
}

// NextIn returns the next expected inbound sequence ID.
func (w *Window) NextIn() uint64 { return w.nextIn }

// WindowLow returns the lower bound of the remembered window.
func (w *Window) WindowLow() uint64 { return w.windowLow }

// NextOut mints and returns the next outbound sequence ID, incrementing the
// counter. Called once per transmitted packet, not once per message.
func (w *Window) NextOut() uint64 {
	seqid := w.nextOut
	w.nextOut++
	return seqid
}
