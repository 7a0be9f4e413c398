// Package fragment implements the message fragmenter and reassembler:
// splitting a serialised RPC body across packets with FIRST/MID/LAST
// markers on the way out, and accumulating inbound packet bodies into a
// complete message buffer on the way in.
package fragment

import (
	"github.com/cldc-go/cldc/pkg/errcode"
	"github.com/cldc-go/cldc/pkg/wire"
)

// Piece is one outbound fragment: a body slice and the Order it must carry.
type Piece struct {
	Order Order
	Body  []byte
}

// Order is a re-export of wire.Order for call-site brevity.
type Order = wire.Order

// Split divides body into fragments of at most maxFragmentBody bytes,
// marking the first FIRST (or FIRST_LAST when there is exactly one
// fragment), the last LAST, and everything between MID. A zero-length body
// produces exactly one FIRST_LAST fragment with an empty slice.
func Split(body []byte, maxFragmentBody int) []Piece {
	if maxFragmentBody <= 0 {
		maxFragmentBody = wire.DefaultMaxFragmentBody
	}

	n := 1
	if len(body) > 0 {
		n = (len(body) + maxFragmentBody - 1) / maxFragmentBody
	}

	pieces := make([]Piece, n)
	for i := 0; i < n; i++ {
		start := i * maxFragmentBody
		end := start + maxFragmentBody
		if end > len(body) {
			end = len(body)
		}

		var order wire.Order
		switch {
		case n == 1:
			order = wire.OrderFirstLast
		case i == 0:
			order = wire.OrderFirst
		case i == n-1:
			order = wire.OrderLast
		default:
			order = wire.OrderMid
		}

		pieces[i] = Piece{Order: order, Body: body[start:end]}
	}
	return pieces
}

// Reassembler accumulates inbound fragment bodies for one session's
// currently-in-progress message. It is not safe for concurrent use; the
// owning session engine serialises access.
type Reassembler struct {
	maxMsgSize int
	buf        []byte
	op         wire.Op
}

// NewReassembler creates a Reassembler bounded at maxMsgSize bytes (default
// 128 KiB); overflow is reported as a BAD_PACKET-class error.
func NewReassembler(maxMsgSize int) *Reassembler {
	if maxMsgSize <= 0 {
		maxMsgSize = wire.DefaultMaxMsgSize
	}
	return &Reassembler{maxMsgSize: maxMsgSize}
}

// Append accumulates one inbound packet's body fragment. On a FIRST-bearing
// packet (FIRST or FIRST_LAST) the buffer is reset and op is recorded. It
// returns (complete, op, message, err): complete is true once a
// LAST-bearing packet has been appended, in which case message is the full
// accumulated body and the Reassembler is ready for the next message.
func (r *Reassembler) Append(order wire.Order, op wire.Op, body []byte) (complete bool, outOp wire.Op, message []byte, err error) {
	if order.Bearing() {
		r.buf = r.buf[:0]
		r.op = op
	}

	if len(r.buf)+len(body) > r.maxMsgSize {
		return false, 0, nil, errcode.Protocol("reassembled message exceeds max_msg_size", nil)
	}
	r.buf = append(r.buf, body...)

	if order.Terminal() {
		msg := make([]byte, len(r.buf))
		copy(msg, r.buf)
		completedOp := r.op
		r.buf = r.buf[:0]
		return true, completedOp, msg, nil
	}
	return false, 0, nil, nil
}

// Reset discards any partially-accumulated message, used when a session is
// torn down or a protocol error forces resynchronisation.
func (r *Reassembler) Reset() {
	r.buf = r.buf[:0]
}
