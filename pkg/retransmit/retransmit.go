// Package retransmit implements the per-session outbound message queue: a
// list of in-flight messages, each a list of packet records, with a retry
// sweep and both whole-message and per-fragment acknowledgement. The
// map-of-slices shape is repurposed from a blocking waiter queue to
// not-yet-acked packets; it carries no mutex of its own, since the engine
// runs single-threaded per session with serialisation owned by the caller.
package retransmit

import (
	"time"

	"github.com/cldc-go/cldc/pkg/wire"
)

// PacketRecord is one wire packet belonging to an outbound Message.
type PacketRecord struct {
	SeqID   uint64
	Bytes   []byte
	Order   wire.Order
	Acked   bool
	Retries int
}

// Message is one pending RPC: a transaction ID, its packet records in
// order, and its expiry deadline. Exactly one record is FIRST-bearing and
// exactly one is LAST-bearing (possibly the same record for a single-packet
// message).
type Message struct {
	XID      uint64
	Op       wire.Op
	Packets  []*PacketRecord
	Done     bool
	ExpireAt time.Time
}

// unackedCount reports how many of the message's packets still await a
// per-fragment ACK.
func (m *Message) unackedCount() int {
	n := 0
	for _, p := range m.Packets {
		if !p.Acked {
			n++
		}
	}
	return n
}

// Queue holds every in-flight outbound message for one session.
type Queue struct {
	messages map[uint64]*Message
	order    []uint64
}

// NewQueue returns an empty Queue.
func NewQueue() *Queue {
	return &Queue{messages: make(map[uint64]*Message)}
}

// Add registers a newly-issued message.
func (q *Queue) Add(msg *Message) {
	q.messages[msg.XID] = msg
	q.order = append(q.order, msg.XID)
}

// Get looks up a message by XID.
func (q *Queue) Get(xid uint64) (*Message, bool) {
	m, ok := q.messages[xid]
	return m, ok
}

// Complete marks a message done without removing it (removal still
// requires every fragment to be ACKed: a response completes the message
// but does not itself drop the retry record for an unacked fragment).
func (q *Queue) Complete(xid uint64) (*Message, bool) {
	m, ok := q.messages[xid]
	if !ok {
		return nil, false
	}
	m.Done = true
	return m, true
}

// Remove drops a message from the queue entirely.
func (q *Queue) Remove(xid uint64) {
	delete(q.messages, xid)
	for i, x := range q.order {
		if x == xid {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
}

// AckFragment marks the packet carrying seqid as acknowledged, dropping it
// from the retry set. Other fragments of the same message keep retrying.
// Reports whether a matching packet was found.
func (q *Queue) AckFragment(seqid uint64) bool {
	for _, xid := range q.order {
		m := q.messages[xid]
		for _, p := range m.Packets {
			if p.SeqID == seqid {
				p.Acked = true
				return true
			}
		}
	}
	return false
}

// PruneAcked removes any message that is both Done and has no remaining
// unacked fragments.
func (q *Queue) PruneAcked() {
	for _, xid := range append([]uint64(nil), q.order...) {
		m := q.messages[xid]
		if m.Done && m.unackedCount() == 0 {
			q.Remove(xid)
		}
	}
}

// Sweep is the retry-timer body: for every not-done message, retransmit
// every unacked packet via send, incrementing its retry count. Returns the
// first error encountered from send, if any; a transport error here is
// never fatal to the session — the message simply remains queued for the
// next sweep.
func (q *Queue) Sweep(send func(*Message, *PacketRecord) error) error {
	var firstErr error
	for _, xid := range q.order {
		m := q.messages[xid]
		if m.Done {
			continue
		}
		for _, p := range m.Packets {
			if p.Acked {
				continue
			}
			if err := send(m, p); err != nil && firstErr == nil {
				firstErr = err
			}
			p.Retries++
		}
	}
	return firstErr
}

// ExpireMessages removes and returns every message whose ExpireAt has
// elapsed as of now, regardless of Done state — the per-message expire
// backstop.
func (q *Queue) ExpireMessages(now time.Time) []*Message {
	var expired []*Message
	for _, xid := range append([]uint64(nil), q.order...) {
		m := q.messages[xid]
		if now.After(m.ExpireAt) {
			expired = append(expired, m)
			q.Remove(xid)
		}
	}
	return expired
}

// DropAll removes and returns every not-done message, used on session
// expiry: each returned message must be completed by the caller with a
// timeout error.
func (q *Queue) DropAll() []*Message {
	var dropped []*Message
	for _, xid := range append([]uint64(nil), q.order...) {
		m := q.messages[xid]
		if !m.Done {
			dropped = append(dropped, m)
		}
		q.Remove(xid)
	}
	return dropped
}

// Len reports the number of messages currently tracked.
func (q *Queue) Len() int { return len(q.messages) }
