package session

import (
	"bytes"
	"time"

	"github.com/cldc-go/cldc/internal/logger"
	"github.com/cldc-go/cldc/pkg/codec"
	"github.com/cldc-go/cldc/pkg/errcode"
	"github.com/cldc-go/cldc/pkg/fragment"
	"github.com/cldc-go/cldc/pkg/retransmit"
	"github.com/cldc-go/cldc/pkg/wire"
)

// Issue builds an outbound message for op/body, enqueues it on the
// retransmission queue, and transmits every fragment once immediately —
// the first attempt never waits for the retry timer.
// Preconditions (session state, handle validity, path/size limits) are the
// caller's responsibility; Issue itself only handles framing and
// transmission. complete is invoked exactly once when the message is
// acknowledged, times out, or the session expires.
func (s *Session) Issue(now time.Time, op wire.Op, body []byte, complete Completion) (uint64, error) {
	xid, err := randUint64()
	if err != nil {
		return 0, errcode.Resource("generate transaction id", err)
	}

	pieces := fragment.Split(body, s.cfg.MaxFragmentBody)
	records := make([]*retransmit.PacketRecord, len(pieces))
	bufs := make([][]byte, len(pieces))

	for i, piece := range pieces {
		seqid := s.window.NextOut()
		hdr := wire.Header{
			Magic: wire.ClientMagic(),
			SID:   s.SID,
			User:  s.User,
			Info:  wire.MsgInfo{Order: piece.Order},
		}
		if piece.Order.Bearing() {
			hdr.Info.XID = xid
			hdr.Info.Op = op
		}

		var out bytes.Buffer
		if _, err := codec.Encode(hdr, piece.Body, seqid, s.secretKey, &out); err != nil {
			return 0, errcode.Protocol("encode outbound packet", err)
		}

		records[i] = &retransmit.PacketRecord{SeqID: seqid, Bytes: out.Bytes(), Order: piece.Order}
		bufs[i] = out.Bytes()
	}

	msg := &retransmit.Message{XID: xid, Op: op, Packets: records, ExpireAt: now.Add(s.cfg.MsgExpire)}
	s.queue.Add(msg)
	s.pending[xid] = &pending{complete: complete, op: op, issuedAt: now}

	logger.Debug("issuing rpc", logger.SID(s.SID), logger.XID(xid), logger.Op(op.String()), logger.Size(len(body)))

	var sendErr error
	for _, buf := range bufs {
		if err := s.sender.Send(s.Addr, buf); err != nil && sendErr == nil {
			sendErr = errcode.Resource("send packet", err)
		}
		if s.metrics != nil {
			s.metrics.RecordFragment("out", len(buf))
		}
	}
	if sendErr != nil {
		logger.Warn("issue send failed", logger.SID(s.SID), logger.XID(xid), logger.Err(sendErr))
	}
	return xid, sendErr
}

// ackSeqID builds and sends a bare ACK packet for seqid, as every accepted
// inbound message (first delivery or duplicate) requires. The footer
// carries seqid itself — the inbound sequence ID being acknowledged, not a
// freshly minted outbound one — exactly as ack_seqid in the original
// engine sets foot->seqid = seqid_le, so the server knows which packet it
// can stop retransmitting.
func (s *Session) ackSeqID(seqid uint64) error {
	hdr := wire.Header{
		Magic: wire.ClientMagic(),
		SID:   s.SID,
		User:  s.User,
		Info:  wire.MsgInfo{Order: wire.OrderFirstLast, XID: 0, Op: wire.OpAck},
	}
	var out bytes.Buffer
	if _, err := codec.Encode(hdr, nil, seqid, s.secretKey, &out); err != nil {
		return errcode.Protocol("encode ack packet", err)
	}
	return s.sender.Send(s.Addr, out.Bytes())
}
