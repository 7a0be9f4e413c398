package session

import (
	"encoding/binary"
	"time"

	"github.com/cldc-go/cldc/internal/logger"
	"github.com/cldc-go/cldc/pkg/codec"
	"github.com/cldc-go/cldc/pkg/errcode"
	"github.com/cldc-go/cldc/pkg/seqwindow"
	"github.com/cldc-go/cldc/pkg/wire"
)

// curIn tracks the op/xid of the message currently being accumulated,
// recorded whenever a FIRST-bearing packet arrives (mirrors sess->msg_buf_op
// in the original engine, which MID/LAST packets have no header field for).
type curIn struct {
	op  wire.Op
	xid uint64
}

// HandlePacket is the inbound half of the engine: decode, verify, decide
// accept/ignore/reject via the sequence window, reassemble, and on a
// complete message dispatch to the matching outbound RPC or to event
// delivery. Called by the transport adapter on every received datagram.
func (s *Session) HandlePacket(now time.Time, raw []byte) error {
	pkt, err := codec.Decode(raw, s.secretKey)
	if err != nil {
		return err
	}

	if pkt.Header.Info.Order.Bearing() {
		s.curIn = curIn{op: pkt.Header.Info.Op, xid: pkt.Header.Info.XID}
	}
	op := s.curIn.op

	decision := s.window.Accept(op, pkt.Footer.SeqID)
	switch decision {
	case seqwindow.Reject:
		return errcode.Sequence("inbound sequence id outside acceptance window")
	case seqwindow.OutOfBand:
		return s.handleOutOfBand(op, pkt.Body)
	}

	// Accept or AcceptDuplicate: any inbound packet from the server
	// refreshes the session's expire deadline.
	s.expireAt = now.Add(s.cfg.SessExpire)

	if decision == seqwindow.AcceptDuplicate {
		return s.ackSeqID(pkt.Footer.SeqID)
	}

	if s.metrics != nil {
		s.metrics.RecordFragment("in", len(raw))
	}

	complete, completedOp, msg, err := s.reasm.Append(pkt.Header.Info.Order, op, pkt.Body)
	if err != nil {
		return err
	}
	if err := s.ackSeqID(pkt.Footer.SeqID); err != nil {
		return err
	}
	if !complete {
		return nil
	}

	return s.dispatch(completedOp, s.curIn.xid, msg)
}

// handleOutOfBand processes NOT-MASTER and ACK-FRAG, which carry no
// sequence semantics and are never acknowledged themselves.
func (s *Session) handleOutOfBand(op wire.Op, body []byte) error {
	switch op {
	case wire.OpNotMaster:
		logger.Warn("received NOT-MASTER", logger.SID(s.SID), logger.Host(s.Addr))
		s.failover.OnNotMaster(s)
		return nil
	case wire.OpAckFrag:
		if len(body) < 8 {
			return errcode.Protocol("ack-frag body too short", nil)
		}
		seqid := binary.LittleEndian.Uint64(body)
		s.queue.AckFragment(seqid)
		s.queue.PruneAcked()
		return nil
	default:
		return errcode.Protocol("unexpected out-of-band op", nil)
	}
}

// dispatch routes a fully-reassembled inbound message: control ops (PING,
// EVENT) are handled directly, everything else is matched against the
// outbound message pipeline by XID.
func (s *Session) dispatch(op wire.Op, xid uint64, body []byte) error {
	switch op {
	case wire.OpPing:
		return nil // ack-only; already ACKed by the caller.
	case wire.OpEvent:
		return s.dispatchEvent(body)
	default:
		return s.dispatchRPCResponse(xid, op, body)
	}
}

func (s *Session) dispatchEvent(body []byte) error {
	var ev EventResp
	if err := decodeXDR(body, &ev); err != nil {
		return errcode.Protocol("decode event", err)
	}
	h, ok := s.handles[ev.FH]
	if !ok {
		// Benign: the handle may have already been closed locally.
		return nil
	}
	h.EventMask = wire.EventMask(ev.Mask)
	if s.metrics != nil {
		s.metrics.RecordEvent("EVENT")
	}
	if s.onEvent != nil {
		s.onEvent(wire.EventMask(ev.Mask), ev.FH)
	}
	return nil
}

func (s *Session) dispatchRPCResponse(xid uint64, op wire.Op, body []byte) error {
	if len(body) < 4 {
		return errcode.Protocol("response body too short for result code", nil)
	}
	code := wire.ResultCode(binary.BigEndian.Uint32(body))

	p, ok := s.pending[xid]
	if !ok {
		// Duplicate late response for an already-completed or unknown
		// message: benign, already ACKed above, nothing more to do.
		return nil
	}
	delete(s.pending, xid)

	if msg, found := s.queue.Complete(xid); found {
		for _, rec := range msg.Packets {
			rec.Acked = true
		}
		s.queue.PruneAcked()
	}

	logger.Debug("rpc completed", logger.SID(s.SID), logger.XID(xid), logger.Op(op.String()),
		logger.Result(code.String()), logger.DurationMs(logger.Duration(p.issuedAt)))

	if s.metrics != nil {
		s.metrics.RecordRPC(p.op.String(), code.String(), time.Since(p.issuedAt))
	}

	if p.complete != nil {
		if code == wire.ResultOK {
			p.complete(code, body, nil)
		} else {
			p.complete(code, body, errcode.RPC(code))
		}
	}
	return nil
}
