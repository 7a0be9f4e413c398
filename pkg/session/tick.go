package session

import (
	"time"

	"github.com/cldc-go/cldc/pkg/errcode"
	"github.com/cldc-go/cldc/pkg/retransmit"
	"github.com/cldc-go/cldc/pkg/wire"
)

// Tick drives the time-dependent parts of the engine: the retry sweep and
// the two expiry checks (session deadline, per-message deadline). The
// caller (normally pkg/facade's I/O thread) is expected to call Tick on a
// cadence no coarser than Config.RetryInterval; Tick itself performs a
// sweep on every call and only re-runs the message-expire scan once
// Config.MsgScanInterval has elapsed, matching the source's separate
// CLDC_MSG_RETRY/CLDC_MSG_SCAN cadences.
func (s *Session) Tick(now time.Time) {
	if s.expired {
		return
	}
	if now.After(s.expireAt) {
		s.expireLocked(now)
		return
	}

	if s.lastMsgScan.IsZero() || now.Sub(s.lastMsgScan) >= s.cfg.MsgScanInterval {
		s.lastMsgScan = now
		for _, m := range s.queue.ExpireMessages(now) {
			s.completeMessage(m.XID, wire.ResultTimeout, nil, errcode.Timeout("message expire time elapsed"))
		}
	}

	_ = s.queue.Sweep(func(m *retransmit.Message, p *retransmit.PacketRecord) error {
		if s.metrics != nil {
			s.metrics.RecordRetransmit(m.Op.String())
		}
		return s.sender.Send(s.Addr, p.Bytes)
	})
}
