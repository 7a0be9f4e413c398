package session

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cldc-go/cldc/pkg/codec"
	"github.com/cldc-go/cldc/pkg/wire"
)

// captureSender records every packet handed to it, for assertions, and
// optionally forwards to a fake transport.
type captureSender struct {
	sent [][]byte
}

func (c *captureSender) Send(addr string, data []byte) error {
	buf := make([]byte, len(data))
	copy(buf, data)
	c.sent = append(c.sent, buf)
	return nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.SessExpire = 50 * time.Millisecond
	cfg.MsgExpire = 50 * time.Millisecond
	cfg.RetryInterval = 10 * time.Millisecond
	cfg.MsgScanInterval = 10 * time.Millisecond
	return cfg
}

func newTestSession(t *testing.T, onEvent EventCallback) (*Session, *captureSender) {
	t.Helper()
	sender := &captureSender{}
	s, err := New("alice", []byte("pw"), "127.0.0.1:8081", sender, testConfig(), onEvent)
	require.NoError(t, err)
	return s, sender
}

// serverResponse builds a wire-encoded single-packet response from the
// "server", keyed with the same secret as the session under test.
func serverResponse(t *testing.T, s *Session, op wire.Op, xid uint64, seqid uint64, code wire.ResultCode) []byte {
	t.Helper()
	hdr := wire.Header{
		Magic: wire.ServerMagic(),
		SID:   s.SID,
		User:  s.User,
		Info:  wire.MsgInfo{Order: wire.OrderFirstLast, XID: xid, Op: op},
	}
	var body bytes.Buffer
	require.NoError(t, binary.Write(&body, binary.BigEndian, uint32(code)))

	var out bytes.Buffer
	_, err := codec.Encode(hdr, body.Bytes(), seqid, s.secretKey, &out)
	require.NoError(t, err)
	return out.Bytes()
}

func TestStart_ConfirmsOnOKResponse(t *testing.T) {
	s, sender := newTestSession(t, nil)
	now := time.Now()

	require.NoError(t, s.Start(now))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, StatePendingConfirm, s.State())

	// Recover the XID the session used so the fake server can echo it.
	pkt, err := codec.Decode(sender.sent[0], s.secretKey)
	require.NoError(t, err)
	xid := pkt.Header.Info.XID

	resp := serverResponse(t, s, wire.OpNewSess, xid, 1000, wire.ResultOK)
	require.NoError(t, s.HandlePacket(now, resp))

	assert.True(t, s.Confirmed())
	assert.Equal(t, StateConfirmed, s.State())
}

func TestIssue_GenericResponseFiresCallbackOnce(t *testing.T) {
	s, sender := newTestSession(t, nil)
	now := time.Now()
	require.NoError(t, s.Start(now))

	pkt, _ := codec.Decode(sender.sent[0], s.secretKey)
	require.NoError(t, s.HandlePacket(now, serverResponse(t, s, wire.OpNewSess, pkt.Header.Info.XID, 1000, wire.ResultOK)))

	var calls int
	var gotCode wire.ResultCode
	xid, err := s.Issue(now, wire.OpNop, nil, func(code wire.ResultCode, body []byte, err error) {
		calls++
		gotCode = code
	})
	require.NoError(t, err)

	resp := serverResponse(t, s, wire.OpNop, xid, 1001, wire.ResultOK)
	require.NoError(t, s.HandlePacket(now, resp))
	assert.Equal(t, 1, calls)
	assert.Equal(t, wire.ResultOK, gotCode)

	// Duplicate late response must not re-fire the completion.
	require.NoError(t, s.HandlePacket(now, resp))
	assert.Equal(t, 1, calls)
}

func TestIssue_RPCErrorCodeSurfaced(t *testing.T) {
	s, sender := newTestSession(t, nil)
	now := time.Now()
	require.NoError(t, s.Start(now))
	pkt, _ := codec.Decode(sender.sent[0], s.secretKey)
	require.NoError(t, s.HandlePacket(now, serverResponse(t, s, wire.OpNewSess, pkt.Header.Info.XID, 1000, wire.ResultOK)))

	xid, err := s.Issue(now, wire.OpDel, nil, func(code wire.ResultCode, body []byte, err error) {
		assert.Equal(t, wire.ResultNameInval, code)
		assert.Error(t, err)
	})
	require.NoError(t, err)

	require.NoError(t, s.HandlePacket(now, serverResponse(t, s, wire.OpDel, xid, 1001, wire.ResultNameInval)))
}

func TestHandlePacket_DuplicateInWindowReacksNoRedeliver(t *testing.T) {
	s, sender := newTestSession(t, nil)
	now := time.Now()
	require.NoError(t, s.Start(now))
	pkt, _ := codec.Decode(sender.sent[0], s.secretKey)
	require.NoError(t, s.HandlePacket(now, serverResponse(t, s, wire.OpNewSess, pkt.Header.Info.XID, 1000, wire.ResultOK)))

	var calls int
	xid, err := s.Issue(now, wire.OpNop, nil, func(code wire.ResultCode, body []byte, err error) {
		calls++
	})
	require.NoError(t, err)

	resp := serverResponse(t, s, wire.OpNop, xid, 1001, wire.ResultOK)
	require.NoError(t, s.HandlePacket(now, resp))
	assert.Equal(t, 1, calls)
	nextInAfterFirst := s.window.NextIn()

	// Server retransmits the same response (same seqid): must fall inside
	// the remembered window, re-ACKed, not redelivered, window unchanged.
	require.NoError(t, s.HandlePacket(now, resp))
	assert.Equal(t, 1, calls)
	assert.Equal(t, nextInAfterFirst, s.window.NextIn())
}

func TestHandlePacket_EventDeliveredToMatchingHandle(t *testing.T) {
	var gotMask wire.EventMask
	var gotFH uint64
	s, sender := newTestSession(t, func(mask wire.EventMask, fh uint64) {
		gotMask, gotFH = mask, fh
	})
	now := time.Now()
	require.NoError(t, s.Start(now))
	pkt, _ := codec.Decode(sender.sent[0], s.secretKey)
	require.NoError(t, s.HandlePacket(now, serverResponse(t, s, wire.OpNewSess, pkt.Header.Info.XID, 1000, wire.ResultOK)))

	s.AddHandle(42, wire.EventLocked)

	var evBody bytes.Buffer
	require.NoError(t, binary.Write(&evBody, binary.BigEndian, uint64(42)))
	require.NoError(t, binary.Write(&evBody, binary.BigEndian, uint32(wire.EventLocked)))

	hdr := wire.Header{
		Magic: wire.ServerMagic(), SID: s.SID, User: s.User,
		Info: wire.MsgInfo{Order: wire.OrderFirstLast, XID: 0, Op: wire.OpEvent},
	}
	var out bytes.Buffer
	_, err := codec.Encode(hdr, evBody.Bytes(), 1001, s.secretKey, &out)
	require.NoError(t, err)

	require.NoError(t, s.HandlePacket(now, out.Bytes()))
	assert.Equal(t, wire.EventLocked, gotMask)
	assert.EqualValues(t, 42, gotFH)
}

func TestKill_CompletesOutstandingWithTimeoutAndFiresSessFailed(t *testing.T) {
	var sessFailed bool
	s, sender := newTestSession(t, func(mask wire.EventMask, fh uint64) {
		if mask == wire.EventSessFailed {
			sessFailed = true
		}
	})
	now := time.Now()
	require.NoError(t, s.Start(now))
	pkt, _ := codec.Decode(sender.sent[0], s.secretKey)
	require.NoError(t, s.HandlePacket(now, serverResponse(t, s, wire.OpNewSess, pkt.Header.Info.XID, 1000, wire.ResultOK)))

	var timedOut bool
	_, err := s.Issue(now, wire.OpNop, nil, func(code wire.ResultCode, body []byte, err error) {
		timedOut = err != nil
	})
	require.NoError(t, err)

	s.Kill(now)
	assert.True(t, s.Expired())
	assert.True(t, timedOut)
	assert.True(t, sessFailed)
}

func TestTick_ExpiresSessionAfterDeadline(t *testing.T) {
	s, sender := newTestSession(t, nil)
	now := time.Now()
	require.NoError(t, s.Start(now))
	pkt, _ := codec.Decode(sender.sent[0], s.secretKey)
	require.NoError(t, s.HandlePacket(now, serverResponse(t, s, wire.OpNewSess, pkt.Header.Info.XID, 1000, wire.ResultOK)))

	s.Tick(now.Add(s.cfg.SessExpire + time.Millisecond))
	assert.True(t, s.Expired())
}

func TestTick_RetransmitsUnackedFragments(t *testing.T) {
	s, sender := newTestSession(t, nil)
	now := time.Now()
	require.NoError(t, s.Start(now))
	pkt, _ := codec.Decode(sender.sent[0], s.secretKey)
	require.NoError(t, s.HandlePacket(now, serverResponse(t, s, wire.OpNewSess, pkt.Header.Info.XID, 1000, wire.ResultOK)))

	sender.sent = nil
	_, err := s.Issue(now, wire.OpNop, nil, func(wire.ResultCode, []byte, error) {})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)

	s.Tick(now.Add(s.cfg.RetryInterval))
	assert.Len(t, sender.sent, 2, "unacked fragment must be retransmitted on tick")
}
