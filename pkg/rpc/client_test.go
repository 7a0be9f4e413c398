package rpc

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cldc-go/cldc/pkg/codec"
	"github.com/cldc-go/cldc/pkg/session"
	"github.com/cldc-go/cldc/pkg/wire"
)

type capSender struct {
	sent [][]byte
}

func (c *capSender) Send(addr string, data []byte) error {
	buf := make([]byte, len(data))
	copy(buf, data)
	c.sent = append(c.sent, buf)
	return nil
}

const testKey = "shared-secret"

func newConfirmedClient(t *testing.T) (*Client, *session.Session, *capSender, time.Time) {
	t.Helper()
	sender := &capSender{}
	sess, err := session.New("alice", []byte(testKey), "127.0.0.1:8081", sender, session.DefaultConfig(), nil)
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, sess.Start(now))

	pkt, err := codec.Decode(sender.sent[0], []byte(testKey))
	require.NoError(t, err)

	resp := serverResp(t, sess, wire.OpNewSess, pkt.Header.Info.XID, 1000, encodeGeneric(wire.ResultOK))
	require.NoError(t, sess.HandlePacket(now, resp))

	return NewClient(sess), sess, sender, now
}

func encodeGeneric(code wire.ResultCode) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, uint32(code))
	return buf.Bytes()
}

func serverResp(t *testing.T, sess *session.Session, op wire.Op, xid, seqid uint64, body []byte) []byte {
	t.Helper()
	hdr := wire.Header{
		Magic: wire.ServerMagic(),
		SID:   sess.SID,
		User:  sess.User,
		Info:  wire.MsgInfo{Order: wire.OrderFirstLast, XID: xid, Op: op},
	}
	var out bytes.Buffer
	_, err := codec.Encode(hdr, body, seqid, []byte(testKey), &out)
	require.NoError(t, err)
	return out.Bytes()
}

func lastSentXID(t *testing.T, sender *capSender, key string) uint64 {
	t.Helper()
	pkt, err := codec.Decode(sender.sent[len(sender.sent)-1], []byte(key))
	require.NoError(t, err)
	return pkt.Header.Info.XID
}

func TestOpen_RegistersHandleOnSuccess(t *testing.T) {
	client, sess, sender, now := newConfirmedClient(t)

	var gotFH uint64
	var gotErr error
	xid, err := client.Open(now, "/foo", wire.OpenCreate|wire.OpenWrite|wire.OpenRead, 0, func(fh uint64, err error) {
		gotFH, gotErr = fh, err
	})
	require.NoError(t, err)
	assert.Equal(t, xid, lastSentXID(t, sender, testKey))

	openResp, err := EncodeBody(OpenResponse{Code: uint32(wire.ResultOK), FH: 42})
	require.NoError(t, err)
	require.NoError(t, sess.HandlePacket(now, serverResp(t, sess, wire.OpOpen, xid, 1001, openResp)))

	require.NoError(t, gotErr)
	assert.EqualValues(t, 42, gotFH)

	h, ok := sess.Handle(42)
	require.True(t, ok)
	assert.True(t, h.Valid)
}

func TestOpen_RejectsBadPath(t *testing.T) {
	client, _, _, now := newConfirmedClient(t)

	_, err := client.Open(now, "relative/path", wire.OpenRead, 0, nil)
	require.Error(t, err)
}

func TestPut_RejectsEmptyPayload(t *testing.T) {
	client, sess, _, now := newConfirmedClient(t)
	sess.AddHandle(1, 0)

	_, err := client.Put(now, 1, nil, nil)
	require.Error(t, err)
}

func TestPut_RejectsInvalidHandle(t *testing.T) {
	client, _, _, now := newConfirmedClient(t)

	_, err := client.Put(now, 999, []byte("data"), nil)
	require.Error(t, err)
}

func TestGet_CopiesDataOutOfResponseBuffer(t *testing.T) {
	client, sess, _, now := newConfirmedClient(t)
	sess.AddHandle(7, 0)

	var result *GetResult
	xid, err := client.Get(now, 7, func(r *GetResult, err error) {
		require.NoError(t, err)
		result = r
	})
	require.NoError(t, err)

	getResp, err := EncodeBody(GetResponse{
		Code: uint32(wire.ResultOK), Inum: 1, Size: 5, Version: 1,
		Name: "foo", Data: []byte("hello"),
	})
	require.NoError(t, err)
	raw := serverResp(t, sess, wire.OpGet, xid, 1001, getResp)
	require.NoError(t, sess.HandlePacket(now, raw))

	require.NotNil(t, result)
	assert.Equal(t, []byte("hello"), result.Data)
	assert.EqualValues(t, 1, result.Version)

	// Overwriting the inbound packet does not affect the copy already
	// handed to the caller (no buffer aliasing).
	for i := range raw {
		raw[i] = 0
	}
	assert.Equal(t, []byte("hello"), result.Data)
}

func TestLock_ReportsPendingOnLockPending(t *testing.T) {
	client, sess, _, now := newConfirmedClient(t)
	sess.AddHandle(3, 0)

	var pending bool
	xid, err := client.Lock(now, 3, false, true, func(p bool, err error) {
		pending = p
	})
	require.NoError(t, err)

	require.NoError(t, sess.HandlePacket(now, serverResp(t, sess, wire.OpLock, xid, 1001, encodeGeneric(wire.ResultLockPending))))
	assert.True(t, pending)
}

func TestClose_InvalidatesHandleBeforeSend(t *testing.T) {
	client, sess, _, now := newConfirmedClient(t)
	sess.AddHandle(9, 0)

	_, err := client.Close(now, 9, nil)
	require.NoError(t, err)

	h, ok := sess.Handle(9)
	require.True(t, ok)
	assert.False(t, h.Valid, "handle must be invalidated immediately on CLOSE issuance")
}
