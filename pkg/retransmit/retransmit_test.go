package retransmit

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cldc-go/cldc/pkg/wire"
)

func newMessage(xid uint64, expireIn time.Duration, packets ...*PacketRecord) *Message {
	return &Message{XID: xid, Op: wire.OpPut, Packets: packets, ExpireAt: time.Now().Add(expireIn)}
}

func TestSweep_RetransmitsUnackedPacketsOnly(t *testing.T) {
	q := NewQueue()
	p1 := &PacketRecord{SeqID: 1, Order: wire.OrderFirst}
	p2 := &PacketRecord{SeqID: 2, Order: wire.OrderLast, Acked: true}
	q.Add(newMessage(1, time.Minute, p1, p2))

	var sent []uint64
	err := q.Sweep(func(m *Message, p *PacketRecord) error {
		sent = append(sent, p.SeqID)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, sent)
	assert.Equal(t, 1, p1.Retries)
	assert.Equal(t, 0, p2.Retries)
}

func TestSweep_SkipsDoneMessages(t *testing.T) {
	q := NewQueue()
	p1 := &PacketRecord{SeqID: 1}
	q.Add(newMessage(1, time.Minute, p1))
	q.Complete(1)

	var called bool
	_ = q.Sweep(func(m *Message, p *PacketRecord) error {
		called = true
		return nil
	})
	assert.False(t, called)
}

func TestSweep_PropagatesSendError(t *testing.T) {
	q := NewQueue()
	q.Add(newMessage(1, time.Minute, &PacketRecord{SeqID: 1}))

	wantErr := errors.New("boom")
	err := q.Sweep(func(m *Message, p *PacketRecord) error {
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)
	// A transport error on send is never fatal: message remains queued.
	assert.Equal(t, 1, q.Len())
}

func TestAckFragment_DropsOnlyMatchingPacket(t *testing.T) {
	q := NewQueue()
	p1 := &PacketRecord{SeqID: 10}
	p2 := &PacketRecord{SeqID: 11}
	q.Add(newMessage(1, time.Minute, p1, p2))

	found := q.AckFragment(10)
	assert.True(t, found)
	assert.True(t, p1.Acked)
	assert.False(t, p2.Acked)

	assert.False(t, q.AckFragment(999))
}

func TestCompleteThenPrune_RemovesOnlyWhenFullyAcked(t *testing.T) {
	q := NewQueue()
	p1 := &PacketRecord{SeqID: 1}
	q.Add(newMessage(1, time.Minute, p1))

	q.Complete(1)
	q.PruneAcked()
	assert.Equal(t, 1, q.Len(), "message with an unacked fragment must survive completion")

	q.AckFragment(1)
	q.PruneAcked()
	assert.Equal(t, 0, q.Len())
}

func TestExpireMessages_RemovesElapsedOnly(t *testing.T) {
	q := NewQueue()
	q.Add(newMessage(1, -time.Second))
	q.Add(newMessage(2, time.Minute))

	expired := q.ExpireMessages(time.Now())
	require.Len(t, expired, 1)
	assert.EqualValues(t, 1, expired[0].XID)
	assert.Equal(t, 1, q.Len())
}

func TestDropAll_ReturnsOnlyNotDoneMessages(t *testing.T) {
	q := NewQueue()
	q.Add(newMessage(1, time.Minute))
	q.Add(newMessage(2, time.Minute))
	q.Complete(2)

	dropped := q.DropAll()
	require.Len(t, dropped, 1)
	assert.EqualValues(t, 1, dropped[0].XID)
	assert.Equal(t, 0, q.Len())
}
