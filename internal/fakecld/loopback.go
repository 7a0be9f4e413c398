package fakecld

import (
	"context"

	"github.com/cldc-go/cldc/pkg/transport"
	"github.com/cldc-go/cldc/pkg/wire"
)

// Loopback wires a Server into the session.Sender / facade.Sender
// contract with no socket: Send hands the packet directly to the
// Server and queues whatever reply comes back (plus any EVENT the
// request caused the Server to push) onto an inbox channel; Serve drains
// that channel into the caller's PacketHandler, exactly as
// pkg/transport.UDP.Serve drains a socket.
type Loopback struct {
	server *Server
	addr   string

	inbox  chan []byte
	closed chan struct{}
}

// NewLoopback returns a Loopback addressed to server at addr (an opaque
// label; Server ignores it). addr only needs to be stable, since it is
// what session.Session.Addr records and passes back to Send.
func NewLoopback(server *Server, addr string) *Loopback {
	return &Loopback{
		server: server,
		addr:   addr,
		inbox:  make(chan []byte, 64),
		closed: make(chan struct{}),
	}
}

// Addr returns the label this Loopback answers to.
func (l *Loopback) Addr() string { return l.addr }

// Send implements session.Sender: it runs raw through the fake server
// synchronously and enqueues any reply (plus any event the request
// caused the server to push) for the next Serve read.
func (l *Loopback) Send(addr string, raw []byte) error {
	reply, err := l.server.Handle(raw)
	if err != nil {
		return err
	}
	if reply != nil {
		select {
		case l.inbox <- reply:
		case <-l.closed:
		}
	}
	events, err := l.server.TakeEvents()
	if err != nil {
		return err
	}
	for _, ev := range events {
		select {
		case l.inbox <- ev:
		case <-l.closed:
		}
	}
	return nil
}

// Serve implements facade.Sender: it feeds every enqueued reply/event to
// handle until the context is cancelled or Close is called.
func (l *Loopback) Serve(ctx context.Context, handle transport.PacketHandler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-l.closed:
			return nil
		case raw := <-l.inbox:
			if err := handle(raw); err != nil {
				return err
			}
		}
	}
}

// Close implements facade.Sender. It is safe to call more than once.
func (l *Loopback) Close() error {
	select {
	case <-l.closed:
	default:
		close(l.closed)
	}
	return nil
}

// PushEvent enqueues a server-initiated EVENT(mask) for fh directly onto
// this Loopback's inbox, for tests that want to exercise EventHandler
// delivery with no client request in flight.
func (l *Loopback) PushEvent(fh uint64, mask wire.EventMask) error {
	l.server.PushEvent(fh, mask)
	events, err := l.server.TakeEvents()
	if err != nil {
		return err
	}
	for _, ev := range events {
		select {
		case l.inbox <- ev:
		case <-l.closed:
		}
	}
	return nil
}
