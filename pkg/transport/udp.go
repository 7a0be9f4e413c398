// Package transport supplies session.Sender implementations: UDP (the
// default, matching the coordination service's datagram protocol) and
// TCP (for environments that filter UDP). The read-loop pattern is
// generalised from a file-serving listener to a client-side send/receive
// pump that feeds pkg/session.Session.HandlePacket.
package transport

import (
	"context"
	"net"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/cldc-go/cldc/pkg/errcode"
)

// PacketHandler is invoked once per inbound datagram/frame with its raw
// bytes. It is normally session.Session.HandlePacket bound to a clock.
type PacketHandler func(raw []byte) error

// UDP is a session.Sender backed by a single UDP socket, optionally bound
// with SO_REUSEPORT so that multiple client processes (or multiple
// sessions within one process load-balancing across server replicas) can
// share a source port.
type UDP struct {
	conn     *net.UDPConn
	maxFrame int
}

// UDPOptions configures NewUDP.
type UDPOptions struct {
	// LocalAddr is the address to bind; empty picks an ephemeral port.
	LocalAddr string
	// ReusePort sets SO_REUSEPORT on the underlying socket before bind.
	ReusePort bool
	// MaxFrame bounds a single recvfrom's buffer size.
	MaxFrame int
}

// NewUDP opens a UDP socket per opts.
func NewUDP(opts UDPOptions) (*UDP, error) {
	if opts.MaxFrame <= 0 {
		opts.MaxFrame = 64 * 1024
	}

	laddr := opts.LocalAddr
	if laddr == "" {
		laddr = ":0"
	}

	var pc net.PacketConn
	var err error
	if opts.ReusePort {
		pc, err = listenUDPReusePort(laddr)
	} else {
		pc, err = net.ListenPacket("udp", laddr)
	}
	if err != nil {
		return nil, errcode.Resource("bind UDP socket on "+laddr, err)
	}

	conn, ok := pc.(*net.UDPConn)
	if !ok {
		return nil, errcode.Protocol("unexpected packet conn type", nil)
	}
	return &UDP{conn: conn, maxFrame: opts.MaxFrame}, nil
}

// listenUDPReusePort binds laddr with SO_REUSEPORT set on the socket
// before bind, letting several sockets (processes or goroutines) share
// one source port the way the original daemon's listener pool does.
func listenUDPReusePort(laddr string) (net.PacketConn, error) {
	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var sockErr error
			ctrlErr := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
			})
			if ctrlErr != nil {
				return ctrlErr
			}
			return sockErr
		},
	}
	return lc.ListenPacket(context.Background(), "udp", laddr)
}

// Send implements session.Sender by writing data as a single UDP
// datagram to addr.
func (u *UDP) Send(addr string, data []byte) error {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return errcode.Resource("resolve UDP address "+addr, err)
	}
	if _, err := u.conn.WriteTo(data, raddr); err != nil {
		return errcode.Resource("send UDP datagram to "+addr, err)
	}
	return nil
}

// LocalAddr returns the bound local address.
func (u *UDP) LocalAddr() net.Addr { return u.conn.LocalAddr() }

// Serve reads datagrams in a loop until ctx is cancelled, invoking handle
// for each. A handle error is not fatal to the loop (a malformed or
// mis-keyed packet from a stray source should not take down the pump);
// callers wanting to observe such errors should log from inside handle.
func (u *UDP) Serve(ctx context.Context, handle PacketHandler) error {
	buf := make([]byte, u.maxFrame)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_ = u.conn.SetReadDeadline(time.Now().Add(250 * time.Millisecond))
		n, _, err := u.conn.ReadFrom(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return errcode.Resource("read UDP datagram", err)
		}
		frame := make([]byte, n)
		copy(frame, buf[:n])
		_ = handle(frame)
	}
}

// Close releases the underlying socket.
func (u *UDP) Close() error { return u.conn.Close() }
