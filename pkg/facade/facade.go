// Package facade implements the synchronous call surface: the blocking
// open_session/open/close/get/get_meta/put/del/lock/unlock/trylock calls
// applications actually use, built atop the asynchronous pkg/rpc.Client +
// pkg/session.Session engine.
//
// The original client achieves this with one mutex, one condvar, and a
// self-pipe used purely to wake a select() loop when the calling thread
// enqueues a request. Go has no need for the self-pipe: a buffered
// channel already wakes a blocked receiver, so event delivery here is a
// channel from the engine's callback into a dedicated dispatch
// goroutine, and the blocking request/response handoff uses
// sync.Mutex + sync.Cond exactly as the original does.
package facade

import (
	"context"
	"sync"
	"time"

	"github.com/cldc-go/cldc/internal/logger"
	"github.com/cldc-go/cldc/pkg/discovery"
	"github.com/cldc-go/cldc/pkg/errcode"
	"github.com/cldc-go/cldc/pkg/rpc"
	"github.com/cldc-go/cldc/pkg/session"
	"github.com/cldc-go/cldc/pkg/transport"
	"github.com/cldc-go/cldc/pkg/wire"
)

// Clock abstracts time.Now so tests can drive Tick deterministically; in
// production it is time.Now.
type Clock func() time.Time

// EventHandler receives a server-pushed EVENT or the synthetic
// SESS_FAILED notification, dispatched from its own goroutine so the
// handler can itself make blocking facade calls without deadlocking the
// I/O pump.
type EventHandler func(mask wire.EventMask, fh uint64)

// Sender is the subset of pkg/transport adapters the facade drives
// directly: Send to transmit, Serve to pump inbound frames, and Close to
// release the socket on Client.Close.
type Sender interface {
	session.Sender
	Serve(ctx context.Context, handle transport.PacketHandler) error
	Close() error
}

// Options configures New.
type Options struct {
	User      string
	SecretKey []byte
	Hosts     *discovery.Ring
	Sender    Sender
	Config    session.Config
	OnEvent   EventHandler
	Clock     Clock
}

// Client is the blocking façade over one CLD session. All exported
// methods block the calling goroutine until the server responds or the
// request times out. They may be called from inside an EventHandler,
// which runs without c.mu held; events that arrive while the handler is
// busy wait in a 16-entry buffer and are dropped once it is full.
type Client struct {
	mu   sync.Mutex
	cond *sync.Cond

	rpc    *rpc.Client
	sess   *session.Session
	sender Sender
	hosts  *discovery.Ring
	clock  Clock

	events chan wire.EventMask
	fhs    chan uint64

	cancel context.CancelFunc
	done   chan struct{}
}

// New establishes a session with the active host in opts.Hosts and
// starts the background I/O and retry-tick pumps. The returned Client is
// not yet confirmed; call WaitConfirmed to block until NEW-SESS
// completes (or returns its error).
func New(opts Options) (*Client, error) {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Hosts == nil || opts.Hosts.Len() == 0 {
		return nil, errcode.InvalidArgument("facade requires at least one host")
	}

	c := &Client{
		sender: opts.Sender,
		hosts:  opts.Hosts,
		clock:  opts.Clock,
		events: make(chan wire.EventMask, 16),
		fhs:    make(chan uint64, 16),
		done:   make(chan struct{}),
	}
	c.cond = sync.NewCond(&c.mu)

	sess, err := session.New(opts.User, opts.SecretKey, opts.Hosts.Active().Addr(), opts.Sender, opts.Config, c.onEvent)
	if err != nil {
		return nil, err
	}
	c.sess = sess
	c.rpc = rpc.NewClient(sess)

	lc := logger.NewLogContext(sess.SID, opts.Hosts.Active().Addr())
	logger.Info("facade client starting", logger.SID(lc.SID), logger.Host(lc.Host), logger.User(opts.User), logger.TraceID(lc.TraceID))

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	go c.servePump(ctx)
	go c.tickPump(ctx)
	if opts.OnEvent != nil {
		go c.dispatchEvents(ctx, opts.OnEvent)
	}

	now := opts.Clock()
	c.mu.Lock()
	err = sess.Start(now)
	c.mu.Unlock()
	if err != nil {
		cancel()
		return nil, err
	}
	return c, nil
}

// onEvent is session.EventCallback: it never blocks, only enqueues. It
// runs synchronously from inside HandlePacket/Tick/Kill while the caller
// (servePump, tickPump, Close) already holds c.mu, so it must never
// acquire c.mu itself — sync.Mutex is non-reentrant, and doing so would
// deadlock the pump goroutine on every EVENT/SESS_FAILED delivery. The
// buffered channel sends below are enough to wake dispatchEvents; state
// changes that blocking callers wait on are broadcast by the pump methods
// themselves once the engine call returns.
func (c *Client) onEvent(mask wire.EventMask, fh uint64) {
	select {
	case c.events <- mask:
	default:
	}
	select {
	case c.fhs <- fh:
	default:
	}
}

func (c *Client) dispatchEvents(ctx context.Context, handler EventHandler) {
	for {
		select {
		case <-ctx.Done():
			return
		case mask := <-c.events:
			fh := <-c.fhs
			handler(mask, fh)
		}
	}
}

func (c *Client) servePump(ctx context.Context) {
	_ = c.sender.Serve(ctx, func(raw []byte) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		err := c.sess.HandlePacket(c.clock(), raw)
		c.cond.Broadcast()
		return err
	})
}

func (c *Client) tickPump(ctx context.Context) {
	interval := c.sess.Config().RetryInterval
	if interval <= 0 {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.mu.Lock()
			c.sess.Tick(c.clock())
			c.cond.Broadcast()
			c.mu.Unlock()
		}
	}
}

// Close tears the session down (a graceful END-SESS if still confirmed,
// otherwise an immediate Kill), stops the background pumps, and releases
// the transport.
func (c *Client) Close() error {
	c.mu.Lock()
	now := c.clock()
	if c.sess.Confirmed() && !c.sess.Expired() {
		done := make(chan struct{})
		c.rpc.EndSess(now, func(error) { close(done) })
		c.mu.Unlock()
		select {
		case <-done:
		case <-time.After(c.sess.Config().RetryInterval * 3):
		}
		c.mu.Lock()
	}
	c.sess.Kill(now)
	c.mu.Unlock()

	c.cancel()
	return c.sender.Close()
}

// Session exposes the underlying engine for callers that need state
// introspection (State, Confirmed, Expired).
func (c *Client) Session() *session.Session { return c.sess }
