// Package session implements the session engine: the lifecycle of one
// connection to one CLD server (NEW → PENDING_CONFIRM → CONFIRMED →
// EXPIRED), its retry timer, and event dispatch. The engine is
// single-threaded — callers (normally pkg/facade) must serialise every
// call into a Session with their own mutex; no lock lives inside this
// package. Session IDs are generated with crypto/rand rather than a
// counter, and the state machine mirrors the accept_seqid/sess_timer/
// sess_expire lifecycle of a reliable-datagram RPC client engine.
package session

import (
	"crypto/rand"
	"encoding/binary"
	"time"

	"github.com/cldc-go/cldc/internal/logger"
	"github.com/cldc-go/cldc/pkg/codec"
	"github.com/cldc-go/cldc/pkg/errcode"
	"github.com/cldc-go/cldc/pkg/fragment"
	"github.com/cldc-go/cldc/pkg/metrics"
	"github.com/cldc-go/cldc/pkg/retransmit"
	"github.com/cldc-go/cldc/pkg/seqwindow"
	"github.com/cldc-go/cldc/pkg/wire"
)

// State is one of the four session lifecycle states.
type State int

const (
	StateNew State = iota
	StatePendingConfirm
	StateConfirmed
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StatePendingConfirm:
		return "PENDING_CONFIRM"
	case StateConfirmed:
		return "CONFIRMED"
	case StateExpired:
		return "EXPIRED"
	default:
		return "UNKNOWN"
	}
}

// Sender is the transport capability a Session needs to emit bytes; it is
// the "send_packet" half of the pluggable transport seam. pkg/transport
// supplies UDP and TCP implementations.
type Sender interface {
	Send(addr string, data []byte) error
}

// FailoverPolicy governs what happens when the server reports NOT-MASTER.
// The source maps it to a bare error with a FIXME; this client makes the
// policy explicit and pluggable instead.
type FailoverPolicy interface {
	// OnNotMaster is invoked when a NOT-MASTER control message arrives. It
	// may inspect and mutate the session (e.g. trigger a rebind) but must
	// not block.
	OnNotMaster(s *Session)
}

// SurfacePolicy is the default FailoverPolicy: it does nothing beyond what
// the session already does (HandlePacket logs a warning), matching the
// source's current, FIXME'd behaviour.
type SurfacePolicy struct{}

// OnNotMaster implements FailoverPolicy by doing nothing: no event or
// completion error reports the condition, and pending messages keep
// retrying until they complete or expire.
func (SurfacePolicy) OnNotMaster(*Session) {}

// FileHandle is a server-issued handle bound to this session.
type FileHandle struct {
	FH         uint64
	Valid      bool
	EventMask  wire.EventMask
	ClosingAck bool // set once CLOSE has been issued; no new I/O is allowed
}

// Config holds the client's size/timing knobs, all with the defaults
// named in pkg/wire.
type Config struct {
	RetryInterval    time.Duration
	MsgExpire        time.Duration
	SessExpire       time.Duration
	MsgScanInterval  time.Duration
	RememberedWindow uint64
	MaxMsgSize       int
	MaxFragmentBody  int
}

// DefaultConfig returns the protocol's mandated defaults.
func DefaultConfig() Config {
	return Config{
		RetryInterval:    wire.DefaultRetrySeconds * time.Second,
		MsgExpire:        wire.DefaultMsgExpireSeconds * time.Second,
		SessExpire:       wire.DefaultSessExpireSeconds * time.Second,
		MsgScanInterval:  wire.DefaultMsgScanSeconds * time.Second,
		RememberedWindow: wire.DefaultRememberedWindow,
		MaxMsgSize:       wire.DefaultMaxMsgSize,
		MaxFragmentBody:  wire.DefaultMaxFragmentBody,
	}
}

// Completion is invoked exactly once when an issued message finishes: with
// the raw response body and OK code on success, a non-OK code with the
// raw response body on an RPC-level failure, or err set on timeout/local
// failure.
type Completion func(code wire.ResultCode, body []byte, err error)

// EventCallback delivers a server-pushed EVENT (mask, fh) or the
// session-synthesised SESS_FAILED (mask == wire.EventSessFailed, fh == 0).
type EventCallback func(mask wire.EventMask, fh uint64)

type pending struct {
	complete Completion
	op       wire.Op
	issuedAt time.Time
}

// Session is one logical connection to one CLD server.
type Session struct {
	SID       uint64
	User      string
	secretKey []byte
	Addr      string

	sender Sender
	cfg    Config

	window  *seqwindow.Window
	reasm   *fragment.Reassembler
	queue   *retransmit.Queue
	pending map[uint64]*pending

	handles map[uint64]*FileHandle

	state       State
	confirmed   bool
	expired     bool
	expireAt    time.Time
	lastMsgScan time.Time
	curIn       curIn

	failover FailoverPolicy
	onEvent  EventCallback
	metrics  metrics.SessionMetrics
}

// New constructs a Session in state NEW. The caller must call Start to send
// NEW-SESS and transition to PENDING_CONFIRM.
func New(user string, secretKey []byte, addr string, sender Sender, cfg Config, onEvent EventCallback) (*Session, error) {
	sid, err := randUint64()
	if err != nil {
		return nil, errcode.Resource("generate session id", err)
	}
	nextOut, err := randUint64()
	if err != nil {
		return nil, errcode.Resource("generate initial sequence id", err)
	}

	if len(user) > wire.MaxUserNameLen {
		return nil, errcode.InvalidArgument("user name %q exceeds %d bytes", user, wire.MaxUserNameLen)
	}

	s := &Session{
		SID:       sid,
		User:      user,
		secretKey: secretKey,
		Addr:      addr,
		sender:    sender,
		cfg:       cfg,
		window:    seqwindow.New(cfg.RememberedWindow, nextOut),
		reasm:     fragment.NewReassembler(cfg.MaxMsgSize),
		queue:     retransmit.NewQueue(),
		pending:   make(map[uint64]*pending),
		handles:   make(map[uint64]*FileHandle),
		state:     StateNew,
		failover:  SurfacePolicy{},
		onEvent:   onEvent,
	}
	return s, nil
}

// Config returns the session's size/timing configuration.
func (s *Session) Config() Config { return s.cfg }

// SetFailoverPolicy overrides the default NOT-MASTER handling.
func (s *Session) SetFailoverPolicy(p FailoverPolicy) { s.failover = p }

// SetMetrics installs an observability sink. A nil m (the default)
// disables collection at zero cost, per pkg/metrics's nil-safe contract.
func (s *Session) SetMetrics(m metrics.SessionMetrics) { s.metrics = m }

func (s *Session) recordState() {
	logger.Info("session state changed", logger.SID(s.SID), logger.Host(s.Addr), logger.State(s.state.String()))
	if s.metrics != nil {
		s.metrics.SetSessionState(s.state.String())
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// Confirmed reports whether the session has completed NEW-SESS.
func (s *Session) Confirmed() bool { return s.confirmed }

// Expired reports whether the session has transitioned to EXPIRED.
func (s *Session) Expired() bool { return s.expired }

// Start sends the NEW-SESS message and transitions NEW -> PENDING_CONFIRM.
func (s *Session) Start(now time.Time) error {
	if s.state != StateNew {
		return errcode.InvalidArgument("Start called in state %s", s.state)
	}
	s.state = StatePendingConfirm
	s.expireAt = now.Add(s.cfg.SessExpire)
	s.recordState()
	_, err := s.Issue(now, wire.OpNewSess, nil, func(code wire.ResultCode, body []byte, err error) {
		if err != nil || code != wire.ResultOK {
			return
		}
		s.confirmed = true
		s.state = StateConfirmed
		s.recordState()
	})
	return err
}

// randUint64 returns a cryptographically random 64-bit value, replacing
// the source's time-xor-pid seeding.
func randUint64() (uint64, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// Kill force-tears-down the session without a graceful END-SESS exchange
// (cldc_kill_sess in the original engine): every outstanding message
// completes with a timeout error and SESS_FAILED fires, but no END-SESS
// packet is sent.
func (s *Session) Kill(now time.Time) {
	if s.expired {
		return
	}
	s.expireLocked(now)
}

func (s *Session) expireLocked(now time.Time) {
	s.expired = true
	s.state = StateExpired
	s.recordState()
	for _, m := range s.queue.DropAll() {
		s.completeMessage(m.XID, wire.ResultTimeout, nil, errcode.Timeout("session expired"))
	}
	if s.metrics != nil {
		s.metrics.RecordEvent("SESS_FAILED")
	}
	if s.onEvent != nil {
		s.onEvent(wire.EventSessFailed, 0)
	}
}

func (s *Session) completeMessage(xid uint64, code wire.ResultCode, body []byte, err error) {
	p, ok := s.pending[xid]
	if !ok {
		return
	}
	delete(s.pending, xid)
	if s.metrics != nil {
		s.metrics.RecordRPC(p.op.String(), code.String(), time.Since(p.issuedAt))
	}
	if p.complete != nil {
		p.complete(code, body, err)
	}
}

// Handle returns the file handle record for fh, if the session tracks it.
func (s *Session) Handle(fh uint64) (*FileHandle, bool) {
	h, ok := s.handles[fh]
	return h, ok
}

// AddHandle registers a newly-opened file handle.
func (s *Session) AddHandle(fh uint64, mask wire.EventMask) *FileHandle {
	h := &FileHandle{FH: fh, Valid: true, EventMask: mask}
	s.handles[fh] = h
	return h
}

// InvalidateHandle marks fh invalid immediately (issued on CLOSE, before
// the server's acknowledgement arrives).
func (s *Session) InvalidateHandle(fh uint64) {
	if h, ok := s.handles[fh]; ok {
		h.Valid = false
		h.ClosingAck = true
	}
}

// RemoveHandle forgets fh entirely, once CLOSE completes.
func (s *Session) RemoveHandle(fh uint64) {
	delete(s.handles, fh)
}
