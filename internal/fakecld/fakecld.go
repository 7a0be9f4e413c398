// Package fakecld is an in-process stand-in for a CLD server: enough of
// the wire protocol's server side (HMAC verification, outbound sequence-ID
// minting, single-packet request/response framing, XDR body codec) to
// drive a real pkg/facade.Client / pkg/session.Session through a full
// NEW-SESS -> CONFIRMED -> OPEN/GET/PUT/DEL/LOCK/UNLOCK/CLOSE -> END-SESS
// lifecycle without a socket. It never fragments responses: every reply is
// a single FIRST_LAST packet, which keeps it out of scope for exercising
// pkg/fragment/pkg/retransmit on the server side — those are tested against
// the client's own half of the protocol already.
package fakecld

import (
	"bytes"
	"encoding/binary"
	"sync"

	"github.com/cldc-go/cldc/pkg/codec"
	"github.com/cldc-go/cldc/pkg/errcode"
	"github.com/cldc-go/cldc/pkg/rpc"
	"github.com/cldc-go/cldc/pkg/wire"
)

// file is one in-memory path's content plus the lock state a LOCK/UNLOCK
// exchange needs to exercise ResultLockConflict/ResultLockPending.
type file struct {
	inum     uint64
	data     []byte
	isDir    bool
	lockedBy uint64 // owning file handle, 0 if unlocked
	shared   bool
}

// openHandle is a server-issued file handle bound to one open path.
type openHandle struct {
	fh     uint64
	path   string
	events uint32
}

// Server is a single-user, single-session fake CLD server: it accepts
// exactly one NEW-SESS, binds to the SID and user it carries, and rejects
// packets from any other SID/user pairing. RememberedWindow duplicate
// suppression is left to the caller's session; Server keeps no inbound
// sequence window and only mints its own outbound sequence IDs.
type Server struct {
	mu sync.Mutex

	secretKey []byte

	sid   uint64
	user  string
	bound bool

	outSeq uint64

	files    map[string]*file
	handles  map[uint64]*openHandle
	nextFH   uint64
	nextInum uint64

	events []pendingEvent
}

type pendingEvent struct {
	fh   uint64
	mask uint32
}

// New constructs a Server that will authenticate inbound packets with
// secretKey. initial seeds the in-memory path namespace (e.g. a directory
// listing); every path must begin with "/".
func New(secretKey []byte, initial map[string][]byte) *Server {
	s := &Server{
		secretKey: secretKey,
		files:     make(map[string]*file),
		handles:   make(map[uint64]*openHandle),
		nextFH:    1,
		nextInum:  1,
	}
	for path, data := range initial {
		s.files[path] = &file{inum: s.allocInum(), data: data}
	}
	return s
}

func (s *Server) allocInum() uint64 {
	inum := s.nextInum
	s.nextInum++
	return inum
}

// PutDir seeds path as a directory whose GET response is the packed
// dirent encoding of names, so a client's `ls` exercises pkg/dirent end to
// end.
func (s *Server) PutDir(path string, names []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = &file{inum: s.allocInum(), data: packDirents(names), isDir: true}
}

// packDirents mirrors the packed directory-record format pkg/dirent
// decodes: u16 LE name_len, name bytes, zero-padded to a multiple of 8.
func packDirents(names []string) []byte {
	var buf bytes.Buffer
	for _, name := range names {
		total := (2 + len(name) + 7) &^ 7
		rec := make([]byte, total)
		binary.LittleEndian.PutUint16(rec, uint16(len(name)))
		copy(rec[2:], name)
		buf.Write(rec)
	}
	return buf.Bytes()
}

// PushEvent enqueues a server-initiated EVENT(mask) for fh. The fake
// server has no independent goroutine to push out-of-band messages, so
// delivery happens the next time something calls TakeEvents: normally
// Loopback, after every request it drives through, or directly via
// Loopback.PushEvent when a test wants delivery with no request in
// flight.
func (s *Server) PushEvent(fh uint64, mask wire.EventMask) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, pendingEvent{fh: fh, mask: uint32(mask)})
}

// Handle decodes one inbound packet, applies it, and returns the encoded
// response packet to send back, or nil if the packet requires no reply
// (an ACK from the client). Duplicate requests are not detected; each one
// is applied and answered again.
func (s *Server) Handle(raw []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pkt, err := codec.Decode(raw, s.secretKey)
	if err != nil {
		return nil, err
	}
	if string(pkt.Header.Magic[:]) != wire.MagicClient {
		return nil, errcode.Protocol("fakecld: expected client magic", nil)
	}
	if pkt.Header.Info.Order != wire.OrderFirstLast {
		return nil, errcode.Protocol("fakecld: only single-packet requests are supported", nil)
	}

	op := pkt.Header.Info.Op
	xid := pkt.Header.Info.XID

	if op == wire.OpAck {
		return nil, nil
	}

	if op == wire.OpNewSess {
		return s.handleNewSess(pkt.Header.SID, pkt.Header.User, xid)
	}

	if !s.bound || pkt.Header.SID != s.sid || pkt.Header.User != s.user {
		return s.respond(xid, op, genericBody(wire.ResultClientInvalid))
	}

	switch op {
	case wire.OpOpen:
		return s.handleOpen(xid, pkt.Body)
	case wire.OpClose:
		return s.handleClose(xid, pkt.Body)
	case wire.OpDel:
		return s.handleDel(xid, pkt.Body)
	case wire.OpPut:
		return s.handlePut(xid, pkt.Body)
	case wire.OpGet:
		return s.handleGet(xid, pkt.Body, true)
	case wire.OpGetMeta:
		return s.handleGet(xid, pkt.Body, false)
	case wire.OpLock:
		return s.handleLock(xid, pkt.Body, true)
	case wire.OpTryLock:
		return s.handleLock(xid, pkt.Body, false)
	case wire.OpUnlock:
		return s.handleUnlock(xid, pkt.Body)
	case wire.OpEndSess:
		s.bound = false
		return s.respond(xid, op, genericBody(wire.ResultOK))
	case wire.OpNop:
		return s.respond(xid, op, genericBody(wire.ResultOK))
	default:
		return nil, errcode.Protocol("fakecld: unsupported op", nil)
	}
}

// TakeEvents drains and returns any events PushEvent queued, each encoded
// as a ready-to-deliver OpEvent packet. Loopback calls this after every
// Handle so a pending lock grant surfaces without a second client request.
func (s *Server) TakeEvents() ([][]byte, error) {
	s.mu.Lock()
	pending := s.events
	s.events = nil
	s.mu.Unlock()

	if len(pending) == 0 {
		return nil, nil
	}
	out := make([][]byte, 0, len(pending))
	for _, ev := range pending {
		body, err := rpc.EncodeBody(rpc.EventResp{FH: ev.fh, Mask: ev.mask})
		if err != nil {
			return nil, err
		}
		pkt, err := s.encode(wire.MsgInfo{Order: wire.OrderFirstLast, XID: 0, Op: wire.OpEvent}, body)
		if err != nil {
			return nil, err
		}
		out = append(out, pkt)
	}
	return out, nil
}

func genericBody(code wire.ResultCode) []byte {
	body, _ := rpc.EncodeBody(rpc.GenericResponse{Code: uint32(code)})
	return body
}

func (s *Server) handleNewSess(sid uint64, user string, xid uint64) ([]byte, error) {
	s.sid = sid
	s.user = user
	s.bound = true
	return s.respond(xid, wire.OpNewSess, genericBody(wire.ResultOK))
}

func (s *Server) handleOpen(xid uint64, body []byte) ([]byte, error) {
	var args rpc.OpenArgs
	if err := rpc.DecodeBody(body, &args); err != nil {
		return nil, errcode.Protocol("fakecld: decode OPEN args", err)
	}

	f, ok := s.files[args.Path]
	mode := wire.OpenMode(args.Mode)
	switch {
	case !ok && mode&wire.OpenCreate != 0:
		f = &file{inum: s.allocInum()}
		s.files[args.Path] = f
	case !ok:
		return s.respond(xid, wire.OpOpen, openBody(wire.ResultInodeInval, 0))
	case ok && mode&wire.OpenCreate != 0 && mode&wire.OpenExcl != 0:
		return s.respond(xid, wire.OpOpen, openBody(wire.ResultInodeExists, 0))
	case ok && f.isDir && mode&wire.OpenWrite != 0:
		return s.respond(xid, wire.OpOpen, openBody(wire.ResultModeInval, 0))
	}

	fh := s.nextFH
	s.nextFH++
	s.handles[fh] = &openHandle{fh: fh, path: args.Path, events: args.Events}
	return s.respond(xid, wire.OpOpen, openBody(wire.ResultOK, fh))
}

func openBody(code wire.ResultCode, fh uint64) []byte {
	body, _ := rpc.EncodeBody(rpc.OpenResponse{Code: uint32(code), FH: fh})
	return body
}

func (s *Server) lookupHandle(fh uint64) (*openHandle, *file, bool) {
	h, ok := s.handles[fh]
	if !ok {
		return nil, nil, false
	}
	f, ok := s.files[h.path]
	return h, f, ok
}

func (s *Server) handleClose(xid uint64, body []byte) ([]byte, error) {
	var args rpc.CloseArgs
	if err := rpc.DecodeBody(body, &args); err != nil {
		return nil, errcode.Protocol("fakecld: decode CLOSE args", err)
	}
	if f, ok := s.files[s.pathOf(args.FH)]; ok && f.lockedBy == args.FH {
		f.lockedBy = 0
	}
	delete(s.handles, args.FH)
	return s.respond(xid, wire.OpClose, genericBody(wire.ResultOK))
}

func (s *Server) pathOf(fh uint64) string {
	if h, ok := s.handles[fh]; ok {
		return h.path
	}
	return ""
}

func (s *Server) handleDel(xid uint64, body []byte) ([]byte, error) {
	var args rpc.DelArgs
	if err := rpc.DecodeBody(body, &args); err != nil {
		return nil, errcode.Protocol("fakecld: decode DEL args", err)
	}
	if _, ok := s.files[args.Path]; !ok {
		return s.respond(xid, wire.OpDel, genericBody(wire.ResultInodeInval))
	}
	delete(s.files, args.Path)
	return s.respond(xid, wire.OpDel, genericBody(wire.ResultOK))
}

func (s *Server) handlePut(xid uint64, body []byte) ([]byte, error) {
	var args rpc.PutArgs
	if err := rpc.DecodeBody(body, &args); err != nil {
		return nil, errcode.Protocol("fakecld: decode PUT args", err)
	}
	_, f, ok := s.lookupHandle(args.FH)
	if !ok {
		return s.respond(xid, wire.OpPut, genericBody(wire.ResultFHInval))
	}
	f.data = append([]byte(nil), args.Data...)
	return s.respond(xid, wire.OpPut, genericBody(wire.ResultOK))
}

func (s *Server) handleGet(xid uint64, body []byte, withData bool) ([]byte, error) {
	var args rpc.GetArgs
	if err := rpc.DecodeBody(body, &args); err != nil {
		return nil, errcode.Protocol("fakecld: decode GET args", err)
	}
	h, f, ok := s.lookupHandle(args.FH)
	if !ok {
		op := wire.OpGetMeta
		if withData {
			op = wire.OpGet
		}
		return s.respond(xid, op, genericGetBody(wire.ResultFHInval))
	}

	resp := rpc.GetResponse{
		Code: uint32(wire.ResultOK),
		Inum: f.inum,
		Size: uint32(len(f.data)),
		Name: baseName(h.path),
	}
	if withData {
		resp.Data = f.data
	}
	body2, err := rpc.EncodeBody(resp)
	if err != nil {
		return nil, err
	}
	op := wire.OpGetMeta
	if withData {
		op = wire.OpGet
	}
	return s.respond(xid, op, body2)
}

func genericGetBody(code wire.ResultCode) []byte {
	body, _ := rpc.EncodeBody(rpc.GetResponse{Code: uint32(code)})
	return body
}

func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}

func (s *Server) handleLock(xid uint64, body []byte, wait bool) ([]byte, error) {
	var args rpc.LockArgs
	if err := rpc.DecodeBody(body, &args); err != nil {
		return nil, errcode.Protocol("fakecld: decode LOCK args", err)
	}
	op := wire.OpTryLock
	if wait {
		op = wire.OpLock
	}
	h, f, ok := s.lookupHandle(args.FH)
	if !ok {
		return s.respond(xid, op, genericBody(wire.ResultFHInval))
	}
	shared := wire.LockFlags(args.Flags)&wire.LockShared != 0

	switch {
	case f.lockedBy == 0, f.lockedBy == args.FH:
		f.lockedBy = args.FH
		f.shared = shared
		return s.respond(xid, op, genericBody(wire.ResultOK))
	case f.shared && shared:
		return s.respond(xid, op, genericBody(wire.ResultOK))
	case wait:
		if wire.EventMask(h.events)&wire.EventLocked != 0 {
			s.events = append(s.events, pendingEvent{fh: args.FH, mask: uint32(wire.EventLocked)})
		}
		return s.respond(xid, op, genericBody(wire.ResultLockPending))
	default:
		return s.respond(xid, op, genericBody(wire.ResultLockConflict))
	}
}

func (s *Server) handleUnlock(xid uint64, body []byte) ([]byte, error) {
	var args rpc.LockArgs
	if err := rpc.DecodeBody(body, &args); err != nil {
		return nil, errcode.Protocol("fakecld: decode UNLOCK args", err)
	}
	_, f, ok := s.lookupHandle(args.FH)
	if !ok {
		return s.respond(xid, wire.OpUnlock, genericBody(wire.ResultFHInval))
	}
	if f.lockedBy == args.FH {
		f.lockedBy = 0
	}
	return s.respond(xid, wire.OpUnlock, genericBody(wire.ResultOK))
}

// respond wraps body in a FIRST_LAST response header carrying the echoed
// xid/op and encodes it with the server's own outbound sequence id.
func (s *Server) respond(xid uint64, op wire.Op, body []byte) ([]byte, error) {
	return s.encode(wire.MsgInfo{Order: wire.OrderFirstLast, XID: xid, Op: op}, body)
}

func (s *Server) encode(info wire.MsgInfo, body []byte) ([]byte, error) {
	hdr := wire.Header{
		Magic: wire.ServerMagic(),
		SID:   s.sid,
		User:  s.user,
		Info:  info,
	}
	seqid := s.outSeq
	s.outSeq++
	var out bytes.Buffer
	if _, err := codec.Encode(hdr, body, seqid, s.secretKey, &out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
