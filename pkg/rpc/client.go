package rpc

import (
	"strings"
	"time"

	"github.com/cldc-go/cldc/pkg/errcode"
	"github.com/cldc-go/cldc/pkg/session"
	"github.com/cldc-go/cldc/pkg/wire"
)

// Client is the typed RPC surface built atop a *session.Session's generic
// Issue/HandlePacket engine. Every method
// performs the op's synchronous precondition checks (session state, path
// rules, handle validity, size limits) before touching the wire, and
// otherwise behaves exactly like Session.Issue: asynchronous, with the
// supplied callback firing exactly once.
type Client struct {
	sess *session.Session
}

// NewClient wraps sess.
func NewClient(sess *session.Session) *Client {
	return &Client{sess: sess}
}

// Session returns the underlying session engine.
func (c *Client) Session() *session.Session { return c.sess }

func (c *Client) requireConfirmed() error {
	if c.sess.Expired() {
		return errcode.SessionExpired("session has expired")
	}
	if !c.sess.Confirmed() {
		return errcode.InvalidArgument("session is not confirmed")
	}
	return nil
}

func validatePath(path string) error {
	if !strings.HasPrefix(path, "/") {
		return errcode.InvalidArgument("path %q must start with '/'", path)
	}
	if len(path) > wire.MaxNameLen {
		return errcode.InvalidArgument("path %q exceeds %d bytes", path, wire.MaxNameLen)
	}
	return nil
}

func (c *Client) requireHandle(fh uint64) (*session.FileHandle, error) {
	h, ok := c.sess.Handle(fh)
	if !ok || !h.Valid {
		return nil, errcode.InvalidArgument("file handle %d is not valid", fh)
	}
	return h, nil
}

// genericCompletion adapts a session.Completion to a plain func(error),
// discarding the raw response body that GenericResponse-shaped ops don't
// need beyond their result code.
func genericCompletion(cb func(error)) session.Completion {
	return func(code wire.ResultCode, body []byte, err error) {
		if cb == nil {
			return
		}
		cb(err)
	}
}

// Nop issues a no-op RPC, confirming the session is alive end-to-end.
func (c *Client) Nop(now time.Time, cb func(error)) (uint64, error) {
	if err := c.requireConfirmed(); err != nil {
		return 0, err
	}
	return c.sess.Issue(now, wire.OpNop, nil, genericCompletion(cb))
}

// EndSess issues a graceful session teardown request.
func (c *Client) EndSess(now time.Time, cb func(error)) (uint64, error) {
	if err := c.requireConfirmed(); err != nil {
		return 0, err
	}
	return c.sess.Issue(now, wire.OpEndSess, nil, genericCompletion(cb))
}

// Open issues an OPEN RPC for path with the given mode bitmask and
// per-handle event mask. On success cb receives the server-issued file
// handle, which is also registered on the session.
func (c *Client) Open(now time.Time, path string, mode wire.OpenMode, events wire.EventMask, cb func(fh uint64, err error)) (uint64, error) {
	if err := c.requireConfirmed(); err != nil {
		return 0, err
	}
	if err := validatePath(path); err != nil {
		return 0, err
	}

	body, err := EncodeBody(OpenArgs{Path: path, Mode: uint32(mode), Events: uint32(events)})
	if err != nil {
		return 0, errcode.Protocol("encode OPEN args", err)
	}

	return c.sess.Issue(now, wire.OpOpen, body, func(code wire.ResultCode, respBody []byte, err error) {
		if err != nil {
			if cb != nil {
				cb(0, err)
			}
			return
		}
		var resp OpenResponse
		if decErr := DecodeBody(respBody, &resp); decErr != nil {
			if cb != nil {
				cb(0, errcode.Protocol("decode OPEN response", decErr))
			}
			return
		}
		c.sess.AddHandle(resp.FH, events)
		if cb != nil {
			cb(resp.FH, nil)
		}
	})
}

// Close issues a CLOSE RPC for fh. The local handle is invalidated
// immediately, before the request is even sent: the server's
// acknowledgement is not required to invalidate the handle locally.
func (c *Client) Close(now time.Time, fh uint64, cb func(error)) (uint64, error) {
	if _, err := c.requireHandle(fh); err != nil {
		return 0, err
	}
	c.sess.InvalidateHandle(fh)

	body, err := EncodeBody(CloseArgs{FH: fh})
	if err != nil {
		return 0, errcode.Protocol("encode CLOSE args", err)
	}
	return c.sess.Issue(now, wire.OpClose, body, func(code wire.ResultCode, respBody []byte, err error) {
		c.sess.RemoveHandle(fh)
		if cb != nil {
			cb(err)
		}
	})
}

// Del issues a DEL RPC for path.
func (c *Client) Del(now time.Time, path string, cb func(error)) (uint64, error) {
	if err := c.requireConfirmed(); err != nil {
		return 0, err
	}
	if err := validatePath(path); err != nil {
		return 0, err
	}
	body, err := EncodeBody(DelArgs{Path: path})
	if err != nil {
		return 0, errcode.Protocol("encode DEL args", err)
	}
	return c.sess.Issue(now, wire.OpDel, body, genericCompletion(cb))
}

// Put issues a PUT RPC writing data to fh. Unlike the original engine,
// which discards the transmit-step I/O error, that error is surfaced to
// the caller via the returned error.
func (c *Client) Put(now time.Time, fh uint64, data []byte, cb func(error)) (uint64, error) {
	if _, err := c.requireHandle(fh); err != nil {
		return 0, err
	}
	maxPayload := c.sess.Config().MaxMsgSize - 256
	if len(data) == 0 {
		return 0, errcode.InvalidArgument("PUT requires a non-empty payload")
	}
	if len(data) > maxPayload {
		return 0, errcode.InvalidArgument("PUT payload of %d bytes exceeds max of %d", len(data), maxPayload)
	}

	body, err := EncodeBody(PutArgs{FH: fh, Data: data})
	if err != nil {
		return 0, errcode.Protocol("encode PUT args", err)
	}
	return c.sess.Issue(now, wire.OpPut, body, genericCompletion(cb))
}

// GetResult is the decoded payload of a successful GET or GET-META.
type GetResult struct {
	Inum       uint64
	Size       uint32
	Version    uint64
	TimeCreate uint64
	TimeModify uint64
	Flags      uint32
	Name       string
	Data       []byte // nil for GET-META
}

// Get issues a GET RPC, returning metadata and the file's full contents.
func (c *Client) Get(now time.Time, fh uint64, cb func(*GetResult, error)) (uint64, error) {
	return c.get(now, fh, wire.OpGet, cb)
}

// GetMeta issues a GET-META RPC, returning metadata without the payload.
func (c *Client) GetMeta(now time.Time, fh uint64, cb func(*GetResult, error)) (uint64, error) {
	return c.get(now, fh, wire.OpGetMeta, cb)
}

func (c *Client) get(now time.Time, fh uint64, op wire.Op, cb func(*GetResult, error)) (uint64, error) {
	if _, err := c.requireHandle(fh); err != nil {
		return 0, err
	}
	body, err := EncodeBody(GetArgs{FH: fh})
	if err != nil {
		return 0, errcode.Protocol("encode GET args", err)
	}
	return c.sess.Issue(now, op, body, func(code wire.ResultCode, respBody []byte, err error) {
		if err != nil {
			if cb != nil {
				cb(nil, err)
			}
			return
		}
		var resp GetResponse
		if decErr := DecodeBody(respBody, &resp); decErr != nil {
			if cb != nil {
				cb(nil, errcode.Protocol("decode GET response", decErr))
			}
			return
		}
		// Copy out of the XDR-decoded response before returning: the
		// original engine aliased its reassembly buffer here, which
		// prevented concurrent GETs on one session.
		data := append([]byte(nil), resp.Data...)
		if cb != nil {
			cb(&GetResult{
				Inum: resp.Inum, Size: resp.Size, Version: resp.Version,
				TimeCreate: resp.TimeCreate, TimeModify: resp.TimeModify,
				Flags: resp.Flags, Name: resp.Name, Data: data,
			}, nil)
		}
	})
}

// Lock issues a LOCK or TRYLOCK RPC depending on wait. cb's pending
// argument is true when the server responded LOCK_PENDING (wait==true and
// the lock is queued); the caller should expect an EVENT(LOCKED) later for
// the owning file handle.
func (c *Client) Lock(now time.Time, fh uint64, shared, wait bool, cb func(pending bool, err error)) (uint64, error) {
	if _, err := c.requireHandle(fh); err != nil {
		return 0, err
	}
	var flags wire.LockFlags
	if shared {
		flags |= wire.LockShared
	}
	body, err := EncodeBody(LockArgs{FH: fh, Flags: uint32(flags)})
	if err != nil {
		return 0, errcode.Protocol("encode LOCK args", err)
	}

	op := wire.OpTryLock
	if wait {
		op = wire.OpLock
	}
	return c.sess.Issue(now, op, body, func(code wire.ResultCode, respBody []byte, err error) {
		if cb == nil {
			return
		}
		if code == wire.ResultLockPending {
			cb(true, nil)
			return
		}
		cb(false, err)
	})
}

// Unlock issues an UNLOCK RPC for fh.
func (c *Client) Unlock(now time.Time, fh uint64, cb func(error)) (uint64, error) {
	if _, err := c.requireHandle(fh); err != nil {
		return 0, err
	}
	body, err := EncodeBody(LockArgs{FH: fh})
	if err != nil {
		return 0, errcode.Protocol("encode UNLOCK args", err)
	}
	return c.sess.Issue(now, wire.OpUnlock, body, genericCompletion(cb))
}
