package facade

import (
	"time"

	"github.com/cldc-go/cldc/pkg/errcode"
	"github.com/cldc-go/cldc/pkg/rpc"
	"github.com/cldc-go/cldc/pkg/wire"
)

// blockingTimeout is the default wall-clock budget for one blocking
// call: equal to the session engine's message-expiry window, measured
// from just after the message is issued, so the engine's own expiry
// normally completes the call first.
func (c *Client) blockingTimeout() time.Duration {
	return c.sess.Config().MsgExpire
}

// WaitConfirmed blocks until the session completes NEW-SESS or the
// session-confirmation timer (SessExpire) elapses.
func (c *Client) WaitConfirmed() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	deadline := c.clock().Add(c.sess.Config().SessExpire)
	for !c.sess.Confirmed() && !c.sess.Expired() {
		if c.clock().After(deadline) {
			return errcode.Timeout("session confirmation timed out")
		}
		c.cond.Wait()
	}
	if c.sess.Expired() {
		return errcode.SessionExpired("session failed before confirming")
	}
	return nil
}

// Open blocks until OPEN completes, returning the new file handle.
func (c *Client) Open(path string, mode wire.OpenMode, events wire.EventMask) (uint64, error) {
	var fh uint64
	var callErr error
	complete := false

	c.mu.Lock()
	_, err := c.rpc.Open(c.clock(), path, mode, events, func(got uint64, e error) {
		fh, callErr, complete = got, e, true
		c.cond.Broadcast()
	})
	if err != nil {
		c.mu.Unlock()
		return 0, err
	}
	deadline := c.clock().Add(c.blockingTimeout())
	for !complete {
		if c.clock().After(deadline) {
			c.mu.Unlock()
			return 0, errcode.Timeout("OPEN timed out")
		}
		c.cond.Wait()
	}
	c.mu.Unlock()
	return fh, callErr
}

// CloseHandle blocks until CLOSE completes for fh.
func (c *Client) CloseHandle(fh uint64) error {
	return c.waitGeneric(func(now time.Time, cb func(error)) (uint64, error) {
		return c.rpc.Close(now, fh, cb)
	})
}

// Del blocks until DEL completes for path.
func (c *Client) Del(path string) error {
	return c.waitGeneric(func(now time.Time, cb func(error)) (uint64, error) {
		return c.rpc.Del(now, path, cb)
	})
}

// Put blocks until PUT completes, writing data to fh.
func (c *Client) Put(fh uint64, data []byte) error {
	return c.waitGeneric(func(now time.Time, cb func(error)) (uint64, error) {
		return c.rpc.Put(now, fh, data, cb)
	})
}

// Get blocks until GET completes, returning fh's metadata and contents.
func (c *Client) Get(fh uint64) (*rpc.GetResult, error) {
	var result *rpc.GetResult
	var callErr error
	complete := false

	c.mu.Lock()
	_, err := c.rpc.Get(c.clock(), fh, func(r *rpc.GetResult, e error) {
		result, callErr, complete = r, e, true
		c.cond.Broadcast()
	})
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	deadline := c.clock().Add(c.blockingTimeout())
	for !complete {
		if c.clock().After(deadline) {
			c.mu.Unlock()
			return nil, errcode.Timeout("GET timed out")
		}
		c.cond.Wait()
	}
	c.mu.Unlock()
	return result, callErr
}

// GetMeta blocks until GET-META completes, returning fh's metadata only.
func (c *Client) GetMeta(fh uint64) (*rpc.GetResult, error) {
	var result *rpc.GetResult
	var callErr error
	complete := false

	c.mu.Lock()
	_, err := c.rpc.GetMeta(c.clock(), fh, func(r *rpc.GetResult, e error) {
		result, callErr, complete = r, e, true
		c.cond.Broadcast()
	})
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	deadline := c.clock().Add(c.blockingTimeout())
	for !complete {
		if c.clock().After(deadline) {
			c.mu.Unlock()
			return nil, errcode.Timeout("GET-META timed out")
		}
		c.cond.Wait()
	}
	c.mu.Unlock()
	return result, callErr
}

// lockResult is the outcome of a blocking Lock/TryLock call.
type lockResult struct {
	Pending bool
}

// Lock blocks until LOCK or TRYLOCK completes. Pending is true when the
// server queued the request (wait==true, conflicting lock held); the
// caller should expect a later EVENT(LOCKED) callback for fh.
func (c *Client) Lock(fh uint64, shared, wait bool) (lockResult, error) {
	var res lockResult
	var callErr error
	complete := false

	c.mu.Lock()
	_, err := c.rpc.Lock(c.clock(), fh, shared, wait, func(pending bool, e error) {
		res.Pending, callErr, complete = pending, e, true
		c.cond.Broadcast()
	})
	if err != nil {
		c.mu.Unlock()
		return lockResult{}, err
	}
	deadline := c.clock().Add(c.blockingTimeout())
	for !complete {
		if c.clock().After(deadline) {
			c.mu.Unlock()
			return lockResult{}, errcode.Timeout("LOCK timed out")
		}
		c.cond.Wait()
	}
	c.mu.Unlock()
	return res, callErr
}

// Unlock blocks until UNLOCK completes for fh.
func (c *Client) Unlock(fh uint64) error {
	return c.waitGeneric(func(now time.Time, cb func(error)) (uint64, error) {
		return c.rpc.Unlock(now, fh, cb)
	})
}

// waitGeneric is the shared blocking pattern for every RPC whose
// completion carries only an error.
func (c *Client) waitGeneric(issue func(now time.Time, cb func(error)) (uint64, error)) error {
	var callErr error
	complete := false

	c.mu.Lock()
	_, err := issue(c.clock(), func(e error) {
		callErr, complete = e, true
		c.cond.Broadcast()
	})
	if err != nil {
		c.mu.Unlock()
		return err
	}
	deadline := c.clock().Add(c.blockingTimeout())
	for !complete {
		if c.clock().After(deadline) {
			c.mu.Unlock()
			return errcode.Timeout("request timed out")
		}
		c.cond.Wait()
	}
	c.mu.Unlock()
	return callErr
}
