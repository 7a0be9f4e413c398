// Package errcode provides the tagged-variant error taxonomy used across
// the client: every public function returns (value, error), and errors that
// originate inside the engine carry a Kind so callers can branch on the
// category without string matching.
package errcode

import (
	"errors"
	"fmt"

	"github.com/cldc-go/cldc/pkg/wire"
)

// Kind classifies an error into one of the taxonomy buckets.
type Kind int

const (
	// KindProtocol covers magic/HMAC/format failures: the packet is
	// dropped and the sequence window is not advanced.
	KindProtocol Kind = iota
	// KindSequence covers an inbound sequence ID outside the accept
	// window: the packet is dropped and not ACKed.
	KindSequence
	// KindSessionExpired covers session-level terminal failures.
	KindSessionExpired
	// KindRPC covers a non-OK result code returned by the server.
	KindRPC
	// KindResource covers local allocation/capacity failures.
	KindResource
	// KindInvalidArgument covers synchronous issuance-time rejections.
	KindInvalidArgument
	// KindTimeout covers a client-synthesised timeout.
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindProtocol:
		return "protocol"
	case KindSequence:
		return "sequence"
	case KindSessionExpired:
		return "session-expired"
	case KindRPC:
		return "rpc"
	case KindResource:
		return "resource"
	case KindInvalidArgument:
		return "invalid-argument"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error is the concrete error type produced by this module. Code is only
// meaningful when Kind == KindRPC.
type Error struct {
	Kind Kind
	Code wire.ResultCode
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	if e.Kind == KindRPC {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Msg, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target shares this error's Kind, allowing
// errors.Is(err, errcode.ErrTimeout) style checks against sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Protocol builds a KindProtocol error, optionally wrapping a cause.
func Protocol(msg string, err error) *Error {
	return &Error{Kind: KindProtocol, Msg: msg, Err: err}
}

// Sequence builds a KindSequence error describing an out-of-window seqid.
func Sequence(msg string) *Error {
	return newf(KindSequence, "%s", msg)
}

// SessionExpired builds a KindSessionExpired error.
func SessionExpired(msg string) *Error {
	return newf(KindSessionExpired, "%s", msg)
}

// RPC builds a KindRPC error carrying the server's result code.
func RPC(code wire.ResultCode) *Error {
	return &Error{Kind: KindRPC, Code: code, Msg: "server returned non-OK result"}
}

// Resource builds a KindResource error, optionally wrapping a cause.
func Resource(msg string, err error) *Error {
	return &Error{Kind: KindResource, Msg: msg, Err: err}
}

// InvalidArgument builds a KindInvalidArgument error.
func InvalidArgument(format string, args ...any) *Error {
	return newf(KindInvalidArgument, format, args...)
}

// Timeout builds a KindTimeout error.
func Timeout(msg string) *Error {
	return newf(KindTimeout, "%s", msg)
}

// Sentinels usable with errors.Is when only the Kind matters.
var (
	ErrTimeout        = &Error{Kind: KindTimeout}
	ErrSessionExpired = &Error{Kind: KindSessionExpired}
	ErrSequence       = &Error{Kind: KindSequence}
	ErrProtocol       = &Error{Kind: KindProtocol}
)

// As extracts an *Error from err, following the wrap chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
