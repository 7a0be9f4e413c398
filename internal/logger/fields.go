package logger

import (
	"log/slog"
)

// Standard field keys for structured logging across the session engine,
// the RPC pipeline, discovery, and the façade. Use these consistently so
// log lines stay groupable/queryable across the client's layers.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Session & Transaction
	// ========================================================================
	KeySID      = "sid"      // Session identifier (64-bit)
	KeyXID      = "xid"      // Transaction identifier of one in-flight RPC
	KeyOp       = "op"       // Operation name: OPEN, GET, PUT, LOCK, ...
	KeyResult   = "result"   // Result code returned by the server
	KeyState    = "state"    // Session lifecycle state
	KeyUser     = "user"     // Authenticated user name
	KeyHost     = "host"     // Server host:port currently in use

	// ========================================================================
	// File Handles & Paths
	// ========================================================================
	KeyFH   = "fh"   // File handle
	KeyPath = "path" // File/directory path argument

	// ========================================================================
	// Wire / Packet Layer
	// ========================================================================
	KeySeqID   = "seqid"   // Packet sequence id
	KeyOrder   = "order"   // Fragment order: FIRST, MID, LAST, FIRST_LAST
	KeyRetries = "retries" // Retransmission attempt count
	KeySize    = "size"    // Payload size in bytes

	// ========================================================================
	// Events
	// ========================================================================
	KeyEvent = "event" // Event mask delivered to an application callback

	// ========================================================================
	// Discovery
	// ========================================================================
	KeyAttempt    = "attempt"     // Retry attempt number
	KeyMaxRetries = "max_retries" // Maximum retry attempts

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
)

// TraceID returns a slog.Attr for a trace identifier.
func TraceID(id string) slog.Attr { return slog.String(KeyTraceID, id) }

// SID returns a slog.Attr for a session identifier.
func SID(sid uint64) slog.Attr { return slog.Uint64(KeySID, sid) }

// XID returns a slog.Attr for a transaction identifier.
func XID(xid uint64) slog.Attr { return slog.Uint64(KeyXID, xid) }

// Op returns a slog.Attr for an operation name.
func Op(name string) slog.Attr { return slog.String(KeyOp, name) }

// Result returns a slog.Attr for a result code.
func Result(name string) slog.Attr { return slog.String(KeyResult, name) }

// State returns a slog.Attr for a session lifecycle state.
func State(name string) slog.Attr { return slog.String(KeyState, name) }

// User returns a slog.Attr for the authenticated user name.
func User(name string) slog.Attr { return slog.String(KeyUser, name) }

// Host returns a slog.Attr for a server host:port.
func Host(addr string) slog.Attr { return slog.String(KeyHost, addr) }

// FH returns a slog.Attr for a file handle.
func FH(fh uint64) slog.Attr { return slog.Uint64(KeyFH, fh) }

// Path returns a slog.Attr for a file/directory path.
func Path(p string) slog.Attr { return slog.String(KeyPath, p) }

// SeqID returns a slog.Attr for a packet sequence id.
func SeqID(id uint64) slog.Attr { return slog.Uint64(KeySeqID, id) }

// Order returns a slog.Attr for a fragment order.
func Order(name string) slog.Attr { return slog.String(KeyOrder, name) }

// Retries returns a slog.Attr for a retransmission attempt count.
func Retries(n int) slog.Attr { return slog.Int(KeyRetries, n) }

// Size returns a slog.Attr for a payload size in bytes.
func Size(n int) slog.Attr { return slog.Int(KeySize, n) }

// Event returns a slog.Attr for an event mask.
func Event(mask uint32) slog.Attr { return slog.Any(KeyEvent, mask) }

// Attempt returns a slog.Attr for a retry attempt number.
func Attempt(n int) slog.Attr { return slog.Int(KeyAttempt, n) }

// DurationMs returns a slog.Attr for a duration in milliseconds.
func DurationMs(ms float64) slog.Attr { return slog.Float64(KeyDurationMs, ms) }

// Err returns a slog.Attr for an error, or a zero Attr if err is nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
