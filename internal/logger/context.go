package logger

import (
	"context"
	"time"

	"github.com/rs/xid"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds call-scoped logging context: which session and RPC an
// enclosing log statement belongs to, so every line from Issue through
// HandlePacket to the completion callback carries the same correlators.
type LogContext struct {
	TraceID   string    // OpenTelemetry trace ID
	SpanID    string    // OpenTelemetry span ID
	SID       uint64    // Session identifier
	XID       uint64    // Transaction identifier of the in-flight RPC
	Op        string    // Operation name: OPEN, GET, PUT, ...
	Host      string    // Server host:port the session is bound to
	StartTime time.Time // For duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext bound to sid and host. TraceID is
// seeded with a locally-generated xid so log lines for one session's
// lifetime correlate even when no enclosing distributed tracer supplies
// one; WithTrace overrides it once a real trace ID is available.
func NewLogContext(sid uint64, host string) *LogContext {
	return &LogContext{
		SID:       sid,
		Host:      host,
		TraceID:   xid.New().String(),
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		TraceID:   lc.TraceID,
		SpanID:    lc.SpanID,
		SID:       lc.SID,
		XID:       lc.XID,
		Op:        lc.Op,
		Host:      lc.Host,
		StartTime: lc.StartTime,
	}
}

// WithOp returns a copy with the in-flight operation's xid and name set.
func (lc *LogContext) WithOp(xid uint64, op string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.XID = xid
		clone.Op = op
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
