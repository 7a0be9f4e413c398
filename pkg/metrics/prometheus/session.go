// Package prometheus implements pkg/metrics's observability interfaces
// with github.com/prometheus/client_golang collectors: promauto.With(reg)
// against the registry installed by metrics.InitRegistry, nil-receiver
// methods so a nil *sessionMetrics (when metrics are disabled) behaves as
// a no-op rather than panicking.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cldc-go/cldc/pkg/metrics"
)

type sessionMetrics struct {
	rpcDuration  *prometheus.HistogramVec
	retransmits  *prometheus.CounterVec
	fragments    *prometheus.CounterVec
	fragmentSize *prometheus.CounterVec
	sessionState *prometheus.GaugeVec
	events       *prometheus.CounterVec
}

// NewSessionMetrics builds the Prometheus-backed metrics.SessionMetrics.
// Returns nil when metrics.IsEnabled() is false, so callers can pass the
// result straight through to Session.SetMetrics without branching.
func NewSessionMetrics() metrics.SessionMetrics {
	if !metrics.IsEnabled() {
		return nil
	}
	reg := metrics.GetRegistry()

	m := &sessionMetrics{
		rpcDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cldc_rpc_duration_seconds",
				Help:    "RPC round-trip duration by operation and result code",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op", "result"},
		),
		retransmits: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "cldc_retransmits_total",
				Help: "Total packet retransmissions by operation",
			},
			[]string{"op"},
		),
		fragments: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "cldc_fragments_total",
				Help: "Total packet fragments sent or received",
			},
			[]string{"direction"},
		),
		fragmentSize: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "cldc_fragment_bytes_total",
				Help: "Total fragment bytes sent or received",
			},
			[]string{"direction"},
		),
		sessionState: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cldc_session_state",
				Help: "Current session lifecycle state (1 for the active state, 0 otherwise)",
			},
			[]string{"state"},
		),
		events: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "cldc_events_total",
				Help: "Total events delivered to the application callback",
			},
			[]string{"kind"},
		),
	}
	return m
}

var allStates = []string{"NEW", "PENDING_CONFIRM", "CONFIRMED", "EXPIRED"}

func (m *sessionMetrics) RecordRPC(op, result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.rpcDuration.WithLabelValues(op, result).Observe(duration.Seconds())
}

func (m *sessionMetrics) RecordRetransmit(op string) {
	if m == nil {
		return
	}
	m.retransmits.WithLabelValues(op).Inc()
}

func (m *sessionMetrics) RecordFragment(direction string, bytes int) {
	if m == nil {
		return
	}
	m.fragments.WithLabelValues(direction).Inc()
	m.fragmentSize.WithLabelValues(direction).Add(float64(bytes))
}

func (m *sessionMetrics) SetSessionState(state string) {
	if m == nil {
		return
	}
	for _, s := range allStates {
		if s == state {
			m.sessionState.WithLabelValues(s).Set(1)
		} else {
			m.sessionState.WithLabelValues(s).Set(0)
		}
	}
}

func (m *sessionMetrics) RecordEvent(kind string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(kind).Inc()
}
