// Package metrics defines the client's observability seam: small,
// nil-safe interfaces any component can accept, with a Prometheus
// implementation in pkg/metrics/prometheus. Passing nil disables
// collection with zero overhead throughout every adapter.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	mu       sync.Mutex
	registry *prometheus.Registry
	enabled  bool
)

// InitRegistry installs the process-wide Prometheus registry that
// pkg/metrics/prometheus constructors register their collectors against.
// Call once at startup before constructing any metrics implementation.
func InitRegistry(reg *prometheus.Registry) {
	mu.Lock()
	defer mu.Unlock()
	registry = reg
	enabled = reg != nil
}

// IsEnabled reports whether InitRegistry has been called with a non-nil
// registry.
func IsEnabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// GetRegistry returns the installed registry, or a freshly-created one if
// none was installed (callers needing a registry to scrape regardless of
// whether client metrics are wired).
func GetRegistry() *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	return registry
}
