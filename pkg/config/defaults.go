package config

import (
	"strings"
	"time"

	"github.com/cldc-go/cldc/internal/bytesize"
	"github.com/cldc-go/cldc/pkg/wire"
)

// ApplyDefaults sets default values for any unspecified configuration
// fields. Called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyMetricsDefaults(&cfg.Metrics)
	applyTransportDefaults(&cfg.Transport)
	applyClientDefaults(&cfg.Client)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyMetricsDefaults sets metrics defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	// Enabled defaults to false (opt-in for metrics).
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// applyTransportDefaults sets transport defaults.
func applyTransportDefaults(cfg *TransportConfig) {
	if cfg.Protocol == "" {
		cfg.Protocol = "udp"
	}
}

// applyClientDefaults sets the session engine's size/timing defaults,
// matching pkg/session.DefaultConfig.
func applyClientDefaults(cfg *ClientConfig) {
	if cfg.RetrySeconds == 0 {
		cfg.RetrySeconds = wire.DefaultRetrySeconds * time.Second
	}
	if cfg.MsgExpireSeconds == 0 {
		cfg.MsgExpireSeconds = wire.DefaultMsgExpireSeconds * time.Second
	}
	if cfg.SessionExpireSeconds == 0 {
		cfg.SessionExpireSeconds = wire.DefaultSessExpireSeconds * time.Second
	}
	if cfg.MessageScanSeconds == 0 {
		cfg.MessageScanSeconds = wire.DefaultMsgScanSeconds * time.Second
	}
	if cfg.RememberedWindow == 0 {
		cfg.RememberedWindow = wire.DefaultRememberedWindow
	}
	if cfg.MaxMsgSize == 0 {
		cfg.MaxMsgSize = bytesize.ByteSize(wire.DefaultMaxMsgSize)
	}
	if cfg.MaxFragmentBody == 0 {
		cfg.MaxFragmentBody = bytesize.ByteSize(wire.DefaultMaxFragmentBody)
	}
	if cfg.Discovery.RingCapacity == 0 {
		cfg.Discovery.RingCapacity = wire.DefaultHostRingCapacity
	}
}

// GetDefaultConfig returns a Config struct with all default values
// applied, except for the credentials (User, SecretKey, ServerList),
// which have no sensible default and are left empty for the caller or
// CLI to fill in.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
