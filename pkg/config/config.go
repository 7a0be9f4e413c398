// Package config loads and validates CLDC client configuration: the
// credentials and server list needed to open a session, plus the
// ambient logging and metrics knobs. Configuration sources, in order of
// precedence (highest first): environment variables (CLDC_*), a YAML
// config file, and finally the package defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/cldc-go/cldc/internal/bytesize"
)

// Config is the complete CLDC client configuration.
type Config struct {
	// Client holds the credentials and server discovery settings needed
	// to open a session.
	Client ClientConfig `mapstructure:"client" yaml:"client"`

	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Metrics contains Prometheus metrics server configuration.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Transport selects and configures the wire transport.
	Transport TransportConfig `mapstructure:"transport" yaml:"transport"`
}

// ClientConfig holds everything needed to open a session with a CLD
// server: identity, the shared secret, and the size/timing knobs of the
// session engine.
type ClientConfig struct {
	// User is the session's user name (at most wire.MaxUserNameLen bytes).
	User string `mapstructure:"user" validate:"required,max=31" yaml:"user"`

	// SecretKey is the shared HMAC-SHA1 key, usually supplied via the
	// CLDC_CLIENT_SECRET_KEY environment variable rather than a file on
	// disk; see internal/cli/credentials for the CLI's handling of it.
	SecretKey string `mapstructure:"secret_key" validate:"required" yaml:"secret_key,omitempty"`

	// ServerList is an explicit "host:port" list, tried in order and
	// rotated on failure. Mutually exclusive with Discovery.Domain; if
	// both are set, ServerList takes precedence.
	ServerList []string `mapstructure:"server_list" yaml:"server_list"`

	// Discovery configures DNS SRV-based server discovery, used when
	// ServerList is empty.
	Discovery DiscoveryConfig `mapstructure:"discovery" yaml:"discovery"`

	// RetrySeconds is the retransmission timer interval.
	RetrySeconds time.Duration `mapstructure:"retry_seconds" validate:"omitempty,gt=0" yaml:"retry_seconds"`

	// MsgExpireSeconds is how long an unacknowledged message is retried
	// before it fails with a timeout.
	MsgExpireSeconds time.Duration `mapstructure:"msg_expire_seconds" validate:"omitempty,gt=0" yaml:"msg_expire_seconds"`

	// SessionExpireSeconds is how long the session may go without any
	// inbound packet before it is declared expired.
	SessionExpireSeconds time.Duration `mapstructure:"session_expire_seconds" validate:"omitempty,gt=0" yaml:"session_expire_seconds"`

	// MessageScanSeconds is the cadence of the per-message expiry sweep.
	MessageScanSeconds time.Duration `mapstructure:"message_scan_seconds" validate:"omitempty,gt=0" yaml:"message_scan_seconds"`

	// RememberedWindow is the size of the inbound sequence-ID window that
	// is re-ACKed without redelivery.
	RememberedWindow uint64 `mapstructure:"remembered_window" validate:"omitempty,gt=0" yaml:"remembered_window"`

	// MaxMsgSize bounds the reassembled size of one RPC message.
	MaxMsgSize bytesize.ByteSize `mapstructure:"max_msg_size" yaml:"max_msg_size"`

	// MaxFragmentBody bounds the body size of one wire packet.
	MaxFragmentBody bytesize.ByteSize `mapstructure:"max_fragment_body" yaml:"max_fragment_body"`
}

// DiscoveryConfig controls DNS SRV-based server discovery.
type DiscoveryConfig struct {
	// Domain is looked up as "_cld._udp.<domain>" when ServerList is empty.
	Domain string `mapstructure:"domain" yaml:"domain,omitempty"`

	// RingCapacity bounds how many discovered hosts are retained.
	RingCapacity int `mapstructure:"ring_capacity" validate:"omitempty,min=1,max=64" yaml:"ring_capacity"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format: text or json.
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written: stdout, stderr, or a file path.
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// MetricsConfig configures the Prometheus metrics registry.
// When Enabled is false, metrics collection is zero-overhead.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and registered.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port serving /metrics, used by cmd/cldcli serve-debug.
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// TransportConfig selects and configures the wire transport.
type TransportConfig struct {
	// Protocol is "udp" or "tcp".
	Protocol string `mapstructure:"protocol" validate:"required,oneof=udp tcp" yaml:"protocol"`

	// LocalAddr is the local address to bind, "" for an ephemeral port.
	LocalAddr string `mapstructure:"local_addr" yaml:"local_addr,omitempty"`

	// ReusePort enables SO_REUSEPORT on the UDP socket so multiple
	// sessions on one host can share a fixed local port. Ignored for TCP.
	ReusePort bool `mapstructure:"reuse_port" yaml:"reuse_port"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (CLDC_*)
//  2. Configuration file
//  3. Default values
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !configFileFound {
		cfg := GetDefaultConfig()
		return cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages if no config
// file is found at configPath (or the default location, if empty).
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  cldcli init\n\n"+
				"Or specify a custom config file:\n"+
				"  cldcli <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s\n\n"+
			"Please create the configuration file:\n"+
			"  cldcli init --config %s",
			configPath, configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// SaveConfig saves the configuration to path in YAML format. SecretKey is
// intentionally still written here if set; operators are expected to rely
// on the CLDC_CLIENT_SECRET_KEY environment variable or restrict file
// permissions, which SaveConfig enforces with 0600.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the CLDC_ prefix.
	// Example: CLDC_CLIENT_SECRET_KEY=s3cr3t
	v.SetEnvPrefix("CLDC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error) where fileFound indicates if a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

// configDecodeHooks returns a combined decode hook for ByteSize and
// time.Duration parsing.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

// byteSizeDecodeHook converts strings and numbers to bytesize.ByteSize,
// so config files can use human-readable sizes like "128Ki" or "1Mi".
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// durationDecodeHook converts strings and numbers to time.Duration, so
// config files can use human-readable durations like "30s" or "5m".
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path: XDG_CONFIG_HOME
// if set, otherwise ~/.config/cldc, or "." as a last resort.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "cldc")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "cldc")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for the
// init command).
func GetConfigDir() string {
	return getConfigDir()
}
