package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := GetDefaultConfig()
	cfg.Client.User = "alice"
	cfg.Client.SecretKey = "s3cr3t"
	cfg.Client.ServerList = []string{"cld1.example.com:30001"}
	return cfg
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, Validate(validConfig()))
}

func TestValidate_ValidConfigWithDiscoveryDomainInsteadOfServerList(t *testing.T) {
	cfg := validConfig()
	cfg.Client.ServerList = nil
	cfg.Client.Discovery.Domain = "cld.example.com"

	assert.NoError(t, Validate(cfg))
}

func TestValidate_MissingUser(t *testing.T) {
	cfg := validConfig()
	cfg.Client.User = ""

	err := Validate(cfg)
	require.Error(t, err)
}

func TestValidate_UserTooLong(t *testing.T) {
	cfg := validConfig()
	cfg.Client.User = strings.Repeat("a", 32)

	require.Error(t, Validate(cfg))
}

func TestValidate_MissingSecretKey(t *testing.T) {
	cfg := validConfig()
	cfg.Client.SecretKey = ""

	require.Error(t, Validate(cfg))
}

func TestValidate_NoServerListAndNoDiscoveryDomain(t *testing.T) {
	cfg := validConfig()
	cfg.Client.ServerList = nil
	cfg.Client.Discovery.Domain = ""

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server_list")
}

func TestValidate_InvalidRetrySeconds(t *testing.T) {
	cfg := validConfig()
	cfg.Client.RetrySeconds = -1

	require.Error(t, Validate(cfg))
}

func TestValidate_ZeroRememberedWindowTreatedAsUnset(t *testing.T) {
	cfg := validConfig()
	cfg.Client.RememberedWindow = 0

	// RememberedWindow validates omitempty,gt=0: zero is treated as "not set"
	// and passes; this documents that rather than asserting an error.
	assert.NoError(t, Validate(cfg))
}

func TestValidate_DiscoveryRingCapacityOutOfRange(t *testing.T) {
	cfg := validConfig()
	cfg.Client.Discovery.RingCapacity = 65

	require.Error(t, Validate(cfg))
}

func TestValidate_InvalidLoggingLevel(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "VERBOSE"

	require.Error(t, Validate(cfg))
}

func TestValidate_ValidLoggingLevelsCaseInsensitive(t *testing.T) {
	for _, level := range []string{"DEBUG", "INFO", "WARN", "ERROR", "debug", "info", "warn", "error"} {
		cfg := validConfig()
		cfg.Logging.Level = level
		assert.NoError(t, Validate(cfg), "level %q should be valid", level)
	}
}

func TestValidate_MissingLoggingFormat(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Format = ""

	require.Error(t, Validate(cfg))
}

func TestValidate_InvalidLoggingFormat(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Format = "xml"

	require.Error(t, Validate(cfg))
}

func TestValidate_MissingLoggingOutput(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Output = ""

	require.Error(t, Validate(cfg))
}

func TestValidate_MetricsPortOutOfRange(t *testing.T) {
	cfg := validConfig()
	cfg.Metrics.Enabled = true
	cfg.Metrics.Port = 70000

	require.Error(t, Validate(cfg))
}

func TestValidate_InvalidTransportProtocol(t *testing.T) {
	cfg := validConfig()
	cfg.Transport.Protocol = "sctp"

	require.Error(t, Validate(cfg))
}

func TestValidate_MissingTransportProtocol(t *testing.T) {
	cfg := validConfig()
	cfg.Transport.Protocol = ""

	require.Error(t, Validate(cfg))
}
