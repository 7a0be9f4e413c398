package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaults_Logging(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)
}

func TestApplyDefaults_LoggingUppercasesLevel(t *testing.T) {
	cfg := &Config{Logging: LoggingConfig{Level: "debug"}}
	ApplyDefaults(cfg)

	assert.Equal(t, "DEBUG", cfg.Logging.Level)
}

func TestApplyDefaults_Metrics(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.False(t, cfg.Metrics.Enabled)
	assert.Zero(t, cfg.Metrics.Port)
}

func TestApplyDefaults_MetricsEnabledGetsPort(t *testing.T) {
	cfg := &Config{Metrics: MetricsConfig{Enabled: true}}
	ApplyDefaults(cfg)

	assert.Equal(t, 9090, cfg.Metrics.Port)
}

func TestApplyDefaults_MetricsEnabledKeepsExplicitPort(t *testing.T) {
	cfg := &Config{Metrics: MetricsConfig{Enabled: true, Port: 1234}}
	ApplyDefaults(cfg)

	assert.Equal(t, 1234, cfg.Metrics.Port)
}

func TestApplyDefaults_Transport(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, "udp", cfg.Transport.Protocol)
}

func TestApplyDefaults_TransportKeepsExplicitProtocol(t *testing.T) {
	cfg := &Config{Transport: TransportConfig{Protocol: "tcp"}}
	ApplyDefaults(cfg)

	assert.Equal(t, "tcp", cfg.Transport.Protocol)
}

func TestApplyDefaults_Client(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, 5*time.Second, cfg.Client.RetrySeconds)
	assert.Equal(t, 300*time.Second, cfg.Client.MsgExpireSeconds)
	assert.Equal(t, 120*time.Second, cfg.Client.SessionExpireSeconds)
	assert.Equal(t, 60*time.Second, cfg.Client.MessageScanSeconds)
	assert.EqualValues(t, 25, cfg.Client.RememberedWindow)
	assert.EqualValues(t, 128*1024, cfg.Client.MaxMsgSize)
	assert.EqualValues(t, 1024, cfg.Client.MaxFragmentBody)
	assert.Equal(t, 10, cfg.Client.Discovery.RingCapacity)
}

func TestApplyDefaults_ClientKeepsExplicitValues(t *testing.T) {
	cfg := &Config{Client: ClientConfig{
		RetrySeconds:     2 * time.Second,
		RememberedWindow: 50,
	}}
	ApplyDefaults(cfg)

	assert.Equal(t, 2*time.Second, cfg.Client.RetrySeconds)
	assert.EqualValues(t, 50, cfg.Client.RememberedWindow)
	// Untouched fields still pick up their defaults.
	assert.Equal(t, 300*time.Second, cfg.Client.MsgExpireSeconds)
}

func TestApplyDefaults_CredentialsUntouched(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Empty(t, cfg.Client.User)
	assert.Empty(t, cfg.Client.SecretKey)
	assert.Empty(t, cfg.Client.ServerList)
}

func TestGetDefaultConfig_MatchesApplyDefaults(t *testing.T) {
	viaGetDefault := GetDefaultConfig()

	viaApply := &Config{}
	ApplyDefaults(viaApply)

	assert.Equal(t, viaApply, viaGetDefault)
}
