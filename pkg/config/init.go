package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// configTemplate is the commented YAML skeleton written by InitConfig /
// InitConfigToPath. It documents every section with its default and is
// meant to be hand-edited afterward.
const configTemplate = `# CLDC Configuration File
#
# Generated by 'cldcli init'. Edit this file, or override any field with
# an environment variable (CLDC_CLIENT_USER, CLDC_CLIENT_SECRET_KEY, ...).

client:
  user: ""
  # secret_key is better left unset here and supplied via
  # CLDC_CLIENT_SECRET_KEY so it never lands in a checked-in file.
  secret_key: ""
  server_list: []
  discovery:
    domain: ""
    ring_capacity: 10
  retry_seconds: 5s
  msg_expire_seconds: 300s
  session_expire_seconds: 120s
  message_scan_seconds: 60s
  remembered_window: 25
  max_msg_size: 128Ki
  max_fragment_body: 1Ki

logging:
  level: INFO
  format: text
  output: stdout

metrics:
  enabled: false
  port: 9090

transport:
  protocol: udp
  local_addr: ""
  reuse_port: false
`

// InitConfig writes a commented default configuration file to the
// default location (see GetDefaultConfigPath), returning the path
// written. If a file already exists there and force is false, it
// returns an error instead of overwriting it.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes the commented default configuration file to
// path, creating parent directories as needed. If the file already
// exists and force is false, it returns an error instead of overwriting it.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(configTemplate), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
