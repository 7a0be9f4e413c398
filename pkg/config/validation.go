package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks cfg against its struct tags and a handful of
// cross-field rules the tags can't express. Call after ApplyDefaults;
// Load and MustLoad do this when they read a config file, but the
// defaults they return when no file is found are not validated.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	if len(cfg.Client.ServerList) == 0 && cfg.Client.Discovery.Domain == "" {
		return fmt.Errorf("config validation: one of client.server_list or client.discovery.domain is required")
	}

	return nil
}
