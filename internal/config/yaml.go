// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the config file searched for when no path is given.
const DefaultFile = "prosody.yaml"

var validate = validator.New()

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("prosody.yaml"). If no file is found, it uses built-in
// defaults. After loading defaults or from file, it applies environment variable
// overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		candidates := []string{
			DefaultFile,
		}
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Apply environment variable overrides AFTER loading from file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks every section against its struct tags.
func (c *Config) Validate() error {
	return validate.Struct(c)
}

// applyEnvOverrides applies PROSODY_* environment variables on top of the
// current values. Unparseable values are ignored.
func (c *Config) applyEnvOverrides() {
	// PROSODY_DEBUG
	if val, ok := os.LookupEnv("PROSODY_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Debug = bVal
		}
	}
	// PROSODY_LOG_LEVEL
	if val, ok := os.LookupEnv("PROSODY_LOG_LEVEL"); ok {
		c.Log.Level = val
	}
	// PROSODY_LOG_FILE
	if val, ok := os.LookupEnv("PROSODY_LOG_FILE"); ok {
		c.Log.File = val
	}

	// PROSODY_ANALYSIS_{...}
	// These point the session at a different analysis collaborator.

	// PROSODY_ANALYSIS_URL
	if val, ok := os.LookupEnv("PROSODY_ANALYSIS_URL"); ok {
		c.Analysis.BaseURL = val
	}
	// PROSODY_ANALYSIS_TIMEOUT
	if val, ok := os.LookupEnv("PROSODY_ANALYSIS_TIMEOUT"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			c.Analysis.Timeout = dur
		}
	}

	// PROSODY_VIEWER_ADDRESS
	if val, ok := os.LookupEnv("PROSODY_VIEWER_ADDRESS"); ok {
		c.Viewer.Address = val
	}

	// PROSODY_UDP_{...}
	// These are specific to the cursor publisher.

	// PROSODY_UDP_ENABLED
	if val, ok := os.LookupEnv("PROSODY_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Transport.UDPEnabled = bVal
		}
	}
	// PROSODY_UDP_TARGET_ADDRESS
	if val, ok := os.LookupEnv("PROSODY_UDP_TARGET_ADDRESS"); ok {
		c.Transport.UDPTargetAddress = val
	}
	// PROSODY_UDP_SEND_INTERVAL
	if val, ok := os.LookupEnv("PROSODY_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			c.Transport.UDPSendInterval = dur
		}
	}
}
