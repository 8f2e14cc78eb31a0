package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	// envPrefix namespaces sessiond environment variables.
	envPrefix = "SESSIOND_"
)

// Load loads configuration from a YAML file, then overrides with
// environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (SESSIOND_SERVER_PORT, SESSIOND_NATS_URL, ...)
//  2. YAML config file
//  3. Hardcoded defaults
//
// A missing file is not an error: defaults plus environment apply.
//
// # Environment Variable Mapping
//
// Variables are stripped of the SESSIOND_ prefix, lowercased, and split on
// the first underscore into section and field:
//
//	SESSIOND_SERVER_PORT          -> server.port
//	SESSIOND_NATS_URL             -> nats.url
//	SESSIOND_STREAM_HEARTBEAT_INTERVAL -> stream.heartbeat_interval
//
// The scope verification section is nested one level deeper and is mapped
// explicitly:
//
//	SESSIOND_HOOKS_SCOPE_VERIFICATION_ENABLED -> hooks.scope_verification.enabled
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			content, err := readConfigFile(configPath)
			if err != nil {
				return nil, err
			}
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
			}
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		// SESSIOND_SERVER_PORT -> server.port: split on first underscore
		// only, so compound field names keep their underscores.
		lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		// hooks.scope_verification.* is doubly nested; the generic split
		// cannot reach it, and its enabled flag must stay settable from
		// the environment.
		if rest, ok := strings.CutPrefix(lower, "hooks_scope_verification_"); ok {
			return "hooks.scope_verification." + rest
		}
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Scope verification is on unless explicitly disabled: absence of the
	// key must not read as false.
	if !k.Exists("hooks.scope_verification.enabled") {
		cfg.Hooks.ScopeVerification.Enabled = true
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// readConfigFile opens and reads the config file, validating its size
// through the already-opened descriptor to avoid a TOCTOU race.
func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}
