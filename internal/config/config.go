// Package config provides configuration loading for sessiond.
package config

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/sessiond/internal/hooks"
)

// Duration wraps time.Duration for text unmarshaling (YAML, env vars).
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	if parsed < 0 {
		return fmt.Errorf("duration cannot be negative: %s", text)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration().String()), nil
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Duration().String())
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Config is the root sessiond configuration.
type Config struct {
	Server  ServerConfig         `koanf:"server"`
	Logging LoggingConfig        `koanf:"logging"`
	NATS    NATSConfig           `koanf:"nats"`
	Hooks   hooks.RegistryConfig `koanf:"hooks"`
	Stream  StreamConfig         `koanf:"stream"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// NATSConfig holds the optional frame relay settings.
type NATSConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`
}

// StreamConfig holds streaming bridge settings.
type StreamConfig struct {
	// HeartbeatInterval is how often SSE streams emit a keep-alive comment.
	HeartbeatInterval Duration `koanf:"heartbeat_interval"`

	// SubscriberBuffer is the per-subscriber frame queue size. A consumer
	// that falls this far behind is disconnected as a slow consumer.
	SubscriberBuffer int `koanf:"subscriber_buffer"`
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8800
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.NATS.URL == "" {
		cfg.NATS.URL = "nats://localhost:4222"
	}

	if cfg.Stream.HeartbeatInterval == 0 {
		cfg.Stream.HeartbeatInterval = Duration(30 * time.Second)
	}
	if cfg.Stream.SubscriberBuffer == 0 {
		cfg.Stream.SubscriberBuffer = 64
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		return fmt.Errorf("server shutdown_timeout must be > 0")
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging format must be 'json' or 'console', got %q", c.Logging.Format)
	}
	if c.Stream.HeartbeatInterval.Duration() <= 0 {
		return fmt.Errorf("stream heartbeat_interval must be > 0")
	}
	if c.Stream.SubscriberBuffer < 1 {
		return fmt.Errorf("stream subscriber_buffer must be >= 1, got %d", c.Stream.SubscriberBuffer)
	}
	if c.NATS.Enabled && c.NATS.URL == "" {
		return fmt.Errorf("nats url is required when the relay is enabled")
	}
	return nil
}
