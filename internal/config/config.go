// Package config loads contextiq configuration.
//
// Values come from three layers, highest precedence first: CONTEXTIQ_*
// environment variables, the YAML config file, then built-in defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the complete contextiq configuration.
type Config struct {
	// Owner is the default owner id for CLI and MCP calls that name none.
	Owner string `koanf:"owner"`

	Server     ServerConfig     `koanf:"server"`
	Store      StoreConfig      `koanf:"store"`
	Logging    LoggingConfig    `koanf:"logging"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
	Extraction ExtractionConfig `koanf:"extraction"`
	Secrets    SecretsConfig    `koanf:"secrets"`
	Audit      AuditConfig      `koanf:"audit"`
	Sweep      SweepConfig      `koanf:"sweep"`
	RateLimit  RateLimitConfig  `koanf:"ratelimit"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StoreConfig locates the SQLite database. A leading ~ expands to the
// user's home directory.
type StoreConfig struct {
	Path string `koanf:"path"`
}

// LoggingConfig is the subset of logger settings exposed to users.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	// Output is stderr or stdout. The MCP stdio transport forces stderr.
	Output string `koanf:"output"`
}

// TelemetryConfig controls OTLP export.
type TelemetryConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	Protocol    string  `koanf:"protocol"`
	Insecure    bool    `koanf:"insecure"`
	ServiceName string  `koanf:"service_name"`
	SampleRate  float64 `koanf:"sample_rate"`
	// CACertFile verifies a collector signed by a private CA.
	CACertFile string `koanf:"ca_cert_file"`
}

// ExtractionConfig tunes the extractor.
type ExtractionConfig struct {
	// PatternsFile is an optional TOML pattern catalogue.
	PatternsFile   string  `koanf:"patterns_file"`
	FrequencyBoost float64 `koanf:"frequency_boost"`
}

// SecretsConfig controls redaction of extracted payloads.
type SecretsConfig struct {
	Enabled       bool   `koanf:"enabled"`
	Gitleaks      bool   `koanf:"gitleaks"`
	AllowListFile string `koanf:"allowlist_file"`
}

// AuditConfig adds an optional NATS publisher next to the SQLite audit table.
type AuditConfig struct {
	NATSURL   string `koanf:"nats_url"`
	NATSToken Secret `koanf:"nats_token"`
	Subject   string `koanf:"subject"`
}

// SweepConfig schedules periodic conflict scans.
type SweepConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Schedule string `koanf:"schedule"`
}

// RateLimitConfig is a per-client token bucket on the HTTP API.
type RateLimitConfig struct {
	Enabled   bool     `koanf:"enabled"`
	Rate      float64  `koanf:"rate"`
	Burst     int      `koanf:"burst"`
	ExpiresIn Duration `koanf:"expires_in"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            9191,
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Store: StoreConfig{Path: "~/.config/contextiq/context.db"},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stderr",
		},
		Telemetry: TelemetryConfig{
			Enabled:     false,
			Endpoint:    "localhost:4317",
			Protocol:    "grpc",
			Insecure:    true,
			ServiceName: "contextiq",
			SampleRate:  1.0,
		},
		Extraction: ExtractionConfig{FrequencyBoost: 0.1},
		Secrets:    SecretsConfig{Enabled: true, Gitleaks: true},
		Audit:      AuditConfig{Subject: "contextiq.audit"},
		Sweep:      SweepConfig{Enabled: false, Schedule: "@every 1h"},
		RateLimit: RateLimitConfig{
			Enabled:   true,
			Rate:      20,
			Burst:     40,
			ExpiresIn: Duration(3 * time.Minute),
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		add("server.port %d must be 1-65535", c.Server.Port)
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		add("server.shutdown_timeout must be positive")
	}
	if strings.TrimSpace(c.Store.Path) == "" {
		add("store.path is required")
	}

	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		add("logging.level %q must be trace, debug, info, warn or error", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		add("logging.format %q must be json or console", c.Logging.Format)
	}
	if c.Logging.Output != "stderr" && c.Logging.Output != "stdout" {
		add("logging.output %q must be stderr or stdout", c.Logging.Output)
	}

	if c.Telemetry.Enabled {
		if c.Telemetry.Endpoint == "" {
			add("telemetry.endpoint is required when telemetry is enabled")
		}
		if c.Telemetry.Protocol != "grpc" && c.Telemetry.Protocol != "http/protobuf" {
			add("telemetry.protocol %q must be grpc or http/protobuf", c.Telemetry.Protocol)
		}
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		add("telemetry.sample_rate %v must be between 0 and 1", c.Telemetry.SampleRate)
	}

	if c.Extraction.FrequencyBoost < 0 || c.Extraction.FrequencyBoost > 1 {
		add("extraction.frequency_boost %v must be between 0 and 1", c.Extraction.FrequencyBoost)
	}

	if c.Audit.NATSURL != "" && c.Audit.Subject == "" {
		add("audit.subject is required with audit.nats_url")
	}

	if c.Sweep.Enabled {
		if _, err := cron.ParseStandard(c.Sweep.Schedule); err != nil {
			add("sweep.schedule %q: %v", c.Sweep.Schedule, err)
		}
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.Rate <= 0 {
			add("ratelimit.rate must be positive")
		}
		if c.RateLimit.Burst < 1 {
			add("ratelimit.burst must be at least 1")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
