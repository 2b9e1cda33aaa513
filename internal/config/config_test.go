package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestHome points HOME at a temp dir and returns the config dir inside it.
func setupTestHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := filepath.Join(home, ".config", "contextiq")
	require.NoError(t, os.MkdirAll(dir, 0700))
	return dir
}

func writeConfig(t *testing.T, dir, content string, perm os.FileMode) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), perm))
	require.NoError(t, os.Chmod(path, perm))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "127.0.0.1:9191", cfg.Server.Addr())
	assert.False(t, cfg.Telemetry.Enabled)
	assert.True(t, cfg.Secrets.Gitleaks)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	dir := setupTestHome(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, filepath.Join(dir, "context.db"), cfg.Store.Path, "~ is expanded")
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout.Duration())
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	dir := setupTestHome(t)
	path := writeConfig(t, dir, `
server:
  port: 8088
  shutdown_timeout: 3s
store:
  path: /tmp/ciq/context.db
logging:
  level: debug
sweep:
  enabled: true
  schedule: "*/15 * * * *"
audit:
  nats_url: nats://127.0.0.1:4222
  nats_token: s3cret
`, 0600)

	t.Setenv("CONTEXTIQ_SERVER_PORT", "9300")
	t.Setenv("CONTEXTIQ_EXTRACTION_FREQUENCY_BOOST", "0.25")
	t.Setenv("CONTEXTIQ_RATELIMIT_EXPIRES_IN", "1m")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9300, cfg.Server.Port, "env wins over file")
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout.Duration())
	assert.Equal(t, "/tmp/ciq/context.db", cfg.Store.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format, "unset keys keep defaults")
	assert.True(t, cfg.Sweep.Enabled)
	assert.Equal(t, "*/15 * * * *", cfg.Sweep.Schedule)
	assert.InDelta(t, 0.25, cfg.Extraction.FrequencyBoost, 1e-9)
	assert.Equal(t, time.Minute, cfg.RateLimit.ExpiresIn.Duration())
	assert.Equal(t, "s3cret", cfg.Audit.NATSToken.Value())
	assert.Equal(t, "[REDACTED]", cfg.Audit.NATSToken.String())
	assert.Equal(t, "contextiq.audit", cfg.Audit.Subject)
}

func TestLoad_RejectsInsecurePermissions(t *testing.T) {
	dir := setupTestHome(t)
	path := writeConfig(t, dir, "server:\n  port: 8088\n", 0644)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insecure config file permissions")
}

func TestLoad_RejectsOversizedFile(t *testing.T) {
	dir := setupTestHome(t)
	big := make([]byte, maxConfigFileSize+1)
	for i := range big {
		big[i] = '#'
	}
	path := writeConfig(t, dir, string(big), 0600)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestLoad_InvalidValues(t *testing.T) {
	dir := setupTestHome(t)
	path := writeConfig(t, dir, "sweep:\n  enabled: true\n  schedule: every tuesday-ish\n", 0600)

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestValidateConfigPath(t *testing.T) {
	dir := setupTestHome(t)

	for _, p := range []string{
		filepath.Join(dir, "config.yaml"),
		filepath.Join(dir, "nested", "config.yaml"),
		"/etc/contextiq/config.yaml",
		"~/.config/contextiq/config.yaml",
	} {
		assert.NoError(t, validateConfigPath(p), p)
	}

	for _, p := range []string{
		"/etc/contextiq../etc/passwd",
		filepath.Join(dir, "..", "..", "..", "etc", "passwd"),
		"/tmp/config.yaml",
	} {
		assert.Error(t, validateConfigPath(p), p)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.Server.Port = 0 }},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }},
		{"no shutdown timeout", func(c *Config) { c.Server.ShutdownTimeout = 0 }},
		{"empty store path", func(c *Config) { c.Store.Path = " " }},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }},
		{"bad output", func(c *Config) { c.Logging.Output = "syslog" }},
		{"telemetry protocol", func(c *Config) { c.Telemetry.Enabled = true; c.Telemetry.Protocol = "udp" }},
		{"sample rate", func(c *Config) { c.Telemetry.SampleRate = 1.5 }},
		{"boost", func(c *Config) { c.Extraction.FrequencyBoost = -0.1 }},
		{"nats without subject", func(c *Config) { c.Audit.NATSURL = "nats://x"; c.Audit.Subject = "" }},
		{"bad schedule", func(c *Config) { c.Sweep.Enabled = true; c.Sweep.Schedule = "sometimes" }},
		{"zero rate", func(c *Config) { c.RateLimit.Rate = 0 }},
		{"zero burst", func(c *Config) { c.RateLimit.Burst = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}

	cfg := Default()
	cfg.RateLimit.Enabled = false
	cfg.RateLimit.Rate = 0
	assert.NoError(t, cfg.Validate(), "rate limit settings are ignored when disabled")
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "server.port", envKey("CONTEXTIQ_SERVER_PORT"))
	assert.Equal(t, "extraction.patterns_file", envKey("CONTEXTIQ_EXTRACTION_PATTERNS_FILE"))
	assert.Equal(t, "debug", envKey("CONTEXTIQ_DEBUG"))
}

func TestSecret(t *testing.T) {
	s := Secret("hunter2")
	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "Secret([REDACTED])", s.GoString())
	data, err := s.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"[REDACTED]"`, string(data))
	assert.True(t, s.IsSet())
	assert.Equal(t, "", Secret("").String())
}

func TestDuration_UnmarshalText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("90s")))
	assert.Equal(t, 90*time.Second, d.Duration())
	assert.Error(t, d.UnmarshalText([]byte("-1s")))
	assert.Error(t, d.UnmarshalText([]byte("soon")))
}
