package telemetry

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/fyrsmithlabs/contextiq/internal/config"
)

func TestFromSettings(t *testing.T) {
	cfg := FromSettings(config.Default().Telemetry, "1.2.3")
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.Equal(t, ProtocolGRPC, cfg.Protocol)
	assert.Equal(t, "contextiq", cfg.ServiceName)
	assert.Equal(t, "1.2.3", cfg.ServiceVersion)
	assert.Equal(t, 1.0, cfg.SampleRate)
	assert.NoError(t, cfg.Validate())

	cfg = FromSettings(config.TelemetryConfig{Enabled: true, Protocol: ProtocolHTTP, Endpoint: "otel.example.com:4318"}, "")
	assert.Equal(t, "dev", cfg.ServiceVersion)
	assert.Equal(t, ProtocolHTTP, cfg.Protocol)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"disabled skips checks", func(c *Config) { c.Enabled = false; c.Endpoint = "" }, ""},
		{"local insecure", func(c *Config) {}, ""},
		{"missing endpoint", func(c *Config) { c.Endpoint = "" }, "endpoint"},
		{"missing service", func(c *Config) { c.ServiceName = "" }, "service name"},
		{"bad protocol", func(c *Config) { c.Protocol = "udp" }, "protocol"},
		{"remote insecure", func(c *Config) { c.Endpoint = "collector.example.com:4317" }, "insecure"},
		{"remote tls", func(c *Config) { c.Endpoint = "collector.example.com:4317"; c.Insecure = false }, ""},
		{"sample rate", func(c *Config) { c.SampleRate = 2 }, "sample rate"},
		{"interval", func(c *Config) { c.ExportInterval = 0 }, "export interval"},
		{"shutdown", func(c *Config) { c.ShutdownTimeout = 0 }, "shutdown timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			cfg.Enabled = true
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestIsLocalEndpoint(t *testing.T) {
	for ep, want := range map[string]bool{
		"localhost:4317":         true,
		"127.0.0.1:4317":         true,
		"127.8.9.1":              true,
		"[::1]:4317":             true,
		"::1":                    true,
		"http://localhost:4318":  true,
		"https://127.0.0.1/v1":   true,
		"otel.internal:4317":     false,
		"10.0.0.5:4317":          false,
		"localhost.evil.com:443": false,
	} {
		assert.Equal(t, want, isLocalEndpoint(ep), ep)
	}
}

func TestSampler(t *testing.T) {
	assert.Contains(t, sampler(1).Description(), "root:AlwaysOnSampler")
	assert.Contains(t, sampler(0).Description(), "root:AlwaysOffSampler")
	assert.Contains(t, sampler(0.25).Description(), "root:TraceIDRatioBased")
}

func TestTLSConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	tc, err := tlsConfig(cfg)
	require.NoError(t, err)
	assert.Nil(t, tc, "insecure needs no TLS")

	cfg.Insecure = false
	cfg.CACertFile = filepath.Join(t.TempDir(), "missing.pem")
	_, err = tlsConfig(cfg)
	assert.Error(t, err)

	cfg.CACertFile = filepath.Join(t.TempDir(), "garbage.pem")
	require.NoError(t, os.WriteFile(cfg.CACertFile, []byte("not a cert"), 0o600))
	_, err = tlsConfig(cfg)
	assert.ErrorContains(t, err, "no certificates")
}

func TestNew_Disabled(t *testing.T) {
	tel, err := New(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, tel.IsEnabled())
	assert.Nil(t, tel.LoggerProvider())
	assert.NotNil(t, tel.Tracer("x"))
	assert.NotNil(t, tel.Meter("x"))
	assert.Equal(t, HealthStatus{Healthy: true}, tel.Health())
	assert.NoError(t, tel.ForceFlush(context.Background()))
	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Enabled = true
	cfg.Protocol = "carrier-pigeon"
	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNew_EnabledWithInjectedExporters(t *testing.T) {
	ctx := context.Background()
	cfg := NewDefaultConfig()
	cfg.Enabled = true

	spans := tracetest.NewInMemoryExporter()
	reader := sdkmetric.NewManualReader()
	tel, err := New(ctx, cfg, WithSpanExporter(spans), WithMetricReader(reader), WithoutGlobal())
	require.NoError(t, err)
	assert.True(t, tel.IsEnabled())
	assert.NotNil(t, tel.LoggerProvider())

	_, span := tel.Tracer("test").Start(ctx, "extract")
	span.End()
	require.NoError(t, tel.ForceFlush(ctx))
	require.Len(t, spans.GetSpans(), 1)
	assert.Equal(t, "extract", spans.GetSpans()[0].Name)

	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, tel.Shutdown(ctx))
	assert.False(t, tel.Health().Healthy)
}

func TestNilTelemetry(t *testing.T) {
	var tel *Telemetry
	assert.False(t, tel.IsEnabled())
	assert.Nil(t, tel.LoggerProvider())
	assert.NotNil(t, tel.Tracer("x"))
	assert.NoError(t, tel.Shutdown(context.Background()))
	assert.True(t, tel.Health().Degraded)
}

func TestTestTelemetry(t *testing.T) {
	tt := NewTestTelemetry()
	ctx := context.Background()

	_, span := tt.Tracer("test").Start(ctx, "validate")
	span.SetAttributes(attribute.String("verdict", "invalid"))
	span.End()
	tt.AssertSpanExists(t, "validate")
	tt.AssertSpanAttribute(t, "validate", "verdict", "invalid")

	c, err := tt.Meter("test").Int64Counter("things_total")
	require.NoError(t, err)
	c.Add(ctx, 2, metric.WithAttributes(attribute.String("kind", "a")))
	c.Add(ctx, 3, metric.WithAttributes(attribute.String("kind", "b")))

	assert.Equal(t, int64(5), tt.Counter(t, "things_total"))
	assert.Equal(t, int64(3), tt.Counter(t, "things_total", attribute.String("kind", "b")))
}
