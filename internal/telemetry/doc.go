// Package telemetry sets up OpenTelemetry tracing and metrics export.
//
// Export is off by default. When enabled, spans and metrics go to an OTLP
// collector over gRPC or HTTP/protobuf, and the providers are installed as
// the otel globals so instrumented packages pick them up through
// otel.Meter and otel.Tracer. A collector that cannot be reached at
// startup degrades telemetry instead of failing the daemon.
//
//	tel, err := telemetry.New(ctx, telemetry.FromSettings(cfg.Telemetry, version))
//	defer tel.Shutdown(context.Background())
//
// Tests use NewTestTelemetry, which records spans and metrics in memory.
package telemetry
