// Package logging wraps zap for the daemon and the CLI.
//
// It adds a Trace level below Debug, tees output to a local writer and
// the OpenTelemetry log bridge, injects correlation fields from the
// context, redacts sensitive keys and values, and samples chatty levels.
// Error and above are never sampled.
//
// Usage:
//
//	cfg, err := logging.FromSettings(appCfg.Logging, mcpMode)
//	logger, err := logging.NewLogger(cfg, otelLogProvider)
//	defer logger.Sync()
//
//	ctx = logging.WithOwnerID(ctx, "alice@example.com")
//	ctx = logging.WithRequestID(ctx, reqID)
//	logger.Info(ctx, "decision created", zap.String("decision.id", id))
//
// The entry above carries owner.id, request.id and, when a span is active,
// trace_id and span_id.
//
// The MCP stdio transport owns stdout, so FromSettings forces the stderr
// writer when asked to.
//
// Tests use NewTestLogger and its Assert helpers instead of parsing output.
package logging
