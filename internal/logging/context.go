package logging

import (
	"context"
	"unicode"
	"unicode/utf8"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const maxIDLen = 128

type ownerCtxKey struct{}
type requestCtxKey struct{}
type toolCtxKey struct{}
type loggerCtxKey struct{}

// ContextFields extracts correlation data from ctx: the active span, the
// owner the request acts for, the request id and the MCP tool name.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 6)

	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
		if sc.IsSampled() {
			fields = append(fields, zap.Bool("trace_sampled", true))
		}
	}
	if owner := OwnerIDFromContext(ctx); owner != "" {
		fields = append(fields, zap.String("owner.id", owner))
	}
	if id := RequestIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("request.id", id))
	}
	if tool := ToolFromContext(ctx); tool != "" {
		fields = append(fields, zap.String("mcp.tool", tool))
	}
	return fields
}

// validID accepts non-empty printable UTF-8 up to maxIDLen bytes. Owner ids
// are often emails, so punctuation is allowed.
func validID(id string) bool {
	if id == "" || len(id) > maxIDLen || !utf8.ValidString(id) {
		return false
	}
	for _, r := range id {
		if !unicode.IsPrint(r) || unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

func withID(ctx context.Context, key any, id string) context.Context {
	if !validID(id) {
		// ids arrive from HTTP headers and tool arguments; a bad one is
		// dropped rather than logged verbatim
		return ctx
	}
	return context.WithValue(ctx, key, id)
}

func idFrom(ctx context.Context, key any) string {
	s, _ := ctx.Value(key).(string)
	return s
}

// WithOwnerID records the owner a request acts for. Invalid ids are ignored.
func WithOwnerID(ctx context.Context, owner string) context.Context {
	return withID(ctx, ownerCtxKey{}, owner)
}

func OwnerIDFromContext(ctx context.Context) string { return idFrom(ctx, ownerCtxKey{}) }

// WithRequestID records a request id. Invalid ids are ignored.
func WithRequestID(ctx context.Context, id string) context.Context {
	return withID(ctx, requestCtxKey{}, id)
}

func RequestIDFromContext(ctx context.Context) string { return idFrom(ctx, requestCtxKey{}) }

// WithTool records the MCP tool being served.
func WithTool(ctx context.Context, tool string) context.Context {
	return withID(ctx, toolCtxKey{}, tool)
}

func ToolFromContext(ctx context.Context) string { return idFrom(ctx, toolCtxKey{}) }

// WithLogger stores logger in context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext retrieves the logger stored by WithLogger, or a nop logger.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok && l != nil {
		return l
	}
	return Nop()
}
