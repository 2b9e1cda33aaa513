package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/contextiq/internal/logging"
	"github.com/fyrsmithlabs/contextiq/internal/service"
	"github.com/fyrsmithlabs/contextiq/internal/usercontext"
)

// actor is recorded as changed_by for mutations made through MCP.
const actor = "mcp"

const instructions = `Tools for a user's long-lived working context: decisions, goals,
preferences, known issues and todos. Call validate_action before acting on
the user's behalf, and extract_context on conversation text to find
candidate items worth confirming with the user.`

// Server serves the context engine as MCP tools.
type Server struct {
	mcp      *mcp.Server
	svc      *service.Service
	registry *ToolRegistry
	metrics  *Metrics
	logger   *logging.Logger
	owner    string
	now      func() time.Time
}

// Config configures the MCP server.
type Config struct {
	// Name defaults to "contextiq".
	Name    string
	Version string

	// DefaultOwner is used when a call omits owner_id.
	DefaultOwner string

	Logger *logging.Logger
	Meter  metric.Meter
}

// NewServer registers every tool against svc.
func NewServer(cfg *Config, svc *service.Service) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("context service is required")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Name == "" {
		cfg.Name = "contextiq"
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}

	s := &Server{
		mcp: mcp.NewServer(
			&mcp.Implementation{Name: cfg.Name, Version: cfg.Version},
			&mcp.ServerOptions{Instructions: instructions},
		),
		svc:      svc,
		registry: NewToolRegistry(),
		metrics:  NewMetrics(cfg.Meter, cfg.Logger.Underlying()),
		logger:   cfg.Logger.Named("mcp"),
		owner:    cfg.DefaultOwner,
		now:      func() time.Time { return time.Now().UTC() },
	}
	s.registerContextTools()
	s.registerEngineTools()
	return s, nil
}

// Registry lists the registered tools.
func (s *Server) Registry() *ToolRegistry { return s.registry }

// Run serves on stdio until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info(ctx, "starting MCP server on stdio transport", zap.Int("tools", s.registry.Count()))
	if err := s.mcp.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}

// Connect serves one session on t without blocking.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.mcp.Connect(ctx, t, nil)
}

// addTool registers h under meta with metrics and logging. The string h
// returns is the human readable summary sent next to the structured output.
func addTool[In, Out any](s *Server, meta ToolMetadata, h func(ctx context.Context, in In) (Out, string, error)) {
	m := meta
	s.registry.Register(&m)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: meta.Name, Description: meta.Description},
		func(ctx context.Context, _ *mcp.CallToolRequest, in In) (*mcp.CallToolResult, Out, error) {
			start := time.Now()
			ctx = logging.WithTool(ctx, meta.Name)
			ctx = service.WithActor(ctx, actor)
			s.metrics.IncrementActive(ctx, meta.Name)

			out, summary, err := h(ctx, in)

			s.metrics.DecrementActive(ctx, meta.Name)
			s.metrics.RecordInvocation(ctx, meta.Name, time.Since(start), err)
			if err != nil {
				s.logger.Warn(ctx, "tool call failed",
					zap.String("reason", categorizeError(err)), zap.Error(err))
				var zero Out
				return nil, zero, err
			}
			s.logger.Debug(ctx, "tool call", zap.Duration("duration", time.Since(start)))
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: summary}},
			}, out, nil
		})
}

// resolveOwner picks the call's owner, falling back to the default.
func (s *Server) resolveOwner(ctx context.Context, owner string) (context.Context, string, error) {
	if owner == "" {
		owner = s.owner
	}
	if owner == "" {
		return ctx, "", fmt.Errorf("owner_id is required: %w", usercontext.ErrInvalidInput)
	}
	return logging.WithOwnerID(ctx, owner), owner, nil
}

func requireID(id string) error {
	if id == "" {
		return fmt.Errorf("id is required: %w", usercontext.ErrInvalidInput)
	}
	return nil
}

// owned hides items of other owners when the call names one.
func owned(requested, actual, id string) error {
	if requested != "" && requested != actual {
		return fmt.Errorf("%s: %w", id, usercontext.ErrNotFound)
	}
	return nil
}

// toMap renders v through its JSON form so enum and scope types reach the
// client exactly as the store and exports spell them.
func toMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func toMaps[T any](items []T) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		m, err := toMap(it)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
