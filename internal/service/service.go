package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/contextiq/internal/audit"
	"github.com/fyrsmithlabs/contextiq/internal/extraction"
	"github.com/fyrsmithlabs/contextiq/internal/secrets"
	"github.com/fyrsmithlabs/contextiq/internal/store"
	"github.com/fyrsmithlabs/contextiq/internal/usercontext"
)

// ErrNilStore is returned by New without a store.
var ErrNilStore = errors.New("service: store is required")

// DefaultActor is recorded as changed_by when the context carries none.
const DefaultActor = "contextiq"

// Options configures a Service. Only Store is required.
type Options struct {
	Store store.Store

	// Extractor defaults to the built-in pattern library.
	Extractor *extraction.Extractor

	// Scrubber redacts extracted payloads. Defaults to secrets.Noop.
	Scrubber secrets.Scrubber

	// Audit defaults to the store's own audit table.
	Audit audit.Sink

	Logger *zap.Logger

	// Meter defaults to the global otel meter provider.
	Meter metric.Meter
}

// Service runs engine operations against stored context. Safe for
// concurrent use.
type Service struct {
	store     store.Store
	extractor *extraction.Extractor
	scrubber  secrets.Scrubber
	audit     audit.Sink
	logger    *zap.Logger
	metrics   *Metrics
	now       func() time.Time
}

// New builds a Service.
func New(opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, ErrNilStore
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Extractor == nil {
		lib, err := extraction.DefaultLibrary()
		if err != nil {
			return nil, err
		}
		ex, err := extraction.NewExtractor(lib)
		if err != nil {
			return nil, err
		}
		opts.Extractor = ex
	}
	if opts.Scrubber == nil {
		opts.Scrubber = secrets.Noop{}
	}
	if opts.Audit == nil {
		opts.Audit = audit.NewStoreSink(opts.Store)
	}
	if opts.Meter == nil {
		opts.Meter = otel.Meter(instrumentationName)
	}
	return &Service{
		store:     opts.Store,
		extractor: opts.Extractor,
		scrubber:  opts.Scrubber,
		audit:     opts.Audit,
		logger:    opts.Logger,
		metrics:   newMetrics(opts.Meter, opts.Logger),
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// Store exposes the underlying store for read-only callers such as the sweep.
func (s *Service) Store() store.Store { return s.store }

type actorKey struct{}

// WithActor tags ctx with the name recorded as changed_by on audit entries.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func actorFrom(ctx context.Context) string {
	if a, ok := ctx.Value(actorKey{}).(string); ok && a != "" {
		return a
	}
	return DefaultActor
}

// record appends an audit entry. before and after are JSON snapshots and
// may be nil.
func (s *Service) record(ctx context.Context, ownerID string, et usercontext.EntityType, id string, action usercontext.AuditAction, before, after any) {
	e := usercontext.NewAuditEntry(ownerID, et, id, action, actorFrom(ctx)).
		WithValues(snapshot(before), snapshot(after))
	e.ChangedAt = s.now()
	if err := s.audit.Record(ctx, e); err != nil {
		s.logger.Warn("audit record failed",
			zap.String("owner_id", ownerID),
			zap.String("entity_type", string(et)),
			zap.String("entity_id", id),
			zap.String("action", string(action)),
			zap.Error(err))
	}
}

func snapshot(v any) string {
	if v == nil {
		return ""
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

func requireOwner(ownerID string) error {
	if ownerID == "" {
		return fmt.Errorf("owner_id is required: %w", usercontext.ErrInvalidInput)
	}
	return nil
}
