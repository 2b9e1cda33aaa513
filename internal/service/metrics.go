package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/contextiq/internal/conflict"
	"github.com/fyrsmithlabs/contextiq/internal/extraction"
)

const instrumentationName = "github.com/fyrsmithlabs/contextiq/internal/service"

// Metrics holds the engine counters.
type Metrics struct {
	candidates  metric.Int64Counter
	validations metric.Int64Counter
	conflicts   metric.Int64Counter
	redactions  metric.Int64Counter
}

func newMetrics(meter metric.Meter, logger *zap.Logger) *Metrics {
	m := &Metrics{}
	var err error

	m.candidates, err = meter.Int64Counter(
		"contextiq.engine.candidates_extracted_total",
		metric.WithDescription("Candidates produced by the extractor"),
		metric.WithUnit("{candidate}"),
	)
	if err != nil {
		logger.Warn("failed to create candidates counter", zap.Error(err))
	}

	m.validations, err = meter.Int64Counter(
		"contextiq.engine.validations_total",
		metric.WithDescription("Action validations by verdict"),
		metric.WithUnit("{validation}"),
	)
	if err != nil {
		logger.Warn("failed to create validations counter", zap.Error(err))
	}

	m.conflicts, err = meter.Int64Counter(
		"contextiq.engine.conflicts_found_total",
		metric.WithDescription("Conflicts reported by the detector"),
		metric.WithUnit("{conflict}"),
	)
	if err != nil {
		logger.Warn("failed to create conflicts counter", zap.Error(err))
	}

	m.redactions, err = meter.Int64Counter(
		"contextiq.engine.redactions_total",
		metric.WithDescription("Secrets redacted from extracted payloads"),
		metric.WithUnit("{finding}"),
	)
	if err != nil {
		logger.Warn("failed to create redactions counter", zap.Error(err))
	}
	return m
}

func (m *Metrics) recordExtraction(ctx context.Context, r extraction.Result) {
	if m.candidates == nil {
		return
	}
	add := func(category extraction.Category, n int) {
		if n > 0 {
			m.candidates.Add(ctx, int64(n), metric.WithAttributes(attribute.String("category", string(category))))
		}
	}
	add(extraction.CategoryDecision, len(r.Decisions))
	add(extraction.CategoryGoal, len(r.Goals))
	add(extraction.CategoryPreference, len(r.Preferences))
	add(extraction.CategoryIssue, len(r.Issues))
}

func (m *Metrics) recordValidation(ctx context.Context, valid bool) {
	if m.validations == nil {
		return
	}
	verdict := "invalid"
	if valid {
		verdict = "valid"
	}
	m.validations.Add(ctx, 1, metric.WithAttributes(attribute.String("verdict", verdict)))
}

func (m *Metrics) recordConflicts(ctx context.Context, cs []conflict.Conflict) {
	if m.conflicts == nil {
		return
	}
	for _, c := range cs {
		m.conflicts.Add(ctx, 1, metric.WithAttributes(
			attribute.String("type", string(c.Type)),
			attribute.String("severity", string(c.Severity)),
		))
	}
}

func (m *Metrics) recordRedactions(ctx context.Context, n int) {
	if m.redactions == nil || n == 0 {
		return
	}
	m.redactions.Add(ctx, int64(n))
}
