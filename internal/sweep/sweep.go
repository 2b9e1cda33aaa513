// Package sweep periodically scans every owner's context for conflicts so
// contradictions surface without anyone asking for them.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/contextiq/internal/logging"
	"github.com/fyrsmithlabs/contextiq/internal/service"
)

const instrumentationName = "github.com/fyrsmithlabs/contextiq/internal/sweep"

// DefaultSchedule runs a sweep every hour.
const DefaultSchedule = "@every 1h"

// Config holds the sweeper's dependencies.
type Config struct {
	// Schedule is a standard 5-field cron expression or a descriptor such as
	// "@hourly" or "@every 30m".
	Schedule string
	Service  *service.Service
	Logger   *logging.Logger
	Meter    metric.Meter
	// OnReport, when set, receives every report that has conflicts.
	OnReport func(context.Context, service.ConflictReport)
}

// Result summarises one sweep.
type Result struct {
	StartedAt time.Time      `json:"started_at"`
	Duration  time.Duration  `json:"duration"`
	Owners    int            `json:"owners"`
	Conflicts int            `json:"conflicts"`
	ByOwner   map[string]int `json:"by_owner"`
	Failed    []string       `json:"failed,omitempty"`
}

// Sweeper runs DetectConflicts for every owner on a cron schedule.
type Sweeper struct {
	svc      *service.Service
	logger   *logging.Logger
	schedule cron.Schedule
	expr     string
	onReport func(context.Context, service.ConflictReport)

	runs      metric.Int64Counter
	conflicts metric.Int64Counter

	mu   sync.Mutex
	cron *cron.Cron
	last *Result
}

// New validates cfg and builds a stopped Sweeper.
func New(cfg Config) (*Sweeper, error) {
	if cfg.Service == nil {
		return nil, errors.New("sweep: context service is required")
	}
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}
	sched, err := cron.ParseStandard(cfg.Schedule)
	if err != nil {
		return nil, fmt.Errorf("sweep: parse schedule %q: %w", cfg.Schedule, err)
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}
	if cfg.Meter == nil {
		cfg.Meter = otel.Meter(instrumentationName)
	}

	s := &Sweeper{
		svc:      cfg.Service,
		logger:   cfg.Logger.Named("sweep"),
		schedule: sched,
		expr:     cfg.Schedule,
		onReport: cfg.OnReport,
	}
	s.runs, err = cfg.Meter.Int64Counter("contextiq.sweep.runs_total",
		metric.WithDescription("Conflict sweeps by result"),
		metric.WithUnit("{run}"))
	if err != nil {
		s.logger.Warn(context.Background(), "failed to create sweep runs counter", zap.Error(err))
	}
	s.conflicts, err = cfg.Meter.Int64Counter("contextiq.sweep.conflicts_total",
		metric.WithDescription("Conflicts found by sweeps"),
		metric.WithUnit("{conflict}"))
	if err != nil {
		s.logger.Warn(context.Background(), "failed to create sweep conflicts counter", zap.Error(err))
	}
	return s, nil
}

// Start schedules sweeps until Stop or ctx is done. A sweep still running
// when the next one is due causes that one to be skipped.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return
	}
	cl := cronLogger{s.logger.Underlying().Sugar()}
	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
	c.Schedule(s.schedule, cron.FuncJob(func() {
		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.Error(ctx, "conflict sweep failed", zap.Error(err))
		}
	}))
	c.Start()
	s.cron = c

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	s.logger.Info(ctx, "conflict sweep scheduled",
		zap.String("schedule", s.expr), zap.Time("next_run", s.schedule.Next(time.Now())))
}

// Stop halts scheduling and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
	s.logger.Info(context.Background(), "conflict sweep stopped")
}

// Next returns when the schedule next fires after t.
func (s *Sweeper) Next(t time.Time) time.Time { return s.schedule.Next(t) }

// Last returns the most recent result, or nil before the first sweep.
func (s *Sweeper) Last() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	r := *s.last
	return &r
}

// RunOnce sweeps every owner now. Failures for one owner are recorded in
// the result and do not stop the others; only listing owners is fatal.
func (s *Sweeper) RunOnce(ctx context.Context) (Result, error) {
	res := Result{StartedAt: time.Now().UTC(), ByOwner: make(map[string]int)}
	owners, err := s.svc.Store().ListOwners(ctx)
	if err != nil {
		s.count(ctx, s.runs, 1, "error")
		return res, fmt.Errorf("sweep: list owners: %w", err)
	}

	for _, owner := range owners {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		octx := logging.WithOwnerID(ctx, owner)
		report, err := s.svc.DetectConflicts(octx, owner)
		if err != nil {
			res.Failed = append(res.Failed, owner)
			s.logger.Warn(octx, "conflict scan failed", zap.Error(err))
			continue
		}
		res.Owners++
		if n := report.Total(); n > 0 {
			res.ByOwner[owner] = n
			res.Conflicts += n
			s.logger.Warn(octx, "conflicts detected",
				zap.Int("preference_conflicts", len(report.Preferences)),
				zap.Int("decision_conflicts", len(report.Decisions)))
			if s.onReport != nil {
				s.onReport(octx, report)
			}
		}
	}
	res.Duration = time.Since(res.StartedAt)

	result := "ok"
	if len(res.Failed) > 0 {
		result = "partial"
	}
	s.count(ctx, s.runs, 1, result)
	s.count(ctx, s.conflicts, int64(res.Conflicts), "")

	s.mu.Lock()
	s.last = &res
	s.mu.Unlock()

	s.logger.Info(ctx, "conflict sweep completed",
		zap.Int("owners", res.Owners),
		zap.Int("conflicts", res.Conflicts),
		zap.Int("failed", len(res.Failed)),
		zap.Duration("duration", res.Duration))
	return res, nil
}

func (s *Sweeper) count(ctx context.Context, c metric.Int64Counter, n int64, result string) {
	if c == nil {
		return
	}
	if result == "" {
		c.Add(ctx, n)
		return
	}
	c.Add(ctx, n, metric.WithAttributes(attribute.String("result", result)))
}

// cronLogger routes cron's own logging through zap.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
