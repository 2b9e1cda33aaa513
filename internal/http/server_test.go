package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/contextiq/internal/logging"
	"github.com/fyrsmithlabs/contextiq/internal/service"
	"github.com/fyrsmithlabs/contextiq/internal/store"
	"github.com/fyrsmithlabs/contextiq/internal/telemetry"
	"github.com/fyrsmithlabs/contextiq/internal/usercontext"
)

const owner = "u1"

type fixture struct {
	server *Server
	mem    *store.Memory
	logs   *logging.TestLogger
	reader *sdkmetric.ManualReader
}

func setupTestServer(t *testing.T, mutate ...func(*Config)) *fixture {
	t.Helper()
	mem := store.NewMemory()
	svc, err := service.New(service.Options{Store: store.Instrument(mem)})
	require.NoError(t, err)

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	cfg := &Config{Host: "127.0.0.1", Port: 0, Version: "test", Meter: mp.Meter(httpInstrumentationName)}
	for _, fn := range mutate {
		fn(cfg)
	}

	logs := logging.NewTestLogger()
	s, err := NewServer(svc, logs.Logger, cfg)
	require.NoError(t, err)
	return &fixture{server: s, mem: mem, logs: logs, reader: reader}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestNewServer(t *testing.T) {
	svc, err := service.New(service.Options{Store: store.NewMemory()})
	require.NoError(t, err)

	t.Run("uses defaults when config is nil", func(t *testing.T) {
		s, err := NewServer(svc, logging.Nop(), nil)
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1", s.config.Host)
		assert.Equal(t, 9191, s.config.Port)
	})

	t.Run("returns error when logger is nil", func(t *testing.T) {
		_, err := NewServer(svc, nil, nil)
		assert.ErrorContains(t, err, "logger is required")
	})

	t.Run("returns error when service is nil", func(t *testing.T) {
		_, err := NewServer(nil, logging.Nop(), nil)
		assert.ErrorContains(t, err, "context service cannot be nil")
	})
}

func TestHandleHealth(t *testing.T) {
	t.Run("ok without telemetry", func(t *testing.T) {
		f := setupTestServer(t)
		rec := f.do(t, http.MethodGet, "/health", "")
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[HealthResponse](t, rec)
		assert.Equal(t, "ok", resp.Status)
		assert.Equal(t, "test", resp.Version)
		assert.Nil(t, resp.Telemetry)
		assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	})

	t.Run("reports telemetry", func(t *testing.T) {
		tt := telemetry.NewTestTelemetry()
		f := setupTestServer(t, func(c *Config) { c.Telemetry = tt.Telemetry })
		resp := decode[HealthResponse](t, f.do(t, http.MethodGet, "/health", ""))
		require.NotNil(t, resp.Telemetry)
		assert.True(t, resp.Telemetry.Enabled)
		assert.Equal(t, "ok", resp.Status)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	f := setupTestServer(t)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/v1/owners/u1/decisions", "").Code)

	rec := f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "contextiq_store_operations_total")
}

func TestDecisionRoutes(t *testing.T) {
	f := setupTestServer(t)
	base := "/api/v1/owners/u1/decisions"

	rec := f.do(t, http.MethodPost, base, `{"decision_text":"Use Postgres","decision_category":"architecture","confidence_score":0.8}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[usercontext.Decision](t, rec)
	assert.Equal(t, owner, created.OwnerID)
	assert.Equal(t, usercontext.CategoryArchitecture, created.Category)

	rec = f.do(t, http.MethodGet, base+"/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPut, base+"/"+created.ID, `{"reason":"ACID"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[usercontext.Decision](t, rec)
	require.NotNil(t, updated.Reason)
	assert.Equal(t, "ACID", *updated.Reason)

	rec = f.do(t, http.MethodPost, base+"/"+created.ID+"/apply", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[usercontext.Decision](t, rec).AppliedCount)

	rec = f.do(t, http.MethodGet, base+"?category=architecture", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[ListResponse[usercontext.Decision]](t, rec).Count)

	rec = f.do(t, http.MethodGet, base+"?category=security", "")
	assert.Equal(t, 0, decode[ListResponse[usercontext.Decision]](t, rec).Count)

	rec = f.do(t, http.MethodPost, base+"/"+created.ID+"/archive", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, usercontext.StatusArchived, decode[usercontext.Decision](t, rec).Status)

	rec = f.do(t, http.MethodDelete, base+"/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, base+"/"+created.ID, "").Code)
}

func TestErrorMapping(t *testing.T) {
	f := setupTestServer(t)
	other := usercontext.NewDecision("u2", "Use Rust", usercontext.CategoryToolChoice, usercontext.GlobalScope())
	require.NoError(t, f.mem.CreateDecision(context.Background(), other))

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"missing item", http.MethodGet, "/api/v1/owners/u1/goals/nope", "", http.StatusNotFound},
		{"other owner", http.MethodGet, "/api/v1/owners/u1/decisions/" + other.ID, "", http.StatusNotFound},
		{"missing required field", http.MethodPost, "/api/v1/owners/u1/goals", `{"description":"x"}`, http.StatusBadRequest},
		{"out of range", http.MethodPost, "/api/v1/owners/u1/preferences",
			`{"preference_name":"a","preference_value":"b","priority":9}`, http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/api/v1/owners/u1/todos", `{"task_description":`, http.StatusBadRequest},
		{"bad date", http.MethodPost, "/api/v1/owners/u1/todos", `{"task_description":"x","due_date":"soon"}`, http.StatusBadRequest},
		{"unknown kind", http.MethodGet, "/api/v1/owners/u1/context?kinds=bogus", "", http.StatusBadRequest},
		{"unknown format", http.MethodGet, "/api/v1/owners/u1/export?format=pdf", "", http.StatusBadRequest},
		{"bad limit", http.MethodGet, "/api/v1/owners/u1/rankings/decisions?limit=-1", "", http.StatusBadRequest},
		{"status of missing todo", http.MethodPut, "/api/v1/owners/u1/todos/x/status", `{}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			resp := decode[ErrorResponse](t, rec)
			assert.NotEmpty(t, resp.Error)
			assert.NotEmpty(t, resp.RequestID)
		})
	}
}

type unavailable struct {
	*store.Memory
}

func (unavailable) ListGoals(context.Context, string) ([]*usercontext.Goal, error) {
	return nil, usercontext.ErrStoreUnavailable
}

func TestErrorMapping_StoreUnavailable(t *testing.T) {
	svc, err := service.New(service.Options{Store: unavailable{store.NewMemory()}})
	require.NoError(t, err)
	logs := logging.NewTestLogger()
	s, err := NewServer(svc, logs.Logger, &Config{})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/owners/u1/goals", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	logs.AssertLogged(t, zapcore.ErrorLevel, "request failed")
}

func TestStatusRoutes(t *testing.T) {
	f := setupTestServer(t)
	ctx := context.Background()

	g := usercontext.NewGoal(owner, "Ship v2")
	require.NoError(t, f.mem.CreateGoal(ctx, g))
	todo := usercontext.NewTodo(owner, "Write docs", usercontext.TodoGoalStep)
	require.NoError(t, f.mem.CreateTodo(ctx, todo))
	issue := usercontext.NewIssue(owner, "Flaky CI", usercontext.SeverityHigh, usercontext.ParseIssueCategory("other"))
	require.NoError(t, f.mem.CreateIssue(ctx, issue))

	goals := "/api/v1/owners/u1/goals/" + g.ID
	rec := f.do(t, http.MethodPost, goals+"/steps", `{"description":"draft","due_date":"2031-05-01"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, decode[usercontext.Goal](t, rec).Steps, 1)

	rec = f.do(t, http.MethodPut, goals+"/steps/1", `{"status":"completed"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	done := decode[usercontext.Goal](t, rec)
	assert.Equal(t, 100.0, done.CompletionPercentage())

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPut, goals+"/steps/zero", `{"status":"completed"}`).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPut, goals+"/steps/7", `{"status":"completed"}`).Code)

	rec = f.do(t, http.MethodPut, goals+"/status", `{"status":"in_progress"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, usercontext.GoalInProgress, decode[usercontext.Goal](t, rec).Status)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPut, goals+"/status", `{}`).Code)

	rec = f.do(t, http.MethodPut, "/api/v1/owners/u1/todos/"+todo.ID+"/status", `{"status":"completed"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, usercontext.TodoCompleted, decode[usercontext.Todo](t, rec).Status)

	rec = f.do(t, http.MethodPost, "/api/v1/owners/u1/issues/"+issue.ID+"/resolve", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, usercontext.ResolutionFixed, decode[usercontext.Issue](t, rec).ResolutionStatus)

	p := usercontext.NewPreference(owner, "editor", "vim", usercontext.PreferenceTool, usercontext.GlobalScope())
	require.NoError(t, f.mem.CreatePreference(ctx, p))
	rec = f.do(t, http.MethodPost, "/api/v1/owners/u1/preferences/"+p.ID+"/observe", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[usercontext.Preference](t, rec).FrequencyObserved)

	rec = f.do(t, http.MethodGet, "/api/v1/owners/u1/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[StatusResponse](t, rec)
	assert.Equal(t, map[string]int{"decisions": 0, "goals": 1, "preferences": 1, "issues": 1, "todos": 1}, status.Counts)

	rec = f.do(t, http.MethodGet, "/api/v1/owners/u1/audit?limit=50", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Positive(t, decode[ListResponse[map[string]any]](t, rec).Count)
}

func TestEngineRoutes(t *testing.T) {
	f := setupTestServer(t)
	ctx := context.Background()
	require.NoError(t, f.mem.CreateDecision(ctx,
		usercontext.NewDecision(owner, "Never use mongodb", usercontext.CategoryConstraint, usercontext.GlobalScope())))

	rec := f.do(t, http.MethodPost, "/api/v1/owners/u1/extract", `{"text":"We decided to use Postgres for the billing service."}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"decisions":[{`)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/v1/owners/u1/extract", `{"text":" "}`).Code)

	rec = f.do(t, http.MethodPost, "/api/v1/owners/u1/validate", `{"action_type":"add","target":"mongodb cache"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	v := decode[struct {
		IsValid bool `json:"is_valid"`
	}](t, rec)
	assert.False(t, v.IsValid)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/v1/owners/u1/validate", `{"target":"x"}`).Code)

	rec = f.do(t, http.MethodGet, "/api/v1/owners/u1/conflicts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, owner, decode[service.ConflictReport](t, rec).OwnerID)

	rec = f.do(t, http.MethodGet, "/api/v1/owners/u1/rankings/decisions?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"items":[],"count":0}`, strings.TrimSpace(rec.Body.String()))

	rec = f.do(t, http.MethodGet, "/api/v1/owners/u1/recommendations", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"recommendations":[]`)
}

func TestQueryAndExportRoutes(t *testing.T) {
	f := setupTestServer(t)
	require.NoError(t, f.mem.CreateGoal(context.Background(), usercontext.NewGoal(owner, "Ship v2")))

	rec := f.do(t, http.MethodGet, "/api/v1/owners/u1/context?kinds=goals,todos&limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	b := decode[usercontext.Bundle](t, rec)
	assert.Equal(t, []usercontext.Kind{usercontext.KindGoals, usercontext.KindTodos}, b.Kinds)
	assert.Len(t, b.Goals, 1)

	rec = f.do(t, http.MethodGet, "/api/v1/owners/u1/export?format=csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Ship v2")

	rec = f.do(t, http.MethodGet, "/api/v1/owners/u1/export", "")
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestRateLimiter(t *testing.T) {
	f := setupTestServer(t, func(c *Config) {
		c.RateLimit = RateLimitConfig{Enabled: true, Rate: 0.001, Burst: 2, ExpiresIn: time.Minute}
	})

	path := "/api/v1/owners/u1/goals"
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, path, "").Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, path, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, f.do(t, http.MethodGet, path, "").Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/health", "").Code, "health is not limited")
	f.logs.AssertLogged(t, zapcore.WarnLevel, "rate limit exceeded")
}

func TestRequestLog(t *testing.T) {
	f := setupTestServer(t)
	f.do(t, http.MethodGet, "/api/v1/owners/u1/goals/missing", "")

	f.logs.AssertLogged(t, zapcore.InfoLevel, "http request")
	entries := f.logs.FilterMessage("http request").All()
	require.NotEmpty(t, entries)
	fields := entries[len(entries)-1].ContextMap()
	assert.EqualValues(t, http.StatusNotFound, fields["status"])
	assert.NotEmpty(t, fields["request.id"])
	assert.Equal(t, owner, fields["owner.id"])
}
