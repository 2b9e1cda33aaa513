package sweep

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/contextiq/internal/logging"
	"github.com/fyrsmithlabs/contextiq/internal/service"
	"github.com/fyrsmithlabs/contextiq/internal/store"
	"github.com/fyrsmithlabs/contextiq/internal/telemetry"
	"github.com/fyrsmithlabs/contextiq/internal/usercontext"
)

func seed(t *testing.T, mem *store.Memory) {
	t.Helper()
	ctx := context.Background()
	a := usercontext.NewPreference("u1", "database", "always use postgres", usercontext.PreferenceOther, usercontext.GlobalScope())
	b := usercontext.NewPreference("u1", "database", "never use postgres", usercontext.PreferenceOther, usercontext.GlobalScope())
	require.NoError(t, mem.CreatePreference(ctx, a))
	require.NoError(t, mem.CreatePreference(ctx, b))
	require.NoError(t, mem.CreateGoal(ctx, usercontext.NewGoal("u2", "Ship v2")))
}

func newService(t *testing.T, s store.Store) *service.Service {
	t.Helper()
	svc, err := service.New(service.Options{Store: s})
	require.NoError(t, err)
	return svc
}

func TestNew(t *testing.T) {
	svc := newService(t, store.NewMemory())

	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{Service: svc, Schedule: "every tuesday"})
	assert.ErrorContains(t, err, "parse schedule")

	s, err := New(Config{Service: svc})
	require.NoError(t, err)
	from := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, from.Add(time.Hour), s.Next(from))

	s, err = New(Config{Service: svc, Schedule: "30 2 * * *"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 1, 2, 30, 0, 0, time.Local), s.Next(time.Date(2026, 1, 1, 0, 0, 0, 0, time.Local)))
}

func TestRunOnce(t *testing.T) {
	mem := store.NewMemory()
	seed(t, mem)
	logs := logging.NewTestLogger()
	tel := telemetry.NewTestTelemetry()

	var (
		mu      sync.Mutex
		reports []service.ConflictReport
	)
	s, err := New(Config{
		Service: newService(t, mem),
		Logger:  logs.Logger,
		Meter:   tel.Meter(instrumentationName),
		OnReport: func(_ context.Context, r service.ConflictReport) {
			mu.Lock()
			defer mu.Unlock()
			reports = append(reports, r)
		},
	})
	require.NoError(t, err)
	assert.Nil(t, s.Last())

	res, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Owners)
	assert.Equal(t, 1, res.Conflicts)
	assert.Equal(t, map[string]int{"u1": 1}, res.ByOwner)
	assert.Empty(t, res.Failed)

	require.Len(t, reports, 1)
	assert.Equal(t, "u1", reports[0].OwnerID)

	require.NotNil(t, s.Last())
	assert.Equal(t, 1, s.Last().Conflicts)

	logs.AssertLogged(t, zapcore.WarnLevel, "conflicts detected")
	logs.AssertField(t, "conflicts detected", "owner.id", "u1")
	logs.AssertLogged(t, zapcore.InfoLevel, "conflict sweep completed")

	assert.Equal(t, int64(1), tel.Counter(t, "contextiq.sweep.runs_total"))
	assert.Equal(t, int64(1), tel.Counter(t, "contextiq.sweep.conflicts_total"))
}

type failingPreferences struct {
	*store.Memory
}

func (f failingPreferences) ListPreferences(ctx context.Context, owner string) ([]*usercontext.Preference, error) {
	if owner == "u1" {
		return nil, usercontext.ErrStoreUnavailable
	}
	return f.Memory.ListPreferences(ctx, owner)
}

func TestRunOnce_OwnerFailureIsPartial(t *testing.T) {
	mem := store.NewMemory()
	seed(t, mem)
	s, err := New(Config{Service: newService(t, failingPreferences{mem})})
	require.NoError(t, err)

	res, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, res.Failed)
	assert.Equal(t, 1, res.Owners)
}

func TestRunOnce_CanceledContext(t *testing.T) {
	mem := store.NewMemory()
	seed(t, mem)
	s, err := New(Config{Service: newService(t, mem)})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.RunOnce(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStartStop(t *testing.T) {
	mem := store.NewMemory()
	seed(t, mem)
	s, err := New(Config{Service: newService(t, mem), Schedule: "@every 1s"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	s.Start(ctx) // already running

	require.Eventually(t, func() bool { return s.Last() != nil }, 5*time.Second, 20*time.Millisecond)
	s.Stop()
	s.Stop()
	assert.Equal(t, 1, s.Last().Conflicts)
}
