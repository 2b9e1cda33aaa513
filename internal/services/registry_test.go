package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/contextiq/internal/config"
	"github.com/fyrsmithlabs/contextiq/internal/extraction"
	"github.com/fyrsmithlabs/contextiq/internal/store"
	"github.com/fyrsmithlabs/contextiq/internal/usercontext"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Store.Path = filepath.Join(t.TempDir(), "context.db")
	cfg.Secrets.Gitleaks = false
	return cfg
}

func TestBuild_RequiresConfig(t *testing.T) {
	_, err := Build(Options{})
	require.Error(t, err)
}

func TestBuild_SQLite(t *testing.T) {
	cfg := testConfig(t)
	reg, err := Build(Options{Config: cfg})
	require.NoError(t, err)

	assert.NotNil(t, reg.Service())
	assert.NotNil(t, reg.Extractor())
	assert.True(t, reg.Scrubber().IsEnabled())
	assert.IsType(t, &store.Instrumented{}, reg.Store())

	ctx := context.Background()
	d := usercontext.NewDecision("alice", "use postgres", usercontext.CategoryArchitecture, usercontext.GlobalScope())
	require.NoError(t, reg.Service().CreateDecision(ctx, d))
	require.NoError(t, reg.Close())

	_, err = os.Stat(cfg.Store.Path)
	require.NoError(t, err, "database file is created")

	reopened, err := Build(Options{Config: cfg})
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	got, err := reopened.Service().GetDecision(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "use postgres", got.Text)

	trail, err := reopened.Service().AuditTrail(ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, usercontext.AuditCreate, trail[0].Action)
}

func TestBuild_ProvidedStoreIsNotClosed(t *testing.T) {
	mem := store.NewMemory()
	reg, err := Build(Options{Config: testConfig(t), Store: mem})
	require.NoError(t, err)
	require.NoError(t, reg.Close())

	ctx := context.Background()
	d := usercontext.NewDecision("alice", "use postgres", usercontext.CategoryArchitecture, usercontext.GlobalScope())
	require.NoError(t, mem.CreateDecision(ctx, d))
}

func TestBuild_PatternsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "patterns.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[[pattern]]
name = "adr_accepted"
category = "decision"
expr = '(?i)\bADR accepted:\s*([^.\n]+)'
weight = 0.95
`), 0o600))

	cfg := testConfig(t)
	cfg.Extraction.PatternsFile = path
	reg, err := Build(Options{Config: cfg, Store: store.NewMemory()})
	require.NoError(t, err)
	defer func() { _ = reg.Close() }()

	res := reg.Extractor().Extract("ADR accepted: event sourcing for billing.")
	require.Len(t, res.Decisions, 1)
	assert.Equal(t, "adr_accepted", res.Decisions[0].Pattern)
	assert.Empty(t, res.Goals)
}

func TestBuild_BadPatternsFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Extraction.PatternsFile = filepath.Join(t.TempDir(), "missing.toml")
	_, err := Build(Options{Config: cfg})
	require.ErrorIs(t, err, extraction.ErrInvalidLibrary)
}

func TestBuild_NATSAudit(t *testing.T) {
	srv, err := natsserver.NewServer(&natsserver.Options{
		Host:          "127.0.0.1",
		Port:          -1,
		NoLog:         true,
		NoSigs:        true,
		Authorization: "s3cret",
	})
	require.NoError(t, err)
	go srv.Start()
	require.True(t, srv.ReadyForConnections(5*time.Second))
	t.Cleanup(srv.Shutdown)

	nc, err := nats.Connect(srv.ClientURL(), nats.Token("s3cret"))
	require.NoError(t, err)
	defer nc.Close()
	sub, err := nc.SubscribeSync("ciq.audit.>")
	require.NoError(t, err)
	require.NoError(t, nc.Flush())

	cfg := testConfig(t)
	cfg.Audit.NATSURL = srv.ClientURL()
	cfg.Audit.Subject = "ciq.audit"
	cfg.Audit.NATSToken = config.Secret("s3cret")

	reg, err := Build(Options{Config: cfg, Store: store.NewMemory()})
	require.NoError(t, err)
	defer func() { _ = reg.Close() }()

	d := usercontext.NewDecision("alice", "use postgres", usercontext.CategoryArchitecture, usercontext.GlobalScope())
	require.NoError(t, reg.Service().CreateDecision(context.Background(), d))

	msg, err := sub.NextMsg(5 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "ciq.audit.alice.user_decision.create", msg.Subject)
}
