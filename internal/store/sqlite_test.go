package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/contextiq/internal/usercontext"
)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(SQLiteConfig{Path: filepath.Join(t.TempDir(), "context.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNewSQLite_RequiresPath(t *testing.T) {
	_, err := NewSQLite(SQLiteConfig{})
	assert.ErrorIs(t, err, usercontext.ErrInvalidInput)
}

func TestNewSQLite_OpenFailure(t *testing.T) {
	orig := openDB
	t.Cleanup(func() { openDB = orig })
	openDB = func(string, string) (*sql.DB, error) { return nil, errors.New("disk on fire") }

	_, err := NewSQLite(SQLiteConfig{Path: filepath.Join(t.TempDir(), "x.db")})
	require.Error(t, err)
	assert.ErrorIs(t, err, usercontext.ErrStoreUnavailable)
	assert.Contains(t, err.Error(), "disk on fire")
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "context.db")

	s, err := NewSQLite(SQLiteConfig{Path: path})
	require.NoError(t, err)
	d := usercontext.NewDecision("u1", "Use WAL mode", usercontext.CategoryPerformance, usercontext.GlobalScope())
	require.NoError(t, s.CreateDecision(ctx, d))
	require.NoError(t, s.IncrementAppliedCount(ctx, d.ID))
	require.NoError(t, s.Close())

	reopened, err := NewSQLite(SQLiteConfig{Path: path})
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	got, err := reopened.GetDecision(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.AppliedCount)
	assert.Equal(t, usercontext.CategoryPerformance, got.Category)
	assert.NoError(t, reopened.Ping(ctx))
}

func TestSQLite_ClosedStoreIsUnavailable(t *testing.T) {
	s, err := NewSQLite(SQLiteConfig{Path: filepath.Join(t.TempDir(), "context.db")})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.ListDecisions(context.Background(), "u1")
	assert.ErrorIs(t, err, usercontext.ErrStoreUnavailable)
}

func TestSQLite_UnknownEnumValuesFallBack(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)
	d := usercontext.NewDecision("u1", "legacy row", usercontext.CategoryOther, usercontext.GlobalScope())
	require.NoError(t, s.CreateDecision(ctx, d))

	_, err := s.db.ExecContext(ctx,
		`UPDATE user_decisions SET decision_category = 'vibes', scope = 'galaxy' WHERE id = ?`, d.ID)
	require.NoError(t, err)

	got, err := s.GetDecision(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, usercontext.CategoryOther, got.Category)
	assert.Equal(t, usercontext.ScopeGlobal, got.Scope.Kind())
}
