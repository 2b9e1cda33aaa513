package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/fyrsmithlabs/contextiq/internal/usercontext"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// timeLayout is fixed width so text columns sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteConfig configures the SQLite store.
type SQLiteConfig struct {
	// Path of the database file. ":memory:" keeps everything in process.
	Path string
}

// SQLite is a Store backed by a single SQLite database file.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*SQLite)(nil)

// NewSQLite opens (creating if needed) the database at cfg.Path, applies
// the connection pragmas and migrates the schema.
func NewSQLite(cfg SQLiteConfig) (*SQLite, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: store: sqlite path is required", usercontext.ErrInvalidInput)
	}
	if cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o700); err != nil {
			return nil, unavailable("create data dir", err)
		}
	}

	db, err := openDB("sqlite", cfg.Path)
	if err != nil {
		return nil, unavailable("open database", err)
	}
	// one connection keeps pragmas in force and serializes writers
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, unavailable(fmt.Sprintf("pragma %q", p), err)
		}
	}

	s := &SQLite{db: db, now: func() time.Time { return stamp(time.Now()) }}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, unavailable("migration", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *SQLite) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func (s *SQLite) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS user_decisions (
			id                 TEXT PRIMARY KEY,
			owner_id           TEXT    NOT NULL,
			decision_text      TEXT    NOT NULL,
			reason             TEXT,
			decision_category  TEXT    NOT NULL,
			scope              TEXT    NOT NULL DEFAULT 'global',
			related_project_id TEXT,
			confidence_score   REAL    NOT NULL DEFAULT 0.5,
			referenced_items   TEXT    NOT NULL DEFAULT '[]',
			applied_count      INTEGER NOT NULL DEFAULT 0,
			last_applied       TEXT,
			status             TEXT    NOT NULL DEFAULT 'active',
			created_at         TEXT    NOT NULL,
			updated_at         TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_decisions_owner ON user_decisions(owner_id, created_at);

		CREATE TABLE IF NOT EXISTS user_goals (
			id                     TEXT PRIMARY KEY,
			owner_id               TEXT    NOT NULL,
			goal_text              TEXT    NOT NULL,
			description            TEXT,
			project_id             TEXT,
			status                 TEXT    NOT NULL DEFAULT 'planned',
			priority               INTEGER NOT NULL DEFAULT 3,
			steps                  TEXT    NOT NULL DEFAULT '[]',
			completion_target_date TEXT,
			completion_date        TEXT,
			blockers               TEXT    NOT NULL DEFAULT '[]',
			related_todos          TEXT    NOT NULL DEFAULT '[]',
			created_at             TEXT    NOT NULL,
			updated_at             TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_goals_owner ON user_goals(owner_id, status);

		CREATE TABLE IF NOT EXISTS user_preferences (
			id                    TEXT PRIMARY KEY,
			owner_id              TEXT    NOT NULL,
			preference_name       TEXT    NOT NULL,
			preference_value      TEXT    NOT NULL,
			preference_type       TEXT    NOT NULL,
			scope                 TEXT    NOT NULL DEFAULT 'global',
			applies_to_automation INTEGER NOT NULL DEFAULT 1,
			rationale             TEXT,
			priority              INTEGER NOT NULL DEFAULT 3,
			frequency_observed    INTEGER NOT NULL DEFAULT 1,
			tags                  TEXT    NOT NULL DEFAULT '[]',
			last_referenced       TEXT,
			created_at            TEXT    NOT NULL,
			updated_at            TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_preferences_owner ON user_preferences(owner_id, priority);

		CREATE TABLE IF NOT EXISTS known_issues (
			id                  TEXT PRIMARY KEY,
			owner_id            TEXT NOT NULL,
			issue_description   TEXT NOT NULL,
			symptoms            TEXT NOT NULL DEFAULT '[]',
			root_cause          TEXT,
			workaround          TEXT,
			permanent_solution  TEXT,
			affected_components TEXT NOT NULL DEFAULT '[]',
			severity            TEXT NOT NULL DEFAULT 'medium',
			issue_category      TEXT NOT NULL,
			resolution_status   TEXT NOT NULL DEFAULT 'unresolved',
			resolution_date     TEXT,
			prevention_notes    TEXT,
			project_contexts    TEXT NOT NULL DEFAULT '[]',
			learned_date        TEXT NOT NULL,
			updated_at          TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_issues_owner ON known_issues(owner_id, learned_date);

		CREATE TABLE IF NOT EXISTS contextual_todos (
			id                             TEXT PRIMARY KEY,
			owner_id                       TEXT    NOT NULL,
			task_description               TEXT    NOT NULL,
			context_type                   TEXT    NOT NULL,
			related_entity_id              TEXT,
			related_entity_type            TEXT,
			project_id                     TEXT,
			assigned_to                    TEXT,
			due_date                       TEXT,
			status                         TEXT    NOT NULL DEFAULT 'pending',
			priority                       INTEGER NOT NULL DEFAULT 3,
			created_from_conversation_date TEXT,
			created_at                     TEXT    NOT NULL,
			updated_at                     TEXT,
			completion_date                TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_todos_owner ON contextual_todos(owner_id, priority);
		CREATE INDEX IF NOT EXISTS idx_todos_entity ON contextual_todos(related_entity_id);

		CREATE TABLE IF NOT EXISTS user_context_audit (
			id          TEXT PRIMARY KEY,
			owner_id    TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			entity_id   TEXT NOT NULL,
			action      TEXT NOT NULL,
			old_value   TEXT,
			new_value   TEXT,
			changed_by  TEXT NOT NULL,
			changed_at  TEXT NOT NULL,
			reason      TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_audit_owner ON user_context_audit(owner_id, changed_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

type scanner interface {
	Scan(dest ...any) error
}

func unavailable(op string, err error) error {
	return fmt.Errorf("store: %s: %w: %w", op, usercontext.ErrStoreUnavailable, err)
}

// insertErr maps primary key collisions to the same error the memory store
// returns.
func insertErr(op, kind, id string, err error) error {
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return duplicate(kind, id)
	}
	return unavailable(op, err)
}

func fmtTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func fmtTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return fmtTime(*t)
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func toJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// rowDecoder collects the first decoding error across a row's columns.
type rowDecoder struct{ err error }

func (r *rowDecoder) time(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("parse time %q: %w", s, err)
	}
	return t.UTC()
}

func (r *rowDecoder) timePtr(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := r.time(ns.String)
	return &t
}

func (r *rowDecoder) json(s string, v any) {
	if err := json.Unmarshal([]byte(s), v); err != nil && r.err == nil {
		r.err = fmt.Errorf("decode json column: %w", err)
	}
}

func (r *rowDecoder) strings(s string) []string {
	out := []string{}
	r.json(s, &out)
	if out == nil {
		out = []string{}
	}
	return out
}

func str(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func queryAll[T any](ctx context.Context, db *sql.DB, op string, scan func(scanner) (*T, error), query string, args ...any) ([]*T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable(op, err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]*T, 0)
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, unavailable(op, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(op, err)
	}
	return out, nil
}

func queryOne[T any](ctx context.Context, db *sql.DB, op, kind, id string, scan func(scanner) (*T, error), query string) (*T, error) {
	v, err := scan(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(kind, id)
	}
	if err != nil {
		return nil, unavailable(op, err)
	}
	return v, nil
}

// execOne runs a single-row mutation and reports ErrNotFound when no row
// matched.
func (s *SQLite) execOne(ctx context.Context, op, kind, id, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return unavailable(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable(op, err)
	}
	if n == 0 {
		return notFound(kind, id)
	}
	return nil
}

// ─── Decisions ───────────────────────────────────────────────────────────────

const decisionColumns = `id, owner_id, decision_text, reason, decision_category, scope,
	related_project_id, confidence_score, referenced_items, applied_count,
	last_applied, status, created_at, updated_at`

const decisionOrder = ` ORDER BY created_at DESC, id ASC`

func scanDecision(sc scanner) (*usercontext.Decision, error) {
	var (
		d                                       usercontext.Decision
		reason, project, lastApplied, updatedAt sql.NullString
		category, scope, refs, status, created  string
	)
	if err := sc.Scan(&d.ID, &d.OwnerID, &d.Text, &reason, &category, &scope,
		&project, &d.Confidence, &refs, &d.AppliedCount,
		&lastApplied, &status, &created, &updatedAt); err != nil {
		return nil, err
	}
	var r rowDecoder
	d.Reason = str(reason)
	d.Category = usercontext.ParseDecisionCategory(category)
	d.Scope = usercontext.ParseScope(scope)
	d.RelatedProjectID = str(project)
	d.ReferencedItems = r.strings(refs)
	d.LastApplied = r.timePtr(lastApplied)
	d.Status = usercontext.ParseEntityStatus(status)
	d.CreatedAt = r.time(created)
	d.UpdatedAt = r.timePtr(updatedAt)
	return &d, r.err
}

func (s *SQLite) CreateDecision(ctx context.Context, d *usercontext.Decision) error {
	if err := prepareDecision(d); err != nil {
		return err
	}
	refs, err := toJSON(d.ReferencedItems)
	if err != nil {
		return fmt.Errorf("%w: referenced_items: %v", usercontext.ErrInvalidInput, err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO user_decisions (`+decisionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.OwnerID, d.Text, nullable(d.Reason), string(d.Category), d.Scope.String(),
		nullable(d.RelatedProjectID), d.Confidence, refs, d.AppliedCount,
		fmtTimePtr(d.LastApplied), string(d.Status), fmtTime(d.CreatedAt), fmtTimePtr(d.UpdatedAt))
	if err != nil {
		return insertErr("create decision", "decision", d.ID, err)
	}
	return nil
}

func (s *SQLite) GetDecision(ctx context.Context, id string) (*usercontext.Decision, error) {
	return queryOne(ctx, s.db, "get decision", "decision", id, scanDecision,
		`SELECT `+decisionColumns+` FROM user_decisions WHERE id = ?`)
}

func (s *SQLite) ListDecisions(ctx context.Context, ownerID string) ([]*usercontext.Decision, error) {
	return queryAll(ctx, s.db, "list decisions", scanDecision,
		`SELECT `+decisionColumns+` FROM user_decisions WHERE owner_id = ?`+decisionOrder, ownerID)
}

func (s *SQLite) ListDecisionsByScope(ctx context.Context, ownerID string, scope usercontext.Scope) ([]*usercontext.Decision, error) {
	return queryAll(ctx, s.db, "list decisions by scope", scanDecision,
		`SELECT `+decisionColumns+` FROM user_decisions WHERE owner_id = ? AND scope = ?`+decisionOrder,
		ownerID, scope.String())
}

func (s *SQLite) ListDecisionsByCategory(ctx context.Context, ownerID string, category usercontext.DecisionCategory) ([]*usercontext.Decision, error) {
	return queryAll(ctx, s.db, "list decisions by category", scanDecision,
		`SELECT `+decisionColumns+` FROM user_decisions WHERE owner_id = ? AND decision_category = ?`+decisionOrder,
		ownerID, string(category))
}

func (s *SQLite) UpdateDecision(ctx context.Context, d *usercontext.Decision) error {
	if err := checkDecision(d); err != nil {
		return err
	}
	refs, err := toJSON(d.ReferencedItems)
	if err != nil {
		return fmt.Errorf("%w: referenced_items: %v", usercontext.ErrInvalidInput, err)
	}
	now := s.now()
	if err := s.execOne(ctx, "update decision", "decision", d.ID, `UPDATE user_decisions SET
			owner_id = ?, decision_text = ?, reason = ?, decision_category = ?, scope = ?,
			related_project_id = ?, confidence_score = ?, referenced_items = ?, status = ?,
			updated_at = ?
		WHERE id = ?`,
		d.OwnerID, d.Text, nullable(d.Reason), string(d.Category), d.Scope.String(),
		nullable(d.RelatedProjectID), d.Confidence, refs, string(d.Status),
		fmtTime(now), d.ID); err != nil {
		return err
	}
	d.UpdatedAt = &now
	return nil
}

func (s *SQLite) DeleteDecision(ctx context.Context, id string) error {
	return s.execOne(ctx, "delete decision", "decision", id,
		`DELETE FROM user_decisions WHERE id = ?`, id)
}

func (s *SQLite) IncrementAppliedCount(ctx context.Context, id string) error {
	now := fmtTime(s.now())
	return s.execOne(ctx, "increment applied count", "decision", id,
		`UPDATE user_decisions SET applied_count = applied_count + 1, last_applied = ?, updated_at = ?
		WHERE id = ?`, now, now, id)
}

func (s *SQLite) ArchiveDecision(ctx context.Context, id string) error {
	return s.execOne(ctx, "archive decision", "decision", id,
		`UPDATE user_decisions SET status = ?, updated_at = ? WHERE id = ?`,
		string(usercontext.StatusArchived), fmtTime(s.now()), id)
}

// ─── Goals ───────────────────────────────────────────────────────────────────

const goalColumns = `id, owner_id, goal_text, description, project_id, status, priority,
	steps, completion_target_date, completion_date, blockers, related_todos,
	created_at, updated_at`

const goalOrder = ` ORDER BY priority ASC, created_at DESC, id ASC`

func scanGoal(sc scanner) (*usercontext.Goal, error) {
	var (
		g                                            usercontext.Goal
		desc, project, target, completion, updatedAt sql.NullString
		status, steps, blockers, related, created    string
	)
	if err := sc.Scan(&g.ID, &g.OwnerID, &g.Text, &desc, &project, &status, &g.Priority,
		&steps, &target, &completion, &blockers, &related,
		&created, &updatedAt); err != nil {
		return nil, err
	}
	var r rowDecoder
	g.Description = str(desc)
	g.ProjectID = str(project)
	g.Status = usercontext.ParseGoalStatus(status)
	r.json(steps, &g.Steps)
	g.TargetDate = r.timePtr(target)
	g.CompletionDate = r.timePtr(completion)
	g.Blockers = r.strings(blockers)
	g.RelatedTodos = r.strings(related)
	g.CreatedAt = r.time(created)
	g.UpdatedAt = r.timePtr(updatedAt)
	g.Normalize()
	return &g, r.err
}

func goalJSON(g *usercontext.Goal) (steps, blockers, related string, err error) {
	if steps, err = toJSON(g.Steps); err != nil {
		return
	}
	if blockers, err = toJSON(g.Blockers); err != nil {
		return
	}
	related, err = toJSON(g.RelatedTodos)
	return
}

func (s *SQLite) CreateGoal(ctx context.Context, g *usercontext.Goal) error {
	if err := prepareGoal(g); err != nil {
		return err
	}
	steps, blockers, related, err := goalJSON(g)
	if err != nil {
		return fmt.Errorf("%w: goal: %v", usercontext.ErrInvalidInput, err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO user_goals (`+goalColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.OwnerID, g.Text, nullable(g.Description), nullable(g.ProjectID), string(g.Status), g.Priority,
		steps, fmtTimePtr(g.TargetDate), fmtTimePtr(g.CompletionDate), blockers, related,
		fmtTime(g.CreatedAt), fmtTimePtr(g.UpdatedAt))
	if err != nil {
		return insertErr("create goal", "goal", g.ID, err)
	}
	return nil
}

func (s *SQLite) GetGoal(ctx context.Context, id string) (*usercontext.Goal, error) {
	return queryOne(ctx, s.db, "get goal", "goal", id, scanGoal,
		`SELECT `+goalColumns+` FROM user_goals WHERE id = ?`)
}

func (s *SQLite) ListGoals(ctx context.Context, ownerID string) ([]*usercontext.Goal, error) {
	return queryAll(ctx, s.db, "list goals", scanGoal,
		`SELECT `+goalColumns+` FROM user_goals WHERE owner_id = ?`+goalOrder, ownerID)
}

func (s *SQLite) ListGoalsByStatus(ctx context.Context, ownerID string, status usercontext.GoalStatus) ([]*usercontext.Goal, error) {
	return queryAll(ctx, s.db, "list goals by status", scanGoal,
		`SELECT `+goalColumns+` FROM user_goals WHERE owner_id = ? AND status = ?`+goalOrder,
		ownerID, string(status))
}

func (s *SQLite) ListGoalsByProject(ctx context.Context, ownerID, projectID string) ([]*usercontext.Goal, error) {
	return queryAll(ctx, s.db, "list goals by project", scanGoal,
		`SELECT `+goalColumns+` FROM user_goals WHERE owner_id = ? AND project_id = ?`+goalOrder,
		ownerID, projectID)
}

func (s *SQLite) UpdateGoal(ctx context.Context, g *usercontext.Goal) error {
	if err := checkGoal(g); err != nil {
		return err
	}
	steps, blockers, related, err := goalJSON(g)
	if err != nil {
		return fmt.Errorf("%w: goal: %v", usercontext.ErrInvalidInput, err)
	}
	now := s.now()
	if err := s.execOne(ctx, "update goal", "goal", g.ID, `UPDATE user_goals SET
			owner_id = ?, goal_text = ?, description = ?, project_id = ?, status = ?, priority = ?,
			steps = ?, completion_target_date = ?, completion_date = ?, blockers = ?,
			related_todos = ?, updated_at = ?
		WHERE id = ?`,
		g.OwnerID, g.Text, nullable(g.Description), nullable(g.ProjectID), string(g.Status), g.Priority,
		steps, fmtTimePtr(g.TargetDate), fmtTimePtr(g.CompletionDate), blockers,
		related, fmtTime(now), g.ID); err != nil {
		return err
	}
	g.UpdatedAt = &now
	return nil
}

func (s *SQLite) DeleteGoal(ctx context.Context, id string) error {
	return s.execOne(ctx, "delete goal", "goal", id, `DELETE FROM user_goals WHERE id = ?`, id)
}

func (s *SQLite) UpdateGoalStatus(ctx context.Context, id string, status usercontext.GoalStatus) error {
	now := fmtTime(s.now())
	var completion any
	if status == usercontext.GoalCompleted {
		completion = now
	}
	return s.execOne(ctx, "update goal status", "goal", id,
		`UPDATE user_goals SET status = ?, completion_date = COALESCE(?, completion_date), updated_at = ?
		WHERE id = ?`, string(status), completion, now, id)
}

// ─── Preferences ─────────────────────────────────────────────────────────────

const preferenceColumns = `id, owner_id, preference_name, preference_value, preference_type,
	scope, applies_to_automation, rationale, priority, frequency_observed, tags,
	last_referenced, created_at, updated_at`

const preferenceOrder = ` ORDER BY priority ASC, created_at DESC, id ASC`

func scanPreference(sc scanner) (*usercontext.Preference, error) {
	var (
		p                              usercontext.Preference
		rationale, lastRef, updatedAt  sql.NullString
		prefType, scope, tags, created string
	)
	if err := sc.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Value, &prefType,
		&scope, &p.AppliesToAutomation, &rationale, &p.Priority, &p.FrequencyObserved, &tags,
		&lastRef, &created, &updatedAt); err != nil {
		return nil, err
	}
	var r rowDecoder
	p.Type = usercontext.ParsePreferenceType(prefType)
	p.Scope = usercontext.ParseScope(scope)
	p.Rationale = str(rationale)
	p.Tags = r.strings(tags)
	p.LastReferenced = r.timePtr(lastRef)
	p.CreatedAt = r.time(created)
	p.UpdatedAt = r.timePtr(updatedAt)
	return &p, r.err
}

func (s *SQLite) CreatePreference(ctx context.Context, p *usercontext.Preference) error {
	if err := preparePreference(p); err != nil {
		return err
	}
	tags, err := toJSON(p.Tags)
	if err != nil {
		return fmt.Errorf("%w: tags: %v", usercontext.ErrInvalidInput, err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO user_preferences (`+preferenceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.OwnerID, p.Name, p.Value, string(p.Type),
		p.Scope.String(), p.AppliesToAutomation, nullable(p.Rationale), p.Priority, p.FrequencyObserved, tags,
		fmtTimePtr(p.LastReferenced), fmtTime(p.CreatedAt), fmtTimePtr(p.UpdatedAt))
	if err != nil {
		return insertErr("create preference", "preference", p.ID, err)
	}
	return nil
}

func (s *SQLite) GetPreference(ctx context.Context, id string) (*usercontext.Preference, error) {
	return queryOne(ctx, s.db, "get preference", "preference", id, scanPreference,
		`SELECT `+preferenceColumns+` FROM user_preferences WHERE id = ?`)
}

func (s *SQLite) ListPreferences(ctx context.Context, ownerID string) ([]*usercontext.Preference, error) {
	return queryAll(ctx, s.db, "list preferences", scanPreference,
		`SELECT `+preferenceColumns+` FROM user_preferences WHERE owner_id = ?`+preferenceOrder, ownerID)
}

func (s *SQLite) ListPreferencesByScope(ctx context.Context, ownerID string, scope usercontext.Scope) ([]*usercontext.Preference, error) {
	return queryAll(ctx, s.db, "list preferences by scope", scanPreference,
		`SELECT `+preferenceColumns+` FROM user_preferences WHERE owner_id = ? AND scope = ?`+preferenceOrder,
		ownerID, scope.String())
}

func (s *SQLite) ListPreferencesByType(ctx context.Context, ownerID string, t usercontext.PreferenceType) ([]*usercontext.Preference, error) {
	return queryAll(ctx, s.db, "list preferences by type", scanPreference,
		`SELECT `+preferenceColumns+` FROM user_preferences WHERE owner_id = ? AND preference_type = ?`+preferenceOrder,
		ownerID, string(t))
}

func (s *SQLite) ListAutomationPreferences(ctx context.Context, ownerID string) ([]*usercontext.Preference, error) {
	return queryAll(ctx, s.db, "list automation preferences", scanPreference,
		`SELECT `+preferenceColumns+` FROM user_preferences
		WHERE owner_id = ? AND applies_to_automation = 1
		ORDER BY frequency_observed DESC, priority ASC, created_at DESC, id ASC`, ownerID)
}

func (s *SQLite) UpdatePreference(ctx context.Context, p *usercontext.Preference) error {
	if err := checkPreference(p); err != nil {
		return err
	}
	tags, err := toJSON(p.Tags)
	if err != nil {
		return fmt.Errorf("%w: tags: %v", usercontext.ErrInvalidInput, err)
	}
	now := s.now()
	if err := s.execOne(ctx, "update preference", "preference", p.ID, `UPDATE user_preferences SET
			owner_id = ?, preference_name = ?, preference_value = ?, preference_type = ?, scope = ?,
			applies_to_automation = ?, rationale = ?, priority = ?, tags = ?, updated_at = ?
		WHERE id = ?`,
		p.OwnerID, p.Name, p.Value, string(p.Type), p.Scope.String(),
		p.AppliesToAutomation, nullable(p.Rationale), p.Priority, tags, fmtTime(now), p.ID); err != nil {
		return err
	}
	p.UpdatedAt = &now
	return nil
}

func (s *SQLite) DeletePreference(ctx context.Context, id string) error {
	return s.execOne(ctx, "delete preference", "preference", id,
		`DELETE FROM user_preferences WHERE id = ?`, id)
}

func (s *SQLite) IncrementFrequency(ctx context.Context, id string) error {
	now := fmtTime(s.now())
	return s.execOne(ctx, "increment frequency", "preference", id,
		`UPDATE user_preferences SET frequency_observed = frequency_observed + 1, last_referenced = ?, updated_at = ?
		WHERE id = ?`, now, now, id)
}

// ─── Issues ──────────────────────────────────────────────────────────────────

const issueColumns = `id, owner_id, issue_description, symptoms, root_cause, workaround,
	permanent_solution, affected_components, severity, issue_category,
	resolution_status, resolution_date, prevention_notes, project_contexts,
	learned_date, updated_at`

const issueOrder = ` ORDER BY learned_date DESC, id ASC`

const severityRank = `CASE severity WHEN 'critical' THEN 0 WHEN 'high' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END`

func scanIssue(sc scanner) (*usercontext.Issue, error) {
	var (
		i                                                      usercontext.Issue
		rootCause, workaround, permanent, resolved, prevention sql.NullString
		updatedAt                                              sql.NullString
		symptoms, components, severity, category               string
		status, projects, learned                              string
	)
	if err := sc.Scan(&i.ID, &i.OwnerID, &i.Description, &symptoms, &rootCause, &workaround,
		&permanent, &components, &severity, &category,
		&status, &resolved, &prevention, &projects,
		&learned, &updatedAt); err != nil {
		return nil, err
	}
	var r rowDecoder
	i.Symptoms = r.strings(symptoms)
	i.RootCause = str(rootCause)
	i.Workaround = str(workaround)
	i.PermanentSolution = str(permanent)
	i.AffectedComponents = r.strings(components)
	i.Severity = usercontext.ParseSeverity(severity)
	i.Category = usercontext.ParseIssueCategory(category)
	i.ResolutionStatus = usercontext.ParseResolutionStatus(status)
	i.ResolutionDate = r.timePtr(resolved)
	i.PreventionNotes = str(prevention)
	i.ProjectContexts = r.strings(projects)
	i.LearnedDate = r.time(learned)
	i.UpdatedAt = r.timePtr(updatedAt)
	return &i, r.err
}

func issueJSON(i *usercontext.Issue) (symptoms, components, projects string, err error) {
	if symptoms, err = toJSON(i.Symptoms); err != nil {
		return
	}
	if components, err = toJSON(i.AffectedComponents); err != nil {
		return
	}
	projects, err = toJSON(i.ProjectContexts)
	return
}

func (s *SQLite) CreateIssue(ctx context.Context, i *usercontext.Issue) error {
	if err := prepareIssue(i); err != nil {
		return err
	}
	symptoms, components, projects, err := issueJSON(i)
	if err != nil {
		return fmt.Errorf("%w: issue: %v", usercontext.ErrInvalidInput, err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO known_issues (`+issueColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		i.ID, i.OwnerID, i.Description, symptoms, nullable(i.RootCause), nullable(i.Workaround),
		nullable(i.PermanentSolution), components, string(i.Severity), string(i.Category),
		string(i.ResolutionStatus), fmtTimePtr(i.ResolutionDate), nullable(i.PreventionNotes), projects,
		fmtTime(i.LearnedDate), fmtTimePtr(i.UpdatedAt))
	if err != nil {
		return insertErr("create issue", "issue", i.ID, err)
	}
	return nil
}

func (s *SQLite) GetIssue(ctx context.Context, id string) (*usercontext.Issue, error) {
	return queryOne(ctx, s.db, "get issue", "issue", id, scanIssue,
		`SELECT `+issueColumns+` FROM known_issues WHERE id = ?`)
}

func (s *SQLite) ListIssues(ctx context.Context, ownerID string) ([]*usercontext.Issue, error) {
	return queryAll(ctx, s.db, "list issues", scanIssue,
		`SELECT `+issueColumns+` FROM known_issues WHERE owner_id = ?`+issueOrder, ownerID)
}

func (s *SQLite) ListIssuesByStatus(ctx context.Context, ownerID string, status usercontext.ResolutionStatus) ([]*usercontext.Issue, error) {
	return queryAll(ctx, s.db, "list issues by status", scanIssue,
		`SELECT `+issueColumns+` FROM known_issues WHERE owner_id = ? AND resolution_status = ?
		ORDER BY `+severityRank+` ASC, learned_date DESC, id ASC`, ownerID, string(status))
}

func (s *SQLite) ListIssuesBySeverity(ctx context.Context, ownerID string, severity usercontext.Severity) ([]*usercontext.Issue, error) {
	return queryAll(ctx, s.db, "list issues by severity", scanIssue,
		`SELECT `+issueColumns+` FROM known_issues WHERE owner_id = ? AND severity = ?`+issueOrder,
		ownerID, string(severity))
}

func (s *SQLite) ListIssuesByCategory(ctx context.Context, ownerID string, category usercontext.IssueCategory) ([]*usercontext.Issue, error) {
	return queryAll(ctx, s.db, "list issues by category", scanIssue,
		`SELECT `+issueColumns+` FROM known_issues WHERE owner_id = ? AND issue_category = ?`+issueOrder,
		ownerID, string(category))
}

// ListIssuesByComponent matches components case-insensitively. SQLite's
// lower() folds ASCII only, so non-ASCII names must match exactly.
func (s *SQLite) ListIssuesByComponent(ctx context.Context, ownerID, component string) ([]*usercontext.Issue, error) {
	return queryAll(ctx, s.db, "list issues by component", scanIssue,
		`SELECT `+issueColumns+` FROM known_issues WHERE owner_id = ? AND EXISTS (
			SELECT 1 FROM json_each(known_issues.affected_components) WHERE lower(trim(json_each.value)) = ?
		)`+issueOrder, ownerID, componentKey(component))
}

func (s *SQLite) UpdateIssue(ctx context.Context, i *usercontext.Issue) error {
	if err := checkIssue(i); err != nil {
		return err
	}
	symptoms, components, projects, err := issueJSON(i)
	if err != nil {
		return fmt.Errorf("%w: issue: %v", usercontext.ErrInvalidInput, err)
	}
	now := s.now()
	if err := s.execOne(ctx, "update issue", "issue", i.ID, `UPDATE known_issues SET
			owner_id = ?, issue_description = ?, symptoms = ?, root_cause = ?, workaround = ?,
			permanent_solution = ?, affected_components = ?, severity = ?, issue_category = ?,
			resolution_status = ?, resolution_date = ?, prevention_notes = ?, project_contexts = ?,
			updated_at = ?
		WHERE id = ?`,
		i.OwnerID, i.Description, symptoms, nullable(i.RootCause), nullable(i.Workaround),
		nullable(i.PermanentSolution), components, string(i.Severity), string(i.Category),
		string(i.ResolutionStatus), fmtTimePtr(i.ResolutionDate), nullable(i.PreventionNotes), projects,
		fmtTime(now), i.ID); err != nil {
		return err
	}
	i.UpdatedAt = &now
	return nil
}

func (s *SQLite) DeleteIssue(ctx context.Context, id string) error {
	return s.execOne(ctx, "delete issue", "issue", id, `DELETE FROM known_issues WHERE id = ?`, id)
}

func (s *SQLite) MarkIssueResolved(ctx context.Context, id string, status usercontext.ResolutionStatus) error {
	now := fmtTime(s.now())
	return s.execOne(ctx, "resolve issue", "issue", id,
		`UPDATE known_issues SET resolution_status = ?, resolution_date = ?, updated_at = ? WHERE id = ?`,
		string(status), now, now, id)
}

// ─── Todos ───────────────────────────────────────────────────────────────────

const todoColumns = `id, owner_id, task_description, context_type, related_entity_id,
	related_entity_type, project_id, assigned_to, due_date, status, priority,
	created_from_conversation_date, created_at, updated_at, completion_date`

const todoOrder = ` ORDER BY priority ASC, due_date IS NULL, due_date ASC, created_at DESC, id ASC`

func scanTodo(sc scanner) (*usercontext.Todo, error) {
	var (
		t                                            usercontext.Todo
		entityID, entityType, project, assigned, due sql.NullString
		conversation, updatedAt, completion          sql.NullString
		contextType, status, created                 string
	)
	if err := sc.Scan(&t.ID, &t.OwnerID, &t.Description, &contextType, &entityID,
		&entityType, &project, &assigned, &due, &status, &t.Priority,
		&conversation, &created, &updatedAt, &completion); err != nil {
		return nil, err
	}
	var r rowDecoder
	t.ContextType = usercontext.ParseTodoContextType(contextType)
	t.RelatedEntityID = str(entityID)
	if entityType.Valid {
		et := usercontext.ParseEntityType(entityType.String)
		t.RelatedEntityType = &et
	}
	t.ProjectID = str(project)
	t.AssignedTo = str(assigned)
	t.DueDate = r.timePtr(due)
	t.Status = usercontext.ParseTodoStatus(status)
	t.ConversationDate = r.timePtr(conversation)
	t.CreatedAt = r.time(created)
	t.UpdatedAt = r.timePtr(updatedAt)
	t.CompletionDate = r.timePtr(completion)
	return &t, r.err
}

func entityTypeValue(et *usercontext.EntityType) any {
	if et == nil {
		return nil
	}
	return string(*et)
}

func (s *SQLite) CreateTodo(ctx context.Context, t *usercontext.Todo) error {
	if err := prepareTodo(t); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO contextual_todos (`+todoColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.OwnerID, t.Description, string(t.ContextType), nullable(t.RelatedEntityID),
		entityTypeValue(t.RelatedEntityType), nullable(t.ProjectID), nullable(t.AssignedTo),
		fmtTimePtr(t.DueDate), string(t.Status), t.Priority,
		fmtTimePtr(t.ConversationDate), fmtTime(t.CreatedAt), fmtTimePtr(t.UpdatedAt), fmtTimePtr(t.CompletionDate))
	if err != nil {
		return insertErr("create todo", "todo", t.ID, err)
	}
	return nil
}

func (s *SQLite) GetTodo(ctx context.Context, id string) (*usercontext.Todo, error) {
	return queryOne(ctx, s.db, "get todo", "todo", id, scanTodo,
		`SELECT `+todoColumns+` FROM contextual_todos WHERE id = ?`)
}

func (s *SQLite) ListTodos(ctx context.Context, ownerID string) ([]*usercontext.Todo, error) {
	return queryAll(ctx, s.db, "list todos", scanTodo,
		`SELECT `+todoColumns+` FROM contextual_todos WHERE owner_id = ?`+todoOrder, ownerID)
}

func (s *SQLite) ListTodosByStatus(ctx context.Context, ownerID string, status usercontext.TodoStatus) ([]*usercontext.Todo, error) {
	return queryAll(ctx, s.db, "list todos by status", scanTodo,
		`SELECT `+todoColumns+` FROM contextual_todos WHERE owner_id = ? AND status = ?`+todoOrder,
		ownerID, string(status))
}

func (s *SQLite) ListTodosByProject(ctx context.Context, ownerID, projectID string) ([]*usercontext.Todo, error) {
	return queryAll(ctx, s.db, "list todos by project", scanTodo,
		`SELECT `+todoColumns+` FROM contextual_todos WHERE owner_id = ? AND project_id = ?`+todoOrder,
		ownerID, projectID)
}

func (s *SQLite) ListTodosByEntity(ctx context.Context, entityID string) ([]*usercontext.Todo, error) {
	return queryAll(ctx, s.db, "list todos by entity", scanTodo,
		`SELECT `+todoColumns+` FROM contextual_todos WHERE related_entity_id = ?
		ORDER BY created_at DESC, id ASC`, entityID)
}

func (s *SQLite) UpdateTodo(ctx context.Context, t *usercontext.Todo) error {
	if err := checkTodo(t); err != nil {
		return err
	}
	now := s.now()
	if err := s.execOne(ctx, "update todo", "todo", t.ID, `UPDATE contextual_todos SET
			owner_id = ?, task_description = ?, context_type = ?, related_entity_id = ?,
			related_entity_type = ?, project_id = ?, assigned_to = ?, due_date = ?, status = ?,
			priority = ?, created_from_conversation_date = ?, completion_date = ?, updated_at = ?
		WHERE id = ?`,
		t.OwnerID, t.Description, string(t.ContextType), nullable(t.RelatedEntityID),
		entityTypeValue(t.RelatedEntityType), nullable(t.ProjectID), nullable(t.AssignedTo),
		fmtTimePtr(t.DueDate), string(t.Status),
		t.Priority, fmtTimePtr(t.ConversationDate), fmtTimePtr(t.CompletionDate), fmtTime(now), t.ID); err != nil {
		return err
	}
	t.UpdatedAt = &now
	return nil
}

func (s *SQLite) DeleteTodo(ctx context.Context, id string) error {
	return s.execOne(ctx, "delete todo", "todo", id, `DELETE FROM contextual_todos WHERE id = ?`, id)
}

func (s *SQLite) UpdateTodoStatus(ctx context.Context, id string, status usercontext.TodoStatus) error {
	now := fmtTime(s.now())
	var completion any
	if status == usercontext.TodoCompleted {
		completion = now
	}
	return s.execOne(ctx, "update todo status", "todo", id,
		`UPDATE contextual_todos SET status = ?, completion_date = COALESCE(?, completion_date), updated_at = ?
		WHERE id = ?`, string(status), completion, now, id)
}

// ─── Audit & owners ──────────────────────────────────────────────────────────

const auditColumns = `id, owner_id, entity_type, entity_id, action, old_value, new_value,
	changed_by, changed_at, reason`

func scanAudit(sc scanner) (*usercontext.AuditEntry, error) {
	var (
		e                             usercontext.AuditEntry
		oldValue, newValue, reason    sql.NullString
		entityType, action, changedAt string
	)
	if err := sc.Scan(&e.ID, &e.OwnerID, &entityType, &e.EntityID, &action, &oldValue, &newValue,
		&e.ChangedBy, &changedAt, &reason); err != nil {
		return nil, err
	}
	var r rowDecoder
	e.EntityType = usercontext.ParseEntityType(entityType)
	e.Action = usercontext.AuditAction(action)
	e.OldValue = str(oldValue)
	e.NewValue = str(newValue)
	e.ChangedAt = r.time(changedAt)
	e.Reason = str(reason)
	return &e, r.err
}

func (s *SQLite) AppendAudit(ctx context.Context, e *usercontext.AuditEntry) error {
	if err := prepareAudit(e); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO user_context_audit (`+auditColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.OwnerID, string(e.EntityType), e.EntityID, string(e.Action),
		nullable(e.OldValue), nullable(e.NewValue), e.ChangedBy, fmtTime(e.ChangedAt), nullable(e.Reason))
	if err != nil {
		return insertErr("append audit", "audit entry", e.ID, err)
	}
	return nil
}

func (s *SQLite) ListAudit(ctx context.Context, ownerID string, limit int) ([]*usercontext.AuditEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	return queryAll(ctx, s.db, "list audit", scanAudit,
		`SELECT `+auditColumns+` FROM user_context_audit WHERE owner_id = ?
		ORDER BY changed_at DESC, rowid DESC LIMIT ?`, ownerID, limit)
}

func (s *SQLite) ListOwners(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT owner_id FROM user_decisions
		UNION SELECT owner_id FROM user_goals
		UNION SELECT owner_id FROM user_preferences
		UNION SELECT owner_id FROM known_issues
		UNION SELECT owner_id FROM contextual_todos
		ORDER BY 1`)
	if err != nil {
		return nil, unavailable("list owners", err)
	}
	defer func() { _ = rows.Close() }()

	owners := make([]string, 0)
	for rows.Next() {
		var o string
		if err := rows.Scan(&o); err != nil {
			return nil, unavailable("list owners", err)
		}
		owners = append(owners, o)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list owners", err)
	}
	return owners, nil
}
