// Package store persists context items.
//
// Two implementations satisfy Store: SQLite for the daemon and CLI, and an
// in-memory map store for tests and ephemeral use. Both return
// usercontext.ErrNotFound for unknown ids and wrap persistence failures in
// usercontext.ErrStoreUnavailable.
//
// Update methods last-write-win on every field except the counters
// (applied_count, frequency_observed), which only move through the
// dedicated increment methods and never lose concurrent increments.
package store

import (
	"context"

	"github.com/fyrsmithlabs/contextiq/internal/usercontext"
)

// DecisionStore persists decisions.
type DecisionStore interface {
	CreateDecision(ctx context.Context, d *usercontext.Decision) error
	GetDecision(ctx context.Context, id string) (*usercontext.Decision, error)
	ListDecisions(ctx context.Context, ownerID string) ([]*usercontext.Decision, error)
	ListDecisionsByScope(ctx context.Context, ownerID string, scope usercontext.Scope) ([]*usercontext.Decision, error)
	ListDecisionsByCategory(ctx context.Context, ownerID string, category usercontext.DecisionCategory) ([]*usercontext.Decision, error)
	UpdateDecision(ctx context.Context, d *usercontext.Decision) error
	DeleteDecision(ctx context.Context, id string) error
	IncrementAppliedCount(ctx context.Context, id string) error
	ArchiveDecision(ctx context.Context, id string) error
}

// GoalStore persists goals.
type GoalStore interface {
	CreateGoal(ctx context.Context, g *usercontext.Goal) error
	GetGoal(ctx context.Context, id string) (*usercontext.Goal, error)
	ListGoals(ctx context.Context, ownerID string) ([]*usercontext.Goal, error)
	ListGoalsByStatus(ctx context.Context, ownerID string, status usercontext.GoalStatus) ([]*usercontext.Goal, error)
	ListGoalsByProject(ctx context.Context, ownerID, projectID string) ([]*usercontext.Goal, error)
	UpdateGoal(ctx context.Context, g *usercontext.Goal) error
	DeleteGoal(ctx context.Context, id string) error
	UpdateGoalStatus(ctx context.Context, id string, status usercontext.GoalStatus) error
}

// PreferenceStore persists preferences.
type PreferenceStore interface {
	CreatePreference(ctx context.Context, p *usercontext.Preference) error
	GetPreference(ctx context.Context, id string) (*usercontext.Preference, error)
	ListPreferences(ctx context.Context, ownerID string) ([]*usercontext.Preference, error)
	ListPreferencesByScope(ctx context.Context, ownerID string, scope usercontext.Scope) ([]*usercontext.Preference, error)
	ListPreferencesByType(ctx context.Context, ownerID string, t usercontext.PreferenceType) ([]*usercontext.Preference, error)
	ListAutomationPreferences(ctx context.Context, ownerID string) ([]*usercontext.Preference, error)
	UpdatePreference(ctx context.Context, p *usercontext.Preference) error
	DeletePreference(ctx context.Context, id string) error
	IncrementFrequency(ctx context.Context, id string) error
}

// IssueStore persists known issues.
type IssueStore interface {
	CreateIssue(ctx context.Context, i *usercontext.Issue) error
	GetIssue(ctx context.Context, id string) (*usercontext.Issue, error)
	ListIssues(ctx context.Context, ownerID string) ([]*usercontext.Issue, error)
	ListIssuesByStatus(ctx context.Context, ownerID string, status usercontext.ResolutionStatus) ([]*usercontext.Issue, error)
	ListIssuesBySeverity(ctx context.Context, ownerID string, severity usercontext.Severity) ([]*usercontext.Issue, error)
	ListIssuesByCategory(ctx context.Context, ownerID string, category usercontext.IssueCategory) ([]*usercontext.Issue, error)
	ListIssuesByComponent(ctx context.Context, ownerID, component string) ([]*usercontext.Issue, error)
	UpdateIssue(ctx context.Context, i *usercontext.Issue) error
	DeleteIssue(ctx context.Context, id string) error
	MarkIssueResolved(ctx context.Context, id string, status usercontext.ResolutionStatus) error
}

// TodoStore persists contextual todos.
type TodoStore interface {
	CreateTodo(ctx context.Context, t *usercontext.Todo) error
	GetTodo(ctx context.Context, id string) (*usercontext.Todo, error)
	ListTodos(ctx context.Context, ownerID string) ([]*usercontext.Todo, error)
	ListTodosByStatus(ctx context.Context, ownerID string, status usercontext.TodoStatus) ([]*usercontext.Todo, error)
	ListTodosByProject(ctx context.Context, ownerID, projectID string) ([]*usercontext.Todo, error)
	ListTodosByEntity(ctx context.Context, entityID string) ([]*usercontext.Todo, error)
	UpdateTodo(ctx context.Context, t *usercontext.Todo) error
	DeleteTodo(ctx context.Context, id string) error
	UpdateTodoStatus(ctx context.Context, id string, status usercontext.TodoStatus) error
}

// AuditStore records and lists mutations.
type AuditStore interface {
	AppendAudit(ctx context.Context, e *usercontext.AuditEntry) error
	// ListAudit returns the owner's newest entries first. limit <= 0 means all.
	ListAudit(ctx context.Context, ownerID string, limit int) ([]*usercontext.AuditEntry, error)
}

// Store is the full context store.
type Store interface {
	DecisionStore
	GoalStore
	PreferenceStore
	IssueStore
	TodoStore
	AuditStore

	// ListOwners returns every owner id with at least one item, sorted.
	ListOwners(ctx context.Context) ([]string, error)
	Close() error
}
