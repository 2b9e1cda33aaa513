package store

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/fyrsmithlabs/contextiq/internal/usercontext"
)

var (
	// OperationsTotal counts store calls.
	// Labels: operation, result (ok, not_found, invalid, error)
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "contextiq",
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Total number of context store operations",
		},
		[]string{"operation", "result"},
	)

	// OperationDuration tracks how long store calls take.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "contextiq",
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Duration of context store operations in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, usercontext.ErrNotFound):
		return "not_found"
	case errors.Is(err, usercontext.ErrInvalidInput), errors.Is(err, usercontext.ErrInvalidRange):
		return "invalid"
	default:
		return "error"
	}
}

func observe(op string, start time.Time, err *error) {
	OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	OperationsTotal.WithLabelValues(op, resultLabel(*err)).Inc()
}

// Instrumented records Prometheus metrics around every call of the wrapped
// store.
type Instrumented struct {
	next Store
}

var _ Store = (*Instrumented)(nil)

// Instrument wraps s with operation metrics.
func Instrument(s Store) *Instrumented {
	return &Instrumented{next: s}
}

// Unwrap returns the wrapped store.
func (s *Instrumented) Unwrap() Store { return s.next }

func (s *Instrumented) Close() (err error) {
	defer observe("close", time.Now(), &err)
	return s.next.Close()
}

func (s *Instrumented) CreateDecision(ctx context.Context, d *usercontext.Decision) (err error) {
	defer observe("create_decision", time.Now(), &err)
	return s.next.CreateDecision(ctx, d)
}

func (s *Instrumented) GetDecision(ctx context.Context, id string) (_ *usercontext.Decision, err error) {
	defer observe("get_decision", time.Now(), &err)
	return s.next.GetDecision(ctx, id)
}

func (s *Instrumented) ListDecisions(ctx context.Context, ownerID string) (_ []*usercontext.Decision, err error) {
	defer observe("list_decisions", time.Now(), &err)
	return s.next.ListDecisions(ctx, ownerID)
}

func (s *Instrumented) ListDecisionsByScope(ctx context.Context, ownerID string, scope usercontext.Scope) (_ []*usercontext.Decision, err error) {
	defer observe("list_decisions_by_scope", time.Now(), &err)
	return s.next.ListDecisionsByScope(ctx, ownerID, scope)
}

func (s *Instrumented) ListDecisionsByCategory(ctx context.Context, ownerID string, category usercontext.DecisionCategory) (_ []*usercontext.Decision, err error) {
	defer observe("list_decisions_by_category", time.Now(), &err)
	return s.next.ListDecisionsByCategory(ctx, ownerID, category)
}

func (s *Instrumented) UpdateDecision(ctx context.Context, d *usercontext.Decision) (err error) {
	defer observe("update_decision", time.Now(), &err)
	return s.next.UpdateDecision(ctx, d)
}

func (s *Instrumented) DeleteDecision(ctx context.Context, id string) (err error) {
	defer observe("delete_decision", time.Now(), &err)
	return s.next.DeleteDecision(ctx, id)
}

func (s *Instrumented) IncrementAppliedCount(ctx context.Context, id string) (err error) {
	defer observe("increment_applied_count", time.Now(), &err)
	return s.next.IncrementAppliedCount(ctx, id)
}

func (s *Instrumented) ArchiveDecision(ctx context.Context, id string) (err error) {
	defer observe("archive_decision", time.Now(), &err)
	return s.next.ArchiveDecision(ctx, id)
}

func (s *Instrumented) CreateGoal(ctx context.Context, g *usercontext.Goal) (err error) {
	defer observe("create_goal", time.Now(), &err)
	return s.next.CreateGoal(ctx, g)
}

func (s *Instrumented) GetGoal(ctx context.Context, id string) (_ *usercontext.Goal, err error) {
	defer observe("get_goal", time.Now(), &err)
	return s.next.GetGoal(ctx, id)
}

func (s *Instrumented) ListGoals(ctx context.Context, ownerID string) (_ []*usercontext.Goal, err error) {
	defer observe("list_goals", time.Now(), &err)
	return s.next.ListGoals(ctx, ownerID)
}

func (s *Instrumented) ListGoalsByStatus(ctx context.Context, ownerID string, status usercontext.GoalStatus) (_ []*usercontext.Goal, err error) {
	defer observe("list_goals_by_status", time.Now(), &err)
	return s.next.ListGoalsByStatus(ctx, ownerID, status)
}

func (s *Instrumented) ListGoalsByProject(ctx context.Context, ownerID, projectID string) (_ []*usercontext.Goal, err error) {
	defer observe("list_goals_by_project", time.Now(), &err)
	return s.next.ListGoalsByProject(ctx, ownerID, projectID)
}

func (s *Instrumented) UpdateGoal(ctx context.Context, g *usercontext.Goal) (err error) {
	defer observe("update_goal", time.Now(), &err)
	return s.next.UpdateGoal(ctx, g)
}

func (s *Instrumented) DeleteGoal(ctx context.Context, id string) (err error) {
	defer observe("delete_goal", time.Now(), &err)
	return s.next.DeleteGoal(ctx, id)
}

func (s *Instrumented) UpdateGoalStatus(ctx context.Context, id string, status usercontext.GoalStatus) (err error) {
	defer observe("update_goal_status", time.Now(), &err)
	return s.next.UpdateGoalStatus(ctx, id, status)
}

func (s *Instrumented) CreatePreference(ctx context.Context, p *usercontext.Preference) (err error) {
	defer observe("create_preference", time.Now(), &err)
	return s.next.CreatePreference(ctx, p)
}

func (s *Instrumented) GetPreference(ctx context.Context, id string) (_ *usercontext.Preference, err error) {
	defer observe("get_preference", time.Now(), &err)
	return s.next.GetPreference(ctx, id)
}

func (s *Instrumented) ListPreferences(ctx context.Context, ownerID string) (_ []*usercontext.Preference, err error) {
	defer observe("list_preferences", time.Now(), &err)
	return s.next.ListPreferences(ctx, ownerID)
}

func (s *Instrumented) ListPreferencesByScope(ctx context.Context, ownerID string, scope usercontext.Scope) (_ []*usercontext.Preference, err error) {
	defer observe("list_preferences_by_scope", time.Now(), &err)
	return s.next.ListPreferencesByScope(ctx, ownerID, scope)
}

func (s *Instrumented) ListPreferencesByType(ctx context.Context, ownerID string, t usercontext.PreferenceType) (_ []*usercontext.Preference, err error) {
	defer observe("list_preferences_by_type", time.Now(), &err)
	return s.next.ListPreferencesByType(ctx, ownerID, t)
}

func (s *Instrumented) ListAutomationPreferences(ctx context.Context, ownerID string) (_ []*usercontext.Preference, err error) {
	defer observe("list_automation_preferences", time.Now(), &err)
	return s.next.ListAutomationPreferences(ctx, ownerID)
}

func (s *Instrumented) UpdatePreference(ctx context.Context, p *usercontext.Preference) (err error) {
	defer observe("update_preference", time.Now(), &err)
	return s.next.UpdatePreference(ctx, p)
}

func (s *Instrumented) DeletePreference(ctx context.Context, id string) (err error) {
	defer observe("delete_preference", time.Now(), &err)
	return s.next.DeletePreference(ctx, id)
}

func (s *Instrumented) IncrementFrequency(ctx context.Context, id string) (err error) {
	defer observe("increment_frequency", time.Now(), &err)
	return s.next.IncrementFrequency(ctx, id)
}

func (s *Instrumented) CreateIssue(ctx context.Context, i *usercontext.Issue) (err error) {
	defer observe("create_issue", time.Now(), &err)
	return s.next.CreateIssue(ctx, i)
}

func (s *Instrumented) GetIssue(ctx context.Context, id string) (_ *usercontext.Issue, err error) {
	defer observe("get_issue", time.Now(), &err)
	return s.next.GetIssue(ctx, id)
}

func (s *Instrumented) ListIssues(ctx context.Context, ownerID string) (_ []*usercontext.Issue, err error) {
	defer observe("list_issues", time.Now(), &err)
	return s.next.ListIssues(ctx, ownerID)
}

func (s *Instrumented) ListIssuesByStatus(ctx context.Context, ownerID string, status usercontext.ResolutionStatus) (_ []*usercontext.Issue, err error) {
	defer observe("list_issues_by_status", time.Now(), &err)
	return s.next.ListIssuesByStatus(ctx, ownerID, status)
}

func (s *Instrumented) ListIssuesBySeverity(ctx context.Context, ownerID string, severity usercontext.Severity) (_ []*usercontext.Issue, err error) {
	defer observe("list_issues_by_severity", time.Now(), &err)
	return s.next.ListIssuesBySeverity(ctx, ownerID, severity)
}

func (s *Instrumented) ListIssuesByCategory(ctx context.Context, ownerID string, category usercontext.IssueCategory) (_ []*usercontext.Issue, err error) {
	defer observe("list_issues_by_category", time.Now(), &err)
	return s.next.ListIssuesByCategory(ctx, ownerID, category)
}

func (s *Instrumented) ListIssuesByComponent(ctx context.Context, ownerID, component string) (_ []*usercontext.Issue, err error) {
	defer observe("list_issues_by_component", time.Now(), &err)
	return s.next.ListIssuesByComponent(ctx, ownerID, component)
}

func (s *Instrumented) UpdateIssue(ctx context.Context, i *usercontext.Issue) (err error) {
	defer observe("update_issue", time.Now(), &err)
	return s.next.UpdateIssue(ctx, i)
}

func (s *Instrumented) DeleteIssue(ctx context.Context, id string) (err error) {
	defer observe("delete_issue", time.Now(), &err)
	return s.next.DeleteIssue(ctx, id)
}

func (s *Instrumented) MarkIssueResolved(ctx context.Context, id string, status usercontext.ResolutionStatus) (err error) {
	defer observe("mark_issue_resolved", time.Now(), &err)
	return s.next.MarkIssueResolved(ctx, id, status)
}

func (s *Instrumented) CreateTodo(ctx context.Context, t *usercontext.Todo) (err error) {
	defer observe("create_todo", time.Now(), &err)
	return s.next.CreateTodo(ctx, t)
}

func (s *Instrumented) GetTodo(ctx context.Context, id string) (_ *usercontext.Todo, err error) {
	defer observe("get_todo", time.Now(), &err)
	return s.next.GetTodo(ctx, id)
}

func (s *Instrumented) ListTodos(ctx context.Context, ownerID string) (_ []*usercontext.Todo, err error) {
	defer observe("list_todos", time.Now(), &err)
	return s.next.ListTodos(ctx, ownerID)
}

func (s *Instrumented) ListTodosByStatus(ctx context.Context, ownerID string, status usercontext.TodoStatus) (_ []*usercontext.Todo, err error) {
	defer observe("list_todos_by_status", time.Now(), &err)
	return s.next.ListTodosByStatus(ctx, ownerID, status)
}

func (s *Instrumented) ListTodosByProject(ctx context.Context, ownerID, projectID string) (_ []*usercontext.Todo, err error) {
	defer observe("list_todos_by_project", time.Now(), &err)
	return s.next.ListTodosByProject(ctx, ownerID, projectID)
}

func (s *Instrumented) ListTodosByEntity(ctx context.Context, entityID string) (_ []*usercontext.Todo, err error) {
	defer observe("list_todos_by_entity", time.Now(), &err)
	return s.next.ListTodosByEntity(ctx, entityID)
}

func (s *Instrumented) UpdateTodo(ctx context.Context, t *usercontext.Todo) (err error) {
	defer observe("update_todo", time.Now(), &err)
	return s.next.UpdateTodo(ctx, t)
}

func (s *Instrumented) DeleteTodo(ctx context.Context, id string) (err error) {
	defer observe("delete_todo", time.Now(), &err)
	return s.next.DeleteTodo(ctx, id)
}

func (s *Instrumented) UpdateTodoStatus(ctx context.Context, id string, status usercontext.TodoStatus) (err error) {
	defer observe("update_todo_status", time.Now(), &err)
	return s.next.UpdateTodoStatus(ctx, id, status)
}

func (s *Instrumented) AppendAudit(ctx context.Context, e *usercontext.AuditEntry) (err error) {
	defer observe("append_audit", time.Now(), &err)
	return s.next.AppendAudit(ctx, e)
}

func (s *Instrumented) ListAudit(ctx context.Context, ownerID string, limit int) (_ []*usercontext.AuditEntry, err error) {
	defer observe("list_audit", time.Now(), &err)
	return s.next.ListAudit(ctx, ownerID, limit)
}

func (s *Instrumented) ListOwners(ctx context.Context) (_ []string, err error) {
	defer observe("list_owners", time.Now(), &err)
	return s.next.ListOwners(ctx)
}
