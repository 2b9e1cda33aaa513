package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/contextiq/internal/usercontext"
)

// Memory is a map-backed Store. All state is guarded by one RWMutex and
// every read returns deep copies.
type Memory struct {
	mu          sync.RWMutex
	decisions   map[string]*usercontext.Decision
	goals       map[string]*usercontext.Goal
	preferences map[string]*usercontext.Preference
	issues      map[string]*usercontext.Issue
	todos       map[string]*usercontext.Todo
	audit       []*usercontext.AuditEntry
	now         func() time.Time
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		decisions:   make(map[string]*usercontext.Decision),
		goals:       make(map[string]*usercontext.Goal),
		preferences: make(map[string]*usercontext.Preference),
		issues:      make(map[string]*usercontext.Issue),
		todos:       make(map[string]*usercontext.Todo),
		now:         func() time.Time { return stamp(time.Now()) },
	}
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }

// collect filters, copies and orders the values of a map.
func collect[T any](rows map[string]*T, keep func(*T) bool, clone func(*T) *T, less func(a, b *T) bool) []*T {
	out := make([]*T, 0)
	for _, r := range rows {
		if keep(r) {
			out = append(out, clone(r))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, usercontext.ErrNotFound)
}

func duplicate(kind, id string) error {
	return fmt.Errorf("%w: %s %q already exists", usercontext.ErrInvalidInput, kind, id)
}

func equalPtr(p *string, v string) bool { return p != nil && *p == v }

// ─── Decisions ───────────────────────────────────────────────────────────────

func (m *Memory) CreateDecision(_ context.Context, d *usercontext.Decision) error {
	if err := prepareDecision(d); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.decisions[d.ID]; ok {
		return duplicate("decision", d.ID)
	}
	m.decisions[d.ID] = d.Clone()
	return nil
}

func (m *Memory) GetDecision(_ context.Context, id string) (*usercontext.Decision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.decisions[id]
	if !ok {
		return nil, notFound("decision", id)
	}
	return d.Clone(), nil
}

func (m *Memory) listDecisions(keep func(*usercontext.Decision) bool) []*usercontext.Decision {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return collect(m.decisions, keep, (*usercontext.Decision).Clone, decisionLess)
}

func (m *Memory) ListDecisions(_ context.Context, ownerID string) ([]*usercontext.Decision, error) {
	return m.listDecisions(func(d *usercontext.Decision) bool { return d.OwnerID == ownerID }), nil
}

func (m *Memory) ListDecisionsByScope(_ context.Context, ownerID string, scope usercontext.Scope) ([]*usercontext.Decision, error) {
	return m.listDecisions(func(d *usercontext.Decision) bool {
		return d.OwnerID == ownerID && d.Scope.String() == scope.String()
	}), nil
}

func (m *Memory) ListDecisionsByCategory(_ context.Context, ownerID string, category usercontext.DecisionCategory) ([]*usercontext.Decision, error) {
	return m.listDecisions(func(d *usercontext.Decision) bool {
		return d.OwnerID == ownerID && d.Category == category
	}), nil
}

func (m *Memory) UpdateDecision(_ context.Context, d *usercontext.Decision) error {
	if err := checkDecision(d); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.decisions[d.ID]
	if !ok {
		return notFound("decision", d.ID)
	}
	now := m.now()
	next := d.Clone()
	next.AppliedCount = cur.AppliedCount
	next.LastApplied = cur.LastApplied
	next.CreatedAt = cur.CreatedAt
	next.UpdatedAt = &now
	m.decisions[d.ID] = next
	d.UpdatedAt = &now
	return nil
}

func (m *Memory) DeleteDecision(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.decisions[id]; !ok {
		return notFound("decision", id)
	}
	delete(m.decisions, id)
	return nil
}

func (m *Memory) IncrementAppliedCount(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.decisions[id]
	if !ok {
		return notFound("decision", id)
	}
	d.RecordApplication(m.now())
	return nil
}

func (m *Memory) ArchiveDecision(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.decisions[id]
	if !ok {
		return notFound("decision", id)
	}
	d.Archive(m.now())
	return nil
}

// ─── Goals ───────────────────────────────────────────────────────────────────

func (m *Memory) CreateGoal(_ context.Context, g *usercontext.Goal) error {
	if err := prepareGoal(g); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.goals[g.ID]; ok {
		return duplicate("goal", g.ID)
	}
	m.goals[g.ID] = g.Clone()
	return nil
}

func (m *Memory) GetGoal(_ context.Context, id string) (*usercontext.Goal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.goals[id]
	if !ok {
		return nil, notFound("goal", id)
	}
	return g.Clone(), nil
}

func (m *Memory) listGoals(keep func(*usercontext.Goal) bool) []*usercontext.Goal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return collect(m.goals, keep, (*usercontext.Goal).Clone, goalLess)
}

func (m *Memory) ListGoals(_ context.Context, ownerID string) ([]*usercontext.Goal, error) {
	return m.listGoals(func(g *usercontext.Goal) bool { return g.OwnerID == ownerID }), nil
}

func (m *Memory) ListGoalsByStatus(_ context.Context, ownerID string, status usercontext.GoalStatus) ([]*usercontext.Goal, error) {
	return m.listGoals(func(g *usercontext.Goal) bool {
		return g.OwnerID == ownerID && g.Status == status
	}), nil
}

func (m *Memory) ListGoalsByProject(_ context.Context, ownerID, projectID string) ([]*usercontext.Goal, error) {
	return m.listGoals(func(g *usercontext.Goal) bool {
		return g.OwnerID == ownerID && equalPtr(g.ProjectID, projectID)
	}), nil
}

func (m *Memory) UpdateGoal(_ context.Context, g *usercontext.Goal) error {
	if err := checkGoal(g); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.goals[g.ID]
	if !ok {
		return notFound("goal", g.ID)
	}
	now := m.now()
	next := g.Clone()
	next.CreatedAt = cur.CreatedAt
	next.UpdatedAt = &now
	m.goals[g.ID] = next
	g.UpdatedAt = &now
	return nil
}

func (m *Memory) DeleteGoal(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.goals[id]; !ok {
		return notFound("goal", id)
	}
	delete(m.goals, id)
	return nil
}

func (m *Memory) UpdateGoalStatus(_ context.Context, id string, status usercontext.GoalStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.goals[id]
	if !ok {
		return notFound("goal", id)
	}
	g.SetStatus(status, m.now())
	return nil
}

// ─── Preferences ─────────────────────────────────────────────────────────────

func (m *Memory) CreatePreference(_ context.Context, p *usercontext.Preference) error {
	if err := preparePreference(p); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.preferences[p.ID]; ok {
		return duplicate("preference", p.ID)
	}
	m.preferences[p.ID] = p.Clone()
	return nil
}

func (m *Memory) GetPreference(_ context.Context, id string) (*usercontext.Preference, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.preferences[id]
	if !ok {
		return nil, notFound("preference", id)
	}
	return p.Clone(), nil
}

func (m *Memory) listPreferences(keep func(*usercontext.Preference) bool, less func(a, b *usercontext.Preference) bool) []*usercontext.Preference {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return collect(m.preferences, keep, (*usercontext.Preference).Clone, less)
}

func (m *Memory) ListPreferences(_ context.Context, ownerID string) ([]*usercontext.Preference, error) {
	return m.listPreferences(func(p *usercontext.Preference) bool { return p.OwnerID == ownerID }, preferenceLess), nil
}

func (m *Memory) ListPreferencesByScope(_ context.Context, ownerID string, scope usercontext.Scope) ([]*usercontext.Preference, error) {
	return m.listPreferences(func(p *usercontext.Preference) bool {
		return p.OwnerID == ownerID && p.Scope.String() == scope.String()
	}, preferenceLess), nil
}

func (m *Memory) ListPreferencesByType(_ context.Context, ownerID string, t usercontext.PreferenceType) ([]*usercontext.Preference, error) {
	return m.listPreferences(func(p *usercontext.Preference) bool {
		return p.OwnerID == ownerID && p.Type == t
	}, preferenceLess), nil
}

func (m *Memory) ListAutomationPreferences(_ context.Context, ownerID string) ([]*usercontext.Preference, error) {
	return m.listPreferences(func(p *usercontext.Preference) bool {
		return p.OwnerID == ownerID && p.AppliesToAutomation
	}, automationLess), nil
}

func (m *Memory) UpdatePreference(_ context.Context, p *usercontext.Preference) error {
	if err := checkPreference(p); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.preferences[p.ID]
	if !ok {
		return notFound("preference", p.ID)
	}
	now := m.now()
	next := p.Clone()
	next.FrequencyObserved = cur.FrequencyObserved
	next.LastReferenced = cur.LastReferenced
	next.CreatedAt = cur.CreatedAt
	next.UpdatedAt = &now
	m.preferences[p.ID] = next
	p.UpdatedAt = &now
	return nil
}

func (m *Memory) DeletePreference(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.preferences[id]; !ok {
		return notFound("preference", id)
	}
	delete(m.preferences, id)
	return nil
}

func (m *Memory) IncrementFrequency(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.preferences[id]
	if !ok {
		return notFound("preference", id)
	}
	p.ObserveAgain(m.now())
	return nil
}

// ─── Issues ──────────────────────────────────────────────────────────────────

func (m *Memory) CreateIssue(_ context.Context, i *usercontext.Issue) error {
	if err := prepareIssue(i); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.issues[i.ID]; ok {
		return duplicate("issue", i.ID)
	}
	m.issues[i.ID] = i.Clone()
	return nil
}

func (m *Memory) GetIssue(_ context.Context, id string) (*usercontext.Issue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.issues[id]
	if !ok {
		return nil, notFound("issue", id)
	}
	return i.Clone(), nil
}

func (m *Memory) listIssues(keep func(*usercontext.Issue) bool, less func(a, b *usercontext.Issue) bool) []*usercontext.Issue {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return collect(m.issues, keep, (*usercontext.Issue).Clone, less)
}

func (m *Memory) ListIssues(_ context.Context, ownerID string) ([]*usercontext.Issue, error) {
	return m.listIssues(func(i *usercontext.Issue) bool { return i.OwnerID == ownerID }, issueLess), nil
}

func (m *Memory) ListIssuesByStatus(_ context.Context, ownerID string, status usercontext.ResolutionStatus) ([]*usercontext.Issue, error) {
	return m.listIssues(func(i *usercontext.Issue) bool {
		return i.OwnerID == ownerID && i.ResolutionStatus == status
	}, issueSeverityLess), nil
}

func (m *Memory) ListIssuesBySeverity(_ context.Context, ownerID string, severity usercontext.Severity) ([]*usercontext.Issue, error) {
	return m.listIssues(func(i *usercontext.Issue) bool {
		return i.OwnerID == ownerID && i.Severity == severity
	}, issueLess), nil
}

func (m *Memory) ListIssuesByCategory(_ context.Context, ownerID string, category usercontext.IssueCategory) ([]*usercontext.Issue, error) {
	return m.listIssues(func(i *usercontext.Issue) bool {
		return i.OwnerID == ownerID && i.Category == category
	}, issueLess), nil
}

func (m *Memory) ListIssuesByComponent(_ context.Context, ownerID, component string) ([]*usercontext.Issue, error) {
	want := componentKey(component)
	return m.listIssues(func(i *usercontext.Issue) bool {
		if i.OwnerID != ownerID {
			return false
		}
		for _, c := range i.AffectedComponents {
			if componentKey(c) == want {
				return true
			}
		}
		return false
	}, issueLess), nil
}

func (m *Memory) UpdateIssue(_ context.Context, i *usercontext.Issue) error {
	if err := checkIssue(i); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.issues[i.ID]
	if !ok {
		return notFound("issue", i.ID)
	}
	now := m.now()
	next := i.Clone()
	next.LearnedDate = cur.LearnedDate
	next.UpdatedAt = &now
	m.issues[i.ID] = next
	i.UpdatedAt = &now
	return nil
}

func (m *Memory) DeleteIssue(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.issues[id]; !ok {
		return notFound("issue", id)
	}
	delete(m.issues, id)
	return nil
}

func (m *Memory) MarkIssueResolved(_ context.Context, id string, status usercontext.ResolutionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.issues[id]
	if !ok {
		return notFound("issue", id)
	}
	i.MarkResolved(status, m.now())
	return nil
}

// ─── Todos ───────────────────────────────────────────────────────────────────

func (m *Memory) CreateTodo(_ context.Context, t *usercontext.Todo) error {
	if err := prepareTodo(t); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.todos[t.ID]; ok {
		return duplicate("todo", t.ID)
	}
	m.todos[t.ID] = t.Clone()
	return nil
}

func (m *Memory) GetTodo(_ context.Context, id string) (*usercontext.Todo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.todos[id]
	if !ok {
		return nil, notFound("todo", id)
	}
	return t.Clone(), nil
}

func (m *Memory) listTodos(keep func(*usercontext.Todo) bool, less func(a, b *usercontext.Todo) bool) []*usercontext.Todo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return collect(m.todos, keep, (*usercontext.Todo).Clone, less)
}

func (m *Memory) ListTodos(_ context.Context, ownerID string) ([]*usercontext.Todo, error) {
	return m.listTodos(func(t *usercontext.Todo) bool { return t.OwnerID == ownerID }, todoLess), nil
}

func (m *Memory) ListTodosByStatus(_ context.Context, ownerID string, status usercontext.TodoStatus) ([]*usercontext.Todo, error) {
	return m.listTodos(func(t *usercontext.Todo) bool {
		return t.OwnerID == ownerID && t.Status == status
	}, todoLess), nil
}

func (m *Memory) ListTodosByProject(_ context.Context, ownerID, projectID string) ([]*usercontext.Todo, error) {
	return m.listTodos(func(t *usercontext.Todo) bool {
		return t.OwnerID == ownerID && equalPtr(t.ProjectID, projectID)
	}, todoLess), nil
}

func (m *Memory) ListTodosByEntity(_ context.Context, entityID string) ([]*usercontext.Todo, error) {
	return m.listTodos(func(t *usercontext.Todo) bool {
		return equalPtr(t.RelatedEntityID, entityID)
	}, todoNewestLess), nil
}

func (m *Memory) UpdateTodo(_ context.Context, t *usercontext.Todo) error {
	if err := checkTodo(t); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.todos[t.ID]
	if !ok {
		return notFound("todo", t.ID)
	}
	now := m.now()
	next := t.Clone()
	next.CreatedAt = cur.CreatedAt
	next.UpdatedAt = &now
	m.todos[t.ID] = next
	t.UpdatedAt = &now
	return nil
}

func (m *Memory) DeleteTodo(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.todos[id]; !ok {
		return notFound("todo", id)
	}
	delete(m.todos, id)
	return nil
}

func (m *Memory) UpdateTodoStatus(_ context.Context, id string, status usercontext.TodoStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.todos[id]
	if !ok {
		return notFound("todo", id)
	}
	t.SetStatus(status, m.now())
	return nil
}

// ─── Audit & owners ──────────────────────────────────────────────────────────

func (m *Memory) AppendAudit(_ context.Context, e *usercontext.AuditEntry) error {
	if err := prepareAudit(e); err != nil {
		return err
	}
	c := *e
	m.mu.Lock()
	m.audit = append(m.audit, &c)
	m.mu.Unlock()
	return nil
}

func (m *Memory) ListAudit(_ context.Context, ownerID string, limit int) ([]*usercontext.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*usercontext.AuditEntry, 0)
	// newest appended first; the stable sort keeps that for equal timestamps
	for i := len(m.audit) - 1; i >= 0; i-- {
		if e := m.audit[i]; e.OwnerID == ownerID {
			c := *e
			out = append(out, &c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ChangedAt.After(out[j].ChangedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) ListOwners(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := map[string]struct{}{}
	for _, d := range m.decisions {
		seen[d.OwnerID] = struct{}{}
	}
	for _, g := range m.goals {
		seen[g.OwnerID] = struct{}{}
	}
	for _, p := range m.preferences {
		seen[p.OwnerID] = struct{}{}
	}
	for _, i := range m.issues {
		seen[i.OwnerID] = struct{}{}
	}
	for _, t := range m.todos {
		seen[t.OwnerID] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for o := range seen {
		out = append(out, o)
	}
	sort.Strings(out)
	return out, nil
}

// ─── Shared validation and ordering ──────────────────────────────────────────

// stamp drops the monotonic reading and forces UTC so values survive a
// round trip through text columns unchanged.
func stamp(t time.Time) time.Time { return t.UTC().Round(0) }

func stampPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := stamp(*t)
	return &v
}

func componentKey(c string) string { return strings.ToLower(strings.TrimSpace(c)) }

func assignID(id *string) {
	if *id == "" {
		*id = uuid.New().String()
	}
}

func createdAt(t *time.Time) {
	if t.IsZero() {
		*t = time.Now()
	}
	*t = stamp(*t)
}

func requireID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: id is required", usercontext.ErrInvalidInput)
	}
	return nil
}

func checkDecision(d *usercontext.Decision) error {
	if err := requireID(d.ID); err != nil {
		return err
	}
	d.Normalize()
	return d.Validate()
}

func prepareDecision(d *usercontext.Decision) error {
	assignID(&d.ID)
	createdAt(&d.CreatedAt)
	d.LastApplied = stampPtr(d.LastApplied)
	d.UpdatedAt = stampPtr(d.UpdatedAt)
	return checkDecision(d)
}

func checkGoal(g *usercontext.Goal) error {
	if err := requireID(g.ID); err != nil {
		return err
	}
	g.Normalize()
	return g.Validate()
}

func prepareGoal(g *usercontext.Goal) error {
	assignID(&g.ID)
	createdAt(&g.CreatedAt)
	g.TargetDate = stampPtr(g.TargetDate)
	g.CompletionDate = stampPtr(g.CompletionDate)
	g.UpdatedAt = stampPtr(g.UpdatedAt)
	return checkGoal(g)
}

func checkPreference(p *usercontext.Preference) error {
	if err := requireID(p.ID); err != nil {
		return err
	}
	p.Normalize()
	return p.Validate()
}

func preparePreference(p *usercontext.Preference) error {
	assignID(&p.ID)
	createdAt(&p.CreatedAt)
	p.LastReferenced = stampPtr(p.LastReferenced)
	p.UpdatedAt = stampPtr(p.UpdatedAt)
	return checkPreference(p)
}

func checkIssue(i *usercontext.Issue) error {
	if err := requireID(i.ID); err != nil {
		return err
	}
	i.Normalize()
	return i.Validate()
}

func prepareIssue(i *usercontext.Issue) error {
	assignID(&i.ID)
	createdAt(&i.LearnedDate)
	i.ResolutionDate = stampPtr(i.ResolutionDate)
	i.UpdatedAt = stampPtr(i.UpdatedAt)
	return checkIssue(i)
}

func checkTodo(t *usercontext.Todo) error {
	if err := requireID(t.ID); err != nil {
		return err
	}
	t.Normalize()
	return t.Validate()
}

func prepareTodo(t *usercontext.Todo) error {
	assignID(&t.ID)
	createdAt(&t.CreatedAt)
	t.DueDate = stampPtr(t.DueDate)
	t.ConversationDate = stampPtr(t.ConversationDate)
	t.UpdatedAt = stampPtr(t.UpdatedAt)
	t.CompletionDate = stampPtr(t.CompletionDate)
	return checkTodo(t)
}

func prepareAudit(e *usercontext.AuditEntry) error {
	assignID(&e.ID)
	createdAt(&e.ChangedAt)
	if e.OwnerID == "" || e.EntityID == "" {
		return fmt.Errorf("%w: audit entry needs owner_id and entity_id", usercontext.ErrInvalidInput)
	}
	return nil
}

// Orderings mirror the ORDER BY clauses in sqlite.go.

func newerFirst(a, b time.Time, idA, idB string) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return idA < idB
}

func decisionLess(a, b *usercontext.Decision) bool {
	return newerFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
}

func goalLess(a, b *usercontext.Goal) bool {
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	return newerFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
}

func preferenceLess(a, b *usercontext.Preference) bool {
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	return newerFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
}

func automationLess(a, b *usercontext.Preference) bool {
	if a.FrequencyObserved != b.FrequencyObserved {
		return a.FrequencyObserved > b.FrequencyObserved
	}
	return preferenceLess(a, b)
}

func issueLess(a, b *usercontext.Issue) bool {
	return newerFirst(a.LearnedDate, b.LearnedDate, a.ID, b.ID)
}

func issueSeverityLess(a, b *usercontext.Issue) bool {
	if ra, rb := a.Severity.Rank(), b.Severity.Rank(); ra != rb {
		return ra < rb
	}
	return issueLess(a, b)
}

// todoLess orders by priority, then earliest due date with undated last.
func todoLess(a, b *usercontext.Todo) bool {
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	switch {
	case a.DueDate != nil && b.DueDate == nil:
		return true
	case a.DueDate == nil && b.DueDate != nil:
		return false
	case a.DueDate != nil && !a.DueDate.Equal(*b.DueDate):
		return a.DueDate.Before(*b.DueDate)
	}
	return newerFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
}

func todoNewestLess(a, b *usercontext.Todo) bool {
	return newerFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
}
