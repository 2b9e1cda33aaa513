package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/contextiq/internal/usercontext"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// runContract exercises behaviour every Store implementation must share.
func runContract(t *testing.T, open func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("decision lifecycle", func(t *testing.T) {
		s := open(t)
		d := usercontext.NewDecision("u1", "Use Postgres for billing", usercontext.CategoryToolChoice,
			usercontext.ProjectScope("billing")).
			WithReason("team knows it").
			WithProject("billing").
			WithConfidence(0.8)
		d.ReferencedItems = []string{"adr-7"}
		require.NoError(t, s.CreateDecision(ctx, d))

		got, err := s.GetDecision(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, d.Text, got.Text)
		require.NotNil(t, got.Reason)
		assert.Equal(t, "team knows it", *got.Reason)
		assert.Equal(t, "project_id:billing", got.Scope.String())
		assert.Equal(t, []string{"adr-7"}, got.ReferencedItems)
		assert.InDelta(t, 0.8, got.Confidence, 1e-9)
		assert.True(t, got.CreatedAt.Equal(d.CreatedAt))
		assert.Equal(t, usercontext.StatusActive, got.Status)

		got.Text = "Use Postgres everywhere"
		require.NoError(t, s.UpdateDecision(ctx, got))
		again, err := s.GetDecision(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, "Use Postgres everywhere", again.Text)
		assert.NotNil(t, again.UpdatedAt)

		require.NoError(t, s.ArchiveDecision(ctx, d.ID))
		archived, err := s.GetDecision(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, usercontext.StatusArchived, archived.Status)

		require.NoError(t, s.DeleteDecision(ctx, d.ID))
		_, err = s.GetDecision(ctx, d.ID)
		assert.ErrorIs(t, err, usercontext.ErrNotFound)
	})

	t.Run("unknown ids", func(t *testing.T) {
		s := open(t)
		_, err := s.GetGoal(ctx, "missing")
		assert.ErrorIs(t, err, usercontext.ErrNotFound)
		assert.ErrorIs(t, s.DeleteIssue(ctx, "missing"), usercontext.ErrNotFound)
		assert.ErrorIs(t, s.IncrementAppliedCount(ctx, "missing"), usercontext.ErrNotFound)
		assert.ErrorIs(t, s.IncrementFrequency(ctx, "missing"), usercontext.ErrNotFound)
		assert.ErrorIs(t, s.UpdateTodoStatus(ctx, "missing", usercontext.TodoCompleted), usercontext.ErrNotFound)

		d := usercontext.NewDecision("u1", "ghost", usercontext.CategoryOther, usercontext.GlobalScope())
		assert.ErrorIs(t, s.UpdateDecision(ctx, d), usercontext.ErrNotFound)
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		s := open(t)
		d := usercontext.NewDecision("u1", "x", usercontext.CategoryOther, usercontext.GlobalScope())
		d.Confidence = 1.5
		assert.ErrorIs(t, s.CreateDecision(ctx, d), usercontext.ErrInvalidRange)

		g := usercontext.NewGoal("", "no owner")
		assert.ErrorIs(t, s.CreateGoal(ctx, g), usercontext.ErrInvalidInput)

		p := usercontext.NewPreference("u1", "editor", "vim", usercontext.PreferenceTool, usercontext.GlobalScope())
		p.Priority = 9
		assert.ErrorIs(t, s.CreatePreference(ctx, p), usercontext.ErrInvalidRange)

		ok := usercontext.NewDecision("u1", "once", usercontext.CategoryOther, usercontext.GlobalScope())
		require.NoError(t, s.CreateDecision(ctx, ok))
		assert.ErrorIs(t, s.CreateDecision(ctx, ok), usercontext.ErrInvalidInput)
	})

	t.Run("decisions newest first", func(t *testing.T) {
		s := open(t)
		for i, text := range []string{"first", "second", "third"} {
			d := usercontext.NewDecision("u1", text, usercontext.CategoryOther, usercontext.GlobalScope())
			d.CreatedAt = t0.Add(time.Duration(i) * time.Minute)
			require.NoError(t, s.CreateDecision(ctx, d))
		}
		other := usercontext.NewDecision("u2", "foreign", usercontext.CategoryOther, usercontext.GlobalScope())
		require.NoError(t, s.CreateDecision(ctx, other))

		list, err := s.ListDecisions(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, "third", list[0].Text)
		assert.Equal(t, "first", list[2].Text)
	})

	t.Run("decision secondary finds", func(t *testing.T) {
		s := open(t)
		a := usercontext.NewDecision("u1", "a", usercontext.CategorySecurity, usercontext.ProjectScope("p1"))
		b := usercontext.NewDecision("u1", "b", usercontext.CategorySecurity, usercontext.GlobalScope())
		c := usercontext.NewDecision("u1", "c", usercontext.CategoryWorkflow, usercontext.WorkflowScope("release"))
		for _, d := range []*usercontext.Decision{a, b, c} {
			require.NoError(t, s.CreateDecision(ctx, d))
		}

		byScope, err := s.ListDecisionsByScope(ctx, "u1", usercontext.ProjectScope("p1"))
		require.NoError(t, err)
		require.Len(t, byScope, 1)
		assert.Equal(t, a.ID, byScope[0].ID)

		byWorkflow, err := s.ListDecisionsByScope(ctx, "u1", usercontext.WorkflowScope("release"))
		require.NoError(t, err)
		require.Len(t, byWorkflow, 1)
		assert.Equal(t, c.ID, byWorkflow[0].ID)

		byCategory, err := s.ListDecisionsByCategory(ctx, "u1", usercontext.CategorySecurity)
		require.NoError(t, err)
		assert.Len(t, byCategory, 2)
	})

	t.Run("update preserves counters", func(t *testing.T) {
		s := open(t)
		d := usercontext.NewDecision("u1", "counted", usercontext.CategoryOther, usercontext.GlobalScope())
		require.NoError(t, s.CreateDecision(ctx, d))
		require.NoError(t, s.IncrementAppliedCount(ctx, d.ID))
		require.NoError(t, s.IncrementAppliedCount(ctx, d.ID))

		stale := d.Clone()
		stale.AppliedCount = 0
		stale.Text = "counted, renamed"
		require.NoError(t, s.UpdateDecision(ctx, stale))

		got, err := s.GetDecision(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, got.AppliedCount)
		assert.NotNil(t, got.LastApplied)
		assert.Equal(t, "counted, renamed", got.Text)

		p := usercontext.NewPreference("u1", "indent", "tabs", usercontext.PreferencePattern, usercontext.GlobalScope())
		require.NoError(t, s.CreatePreference(ctx, p))
		require.NoError(t, s.IncrementFrequency(ctx, p.ID))
		p.FrequencyObserved = 0
		p.Value = "spaces"
		require.NoError(t, s.UpdatePreference(ctx, p))

		gotPref, err := s.GetPreference(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, gotPref.FrequencyObserved)
		assert.Equal(t, "spaces", gotPref.Value)
		assert.NotNil(t, gotPref.LastReferenced)
	})

	t.Run("concurrent increments are not lost", func(t *testing.T) {
		s := open(t)
		d := usercontext.NewDecision("u1", "hot", usercontext.CategoryOther, usercontext.GlobalScope())
		p := usercontext.NewPreference("u1", "hot", "yes", usercontext.PreferenceOther, usercontext.GlobalScope())
		require.NoError(t, s.CreateDecision(ctx, d))
		require.NoError(t, s.CreatePreference(ctx, p))

		const n = 25
		var wg sync.WaitGroup
		errs := make(chan error, 2*n)
		for i := 0; i < n; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				errs <- s.IncrementAppliedCount(ctx, d.ID)
			}()
			go func() {
				defer wg.Done()
				errs <- s.IncrementFrequency(ctx, p.ID)
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		gotD, err := s.GetDecision(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, n, gotD.AppliedCount)

		gotP, err := s.GetPreference(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, n+1, gotP.FrequencyObserved)
	})

	t.Run("goals", func(t *testing.T) {
		s := open(t)
		g := usercontext.NewGoal("u1", "ship billing").WithProject("billing").WithPriority(1)
		g.AddStep(usercontext.NewGoalStep(0, "design schema"), t0)
		g.AddStep(usercontext.NewGoalStep(0, "write handlers"), t0)
		low := usercontext.NewGoal("u1", "tidy docs").WithPriority(4)
		require.NoError(t, s.CreateGoal(ctx, low))
		require.NoError(t, s.CreateGoal(ctx, g))

		list, err := s.ListGoals(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, g.ID, list[0].ID, "priority 1 first")
		require.Len(t, list[0].Steps, 2)
		assert.Equal(t, 2, list[0].Steps[1].Number)
		assert.Equal(t, "write handlers", list[0].Steps[1].Description)

		byProject, err := s.ListGoalsByProject(ctx, "u1", "billing")
		require.NoError(t, err)
		require.Len(t, byProject, 1)

		require.NoError(t, s.UpdateGoalStatus(ctx, g.ID, usercontext.GoalInProgress))
		inProgress, err := s.ListGoalsByStatus(ctx, "u1", usercontext.GoalInProgress)
		require.NoError(t, err)
		require.Len(t, inProgress, 1)
		assert.Nil(t, inProgress[0].CompletionDate)

		require.NoError(t, s.UpdateGoalStatus(ctx, g.ID, usercontext.GoalCompleted))
		done, err := s.GetGoal(ctx, g.ID)
		require.NoError(t, err)
		assert.Equal(t, usercontext.GoalCompleted, done.Status)
		assert.NotNil(t, done.CompletionDate)

		done.Steps[0].Status = usercontext.GoalCompleted
		done.Blockers = []string{"waiting on review"}
		require.NoError(t, s.UpdateGoal(ctx, done))
		updated, err := s.GetGoal(ctx, g.ID)
		require.NoError(t, err)
		assert.InDelta(t, 50.0, updated.CompletionPercentage(), 1e-9)
		assert.Equal(t, []string{"waiting on review"}, updated.Blockers)

		require.NoError(t, s.DeleteGoal(ctx, low.ID))
		_, err = s.GetGoal(ctx, low.ID)
		assert.ErrorIs(t, err, usercontext.ErrNotFound)
	})

	t.Run("preferences", func(t *testing.T) {
		s := open(t)
		frequent := usercontext.NewPreference("u1", "formatter", "gofmt", usercontext.PreferenceTool, usercontext.GlobalScope()).
			WithTags([]string{"golang", "formatting"})
		manual := usercontext.NewPreference("u1", "review", "by hand", usercontext.PreferenceConstraint, usercontext.ProjectScope("p1"))
		manual.AppliesToAutomation = false
		rare := usercontext.NewPreference("u1", "linter", "staticcheck", usercontext.PreferenceTool, usercontext.GlobalScope())
		for _, p := range []*usercontext.Preference{frequent, manual, rare} {
			require.NoError(t, s.CreatePreference(ctx, p))
		}
		require.NoError(t, s.IncrementFrequency(ctx, frequent.ID))

		auto, err := s.ListAutomationPreferences(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, auto, 2)
		assert.Equal(t, frequent.ID, auto[0].ID, "most observed first")
		assert.Equal(t, []string{"golang", "formatting"}, auto[0].Tags)

		tools, err := s.ListPreferencesByType(ctx, "u1", usercontext.PreferenceTool)
		require.NoError(t, err)
		assert.Len(t, tools, 2)

		scoped, err := s.ListPreferencesByScope(ctx, "u1", usercontext.ProjectScope("p1"))
		require.NoError(t, err)
		require.Len(t, scoped, 1)
		assert.False(t, scoped[0].AppliesToAutomation)

		all, err := s.ListPreferences(ctx, "u1")
		require.NoError(t, err)
		assert.Len(t, all, 3)

		require.NoError(t, s.DeletePreference(ctx, rare.ID))
		_, err = s.GetPreference(ctx, rare.ID)
		assert.ErrorIs(t, err, usercontext.ErrNotFound)
	})

	t.Run("issues", func(t *testing.T) {
		s := open(t)
		webhook := usercontext.NewIssue("u1", "webhook times out", usercontext.SeverityMedium, usercontext.IssuePerformance).
			WithComponents("Payment-Webhook", "worker").
			WithWorkaround("restart the worker")
		webhook.AddSymptom("504 from gateway")
		webhook.LearnedDate = t0
		outage := usercontext.NewIssue("u1", "db outage", usercontext.SeverityCritical, usercontext.IssueData).
			WithComponents("postgres")
		outage.LearnedDate = t0.Add(time.Hour)
		for _, i := range []*usercontext.Issue{webhook, outage} {
			require.NoError(t, s.CreateIssue(ctx, i))
		}

		list, err := s.ListIssues(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, outage.ID, list[0].ID, "most recently learned first")

		unresolved, err := s.ListIssuesByStatus(ctx, "u1", usercontext.ResolutionUnresolved)
		require.NoError(t, err)
		require.Len(t, unresolved, 2)
		assert.Equal(t, usercontext.SeverityCritical, unresolved[0].Severity)

		byComponent, err := s.ListIssuesByComponent(ctx, "u1", " payment-webhook ")
		require.NoError(t, err)
		require.Len(t, byComponent, 1)
		got := byComponent[0]
		assert.Equal(t, []string{"504 from gateway"}, got.Symptoms)
		require.NotNil(t, got.Workaround)
		assert.Equal(t, "restart the worker", *got.Workaround)

		none, err := s.ListIssuesByComponent(ctx, "u1", "pay")
		require.NoError(t, err)
		assert.Empty(t, none, "component match is exact")

		bySeverity, err := s.ListIssuesBySeverity(ctx, "u1", usercontext.SeverityCritical)
		require.NoError(t, err)
		assert.Len(t, bySeverity, 1)

		byCategory, err := s.ListIssuesByCategory(ctx, "u1", usercontext.IssuePerformance)
		require.NoError(t, err)
		assert.Len(t, byCategory, 1)

		require.NoError(t, s.MarkIssueResolved(ctx, outage.ID, usercontext.ResolutionFixed))
		fixed, err := s.GetIssue(ctx, outage.ID)
		require.NoError(t, err)
		assert.Equal(t, usercontext.ResolutionFixed, fixed.ResolutionStatus)
		assert.NotNil(t, fixed.ResolutionDate)
		assert.True(t, fixed.LearnedDate.Equal(outage.LearnedDate))

		root := "connection pool exhausted"
		fixed.RootCause = &root
		require.NoError(t, s.UpdateIssue(ctx, fixed))
		again, err := s.GetIssue(ctx, outage.ID)
		require.NoError(t, err)
		require.NotNil(t, again.RootCause)
		assert.Equal(t, root, *again.RootCause)
	})

	t.Run("todos", func(t *testing.T) {
		s := open(t)
		due := t0.Add(48 * time.Hour)
		soon := usercontext.NewTodo("u1", "migrate schema", usercontext.TodoGoalStep).
			LinkTo("goal-1", usercontext.EntityGoal).WithPriority(2)
		soon.DueDate = &due
		undated := usercontext.NewTodo("u1", "write runbook", usercontext.TodoIssueResolution).WithPriority(2)
		urgent := usercontext.NewTodo("u1", "rotate keys", usercontext.TodoOther).WithPriority(1)
		project := "billing"
		urgent.ProjectID = &project
		for _, td := range []*usercontext.Todo{undated, soon, urgent} {
			require.NoError(t, s.CreateTodo(ctx, td))
		}

		list, err := s.ListTodos(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, []string{urgent.ID, soon.ID, undated.ID}, []string{list[0].ID, list[1].ID, list[2].ID})

		linked, err := s.ListTodosByEntity(ctx, "goal-1")
		require.NoError(t, err)
		require.Len(t, linked, 1)
		require.NotNil(t, linked[0].RelatedEntityType)
		assert.Equal(t, usercontext.EntityGoal, *linked[0].RelatedEntityType)
		require.NotNil(t, linked[0].DueDate)
		assert.True(t, linked[0].DueDate.Equal(due))

		byProject, err := s.ListTodosByProject(ctx, "u1", "billing")
		require.NoError(t, err)
		require.Len(t, byProject, 1)

		require.NoError(t, s.UpdateTodoStatus(ctx, soon.ID, usercontext.TodoCompleted))
		completed, err := s.ListTodosByStatus(ctx, "u1", usercontext.TodoCompleted)
		require.NoError(t, err)
		require.Len(t, completed, 1)
		assert.NotNil(t, completed[0].CompletionDate)

		undated.Description = "write the runbook"
		require.NoError(t, s.UpdateTodo(ctx, undated))
		got, err := s.GetTodo(ctx, undated.ID)
		require.NoError(t, err)
		assert.Equal(t, "write the runbook", got.Description)

		require.NoError(t, s.DeleteTodo(ctx, undated.ID))
		_, err = s.GetTodo(ctx, undated.ID)
		assert.ErrorIs(t, err, usercontext.ErrNotFound)
	})

	t.Run("reads are copies", func(t *testing.T) {
		s := open(t)
		d := usercontext.NewDecision("u1", "copy me", usercontext.CategoryOther, usercontext.GlobalScope())
		d.ReferencedItems = []string{"a"}
		require.NoError(t, s.CreateDecision(ctx, d))
		d.ReferencedItems[0] = "mutated"

		got, err := s.GetDecision(ctx, d.ID)
		require.NoError(t, err)
		got.ReferencedItems[0] = "changed"

		again, err := s.GetDecision(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, again.ReferencedItems)
	})

	t.Run("audit and owners", func(t *testing.T) {
		s := open(t)
		for i := 0; i < 3; i++ {
			e := usercontext.NewAuditEntry("u1", usercontext.EntityDecision, fmt.Sprintf("d%d", i), usercontext.AuditCreate, "cli")
			e.ChangedAt = t0.Add(time.Duration(i) * time.Second)
			require.NoError(t, s.AppendAudit(ctx, e.WithValues("", "{}")))
		}
		require.NoError(t, s.AppendAudit(ctx,
			usercontext.NewAuditEntry("u2", usercontext.EntityGoal, "g1", usercontext.AuditDelete, "api")))

		entries, err := s.ListAudit(ctx, "u1", 2)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "d2", entries[0].EntityID)
		assert.Equal(t, "d1", entries[1].EntityID)
		assert.Nil(t, entries[0].OldValue)
		require.NotNil(t, entries[0].NewValue)
		assert.Equal(t, "{}", *entries[0].NewValue)

		all, err := s.ListAudit(ctx, "u1", 0)
		require.NoError(t, err)
		assert.Len(t, all, 3)

		require.NoError(t, s.CreateGoal(ctx, usercontext.NewGoal("zed", "g")))
		require.NoError(t, s.CreateTodo(ctx, usercontext.NewTodo("amy", "t", usercontext.TodoOther)))
		require.NoError(t, s.CreateTodo(ctx, usercontext.NewTodo("zed", "t2", usercontext.TodoOther)))

		owners, err := s.ListOwners(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"amy", "zed"}, owners, "audit-only owners are not listed")
	})
}

func TestMemory_Contract(t *testing.T) {
	runContract(t, func(t *testing.T) Store { return NewMemory() })
}

func TestSQLite_Contract(t *testing.T) {
	runContract(t, func(t *testing.T) Store { return newTestSQLite(t) })
}

func TestInstrumented_Contract(t *testing.T) {
	runContract(t, func(t *testing.T) Store { return Instrument(NewMemory()) })
}
