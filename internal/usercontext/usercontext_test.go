package usercontext

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScope(t *testing.T) {
	tests := []struct {
		in       string
		wantKind ScopeKind
		wantVal  string
		wantStr  string
	}{
		{"global", ScopeGlobal, "", "global"},
		{"project_id:api", ScopeProject, "api", "project_id:api"},
		{"workflow:release", ScopeWorkflow, "release", "workflow:release"},
		{"something-else", ScopeGlobal, "", "global"},
		{"", ScopeGlobal, "", "global"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			s := ParseScope(tt.in)
			assert.Equal(t, tt.wantKind, s.Kind())
			assert.Equal(t, tt.wantVal, s.Value())
			assert.Equal(t, tt.wantStr, s.String())
		})
	}
}

func TestScope_Matches(t *testing.T) {
	assert.True(t, GlobalScope().Matches("api"))
	assert.True(t, ProjectScope("api").Matches("api"))
	assert.False(t, ProjectScope("api").Matches("web"))
	assert.True(t, WorkflowScope("release").Matches("web"))
	assert.True(t, ProjectScope("api").Matches(""))
}

func TestScope_JSON(t *testing.T) {
	d := NewDecision("u1", "use postgres", CategoryToolChoice, ProjectScope("api"))
	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scope":"project_id:api"`)

	var back Decision
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, ProjectScope("api"), back.Scope)
}

func TestUnknownEnumValuesFallBack(t *testing.T) {
	var d Decision
	require.NoError(t, json.Unmarshal([]byte(`{"decision_category":"technology","status":"weird"}`), &d))
	assert.Equal(t, CategoryOther, d.Category)
	assert.Equal(t, StatusActive, d.Status)

	assert.Equal(t, SeverityCritical, ParseSeverity("unknown"))
	assert.Equal(t, GoalPlanned, ParseGoalStatus(""))
	assert.Equal(t, TodoOther, ParseTodoContextType("chore"))
}

func TestSeverity_TotalOrder(t *testing.T) {
	order := []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}
	for i := 0; i < len(order)-1; i++ {
		assert.True(t, order[i].MoreSevere(order[i+1]), "%s should outrank %s", order[i], order[i+1])
		assert.False(t, order[i+1].MoreSevere(order[i]))
	}
}

func TestValidateRanges(t *testing.T) {
	assert.NoError(t, ValidateConfidence(0))
	assert.NoError(t, ValidateConfidence(1))
	assert.True(t, errors.Is(ValidateConfidence(1.01), ErrInvalidRange))
	assert.True(t, errors.Is(ValidateConfidence(-0.1), ErrInvalidRange))

	assert.NoError(t, ValidatePriority(1))
	assert.NoError(t, ValidatePriority(5))
	assert.True(t, errors.Is(ValidatePriority(0), ErrInvalidRange))
	assert.True(t, errors.Is(ValidatePriority(6), ErrInvalidRange))
}

func TestBuildersClamp(t *testing.T) {
	d := NewDecision("u1", "x", CategoryOther, GlobalScope()).WithConfidence(1.7)
	assert.Equal(t, 1.0, d.Confidence)
	d.WithConfidence(-3)
	assert.Equal(t, 0.0, d.Confidence)

	g := NewGoal("u1", "ship").WithPriority(9)
	assert.Equal(t, 5, g.Priority)
	g.WithPriority(-1)
	assert.Equal(t, 1, g.Priority)
}

func TestDefaults(t *testing.T) {
	d := NewDecision("u1", "x", CategoryOther, GlobalScope())
	assert.Equal(t, DefaultConfidence, d.Confidence)
	assert.Equal(t, StatusActive, d.Status)
	assert.Nil(t, d.UpdatedAt)
	assert.NotEmpty(t, d.ID)

	p := NewPreference("u1", "editor", "vim", PreferenceTool, GlobalScope())
	assert.True(t, p.AppliesToAutomation)
	assert.Equal(t, 1, p.FrequencyObserved)
	assert.Equal(t, DefaultPriority, p.Priority)

	todo := NewTodo("u1", "write docs", TodoOther)
	assert.Equal(t, TodoPending, todo.Status)
}

func TestGoal_CompletionPercentage(t *testing.T) {
	now := time.Now()
	g := NewGoal("u1", "launch")
	assert.Equal(t, 0.0, g.CompletionPercentage())

	g.AddStep(NewGoalStep(1, "design"), now)
	g.AddStep(NewGoalStep(2, "build"), now)
	g.AddStep(NewGoalStep(3, "test"), now)
	g.AddStep(NewGoalStep(4, "ship"), now)
	g.Steps[0].Status = GoalCompleted
	assert.Equal(t, 25.0, g.CompletionPercentage())
	require.NotNil(t, g.UpdatedAt)
}

func TestGoal_NextStepUsesSequenceOrder(t *testing.T) {
	now := time.Now()
	g := NewGoal("u1", "launch")
	g.AddStep(GoalStep{Number: 3, Description: "ship", Status: GoalPlanned}, now)
	g.AddStep(GoalStep{Number: 1, Description: "design", Status: GoalCompleted}, now)
	g.AddStep(GoalStep{Number: 2, Description: "build", Status: GoalBlocked}, now)

	step, ok := g.NextStep()
	require.True(t, ok)
	assert.Equal(t, 2, step.Number)

	g.AddStep(GoalStep{Description: "retro"}, now)
	assert.Equal(t, 4, g.Steps[len(g.Steps)-1].Number)
}

func TestCloneIsDeep(t *testing.T) {
	p := NewPreference("u1", "lint", "strict", PreferenceConstraint, GlobalScope()).WithTags([]string{"go"})
	c := p.Clone()
	c.Tags[0] = "python"
	assert.Equal(t, "go", p.Tags[0])

	g := NewGoal("u1", "x")
	g.AddStep(NewGoalStep(1, "a"), time.Now())
	gc := g.Clone()
	gc.Steps[0].Description = "b"
	assert.Equal(t, "a", g.Steps[0].Description)
}

func TestIssue_AffectsComponent(t *testing.T) {
	i := NewIssue("u1", "timeouts", SeverityHigh, IssueIntegration).WithComponents("Payment-Gateway", "db")
	assert.True(t, i.AffectsComponent("payment-gateway"))
	assert.True(t, i.AffectsComponent("deploy payment-gateway v2"))
	assert.False(t, i.AffectsComponent("frontend"))
	assert.False(t, i.AffectsComponent(" "))
	assert.True(t, i.AffectsComponent("payment"), "target naming part of a component")
	assert.True(t, i.AffectsComponent("DB"))
}

func TestIssue_AffectsComponent_SegmentBoundaries(t *testing.T) {
	tests := []struct {
		component string
		target    string
		want      bool
	}{
		{"build", "ui", false},
		{"rapid-deploy", "api", false},
		{"api", "rapid-deploy", false},
		{"payment-gateway", "gate", false},
		{"build", "build pipeline", true},
		{"rapid-deploy", "deploy", true},
		{"auth_service", "auth service", true},
	}
	for _, tt := range tests {
		t.Run(tt.component+"/"+tt.target, func(t *testing.T) {
			i := NewIssue("u1", "flaky", SeverityMedium, IssueOther).WithComponents(tt.component)
			assert.Equal(t, tt.want, i.AffectsComponent(tt.target))
		})
	}
}

func TestCountersOnlyIncrease(t *testing.T) {
	now := time.Now()
	d := NewDecision("u1", "x", CategoryOther, GlobalScope())
	d.RecordApplication(now)
	d.RecordApplication(now)
	assert.Equal(t, 2, d.AppliedCount)
	require.NotNil(t, d.LastApplied)

	p := NewPreference("u1", "n", "v", PreferenceOther, GlobalScope())
	p.ObserveAgain(now)
	assert.Equal(t, 2, p.FrequencyObserved)
}

func TestValidate_RequiredFields(t *testing.T) {
	d := &Decision{OwnerID: "u1"}
	assert.True(t, errors.Is(d.Validate(), ErrInvalidInput))
	d.Text = "x"
	d.Confidence = 2
	assert.True(t, errors.Is(d.Validate(), ErrInvalidRange))

	g := &Goal{OwnerID: "u1", Text: "x"}
	g.Normalize()
	assert.NoError(t, g.Validate())
	assert.Equal(t, DefaultPriority, g.Priority)
}

func TestParseKinds(t *testing.T) {
	all, err := ParseKinds()
	require.NoError(t, err)
	assert.Equal(t, AllKinds(), all)

	all, err = ParseKinds("goals", "ALL")
	require.NoError(t, err)
	assert.Equal(t, AllKinds(), all)

	got, err := ParseKinds("todos", " decisions ", "todos")
	require.NoError(t, err)
	assert.Equal(t, []Kind{KindDecisions, KindTodos}, got)

	_, err = ParseKinds("secrets")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestBundle_Counts(t *testing.T) {
	b := &Bundle{
		Kinds:     []Kind{KindDecisions, KindTodos},
		Decisions: []*Decision{NewDecision("u1", "a", CategoryOther, GlobalScope())},
		Goals:     []*Goal{NewGoal("u1", "ignored")},
	}
	assert.True(t, b.Has(KindTodos))
	assert.False(t, b.Has(KindGoals))
	assert.Equal(t, map[Kind]int{KindDecisions: 1, KindTodos: 0}, b.Counts())
}
