package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/contextiq/internal/usercontext"
)

const owner = "u1"

func TestValidate_PreferenceViolation(t *testing.T) {
	pref := usercontext.NewPreference(owner, "no-sync-io", "true", usercontext.PreferenceConstraint, usercontext.GlobalScope())
	action := Action{
		Type:       "file_write",
		Target:     "config loader",
		Parameters: map[string]string{"mode": "sync io"},
	}

	v := Validate(action, owner, Snapshot{Preferences: []*usercontext.Preference{pref}})
	assert.False(t, v.IsValid)
	require.Len(t, v.Violations, 1)
	assert.Contains(t, v.Violations[0], "no-sync-io")
}

func TestValidate_PreferenceNotEnforcedOnAutomationIsIgnored(t *testing.T) {
	pref := usercontext.NewPreference(owner, "no-sync-io", "true", usercontext.PreferenceConstraint, usercontext.GlobalScope())
	pref.AppliesToAutomation = false

	v := Validate(Action{Type: "write", Target: "sync io"}, owner, Snapshot{Preferences: []*usercontext.Preference{pref}})
	assert.True(t, v.IsValid)
	assert.Empty(t, v.Warnings)
}

func TestValidate_PreferenceOverlapIsWarning(t *testing.T) {
	pref := usercontext.NewPreference(owner, "editor", "neovim", usercontext.PreferenceTool, usercontext.GlobalScope())

	v := Validate(Action{Type: "configure", Target: "neovim plugins"}, owner, Snapshot{Preferences: []*usercontext.Preference{pref}})
	assert.True(t, v.IsValid)
	require.Len(t, v.Warnings, 1)
	assert.Contains(t, v.Warnings[0], "editor = neovim")
}

func TestValidate_Decisions(t *testing.T) {
	applied := usercontext.NewDecision(owner, "Use postgres for billing", usercontext.CategoryToolChoice, usercontext.GlobalScope())
	forbidden := usercontext.NewDecision(owner, "Never use mongodb", usercontext.CategoryConstraint, usercontext.GlobalScope())
	archived := usercontext.NewDecision(owner, "Never use postgres", usercontext.CategoryConstraint, usercontext.GlobalScope())
	archived.Archive(time.Now())
	foreign := usercontext.NewDecision("u2", "Never use postgres", usercontext.CategoryConstraint, usercontext.GlobalScope())

	snap := Snapshot{Decisions: []*usercontext.Decision{applied, forbidden, archived, foreign}}

	v := Validate(Action{Type: "migrate", Target: "billing postgres schema"}, owner, snap)
	assert.True(t, v.IsValid)
	assert.Equal(t, []string{applied.ID + ": Use postgres for billing"}, v.AppliedDecisions)
	assert.Equal(t, []string{applied.ID}, v.AppliedDecisionIDs)

	v = Validate(Action{Type: "add", Target: "mongodb cache"}, owner, snap)
	assert.False(t, v.IsValid)
	require.Len(t, v.Violations, 1)
	assert.Contains(t, v.Violations[0], forbidden.ID)
	assert.Empty(t, v.AppliedDecisions)
}

func TestValidate_ParameterValuesDoNotSetPolarity(t *testing.T) {
	forbidden := usercontext.NewDecision(owner, "Never use mongodb", usercontext.CategoryConstraint, usercontext.GlobalScope())
	helm := usercontext.NewDecision(owner, "Deploy the api with helm", usercontext.CategoryToolChoice, usercontext.GlobalScope())

	v := Validate(Action{
		Type:       "write",
		Target:     "mongodb",
		Parameters: map[string]string{"cache": "no"},
	}, owner, Snapshot{Decisions: []*usercontext.Decision{forbidden}})
	assert.False(t, v.IsValid)
	require.Len(t, v.Violations, 1)
	assert.Contains(t, v.Violations[0], forbidden.ID)
	assert.Empty(t, v.AppliedDecisions)

	v = Validate(Action{
		Type:       "deploy",
		Target:     "api",
		Parameters: map[string]string{"dry_run": "no"},
	}, owner, Snapshot{Decisions: []*usercontext.Decision{helm}})
	assert.True(t, v.IsValid)
	assert.Empty(t, v.Violations)
	assert.Equal(t, []string{helm.ID}, v.AppliedDecisionIDs)
}

func TestValidate_ParameterTokensStillMatch(t *testing.T) {
	forbidden := usercontext.NewDecision(owner, "Never use mongodb", usercontext.CategoryConstraint, usercontext.GlobalScope())

	v := Validate(Action{
		Type:       "configure",
		Target:     "session store",
		Parameters: map[string]string{"backend": "mongodb"},
	}, owner, Snapshot{Decisions: []*usercontext.Decision{forbidden}})
	assert.False(t, v.IsValid)
	require.Len(t, v.Violations, 1)
}

func TestValidate_IssueWorkarounds(t *testing.T) {
	open := usercontext.NewIssue(owner, "gateway drops connections", usercontext.SeverityHigh, usercontext.IssueIntegration).
		WithComponents("payment-gateway").
		WithWorkaround("restart the gateway")
	fixed := usercontext.NewIssue(owner, "old bug", usercontext.SeverityLow, usercontext.IssueOther).
		WithComponents("payment-gateway").
		WithWorkaround("ignore it")
	fixed.MarkResolved(usercontext.ResolutionFixed, time.Now())
	noWorkaround := usercontext.NewIssue(owner, "slow", usercontext.SeverityMedium, usercontext.IssuePerformance).
		WithComponents("payment-gateway")

	snap := Snapshot{Issues: []*usercontext.Issue{open, fixed, noWorkaround}}
	v := Validate(Action{Type: "deploy", Target: "payment-gateway"}, owner, snap)

	assert.True(t, v.IsValid, "workarounds never affect validity")
	assert.Equal(t, []string{"restart the gateway"}, v.ApplicableWorkarounds)
	require.Len(t, v.Warnings, 1)
	assert.Contains(t, v.Warnings[0], "restart the gateway")

	v = Validate(Action{Type: "deploy", Target: "frontend"}, owner, snap)
	assert.Empty(t, v.ApplicableWorkarounds)

	build := usercontext.NewIssue(owner, "node 22 breaks the build", usercontext.SeverityMedium, usercontext.IssueDeployment).
		WithComponents("build").
		WithWorkaround("pin the node version")
	v = Validate(Action{Type: "refactor", Target: "ui"}, owner, Snapshot{Issues: []*usercontext.Issue{build}})
	assert.Empty(t, v.ApplicableWorkarounds, "ui is not part of build")
	assert.Empty(t, v.Warnings)
}

func TestValidate_GoalRecommendations(t *testing.T) {
	now := time.Now()
	active := usercontext.NewGoal(owner, "Launch billing dashboard")
	active.SetStatus(usercontext.GoalInProgress, now)

	byStep := usercontext.NewGoal(owner, "Q3 launch")
	byStep.SetStatus(usercontext.GoalInProgress, now)
	byStep.AddStep(usercontext.NewGoalStep(1, "write onboarding docs"), now)
	done := usercontext.GoalStep{Number: 2, Description: "record kubernetes demo", Status: usercontext.GoalCompleted}
	byStep.AddStep(done, now)

	planned := usercontext.NewGoal(owner, "Launch billing dashboard v2")

	snap := Snapshot{Goals: []*usercontext.Goal{active, byStep, planned}}

	v := Validate(Action{Type: "build", Target: "billing dashboard charts"}, owner, snap)
	assert.Equal(t, []string{"aligned with goal " + active.ID + ": Launch billing dashboard"}, v.Recommendations)

	v = Validate(Action{Type: "edit", Target: "onboarding docs"}, owner, snap)
	require.Len(t, v.Recommendations, 1)
	assert.Contains(t, v.Recommendations[0], byStep.ID)

	v = Validate(Action{Type: "edit", Target: "kubernetes demo"}, owner, snap)
	assert.Empty(t, v.Recommendations, "completed steps do not align")
}

func TestValidate_PureAndStable(t *testing.T) {
	d := usercontext.NewDecision(owner, "Never use mongodb", usercontext.CategoryConstraint, usercontext.GlobalScope())
	p := usercontext.NewPreference(owner, "editor", "neovim", usercontext.PreferenceTool, usercontext.GlobalScope())
	snap := Snapshot{Decisions: []*usercontext.Decision{d}, Preferences: []*usercontext.Preference{p}}
	action := Action{Type: "add", Target: "mongodb", Parameters: map[string]string{"b": "neovim", "a": "x"}}

	first := Validate(action, owner, snap)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Validate(action, owner, snap))
	}
	assert.Equal(t, len(first.Violations) == 0, first.IsValid)
	assert.Equal(t, 0, d.AppliedCount)
}

func TestValidate_EmptySnapshot(t *testing.T) {
	v := Validate(Action{Type: "noop"}, owner, Snapshot{})
	assert.True(t, v.IsValid)
	assert.NotNil(t, v.Warnings)
	assert.NotNil(t, v.Violations)
	assert.NotNil(t, v.AppliedDecisions)
	assert.NotNil(t, v.ApplicableWorkarounds)
	assert.NotNil(t, v.Recommendations)
}
