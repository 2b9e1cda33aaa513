package ranking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/contextiq/internal/usercontext"
)

func decision(id string, applied int, confidence float64, lastApplied *time.Time) *usercontext.Decision {
	d := usercontext.NewDecision("u1", "decision "+id, usercontext.CategoryOther, usercontext.GlobalScope())
	d.ID = id
	d.AppliedCount = applied
	d.Confidence = confidence
	d.LastApplied = lastApplied
	return d
}

func TestRankDecisions_ScoreOrder(t *testing.T) {
	first := decision("a", 3, 0.8, nil)
	second := decision("b", 1, 0.9, nil)

	got := RankDecisions([]*usercontext.Decision{second, first}, 10)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Decision.ID)
	assert.InDelta(t, 2.4, got[0].Score, 1e-9)
	assert.Equal(t, "b", got[1].Decision.ID)
	assert.Equal(t, 1, got[0].Rank)
	assert.Equal(t, 2, got[1].Rank)
}

func TestRankDecisions_FiltersAndLimits(t *testing.T) {
	ds := []*usercontext.Decision{
		decision("never", 0, 1.0, nil),
		decision("x", 2, 0.5, nil),
		decision("y", 5, 0.5, nil),
		decision("z", 4, 0.5, nil),
	}
	got := RankDecisions(ds, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "y", got[0].Decision.ID)
	assert.Equal(t, "z", got[1].Decision.ID)

	assert.Empty(t, RankDecisions(ds, 0))
	assert.Empty(t, RankDecisions(ds, -1))

	all := RankDecisions(ds, 100)
	for i := 1; i < len(all); i++ {
		assert.GreaterOrEqual(t, all[i-1].Score, all[i].Score)
	}
	for _, r := range all {
		assert.NotEqual(t, "never", r.Decision.ID)
	}
}

func TestRankDecisions_TieBreaks(t *testing.T) {
	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	got := RankDecisions([]*usercontext.Decision{
		decision("c", 1, 0.5, nil),
		decision("b", 1, 0.5, &older),
		decision("d", 1, 0.5, &newer),
		decision("a", 1, 0.5, nil),
	}, 10)

	var ids []string
	for _, r := range got {
		ids = append(ids, r.Decision.ID)
	}
	assert.Equal(t, []string{"d", "b", "a", "c"}, ids)
}

func TestRankDecisions_ReturnsCopies(t *testing.T) {
	d := decision("a", 1, 0.5, nil)
	got := RankDecisions([]*usercontext.Decision{d}, 1)
	got[0].Decision.AppliedCount = 99
	assert.Equal(t, 1, d.AppliedCount)
}

func goal(id string, status usercontext.GoalStatus, priority int, steps ...usercontext.GoalStep) *usercontext.Goal {
	g := usercontext.NewGoal("u1", "goal "+id)
	g.ID = id
	g.Status = status
	g.Priority = priority
	g.Steps = steps
	return g
}

func step(n int, status usercontext.GoalStatus) usercontext.GoalStep {
	return usercontext.GoalStep{Number: n, Description: "step", Status: status}
}

func TestRecommendNextSteps(t *testing.T) {
	goals := []*usercontext.Goal{
		goal("low", usercontext.GoalInProgress, 4, step(1, usercontext.GoalPlanned)),
		goal("planned", usercontext.GoalPlanned, 1, step(1, usercontext.GoalPlanned)),
		goal("high", usercontext.GoalInProgress, 1,
			step(3, usercontext.GoalPlanned),
			step(1, usercontext.GoalCompleted),
			step(2, usercontext.GoalBlocked)),
		goal("done", usercontext.GoalInProgress, 2, step(1, usercontext.GoalCompleted)),
		goal("nosteps", usercontext.GoalInProgress, 2),
	}

	got := RecommendNextSteps(goals)
	require.Len(t, got, 2)
	assert.Equal(t, "high", got[0].GoalID)
	assert.Equal(t, 2, got[0].Step.Number, "first incomplete step in sequence order")
	assert.InDelta(t, 100.0/3, got[0].Completion, 1e-9)
	assert.Equal(t, "low", got[1].GoalID)

	for _, r := range got {
		assert.NotEqual(t, usercontext.GoalCompleted, r.Step.Status)
	}
}

func TestRecommendNextSteps_PriorityTiesByID(t *testing.T) {
	got := RecommendNextSteps([]*usercontext.Goal{
		goal("b", usercontext.GoalInProgress, 2, step(1, usercontext.GoalPlanned)),
		goal("a", usercontext.GoalInProgress, 2, step(1, usercontext.GoalPlanned)),
	})
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].GoalID)
}

func TestRankGoals(t *testing.T) {
	got := RankGoals([]*usercontext.Goal{
		goal("half", usercontext.GoalInProgress, 3, step(1, usercontext.GoalCompleted), step(2, usercontext.GoalPlanned)),
		goal("none-p1", usercontext.GoalPlanned, 1),
		goal("full", usercontext.GoalCompleted, 5, step(1, usercontext.GoalCompleted)),
		goal("none-p2", usercontext.GoalPlanned, 2),
	})
	var ids []string
	for _, g := range got {
		ids = append(ids, g.Goal.ID)
	}
	assert.Equal(t, []string{"full", "half", "none-p1", "none-p2"}, ids)
}
