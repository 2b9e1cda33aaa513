// Package ranking orders stored decisions and goals by observed
// effectiveness.
package ranking

import (
	"fmt"
	"sort"

	"github.com/fyrsmithlabs/contextiq/internal/usercontext"
)

// RankedDecision is a decision with its effectiveness score.
type RankedDecision struct {
	Rank     int                   `json:"rank"`
	Score    float64               `json:"score"`
	Decision *usercontext.Decision `json:"decision"`
}

// RankDecisions keeps decisions applied at least once, scores them by
// applied_count × confidence and returns at most limit of them, best first.
// Ties go to the more recently applied decision, then to the lower id.
func RankDecisions(decisions []*usercontext.Decision, limit int) []RankedDecision {
	out := []RankedDecision{}
	if limit <= 0 {
		return out
	}
	for _, d := range decisions {
		if d == nil || d.AppliedCount <= 0 {
			continue
		}
		out = append(out, RankedDecision{Score: d.Effectiveness(), Decision: d.Clone()})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if la, lb := a.Decision.LastApplied, b.Decision.LastApplied; la != nil || lb != nil {
			switch {
			case lb == nil:
				return true
			case la == nil:
				return false
			case !la.Equal(*lb):
				return la.After(*lb)
			}
		}
		return a.Decision.ID < b.Decision.ID
	})

	if len(out) > limit {
		out = out[:limit]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// Recommendation suggests the next step of an in-progress goal.
type Recommendation struct {
	GoalID     string               `json:"goal_id"`
	GoalText   string               `json:"goal_text"`
	Priority   int                  `json:"priority"`
	Completion float64              `json:"completion_percentage"`
	Step       usercontext.GoalStep `json:"next_step"`
	Message    string               `json:"message"`
}

// RecommendNextSteps emits one recommendation per in-progress goal that
// still has an incomplete step, choosing the first such step in sequence
// order. Results are ordered by goal priority, then goal id.
func RecommendNextSteps(goals []*usercontext.Goal) []Recommendation {
	out := []Recommendation{}
	for _, g := range goals {
		if g == nil || g.Status != usercontext.GoalInProgress {
			continue
		}
		step, ok := g.NextStep()
		if !ok {
			continue
		}
		out = append(out, Recommendation{
			GoalID:     g.ID,
			GoalText:   g.Text,
			Priority:   g.Priority,
			Completion: g.CompletionPercentage(),
			Step:       step,
			Message:    fmt.Sprintf("next for %q: step %d, %s", g.Text, step.Number, step.Description),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].GoalID < out[j].GoalID
	})
	return out
}

// GoalProgress pairs a goal with its completion percentage.
type GoalProgress struct {
	Goal       *usercontext.Goal `json:"goal"`
	Completion float64           `json:"completion_percentage"`
}

// RankGoals orders goals by completion descending, then priority, then id.
func RankGoals(goals []*usercontext.Goal) []GoalProgress {
	out := make([]GoalProgress, 0, len(goals))
	for _, g := range goals {
		if g == nil {
			continue
		}
		out = append(out, GoalProgress{Goal: g.Clone(), Completion: g.CompletionPercentage()})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Completion != b.Completion {
			return a.Completion > b.Completion
		}
		if a.Goal.Priority != b.Goal.Priority {
			return a.Goal.Priority < b.Goal.Priority
		}
		return a.Goal.ID < b.Goal.ID
	})
	return out
}
