package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/contextiq/internal/conflict"
	"github.com/fyrsmithlabs/contextiq/internal/extraction"
	"github.com/fyrsmithlabs/contextiq/internal/ranking"
	"github.com/fyrsmithlabs/contextiq/internal/usercontext"
	"github.com/fyrsmithlabs/contextiq/internal/validation"
)

// Extract runs the extractor over text and redacts secrets from every
// payload. Nothing is written; candidates are confirmed by the caller.
func (s *Service) Extract(ctx context.Context, ownerID, text string) (extraction.Result, error) {
	if err := requireOwner(ownerID); err != nil {
		return extraction.Result{}, err
	}
	res := s.extractor.Extract(text)

	redacted := 0
	scrub := func(p *string) *string {
		if p == nil || !s.scrubber.IsEnabled() {
			return p
		}
		r := s.scrubber.Scrub(*p)
		if !r.HasFindings() {
			return p
		}
		redacted += r.TotalFindings
		out := r.Scrubbed
		return &out
	}
	scrubAll := func(items []string) {
		for i := range items {
			v := items[i]
			items[i] = *scrub(&v)
		}
	}

	for i := range res.Decisions {
		res.Decisions[i].Text = scrub(res.Decisions[i].Text)
	}
	for i := range res.Goals {
		res.Goals[i].Text = scrub(res.Goals[i].Text)
	}
	for i := range res.Preferences {
		res.Preferences[i].Text = scrub(res.Preferences[i].Text)
	}
	for i := range res.Issues {
		res.Issues[i].Text = scrub(res.Issues[i].Text)
		res.Issues[i].Workaround = scrub(res.Issues[i].Workaround)
		scrubAll(res.Issues[i].Symptoms)
	}

	s.metrics.recordExtraction(ctx, res)
	s.metrics.recordRedactions(ctx, redacted)
	s.logger.Debug("extraction completed",
		zap.String("owner_id", ownerID),
		zap.Int("candidates", res.Len()),
		zap.Int("redacted", redacted))
	return res, nil
}

// ValidateAction checks action against the owner's decisions, preferences,
// issues and in-progress goals. With a projectID, items scoped to other
// projects are left out of the snapshot.
func (s *Service) ValidateAction(ctx context.Context, action validation.Action, ownerID, projectID string) (validation.ActionValidation, error) {
	if err := requireOwner(ownerID); err != nil {
		return validation.ActionValidation{}, err
	}
	snap, err := s.snapshot(ctx, ownerID, projectID)
	if err != nil {
		return validation.ActionValidation{}, err
	}
	v := validation.Validate(action, ownerID, snap)
	s.metrics.recordValidation(ctx, v.IsValid)
	s.logger.Debug("action validated",
		zap.String("owner_id", ownerID),
		zap.String("action_type", action.Type),
		zap.Bool("valid", v.IsValid),
		zap.Int("violations", len(v.Violations)),
		zap.Int("warnings", len(v.Warnings)))
	return v, nil
}

func (s *Service) snapshot(ctx context.Context, ownerID, projectID string) (validation.Snapshot, error) {
	decisions, err := s.store.ListDecisions(ctx, ownerID)
	if err != nil {
		return validation.Snapshot{}, fmt.Errorf("validate: list decisions: %w", err)
	}
	prefs, err := s.store.ListPreferences(ctx, ownerID)
	if err != nil {
		return validation.Snapshot{}, fmt.Errorf("validate: list preferences: %w", err)
	}
	issues, err := s.store.ListIssues(ctx, ownerID)
	if err != nil {
		return validation.Snapshot{}, fmt.Errorf("validate: list issues: %w", err)
	}
	goals, err := s.store.ListGoalsByStatus(ctx, ownerID, usercontext.GoalInProgress)
	if err != nil {
		return validation.Snapshot{}, fmt.Errorf("validate: list goals: %w", err)
	}
	if projectID == "" {
		return validation.Snapshot{Decisions: decisions, Preferences: prefs, Issues: issues, Goals: goals}, nil
	}
	return validation.Snapshot{
		Decisions: filter(decisions, func(d *usercontext.Decision) bool {
			return d.Scope.Matches(projectID) && optionalMatches(d.RelatedProjectID, projectID)
		}),
		Preferences: filter(prefs, func(p *usercontext.Preference) bool { return p.Scope.Matches(projectID) }),
		Issues: filter(issues, func(i *usercontext.Issue) bool {
			return len(i.ProjectContexts) == 0 || contains(i.ProjectContexts, projectID)
		}),
		Goals: filter(goals, func(g *usercontext.Goal) bool { return optionalMatches(g.ProjectID, projectID) }),
	}, nil
}

// ConflictReport groups the contradictions found for one owner.
type ConflictReport struct {
	OwnerID     string              `json:"owner_id"`
	Preferences []conflict.Conflict `json:"preference_conflicts"`
	Decisions   []conflict.Conflict `json:"decision_conflicts"`
}

// Total returns the number of conflicts in the report.
func (r ConflictReport) Total() int { return len(r.Preferences) + len(r.Decisions) }

// All returns every conflict, most severe first.
func (r ConflictReport) All() []conflict.Conflict {
	all := make([]conflict.Conflict, 0, r.Total())
	all = append(all, r.Preferences...)
	all = append(all, r.Decisions...)
	return conflict.SortBySeverity(all)
}

// DetectConflicts scans the owner's preferences and decisions.
func (s *Service) DetectConflicts(ctx context.Context, ownerID string) (ConflictReport, error) {
	if err := requireOwner(ownerID); err != nil {
		return ConflictReport{}, err
	}
	prefs, err := s.store.ListPreferences(ctx, ownerID)
	if err != nil {
		return ConflictReport{}, fmt.Errorf("conflicts: list preferences: %w", err)
	}
	decisions, err := s.store.ListDecisions(ctx, ownerID)
	if err != nil {
		return ConflictReport{}, fmt.Errorf("conflicts: list decisions: %w", err)
	}
	report := ConflictReport{
		OwnerID:     ownerID,
		Preferences: conflict.DetectPreferenceConflicts(prefs),
		Decisions:   conflict.DetectDecisionConflicts(decisions),
	}
	s.metrics.recordConflicts(ctx, report.Preferences)
	s.metrics.recordConflicts(ctx, report.Decisions)
	return report, nil
}

// RankDecisions returns at most limit applied decisions, most effective first.
func (s *Service) RankDecisions(ctx context.Context, ownerID string, limit int) ([]ranking.RankedDecision, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	decisions, err := s.store.ListDecisions(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("rank: list decisions: %w", err)
	}
	return ranking.RankDecisions(decisions, limit), nil
}

// RecommendNextSteps suggests the next step of each in-progress goal.
func (s *Service) RecommendNextSteps(ctx context.Context, ownerID string) ([]ranking.Recommendation, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	goals, err := s.store.ListGoalsByStatus(ctx, ownerID, usercontext.GoalInProgress)
	if err != nil {
		return nil, fmt.Errorf("recommend: list goals: %w", err)
	}
	return ranking.RecommendNextSteps(goals), nil
}

// GoalProgress orders all of the owner's goals by completion.
func (s *Service) GoalProgress(ctx context.Context, ownerID string) ([]ranking.GoalProgress, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	goals, err := s.store.ListGoals(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("progress: list goals: %w", err)
	}
	return ranking.RankGoals(goals), nil
}

func filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

// optionalMatches treats an unset project link as applying everywhere.
func optionalMatches(linked *string, projectID string) bool {
	return linked == nil || *linked == "" || *linked == projectID
}

func contains(items []string, want string) bool {
	for _, it := range items {
		if it == want {
			return true
		}
	}
	return false
}
