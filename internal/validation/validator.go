// Package validation checks a proposed action against a snapshot of the
// owner's stored context. It never reads or writes storage itself.
package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fyrsmithlabs/contextiq/internal/subject"
	"github.com/fyrsmithlabs/contextiq/internal/usercontext"
)

// Action describes what an agent intends to do.
type Action struct {
	Type       string            `json:"action_type"`
	Target     string            `json:"target"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

// analysis reduces the action to a subject. Polarity comes from the type and
// target only, so a parameter value such as "no" never flips the verdict.
// Parameter keys are sorted so the analysis is stable.
func (a Action) analysis() subject.Analysis {
	keys := make([]string, 0, len(a.Parameters))
	for k := range a.Parameters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	params := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		params = append(params, k, a.Parameters[k])
	}
	return subject.AnalyzeWith(a.Type+" "+a.Target, params...)
}

// Snapshot is the owner context an action is checked against.
type Snapshot struct {
	Decisions   []*usercontext.Decision
	Preferences []*usercontext.Preference
	Issues      []*usercontext.Issue
	Goals       []*usercontext.Goal
}

// ActionValidation is the verdict. IsValid is true exactly when Violations
// is empty. All lists are non-nil.
type ActionValidation struct {
	IsValid               bool     `json:"is_valid"`
	Warnings              []string `json:"warnings"`
	Violations            []string `json:"violations"`
	AppliedDecisions      []string `json:"applied_decisions"`
	AppliedDecisionIDs    []string `json:"applied_decision_ids"`
	ApplicableWorkarounds []string `json:"applicable_workarounds"`
	Recommendations       []string `json:"recommendations"`
}

func newValidation() ActionValidation {
	return ActionValidation{
		Warnings:              []string{},
		Violations:            []string{},
		AppliedDecisions:      []string{},
		AppliedDecisionIDs:    []string{},
		ApplicableWorkarounds: []string{},
		Recommendations:       []string{},
	}
}

// Validate checks action against the snapshot items owned by ownerID.
// Decisions are checked first, then preferences, issues and goals.
func Validate(action Action, ownerID string, snap Snapshot) ActionValidation {
	v := newValidation()
	act := action.analysis()

	for _, d := range snap.Decisions {
		if d == nil || d.OwnerID != ownerID || d.Status != usercontext.StatusActive {
			continue
		}
		dec := subject.Analyze(d.Text)
		switch {
		case subject.Contradicts(act, dec):
			v.Violations = append(v.Violations, fmt.Sprintf("contradicts decision %s: %s", d.ID, d.Text))
		case subject.Overlaps(act, dec):
			v.AppliedDecisions = append(v.AppliedDecisions, fmt.Sprintf("%s: %s", d.ID, d.Text))
			v.AppliedDecisionIDs = append(v.AppliedDecisionIDs, d.ID)
		}
	}

	for _, p := range snap.Preferences {
		if p == nil || p.OwnerID != ownerID || !p.AppliesToAutomation {
			continue
		}
		pref := subject.Analyze(p.Name + " " + p.Value)
		switch {
		case subject.Contradicts(act, pref):
			v.Violations = append(v.Violations, fmt.Sprintf("contradicts preference %s = %s", p.Name, p.Value))
		case subject.Overlaps(act, pref):
			v.Warnings = append(v.Warnings, fmt.Sprintf("preference applies: %s = %s", p.Name, p.Value))
		}
	}

	for _, i := range snap.Issues {
		if i == nil || i.OwnerID != ownerID || !i.ResolutionStatus.Open() {
			continue
		}
		if i.Workaround == nil || strings.TrimSpace(*i.Workaround) == "" {
			continue
		}
		if !i.AffectsComponent(action.Target) {
			continue
		}
		v.ApplicableWorkarounds = append(v.ApplicableWorkarounds, *i.Workaround)
		v.Warnings = append(v.Warnings, fmt.Sprintf("known %s issue on %s: %s (workaround: %s)",
			i.Severity, action.Target, i.Description, *i.Workaround))
	}

	target := subject.Analyze(action.Target)
	for _, g := range snap.Goals {
		if g == nil || g.OwnerID != ownerID || g.Status != usercontext.GoalInProgress {
			continue
		}
		if goalAligned(target, g) {
			v.Recommendations = append(v.Recommendations, fmt.Sprintf("aligned with goal %s: %s", g.ID, g.Text))
		}
	}

	v.IsValid = len(v.Violations) == 0
	return v
}

func goalAligned(target subject.Analysis, g *usercontext.Goal) bool {
	if subject.Overlaps(target, subject.Analyze(g.Text)) {
		return true
	}
	for _, s := range g.Steps {
		if s.Status == usercontext.GoalCompleted {
			continue
		}
		if subject.Overlaps(target, subject.Analyze(s.Description)) {
			return true
		}
	}
	return false
}
