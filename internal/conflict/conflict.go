// Package conflict finds contradictions inside an owner's stored
// preferences and decisions.
package conflict

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fyrsmithlabs/contextiq/internal/subject"
	"github.com/fyrsmithlabs/contextiq/internal/usercontext"
)

// Type names the kind of contradiction.
type Type string

const (
	TypePreferenceContradiction Type = "preference_contradiction"
	TypeDecisionChange          Type = "decision_change"
)

// Severity of a reported conflict.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	default:
		return 2
	}
}

// Conflict references the two contradicting items, older or first one first.
type Conflict struct {
	Type        Type     `json:"conflict_type"`
	Severity    Severity `json:"severity"`
	EntityIDs   []string `json:"entity_ids"`
	Description string   `json:"description"`
}

// DetectPreferenceConflicts checks every unordered pair of preferences that
// share an owner and a subject domain. A pair contradicts when the full
// name-and-value texts contradict and the values themselves are involved: a
// shared name alone never makes two different values conflict. Each
// contradicting pair is reported once, in discovery order.
func DetectPreferenceConflicts(prefs []*usercontext.Preference) []Conflict {
	out := []Conflict{}
	full := make([]subject.Analysis, len(prefs))
	values := make([]subject.Analysis, len(prefs))
	for i, p := range prefs {
		if p == nil {
			continue
		}
		full[i] = subject.Analyze(p.Name + " " + p.Value)
		// "no-sync-io" = "true" carries its polarity in the name
		values[i] = subject.Analyze(p.Value)
		values[i].Negated = full[i].Negated
	}

	for i := 0; i < len(prefs); i++ {
		a := prefs[i]
		if a == nil {
			continue
		}
		for j := i + 1; j < len(prefs); j++ {
			b := prefs[j]
			if b == nil || a.OwnerID != b.OwnerID {
				continue
			}
			if !sharedDomain(a, b, full[i], full[j]) {
				continue
			}
			if !subject.Contradicts(full[i], full[j]) || !valuesInvolved(values[i], values[j], full[i], full[j]) {
				continue
			}
			out = append(out, Conflict{
				Type:      TypePreferenceContradiction,
				Severity:  SeverityWarning,
				EntityIDs: []string{a.ID, b.ID},
				Description: fmt.Sprintf("preference %q (%s) contradicts %q (%s)",
					a.Name, a.Value, b.Name, b.Value),
			})
		}
	}
	return out
}

// sharedDomain reports whether two preferences talk about the same thing:
// a common tag or any common subject token.
func sharedDomain(a, b *usercontext.Preference, fullA, fullB subject.Analysis) bool {
	for _, ta := range a.Tags {
		for _, tb := range b.Tags {
			if strings.EqualFold(strings.TrimSpace(ta), strings.TrimSpace(tb)) && ta != "" {
				return true
			}
		}
	}
	return subject.Overlaps(fullA, fullB) || contradictsByPair(fullA, fullB)
}

// valuesInvolved reports whether the values take part in a contradiction:
// one value is empty of content, a value token appears on the other side,
// or the values name opposite terms.
func valuesInvolved(valueA, valueB, fullA, fullB subject.Analysis) bool {
	if valueA.Empty() || valueB.Empty() {
		return true
	}
	return subject.Overlaps(valueA, fullB) || subject.Overlaps(valueB, fullA) || subject.Contradicts(valueA, valueB)
}

// contradictsByPair lets opposite-term pairs such as sync/async count as a
// shared domain even when no other token is shared.
func contradictsByPair(a, b subject.Analysis) bool {
	return subject.Contradicts(a, b) && !subject.Overlaps(a, b)
}

// DetectDecisionConflicts orders decisions by creation time and reports
// every (older, newer) pair from the same owner whose texts contradict.
// Pairs created at the same instant are never reported.
func DetectDecisionConflicts(decisions []*usercontext.Decision) []Conflict {
	out := []Conflict{}
	ordered := make([]*usercontext.Decision, 0, len(decisions))
	for _, d := range decisions {
		if d != nil {
			ordered = append(ordered, d)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	analyses := make([]subject.Analysis, len(ordered))
	for i, d := range ordered {
		analyses[i] = subject.Analyze(d.Text)
	}

	for i := 0; i < len(ordered); i++ {
		older := ordered[i]
		for j := i + 1; j < len(ordered); j++ {
			newer := ordered[j]
			if older.OwnerID != newer.OwnerID || !newer.CreatedAt.After(older.CreatedAt) {
				continue
			}
			if !subject.Contradicts(analyses[i], analyses[j]) {
				continue
			}
			out = append(out, Conflict{
				Type:        TypeDecisionChange,
				Severity:    SeverityInfo,
				EntityIDs:   []string{older.ID, newer.ID},
				Description: fmt.Sprintf("changed from %q to %q", older.Text, newer.Text),
			})
		}
	}
	return out
}

// SortBySeverity returns a copy ordered most severe first, keeping
// discovery order within a severity.
func SortBySeverity(conflicts []Conflict) []Conflict {
	out := make([]Conflict, len(conflicts))
	copy(out, conflicts)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Severity.rank() < out[j].Severity.rank()
	})
	return out
}
