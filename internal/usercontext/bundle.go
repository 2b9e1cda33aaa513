package usercontext

import (
	"fmt"
	"strings"
	"time"
)

// Kind names a section of an owner's context.
type Kind string

const (
	KindDecisions   Kind = "decisions"
	KindGoals       Kind = "goals"
	KindPreferences Kind = "preferences"
	KindIssues      Kind = "issues"
	KindTodos       Kind = "todos"
)

// AllKinds returns every kind in display order.
func AllKinds() []Kind {
	return []Kind{KindDecisions, KindGoals, KindPreferences, KindIssues, KindTodos}
}

// ParseKinds resolves kind names. No names, or "all" among them, selects
// every kind. Duplicates collapse and the result keeps display order.
func ParseKinds(names ...string) ([]Kind, error) {
	want := make(map[Kind]bool)
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		switch n {
		case "":
			continue
		case "all":
			return AllKinds(), nil
		}
		k := Kind(n)
		switch k {
		case KindDecisions, KindGoals, KindPreferences, KindIssues, KindTodos:
			want[k] = true
		default:
			return nil, fmt.Errorf("unknown context kind %q: %w", n, ErrInvalidInput)
		}
	}
	if len(want) == 0 {
		return AllKinds(), nil
	}
	out := make([]Kind, 0, len(want))
	for _, k := range AllKinds() {
		if want[k] {
			out = append(out, k)
		}
	}
	return out, nil
}

// Bundle is a point-in-time view of an owner's context. Only the sections
// listed in Kinds are populated.
type Bundle struct {
	OwnerID     string        `json:"owner_id"`
	GeneratedAt time.Time     `json:"generated_at"`
	Kinds       []Kind        `json:"kinds"`
	Decisions   []*Decision   `json:"decisions,omitempty"`
	Goals       []*Goal       `json:"goals,omitempty"`
	Preferences []*Preference `json:"preferences,omitempty"`
	Issues      []*Issue      `json:"issues,omitempty"`
	Todos       []*Todo       `json:"todos,omitempty"`
}

// Has reports whether the bundle includes kind k.
func (b *Bundle) Has(k Kind) bool {
	for _, have := range b.Kinds {
		if have == k {
			return true
		}
	}
	return false
}

// Counts returns the number of items per included kind.
func (b *Bundle) Counts() map[Kind]int {
	counts := make(map[Kind]int, len(b.Kinds))
	for _, k := range b.Kinds {
		switch k {
		case KindDecisions:
			counts[k] = len(b.Decisions)
		case KindGoals:
			counts[k] = len(b.Goals)
		case KindPreferences:
			counts[k] = len(b.Preferences)
		case KindIssues:
			counts[k] = len(b.Issues)
		case KindTodos:
			counts[k] = len(b.Todos)
		}
	}
	return counts
}
