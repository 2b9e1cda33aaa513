package usercontext

import (
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// Issue is a known problem, its symptoms and any recorded remedy.
type Issue struct {
	ID                 string           `json:"id"`
	OwnerID            string           `json:"owner_id"`
	Description        string           `json:"issue_description"`
	Symptoms           []string         `json:"symptoms"`
	RootCause          *string          `json:"root_cause,omitempty"`
	Workaround         *string          `json:"workaround,omitempty"`
	PermanentSolution  *string          `json:"permanent_solution,omitempty"`
	AffectedComponents []string         `json:"affected_components"`
	Severity           Severity         `json:"severity"`
	Category           IssueCategory    `json:"issue_category"`
	ResolutionStatus   ResolutionStatus `json:"resolution_status"`
	ResolutionDate     *time.Time       `json:"resolution_date,omitempty"`
	PreventionNotes    *string          `json:"prevention_notes,omitempty"`
	ProjectContexts    []string         `json:"project_contexts"`
	LearnedDate        time.Time        `json:"learned_date"`
	UpdatedAt          *time.Time       `json:"updated_at,omitempty"`
}

// NewIssue creates an unresolved issue.
func NewIssue(ownerID, description string, severity Severity, category IssueCategory) *Issue {
	return &Issue{
		ID:                 uuid.New().String(),
		OwnerID:            ownerID,
		Description:        description,
		Symptoms:           []string{},
		AffectedComponents: []string{},
		Severity:           severity,
		Category:           category,
		ResolutionStatus:   ResolutionUnresolved,
		ProjectContexts:    []string{},
		LearnedDate:        time.Now().UTC(),
	}
}

// AddSymptom records an observed symptom.
func (i *Issue) AddSymptom(symptom string) {
	i.Symptoms = append(i.Symptoms, symptom)
}

// WithWorkaround sets the workaround.
func (i *Issue) WithWorkaround(workaround string) *Issue {
	i.Workaround = &workaround
	return i
}

// WithComponents replaces the affected component list with a private copy.
func (i *Issue) WithComponents(components ...string) *Issue {
	i.AffectedComponents = cloneStrings(components)
	return i
}

// MarkResolved moves the issue to the given resolution status.
func (i *Issue) MarkResolved(status ResolutionStatus, now time.Time) {
	i.ResolutionStatus = status
	i.ResolutionDate = &now
	i.UpdatedAt = &now
}

// AffectsComponent reports whether target names one of the affected
// components, case-insensitively and in either containment direction.
// Matching is on whole segments: "ui" does not match "build".
func (i *Issue) AffectsComponent(target string) bool {
	t := segments(target)
	if len(t) == 0 {
		return false
	}
	for _, c := range i.AffectedComponents {
		comp := segments(c)
		if len(comp) == 0 {
			continue
		}
		if containsRun(t, comp) || containsRun(comp, t) {
			return true
		}
	}
	return false
}

// segments lowercases s and splits it on anything but letters and digits.
func segments(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// containsRun reports whether sub appears in s as a contiguous run.
func containsRun(s, sub []string) bool {
	for start := 0; start+len(sub) <= len(s); start++ {
		if slices.Equal(s[start:start+len(sub)], sub) {
			return true
		}
	}
	return false
}

// Normalize fills defaults for zero-valued fields.
func (i *Issue) Normalize() {
	if i.Severity == "" {
		i.Severity = SeverityMedium
	}
	i.Severity = ParseSeverity(string(i.Severity))
	i.Category = ParseIssueCategory(string(i.Category))
	i.ResolutionStatus = ParseResolutionStatus(string(i.ResolutionStatus))
	if i.Symptoms == nil {
		i.Symptoms = []string{}
	}
	if i.AffectedComponents == nil {
		i.AffectedComponents = []string{}
	}
	if i.ProjectContexts == nil {
		i.ProjectContexts = []string{}
	}
}

// Validate checks required fields.
func (i *Issue) Validate() error {
	if err := requireField(i.OwnerID, "owner_id"); err != nil {
		return err
	}
	return requireField(i.Description, "issue_description")
}

// Clone returns a deep copy.
func (i *Issue) Clone() *Issue {
	c := *i
	c.Symptoms = cloneStrings(i.Symptoms)
	c.RootCause = cloneString(i.RootCause)
	c.Workaround = cloneString(i.Workaround)
	c.PermanentSolution = cloneString(i.PermanentSolution)
	c.AffectedComponents = cloneStrings(i.AffectedComponents)
	c.ResolutionDate = cloneTime(i.ResolutionDate)
	c.PreventionNotes = cloneString(i.PreventionNotes)
	c.ProjectContexts = cloneStrings(i.ProjectContexts)
	c.UpdatedAt = cloneTime(i.UpdatedAt)
	return &c
}
