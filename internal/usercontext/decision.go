package usercontext

import (
	"time"

	"github.com/google/uuid"
)

// Decision is a choice the user made that should steer future actions.
type Decision struct {
	ID               string           `json:"id"`
	OwnerID          string           `json:"owner_id"`
	Text             string           `json:"decision_text"`
	Reason           *string          `json:"reason,omitempty"`
	Category         DecisionCategory `json:"decision_category"`
	Scope            Scope            `json:"scope"`
	RelatedProjectID *string          `json:"related_project_id,omitempty"`
	Confidence       float64          `json:"confidence_score"`
	ReferencedItems  []string         `json:"referenced_items"`
	AppliedCount     int              `json:"applied_count"`
	LastApplied      *time.Time       `json:"last_applied,omitempty"`
	Status           EntityStatus     `json:"status"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        *time.Time       `json:"updated_at,omitempty"`
}

// NewDecision creates an active decision with default confidence.
func NewDecision(ownerID, text string, category DecisionCategory, scope Scope) *Decision {
	return &Decision{
		ID:              uuid.New().String(),
		OwnerID:         ownerID,
		Text:            text,
		Category:        category,
		Scope:           scope,
		Confidence:      DefaultConfidence,
		ReferencedItems: []string{},
		Status:          StatusActive,
		CreatedAt:       time.Now().UTC(),
	}
}

// WithReason sets the rationale.
func (d *Decision) WithReason(reason string) *Decision {
	d.Reason = &reason
	return d
}

// WithProject links a project.
func (d *Decision) WithProject(projectID string) *Decision {
	d.RelatedProjectID = &projectID
	return d
}

// WithConfidence sets the confidence, clamped to [0,1].
func (d *Decision) WithConfidence(score float64) *Decision {
	d.Confidence = ClampConfidence(score)
	return d
}

// RecordApplication bumps the applied counter.
func (d *Decision) RecordApplication(now time.Time) {
	d.AppliedCount++
	d.LastApplied = &now
	d.UpdatedAt = &now
}

// Archive marks the decision terminal; it stays queryable.
func (d *Decision) Archive(now time.Time) {
	d.Status = StatusArchived
	d.UpdatedAt = &now
}

// Normalize fills defaults for zero-valued enums and slices.
func (d *Decision) Normalize() {
	d.Category = ParseDecisionCategory(string(d.Category))
	d.Status = ParseEntityStatus(string(d.Status))
	if d.ReferencedItems == nil {
		d.ReferencedItems = []string{}
	}
}

// Validate checks required fields and ranges.
func (d *Decision) Validate() error {
	if err := requireField(d.OwnerID, "owner_id"); err != nil {
		return err
	}
	if err := requireField(d.Text, "decision_text"); err != nil {
		return err
	}
	if d.AppliedCount < 0 {
		return ErrInvalidRange
	}
	return ValidateConfidence(d.Confidence)
}

// Clone returns a deep copy.
func (d *Decision) Clone() *Decision {
	c := *d
	c.Reason = cloneString(d.Reason)
	c.RelatedProjectID = cloneString(d.RelatedProjectID)
	c.ReferencedItems = cloneStrings(d.ReferencedItems)
	c.LastApplied = cloneTime(d.LastApplied)
	c.UpdatedAt = cloneTime(d.UpdatedAt)
	return &c
}

// Effectiveness is applied_count × confidence.
func (d *Decision) Effectiveness() float64 {
	return float64(d.AppliedCount) * d.Confidence
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
