package usercontext

import (
	"time"

	"github.com/google/uuid"
)

// Preference is a standing user preference, optionally enforced on automation.
type Preference struct {
	ID                  string         `json:"id"`
	OwnerID             string         `json:"owner_id"`
	Name                string         `json:"preference_name"`
	Value               string         `json:"preference_value"`
	Type                PreferenceType `json:"preference_type"`
	Scope               Scope          `json:"scope"`
	AppliesToAutomation bool           `json:"applies_to_automation"`
	Rationale           *string        `json:"rationale,omitempty"`
	Priority            int            `json:"priority"`
	FrequencyObserved   int            `json:"frequency_observed"`
	Tags                []string       `json:"tags"`
	LastReferenced      *time.Time     `json:"last_referenced,omitempty"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           *time.Time     `json:"updated_at,omitempty"`
}

// NewPreference creates a preference observed once that applies to automation.
func NewPreference(ownerID, name, value string, prefType PreferenceType, scope Scope) *Preference {
	return &Preference{
		ID:                  uuid.New().String(),
		OwnerID:             ownerID,
		Name:                name,
		Value:               value,
		Type:                prefType,
		Scope:               scope,
		AppliesToAutomation: true,
		Priority:            DefaultPriority,
		FrequencyObserved:   1,
		Tags:                []string{},
		CreatedAt:           time.Now().UTC(),
	}
}

// WithRationale sets the rationale.
func (p *Preference) WithRationale(rationale string) *Preference {
	p.Rationale = &rationale
	return p
}

// WithTags replaces the tag list with a private copy.
func (p *Preference) WithTags(tags []string) *Preference {
	p.Tags = cloneStrings(tags)
	return p
}

// WithPriority sets the priority, clamped to [1,5].
func (p *Preference) WithPriority(priority int) *Preference {
	p.Priority = ClampPriority(priority)
	return p
}

// ObserveAgain bumps the observation counter.
func (p *Preference) ObserveAgain(now time.Time) {
	p.FrequencyObserved++
	p.LastReferenced = &now
	p.UpdatedAt = &now
}

// Normalize fills defaults for zero-valued fields.
func (p *Preference) Normalize() {
	p.Type = ParsePreferenceType(string(p.Type))
	if p.Priority == 0 {
		p.Priority = DefaultPriority
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
}

// Validate checks required fields and ranges.
func (p *Preference) Validate() error {
	if err := requireField(p.OwnerID, "owner_id"); err != nil {
		return err
	}
	if err := requireField(p.Name, "preference_name"); err != nil {
		return err
	}
	if p.FrequencyObserved < 0 {
		return ErrInvalidRange
	}
	return ValidatePriority(p.Priority)
}

// Clone returns a deep copy.
func (p *Preference) Clone() *Preference {
	c := *p
	c.Rationale = cloneString(p.Rationale)
	c.Tags = cloneStrings(p.Tags)
	c.LastReferenced = cloneTime(p.LastReferenced)
	c.UpdatedAt = cloneTime(p.UpdatedAt)
	return &c
}
