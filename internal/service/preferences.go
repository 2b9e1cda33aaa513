package service

import (
	"context"

	"github.com/fyrsmithlabs/contextiq/internal/usercontext"
)

// PreferenceFilter narrows ListPreferences.
type PreferenceFilter struct {
	Type           usercontext.PreferenceType
	Scope          *usercontext.Scope
	AutomationOnly bool
}

func (f PreferenceFilter) match(p *usercontext.Preference) bool {
	return (f.Type == "" || p.Type == f.Type) &&
		(f.Scope == nil || p.Scope == *f.Scope) &&
		(!f.AutomationOnly || p.AppliesToAutomation)
}

func preferenceOwner(p *usercontext.Preference) string { return p.OwnerID }

func (s *Service) CreatePreference(ctx context.Context, p *usercontext.Preference) error {
	if err := s.store.CreatePreference(ctx, p); err != nil {
		return err
	}
	s.record(ctx, p.OwnerID, usercontext.EntityPreference, p.ID, usercontext.AuditCreate, nil, p)
	return nil
}

func (s *Service) GetPreference(ctx context.Context, id string) (*usercontext.Preference, error) {
	return s.store.GetPreference(ctx, id)
}

func (s *Service) ListPreferences(ctx context.Context, ownerID string, f PreferenceFilter) ([]*usercontext.Preference, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	var (
		out []*usercontext.Preference
		err error
	)
	switch {
	case f.AutomationOnly:
		out, err = s.store.ListAutomationPreferences(ctx, ownerID)
	case f.Type != "":
		out, err = s.store.ListPreferencesByType(ctx, ownerID, f.Type)
	case f.Scope != nil:
		out, err = s.store.ListPreferencesByScope(ctx, ownerID, *f.Scope)
	default:
		out, err = s.store.ListPreferences(ctx, ownerID)
	}
	if err != nil {
		return nil, err
	}
	return filter(out, f.match), nil
}

func (s *Service) UpdatePreference(ctx context.Context, p *usercontext.Preference) error {
	return update(ctx, s, usercontext.EntityPreference, p.ID, s.store.GetPreference, preferenceOwner, &p.OwnerID,
		func() error { return s.store.UpdatePreference(ctx, p) })
}

func (s *Service) DeletePreference(ctx context.Context, id string) error {
	return remove(ctx, s, usercontext.EntityPreference, id, s.store.GetPreference, preferenceOwner, s.store.DeletePreference)
}

// ObservePreference counts another observation of a preference.
func (s *Service) ObservePreference(ctx context.Context, id string) (*usercontext.Preference, error) {
	return change(ctx, s, usercontext.EntityPreference, usercontext.AuditObserve, id, s.store.GetPreference, preferenceOwner,
		func() error { return s.store.IncrementFrequency(ctx, id) })
}
