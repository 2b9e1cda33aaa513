package service

import (
	"context"

	"github.com/fyrsmithlabs/contextiq/internal/usercontext"
)

// DecisionFilter narrows ListDecisions. Zero fields match everything.
type DecisionFilter struct {
	Category usercontext.DecisionCategory
	Scope    *usercontext.Scope
	Status   usercontext.EntityStatus
}

func (f DecisionFilter) match(d *usercontext.Decision) bool {
	return (f.Category == "" || d.Category == f.Category) &&
		(f.Scope == nil || d.Scope == *f.Scope) &&
		(f.Status == "" || d.Status == f.Status)
}

func decisionOwner(d *usercontext.Decision) string { return d.OwnerID }

// CreateDecision stores a confirmed decision.
func (s *Service) CreateDecision(ctx context.Context, d *usercontext.Decision) error {
	if err := s.store.CreateDecision(ctx, d); err != nil {
		return err
	}
	s.record(ctx, d.OwnerID, usercontext.EntityDecision, d.ID, usercontext.AuditCreate, nil, d)
	return nil
}

func (s *Service) GetDecision(ctx context.Context, id string) (*usercontext.Decision, error) {
	return s.store.GetDecision(ctx, id)
}

// ListDecisions returns the owner's decisions matching f.
func (s *Service) ListDecisions(ctx context.Context, ownerID string, f DecisionFilter) ([]*usercontext.Decision, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	var (
		out []*usercontext.Decision
		err error
	)
	switch {
	case f.Category != "":
		out, err = s.store.ListDecisionsByCategory(ctx, ownerID, f.Category)
	case f.Scope != nil:
		out, err = s.store.ListDecisionsByScope(ctx, ownerID, *f.Scope)
	default:
		out, err = s.store.ListDecisions(ctx, ownerID)
	}
	if err != nil {
		return nil, err
	}
	return filter(out, f.match), nil
}

// UpdateDecision replaces the editable fields of a stored decision.
func (s *Service) UpdateDecision(ctx context.Context, d *usercontext.Decision) error {
	return update(ctx, s, usercontext.EntityDecision, d.ID, s.store.GetDecision, decisionOwner, &d.OwnerID,
		func() error { return s.store.UpdateDecision(ctx, d) })
}

func (s *Service) DeleteDecision(ctx context.Context, id string) error {
	return remove(ctx, s, usercontext.EntityDecision, id, s.store.GetDecision, decisionOwner, s.store.DeleteDecision)
}

// ArchiveDecision retires a decision. It stays queryable but stops
// participating in validation.
func (s *Service) ArchiveDecision(ctx context.Context, id string) (*usercontext.Decision, error) {
	return change(ctx, s, usercontext.EntityDecision, usercontext.AuditArchive, id, s.store.GetDecision, decisionOwner,
		func() error { return s.store.ArchiveDecision(ctx, id) })
}

// RecordApplication counts one application of a decision.
func (s *Service) RecordApplication(ctx context.Context, id string) (*usercontext.Decision, error) {
	return change(ctx, s, usercontext.EntityDecision, usercontext.AuditApply, id, s.store.GetDecision, decisionOwner,
		func() error { return s.store.IncrementAppliedCount(ctx, id) })
}
