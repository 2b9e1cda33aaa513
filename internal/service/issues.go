package service

import (
	"context"

	"github.com/fyrsmithlabs/contextiq/internal/usercontext"
)

// IssueFilter narrows ListIssues. Component matches case-insensitively.
type IssueFilter struct {
	Status    usercontext.ResolutionStatus
	Severity  usercontext.Severity
	Category  usercontext.IssueCategory
	Component string
}

func (f IssueFilter) match(i *usercontext.Issue) bool {
	return (f.Status == "" || i.ResolutionStatus == f.Status) &&
		(f.Severity == "" || i.Severity == f.Severity) &&
		(f.Category == "" || i.Category == f.Category)
}

func issueOwner(i *usercontext.Issue) string { return i.OwnerID }

func (s *Service) CreateIssue(ctx context.Context, i *usercontext.Issue) error {
	if err := s.store.CreateIssue(ctx, i); err != nil {
		return err
	}
	s.record(ctx, i.OwnerID, usercontext.EntityIssue, i.ID, usercontext.AuditCreate, nil, i)
	return nil
}

func (s *Service) GetIssue(ctx context.Context, id string) (*usercontext.Issue, error) {
	return s.store.GetIssue(ctx, id)
}

func (s *Service) ListIssues(ctx context.Context, ownerID string, f IssueFilter) ([]*usercontext.Issue, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	var (
		out []*usercontext.Issue
		err error
	)
	switch {
	case f.Component != "":
		out, err = s.store.ListIssuesByComponent(ctx, ownerID, f.Component)
	case f.Status != "":
		out, err = s.store.ListIssuesByStatus(ctx, ownerID, f.Status)
	case f.Severity != "":
		out, err = s.store.ListIssuesBySeverity(ctx, ownerID, f.Severity)
	case f.Category != "":
		out, err = s.store.ListIssuesByCategory(ctx, ownerID, f.Category)
	default:
		out, err = s.store.ListIssues(ctx, ownerID)
	}
	if err != nil {
		return nil, err
	}
	return filter(out, f.match), nil
}

func (s *Service) UpdateIssue(ctx context.Context, i *usercontext.Issue) error {
	return update(ctx, s, usercontext.EntityIssue, i.ID, s.store.GetIssue, issueOwner, &i.OwnerID,
		func() error { return s.store.UpdateIssue(ctx, i) })
}

func (s *Service) DeleteIssue(ctx context.Context, id string) error {
	return remove(ctx, s, usercontext.EntityIssue, id, s.store.GetIssue, issueOwner, s.store.DeleteIssue)
}

// ResolveIssue sets the resolution status and stamps the resolution date.
func (s *Service) ResolveIssue(ctx context.Context, id string, status usercontext.ResolutionStatus) (*usercontext.Issue, error) {
	return change(ctx, s, usercontext.EntityIssue, usercontext.AuditResolve, id, s.store.GetIssue, issueOwner,
		func() error { return s.store.MarkIssueResolved(ctx, id, status) })
}
