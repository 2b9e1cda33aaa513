package service

import (
	"context"
	"fmt"
	"io"

	"github.com/fyrsmithlabs/contextiq/internal/export"
	"github.com/fyrsmithlabs/contextiq/internal/usercontext"
)

// Query collects the requested kinds of the owner's context. A positive
// limit caps each section; limit <= 0 returns everything.
func (s *Service) Query(ctx context.Context, ownerID string, kinds []usercontext.Kind, limit int) (*usercontext.Bundle, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	if len(kinds) == 0 {
		kinds = usercontext.AllKinds()
	}
	b := &usercontext.Bundle{OwnerID: ownerID, GeneratedAt: s.now(), Kinds: kinds}
	for _, k := range kinds {
		var err error
		switch k {
		case usercontext.KindDecisions:
			b.Decisions, err = s.store.ListDecisions(ctx, ownerID)
			b.Decisions = capped(b.Decisions, limit)
		case usercontext.KindGoals:
			b.Goals, err = s.store.ListGoals(ctx, ownerID)
			b.Goals = capped(b.Goals, limit)
		case usercontext.KindPreferences:
			b.Preferences, err = s.store.ListPreferences(ctx, ownerID)
			b.Preferences = capped(b.Preferences, limit)
		case usercontext.KindIssues:
			b.Issues, err = s.store.ListIssues(ctx, ownerID)
			b.Issues = capped(b.Issues, limit)
		case usercontext.KindTodos:
			b.Todos, err = s.store.ListTodos(ctx, ownerID)
			b.Todos = capped(b.Todos, limit)
		default:
			err = fmt.Errorf("unknown context kind %q: %w", k, usercontext.ErrInvalidInput)
		}
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", k, err)
		}
	}
	return b, nil
}

// Export writes the requested kinds of the owner's context to w.
func (s *Service) Export(ctx context.Context, ownerID string, format export.Format, kinds []usercontext.Kind, w io.Writer) error {
	b, err := s.Query(ctx, ownerID, kinds, 0)
	if err != nil {
		return err
	}
	return export.Write(w, format, b)
}

// AuditTrail returns the owner's most recent audit entries, newest first.
func (s *Service) AuditTrail(ctx context.Context, ownerID string, limit int) ([]*usercontext.AuditEntry, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	return s.store.ListAudit(ctx, ownerID, limit)
}

func capped[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	if items == nil {
		return []T{}
	}
	return items
}
