package service

import (
	"context"

	"github.com/fyrsmithlabs/contextiq/internal/usercontext"
)

// TodoFilter narrows ListTodos.
type TodoFilter struct {
	Status    usercontext.TodoStatus
	ProjectID string
	EntityID  string
}

func (f TodoFilter) match(t *usercontext.Todo) bool {
	return (f.Status == "" || t.Status == f.Status) &&
		(f.ProjectID == "" || (t.ProjectID != nil && *t.ProjectID == f.ProjectID)) &&
		(f.EntityID == "" || (t.RelatedEntityID != nil && *t.RelatedEntityID == f.EntityID))
}

func todoOwner(t *usercontext.Todo) string { return t.OwnerID }

func (s *Service) CreateTodo(ctx context.Context, t *usercontext.Todo) error {
	if err := s.store.CreateTodo(ctx, t); err != nil {
		return err
	}
	s.record(ctx, t.OwnerID, usercontext.EntityTodo, t.ID, usercontext.AuditCreate, nil, t)
	return nil
}

func (s *Service) GetTodo(ctx context.Context, id string) (*usercontext.Todo, error) {
	return s.store.GetTodo(ctx, id)
}

// ListTodos returns the owner's todos matching f. Lookups by entity are
// still restricted to ownerID.
func (s *Service) ListTodos(ctx context.Context, ownerID string, f TodoFilter) ([]*usercontext.Todo, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	var (
		out []*usercontext.Todo
		err error
	)
	switch {
	case f.EntityID != "":
		out, err = s.store.ListTodosByEntity(ctx, f.EntityID)
	case f.Status != "":
		out, err = s.store.ListTodosByStatus(ctx, ownerID, f.Status)
	case f.ProjectID != "":
		out, err = s.store.ListTodosByProject(ctx, ownerID, f.ProjectID)
	default:
		out, err = s.store.ListTodos(ctx, ownerID)
	}
	if err != nil {
		return nil, err
	}
	return filter(out, func(t *usercontext.Todo) bool { return t.OwnerID == ownerID && f.match(t) }), nil
}

func (s *Service) UpdateTodo(ctx context.Context, t *usercontext.Todo) error {
	return update(ctx, s, usercontext.EntityTodo, t.ID, s.store.GetTodo, todoOwner, &t.OwnerID,
		func() error { return s.store.UpdateTodo(ctx, t) })
}

func (s *Service) DeleteTodo(ctx context.Context, id string) error {
	return remove(ctx, s, usercontext.EntityTodo, id, s.store.GetTodo, todoOwner, s.store.DeleteTodo)
}

func (s *Service) UpdateTodoStatus(ctx context.Context, id string, status usercontext.TodoStatus) (*usercontext.Todo, error) {
	return change(ctx, s, usercontext.EntityTodo, usercontext.AuditStatus, id, s.store.GetTodo, todoOwner,
		func() error { return s.store.UpdateTodoStatus(ctx, id, status) })
}
