package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/contextiq/internal/usercontext"
)

// GoalFilter narrows ListGoals.
type GoalFilter struct {
	Status    usercontext.GoalStatus
	ProjectID string
}

func (f GoalFilter) match(g *usercontext.Goal) bool {
	return (f.Status == "" || g.Status == f.Status) &&
		(f.ProjectID == "" || (g.ProjectID != nil && *g.ProjectID == f.ProjectID))
}

func goalOwner(g *usercontext.Goal) string { return g.OwnerID }

func (s *Service) CreateGoal(ctx context.Context, g *usercontext.Goal) error {
	if err := s.store.CreateGoal(ctx, g); err != nil {
		return err
	}
	s.record(ctx, g.OwnerID, usercontext.EntityGoal, g.ID, usercontext.AuditCreate, nil, g)
	return nil
}

func (s *Service) GetGoal(ctx context.Context, id string) (*usercontext.Goal, error) {
	return s.store.GetGoal(ctx, id)
}

func (s *Service) ListGoals(ctx context.Context, ownerID string, f GoalFilter) ([]*usercontext.Goal, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	var (
		out []*usercontext.Goal
		err error
	)
	switch {
	case f.Status != "":
		out, err = s.store.ListGoalsByStatus(ctx, ownerID, f.Status)
	case f.ProjectID != "":
		out, err = s.store.ListGoalsByProject(ctx, ownerID, f.ProjectID)
	default:
		out, err = s.store.ListGoals(ctx, ownerID)
	}
	if err != nil {
		return nil, err
	}
	return filter(out, f.match), nil
}

func (s *Service) UpdateGoal(ctx context.Context, g *usercontext.Goal) error {
	return update(ctx, s, usercontext.EntityGoal, g.ID, s.store.GetGoal, goalOwner, &g.OwnerID,
		func() error { return s.store.UpdateGoal(ctx, g) })
}

func (s *Service) DeleteGoal(ctx context.Context, id string) error {
	return remove(ctx, s, usercontext.EntityGoal, id, s.store.GetGoal, goalOwner, s.store.DeleteGoal)
}

// UpdateGoalStatus moves a goal through its lifecycle.
func (s *Service) UpdateGoalStatus(ctx context.Context, id string, status usercontext.GoalStatus) (*usercontext.Goal, error) {
	return change(ctx, s, usercontext.EntityGoal, usercontext.AuditStatus, id, s.store.GetGoal, goalOwner,
		func() error { return s.store.UpdateGoalStatus(ctx, id, status) })
}

// AddGoalStep appends a planned step numbered after the existing ones.
func (s *Service) AddGoalStep(ctx context.Context, id, description string, due *time.Time) (*usercontext.Goal, error) {
	if description == "" {
		return nil, fmt.Errorf("step description is required: %w", usercontext.ErrInvalidInput)
	}
	return s.editGoal(ctx, id, func(g *usercontext.Goal) error {
		step := usercontext.NewGoalStep(0, description)
		step.DueDate = due
		g.AddStep(step, s.now())
		return nil
	})
}

// SetGoalStepStatus changes the status of step number on goal id.
func (s *Service) SetGoalStepStatus(ctx context.Context, id string, number int, status usercontext.GoalStatus) (*usercontext.Goal, error) {
	return s.editGoal(ctx, id, func(g *usercontext.Goal) error {
		for i := range g.Steps {
			if g.Steps[i].Number == number {
				g.Steps[i].Status = status
				return nil
			}
		}
		return fmt.Errorf("goal %s step %d: %w", id, number, usercontext.ErrNotFound)
	})
}

func (s *Service) editGoal(ctx context.Context, id string, edit func(*usercontext.Goal) error) (*usercontext.Goal, error) {
	before, err := s.store.GetGoal(ctx, id)
	if err != nil {
		return nil, err
	}
	g := before.Clone()
	if err := edit(g); err != nil {
		return nil, err
	}
	if err := s.store.UpdateGoal(ctx, g); err != nil {
		return nil, err
	}
	after, err := s.store.GetGoal(ctx, id)
	if err != nil {
		return nil, err
	}
	s.record(ctx, before.OwnerID, usercontext.EntityGoal, id, usercontext.AuditUpdate, before, after)
	return after, nil
}
