package service

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/contextiq/internal/usercontext"
)

type getter[T any] func(context.Context, string) (T, error)

// change runs op against item id and audits the transition.
func change[T any](ctx context.Context, s *Service, et usercontext.EntityType, action usercontext.AuditAction,
	id string, get getter[T], owner func(T) string, op func() error) (T, error) {
	var zero T
	before, err := get(ctx, id)
	if err != nil {
		return zero, err
	}
	if err := op(); err != nil {
		return zero, err
	}
	after, err := get(ctx, id)
	if err != nil {
		return zero, err
	}
	s.record(ctx, owner(before), et, id, action, before, after)
	return after, nil
}

// update stores an edited item after checking the owner stays the same.
// The audit records the state read back from the store, which ignores
// counters in the incoming item.
func update[T any](ctx context.Context, s *Service, et usercontext.EntityType, id string,
	get getter[T], owner func(T) string, incomingOwner *string, put func() error) error {
	before, err := get(ctx, id)
	if err != nil {
		return err
	}
	if err := sameOwner(owner(before), incomingOwner); err != nil {
		return err
	}
	if err := put(); err != nil {
		return err
	}
	after, err := get(ctx, id)
	if err != nil {
		return err
	}
	s.record(ctx, owner(before), et, id, usercontext.AuditUpdate, before, after)
	return nil
}

// remove deletes item id and audits the last known state.
func remove[T any](ctx context.Context, s *Service, et usercontext.EntityType,
	id string, get getter[T], owner func(T) string, del func(context.Context, string) error) error {
	before, err := get(ctx, id)
	if err != nil {
		return err
	}
	if err := del(ctx, id); err != nil {
		return err
	}
	s.record(ctx, owner(before), et, id, usercontext.AuditDelete, before, nil)
	return nil
}

// sameOwner fills an empty owner from the stored item and rejects moves
// between owners.
func sameOwner(stored string, incoming *string) error {
	if *incoming == "" {
		*incoming = stored
		return nil
	}
	if *incoming != stored {
		return fmt.Errorf("owner_id cannot change: %w", usercontext.ErrInvalidInput)
	}
	return nil
}
