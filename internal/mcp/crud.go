package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/contextiq/internal/api"
	"github.com/fyrsmithlabs/contextiq/internal/usercontext"
)

// Shared operation names of the manage_* tools.
const (
	opCreate = "create"
	opRead   = "read"
	opUpdate = "update"
	opDelete = "delete"
	opList   = "list"
)

var crudOps = []string{opCreate, opRead, opUpdate, opDelete, opList}

// entityOutput is the structured result of every manage_* tool.
type entityOutput struct {
	Operation string           `json:"operation"`
	Item      map[string]any   `json:"item,omitempty"`
	Items     []map[string]any `json:"items,omitempty"`
	Count     int              `json:"count"`
	Deleted   string           `json:"deleted,omitempty" jsonschema:"id of the removed item"`
}

// entityOps binds one entity type to the service for the generic
// create/read/update/delete/list flow.
type entityOps[T any, F any] struct {
	name    string
	ownerOf func(T) string
	get     func(context.Context, string) (T, error)
	create  func(context.Context, T) error
	update  func(context.Context, T) error
	remove  func(context.Context, string) error
	list    func(context.Context, string, api.ListParams) ([]T, error)
	build   func(F, string) (T, error)
	apply   func(F, T, time.Time) error
}

// call carries the arguments shared by every manage_* tool.
type call[F any] struct {
	op     string
	owner  string
	id     string
	fields *F
	filter *api.ListParams
}

// load fetches id and hides it unless it belongs to the named owner.
func (e entityOps[T, F]) load(ctx context.Context, owner, id string) (T, error) {
	var zero T
	if err := requireID(id); err != nil {
		return zero, err
	}
	item, err := e.get(ctx, id)
	if err != nil {
		return zero, err
	}
	if err := owned(owner, e.ownerOf(item), id); err != nil {
		return zero, err
	}
	return item, nil
}

// run executes a shared operation. ok is false for operations the
// caller must handle itself.
func (e entityOps[T, F]) run(ctx context.Context, s *Server, c call[F]) (out entityOutput, summary string, ok bool, err error) {
	out.Operation = c.op
	switch c.op {
	case opCreate:
		ctx, owner, err := s.resolveOwner(ctx, c.owner)
		if err != nil {
			return out, "", true, err
		}
		if c.fields == nil {
			return out, "", true, fmt.Errorf("fields are required to create a %s: %w", e.name, usercontext.ErrInvalidInput)
		}
		item, err := e.build(*c.fields, owner)
		if err != nil {
			return out, "", true, err
		}
		if err := e.create(ctx, item); err != nil {
			return out, "", true, err
		}
		out, err = single(c.op, item)
		return out, fmt.Sprintf("created %s %v", e.name, out.Item["id"]), true, err

	case opRead:
		item, err := e.load(ctx, c.owner, c.id)
		if err != nil {
			return out, "", true, err
		}
		out, err = single(c.op, item)
		return out, fmt.Sprintf("%s %s", e.name, c.id), true, err

	case opUpdate:
		if c.fields == nil {
			return out, "", true, fmt.Errorf("fields are required to update a %s: %w", e.name, usercontext.ErrInvalidInput)
		}
		item, err := e.load(ctx, c.owner, c.id)
		if err != nil {
			return out, "", true, err
		}
		if err := e.apply(*c.fields, item, s.now()); err != nil {
			return out, "", true, err
		}
		if err := e.update(ctx, item); err != nil {
			return out, "", true, err
		}
		out, err = single(c.op, item)
		return out, fmt.Sprintf("updated %s %s", e.name, c.id), true, err

	case opDelete:
		if _, err := e.load(ctx, c.owner, c.id); err != nil {
			return out, "", true, err
		}
		if err := e.remove(ctx, c.id); err != nil {
			return out, "", true, err
		}
		out.Deleted = c.id
		out.Count = 1
		return out, fmt.Sprintf("deleted %s %s", e.name, c.id), true, nil

	case opList:
		ctx, owner, err := s.resolveOwner(ctx, c.owner)
		if err != nil {
			return out, "", true, err
		}
		var params api.ListParams
		if c.filter != nil {
			params = *c.filter
		}
		items, err := e.list(ctx, owner, params)
		if err != nil {
			return out, "", true, err
		}
		out, err = many(c.op, items)
		return out, fmt.Sprintf("%d %s(s)", out.Count, e.name), true, err
	}
	return out, "", false, nil
}

func single[T any](op string, item T) (entityOutput, error) {
	m, err := toMap(item)
	if err != nil {
		return entityOutput{Operation: op}, err
	}
	return entityOutput{Operation: op, Item: m, Count: 1}, nil
}

func many[T any](op string, items []T) (entityOutput, error) {
	ms, err := toMaps(items)
	if err != nil {
		return entityOutput{Operation: op}, err
	}
	return entityOutput{Operation: op, Items: ms, Count: len(ms)}, nil
}

func unknownOperation(tool, op string) error {
	return fmt.Errorf("%s: unknown operation %q: %w", tool, op, usercontext.ErrInvalidInput)
}
