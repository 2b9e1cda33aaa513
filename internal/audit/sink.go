// Package audit fans context mutations out to durable and streaming sinks.
package audit

import (
	"context"
	"errors"

	"github.com/fyrsmithlabs/contextiq/internal/store"
	"github.com/fyrsmithlabs/contextiq/internal/usercontext"
)

// Sink receives one entry per mutation.
type Sink interface {
	Record(ctx context.Context, e *usercontext.AuditEntry) error
}

// StoreSink appends entries to the context store's audit table.
type StoreSink struct {
	store store.AuditStore
}

// NewStoreSink wraps an audit store.
func NewStoreSink(s store.AuditStore) *StoreSink {
	return &StoreSink{store: s}
}

func (s *StoreSink) Record(ctx context.Context, e *usercontext.AuditEntry) error {
	return s.store.AppendAudit(ctx, e)
}

// Multi records to every sink and joins their errors. A failing sink does
// not stop the others.
type Multi []Sink

func (m Multi) Record(ctx context.Context, e *usercontext.AuditEntry) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards entries.
type Nop struct{}

func (Nop) Record(context.Context, *usercontext.AuditEntry) error { return nil }

var (
	_ Sink = (*StoreSink)(nil)
	_ Sink = Multi(nil)
	_ Sink = Nop{}
)
