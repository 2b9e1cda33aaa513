package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/fyrsmithlabs/contextiq/internal/usercontext"
)

// DefaultSubjectPrefix is used when no prefix is configured.
const DefaultSubjectPrefix = "contextiq.audit"

// NATSSink publishes entries as JSON to
// <prefix>.<owner>.<entity_type>.<action>.
type NATSSink struct {
	nc     *nats.Conn
	prefix string
	owned  bool
}

// NewNATSSink publishes on an existing connection, which the caller closes.
func NewNATSSink(nc *nats.Conn, prefix string) *NATSSink {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATSSink{nc: nc, prefix: prefix}
}

// ConnectNATS dials url and returns a sink that owns the connection. opts
// are applied after the defaults, e.g. nats.Token.
func ConnectNATS(url, prefix string, opts ...nats.Option) (*NATSSink, error) {
	defaults := []nats.Option{
		nats.Name("contextiq-audit"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(1 * time.Second),
	}
	nc, err := nats.Connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("audit: connect to NATS at %s: %w", url, err)
	}
	s := NewNATSSink(nc, prefix)
	s.owned = true
	return s, nil
}

// Subject returns the subject an entry is published on.
func (s *NATSSink) Subject(e *usercontext.AuditEntry) string {
	return strings.Join([]string{
		s.prefix,
		token(e.OwnerID),
		token(string(e.EntityType)),
		token(string(e.Action)),
	}, ".")
}

func (s *NATSSink) Record(_ context.Context, e *usercontext.AuditEntry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("audit: marshal entry: %w", err)
	}
	if err := s.nc.Publish(s.Subject(e), data); err != nil {
		return fmt.Errorf("audit: publish entry: %w", err)
	}
	return nil
}

// Close drains the connection when the sink owns it.
func (s *NATSSink) Close() error {
	if !s.owned {
		return nil
	}
	return s.nc.Drain()
}

// token makes s safe as a single subject token.
func token(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}

var _ Sink = (*NATSSink)(nil)
