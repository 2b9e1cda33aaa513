package usercontext

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction names a mutation recorded in the audit trail.
type AuditAction string

const (
	AuditCreate  AuditAction = "create"
	AuditUpdate  AuditAction = "update"
	AuditDelete  AuditAction = "delete"
	AuditArchive AuditAction = "archive"
	AuditApply   AuditAction = "apply"
	AuditObserve AuditAction = "observe"
	AuditResolve AuditAction = "resolve"
	AuditStatus  AuditAction = "status"
)

// AuditEntry records one mutation of a context item.
type AuditEntry struct {
	ID         string      `json:"id"`
	OwnerID    string      `json:"owner_id"`
	EntityType EntityType  `json:"entity_type"`
	EntityID   string      `json:"entity_id"`
	Action     AuditAction `json:"action"`
	OldValue   *string     `json:"old_value,omitempty"`
	NewValue   *string     `json:"new_value,omitempty"`
	ChangedBy  string      `json:"changed_by"`
	ChangedAt  time.Time   `json:"changed_at"`
	Reason     *string     `json:"reason,omitempty"`
}

// NewAuditEntry creates an entry stamped now.
func NewAuditEntry(ownerID string, entityType EntityType, entityID string, action AuditAction, changedBy string) *AuditEntry {
	return &AuditEntry{
		ID:         uuid.New().String(),
		OwnerID:    ownerID,
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		ChangedBy:  changedBy,
		ChangedAt:  time.Now().UTC(),
	}
}

// WithValues attaches serialized before/after snapshots. Empty strings are dropped.
func (a *AuditEntry) WithValues(oldValue, newValue string) *AuditEntry {
	if oldValue != "" {
		a.OldValue = &oldValue
	}
	if newValue != "" {
		a.NewValue = &newValue
	}
	return a
}
