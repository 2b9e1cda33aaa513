package usercontext

import (
	"time"

	"github.com/google/uuid"
)

// Todo is a task derived from another context item.
type Todo struct {
	ID                string          `json:"id"`
	OwnerID           string          `json:"owner_id"`
	Description       string          `json:"task_description"`
	ContextType       TodoContextType `json:"context_type"`
	RelatedEntityID   *string         `json:"related_entity_id,omitempty"`
	RelatedEntityType *EntityType     `json:"related_entity_type,omitempty"`
	ProjectID         *string         `json:"project_id,omitempty"`
	AssignedTo        *string         `json:"assigned_to,omitempty"`
	DueDate           *time.Time      `json:"due_date,omitempty"`
	Status            TodoStatus      `json:"status"`
	Priority          int             `json:"priority"`
	ConversationDate  *time.Time      `json:"created_from_conversation_date,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         *time.Time      `json:"updated_at,omitempty"`
	CompletionDate    *time.Time      `json:"completion_date,omitempty"`
}

// NewTodo creates a pending todo with default priority.
func NewTodo(ownerID, description string, contextType TodoContextType) *Todo {
	return &Todo{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		Description: description,
		ContextType: contextType,
		Status:      TodoPending,
		Priority:    DefaultPriority,
		CreatedAt:   time.Now().UTC(),
	}
}

// LinkTo records the entity this todo was derived from.
func (t *Todo) LinkTo(entityID string, entityType EntityType) *Todo {
	t.RelatedEntityID = &entityID
	t.RelatedEntityType = &entityType
	return t
}

// WithPriority sets the priority, clamped to [1,5].
func (t *Todo) WithPriority(priority int) *Todo {
	t.Priority = ClampPriority(priority)
	return t
}

// SetStatus moves the todo through its lifecycle.
func (t *Todo) SetStatus(status TodoStatus, now time.Time) {
	t.Status = status
	if status == TodoCompleted {
		t.CompletionDate = &now
	}
	t.UpdatedAt = &now
}

// Normalize fills defaults for zero-valued fields.
func (t *Todo) Normalize() {
	t.ContextType = ParseTodoContextType(string(t.ContextType))
	t.Status = ParseTodoStatus(string(t.Status))
	if t.Priority == 0 {
		t.Priority = DefaultPriority
	}
}

// Validate checks required fields and ranges.
func (t *Todo) Validate() error {
	if err := requireField(t.OwnerID, "owner_id"); err != nil {
		return err
	}
	if err := requireField(t.Description, "task_description"); err != nil {
		return err
	}
	return ValidatePriority(t.Priority)
}

// Clone returns a deep copy.
func (t *Todo) Clone() *Todo {
	c := *t
	c.RelatedEntityID = cloneString(t.RelatedEntityID)
	if t.RelatedEntityType != nil {
		et := *t.RelatedEntityType
		c.RelatedEntityType = &et
	}
	c.ProjectID = cloneString(t.ProjectID)
	c.AssignedTo = cloneString(t.AssignedTo)
	c.DueDate = cloneTime(t.DueDate)
	c.ConversationDate = cloneTime(t.ConversationDate)
	c.UpdatedAt = cloneTime(t.UpdatedAt)
	c.CompletionDate = cloneTime(t.CompletionDate)
	return &c
}
