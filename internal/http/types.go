package http

import (
	"github.com/fyrsmithlabs/contextiq/internal/api"
	"github.com/fyrsmithlabs/contextiq/internal/telemetry"
	"github.com/fyrsmithlabs/contextiq/internal/validation"
)

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status    string                  `json:"status"`
	Version   string                  `json:"version,omitempty"`
	Telemetry *telemetry.HealthStatus `json:"telemetry,omitempty"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// ListResponse wraps every collection endpoint.
type ListResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

func listOf[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Count: len(items)}
}

// StatusResponse is the response body for GET /api/v1/owners/:owner/status.
type StatusResponse struct {
	OwnerID   string         `json:"owner_id"`
	Counts    map[string]int `json:"counts"`
	Conflicts int            `json:"conflicts"`
}

// ExtractRequest is the request body for POST /extract.
type ExtractRequest struct {
	Text string `json:"text"`
}

// ValidateRequest is the request body for POST /validate.
type ValidateRequest struct {
	validation.Action
	ProjectID string `json:"project_id,omitempty"`
}

// StatusRequest changes the status of a goal, goal step, todo or issue.
type StatusRequest struct {
	Status string `json:"status"`
}

// StepRequest appends a step to a goal.
type StepRequest = api.StepFields
