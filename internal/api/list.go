package api

import (
	"github.com/fyrsmithlabs/contextiq/internal/service"
	"github.com/fyrsmithlabs/contextiq/internal/usercontext"
)

// ListParams narrow a list call. Each entity kind reads the subset that
// applies to it and ignores the rest.
type ListParams struct {
	Status         string `json:"status,omitempty" query:"status"`
	Category       string `json:"category,omitempty" query:"category"`
	Scope          string `json:"scope,omitempty" query:"scope"`
	Type           string `json:"type,omitempty" query:"type"`
	Severity       string `json:"severity,omitempty" query:"severity"`
	Component      string `json:"component,omitempty" query:"component"`
	ProjectID      string `json:"project_id,omitempty" query:"project_id"`
	EntityID       string `json:"entity_id,omitempty" query:"entity_id"`
	AutomationOnly bool   `json:"automation_only,omitempty" query:"automation_only"`
}

func (p ListParams) scope() *usercontext.Scope {
	if p.Scope == "" {
		return nil
	}
	s := usercontext.ParseScope(p.Scope)
	return &s
}

func (p ListParams) Decisions() service.DecisionFilter {
	f := service.DecisionFilter{Scope: p.scope()}
	if p.Category != "" {
		f.Category = usercontext.ParseDecisionCategory(p.Category)
	}
	if p.Status != "" {
		f.Status = usercontext.ParseEntityStatus(p.Status)
	}
	return f
}

func (p ListParams) Goals() service.GoalFilter {
	f := service.GoalFilter{ProjectID: p.ProjectID}
	if p.Status != "" {
		f.Status = usercontext.ParseGoalStatus(p.Status)
	}
	return f
}

func (p ListParams) Preferences() service.PreferenceFilter {
	f := service.PreferenceFilter{Scope: p.scope(), AutomationOnly: p.AutomationOnly}
	if p.Type != "" {
		f.Type = usercontext.ParsePreferenceType(p.Type)
	}
	return f
}

func (p ListParams) Issues() service.IssueFilter {
	f := service.IssueFilter{Component: p.Component}
	if p.Status != "" {
		f.Status = usercontext.ParseResolutionStatus(p.Status)
	}
	if p.Severity != "" {
		f.Severity = usercontext.ParseSeverity(p.Severity)
	}
	if p.Category != "" {
		f.Category = usercontext.ParseIssueCategory(p.Category)
	}
	return f
}

func (p ListParams) Todos() service.TodoFilter {
	f := service.TodoFilter{ProjectID: p.ProjectID, EntityID: p.EntityID}
	if p.Status != "" {
		f.Status = usercontext.ParseTodoStatus(p.Status)
	}
	return f
}
