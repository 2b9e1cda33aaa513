package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/contextiq/internal/api"
	"github.com/fyrsmithlabs/contextiq/internal/usercontext"
)

type decisionInput struct {
	Operation string              `json:"operation" jsonschema:"create, read, update, delete, list, archive or increment_applied"`
	OwnerID   string              `json:"owner_id,omitempty" jsonschema:"defaults to the server's configured owner"`
	ID        string              `json:"id,omitempty" jsonschema:"decision id for read, update, delete, archive and increment_applied"`
	Fields    *api.DecisionFields `json:"fields,omitempty"`
	Filter    *api.ListParams     `json:"filter,omitempty" jsonschema:"list filter: category, scope, status"`
}

type goalInput struct {
	Operation  string          `json:"operation" jsonschema:"create, read, update, delete, list, list_by_status, update_status, add_step or update_step"`
	OwnerID    string          `json:"owner_id,omitempty" jsonschema:"defaults to the server's configured owner"`
	ID         string          `json:"id,omitempty"`
	Fields     *api.GoalFields `json:"fields,omitempty"`
	Filter     *api.ListParams `json:"filter,omitempty" jsonschema:"list filter: status, project_id"`
	Status     string          `json:"status,omitempty" jsonschema:"planned, in_progress, completed or blocked"`
	Step       *api.StepFields `json:"step,omitempty" jsonschema:"step to append for add_step"`
	StepNumber int             `json:"step_number,omitempty" jsonschema:"step to change for update_step"`
}

type preferenceInput struct {
	Operation string                `json:"operation" jsonschema:"create, read, update, delete, list or increment_frequency"`
	OwnerID   string                `json:"owner_id,omitempty" jsonschema:"defaults to the server's configured owner"`
	ID        string                `json:"id,omitempty"`
	Fields    *api.PreferenceFields `json:"fields,omitempty"`
	Filter    *api.ListParams       `json:"filter,omitempty" jsonschema:"list filter: type, scope, automation_only"`
}

type issueInput struct {
	Operation string           `json:"operation" jsonschema:"create, read, update, delete, list or resolve"`
	OwnerID   string           `json:"owner_id,omitempty" jsonschema:"defaults to the server's configured owner"`
	ID        string           `json:"id,omitempty"`
	Fields    *api.IssueFields `json:"fields,omitempty"`
	Filter    *api.ListParams  `json:"filter,omitempty" jsonschema:"list filter: severity, category, status, component"`
	Status    string           `json:"status,omitempty" jsonschema:"resolution for resolve; defaults to fixed"`
}

type todoInput struct {
	Operation string          `json:"operation" jsonschema:"create, read, update, delete, list or update_status"`
	OwnerID   string          `json:"owner_id,omitempty" jsonschema:"defaults to the server's configured owner"`
	ID        string          `json:"id,omitempty"`
	Fields    *api.TodoFields `json:"fields,omitempty"`
	Filter    *api.ListParams `json:"filter,omitempty" jsonschema:"list filter: status, project_id, entity_id"`
	Status    string          `json:"status,omitempty" jsonschema:"pending, in_progress, completed or blocked"`
}

func (s *Server) registerContextTools() {
	decisions := entityOps[*usercontext.Decision, api.DecisionFields]{
		name:    "decision",
		ownerOf: func(d *usercontext.Decision) string { return d.OwnerID },
		get:     s.svc.GetDecision,
		create:  s.svc.CreateDecision,
		update:  s.svc.UpdateDecision,
		remove:  s.svc.DeleteDecision,
		list: func(ctx context.Context, owner string, p api.ListParams) ([]*usercontext.Decision, error) {
			return s.svc.ListDecisions(ctx, owner, p.Decisions())
		},
		build: api.DecisionFields.New,
		apply: func(f api.DecisionFields, d *usercontext.Decision, now time.Time) error { return f.Apply(d, now) },
	}
	addTool(s, ToolMetadata{
		Name:        "manage_user_decision",
		Description: "Create, read, update, delete and list the user's recorded decisions. archive retires one; increment_applied records that a decision was followed again.",
		Category:    CategoryContext,
		Operations:  append(crudOps, "archive", "increment_applied"),
		Keywords:    []string{"decision", "choice", "architecture", "tool", "constraint"},
	}, func(ctx context.Context, in decisionInput) (entityOutput, string, error) {
		c := call[api.DecisionFields]{op: in.Operation, owner: in.OwnerID, id: in.ID, fields: in.Fields, filter: in.Filter}
		if out, summary, ok, err := decisions.run(ctx, s, c); ok {
			return out, summary, err
		}
		var act func(context.Context, string) (*usercontext.Decision, error)
		switch in.Operation {
		case "archive":
			act = s.svc.ArchiveDecision
		case "increment_applied":
			act = s.svc.RecordApplication
		default:
			return entityOutput{}, "", unknownOperation("manage_user_decision", in.Operation)
		}
		if _, err := decisions.load(ctx, in.OwnerID, in.ID); err != nil {
			return entityOutput{}, "", err
		}
		d, err := act(ctx, in.ID)
		if err != nil {
			return entityOutput{}, "", err
		}
		out, err := single(in.Operation, d)
		return out, fmt.Sprintf("decision %s: %s (applied %d times)", d.ID, d.Status, d.AppliedCount), err
	})

	goals := entityOps[*usercontext.Goal, api.GoalFields]{
		name:    "goal",
		ownerOf: func(g *usercontext.Goal) string { return g.OwnerID },
		get:     s.svc.GetGoal,
		create:  s.svc.CreateGoal,
		update:  s.svc.UpdateGoal,
		remove:  s.svc.DeleteGoal,
		list: func(ctx context.Context, owner string, p api.ListParams) ([]*usercontext.Goal, error) {
			return s.svc.ListGoals(ctx, owner, p.Goals())
		},
		build: api.GoalFields.New,
		apply: func(f api.GoalFields, g *usercontext.Goal, now time.Time) error { return f.Apply(g, now) },
	}
	addTool(s, ToolMetadata{
		Name:        "manage_user_goal",
		Description: "Create, read, update, delete and list the user's goals and their ordered steps. list_by_status, update_status, add_step and update_step work on one goal's lifecycle.",
		Category:    CategoryContext,
		Operations:  append(crudOps, "list_by_status", "update_status", "add_step", "update_step"),
		Keywords:    []string{"goal", "objective", "milestone", "step", "plan", "progress"},
	}, func(ctx context.Context, in goalInput) (entityOutput, string, error) {
		c := call[api.GoalFields]{op: in.Operation, owner: in.OwnerID, id: in.ID, fields: in.Fields, filter: in.Filter}
		if out, summary, ok, err := goals.run(ctx, s, c); ok {
			return out, summary, err
		}
		var (
			g   *usercontext.Goal
			err error
		)
		switch in.Operation {
		case "list_by_status":
			if in.Status == "" {
				return entityOutput{}, "", fmt.Errorf("status is required: %w", usercontext.ErrInvalidInput)
			}
			c.op = opList
			c.filter = &api.ListParams{Status: in.Status}
			out, summary, _, err := goals.run(ctx, s, c)
			out.Operation = in.Operation
			return out, summary, err
		case "update_status", "add_step", "update_step":
		default:
			return entityOutput{}, "", unknownOperation("manage_user_goal", in.Operation)
		}

		if _, err := goals.load(ctx, in.OwnerID, in.ID); err != nil {
			return entityOutput{}, "", err
		}
		switch in.Operation {
		case "update_status":
			if in.Status == "" {
				return entityOutput{}, "", fmt.Errorf("status is required: %w", usercontext.ErrInvalidInput)
			}
			g, err = s.svc.UpdateGoalStatus(ctx, in.ID, usercontext.ParseGoalStatus(in.Status))
		case "add_step":
			if in.Step == nil {
				return entityOutput{}, "", fmt.Errorf("step is required: %w", usercontext.ErrInvalidInput)
			}
			var due *time.Time
			if in.Step.DueDate != nil {
				if due, err = api.ParseDate(*in.Step.DueDate); err != nil {
					return entityOutput{}, "", fmt.Errorf("due_date: %w", err)
				}
			}
			g, err = s.svc.AddGoalStep(ctx, in.ID, in.Step.Description, due)
		case "update_step":
			if in.StepNumber < 1 || in.Status == "" {
				return entityOutput{}, "", fmt.Errorf("step_number and status are required: %w", usercontext.ErrInvalidInput)
			}
			g, err = s.svc.SetGoalStepStatus(ctx, in.ID, in.StepNumber, usercontext.ParseGoalStatus(in.Status))
		}
		if err != nil {
			return entityOutput{}, "", err
		}
		out, err := single(in.Operation, g)
		return out, fmt.Sprintf("goal %s: %s, %.0f%% complete", g.ID, g.Status, g.CompletionPercentage()), err
	})

	prefs := entityOps[*usercontext.Preference, api.PreferenceFields]{
		name:    "preference",
		ownerOf: func(p *usercontext.Preference) string { return p.OwnerID },
		get:     s.svc.GetPreference,
		create:  s.svc.CreatePreference,
		update:  s.svc.UpdatePreference,
		remove:  s.svc.DeletePreference,
		list: func(ctx context.Context, owner string, p api.ListParams) ([]*usercontext.Preference, error) {
			return s.svc.ListPreferences(ctx, owner, p.Preferences())
		},
		build: api.PreferenceFields.New,
		apply: func(f api.PreferenceFields, p *usercontext.Preference, now time.Time) error { return f.Apply(p, now) },
	}
	addTool(s, ToolMetadata{
		Name:        "manage_user_preference",
		Description: "Create, read, update, delete and list the user's preferences. increment_frequency records another observation of a preference.",
		Category:    CategoryContext,
		Operations:  append(crudOps, "increment_frequency"),
		Keywords:    []string{"preference", "prefer", "likes", "style", "automation"},
	}, func(ctx context.Context, in preferenceInput) (entityOutput, string, error) {
		c := call[api.PreferenceFields]{op: in.Operation, owner: in.OwnerID, id: in.ID, fields: in.Fields, filter: in.Filter}
		if out, summary, ok, err := prefs.run(ctx, s, c); ok {
			return out, summary, err
		}
		if in.Operation != "increment_frequency" {
			return entityOutput{}, "", unknownOperation("manage_user_preference", in.Operation)
		}
		if _, err := prefs.load(ctx, in.OwnerID, in.ID); err != nil {
			return entityOutput{}, "", err
		}
		p, err := s.svc.ObservePreference(ctx, in.ID)
		if err != nil {
			return entityOutput{}, "", err
		}
		out, err := single(in.Operation, p)
		return out, fmt.Sprintf("preference %s observed %d times", p.ID, p.FrequencyObserved), err
	})

	issues := entityOps[*usercontext.Issue, api.IssueFields]{
		name:    "issue",
		ownerOf: func(i *usercontext.Issue) string { return i.OwnerID },
		get:     s.svc.GetIssue,
		create:  s.svc.CreateIssue,
		update:  s.svc.UpdateIssue,
		remove:  s.svc.DeleteIssue,
		list: func(ctx context.Context, owner string, p api.ListParams) ([]*usercontext.Issue, error) {
			return s.svc.ListIssues(ctx, owner, p.Issues())
		},
		build: api.IssueFields.New,
		apply: func(f api.IssueFields, i *usercontext.Issue, now time.Time) error { return f.Apply(i, now) },
	}
	addTool(s, ToolMetadata{
		Name:        "manage_known_issue",
		Description: "Create, read, update, delete and list known issues with their symptoms, workarounds and affected components. resolve marks one resolved.",
		Category:    CategoryContext,
		Operations:  append(crudOps, "resolve"),
		Keywords:    []string{"issue", "bug", "problem", "workaround", "symptom", "incident"},
	}, func(ctx context.Context, in issueInput) (entityOutput, string, error) {
		c := call[api.IssueFields]{op: in.Operation, owner: in.OwnerID, id: in.ID, fields: in.Fields, filter: in.Filter}
		if out, summary, ok, err := issues.run(ctx, s, c); ok {
			return out, summary, err
		}
		if in.Operation != "resolve" {
			return entityOutput{}, "", unknownOperation("manage_known_issue", in.Operation)
		}
		if _, err := issues.load(ctx, in.OwnerID, in.ID); err != nil {
			return entityOutput{}, "", err
		}
		status := usercontext.ResolutionFixed
		if in.Status != "" {
			status = usercontext.ParseResolutionStatus(in.Status)
		}
		i, err := s.svc.ResolveIssue(ctx, in.ID, status)
		if err != nil {
			return entityOutput{}, "", err
		}
		out, err := single(in.Operation, i)
		return out, fmt.Sprintf("issue %s: %s", i.ID, i.ResolutionStatus), err
	})

	todos := entityOps[*usercontext.Todo, api.TodoFields]{
		name:    "todo",
		ownerOf: func(t *usercontext.Todo) string { return t.OwnerID },
		get:     s.svc.GetTodo,
		create:  s.svc.CreateTodo,
		update:  s.svc.UpdateTodo,
		remove:  s.svc.DeleteTodo,
		list: func(ctx context.Context, owner string, p api.ListParams) ([]*usercontext.Todo, error) {
			return s.svc.ListTodos(ctx, owner, p.Todos())
		},
		build: api.TodoFields.New,
		apply: func(f api.TodoFields, t *usercontext.Todo, now time.Time) error { return f.Apply(t, now) },
	}
	addTool(s, ToolMetadata{
		Name:        "manage_contextual_todo",
		Description: "Create, read, update, delete and list todos linked to decisions, goals, preferences or issues. update_status moves one through its lifecycle.",
		Category:    CategoryContext,
		Operations:  append(crudOps, "update_status"),
		Keywords:    []string{"todo", "task", "action item", "follow up"},
	}, func(ctx context.Context, in todoInput) (entityOutput, string, error) {
		c := call[api.TodoFields]{op: in.Operation, owner: in.OwnerID, id: in.ID, fields: in.Fields, filter: in.Filter}
		if out, summary, ok, err := todos.run(ctx, s, c); ok {
			return out, summary, err
		}
		if in.Operation != "update_status" {
			return entityOutput{}, "", unknownOperation("manage_contextual_todo", in.Operation)
		}
		if in.Status == "" {
			return entityOutput{}, "", fmt.Errorf("status is required: %w", usercontext.ErrInvalidInput)
		}
		if _, err := todos.load(ctx, in.OwnerID, in.ID); err != nil {
			return entityOutput{}, "", err
		}
		t, err := s.svc.UpdateTodoStatus(ctx, in.ID, usercontext.ParseTodoStatus(in.Status))
		if err != nil {
			return entityOutput{}, "", err
		}
		out, err := single(in.Operation, t)
		return out, fmt.Sprintf("todo %s: %s", t.ID, t.Status), err
	})
}
