package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/fyrsmithlabs/contextiq/internal/api"
	"github.com/fyrsmithlabs/contextiq/internal/service"
	"github.com/fyrsmithlabs/contextiq/internal/usercontext"
)

const (
	scopeHelp    = "global, project_id:<id> or workflow:<name>"
	priorityHelp = "priority, 1 (highest) to 5"
	dateHelp     = "RFC 3339 timestamp or YYYY-MM-DD; empty clears"
)

func decisionCmd(c *cli) *cobra.Command {
	e := entity[*usercontext.Decision, api.DecisionFields]{
		name:    "decision",
		short:   "Manage recorded decisions",
		primary: "text",
		flags: func(fs *pflag.FlagSet) {
			fs.String("text", "", "the decision itself")
			fs.String("reason", "", "why it was made")
			fs.String("category", "", "architecture, tool_choice, constraint, workflow, performance, security or other")
			fs.String("scope", "", scopeHelp)
			fs.String("project", "", "related project id")
			fs.Float64("confidence", 0, "confidence score, 0.0 to 1.0")
			fs.StringSlice("ref", nil, "referenced items (repeatable)")
			fs.String("status", "", "active, archived or superseded")
		},
		fields: func(fs *pflag.FlagSet) api.DecisionFields {
			return api.DecisionFields{
				Text:             strFlag(fs, "text"),
				Reason:           strFlag(fs, "reason"),
				Category:         strFlag(fs, "category"),
				Scope:            strFlag(fs, "scope"),
				RelatedProjectID: strFlag(fs, "project"),
				Confidence:       floatFlag(fs, "confidence"),
				ReferencedItems:  listFlag(fs, "ref"),
				Status:           strFlag(fs, "status"),
			}
		},
		filter: func(fs *pflag.FlagSet) {
			fs.String("category", "", "only this category")
			fs.String("scope", "", "only this scope")
			fs.String("status", "", "only this status")
		},
		ownerOf: func(d *usercontext.Decision) string { return d.OwnerID },
		get:     (*service.Service).GetDecision,
		create:  (*service.Service).CreateDecision,
		update:  (*service.Service).UpdateDecision,
		remove:  (*service.Service).DeleteDecision,
		list: func(s *service.Service, ctx context.Context, owner string, p api.ListParams) ([]*usercontext.Decision, error) {
			return s.ListDecisions(ctx, owner, p.Decisions())
		},
		build:   api.DecisionFields.New,
		apply:   func(f api.DecisionFields, d *usercontext.Decision, now time.Time) error { return f.Apply(d, now) },
		headers: []string{"ID", "Decision", "Category", "Scope", "Confidence", "Applied", "Status"},
		row: func(d *usercontext.Decision) []string {
			return []string{
				d.ID, truncate(d.Text), string(d.Category), d.Scope.String(),
				fmt.Sprintf("%.2f", d.Confidence), strconv.Itoa(d.AppliedCount), string(d.Status),
			}
		},
	}
	return e.command(c,
		e.action(c, "archive <id>", "Archive a decision", cobra.ExactArgs(1),
			func(cmd *cobra.Command, s *service.Service, id string, _ []string) (*usercontext.Decision, error) {
				return s.ArchiveDecision(cmd.Context(), id)
			}),
		e.action(c, "apply <id>", "Record that a decision was followed", cobra.ExactArgs(1),
			func(cmd *cobra.Command, s *service.Service, id string, _ []string) (*usercontext.Decision, error) {
				return s.RecordApplication(cmd.Context(), id)
			}),
	)
}

func goalCmd(c *cli) *cobra.Command {
	e := entity[*usercontext.Goal, api.GoalFields]{
		name:    "goal",
		short:   "Manage goals and their steps",
		primary: "text",
		flags: func(fs *pflag.FlagSet) {
			fs.String("text", "", "the goal")
			fs.String("description", "", "longer description")
			fs.String("project", "", "project id")
			fs.String("status", "", "planned, in_progress, completed or blocked")
			fs.Int("priority", 0, priorityHelp)
			fs.String("target", "", "completion target date, "+dateHelp)
			fs.StringSlice("step", nil, "step descriptions; replaces every step (repeatable)")
			fs.StringSlice("blocker", nil, "blockers (repeatable)")
			fs.StringSlice("todo", nil, "related todo ids (repeatable)")
		},
		fields: func(fs *pflag.FlagSet) api.GoalFields {
			f := api.GoalFields{
				Text:         strFlag(fs, "text"),
				Description:  strFlag(fs, "description"),
				ProjectID:    strFlag(fs, "project"),
				Status:       strFlag(fs, "status"),
				Priority:     intFlag(fs, "priority"),
				TargetDate:   strFlag(fs, "target"),
				Blockers:     listFlag(fs, "blocker"),
				RelatedTodos: listFlag(fs, "todo"),
			}
			if steps := listFlag(fs, "step"); steps != nil {
				f.Steps = make([]api.StepFields, len(steps))
				for i, s := range steps {
					f.Steps[i] = api.StepFields{Description: s}
				}
			}
			return f
		},
		filter: func(fs *pflag.FlagSet) {
			fs.String("status", "", "only this status")
			fs.String("project", "", "only this project")
		},
		ownerOf: func(g *usercontext.Goal) string { return g.OwnerID },
		get:     (*service.Service).GetGoal,
		create:  (*service.Service).CreateGoal,
		update:  (*service.Service).UpdateGoal,
		remove:  (*service.Service).DeleteGoal,
		list: func(s *service.Service, ctx context.Context, owner string, p api.ListParams) ([]*usercontext.Goal, error) {
			return s.ListGoals(ctx, owner, p.Goals())
		},
		build:   api.GoalFields.New,
		apply:   func(f api.GoalFields, g *usercontext.Goal, now time.Time) error { return f.Apply(g, now) },
		headers: []string{"ID", "Goal", "Priority", "Status", "Steps", "Progress", "Target"},
		row: func(g *usercontext.Goal) []string {
			return []string{
				g.ID, truncate(g.Text), strconv.Itoa(g.Priority), string(g.Status),
				strconv.Itoa(len(g.Steps)), completionBar(g.CompletionPercentage()), date(g.TargetDate),
			}
		},
	}

	addStep := e.action(c, "add-step <id> <description>", "Append a step", cobra.ExactArgs(2),
		func(cmd *cobra.Command, s *service.Service, id string, args []string) (*usercontext.Goal, error) {
			due, err := api.ParseDate(flagValue(cmd.Flags(), "due"))
			if err != nil {
				return nil, err
			}
			return s.AddGoalStep(cmd.Context(), id, args[0], due)
		})
	addStep.Flags().String("due", "", "step due date, "+dateHelp)

	return e.command(c,
		e.action(c, "status <id> <status>", "Set a goal's status", cobra.ExactArgs(2),
			func(cmd *cobra.Command, s *service.Service, id string, args []string) (*usercontext.Goal, error) {
				return s.UpdateGoalStatus(cmd.Context(), id, usercontext.ParseGoalStatus(args[0]))
			}),
		addStep,
		e.action(c, "step <id> <number> <status>", "Set the status of one step", cobra.ExactArgs(3),
			func(cmd *cobra.Command, s *service.Service, id string, args []string) (*usercontext.Goal, error) {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return nil, fmt.Errorf("step number %q: %w", args[0], usercontext.ErrInvalidInput)
				}
				return s.SetGoalStepStatus(cmd.Context(), id, n, usercontext.ParseGoalStatus(args[1]))
			}),
	)
}

func preferenceCmd(c *cli) *cobra.Command {
	e := entity[*usercontext.Preference, api.PreferenceFields]{
		name:    "preference",
		short:   "Manage standing preferences",
		primary: "name",
		flags: func(fs *pflag.FlagSet) {
			fs.String("name", "", "preference name")
			fs.String("value", "", "preference value")
			fs.String("type", "", "tool, framework, constraint, pattern or other")
			fs.String("scope", "", scopeHelp)
			fs.Bool("automation", true, "enforce on automated actions")
			fs.String("rationale", "", "why the user holds it")
			fs.Int("priority", 0, priorityHelp)
			fs.StringSlice("tag", nil, "tags (repeatable)")
		},
		fields: func(fs *pflag.FlagSet) api.PreferenceFields {
			return api.PreferenceFields{
				Name:                strFlag(fs, "name"),
				Value:               strFlag(fs, "value"),
				Type:                strFlag(fs, "type"),
				Scope:               strFlag(fs, "scope"),
				AppliesToAutomation: boolFlag(fs, "automation"),
				Rationale:           strFlag(fs, "rationale"),
				Priority:            intFlag(fs, "priority"),
				Tags:                listFlag(fs, "tag"),
			}
		},
		filter: func(fs *pflag.FlagSet) {
			fs.String("type", "", "only this type")
			fs.String("scope", "", "only this scope")
			fs.Bool("automation-only", false, "only preferences enforced on automation")
		},
		ownerOf: func(p *usercontext.Preference) string { return p.OwnerID },
		get:     (*service.Service).GetPreference,
		create:  (*service.Service).CreatePreference,
		update:  (*service.Service).UpdatePreference,
		remove:  (*service.Service).DeletePreference,
		list: func(s *service.Service, ctx context.Context, owner string, p api.ListParams) ([]*usercontext.Preference, error) {
			return s.ListPreferences(ctx, owner, p.Preferences())
		},
		build:   api.PreferenceFields.New,
		apply:   func(f api.PreferenceFields, p *usercontext.Preference, now time.Time) error { return f.Apply(p, now) },
		headers: []string{"ID", "Name", "Value", "Type", "Scope", "Automation", "Seen"},
		row: func(p *usercontext.Preference) []string {
			return []string{
				p.ID, truncate(p.Name), truncate(p.Value), string(p.Type), p.Scope.String(),
				strconv.FormatBool(p.AppliesToAutomation), strconv.Itoa(p.FrequencyObserved),
			}
		},
	}
	return e.command(c,
		e.action(c, "observe <id>", "Record another observation of a preference", cobra.ExactArgs(1),
			func(cmd *cobra.Command, s *service.Service, id string, _ []string) (*usercontext.Preference, error) {
				return s.ObservePreference(cmd.Context(), id)
			}),
	)
}

func issueCmd(c *cli) *cobra.Command {
	e := entity[*usercontext.Issue, api.IssueFields]{
		name:    "issue",
		short:   "Manage known issues",
		primary: "description",
		flags: func(fs *pflag.FlagSet) {
			fs.String("description", "", "what goes wrong")
			fs.StringSlice("symptom", nil, "symptoms (repeatable)")
			fs.String("root-cause", "", "root cause")
			fs.String("workaround", "", "known workaround")
			fs.String("solution", "", "permanent solution")
			fs.StringSlice("component", nil, "affected components (repeatable)")
			fs.String("severity", "", "critical, high, medium or low")
			fs.String("category", "", "integration, performance, deployment, data, workflow or other")
			fs.String("resolution", "", "unresolved, workaround_available, fixed or no_action_needed")
			fs.String("prevention", "", "prevention notes")
			fs.StringSlice("project", nil, "project contexts (repeatable)")
		},
		fields: func(fs *pflag.FlagSet) api.IssueFields {
			return api.IssueFields{
				Description:        strFlag(fs, "description"),
				Symptoms:           listFlag(fs, "symptom"),
				RootCause:          strFlag(fs, "root-cause"),
				Workaround:         strFlag(fs, "workaround"),
				PermanentSolution:  strFlag(fs, "solution"),
				AffectedComponents: listFlag(fs, "component"),
				Severity:           strFlag(fs, "severity"),
				Category:           strFlag(fs, "category"),
				ResolutionStatus:   strFlag(fs, "resolution"),
				PreventionNotes:    strFlag(fs, "prevention"),
				ProjectContexts:    listFlag(fs, "project"),
			}
		},
		filter: func(fs *pflag.FlagSet) {
			fs.String("severity", "", "only this severity")
			fs.String("category", "", "only this category")
			fs.String("status", "", "only this resolution status")
			fs.String("component", "", "only issues affecting this component")
		},
		ownerOf: func(i *usercontext.Issue) string { return i.OwnerID },
		get:     (*service.Service).GetIssue,
		create:  (*service.Service).CreateIssue,
		update:  (*service.Service).UpdateIssue,
		remove:  (*service.Service).DeleteIssue,
		list: func(s *service.Service, ctx context.Context, owner string, p api.ListParams) ([]*usercontext.Issue, error) {
			return s.ListIssues(ctx, owner, p.Issues())
		},
		build:   api.IssueFields.New,
		apply:   func(f api.IssueFields, i *usercontext.Issue, now time.Time) error { return f.Apply(i, now) },
		headers: []string{"ID", "Issue", "Severity", "Category", "Resolution", "Workaround"},
		row: func(i *usercontext.Issue) []string {
			return []string{
				i.ID, truncate(i.Description), severityBadge(string(i.Severity)), string(i.Category),
				string(i.ResolutionStatus), truncate(opt(i.Workaround)),
			}
		},
	}
	return e.command(c,
		e.action(c, "resolve <id> [status]", "Mark an issue resolved (default fixed)", cobra.RangeArgs(1, 2),
			func(cmd *cobra.Command, s *service.Service, id string, args []string) (*usercontext.Issue, error) {
				status := usercontext.ResolutionFixed
				if len(args) > 0 {
					status = usercontext.ParseResolutionStatus(args[0])
				}
				return s.ResolveIssue(cmd.Context(), id, status)
			}),
	)
}

func todoCmd(c *cli) *cobra.Command {
	e := entity[*usercontext.Todo, api.TodoFields]{
		name:    "todo",
		short:   "Manage contextual todos",
		primary: "description",
		flags: func(fs *pflag.FlagSet) {
			fs.String("description", "", "the task")
			fs.String("context-type", "", "decision_implementation, goal_step, issue_resolution, preference_adoption or other")
			fs.String("entity", "", "related entity id")
			fs.String("entity-type", "", "user_decision, user_goal, known_issue, user_preference or contextual_todo")
			fs.String("project", "", "project id")
			fs.String("assignee", "", "assigned to")
			fs.String("due", "", "due date, "+dateHelp)
			fs.String("status", "", "pending, in_progress, completed or blocked")
			fs.Int("priority", 0, priorityHelp)
		},
		fields: func(fs *pflag.FlagSet) api.TodoFields {
			return api.TodoFields{
				Description:       strFlag(fs, "description"),
				ContextType:       strFlag(fs, "context-type"),
				RelatedEntityID:   strFlag(fs, "entity"),
				RelatedEntityType: strFlag(fs, "entity-type"),
				ProjectID:         strFlag(fs, "project"),
				AssignedTo:        strFlag(fs, "assignee"),
				DueDate:           strFlag(fs, "due"),
				Status:            strFlag(fs, "status"),
				Priority:          intFlag(fs, "priority"),
			}
		},
		filter: func(fs *pflag.FlagSet) {
			fs.String("status", "", "only this status")
			fs.String("project", "", "only this project")
			fs.String("entity", "", "only todos linked to this entity")
		},
		ownerOf: func(t *usercontext.Todo) string { return t.OwnerID },
		get:     (*service.Service).GetTodo,
		create:  (*service.Service).CreateTodo,
		update:  (*service.Service).UpdateTodo,
		remove:  (*service.Service).DeleteTodo,
		list: func(s *service.Service, ctx context.Context, owner string, p api.ListParams) ([]*usercontext.Todo, error) {
			return s.ListTodos(ctx, owner, p.Todos())
		},
		build:   api.TodoFields.New,
		apply:   func(f api.TodoFields, t *usercontext.Todo, now time.Time) error { return f.Apply(t, now) },
		headers: []string{"ID", "Task", "Context", "Priority", "Status", "Due"},
		row: func(t *usercontext.Todo) []string {
			return []string{
				t.ID, truncate(t.Description), string(t.ContextType), strconv.Itoa(t.Priority),
				string(t.Status), date(t.DueDate),
			}
		},
	}
	return e.command(c,
		e.action(c, "status <id> <status>", "Set a todo's status", cobra.ExactArgs(2),
			func(cmd *cobra.Command, s *service.Service, id string, args []string) (*usercontext.Todo, error) {
				return s.UpdateTodoStatus(cmd.Context(), id, usercontext.ParseTodoStatus(args[0]))
			}),
	)
}

func flagValue(fs *pflag.FlagSet, name string) string {
	v, _ := fs.GetString(name)
	return strings.TrimSpace(v)
}
