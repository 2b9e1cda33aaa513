package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/fyrsmithlabs/contextiq/internal/usercontext"
)

// DecisionFields are the writable fields of a decision.
type DecisionFields struct {
	Text             *string  `json:"decision_text,omitempty" jsonschema:"the decision itself"`
	Reason           *string  `json:"reason,omitempty"`
	Category         *string  `json:"decision_category,omitempty" jsonschema:"architecture, tool_choice, constraint, workflow, performance, security or other"`
	Scope            *string  `json:"scope,omitempty" jsonschema:"global, project_id:<id> or workflow:<name>"`
	RelatedProjectID *string  `json:"related_project_id,omitempty"`
	Confidence       *float64 `json:"confidence_score,omitempty" jsonschema:"0.0 to 1.0"`
	ReferencedItems  []string `json:"referenced_items,omitempty"`
	Status           *string  `json:"status,omitempty" jsonschema:"active, archived or superseded"`
}

// New builds a decision for owner. decision_text is required.
func (f DecisionFields) New(owner string) (*usercontext.Decision, error) {
	if err := required(f.Text, "decision_text"); err != nil {
		return nil, err
	}
	d := usercontext.NewDecision(owner, *f.Text, usercontext.CategoryOther, usercontext.GlobalScope())
	return d, f.Apply(d, d.CreatedAt)
}

// Apply overwrites the fields of d that are set in f.
func (f DecisionFields) Apply(d *usercontext.Decision, now time.Time) error {
	setString(&d.Text, f.Text)
	setOptional(&d.Reason, f.Reason)
	setOptional(&d.RelatedProjectID, f.RelatedProjectID)
	if f.Category != nil {
		d.Category = usercontext.ParseDecisionCategory(*f.Category)
	}
	if f.Scope != nil {
		d.Scope = usercontext.ParseScope(*f.Scope)
	}
	if f.Confidence != nil {
		if err := usercontext.ValidateConfidence(*f.Confidence); err != nil {
			return fmt.Errorf("confidence_score: %w", err)
		}
		d.Confidence = *f.Confidence
	}
	if f.ReferencedItems != nil {
		d.ReferencedItems = f.ReferencedItems
	}
	if f.Status != nil {
		d.Status = usercontext.ParseEntityStatus(*f.Status)
	}
	if !d.CreatedAt.Equal(now) {
		d.UpdatedAt = &now
	}
	return nil
}

// StepFields describe one goal step.
type StepFields struct {
	Description string  `json:"description"`
	Status      *string `json:"status,omitempty" jsonschema:"planned, in_progress, completed or blocked"`
	DueDate     *string `json:"due_date,omitempty" jsonschema:"RFC 3339 timestamp or YYYY-MM-DD"`
}

// GoalFields are the writable fields of a goal.
type GoalFields struct {
	Text         *string      `json:"goal_text,omitempty"`
	Description  *string      `json:"description,omitempty"`
	ProjectID    *string      `json:"project_id,omitempty"`
	Status       *string      `json:"status,omitempty" jsonschema:"planned, in_progress, completed or blocked"`
	Priority     *int         `json:"priority,omitempty" jsonschema:"1 (highest) to 5"`
	TargetDate   *string      `json:"completion_target_date,omitempty" jsonschema:"RFC 3339 timestamp or YYYY-MM-DD"`
	Steps        []StepFields `json:"steps,omitempty" jsonschema:"replaces every step when set"`
	Blockers     []string     `json:"blockers,omitempty"`
	RelatedTodos []string     `json:"related_todos,omitempty"`
}

// New builds a goal for owner. goal_text is required.
func (f GoalFields) New(owner string) (*usercontext.Goal, error) {
	if err := required(f.Text, "goal_text"); err != nil {
		return nil, err
	}
	g := usercontext.NewGoal(owner, *f.Text)
	return g, f.Apply(g, g.CreatedAt)
}

func (f GoalFields) Apply(g *usercontext.Goal, now time.Time) error {
	setString(&g.Text, f.Text)
	setOptional(&g.Description, f.Description)
	setOptional(&g.ProjectID, f.ProjectID)
	if f.Priority != nil {
		if err := usercontext.ValidatePriority(*f.Priority); err != nil {
			return fmt.Errorf("priority: %w", err)
		}
		g.Priority = *f.Priority
	}
	if f.TargetDate != nil {
		t, err := ParseDate(*f.TargetDate)
		if err != nil {
			return fmt.Errorf("completion_target_date: %w", err)
		}
		g.TargetDate = t
	}
	if f.Steps != nil {
		steps := make([]usercontext.GoalStep, 0, len(f.Steps))
		for i, sf := range f.Steps {
			step, err := sf.step(i + 1)
			if err != nil {
				return err
			}
			steps = append(steps, step)
		}
		g.Steps = steps
	}
	if f.Blockers != nil {
		g.Blockers = f.Blockers
	}
	if f.RelatedTodos != nil {
		g.RelatedTodos = f.RelatedTodos
	}
	if f.Status != nil {
		g.SetStatus(usercontext.ParseGoalStatus(*f.Status), now)
	} else if !g.CreatedAt.Equal(now) {
		g.UpdatedAt = &now
	}
	return nil
}

func (f StepFields) step(number int) (usercontext.GoalStep, error) {
	if strings.TrimSpace(f.Description) == "" {
		return usercontext.GoalStep{}, fmt.Errorf("step %d: description is required: %w", number, usercontext.ErrInvalidInput)
	}
	s := usercontext.NewGoalStep(number, f.Description)
	if f.Status != nil {
		s.Status = usercontext.ParseGoalStatus(*f.Status)
	}
	if f.DueDate != nil {
		t, err := ParseDate(*f.DueDate)
		if err != nil {
			return usercontext.GoalStep{}, fmt.Errorf("step %d due_date: %w", number, err)
		}
		s.DueDate = t
	}
	return s, nil
}

// PreferenceFields are the writable fields of a preference.
type PreferenceFields struct {
	Name                *string  `json:"preference_name,omitempty"`
	Value               *string  `json:"preference_value,omitempty"`
	Type                *string  `json:"preference_type,omitempty" jsonschema:"tool, framework, constraint, pattern or other"`
	Scope               *string  `json:"scope,omitempty" jsonschema:"global, project_id:<id> or workflow:<name>"`
	AppliesToAutomation *bool    `json:"applies_to_automation,omitempty"`
	Rationale           *string  `json:"rationale,omitempty"`
	Priority            *int     `json:"priority,omitempty" jsonschema:"1 (highest) to 5"`
	Tags                []string `json:"tags,omitempty"`
}

// New builds a preference for owner. preference_name and preference_value
// are required.
func (f PreferenceFields) New(owner string) (*usercontext.Preference, error) {
	if err := required(f.Name, "preference_name"); err != nil {
		return nil, err
	}
	if err := required(f.Value, "preference_value"); err != nil {
		return nil, err
	}
	p := usercontext.NewPreference(owner, *f.Name, *f.Value, usercontext.PreferenceOther, usercontext.GlobalScope())
	return p, f.Apply(p, p.CreatedAt)
}

func (f PreferenceFields) Apply(p *usercontext.Preference, now time.Time) error {
	setString(&p.Name, f.Name)
	setString(&p.Value, f.Value)
	setOptional(&p.Rationale, f.Rationale)
	if f.Type != nil {
		p.Type = usercontext.ParsePreferenceType(*f.Type)
	}
	if f.Scope != nil {
		p.Scope = usercontext.ParseScope(*f.Scope)
	}
	if f.AppliesToAutomation != nil {
		p.AppliesToAutomation = *f.AppliesToAutomation
	}
	if f.Priority != nil {
		if err := usercontext.ValidatePriority(*f.Priority); err != nil {
			return fmt.Errorf("priority: %w", err)
		}
		p.Priority = *f.Priority
	}
	if f.Tags != nil {
		p.Tags = f.Tags
	}
	if !p.CreatedAt.Equal(now) {
		p.UpdatedAt = &now
	}
	return nil
}

// IssueFields are the writable fields of a known issue.
type IssueFields struct {
	Description        *string  `json:"issue_description,omitempty"`
	Symptoms           []string `json:"symptoms,omitempty"`
	RootCause          *string  `json:"root_cause,omitempty"`
	Workaround         *string  `json:"workaround,omitempty"`
	PermanentSolution  *string  `json:"permanent_solution,omitempty"`
	AffectedComponents []string `json:"affected_components,omitempty"`
	Severity           *string  `json:"severity,omitempty" jsonschema:"critical, high, medium or low"`
	Category           *string  `json:"issue_category,omitempty" jsonschema:"integration, performance, deployment, data, workflow or other"`
	ResolutionStatus   *string  `json:"resolution_status,omitempty" jsonschema:"unresolved, workaround_available, fixed or no_action_needed"`
	PreventionNotes    *string  `json:"prevention_notes,omitempty"`
	ProjectContexts    []string `json:"project_contexts,omitempty"`
}

// New builds an issue for owner. issue_description is required.
func (f IssueFields) New(owner string) (*usercontext.Issue, error) {
	if err := required(f.Description, "issue_description"); err != nil {
		return nil, err
	}
	i := usercontext.NewIssue(owner, *f.Description, usercontext.SeverityMedium, usercontext.IssueOther)
	return i, f.Apply(i, i.LearnedDate)
}

func (f IssueFields) Apply(i *usercontext.Issue, now time.Time) error {
	setString(&i.Description, f.Description)
	setOptional(&i.RootCause, f.RootCause)
	setOptional(&i.Workaround, f.Workaround)
	setOptional(&i.PermanentSolution, f.PermanentSolution)
	setOptional(&i.PreventionNotes, f.PreventionNotes)
	if f.Symptoms != nil {
		i.Symptoms = f.Symptoms
	}
	if f.AffectedComponents != nil {
		i.AffectedComponents = f.AffectedComponents
	}
	if f.ProjectContexts != nil {
		i.ProjectContexts = f.ProjectContexts
	}
	if f.Severity != nil {
		i.Severity = usercontext.ParseSeverity(*f.Severity)
	}
	if f.Category != nil {
		i.Category = usercontext.ParseIssueCategory(*f.Category)
	}
	if f.ResolutionStatus != nil {
		status := usercontext.ParseResolutionStatus(*f.ResolutionStatus)
		if status.Open() {
			i.ResolutionStatus = status
			i.ResolutionDate = nil
		} else {
			i.MarkResolved(status, now)
		}
	}
	if !i.LearnedDate.Equal(now) {
		i.UpdatedAt = &now
	}
	return nil
}

// TodoFields are the writable fields of a contextual todo.
type TodoFields struct {
	Description       *string `json:"task_description,omitempty"`
	ContextType       *string `json:"context_type,omitempty" jsonschema:"decision_implementation, goal_step, issue_resolution, preference_adoption or other"`
	RelatedEntityID   *string `json:"related_entity_id,omitempty"`
	RelatedEntityType *string `json:"related_entity_type,omitempty" jsonschema:"user_decision, user_goal, known_issue, user_preference or contextual_todo"`
	ProjectID         *string `json:"project_id,omitempty"`
	AssignedTo        *string `json:"assigned_to,omitempty"`
	DueDate           *string `json:"due_date,omitempty" jsonschema:"RFC 3339 timestamp or YYYY-MM-DD"`
	Status            *string `json:"status,omitempty" jsonschema:"pending, in_progress, completed or blocked"`
	Priority          *int    `json:"priority,omitempty" jsonschema:"1 (highest) to 5"`
}

// New builds a todo for owner. task_description is required.
func (f TodoFields) New(owner string) (*usercontext.Todo, error) {
	if err := required(f.Description, "task_description"); err != nil {
		return nil, err
	}
	t := usercontext.NewTodo(owner, *f.Description, usercontext.TodoOther)
	return t, f.Apply(t, t.CreatedAt)
}

func (f TodoFields) Apply(t *usercontext.Todo, now time.Time) error {
	setString(&t.Description, f.Description)
	setOptional(&t.RelatedEntityID, f.RelatedEntityID)
	setOptional(&t.ProjectID, f.ProjectID)
	setOptional(&t.AssignedTo, f.AssignedTo)
	if f.ContextType != nil {
		t.ContextType = usercontext.ParseTodoContextType(*f.ContextType)
	}
	if f.RelatedEntityType != nil {
		et := usercontext.ParseEntityType(*f.RelatedEntityType)
		t.RelatedEntityType = &et
	}
	if f.DueDate != nil {
		d, err := ParseDate(*f.DueDate)
		if err != nil {
			return fmt.Errorf("due_date: %w", err)
		}
		t.DueDate = d
	}
	if f.Priority != nil {
		if err := usercontext.ValidatePriority(*f.Priority); err != nil {
			return fmt.Errorf("priority: %w", err)
		}
		t.Priority = *f.Priority
	}
	if f.Status != nil {
		t.SetStatus(usercontext.ParseTodoStatus(*f.Status), now)
	} else if !t.CreatedAt.Equal(now) {
		t.UpdatedAt = &now
	}
	return nil
}

// ParseDate accepts an RFC 3339 timestamp or a bare YYYY-MM-DD date. An
// empty string clears the date.
func ParseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%q is not an RFC 3339 timestamp or YYYY-MM-DD date: %w", s, usercontext.ErrInvalidInput)
}

func required(v *string, name string) error {
	if v == nil || strings.TrimSpace(*v) == "" {
		return fmt.Errorf("%s is required: %w", name, usercontext.ErrInvalidInput)
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// setOptional sets dst from v. An empty string clears dst.
func setOptional(dst **string, v *string) {
	if v == nil {
		return
	}
	if *v == "" {
		*dst = nil
		return
	}
	s := *v
	*dst = &s
}
