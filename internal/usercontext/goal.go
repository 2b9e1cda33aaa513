package usercontext

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Goal is an objective tracked through ordered steps.
type Goal struct {
	ID             string     `json:"id"`
	OwnerID        string     `json:"owner_id"`
	Text           string     `json:"goal_text"`
	Description    *string    `json:"description,omitempty"`
	ProjectID      *string    `json:"project_id,omitempty"`
	Status         GoalStatus `json:"status"`
	Priority       int        `json:"priority"`
	Steps          []GoalStep `json:"steps"`
	TargetDate     *time.Time `json:"completion_target_date,omitempty"`
	CompletionDate *time.Time `json:"completion_date,omitempty"`
	Blockers       []string   `json:"blockers"`
	RelatedTodos   []string   `json:"related_todos"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

// GoalStep is one ordered unit of work inside a goal.
type GoalStep struct {
	Number      int        `json:"step_number"`
	Description string     `json:"description"`
	Status      GoalStatus `json:"status"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

// NewGoal creates a planned goal with default priority.
func NewGoal(ownerID, text string) *Goal {
	return &Goal{
		ID:           uuid.New().String(),
		OwnerID:      ownerID,
		Text:         text,
		Status:       GoalPlanned,
		Priority:     DefaultPriority,
		Steps:        []GoalStep{},
		Blockers:     []string{},
		RelatedTodos: []string{},
		CreatedAt:    time.Now().UTC(),
	}
}

// NewGoalStep creates a planned step.
func NewGoalStep(number int, description string) GoalStep {
	return GoalStep{Number: number, Description: description, Status: GoalPlanned}
}

// WithDescription sets the description.
func (g *Goal) WithDescription(desc string) *Goal {
	g.Description = &desc
	return g
}

// WithProject links a project.
func (g *Goal) WithProject(projectID string) *Goal {
	g.ProjectID = &projectID
	return g
}

// WithPriority sets the priority, clamped to [1,5].
func (g *Goal) WithPriority(priority int) *Goal {
	g.Priority = ClampPriority(priority)
	return g
}

// AddStep appends a step. A zero step number is assigned the next in sequence.
func (g *Goal) AddStep(step GoalStep, now time.Time) {
	if step.Number <= 0 {
		step.Number = g.nextStepNumber()
	}
	if step.Status == "" {
		step.Status = GoalPlanned
	}
	g.Steps = append(g.Steps, step)
	g.UpdatedAt = &now
}

func (g *Goal) nextStepNumber() int {
	next := 1
	for _, s := range g.Steps {
		if s.Number >= next {
			next = s.Number + 1
		}
	}
	return next
}

// SetStatus moves the goal through its lifecycle.
func (g *Goal) SetStatus(status GoalStatus, now time.Time) {
	g.Status = status
	if status == GoalCompleted {
		g.CompletionDate = &now
	}
	g.UpdatedAt = &now
}

// CompletionPercentage is completed steps over total steps × 100, 0 with no steps.
func (g *Goal) CompletionPercentage() float64 {
	if len(g.Steps) == 0 {
		return 0
	}
	completed := 0
	for _, s := range g.Steps {
		if s.Status == GoalCompleted {
			completed++
		}
	}
	return float64(completed) / float64(len(g.Steps)) * 100
}

// OrderedSteps returns a copy of the steps sorted by step number.
func (g *Goal) OrderedSteps() []GoalStep {
	steps := cloneSteps(g.Steps)
	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].Number < steps[j].Number
	})
	return steps
}

// NextStep returns the first step in sequence order that is not completed.
func (g *Goal) NextStep() (GoalStep, bool) {
	for _, s := range g.OrderedSteps() {
		if s.Status != GoalCompleted {
			return s, true
		}
	}
	return GoalStep{}, false
}

// Normalize fills defaults for zero-valued enums and slices.
func (g *Goal) Normalize() {
	g.Status = ParseGoalStatus(string(g.Status))
	if g.Priority == 0 {
		g.Priority = DefaultPriority
	}
	for i := range g.Steps {
		g.Steps[i].Status = ParseGoalStatus(string(g.Steps[i].Status))
	}
	if g.Steps == nil {
		g.Steps = []GoalStep{}
	}
	if g.Blockers == nil {
		g.Blockers = []string{}
	}
	if g.RelatedTodos == nil {
		g.RelatedTodos = []string{}
	}
}

// Validate checks required fields and ranges.
func (g *Goal) Validate() error {
	if err := requireField(g.OwnerID, "owner_id"); err != nil {
		return err
	}
	if err := requireField(g.Text, "goal_text"); err != nil {
		return err
	}
	return ValidatePriority(g.Priority)
}

// Clone returns a deep copy.
func (g *Goal) Clone() *Goal {
	c := *g
	c.Description = cloneString(g.Description)
	c.ProjectID = cloneString(g.ProjectID)
	c.Steps = cloneSteps(g.Steps)
	c.TargetDate = cloneTime(g.TargetDate)
	c.CompletionDate = cloneTime(g.CompletionDate)
	c.Blockers = cloneStrings(g.Blockers)
	c.RelatedTodos = cloneStrings(g.RelatedTodos)
	c.UpdatedAt = cloneTime(g.UpdatedAt)
	return &c
}

func cloneSteps(in []GoalStep) []GoalStep {
	out := make([]GoalStep, len(in))
	for i, s := range in {
		s.DueDate = cloneTime(s.DueDate)
		out[i] = s
	}
	return out
}
