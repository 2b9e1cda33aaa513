package usercontext

// DecisionCategory classifies a decision.
type DecisionCategory string

const (
	CategoryArchitecture DecisionCategory = "architecture"
	CategoryToolChoice   DecisionCategory = "tool_choice"
	CategoryConstraint   DecisionCategory = "constraint"
	CategoryWorkflow     DecisionCategory = "workflow"
	CategoryPerformance  DecisionCategory = "performance"
	CategorySecurity     DecisionCategory = "security"
	CategoryOther        DecisionCategory = "other"
)

// ParseDecisionCategory maps unknown values to CategoryOther.
func ParseDecisionCategory(s string) DecisionCategory {
	switch c := DecisionCategory(s); c {
	case CategoryArchitecture, CategoryToolChoice, CategoryConstraint,
		CategoryWorkflow, CategoryPerformance, CategorySecurity:
		return c
	default:
		return CategoryOther
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *DecisionCategory) UnmarshalText(text []byte) error {
	*c = ParseDecisionCategory(string(text))
	return nil
}

// EntityStatus is the lifecycle of a decision.
type EntityStatus string

const (
	StatusActive     EntityStatus = "active"
	StatusArchived   EntityStatus = "archived"
	StatusSuperseded EntityStatus = "superseded"
)

// ParseEntityStatus maps unknown values to StatusActive.
func ParseEntityStatus(s string) EntityStatus {
	switch st := EntityStatus(s); st {
	case StatusArchived, StatusSuperseded:
		return st
	default:
		return StatusActive
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *EntityStatus) UnmarshalText(text []byte) error {
	*s = ParseEntityStatus(string(text))
	return nil
}

// GoalStatus is shared by goals and their steps.
type GoalStatus string

const (
	GoalPlanned    GoalStatus = "planned"
	GoalInProgress GoalStatus = "in_progress"
	GoalCompleted  GoalStatus = "completed"
	GoalBlocked    GoalStatus = "blocked"
)

// ParseGoalStatus maps unknown values to GoalPlanned.
func ParseGoalStatus(s string) GoalStatus {
	switch st := GoalStatus(s); st {
	case GoalInProgress, GoalCompleted, GoalBlocked:
		return st
	default:
		return GoalPlanned
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *GoalStatus) UnmarshalText(text []byte) error {
	*s = ParseGoalStatus(string(text))
	return nil
}

// PreferenceType classifies a preference.
type PreferenceType string

const (
	PreferenceTool       PreferenceType = "tool"
	PreferenceFramework  PreferenceType = "framework"
	PreferenceConstraint PreferenceType = "constraint"
	PreferencePattern    PreferenceType = "pattern"
	PreferenceOther      PreferenceType = "other"
)

// ParsePreferenceType maps unknown values to PreferenceOther.
func ParsePreferenceType(s string) PreferenceType {
	switch t := PreferenceType(s); t {
	case PreferenceTool, PreferenceFramework, PreferenceConstraint, PreferencePattern:
		return t
	default:
		return PreferenceOther
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *PreferenceType) UnmarshalText(text []byte) error {
	*t = ParsePreferenceType(string(text))
	return nil
}

// Severity of a known issue. Critical is highest.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// ParseSeverity maps unknown values to SeverityCritical so misfiled issues
// surface instead of hiding.
func ParseSeverity(s string) Severity {
	switch sev := Severity(s); sev {
	case SeverityHigh, SeverityMedium, SeverityLow:
		return sev
	default:
		return SeverityCritical
	}
}

// Rank orders severities: critical 0, high 1, medium 2, low 3.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	default:
		return 3
	}
}

// MoreSevere reports whether s ranks above other.
func (s Severity) MoreSevere(other Severity) bool {
	return s.Rank() < other.Rank()
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	*s = ParseSeverity(string(text))
	return nil
}

// IssueCategory classifies a known issue.
type IssueCategory string

const (
	IssueIntegration IssueCategory = "integration"
	IssuePerformance IssueCategory = "performance"
	IssueDeployment  IssueCategory = "deployment"
	IssueData        IssueCategory = "data"
	IssueWorkflow    IssueCategory = "workflow"
	IssueOther       IssueCategory = "other"
)

// ParseIssueCategory maps unknown values to IssueOther.
func ParseIssueCategory(s string) IssueCategory {
	switch c := IssueCategory(s); c {
	case IssueIntegration, IssuePerformance, IssueDeployment, IssueData, IssueWorkflow:
		return c
	default:
		return IssueOther
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *IssueCategory) UnmarshalText(text []byte) error {
	*c = ParseIssueCategory(string(text))
	return nil
}

// ResolutionStatus tracks how far an issue is from resolved.
type ResolutionStatus string

const (
	ResolutionUnresolved          ResolutionStatus = "unresolved"
	ResolutionWorkaroundAvailable ResolutionStatus = "workaround_available"
	ResolutionFixed               ResolutionStatus = "fixed"
	ResolutionNoActionNeeded      ResolutionStatus = "no_action_needed"
)

// ParseResolutionStatus maps unknown values to ResolutionUnresolved.
func ParseResolutionStatus(s string) ResolutionStatus {
	switch r := ResolutionStatus(s); r {
	case ResolutionWorkaroundAvailable, ResolutionFixed, ResolutionNoActionNeeded:
		return r
	default:
		return ResolutionUnresolved
	}
}

// Open reports whether the issue still affects work.
func (r ResolutionStatus) Open() bool {
	return r == ResolutionUnresolved || r == ResolutionWorkaroundAvailable
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *ResolutionStatus) UnmarshalText(text []byte) error {
	*r = ParseResolutionStatus(string(text))
	return nil
}

// TodoContextType names what a todo was derived from.
type TodoContextType string

const (
	TodoDecisionImplementation TodoContextType = "decision_implementation"
	TodoGoalStep               TodoContextType = "goal_step"
	TodoIssueResolution        TodoContextType = "issue_resolution"
	TodoPreferenceAdoption     TodoContextType = "preference_adoption"
	TodoOther                  TodoContextType = "other"
)

// ParseTodoContextType maps unknown values to TodoOther.
func ParseTodoContextType(s string) TodoContextType {
	switch t := TodoContextType(s); t {
	case TodoDecisionImplementation, TodoGoalStep, TodoIssueResolution, TodoPreferenceAdoption:
		return t
	default:
		return TodoOther
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *TodoContextType) UnmarshalText(text []byte) error {
	*t = ParseTodoContextType(string(text))
	return nil
}

// TodoStatus is the lifecycle of a todo.
type TodoStatus string

const (
	TodoPending    TodoStatus = "pending"
	TodoInProgress TodoStatus = "in_progress"
	TodoCompleted  TodoStatus = "completed"
	TodoBlocked    TodoStatus = "blocked"
)

// ParseTodoStatus maps unknown values to TodoPending.
func ParseTodoStatus(s string) TodoStatus {
	switch st := TodoStatus(s); st {
	case TodoInProgress, TodoCompleted, TodoBlocked:
		return st
	default:
		return TodoPending
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *TodoStatus) UnmarshalText(text []byte) error {
	*s = ParseTodoStatus(string(text))
	return nil
}

// EntityType names a context item kind in audit entries and todo links.
type EntityType string

const (
	EntityDecision   EntityType = "user_decision"
	EntityGoal       EntityType = "user_goal"
	EntityIssue      EntityType = "known_issue"
	EntityPreference EntityType = "user_preference"
	EntityTodo       EntityType = "contextual_todo"
)

// ParseEntityType maps unknown values to EntityDecision.
func ParseEntityType(s string) EntityType {
	switch t := EntityType(s); t {
	case EntityGoal, EntityIssue, EntityPreference, EntityTodo:
		return t
	default:
		return EntityDecision
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *EntityType) UnmarshalText(text []byte) error {
	*t = ParseEntityType(string(text))
	return nil
}
