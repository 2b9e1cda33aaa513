package usercontext

import "strings"

// ScopeKind discriminates the Scope variant.
type ScopeKind string

const (
	ScopeGlobal   ScopeKind = "global"
	ScopeProject  ScopeKind = "project"
	ScopeWorkflow ScopeKind = "workflow"
)

const (
	projectScopePrefix  = "project_id:"
	workflowScopePrefix = "workflow:"
)

// Scope is the applicability domain of a context item.
// The zero value is the global scope.
type Scope struct {
	kind  ScopeKind
	value string
}

// GlobalScope applies everywhere.
func GlobalScope() Scope { return Scope{kind: ScopeGlobal} }

// ProjectScope applies to a single project.
func ProjectScope(projectID string) Scope {
	return Scope{kind: ScopeProject, value: projectID}
}

// WorkflowScope applies to a named workflow across projects.
func WorkflowScope(name string) Scope {
	return Scope{kind: ScopeWorkflow, value: name}
}

// ParseScope parses the storage form. Unknown strings yield the global scope.
func ParseScope(s string) Scope {
	switch {
	case s == string(ScopeGlobal):
		return GlobalScope()
	case strings.HasPrefix(s, projectScopePrefix):
		return ProjectScope(strings.TrimPrefix(s, projectScopePrefix))
	case strings.HasPrefix(s, workflowScopePrefix):
		return WorkflowScope(strings.TrimPrefix(s, workflowScopePrefix))
	default:
		return GlobalScope()
	}
}

// Kind returns the variant tag.
func (s Scope) Kind() ScopeKind {
	if s.kind == "" {
		return ScopeGlobal
	}
	return s.kind
}

// Value returns the project id or workflow name, empty for global.
func (s Scope) Value() string { return s.value }

// String renders the storage form: global, project_id:<id>, workflow:<name>.
func (s Scope) String() string {
	switch s.Kind() {
	case ScopeProject:
		return projectScopePrefix + s.value
	case ScopeWorkflow:
		return workflowScopePrefix + s.value
	default:
		return string(ScopeGlobal)
	}
}

// Matches reports whether an item with this scope applies to projectID.
// An empty projectID matches every scope.
func (s Scope) Matches(projectID string) bool {
	if projectID == "" {
		return true
	}
	switch s.Kind() {
	case ScopeProject:
		return s.value == projectID
	default:
		return true
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Scope) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Scope) UnmarshalText(text []byte) error {
	*s = ParseScope(string(text))
	return nil
}
