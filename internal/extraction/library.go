package extraction

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/BurntSushi/toml"
)

// Category is the kind of context item a pattern detects.
type Category string

const (
	CategoryDecision   Category = "decision"
	CategoryGoal       Category = "goal"
	CategoryPreference Category = "preference"
	CategoryIssue      Category = "issue"
)

// Categories lists every category in extraction order.
var Categories = []Category{CategoryDecision, CategoryGoal, CategoryPreference, CategoryIssue}

func (c Category) valid() bool {
	switch c {
	case CategoryDecision, CategoryGoal, CategoryPreference, CategoryIssue:
		return true
	}
	return false
}

var (
	// ErrInvalidPattern is returned when a pattern cannot be compiled or
	// does not carry exactly one capture group.
	ErrInvalidPattern = errors.New("invalid pattern")

	// ErrInvalidLibrary is returned for catalogue-level problems such as
	// duplicate names or unreadable files.
	ErrInvalidLibrary = errors.New("invalid pattern library")
)

// Pattern is one trigger rule. Expr must contain exactly one capture group
// holding the payload text.
type Pattern struct {
	Name     string   `json:"name" toml:"name"`
	Category Category `json:"category" toml:"category"`
	Expr     string   `json:"expr" toml:"expr"`
	Weight   float64  `json:"weight" toml:"weight"`
}

type compiledPattern struct {
	Pattern
	regex *regexp.Regexp
}

// Library is an immutable, compiled pattern catalogue.
type Library struct {
	byCategory map[Category][]compiledPattern
	size       int
}

// NewLibrary compiles patterns and fails on the first malformed one.
func NewLibrary(patterns []Pattern) (*Library, error) {
	lib := &Library{byCategory: make(map[Category][]compiledPattern)}
	seen := make(map[string]struct{}, len(patterns))

	for _, p := range patterns {
		if p.Name == "" {
			return nil, fmt.Errorf("%w: pattern name is required", ErrInvalidPattern)
		}
		if _, dup := seen[p.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate pattern name %q", ErrInvalidLibrary, p.Name)
		}
		seen[p.Name] = struct{}{}

		if !p.Category.valid() {
			return nil, fmt.Errorf("%w: %s: unknown category %q", ErrInvalidPattern, p.Name, p.Category)
		}
		if p.Weight < 0 || p.Weight > 1 {
			return nil, fmt.Errorf("%w: %s: weight must be between 0 and 1, got %g", ErrInvalidPattern, p.Name, p.Weight)
		}
		re, err := regexp.Compile(p.Expr)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPattern, p.Name, err)
		}
		if n := re.NumSubexp(); n != 1 {
			return nil, fmt.Errorf("%w: %s: expected exactly one capture group, found %d", ErrInvalidPattern, p.Name, n)
		}

		lib.byCategory[p.Category] = append(lib.byCategory[p.Category], compiledPattern{Pattern: p, regex: re})
		lib.size++
	}

	return lib, nil
}

// DefaultLibrary compiles the built-in catalogue.
func DefaultLibrary() (*Library, error) {
	return NewLibrary(DefaultPatterns())
}

// MustDefaultLibrary is DefaultLibrary for process start-up. It panics if
// the built-in catalogue does not compile.
func MustDefaultLibrary() *Library {
	lib, err := DefaultLibrary()
	if err != nil {
		panic(err)
	}
	return lib
}

type libraryFile struct {
	ExtendsDefault bool      `toml:"extends_default"`
	Patterns       []Pattern `toml:"pattern"`
}

// LoadLibraryFile builds a library from a TOML catalogue:
//
//	extends_default = true
//
//	[[pattern]]
//	name = "adr_accepted"
//	category = "decision"
//	expr = '(?i)\bADR accepted:\s*([^.\n]+)'
//	weight = 0.95
//
// With extends_default the file's patterns follow the built-in ones.
func LoadLibraryFile(path string) (*Library, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLibrary, err)
	}

	var file libraryFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidLibrary, path, err)
	}

	patterns := file.Patterns
	if file.ExtendsDefault {
		patterns = append(DefaultPatterns(), file.Patterns...)
	}
	if len(patterns) == 0 {
		return nil, fmt.Errorf("%w: %s defines no patterns", ErrInvalidLibrary, path)
	}
	return NewLibrary(patterns)
}

// Patterns returns a copy of the category's patterns in catalogue order.
func (l *Library) Patterns(c Category) []Pattern {
	compiled := l.byCategory[c]
	out := make([]Pattern, len(compiled))
	for i, cp := range compiled {
		out[i] = cp.Pattern
	}
	return out
}

// Len returns the total number of patterns.
func (l *Library) Len() int { return l.size }

// BaseWeight returns the highest weight among the category's patterns.
func (l *Library) BaseWeight(c Category) float64 {
	var w float64
	for _, cp := range l.byCategory[c] {
		if cp.Weight > w {
			w = cp.Weight
		}
	}
	return w
}

// payload is the body shared by every default trigger: the rest of the
// clause up to sentence punctuation or a line break.
const payload = `([^.!?\n]+)`

// DefaultPatterns returns the built-in trigger catalogue.
func DefaultPatterns() []Pattern {
	return []Pattern{
		// Decisions
		{Name: "decided_to", Category: CategoryDecision, Expr: `(?i)\b(?:we|i)(?:\s+have|'ve)?\s+decided\s+to\s+` + payload, Weight: 0.9},
		{Name: "lets_go_with", Category: CategoryDecision, Expr: `(?i)\blet'?s\s+(?:go\s+with|use|choose|pick)\s+` + payload, Weight: 0.85},
		{Name: "going_with", Category: CategoryDecision, Expr: `(?i)\b(?:we'?re|we\s+are|i'?m|i\s+am)\s+going\s+(?:with|to\s+use)\s+` + payload, Weight: 0.8},
		{Name: "chose_over", Category: CategoryDecision, Expr: `(?i)\b(?:chose|choosing|picked)\s+([^.!?\n]+?)\s+over\b`, Weight: 0.8},
		{Name: "approach_is", Category: CategoryDecision, Expr: `(?i)\bthe\s+approach\s+(?:is|will\s+be)\s+(?:to\s+)?` + payload, Weight: 0.75},
		{Name: "settled_on", Category: CategoryDecision, Expr: `(?i)\bsettled\s+on\s+` + payload, Weight: 0.85},

		// Goals
		{Name: "goal_is", Category: CategoryGoal, Expr: `(?i)\b(?:my|our|the)\s+goal\s+is\s+(?:to\s+)?` + payload, Weight: 0.9},
		{Name: "objective_is", Category: CategoryGoal, Expr: `(?i)\bobjective\s*(?:is|:)\s*(?:to\s+)?` + payload, Weight: 0.85},
		{Name: "want_to", Category: CategoryGoal, Expr: `(?i)\b(?:i|we)\s+(?:want|need|plan|aim)\s+to\s+` + payload, Weight: 0.7},
		{Name: "working_towards", Category: CategoryGoal, Expr: `(?i)\bworking\s+towards?\s+` + payload, Weight: 0.65},

		// Preferences
		{Name: "i_prefer", Category: CategoryPreference, Expr: `(?i)\b(?:i|we)\s+prefer\s+` + payload, Weight: 0.85},
		{Name: "always_use", Category: CategoryPreference, Expr: `(?i)\b(always\s+use\s+[^.!?\n]+)`, Weight: 0.8},
		{Name: "never_use", Category: CategoryPreference, Expr: `(?i)\b((?:never|don'?t|do\s+not)\s+use\s+[^.!?\n]+)`, Weight: 0.8},
		{Name: "i_like", Category: CategoryPreference, Expr: `(?i)\b(?:i|we)\s+like\s+(?:to\s+)?` + payload, Weight: 0.6},

		// Issues
		{Name: "known_issue", Category: CategoryIssue, Expr: `(?i)\bknown\s+issue\s*(?::|is|with)?\s*` + payload, Weight: 0.9},
		{Name: "problem_with", Category: CategoryIssue, Expr: `(?i)\b(?:issue|problem|bug)\s+with\s+` + payload, Weight: 0.8},
		{Name: "keeps_failing", Category: CategoryIssue, Expr: `(?i)\b(\w[\w-]*(?:\s+\w[\w-]*)?)\s+(?:keeps|kept)\s+(?:failing|crashing|timing\s+out)`, Weight: 0.75},
		{Name: "error_when", Category: CategoryIssue, Expr: `(?i)\b(?:error|exception|failure)\s+(?:when|while)\s+` + payload, Weight: 0.7},
	}
}
