package mcp

import (
	"regexp"
	"sort"
	"strings"
	"sync"
)

// ToolCategory groups tools for listing.
type ToolCategory string

const (
	// CategoryContext covers the manage_* CRUD tools.
	CategoryContext ToolCategory = "context"
	// CategoryQuery covers bulk reads and exports.
	CategoryQuery ToolCategory = "query"
	// CategoryEngine covers extraction, validation, conflicts and ranking.
	CategoryEngine ToolCategory = "engine"
)

// ToolMetadata describes a registered tool.
type ToolMetadata struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Category    ToolCategory `json:"category"`
	Operations  []string     `json:"operations,omitempty"`
	Keywords    []string     `json:"keywords,omitempty"`
}

// ToolRegistry records the tools a Server registered.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]*ToolMetadata
}

func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]*ToolMetadata)}
}

// Register adds or replaces a tool. Nameless tools are ignored.
func (r *ToolRegistry) Register(tool *ToolMetadata) {
	if tool == nil || tool.Name == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name] = tool
}

func (r *ToolRegistry) Get(name string) (*ToolMetadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// List returns every tool sorted by name.
func (r *ToolRegistry) List() []*ToolMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*ToolMetadata, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *ToolRegistry) ListByCategory(category ToolCategory) []*ToolMetadata {
	out := make([]*ToolMetadata, 0)
	for _, t := range r.List() {
		if t.Category == category {
			out = append(out, t)
		}
	}
	return out
}

func (r *ToolRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// SearchResult is one match. Score 3 is an exact name, 2 a name match and
// 1 a description, operation or keyword match.
type SearchResult struct {
	Tool        *ToolMetadata `json:"tool"`
	Score       int           `json:"score"`
	MatchReason string        `json:"match_reason"`
}

// Search matches query case-insensitively against names, descriptions,
// operations and keywords. A query that compiles as a regexp is also
// matched as one. Results are best first, then by name.
func (r *ToolRegistry) Search(query string) []*SearchResult {
	if strings.TrimSpace(query) == "" {
		return nil
	}
	q := strings.ToLower(query)
	re, _ := regexp.Compile("(?i)" + query)
	match := func(s string) bool {
		return strings.Contains(strings.ToLower(s), q) || (re != nil && re.MatchString(s))
	}

	var out []*SearchResult
	for _, t := range r.List() {
		switch {
		case strings.ToLower(t.Name) == q:
			out = append(out, &SearchResult{Tool: t, Score: 3, MatchReason: "exact name match"})
		case match(t.Name):
			out = append(out, &SearchResult{Tool: t, Score: 2, MatchReason: "name match"})
		case match(t.Description):
			out = append(out, &SearchResult{Tool: t, Score: 1, MatchReason: "description match"})
		case anyMatch(t.Operations, match):
			out = append(out, &SearchResult{Tool: t, Score: 1, MatchReason: "operation match"})
		case anyMatch(t.Keywords, match):
			out = append(out, &SearchResult{Tool: t, Score: 1, MatchReason: "keyword match"})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func anyMatch(items []string, match func(string) bool) bool {
	for _, s := range items {
		if match(s) {
			return true
		}
	}
	return false
}
