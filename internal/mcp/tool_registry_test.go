package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry() *ToolRegistry {
	r := NewToolRegistry()
	r.Register(&ToolMetadata{
		Name:        "manage_user_goal",
		Description: "Track goals and steps",
		Category:    CategoryContext,
		Operations:  []string{"create", "add_step"},
		Keywords:    []string{"milestone"},
	})
	r.Register(&ToolMetadata{
		Name:        "rank_decisions",
		Description: "Rank decisions by effectiveness",
		Category:    CategoryEngine,
		Keywords:    []string{"top"},
	})
	r.Register(&ToolMetadata{
		Name:        "export_user_context",
		Description: "Render context for backup",
		Category:    CategoryQuery,
	})
	return r
}

func TestToolRegistry_GetAndList(t *testing.T) {
	r := testRegistry()
	assert.Equal(t, 3, r.Count())

	tool, ok := r.Get("rank_decisions")
	require.True(t, ok)
	assert.Equal(t, CategoryEngine, tool.Category)

	_, ok = r.Get("missing")
	assert.False(t, ok)

	var names []string
	for _, t := range r.List() {
		names = append(names, t.Name)
	}
	assert.Equal(t, []string{"export_user_context", "manage_user_goal", "rank_decisions"}, names)

	ctxTools := r.ListByCategory(CategoryContext)
	require.Len(t, ctxTools, 1)
	assert.Equal(t, "manage_user_goal", ctxTools[0].Name)
}

func TestToolRegistry_RegisterReplaces(t *testing.T) {
	r := testRegistry()
	r.Register(&ToolMetadata{Name: "rank_decisions", Description: "changed", Category: CategoryEngine})
	assert.Equal(t, 3, r.Count())
	tool, _ := r.Get("rank_decisions")
	assert.Equal(t, "changed", tool.Description)
}

func TestToolRegistry_Search(t *testing.T) {
	r := testRegistry()

	tests := []struct {
		query  string
		first  string
		score  int
		reason string
	}{
		{"rank_decisions", "rank_decisions", 3, "exact name match"},
		{"GOAL", "manage_user_goal", 2, "name match"},
		{"backup", "export_user_context", 1, "description match"},
		{"add_step", "manage_user_goal", 1, "operation match"},
		{"milestone", "manage_user_goal", 1, "keyword match"},
		{"^rank.*s$", "rank_decisions", 2, "name match"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			res := r.Search(tt.query)
			require.NotEmpty(t, res)
			assert.Equal(t, tt.first, res[0].Tool.Name)
			assert.Equal(t, tt.score, res[0].Score)
			assert.Equal(t, tt.reason, res[0].MatchReason)
		})
	}

	assert.Empty(t, r.Search(""))
	assert.Empty(t, r.Search("kubernetes"))
}
