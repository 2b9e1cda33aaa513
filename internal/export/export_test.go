package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/fyrsmithlabs/contextiq/internal/usercontext"
)

func fixture() *usercontext.Bundle {
	d := usercontext.NewDecision("u1", "Use Postgres | not MySQL", usercontext.CategoryToolChoice, usercontext.ProjectScope("billing"))
	g := usercontext.NewGoal("u1", "Ship v2").WithPriority(1)
	g.AddStep(usercontext.NewGoalStep(0, "design"), time.Now())
	g.Steps[0].Status = usercontext.GoalCompleted
	g.AddStep(usercontext.NewGoalStep(0, "build"), time.Now())
	p := usercontext.NewPreference("u1", "indent", "tabs", usercontext.PreferencePattern, usercontext.GlobalScope())
	i := usercontext.NewIssue("u1", "flaky deploys\non fridays", usercontext.SeverityHigh, usercontext.IssueDeployment)
	td := usercontext.NewTodo("u1", "write runbook", usercontext.TodoIssueResolution)

	return &usercontext.Bundle{
		OwnerID:     "u1",
		GeneratedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Kinds:       usercontext.AllKinds(),
		Decisions:   []*usercontext.Decision{d},
		Goals:       []*usercontext.Goal{g},
		Preferences: []*usercontext.Preference{p},
		Issues:      []*usercontext.Issue{i},
		Todos:       []*usercontext.Todo{td},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"", FormatJSON},
		{"JSON", FormatJSON},
		{"csv", FormatCSV},
		{"md", FormatMarkdown},
		{"markdown", FormatMarkdown},
		{"yml", FormatYAML},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseFormat("xml")
	assert.ErrorIs(t, err, usercontext.ErrInvalidInput)
}

func TestWrite_JSON(t *testing.T) {
	b := fixture()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, b))

	var got usercontext.Bundle
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "u1", got.OwnerID)
	require.Len(t, got.Decisions, 1)
	assert.Equal(t, b.Decisions[0].ID, got.Decisions[0].ID)
	assert.Equal(t, "project_id:billing", got.Decisions[0].Scope.String())
	assert.Len(t, got.Todos, 1)
}

func TestWrite_CSV(t *testing.T) {
	b := fixture()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, b))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 6)
	assert.Equal(t, header, records[0])

	ids := map[string]string{}
	for _, r := range records[1:] {
		ids[r[1]] = r[0]
	}
	assert.Equal(t, "decisions", ids[b.Decisions[0].ID])
	assert.Equal(t, "goals", ids[b.Goals[0].ID])
	assert.Equal(t, "preferences", ids[b.Preferences[0].ID])
	assert.Equal(t, "issues", ids[b.Issues[0].ID])
	assert.Equal(t, "todos", ids[b.Todos[0].ID])
	assert.Equal(t, "Ship v2 (50%)", records[2][2])
}

func TestWrite_Markdown(t *testing.T) {
	b := fixture()
	b.Kinds = []usercontext.Kind{usercontext.KindDecisions, usercontext.KindIssues, usercontext.KindTodos}
	b.Todos = nil

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatMarkdown, b))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "# Context for u1\n"))
	assert.Contains(t, out, "## Decisions (1)")
	assert.Contains(t, out, `Use Postgres \| not MySQL`)
	assert.Contains(t, out, "[high] flaky deploys on fridays")
	assert.Contains(t, out, "## Todos (0)\n\n_none_")
	assert.NotContains(t, out, "## Goals")
}

func TestWrite_YAML(t *testing.T) {
	b := fixture()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatYAML, b))

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "u1", got["owner_id"])
	prefs, ok := got["preferences"].([]any)
	require.True(t, ok)
	require.Len(t, prefs, 1)
	assert.Equal(t, "tabs", prefs[0].(map[string]any)["preference_value"])
}

func TestWrite_Errors(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, Write(&buf, FormatJSON, nil), usercontext.ErrInvalidInput)
	assert.ErrorIs(t, Write(&buf, Format("xml"), fixture()), usercontext.ErrInvalidInput)
}
