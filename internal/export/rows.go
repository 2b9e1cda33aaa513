package export

import (
	"fmt"
	"strconv"
	"time"

	"github.com/fyrsmithlabs/contextiq/internal/usercontext"
)

// row is the flat form shared by the csv and markdown writers.
type row struct {
	Kind     usercontext.Kind
	ID       string
	Summary  string
	Status   string
	Scope    string
	Priority string
	Created  string
}

var header = []string{"kind", "id", "summary", "status", "scope", "priority", "created_at"}

func (r row) fields() []string {
	return []string{string(r.Kind), r.ID, r.Summary, r.Status, r.Scope, r.Priority, r.Created}
}

func rows(b *usercontext.Bundle, k usercontext.Kind) []row {
	var out []row
	switch k {
	case usercontext.KindDecisions:
		for _, d := range b.Decisions {
			out = append(out, row{k, d.ID, d.Text, string(d.Status), d.Scope.String(), "", stamp(d.CreatedAt)})
		}
	case usercontext.KindGoals:
		for _, g := range b.Goals {
			summary := fmt.Sprintf("%s (%.0f%%)", g.Text, g.CompletionPercentage())
			out = append(out, row{k, g.ID, summary, string(g.Status), projectScope(g.ProjectID), strconv.Itoa(g.Priority), stamp(g.CreatedAt)})
		}
	case usercontext.KindPreferences:
		for _, p := range b.Preferences {
			summary := p.Name + " = " + p.Value
			out = append(out, row{k, p.ID, summary, string(p.Type), p.Scope.String(), strconv.Itoa(p.Priority), stamp(p.CreatedAt)})
		}
	case usercontext.KindIssues:
		for _, i := range b.Issues {
			summary := fmt.Sprintf("[%s] %s", i.Severity, i.Description)
			out = append(out, row{k, i.ID, summary, string(i.ResolutionStatus), "", "", stamp(i.LearnedDate)})
		}
	case usercontext.KindTodos:
		for _, t := range b.Todos {
			out = append(out, row{k, t.ID, t.Description, string(t.Status), projectScope(t.ProjectID), strconv.Itoa(t.Priority), stamp(t.CreatedAt)})
		}
	}
	return out
}

func projectScope(projectID *string) string {
	if projectID == nil || *projectID == "" {
		return usercontext.GlobalScope().String()
	}
	return usercontext.ProjectScope(*projectID).String()
}

func stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
