package review

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/contextiq/internal/extraction"
	"github.com/fyrsmithlabs/contextiq/internal/usercontext"
)

// Item is one extracted candidate offered for confirmation.
type Item struct {
	Category   extraction.Category
	Text       string
	Pattern    string
	Confidence float64
	Detail     string
	Selected   bool

	index int
}

// Items flattens r into reviewable items. Candidates without text are
// skipped. Items at or above preselect confidence start selected.
func Items(r extraction.Result, preselect float64) []Item {
	var out []Item
	add := func(c extraction.Category, i int, text *string, pattern string, conf float64, detail string) {
		if text == nil || *text == "" {
			return
		}
		out = append(out, Item{
			Category:   c,
			Text:       *text,
			Pattern:    pattern,
			Confidence: conf,
			Detail:     detail,
			Selected:   conf >= preselect,
			index:      i,
		})
	}
	for i, c := range r.Decisions {
		add(extraction.CategoryDecision, i, c.Text, c.Pattern, c.Confidence, string(c.Category))
	}
	for i, c := range r.Goals {
		add(extraction.CategoryGoal, i, c.Text, c.Pattern, c.Confidence, fmt.Sprintf("priority %d", c.Priority))
	}
	for i, c := range r.Preferences {
		add(extraction.CategoryPreference, i, c.Text, c.Pattern, c.Confidence, string(c.Type))
	}
	for i, c := range r.Issues {
		add(extraction.CategoryIssue, i, c.Text, c.Pattern, c.Confidence, string(c.Severity))
	}
	return out
}

// Creator is the part of the service confirmed candidates are written to.
type Creator interface {
	CreateDecision(ctx context.Context, d *usercontext.Decision) error
	CreateGoal(ctx context.Context, g *usercontext.Goal) error
	CreatePreference(ctx context.Context, p *usercontext.Preference) error
	CreateIssue(ctx context.Context, i *usercontext.Issue) error
}

// Saved counts what Persist wrote, per category.
type Saved map[extraction.Category]int

func (s Saved) Total() int {
	n := 0
	for _, v := range s {
		n += v
	}
	return n
}

// Persist writes the selected items for owner. Unselected items are
// ignored. It stops at the first failure and reports what was saved so far.
func Persist(ctx context.Context, c Creator, owner string, r extraction.Result, items []Item) (Saved, error) {
	saved := Saved{}
	for _, it := range items {
		if !it.Selected {
			continue
		}
		var err error
		switch it.Category {
		case extraction.CategoryDecision:
			cand := r.Decisions[it.index]
			d := usercontext.NewDecision(owner, it.Text, cand.Category, usercontext.GlobalScope())
			d.Confidence = cand.Confidence
			err = c.CreateDecision(ctx, d)
		case extraction.CategoryGoal:
			cand := r.Goals[it.index]
			err = c.CreateGoal(ctx, usercontext.NewGoal(owner, it.Text).WithPriority(cand.Priority))
		case extraction.CategoryPreference:
			cand := r.Preferences[it.index]
			p := usercontext.NewPreference(owner, cand.Pattern, it.Text, cand.Type, usercontext.GlobalScope())
			p.AppliesToAutomation = cand.AppliesToAutomation
			p.Tags = append([]string{}, cand.Tags...)
			err = c.CreatePreference(ctx, p)
		case extraction.CategoryIssue:
			cand := r.Issues[it.index]
			i := usercontext.NewIssue(owner, it.Text, cand.Severity, cand.Category)
			i.Symptoms = append([]string{}, cand.Symptoms...)
			if cand.Workaround != nil {
				i.WithWorkaround(*cand.Workaround)
			}
			err = c.CreateIssue(ctx, i)
		default:
			err = fmt.Errorf("unknown category %q: %w", it.Category, usercontext.ErrInvalidInput)
		}
		if err != nil {
			return saved, fmt.Errorf("save %s %q: %w", it.Category, it.Text, err)
		}
		saved[it.Category]++
	}
	return saved, nil
}
