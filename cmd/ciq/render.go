package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

const maxCell = 60

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	borderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("46")).
		Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")).
			Bold(true)

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))
)

// view is what a command prints: v as JSON, or the table and trailing
// lines in table mode.
type view struct {
	v       any
	headers []string
	rows    [][]string
	lines   []string
}

func (c *cli) print(cmd *cobra.Command, out view) error {
	w := cmd.OutOrStdout()
	if c.output == outputJSON {
		return writeJSON(w, out.v)
	}
	if len(out.headers) > 0 {
		if len(out.rows) == 0 {
			fmt.Fprintln(w, dimStyle.Render("no results"))
		} else {
			fmt.Fprintln(w, renderTable(out.headers, out.rows))
		}
	}
	for _, l := range out.lines {
		fmt.Fprintln(w, l)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.String()
}

// completionBar renders pct (0-100) as a progress bar.
func completionBar(pct float64) string {
	bar := progress.New(
		progress.WithGradient("#ffff00", "#00ff00"),
		progress.WithWidth(24),
	)
	return bar.ViewAs(pct / 100)
}

func truncate(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= maxCell {
		return s
	}
	return string(r[:maxCell-1]) + "…"
}

func opt(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func date(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.DateOnly)
}

func severityBadge(s string) string {
	switch s {
	case "critical", "high":
		return errStyle.Render(s)
	case "warning", "medium":
		return warnStyle.Render(s)
	default:
		return dimStyle.Render(s)
	}
}
