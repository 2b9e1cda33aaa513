package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fyrsmithlabs/contextiq/internal/usercontext"
)

var sectionTitles = map[usercontext.Kind]string{
	usercontext.KindDecisions:   "Decisions",
	usercontext.KindGoals:       "Goals",
	usercontext.KindPreferences: "Preferences",
	usercontext.KindIssues:      "Known issues",
	usercontext.KindTodos:       "Todos",
}

func writeMarkdown(w io.Writer, b *usercontext.Bundle) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# Context for %s\n\n", b.OwnerID)
	fmt.Fprintf(bw, "Generated %s\n", b.GeneratedAt.UTC().Format(time.RFC3339))

	for _, k := range b.Kinds {
		rs := rows(b, k)
		fmt.Fprintf(bw, "\n## %s (%d)\n\n", sectionTitles[k], len(rs))
		if len(rs) == 0 {
			fmt.Fprintln(bw, "_none_")
			continue
		}
		fmt.Fprintln(bw, "| ID | Summary | Status | Scope | Priority | Created |")
		fmt.Fprintln(bw, "|---|---|---|---|---|---|")
		for _, r := range rs {
			fmt.Fprintf(bw, "| %s | %s | %s | %s | %s | %s |\n",
				r.ID, cell(r.Summary), r.Status, r.Scope, r.Priority, r.Created)
		}
	}
	return bw.Flush()
}

// cell keeps a value on one table row.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\r", "")
	return strings.ReplaceAll(s, "\n", " ")
}
