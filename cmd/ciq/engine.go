package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/contextiq/internal/export"
	"github.com/fyrsmithlabs/contextiq/internal/extraction"
	"github.com/fyrsmithlabs/contextiq/internal/review"
	"github.com/fyrsmithlabs/contextiq/internal/usercontext"
	"github.com/fyrsmithlabs/contextiq/internal/validation"
)

// reviewFunc shows the review screen. Tests replace it.
var reviewFunc = review.Run

func extractCmd(c *cli) *cobra.Command {
	var (
		doReview  bool
		preselect float64
	)
	cmd := &cobra.Command{
		Use:   "extract [file|-]",
		Short: "Find decisions, goals, preferences and issues in text",
		Long: `Extract scans text for context candidates and prints them. Nothing is
stored unless --review is given, in which case an interactive screen lets you
pick the candidates to save.

Examples:
  # Show candidates found in a file
  ciq --owner alice extract notes.md

  # Pipe text in and review before saving
  git log -1 --format=%B | ciq --owner alice extract - --review`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := c.requireOwner()
			if err != nil {
				return err
			}
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			res, err := c.svc().Extract(cmd.Context(), owner, text)
			if err != nil {
				return err
			}
			items := review.Items(res, preselect)

			if !doReview {
				return c.print(cmd, candidatesView(res, items))
			}
			selected, err := reviewFunc(cmd.Context(), items, cmd.InOrStdin(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			saved, err := review.Persist(cmd.Context(), c.svc(), owner, res, selected)
			if err != nil {
				return err
			}
			return c.print(cmd, view{
				v:     map[string]any{"saved": saved, "total": saved.Total()},
				lines: []string{fmt.Sprintf("saved %d of %d candidates", saved.Total(), len(items))},
			})
		},
	}
	cmd.Flags().BoolVar(&doReview, "review", false, "confirm candidates interactively and save the selected ones")
	cmd.Flags().Float64Var(&preselect, "preselect", review.DefaultPreselect, "confidence at which candidates start selected")
	return cmd
}

func candidatesView(res extraction.Result, items []review.Item) view {
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{
			string(it.Category), fmt.Sprintf("%.2f", it.Confidence), it.Pattern, it.Detail, truncate(it.Text),
		})
	}
	return view{
		v:       map[string]any{"candidates": res, "total": res.Len()},
		headers: []string{"Kind", "Confidence", "Pattern", "Detail", "Text"},
		rows:    rows,
	}
}

func readInput(cmd *cobra.Command, args []string) (string, error) {
	var (
		content []byte
		err     error
	)
	if len(args) == 0 || args[0] == "-" {
		content, err = io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read from stdin: %w", err)
		}
	} else {
		content, err = os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("failed to read file %s: %w", args[0], err)
		}
	}
	if strings.TrimSpace(string(content)) == "" {
		return "", fmt.Errorf("no text to extract from: %w", usercontext.ErrInvalidInput)
	}
	return string(content), nil
}

func validateCmd(c *cli) *cobra.Command {
	var (
		action  validation.Action
		params  []string
		project string
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a proposed action against stored context",
		Long: `Validate checks an action against the owner's decisions, preferences,
known issues and goals. It exits non-zero when the action is blocked.

Examples:
  ciq --owner alice validate --type install --target mysql
  ciq --owner alice validate --type deploy --target api --param env=prod --project billing`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			owner, err := c.requireOwner()
			if err != nil {
				return err
			}
			action.Parameters, err = parseParams(params)
			if err != nil {
				return err
			}
			res, err := c.svc().ValidateAction(cmd.Context(), action, owner, project)
			if err != nil {
				return err
			}
			if err := c.print(cmd, validationView(res)); err != nil {
				return err
			}
			if !res.IsValid {
				return errBlocked
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&action.Type, "type", "", "action type, e.g. install, deploy, refactor")
	cmd.Flags().StringVar(&action.Target, "target", "", "what the action applies to")
	cmd.Flags().StringArrayVar(&params, "param", nil, "action parameter as key=value (repeatable)")
	cmd.Flags().StringVar(&project, "project", "", "leave out context scoped to other projects")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

var errBlocked = errors.New("action blocked")

func parseParams(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(raw))
	for _, kv := range raw {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("--param %q must be key=value: %w", kv, usercontext.ErrInvalidInput)
		}
		out[strings.TrimSpace(k)] = v
	}
	return out, nil
}

func validationView(res validation.ActionValidation) view {
	status := okStyle.Render("✓ allowed")
	if !res.IsValid {
		status = errStyle.Render("✗ blocked")
	}
	lines := []string{status}
	section := func(title string, items []string, render func(string) string) {
		if len(items) == 0 {
			return
		}
		lines = append(lines, "", dimStyle.Render(title))
		for _, it := range items {
			lines = append(lines, "  • "+render(it))
		}
	}
	plain := func(s string) string { return s }
	section("Violations", res.Violations, func(s string) string { return errStyle.Render(s) })
	section("Warnings", res.Warnings, func(s string) string { return warnStyle.Render(s) })
	section("Applied decisions", res.AppliedDecisions, plain)
	section("Workarounds", res.ApplicableWorkarounds, plain)
	section("Recommendations", res.Recommendations, plain)
	return view{v: res, lines: lines}
}

func conflictsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "conflicts",
		Short: "Report contradicting preferences and drifting decisions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			owner, err := c.requireOwner()
			if err != nil {
				return err
			}
			report, err := c.svc().DetectConflicts(cmd.Context(), owner)
			if err != nil {
				return err
			}
			all := report.All()
			rows := make([][]string, 0, len(all))
			for _, cf := range all {
				rows = append(rows, []string{
					severityBadge(string(cf.Severity)), string(cf.Type), truncate(cf.Description), strings.Join(cf.EntityIDs, ", "),
				})
			}
			return c.print(cmd, view{
				v:       report,
				headers: []string{"Severity", "Type", "Description", "Entities"},
				rows:    rows,
				lines:   []string{dimStyle.Render(fmt.Sprintf("%d conflicts", report.Total()))},
			})
		},
	}
}

func rankCmd(c *cli) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank decisions by effectiveness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			owner, err := c.requireOwner()
			if err != nil {
				return err
			}
			ranked, err := c.svc().RankDecisions(cmd.Context(), owner, limit)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(ranked))
			for _, r := range ranked {
				rows = append(rows, []string{
					strconv.Itoa(r.Rank), fmt.Sprintf("%.3f", r.Score), truncate(r.Decision.Text),
					strconv.Itoa(r.Decision.AppliedCount), r.Decision.ID,
				})
			}
			return c.print(cmd, view{
				v:       map[string]any{"rankings": ranked, "count": len(ranked)},
				headers: []string{"Rank", "Score", "Decision", "Applied", "ID"},
				rows:    rows,
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum decisions to show")
	return cmd
}

func nextCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "next",
		Short: "Recommend the next step of each open goal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			owner, err := c.requireOwner()
			if err != nil {
				return err
			}
			recs, err := c.svc().RecommendNextSteps(cmd.Context(), owner)
			if err != nil {
				return err
			}
			progress, err := c.svc().GoalProgress(cmd.Context(), owner)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(recs))
			for _, r := range recs {
				rows = append(rows, []string{
					strconv.Itoa(r.Priority), truncate(r.GoalText), completionBar(r.Completion),
					fmt.Sprintf("%d. %s", r.Step.Number, truncate(r.Step.Description)),
				})
			}
			return c.print(cmd, view{
				v:       map[string]any{"recommendations": recs, "goal_progress": progress},
				headers: []string{"Priority", "Goal", "Progress", "Next step"},
				rows:    rows,
			})
		},
	}
}

func exportCmd(c *cli) *cobra.Command {
	var (
		format string
		kinds  []string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the owner's context as json, csv, markdown or yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			owner, err := c.requireOwner()
			if err != nil {
				return err
			}
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			ks, err := usercontext.ParseKinds(kinds...)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if out != "" && out != "-" {
				file, err := os.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", out, err)
				}
				defer file.Close()
				w = file
			}
			return c.svc().Export(cmd.Context(), owner, f, ks, w)
		},
	}
	cmd.Flags().StringVar(&format, "format", string(export.FormatJSON), "json, csv, markdown or yaml")
	cmd.Flags().StringSliceVar(&kinds, "kinds", nil, "decisions, goals, preferences, issues, todos (default all)")
	cmd.Flags().StringVarP(&out, "file", "f", "", "write to a file instead of stdout")
	return cmd
}

func auditCmd(c *cli) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show recent changes to the owner's context",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			owner, err := c.requireOwner()
			if err != nil {
				return err
			}
			entries, err := c.svc().AuditTrail(cmd.Context(), owner, limit)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					e.ChangedAt.Format("2006-01-02 15:04:05"), string(e.Action), string(e.EntityType), e.EntityID, e.ChangedBy,
				})
			}
			return c.print(cmd, view{
				v:       listOutput[*usercontext.AuditEntry]{Items: entries, Count: len(entries)},
				headers: []string{"When", "Action", "Entity", "ID", "By"},
				rows:    rows,
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum entries to show")
	return cmd
}
