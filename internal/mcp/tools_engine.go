package mcp

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/contextiq/internal/conflict"
	"github.com/fyrsmithlabs/contextiq/internal/export"
	"github.com/fyrsmithlabs/contextiq/internal/extraction"
	"github.com/fyrsmithlabs/contextiq/internal/usercontext"
	"github.com/fyrsmithlabs/contextiq/internal/validation"
)

const defaultRankLimit = 10

type queryInput struct {
	OwnerID string   `json:"owner_id,omitempty" jsonschema:"defaults to the server's configured owner"`
	Kinds   []string `json:"kinds,omitempty" jsonschema:"decisions, goals, preferences, issues, todos or all (default)"`
	Limit   int      `json:"limit,omitempty" jsonschema:"maximum items per kind; 0 returns everything"`
}

type queryOutput struct {
	Context map[string]any `json:"context"`
	Counts  map[string]int `json:"counts"`
}

type exportInput struct {
	OwnerID string   `json:"owner_id,omitempty" jsonschema:"defaults to the server's configured owner"`
	Format  string   `json:"format,omitempty" jsonschema:"json (default), csv, markdown or yaml"`
	Kinds   []string `json:"kinds,omitempty" jsonschema:"sections to include; all by default"`
}

type exportOutput struct {
	Format      string `json:"format"`
	ContentType string `json:"content_type"`
	Content     string `json:"content"`
}

type extractInput struct {
	OwnerID string `json:"owner_id,omitempty" jsonschema:"defaults to the server's configured owner"`
	Text    string `json:"text" jsonschema:"conversation or note text to scan"`
}

type extractOutput struct {
	Candidates extraction.Result `json:"candidates"`
	Total      int               `json:"total"`
}

type validateInput struct {
	OwnerID    string            `json:"owner_id,omitempty" jsonschema:"defaults to the server's configured owner"`
	ProjectID  string            `json:"project_id,omitempty" jsonschema:"limits the check to items that apply to this project"`
	ActionType string            `json:"action_type" jsonschema:"kind of action, e.g. tool_use or deploy"`
	Target     string            `json:"target,omitempty" jsonschema:"what the action touches"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

type ownerInput struct {
	OwnerID string `json:"owner_id,omitempty" jsonschema:"defaults to the server's configured owner"`
}

type conflictsOutput struct {
	Total       int                 `json:"total"`
	Preferences []conflict.Conflict `json:"preference_conflicts"`
	Decisions   []conflict.Conflict `json:"decision_conflicts"`
}

type rankInput struct {
	OwnerID string `json:"owner_id,omitempty" jsonschema:"defaults to the server's configured owner"`
	Limit   int    `json:"limit,omitempty" jsonschema:"defaults to 10"`
}

type rankOutput struct {
	Rankings []map[string]any `json:"rankings"`
	Count    int              `json:"count"`
}

type recommendOutput struct {
	Recommendations []map[string]any `json:"recommendations"`
	Progress        []map[string]any `json:"goal_progress"`
}

func (s *Server) registerEngineTools() {
	addTool(s, ToolMetadata{
		Name:        "query_user_context",
		Description: "Return the user's stored context grouped by kind, with per-kind counts.",
		Category:    CategoryQuery,
		Keywords:    []string{"context", "query", "summary", "overview", "search"},
	}, func(ctx context.Context, in queryInput) (queryOutput, string, error) {
		ctx, owner, err := s.resolveOwner(ctx, in.OwnerID)
		if err != nil {
			return queryOutput{}, "", err
		}
		kinds, err := usercontext.ParseKinds(in.Kinds...)
		if err != nil {
			return queryOutput{}, "", err
		}
		b, err := s.svc.Query(ctx, owner, kinds, in.Limit)
		if err != nil {
			return queryOutput{}, "", err
		}
		m, err := toMap(b)
		if err != nil {
			return queryOutput{}, "", err
		}
		out := queryOutput{Context: m, Counts: make(map[string]int)}
		parts := make([]string, 0, len(kinds))
		for _, k := range kinds {
			n := b.Counts()[k]
			out.Counts[string(k)] = n
			parts = append(parts, fmt.Sprintf("%d %s", n, k))
		}
		return out, strings.Join(parts, ", "), nil
	})

	addTool(s, ToolMetadata{
		Name:        "export_user_context",
		Description: "Render the user's context as json, csv, markdown or yaml for backup or review.",
		Category:    CategoryQuery,
		Keywords:    []string{"export", "backup", "csv", "markdown", "yaml", "json"},
	}, func(ctx context.Context, in exportInput) (exportOutput, string, error) {
		ctx, owner, err := s.resolveOwner(ctx, in.OwnerID)
		if err != nil {
			return exportOutput{}, "", err
		}
		format, err := export.ParseFormat(in.Format)
		if err != nil {
			return exportOutput{}, "", err
		}
		kinds, err := usercontext.ParseKinds(in.Kinds...)
		if err != nil {
			return exportOutput{}, "", err
		}
		var buf bytes.Buffer
		if err := s.svc.Export(ctx, owner, format, kinds, &buf); err != nil {
			return exportOutput{}, "", err
		}
		return exportOutput{
			Format:      string(format),
			ContentType: format.ContentType(),
			Content:     buf.String(),
		}, buf.String(), nil
	})

	addTool(s, ToolMetadata{
		Name:        "extract_context",
		Description: "Scan text for candidate decisions, goals, preferences and known issues. Nothing is saved; confirm candidates with the user and store them with the manage_* tools.",
		Category:    CategoryEngine,
		Keywords:    []string{"extract", "detect", "conversation", "candidates", "learn"},
	}, func(ctx context.Context, in extractInput) (extractOutput, string, error) {
		ctx, owner, err := s.resolveOwner(ctx, in.OwnerID)
		if err != nil {
			return extractOutput{}, "", err
		}
		res, err := s.svc.Extract(ctx, owner, in.Text)
		if err != nil {
			return extractOutput{}, "", err
		}
		return extractOutput{Candidates: res, Total: res.Len()},
			fmt.Sprintf("%d decision, %d goal, %d preference and %d issue candidates",
				len(res.Decisions), len(res.Goals), len(res.Preferences), len(res.Issues)), nil
	})

	addTool(s, ToolMetadata{
		Name:        "validate_action",
		Description: "Check a proposed action against the user's decisions, automation preferences, known issues and active goals before performing it.",
		Category:    CategoryEngine,
		Keywords:    []string{"validate", "check", "allowed", "violation", "guard", "before"},
	}, func(ctx context.Context, in validateInput) (validation.ActionValidation, string, error) {
		ctx, owner, err := s.resolveOwner(ctx, in.OwnerID)
		if err != nil {
			return validation.ActionValidation{}, "", err
		}
		if strings.TrimSpace(in.ActionType) == "" {
			return validation.ActionValidation{}, "", fmt.Errorf("action_type is required: %w", usercontext.ErrInvalidInput)
		}
		action := validation.Action{Type: in.ActionType, Target: in.Target, Parameters: in.Parameters}
		v, err := s.svc.ValidateAction(ctx, action, owner, in.ProjectID)
		if err != nil {
			return validation.ActionValidation{}, "", err
		}
		verdict := "allowed"
		if !v.IsValid {
			verdict = "blocked: " + strings.Join(v.Violations, "; ")
		}
		return v, fmt.Sprintf("%s (%d warnings)", verdict, len(v.Warnings)), nil
	})

	addTool(s, ToolMetadata{
		Name:        "detect_conflicts",
		Description: "Find contradictory preferences and decisions in the user's context.",
		Category:    CategoryEngine,
		Keywords:    []string{"conflict", "contradiction", "inconsistent", "duplicate"},
	}, func(ctx context.Context, in ownerInput) (conflictsOutput, string, error) {
		ctx, owner, err := s.resolveOwner(ctx, in.OwnerID)
		if err != nil {
			return conflictsOutput{}, "", err
		}
		r, err := s.svc.DetectConflicts(ctx, owner)
		if err != nil {
			return conflictsOutput{}, "", err
		}
		out := conflictsOutput{Total: r.Total(), Preferences: r.Preferences, Decisions: r.Decisions}
		lines := []string{fmt.Sprintf("%d conflicts", r.Total())}
		for _, c := range r.All() {
			lines = append(lines, fmt.Sprintf("[%s] %s", c.Severity, c.Description))
		}
		return out, strings.Join(lines, "\n"), nil
	})

	addTool(s, ToolMetadata{
		Name:        "rank_decisions",
		Description: "Rank the user's applied decisions by effectiveness: application count, recency and confidence.",
		Category:    CategoryEngine,
		Keywords:    []string{"rank", "effective", "best", "top", "decision"},
	}, func(ctx context.Context, in rankInput) (rankOutput, string, error) {
		ctx, owner, err := s.resolveOwner(ctx, in.OwnerID)
		if err != nil {
			return rankOutput{}, "", err
		}
		limit := in.Limit
		if limit <= 0 {
			limit = defaultRankLimit
		}
		ranked, err := s.svc.RankDecisions(ctx, owner, limit)
		if err != nil {
			return rankOutput{}, "", err
		}
		ms, err := toMaps(ranked)
		if err != nil {
			return rankOutput{}, "", err
		}
		lines := make([]string, 0, len(ranked))
		for _, r := range ranked {
			lines = append(lines, fmt.Sprintf("%d. %s (%.2f)", r.Rank, r.Decision.Text, r.Score))
		}
		return rankOutput{Rankings: ms, Count: len(ms)}, strings.Join(lines, "\n"), nil
	})

	addTool(s, ToolMetadata{
		Name:        "recommend_next_steps",
		Description: "Suggest the next step of every in-progress goal, highest priority first, with overall goal progress.",
		Category:    CategoryEngine,
		Keywords:    []string{"next", "recommend", "suggest", "progress", "goal", "step"},
	}, func(ctx context.Context, in ownerInput) (recommendOutput, string, error) {
		ctx, owner, err := s.resolveOwner(ctx, in.OwnerID)
		if err != nil {
			return recommendOutput{}, "", err
		}
		recs, err := s.svc.RecommendNextSteps(ctx, owner)
		if err != nil {
			return recommendOutput{}, "", err
		}
		progress, err := s.svc.GoalProgress(ctx, owner)
		if err != nil {
			return recommendOutput{}, "", err
		}
		out := recommendOutput{}
		if out.Recommendations, err = toMaps(recs); err != nil {
			return recommendOutput{}, "", err
		}
		if out.Progress, err = toMaps(progress); err != nil {
			return recommendOutput{}, "", err
		}
		lines := make([]string, 0, len(recs))
		for _, r := range recs {
			lines = append(lines, r.Message)
		}
		if len(lines) == 0 {
			lines = append(lines, "no in-progress goals with open steps")
		}
		return out, strings.Join(lines, "\n"), nil
	})
}
