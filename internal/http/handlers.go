package http

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/contextiq/internal/export"
	"github.com/fyrsmithlabs/contextiq/internal/ranking"
	"github.com/fyrsmithlabs/contextiq/internal/usercontext"
)

const (
	defaultRankLimit  = 10
	defaultAuditLimit = 100
)

func (s *Server) handleStatus(c echo.Context) error {
	ctx := c.Request().Context()
	owner := c.Param("owner")
	b, err := s.svc.Query(ctx, owner, usercontext.AllKinds(), 0)
	if err != nil {
		return err
	}
	report, err := s.svc.DetectConflicts(ctx, owner)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, StatusResponse{
		OwnerID:   owner,
		Counts:    countsByKind(b),
		Conflicts: report.Total(),
	})
}

func countsByKind(b *usercontext.Bundle) map[string]int {
	out := make(map[string]int, len(b.Kinds))
	for k, n := range b.Counts() {
		out[string(k)] = n
	}
	return out
}

func (s *Server) handleQuery(c echo.Context) error {
	kinds, err := usercontext.ParseKinds(queryList(c, "kinds")...)
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		return err
	}
	b, err := s.svc.Query(c.Request().Context(), c.Param("owner"), kinds, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b)
}

func (s *Server) handleExport(c echo.Context) error {
	format, err := export.ParseFormat(c.QueryParam("format"))
	if err != nil {
		return err
	}
	kinds, err := usercontext.ParseKinds(queryList(c, "kinds")...)
	if err != nil {
		return err
	}
	// render fully before writing so a failure still gets an error status
	var buf bytes.Buffer
	if err := s.svc.Export(c.Request().Context(), c.Param("owner"), format, kinds, &buf); err != nil {
		return err
	}
	return c.Blob(http.StatusOK, format.ContentType(), buf.Bytes())
}

func (s *Server) handleAudit(c echo.Context) error {
	limit, err := queryInt(c, "limit", defaultAuditLimit)
	if err != nil {
		return err
	}
	entries, err := s.svc.AuditTrail(c.Request().Context(), c.Param("owner"), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listOf(entries))
}

func (s *Server) handleExtract(c echo.Context) error {
	var req ExtractRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(err)
	}
	if strings.TrimSpace(req.Text) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "text is required")
	}
	res, err := s.svc.Extract(c.Request().Context(), c.Param("owner"), req.Text)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) handleValidate(c echo.Context) error {
	var req ValidateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(err)
	}
	if strings.TrimSpace(req.Type) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "action_type is required")
	}
	v, err := s.svc.ValidateAction(c.Request().Context(), req.Action, c.Param("owner"), req.ProjectID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, v)
}

func (s *Server) handleConflicts(c echo.Context) error {
	report, err := s.svc.DetectConflicts(c.Request().Context(), c.Param("owner"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}

func (s *Server) handleRankings(c echo.Context) error {
	limit, err := queryInt(c, "limit", defaultRankLimit)
	if err != nil {
		return err
	}
	ranked, err := s.svc.RankDecisions(c.Request().Context(), c.Param("owner"), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listOf(ranked))
}

// RecommendationsResponse is the response body for GET /recommendations.
type RecommendationsResponse struct {
	Recommendations []ranking.Recommendation `json:"recommendations"`
	Progress        []ranking.GoalProgress   `json:"goal_progress"`
}

func (s *Server) handleRecommendations(c echo.Context) error {
	ctx := c.Request().Context()
	owner := c.Param("owner")
	recs, err := s.svc.RecommendNextSteps(ctx, owner)
	if err != nil {
		return err
	}
	progress, err := s.svc.GoalProgress(ctx, owner)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, RecommendationsResponse{
		Recommendations: listOf(recs).Items,
		Progress:        listOf(progress).Items,
	})
}
