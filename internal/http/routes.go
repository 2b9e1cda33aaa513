package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/contextiq/internal/api"
	"github.com/fyrsmithlabs/contextiq/internal/usercontext"
)

// resource binds one entity type to the service for the shared
// list/create/read/update/delete routes.
type resource[T any, F any] struct {
	path    string
	ownerOf func(T) string
	get     func(context.Context, string) (T, error)
	create  func(context.Context, T) error
	update  func(context.Context, T) error
	remove  func(context.Context, string) error
	list    func(context.Context, string, api.ListParams) ([]T, error)
	build   func(F, string) (T, error)
	apply   func(F, T, time.Time) error
}

// mount registers the collection and item routes of r on g and returns the
// item group for extra actions.
func mount[T any, F any](g *echo.Group, r resource[T, F]) *echo.Group {
	g.GET(r.path, func(c echo.Context) error {
		var p api.ListParams
		if err := (&echo.DefaultBinder{}).BindQueryParams(c, &p); err != nil {
			return badRequest(err)
		}
		items, err := r.list(c.Request().Context(), c.Param("owner"), p)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, listOf(items))
	})
	g.POST(r.path, func(c echo.Context) error {
		var f F
		if err := c.Bind(&f); err != nil {
			return badRequest(err)
		}
		item, err := r.build(f, c.Param("owner"))
		if err != nil {
			return err
		}
		if err := r.create(c.Request().Context(), item); err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, item)
	})

	item := g.Group(r.path + "/:id")
	item.GET("", func(c echo.Context) error {
		v, err := r.load(c)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, v)
	})
	item.PUT("", func(c echo.Context) error {
		v, err := r.load(c)
		if err != nil {
			return err
		}
		var f F
		if err := c.Bind(&f); err != nil {
			return badRequest(err)
		}
		if err := r.apply(f, v, time.Now().UTC()); err != nil {
			return err
		}
		if err := r.update(c.Request().Context(), v); err != nil {
			return err
		}
		return c.JSON(http.StatusOK, v)
	})
	item.DELETE("", func(c echo.Context) error {
		if _, err := r.load(c); err != nil {
			return err
		}
		if err := r.remove(c.Request().Context(), c.Param("id")); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	})
	return item
}

// load fetches the :id item, reporting items of other owners as missing.
func (r resource[T, F]) load(c echo.Context) (T, error) {
	var zero T
	id := c.Param("id")
	v, err := r.get(c.Request().Context(), id)
	if err != nil {
		return zero, err
	}
	if r.ownerOf(v) != c.Param("owner") {
		return zero, fmt.Errorf("%s: %w", id, usercontext.ErrNotFound)
	}
	return v, nil
}

// act runs an item action after the ownership check and renders its result.
func act[T any, F any, R any](r resource[T, F], do func(echo.Context) (R, error)) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := r.load(c); err != nil {
			return err
		}
		out, err := do(c)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, out)
	}
}

func badRequest(err error) error {
	return echo.NewHTTPError(http.StatusBadRequest, "invalid request: "+err.Error())
}

func bindStatus(c echo.Context) (string, error) {
	var req StatusRequest
	if err := c.Bind(&req); err != nil {
		return "", badRequest(err)
	}
	if strings.TrimSpace(req.Status) == "" {
		return "", echo.NewHTTPError(http.StatusBadRequest, "status is required")
	}
	return req.Status, nil
}

// queryInt parses an optional integer query parameter.
func queryInt(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+" must be a non-negative integer")
	}
	return n, nil
}

// queryList splits comma separated and repeated query values.
func queryList(c echo.Context, name string) []string {
	var out []string
	for _, v := range c.QueryParams()[name] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", s.metricsHandler())

	v1 := s.echo.Group("/api/v1")
	if s.config.RateLimit.Enabled {
		v1.Use(s.rateLimiter())
	}
	owner := v1.Group("/owners/:owner", scoped)

	owner.GET("/status", s.handleStatus)
	owner.GET("/context", s.handleQuery)
	owner.GET("/export", s.handleExport)
	owner.GET("/audit", s.handleAudit)
	owner.POST("/extract", s.handleExtract)
	owner.POST("/validate", s.handleValidate)
	owner.GET("/conflicts", s.handleConflicts)
	owner.GET("/rankings/decisions", s.handleRankings)
	owner.GET("/recommendations", s.handleRecommendations)

	s.mountDecisions(owner)
	s.mountGoals(owner)
	s.mountPreferences(owner)
	s.mountIssues(owner)
	s.mountTodos(owner)
}

func (s *Server) mountDecisions(g *echo.Group) {
	r := resource[*usercontext.Decision, api.DecisionFields]{
		path:    "/decisions",
		ownerOf: func(d *usercontext.Decision) string { return d.OwnerID },
		get:     s.svc.GetDecision,
		create:  s.svc.CreateDecision,
		update:  s.svc.UpdateDecision,
		remove:  s.svc.DeleteDecision,
		list: func(ctx context.Context, owner string, p api.ListParams) ([]*usercontext.Decision, error) {
			return s.svc.ListDecisions(ctx, owner, p.Decisions())
		},
		build: api.DecisionFields.New,
		apply: func(f api.DecisionFields, d *usercontext.Decision, now time.Time) error { return f.Apply(d, now) },
	}
	item := mount(g, r)
	item.POST("/apply", act(r, func(c echo.Context) (*usercontext.Decision, error) {
		return s.svc.RecordApplication(c.Request().Context(), c.Param("id"))
	}))
	item.POST("/archive", act(r, func(c echo.Context) (*usercontext.Decision, error) {
		return s.svc.ArchiveDecision(c.Request().Context(), c.Param("id"))
	}))
}

func (s *Server) mountGoals(g *echo.Group) {
	r := resource[*usercontext.Goal, api.GoalFields]{
		path:    "/goals",
		ownerOf: func(g *usercontext.Goal) string { return g.OwnerID },
		get:     s.svc.GetGoal,
		create:  s.svc.CreateGoal,
		update:  s.svc.UpdateGoal,
		remove:  s.svc.DeleteGoal,
		list: func(ctx context.Context, owner string, p api.ListParams) ([]*usercontext.Goal, error) {
			return s.svc.ListGoals(ctx, owner, p.Goals())
		},
		build: api.GoalFields.New,
		apply: func(f api.GoalFields, g *usercontext.Goal, now time.Time) error { return f.Apply(g, now) },
	}
	item := mount(g, r)
	item.PUT("/status", act(r, func(c echo.Context) (*usercontext.Goal, error) {
		status, err := bindStatus(c)
		if err != nil {
			return nil, err
		}
		return s.svc.UpdateGoalStatus(c.Request().Context(), c.Param("id"), usercontext.ParseGoalStatus(status))
	}))
	item.POST("/steps", act(r, func(c echo.Context) (*usercontext.Goal, error) {
		var req StepRequest
		if err := c.Bind(&req); err != nil {
			return nil, badRequest(err)
		}
		var due *time.Time
		if req.DueDate != nil {
			var err error
			if due, err = api.ParseDate(*req.DueDate); err != nil {
				return nil, err
			}
		}
		return s.svc.AddGoalStep(c.Request().Context(), c.Param("id"), req.Description, due)
	}))
	item.PUT("/steps/:number", act(r, func(c echo.Context) (*usercontext.Goal, error) {
		n, err := strconv.Atoi(c.Param("number"))
		if err != nil || n < 1 {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "step number must be a positive integer")
		}
		status, err := bindStatus(c)
		if err != nil {
			return nil, err
		}
		return s.svc.SetGoalStepStatus(c.Request().Context(), c.Param("id"), n, usercontext.ParseGoalStatus(status))
	}))
}

func (s *Server) mountPreferences(g *echo.Group) {
	r := resource[*usercontext.Preference, api.PreferenceFields]{
		path:    "/preferences",
		ownerOf: func(p *usercontext.Preference) string { return p.OwnerID },
		get:     s.svc.GetPreference,
		create:  s.svc.CreatePreference,
		update:  s.svc.UpdatePreference,
		remove:  s.svc.DeletePreference,
		list: func(ctx context.Context, owner string, p api.ListParams) ([]*usercontext.Preference, error) {
			return s.svc.ListPreferences(ctx, owner, p.Preferences())
		},
		build: api.PreferenceFields.New,
		apply: func(f api.PreferenceFields, p *usercontext.Preference, now time.Time) error { return f.Apply(p, now) },
	}
	item := mount(g, r)
	item.POST("/observe", act(r, func(c echo.Context) (*usercontext.Preference, error) {
		return s.svc.ObservePreference(c.Request().Context(), c.Param("id"))
	}))
}

func (s *Server) mountIssues(g *echo.Group) {
	r := resource[*usercontext.Issue, api.IssueFields]{
		path:    "/issues",
		ownerOf: func(i *usercontext.Issue) string { return i.OwnerID },
		get:     s.svc.GetIssue,
		create:  s.svc.CreateIssue,
		update:  s.svc.UpdateIssue,
		remove:  s.svc.DeleteIssue,
		list: func(ctx context.Context, owner string, p api.ListParams) ([]*usercontext.Issue, error) {
			return s.svc.ListIssues(ctx, owner, p.Issues())
		},
		build: api.IssueFields.New,
		apply: func(f api.IssueFields, i *usercontext.Issue, now time.Time) error { return f.Apply(i, now) },
	}
	item := mount(g, r)
	item.POST("/resolve", act(r, func(c echo.Context) (*usercontext.Issue, error) {
		// an empty body resolves as fixed
		var req StatusRequest
		if c.Request().ContentLength != 0 {
			if err := c.Bind(&req); err != nil {
				return nil, badRequest(err)
			}
		}
		status := usercontext.ResolutionFixed
		if req.Status != "" {
			status = usercontext.ParseResolutionStatus(req.Status)
		}
		return s.svc.ResolveIssue(c.Request().Context(), c.Param("id"), status)
	}))
}

func (s *Server) mountTodos(g *echo.Group) {
	r := resource[*usercontext.Todo, api.TodoFields]{
		path:    "/todos",
		ownerOf: func(t *usercontext.Todo) string { return t.OwnerID },
		get:     s.svc.GetTodo,
		create:  s.svc.CreateTodo,
		update:  s.svc.UpdateTodo,
		remove:  s.svc.DeleteTodo,
		list: func(ctx context.Context, owner string, p api.ListParams) ([]*usercontext.Todo, error) {
			return s.svc.ListTodos(ctx, owner, p.Todos())
		},
		build: api.TodoFields.New,
		apply: func(f api.TodoFields, t *usercontext.Todo, now time.Time) error { return f.Apply(t, now) },
	}
	item := mount(g, r)
	item.PUT("/status", act(r, func(c echo.Context) (*usercontext.Todo, error) {
		status, err := bindStatus(c)
		if err != nil {
			return nil, err
		}
		return s.svc.UpdateTodoStatus(c.Request().Context(), c.Param("id"), usercontext.ParseTodoStatus(status))
	}))
}
