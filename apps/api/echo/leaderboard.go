package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/hatua/core/leaderboard"
)

type leaderboardApi struct {
	svc *leaderboard.Service
}

func registerLeaderboardAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *leaderboard.Service) {
	api := leaderboardApi{svc: svc}

	lg := g.Group("/leaderboard", jwt)
	lg.GET("", api.top)
	lg.GET("/me", api.selfRank)
	lg.POST("/recalculate", api.recalculate, staffMiddleware())
}

// top serves the stored ranking for a scope.
// Query params: scope (global|course|team), course_id, limit.
func (api *leaderboardApi) top(ctx echo.Context) error {
	scope, scopeID, err := scopeParams(ctx)
	if err != nil {
		return err
	}
	limit := 0
	if raw := ctx.QueryParam("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
	}

	entries, err := api.svc.Top(ctx.Request().Context(), scope, scopeID, limit)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *leaderboardApi) selfRank(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	scope, scopeID, err := scopeParams(ctx)
	if err != nil {
		return err
	}

	entry, err := api.svc.SubjectRank(ctx.Request().Context(), scope, scopeID, claims.Subject)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, entry)
}

func (api *leaderboardApi) recalculate(ctx echo.Context) error {
	scope, scopeID, err := scopeParams(ctx)
	if err != nil {
		return err
	}

	entries, err := api.svc.Recalculate(ctx.Request().Context(), scope, scopeID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, entries)
}

func scopeParams(ctx echo.Context) (leaderboard.Scope, string, error) {
	scope := leaderboard.Scope(ctx.QueryParam("scope"))
	if scope == "" {
		scope = leaderboard.ScopeGlobal
	}
	if !scope.Valid() {
		return "", "", leaderboard.ErrUnknownScope
	}
	return scope, ctx.QueryParam("course_id"), nil
}
