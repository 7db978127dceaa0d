package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/hatua/core/screentime"
)

type screentimeApi struct {
	svc *screentime.Service
}

func registerScreentimeAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *screentime.Service) {
	api := screentimeApi{svc: svc}

	sg := g.Group("/screentime", jwt)
	sg.GET("/modules/:id", api.module)
	sg.GET("/courses/:id", api.course)
	sg.GET("/total", api.total)
	sg.GET("/analytics", api.analytics)
}

func (api *screentimeApi) module(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	report, err := api.svc.ModuleScreentime(ctx.Request().Context(), claims.Subject, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *screentimeApi) course(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	report, err := api.svc.CourseScreentime(ctx.Request().Context(), claims.Subject, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *screentimeApi) total(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	report, err := api.svc.TotalScreentime(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, report)
}

// analytics serves the daily activity breakdown; window defaults to 7 days.
func (api *screentimeApi) analytics(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	days := 7
	if raw := ctx.QueryParam("days"); raw != "" {
		if days, err = strconv.Atoi(raw); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid days")
		}
	}

	report, err := api.svc.Analytics(ctx.Request().Context(), claims.Subject, days)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, report)
}
