package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/hatua/core"
	"github.com/trezcool/hatua/core/leaderboard"
	"github.com/trezcool/hatua/core/progress"
)

type progressApi struct {
	svc   *progress.Service
	lbSvc *leaderboard.Service
}

func registerProgressAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *progress.Service, lbSvc *leaderboard.Service) {
	api := progressApi{svc: svc, lbSvc: lbSvc}

	pg := g.Group("", jwt)
	pg.POST("/modules/:id/activity", api.recordActivity)
	pg.GET("/courses/:id/accessible-modules", api.listAccessibleModules)
	pg.POST("/courses/:id/start", api.startCourse)
	pg.POST("/courses/:id/quiz-results", api.recordQuizResult)
	pg.GET("/courses/:id/progress", api.retrieveCourseProgress)
	pg.GET("/me/dashboard", api.dashboard)
}

type (
	ActivityRequest struct {
		TimeSpentMinutes int  `json:"time_spent_minutes" validate:"min=0"`
		MarkCompleted    bool `json:"mark_completed"`
	}

	QuizResultRequest struct {
		CorrectAnswers int `json:"correct_answers" validate:"min=0"`
		TotalQuestions int `json:"total_questions" validate:"min=0"`
		PointsEarned   int `json:"points_earned" validate:"min=0"`
	}

	DashboardResponse struct {
		progress.Dashboard
		GlobalRank *int `json:"global_rank,omitempty"`
	}
)

func (r *ActivityRequest) Validate() error   { return core.Validate.Struct(r) }
func (r *QuizResultRequest) Validate() error { return core.Validate.Struct(r) }

// recordActivity appends learning activity for the authenticated user on a
// module; the module must be unlocked for them.
func (api *progressApi) recordActivity(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	var data ActivityRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ActivityRequest")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	moduleID := ctx.Param("id")
	unlocked, err := api.svc.IsUnlocked(reqCtx, claims.Subject, moduleID)
	if err != nil {
		return err
	}
	if !unlocked {
		return errModuleLocked
	}

	cp, err := api.svc.RecordActivity(reqCtx, claims.Subject, moduleID, data.TimeSpentMinutes, data.MarkCompleted)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cp)
}

func (api *progressApi) listAccessibleModules(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	access, err := api.svc.ListAccessibleModules(ctx.Request().Context(), claims.Subject, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, access)
}

func (api *progressApi) startCourse(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	cp, err := api.svc.StartCourse(ctx.Request().Context(), claims.Subject, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cp)
}

func (api *progressApi) recordQuizResult(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	var data QuizResultRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to QuizResultRequest")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	cp, err := api.svc.RecordQuizResult(
		ctx.Request().Context(), claims.Subject, ctx.Param("id"),
		data.CorrectAnswers, data.TotalQuestions, data.PointsEarned,
	)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cp)
}

func (api *progressApi) retrieveCourseProgress(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	cp, err := api.svc.GetCourseProgress(ctx.Request().Context(), claims.Subject, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cp)
}

func (api *progressApi) dashboard(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()
	dash, err := api.svc.GetUserDashboard(reqCtx, claims.Subject)
	if err != nil {
		return err
	}

	resp := DashboardResponse{Dashboard: dash}
	// rank comes from the last leaderboard snapshot; absence is not an error
	if entry, err := api.lbSvc.SubjectRank(reqCtx, leaderboard.ScopeGlobal, "", claims.Subject); err == nil {
		rank := entry.Rank
		resp.GlobalRank = &rank
	}
	return ctx.JSON(http.StatusOK, resp)
}
