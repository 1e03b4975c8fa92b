package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/maharatedu/platform/core/dashboard"
)

// dashboardApi assembles the portal landing state in one round-trip.
type dashboardApi struct {
	opts *Options
}

func registerDashboardAPI(g *echo.Group, jwt, revoked echo.MiddlewareFunc, opts *Options) {
	api := dashboardApi{opts: opts}

	dg := g.Group("/dashboard", jwt, revoked)
	dg.GET("", api.retrieve)
}

func (api *dashboardApi) retrieve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if claims.IsTeacher {
		return api.teacher(ctx, claims.Subject)
	}
	return api.student(ctx, claims.Subject)
}

func (api *dashboardApi) student(ctx echo.Context, userID string) error {
	ctl := dashboard.NewStudent(
		userID,
		api.opts.UserSvc,
		api.opts.LessonSvc,
		api.opts.ProgressSvc,
		api.opts.SettingsSvc,
		api.opts.Logger,
	)
	if err := ctl.Start(ctx.Request().Context()); err != nil {
		return errors.Wrap(err, "starting student dashboard")
	}
	defer ctl.Stop()

	return ctx.JSON(http.StatusOK, ctl.Snapshot())
}

func (api *dashboardApi) teacher(ctx echo.Context, userID string) error {
	ctl := dashboard.NewTeacher(
		userID,
		api.opts.UserSvc,
		api.opts.LessonSvc,
		api.opts.ProgressSvc,
		api.opts.SettingsSvc,
		api.opts.MessageSvc,
		api.opts.Logger,
	)
	if err := ctl.Start(ctx.Request().Context()); err != nil {
		return errors.Wrap(err, "starting teacher dashboard")
	}
	defer ctl.Stop()

	return ctx.JSON(http.StatusOK, ctl.Snapshot())
}
