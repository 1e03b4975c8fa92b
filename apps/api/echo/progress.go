package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/maharatedu/platform/core"
	"github.com/maharatedu/platform/core/lesson"
	"github.com/maharatedu/platform/core/progress"
	"github.com/maharatedu/platform/core/user"
)

type progressApi struct {
	svc    *progress.Service
	lsnSvc *lesson.Service
	usrSvc *user.Service
}

func registerProgressAPI(
	g *echo.Group,
	jwt, revoked echo.MiddlewareFunc,
	svc *progress.Service,
	lsnSvc *lesson.Service,
	usrSvc *user.Service,
) {
	api := progressApi{svc: svc, lsnSvc: lsnSvc, usrSvc: usrSvc}

	pg := g.Group("/progress", jwt, revoked)
	pg.GET("/me", api.retrieveOwn)
	pg.POST("/complete", api.complete)

	// teacher-only overview
	tg := pg.Group("", teacherMiddleware())
	tg.GET("", api.queryAll)
	tg.GET("/:studentID", api.retrieve)
}

func (api *progressApi) retrieveOwn(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	prg, err := api.svc.Ensure(ctx.Request().Context(), usr.ID, usr.Name)
	if err != nil {
		return errors.Wrap(err, "ensuring progress")
	}
	return ctx.JSON(http.StatusOK, prg)
}

func (api *progressApi) complete(ctx echo.Context) error {
	var data CompleteLessonRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CompleteLessonRequest")
	}
	if err := data.Validate(core.Validate); err != nil {
		return err
	}

	rctx := ctx.Request().Context()
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	// the lesson must exist before it can be completed
	if _, err = api.lsnSvc.Get(rctx, data.LessonID); err != nil {
		return errors.Wrap(err, "getting lesson")
	}
	if _, err = api.svc.Ensure(rctx, usr.ID, usr.Name); err != nil {
		return errors.Wrap(err, "ensuring progress")
	}

	completed, err := api.svc.MarkComplete(rctx, usr.ID, data.LessonID)
	if err != nil {
		return errors.Wrap(err, "marking lesson complete")
	}

	prg, err := api.svc.Get(rctx, usr.ID)
	if err != nil {
		return errors.Wrap(err, "getting progress")
	}
	lessons, err := api.lsnSvc.List(rctx)
	if err != nil {
		return errors.Wrap(err, "listing lessons")
	}

	return ctx.JSON(http.StatusOK, CompleteLessonResponse{
		Completed: completed,
		Percent:   progress.Percent(len(lessons), len(prg.CompletedLessons)),
	})
}

func (api *progressApi) queryAll(ctx echo.Context) error {
	all, err := api.svc.All(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing progress")
	}
	return ctx.JSON(http.StatusOK, all)
}

func (api *progressApi) retrieve(ctx echo.Context) error {
	prg, err := api.svc.Get(ctx.Request().Context(), ctx.Param("studentID"))
	if err != nil {
		return errors.Wrap(err, "getting progress")
	}
	return ctx.JSON(http.StatusOK, prg)
}
