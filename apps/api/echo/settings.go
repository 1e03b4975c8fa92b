package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/maharatedu/platform/core"
	"github.com/maharatedu/platform/core/settings"
)

type settingsApi struct {
	svc *settings.Service
}

func registerSettingsAPI(g *echo.Group, jwt, revoked echo.MiddlewareFunc, svc *settings.Service) {
	api := settingsApi{svc: svc}

	sg := g.Group("/settings", jwt, revoked)
	sg.GET("", api.retrieve)

	tg := sg.Group("", teacherMiddleware())
	tg.PUT("", api.update)
	tg.POST("/final-exams", api.addFinalExam)
	tg.DELETE("/final-exams/:id", api.removeFinalExam)
	tg.POST("/meeting-rooms", api.addMeetingRoom)
	tg.DELETE("/meeting-rooms/:id", api.removeMeetingRoom)
}

func (api *settingsApi) retrieve(ctx echo.Context) error {
	st, err := api.svc.Get(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting settings")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *settingsApi) update(ctx echo.Context) error {
	var data settings.UpdateSettings
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSettings")
	}
	if err := data.Validate(core.Validate); err != nil {
		return err
	}

	st, err := api.svc.Update(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "updating settings")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *settingsApi) addFinalExam(ctx echo.Context) error {
	return api.addLink(ctx, api.svc.AddFinalExam)
}

func (api *settingsApi) removeFinalExam(ctx echo.Context) error {
	if err := api.svc.RemoveFinalExam(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "removing final exam")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *settingsApi) addMeetingRoom(ctx echo.Context) error {
	return api.addLink(ctx, api.svc.AddMeetingRoom)
}

func (api *settingsApi) removeMeetingRoom(ctx echo.Context) error {
	if err := api.svc.RemoveMeetingRoom(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "removing meeting room")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *settingsApi) addLink(
	ctx echo.Context,
	add func(c context.Context, link settings.ResourceLink) (settings.ResourceLink, error),
) error {
	var data settings.ResourceLink
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResourceLink")
	}
	if err := data.Validate(core.Validate); err != nil {
		return err
	}

	link, err := add(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "adding resource link")
	}
	return ctx.JSON(http.StatusCreated, link)
}
