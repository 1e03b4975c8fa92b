package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/maharatedu/platform/core"
	"github.com/maharatedu/platform/core/lesson"
)

type lessonApi struct {
	svc *lesson.Service
}

func registerLessonAPI(g *echo.Group, jwt, revoked echo.MiddlewareFunc, svc *lesson.Service) {
	api := lessonApi{svc: svc}

	lg := g.Group("/lessons", jwt, revoked)
	lg.GET("", api.query)
	lg.GET("/:id", api.retrieve)
	lg.GET("/:id/resources", api.resources)

	// mutations are teacher-only
	tg := lg.Group("", teacherMiddleware())
	tg.POST("", api.create)
	tg.PUT("/:id", api.update)
	tg.DELETE("/:id", api.destroy)
}

func (api *lessonApi) query(ctx echo.Context) error {
	lessons, err := api.svc.List(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing lessons")
	}
	if lessons == nil {
		lessons = []lesson.Lesson{}
	}
	return ctx.JSON(http.StatusOK, lessons)
}

func (api *lessonApi) retrieve(ctx echo.Context) error {
	lsn, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting lesson")
	}
	return ctx.JSON(http.StatusOK, lsn)
}

// resources returns the lesson's embeddable links; PDFs come back with
// a document-viewer URL the portal can iframe directly.
func (api *lessonApi) resources(ctx echo.Context) error {
	lsn, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting lesson")
	}

	links := lsn.Resources()
	out := make([]ResourceResponse, 0, len(links))
	for _, l := range links {
		out = append(out, ResourceResponse{
			Kind:      l.Kind.String(),
			Title:     l.Title,
			URL:       l.URL,
			ViewerURL: l.ViewerURL(),
			External:  l.Kind.External(),
		})
	}
	return ctx.JSON(http.StatusOK, out)
}

func (api *lessonApi) create(ctx echo.Context) error {
	var data lesson.NewLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLesson")
	}
	if err := data.Validate(core.Validate); err != nil {
		return err
	}

	lsn, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating lesson")
	}
	return ctx.JSON(http.StatusCreated, lsn)
}

func (api *lessonApi) update(ctx echo.Context) error {
	var data lesson.NewLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLesson")
	}
	if err := data.Validate(core.Validate); err != nil {
		return err
	}

	lsn, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating lesson")
	}
	return ctx.JSON(http.StatusOK, lsn)
}

func (api *lessonApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting lesson")
	}
	return ctx.NoContent(http.StatusNoContent)
}
