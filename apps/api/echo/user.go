package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/maharatedu/platform/core"
	"github.com/maharatedu/platform/core/progress"
	"github.com/maharatedu/platform/core/user"
	revokesvc "github.com/maharatedu/platform/services/revoke"
)

type authApi struct {
	svc         *user.Service
	revocations revokesvc.Store
}

func registerAuthAPI(
	g *echo.Group,
	jwt, revoked echo.MiddlewareFunc,
	svc *user.Service,
	revocations revokesvc.Store,
) {
	api := authApi{svc: svc, revocations: revocations}

	ag := g.Group("/auth")

	// un-authed endpoints
	ag.POST("/login", api.login)
	ag.POST("/register", api.register)

	// authed endpoints
	tg := ag.Group("", jwt, revoked)
	tg.POST("/token-refresh", api.refreshToken)
	tg.POST("/logout", api.logout)
	tg.GET("/me", api.me)
}

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(core.Validate); err != nil {
		return err
	}

	claims, err := authenticate(ctx.Request().Context(), data.Email, data.Password, api.svc)
	if err != nil {
		return err
	}
	token, err := GenerateToken(claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

// register creates the platform's single teacher account. Student
// accounts are created by the teacher via the students API.
func (api *authApi) register(ctx echo.Context) error {
	var data user.Registration
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Registration")
	}
	if err := data.Validate(core.Validate); err != nil {
		return err
	}

	usr, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.svc)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *authApi) logout(ctx echo.Context) error {
	if err := revokeToken(ctx, api.revocations); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Signed out."})
}

func (api *authApi) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

type studentApi struct {
	svc    *user.Service
	prgSvc *progress.Service
}

func registerStudentAPI(
	g *echo.Group,
	jwt, revoked echo.MiddlewareFunc,
	svc *user.Service,
	prgSvc *progress.Service,
) {
	api := studentApi{svc: svc, prgSvc: prgSvc}

	sg := g.Group("/students", jwt, revoked, teacherMiddleware())
	sg.GET("", api.query)
	sg.POST("", api.create)
	sg.PUT("/:id", api.update)
	sg.DELETE("/:id", api.destroy)
}

func (api *studentApi) query(ctx echo.Context) error {
	students, err := api.svc.ListStudents(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing students")
	}
	if students == nil {
		students = []user.User{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) create(ctx echo.Context) error {
	var data user.Registration
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Registration")
	}
	data.Role = user.RoleStudent
	if err := data.Validate(core.Validate); err != nil {
		return err
	}

	usr, err := api.svc.CreateStudent(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *studentApi) update(ctx echo.Context) error {
	var data user.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err := data.Validate(core.Validate); err != nil {
		return err
	}

	usr, err := api.svc.UpdateStudent(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *studentApi) destroy(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	id := ctx.Param("id")

	if err := api.svc.DeleteStudent(rctx, id); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	// progress cleanup is best-effort; the account is already gone
	if err := api.prgSvc.Delete(rctx, id); err != nil {
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "deleting student progress"))
	}
	return ctx.NoContent(http.StatusNoContent)
}
