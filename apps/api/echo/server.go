package echoapi

import (
	"context"
	"net/http"
	"os"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/maharatedu/platform/core"
	"github.com/maharatedu/platform/core/lesson"
	"github.com/maharatedu/platform/core/messaging"
	"github.com/maharatedu/platform/core/progress"
	"github.com/maharatedu/platform/core/settings"
	"github.com/maharatedu/platform/core/user"
	revokesvc "github.com/maharatedu/platform/services/revoke"
)

type (
	Options struct {
		Address        string
		DisableReqLogs bool

		UserSvc     *user.Service
		LessonSvc   *lesson.Service
		ProgressSvc *progress.Service
		SettingsSvc *settings.Service
		MessageSvc  *messaging.Service
		Revocations revokesvc.Store
		Logger      core.Logger

		// Shutdown receives SIGTERM when an unrecoverable error is caught.
		Shutdown chan<- os.Signal
	}

	Server interface {
		http.Handler
		Start()
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts: opts,
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(core.Conf.Debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.signalShutdown)
	s.app.Debug = core.Conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)
	revoked := revocationMiddleware(s.opts.Revocations)

	registerAuthAPI(v1, jwt, revoked, s.opts.UserSvc, s.opts.Revocations)
	registerStudentAPI(v1, jwt, revoked, s.opts.UserSvc, s.opts.ProgressSvc)
	registerLessonAPI(v1, jwt, revoked, s.opts.LessonSvc)
	registerProgressAPI(v1, jwt, revoked, s.opts.ProgressSvc, s.opts.LessonSvc, s.opts.UserSvc)
	registerSettingsAPI(v1, jwt, revoked, s.opts.SettingsSvc)
	registerMessageAPI(v1, jwt, revoked, s.opts.MessageSvc, s.opts.Logger)
	registerDashboardAPI(v1, jwt, revoked, s.opts)
}

func (s *server) signalShutdown() {
	if s.opts.Shutdown != nil {
		s.opts.Shutdown <- syscall.SIGTERM
	}
}

func (s *server) Start() {
	s.app.Logger.Fatal(s.app.Start(s.opts.Address))
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to the "+core.Conf.AppName+" API!")
}
