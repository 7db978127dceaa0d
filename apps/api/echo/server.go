package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/hatua/core"
	"github.com/trezcool/hatua/core/catalog"
	"github.com/trezcool/hatua/core/leaderboard"
	"github.com/trezcool/hatua/core/progress"
	"github.com/trezcool/hatua/core/screentime"
	"github.com/trezcool/hatua/core/user"
)

type (
	Options struct {
		Address        string
		DisableReqLogs bool

		UserSvc        *user.Service
		CatalogSvc     *catalog.Service
		ProgressSvc    *progress.Service
		LeaderboardSvc *leaderboard.Service
		ScreentimeSvc  *screentime.Service

		Logger         core.Logger
		SignalShutdown func()
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
	appJWTConfig.SigningKey = []byte(core.Conf.SecretKey)

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(core.Conf.Debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.SignalShutdown)
	s.app.Debug = core.Conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)

	registerUserAPI(v1, jwt, s.opts.UserSvc)
	registerCatalogAPI(v1, jwt, s.opts.CatalogSvc)
	registerProgressAPI(v1, jwt, s.opts.ProgressSvc, s.opts.LeaderboardSvc)
	registerLeaderboardAPI(v1, jwt, s.opts.LeaderboardSvc)
	registerScreentimeAPI(v1, jwt, s.opts.ScreentimeSvc)
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
	return ctx.String(http.StatusOK, "Welcome to Hatua API!")
}
