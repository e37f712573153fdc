package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"syscall"

	"github.com/bassista/go_cast/internal/api/middleware"
	route "github.com/bassista/go_cast/internal/api/route"
	appctx "github.com/bassista/go_cast/internal/app"
	"github.com/bassista/go_cast/internal/config"
	"github.com/bassista/go_cast/internal/logger"
	"github.com/bassista/go_cast/internal/notify"
	"github.com/bassista/go_cast/internal/remote"
	"github.com/bassista/go_cast/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/enrichman/httpgrace"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithComponent("main").Fatalf("configuration error: %v", err)
	}

	logLevel := logger.ApplyLevel(cfg.Misc.LogLevel)
	logger.WithComponent("main").Debugf("log level set to: %s", logLevel.String())
	logger.WithComponent("main").Infof("Gateway will run on port %d against %s", cfg.Server.Port, cfg.API.BaseURL)

	repo, err := repository.NewJSONRepository(cfg.Data.SessionFilePath)
	if err != nil {
		logger.WithComponent("main").Fatalf("cannot init session repository: %v", err)
	}
	session, err := repo.Load()
	if err != nil {
		logger.WithComponent("main").Fatalf("cannot load session file: %v", err)
	}
	if session.LoggedIn() {
		logger.WithComponent("main").Infof("connected wallet: %s", session.Addr)
	}

	api := remote.New(remote.Config{BaseURL: cfg.API.BaseURL, Timeout: cfg.API.Timeout})

	app, err := appctx.New(cfg, repo, api, notify.NewSink())
	if err != nil {
		logger.WithComponent("main").Fatalf("cannot init app: %v", err)
	}
	defer app.Shutdown()

	var reporter notify.HoneybadgerReporter
	if hb := notify.NewHoneybadgerClient(os.Getenv("HONEYBADGER_API_KEY"), os.Getenv("GO_ENV")); hb != nil {
		reporter = hb
		app.Subscribe(notify.HoneybadgerSubscriber(hb, logger.WithComponent("honeybadger")))
		defer hb.Flush()
	}

	if err := app.StartWatchers(); err != nil {
		logger.WithComponent("main").Errorf("session changes will not be picked up: %v", err)
	}

	gin.SetMode(cfg.Misc.GinMode)
	gin.DefaultWriter = logger.Logger.Writer()
	gin.DefaultErrorWriter = logger.Logger.Writer()

	r := newEngine(app, reporter, logger.Logger)
	srv := createGraceHttpServer(app.BaseCtx, "gateway", app.Config.Server, r)

	if err := srv.ListenAndServe(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithComponent("main").Fatal(err)
	}
}

// newEngine builds the gateway router with its middleware chain.
func newEngine(app *appctx.App, reporter notify.HoneybadgerReporter, logger *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(gin.Logger())
	r.Use(middleware.HoneybadgerMiddleware(reporter, logger))
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware(app.Config.Server.CORSAllowedOrigins))

	route.SetupRoutes(r, app)
	return r
}

func createGraceHttpServer(ctx context.Context, name string, serverConfig config.ServerConfig, r *gin.Engine) *httpgrace.Server {
	slogLogger := slog.New(slog.NewTextHandler(logger.Logger.Writer(), nil))

	srv := httpgrace.NewServer(r,
		httpgrace.WithTimeout(serverConfig.ShutDownTimeout),
		httpgrace.WithSignals(syscall.SIGTERM, syscall.SIGINT),
		httpgrace.WithLogger(slogLogger),
		httpgrace.WithBeforeShutdown(func() {
			logger.WithComponent("http").Infof("Shutting down %s server....", name)
		}),
		httpgrace.WithServerOptions(
			httpgrace.WithReadTimeout(serverConfig.ReadTimeout),
			httpgrace.WithWriteTimeout(serverConfig.WriteTimeout),
			httpgrace.WithIdleTimeout(serverConfig.IdleTimeout),
			func(srv *http.Server) {
				srv.BaseContext = func(_ net.Listener) context.Context {
					return ctx
				}
			},
			func(srv *http.Server) {
				srv.ErrorLog = log.New(logger.Logger.Writer(), fmt.Sprintf("[%s] ", name), log.LstdFlags)
			},
		),
	)
	return srv
}
