package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"qrious/config"
	"qrious/internal/cron"
	"qrious/internal/handler"
	"qrious/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type App struct {
	conf          *config.Configuration
	logger        *zap.Logger
	httpSrv       *http.Server
	cronSrv       *cron.Cron
	healthService *service.HealthService
	healthHandler *handler.HealthHandler
}

func newHttpServer(
	conf *config.Configuration,
	router *gin.Engine,
) *http.Server {
	return &http.Server{
		Addr:    ":" + strconv.FormatUint(uint64(conf.App.Port), 10),
		Handler: router,
	}
}

func newApp(
	conf *config.Configuration,
	logger *zap.Logger,
	httpSrv *http.Server,
	healthService *service.HealthService,
	healthHandler *handler.HealthHandler,
	cronSrv *cron.Cron,
) *App {
	return &App{
		conf:          conf,
		logger:        logger,
		httpSrv:       httpSrv,
		healthService: healthService,
		healthHandler: healthHandler,
		cronSrv:       cronSrv,
	}
}

func (a *App) Run() error {
	info := a.healthHandler.Info()
	a.logger.Info("app runtime info",
		zap.String("env", info.Env),
		zap.String("name", info.Name),
		zap.String("version", info.Version),
		zap.String("go_version", info.GoVersion),
		zap.Time("start_at", info.StartAt),
	)

	if err := a.cronSrv.Run(); err != nil {
		return err
	}
	a.logger.Info("cron server started")

	go func() {
		a.logger.Info("http server listening", zap.String("addr", a.httpSrv.Addr))
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("http server stopped unexpectedly", zap.Error(err))
		}
	}()

	a.healthService.SetReady(true)
	return nil
}

// Stop 先關 readiness 讓流量排空，再依序停 http 與 cron
func (a *App) Stop(ctx context.Context) error {
	a.healthService.SetReady(false)

	var errs []error
	if err := a.httpSrv.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	} else {
		a.logger.Info("http server has been stop")
	}

	if err := a.cronSrv.Stop(ctx); err != nil {
		errs = append(errs, err)
	} else {
		a.logger.Info("cron server has been stop")
	}

	return errors.Join(errs...)
}
