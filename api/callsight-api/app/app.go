// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package callsight_app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	proxy_api "github.com/callsightai/api/callsight-api/api/proxy"
	"github.com/callsightai/api/callsight-api/config"
	internal_analysis "github.com/callsightai/api/callsight-api/internal/analysis"
	internal_callsession "github.com/callsightai/api/callsight-api/internal/callsession"
	internal_metrics "github.com/callsightai/api/callsight-api/internal/metrics"
	internal_tokencache "github.com/callsightai/api/callsight-api/internal/tokencache"
	callsight_routers "github.com/callsightai/api/callsight-api/router"
	"github.com/callsightai/pkg/clients/assemblyai"
	"github.com/callsightai/pkg/clients/neuralseek"
	"github.com/callsightai/pkg/commons"
	"github.com/callsightai/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// App holds every long lived dependency built from AppConfig.
type App struct {
	Config     *config.AppConfig
	Logger     commons.Logger
	DB         *gorm.DB
	Sessions   internal_callsession.Store
	Tokens     internal_tokencache.Cache
	Metrics    *internal_metrics.Metrics
	Registry   *internal_analysis.Registry
	AssemblyAI assemblyai.Client
	NeuralSeek neuralseek.Client
	Dispatcher *internal_analysis.Dispatcher

	redis *redis.Client
}

func New(ctx context.Context, cfg *config.AppConfig, logger commons.Logger) (*App, error) {
	registry, err := internal_analysis.LoadRegistry(cfg.FeaturesFile)
	if err != nil {
		return nil, err
	}
	db, err := internal_callsession.Open(ctx, logger, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:     cfg,
		Logger:     logger,
		DB:         db,
		Sessions:   internal_callsession.NewStore(db, logger),
		Tokens:     internal_tokencache.NewNoopCache(),
		Metrics:    internal_metrics.New(),
		Registry:   registry,
		AssemblyAI: assemblyai.NewClient(logger, cfg.AssemblyAI.ApiKey, cfg.AssemblyAI.BaseURL),
		NeuralSeek: neuralseek.NewClient(logger, cfg.NeuralSeek.ApiKey, cfg.NeuralSeek.ApiURL),
	}
	a.Dispatcher = internal_analysis.NewDispatcher(logger, registry, cfg.ProxyURL)

	if !utils.IsEmpty(cfg.Redis.Addr) {
		a.redis = internal_tokencache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		a.Tokens = internal_tokencache.NewRedisCache(a.redis, logger)
		logger.Infof("token cache using redis at %s", cfg.Redis.Addr)
	}
	return a, nil
}

// Engine builds the proxy router.
func (a *App) Engine() *gin.Engine {
	engine := callsight_routers.NewEngine(a.Config, a.Logger, a.Metrics)
	proxy := proxy_api.NewProxyApi(a.Config, a.Logger, a.AssemblyAI, a.NeuralSeek, a.Registry, a.Tokens, a.Metrics)
	callsight_routers.ProxyApiRoute(a.Config, engine, a.Logger, proxy)
	callsight_routers.HealthCheckRoutes(a.Config, engine, a.Logger, proxy_api.NewHealthApi(a.Logger, a.Config.Version, a.dependencies()))
	callsight_routers.MetricsRoute(engine, a.Metrics)
	return engine
}

func (a *App) dependencies() map[string]proxy_api.Pinger {
	deps := map[string]proxy_api.Pinger{"database": a.Sessions}
	if a.redis != nil {
		deps["redis"] = a.Tokens
	}
	return deps
}

// Serve runs the proxy until ctx is cancelled, then shuts down gracefully.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.Address(),
		Handler:           a.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Infof("%s %s listening on %s", a.Config.Name, a.Config.Version, srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	a.Logger.Info("shutting down proxy")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

func (a *App) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		errs = append(errs, sqlDB.Close())
	}
	if err := a.Logger.Sync(); err != nil {
		a.Logger.Debugf("logger sync: %v", err)
	}
	return errors.Join(errs...)
}
