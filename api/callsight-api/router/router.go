// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package callsight_routers

import (
	"time"

	proxy_api "github.com/callsightai/api/callsight-api/api/proxy"
	"github.com/callsightai/api/callsight-api/config"
	internal_metrics "github.com/callsightai/api/callsight-api/internal/metrics"
	"github.com/callsightai/pkg/commons"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewEngine builds the gin engine with recovery, request logging, CORS and
// request metrics installed.
func NewEngine(cfg *config.AppConfig, logger commons.Logger, metrics *internal_metrics.Metrics) *gin.Engine {
	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.NoMethod(proxy_api.MethodNotAllowed)
	engine.Use(gin.Recovery(), requestLogger(logger), metrics.Middleware())

	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.CorsOrigins) == 0 || (len(cfg.CorsOrigins) == 1 && cfg.CorsOrigins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.CorsOrigins
	}
	engine.Use(cors.New(corsConfig))
	return engine
}

func ProxyApiRoute(cfg *config.AppConfig, engine *gin.Engine, logger commons.Logger, api *proxy_api.ProxyApi) {
	logger.Info("Proxy routes added to engine.")
	apiv1 := engine.Group("/api")
	{
		apiv1.POST("/analyze", api.Analyze)
		apiv1.GET("/features", api.Features)
		apiv1.POST("/assemblyai-token", api.Token)
		apiv1.POST("/assemblyai-transcribe", api.Transcribe)
	}
}

func HealthCheckRoutes(cfg *config.AppConfig, engine *gin.Engine, logger commons.Logger, health *proxy_api.HealthApi) {
	logger.Info("Health check routes added to engine.")
	hc := engine.Group("")
	{
		hc.GET("/health", health.Health)
		hc.GET("/healthz/", health.Health)
		hc.GET("/readiness/", health.Readiness)
	}
}

func MetricsRoute(engine *gin.Engine, metrics *internal_metrics.Metrics) {
	if metrics == nil {
		return
	}
	engine.GET("/metrics", gin.WrapH(metrics.Handler()))
}

func requestLogger(logger commons.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debugw("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		)
	}
}
