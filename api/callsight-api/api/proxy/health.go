// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package proxy_api

import (
	"context"
	"net/http"
	"time"

	"github.com/callsightai/pkg/commons"
	"github.com/gin-gonic/gin"
)

// Pinger is anything readiness depends on.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthApi struct {
	logger     commons.Logger
	version    string
	dependency map[string]Pinger
}

func NewHealthApi(logger commons.Logger, version string, dependency map[string]Pinger) *HealthApi {
	return &HealthApi{logger: logger, version: version, dependency: dependency}
}

func (h *HealthApi) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": h.version})
}

// Readiness pings every dependency and fails if any is down.
func (h *HealthApi) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{}
	ready := true
	for name, dep := range h.dependency {
		if err := dep.Ping(ctx); err != nil {
			h.logger.Warnf("readiness check %s failed: %v", name, err)
			checks[name] = err.Error()
			ready = false
			continue
		}
		checks[name] = "ok"
	}
	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "checks": checks})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "checks": checks})
}
