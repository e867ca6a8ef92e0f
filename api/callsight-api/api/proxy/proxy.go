// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package proxy_api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/callsightai/api/callsight-api/config"
	internal_analysis "github.com/callsightai/api/callsight-api/internal/analysis"
	internal_metrics "github.com/callsightai/api/callsight-api/internal/metrics"
	internal_tokencache "github.com/callsightai/api/callsight-api/internal/tokencache"
	internal_transcriber "github.com/callsightai/api/callsight-api/internal/transcriber"
	internal_type "github.com/callsightai/api/callsight-api/internal/type"
	"github.com/callsightai/pkg/clients/assemblyai"
	"github.com/callsightai/pkg/clients/neuralseek"
	"github.com/callsightai/pkg/commons"
	"github.com/callsightai/pkg/utils"
	"github.com/gin-gonic/gin"
)

// ProxyApi serves the browser-facing surface that keeps provider
// credentials on the server.
type ProxyApi struct {
	cfg         *config.AppConfig
	logger      commons.Logger
	assembly    assemblyai.Client
	neural      neuralseek.Client
	registry    *internal_analysis.Registry
	transcriber *internal_transcriber.WholeRecordingClient
	tokens      internal_tokencache.Cache
	metrics     *internal_metrics.Metrics
}

func NewProxyApi(
	cfg *config.AppConfig,
	logger commons.Logger,
	assembly assemblyai.Client,
	neural neuralseek.Client,
	registry *internal_analysis.Registry,
	tokens internal_tokencache.Cache,
	metrics *internal_metrics.Metrics,
) *ProxyApi {
	if registry == nil {
		registry = internal_analysis.DefaultRegistry()
	}
	if tokens == nil {
		tokens = internal_tokencache.NewNoopCache()
	}
	poll := utils.DefaultPollConfig()
	if cfg.Recorder.PollInterval > 0 {
		poll.Interval = cfg.Recorder.PollInterval
	}
	if cfg.Recorder.PollAttempts > 0 {
		poll.MaxAttempts = cfg.Recorder.PollAttempts
	}
	return &ProxyApi{
		cfg:      cfg,
		logger:   logger,
		assembly: assembly,
		neural:   neural,
		registry: registry,
		tokens:   tokens,
		metrics:  metrics,
		transcriber: internal_transcriber.NewWholeRecordingClient(logger, assembly,
			internal_transcriber.WithPollConfig(poll),
			internal_transcriber.WithJobObserver(metrics),
		),
	}
}

// MethodNotAllowed answers requests whose path exists under another verb.
func MethodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
}

func notConfigured(c *gin.Context, provider, key string) {
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   fmt.Sprintf("%s API key not configured", provider),
		"message": fmt.Sprintf("Please set %s in the service environment", key),
	})
}

func internalError(c *gin.Context, err error) {
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "Internal server error",
		"details": err.Error(),
	})
}

// assemblyError maps provider failures from the speech-to-text client.
func (p *ProxyApi) assemblyError(c *gin.Context, err error) {
	var apiErr *assemblyai.APIError
	var failed *internal_type.TranscriptionFailedError
	switch {
	case errors.Is(err, assemblyai.ErrMissingAPIKey):
		notConfigured(c, "AssemblyAI", "ASSEMBLYAI__API_KEY")
	case errors.As(err, &apiErr):
		c.JSON(apiErr.StatusCode, gin.H{
			"error":   fmt.Sprintf("AssemblyAI %s error: %d", apiErr.Operation, apiErr.StatusCode),
			"details": apiErr.Body,
		})
	case errors.As(err, &failed):
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Transcription failed",
			"details": failed.Detail,
		})
	case errors.Is(err, internal_type.ErrEmptyAudio):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Audio data is required"})
	case errors.Is(err, internal_type.ErrTranscriptionTimeout):
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Transcription timeout",
			"message": "Transcription took too long to complete",
		})
	default:
		p.logger.Errorf("assemblyai proxy failure: %v", err)
		internalError(c, err)
	}
}
