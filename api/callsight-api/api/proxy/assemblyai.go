// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package proxy_api

import (
	"context"
	"encoding/base64"
	"net/http"
	"time"

	internal_tokencache "github.com/callsightai/api/callsight-api/internal/tokencache"
	"github.com/gin-gonic/gin"
)

const (
	tokenLifetime = 3600
	// cached tokens expire before the provider does
	tokenCacheTTL = (tokenLifetime - 300) * time.Second
	tokenCacheKey = "assemblyai:realtime"
)

type transcribeRequest struct {
	Audio  string `json:"audio"`
	Format string `json:"format"`
}

// Token issues a temporary streaming token.
func (p *ProxyApi) Token(c *gin.Context) {
	token, err := internal_tokencache.Remember(c.Request.Context(), p.logger, p.tokens, tokenCacheKey, tokenCacheTTL,
		func(ctx context.Context) (string, error) {
			return p.assembly.CreateTemporaryToken(ctx, tokenLifetime)
		})
	if err != nil {
		p.assemblyError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// Transcribe runs one recorded blob through upload, submit and poll.
func (p *ProxyApi) Transcribe(c *gin.Context) {
	var req transcribeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Audio == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Audio data is required"})
		return
	}
	audio, err := base64.StdEncoding.DecodeString(req.Audio)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid audio data", "details": err.Error()})
		return
	}
	if len(audio) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Audio data is required"})
		return
	}
	p.logger.Debugf("transcribing %d bytes of %s audio", len(audio), req.Format)

	text, err := p.transcriber.Transcribe(c.Request.Context(), audio)
	if err != nil {
		p.assemblyError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": text, "transcript": text})
}
