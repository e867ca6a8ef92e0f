// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package proxy_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/callsightai/pkg/clients/neuralseek"
	"github.com/callsightai/pkg/utils"
	"github.com/gin-gonic/gin"
)

type analyzeRequest struct {
	Transcript      string `json:"transcript"`
	EmailRecipients string `json:"emailRecipients"`
	FeatureID       string `json:"featureId"`
	FeaturePrompt   string `json:"featurePrompt"`
	Agent           string `json:"agent"`
}

type analyzeResponse struct {
	Summary      string          `json:"summary"`
	KeyPoints    []interface{}   `json:"keyPoints"`
	ActionItems  []interface{}   `json:"actionItems"`
	EmailBody    string          `json:"emailBody"`
	EmailSubject string          `json:"emailSubject,omitempty"`
	EmailTo      string          `json:"emailTo,omitempty"`
	RawResponse  json.RawMessage `json:"rawResponse"`
	Text         string          `json:"text,omitempty"`
}

// Analyze runs the requested agent over the transcript.
func (p *ProxyApi) Analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if req.FeatureID != "" {
		if _, ok := p.registry.Lookup(req.FeatureID); !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Unknown feature: %s", req.FeatureID)})
			return
		}
	}
	if utils.IsEmpty(req.Transcript) && p.registry.RequiresTranscript(req.FeatureID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Transcript is required"})
		return
	}

	agent := req.Agent
	if utils.IsEmpty(agent) {
		agent = p.cfg.NeuralSeek.Agent
	}
	params := map[string]string{
		"callTranscript":  req.Transcript,
		"emailRecipients": req.EmailRecipients,
	}
	if req.FeatureID != "" {
		params["featureId"] = req.FeatureID
	}
	if req.FeaturePrompt != "" {
		params["featurePrompt"] = req.FeaturePrompt
	}

	raw, err := p.neural.Maistro(c.Request.Context(), neuralseek.NewMaistroRequest(agent, params))
	p.metrics.ObserveAnalysis(req.FeatureID, err)
	if err != nil {
		var apiErr *neuralseek.APIError
		switch {
		case errors.Is(err, neuralseek.ErrNotConfigured):
			notConfigured(c, "NeuralSeek", "NEURALSEEK__API_KEY")
		case errors.As(err, &apiErr):
			c.JSON(apiErr.StatusCode, gin.H{
				"error":   fmt.Sprintf("NeuralSeek API error: %d", apiErr.StatusCode),
				"details": apiErr.Body,
			})
		default:
			p.logger.Errorf("analyze failed for feature %q: %v", req.FeatureID, err)
			internalError(c, err)
		}
		return
	}

	analysis, err := neuralseek.ParseCallAnalysis(raw)
	if err != nil {
		p.logger.Warnf("unparseable neuralseek response: %v", err)
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, analyzeResponse{
		Summary:      analysis.Summary,
		KeyPoints:    analysis.KeyPoints,
		ActionItems:  analysis.ActionItems,
		EmailBody:    analysis.EmailBody,
		EmailSubject: analysis.EmailSubject,
		EmailTo:      analysis.EmailTo,
		RawResponse:  raw,
		Text:         analysis.Answer,
	})
}

// Features lists the analysis features the proxy accepts.
func (p *ProxyApi) Features(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"features": p.registry.Features()})
}
