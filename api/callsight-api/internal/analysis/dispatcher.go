// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	internal_type "github.com/callsightai/api/callsight-api/internal/type"
	"github.com/callsightai/pkg/commons"
	"github.com/callsightai/pkg/utils"
	"github.com/go-resty/resty/v2"
)

const analyzePath = "/api/analyze"

// Request is one analysis call. Prompt and Agent default to the feature's
// registered values when empty.
type Request struct {
	Transcript string
	FeatureID  string
	Prompt     string
	Agent      string
	Recipients []string
}

type analyzeBody struct {
	Transcript      string `json:"transcript"`
	EmailRecipients string `json:"emailRecipients,omitempty"`
	FeatureID       string `json:"featureId,omitempty"`
	FeaturePrompt   string `json:"featurePrompt,omitempty"`
	Agent           string `json:"agent,omitempty"`
}

type DispatcherOption func(*Dispatcher)

func WithHTTPClient(hc *http.Client) DispatcherOption {
	return func(d *Dispatcher) { d.rest = resty.NewWithClient(hc) }
}

func WithTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) { d.rest.SetTimeout(timeout) }
}

type Dispatcher struct {
	logger   commons.Logger
	registry *Registry
	proxyURL string
	rest     *resty.Client
}

func NewDispatcher(logger commons.Logger, registry *Registry, proxyURL string, opts ...DispatcherOption) *Dispatcher {
	if registry == nil {
		registry = DefaultRegistry()
	}
	d := &Dispatcher{
		logger:   logger,
		registry: registry,
		proxyURL: strings.TrimRight(proxyURL, "/"),
		rest:     resty.New().SetTimeout(120 * time.Second),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.rest.SetHeader("Content-Type", "application/json")
	return d
}

func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Analyze sends the transcript to the proxy and returns the response body
// without interpreting it.
func (d *Dispatcher) Analyze(ctx context.Context, req Request) (json.RawMessage, error) {
	feature, ok := d.registry.Lookup(req.FeatureID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", internal_type.ErrUnknownFeature, req.FeatureID)
	}
	if utils.IsEmpty(req.Transcript) && !feature.TranscriptOptional {
		return nil, internal_type.ErrEmptyTranscript
	}

	body := analyzeBody{
		Transcript:      req.Transcript,
		EmailRecipients: utils.JoinNonEmpty(", ", req.Recipients...),
		FeatureID:       feature.ID,
		FeaturePrompt:   req.Prompt,
		Agent:           req.Agent,
	}
	if utils.IsEmpty(body.FeaturePrompt) {
		body.FeaturePrompt = feature.Prompt
	}
	if utils.IsEmpty(body.Agent) {
		body.Agent = feature.Agent
	}

	start := time.Now()
	defer func() { d.logger.Benchmark("analysis.Analyze", time.Since(start)) }()

	resp, err := d.rest.R().
		SetContext(ctx).
		SetBody(body).
		Post(d.proxyURL + analyzePath)
	if err != nil {
		d.logger.Errorf("analysis request for %s failed: %v", feature.ID, err)
		return nil, &internal_type.NetworkError{Err: err}
	}
	if resp.IsError() {
		d.logger.Warnw("analysis returned error", "feature", feature.ID, "status", resp.StatusCode())
		return nil, &internal_type.ProviderError{Status: resp.StatusCode(), Body: resp.String()}
	}
	d.logger.Infow("analysis completed", "feature", feature.ID, "agent", body.Agent, "bytes", len(resp.Body()))
	return json.RawMessage(resp.Body()), nil
}
