// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package neuralseek

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/callsightai/pkg/commons"
	"github.com/go-resty/resty/v2"
)

var ErrNotConfigured = errors.New("neuralseek: api key or url not configured")

type MaistroOptions struct {
	ReturnVariables         bool `json:"returnVariables"`
	ReturnVariablesExpanded bool `json:"returnVariablesExpanded"`
	Streaming               bool `json:"streaming"`
}

type MaistroRequest struct {
	Agent   string            `json:"agent"`
	Params  map[string]string `json:"params"`
	Options MaistroOptions    `json:"options"`
}

// NewMaistroRequest asks for every agent variable back in a single
// non-streamed response.
func NewMaistroRequest(agent string, params map[string]string) *MaistroRequest {
	if params == nil {
		params = map[string]string{}
	}
	return &MaistroRequest{
		Agent:  agent,
		Params: params,
		Options: MaistroOptions{
			ReturnVariables:         true,
			ReturnVariablesExpanded: true,
			Streaming:               false,
		},
	}
}

type APIError struct {
	StatusCode int    `json:"status"`
	Body       string `json:"body"`
}

func (e *APIError) Error() string {
	b, err := json.Marshal(e)
	if err != nil {
		return "undefined error"
	}
	return string(b)
}

type Client interface {
	// Maistro runs an agent and returns the provider's JSON body untouched.
	Maistro(ctx context.Context, req *MaistroRequest) (json.RawMessage, error)
}

type ClientOption func(*client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *client) { c.httpClient = hc }
}

type client struct {
	logger     commons.Logger
	apiKey     string
	apiURL     string
	httpClient *http.Client
	rest       *resty.Client
}

func NewClient(logger commons.Logger, apiKey, apiURL string, opts ...ClientOption) Client {
	c := &client{
		logger: logger,
		apiKey: apiKey,
		apiURL: strings.TrimRight(apiURL, "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient != nil {
		c.rest = resty.NewWithClient(c.httpClient)
	} else {
		c.rest = resty.New().SetTimeout(120 * time.Second)
	}
	c.rest.SetHeader("Content-Type", "application/json").
		SetHeader("apikey", apiKey)
	return c
}

func (c *client) Maistro(ctx context.Context, req *MaistroRequest) (json.RawMessage, error) {
	if strings.TrimSpace(c.apiKey) == "" || strings.TrimSpace(c.apiURL) == "" {
		return nil, ErrNotConfigured
	}
	start := time.Now()
	defer func() { c.logger.Benchmark("neuralseek.Maistro", time.Since(start)) }()

	c.logger.Debugw("calling neuralseek agent", "agent", req.Agent, "params", len(req.Params))
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(req).
		Post(c.apiURL + "/maistro")
	if err != nil {
		c.logger.Errorf("neuralseek request failed: %v", err)
		return nil, err
	}
	if resp.IsError() {
		c.logger.Warnw("neuralseek returned error", "status", resp.StatusCode())
		return nil, &APIError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	return json.RawMessage(resp.Body()), nil
}
