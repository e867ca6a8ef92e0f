// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package assemblyai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/callsightai/pkg/commons"
	"github.com/go-resty/resty/v2"
)

const DefaultBaseURL = "https://api.assemblyai.com"

var ErrMissingAPIKey = errors.New("assemblyai: api key not configured")

type TranscriptStatus string

const (
	StatusQueued     TranscriptStatus = "queued"
	StatusProcessing TranscriptStatus = "processing"
	StatusCompleted  TranscriptStatus = "completed"
	StatusError      TranscriptStatus = "error"
)

type Transcript struct {
	ID     string           `json:"id"`
	Status TranscriptStatus `json:"status"`
	Text   string           `json:"text"`
	Error  string           `json:"error,omitempty"`
}

// APIError carries a non-2xx provider response.
type APIError struct {
	Operation  string `json:"operation"`
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

// Client is the subset of the AssemblyAI REST surface used for recorded and
// streaming transcription.
type Client interface {
	Upload(ctx context.Context, audio []byte) (string, error)
	CreateTranscript(ctx context.Context, audioURL string) (*Transcript, error)
	GetTranscript(ctx context.Context, id string) (*Transcript, error)
	CreateTemporaryToken(ctx context.Context, expiresIn int) (string, error)
}

type ClientOption func(*client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *client) { c.httpClient = hc }
}

func WithTimeout(d time.Duration) ClientOption {
	return func(c *client) { c.timeout = d }
}

type client struct {
	logger     commons.Logger
	apiKey     string
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	rest       *resty.Client
}

func NewClient(logger commons.Logger, apiKey, baseURL string, opts ...ClientOption) Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	c := &client{
		logger:  logger,
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: 60 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient != nil {
		c.rest = resty.NewWithClient(c.httpClient)
	} else {
		c.rest = resty.New()
	}
	c.rest.SetBaseURL(c.baseURL).
		SetTimeout(c.timeout).
		SetHeader("Authorization", apiKey)
	return c
}

func (c *client) Upload(ctx context.Context, audio []byte) (string, error) {
	var out struct {
		UploadURL string `json:"upload_url"`
	}
	if err := c.do(ctx, "upload", http.MethodPost, "/v2/upload", "application/octet-stream", audio, &out); err != nil {
		return "", err
	}
	if out.UploadURL == "" {
		return "", fmt.Errorf("assemblyai: upload returned no url")
	}
	c.logger.Debugf("assemblyai upload complete (%d bytes)", len(audio))
	return out.UploadURL, nil
}

func (c *client) CreateTranscript(ctx context.Context, audioURL string) (*Transcript, error) {
	var out Transcript
	body := map[string]interface{}{"audio_url": audioURL}
	if err := c.do(ctx, "transcript", http.MethodPost, "/v2/transcript", "application/json", body, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, fmt.Errorf("assemblyai: transcript job returned no id")
	}
	return &out, nil
}

func (c *client) GetTranscript(ctx context.Context, id string) (*Transcript, error) {
	var out Transcript
	if err := c.do(ctx, "status", http.MethodGet, "/v2/transcript/"+id, "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) CreateTemporaryToken(ctx context.Context, expiresIn int) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	body := map[string]interface{}{"expires_in": expiresIn}
	if err := c.do(ctx, "token", http.MethodPost, "/v2/realtime/token", "application/json", body, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}

func (c *client) do(ctx context.Context, op, method, path, contentType string, body, result interface{}) error {
	if strings.TrimSpace(c.apiKey) == "" {
		return ErrMissingAPIKey
	}
	start := time.Now()
	defer func() { c.logger.Benchmark("assemblyai."+op, time.Since(start)) }()

	req := c.rest.R().SetContext(ctx).SetResult(result)
	if contentType != "" {
		req.SetHeader("Content-Type", contentType)
	}
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		c.logger.Errorf("assemblyai %s request failed: %v", op, err)
		return err
	}
	if resp.IsError() {
		c.logger.Warnw("assemblyai returned error", "operation", op, "status", resp.StatusCode())
		return &APIError{Operation: op, StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	return nil
}
