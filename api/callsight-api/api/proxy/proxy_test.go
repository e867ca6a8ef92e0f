// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package proxy_api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/callsightai/api/callsight-api/config"
	internal_metrics "github.com/callsightai/api/callsight-api/internal/metrics"
	internal_recorder "github.com/callsightai/api/callsight-api/internal/recorder"
	internal_tokencache "github.com/callsightai/api/callsight-api/internal/tokencache"
	internal_type "github.com/callsightai/api/callsight-api/internal/type"
	"github.com/callsightai/pkg/clients/assemblyai"
	"github.com/callsightai/pkg/clients/neuralseek"
	"github.com/callsightai/pkg/commons"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAssembly struct {
	status      string
	tokenCalls  atomic.Int32
	uploadCalls atomic.Int32
	statusCalls atomic.Int32
	tokenStatus int
}

func (f *fakeAssembly) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	reply := func(w http.ResponseWriter, status int, body string) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
	mux.HandleFunc("/v2/upload", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "aai-key", r.Header.Get("Authorization"))
		f.uploadCalls.Add(1)
		reply(w, http.StatusOK, `{"upload_url":"https://cdn.test/a"}`)
	})
	mux.HandleFunc("/v2/transcript", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, `{"id":"t1","status":"queued"}`)
	})
	mux.HandleFunc("/v2/transcript/t1", func(w http.ResponseWriter, r *http.Request) {
		f.statusCalls.Add(1)
		switch f.status {
		case "error":
			reply(w, http.StatusOK, `{"id":"t1","status":"error","error":"audio too short"}`)
		case "completed":
			reply(w, http.StatusOK, `{"id":"t1","status":"completed","text":"hello from the call"}`)
		default:
			reply(w, http.StatusOK, `{"id":"t1","status":"processing"}`)
		}
	})
	mux.HandleFunc("/v2/realtime/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		if f.tokenStatus != 0 {
			reply(w, f.tokenStatus, `{"error":"bad key"}`)
			return
		}
		reply(w, http.StatusOK, `{"token":"temp-token"}`)
	})
	return mux
}

type proxyFixture struct {
	engine   *gin.Engine
	assembly *fakeAssembly
	neural   *httptest.Server
	maistro  map[string]interface{}
}

func newFixture(t *testing.T, neuralStatus int, neuralReply string, tokens internal_tokencache.Cache, opts ...func(*fakeAssembly)) *proxyFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := commons.NewNopLogger()
	f := &proxyFixture{assembly: &fakeAssembly{status: "completed"}}
	for _, opt := range opts {
		opt(f.assembly)
	}

	aai := httptest.NewServer(f.assembly.handler(t))
	t.Cleanup(aai.Close)
	f.neural = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/maistro", r.URL.Path)
		assert.Equal(t, "ns-key", r.Header.Get("apikey"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&f.maistro))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(neuralStatus)
		_, _ = w.Write([]byte(neuralReply))
	}))
	t.Cleanup(f.neural.Close)

	cfg := &config.AppConfig{}
	cfg.NeuralSeek.Agent = "default_agent"
	cfg.Recorder.PollInterval = time.Millisecond
	cfg.Recorder.PollAttempts = 3

	api := NewProxyApi(cfg, logger,
		assemblyai.NewClient(logger, "aai-key", aai.URL),
		neuralseek.NewClient(logger, "ns-key", f.neural.URL),
		nil, tokens, internal_metrics.New(),
	)
	f.engine = gin.New()
	f.engine.HandleMethodNotAllowed = true
	f.engine.NoMethod(MethodNotAllowed)
	f.engine.POST("/api/analyze", api.Analyze)
	f.engine.GET("/api/features", api.Features)
	f.engine.POST("/api/assemblyai-token", api.Token)
	f.engine.POST("/api/assemblyai-transcribe", api.Transcribe)
	return f
}

func (f *proxyFixture) do(method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	out := map[string]interface{}{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

const maistroReply = `{
	"answer": "plain answer",
	"variables": {
		"callAnalysis": "{\"summary\":\"Renewal agreed\",\"keyPoints\":[\"price\"],\"actionItems\":[\"send contract\"]}",
		"emailBody": "Hi team",
		"emailSubject": "Follow up",
		"emailTo": "a@x.io"
	}
}`

func TestAnalyze(t *testing.T) {
	f := newFixture(t, http.StatusOK, maistroReply, nil)

	w, out := f.do(http.MethodPost, "/api/analyze", gin.H{
		"transcript":      "we agreed to renew",
		"emailRecipients": "a@x.io",
		"featureId":       "generate-email",
		"featurePrompt":   "write it",
		"agent":           "pehla_agent",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Renewal agreed", out["summary"])
	assert.Equal(t, []interface{}{"price"}, out["keyPoints"])
	assert.Equal(t, []interface{}{"send contract"}, out["actionItems"])
	assert.Equal(t, "Hi team", out["emailBody"])
	assert.Equal(t, "Follow up", out["emailSubject"])
	assert.Equal(t, "a@x.io", out["emailTo"])
	assert.Equal(t, "plain answer", out["text"])
	assert.NotNil(t, out["rawResponse"])

	assert.Equal(t, "pehla_agent", f.maistro["agent"])
	params := f.maistro["params"].(map[string]interface{})
	assert.Equal(t, "we agreed to renew", params["callTranscript"])
	assert.Equal(t, "generate-email", params["featureId"])
	assert.Equal(t, "write it", params["featurePrompt"])
	options := f.maistro["options"].(map[string]interface{})
	assert.Equal(t, false, options["streaming"])
}

func TestAnalyzeDefaultsAgent(t *testing.T) {
	f := newFixture(t, http.StatusOK, `{"answer":"ok"}`, nil)
	w, out := f.do(http.MethodPost, "/api/analyze", gin.H{"transcript": "hello"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "default_agent", f.maistro["agent"])
	assert.Equal(t, "ok", out["summary"])
	assert.Equal(t, []interface{}{}, out["keyPoints"])
}

func TestAnalyzeValidation(t *testing.T) {
	f := newFixture(t, http.StatusOK, `{}`, nil)

	w, out := f.do(http.MethodPost, "/api/analyze", gin.H{"featureId": "summarize"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Transcript is required", out["error"])

	w, _ = f.do(http.MethodPost, "/api/analyze", gin.H{"featureId": "tax-finder", "featurePrompt": "1 Main St"})
	assert.Equal(t, http.StatusOK, w.Code)

	w, out = f.do(http.MethodPost, "/api/analyze", gin.H{"featureId": "astrology", "transcript": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, out["error"], "Unknown feature")

	w, out = f.do(http.MethodGet, "/api/analyze", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "Method not allowed", out["error"])
}

func TestAnalyzeProviderError(t *testing.T) {
	f := newFixture(t, http.StatusUnauthorized, `{"message":"bad key"}`, nil)
	w, out := f.do(http.MethodPost, "/api/analyze", gin.H{"transcript": "hello"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "NeuralSeek API error: 401", out["error"])
	assert.Contains(t, out["details"], "bad key")
}

func TestFeatures(t *testing.T) {
	f := newFixture(t, http.StatusOK, `{}`, nil)
	w, out := f.do(http.MethodGet, "/api/features", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, out["features"], 11)
}

func TestTokenIsCached(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := internal_tokencache.NewRedisCache(client, commons.NewNopLogger())
	f := newFixture(t, http.StatusOK, `{}`, cache)
	key := "callsight:token:" + tokenCacheKey

	mock.ExpectGet(key).RedisNil()
	mock.ExpectSet(key, "temp-token", tokenCacheTTL).SetVal("OK")
	w, out := f.do(http.MethodPost, "/api/assemblyai-token", gin.H{})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "temp-token", out["token"])

	mock.ExpectGet(key).SetVal("temp-token")
	w, out = f.do(http.MethodPost, "/api/assemblyai-token", gin.H{})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "temp-token", out["token"])

	assert.Equal(t, int32(1), f.assembly.tokenCalls.Load())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenProviderError(t *testing.T) {
	f := newFixture(t, http.StatusOK, `{}`, nil, func(a *fakeAssembly) { a.tokenStatus = http.StatusForbidden })
	w, out := f.do(http.MethodPost, "/api/assemblyai-token", gin.H{})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "AssemblyAI token error: 403", out["error"])
}

func TestTokenNotConfigured(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := commons.NewNopLogger()
	api := NewProxyApi(&config.AppConfig{}, logger, assemblyai.NewClient(logger, "", ""), neuralseek.NewClient(logger, "", ""), nil, nil, nil)
	engine := gin.New()
	engine.POST("/api/assemblyai-token", api.Token)
	engine.POST("/api/analyze", api.Analyze)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/assemblyai-token", bytes.NewBufferString("{}")))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "AssemblyAI API key not configured")

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/analyze", bytes.NewBufferString(`{"transcript":"x"}`)))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "NeuralSeek API key not configured")
}

func TestTranscribe(t *testing.T) {
	audio := base64.StdEncoding.EncodeToString([]byte("RIFF....WAVEfmt "))

	t.Run("completed", func(t *testing.T) {
		f := newFixture(t, http.StatusOK, `{}`, nil)
		w, out := f.do(http.MethodPost, "/api/assemblyai-transcribe", gin.H{"audio": audio, "format": "wav"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "hello from the call", out["text"])
		assert.Equal(t, "hello from the call", out["transcript"])
		assert.Equal(t, int32(1), f.assembly.statusCalls.Load())
	})

	t.Run("provider error", func(t *testing.T) {
		f := newFixture(t, http.StatusOK, `{}`, nil, func(a *fakeAssembly) { a.status = "error" })
		w, out := f.do(http.MethodPost, "/api/assemblyai-transcribe", gin.H{"audio": audio})
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Transcription failed", out["error"])
		assert.Equal(t, "audio too short", out["details"])
	})

	t.Run("timeout", func(t *testing.T) {
		f := newFixture(t, http.StatusOK, `{}`, nil, func(a *fakeAssembly) { a.status = "processing" })
		w, out := f.do(http.MethodPost, "/api/assemblyai-transcribe", gin.H{"audio": audio})
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Transcription timeout", out["error"])
		assert.Equal(t, int32(3), f.assembly.statusCalls.Load())
	})

	t.Run("bad input", func(t *testing.T) {
		f := newFixture(t, http.StatusOK, `{}`, nil)
		w, out := f.do(http.MethodPost, "/api/assemblyai-transcribe", gin.H{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Audio data is required", out["error"])

		w, out = f.do(http.MethodPost, "/api/assemblyai-transcribe", gin.H{"audio": "%%%"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid audio data", out["error"])
	})

	t.Run("wav without samples", func(t *testing.T) {
		f := newFixture(t, http.StatusOK, `{}`, nil)
		empty := internal_recorder.EncodeWAV(nil, internal_type.DefaultAudioConfig)
		w, out := f.do(http.MethodPost, "/api/assemblyai-transcribe", gin.H{
			"audio":  base64.StdEncoding.EncodeToString(empty),
			"format": "wav",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Audio data is required", out["error"])
		assert.Zero(t, f.assembly.uploadCalls.Load())
	})
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestHealthAndReadiness(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	ok := NewHealthApi(commons.NewNopLogger(), "1.2.3", map[string]Pinger{"database": pinger{}})
	down := NewHealthApi(commons.NewNopLogger(), "1.2.3", map[string]Pinger{"database": pinger{}, "redis": pinger{errors.New("refused")}})
	engine.GET("/health", ok.Health)
	engine.GET("/readiness/", ok.Readiness)
	engine.GET("/down/", down.Readiness)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","version":"1.2.3"}`, w.Body.String())

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readiness/", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/down/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "refused")
}
