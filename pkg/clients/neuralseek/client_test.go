// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package neuralseek

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/callsightai/pkg/commons"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T) commons.Logger {
	t.Helper()
	logger, err := commons.NewApplicationLogger(
		commons.Name("neuralseek-test"),
		commons.Path(t.TempDir()),
		commons.Level("debug"),
	)
	require.NoError(t, err)
	return logger
}

func TestClient_MaistroSendsAgentRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/maistro", r.URL.Path)
		assert.Equal(t, "ns-key", r.Header.Get("apikey"))

		var req MaistroRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "summarize_agent", req.Agent)
		assert.Equal(t, "hello", req.Params["callTranscript"])
		assert.True(t, req.Options.ReturnVariables)
		assert.True(t, req.Options.ReturnVariablesExpanded)
		assert.False(t, req.Options.Streaming)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"answer":"ok","variables":{"emailBody":"hi"}}`))
	}))
	defer srv.Close()

	c := NewClient(newTestLogger(t), "ns-key", srv.URL+"/")
	raw, err := c.Maistro(context.Background(), NewMaistroRequest("summarize_agent", map[string]string{"callTranscript": "hello"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"answer":"ok","variables":{"emailBody":"hi"}}`, string(raw))
}

func TestClient_MaistroErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	_, err := NewClient(newTestLogger(t), "ns-key", srv.URL).Maistro(context.Background(), NewMaistroRequest("a", nil))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "upstream down", apiErr.Body)
}

func TestClient_MaistroNotConfigured(t *testing.T) {
	_, err := NewClient(newTestLogger(t), "", "").Maistro(context.Background(), NewMaistroRequest("a", nil))
	assert.ErrorIs(t, err, ErrNotConfigured)
}

// --- Response parsing ---

func TestParseCallAnalysis(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		summary     string
		keyPoints   int
		actionItems int
		emailBody   string
	}{
		{
			name:        "string encoded analysis",
			raw:         `{"variables":{"callAnalysis":"{\"summary\":\"S\",\"keyPoints\":[\"a\",\"b\"],\"actionItems\":[\"x\"]}","emailBody":"E"}}`,
			summary:     "S",
			keyPoints:   2,
			actionItems: 1,
			emailBody:   "E",
		},
		{
			name:      "object analysis",
			raw:       `{"variables":{"callAnalysis":{"summary":"O","keyPoints":["k"]}}}`,
			summary:   "O",
			keyPoints: 1,
		},
		{
			name:    "plain text analysis",
			raw:     `{"variables":{"callAnalysis":"not json"}}`,
			summary: "not json",
		},
		{
			name:    "answer only",
			raw:     `{"answer":"fallback"}`,
			summary: "fallback",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := ParseCallAnalysis(json.RawMessage(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.summary, out.Summary)
			assert.Len(t, out.KeyPoints, tt.keyPoints)
			assert.Len(t, out.ActionItems, tt.actionItems)
			assert.NotNil(t, out.KeyPoints)
			assert.NotNil(t, out.ActionItems)
			assert.Equal(t, tt.emailBody, out.EmailBody)
		})
	}
}

func TestParseCallAnalysis_InvalidJSON(t *testing.T) {
	_, err := ParseCallAnalysis(json.RawMessage("{"))
	assert.Error(t, err)
}
