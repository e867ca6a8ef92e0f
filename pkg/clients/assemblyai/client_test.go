// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package assemblyai

import (
	"context"
	"encoding/json"
	"io"
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
		commons.Name("assemblyai-test"),
		commons.Path(t.TempDir()),
		commons.Level("debug"),
	)
	require.NoError(t, err)
	return logger
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// --- Upload / transcript lifecycle ---

func TestClient_UploadCreateAndGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("Authorization"))
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v2/upload":
			body, _ := io.ReadAll(r.Body)
			assert.Equal(t, []byte("RIFFdata"), body)
			assert.Equal(t, "application/octet-stream", r.Header.Get("Content-Type"))
			writeJSON(w, http.StatusOK, map[string]string{"upload_url": "https://cdn/u1"})
		case r.Method == http.MethodPost && r.URL.Path == "/v2/transcript":
			var req map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "https://cdn/u1", req["audio_url"])
			writeJSON(w, http.StatusOK, map[string]string{"id": "job-1", "status": "queued"})
		case r.Method == http.MethodGet && r.URL.Path == "/v2/transcript/job-1":
			writeJSON(w, http.StatusOK, map[string]string{"id": "job-1", "status": "completed", "text": "hello there"})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient(newTestLogger(t), "secret", srv.URL)
	ctx := context.Background()

	url, err := c.Upload(ctx, []byte("RIFFdata"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/u1", url)

	job, err := c.CreateTranscript(ctx, url)
	require.NoError(t, err)
	assert.Equal(t, "job-1", job.ID)
	assert.Equal(t, StatusQueued, job.Status)

	tr, err := c.GetTranscript(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, tr.Status)
	assert.Equal(t, "hello there", tr.Text)
}

func TestClient_TemporaryToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/realtime/token", r.URL.Path)
		var req map[string]int
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 3600, req["expires_in"])
		writeJSON(w, http.StatusOK, map[string]string{"token": "tmp-token"})
	}))
	defer srv.Close()

	token, err := NewClient(newTestLogger(t), "secret", srv.URL).CreateTemporaryToken(context.Background(), 3600)
	require.NoError(t, err)
	assert.Equal(t, "tmp-token", token)
}

// --- Errors ---

func TestClient_NonSuccessReturnsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "bad key"})
	}))
	defer srv.Close()

	_, err := NewClient(newTestLogger(t), "secret", srv.URL).Upload(context.Background(), []byte{1})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "upload", apiErr.Operation)
	assert.Contains(t, apiErr.Body, "bad key")
	assert.Contains(t, apiErr.Error(), "401")
}

func TestClient_MissingKey(t *testing.T) {
	_, err := NewClient(newTestLogger(t), "", "http://127.0.0.1:0").GetTranscript(context.Background(), "x")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestClient_UploadWithoutURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{})
	}))
	defer srv.Close()

	_, err := NewClient(newTestLogger(t), "secret", srv.URL).Upload(context.Background(), []byte{1})
	assert.Error(t, err)
}
