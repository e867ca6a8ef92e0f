// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package callsight_app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/callsightai/api/callsight-api/config"
	internal_callsession "github.com/callsightai/api/callsight-api/internal/callsession"
	internal_capture "github.com/callsightai/api/callsight-api/internal/capture"
	internal_type "github.com/callsightai/api/callsight-api/internal/type"
	"github.com/callsightai/pkg/commons"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDevices struct {
	mic    *internal_capture.MemoryStream
	system *internal_capture.MemoryStream
}

func newFakeDevices(systemAudio bool) *fakeDevices {
	system := internal_capture.NewMemoryStream(0, 1, 64)
	if systemAudio {
		system = internal_capture.NewMemoryStream(1, 1, 64)
	}
	return &fakeDevices{mic: internal_capture.NewMemoryStream(1, 0, 64), system: system}
}

func (f *fakeDevices) GetUserMedia(context.Context, internal_capture.AudioConstraints) (internal_type.MediaStream, error) {
	return f.mic, nil
}

func (f *fakeDevices) GetDisplayMedia(context.Context, internal_capture.DisplayConstraints) (internal_type.MediaStream, error) {
	return f.system, nil
}

func (f *fakeDevices) speak(frames int) {
	for i := 0; i < frames; i++ {
		frame := make(internal_type.AudioFrame, 160)
		for j := range frame {
			frame[j] = int16((i*160 + j) % 2000)
		}
		f.mic.Write(frame)
		f.system.Write(frame)
	}
}

type providers struct {
	uploads  atomic.Int32
	mu       sync.Mutex
	analyzed map[string]interface{}
}

func newTestApp(t *testing.T, mode string) (*App, *providers) {
	t.Helper()
	p := &providers{}
	reply := func(w http.ResponseWriter, body string) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/upload", func(w http.ResponseWriter, r *http.Request) {
		p.uploads.Add(1)
		reply(w, `{"upload_url":"https://cdn.test/u"}`)
	})
	mux.HandleFunc("/v2/transcript", func(w http.ResponseWriter, r *http.Request) {
		reply(w, `{"id":"job","status":"queued"}`)
	})
	mux.HandleFunc("/v2/transcript/job", func(w http.ResponseWriter, r *http.Request) {
		reply(w, `{"id":"job","status":"completed","text":"thanks for calling"}`)
	})
	mux.HandleFunc("/api/analyze", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		_ = json.NewDecoder(r.Body).Decode(&p.analyzed)
		p.mu.Unlock()
		reply(w, `{"summary":"customer called","keyPoints":[],"actionItems":[]}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := &config.AppConfig{Name: "callsight-test", Version: "test", ProxyURL: srv.URL}
	cfg.AssemblyAI.ApiKey = "aai"
	cfg.AssemblyAI.BaseURL = srv.URL
	cfg.Database.Driver = "sqlite"
	cfg.Database.DSN = filepath.Join(t.TempDir(), "callsight.db")
	cfg.Recorder.Mode = mode
	cfg.Recorder.SampleRate = 16000
	cfg.Recorder.ChunkInterval = time.Hour
	cfg.Recorder.PollInterval = time.Millisecond
	cfg.Recorder.PollAttempts = 5

	a, err := New(context.Background(), cfg, commons.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a, p
}

func TestWholeFileSession(t *testing.T) {
	a, p := newTestApp(t, "whole-file")
	devices := newFakeDevices(true)
	var states []internal_type.RecordingState
	var mu sync.Mutex
	session := a.NewRecordingSession(devices, SessionOptions{
		FeatureID:  "summarize",
		Recipients: []string{"ops@acme.test"},
		OnState: func(s internal_type.RecordingState) {
			mu.Lock()
			states = append(states, s)
			mu.Unlock()
		},
	})
	assert.Equal(t, internal_type.ModeWholeFile, session.Mode())

	ctx := context.Background()
	require.NoError(t, session.Start(ctx))
	devices.speak(20)
	require.Eventually(t, func() bool { return session.RecordedBytes() > 0 }, 2*time.Second, 5*time.Millisecond)

	result, err := session.Stop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "thanks for calling", result.Transcript)
	assert.JSONEq(t, `{"summary":"customer called","keyPoints":[],"actionItems":[]}`, string(result.Analysis))
	assert.True(t, result.Recording.HasSystemAudio)
	assert.Equal(t, int32(1), p.uploads.Load())

	p.mu.Lock()
	assert.Equal(t, "summarize_agent", p.analyzed["agent"])
	assert.Equal(t, "ops@acme.test", p.analyzed["emailRecipients"])
	p.mu.Unlock()

	stored, err := a.Sessions.Get(ctx, result.SessionID)
	require.NoError(t, err)
	assert.Equal(t, internal_callsession.StatusAnalyzed, stored.Status)
	assert.Equal(t, "thanks for calling", stored.Transcript)
	assert.Equal(t, "summarize", stored.FeatureID)

	mu.Lock()
	assert.Equal(t, []internal_type.RecordingState{internal_type.RecordingActive, internal_type.RecordingStopped}, states)
	mu.Unlock()
}

func TestChunkedSession(t *testing.T) {
	a, p := newTestApp(t, "chunked")
	devices := newFakeDevices(true)
	var events []internal_type.TranscriptEvent
	var mu sync.Mutex
	session := a.NewRecordingSession(devices, SessionOptions{
		OnTranscript: func(e internal_type.TranscriptEvent) {
			mu.Lock()
			events = append(events, e)
			mu.Unlock()
		},
	})
	assert.Equal(t, internal_type.ModeChunked, session.Mode())

	ctx := context.Background()
	require.NoError(t, session.Start(ctx))
	devices.speak(40)
	require.Eventually(t, func() bool { return session.RecordedBytes() > 0 }, 2*time.Second, 5*time.Millisecond)

	result, err := session.Stop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "thanks for calling", result.Transcript)
	assert.Nil(t, result.Analysis)
	assert.GreaterOrEqual(t, p.uploads.Load(), int32(1))

	mu.Lock()
	require.NotEmpty(t, events)
	assert.Equal(t, internal_type.SourceProvider, events[0].Source)
	mu.Unlock()

	stored, err := a.Sessions.Get(ctx, result.SessionID)
	require.NoError(t, err)
	assert.Equal(t, internal_callsession.StatusTranscribed, stored.Status)
}

func TestSessionRequiresSystemAudio(t *testing.T) {
	a, _ := newTestApp(t, "whole-file")

	devices := newFakeDevices(false)
	session := a.NewRecordingSession(devices, SessionOptions{})
	err := session.Start(context.Background())
	assert.ErrorIs(t, err, internal_type.ErrSystemAudioRequired)
	for _, tr := range devices.mic.Tracks() {
		assert.Equal(t, internal_type.TrackEnded, tr.ReadyState())
	}

	micOnly := a.NewRecordingSession(newFakeDevices(false), SessionOptions{AllowMicOnly: true})
	require.NoError(t, micOnly.Start(context.Background()))
	assert.Equal(t, internal_type.RecordingActive, micOnly.State())
	_, _ = micOnly.Stop(context.Background())
}

func TestSessionWithoutAudio(t *testing.T) {
	a, p := newTestApp(t, "whole-file")
	session := a.NewRecordingSession(newFakeDevices(true), SessionOptions{})
	ctx := context.Background()
	require.NoError(t, session.Start(ctx))

	result, err := session.Stop(ctx)
	assert.ErrorIs(t, err, internal_type.ErrEmptyAudio)
	require.NotNil(t, result)
	assert.Equal(t, int32(0), p.uploads.Load())

	stored, err := a.Sessions.Get(ctx, result.SessionID)
	require.NoError(t, err)
	assert.Equal(t, internal_callsession.StatusFailed, stored.Status)
}
