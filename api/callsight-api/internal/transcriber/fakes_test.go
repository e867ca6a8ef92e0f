// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_transcriber

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	internal_type "github.com/callsightai/api/callsight-api/internal/type"
	"github.com/callsightai/pkg/clients/assemblyai"
	"github.com/callsightai/pkg/commons"
	"github.com/callsightai/pkg/utils"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T) commons.Logger {
	t.Helper()
	logger, err := commons.NewApplicationLogger(
		commons.Name("transcriber-test"),
		commons.Path(t.TempDir()),
		commons.Level("debug"),
	)
	require.NoError(t, err)
	return logger
}

func fastPoll(attempts int) utils.PollConfig {
	return utils.PollConfig{Interval: time.Millisecond, MaxAttempts: attempts}
}

// fakeProvider hands out job-1, job-2, ... in upload order. Job n completes
// with texts[n-1] once it has been polled completeOn times.
type fakeProvider struct {
	mu          sync.Mutex
	uploads     [][]byte
	statusCalls map[string]int
	completeOn  int
	texts       []string
	failJobs    map[string]string
	held        map[string]chan struct{}
	uploadErr   error
}

func newFakeProvider(completeOn int, texts ...string) *fakeProvider {
	return &fakeProvider{
		statusCalls: map[string]int{},
		completeOn:  completeOn,
		texts:       texts,
		failJobs:    map[string]string{},
		held:        map[string]chan struct{}{},
	}
}

func (f *fakeProvider) Upload(ctx context.Context, audio []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.uploads = append(f.uploads, append([]byte(nil), audio...))
	return fmt.Sprintf("https://upload/%d", len(f.uploads)), nil
}

func (f *fakeProvider) CreateTranscript(ctx context.Context, audioURL string) (*assemblyai.Transcript, error) {
	var n int
	if _, err := fmt.Sscanf(audioURL, "https://upload/%d", &n); err != nil {
		return nil, errors.New("bad upload url")
	}
	return &assemblyai.Transcript{ID: fmt.Sprintf("job-%d", n), Status: assemblyai.StatusQueued}, nil
}

func (f *fakeProvider) GetTranscript(ctx context.Context, id string) (*assemblyai.Transcript, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls[id]++
	if detail, ok := f.failJobs[id]; ok {
		return &assemblyai.Transcript{ID: id, Status: assemblyai.StatusError, Error: detail}, nil
	}
	if gate, ok := f.held[id]; ok {
		select {
		case <-gate:
		default:
			return &assemblyai.Transcript{ID: id, Status: assemblyai.StatusProcessing}, nil
		}
	}
	if f.completeOn <= 0 || f.statusCalls[id] < f.completeOn {
		return &assemblyai.Transcript{ID: id, Status: assemblyai.StatusProcessing}, nil
	}
	var n int
	fmt.Sscanf(id, "job-%d", &n)
	text := ""
	if n >= 1 && n <= len(f.texts) {
		text = f.texts[n-1]
	}
	return &assemblyai.Transcript{ID: id, Status: assemblyai.StatusCompleted, Text: text}, nil
}

func (f *fakeProvider) hold(id string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	f.held[id] = gate
	return gate
}

func (f *fakeProvider) calls(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusCalls[id]
}

func (f *fakeProvider) uploadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads)
}

func (f *fakeProvider) upload(i int) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploads[i]
}

type jobRecorder struct {
	mu   sync.Mutex
	jobs []Job
}

func (r *jobRecorder) ObserveJob(mode internal_type.TranscriptionMode, job *Job) {
	r.mu.Lock()
	r.jobs = append(r.jobs, *job)
	r.mu.Unlock()
}

func (r *jobRecorder) states() []JobState {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []JobState
	for _, j := range r.jobs {
		out = append(out, j.State)
	}
	return out
}
