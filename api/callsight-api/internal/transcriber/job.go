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
	"time"

	internal_type "github.com/callsightai/api/callsight-api/internal/type"
	"github.com/callsightai/pkg/clients/assemblyai"
	"github.com/callsightai/pkg/commons"
	"github.com/callsightai/pkg/utils"
)

// Provider is the upload, submit and status surface of the transcription
// service.
type Provider interface {
	Upload(ctx context.Context, audio []byte) (string, error)
	CreateTranscript(ctx context.Context, audioURL string) (*assemblyai.Transcript, error)
	GetTranscript(ctx context.Context, id string) (*assemblyai.Transcript, error)
}

type JobState string

const (
	JobUploading  JobState = "uploading"
	JobQueued     JobState = "queued"
	JobProcessing JobState = "processing"
	JobCompleted  JobState = "completed"
	JobFailed     JobState = "failed"
	JobTimedOut   JobState = "timed_out"
)

// Job tracks one upload/submit/poll cycle.
type Job struct {
	ID       string
	State    JobState
	Attempts int
	Bytes    int
	Text     string
	Started  time.Time
	Finished time.Time
}

// JobObserver is told about every finished job.
type JobObserver interface {
	ObserveJob(mode internal_type.TranscriptionMode, job *Job)
}

type jobRunner struct {
	logger   commons.Logger
	provider Provider
	poll     utils.PollConfig
	mode     internal_type.TranscriptionMode
	observer JobObserver
}

// run uploads audio, submits a job and polls until it settles. A job the
// provider marks as failed returns *TranscriptionFailedError; a job still
// pending after the last attempt returns ErrTranscriptionTimeout.
func (r *jobRunner) run(ctx context.Context, audio []byte) (*Job, error) {
	job := &Job{State: JobUploading, Bytes: len(audio), Started: time.Now()}
	defer func() {
		job.Finished = time.Now()
		if r.observer != nil {
			r.observer.ObserveJob(r.mode, job)
		}
	}()

	uploadURL, err := r.provider.Upload(ctx, audio)
	if err != nil {
		job.State = JobFailed
		return job, fmt.Errorf("upload audio: %w", err)
	}
	submitted, err := r.provider.CreateTranscript(ctx, uploadURL)
	if err != nil {
		job.State = JobFailed
		return job, fmt.Errorf("submit transcript: %w", err)
	}
	job.ID = submitted.ID
	job.State = JobQueued
	r.logger.Debugf("transcription job %s queued (%d bytes)", job.ID, job.Bytes)

	result, attempts, err := utils.Poll(ctx, r.poll, func(ctx context.Context, attempt int) (*assemblyai.Transcript, bool, error) {
		t, err := r.provider.GetTranscript(ctx, job.ID)
		if err != nil {
			return nil, false, fmt.Errorf("poll transcript %s: %w", job.ID, err)
		}
		switch t.Status {
		case assemblyai.StatusCompleted:
			return t, true, nil
		case assemblyai.StatusError:
			return t, false, &internal_type.TranscriptionFailedError{JobID: job.ID, Detail: t.Error}
		case assemblyai.StatusProcessing:
			job.State = JobProcessing
		}
		return t, false, nil
	})
	job.Attempts = attempts
	switch {
	case errors.Is(err, utils.ErrPollExhausted):
		job.State = JobTimedOut
		r.logger.Warnf("transcription job %s still pending after %d polls", job.ID, attempts)
		return job, fmt.Errorf("%w: job %s", internal_type.ErrTranscriptionTimeout, job.ID)
	case err != nil:
		job.State = JobFailed
		return job, err
	}
	job.State = JobCompleted
	job.Text = result.Text
	r.logger.Debugf("transcription job %s completed after %d polls", job.ID, attempts)
	return job, nil
}
