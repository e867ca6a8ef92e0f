// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_transcriber

import (
	"context"
	"time"

	internal_recorder "github.com/callsightai/api/callsight-api/internal/recorder"
	internal_type "github.com/callsightai/api/callsight-api/internal/type"
	"github.com/callsightai/pkg/commons"
	"github.com/callsightai/pkg/utils"
)

// WholeRecordingClient transcribes a finished recording in one job.
type WholeRecordingClient struct {
	runner *jobRunner
}

type WholeOption func(*jobRunner)

func WithPollConfig(cfg utils.PollConfig) WholeOption {
	return func(r *jobRunner) { r.poll = cfg }
}

func WithJobObserver(o JobObserver) WholeOption {
	return func(r *jobRunner) { r.observer = o }
}

func NewWholeRecordingClient(logger commons.Logger, provider Provider, opts ...WholeOption) *WholeRecordingClient {
	r := &jobRunner{
		logger:   logger,
		provider: provider,
		poll:     utils.DefaultPollConfig(),
		mode:     internal_type.ModeWholeFile,
	}
	for _, opt := range opts {
		opt(r)
	}
	return &WholeRecordingClient{runner: r}
}

// Transcribe returns the text of blob. Errors are fatal for this request.
// An empty blob, or a WAV container without samples, is ErrEmptyAudio.
func (c *WholeRecordingClient) Transcribe(ctx context.Context, blob []byte) (string, error) {
	if len(blob) == 0 {
		return "", internal_type.ErrEmptyAudio
	}
	if pcm, _, err := internal_recorder.DecodeWAV(blob); err == nil && len(pcm) == 0 {
		return "", internal_type.ErrEmptyAudio
	}
	start := time.Now()
	defer func() { c.runner.logger.Benchmark("WholeRecordingClient.Transcribe", time.Since(start)) }()

	job, err := c.runner.run(ctx, blob)
	if err != nil {
		c.runner.logger.Errorf("transcription failed: %v", err)
		return "", err
	}
	return job.Text, nil
}
