// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package callsight_app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	internal_analysis "github.com/callsightai/api/callsight-api/internal/analysis"
	internal_callsession "github.com/callsightai/api/callsight-api/internal/callsession"
	internal_capture "github.com/callsightai/api/callsight-api/internal/capture"
	internal_mixer "github.com/callsightai/api/callsight-api/internal/mixer"
	internal_recorder "github.com/callsightai/api/callsight-api/internal/recorder"
	internal_transcriber "github.com/callsightai/api/callsight-api/internal/transcriber"
	internal_type "github.com/callsightai/api/callsight-api/internal/type"
	"github.com/callsightai/pkg/clients/assemblyai"
	"github.com/callsightai/pkg/utils"
	"github.com/jonboulle/clockwork"
)

type SessionOptions struct {
	Mode         internal_type.TranscriptionMode
	MicDeviceID  string
	AllowMicOnly bool
	// FeatureID, when set, runs that analysis on the finished transcript.
	FeatureID     string
	FeaturePrompt string
	Recipients    []string
	LiveCaptions  bool

	OnTick            func(elapsedSeconds int)
	OnState           func(internal_type.RecordingState)
	OnTranscript      func(internal_type.TranscriptEvent)
	BeforeSystemAudio func()
	Clock             clockwork.Clock
}

type SessionResult struct {
	SessionID  string
	Recording  *internal_recorder.Recording
	Transcript string
	Analysis   json.RawMessage
}

// RecordingSession runs one capture from start to analysis and keeps its
// history row up to date.
type RecordingSession struct {
	app        *App
	opts       SessionOptions
	controller *internal_recorder.Controller
	pipeline   *internal_transcriber.ChunkedPipeline
	whole      *internal_transcriber.WholeRecordingClient

	mu          sync.Mutex
	unsubscribe func()
}

func (a *App) NewRecordingSession(devices internal_capture.MediaDevices, opts SessionOptions) *RecordingSession {
	if !opts.Mode.Valid() {
		opts.Mode = internal_type.TranscriptionMode(a.Config.Recorder.Mode)
	}
	if !opts.Mode.Valid() {
		opts.Mode = internal_type.ModeWholeFile
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	audio := internal_type.DefaultAudioConfig
	if a.Config.Recorder.SampleRate > 0 {
		audio.SampleRate = a.Config.Recorder.SampleRate
	}
	poll := a.pollConfig(opts.Clock)

	constraints := internal_capture.DefaultAudioConstraints()
	constraints.Config = audio
	captureOpts := []internal_capture.Option{internal_capture.WithAudioConstraints(constraints)}
	if opts.AllowMicOnly {
		captureOpts = append(captureOpts, internal_capture.WithPolicy(internal_capture.AllowMicrophoneOnly))
	}
	if opts.BeforeSystemAudio != nil {
		captureOpts = append(captureOpts, internal_capture.WithBeforeSystemPrompt(opts.BeforeSystemAudio))
	}

	s := &RecordingSession{app: a, opts: opts}
	s.controller = internal_recorder.NewController(a.Logger,
		internal_capture.NewMediaCapture(a.Logger, devices, captureOpts...),
		internal_mixer.NewAudioMixer(a.Logger, internal_mixer.WithAudioConfig(audio)),
		internal_recorder.WithClock(opts.Clock),
		internal_recorder.WithMode(opts.Mode),
		internal_recorder.WithAudioConfig(audio),
		internal_recorder.WithOnTick(opts.OnTick),
		internal_recorder.WithOnStateChange(opts.OnState),
	)

	if opts.Mode == internal_type.ModeChunked {
		cfg := internal_transcriber.DefaultChunkedConfig()
		if a.Config.Recorder.ChunkInterval > 0 {
			cfg.Interval = a.Config.Recorder.ChunkInterval
		}
		cfg.MinBatchBytes = a.Config.Recorder.MinBatchBytes
		cfg.Poll = poll
		cfg.Audio = audio
		pipelineOpts := []internal_transcriber.ChunkedOption{
			internal_transcriber.WithChunkedClock(opts.Clock),
			internal_transcriber.WithChunkedConfig(cfg),
			internal_transcriber.WithChunkedObserver(a.Metrics),
		}
		if opts.LiveCaptions {
			streaming := assemblyai.NewStreamingOption(a.Config.AssemblyAI.StreamingURL, int(audio.SampleRate), utils.Option{})
			if !utils.IsEmpty(a.Config.AssemblyAI.Language) {
				streaming.Options["listen.language"] = a.Config.AssemblyAI.Language
			}
			pipelineOpts = append(pipelineOpts, internal_transcriber.WithLiveCaptions(
				internal_transcriber.NewLiveCaptioner(a.Logger, a.AssemblyAI, streaming)))
		}
		s.pipeline = internal_transcriber.NewChunkedPipeline(a.Logger, a.AssemblyAI, pipelineOpts...)
	} else {
		s.whole = internal_transcriber.NewWholeRecordingClient(a.Logger, a.AssemblyAI,
			internal_transcriber.WithPollConfig(poll),
			internal_transcriber.WithJobObserver(a.Metrics),
		)
	}
	return s
}

func (a *App) pollConfig(clock clockwork.Clock) utils.PollConfig {
	poll := utils.DefaultPollConfig()
	if a.Config.Recorder.PollInterval > 0 {
		poll.Interval = a.Config.Recorder.PollInterval
	}
	if a.Config.Recorder.PollAttempts > 0 {
		poll.MaxAttempts = a.Config.Recorder.PollAttempts
	}
	poll.Clock = clock
	return poll
}

func (s *RecordingSession) Mode() internal_type.TranscriptionMode { return s.opts.Mode }

func (s *RecordingSession) State() internal_type.RecordingState { return s.controller.State() }

func (s *RecordingSession) Elapsed() int { return s.controller.Elapsed() }

func (s *RecordingSession) RecordedBytes() int { return s.controller.RecordedBytes() }

func (s *RecordingSession) Pause() bool { return s.controller.Pause() }

func (s *RecordingSession) Resume() bool { return s.controller.Resume() }

// Start opens the devices and, in chunked mode, begins transcribing. Jobs
// started during the session run under ctx.
func (s *RecordingSession) Start(ctx context.Context) error {
	if err := s.controller.Start(ctx, s.opts.MicDeviceID); err != nil {
		return err
	}
	if s.pipeline == nil {
		return nil
	}
	s.mu.Lock()
	if s.opts.OnTranscript != nil {
		s.unsubscribe = s.pipeline.Subscribe(s.opts.OnTranscript)
	}
	s.mu.Unlock()
	if err := s.pipeline.Start(ctx, s.controller); err != nil {
		if _, stopErr := s.controller.Stop(); stopErr != nil {
			s.app.Logger.Warnf("stopping recorder after pipeline failure: %v", stopErr)
		}
		return err
	}
	return nil
}

// Stop ends the recording, finishes transcription, stores the session and
// runs the requested analysis. The result is returned even when a later
// step fails, together with that step's error.
func (s *RecordingSession) Stop(ctx context.Context) (*SessionResult, error) {
	rec, err := s.controller.Stop()
	if err != nil {
		return nil, err
	}
	s.app.Metrics.ObserveRecording(s.opts.Mode, rec.Duration)

	result := &SessionResult{SessionID: rec.SessionID, Recording: rec}
	session := &internal_callsession.Session{
		ID:              rec.SessionID,
		Mode:            string(s.opts.Mode),
		DurationSeconds: rec.Duration.Seconds(),
		AudioBytes:      int64(len(rec.Blob)),
		SystemAudio:     rec.HasSystemAudio,
	}
	if _, err := s.app.Sessions.Save(ctx, session); err != nil {
		s.app.Logger.Errorf("saving session %s: %v", rec.SessionID, err)
	}

	transcript, err := s.transcribe(ctx, rec)
	s.mu.Lock()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.mu.Unlock()
	if err != nil {
		s.fail(ctx, rec.SessionID, err)
		return result, err
	}
	result.Transcript = transcript
	if err := s.app.Sessions.SetTranscript(ctx, rec.SessionID, transcript); err != nil {
		s.app.Logger.Errorf("storing transcript for %s: %v", rec.SessionID, err)
	}

	if utils.IsEmpty(s.opts.FeatureID) {
		return result, nil
	}
	analysis, err := s.app.Dispatcher.Analyze(ctx, internal_analysis.Request{
		Transcript: transcript,
		FeatureID:  s.opts.FeatureID,
		Prompt:     s.opts.FeaturePrompt,
		Recipients: s.opts.Recipients,
	})
	s.app.Metrics.ObserveAnalysis(s.opts.FeatureID, err)
	if err != nil {
		s.fail(ctx, rec.SessionID, err)
		return result, fmt.Errorf("analysis %s: %w", s.opts.FeatureID, err)
	}
	result.Analysis = analysis
	if err := s.app.Sessions.AttachAnalysis(ctx, rec.SessionID, s.opts.FeatureID, string(analysis)); err != nil {
		s.app.Logger.Errorf("storing analysis for %s: %v", rec.SessionID, err)
	}
	return result, nil
}

func (s *RecordingSession) transcribe(ctx context.Context, rec *internal_recorder.Recording) (string, error) {
	if s.pipeline != nil {
		return s.pipeline.Stop(ctx)
	}
	if rec.PCMBytes == 0 {
		return "", internal_type.ErrEmptyAudio
	}
	return s.whole.Transcribe(ctx, rec.Blob)
}

func (s *RecordingSession) fail(ctx context.Context, id string, cause error) {
	if err := s.app.Sessions.MarkFailed(ctx, id, cause); err != nil && !errors.Is(err, internal_callsession.ErrSessionNotFound) {
		s.app.Logger.Errorf("marking session %s failed: %v", id, err)
	}
}
