// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_type

import "time"

type RecordingState string

const (
	RecordingIdle    RecordingState = "idle"
	RecordingActive  RecordingState = "recording"
	RecordingPaused  RecordingState = "paused"
	RecordingStopped RecordingState = "stopped"
)

type TranscriptionMode string

const (
	ModeWholeFile TranscriptionMode = "whole-file"
	ModeChunked   TranscriptionMode = "chunked"
)

func (m TranscriptionMode) Valid() bool {
	return m == ModeWholeFile || m == ModeChunked
}

// Timeslice is how often the encoder flushes in this mode.
func (m TranscriptionMode) Timeslice() time.Duration {
	if m == ModeChunked {
		return 5 * time.Second
	}
	return time.Second
}

// ChunkSource is the recording side of a chunked transcription: encoder
// output plus a tap on the raw microphone.
type ChunkSource interface {
	Subscribe(fn func(AudioChunk)) (cancel func())
	TapMicrophone(fn func(AudioFrame)) (cancel func())
	// Flush forces audio buffered in the encoder out to subscribers.
	Flush()
}

type TranscriptSource string

const (
	SourceProvider TranscriptSource = "provider"
	SourceLive     TranscriptSource = "live"
)

// TranscriptEvent is a delta of transcript text. Provider events are final
// and extend the running transcript; live events are advisory captions.
type TranscriptEvent struct {
	Source   TranscriptSource
	Sequence uint64
	Text     string
	Final    bool
	At       time.Time
}
