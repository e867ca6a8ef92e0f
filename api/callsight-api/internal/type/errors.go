// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_type

import (
	"errors"
	"fmt"
)

var (
	// ErrPermissionDenied: the microphone could not be opened.
	ErrPermissionDenied = errors.New("microphone permission denied")
	// ErrSystemAudioRequired: system capture was refused, cancelled, or
	// granted without an audio track.
	ErrSystemAudioRequired  = errors.New("system audio is required to record both sides of the call")
	ErrEmptyAudio           = errors.New("audio data is empty")
	ErrTranscriptionTimeout = errors.New("transcription timed out")
	ErrEmptyTranscript      = errors.New("transcript is empty")
	ErrInvalidState         = errors.New("invalid recorder state")
	ErrUnknownFeature       = errors.New("unknown analysis feature")
	ErrEncoderBound         = errors.New("mixed stream already has an active encoder")
	ErrStreamClosed         = errors.New("stream closed")
)

// TranscriptionFailedError reports a job the provider marked as failed.
type TranscriptionFailedError struct {
	JobID  string
	Detail string
}

func (e *TranscriptionFailedError) Error() string {
	if e.JobID == "" {
		return fmt.Sprintf("transcription failed: %s", e.Detail)
	}
	return fmt.Sprintf("transcription %s failed: %s", e.JobID, e.Detail)
}

// ProviderError is a non-2xx answer from the analysis endpoint.
type ProviderError struct {
	Status int
	Body   string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Status, e.Body)
}

// NetworkError wraps a transport failure before any response arrived.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return "network error: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
