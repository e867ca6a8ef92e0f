// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_capture

import (
	"context"
	"errors"
	"fmt"

	internal_type "github.com/callsightai/api/callsight-api/internal/type"
	"github.com/callsightai/pkg/commons"
)

// SourcePolicy decides whether the acquired sources are enough to record.
// system is nil when no system audio track is available.
type SourcePolicy func(mic, system internal_type.MediaStream) error

// RequireSystemAudio refuses to record the microphone alone.
func RequireSystemAudio(mic, system internal_type.MediaStream) error {
	if len(internal_type.LiveAudioTracks(system)) == 0 {
		return internal_type.ErrSystemAudioRequired
	}
	return nil
}

// AllowMicrophoneOnly records whatever is available.
func AllowMicrophoneOnly(mic, system internal_type.MediaStream) error {
	return nil
}

// Captured is the pair of sources for one session. System is nil when the
// policy allowed a microphone-only recording.
type Captured struct {
	Mic    internal_type.MediaStream
	System internal_type.MediaStream
}

// Release stops every track of both sources.
func (c *Captured) Release() {
	if c == nil {
		return
	}
	internal_type.StopTracks(c.Mic)
	internal_type.StopTracks(c.System)
}

type MediaCapture struct {
	logger       commons.Logger
	devices      MediaDevices
	policy       SourcePolicy
	beforePrompt func()
	constraints  AudioConstraints
}

type Option func(*MediaCapture)

func WithPolicy(p SourcePolicy) Option {
	return func(c *MediaCapture) { c.policy = p }
}

// WithBeforeSystemPrompt runs fn once per Acquire, right before the system
// capture request, so the caller can tell the user what to share.
func WithBeforeSystemPrompt(fn func()) Option {
	return func(c *MediaCapture) { c.beforePrompt = fn }
}

func WithAudioConstraints(ac AudioConstraints) Option {
	return func(c *MediaCapture) { c.constraints = ac }
}

func NewMediaCapture(logger commons.Logger, devices MediaDevices, opts ...Option) *MediaCapture {
	c := &MediaCapture{
		logger:      logger,
		devices:     devices,
		policy:      RequireSystemAudio,
		constraints: DefaultAudioConstraints(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Acquire opens the microphone and then system audio. On any failure every
// track opened so far is stopped before returning.
func (c *MediaCapture) Acquire(ctx context.Context, micDeviceID string) (*Captured, error) {
	micConstraints := c.constraints
	micConstraints.DeviceID = micDeviceID

	mic, err := c.devices.GetUserMedia(ctx, micConstraints)
	if err != nil {
		c.logger.Warnf("microphone request failed: %v", err)
		if errors.Is(err, internal_type.ErrPermissionDenied) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", internal_type.ErrPermissionDenied, err)
	}
	if len(internal_type.LiveAudioTracks(mic)) == 0 {
		internal_type.StopTracks(mic)
		return nil, fmt.Errorf("%w: microphone stream has no audio track", internal_type.ErrPermissionDenied)
	}

	if c.beforePrompt != nil {
		c.beforePrompt()
	}

	displayConstraints := DisplayConstraints{Video: true, Audio: c.constraints}
	displayConstraints.Audio.DeviceID = ""
	system, err := c.devices.GetDisplayMedia(ctx, displayConstraints)
	if err != nil {
		c.logger.Warnf("system audio request failed: %v", err)
		if perr := c.policy(mic, nil); perr != nil {
			internal_type.StopTracks(mic)
			return nil, fmt.Errorf("%w: %v", internal_type.ErrSystemAudioRequired, err)
		}
		c.logger.Infof("recording microphone only")
		return &Captured{Mic: mic}, nil
	}

	if len(internal_type.LiveAudioTracks(system)) == 0 {
		internal_type.StopTracks(system)
		system = nil
	}
	if err := c.policy(mic, system); err != nil {
		c.logger.Warnf("capture sources rejected: %v", err)
		internal_type.StopTracks(mic)
		internal_type.StopTracks(system)
		return nil, err
	}

	if system == nil {
		c.logger.Infof("recording microphone only")
		return &Captured{Mic: mic}, nil
	}
	c.logger.Debugf("acquired microphone %s and system audio %s", mic.ID(), system.ID())
	return &Captured{Mic: mic, System: system}, nil
}
