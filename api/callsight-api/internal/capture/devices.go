// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_capture

import (
	"context"

	internal_type "github.com/callsightai/api/callsight-api/internal/type"
)

type AudioConstraints struct {
	DeviceID         string
	EchoCancellation bool
	NoiseSuppression bool
	AutoGainControl  bool
	Config           internal_type.AudioConfig
}

// DefaultAudioConstraints asks for echo cancellation, noise suppression and
// gain control at the default rate.
func DefaultAudioConstraints() AudioConstraints {
	return AudioConstraints{
		EchoCancellation: true,
		NoiseSuppression: true,
		AutoGainControl:  true,
		Config:           internal_type.DefaultAudioConfig,
	}
}

type DisplayConstraints struct {
	Video bool
	Audio AudioConstraints
}

// MediaDevices opens capture streams. GetUserMedia returns the microphone;
// GetDisplayMedia returns whatever the host grants for the shared display,
// which may carry no audio track at all.
type MediaDevices interface {
	GetUserMedia(ctx context.Context, c AudioConstraints) (internal_type.MediaStream, error)
	GetDisplayMedia(ctx context.Context, c DisplayConstraints) (internal_type.MediaStream, error)
}

type DeviceKind string

const (
	DeviceMicrophone DeviceKind = "microphone"
	DeviceLoopback   DeviceKind = "loopback"
)

type Device struct {
	ID        string
	Name      string
	Kind      DeviceKind
	IsDefault bool
}

// Backend is a device provider that can also enumerate and be closed.
type Backend interface {
	MediaDevices
	ListDevices() ([]Device, error)
	Close() error
}

var _ Backend = (*MalgoDevices)(nil)
