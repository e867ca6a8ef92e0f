//go:build !cgo || noaudio

// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_capture

import (
	"context"
	"errors"

	internal_type "github.com/callsightai/api/callsight-api/internal/type"
	"github.com/callsightai/pkg/commons"
)

var errNoAudioBackend = errors.New("audio capture requires a cgo build")

// MalgoDevices is unavailable in builds without cgo.
type MalgoDevices struct{}

func NewMalgoDevices(logger commons.Logger) (*MalgoDevices, error) {
	return nil, errNoAudioBackend
}

func (m *MalgoDevices) Close() error { return nil }

func (m *MalgoDevices) ListDevices() ([]Device, error) { return nil, errNoAudioBackend }

func (m *MalgoDevices) GetUserMedia(ctx context.Context, c AudioConstraints) (internal_type.MediaStream, error) {
	return nil, errNoAudioBackend
}

func (m *MalgoDevices) GetDisplayMedia(ctx context.Context, c DisplayConstraints) (internal_type.MediaStream, error) {
	return nil, errNoAudioBackend
}
