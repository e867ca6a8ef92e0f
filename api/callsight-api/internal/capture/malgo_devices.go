//go:build cgo && !noaudio

// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_capture

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"

	internal_type "github.com/callsightai/api/callsight-api/internal/type"
	"github.com/callsightai/pkg/commons"
	"github.com/gen2brain/malgo"
)

const periodSizeMS = 20

// MalgoDevices captures through miniaudio. The microphone is a capture
// device; system audio is the loopback of the default output, which is only
// available on backends that support it (WASAPI, PulseAudio monitor).
type MalgoDevices struct {
	logger   commons.Logger
	mu       sync.Mutex
	malgoCtx *malgo.AllocatedContext
}

func NewMalgoDevices(logger commons.Logger) (*MalgoDevices, error) {
	malgoCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Debugf("malgo: %s", message)
	})
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}
	return &MalgoDevices{logger: logger, malgoCtx: malgoCtx}, nil
}

func (m *MalgoDevices) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.malgoCtx == nil {
		return nil
	}
	err := m.malgoCtx.Uninit()
	m.malgoCtx.Free()
	m.malgoCtx = nil
	return err
}

// ListDevices enumerates capture devices. Loopback sources are reported as
// a single default entry since miniaudio selects them from the output side.
func (m *MalgoDevices) ListDevices() ([]Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.malgoCtx == nil {
		return nil, internal_type.ErrStreamClosed
	}
	infos, err := m.malgoCtx.Devices(malgo.Capture)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(infos))
	out := make([]Device, 0, len(infos)+1)
	for _, info := range infos {
		full, err := m.malgoCtx.DeviceInfo(malgo.Capture, info.ID, malgo.Shared)
		if err != nil {
			m.logger.Warnf("unable to get audio device info: %v", err)
			continue
		}
		id := hex.EncodeToString(full.ID[:])
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, Device{
			ID:        id,
			Name:      full.Name(),
			Kind:      DeviceMicrophone,
			IsDefault: full.IsDefault == 1,
		})
	}
	out = append(out, Device{ID: "", Name: "System output (loopback)", Kind: DeviceLoopback, IsDefault: true})
	return out, nil
}

func (m *MalgoDevices) GetUserMedia(ctx context.Context, c AudioConstraints) (internal_type.MediaStream, error) {
	stream, err := m.open(malgo.Capture, c)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internal_type.ErrPermissionDenied, err)
	}
	return stream, nil
}

func (m *MalgoDevices) GetDisplayMedia(ctx context.Context, c DisplayConstraints) (internal_type.MediaStream, error) {
	stream, err := m.open(malgo.Loopback, c.Audio)
	if err != nil {
		m.logger.Warnf("loopback capture unavailable: %v", err)
		// The display is granted without audio, as a browser does when the
		// user declines to share system sound.
		return NewMemoryStream(0, 1, 1), nil
	}
	return stream, nil
}

func (m *MalgoDevices) open(typ malgo.DeviceType, c AudioConstraints) (*MemoryStream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.malgoCtx == nil {
		return nil, internal_type.ErrStreamClosed
	}

	cfg := c.Config
	if cfg.SampleRate == 0 {
		cfg = internal_type.DefaultAudioConfig
	}
	deviceConfig := malgo.DefaultDeviceConfig(typ)
	deviceConfig.SampleRate = cfg.SampleRate
	deviceConfig.PeriodSizeInMilliseconds = periodSizeMS
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = uint32(cfg.Channels)
	deviceConfig.Alsa.NoMMap = 1
	if c.DeviceID != "" && typ == malgo.Capture {
		raw, err := hex.DecodeString(c.DeviceID)
		if err != nil {
			return nil, fmt.Errorf("invalid device id %q: %w", c.DeviceID, err)
		}
		var id malgo.DeviceID
		copy(id[:], raw)
		deviceConfig.Capture.DeviceID = id.Pointer()
	}

	stream := NewMemoryStream(1, 0, 256)
	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			if len(input) == 0 {
				return
			}
			if !stream.Write(internal_type.PCMSamples(input)) {
				m.logger.Debugf("dropped %d bytes of captured audio", len(input))
			}
		},
	}
	device, err := malgo.InitDevice(m.malgoCtx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, err
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, err
	}
	stream.OnEnd(func() {
		if err := device.Stop(); err != nil {
			m.logger.Warnf("stop audio device: %v", err)
		}
		device.Uninit()
	})
	return stream, nil
}
