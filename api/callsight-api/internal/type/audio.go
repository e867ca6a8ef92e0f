// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_type

import (
	"encoding/binary"
	"time"
)

const (
	AudioBytesPerSample = 2
	AudioBitsPerSample  = 16
	AudioPCMFormat      = 1
)

type AudioConfig struct {
	SampleRate uint32
	Channels   uint16
}

// DefaultAudioConfig is 16 kHz mono, the rate the transcription provider
// handles natively.
var DefaultAudioConfig = AudioConfig{SampleRate: 16000, Channels: 1}

func (c AudioConfig) BytesPerSecond() int {
	return int(c.SampleRate) * int(c.Channels) * AudioBytesPerSample
}

// Duration converts a PCM byte count into playback time.
func (c AudioConfig) Duration(pcmBytes int) time.Duration {
	bps := c.BytesPerSecond()
	if bps == 0 {
		return 0
	}
	return time.Duration(float64(pcmBytes) / float64(bps) * float64(time.Second))
}

// AudioChunk is one encoder flush. Sequence starts at 1 per session.
type AudioChunk struct {
	Sequence uint64
	Data     []byte
}

// PCMBytes encodes samples as little-endian signed 16-bit.
func PCMBytes(frame AudioFrame) []byte {
	out := make([]byte, len(frame)*AudioBytesPerSample)
	for i, s := range frame {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// PCMSamples decodes little-endian signed 16-bit bytes. A trailing odd byte
// is ignored.
func PCMSamples(b []byte) AudioFrame {
	out := make(AudioFrame, len(b)/AudioBytesPerSample)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return out
}
