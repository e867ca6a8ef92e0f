// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_recorder

import (
	"encoding/binary"
	"testing"

	internal_type "github.com/callsightai/api/callsight-api/internal/type"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeWAV_Header(t *testing.T) {
	pcm := make([]byte, 320)
	wav := EncodeWAV(pcm, internal_type.DefaultAudioConfig)

	require.Len(t, wav, 44+320)
	assert.Equal(t, "RIFF", string(wav[0:4]))
	assert.Equal(t, uint32(36+320), binary.LittleEndian.Uint32(wav[4:8]))
	assert.Equal(t, "WAVE", string(wav[8:12]))
	assert.Equal(t, "fmt ", string(wav[12:16]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(wav[20:22]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(wav[22:24]))
	assert.Equal(t, uint32(16000), binary.LittleEndian.Uint32(wav[24:28]))
	assert.Equal(t, uint32(32000), binary.LittleEndian.Uint32(wav[28:32]))
	assert.Equal(t, uint16(2), binary.LittleEndian.Uint16(wav[32:34]))
	assert.Equal(t, uint16(16), binary.LittleEndian.Uint16(wav[34:36]))
	assert.Equal(t, "data", string(wav[36:40]))
	assert.Equal(t, uint32(320), binary.LittleEndian.Uint32(wav[40:44]))
}

func TestDecodeWAV(t *testing.T) {
	cfg := internal_type.AudioConfig{SampleRate: 48000, Channels: 2}
	wav := EncodeWAV([]byte{1, 2, 3, 4}, cfg)

	pcm, got, err := DecodeWAV(wav)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, pcm)
	assert.Equal(t, cfg, got)

	_, _, err = DecodeWAV([]byte("webm"))
	assert.Error(t, err)
	_, _, err = DecodeWAV(wav[:46])
	assert.Error(t, err)
}
