// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_recorder

import (
	"bytes"
	"encoding/binary"
	"errors"

	internal_type "github.com/callsightai/api/callsight-api/internal/type"
)

const wavHeaderSize = 44

var errNotWAV = errors.New("not a PCM wav container")

// EncodeWAV wraps little-endian 16-bit PCM in a canonical 44-byte RIFF
// header.
func EncodeWAV(pcmData []byte, cfg internal_type.AudioConfig) []byte {
	var buf bytes.Buffer
	buf.Grow(wavHeaderSize + len(pcmData))
	blockAlign := int(cfg.Channels) * internal_type.AudioBytesPerSample

	buf.Write([]byte("RIFF"))
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcmData)))
	buf.Write([]byte("WAVE"))

	buf.Write([]byte("fmt "))
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(internal_type.AudioPCMFormat))
	binary.Write(&buf, binary.LittleEndian, cfg.Channels)
	binary.Write(&buf, binary.LittleEndian, cfg.SampleRate)
	binary.Write(&buf, binary.LittleEndian, uint32(cfg.BytesPerSecond()))
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(internal_type.AudioBitsPerSample))

	buf.Write([]byte("data"))
	binary.Write(&buf, binary.LittleEndian, uint32(len(pcmData)))
	buf.Write(pcmData)
	return buf.Bytes()
}

// DecodeWAV returns the PCM payload and format of a container written by
// EncodeWAV.
func DecodeWAV(wav []byte) ([]byte, internal_type.AudioConfig, error) {
	if len(wav) < wavHeaderSize || string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" || string(wav[36:40]) != "data" {
		return nil, internal_type.AudioConfig{}, errNotWAV
	}
	cfg := internal_type.AudioConfig{
		Channels:   binary.LittleEndian.Uint16(wav[22:24]),
		SampleRate: binary.LittleEndian.Uint32(wav[24:28]),
	}
	size := int(binary.LittleEndian.Uint32(wav[40:44]))
	if wavHeaderSize+size > len(wav) {
		return nil, cfg, errNotWAV
	}
	return wav[wavHeaderSize : wavHeaderSize+size], cfg, nil
}
