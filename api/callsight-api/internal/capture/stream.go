// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_capture

import (
	"fmt"
	"sync"

	internal_type "github.com/callsightai/api/callsight-api/internal/type"
	"github.com/google/uuid"
)

// MemoryStream is a MediaStream fed by Write. Device backends push captured
// frames into it; tests push synthetic ones.
type MemoryStream struct {
	id     string
	mu     sync.Mutex
	tracks []*memoryTrack
	frames chan internal_type.AudioFrame
	closed bool
	onEnd  []func()
}

type memoryTrack struct {
	id     string
	kind   internal_type.TrackKind
	stream *MemoryStream
	state  internal_type.TrackState
}

// NewMemoryStream creates a stream with the given number of audio and video
// tracks. buffer bounds how many frames may queue before Write drops.
func NewMemoryStream(audioTracks, videoTracks, buffer int) *MemoryStream {
	if buffer <= 0 {
		buffer = 64
	}
	s := &MemoryStream{
		id:     uuid.NewString(),
		frames: make(chan internal_type.AudioFrame, buffer),
	}
	for i := 0; i < audioTracks; i++ {
		s.tracks = append(s.tracks, &memoryTrack{id: fmt.Sprintf("%s-audio-%d", s.id, i), kind: internal_type.TrackKindAudio, stream: s, state: internal_type.TrackLive})
	}
	for i := 0; i < videoTracks; i++ {
		s.tracks = append(s.tracks, &memoryTrack{id: fmt.Sprintf("%s-video-%d", s.id, i), kind: internal_type.TrackKindVideo, stream: s, state: internal_type.TrackLive})
	}
	if len(s.tracks) == 0 {
		s.closed = true
		close(s.frames)
	}
	return s
}

func (s *MemoryStream) ID() string { return s.id }

func (s *MemoryStream) Tracks() []internal_type.MediaTrack {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]internal_type.MediaTrack, 0, len(s.tracks))
	for _, t := range s.tracks {
		out = append(out, t)
	}
	return out
}

func (s *MemoryStream) Frames() <-chan internal_type.AudioFrame {
	return s.frames
}

// OnEnd registers fn to run once all tracks have ended.
func (s *MemoryStream) OnEnd(fn func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		fn()
		return
	}
	s.onEnd = append(s.onEnd, fn)
	s.mu.Unlock()
}

// Write queues a frame without blocking. It reports false when the stream
// has ended or the buffer is full.
func (s *MemoryStream) Write(frame internal_type.AudioFrame) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.frames <- frame:
		return true
	default:
		return false
	}
}

func (s *MemoryStream) trackEnded() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	for _, t := range s.tracks {
		if t.state == internal_type.TrackLive {
			s.mu.Unlock()
			return
		}
	}
	s.closed = true
	close(s.frames)
	callbacks := s.onEnd
	s.onEnd = nil
	s.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}

func (t *memoryTrack) ID() string                    { return t.id }
func (t *memoryTrack) Kind() internal_type.TrackKind { return t.kind }

func (t *memoryTrack) ReadyState() internal_type.TrackState {
	t.stream.mu.Lock()
	defer t.stream.mu.Unlock()
	return t.state
}

func (t *memoryTrack) Stop() {
	t.stream.mu.Lock()
	if t.state == internal_type.TrackEnded {
		t.stream.mu.Unlock()
		return
	}
	t.state = internal_type.TrackEnded
	t.stream.mu.Unlock()
	t.stream.trackEnded()
}
