// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_type

type TrackKind string

const (
	TrackKindAudio TrackKind = "audio"
	TrackKindVideo TrackKind = "video"
)

type TrackState string

const (
	TrackLive  TrackState = "live"
	TrackEnded TrackState = "ended"
)

// AudioFrame is a block of signed 16-bit mono samples.
type AudioFrame []int16

type MediaTrack interface {
	ID() string
	Kind() TrackKind
	ReadyState() TrackState
	// Stop ends the track. Stopping an ended track is a no-op.
	Stop()
}

// MediaStream is a live capture. Frames is closed once every track has
// ended.
type MediaStream interface {
	ID() string
	Tracks() []MediaTrack
	Frames() <-chan AudioFrame
}

// LiveAudioTracks returns the audio tracks of s that are still live.
func LiveAudioTracks(s MediaStream) []MediaTrack {
	if s == nil {
		return nil
	}
	var out []MediaTrack
	for _, t := range s.Tracks() {
		if t.Kind() == TrackKindAudio && t.ReadyState() == TrackLive {
			out = append(out, t)
		}
	}
	return out
}

// StopTracks ends every track of s, releasing the underlying device.
func StopTracks(s MediaStream) {
	if s == nil {
		return
	}
	for _, t := range s.Tracks() {
		t.Stop()
	}
}
