// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_mixer

import (
	"errors"
	"math"
	"sync"

	internal_type "github.com/callsightai/api/callsight-api/internal/type"
	"github.com/callsightai/pkg/commons"
	"golang.org/x/sync/errgroup"
)

var errNoMicrophone = errors.New("mixer requires a microphone source")

type AudioMixer struct {
	logger     commons.Logger
	config     internal_type.AudioConfig
	maxPending int
	outBuffer  int
}

type Option func(*AudioMixer)

func WithAudioConfig(cfg internal_type.AudioConfig) Option {
	return func(m *AudioMixer) { m.config = cfg }
}

// WithMaxPendingSamples bounds how much system audio may wait for the
// microphone clock before the oldest samples are dropped.
func WithMaxPendingSamples(n int) Option {
	return func(m *AudioMixer) { m.maxPending = n }
}

func NewAudioMixer(logger commons.Logger, opts ...Option) *AudioMixer {
	m := &AudioMixer{
		logger:    logger,
		config:    internal_type.DefaultAudioConfig,
		outBuffer: 64,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.maxPending <= 0 {
		m.maxPending = int(m.config.SampleRate) * int(m.config.Channels)
	}
	return m
}

// Mix connects mic and the optional system source into one output. The
// microphone drives timing: each mic frame is summed with as many pending
// system samples as it has, with clipping to the int16 range.
func (m *AudioMixer) Mix(mic, system internal_type.MediaStream) (*MixedStream, error) {
	if mic == nil {
		return nil, errNoMicrophone
	}
	s := &MixedStream{
		logger:     m.logger,
		config:     m.config,
		maxPending: m.maxPending,
		out:        make(chan internal_type.AudioFrame, m.outBuffer),
		done:       make(chan struct{}),
		drained:    make(chan struct{}),
		taps:       make(map[uint64]func(internal_type.AudioFrame)),
	}
	if system != nil {
		s.hasSystem = true
		frames := system.Frames()
		s.group.Go(func() error {
			s.collect(frames)
			return nil
		})
	}
	micFrames := mic.Frames()
	s.group.Go(func() error {
		s.run(micFrames)
		return nil
	})
	m.logger.Debugf("mixer graph started (system audio: %t)", s.hasSystem)
	return s, nil
}

// MixedStream is the mixer output. At most one encoder may be bound to it.
type MixedStream struct {
	logger     commons.Logger
	config     internal_type.AudioConfig
	maxPending int
	hasSystem  bool

	out     chan internal_type.AudioFrame
	done    chan struct{}
	drained chan struct{}
	group   errgroup.Group
	once    sync.Once

	mu      sync.Mutex
	pending []int16
	dropped int
	bound   bool
	taps    map[uint64]func(internal_type.AudioFrame)
	nextTap uint64
}

func (s *MixedStream) Frames() <-chan internal_type.AudioFrame { return s.out }

func (s *MixedStream) Config() internal_type.AudioConfig { return s.config }

func (s *MixedStream) HasSystemAudio() bool { return s.hasSystem }

// Drained is closed once the microphone has ended and every frame it queued
// has been mixed into the output, or once the graph is closed.
func (s *MixedStream) Drained() <-chan struct{} { return s.drained }

func (s *MixedStream) Bind() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bound {
		return internal_type.ErrEncoderBound
	}
	s.bound = true
	return nil
}

func (s *MixedStream) Unbind() {
	s.mu.Lock()
	s.bound = false
	s.mu.Unlock()
}

// TapMicrophone receives a copy of every microphone frame before mixing.
// fn runs on the mixing goroutine and must not block.
func (s *MixedStream) TapMicrophone(fn func(internal_type.AudioFrame)) func() {
	s.mu.Lock()
	id := s.nextTap
	s.nextTap++
	s.taps[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.taps, id)
		s.mu.Unlock()
	}
}

// Close tears the graph down and waits for its goroutines. The output
// channel is closed afterwards.
func (s *MixedStream) Close() error {
	s.once.Do(func() { close(s.done) })
	err := s.group.Wait()
	s.mu.Lock()
	dropped := s.dropped
	s.mu.Unlock()
	if dropped > 0 {
		s.logger.Debugf("mixer dropped %d system samples", dropped)
	}
	return err
}

func (s *MixedStream) pendingSamples() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *MixedStream) collect(frames <-chan internal_type.AudioFrame) {
	for {
		select {
		case <-s.done:
			return
		case f, ok := <-frames:
			if !ok {
				return
			}
			s.mu.Lock()
			s.pending = append(s.pending, f...)
			if over := len(s.pending) - s.maxPending; over > 0 {
				s.pending = append(s.pending[:0], s.pending[over:]...)
				s.dropped += over
			}
			s.mu.Unlock()
		}
	}
}

func (s *MixedStream) run(frames <-chan internal_type.AudioFrame) {
	defer func() {
		close(s.out)
		close(s.drained)
	}()
	for {
		select {
		case <-s.done:
			return
		case f, ok := <-frames:
			if !ok {
				return
			}
			mixed := s.mix(f)
			select {
			case s.out <- mixed:
			case <-s.done:
				return
			}
		}
	}
}

func (s *MixedStream) mix(mic internal_type.AudioFrame) internal_type.AudioFrame {
	out := make(internal_type.AudioFrame, len(mic))
	s.mu.Lock()
	n := len(s.pending)
	if n > len(mic) {
		n = len(mic)
	}
	for i, v := range mic {
		if i < n {
			out[i] = clip(int32(v) + int32(s.pending[i]))
		} else {
			out[i] = v
		}
	}
	s.pending = append(s.pending[:0], s.pending[n:]...)
	taps := make([]func(internal_type.AudioFrame), 0, len(s.taps))
	for _, fn := range s.taps {
		taps = append(taps, fn)
	}
	s.mu.Unlock()

	for _, fn := range taps {
		cp := make(internal_type.AudioFrame, len(mic))
		copy(cp, mic)
		fn(cp)
	}
	return out
}

func clip(v int32) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
