// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_recorder

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	internal_capture "github.com/callsightai/api/callsight-api/internal/capture"
	internal_mixer "github.com/callsightai/api/callsight-api/internal/mixer"
	internal_type "github.com/callsightai/api/callsight-api/internal/type"
	"github.com/callsightai/pkg/commons"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// drainTimeout bounds how long Stop waits for audio already captured to pass
// through the mixer.
const drainTimeout = 2 * time.Second

type Acquirer interface {
	Acquire(ctx context.Context, micDeviceID string) (*internal_capture.Captured, error)
}

type Mixer interface {
	Mix(mic, system internal_type.MediaStream) (*internal_mixer.MixedStream, error)
}

// Recording is the result of a stopped session.
type Recording struct {
	SessionID      string
	Blob           []byte
	PCMBytes       int
	Duration       time.Duration
	HasSystemAudio bool
}

type captureSession struct {
	id       string
	captured *internal_capture.Captured
	mixed    *internal_mixer.MixedStream
	encoder  *Encoder
	pcm      bytes.Buffer
}

// Controller owns the recording state machine:
// idle -> recording <-> paused -> stopped -> recording ...
// Only one capture session is open at a time.
type Controller struct {
	logger    commons.Logger
	clock     clockwork.Clock
	capture   Acquirer
	mixer     Mixer
	config    internal_type.AudioConfig
	timeslice time.Duration
	onTick    func(elapsedSeconds int)
	onState   func(internal_type.RecordingState)

	mu          sync.Mutex
	state       internal_type.RecordingState
	transition  bool
	session     *captureSession
	accumulated time.Duration
	resumedAt   time.Time
	tickDone    chan struct{}
	tickExited  chan struct{}

	subMu       sync.RWMutex
	subscribers map[uint64]func(internal_type.AudioChunk)
	nextSub     uint64
}

type ControllerOption func(*Controller)

func WithClock(c clockwork.Clock) ControllerOption {
	return func(ctrl *Controller) { ctrl.clock = c }
}

// WithMode picks the encoder timeslice for the transcription strategy.
func WithMode(m internal_type.TranscriptionMode) ControllerOption {
	return func(ctrl *Controller) { ctrl.timeslice = m.Timeslice() }
}

func WithTimeslice(d time.Duration) ControllerOption {
	return func(ctrl *Controller) { ctrl.timeslice = d }
}

func WithAudioConfig(cfg internal_type.AudioConfig) ControllerOption {
	return func(ctrl *Controller) { ctrl.config = cfg }
}

// WithOnTick is called about once a second while recording with the
// elapsed whole seconds. It must not call back into the controller.
func WithOnTick(fn func(elapsedSeconds int)) ControllerOption {
	return func(ctrl *Controller) { ctrl.onTick = fn }
}

func WithOnStateChange(fn func(internal_type.RecordingState)) ControllerOption {
	return func(ctrl *Controller) { ctrl.onState = fn }
}

func NewController(logger commons.Logger, capture Acquirer, mixer Mixer, opts ...ControllerOption) *Controller {
	c := &Controller{
		logger:      logger,
		clock:       clockwork.NewRealClock(),
		capture:     capture,
		mixer:       mixer,
		config:      internal_type.DefaultAudioConfig,
		timeslice:   internal_type.ModeWholeFile.Timeslice(),
		state:       internal_type.RecordingIdle,
		subscribers: make(map[uint64]func(internal_type.AudioChunk)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) State() internal_type.RecordingState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Elapsed is the recorded time in whole seconds. Paused time is excluded.
func (c *Controller) Elapsed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsedLocked()
}

func (c *Controller) elapsedLocked() int {
	d := c.accumulated
	if c.state == internal_type.RecordingActive {
		d += c.clock.Since(c.resumedAt)
	}
	return int(d / time.Second)
}

// Start acquires both sources, builds the mix and starts the encoder. On
// failure every acquired track is released and the state is unchanged.
func (c *Controller) Start(ctx context.Context, micDeviceID string) error {
	c.mu.Lock()
	if c.transition || c.state == internal_type.RecordingActive || c.state == internal_type.RecordingPaused {
		c.mu.Unlock()
		return fmt.Errorf("%w: recording already in progress", internal_type.ErrInvalidState)
	}
	c.transition = true
	c.mu.Unlock()

	sess, err := c.open(ctx, micDeviceID)

	c.mu.Lock()
	c.transition = false
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.session = sess
	c.state = internal_type.RecordingActive
	c.accumulated = 0
	c.resumedAt = c.clock.Now()
	c.startTickerLocked()
	c.mu.Unlock()

	c.logger.Infof("recording %s started (system audio: %t)", sess.id, sess.mixed.HasSystemAudio())
	c.notify(internal_type.RecordingActive)
	return nil
}

func (c *Controller) open(ctx context.Context, micDeviceID string) (*captureSession, error) {
	captured, err := c.capture.Acquire(ctx, micDeviceID)
	if err != nil {
		return nil, err
	}
	mixed, err := c.mixer.Mix(captured.Mic, captured.System)
	if err != nil {
		captured.Release()
		return nil, err
	}
	sess := &captureSession{id: uuid.NewString(), captured: captured, mixed: mixed}
	sess.encoder = NewEncoder(c.logger, c.clock, mixed, c.timeslice, c.handleChunk)
	if err := sess.encoder.Start(); err != nil {
		captured.Release()
		mixed.Close()
		return nil, err
	}
	return sess, nil
}

// Pause stops the clock and the encoder. Pausing twice is a no-op.
func (c *Controller) Pause() bool {
	c.mu.Lock()
	if c.state != internal_type.RecordingActive || c.transition {
		c.mu.Unlock()
		return false
	}
	c.session.encoder.Pause()
	c.accumulated += c.clock.Since(c.resumedAt)
	c.state = internal_type.RecordingPaused
	exited := c.stopTickerLocked()
	c.mu.Unlock()

	<-exited
	c.notify(internal_type.RecordingPaused)
	return true
}

// Resume continues a paused recording. Elapsed time carries over.
func (c *Controller) Resume() bool {
	c.mu.Lock()
	if c.state != internal_type.RecordingPaused || c.transition {
		c.mu.Unlock()
		return false
	}
	c.session.encoder.Resume()
	c.resumedAt = c.clock.Now()
	c.state = internal_type.RecordingActive
	c.startTickerLocked()
	c.mu.Unlock()

	c.notify(internal_type.RecordingActive)
	return true
}

// Stop releases every track, lets audio already captured reach the encoder,
// flushes it, closes the mix and returns the recording as a WAV blob.
// Elapsed time resets to zero.
func (c *Controller) Stop() (*Recording, error) {
	c.mu.Lock()
	if c.transition || (c.state != internal_type.RecordingActive && c.state != internal_type.RecordingPaused) {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: no recording in progress", internal_type.ErrInvalidState)
	}
	c.transition = true
	if c.state == internal_type.RecordingActive {
		c.accumulated += c.clock.Since(c.resumedAt)
	}
	duration := c.accumulated
	sess := c.session
	exited := c.stopTickerLocked()
	c.mu.Unlock()

	<-exited
	sess.captured.Release()
	select {
	case <-sess.mixed.Drained():
	case <-time.After(drainTimeout):
		c.logger.Warnf("recording %s: mixer did not drain within %s", sess.id, drainTimeout)
	}
	sess.encoder.Stop()
	if err := sess.mixed.Close(); err != nil {
		c.logger.Warnf("closing mixer: %v", err)
	}

	c.mu.Lock()
	pcm := sess.pcm.Bytes()
	rec := &Recording{
		SessionID:      sess.id,
		Blob:           EncodeWAV(pcm, c.config),
		PCMBytes:       len(pcm),
		Duration:       duration,
		HasSystemAudio: sess.mixed.HasSystemAudio(),
	}
	c.session = nil
	c.accumulated = 0
	c.state = internal_type.RecordingStopped
	c.transition = false
	c.mu.Unlock()

	c.logger.Info(fmt.Sprintf("recording %s stopped: audio=%d (%.2fs), elapsed=%s",
		rec.SessionID, rec.PCMBytes, c.config.Duration(rec.PCMBytes).Seconds(), duration))
	c.notify(internal_type.RecordingStopped)
	return rec, nil
}

// Subscribe delivers every encoder chunk to fn, in order, on the encoder
// goroutine.
func (c *Controller) Subscribe(fn func(internal_type.AudioChunk)) func() {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subscribers[id] = fn
	c.subMu.Unlock()
	return func() {
		c.subMu.Lock()
		delete(c.subscribers, id)
		c.subMu.Unlock()
	}
}

// TapMicrophone forwards raw microphone frames of the current session.
func (c *Controller) TapMicrophone(fn func(internal_type.AudioFrame)) func() {
	c.mu.Lock()
	sess := c.session
	c.mu.Unlock()
	if sess == nil {
		return func() {}
	}
	return sess.mixed.TapMicrophone(fn)
}

func (c *Controller) Flush() {
	c.mu.Lock()
	sess := c.session
	c.mu.Unlock()
	if sess != nil {
		sess.encoder.Flush()
	}
}

// RecordedBytes is the PCM accepted by the encoder in the current session,
// flushed or not.
func (c *Controller) RecordedBytes() int {
	c.mu.Lock()
	sess := c.session
	c.mu.Unlock()
	if sess == nil {
		return 0
	}
	return sess.encoder.BytesEncoded()
}

func (c *Controller) handleChunk(chunk internal_type.AudioChunk) {
	c.mu.Lock()
	if c.session != nil {
		c.session.pcm.Write(chunk.Data)
	}
	c.mu.Unlock()

	c.subMu.RLock()
	subs := make([]func(internal_type.AudioChunk), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		subs = append(subs, fn)
	}
	c.subMu.RUnlock()
	for _, fn := range subs {
		fn(chunk)
	}
}

func (c *Controller) startTickerLocked() {
	done := make(chan struct{})
	exited := make(chan struct{})
	ticker := c.clock.NewTicker(time.Second)
	c.tickDone, c.tickExited = done, exited
	go c.tickLoop(ticker, done, exited)
}

// stopTickerLocked signals the tick goroutine and returns a channel closed
// once it has exited. Wait on it without holding mu.
func (c *Controller) stopTickerLocked() <-chan struct{} {
	exited := c.tickExited
	if c.tickDone != nil {
		close(c.tickDone)
	}
	c.tickDone, c.tickExited = nil, nil
	if exited == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return exited
}

func (c *Controller) tickLoop(ticker clockwork.Ticker, done, exited chan struct{}) {
	defer close(exited)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.Chan():
			c.mu.Lock()
			if c.state != internal_type.RecordingActive {
				c.mu.Unlock()
				continue
			}
			elapsed := c.elapsedLocked()
			c.mu.Unlock()
			if c.onTick != nil {
				c.onTick(elapsed)
			}
		}
	}
}

func (c *Controller) notify(s internal_type.RecordingState) {
	if c.onState != nil {
		c.onState(s)
	}
}

var _ internal_type.ChunkSource = (*Controller)(nil)
