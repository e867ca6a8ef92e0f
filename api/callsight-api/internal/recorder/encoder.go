// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_recorder

import (
	"bytes"
	"sync"
	"time"

	internal_type "github.com/callsightai/api/callsight-api/internal/type"
	"github.com/callsightai/pkg/commons"
	"github.com/jonboulle/clockwork"
)

type EncoderState string

const (
	EncoderInactive  EncoderState = "inactive"
	EncoderRecording EncoderState = "recording"
	EncoderPaused    EncoderState = "paused"
)

// FrameSource is the mixer output an encoder binds to.
type FrameSource interface {
	Frames() <-chan internal_type.AudioFrame
	Bind() error
	Unbind()
}

// Encoder turns mixed frames into PCM chunks, flushing every timeslice.
// Frames that arrive while paused are discarded.
type Encoder struct {
	logger    commons.Logger
	clock     clockwork.Clock
	source    FrameSource
	timeslice time.Duration
	onData    func(internal_type.AudioChunk)

	mu      sync.Mutex
	state   EncoderState
	pending bytes.Buffer
	seq     uint64
	total   int

	flushMu sync.Mutex
	ticker  clockwork.Ticker
	done    chan struct{}
	wg      sync.WaitGroup
}

func NewEncoder(logger commons.Logger, clock clockwork.Clock, source FrameSource, timeslice time.Duration, onData func(internal_type.AudioChunk)) *Encoder {
	if timeslice <= 0 {
		timeslice = time.Second
	}
	return &Encoder{
		logger:    logger,
		clock:     clock,
		source:    source,
		timeslice: timeslice,
		onData:    onData,
		state:     EncoderInactive,
	}
}

func (e *Encoder) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != EncoderInactive {
		return internal_type.ErrInvalidState
	}
	if err := e.source.Bind(); err != nil {
		return err
	}
	e.state = EncoderRecording
	e.ticker = e.clock.NewTicker(e.timeslice)
	e.done = make(chan struct{})
	e.wg.Add(1)
	go e.loop(e.source.Frames(), e.ticker, e.done)
	return nil
}

func (e *Encoder) State() EncoderState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Pause is a no-op unless recording.
func (e *Encoder) Pause() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != EncoderRecording {
		return false
	}
	e.state = EncoderPaused
	return true
}

// Resume is a no-op unless paused.
func (e *Encoder) Resume() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != EncoderPaused {
		return false
	}
	e.state = EncoderRecording
	return true
}

// Stop ends encoding and delivers whatever is still buffered as a final
// chunk. Frames already queued on the source are encoded first; a source
// that is still producing should be ended before Stop so nothing is lost.
func (e *Encoder) Stop() {
	e.mu.Lock()
	if e.state == EncoderInactive || e.done == nil {
		e.mu.Unlock()
		return
	}
	done, ticker := e.done, e.ticker
	e.done = nil
	e.mu.Unlock()

	close(done)
	e.wg.Wait()
	ticker.Stop()
	e.Flush()

	e.mu.Lock()
	e.state = EncoderInactive
	total := e.total
	e.mu.Unlock()
	e.source.Unbind()
	e.logger.Debugf("encoder stopped after %d bytes", total)
}

// Flush emits buffered audio immediately. Nothing is emitted when the
// buffer is empty.
func (e *Encoder) Flush() {
	e.flushMu.Lock()
	defer e.flushMu.Unlock()

	e.mu.Lock()
	if e.pending.Len() == 0 {
		e.mu.Unlock()
		return
	}
	data := make([]byte, e.pending.Len())
	copy(data, e.pending.Bytes())
	e.pending.Reset()
	e.seq++
	chunk := internal_type.AudioChunk{Sequence: e.seq, Data: data}
	e.mu.Unlock()

	if e.onData != nil {
		e.onData(chunk)
	}
}

// BytesEncoded is the PCM byte count accepted so far.
func (e *Encoder) BytesEncoded() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.total
}

func (e *Encoder) loop(frames <-chan internal_type.AudioFrame, ticker clockwork.Ticker, done chan struct{}) {
	defer e.wg.Done()
	for {
		select {
		case <-done:
			e.drain(frames)
			return
		case f, ok := <-frames:
			if !ok {
				frames = nil
				continue
			}
			e.write(f)
		case <-ticker.Chan():
			e.Flush()
		}
	}
}

// drain encodes the frames left on the source without waiting for more.
func (e *Encoder) drain(frames <-chan internal_type.AudioFrame) {
	for frames != nil {
		select {
		case f, ok := <-frames:
			if !ok {
				return
			}
			e.write(f)
		default:
			return
		}
	}
}

func (e *Encoder) write(f internal_type.AudioFrame) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != EncoderRecording {
		return
	}
	b := internal_type.PCMBytes(f)
	e.pending.Write(b)
	e.total += len(b)
}
