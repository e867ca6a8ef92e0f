// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_transcriber

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	internal_recorder "github.com/callsightai/api/callsight-api/internal/recorder"
	internal_type "github.com/callsightai/api/callsight-api/internal/type"
	"github.com/callsightai/pkg/commons"
	"github.com/callsightai/pkg/utils"
	"github.com/jonboulle/clockwork"
)

type ChunkedConfig struct {
	Interval      time.Duration
	MinBatchBytes int
	Poll          utils.PollConfig
	Audio         internal_type.AudioConfig
}

// DefaultChunkedConfig drains every 10s and skips batches under 10000
// bytes; they are kept for the next drain.
func DefaultChunkedConfig() ChunkedConfig {
	return ChunkedConfig{
		Interval:      10 * time.Second,
		MinBatchBytes: 10000,
		Poll:          utils.DefaultPollConfig(),
		Audio:         internal_type.DefaultAudioConfig,
	}
}

// ChunkedPipeline transcribes a recording while it happens. Encoder chunks
// are buffered and drained on an interval; every batch becomes its own
// transcription job. Batch results are appended strictly in batch order, a
// failed or timed out batch contributing nothing.
type ChunkedPipeline struct {
	logger commons.Logger
	clock  clockwork.Clock
	cfg    ChunkedConfig
	runner *jobRunner
	live   *LiveCaptioner

	mu           sync.Mutex
	active       bool
	pending      []internal_type.AudioChunk
	pendingBytes int
	nextBatch    uint64
	nextEmit     uint64
	ready        map[uint64]string
	transcript   strings.Builder
	source       internal_type.ChunkSource
	unsubscribe  func()
	untap        func()
	tickDone     chan struct{}
	tickExited   chan struct{}
	jobCtx       context.Context
	cancelJobs   context.CancelFunc
	inflight     sync.WaitGroup

	emitMu  sync.Mutex
	subMu   sync.RWMutex
	subs    map[uint64]func(internal_type.TranscriptEvent)
	nextSub uint64
}

type ChunkedOption func(*ChunkedPipeline)

func WithChunkedClock(c clockwork.Clock) ChunkedOption {
	return func(p *ChunkedPipeline) { p.clock = c }
}

func WithChunkedConfig(cfg ChunkedConfig) ChunkedOption {
	return func(p *ChunkedPipeline) { p.cfg = cfg }
}

// WithLiveCaptions streams the microphone to a realtime captioner while the
// pipeline runs. Captions are published as live events only.
func WithLiveCaptions(l *LiveCaptioner) ChunkedOption {
	return func(p *ChunkedPipeline) { p.live = l }
}

func WithChunkedObserver(o JobObserver) ChunkedOption {
	return func(p *ChunkedPipeline) { p.runner.observer = o }
}

func NewChunkedPipeline(logger commons.Logger, provider Provider, opts ...ChunkedOption) *ChunkedPipeline {
	p := &ChunkedPipeline{
		logger: logger,
		clock:  clockwork.NewRealClock(),
		cfg:    DefaultChunkedConfig(),
		runner: &jobRunner{logger: logger, provider: provider, mode: internal_type.ModeChunked},
		subs:   make(map[uint64]func(internal_type.TranscriptEvent)),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.runner.poll = p.cfg.Poll
	return p
}

// Start attaches to source and begins the drain interval. Jobs run under
// ctx; cancel it to abandon in-flight polls.
func (p *ChunkedPipeline) Start(ctx context.Context, source internal_type.ChunkSource) error {
	p.mu.Lock()
	if p.active {
		p.mu.Unlock()
		return fmt.Errorf("%w: chunked transcription already running", internal_type.ErrInvalidState)
	}
	p.active = true
	p.pending = nil
	p.pendingBytes = 0
	p.nextBatch = 1
	p.nextEmit = 1
	p.ready = make(map[uint64]string)
	p.transcript.Reset()
	p.source = source
	p.jobCtx, p.cancelJobs = context.WithCancel(ctx)

	done := make(chan struct{})
	exited := make(chan struct{})
	ticker := p.clock.NewTicker(p.cfg.Interval)
	p.tickDone, p.tickExited = done, exited
	go p.tickLoop(ticker, done, exited)
	p.mu.Unlock()

	p.unsubscribe = source.Subscribe(p.Push)
	if p.live != nil {
		if err := p.live.Start(ctx, p.publishLive); err != nil {
			p.logger.Warnf("live captions unavailable: %v", err)
		} else {
			p.untap = source.TapMicrophone(p.live.Write)
		}
	}
	p.logger.Infof("chunked transcription started (interval %s)", p.cfg.Interval)
	return nil
}

// Push buffers an encoder chunk. Chunks arriving while stopped are dropped.
func (p *ChunkedPipeline) Push(chunk internal_type.AudioChunk) {
	if len(chunk.Data) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.active {
		return
	}
	p.pending = append(p.pending, chunk)
	p.pendingBytes += len(chunk.Data)
}

// Stop ends the interval, pulls the encoder's buffered audio, uploads what
// remains and waits for every batch. It returns the accumulated transcript;
// if ctx ends first, outstanding jobs are cancelled and ctx's error is
// returned with the partial transcript.
func (p *ChunkedPipeline) Stop(ctx context.Context) (string, error) {
	p.mu.Lock()
	if !p.active || p.tickDone == nil {
		p.mu.Unlock()
		return "", fmt.Errorf("%w: chunked transcription not running", internal_type.ErrInvalidState)
	}
	close(p.tickDone)
	exited := p.tickExited
	p.tickDone, p.tickExited = nil, nil
	source := p.source
	p.mu.Unlock()
	<-exited

	source.Flush()
	if p.unsubscribe != nil {
		p.unsubscribe()
		p.unsubscribe = nil
	}
	if p.untap != nil {
		p.untap()
		p.untap = nil
	}
	if p.live != nil {
		if err := p.live.Stop(); err != nil {
			p.logger.Debugf("live captions stop: %v", err)
		}
	}

	p.drain(true)
	p.mu.Lock()
	p.active = false
	p.mu.Unlock()

	waited := make(chan struct{})
	go func() {
		p.inflight.Wait()
		close(waited)
	}()

	var err error
	select {
	case <-waited:
	case <-ctx.Done():
		err = ctx.Err()
		p.cancelJobs()
		<-waited
	}
	p.cancelJobs()

	transcript := p.Transcript()
	p.logger.Infof("chunked transcription stopped (%d characters)", len(transcript))
	return transcript, err
}

// Transcript is the text accumulated so far.
func (p *ChunkedPipeline) Transcript() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.transcript.String()
}

// Subscribe registers fn for transcript deltas. Callbacks are serialised and
// must not block.
func (p *ChunkedPipeline) Subscribe(fn func(internal_type.TranscriptEvent)) func() {
	p.subMu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	p.subMu.Unlock()
	return func() {
		p.subMu.Lock()
		delete(p.subs, id)
		p.subMu.Unlock()
	}
}

func (p *ChunkedPipeline) tickLoop(ticker clockwork.Ticker, done, exited chan struct{}) {
	defer close(exited)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.Chan():
			p.drain(false)
		}
	}
}

// drain forms one batch from everything buffered. Unless final, a batch
// under the minimum size goes back to the buffer.
func (p *ChunkedPipeline) drain(final bool) {
	p.mu.Lock()
	if len(p.pending) == 0 {
		p.mu.Unlock()
		return
	}
	var pcm bytes.Buffer
	pcm.Grow(p.pendingBytes)
	for _, c := range p.pending {
		pcm.Write(c.Data)
	}
	blob := internal_recorder.EncodeWAV(pcm.Bytes(), p.cfg.Audio)
	if !final && len(blob) < p.cfg.MinBatchBytes {
		p.mu.Unlock()
		p.logger.Debugf("batch of %d bytes below minimum %d, waiting for more audio", len(blob), p.cfg.MinBatchBytes)
		return
	}
	chunks := len(p.pending)
	p.pending = nil
	p.pendingBytes = 0
	seq := p.nextBatch
	p.nextBatch++
	p.inflight.Add(1)
	ctx := p.jobCtx
	p.mu.Unlock()

	p.logger.Debugf("batch %d: %d chunks, %d bytes", seq, chunks, len(blob))
	go p.transcribe(ctx, seq, blob)
}

func (p *ChunkedPipeline) transcribe(ctx context.Context, seq uint64, blob []byte) {
	defer p.inflight.Done()
	text := ""
	job, err := p.runner.run(ctx, blob)
	if err != nil {
		p.logger.Warnf("batch %d transcription failed, continuing: %v", seq, err)
	} else {
		text = strings.TrimSpace(job.Text)
	}
	p.deliver(seq, text)
}

func (p *ChunkedPipeline) deliver(seq uint64, text string) {
	p.emitMu.Lock()
	defer p.emitMu.Unlock()

	p.mu.Lock()
	p.ready[seq] = text
	var events []internal_type.TranscriptEvent
	for {
		t, ok := p.ready[p.nextEmit]
		if !ok {
			break
		}
		delete(p.ready, p.nextEmit)
		if t != "" {
			if p.transcript.Len() > 0 {
				p.transcript.WriteByte(' ')
			}
			p.transcript.WriteString(t)
			events = append(events, internal_type.TranscriptEvent{
				Source:   internal_type.SourceProvider,
				Sequence: p.nextEmit,
				Text:     t,
				Final:    true,
				At:       p.clock.Now(),
			})
		}
		p.nextEmit++
	}
	p.mu.Unlock()

	for _, e := range events {
		p.publish(e)
	}
}

func (p *ChunkedPipeline) publishLive(text string, final bool) {
	p.emitMu.Lock()
	defer p.emitMu.Unlock()
	p.publish(internal_type.TranscriptEvent{
		Source: internal_type.SourceLive,
		Text:   text,
		Final:  final,
		At:     p.clock.Now(),
	})
}

func (p *ChunkedPipeline) publish(e internal_type.TranscriptEvent) {
	p.subMu.RLock()
	subs := make([]func(internal_type.TranscriptEvent), 0, len(p.subs))
	for _, fn := range p.subs {
		subs = append(subs, fn)
	}
	p.subMu.RUnlock()
	for _, fn := range subs {
		fn(e)
	}
}
