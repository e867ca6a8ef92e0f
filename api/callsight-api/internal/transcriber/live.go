// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_transcriber

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	internal_type "github.com/callsightai/api/callsight-api/internal/type"
	"github.com/callsightai/pkg/clients/assemblyai"
	"github.com/callsightai/pkg/commons"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

// TokenSource issues short-lived streaming credentials.
type TokenSource interface {
	CreateTemporaryToken(ctx context.Context, expiresIn int) (string, error)
}

type streamingMessage struct {
	Type            string `json:"type"`
	Transcript      string `json:"transcript"`
	EndOfTurn       bool   `json:"end_of_turn"`
	TurnIsFormatted bool   `json:"turn_is_formatted"`
	Error           string `json:"error"`
}

// LiveCaptioner streams microphone audio to the realtime endpoint and
// reports interim and end-of-turn captions. It is advisory: audio that
// cannot be sent is dropped.
type LiveCaptioner struct {
	logger       commons.Logger
	tokens       TokenSource
	option       *assemblyai.StreamingOption
	dialer       *websocket.Dialer
	closeTimeout time.Duration

	mu       sync.Mutex
	conn     *websocket.Conn
	writeMu  sync.Mutex
	audio    chan []byte
	done     chan struct{}
	readDone chan struct{}
	group    *errgroup.Group
	onText   func(text string, final bool)
}

func NewLiveCaptioner(logger commons.Logger, tokens TokenSource, option *assemblyai.StreamingOption) *LiveCaptioner {
	return &LiveCaptioner{
		logger:       logger,
		tokens:       tokens,
		option:       option,
		dialer:       &websocket.Dialer{HandshakeTimeout: 30 * time.Second},
		closeTimeout: 3 * time.Second,
	}
}

func (l *LiveCaptioner) Start(ctx context.Context, onText func(text string, final bool)) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn != nil {
		return fmt.Errorf("%w: live captions already running", internal_type.ErrInvalidState)
	}

	token := ""
	if l.tokens != nil {
		t, err := l.tokens.CreateTemporaryToken(ctx, 3600)
		if err != nil {
			return fmt.Errorf("streaming token: %w", err)
		}
		token = t
	}
	conn, _, err := l.dialer.DialContext(ctx, l.option.ConnectionString(token), nil)
	if err != nil {
		return fmt.Errorf("streaming connect: %w", err)
	}
	conn.SetReadLimit(1 << 20)

	l.conn = conn
	l.onText = onText
	l.audio = make(chan []byte, 64)
	l.done = make(chan struct{})
	l.readDone = make(chan struct{})
	l.group = &errgroup.Group{}
	l.group.Go(func() error { return l.readLoop(conn, l.readDone) })
	l.group.Go(func() error { return l.writeLoop(conn, l.audio, l.done, l.readDone) })
	l.logger.Debugf("live captions connected")
	return nil
}

// Write queues one microphone frame. It never blocks.
func (l *LiveCaptioner) Write(frame internal_type.AudioFrame) {
	l.mu.Lock()
	audio, done := l.audio, l.done
	l.mu.Unlock()
	if audio == nil {
		return
	}
	select {
	case <-done:
	case audio <- internal_type.PCMBytes(frame):
	default:
		l.logger.Debugf("live captions behind, dropped %d samples", len(frame))
	}
}

// Stop asks the server to end the session and waits for both loops.
func (l *LiveCaptioner) Stop() error {
	l.mu.Lock()
	if l.conn == nil {
		l.mu.Unlock()
		return nil
	}
	conn, group, done := l.conn, l.group, l.done
	l.conn, l.audio = nil, nil
	l.mu.Unlock()

	close(done)
	err := group.Wait()
	_ = conn.Close()
	return err
}

func (l *LiveCaptioner) readLoop(conn *websocket.Conn, readDone chan struct{}) error {
	defer close(readDone)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				l.logger.Debugf("live captions read ended: %v", err)
			}
			return nil
		}
		var msg streamingMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			l.logger.Warnf("live captions: undecodable message: %v", err)
			continue
		}
		switch msg.Type {
		case "Begin":
			l.logger.Debugf("live captions session began")
		case "Turn":
			if msg.Transcript != "" && l.onText != nil {
				l.onText(msg.Transcript, msg.EndOfTurn)
			}
		case "Termination":
			return nil
		case "Error":
			l.logger.Warnf("live captions error: %s", msg.Error)
		}
	}
}

func (l *LiveCaptioner) writeLoop(conn *websocket.Conn, audio <-chan []byte, done, readDone <-chan struct{}) error {
	for {
		select {
		case <-readDone:
			return nil
		case b := <-audio:
			l.writeMu.Lock()
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			err := conn.WriteMessage(websocket.BinaryMessage, b)
			l.writeMu.Unlock()
			if err != nil {
				l.logger.Warnf("live captions write failed: %v", err)
				_ = conn.Close()
				return nil
			}
		case <-done:
			l.writeMu.Lock()
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Terminate"}`))
			l.writeMu.Unlock()
			if err == nil {
				select {
				case <-readDone:
				case <-time.After(l.closeTimeout):
				}
			}
			_ = conn.Close()
			return nil
		}
	}
}
