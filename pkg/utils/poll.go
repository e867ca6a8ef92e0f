// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package utils

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
)

// ErrPollExhausted is returned by Poll when every attempt ran without the
// check reporting completion.
var ErrPollExhausted = errors.New("poll attempts exhausted")

type PollConfig struct {
	Interval    time.Duration
	MaxAttempts int
	// Clock defaults to the real clock when nil.
	Clock clockwork.Clock
}

// DefaultPollConfig waits one second before each of sixty status checks.
func DefaultPollConfig() PollConfig {
	return PollConfig{Interval: time.Second, MaxAttempts: 60}
}

// PollFunc inspects the remote state for one attempt (1-based). It reports
// done when polling should stop; a non-nil error aborts polling.
type PollFunc[T any] func(ctx context.Context, attempt int) (T, bool, error)

// Poll waits Interval before every attempt and runs check up to MaxAttempts
// times. It returns the last value, the number of attempts made, and
// ErrPollExhausted if check never reported done.
func Poll[T any](ctx context.Context, cfg PollConfig, check PollFunc[T]) (T, int, error) {
	var zero T
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if cfg.MaxAttempts <= 0 {
		return zero, 0, ErrPollExhausted
	}

	var last T
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if cfg.Interval > 0 {
			select {
			case <-ctx.Done():
				return last, attempt - 1, ctx.Err()
			case <-clock.After(cfg.Interval):
			}
		} else if err := ctx.Err(); err != nil {
			return last, attempt - 1, err
		}

		value, done, err := check(ctx, attempt)
		last = value
		if err != nil {
			return value, attempt, err
		}
		if done {
			return value, attempt, nil
		}
	}
	return last, cfg.MaxAttempts, ErrPollExhausted
}
