//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package retry wraps an operation with exponential backoff.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Default intervals.
const (
	DefaultInitialInterval = 500 * time.Millisecond
	DefaultMaxInterval     = 30 * time.Second
)

// Config controls a retry loop.
type Config struct {
	// MaxRetries is the number of retries after the first attempt.
	// Zero runs the operation once.
	MaxRetries int
	// InitialInterval is the delay before the first retry.
	InitialInterval time.Duration
	// MaxInterval caps the delay between retries.
	MaxInterval time.Duration
	// Retryable decides whether an error is worth another attempt.
	// Nil retries every error.
	Retryable func(error) bool
	// OnRetry is called before each retry with the 1-based retry number.
	OnRetry func(retry int, err error, next time.Duration)
}

func (c Config) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = DefaultInitialInterval
	if c.InitialInterval > 0 {
		b.InitialInterval = c.InitialInterval
	}
	b.MaxInterval = DefaultMaxInterval
	if c.MaxInterval > 0 {
		b.MaxInterval = c.MaxInterval
	}
	return b
}

// Do runs op until it succeeds, returns a non-retryable error, the retries
// are used up or ctx is done. The last error from op is returned unchanged.
func Do[T any](ctx context.Context, cfg Config, op func() (T, error)) (T, error) {
	wrapped := func() (T, error) {
		res, err := op()
		if err != nil && cfg.Retryable != nil && !cfg.Retryable(err) {
			return res, backoff.Permanent(err)
		}
		return res, err
	}
	retries := 0
	notify := func(err error, next time.Duration) {
		retries++
		if cfg.OnRetry != nil {
			cfg.OnRetry(retries, err, next)
		}
	}
	res, err := backoff.Retry(ctx, wrapped,
		backoff.WithBackOff(cfg.backOff()),
		backoff.WithMaxTries(uint(max(cfg.MaxRetries, 0)+1)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify),
	)
	// The final attempt may still carry the permanent marker.
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Unwrap()
	}
	return res, err
}

// DoVoid is Do for operations without a result.
func DoVoid(ctx context.Context, cfg Config, op func() error) error {
	_, err := Do(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, op()
	})
	return err
}
