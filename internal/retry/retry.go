// Package retry runs provider API calls with exponential backoff. Only
// errors the caller classifies as retryable are retried, everything else
// returns immediately.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/chainguard-dev/clog"
)

// Config controls the backoff schedule.
type Config struct {
	// MaxRetries is the number of retry attempts after the first call.
	// 0 disables retrying.
	MaxRetries int
	// BaseBackoff is the first retry delay; it doubles per attempt.
	BaseBackoff time.Duration
	// MaxBackoff caps the delay growth.
	MaxBackoff time.Duration
	// MaxJitter is the upper bound of the random delay added per retry.
	MaxJitter time.Duration
}

// Default returns a schedule tuned for quota and rate limit errors,
// which tend to need longer recovery than ordinary transient failures.
func Default() Config {
	return Config{
		MaxRetries:  4,
		BaseBackoff: time.Second,
		MaxBackoff:  30 * time.Second,
		MaxJitter:   500 * time.Millisecond,
	}
}

// Validate checks the schedule values.
func (c Config) Validate() error {
	if c.MaxRetries < 0 {
		return errors.New("retry: max retries cannot be negative")
	}
	if c.BaseBackoff < 0 || c.MaxBackoff < 0 || c.MaxJitter < 0 {
		return errors.New("retry: durations cannot be negative")
	}
	return nil
}

// Do executes fn, retrying with exponential backoff on errors that
// retryable classifies as transient. The operation name is only used in
// logs and the final error.
func Do[T any](ctx context.Context, cfg Config, operation string, retryable func(error) bool, fn func() (T, error)) (T, error) {
	var result T
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		result, lastErr = fn()
		if lastErr == nil {
			return result, nil
		}
		if !retryable(lastErr) {
			return result, lastErr
		}
		if attempt >= cfg.MaxRetries {
			break
		}

		backoff := min(cfg.BaseBackoff<<attempt, cfg.MaxBackoff)
		if cfg.MaxJitter > 0 {
			backoff += rand.N(cfg.MaxJitter)
		}

		clog.FromContext(ctx).With("operation", operation).
			With("attempt", attempt+1).
			With("max_retries", cfg.MaxRetries).
			With("backoff", backoff).
			With("error", lastErr.Error()).
			Warn("transient provider error, retrying")

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return result, fmt.Errorf("%s failed after %d retries: %w", operation, cfg.MaxRetries, lastErr)
}
