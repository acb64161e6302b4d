// Copyright (c) EasyTofu
// SPDX-License-Identifier: MPL-2.0

package githubsource

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/hashicorp/go-hclog"
)

// RetryConfig holds configuration for exponential backoff retry logic.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	JitterPct  float64 // 0.0 to 1.0
}

// DefaultRetryConfig returns the default retry configuration used by
// Loader when none is supplied.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 5,
		BaseDelay:  200 * time.Millisecond,
		MaxDelay:   5 * time.Second,
		JitterPct:  0.5,
	}
}

// CalculateBackoff calculates the backoff duration for a given attempt:
// baseDelay * 2^attempt, capped at MaxDelay, with +/- JitterPct jitter.
func (c *RetryConfig) CalculateBackoff(attempt int) time.Duration {
	backoff := float64(c.BaseDelay) * math.Pow(2, float64(attempt))
	if backoff > float64(c.MaxDelay) {
		backoff = float64(c.MaxDelay)
	}
	if c.JitterPct > 0 {
		jitterRange := backoff * c.JitterPct
		jitter := (rand.Float64()*2 - 1) * jitterRange
		backoff += jitter
	}
	if backoff < 0 {
		backoff = float64(c.BaseDelay)
	}
	return time.Duration(backoff)
}

// RetryableFunc is a function that can be retried. Returns (shouldRetry,
// err); shouldRetry is ignored once err is nil.
type RetryableFunc func(ctx context.Context, attempt int) (shouldRetry bool, err error)

// WithRetry executes fn with exponential backoff, logging each retry via
// logger (which may be nil).
func WithRetry(ctx context.Context, config RetryConfig, logger hclog.Logger, fn RetryableFunc) error {
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		shouldRetry, err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		if !shouldRetry {
			return err
		}

		if attempt < config.MaxRetries {
			backoff := config.CalculateBackoff(attempt)
			if logger != nil {
				logger.Warn("retrying remote config fetch",
					"attempt", attempt+1, "max_retries", config.MaxRetries,
					"backoff_ms", backoff.Milliseconds())
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				continue
			}
		}
	}

	return fmt.Errorf("exceeded max retries (%d): %w", config.MaxRetries, lastErr)
}
