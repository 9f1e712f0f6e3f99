// Package retry provides bounded exponential backoff with jitter for
// transient failures against the catalog API and the warehouse.
package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/logger"
)

// Config holds retry policy settings.
type Config struct {
	MaxAttempts   int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	JitterFactor  float64 // fraction of the delay randomized in [-j, +j]
}

// DefaultConfig returns the default retry policy.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:   4,
		BaseDelay:     time.Second,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
		JitterFactor:  0.2,
	}
}

// Operation is a retryable unit of work.
type Operation func(ctx context.Context) error

// Do executes op, retrying with exponential backoff while retryable reports
// the error as transient. A nil retryable treats every error as transient.
// Context cancellation is honored both before each attempt and during the
// backoff sleep.
func Do(ctx context.Context, cfg Config, log *logger.Logger, label string, op Operation, retryable func(error) bool) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.BackoffFactor <= 1 {
		cfg.BackoffFactor = 2.0
	}

	var lastErr error
	delay := cfg.BaseDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := op(ctx)
		if err == nil {
			if attempt > 1 && log != nil {
				log.Infow("Operation succeeded after retry",
					"operation", label,
					"attempt", attempt,
				)
			}
			return nil
		}
		lastErr = err

		if retryable != nil && !retryable(err) {
			return err
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		sleep := jitter(delay, cfg.JitterFactor)
		if log != nil {
			log.Warnw("Operation failed, retrying",
				"operation", label,
				"attempt", attempt,
				"max_attempts", cfg.MaxAttempts,
				"delay", sleep,
				"error", err,
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}

		delay = time.Duration(float64(delay) * cfg.BackoffFactor)
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", label, cfg.MaxAttempts, lastErr)
}

// jitter randomizes d by up to factor in either direction.
func jitter(d time.Duration, factor float64) time.Duration {
	if factor <= 0 {
		return d
	}
	spread := 1 + factor*(rand.Float64()*2-1)
	j := time.Duration(float64(d) * spread)
	if j < 0 {
		return 0
	}
	return j
}
