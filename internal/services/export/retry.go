package export

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/ternarybob/arbor"
)

// RetryPolicy defines retry behavior with exponential backoff
type RetryPolicy struct {
	MaxAttempts       int
	InitialBackoff    time.Duration
	BackoffMultiplier float64
	NonRetryable      []error

	// sleep waits out one backoff; tests swap it to observe the cadence
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetryPolicy creates the default retry policy for dataset fetches.
// ErrNoData is excluded: an empty page will be empty on the next attempt too.
func NewRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:       3,
		InitialBackoff:    time.Second,
		BackoffMultiplier: 2.0,
		NonRetryable: []error{
			ErrNoData,
		},
		sleep: sleepContext,
	}
}

// ShouldRetry checks if an attempt should be retried based on attempt count and error type
func (p *RetryPolicy) ShouldRetry(attempt int, err error) bool {
	if attempt >= p.MaxAttempts {
		return false
	}

	for _, nonRetryable := range p.NonRetryable {
		if errors.Is(err, nonRetryable) {
			return false
		}
	}

	return err != nil
}

// CalculateBackoff calculates the backoff duration with exponential backoff.
// No jitter: repeated runs pace the source identically.
func (p *RetryPolicy) CalculateBackoff(attempt int) time.Duration {
	return time.Duration(float64(p.InitialBackoff) * math.Pow(p.BackoffMultiplier, float64(attempt)))
}

// ExecuteWithRetry wraps a function with retry loop
func (p *RetryPolicy) ExecuteWithRetry(ctx context.Context, logger arbor.ILogger, fn func() error) error {
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var lastErr error

	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if !p.ShouldRetry(attempt, lastErr) {
			logger.Debug().
				Int("attempt", attempt+1).
				Err(lastErr).
				Msg("Non-retryable error, failing immediately")
			return lastErr
		}

		if attempt < p.MaxAttempts-1 {
			backoff := p.CalculateBackoff(attempt)
			logger.Debug().
				Int("attempt", attempt+1).
				Err(lastErr).
				Dur("backoff", backoff).
				Msg("Retrying after backoff")

			if err := sleep(ctx, backoff); err != nil {
				return err
			}
		}
	}

	logger.Warn().
		Int("max_attempts", p.MaxAttempts).
		Err(lastErr).
		Msg("All retry attempts exhausted")

	return lastErr
}
