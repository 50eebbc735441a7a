// Package retry runs an operation under a bounded attempt budget with doubling
// backoff and a per-attempt timeout.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy describes how an operation is retried.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int
	// BaseDelay is the wait after the first failure; it doubles on each
	// subsequent failure.
	BaseDelay time.Duration
	// MaxDelay caps a single wait. Zero means uncapped.
	MaxDelay time.Duration
	// AttemptTimeout bounds each try. Zero means no per-attempt deadline.
	AttemptTimeout time.Duration
	// Retryable decides whether an error warrants another attempt. Nil retries
	// every error.
	Retryable func(error) bool
	// Sleep waits between attempts. Nil uses a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Delay returns the wait that follows the given 1-based failed attempt.
func (p Policy) Delay(attempt int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		if p.MaxDelay > 0 && delay > p.MaxDelay/2 {
			return p.MaxDelay
		}
		delay *= 2
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

func (p Policy) attempts() int {
	if p.MaxAttempts <= 0 {
		return 1
	}
	return p.MaxAttempts
}

// Do runs op until it succeeds, returns a non-retryable error, the parent
// context ends, or the attempt budget is spent. It returns the number of
// attempts made.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) (int, error) {
	total := p.attempts()
	var lastErr error
	for attempt := 1; attempt <= total; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}
		lastErr = p.runAttempt(ctx, op)
		if lastErr == nil {
			return attempt, nil
		}
		if ctx.Err() != nil {
			return attempt, lastErr
		}
		if p.Retryable != nil && !p.Retryable(lastErr) {
			return attempt, lastErr
		}
		if attempt == total {
			break
		}
		if err := p.sleep(ctx, p.Delay(attempt)); err != nil {
			return attempt, err
		}
	}
	if lastErr == nil {
		lastErr = errors.New("unknown retry failure")
	}
	return total, fmt.Errorf("failed after %d attempts: %w", total, lastErr)
}

func (p Policy) runAttempt(ctx context.Context, op func(ctx context.Context) error) error {
	if p.AttemptTimeout <= 0 {
		return op(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, p.AttemptTimeout)
	defer cancel()
	return op(attemptCtx)
}

func (p Policy) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	if p.Sleep != nil {
		return p.Sleep(ctx, delay)
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
