// Package retry wraps cenkalti/backoff with a small policy value that callers
// configure once and reuse.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy describes how an operation is retried.
type Policy struct {
	// MaxAttempts is the total number of calls, including the first. Values below 1 mean 1.
	MaxAttempts int
	// Backoff returns the wait after the given failed attempt (1-based).
	Backoff func(attempt int) time.Duration
	// Retryable reports whether a failure may be retried. Nil retries everything
	// except context cancellation.
	Retryable func(error) bool
	// OnRetry is called before each wait.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// Constant waits d between every attempt.
func Constant(d time.Duration) func(int) time.Duration {
	return func(int) time.Duration { return d }
}

// Exponential doubles base after every failed attempt, capped at limit.
func Exponential(base, limit time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		wait := base
		for i := 1; i < attempt; i++ {
			wait *= 2
			if limit > 0 && wait >= limit {
				return limit
			}
		}
		return wait
	}
}

// Do calls op until it succeeds, fails with a non-retryable error or runs out
// of attempts. The error of the last attempt is returned unchanged.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context, attempt int) error) error {
	maxAttempts := max(1, p.MaxAttempts)
	retryable := p.Retryable
	if retryable == nil {
		retryable = defaultRetryable
	}

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := op(ctx, attempt)
		if err == nil {
			return struct{}{}, nil
		}
		if !retryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(&attemptBackOff{wait: p.wait}),
		backoff.WithMaxTries(uint(maxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, wait time.Duration) {
			if p.OnRetry != nil {
				p.OnRetry(attempt, err, wait)
			}
		}),
	)
	return err
}

func (p Policy) wait(attempt int) time.Duration {
	if p.Backoff == nil {
		return 0
	}
	return max(0, p.Backoff(attempt))
}

func defaultRetryable(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// attemptBackOff adapts a per-attempt wait function to backoff.BackOff.
type attemptBackOff struct {
	wait func(int) time.Duration
	n    int
}

func (b *attemptBackOff) NextBackOff() time.Duration {
	b.n++
	return b.wait(b.n)
}

func (b *attemptBackOff) Reset() { b.n = 0 }
