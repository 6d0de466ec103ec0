// Package retry wraps flaky provider operations in bounded exponential
// backoff. Callers are responsible for idempotency: reads and wake-up polls
// are safe to retry, commands with physical side effects should run with
// MaxRetries 0.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy bounds one retried operation
type Policy struct {
	// MaxRetries is the number of attempts after the first. 0 means the
	// operation runs exactly once.
	MaxRetries int
	// BaseDelay is the delay before the first retry; each subsequent delay
	// doubles.
	BaseDelay time.Duration
	// Retryable decides whether an error is worth another attempt. A nil
	// classifier retries every error.
	Retryable func(error) bool
	// OnRetry is invoked before each retry sleep with the attempt number
	// (1-based), the error being retried, and the upcoming delay.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Do runs op under the policy. Non-retryable errors stop immediately; once
// the budget is exhausted the last error is returned unchanged, not wrapped.
func Do[T any](ctx context.Context, policy Policy, op func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = policy.BaseDelay
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxElapsedTime = 0
	b.Reset()

	wrapped := backoff.WithContext(backoff.WithMaxRetries(b, uint64(policy.MaxRetries)), ctx)

	attempt := 0
	notify := func(err error, delay time.Duration) {
		attempt++
		if policy.OnRetry != nil {
			policy.OnRetry(attempt, err, delay)
		}
	}

	return backoff.RetryNotifyWithData(func() (T, error) {
		v, err := op()
		if err != nil && policy.Retryable != nil && !policy.Retryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, wrapped, notify)
}
