// Package retry wraps network-facing operations in bounded exponential
// backoff. Whether a failure is worth retrying is decided by
// apperrors.Classify, so callers never hand-roll transient-error lists.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"report-workflow-service/apperrors"
)

// Policy bounds a retried operation. The zero value is not useful; use
// DefaultPolicy or construct explicitly.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts uint64
	// BaseDelay is the sleep after the first failure; each subsequent delay
	// doubles, capped at MaxDelay.
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// DefaultPolicy matches the service defaults: three attempts, 500ms base,
// 10s cap.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond, MaxDelay: 10 * time.Second}
}

// Do runs op, retrying on retryable failures until MaxAttempts is exhausted
// or ctx is done. The context is checked between attempts, never mid-attempt.
// On a non-retryable failure or exhaustion the ORIGINAL error is returned,
// not the classified wrapper. Backoff state is per call, so one Policy is
// safe to share across concurrent operations.
func (p Policy) Do(ctx context.Context, op func() error) error {
	// BackOff implementations are stateful; always build a fresh one.
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.BaseDelay
	bo.MaxInterval = p.MaxDelay
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0

	var b backoff.BackOff = bo
	if p.MaxAttempts > 0 {
		b = backoff.WithMaxRetries(b, p.MaxAttempts-1)
	}
	b = backoff.WithContext(b, ctx)

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if !apperrors.IsRetryable(err) {
			// Permanent stops immediately; backoff.Retry unwraps it so the
			// caller sees the original error.
			return backoff.Permanent(err)
		}
		return err
	}, b)
}
