package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPolicy(maxAttempts uint64) Policy {
	return Policy{MaxAttempts: maxAttempts, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	attempts := 0
	err := testPolicy(3).Do(context.Background(), func() error {
		attempts++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestDoNonRetryableAttemptsOnce(t *testing.T) {
	original := errors.New("report not found")
	attempts := 0
	err := testPolicy(5).Do(context.Background(), func() error {
		attempts++
		return original
	})
	assert.Equal(t, 1, attempts)
	// The original error comes back, not a classified wrapper.
	assert.Same(t, original, err)
}

func TestDoRetryableEventuallySucceeds(t *testing.T) {
	attempts := 0
	err := testPolicy(3).Do(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("connection refused")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDoRetryableExhaustsAttempts(t *testing.T) {
	original := errors.New("connection refused")
	attempts := 0
	err := testPolicy(3).Do(context.Background(), func() error {
		attempts++
		return original
	})
	assert.Equal(t, 3, attempts)
	assert.Same(t, original, err)
}

func TestDoPolicyReusableAcrossCalls(t *testing.T) {
	p := testPolicy(2)

	attempts := 0
	_ = p.Do(context.Background(), func() error {
		attempts++
		return errors.New("connection refused")
	})
	assert.Equal(t, 2, attempts)

	// A previous exhausted call must not eat into this call's attempts.
	attempts = 0
	_ = p.Do(context.Background(), func() error {
		attempts++
		return errors.New("connection refused")
	})
	assert.Equal(t, 2, attempts)
}

func TestDoHonorsContextBetweenAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	err := testPolicy(10).Do(ctx, func() error {
		attempts++
		cancel()
		return errors.New("connection refused")
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}
