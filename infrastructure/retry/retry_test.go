package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kaglioster-hub/vrabo/infrastructure/retry"
)

var errTransient = errors.New("transient")

func fastConfig() retry.Config {
	return retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond, Multiplier: 2}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	t.Parallel()

	calls := 0
	err := retry.Do(context.Background(), fastConfig(), func(context.Context, int) error {
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	calls := 0
	err := retry.Do(context.Background(), fastConfig(), func(context.Context, int) error {
		calls++
		return errTransient
	})

	require.ErrorIs(t, err, retry.ErrMaxAttemptsExceeded)
	require.ErrorIs(t, err, errTransient)
	assert.Equal(t, 3, calls)
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	t.Parallel()

	cfg := fastConfig()
	cfg.IsRetryable = func(error) bool { return false }

	calls := 0
	err := retry.Do(context.Background(), cfg, func(context.Context, int) error {
		calls++
		return errTransient
	})

	require.ErrorIs(t, err, errTransient)
	assert.NotErrorIs(t, err, retry.ErrMaxAttemptsExceeded)
	assert.Equal(t, 1, calls)
}

func TestDo_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cfg := retry.Config{MaxAttempts: 5, InitialDelay: time.Hour}

	err := retry.Do(ctx, cfg, func(context.Context, int) error {
		cancel()
		return errTransient
	})

	require.ErrorIs(t, err, retry.ErrContextCancelled)
}

func TestDo_OnRetryReceivesBackoff(t *testing.T) {
	t.Parallel()

	var delays []time.Duration
	cfg := fastConfig()
	cfg.OnRetry = func(_ int, _ error, d time.Duration) { delays = append(delays, d) }

	_ = retry.Do(context.Background(), cfg, func(context.Context, int) error { return errTransient })

	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, delays)
}

func TestBackoff_DoublesAndCaps(t *testing.T) {
	t.Parallel()

	cfg := retry.DefaultConfig()
	assert.Equal(t, 400*time.Millisecond, cfg.Backoff(1))
	assert.Equal(t, 800*time.Millisecond, cfg.Backoff(2))
	assert.Equal(t, 1600*time.Millisecond, cfg.Backoff(3))
	assert.Equal(t, 5*time.Second, cfg.Backoff(10))
}
