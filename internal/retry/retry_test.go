package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient failure")

func TestDo_SucceedsWithoutRetry(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), DefaultPolicy(), func(ctx context.Context, attempt int) (string, error) {
		calls++
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	cfg := Policy{MaxAttempts: 3, Base: time.Millisecond, Jitter: 0.1, Ceiling: 10 * time.Millisecond}
	calls := 0
	got, err := Do(context.Background(), cfg, func(ctx context.Context, attempt int) (int, error) {
		calls++
		if attempt < 3 {
			return 0, errTransient
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsAttemptsAndReraisesLastError(t *testing.T) {
	cfg := Policy{MaxAttempts: 3, Base: time.Millisecond, Jitter: 0.1, Ceiling: 10 * time.Millisecond}
	calls := 0
	_, err := Do(context.Background(), cfg, func(ctx context.Context, attempt int) (int, error) {
		calls++
		return 0, errTransient
	})
	require.ErrorIs(t, err, errTransient)
	assert.Equal(t, 3, calls)
}

func TestDo_MaxAttemptsOneRunsOnceAndReraises(t *testing.T) {
	cfg := Policy{MaxAttempts: 1, Base: time.Millisecond, Jitter: 0.1, Ceiling: 10 * time.Millisecond}
	calls := 0
	_, err := Do(context.Background(), cfg, func(ctx context.Context, attempt int) (int, error) {
		calls++
		return 0, errTransient
	})
	require.ErrorIs(t, err, errTransient)
	assert.Equal(t, 1, calls)
}

func TestDo_NonRetryableErrorPropagatesImmediately(t *testing.T) {
	errFatal := errors.New("fatal, do not retry")
	cfg := Policy{
		MaxAttempts: 5,
		Base:        time.Millisecond,
		Ceiling:     10 * time.Millisecond,
		ShouldRetry: func(err error) bool { return !errors.Is(err, errFatal) },
	}
	calls := 0
	_, err := Do(context.Background(), cfg, func(ctx context.Context, attempt int) (int, error) {
		calls++
		return 0, errFatal
	})
	require.ErrorIs(t, err, errFatal)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCancelledDuringSleepAbortsPromptly(t *testing.T) {
	cfg := Policy{MaxAttempts: 5, Base: time.Second, Jitter: 0.1, Ceiling: 30 * time.Second}
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	done := make(chan struct{})
	go func() {
		_, err := Do(ctx, cfg, func(ctx context.Context, attempt int) (int, error) {
			calls++
			return 0, errTransient
		})
		assert.ErrorIs(t, err, context.Canceled)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Do did not abort promptly after context cancellation")
	}
	assert.Equal(t, 1, calls)
}

func TestDo_ContextAlreadyCancelledNeverCallsOp(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	_, err := Do(ctx, DefaultPolicy(), func(ctx context.Context, attempt int) (int, error) {
		calls++
		return 0, nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}

func TestBackoffSleep_UsesBaseToThePowerOfAttempt(t *testing.T) {
	// Base=3s, attempt=2 must sleep base^attempt = 3^2 = 9s (± jitter),
	// not the doubling formula's base*2^(attempt-1) = 3*2 = 6s.
	p := Policy{Base: 3 * time.Second, Jitter: 0.1, Ceiling: time.Hour}
	d := backoffSleep(p, 2)
	assert.GreaterOrEqual(t, d, 8100*time.Millisecond)
	assert.LessOrEqual(t, d, 9900*time.Millisecond)
}

func TestBackoffSleep_RespectsCeiling(t *testing.T) {
	p := Policy{Base: 10 * time.Second, Jitter: 0.3, Ceiling: 30 * time.Second}.withDefaults()
	for attempt := 1; attempt <= 6; attempt++ {
		d := backoffSleep(p, attempt)
		assert.LessOrEqual(t, d, p.Ceiling)
	}
}
