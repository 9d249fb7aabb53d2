package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient")

func fast(opts ...Option) []Option {
	return append([]Option{WithInitialDelay(time.Millisecond), WithMaxDelay(5 * time.Millisecond)}, opts...)
}

func TestDo_SucceedsAfterRetries(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return Retryable(errTransient)
		}
		return nil
	}, fast(WithMaxAttempts(5))...)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return Retryable(errTransient)
	}, fast(WithMaxAttempts(4))...)

	assert.Equal(t, 4, calls)
	assert.Equal(t, errTransient, err, "marker wrapper is stripped")
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return errTransient
	}, fast()...)

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, errTransient)
}

func TestDo_PermanentOverridesRetryIf(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return Permanent(errTransient)
	}, fast(WithRetryIf(func(error) bool { return true }))...)

	assert.Equal(t, 1, calls)
	assert.Equal(t, errTransient, err)
	assert.False(t, IsPermanent(err))
}

func TestDo_RetryIfAndOnRetry(t *testing.T) {
	var attempts []int
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	}, fast(
		WithRetryIf(func(err error) bool { return errors.Is(err, errTransient) }),
		WithOnRetry(func(attempt int, err error, _ time.Duration) {
			assert.ErrorIs(t, err, errTransient)
			attempts = append(attempts, attempt)
		}),
	)...)

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Do(ctx, func(context.Context) error {
		calls++
		return nil
	})

	assert.Zero(t, calls)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDo_ContextCancelledWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	err := Do(ctx, func(context.Context) error {
		cancel()
		return Retryable(errTransient)
	}, WithInitialDelay(time.Hour), WithMaxDelay(time.Hour))

	assert.Equal(t, errTransient, err)
}

func TestDoWithData(t *testing.T) {
	calls := 0
	got, err := DoWithData(context.Background(), func(context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, Retryable(errTransient)
		}
		return 42, nil
	}, fast()...)

	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestDelay(t *testing.T) {
	r := New(WithInitialDelay(10*time.Millisecond), WithMaxDelay(50*time.Millisecond), WithJitter(0))

	assert.Equal(t, 10*time.Millisecond, r.delay(1))
	assert.Equal(t, 20*time.Millisecond, r.delay(2))
	assert.Equal(t, 40*time.Millisecond, r.delay(3))
	assert.Equal(t, 50*time.Millisecond, r.delay(4))
}

func TestDelay_JitterBounds(t *testing.T) {
	r := New(WithInitialDelay(100*time.Millisecond), WithJitter(0.5))

	for i := 0; i < 50; i++ {
		d := r.delay(1)
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.LessOrEqual(t, d, 150*time.Millisecond)
	}
}

func TestOptions_IgnoreInvalidValues(t *testing.T) {
	r := New(WithMaxAttempts(0), WithMultiplier(0.5), WithJitter(2), WithMaxDelay(-1))
	def := DefaultConfig()

	assert.Equal(t, def.MaxAttempts, r.config.MaxAttempts)
	assert.Equal(t, def.Multiplier, r.config.Multiplier)
	assert.Equal(t, def.JitterFactor, r.config.JitterFactor)
	assert.Equal(t, def.MaxDelay, r.config.MaxDelay)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(Retryable(errTransient)))
	assert.False(t, IsRetryable(errTransient))
	assert.Nil(t, Retryable(nil))
	assert.Nil(t, Permanent(nil))
}
