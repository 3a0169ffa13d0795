package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExponentialSchedule(t *testing.T) {
	schedule := Exponential(time.Second, 10*time.Second)

	assert.Equal(t, time.Second, schedule(0))
	assert.Equal(t, 2*time.Second, schedule(1))
	assert.Equal(t, 4*time.Second, schedule(2))
	assert.Equal(t, 8*time.Second, schedule(3))
	assert.Equal(t, 10*time.Second, schedule(4))
	assert.Equal(t, 10*time.Second, schedule(10))
}

func TestDoSucceedsAfterRetries(t *testing.T) {
	calls := 0
	err := Do(context.Background(), 5, Fixed(time.Millisecond), func(attempt int) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	failure := errors.New("still broken")
	calls := 0
	err := Do(context.Background(), 3, Fixed(time.Millisecond), func(int) error {
		calls++
		return failure
	})

	require.ErrorIs(t, err, failure)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnPermanent(t *testing.T) {
	failure := errors.New("bad request")
	calls := 0
	err := Do(context.Background(), 5, Fixed(time.Millisecond), func(int) error {
		calls++
		return Permanent(failure)
	})

	require.ErrorIs(t, err, failure)
	assert.Equal(t, 1, calls)
}

func TestDoHonorsDelayHint(t *testing.T) {
	const hinted = 30 * time.Millisecond

	start := time.Now()
	calls := 0
	err := Do(context.Background(), 2, Fixed(time.Nanosecond), func(int) error {
		calls++
		if calls == 1 {
			return After(hinted, errors.New("throttled"))
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.GreaterOrEqual(t, time.Since(start), hinted)
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, 3, Fixed(time.Hour), func(int) error {
		return errors.New("transient")
	})

	require.ErrorIs(t, err, context.Canceled)
}
