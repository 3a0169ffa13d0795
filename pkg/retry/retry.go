package retry

import (
	"context"
	"errors"
	"time"
)

// Schedule returns the wait before the next attempt as a pure function of the
// attempt number (0-based).
type Schedule func(attempt int) time.Duration

// Exponential doubles the seed delay on every attempt, capped at max.
func Exponential(seed, max time.Duration) Schedule {
	return func(attempt int) time.Duration {
		delay := seed
		for i := 0; i < attempt; i++ {
			delay *= 2
			if delay >= max {
				return max
			}
		}
		if delay > max {
			return max
		}
		return delay
	}
}

// Fixed waits the same delay between all attempts.
func Fixed(delay time.Duration) Schedule {
	return func(int) time.Duration {
		return delay
	}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks an error as not worth retrying. Do returns the wrapped
// error immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

type delayHint struct {
	err   error
	delay time.Duration
}

func (e *delayHint) Error() string { return e.err.Error() }
func (e *delayHint) Unwrap() error { return e.err }

// After attaches an explicit wait to an error, overriding the schedule for
// the next attempt. Used for upstream Retry-After hints. A non-positive
// delay leaves the schedule in charge.
func After(delay time.Duration, err error) error {
	if err == nil || delay <= 0 {
		return err
	}
	return &delayHint{err: err, delay: delay}
}

// Do runs fn up to attempts times, sleeping between attempts according to
// schedule (or an After hint carried by the returned error). It returns nil
// on the first success, the unwrapped error for a Permanent failure, and the
// last error once attempts are exhausted.
func Do(ctx context.Context, attempts int, schedule Schedule, fn func(attempt int) error) error {
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return perm.err
		}

		if attempt == attempts-1 {
			break
		}

		wait := schedule(attempt)
		var hint *delayHint
		if errors.As(lastErr, &hint) {
			wait = hint.delay
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return lastErr
}
