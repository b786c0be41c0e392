package httputil

import (
	"context"
	"errors"
	"time"
)

// RetryableError wraps an error to indicate it should trigger a retry.
// Wrap transient failures (connection refused, 5xx responses) with this type
// so that [Retry] knows to attempt the operation again.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Policy controls how [Retry] repeats a failing operation.
type Policy struct {
	// Attempts is the total number of calls, including the first. Values
	// below 1 mean 1.
	Attempts int
	// Delay is the wait before the first retry.
	Delay time.Duration
	// Multiplier scales the delay after each retry. Values below 1 keep the
	// delay fixed.
	Multiplier float64
	// Sleep waits for d or until ctx is done. Nil uses a timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry is called with the failed attempt number and its error before
	// each wait.
	OnRetry func(attempt int, err error)
}

// Once retries a single time after a fixed delay.
func Once(delay time.Duration) Policy {
	return Policy{Attempts: 2, Delay: delay}
}

// Backoff makes attempts calls with a delay that doubles after each retry.
func Backoff(attempts int, delay time.Duration) Policy {
	return Policy{Attempts: attempts, Delay: delay, Multiplier: 2}
}

// Retry executes fn according to p. It only retries errors wrapped with
// [RetryableError]; other errors are returned immediately. Returns the last
// error if all attempts fail, or ctx.Err() if cancelled while waiting.
func Retry(ctx context.Context, p Policy, fn func() error) error {
	attempts := max(p.Attempts, 1)
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	delay := p.Delay
	var lastErr error

	for i := range attempts {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !isRetryable(err) {
			return err
		}

		if i < attempts-1 {
			if p.OnRetry != nil {
				p.OnRetry(i+1, lastErr)
			}
			if err := sleep(ctx, delay); err != nil {
				return err
			}
			if p.Multiplier > 1 {
				delay = time.Duration(float64(delay) * p.Multiplier)
			}
		}
	}
	return lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func isRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}
