// Package retry runs operations against external capabilities with bounded
// exponential backoff. Only transient failures are retried; application-level
// rejections surface immediately.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy configures attempt limits and backoff timing.
type Policy struct {
	MaxAttempts    int
	InitialDelay   time.Duration
	Multiplier     float64
	MaxDelay       time.Duration
	AttemptTimeout time.Duration

	// Sleep waits between attempts. Tests replace it to observe delays
	// without blocking.
	Sleep func(ctx context.Context, d time.Duration) error

	// OnRetry is invoked before each wait with the attempt that just failed.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// ApplyDefaults fills zero fields: 3 attempts, 1s initial delay doubling to a 10s cap.
func (p Policy) ApplyDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = time.Second
	}
	if p.Multiplier < 1 {
		p.Multiplier = 2
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 10 * time.Second
	}
	if p.MaxDelay < p.InitialDelay {
		p.MaxDelay = p.InitialDelay
	}
	if p.Sleep == nil {
		p.Sleep = sleep
	}
	return p
}

// Delay returns the wait after the given failed attempt (1-based).
// Delays grow geometrically and never exceed MaxDelay.
func (p Policy) Delay(attempt int) time.Duration {
	d := float64(p.InitialDelay)
	for i := 1; i < attempt; i++ {
		d *= p.Multiplier
		if d >= float64(p.MaxDelay) {
			return p.MaxDelay
		}
	}
	return min(time.Duration(d), p.MaxDelay)
}

// Error reports a failed operation after the retry policy gave up.
type Error struct {
	Attempts  int
	Transient bool
	Err       error
}

func (e *Error) Error() string {
	kind := "terminal"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("%s failure after %d attempt(s): %v", kind, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Do invokes fn until it succeeds, returns a terminal error, the attempt
// limit is reached, or ctx is done. Failures are always returned as *Error.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	p = p.ApplyDefaults()

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		result, err := call(ctx, p, fn)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, &Error{Attempts: attempt, Transient: false, Err: ctx.Err()}
		}

		if !IsTransient(err) {
			return zero, &Error{Attempts: attempt, Transient: false, Err: err}
		}

		if attempt == p.MaxAttempts {
			break
		}

		delay := p.Delay(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, err)
		}

		if err := p.Sleep(ctx, delay); err != nil {
			return zero, &Error{Attempts: attempt, Transient: false, Err: err}
		}
	}

	return zero, &Error{Attempts: p.MaxAttempts, Transient: true, Err: lastErr}
}

func call[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	if p.AttemptTimeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, p.AttemptTimeout)
	defer cancel()
	return fn(attemptCtx)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Attempts extracts the attempt count from an error returned by Do.
// Returns 0 for errors that did not come from Do.
func Attempts(err error) int {
	var re *Error
	if errors.As(err, &re) {
		return re.Attempts
	}
	return 0
}
