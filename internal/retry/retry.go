// Package retry re-runs failed webhook deliveries with exponential backoff.
package retry

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// DefaultMaxAttempts is the number of attempts used when none is given.
const DefaultMaxAttempts = 3

// Policy controls how often and how long Do waits between attempts.
type Policy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
	// Jitter is the largest fraction of a delay added at random.
	Jitter float64
}

// DefaultPolicy waits 1s, then 2s, with up to 25% jitter.
var DefaultPolicy = Policy{
	Attempts:  DefaultMaxAttempts,
	BaseDelay: time.Second,
	MaxDelay:  10 * time.Second,
	Jitter:    0.25,
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Do returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Do runs fn under DefaultPolicy with the given number of attempts.
// maxAttempts <= 0 means DefaultMaxAttempts.
func Do(ctx context.Context, maxAttempts int, fn func() error) error {
	p := DefaultPolicy
	if maxAttempts > 0 {
		p.Attempts = maxAttempts
	}
	return p.Do(ctx, fn)
}

// Do calls fn until it succeeds, returns a permanent error, the attempts run
// out or ctx is done. The last error from fn is returned, unwrapped from
// Permanent.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
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
		timer := time.NewTimer(p.backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}

// backoff returns the wait after the given 0-indexed attempt.
func (p Policy) backoff(attempt int) time.Duration {
	delay := p.BaseDelay << attempt
	if p.MaxDelay > 0 && (delay > p.MaxDelay || delay <= 0) {
		delay = p.MaxDelay
	}
	if p.Jitter > 0 {
		delay += time.Duration(float64(delay) * p.Jitter * rand.Float64())
	}
	return delay
}
