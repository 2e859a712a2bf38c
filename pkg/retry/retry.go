// Package retry retries failing operations with exponential backoff and
// jitter. Used for external calls that fail transiently, like the SMTP relay.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// transientError marks an error as worth retrying.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Retryable marks an error as transient. Unmarked errors stop the retry loop
// immediately.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsRetryable reports whether the error was marked with Retryable.
func IsRetryable(err error) bool {
	var t *transientError
	return errors.As(err, &t)
}

// Policy controls the backoff sequence.
type Policy struct {
	// MaxAttempts counts the first try too.
	MaxAttempts int

	// InitialDelay is the pause before the first retry.
	InitialDelay time.Duration

	// MaxDelay caps the backoff growth.
	MaxDelay time.Duration

	// Multiplier grows the delay after each failed attempt.
	Multiplier float64

	// Jitter in [0,1] randomizes each delay by up to that fraction either
	// way, spreading out retries from concurrent callers.
	Jitter float64
}

// DefaultPolicy is three attempts with 100ms initial backoff doubling up to 30s.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       0.1,
	}
}

// Retrier executes operations under a Policy.
type Retrier struct {
	policy Policy
}

// New creates a Retrier. Zero or invalid policy fields fall back to the
// defaults.
func New(p Policy) *Retrier {
	def := DefaultPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = def.InitialDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = def.MaxDelay
	}
	if p.Multiplier < 1 {
		p.Multiplier = def.Multiplier
	}
	if p.Jitter < 0 || p.Jitter > 1 {
		p.Jitter = def.Jitter
	}
	return &Retrier{policy: p}
}

// SMTPRetrier is tuned for mail relay calls: few attempts, generous backoff,
// extra jitter so a burst of notifications does not retry in lockstep.
func SMTPRetrier() *Retrier {
	return New(Policy{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		Jitter:       0.2,
	})
}

// Do runs the operation until it succeeds, fails permanently, exhausts the
// attempt budget, or the context ends. Only errors marked with Retryable are
// retried; the final error is returned unwrapped.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		err := op(ctx)
		if err == nil {
			return nil
		}

		if !IsRetryable(err) {
			return err
		}
		lastErr = errors.Unwrap(err)

		if attempt >= r.policy.MaxAttempts {
			return lastErr
		}

		select {
		case <-ctx.Done():
			return lastErr
		case <-time.After(r.delay(attempt)):
		}
	}
}

func (r *Retrier) delay(attempt int) time.Duration {
	d := float64(r.policy.InitialDelay) * math.Pow(r.policy.Multiplier, float64(attempt-1))
	if d > float64(r.policy.MaxDelay) {
		d = float64(r.policy.MaxDelay)
	}
	if r.policy.Jitter > 0 {
		d += d * r.policy.Jitter * (rand.Float64()*2 - 1)
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}
