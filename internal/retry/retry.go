// Package retry applies bounded exponential backoff with jitter to remote
// operations. Callers supply a classifier that decides whether a failure is
// transient; permanent failures propagate immediately without consuming an
// attempt's backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// Classifier reports whether an error is transient and worth retrying.
type Classifier func(error) bool

// Policy describes backoff behavior for a class of operations.
type Policy struct {
	// MaxAttempts bounds the total number of tries (initial call included).
	MaxAttempts int
	// BaseDelay seeds the exponential backoff.
	BaseDelay time.Duration
	// MaxDelay caps the exponential component of the backoff.
	MaxDelay time.Duration
	// Jitter bounds the uniform random addition to each delay. Zero disables
	// jitter (used by tests that assert exact delays).
	Jitter time.Duration

	// Sleep overrides the delay implementation. Nil means a context-aware
	// time.Sleep.
	Sleep func(context.Context, time.Duration) error
}

// Default returns the policy used for remote store calls.
func Default() Policy {
	return Policy{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
		Jitter:      time.Second,
	}
}

// ExhaustedError reports that every attempt failed with a transient error.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// IsExhausted reports whether err carries an ExhaustedError.
func IsExhausted(err error) bool {
	var exhausted *ExhaustedError
	return errors.As(err, &exhausted)
}

// Do runs op, retrying transient failures per the policy. The delay before
// retry k is min(MaxDelay, BaseDelay*2^k) plus uniform jitter. Permanent
// failures (classifier returns false) and context cancellation propagate
// immediately; exhausting all attempts returns an ExhaustedError wrapping the
// last transient failure.
func (p Policy) Do(ctx context.Context, transient Classifier, op func(context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if transient != nil && !transient(err) {
			return err
		}
		lastErr = err

		if attempt == attempts {
			break
		}
		if err := p.sleep(ctx, p.delay(attempt)); err != nil {
			return err
		}
	}
	return &ExhaustedError{Attempts: attempts, Err: lastErr}
}

func (p Policy) delay(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = time.Second
	}
	delay := base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			delay = p.MaxDelay
			break
		}
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	if p.Jitter > 0 {
		delay += time.Duration(rand.Int63n(int64(p.Jitter)))
	}
	return delay
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
