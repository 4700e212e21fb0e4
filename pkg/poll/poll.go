// Package poll implements bounded, cancellable polling of remote resources.
//
// Polling is paced with a token-bucket limiter rather than a bare sleep so the
// wait between attempts observes context cancellation and deadlines.
package poll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Default pacing for readiness polling.
const (
	DefaultInterval    = 2 * time.Second
	DefaultMaxAttempts = 30
)

// ErrExhausted indicates that every attempt completed without reaching a
// terminal state.
var ErrExhausted = errors.New("poll attempts exhausted")

// Config controls polling cadence.
type Config struct {
	// Interval is the minimum spacing between two consecutive attempts.
	// Zero or negative disables pacing.
	Interval time.Duration

	// MaxAttempts bounds the number of checks. Values below 1 use
	// DefaultMaxAttempts.
	MaxAttempts int
}

// DefaultConfig returns the default polling configuration (2s x 30).
func DefaultConfig() Config {
	return Config{
		Interval:    DefaultInterval,
		MaxAttempts: DefaultMaxAttempts,
	}
}

// WorstCaseWait is the upper bound on time spent waiting between attempts.
func (c Config) WorstCaseWait() time.Duration {
	return c.Interval * time.Duration(c.attempts())
}

func (c Config) attempts() int {
	if c.MaxAttempts < 1 {
		return DefaultMaxAttempts
	}
	return c.MaxAttempts
}

// ExhaustedError reports how many checks ran before giving up.
type ExhaustedError struct {
	Attempts int
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%v after %d attempts", ErrExhausted, e.Attempts)
}

// Unwrap returns ErrExhausted for errors.Is support.
func (e *ExhaustedError) Unwrap() error {
	return ErrExhausted
}

// CheckFunc performs one attempt. It returns done=true once the resource is
// in a terminal success state. A non-nil error stops polling immediately and
// is returned unchanged.
type CheckFunc[T any] func(ctx context.Context, attempt int) (value T, done bool, err error)

// Until calls check until it reports done, returns an error, the context is
// cancelled, or MaxAttempts checks have run. The first check runs without
// waiting; no wait follows the final check.
//
// On exhaustion the last observed value is returned with an *ExhaustedError.
func Until[T any](ctx context.Context, cfg Config, check CheckFunc[T]) (T, error) {
	var last T
	if check == nil {
		return last, errors.New("poll check is nil")
	}

	maxAttempts := cfg.attempts()
	limit := rate.Inf
	if cfg.Interval > 0 {
		limit = rate.Every(cfg.Interval)
	}
	limiter := rate.NewLimiter(limit, 1)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := wait(ctx, limiter); err != nil {
			return last, err
		}

		value, done, err := check(ctx, attempt)
		last = value
		if err != nil {
			return last, err
		}
		if done {
			return last, nil
		}
	}

	return last, &ExhaustedError{Attempts: maxAttempts}
}

// wait blocks until limiter grants a token or ctx is done. Unlike
// rate.Limiter.Wait it sleeps until the deadline instead of failing early, so
// callers always see ctx.Err().
func wait(ctx context.Context, limiter *rate.Limiter) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r := limiter.Reserve()
	if !r.OK() {
		return errors.New("poll limiter cannot grant a token")
	}
	delay := r.Delay()
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	}
}
