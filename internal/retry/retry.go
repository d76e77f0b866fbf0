// Package retry provides a generic retry helper with linear backoff for remote calls.
package retry

import (
	"context"
	"fmt"
	"log"
	"time"
)

const (
	// DefaultMaxAttempts is the number of attempts used when Options.MaxAttempts is unset
	DefaultMaxAttempts = 3
	// DefaultBaseDelay is the delay unit used when Options.BaseDelay is unset
	DefaultBaseDelay = time.Second
)

// Options configures Do.
type Options struct {
	MaxAttempts int
	// BaseDelay is multiplied by the attempt number that just failed:
	// BaseDelay after attempt 1, 2*BaseDelay after attempt 2, ...
	BaseDelay time.Duration
	// Verbose logs every failed attempt
	Verbose bool
}

// DefaultOptions returns the defaults used by the API client.
func DefaultOptions() Options {
	return Options{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
	}
}

// ExhaustedError is returned when every attempt failed. It wraps the last error.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all %d attempts failed: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// Delay returns the wait after the given failed attempt (1-based).
func Delay(base time.Duration, attempt int) time.Duration {
	return base * time.Duration(attempt)
}

// Do runs op until it succeeds or MaxAttempts attempts have failed.
// The first success short-circuits the remaining attempts. Context
// cancellation during a wait stops the loop and returns the context error
// wrapped together with the last failure.
func Do[T any](ctx context.Context, op func(ctx context.Context) (T, error), opts Options) (T, error) {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.BaseDelay < 0 {
		opts.BaseDelay = 0
	}

	var zero T
	var lastErr error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if opts.Verbose {
			log.Printf("[retry] attempt %d/%d failed: %v", attempt, opts.MaxAttempts, err)
		}

		if attempt == opts.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("retry aborted after attempt %d: %w (last error: %v)", attempt, ctx.Err(), lastErr)
		case <-time.After(Delay(opts.BaseDelay, attempt)):
		}
	}

	return zero, &ExhaustedError{Attempts: opts.MaxAttempts, Last: lastErr}
}
