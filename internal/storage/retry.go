package storage

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"time"
)

// Retry defaults.
const (
	DefaultAttemptTimeout = 5 * time.Second
	DefaultMaxAttempts    = 3
	DefaultInitialBackoff = 50 * time.Millisecond
)

// RetryOptions bounds one retried I/O operation.
type RetryOptions struct {
	// Timeout is the deadline for each individual attempt.
	Timeout time.Duration

	// MaxAttempts is the total attempt budget (first try included).
	MaxAttempts int

	// InitialBackoff is the sleep before the second attempt; it doubles on
	// each subsequent attempt.
	InitialBackoff time.Duration
}

func (o RetryOptions) withDefaults() RetryOptions {
	if o.Timeout <= 0 {
		o.Timeout = DefaultAttemptTimeout
	}

	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}

	if o.InitialBackoff <= 0 {
		o.InitialBackoff = DefaultInitialBackoff
	}

	return o
}

// withRetry executes fn with a per-attempt deadline and bounded exponential
// backoff, reporting every attempt to metrics.
//
// Failure taxonomy:
//   - an attempt that exceeds opts.Timeout yields a [*TimeoutError] carrying
//     the configured timeout; timeouts are deterministic and never retried
//   - cancellation of ctx propagates unchanged and is never retried
//   - any other failure is retried until the attempt budget is exhausted,
//     then surfaced as a [*IOError] with the OS error code when one exists
func withRetry(ctx context.Context, op string, opts RetryOptions, metrics *IOMetrics, fn func(ctx context.Context) error) error {
	opts = opts.withDefaults()

	backoff := opts.InitialBackoff

	var lastErr error

	for attempt := 0; attempt < opts.MaxAttempts; attempt++ {
		start := time.Now()
		err := runAttempt(ctx, opts.Timeout, fn)

		if err != nil {
			err = classifyAttemptErr(op, opts.Timeout, err)
		}

		metrics.Record(OperationRecord{
			Op:        op,
			Duration:  time.Since(start),
			Retries:   attempt,
			Success:   err == nil,
			ErrorKind: ErrorKind(err),
		})

		if err == nil {
			return nil
		}

		lastErr = err

		// Timeouts and caller cancellation are deterministic failures.
		if errors.Is(err, ErrStorageTimeout) || errors.Is(err, context.Canceled) {
			return err
		}

		if attempt+1 < opts.MaxAttempts {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}

			backoff *= 2
		}
	}

	return fmt.Errorf("%s: attempts exhausted: %w", op, lastErr)
}

// runAttempt races one invocation of fn against the attempt deadline. A
// timed-out attempt is abandoned: its goroutine finishes into a buffered
// channel nobody reads.
func runAttempt(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)

	go func() {
		done <- fn(attemptCtx)
	}()

	select {
	case err := <-done:
		return err
	case <-attemptCtx.Done():
		if err := ctx.Err(); err != nil {
			// The caller's context ended, not the attempt deadline.
			return err
		}

		return context.DeadlineExceeded
	}
}

// classifyAttemptErr maps a raw attempt failure into the storage taxonomy.
//
// A timeout carries no OS error code, so the timeout branch never inspects
// an errno; only genuine OS failures go through errno extraction.
func classifyAttemptErr(op string, timeout time.Duration, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Op: op, Timeout: timeout}
	}

	if errors.Is(err, ErrInvalidPath) || errors.Is(err, ErrInvalidDocument) {
		return err
	}

	return &IOError{Op: op, Errno: errnoOf(err), Err: err}
}

// errnoOf returns the OS error code wrapped inside err, or 0 when none is
// present.
func errnoOf(err error) int {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return int(errno)
	}

	return 0
}
