package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"syscall"
	"testing"
	"time"
)

func Test_WithRetry_Succeeds_First_Attempt(t *testing.T) {
	t.Parallel()

	metrics := NewIOMetrics()

	calls := 0

	err := withRetry(context.Background(), "op", RetryOptions{}, metrics, func(context.Context) error {
		calls++

		return nil
	})
	if err != nil {
		t.Fatalf("withRetry(): %v", err)
	}

	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}

	if got := metrics.TotalOperations(); got != 1 {
		t.Fatalf("TotalOperations() = %d, want 1", got)
	}
}

func Test_WithRetry_Retries_Transient_Failures_Then_Succeeds(t *testing.T) {
	t.Parallel()

	metrics := NewIOMetrics()

	calls := 0

	err := withRetry(context.Background(), "op", RetryOptions{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
	}, metrics, func(context.Context) error {
		calls++
		if calls < 3 {
			return fmt.Errorf("flaky: %w", syscall.EIO)
		}

		return nil
	})
	if err != nil {
		t.Fatalf("withRetry(): %v", err)
	}

	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}

	// Every attempt is reported, failures included.
	if got := metrics.TotalOperations(); got != 3 {
		t.Fatalf("TotalOperations() = %d, want 3", got)
	}
}

func Test_WithRetry_Surfaces_IOError_With_Errno_When_Attempts_Exhausted(t *testing.T) {
	t.Parallel()

	err := withRetry(context.Background(), "op", RetryOptions{
		MaxAttempts:    2,
		InitialBackoff: time.Millisecond,
	}, nil, func(context.Context) error {
		return fmt.Errorf("disk full: %w", syscall.ENOSPC)
	})

	if !errors.Is(err, ErrStorageIO) {
		t.Fatalf("withRetry(): err=%v, want %v", err, ErrStorageIO)
	}

	var ioErr *IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("withRetry(): err=%v, want *IOError", err)
	}

	if ioErr.Errno != int(syscall.ENOSPC) {
		t.Fatalf("Errno = %d, want %d", ioErr.Errno, int(syscall.ENOSPC))
	}
}

func Test_WithRetry_Timeout_Yields_TimeoutError_With_Configured_Value(t *testing.T) {
	t.Parallel()

	timeout := 25 * time.Millisecond

	err := withRetry(context.Background(), "write", RetryOptions{
		Timeout:     timeout,
		MaxAttempts: 3,
	}, nil, func(ctx context.Context) error {
		<-ctx.Done()

		// Hang past the deadline; the attempt is abandoned.
		time.Sleep(10 * time.Millisecond)

		return ctx.Err()
	})

	if !errors.Is(err, ErrStorageTimeout) {
		t.Fatalf("withRetry(): err=%v, want %v", err, ErrStorageTimeout)
	}

	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("withRetry(): err=%v, want *TimeoutError", err)
	}

	if timeoutErr.Timeout != timeout {
		t.Fatalf("Timeout = %v, want %v", timeoutErr.Timeout, timeout)
	}

	if !strings.Contains(err.Error(), timeout.String()) {
		t.Fatalf("error message %q does not contain the configured timeout %q", err, timeout)
	}
}

func Test_WithRetry_Timeout_Is_Never_Retried(t *testing.T) {
	t.Parallel()

	calls := 0

	err := withRetry(context.Background(), "op", RetryOptions{
		Timeout:     10 * time.Millisecond,
		MaxAttempts: 5,
	}, nil, func(ctx context.Context) error {
		calls++
		<-ctx.Done()

		return ctx.Err()
	})

	if !errors.Is(err, ErrStorageTimeout) {
		t.Fatalf("withRetry(): err=%v, want %v", err, ErrStorageTimeout)
	}

	if calls != 1 {
		t.Fatalf("calls = %d, want 1 (timeouts are deterministic failures)", calls)
	}
}

func Test_WithRetry_Timeout_Carries_No_Errno(t *testing.T) {
	t.Parallel()

	err := withRetry(context.Background(), "op", RetryOptions{
		Timeout: 10 * time.Millisecond,
	}, nil, func(ctx context.Context) error {
		<-ctx.Done()

		return ctx.Err()
	})

	var ioErr *IOError
	if errors.As(err, &ioErr) {
		t.Fatalf("timeout misclassified as *IOError (errno %d)", ioErr.Errno)
	}
}

func Test_WithRetry_Cancellation_Propagates_Unretried(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())

	calls := 0

	err := withRetry(ctx, "op", RetryOptions{MaxAttempts: 5}, nil, func(context.Context) error {
		calls++
		cancel()

		return context.Canceled
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("withRetry(): err=%v, want %v", err, context.Canceled)
	}

	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}
