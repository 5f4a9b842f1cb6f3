package storage

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the storage engine. Callers classify failures with
// [errors.Is]; the typed carriers below add detail via [errors.As].
var (
	// ErrLockTimeout is returned when a lock cannot be acquired within its
	// timeout. Retryable by the caller.
	ErrLockTimeout = errors.New("lock timeout")

	// ErrWrongContext is returned when the blocking lock entry point is
	// misused where it can never succeed (a nested blocking acquire by the
	// goroutine already holding the lock). Programmer error, never retried.
	ErrWrongContext = errors.New("wrong execution context")

	// ErrNotHeld is returned by Release when the lock is not held.
	ErrNotHeld = errors.New("lock not held")

	// ErrStorageTimeout is returned when a single I/O attempt exceeds its
	// deadline. Carries no OS error code.
	ErrStorageTimeout = errors.New("storage timeout")

	// ErrStorageIO is returned when an I/O operation fails after retries
	// are exhausted. Carries the OS error code when one is available.
	ErrStorageIO = errors.New("storage i/o error")

	// ErrInvalidPath is returned for path traversal attempts and for target
	// paths that are directories where a file is required.
	ErrInvalidPath = errors.New("invalid storage path")

	// ErrInvalidDocument is returned when the store file exists but does not
	// validate against the document schema.
	ErrInvalidDocument = errors.New("invalid store document")

	// ErrStoreClosed is returned by operations on a closed store.
	ErrStoreClosed = errors.New("store is closed")
)

// TimeoutError reports that one I/O attempt exceeded its configured
// deadline. It satisfies errors.Is(err, ErrStorageTimeout).
type TimeoutError struct {
	Op      string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Op, e.Timeout)
}

func (e *TimeoutError) Unwrap() error { return ErrStorageTimeout }

// IOError reports an OS-level failure after the retry budget was exhausted.
// Errno is 0 when the underlying error carried no OS error code. It
// satisfies errors.Is(err, ErrStorageIO).
type IOError struct {
	Op    string
	Errno int
	Err   error
}

func (e *IOError) Error() string {
	if e.Errno != 0 {
		return fmt.Sprintf("%s failed (errno %d): %v", e.Op, e.Errno, e.Err)
	}

	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return ErrStorageIO }

// ErrorKind returns the stable metrics label for err. The mapping never
// collapses distinct kinds into a generic bucket.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrWrongContext):
		return "wrong_context"
	case errors.Is(err, ErrLockTimeout):
		return "lock_timeout"
	case errors.Is(err, ErrStorageTimeout):
		return "timeout"
	case errors.Is(err, ErrInvalidPath):
		return "invalid_path"
	case errors.Is(err, ErrInvalidDocument):
		return "invalid_document"
	case errors.Is(err, ErrStorageIO):
		return "io"
	default:
		return "other"
	}
}
