package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"
)

// DefaultLockTimeout is used when neither an explicit timeout nor a
// timeout range is configured.
const DefaultLockTimeout = 10 * time.Second

// TimeoutRange is a convenience default for the lock timeout: the midpoint
// of [Min, Max] is used. An explicit LockTimeout always wins over a range.
type TimeoutRange struct {
	Min time.Duration
	Max time.Duration
}

// Midpoint returns the middle of the range.
func (r TimeoutRange) Midpoint() time.Duration {
	return (r.Min + r.Max) / 2
}

// DualLockOptions configures a [DualLock].
type DualLockOptions struct {
	// LockTimeout bounds AcquireBlocking. Takes precedence over
	// TimeoutRange when both are set.
	LockTimeout time.Duration

	// TimeoutRange supplies a default timeout (its midpoint) when
	// LockTimeout is zero.
	TimeoutRange *TimeoutRange
}

// DualLock is a mutual-exclusion primitive with two entry points sharing one
// state machine: [DualLock.AcquireBlocking] for plain callers and
// [DualLock.Acquire] for cooperative callers that need cancellation.
//
// A blocking acquire nested inside a region that already holds the lock can
// never succeed; instead of deadlocking, AcquireBlocking detects that
// nesting and fails with [ErrWrongContext] naming the correct asynchronous
// entry point.
type DualLock struct {
	sem     chan struct{}
	timeout time.Duration

	mu    sync.Mutex
	owner uint64 // goroutine id of the holder, 0 when free
}

// NewDualLock creates a DualLock. The acquisition timeout resolves as:
// explicit LockTimeout if set, else the TimeoutRange midpoint, else
// [DefaultLockTimeout].
func NewDualLock(opts DualLockOptions) *DualLock {
	timeout := opts.LockTimeout
	if timeout <= 0 && opts.TimeoutRange != nil {
		timeout = opts.TimeoutRange.Midpoint()
	}

	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}

	return &DualLock{
		sem:     make(chan struct{}, 1),
		timeout: timeout,
	}
}

// Timeout returns the resolved acquisition timeout.
func (l *DualLock) Timeout() time.Duration {
	return l.timeout
}

// AcquireBlocking acquires the lock, blocking up to the configured timeout.
//
// Returns [ErrLockTimeout] if the lock is not acquired in time, and
// [ErrWrongContext] immediately if the calling goroutine already holds the
// lock - the nested blocking wait that would otherwise deadlock.
func (l *DualLock) AcquireBlocking() error {
	gid := goroutineID()

	l.mu.Lock()
	held := l.owner != 0 && l.owner == gid
	l.mu.Unlock()

	if held {
		return fmt.Errorf(
			"%w: blocking acquire while this goroutine already holds the lock; asynchronous callers must use Acquire(ctx)",
			ErrWrongContext,
		)
	}

	timer := time.NewTimer(l.timeout)
	defer timer.Stop()

	select {
	case l.sem <- struct{}{}:
		l.setOwner(gid)

		return nil
	case <-timer.C:
		return fmt.Errorf("%w: could not acquire lock after %s", ErrLockTimeout, l.timeout)
	}
}

// Acquire acquires the lock cooperatively, suspending the caller until the
// lock is free or ctx is done. It never blocks past cancellation.
//
// Deadline expiry maps to [ErrLockTimeout]; plain cancellation propagates
// [context.Canceled] unchanged.
func (l *DualLock) Acquire(ctx context.Context) error {
	select {
	case l.sem <- struct{}{}:
		// Won the race against cancellation; if ctx was already done, give
		// the lock back before reporting.
		if err := ctx.Err(); err != nil {
			<-l.sem

			return l.acquireCtxErr(err)
		}

		l.setOwner(goroutineID())

		return nil
	case <-ctx.Done():
		return l.acquireCtxErr(ctx.Err())
	}
}

func (l *DualLock) acquireCtxErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrLockTimeout, err)
	}

	return err
}

// Release releases the lock. Releasing a lock that is not held is a
// programming error and returns [ErrNotHeld] rather than being swallowed.
func (l *DualLock) Release() error {
	l.mu.Lock()

	if l.owner == 0 {
		l.mu.Unlock()

		return ErrNotHeld
	}

	l.owner = 0
	l.mu.Unlock()

	<-l.sem

	return nil
}

// TryAcquire acquires the lock only if it is immediately free.
func (l *DualLock) TryAcquire() bool {
	select {
	case l.sem <- struct{}{}:
		l.setOwner(goroutineID())

		return true
	default:
		return false
	}
}

func (l *DualLock) setOwner(gid uint64) {
	l.mu.Lock()
	l.owner = gid
	l.mu.Unlock()
}

// goroutineID extracts the current goroutine's id from the stack header
// ("goroutine N [running]:"). Used only for the nested-acquire guard; ids
// are never stored across goroutine lifetimes.
func goroutineID() uint64 {
	var buf [64]byte

	n := runtime.Stack(buf[:], false)

	fields := bytes.Fields(buf[:n])
	if len(fields) < 2 {
		return 0
	}

	id, err := strconv.ParseUint(string(fields[1]), 10, 64)
	if err != nil {
		return 0
	}

	return id
}
