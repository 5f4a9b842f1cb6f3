package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
)

// Stale-lock reclamation defaults. A sidecar lock file whose mtime is older
// than the threshold is treated as abandoned by a dead process and removed.
const (
	DefaultStaleLockThreshold = 300 * time.Second

	// StaleLockEnvVar overrides the threshold in seconds. Non-numeric or
	// non-positive values silently fall back to the default.
	StaleLockEnvVar = "FLYWHEEL_LOCK_STALE_SECONDS"
)

const (
	lockFilePerm   = 0o600
	lockBackoff    = 10 * time.Millisecond
	lockBackoffCap = 100 * time.Millisecond
)

// FileLock is an advisory exclusive lock on a target path, usable across
// processes. It locks a sidecar "<target>.lock" file so the target itself
// can be atomically replaced while the lock is held.
//
// The native primitive is flock on Unix and LockFileEx (1-byte range) on
// Windows. On platforms with neither, or when the filesystem rejects
// locking at runtime, the lock runs in degraded mode: native locking is
// skipped, a warning is logged once, and same-process safety is left to the
// in-process [DualLock]. Cross-process safety is then not guaranteed; this
// is a documented trade-off, not a failure.
type FileLock struct {
	path       string
	timeout    time.Duration
	staleAfter time.Duration
	logger     *log.Logger

	// rangeBytes is the locked byte range: 0 on Unix (whole-file flock),
	// 1 on Windows. Fixed at construction so that a release issued before
	// any acquire never touches uninitialized state.
	rangeBytes int

	degraded bool
	warned   bool

	file   *os.File
	locked bool
}

// FileLockOptions configures a [FileLock].
type FileLockOptions struct {
	// Timeout bounds one Lock call. Zero means DefaultLockTimeout.
	Timeout time.Duration

	// StaleAfter overrides the stale-lock threshold. Zero consults
	// StaleLockEnvVar, then DefaultStaleLockThreshold.
	StaleAfter time.Duration

	Logger *log.Logger
}

// NewFileLock creates a lock for target. The sidecar lock file is
// "<target>.lock".
func NewFileLock(target string, opts FileLockOptions) *FileLock {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}

	stale := opts.StaleAfter
	if stale <= 0 {
		stale = staleLockThreshold()
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &FileLock{
		path:       target + ".lock",
		timeout:    timeout,
		staleAfter: stale,
		logger:     logger,
		rangeBytes: nativeLockRange,
		degraded:   nativeLock == nil,
	}
}

// Degraded reports whether native locking is unavailable.
func (l *FileLock) Degraded() bool { return l.degraded }

// RangeBytes returns the platform byte range the lock covers.
func (l *FileLock) RangeBytes() int { return l.rangeBytes }

// Lock acquires the advisory lock, polling with backoff until it is held,
// ctx is done, or the timeout expires ([ErrLockTimeout]).
//
// A lock file older than the staleness threshold is reclaimed: removed once,
// with acquisition retried against the fresh file.
func (l *FileLock) Lock(ctx context.Context) error {
	if l.locked {
		return nil
	}

	if l.degraded {
		l.warnDegraded()

		l.locked = true

		return nil
	}

	deadline := time.Now().Add(l.timeout)
	backoff := lockBackoff
	reclaimed := false

	for {
		file, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, lockFilePerm)
		if err != nil {
			return fmt.Errorf("opening lock file %s: %w", l.path, err)
		}

		lockErr := nativeLock(file)
		if lockErr == nil {
			// Touch so a long-held lock is not mistaken for stale by peers.
			now := time.Now()
			_ = os.Chtimes(l.path, now, now)

			l.file = file
			l.locked = true

			return nil
		}

		_ = file.Close()

		if lockUnsupported(lockErr) {
			// Filesystem without advisory locking (network mounts, some
			// containers). Degrade at runtime instead of failing the store.
			l.degraded = true
			l.warnDegraded()

			l.locked = true

			return nil
		}

		if !lockBusy(lockErr) {
			return fmt.Errorf("locking %s: %w", l.path, lockErr)
		}

		if !reclaimed && l.reclaimStale() {
			reclaimed = true

			continue
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return fmt.Errorf("%w: could not lock %s after %s", ErrLockTimeout, l.path, l.timeout)
		}

		sleep := backoff
		if sleep > remaining {
			sleep = remaining
		}

		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			return ctx.Err()
		}

		if backoff < lockBackoffCap {
			backoff *= 2
		}
	}
}

// Unlock releases the lock. Calling Unlock before any successful Lock is a
// safe no-op; errors during release are reported but leave the lock marked
// free so the caller's cleanup path stays idempotent.
func (l *FileLock) Unlock() error {
	if !l.locked {
		return nil
	}

	l.locked = false

	if l.file == nil {
		// Degraded-mode handle is a placeholder with no OS state.
		return nil
	}

	unlockErr := nativeUnlock(l.file)
	closeErr := l.file.Close()
	l.file = nil

	if unlockErr != nil {
		unlockErr = fmt.Errorf("unlocking %s: %w", l.path, unlockErr)
	}

	if closeErr != nil {
		closeErr = fmt.Errorf("closing lock file %s: %w", l.path, closeErr)
	}

	return errors.Join(unlockErr, closeErr)
}

// Close releases any held lock. Idempotent.
func (l *FileLock) Close() error {
	return l.Unlock()
}

// reclaimStale removes the lock file if its mtime is older than the
// staleness threshold. Reports whether a reclamation happened.
func (l *FileLock) reclaimStale() bool {
	info, err := os.Stat(l.path)
	if err != nil {
		return false
	}

	age := time.Since(info.ModTime())
	if age < l.staleAfter {
		return false
	}

	if err := os.Remove(l.path); err != nil {
		return false
	}

	l.logger.Warn("reclaimed stale lock file",
		"path", l.path,
		"age", age.Truncate(time.Second),
		"threshold", l.staleAfter,
	)

	return true
}

func (l *FileLock) warnDegraded() {
	if l.warned {
		return
	}

	l.warned = true

	l.logger.Warn("native file locking unavailable; falling back to in-process locking only",
		"path", l.path,
	)
}

// staleLockThreshold resolves the stale-lock threshold from the environment,
// falling back to the default for missing, non-numeric, or non-positive
// values.
func staleLockThreshold() time.Duration {
	raw := os.Getenv(StaleLockEnvVar)
	if raw == "" {
		return DefaultStaleLockThreshold
	}

	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil || secs <= 0 {
		return DefaultStaleLockThreshold
	}

	return time.Duration(secs * float64(time.Second))
}
