//go:build windows

package storage

import (
	"errors"
	"os"

	"golang.org/x/sys/windows"
)

// nativeLockRange is 1 on Windows: LockFileEx locks an explicit byte range,
// and a single byte suffices for mutual exclusion.
const nativeLockRange = 1

// Native locking hooks, declared at package scope so degraded-mode checks
// (nativeLock == nil) are always resolvable, on every platform.
var (
	nativeLock = func(f *os.File) error {
		return windows.LockFileEx(
			windows.Handle(f.Fd()),
			windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY,
			0,
			nativeLockRange, 0,
			&windows.Overlapped{},
		)
	}

	nativeUnlock = func(f *os.File) error {
		return windows.UnlockFileEx(
			windows.Handle(f.Fd()),
			0,
			nativeLockRange, 0,
			&windows.Overlapped{},
		)
	}
)

// lockBusy reports whether err means the lock is held by another process.
func lockBusy(err error) bool {
	return errors.Is(err, windows.ERROR_LOCK_VIOLATION)
}

// lockUnsupported reports whether the handle does not support range locks.
func lockUnsupported(err error) bool {
	return errors.Is(err, windows.ERROR_INVALID_FUNCTION) || errors.Is(err, windows.ERROR_NOT_SUPPORTED)
}
