//go:build unix

package storage

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// nativeLockRange is 0 on Unix: flock locks the whole file, not a range.
const nativeLockRange = 0

// Native locking hooks, declared at package scope so degraded-mode checks
// (nativeLock == nil) are always resolvable, on every platform.
var (
	nativeLock = func(f *os.File) error {
		return unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	}

	nativeUnlock = func(f *os.File) error {
		return unix.Flock(int(f.Fd()), unix.LOCK_UN)
	}
)

// lockBusy reports whether err means the lock is held by another process.
func lockBusy(err error) bool {
	return errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EAGAIN)
}

// lockUnsupported reports whether the filesystem rejects advisory locking
// outright (network mounts and some container filesystems).
func lockUnsupported(err error) bool {
	return errors.Is(err, unix.ENOTSUP) || errors.Is(err, unix.EOPNOTSUPP) || errors.Is(err, unix.ENOSYS)
}
