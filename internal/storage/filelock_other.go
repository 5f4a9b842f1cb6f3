//go:build !unix && !windows

package storage

import "os"

// No native locking primitive on this platform. The hooks stay declared at
// package scope, as nil, so degraded-mode checks read "unavailable" instead
// of failing to resolve; [FileLock] then relies on [DualLock] for
// same-process safety only.
const nativeLockRange = 0

var (
	nativeLock   func(f *os.File) error
	nativeUnlock func(f *os.File) error
)

func lockBusy(_ error) bool { return false }

func lockUnsupported(_ error) bool { return false }
