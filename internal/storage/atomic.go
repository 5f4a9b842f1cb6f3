package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// snapshotPerm is owner read/write only, no execute. Applied to the temp
// file before any data is written so no wider-mode window ever exists.
const snapshotPerm os.FileMode = 0o600

// writeFileAtomic durably replaces the file at path with data.
//
// The snapshot goes to a temp file in the same directory (same filesystem,
// required for an atomic rename), is restricted to owner read/write, synced,
// and renamed over the target. Readers observe either the old contents or
// the new, never a partial write. The temp file is removed on any failure,
// and a snapshot whose ctx ended mid-write is never renamed over the target.
func writeFileAtomic(ctx context.Context, path string, data []byte) error {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return fmt.Errorf("%w: %s is a directory; the store path must be a file", ErrInvalidPath, path)
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)

	// CreateTemp opens with O_EXCL and mode 0600: the restrictive mode is in
	// place before the first byte is written.
	tmp, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", dir, err)
	}

	tmpPath := tmp.Name()

	cleanup := true
	defer func() {
		if cleanup {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	// Re-apply in case the platform widened the mode at creation. Chmod is
	// not supported on every platform; skip, never fail the write over it.
	_ = tmp.Chmod(snapshotPerm)

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing snapshot: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing snapshot: %w", err)
	}

	// An attempt abandoned by its deadline may still be running here after
	// the caller moved on and released the locks. Its stale snapshot must
	// not land over whatever was written since.
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}

	cleanup = false

	// Directory sync makes the rename itself durable on filesystems that
	// need it. The snapshot is already safely in place if this fails.
	_ = syncDir(dir)

	return nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()

	return d.Sync()
}
