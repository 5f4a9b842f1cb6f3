package storage

import (
	"bytes"
	"fmt"
	"os"

	"github.com/natefinch/atomic"
)

// rotateBackups preserves the current snapshot before it is replaced.
//
// The newest backup is "<path>.bak"; older generations shift to
// "<path>.bak.1" through "<path>.bak.<count-1>", dropping the oldest. A
// missing target is a no-op (first save has nothing to preserve).
func rotateBackups(path string, count int) error {
	if count <= 0 {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return fmt.Errorf("reading current snapshot for backup: %w", err)
	}

	// Shift older generations up, oldest first.
	for i := count - 1; i >= 1; i-- {
		src := backupName(path, i-1)
		dst := backupName(path, i)

		if _, err := os.Stat(src); err != nil {
			continue
		}

		if err := os.Rename(src, dst); err != nil {
			return fmt.Errorf("rotating backup %s: %w", src, err)
		}
	}

	if err := atomic.WriteFile(backupName(path, 0), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("writing backup: %w", err)
	}

	return nil
}

// backupName returns the backup path for generation gen (0 = newest).
func backupName(path string, gen int) string {
	if gen == 0 {
		return path + ".bak"
	}

	return fmt.Sprintf("%s.bak.%d", path, gen)
}
