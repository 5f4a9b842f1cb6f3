package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func Test_WriteFileAtomic_Replaces_Target_Contents(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "todos.json")

	if err := writeFileAtomic(context.Background(), path, []byte(`{"todos": []}`)); err != nil {
		t.Fatalf("writeFileAtomic(): %v", err)
	}

	if err := writeFileAtomic(context.Background(), path, []byte(`{"todos": [{"id": 1, "text": "x"}]}`)); err != nil {
		t.Fatalf("writeFileAtomic() second: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(): %v", err)
	}

	if want := `{"todos": [{"id": 1, "text": "x"}]}`; string(data) != want {
		t.Fatalf("contents = %q, want %q", data, want)
	}
}

func Test_WriteFileAtomic_Sets_Owner_Only_Permissions(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("unix permission bits")
	}

	path := filepath.Join(t.TempDir(), "todos.json")

	if err := writeFileAtomic(context.Background(), path, []byte(`{"todos": []}`)); err != nil {
		t.Fatalf("writeFileAtomic(): %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat(): %v", err)
	}

	if got := info.Mode().Perm(); got != snapshotPerm {
		t.Fatalf("mode = %o, want %o", got, snapshotPerm)
	}

	if info.Mode().Perm()&0o111 != 0 {
		t.Fatalf("mode = %o, want no execute bits", info.Mode().Perm())
	}
}

func Test_WriteFileAtomic_Fails_When_Target_Is_A_Directory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	err := writeFileAtomic(context.Background(), dir, []byte(`{"todos": []}`))
	if !errors.Is(err, ErrInvalidPath) {
		t.Fatalf("writeFileAtomic(dir): err=%v, want %v", err, ErrInvalidPath)
	}

	if !strings.Contains(err.Error(), "directory") {
		t.Fatalf("writeFileAtomic(dir): err=%q, want mention of %q", err, "directory")
	}
}

func Test_WriteFileAtomic_Never_Renames_After_Ctx_Ends(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "todos.json")

	if err := writeFileAtomic(context.Background(), path, []byte(`{"todos": [{"id": 1, "text": "fresh"}]}`)); err != nil {
		t.Fatalf("writeFileAtomic(): %v", err)
	}

	// A write attempt abandoned by its deadline must not replace the target
	// with its stale snapshot once a newer save has landed.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := writeFileAtomic(ctx, path, []byte(`{"todos": []}`))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("writeFileAtomic() with ended ctx: err=%v, want %v", err, context.Canceled)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(): %v", err)
	}

	if want := `{"todos": [{"id": 1, "text": "fresh"}]}`; string(data) != want {
		t.Fatalf("contents = %q, want %q", data, want)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir(): %v", err)
	}

	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Fatalf("leftover temp file %s", e.Name())
		}
	}
}

func Test_WriteFileAtomic_Leaves_No_Temp_Files_On_Success(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "todos.json")

	if err := writeFileAtomic(context.Background(), path, []byte(`{"todos": []}`)); err != nil {
		t.Fatalf("writeFileAtomic(): %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir(): %v", err)
	}

	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Fatalf("leftover temp file %s", e.Name())
		}
	}
}
