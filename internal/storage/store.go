// Package storage is the persistence engine: crash-safe atomic snapshot
// writes, cross-process advisory locking, dual blocking/cooperative lock
// entry points, bounded-retry I/O, and operation metrics over a single
// JSON file of todo records.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/charmbracelet/log"

	"flywheel/internal/todo"
)

const parentDirPerm os.FileMode = 0o755

// document is the on-disk shape: a single top-level "todos" collection.
// There is no version field; schema evolution is the record type's concern.
type document struct {
	Todos []todo.Todo `json:"todos"`
}

// StoreOptions configures a [Store]. The zero value is usable.
type StoreOptions struct {
	// LockTimeout bounds both the in-process and the file lock. Wins over
	// TimeoutRange when both are set.
	LockTimeout time.Duration

	// TimeoutRange supplies a default lock timeout (its midpoint) when
	// LockTimeout is zero.
	TimeoutRange *TimeoutRange

	// Retry tunes the per-attempt deadline and backoff for file I/O.
	Retry RetryOptions

	// BackupCount is how many rotated .bak generations to keep. Zero
	// disables backups.
	BackupCount int

	// DisableCache turns off the write-through snapshot cache.
	DisableCache bool

	// StaleLockAfter overrides the stale-lock reclamation threshold.
	StaleLockAfter time.Duration

	// Metrics is the process-wide metrics instance. Optional.
	Metrics *IOMetrics

	Logger *log.Logger
}

// Store is the user-facing persistence API over one JSON file.
//
// Within the process, one operation is in flight per store at a time
// (serialized by the dual lock); across processes, writers are serialized by
// the advisory file lock, best-effort under degraded mode. Readers take the
// same locks as writers - no separate read path.
type Store struct {
	path    string
	lock    *DualLock
	flock   *FileLock
	retry   RetryOptions
	backups int
	metrics *IOMetrics
	logger  *log.Logger

	mu         sync.Mutex
	cacheOn    bool
	cache      []todo.Todo
	cacheStamp time.Time
	cacheSize  int64
	cacheOK    bool
	closed     bool
}

// NewStore creates a store for path.
//
// Paths containing parent-directory traversal segments are rejected with
// [ErrInvalidPath]. Absolute paths are permitted; the caller controls the
// filesystem.
func NewStore(path string, opts StoreOptions) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}

	if hasTraversal(path) {
		return nil, fmt.Errorf("%w: %s contains a parent-directory traversal segment", ErrInvalidPath, path)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	lock := NewDualLock(DualLockOptions{
		LockTimeout:  opts.LockTimeout,
		TimeoutRange: opts.TimeoutRange,
	})

	flock := NewFileLock(path, FileLockOptions{
		Timeout:    lock.Timeout(),
		StaleAfter: opts.StaleLockAfter,
		Logger:     logger,
	})

	return &Store{
		path:    path,
		lock:    lock,
		flock:   flock,
		retry:   opts.Retry,
		backups: opts.BackupCount,
		metrics: opts.Metrics,
		logger:  logger,
		cacheOn: !opts.DisableCache,
	}, nil
}

// Path returns the store file path.
func (s *Store) Path() string { return s.path }

// Metrics returns the injected metrics instance (may be nil).
func (s *Store) Metrics() *IOMetrics { return s.metrics }

// Degraded reports whether cross-process locking is unavailable.
func (s *Store) Degraded() bool { return s.flock.Degraded() }

// Load reads the collection cooperatively. A missing file is an empty
// collection, not an error.
func (s *Store) Load(ctx context.Context) ([]todo.Todo, error) {
	if err := s.lock.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("load %s: acquiring lock: %w", s.path, err)
	}
	defer func() { _ = s.lock.Release() }()

	return s.loadLocked(ctx)
}

// LoadBlocking is the blocking entry point for Load. It is subject to the
// wrong-context guard of [DualLock.AcquireBlocking].
func (s *Store) LoadBlocking() ([]todo.Todo, error) {
	if err := s.lock.AcquireBlocking(); err != nil {
		return nil, fmt.Errorf("load %s: acquiring lock: %w", s.path, err)
	}
	defer func() { _ = s.lock.Release() }()

	ctx, cancel := context.WithTimeout(context.Background(), s.lock.Timeout())
	defer cancel()

	return s.loadLocked(ctx)
}

func (s *Store) loadLocked(ctx context.Context) ([]todo.Todo, error) {
	if s.isClosed() {
		return nil, fmt.Errorf("load %s: %w", s.path, ErrStoreClosed)
	}

	if err := s.flock.Lock(ctx); err != nil {
		return nil, fmt.Errorf("load %s: acquiring file lock: %w", s.path, err)
	}
	defer func() { _ = s.flock.Unlock() }()

	if cached, ok := s.cachedSnapshot(); ok {
		return cached, nil
	}

	var data []byte

	err := withRetry(ctx, "load", s.retry, s.metrics, func(context.Context) error {
		raw, readErr := os.ReadFile(s.path)
		if readErr != nil {
			if os.IsNotExist(readErr) {
				raw = nil
			} else {
				return readErr
			}
		}

		data = raw

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", s.path, err)
	}

	records, err := decodeDocument(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", s.path, err)
	}

	s.updateCache(records)

	return copyRecords(records), nil
}

// Save atomically replaces the collection on disk. On any failure the
// in-memory snapshot is left unchanged.
func (s *Store) Save(ctx context.Context, records []todo.Todo) error {
	if err := validateRecords(records); err != nil {
		return fmt.Errorf("save %s: %w", s.path, err)
	}

	if err := s.lock.Acquire(ctx); err != nil {
		return fmt.Errorf("save %s: acquiring lock: %w", s.path, err)
	}
	defer func() { _ = s.lock.Release() }()

	return s.saveLocked(ctx, records)
}

// SaveBlocking is the blocking entry point for Save. It is subject to the
// wrong-context guard of [DualLock.AcquireBlocking].
func (s *Store) SaveBlocking(records []todo.Todo) error {
	if err := validateRecords(records); err != nil {
		return fmt.Errorf("save %s: %w", s.path, err)
	}

	if err := s.lock.AcquireBlocking(); err != nil {
		return fmt.Errorf("save %s: acquiring lock: %w", s.path, err)
	}
	defer func() { _ = s.lock.Release() }()

	ctx, cancel := context.WithTimeout(context.Background(), s.lock.Timeout())
	defer cancel()

	return s.saveLocked(ctx, records)
}

func (s *Store) saveLocked(ctx context.Context, records []todo.Todo) error {
	if s.isClosed() {
		return fmt.Errorf("save %s: %w", s.path, ErrStoreClosed)
	}

	if err := s.flock.Lock(ctx); err != nil {
		return fmt.Errorf("save %s: acquiring file lock: %w", s.path, err)
	}
	defer func() { _ = s.flock.Unlock() }()

	if err := ensureParentDir(s.path); err != nil {
		return fmt.Errorf("save %s: %w", s.path, err)
	}

	data, err := json.MarshalIndent(document{Todos: records}, "", "  ")
	if err != nil {
		return fmt.Errorf("save %s: encoding: %w", s.path, err)
	}

	if s.backups > 0 {
		if err := rotateBackups(s.path, s.backups); err != nil {
			// A failed backup never blocks the save itself.
			s.logger.Warn("backup rotation failed", "path", s.path, "err", err)
		}
	}

	err = withRetry(ctx, "save", s.retry, s.metrics, func(attemptCtx context.Context) error {
		return writeFileAtomic(attemptCtx, s.path, data)
	})
	if err != nil {
		return fmt.Errorf("save %s: %w", s.path, err)
	}

	// Readers must observe exactly the persisted state, so the cache takes
	// the value that was durably written, not a transient working copy.
	s.updateCache(copyRecords(records))

	s.logger.Debug("saved snapshot", "path", s.path, "records", len(records))

	return nil
}

// NextID returns one more than the highest id, floored at 1. Corrupt or
// legacy data with ids <= 0 never drags the result to zero or below.
func (s *Store) NextID(records []todo.Todo) int {
	return NextID(records)
}

// NextID is the id-allocation rule: max(id, default 0) + 1, minimum 1.
func NextID(records []todo.Todo) int {
	maxID := 0

	for _, r := range records {
		if r.ID > maxID {
			maxID = r.ID
		}
	}

	if maxID < 0 {
		maxID = 0
	}

	return maxID + 1
}

// Exists reports whether the store file exists.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)

	return err == nil
}

// Close releases any held OS handles. Idempotent.
//
// Close takes the dual lock before touching the file lock: its state is
// only ever accessed while serialized against in-flight loads and saves,
// so a close can never drop the advisory lock out from under an operation
// that still depends on it.
func (s *Store) Close() error {
	if err := s.lock.AcquireBlocking(); err != nil {
		return fmt.Errorf("close %s: acquiring lock: %w", s.path, err)
	}
	defer func() { _ = s.lock.Release() }()

	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()

		return nil
	}

	s.closed = true
	s.mu.Unlock()

	return s.flock.Close()
}

func (s *Store) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed
}

// cachedSnapshot serves the last known collection when the file is
// byte-for-byte the one the cache was built from (same mtime and size).
//
// mtime+size is a heuristic: an external rewrite of the same length that
// lands within the filesystem's timestamp granularity is indistinguishable
// from no change, and the stale cache gets served until the next save.
// Writers that need strict external-change visibility should set
// DisableCache.
func (s *Store) cachedSnapshot() ([]todo.Todo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cacheOn || !s.cacheOK {
		return nil, false
	}

	info, err := os.Stat(s.path)
	if err != nil {
		return nil, false
	}

	if !info.ModTime().Equal(s.cacheStamp) || info.Size() != s.cacheSize {
		// File changed underneath us: drop the dirty cache.
		s.cacheOK = false

		return nil, false
	}

	return copyRecords(s.cache), true
}

func (s *Store) updateCache(records []todo.Todo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cacheOn {
		return
	}

	info, err := os.Stat(s.path)
	if err != nil {
		s.cacheOK = false

		return
	}

	s.cache = records
	s.cacheStamp = info.ModTime()
	s.cacheSize = info.Size()
	s.cacheOK = true
}

// decodeDocument parses the store file. Empty input is an empty collection.
// Bare-array files written by the legacy tool load as the same collection;
// object documents are validated against the schema first.
func decodeDocument(data []byte) ([]todo.Todo, error) {
	trimmed := bytes.TrimLeftFunc(data, unicode.IsSpace)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var records []todo.Todo
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("%w: legacy array: %v", ErrInvalidDocument, err)
		}

		return records, nil
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	if err := validateDocument(raw); err != nil {
		return nil, err
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	return doc.Todos, nil
}

func validateRecords(records []todo.Todo) error {
	seen := make(map[int]struct{}, len(records))

	for _, r := range records {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("record %d: %w", r.ID, err)
		}

		if _, dup := seen[r.ID]; dup {
			return fmt.Errorf("record %d: duplicate id", r.ID)
		}

		seen[r.ID] = struct{}{}
	}

	return nil
}

// ensureParentDir creates the target's parent directory, failing with a
// user-actionable error when a parent component exists as a file.
func ensureParentDir(path string) error {
	dir := filepath.Dir(path)

	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("%w: parent %s exists as a file, not a directory", ErrInvalidPath, dir)
		}

		return nil
	}

	if !os.IsNotExist(err) {
		return err
	}

	return os.MkdirAll(dir, parentDirPerm)
}

// hasTraversal reports whether any path segment is "..".
func hasTraversal(path string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(path), "/") {
		if seg == ".." {
			return true
		}
	}

	return false
}

func copyRecords(records []todo.Todo) []todo.Todo {
	if records == nil {
		return nil
	}

	out := make([]todo.Todo, len(records))
	copy(out, records)

	return out
}
