package storage

import (
	"sync"
	"time"
)

// recentRingSize bounds how many individual operation records are retained.
const recentRingSize = 128

// OperationRecord is one observed storage operation.
type OperationRecord struct {
	Op        string
	Duration  time.Duration
	Retries   int
	Success   bool
	ErrorKind string
}

// IOMetrics aggregates operation counts, cumulative duration, retry counts
// and per-error-kind counts for the storage engine.
//
// One instance is shared process-wide: it is constructed once at startup,
// injected into every store, and lives until process exit. All methods are
// safe for concurrent use from any caller - unlike the storage lock, the
// metrics path is plain bookkeeping and carries no execution-context guard.
type IOMetrics struct {
	mu sync.Mutex

	operations map[string]uint64
	errors     map[string]uint64
	duration   time.Duration
	retries    uint64
	failures   uint64

	recent [recentRingSize]OperationRecord
	next   int
	filled bool
}

// NewIOMetrics returns metrics with all internal state initialized eagerly.
// Maps are never created lazily on first record, so concurrent first access
// cannot race on initialization.
func NewIOMetrics() *IOMetrics {
	return &IOMetrics{
		operations: make(map[string]uint64),
		errors:     make(map[string]uint64),
	}
}

// Record registers one completed operation. It never blocks callers
// materially and never fails; a nil receiver is a no-op so optional metrics
// wiring needs no checks at call sites.
func (m *IOMetrics) Record(rec OperationRecord) {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.operations[rec.Op]++
	m.duration += rec.Duration
	m.retries += uint64(rec.Retries)

	if !rec.Success {
		m.failures++

		if rec.ErrorKind != "" {
			m.errors[rec.ErrorKind]++
		}
	}

	m.recent[m.next] = rec

	m.next++
	if m.next == recentRingSize {
		m.next = 0
		m.filled = true
	}
}

// TotalOperations returns the number of recorded operations.
func (m *IOMetrics) TotalOperations() uint64 {
	if m == nil {
		return 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var total uint64
	for _, n := range m.operations {
		total += n
	}

	return total
}

// TotalDuration returns the cumulative duration of recorded operations.
func (m *IOMetrics) TotalDuration() time.Duration {
	if m == nil {
		return 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	return m.duration
}

// MetricsSnapshot is a point-in-time copy of the aggregates.
type MetricsSnapshot struct {
	Operations map[string]uint64
	Errors     map[string]uint64
	Duration   time.Duration
	Retries    uint64
	Failures   uint64
	Recent     []OperationRecord
}

// Snapshot returns a copy of the current aggregates. The recent slice is
// ordered oldest first.
func (m *IOMetrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	snap := MetricsSnapshot{
		Operations: make(map[string]uint64, len(m.operations)),
		Errors:     make(map[string]uint64, len(m.errors)),
		Duration:   m.duration,
		Retries:    m.retries,
		Failures:   m.failures,
	}

	for op, n := range m.operations {
		snap.Operations[op] = n
	}

	for kind, n := range m.errors {
		snap.Errors[kind] = n
	}

	if m.filled {
		snap.Recent = append(snap.Recent, m.recent[m.next:]...)
		snap.Recent = append(snap.Recent, m.recent[:m.next]...)
	} else {
		snap.Recent = append(snap.Recent, m.recent[:m.next]...)
	}

	return snap
}
