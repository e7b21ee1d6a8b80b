package tasklog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/dmitrymomot/conductor/pkg/timespan"
)

// MemoryStoreStats provides observability metrics for monitoring and debugging
type MemoryStoreStats struct {
	Records      int   // Current number of records in the log
	TasksTracked int   // Number of distinct task names seen
	LastSeq      int64 // Sequence number of the most recent record
}

// MemoryStore is the in-memory Store implementation. Records live in a
// single chronological slice with a per-task index for filtered reads.
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
	byTask  map[string][]int
	lastSeq int64

	now    timespan.NowFunc
	logger *slog.Logger
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithClock sets the time source used to stamp appended records.
func WithClock(now timespan.NowFunc) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if now != nil {
			ms.now = now
		}
	}
}

// WithLogger sets the logger for internal operations.
func WithLogger(logger *slog.Logger) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if logger != nil {
			ms.logger = logger
		}
	}
}

// WithCapacityHint pre-allocates the record slice for long sessions.
func WithCapacityHint(n int) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if n > 0 {
			ms.records = make([]Record, 0, n)
		}
	}
}

// NewMemoryStore creates a new in-memory log store.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	ms := &MemoryStore{
		byTask: make(map[string][]int),
		now:    timespan.SystemNow,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(ms)
	}

	return ms
}

// Append adds a record to the log, assigning Seq and stamping Created when
// the caller left it zero.
func (ms *MemoryStore) Append(ctx context.Context, rec *Record) error {
	if rec == nil {
		return ErrRecordNil
	}
	if rec.TaskName == "" {
		return ErrTaskNameRequired
	}
	if !rec.Action.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidAction, rec.Action)
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.lastSeq++
	rec.Seq = ms.lastSeq
	if rec.Created.IsZero() {
		rec.Created = ms.now()
	}

	ms.records = append(ms.records, *rec)
	ms.byTask[rec.TaskName] = append(ms.byTask[rec.TaskName], len(ms.records)-1)

	ms.logger.DebugContext(ctx, "record appended",
		slog.Int64("seq", rec.Seq),
		slog.String("task_name", rec.TaskName),
		slog.String("action", string(rec.Action)))

	return nil
}

// Read returns copies of the records matching the filter, in append order.
func (ms *MemoryStore) Read(ctx context.Context, f Filter) ([]Record, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var out []Record
	if len(f.TaskNames) == 1 {
		// Single-task reads dominate (status checks, condition counts);
		// walk the per-task index instead of the full log.
		for _, idx := range ms.byTask[f.TaskNames[0]] {
			if rec := ms.records[idx]; f.Match(rec) {
				out = append(out, rec)
			}
		}
		return out, nil
	}

	for _, rec := range ms.records {
		if f.Match(rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// LastSeq returns the sequence number of the most recent record.
func (ms *MemoryStore) LastSeq(ctx context.Context) (int64, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return ms.lastSeq, nil
}

// Stats returns current store statistics for observability and monitoring.
// This method is thread-safe and can be called at any time.
func (ms *MemoryStore) Stats() MemoryStoreStats {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	return MemoryStoreStats{
		Records:      len(ms.records),
		TasksTracked: len(ms.byTask),
		LastSeq:      ms.lastSeq,
	}
}
