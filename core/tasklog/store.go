package tasklog

import (
	"context"
	"time"
)

// Filter selects records on Read. Zero values mean "no constraint".
// The action set and the task-name set are OR within the field; the fields
// combine with AND. MaxTime is inclusive. MaxSeq bounds the read to records
// appended at or before the given sequence number, which is how cycle
// snapshots isolate themselves from records appended mid-cycle.
type Filter struct {
	TaskNames []string
	Actions   []Action
	MinTime   time.Time
	MaxTime   time.Time
	MaxSeq    int64
}

// Match reports whether the record satisfies every constraint of the filter.
func (f Filter) Match(r Record) bool {
	if len(f.TaskNames) > 0 && !containsString(f.TaskNames, r.TaskName) {
		return false
	}
	if len(f.Actions) > 0 && !containsAction(f.Actions, r.Action) {
		return false
	}
	if !f.MinTime.IsZero() && r.Created.Before(f.MinTime) {
		return false
	}
	if !f.MaxTime.IsZero() && r.Created.After(f.MaxTime) {
		return false
	}
	if f.MaxSeq > 0 && r.Seq > f.MaxSeq {
		return false
	}
	return true
}

func containsString(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func containsAction(set []Action, a Action) bool {
	for _, v := range set {
		if v == a {
			return true
		}
	}
	return false
}

// Store is the append-only record sink and the source of truth for task
// status. Append assigns Seq on the passed record and stamps Created when
// the caller left it zero.
type Store interface {
	// Append adds a record to the log. Records are immutable afterwards.
	Append(ctx context.Context, rec *Record) error

	// Read returns records matching the filter in chronological order.
	Read(ctx context.Context, f Filter) ([]Record, error)

	// LastSeq returns the sequence number of the most recent record, or
	// zero when the log is empty. Used as the snapshot cursor.
	LastSeq(ctx context.Context) (int64, error)
}
