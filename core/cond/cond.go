package cond

import (
	"time"

	"github.com/dmitrymomot/conductor/core/tasklog"
)

// State is the read-only snapshot a condition observes. Record counts are
// bounded by the scheduler's start time and by the log snapshot the State
// was bound to. Start and end conditions observe the snapshot taken at
// cycle start, so records appended during a cycle become visible to them
// only on the next cycle; the shutdown predicate observes a second snapshot
// taken after the cycle's harvest.
type State interface {
	// CountTaskRecords counts records for the task since scheduler start,
	// optionally restricted to an action set.
	CountTaskRecords(task string, actions ...tasklog.Action) (int, error)

	// LastTaskRecord returns the most recent record for the task since
	// scheduler start, optionally restricted to an action set.
	LastTaskRecord(task string, actions ...tasklog.Action) (tasklog.Record, bool, error)

	// Cycles returns the number of scheduler cycles started, including the
	// observing one.
	Cycles() int64

	// StartedAt returns the scheduler start time, zero before start.
	StartedAt() time.Time

	// Now returns the snapshot time of the observing cycle.
	Now() time.Time

	// Parameter returns a session parameter's raw value.
	Parameter(name string) (any, bool)
}

// Condition is a pure predicate over a State snapshot.
type Condition interface {
	Observe(s State) (bool, error)
}

// Countable is a condition whose satisfaction can be counted, enabling the
// AtLeast wrapper. A bare countable observes as "count >= 1".
type Countable interface {
	Condition
	Count(s State) (int, error)
}
