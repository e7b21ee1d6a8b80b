package sched

import (
	"context"
	"time"

	"github.com/dmitrymomot/conductor/core/tasklog"
)

// snapshot is the cond.State a cycle binds for condition evaluation: record
// reads are bounded by the log sequence captured at snapshot time and by
// the scheduler's start, so observation is stable for the whole cycle.
type snapshot struct {
	sched  *Scheduler
	now    time.Time
	maxSeq int64
	cycles int64
}

func (s *Scheduler) snapshot(now time.Time, maxSeq int64) *snapshot {
	return &snapshot{
		sched:  s,
		now:    now,
		maxSeq: maxSeq,
		cycles: s.cycleCount.Load(),
	}
}

func (sn *snapshot) read(taskName string, actions []tasklog.Action) ([]tasklog.Record, error) {
	return sn.sched.store.Read(context.Background(), tasklog.Filter{
		TaskNames: []string{taskName},
		Actions:   actions,
		MinTime:   sn.sched.startedAt,
		MaxSeq:    sn.maxSeq,
	})
}

func (sn *snapshot) CountTaskRecords(taskName string, actions ...tasklog.Action) (int, error) {
	records, err := sn.read(taskName, actions)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

func (sn *snapshot) LastTaskRecord(taskName string, actions ...tasklog.Action) (tasklog.Record, bool, error) {
	records, err := sn.read(taskName, actions)
	if err != nil || len(records) == 0 {
		return tasklog.Record{}, false, err
	}
	return records[len(records)-1], true, nil
}

func (sn *snapshot) Cycles() int64 { return sn.cycles }

func (sn *snapshot) StartedAt() time.Time { return sn.sched.startedAt }

func (sn *snapshot) Now() time.Time { return sn.now }

func (sn *snapshot) Parameter(name string) (any, bool) {
	v, ok := sn.sched.session.Param(name)
	if !ok {
		return nil, false
	}
	return v.Raw(), true
}
