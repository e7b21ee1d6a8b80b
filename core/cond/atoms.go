package cond

import (
	"fmt"
	"reflect"
	"time"

	"github.com/dmitrymomot/conductor/core/tasklog"
)

// AlwaysTrue is satisfied on every observation.
func AlwaysTrue() Condition { return alwaysTrue{} }

// AlwaysFalse is never satisfied. It is the default start condition: a task
// without an explicit gate never starts on its own.
func AlwaysFalse() Condition { return alwaysFalse{} }

type alwaysTrue struct{}

func (alwaysTrue) Observe(State) (bool, error) { return true, nil }
func (alwaysTrue) String() string              { return "true" }

type alwaysFalse struct{}

func (alwaysFalse) Observe(State) (bool, error) { return false, nil }
func (alwaysFalse) String() string              { return "false" }

// taskActionCount counts log records of the given actions for one task.
type taskActionCount struct {
	task    string
	actions []tasklog.Action
	label   string
}

func (c taskActionCount) Count(s State) (int, error) {
	return s.CountTaskRecords(c.task, c.actions...)
}

func (c taskActionCount) Observe(s State) (bool, error) {
	n, err := c.Count(s)
	if err != nil {
		return false, err
	}
	return n >= 1, nil
}

func (c taskActionCount) String() string {
	return fmt.Sprintf("%s(%q)", c.label, c.task)
}

// TaskStarted counts run records for the task since scheduler start.
func TaskStarted(task string) Countable {
	return taskActionCount{task: task, actions: []tasklog.Action{tasklog.ActionRun}, label: "task_started"}
}

// TaskFinished counts terminal records for the task since scheduler start.
func TaskFinished(task string) Countable {
	return taskActionCount{task: task, actions: tasklog.TerminalActions(), label: "task_finished"}
}

// TaskSucceeded counts success records for the task since scheduler start.
func TaskSucceeded(task string) Countable {
	return taskActionCount{task: task, actions: []tasklog.Action{tasklog.ActionSuccess}, label: "task_succeeded"}
}

// TaskFailed counts fail records for the task since scheduler start.
func TaskFailed(task string) Countable {
	return taskActionCount{task: task, actions: []tasklog.Action{tasklog.ActionFail}, label: "task_failed"}
}

// TaskTerminated counts terminate records for the task since scheduler start.
func TaskTerminated(task string) Countable {
	return taskActionCount{task: task, actions: []tasklog.Action{tasklog.ActionTerminate}, label: "task_terminated"}
}

// TaskRunning is satisfied while the task has a run record without a later
// terminal record.
func TaskRunning(task string) Condition { return taskRunning{task: task} }

type taskRunning struct{ task string }

func (c taskRunning) Observe(s State) (bool, error) {
	rec, ok, err := s.LastTaskRecord(c.task)
	if err != nil || !ok {
		return false, err
	}
	return rec.Action == tasklog.ActionRun, nil
}

func (c taskRunning) String() string { return fmt.Sprintf("task_running(%q)", c.task) }

// DependSuccess gates task on the success of dependsOn: satisfied when the
// most recent terminal record of dependsOn since the last run of task is a
// success, or when dependsOn has succeeded at least once this session and
// task has not yet run.
func DependSuccess(task, dependsOn string) Condition {
	return dependSuccess{task: task, dependsOn: dependsOn}
}

type dependSuccess struct {
	task      string
	dependsOn string
}

func (c dependSuccess) Observe(s State) (bool, error) {
	lastRun, ran, err := s.LastTaskRecord(c.task, tasklog.ActionRun)
	if err != nil {
		return false, err
	}
	if !ran {
		_, succeeded, err := s.LastTaskRecord(c.dependsOn, tasklog.ActionSuccess)
		return succeeded, err
	}

	term, ok, err := s.LastTaskRecord(c.dependsOn, tasklog.TerminalActions()...)
	if err != nil || !ok {
		return false, err
	}
	return term.Action == tasklog.ActionSuccess && term.Seq > lastRun.Seq, nil
}

func (c dependSuccess) String() string {
	return fmt.Sprintf("depend_success(%q, after=%q)", c.task, c.dependsOn)
}

// SchedulerCycles counts scheduler cycles started, including the one in
// progress.
func SchedulerCycles() Countable { return schedulerCycles{} }

type schedulerCycles struct{}

func (schedulerCycles) Count(s State) (int, error) { return int(s.Cycles()), nil }

func (c schedulerCycles) Observe(s State) (bool, error) {
	n, err := c.Count(s)
	return n >= 1, err
}

func (schedulerCycles) String() string { return "scheduler_cycles" }

// SchedulerStarted is satisfied once the scheduler has started. A positive
// window restricts it to the first `within` of the session.
func SchedulerStarted(within time.Duration) Condition {
	return schedulerStarted{within: within}
}

type schedulerStarted struct{ within time.Duration }

func (c schedulerStarted) Observe(s State) (bool, error) {
	started := s.StartedAt()
	if started.IsZero() {
		return false, nil
	}
	if c.within <= 0 {
		return true, nil
	}
	return s.Now().Sub(started) <= c.within, nil
}

func (c schedulerStarted) String() string {
	return fmt.Sprintf("scheduler_started(within=%s)", c.within)
}

// IsParameter is satisfied when the session parameter exists and deep-equals
// the given value.
func IsParameter(name string, value any) Condition {
	return isParameter{name: name, value: value}
}

type isParameter struct {
	name  string
	value any
}

func (c isParameter) Observe(s State) (bool, error) {
	v, ok := s.Parameter(c.name)
	if !ok {
		return false, nil
	}
	return reflect.DeepEqual(v, c.value), nil
}

func (c isParameter) String() string { return fmt.Sprintf("is_parameter(%q)", c.name) }
