package tasklog

import (
	"time"

	"github.com/google/uuid"
)

// Action is a lifecycle event recorded for a task.
type Action string

const (
	// ActionRun marks a task launch. A run record without a later terminal
	// record means the task is currently running.
	ActionRun Action = "run"
	// ActionSuccess marks a completed run.
	ActionSuccess Action = "success"
	// ActionFail marks a run that ended with a user-code error.
	ActionFail Action = "fail"
	// ActionTerminate marks a run stopped by timeout, end condition or
	// forced termination.
	ActionTerminate Action = "terminate"
	// ActionInaction records a cycle where the task was considered but not
	// started. Suppressed unless inaction logging is enabled.
	ActionInaction Action = "inaction"
	// ActionCrash marks a backend failure outside user code, such as a
	// failed process spawn.
	ActionCrash Action = "crash"
)

// Valid reports whether the action is one of the known lifecycle events.
func (a Action) Valid() bool {
	switch a {
	case ActionRun, ActionSuccess, ActionFail, ActionTerminate, ActionInaction, ActionCrash:
		return true
	}
	return false
}

// Terminal reports whether the action closes a run.
func (a Action) Terminal() bool {
	switch a {
	case ActionSuccess, ActionFail, ActionTerminate, ActionCrash:
		return true
	}
	return false
}

// TerminalActions lists every action that closes a run, in a fresh slice.
func TerminalActions() []Action {
	return []Action{ActionSuccess, ActionFail, ActionTerminate, ActionCrash}
}

// Record is a single lifecycle event. Records are immutable once appended;
// Seq is assigned by the store on append, and so is Created when left zero.
type Record struct {
	Seq      int64     `json:"seq"`
	RunID    uuid.UUID `json:"run_id,omitempty"`
	Created  time.Time `json:"created"`
	TaskName string    `json:"task_name"`
	Action   Action    `json:"action"`
	ExcText  string    `json:"exc_text,omitempty"`
}
