package sched

import "errors"

var (
	// ErrSessionNil is returned when a scheduler is created without a session.
	ErrSessionNil = errors.New("session cannot be nil")
	// ErrAlreadyStarted is returned when Start is called on a running scheduler.
	ErrAlreadyStarted = errors.New("scheduler already started")
	// ErrNoTasksRegistered is returned when Start finds an empty session.
	ErrNoTasksRegistered = errors.New("no tasks registered")
	// ErrLogAppend is returned when a log append fails twice. The log is
	// the source of truth, so the scheduler stops rather than run blind.
	ErrLogAppend = errors.New("failed to append log record")
	// ErrLogRead is returned when the log cannot be read during a cycle.
	ErrLogRead = errors.New("failed to read log")
	// ErrHealthcheckFailed indicates a failed scheduler health check.
	ErrHealthcheckFailed = errors.New("healthcheck failed")
	// ErrSchedulerNotRunning indicates the scheduler loop is not active.
	ErrSchedulerNotRunning = errors.New("scheduler is not running")
)
