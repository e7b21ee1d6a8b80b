package tasklog

import "errors"

var (
	// ErrRecordNil is returned when a nil record is appended.
	ErrRecordNil = errors.New("record cannot be nil")
	// ErrTaskNameRequired is returned when a record has no task name.
	ErrTaskNameRequired = errors.New("record task name is required")
	// ErrInvalidAction is returned when a record carries an unknown action.
	ErrInvalidAction = errors.New("invalid record action")
)
