package session

import "errors"

var (
	// ErrStoreNil is returned when a session is created without a log store.
	ErrStoreNil = errors.New("log store cannot be nil")
	// ErrTaskNil is returned when a nil task is registered.
	ErrTaskNil = errors.New("task cannot be nil")
	// ErrDuplicateTask is returned when a task name is already taken and
	// the session is not configured to rename.
	ErrDuplicateTask = errors.New("task name already registered")
	// ErrTaskNotFound is returned for lookups of unknown task names.
	ErrTaskNotFound = errors.New("task not found")
	// ErrInvalidAsctime is returned for unparseable asctime filters.
	ErrInvalidAsctime = errors.New("invalid asctime value")
)
