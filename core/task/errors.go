package task

import "errors"

var (
	// ErrTaskTerminated is the well-known termination signal. Cooperative
	// task code returns it when asked to stop; runs ending with it are
	// recorded as terminated, never as failed.
	ErrTaskTerminated = errors.New("task terminated")

	// ErrNameRequired is returned when a task is created without a name.
	ErrNameRequired = errors.New("task name is required")

	// ErrFuncRequired is returned when a task has neither a function nor a
	// registered function name to resolve.
	ErrFuncRequired = errors.New("task function is required")

	// ErrUnknownExecution is returned for an execution model outside
	// inline/threaded/process.
	ErrUnknownExecution = errors.New("unknown execution model")

	// ErrFuncNotRegistered is returned when a function name cannot be
	// resolved from the registry.
	ErrFuncNotRegistered = errors.New("task function is not registered")

	// ErrFuncAlreadyRegistered is returned on duplicate registry names.
	ErrFuncAlreadyRegistered = errors.New("task function already registered")

	// ErrProcessSpawn is returned when the child process cannot be started.
	// It surfaces in the log as a crash record.
	ErrProcessSpawn = errors.New("failed to spawn task process")
)
