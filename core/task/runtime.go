package task

import (
	"context"
	"sync/atomic"
)

// CancelToken is the cooperative cancellation flag injected into task
// functions. The scheduler sets it on timeout or forced termination; task
// code polls it at safe points and returns ErrTaskTerminated when set.
type CancelToken struct {
	flag atomic.Bool
}

// NewCancelToken creates an unset token.
func NewCancelToken() *CancelToken { return &CancelToken{} }

// Set raises the flag. Idempotent and safe from any goroutine.
func (t *CancelToken) Set() { t.flag.Store(true) }

// IsSet reports whether termination has been requested.
func (t *CancelToken) IsSet() bool { return t.flag.Load() }

// Err returns ErrTaskTerminated when the flag is set, nil otherwise. Lets
// task code write `if err := rt.Terminate.Err(); err != nil { return err }`.
func (t *CancelToken) Err() error {
	if t.flag.Load() {
		return ErrTaskTerminated
	}
	return nil
}

// Control is the scheduler handle exposed to task functions that want to
// introspect or mutate the running scheduler, such as a task that forces
// termination of another.
type Control interface {
	// ForceTerminate flags the named task for termination; the scheduler
	// acts on the flag at its next termination check.
	ForceTerminate(task string) error
	// Shutdown requests the scheduler to leave its loop.
	Shutdown()
}

// Runtime carries everything a task function receives besides the context:
// the merged session and task parameters (raw values), the cancellation
// token, and the optional scheduler control handle (nil when the function
// runs outside a scheduler, e.g. in a child process).
type Runtime struct {
	Params    map[string]any
	Terminate *CancelToken
	Scheduler Control
}

// Func is the task callable contract.
type Func func(ctx context.Context, rt Runtime) error
