package task

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/conductor/core/tasklog"
)

// Outcome is the terminal result of one run, ready to append to the log.
type Outcome struct {
	Action  tasklog.Action
	ExcText string
}

// Handle tracks one launched run. All three backends expose the same
// contract: poll for completion, request termination, and join with a
// bounded grace period.
type Handle interface {
	// RunID returns the launch identity, shared with the run log record.
	RunID() uuid.UUID

	// Poll reports the outcome without blocking; done is false while the
	// work is still running.
	Poll() (outcome Outcome, done bool)

	// SignalTerminate requests termination: sets the cooperative token for
	// threaded work, sends SIGTERM to process work. No-op for inline.
	SignalTerminate()

	// Join waits up to grace for the work to finish and returns its
	// outcome. A worker that does not finish within grace is recorded as
	// terminated; threaded workers are orphaned, processes killed.
	Join(grace time.Duration) Outcome
}

// Runner launches a task under one execution model. runID ties the handle
// to the run record the scheduler appended.
type Runner interface {
	Launch(ctx context.Context, t *Task, rt Runtime, runID uuid.UUID) (Handle, error)
}

// invoke executes the task function, translating the returned error and any
// panic into an outcome. Panics in user code are failures, not crashes: the
// scheduler must survive them.
func invoke(ctx context.Context, fn Func, rt Runtime) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{
				Action:  tasklog.ActionFail,
				ExcText: fmt.Sprintf("panic: %v\n%s", r, debug.Stack()),
			}
		}
	}()

	return outcomeFromErr(fn(ctx, rt))
}

// outcomeFromErr maps a task function's error to a log action. Termination
// signalled by cooperative code is never conflated with user failure.
func outcomeFromErr(err error) Outcome {
	switch {
	case err == nil:
		return Outcome{Action: tasklog.ActionSuccess}
	case errors.Is(err, ErrTaskTerminated):
		return Outcome{Action: tasklog.ActionTerminate}
	default:
		return Outcome{Action: tasklog.ActionFail, ExcText: err.Error()}
	}
}
