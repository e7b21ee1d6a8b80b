package task

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/conductor/core/tasklog"
)

// ThreadedRunner executes the task on a worker goroutine. Termination is
// cooperative: the scheduler sets the runtime's cancellation token, and the
// task function is expected to poll it at safe points and return
// ErrTaskTerminated. A worker that never polls is orphaned after the grace
// period and its run recorded as terminated anyway.
type ThreadedRunner struct {
	Registry *Registry
}

// Launch starts the worker goroutine and returns immediately.
func (r ThreadedRunner) Launch(ctx context.Context, t *Task, rt Runtime, runID uuid.UUID) (Handle, error) {
	fn, err := t.resolve(r.Registry)
	if err != nil {
		return nil, err
	}

	if rt.Terminate == nil {
		rt.Terminate = NewCancelToken()
	}

	h := &threadedHandle{
		runID: runID,
		token: rt.Terminate,
		done:  make(chan struct{}),
	}

	go func() {
		h.outcome = invoke(ctx, fn, rt)
		close(h.done)
	}()

	return h, nil
}

type threadedHandle struct {
	runID   uuid.UUID
	token   *CancelToken
	done    chan struct{}
	outcome Outcome
}

func (h *threadedHandle) RunID() uuid.UUID { return h.runID }

func (h *threadedHandle) Poll() (Outcome, bool) {
	select {
	case <-h.done:
		return h.outcome, true
	default:
		return Outcome{}, false
	}
}

func (h *threadedHandle) SignalTerminate() { h.token.Set() }

func (h *threadedHandle) Join(grace time.Duration) Outcome {
	select {
	case <-h.done:
		return h.outcome
	case <-time.After(grace):
		// Worker did not cooperate within grace; the goroutine is orphaned
		// and the run recorded as terminated. Documented limitation of the
		// threaded model.
		return Outcome{Action: tasklog.ActionTerminate}
	}
}
