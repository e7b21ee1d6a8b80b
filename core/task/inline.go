package task

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// InlineRunner executes the task during Launch, on the caller's goroutine.
// The scheduler cycle blocks for the duration of the call; timeout and
// forced termination can only take effect before the call or after it
// returns.
type InlineRunner struct {
	// Registry resolves by-name tasks; nil falls back to the task's own
	// function.
	Registry *Registry
}

// Launch runs the task to completion and returns a pre-completed handle.
func (r InlineRunner) Launch(ctx context.Context, t *Task, rt Runtime, runID uuid.UUID) (Handle, error) {
	fn, err := t.resolve(r.Registry)
	if err != nil {
		return nil, err
	}

	return &inlineHandle{
		runID:   runID,
		outcome: invoke(ctx, fn, rt),
	}, nil
}

type inlineHandle struct {
	runID   uuid.UUID
	outcome Outcome
}

func (h *inlineHandle) RunID() uuid.UUID { return h.runID }

func (h *inlineHandle) Poll() (Outcome, bool) { return h.outcome, true }

func (h *inlineHandle) SignalTerminate() {}

func (h *inlineHandle) Join(time.Duration) Outcome { return h.outcome }
