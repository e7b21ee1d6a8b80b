package task

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/conductor/core/tasklog"
)

// childTaskEnv marks a child invocation and names the registered function
// to run. Parameters travel as JSON on stdin; the outcome comes back as
// JSON on stdout. The child's stderr passes through for user output.
const childTaskEnv = "CONDUCTOR_CHILD_TASK"

// childOutcome is the wire shape of a child's terminal report.
type childOutcome struct {
	Outcome string `json:"outcome"`
	ExcText string `json:"exc_text,omitempty"`
}

// ProcessRunner executes the task in a child process by re-executing the
// current binary in child mode. Tasks must be addressable by registered
// name and their parameters JSON-serializable. Termination sends SIGTERM,
// then SIGKILL after the grace period.
type ProcessRunner struct{}

// Launch spawns the child. Spawn and serialization failures are runner
// errors: the caller records them as a crash.
func (ProcessRunner) Launch(ctx context.Context, t *Task, rt Runtime, runID uuid.UUID) (Handle, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProcessSpawn, err)
	}

	payload, err := json.Marshal(rt.Params)
	if err != nil {
		return nil, fmt.Errorf("%w: encode parameters: %w", ErrProcessSpawn, err)
	}

	cmd := exec.Command(exe)
	cmd.Env = append(os.Environ(), childTaskEnv+"="+t.FuncName())
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stderr = os.Stderr

	h := &processHandle{
		runID: runID,
		cmd:   cmd,
		done:  make(chan struct{}),
	}
	cmd.Stdout = &h.stdout

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProcessSpawn, err)
	}

	go func() {
		waitErr := cmd.Wait()
		h.outcome = h.decode(waitErr)
		close(h.done)
	}()

	return h, nil
}

type processHandle struct {
	runID      uuid.UUID
	cmd        *exec.Cmd
	stdout     bytes.Buffer
	done       chan struct{}
	outcome    Outcome
	terminated atomic.Bool
}

func (h *processHandle) RunID() uuid.UUID { return h.runID }

func (h *processHandle) Poll() (Outcome, bool) {
	select {
	case <-h.done:
		return h.outcome, true
	default:
		return Outcome{}, false
	}
}

func (h *processHandle) SignalTerminate() {
	h.terminated.Store(true)
	if h.cmd.Process != nil {
		_ = h.cmd.Process.Signal(syscall.SIGTERM)
	}
}

func (h *processHandle) Join(grace time.Duration) Outcome {
	select {
	case <-h.done:
		return h.outcome
	case <-time.After(grace):
	}

	// Grace expired: hard kill. Wait() in the launch goroutine returns
	// once the process is reaped.
	h.terminated.Store(true)
	if h.cmd.Process != nil {
		_ = h.cmd.Process.Kill()
	}
	<-h.done
	return h.outcome
}

// decode turns the child's stdout report and exit status into an outcome.
// A child killed by our signal without a report is a termination; any other
// silent death is a crash.
func (h *processHandle) decode(waitErr error) Outcome {
	var report childOutcome
	if err := json.Unmarshal(bytes.TrimSpace(h.stdout.Bytes()), &report); err == nil && report.Outcome != "" {
		action := tasklog.Action(report.Outcome)
		if action.Terminal() {
			return Outcome{Action: action, ExcText: report.ExcText}
		}
	}

	if h.terminated.Load() {
		return Outcome{Action: tasklog.ActionTerminate}
	}

	excText := "task process exited without reporting an outcome"
	if waitErr != nil {
		excText = fmt.Sprintf("%s: %v", excText, waitErr)
	}
	return Outcome{Action: tasklog.ActionCrash, ExcText: excText}
}
