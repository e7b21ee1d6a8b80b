package task

import (
	"fmt"
	"reflect"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/conductor/core/cond"
	"github.com/dmitrymomot/conductor/pkg/timespan"
)

// Execution selects where task work runs.
type Execution string

const (
	// ExecutionInline runs on the scheduler's control goroutine, blocking
	// the cycle. Timeout and forced termination cannot interrupt the call.
	ExecutionInline Execution = "inline"
	// ExecutionThreaded runs on a worker goroutine with cooperative
	// cancellation.
	ExecutionThreaded Execution = "threaded"
	// ExecutionProcess runs in a child process with hard termination.
	ExecutionProcess Execution = "process"
)

// Valid reports whether the execution model is known.
func (e Execution) Valid() bool {
	switch e {
	case ExecutionInline, ExecutionThreaded, ExecutionProcess:
		return true
	}
	return false
}

// Task is a schedulable unit of work. Identity is the unique name; status
// lives in the log store, not on the struct. The force-termination flag is
// the only externally mutable run-state: other tasks or an operator set it,
// the scheduler clears it after acting.
type Task struct {
	name      string
	funcName  string
	fn        Func
	execution Execution
	startCond cond.Condition
	endCond   cond.Condition
	timeout   time.Duration
	priority  int
	params    Params

	forceTermination atomic.Bool
}

// Option configures a Task.
type Option func(*Task) error

// WithExecution selects the execution model.
func WithExecution(e Execution) Option {
	return func(t *Task) error {
		if !e.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownExecution, e)
		}
		t.execution = e
		return nil
	}
}

// WithStartCond sets the condition gating task starts.
func WithStartCond(c cond.Condition) Option {
	return func(t *Task) error {
		if c != nil {
			t.startCond = c
		}
		return nil
	}
}

// WithEndCond sets the condition forcing termination mid-run.
func WithEndCond(c cond.Condition) Option {
	return func(t *Task) error {
		if c != nil {
			t.endCond = c
		}
		return nil
	}
}

// WithTimeout sets the per-task timeout. Use timespan.Never to disable;
// zero inherits the scheduler default.
func WithTimeout(d time.Duration) Option {
	return func(t *Task) error {
		t.timeout = d
		return nil
	}
}

// WithTimeoutString parses a timeout expression such as "0.1 seconds" or
// "never".
func WithTimeoutString(s string) Option {
	return func(t *Task) error {
		d, err := timespan.ParseTimeout(s)
		if err != nil {
			return err
		}
		t.timeout = d
		return nil
	}
}

// WithPriority sets the start priority; higher runs first when contended.
func WithPriority(p int) Option {
	return func(t *Task) error {
		t.priority = p
		return nil
	}
}

// WithParams sets task-level parameters, merged over session parameters at
// launch.
func WithParams(p Params) Option {
	return func(t *Task) error {
		t.params = p.Clone()
		return nil
	}
}

// WithFuncName sets the registry name used to resolve the function in child
// processes. Defaults to the task name.
func WithFuncName(name string) Option {
	return func(t *Task) error {
		t.funcName = name
		return nil
	}
}

// New creates a task. The function may be nil only when a registry name
// resolves it (process execution in a child binary); every in-process model
// requires fn. The default start condition never fires: an ungated task
// does not start on its own.
func New(name string, fn Func, opts ...Option) (*Task, error) {
	if name == "" {
		return nil, ErrNameRequired
	}

	t := &Task{
		name:      name,
		funcName:  name,
		fn:        fn,
		execution: ExecutionThreaded,
		startCond: cond.AlwaysFalse(),
		params:    Params{},
	}

	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}

	if t.fn == nil && t.execution != ExecutionProcess {
		return nil, ErrFuncRequired
	}

	return t, nil
}

// Name returns the unique task name.
func (t *Task) Name() string { return t.name }

// Rename changes the task's identity. Used by the session's rename policy
// when a name is already taken; never call after scheduling started, since
// log history is keyed by name.
func (t *Task) Rename(name string) {
	if name != "" {
		t.name = name
	}
}

// FuncName returns the registry name for process resolution.
func (t *Task) FuncName() string { return t.funcName }

// Execution returns the execution model.
func (t *Task) Execution() Execution { return t.execution }

// StartCond returns the condition gating starts.
func (t *Task) StartCond() cond.Condition { return t.startCond }

// EndCond returns the condition forcing termination mid-run, nil when unset.
func (t *Task) EndCond() cond.Condition { return t.endCond }

// Timeout returns the per-task timeout; zero means "inherit the scheduler
// default", negative means never.
func (t *Task) Timeout() time.Duration { return t.timeout }

// Priority returns the start priority.
func (t *Task) Priority() int { return t.priority }

// Params returns the task-level parameters.
func (t *Task) Params() Params { return t.params }

// ForceTermination reports whether the task is flagged for termination.
func (t *Task) ForceTermination() bool { return t.forceTermination.Load() }

// SetForceTermination flags or clears forced termination. Set by other
// tasks or an operator; cleared by the scheduler after acting on it.
func (t *Task) SetForceTermination(v bool) { t.forceTermination.Store(v) }

// FuncString returns a printable identity of the work for read surfaces:
// the resolved function's symbol name, or the registry name for
// by-name tasks.
func (t *Task) FuncString() string {
	if t.fn == nil {
		return t.funcName
	}
	if name := runtime.FuncForPC(reflect.ValueOf(t.fn).Pointer()).Name(); name != "" {
		return name
	}
	return t.funcName
}

// resolve returns the callable for in-process execution, consulting the
// registry when the task was declared by name.
func (t *Task) resolve(reg *Registry) (Func, error) {
	if t.fn != nil {
		return t.fn, nil
	}
	if reg != nil {
		if fn, ok := reg.Lookup(t.funcName); ok {
			return fn, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrFuncNotRegistered, t.funcName)
}
