package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/dmitrymomot/conductor/core/task"
	"github.com/dmitrymomot/conductor/core/tasklog"
)

// PreExistPolicy decides what happens when a task name is already taken.
type PreExistPolicy string

const (
	// PreExistRaise rejects the registration with ErrDuplicateTask.
	PreExistRaise PreExistPolicy = "raise"
	// PreExistRename registers under the name with a numeric suffix.
	PreExistRename PreExistPolicy = "rename"
)

// Status is a task's lifecycle position, derived from the log.
type Status string

const (
	StatusNone       Status = ""
	StatusRunning    Status = "running"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
	StatusTerminated Status = "terminated"
	StatusCrashed    Status = "crashed"
)

func statusFromAction(a tasklog.Action) Status {
	switch a {
	case tasklog.ActionRun:
		return StatusRunning
	case tasklog.ActionSuccess:
		return StatusSucceeded
	case tasklog.ActionFail:
		return StatusFailed
	case tasklog.ActionTerminate:
		return StatusTerminated
	case tasklog.ActionCrash:
		return StatusCrashed
	}
	return StatusNone
}

// Session is the process-wide holder of tasks, parameters and the active
// scheduler. Tasks and parameters are mutated from the control path only;
// reads are safe from any goroutine. At most one scheduler is bound at a
// time.
type Session struct {
	mu     sync.RWMutex
	tasks  map[string]*task.Task
	order  []string
	params task.Params

	store  tasklog.Store
	logger *slog.Logger

	preExist           PreExistPolicy
	forceStatusFromLog bool

	// statusCache mirrors the log's view of each task's status when strict
	// mode is off. Maintained through RecordAppended.
	statusCache map[string]Status

	schedBound bool
}

// Option configures a Session.
type Option func(*Session)

// WithPreExistPolicy sets the duplicate-name policy. Default raise.
func WithPreExistPolicy(p PreExistPolicy) Option {
	return func(s *Session) {
		if p == PreExistRaise || p == PreExistRename {
			s.preExist = p
		}
	}
}

// WithForceStatusFromLogs makes every status read re-derive from the log
// instead of the in-memory mirror. Slower, robust under crash recovery.
func WithForceStatusFromLogs(v bool) Option {
	return func(s *Session) { s.forceStatusFromLog = v }
}

// WithSessionLogger sets the logger.
func WithSessionLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a session over the given log store.
func New(store tasklog.Store, opts ...Option) (*Session, error) {
	if store == nil {
		return nil, ErrStoreNil
	}

	s := &Session{
		tasks:       make(map[string]*task.Task),
		params:      task.Params{},
		store:       store,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		preExist:    PreExistRaise,
		statusCache: make(map[string]Status),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Store returns the bound log store.
func (s *Session) Store() tasklog.Store { return s.store }

// Register adds a task to the session. Duplicate names follow the
// configured policy: rejected, or registered under the name with a numeric
// suffix. Renaming updates the task's identity so its log history stays
// keyed consistently.
func (s *Session) Register(t *task.Task) error {
	if t == nil {
		return ErrTaskNil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := t.Name()
	if _, exists := s.tasks[name]; exists {
		if s.preExist == PreExistRaise {
			return fmt.Errorf("%w: %q", ErrDuplicateTask, name)
		}
		for i := 1; ; i++ {
			candidate := fmt.Sprintf("%s-%d", name, i)
			if _, taken := s.tasks[candidate]; !taken {
				name = candidate
				break
			}
		}
		t.Rename(name)
	}

	s.tasks[name] = t
	s.order = append(s.order, name)

	s.logger.Info("task registered",
		slog.String("task_name", name),
		slog.String("execution", string(t.Execution())))

	return nil
}

// Task returns a registered task by name.
func (s *Session) Task(name string) (*task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTaskNotFound, name)
	}
	return t, nil
}

// Tasks returns the registered tasks in insertion order.
func (s *Session) Tasks() []*task.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*task.Task, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.tasks[name])
	}
	return out
}

// TaskNames returns the registered names in insertion order.
func (s *Session) TaskNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// SetParam sets a session parameter.
func (s *Session) SetParam(name string, v task.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params[name] = v
}

// Param returns a session parameter.
func (s *Session) Param(name string) (task.Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.params[name]
	return v, ok
}

// Params returns a copy of the session parameters.
func (s *Session) Params() task.Params {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.params.Clone()
}

// Reset clears tasks and parameters. The scheduler lifecycle is separate;
// a bound scheduler keeps running until stopped.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = make(map[string]*task.Task)
	s.order = nil
	s.params = task.Params{}
	s.statusCache = make(map[string]Status)
}

// BindScheduler marks a scheduler as bound. Only one may be active.
func (s *Session) BindScheduler() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedBound {
		return fmt.Errorf("scheduler already bound to session")
	}
	s.schedBound = true
	return nil
}

// ReleaseScheduler releases the scheduler binding.
func (s *Session) ReleaseScheduler() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedBound = false
}

// RecordAppended keeps the in-memory status mirror current. The scheduler
// calls it after every successful log append.
func (s *Session) RecordAppended(rec tasklog.Record) {
	if rec.Action == tasklog.ActionInaction {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusCache[rec.TaskName] = statusFromAction(rec.Action)
}

// TaskStatus returns the task's status. In strict mode it re-derives from
// the log on every call; otherwise it serves the mirror.
func (s *Session) TaskStatus(ctx context.Context, name string) (Status, error) {
	if !s.forceStatusFromLog {
		s.mu.RLock()
		st, ok := s.statusCache[name]
		s.mu.RUnlock()
		if ok {
			return st, nil
		}
		// Cache miss: fall through to the log, e.g. after a restart over a
		// pre-existing store.
	}
	return s.statusFromLog(ctx, name)
}

// ValidateStatusCache re-derives every cached status from the log and
// repairs divergence, returning the names that were corrected.
func (s *Session) ValidateStatusCache(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	names := make([]string, 0, len(s.statusCache))
	for name := range s.statusCache {
		names = append(names, name)
	}
	s.mu.RUnlock()

	var repaired []string
	for _, name := range names {
		actual, err := s.statusFromLog(ctx, name)
		if err != nil {
			return repaired, err
		}

		s.mu.Lock()
		if s.statusCache[name] != actual {
			s.statusCache[name] = actual
			repaired = append(repaired, name)
		}
		s.mu.Unlock()
	}
	return repaired, nil
}

func (s *Session) statusFromLog(ctx context.Context, name string) (Status, error) {
	records, err := s.store.Read(ctx, tasklog.Filter{TaskNames: []string{name}})
	if err != nil {
		return StatusNone, fmt.Errorf("failed to read task log: %w", err)
	}

	for i := len(records) - 1; i >= 0; i-- {
		if st := statusFromAction(records[i].Action); st != StatusNone {
			return st, nil
		}
	}
	return StatusNone, nil
}
