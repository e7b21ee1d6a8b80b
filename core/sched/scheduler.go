package sched

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/conductor/core/cond"
	"github.com/dmitrymomot/conductor/core/session"
	"github.com/dmitrymomot/conductor/core/task"
	"github.com/dmitrymomot/conductor/core/tasklog"
	"github.com/dmitrymomot/conductor/pkg/timespan"
)

// Scheduler drives the session's tasks through cycles until its shutdown
// predicate is satisfied or Stop is called. All task state transitions go
// through the log store; the loop runs on a single control goroutine.
type Scheduler struct {
	session  *session.Session
	store    tasklog.Store
	registry *task.Registry

	shutCond         cond.Condition
	defaultTimeout   time.Duration
	cycleInterval    time.Duration
	terminationGrace time.Duration
	inactionLogging  bool
	now              timespan.NowFunc
	logger           *slog.Logger
	id               uuid.UUID

	// Control-goroutine state; touched only inside Start.
	handles   map[string]*runningTask
	startedAt time.Time

	mu            sync.Mutex
	stopCh        chan struct{}
	stopRequested bool
	running       atomic.Bool

	// Observability metrics
	cycleCount      atomic.Int64
	tasksLaunched   atomic.Int64
	tasksSucceeded  atomic.Int64
	tasksFailed     atomic.Int64
	tasksTerminated atomic.Int64
	tasksCrashed    atomic.Int64
	conditionErrors atomic.Int64
	activeTasks     atomic.Int32
}

// Stats provides observability metrics for monitoring and debugging
type Stats struct {
	Cycles          int64 // Scheduler cycles started
	TasksLaunched   int64 // Total run records appended
	TasksSucceeded  int64 // Total success records appended
	TasksFailed     int64 // Total fail records appended
	TasksTerminated int64 // Total terminate records appended
	TasksCrashed    int64 // Total crash records appended
	ConditionErrors int64 // Condition evaluations that errored (treated as false)
	ActiveTasks     int32 // Tasks currently running
	IsRunning       bool  // Whether the scheduler loop is active
}

// runningTask tracks one live handle between launch and harvest.
type runningTask struct {
	task        *task.Task
	handle      task.Handle
	runID       uuid.UUID
	launchedAt  time.Time
	terminating bool
}

// New creates a scheduler over the session and its log store.
func New(sess *session.Session, opts ...Option) (*Scheduler, error) {
	if sess == nil {
		return nil, ErrSessionNil
	}

	options := &schedulerOptions{
		cycleInterval:    time.Millisecond,
		terminationGrace: 10 * time.Second,
		defaultTimeout:   timespan.Never,
		now:              timespan.SystemNow,
		registry:         task.DefaultRegistry(),
		logger:           slog.New(slog.NewTextHandler(io.Discard, nil)), // No-op logger by default
	}

	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}

	return &Scheduler{
		session:          sess,
		store:            sess.Store(),
		registry:         options.registry,
		shutCond:         options.shutCond,
		defaultTimeout:   options.defaultTimeout,
		cycleInterval:    options.cycleInterval,
		terminationGrace: options.terminationGrace,
		inactionLogging:  options.inactionLogging,
		now:              options.now,
		logger:           options.logger,
		id:               uuid.New(),
	}, nil
}

// Start runs the scheduler loop. This is a blocking operation that returns
// when the shutdown predicate is satisfied, Stop is called, the context is
// cancelled, or the log fails. Use Run() for errgroup pattern or call this
// in a goroutine.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running.Load() {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	if len(s.session.TaskNames()) == 0 {
		s.mu.Unlock()
		return ErrNoTasksRegistered
	}
	if err := s.session.BindScheduler(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.stopCh = make(chan struct{})
	s.stopRequested = false
	s.running.Store(true)
	s.mu.Unlock()

	s.handles = make(map[string]*runningTask)
	s.startedAt = s.now()
	s.cycleCount.Store(0)

	defer func() {
		s.running.Store(false)
		s.session.ReleaseScheduler()
	}()

	s.logger.InfoContext(ctx, "scheduler started",
		slog.String("scheduler_id", s.id.String()),
		slog.Int("task_count", len(s.session.TaskNames())),
		slog.Duration("cycle_interval", s.cycleInterval))

	var loopErr error

loop:
	for {
		select {
		case <-ctx.Done():
			loopErr = ctx.Err()
			break loop
		case <-s.stopCh:
			break loop
		default:
		}

		shutdown, err := s.runCycle(ctx)
		if err != nil {
			loopErr = err
			break loop
		}
		if shutdown {
			s.logger.InfoContext(ctx, "shutdown condition satisfied",
				slog.String("scheduler_id", s.id.String()),
				slog.Int64("cycles", s.cycleCount.Load()))
			break loop
		}

		select {
		case <-ctx.Done():
			loopErr = ctx.Err()
			break loop
		case <-s.stopCh:
			break loop
		case <-time.After(s.cycleInterval):
		}
	}

	if err := s.terminateOutstanding(ctx); err != nil && loopErr == nil {
		loopErr = err
	}

	s.logger.InfoContext(ctx, "scheduler stopped",
		slog.String("scheduler_id", s.id.String()),
		slog.Int64("cycles", s.cycleCount.Load()))

	return loopErr
}

// Stop requests the loop to exit. Outstanding work is still signalled and
// joined before Start returns. Safe to call from any goroutine, including
// task functions through the Control handle.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopCh != nil && !s.stopRequested {
		s.stopRequested = true
		close(s.stopCh)
	}
}

// Run provides errgroup compatibility for coordinated lifecycle management.
// Returns a function that starts the scheduler, monitors context
// cancellation, and performs graceful shutdown when the context is
// cancelled.
func (s *Scheduler) Run(ctx context.Context) func() error {
	return func() error {
		errCh := make(chan error, 1)
		go func() {
			errCh <- s.Start(ctx)
		}()

		select {
		case <-ctx.Done():
			s.Stop()
			<-errCh
			return nil
		case err := <-errCh:
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
	}
}

// runCycle executes one pass over the task set. It returns true when the
// shutdown predicate is satisfied.
func (s *Scheduler) runCycle(ctx context.Context) (bool, error) {
	now := s.now()
	s.cycleCount.Add(1)

	maxSeq, err := s.store.LastSeq(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrLogRead, err)
	}
	snap := s.snapshot(now, maxSeq)

	tasks := s.orderedTasks()

	// Start phase: decisions observe the snapshot taken above, so records
	// appended below are invisible until the next cycle.
	for _, t := range tasks {
		if _, alreadyRunning := s.handles[t.Name()]; alreadyRunning {
			continue
		}

		ok := s.observe(ctx, t.StartCond(), snap, t.Name(), "start")
		if !ok {
			if s.inactionLogging {
				if err := s.append(ctx, &tasklog.Record{TaskName: t.Name(), Action: tasklog.ActionInaction}); err != nil {
					return false, err
				}
			}
			continue
		}

		if err := s.launch(ctx, t); err != nil {
			return false, err
		}
	}

	// Termination phase: forced termination, timeout, end condition.
	for _, t := range tasks {
		rt, ok := s.handles[t.Name()]
		if !ok || rt.terminating {
			continue
		}

		force := t.ForceTermination()
		timedOut := s.timedOut(rt, now)
		endCond := false
		if c := t.EndCond(); c != nil && !force && !timedOut {
			endCond = s.observe(ctx, c, snap, t.Name(), "end")
		}

		if !force && !timedOut && !endCond {
			continue
		}

		rt.handle.SignalTerminate()
		rt.terminating = true
		if force {
			t.SetForceTermination(false)
		}

		s.logger.InfoContext(ctx, "termination requested",
			slog.String("task_name", t.Name()),
			slog.Bool("forced", force),
			slog.Bool("timed_out", timedOut),
			slog.Bool("end_condition", endCond))
	}

	// Harvest phase: join terminating work, poll the rest.
	for _, t := range tasks {
		rt, ok := s.handles[t.Name()]
		if !ok {
			continue
		}

		var out task.Outcome
		done := true
		if rt.terminating {
			out = rt.handle.Join(s.terminationGrace)
		} else {
			out, done = rt.handle.Poll()
		}
		if !done {
			continue
		}

		if err := s.harvest(ctx, rt, out); err != nil {
			return false, err
		}
		delete(s.handles, t.Name())
	}

	// Shutdown predicate sees the harvest: fresh snapshot.
	if s.shutCond == nil {
		return false, nil
	}
	lastSeq, err := s.store.LastSeq(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrLogRead, err)
	}
	return s.observe(ctx, s.shutCond, s.snapshot(s.now(), lastSeq), "", "shutdown"), nil
}

// observe evaluates a condition, logging errors and treating them as false
// so a broken condition cannot stall or kill the scheduler.
func (s *Scheduler) observe(ctx context.Context, c cond.Condition, snap cond.State, taskName, kind string) bool {
	ok, err := c.Observe(snap)
	if err != nil {
		s.conditionErrors.Add(1)
		s.logger.ErrorContext(ctx, "condition evaluation failed, treated as false",
			slog.String("condition", kind),
			slog.String("task_name", taskName),
			slog.String("error", err.Error()))
		return false
	}
	return ok
}

// launch appends the run record and hands the task to its backend. Backend
// launch failure is a crash record, not a scheduler failure.
func (s *Scheduler) launch(ctx context.Context, t *task.Task) error {
	runID := uuid.New()
	rec := &tasklog.Record{RunID: runID, TaskName: t.Name(), Action: tasklog.ActionRun}
	if err := s.append(ctx, rec); err != nil {
		return err
	}

	rt := task.Runtime{
		Params:    s.mergedParams(t),
		Terminate: task.NewCancelToken(),
		Scheduler: control{s},
	}

	s.logger.DebugContext(ctx, "launching task",
		slog.String("task_name", t.Name()),
		slog.String("run_id", runID.String()),
		slog.String("execution", string(t.Execution())))

	handle, err := s.runnerFor(t.Execution()).Launch(ctx, t, rt, runID)
	if err != nil {
		s.tasksCrashed.Add(1)
		s.logger.ErrorContext(ctx, "task backend failed to launch",
			slog.String("task_name", t.Name()),
			slog.String("error", err.Error()))
		return s.append(ctx, &tasklog.Record{
			RunID:    runID,
			TaskName: t.Name(),
			Action:   tasklog.ActionCrash,
			ExcText:  err.Error(),
		})
	}

	s.tasksLaunched.Add(1)
	s.activeTasks.Add(1)
	s.handles[t.Name()] = &runningTask{
		task:       t,
		handle:     handle,
		runID:      runID,
		launchedAt: rec.Created,
	}
	return nil
}

// harvest appends the terminal record for a finished run.
func (s *Scheduler) harvest(ctx context.Context, rt *runningTask, out task.Outcome) error {
	switch out.Action {
	case tasklog.ActionSuccess:
		s.tasksSucceeded.Add(1)
	case tasklog.ActionFail:
		s.tasksFailed.Add(1)
	case tasklog.ActionTerminate:
		s.tasksTerminated.Add(1)
	case tasklog.ActionCrash:
		s.tasksCrashed.Add(1)
	}
	s.activeTasks.Add(-1)

	s.logger.InfoContext(ctx, "task finished",
		slog.String("task_name", rt.task.Name()),
		slog.String("run_id", rt.runID.String()),
		slog.String("action", string(out.Action)))

	return s.append(ctx, &tasklog.Record{
		RunID:    rt.runID,
		TaskName: rt.task.Name(),
		Action:   out.Action,
		ExcText:  out.ExcText,
	})
}

// terminateOutstanding is the exit path: every still-running task is
// signalled, joined within the grace period, and its terminal record
// appended.
func (s *Scheduler) terminateOutstanding(ctx context.Context) error {
	var firstErr error
	for _, rt := range s.handles {
		rt.handle.SignalTerminate()
	}
	for name, rt := range s.handles {
		out := rt.handle.Join(s.terminationGrace)
		if err := s.harvest(ctx, rt, out); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.handles, name)
	}
	return firstErr
}

// append writes a record with a single retry; a second failure is fatal to
// the loop because the log is the source of truth.
func (s *Scheduler) append(ctx context.Context, rec *tasklog.Record) error {
	if err := s.store.Append(ctx, rec); err != nil {
		s.logger.WarnContext(ctx, "log append failed, retrying",
			slog.String("task_name", rec.TaskName),
			slog.String("action", string(rec.Action)),
			slog.String("error", err.Error()))
		if err := s.store.Append(ctx, rec); err != nil {
			return fmt.Errorf("%w: %w", ErrLogAppend, err)
		}
	}
	s.session.RecordAppended(*rec)
	return nil
}

// orderedTasks returns the task set priority-descending, insertion order as
// the tiebreak. Iteration must be deterministic given the same inputs.
func (s *Scheduler) orderedTasks() []*task.Task {
	tasks := s.session.Tasks()
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].Priority() > tasks[j].Priority()
	})
	return tasks
}

func (s *Scheduler) runnerFor(e task.Execution) task.Runner {
	switch e {
	case task.ExecutionInline:
		return task.InlineRunner{Registry: s.registry}
	case task.ExecutionProcess:
		return task.ProcessRunner{}
	default:
		return task.ThreadedRunner{Registry: s.registry}
	}
}

// timedOut measures wall-clock elapsed from the run record's timestamp
// against the task's effective timeout.
func (s *Scheduler) timedOut(rt *runningTask, now time.Time) bool {
	timeout := rt.task.Timeout()
	if timeout == 0 {
		timeout = s.defaultTimeout
	}
	if timespan.IsNever(timeout) {
		return false
	}
	return now.Sub(rt.launchedAt) > timeout
}

// mergedParams overlays task parameters on session parameters, raw values.
func (s *Scheduler) mergedParams(t *task.Task) map[string]any {
	out := s.session.Params().Raw()
	for name, v := range t.Params().Raw() {
		out[name] = v
	}
	return out
}

// control adapts the scheduler to the task.Control contract handed to task
// functions.
type control struct{ s *Scheduler }

func (c control) ForceTerminate(name string) error {
	t, err := c.s.session.Task(name)
	if err != nil {
		return err
	}
	t.SetForceTermination(true)
	return nil
}

func (c control) Shutdown() { c.s.Stop() }

// Stats returns current scheduler statistics for observability and
// monitoring. This method is thread-safe and can be called at any time.
func (s *Scheduler) Stats() Stats {
	return Stats{
		Cycles:          s.cycleCount.Load(),
		TasksLaunched:   s.tasksLaunched.Load(),
		TasksSucceeded:  s.tasksSucceeded.Load(),
		TasksFailed:     s.tasksFailed.Load(),
		TasksTerminated: s.tasksTerminated.Load(),
		TasksCrashed:    s.tasksCrashed.Load(),
		ConditionErrors: s.conditionErrors.Load(),
		ActiveTasks:     s.activeTasks.Load(),
		IsRunning:       s.running.Load(),
	}
}

// Healthcheck validates that the scheduler is operational. Returns nil if
// healthy, or an error describing the health issue. Suitable for use in
// health check endpoints.
func (s *Scheduler) Healthcheck(ctx context.Context) error {
	if !s.running.Load() {
		return errors.Join(ErrHealthcheckFailed, ErrSchedulerNotRunning)
	}
	if len(s.session.TaskNames()) == 0 {
		return errors.Join(ErrHealthcheckFailed, ErrNoTasksRegistered)
	}
	return nil
}
