package sched

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/conductor/core/cond"
	"github.com/dmitrymomot/conductor/core/task"
	"github.com/dmitrymomot/conductor/pkg/timespan"
)

// Option is a functional option for configuring a scheduler.
type Option func(*schedulerOptions) error

type schedulerOptions struct {
	shutCond         cond.Condition
	defaultTimeout   time.Duration
	cycleInterval    time.Duration
	terminationGrace time.Duration
	inactionLogging  bool
	now              timespan.NowFunc
	registry         *task.Registry
	logger           *slog.Logger
}

// WithShutCondition sets the predicate that stops the scheduler. Without
// one the loop runs until Stop or context cancellation.
func WithShutCondition(c cond.Condition) Option {
	return func(o *schedulerOptions) error {
		o.shutCond = c
		return nil
	}
}

// WithDefaultTimeout sets the per-task timeout applied to tasks that do not
// set their own. Defaults to never.
func WithDefaultTimeout(d time.Duration) Option {
	return func(o *schedulerOptions) error {
		o.defaultTimeout = d
		return nil
	}
}

// WithDefaultTimeoutString parses a timeout expression such as
// "0.1 seconds" or "never" for the default timeout.
func WithDefaultTimeoutString(s string) Option {
	return func(o *schedulerOptions) error {
		d, err := timespan.ParseTimeout(s)
		if err != nil {
			return err
		}
		o.defaultTimeout = d
		return nil
	}
}

// WithCycleInterval sets the minimum pause between cycles, preventing a
// busy loop. Shorter intervals react faster at higher CPU cost.
func WithCycleInterval(d time.Duration) Option {
	return func(o *schedulerOptions) error {
		if d > 0 {
			o.cycleInterval = d
		}
		return nil
	}
}

// WithTerminationGrace bounds how long the scheduler waits for signalled
// work to finish before orphaning a thread or killing a process.
func WithTerminationGrace(d time.Duration) Option {
	return func(o *schedulerOptions) error {
		if d > 0 {
			o.terminationGrace = d
		}
		return nil
	}
}

// WithInactionLogging records an inaction record for every cycle a task was
// considered but not started. Off by default to keep logs small.
func WithInactionLogging(v bool) Option {
	return func(o *schedulerOptions) error {
		o.inactionLogging = v
		return nil
	}
}

// WithClock sets the time source.
func WithClock(now timespan.NowFunc) Option {
	return func(o *schedulerOptions) error {
		if now != nil {
			o.now = now
		}
		return nil
	}
}

// WithRegistry sets the function registry used to resolve by-name tasks.
func WithRegistry(reg *task.Registry) Option {
	return func(o *schedulerOptions) error {
		if reg != nil {
			o.registry = reg
		}
		return nil
	}
}

// WithLogger configures structured logging for scheduler operations.
func WithLogger(logger *slog.Logger) Option {
	return func(o *schedulerOptions) error {
		if logger != nil {
			o.logger = logger
		}
		return nil
	}
}
