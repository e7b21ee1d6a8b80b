package sched

import (
	"time"

	"github.com/dmitrymomot/conductor/core/cond"
	"github.com/dmitrymomot/conductor/core/session"
)

// Config holds the environment-driven scheduler configuration.
type Config struct {
	CycleInterval    time.Duration `env:"SCHED_CYCLE_INTERVAL" envDefault:"1ms"`
	DefaultTimeout   string        `env:"SCHED_DEFAULT_TIMEOUT" envDefault:"never"`
	TerminationGrace time.Duration `env:"SCHED_TERMINATION_GRACE" envDefault:"10s"`
	Debug            bool          `env:"SCHED_DEBUG" envDefault:"false"`

	// MaxCycles shuts the scheduler down after N cycles when positive.
	// Zero leaves shutdown to the configured predicate.
	MaxCycles int `env:"SCHED_MAX_CYCLES" envDefault:"0"`
}

func DefaultConfig() Config {
	return Config{
		CycleInterval:    time.Millisecond,
		DefaultTimeout:   "never",
		TerminationGrace: 10 * time.Second,
	}
}

// NewFromConfig creates a Scheduler from configuration. Session must be
// provided. Additional options can override config values.
func NewFromConfig(cfg Config, sess *session.Session, opts ...Option) (*Scheduler, error) {
	allOpts := []Option{
		WithCycleInterval(cfg.CycleInterval),
		WithTerminationGrace(cfg.TerminationGrace),
		WithInactionLogging(cfg.Debug),
	}
	if cfg.MaxCycles > 0 {
		allOpts = append(allOpts, WithShutCondition(cond.AtLeast(cond.SchedulerCycles(), cfg.MaxCycles)))
	}
	if cfg.DefaultTimeout != "" {
		allOpts = append(allOpts, WithDefaultTimeoutString(cfg.DefaultTimeout))
	}
	allOpts = append(allOpts, opts...)

	return New(sess, allOpts...)
}
