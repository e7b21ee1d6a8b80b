package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/conductor/core/cond"
	"github.com/dmitrymomot/conductor/core/sched"
	"github.com/dmitrymomot/conductor/core/session"
	"github.com/dmitrymomot/conductor/core/task"
	"github.com/dmitrymomot/conductor/core/tasklog"
)

// conductord is the headless scheduler runner: it exits 0 when the shutdown
// predicate stops the loop and non-zero on a configuration error or an
// unrecoverable scheduler failure.
func main() {
	os.Exit(run())
}

func run() int {
	registerTaskFuncs()

	// Child-mode servicing must come first: process tasks re-execute this
	// binary.
	if handled, code := task.ChildMain(task.DefaultRegistry()); handled {
		return code
	}

	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	var cfg sched.Config
	if err := env.Parse(&cfg); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		return 1
	}

	store := tasklog.NewMemoryStore(tasklog.WithLogger(logger))
	sess, err := session.New(store, session.WithSessionLogger(logger))
	if err != nil {
		logger.Error("failed to create session", slog.String("error", err.Error()))
		return 1
	}

	if err := registerTasks(sess); err != nil {
		logger.Error("failed to register tasks", slog.String("error", err.Error()))
		return 1
	}

	scheduler, err := sched.NewFromConfig(cfg, sess, sched.WithLogger(logger))
	if err != nil {
		logger.Error("failed to create scheduler", slog.String("error", err.Error()))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(scheduler.Run(ctx))

	if err := g.Wait(); err != nil {
		logger.Error("scheduler failed", slog.String("error", err.Error()))
		return 1
	}
	return 0
}

// heartbeat is the built-in liveness task; it runs once per session start.
func heartbeat(ctx context.Context, rt task.Runtime) error {
	slog.Default().InfoContext(ctx, "heartbeat", slog.Int("pid", os.Getpid()))
	return nil
}

func registerTaskFuncs() {
	if err := task.Register("heartbeat", heartbeat); err != nil {
		panic(err)
	}
}

func registerTasks(sess *session.Session) error {
	hb, err := task.New("heartbeat", heartbeat,
		task.WithExecution(task.ExecutionInline),
		task.WithStartCond(cond.Not(cond.TaskStarted("heartbeat"))))
	if err != nil {
		return err
	}
	return sess.Register(hb)
}
