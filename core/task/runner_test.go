package task_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/conductor/core/task"
	"github.com/dmitrymomot/conductor/core/tasklog"
)

// TestMain doubles as the child-process entrypoint for ProcessRunner tests:
// the runner re-executes this test binary, and ChildMain routes child
// invocations to the registered functions below.
func TestMain(m *testing.M) {
	mustRegister("child_ok", func(ctx context.Context, rt task.Runtime) error {
		if rt.Params["greeting"] != "hello" {
			return fmt.Errorf("unexpected parameters: %v", rt.Params)
		}
		return nil
	})
	mustRegister("child_fail", func(ctx context.Context, rt task.Runtime) error {
		return errors.New("child task failed on purpose")
	})
	mustRegister("child_slow", func(ctx context.Context, rt task.Runtime) error {
		for range 100 {
			if err := rt.Terminate.Err(); err != nil {
				return err
			}
			time.Sleep(50 * time.Millisecond)
		}
		return nil
	})

	if handled, code := task.ChildMain(task.DefaultRegistry()); handled {
		os.Exit(code)
	}
	os.Exit(m.Run())
}

func mustRegister(name string, fn task.Func) {
	if err := task.Register(name, fn); err != nil {
		panic(err)
	}
}

func launch(t *testing.T, r task.Runner, tk *task.Task, rt task.Runtime) task.Handle {
	t.Helper()

	h, err := r.Launch(context.Background(), tk, rt, uuid.New())
	require.NoError(t, err)
	return h
}

func newTask(t *testing.T, name string, fn task.Func, opts ...task.Option) *task.Task {
	t.Helper()

	tk, err := task.New(name, fn, opts...)
	require.NoError(t, err)
	return tk
}

func TestInlineRunner(t *testing.T) {
	t.Parallel()

	t.Run("success completes during launch", func(t *testing.T) {
		t.Parallel()

		ran := false
		tk := newTask(t, "inline_ok", func(ctx context.Context, rt task.Runtime) error {
			ran = true
			return nil
		}, task.WithExecution(task.ExecutionInline))

		h := launch(t, task.InlineRunner{}, tk, task.Runtime{})
		assert.True(t, ran)

		out, done := h.Poll()
		assert.True(t, done)
		assert.Equal(t, tasklog.ActionSuccess, out.Action)
	})

	t.Run("failure captures error text", func(t *testing.T) {
		t.Parallel()

		tk := newTask(t, "inline_fail", func(ctx context.Context, rt task.Runtime) error {
			return errors.New("query exploded")
		}, task.WithExecution(task.ExecutionInline))

		h := launch(t, task.InlineRunner{}, tk, task.Runtime{})
		out := h.Join(time.Second)
		assert.Equal(t, tasklog.ActionFail, out.Action)
		assert.Contains(t, out.ExcText, "query exploded")
	})

	t.Run("panic is a failure with stack text", func(t *testing.T) {
		t.Parallel()

		tk := newTask(t, "inline_panic", func(ctx context.Context, rt task.Runtime) error {
			panic("boom")
		}, task.WithExecution(task.ExecutionInline))

		h := launch(t, task.InlineRunner{}, tk, task.Runtime{})
		out, done := h.Poll()
		assert.True(t, done)
		assert.Equal(t, tasklog.ActionFail, out.Action)
		assert.Contains(t, out.ExcText, "panic: boom")
		assert.Contains(t, out.ExcText, "goroutine")
	})

	t.Run("terminated error records terminate", func(t *testing.T) {
		t.Parallel()

		tk := newTask(t, "inline_term", func(ctx context.Context, rt task.Runtime) error {
			return fmt.Errorf("stopping early: %w", task.ErrTaskTerminated)
		}, task.WithExecution(task.ExecutionInline))

		h := launch(t, task.InlineRunner{}, tk, task.Runtime{})
		out, _ := h.Poll()
		assert.Equal(t, tasklog.ActionTerminate, out.Action)
	})
}

func TestThreadedRunner(t *testing.T) {
	t.Parallel()

	t.Run("runs off the launching goroutine", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		tk := newTask(t, "threaded_ok", func(ctx context.Context, rt task.Runtime) error {
			<-release
			return nil
		})

		h := launch(t, task.ThreadedRunner{}, tk, task.Runtime{Terminate: task.NewCancelToken()})

		_, done := h.Poll()
		assert.False(t, done)

		close(release)
		out := h.Join(2 * time.Second)
		assert.Equal(t, tasklog.ActionSuccess, out.Action)
	})

	t.Run("cooperative termination", func(t *testing.T) {
		t.Parallel()

		tk := newTask(t, "threaded_coop", func(ctx context.Context, rt task.Runtime) error {
			for {
				if err := rt.Terminate.Err(); err != nil {
					return err
				}
				time.Sleep(10 * time.Millisecond)
			}
		})

		h := launch(t, task.ThreadedRunner{}, tk, task.Runtime{Terminate: task.NewCancelToken()})
		h.SignalTerminate()

		out := h.Join(2 * time.Second)
		assert.Equal(t, tasklog.ActionTerminate, out.Action)
	})

	t.Run("non-cooperating worker is orphaned after grace", func(t *testing.T) {
		t.Parallel()

		block := make(chan struct{})
		defer close(block)
		tk := newTask(t, "threaded_stubborn", func(ctx context.Context, rt task.Runtime) error {
			<-block
			return nil
		})

		h := launch(t, task.ThreadedRunner{}, tk, task.Runtime{Terminate: task.NewCancelToken()})
		h.SignalTerminate()

		out := h.Join(50 * time.Millisecond)
		assert.Equal(t, tasklog.ActionTerminate, out.Action)
	})

	t.Run("resolves by registry name", func(t *testing.T) {
		t.Parallel()

		reg := task.NewRegistry()
		require.NoError(t, reg.Register("named_work", func(ctx context.Context, rt task.Runtime) error {
			return nil
		}))

		tk, err := task.New("named", nil,
			task.WithExecution(task.ExecutionProcess),
			task.WithFuncName("named_work"))
		require.NoError(t, err)

		h := launch(t, task.ThreadedRunner{Registry: reg}, tk, task.Runtime{})
		out := h.Join(2 * time.Second)
		assert.Equal(t, tasklog.ActionSuccess, out.Action)
	})

	t.Run("unresolved name fails launch", func(t *testing.T) {
		t.Parallel()

		tk, err := task.New("ghost", nil,
			task.WithExecution(task.ExecutionProcess),
			task.WithFuncName("missing"))
		require.NoError(t, err)

		_, err = task.ThreadedRunner{}.Launch(context.Background(), tk, task.Runtime{}, uuid.New())
		assert.ErrorIs(t, err, task.ErrFuncNotRegistered)
	})
}

func TestProcessRunner(t *testing.T) {
	t.Parallel()

	t.Run("success with parameters across the boundary", func(t *testing.T) {
		t.Parallel()

		tk, err := task.New("child_ok", nil, task.WithExecution(task.ExecutionProcess))
		require.NoError(t, err)

		h := launch(t, task.ProcessRunner{}, tk, task.Runtime{
			Params: map[string]any{"greeting": "hello"},
		})
		out := h.Join(10 * time.Second)
		assert.Equal(t, tasklog.ActionSuccess, out.Action)
	})

	t.Run("failure carries error text back", func(t *testing.T) {
		t.Parallel()

		tk, err := task.New("child_fail", nil, task.WithExecution(task.ExecutionProcess))
		require.NoError(t, err)

		h := launch(t, task.ProcessRunner{}, tk, task.Runtime{})
		out := h.Join(10 * time.Second)
		assert.Equal(t, tasklog.ActionFail, out.Action)
		assert.Contains(t, out.ExcText, "child task failed on purpose")
	})

	t.Run("sigterm terminates a cooperative child", func(t *testing.T) {
		t.Parallel()

		tk, err := task.New("child_slow", nil, task.WithExecution(task.ExecutionProcess))
		require.NoError(t, err)

		h := launch(t, task.ProcessRunner{}, tk, task.Runtime{})

		// Give the child a moment to boot before signalling.
		time.Sleep(500 * time.Millisecond)
		h.SignalTerminate()

		out := h.Join(10 * time.Second)
		assert.Equal(t, tasklog.ActionTerminate, out.Action)
	})

	t.Run("unregistered child function crashes", func(t *testing.T) {
		t.Parallel()

		tk, err := task.New("no_such_child", nil, task.WithExecution(task.ExecutionProcess))
		require.NoError(t, err)

		h := launch(t, task.ProcessRunner{}, tk, task.Runtime{})
		out := h.Join(10 * time.Second)
		assert.Equal(t, tasklog.ActionCrash, out.Action)
		assert.Contains(t, out.ExcText, "not registered")
	})
}

func TestFuncString(t *testing.T) {
	t.Parallel()

	named, err := task.New("by_name", nil,
		task.WithExecution(task.ExecutionProcess),
		task.WithFuncName("child_ok"))
	require.NoError(t, err)
	assert.Equal(t, "child_ok", named.FuncString())

	direct := newTask(t, "direct", func(ctx context.Context, rt task.Runtime) error { return nil })
	assert.NotEmpty(t, direct.FuncString())
}
