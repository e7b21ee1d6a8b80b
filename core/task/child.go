package task

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrymomot/conductor/core/tasklog"
)

// ChildMain services a child invocation when the current process was
// spawned by a ProcessRunner. Call it from main before normal startup:
//
//	if handled, code := task.ChildMain(task.DefaultRegistry()); handled {
//		os.Exit(code)
//	}
//
// In the child, SIGTERM sets the cancellation token and cancels the
// context, so cooperative task code terminates the same way it does under
// the threaded model. The outcome report goes to stdout; the exit code is
// zero whenever an outcome was reported, reserving non-zero for protocol
// failures.
func ChildMain(reg *Registry) (handled bool, code int) {
	name := os.Getenv(childTaskEnv)
	if name == "" {
		return false, 0
	}

	out := runChild(reg, name)
	if err := json.NewEncoder(os.Stdout).Encode(childOutcome{
		Outcome: string(out.Action),
		ExcText: out.ExcText,
	}); err != nil {
		return true, 1
	}
	return true, 0
}

func runChild(reg *Registry, name string) Outcome {
	var params map[string]any
	if err := json.NewDecoder(os.Stdin).Decode(&params); err != nil {
		params = nil
	}

	if reg == nil {
		reg = defaultRegistry
	}
	fn, ok := reg.Lookup(name)
	if !ok {
		return Outcome{
			Action:  tasklog.ActionCrash,
			ExcText: "task function not registered in child: " + name,
		}
	}

	token := NewCancelToken()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, os.Interrupt)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		token.Set()
		cancel()
	}()

	return invoke(ctx, fn, Runtime{Params: params, Terminate: token})
}
