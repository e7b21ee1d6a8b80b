// Package task defines the Task entity, its parameters, and the three
// execution backends the scheduler launches work through: inline on the
// control goroutine, threaded on a worker goroutine with cooperative
// cancellation, and process in a child process with hard termination.
//
// # Defining tasks
//
//	slow, err := task.New("sync_accounts", syncAccounts,
//		task.WithExecution(task.ExecutionThreaded),
//		task.WithStartCond(cond.AlwaysTrue()),
//		task.WithTimeoutString("30 seconds"),
//	)
//
// A task function receives a context and a Runtime carrying the merged
// parameters, the cooperative cancellation token and, when wired, a
// scheduler control handle:
//
//	func syncAccounts(ctx context.Context, rt task.Runtime) error {
//		for _, acc := range accounts {
//			if rt.Terminate.IsSet() {
//				return task.ErrTaskTerminated
//			}
//			sync(acc)
//		}
//		return nil
//	}
//
// Returning ErrTaskTerminated (or an error wrapping it) records the run as
// terminated, never as failed. Threaded tasks must poll the token at safe
// points; a worker that does not cooperate is recorded as terminated and
// orphaned.
//
// # Process execution
//
// Process tasks are addressed by registered function name, not by closure.
// The binary must service child invocations from main before doing anything
// else:
//
//	func main() {
//		task.Register("sync_accounts", syncAccounts)
//		if handled, code := task.ChildMain(task.DefaultRegistry()); handled {
//			os.Exit(code)
//		}
//		// ... normal startup
//	}
package task
