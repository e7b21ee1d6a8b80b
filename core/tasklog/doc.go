// Package tasklog provides the append-only record store that is the
// authoritative source of task status. Every lifecycle transition of a task
// (run, success, fail, terminate, inaction, crash) is appended as an
// immutable record; task status and condition counts are derived by reading
// the log back with filters.
//
// # Basic Usage
//
//	store := tasklog.NewMemoryStore()
//
//	rec := &tasklog.Record{TaskName: "sync_accounts", Action: tasklog.ActionRun}
//	if err := store.Append(ctx, rec); err != nil { ... }
//
//	records, err := store.Read(ctx, tasklog.Filter{
//		TaskNames: []string{"sync_accounts"},
//		Actions:   []tasklog.Action{tasklog.ActionSuccess, tasklog.ActionFail},
//	})
//
// Reads are chronological. Within a filter the action set is OR; the fields
// are AND across each other.
//
// # Custom Backends
//
// The Store interface is the seam for alternative backends. The in-memory
// store is suitable for production schedulers whose history fits in memory
// and for tests; a database-backed store only needs to preserve append-only
// semantics and chronological reads.
package tasklog
