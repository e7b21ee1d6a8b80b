// Package sched implements the scheduler loop: cycle execution, start
// gating through the condition language, timeout enforcement, forced and
// conditional termination, harvest of finished work, and shutdown when the
// session's shutdown predicate becomes true.
//
// # Basic Usage
//
//	store := tasklog.NewMemoryStore()
//	sess, _ := session.New(store)
//	_ = sess.Register(myTask)
//
//	sch, err := sched.New(sess,
//		sched.WithShutCondition(cond.AtLeast(cond.TaskFinished("mytask"), 2)),
//		sched.WithDefaultTimeoutString("30 seconds"),
//	)
//	err = sch.Start(ctx) // blocks until the predicate is true
//
// # Cycle semantics
//
// Each cycle snapshots the clock and the log: start decisions observe the
// records present at cycle start, so a task launched in cycle K can gate
// another task's start no earlier than cycle K+1. Within a cycle, tasks are
// visited priority-descending with insertion order as the tiebreak. The
// shutdown predicate is evaluated after harvest against a fresh snapshot.
//
// On exit the scheduler signals every still-running task, joins each within
// the termination grace, and appends terminal records before returning.
package sched
