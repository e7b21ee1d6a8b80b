// Package cond implements the condition language that gates task starts and
// scheduler shutdown. Conditions are pure predicates over a State snapshot:
// observing a condition never mutates anything, and all counts are taken
// against a log snapshot the scheduler binds: start and end conditions see
// the log as of cycle start, the shutdown predicate sees it after the
// cycle's harvest.
//
// Atoms observe the log history ("has this task started"), the scheduler
// ("have N cycles elapsed") or the session parameters. Combinators compose
// them:
//
//	gate := cond.And(
//		cond.DependSuccess("report", "fetch"),
//		cond.Not(cond.TaskRunning("report")),
//	)
//
// Counting atoms additionally implement Countable and can be wrapped with
// AtLeast, the explicit spelling of "condition satisfied at least n times":
//
//	shut := cond.AtLeast(cond.TaskFinished("report"), 2)
package cond
