// Package session binds the process-wide pieces of a scheduling run: the
// task registry, the parameter set with private masking, the log store and
// the active scheduler. External inspection surfaces (an HTTP API, a CLI)
// consume the session's read operations and never touch tasks or the log
// directly.
//
//	sess, err := session.New(store)
//	err = sess.Register(myTask)
//	sess.SetParam("api_key", task.Private("s3cr3t"))
//
//	tasks, err := sess.ListTasks(ctx)      // statuses from the log
//	params := sess.ListParameters()        // privates rendered "*****"
//	logs, err := sess.ReadTaskLogs(ctx, session.LogQuery{
//		TaskName:   "mytask",
//		Actions:    []string{"success", "terminate"},
//		MinAsctime: "2020-01-01T07:01:30",
//	})
//
// Private parameter values never appear unmasked in any read response.
package session
