package session

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrymomot/conductor/core/tasklog"
)

// Asctime layouts accepted on read filters. Emission uses the first.
const (
	asctimeLayout      = "2006-01-02T15:04:05"
	asctimeLayoutSpace = "2006-01-02 15:04:05"
)

// TaskInfo is the external projection of a task: non-private attributes
// only, parameters masked.
type TaskInfo struct {
	Name       string         `json:"name"`
	Func       string         `json:"func"`
	Execution  string         `json:"execution"`
	Parameters map[string]any `json:"parameters"`
	Status     string         `json:"status"`
}

// RecordView is the external projection of a log record.
type RecordView struct {
	Asctime  string `json:"asctime"`
	Action   string `json:"action"`
	TaskName string `json:"task_name"`
	ExcText  string `json:"exc_text,omitempty"`
}

// LogQuery filters ReadTaskLogs. Actions is OR within the field; fields
// combine with AND. Asctime bounds are ISO-8601 with second precision,
// interpreted in local time; MaxAsctime is inclusive of its whole second.
type LogQuery struct {
	TaskName   string
	Actions    []string
	MinAsctime string
	MaxAsctime string
}

// ListTasks returns the registered tasks keyed by name, with statuses
// derived from the log and parameters masked.
func (s *Session) ListTasks(ctx context.Context) (map[string]TaskInfo, error) {
	out := make(map[string]TaskInfo)
	for _, name := range s.TaskNames() {
		t, err := s.Task(name)
		if err != nil {
			return nil, err
		}
		status, err := s.TaskStatus(ctx, name)
		if err != nil {
			return nil, err
		}
		out[name] = TaskInfo{
			Name:       name,
			Func:       t.FuncString(),
			Execution:  string(t.Execution()),
			Parameters: t.Params().Masked(),
			Status:     string(status),
		}
	}
	return out, nil
}

// ListParameters returns the session parameters with private values
// rendered as the mask literal.
func (s *Session) ListParameters() map[string]any {
	return s.Params().Masked()
}

// ReadTaskLogs returns log records matching the query in chronological
// order, timestamps formatted to second precision.
func (s *Session) ReadTaskLogs(ctx context.Context, q LogQuery) ([]RecordView, error) {
	f := tasklog.Filter{}

	if q.TaskName != "" {
		f.TaskNames = []string{q.TaskName}
	}
	for _, a := range q.Actions {
		action := tasklog.Action(a)
		if !action.Valid() {
			return nil, fmt.Errorf("%w: %q", tasklog.ErrInvalidAction, a)
		}
		f.Actions = append(f.Actions, action)
	}

	if q.MinAsctime != "" {
		ts, err := parseAsctime(q.MinAsctime)
		if err != nil {
			return nil, err
		}
		f.MinTime = ts
	}
	if q.MaxAsctime != "" {
		ts, err := parseAsctime(q.MaxAsctime)
		if err != nil {
			return nil, err
		}
		// Second-precision bound: inclusive of the named second.
		f.MaxTime = ts.Add(time.Second - time.Nanosecond)
	}

	records, err := s.store.Read(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to read task logs: %w", err)
	}

	out := make([]RecordView, 0, len(records))
	for _, rec := range records {
		out = append(out, RecordView{
			Asctime:  rec.Created.Local().Format(asctimeLayout),
			Action:   string(rec.Action),
			TaskName: rec.TaskName,
			ExcText:  rec.ExcText,
		})
	}
	return out, nil
}

func parseAsctime(s string) (time.Time, error) {
	for _, layout := range []string{asctimeLayout, asctimeLayoutSpace} {
		if ts, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidAsctime, s)
}
