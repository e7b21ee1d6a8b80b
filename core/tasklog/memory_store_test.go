package tasklog_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/conductor/core/tasklog"
)

func mustAppend(t *testing.T, store *tasklog.MemoryStore, created time.Time, action tasklog.Action, taskName string) tasklog.Record {
	t.Helper()

	rec := tasklog.Record{Created: created, TaskName: taskName, Action: action}
	require.NoError(t, store.Append(context.Background(), &rec))
	return rec
}

func at(t *testing.T, clock string) time.Time {
	t.Helper()

	ts, err := time.ParseInLocation("2006-01-02 15:04:05", "2020-01-01 "+clock, time.Local)
	require.NoError(t, err)
	return ts
}

func TestMemoryStore_Append(t *testing.T) {
	t.Parallel()

	t.Run("assigns sequence and timestamp", func(t *testing.T) {
		t.Parallel()

		store := tasklog.NewMemoryStore()

		first := tasklog.Record{TaskName: "mytask", Action: tasklog.ActionRun}
		require.NoError(t, store.Append(context.Background(), &first))
		assert.Equal(t, int64(1), first.Seq)
		assert.False(t, first.Created.IsZero())

		second := tasklog.Record{TaskName: "mytask", Action: tasklog.ActionSuccess}
		require.NoError(t, store.Append(context.Background(), &second))
		assert.Equal(t, int64(2), second.Seq)

		seq, err := store.LastSeq(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(2), seq)
	})

	t.Run("rejects invalid records", func(t *testing.T) {
		t.Parallel()

		store := tasklog.NewMemoryStore()

		err := store.Append(context.Background(), nil)
		assert.ErrorIs(t, err, tasklog.ErrRecordNil)

		err = store.Append(context.Background(), &tasklog.Record{Action: tasklog.ActionRun})
		assert.ErrorIs(t, err, tasklog.ErrTaskNameRequired)

		err = store.Append(context.Background(), &tasklog.Record{TaskName: "mytask", Action: "explode"})
		assert.ErrorIs(t, err, tasklog.ErrInvalidAction)
	})

	t.Run("records are immutable once appended", func(t *testing.T) {
		t.Parallel()

		store := tasklog.NewMemoryStore()

		rec := tasklog.Record{TaskName: "mytask", Action: tasklog.ActionRun}
		require.NoError(t, store.Append(context.Background(), &rec))

		// Mutating the caller's record must not affect the stored copy.
		rec.Action = tasklog.ActionFail
		rec.TaskName = "other"

		records, err := store.Read(context.Background(), tasklog.Filter{})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "mytask", records[0].TaskName)
		assert.Equal(t, tasklog.ActionRun, records[0].Action)
	})
}

func TestMemoryStore_Read(t *testing.T) {
	t.Parallel()

	t.Run("round trip preserves chronological order", func(t *testing.T) {
		t.Parallel()

		store := tasklog.NewMemoryStore()
		want := []tasklog.Action{
			tasklog.ActionRun, tasklog.ActionSuccess,
			tasklog.ActionRun, tasklog.ActionTerminate,
			tasklog.ActionRun, tasklog.ActionFail,
		}
		for i, action := range want {
			mustAppend(t, store, at(t, "07:0"+string(rune('1'+i))+":00"), action, "mytask")
		}

		records, err := store.Read(context.Background(), tasklog.Filter{})
		require.NoError(t, err)
		require.Len(t, records, len(want))
		for i, rec := range records {
			assert.Equal(t, want[i], rec.Action)
			assert.Equal(t, int64(i+1), rec.Seq)
			if i > 0 {
				assert.False(t, rec.Created.Before(records[i-1].Created))
			}
		}
	})

	t.Run("action filter yields exact subset", func(t *testing.T) {
		t.Parallel()

		store := tasklog.NewMemoryStore()
		mustAppend(t, store, at(t, "07:01:00"), tasklog.ActionRun, "mytask")
		mustAppend(t, store, at(t, "07:02:00"), tasklog.ActionSuccess, "mytask")
		mustAppend(t, store, at(t, "07:03:00"), tasklog.ActionRun, "mytask")
		mustAppend(t, store, at(t, "07:04:00"), tasklog.ActionTerminate, "mytask")
		mustAppend(t, store, at(t, "07:05:00"), tasklog.ActionRun, "another task")
		mustAppend(t, store, at(t, "07:06:00"), tasklog.ActionFail, "another task")

		records, err := store.Read(context.Background(), tasklog.Filter{
			Actions: []tasklog.Action{tasklog.ActionRun},
		})
		require.NoError(t, err)
		require.Len(t, records, 3)
		for _, rec := range records {
			assert.Equal(t, tasklog.ActionRun, rec.Action)
		}
	})

	t.Run("time range returns middle records", func(t *testing.T) {
		t.Parallel()

		store := tasklog.NewMemoryStore()
		mustAppend(t, store, at(t, "07:01:00"), tasklog.ActionRun, "mytask")
		mustAppend(t, store, at(t, "07:02:00"), tasklog.ActionSuccess, "mytask")
		mustAppend(t, store, at(t, "07:03:00"), tasklog.ActionRun, "mytask")
		mustAppend(t, store, at(t, "07:04:00"), tasklog.ActionTerminate, "mytask")
		mustAppend(t, store, at(t, "07:05:00"), tasklog.ActionRun, "another task")
		mustAppend(t, store, at(t, "07:06:00"), tasklog.ActionFail, "another task")

		records, err := store.Read(context.Background(), tasklog.Filter{
			MinTime: at(t, "07:01:30"),
			MaxTime: at(t, "07:05:30"),
		})
		require.NoError(t, err)
		require.Len(t, records, 4)
		assert.Equal(t, at(t, "07:02:00"), records[0].Created)
		assert.Equal(t, at(t, "07:05:00"), records[3].Created)
	})

	t.Run("compound filter is AND across fields, OR within actions", func(t *testing.T) {
		t.Parallel()

		store := tasklog.NewMemoryStore()
		mustAppend(t, store, at(t, "07:01:00"), tasklog.ActionRun, "mytask")
		mustAppend(t, store, at(t, "07:02:00"), tasklog.ActionSuccess, "mytask")
		mustAppend(t, store, at(t, "07:03:00"), tasklog.ActionRun, "mytask")
		mustAppend(t, store, at(t, "07:04:00"), tasklog.ActionTerminate, "mytask")
		mustAppend(t, store, at(t, "07:05:00"), tasklog.ActionSuccess, "another task")
		mustAppend(t, store, at(t, "07:06:00"), tasklog.ActionFail, "mytask")

		records, err := store.Read(context.Background(), tasklog.Filter{
			TaskNames: []string{"mytask"},
			Actions:   []tasklog.Action{tasklog.ActionSuccess, tasklog.ActionTerminate},
			MinTime:   at(t, "07:01:30"),
		})
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, tasklog.ActionSuccess, records[0].Action)
		assert.Equal(t, tasklog.ActionTerminate, records[1].Action)
		for _, rec := range records {
			assert.Equal(t, "mytask", rec.TaskName)
		}
	})

	t.Run("max seq bounds the snapshot", func(t *testing.T) {
		t.Parallel()

		store := tasklog.NewMemoryStore()
		mustAppend(t, store, at(t, "07:01:00"), tasklog.ActionRun, "mytask")
		cursor, err := store.LastSeq(context.Background())
		require.NoError(t, err)
		mustAppend(t, store, at(t, "07:02:00"), tasklog.ActionSuccess, "mytask")

		records, err := store.Read(context.Background(), tasklog.Filter{MaxSeq: cursor})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, tasklog.ActionRun, records[0].Action)
	})
}

func TestMemoryStore_Stats(t *testing.T) {
	t.Parallel()

	store := tasklog.NewMemoryStore()
	mustAppend(t, store, at(t, "07:01:00"), tasklog.ActionRun, "a")
	mustAppend(t, store, at(t, "07:02:00"), tasklog.ActionSuccess, "a")
	mustAppend(t, store, at(t, "07:03:00"), tasklog.ActionRun, "b")

	stats := store.Stats()
	assert.Equal(t, 3, stats.Records)
	assert.Equal(t, 2, stats.TasksTracked)
	assert.Equal(t, int64(3), stats.LastSeq)
}

func TestActionHelpers(t *testing.T) {
	t.Parallel()

	assert.True(t, tasklog.ActionSuccess.Terminal())
	assert.True(t, tasklog.ActionFail.Terminal())
	assert.True(t, tasklog.ActionTerminate.Terminal())
	assert.True(t, tasklog.ActionCrash.Terminal())
	assert.False(t, tasklog.ActionRun.Terminal())
	assert.False(t, tasklog.ActionInaction.Terminal())

	assert.False(t, tasklog.Action("explode").Valid())
}
