package task

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focusvillage/backend/internal/logging"
	"focusvillage/backend/internal/model"
	"focusvillage/backend/internal/store"
)

func newTestStore(t *testing.T) (*Store, store.DocumentStore) {
	t.Helper()
	docs, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	s := NewStore(context.Background(), Config{
		Key:            "user:test",
		Docs:           docs,
		SuppressWindow: 3 * time.Second,
		FlushDebounce:  10 * time.Millisecond,
	}, logging.NewNop())
	t.Cleanup(s.Close)
	return s, docs
}

func waitForFlush(t *testing.T, docs store.DocumentStore, key string) model.TaskDocument {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		doc, err := docs.Load(context.Background(), key)
		if err == nil {
			if raw, ok := doc[store.FieldTasks]; ok {
				var decoded model.TaskDocument
				require.NoError(t, json.Unmarshal(raw, &decoded))
				return decoded
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("task document was never flushed")
	return model.TaskDocument{}
}

func TestAddTaskDefaults(t *testing.T) {
	s, _ := newTestStore(t)

	created, err := s.AddTask(NewTaskInput{
		Title:              "Write report",
		Priority:           model.PriorityHigh,
		Category:           "Work",
		TargetSessionCount: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusTodo, created.Status)
	assert.Equal(t, 0, created.CompletedSessionCount)
	assert.NotEmpty(t, created.ID)

	_, err = s.AddTask(NewTaskInput{Title: "Second"})
	require.NoError(t, err)

	tasks, _ := s.Snapshot()
	require.Len(t, tasks, 2)
	assert.Equal(t, "Second", tasks[0].Title, "newest task is first")
	assert.Equal(t, "Write report", tasks[1].Title)
}

func TestAddTaskRejectsEmptyTitle(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.AddTask(NewTaskInput{Title: ""})
	assert.ErrorIs(t, err, ErrEmptyTitle)

	tasks, _ := s.Snapshot()
	assert.Empty(t, tasks)
}

func TestUpdateMissingTaskIsBenign(t *testing.T) {
	s, _ := newTestStore(t)
	title := "whatever"
	_, found := s.UpdateTask("nope", Patch{Title: &title})
	assert.False(t, found)
}

func TestCompletionStampAndHook(t *testing.T) {
	s, _ := newTestStore(t)
	completions := 0
	s.SetTaskCompletedHook(func() { completions++ })

	created, err := s.AddTask(NewTaskInput{Title: "Write report"})
	require.NoError(t, err)

	done := model.TaskStatusDone
	updated, found := s.UpdateTask(created.ID, Patch{Status: &done})
	require.True(t, found)
	require.NotNil(t, updated.CompletedAt)
	assert.Equal(t, 1, completions)

	// Un-completing clears the stamp but never decrements the counter.
	todo := model.TaskStatusTodo
	updated, found = s.UpdateTask(created.ID, Patch{Status: &todo})
	require.True(t, found)
	assert.Nil(t, updated.CompletedAt)
	assert.Equal(t, 1, completions)
}

func TestSelectFocusedTaskStartsTodo(t *testing.T) {
	s, _ := newTestStore(t)
	created, err := s.AddTask(NewTaskInput{Title: "Write report"})
	require.NoError(t, err)

	selected, err := s.SelectFocusedTask(created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusInProgress, selected.Status)

	focused, ok := s.FocusedTask()
	require.True(t, ok)
	assert.Equal(t, created.ID, focused.ID)
}

func TestDeleteClearsFocusedPointer(t *testing.T) {
	s, _ := newTestStore(t)
	first, _ := s.AddTask(NewTaskInput{Title: "first"})
	second, _ := s.AddTask(NewTaskInput{Title: "second"})

	_, err := s.SelectFocusedTask(first.ID)
	require.NoError(t, err)

	// Deleting a non-focused task leaves the pointer alone.
	assert.True(t, s.DeleteTask(second.ID))
	_, stillFocused := s.FocusedTask()
	assert.True(t, stillFocused)

	assert.True(t, s.DeleteTask(first.ID))
	_, stillFocused = s.FocusedTask()
	assert.False(t, stillFocused)
}

func TestIncrementSessionCount(t *testing.T) {
	s, _ := newTestStore(t)
	created, _ := s.AddTask(NewTaskInput{Title: "Write report"})

	assert.True(t, s.IncrementSessionCount(created.ID))
	assert.False(t, s.IncrementSessionCount("nope"))

	tasks, _ := s.Snapshot()
	assert.Equal(t, 1, tasks[0].CompletedSessionCount)
}

func TestDebouncedFlushRoundTrip(t *testing.T) {
	s, docs := newTestStore(t)
	created, _ := s.AddTask(NewTaskInput{Title: "Write report", Category: "Work"})
	_, err := s.SelectFocusedTask(created.ID)
	require.NoError(t, err)

	flushed := waitForFlush(t, docs, "user:test")
	require.Len(t, flushed.Tasks, 1)
	assert.Equal(t, created.ID, flushed.Tasks[0].ID)
	assert.Equal(t, created.ID, flushed.FocusedTaskID)

	reloaded := NewStore(context.Background(), Config{
		Key:            "user:test",
		Docs:           docs,
		SuppressWindow: 3 * time.Second,
		FlushDebounce:  10 * time.Millisecond,
	}, logging.NewNop())
	t.Cleanup(reloaded.Close)

	tasks, focusedID := reloaded.Snapshot()
	require.Len(t, tasks, 1)
	assert.Equal(t, "Write report", tasks[0].Title)
	assert.Equal(t, created.ID, focusedID)
}

func TestRemoteUpdateDiscardedInsideWindow(t *testing.T) {
	s, docs := newTestStore(t)
	_, err := s.AddTask(NewTaskInput{Title: "local edit"})
	require.NoError(t, err)

	remote, _ := json.Marshal(model.TaskDocument{Tasks: []model.Task{{
		ID:     "remote-1",
		Title:  "stale remote snapshot",
		Status: model.TaskStatusTodo,
	}}})
	require.NoError(t, docs.Write(context.Background(), "user:test", store.Document{store.FieldTasks: remote}))

	tasks, _ := s.Snapshot()
	require.Len(t, tasks, 1)
	assert.Equal(t, "local edit", tasks[0].Title)
}

func TestRemoteUpdateAppliedOutsideWindow(t *testing.T) {
	s, docs := newTestStore(t)
	_, err := s.AddTask(NewTaskInput{Title: "local edit"})
	require.NoError(t, err)

	// Move the store clock past the suppression window.
	s.mu.Lock()
	s.now = func() time.Time { return time.Now().UTC().Add(time.Minute) }
	s.mu.Unlock()

	remote, _ := json.Marshal(model.TaskDocument{Tasks: []model.Task{{
		ID:     "remote-1",
		Title:  "fresh remote snapshot",
		Status: model.TaskStatusTodo,
	}}})
	require.NoError(t, docs.Write(context.Background(), "user:test", store.Document{store.FieldTasks: remote}))

	tasks, _ := s.Snapshot()
	require.Len(t, tasks, 1)
	assert.Equal(t, "fresh remote snapshot", tasks[0].Title)
}

func TestGuestAdoptionRunsOnce(t *testing.T) {
	ctx := context.Background()
	remote, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	guest, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)

	guestDoc, _ := json.Marshal(model.TaskDocument{Tasks: []model.Task{{
		ID:     "guest-1",
		Title:  "offline task",
		Status: model.TaskStatusTodo,
	}}})
	require.NoError(t, guest.Write(ctx, "guest:device-1", store.Document{store.FieldTasks: guestDoc}))

	cfg := Config{
		Key:            "user:alice",
		Docs:           remote,
		SuppressWindow: 3 * time.Second,
		FlushDebounce:  10 * time.Millisecond,
		Fallback:       guest,
		FallbackKey:    "guest:device-1",
	}
	s := NewStore(ctx, cfg, logging.NewNop())

	tasks, _ := s.Snapshot()
	require.Len(t, tasks, 1)
	assert.Equal(t, "offline task", tasks[0].Title)

	// Adoption is persisted remotely by the debounced write.
	flushed := waitForFlush(t, remote, "user:alice")
	require.Len(t, flushed.Tasks, 1)
	s.Close()

	// Empty the remote record: adoption must not re-run now that one exists.
	empty, _ := json.Marshal(model.TaskDocument{Tasks: []model.Task{}})
	require.NoError(t, remote.Write(ctx, "user:alice", store.Document{store.FieldTasks: empty}))

	again := NewStore(ctx, cfg, logging.NewNop())
	t.Cleanup(again.Close)
	tasks, _ = again.Snapshot()
	assert.Empty(t, tasks)
}
