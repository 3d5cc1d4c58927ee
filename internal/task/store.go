// Package task owns the authoritative in-memory task list and focused-task
// pointer for one identity. Local mutations apply synchronously and are
// flushed behind a trailing debounce; remote change notifications are
// reconciled through the sync gate so a stale echo of our own write never
// clobbers a fresh local edit.
package task

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "focusvillage/backend/internal/errors"
	"focusvillage/backend/internal/model"
	"focusvillage/backend/internal/store"
	"focusvillage/backend/internal/syncgate"
)

var ErrEmptyTitle = errors.New("task title must not be empty")

// Patch carries the updatable task fields; nil means leave unchanged.
type Patch struct {
	Title              *string
	Status             *string
	Priority           *string
	Category           *string
	TargetSessionCount *int
}

// NewTaskInput is the user-supplied part of a new task.
type NewTaskInput struct {
	Title              string
	Priority           string
	Category           string
	TargetSessionCount int
}

type Config struct {
	Key            string
	Docs           store.DocumentStore
	SuppressWindow time.Duration
	FlushDebounce  time.Duration

	// Fallback names the guest store and key whose data is adopted when
	// the identity has no remote record yet. One-time, one-directional.
	Fallback    store.DocumentStore
	FallbackKey string
}

type Store struct {
	mu         sync.Mutex
	key        string
	docs       store.DocumentStore
	gate       *syncgate.Gate
	log        *zap.SugaredLogger
	debounce   time.Duration
	now        func() time.Time
	flushTimer *time.Timer
	unsub      func()
	closed     bool

	tasks     []model.Task
	focusedID string

	// onTaskCompleted fires when a task transitions to done, outside the
	// store lock.
	onTaskCompleted func()
}

func NewStore(ctx context.Context, cfg Config, log *zap.SugaredLogger) *Store {
	s := &Store{
		key:      cfg.Key,
		docs:     cfg.Docs,
		gate:     syncgate.New(cfg.SuppressWindow),
		log:      log,
		debounce: cfg.FlushDebounce,
		now:      func() time.Time { return time.Now().UTC() },
		tasks:    []model.Task{},
	}

	s.load(ctx, cfg)
	s.unsub = cfg.Docs.Subscribe(cfg.Key, s.onRemoteChange)
	return s
}

// SetTaskCompletedHook wires the progression integration point.
func (s *Store) SetTaskCompletedHook(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTaskCompleted = fn
}

// AddTask creates a task with a fresh id and prepends it, newest first.
func (s *Store) AddTask(input NewTaskInput) (model.Task, error) {
	if input.Title == "" {
		return model.Task{}, ErrEmptyTitle
	}
	if !model.IsValidPriority(input.Priority) {
		input.Priority = model.PriorityMedium
	}
	if input.TargetSessionCount < 1 {
		input.TargetSessionCount = 1
	}

	s.mu.Lock()
	now := s.now()
	created := model.Task{
		ID:                 uuid.NewString(),
		Title:              input.Title,
		Status:             model.TaskStatusTodo,
		Priority:           input.Priority,
		Category:           input.Category,
		TargetSessionCount: input.TargetSessionCount,
		CreatedAt:          now,
	}
	s.tasks = append([]model.Task{created}, s.tasks...)
	s.afterMutationLocked(now)
	s.mu.Unlock()

	return created, nil
}

// UpdateTask merges the patch into the matching task. A missing id is a
// benign race, not an error. Transitioning to done stamps completedAt and
// fires the completion hook; leaving done clears the stamp without
// decrementing any counter.
func (s *Store) UpdateTask(id string, patch Patch) (model.Task, bool) {
	var completedHook func()

	s.mu.Lock()
	idx := s.indexOfLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return model.Task{}, false
	}

	now := s.now()
	task := &s.tasks[idx]
	if patch.Title != nil && *patch.Title != "" {
		task.Title = *patch.Title
	}
	if patch.Priority != nil && model.IsValidPriority(*patch.Priority) {
		task.Priority = *patch.Priority
	}
	if patch.Category != nil {
		task.Category = *patch.Category
	}
	if patch.TargetSessionCount != nil && *patch.TargetSessionCount >= 1 {
		task.TargetSessionCount = *patch.TargetSessionCount
	}
	if patch.Status != nil && model.IsValidTaskStatus(*patch.Status) && *patch.Status != task.Status {
		wasDone := task.Status == model.TaskStatusDone
		task.Status = *patch.Status
		if task.Status == model.TaskStatusDone {
			stamp := now
			task.CompletedAt = &stamp
			completedHook = s.onTaskCompleted
		} else if wasDone {
			task.CompletedAt = nil
		}
	}

	updated := *task
	s.afterMutationLocked(now)
	s.mu.Unlock()

	if completedHook != nil {
		completedHook()
	}
	return updated, true
}

// DeleteTask removes the task and clears the focused pointer when it
// referenced the deleted task.
func (s *Store) DeleteTask(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOfLocked(id)
	if idx < 0 {
		return false
	}

	s.tasks = append(s.tasks[:idx], s.tasks[idx+1:]...)
	if s.focusedID == id {
		s.focusedID = ""
	}
	s.afterMutationLocked(s.now())
	return true
}

// SelectFocusedTask points focus-session credit at the task. Selecting a
// todo task moves it to in-progress.
func (s *Store) SelectFocusedTask(id string) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOfLocked(id)
	if idx < 0 {
		return model.Task{}, apperrors.ErrNotFound
	}

	s.focusedID = id
	if s.tasks[idx].Status == model.TaskStatusTodo {
		s.tasks[idx].Status = model.TaskStatusInProgress
	}
	s.afterMutationLocked(s.now())
	return s.tasks[idx], nil
}

// IncrementSessionCount credits one completed focus session to the task.
func (s *Store) IncrementSessionCount(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOfLocked(id)
	if idx < 0 {
		return false
	}
	s.tasks[idx].CompletedSessionCount++
	s.afterMutationLocked(s.now())
	return true
}

// Snapshot returns a copy of the list and the focused pointer.
func (s *Store) Snapshot() ([]model.Task, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Task(nil), s.tasks...), s.focusedID
}

// FocusedTask resolves the weak pointer, reporting false when it is unset
// or dangling.
func (s *Store) FocusedTask() (model.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.focusedID == "" {
		return model.Task{}, false
	}
	idx := s.indexOfLocked(s.focusedID)
	if idx < 0 {
		return model.Task{}, false
	}
	return s.tasks[idx], true
}

// Close stops the remote subscription and flushes any pending write.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	pending := s.flushTimer != nil
	if pending {
		s.flushTimer.Stop()
		s.flushTimer = nil
	}
	unsub := s.unsub
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	if pending {
		s.flush()
	}
}

func (s *Store) load(ctx context.Context, cfg Config) {
	doc, err := cfg.Docs.Load(ctx, cfg.Key)
	if err == nil {
		// A tasks field, even an emptied one, counts as an existing
		// record and blocks adoption for good.
		if _, ok := doc[store.FieldTasks]; ok {
			s.applyDocument(doc)
			return
		}
	} else if err != apperrors.ErrNotFound {
		s.log.Errorw("load tasks", "key", cfg.Key, "error", err)
		return
	}

	// No remote record yet: adopt the guest data once, if any. The
	// adopted state reaches the remote store on the next debounced write,
	// and this path never re-runs once a remote record exists.
	if cfg.Fallback == nil || cfg.FallbackKey == "" {
		return
	}
	guestDoc, guestErr := cfg.Fallback.Load(ctx, cfg.FallbackKey)
	if guestErr != nil {
		if guestErr != apperrors.ErrNotFound {
			s.log.Errorw("load guest tasks", "key", cfg.FallbackKey, "error", guestErr)
		}
		return
	}
	if s.applyDocument(guestDoc) {
		s.log.Infow("adopted guest tasks", "key", cfg.Key, "from", cfg.FallbackKey, "count", len(s.tasks))
		s.mu.Lock()
		s.afterMutationLocked(s.now())
		s.mu.Unlock()
	}
}

func (s *Store) applyDocument(doc store.Document) bool {
	raw, ok := doc[store.FieldTasks]
	if !ok {
		return false
	}
	var decoded model.TaskDocument
	if err := json.Unmarshal(raw, &decoded); err != nil {
		s.log.Errorw("decode tasks", "key", s.key, "error", err)
		return false
	}

	s.mu.Lock()
	s.tasks = decoded.Tasks
	if s.tasks == nil {
		s.tasks = []model.Task{}
	}
	s.focusedID = decoded.FocusedTaskID
	if s.focusedID != "" && s.indexOfLocked(s.focusedID) < 0 {
		s.focusedID = ""
	}
	s.mu.Unlock()
	return true
}

// onRemoteChange applies a remote snapshot wholesale, unless it lands
// inside the suppression window of a recent local write. Discards are by
// design, not errors.
func (s *Store) onRemoteChange(doc store.Document) {
	s.mu.Lock()
	now := s.now()
	s.mu.Unlock()

	if !s.gate.ShouldApply(now) {
		s.log.Debugw("discarded remote update inside suppression window", "key", s.key)
		return
	}
	s.applyDocument(doc)
}

func (s *Store) indexOfLocked(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// afterMutationLocked marks the gate and re-arms the trailing debounce so
// rapid edits coalesce into one write.
func (s *Store) afterMutationLocked(now time.Time) {
	s.gate.MarkLocalWrite(now)
	if s.closed {
		return
	}
	if s.flushTimer != nil {
		s.flushTimer.Stop()
	}
	s.flushTimer = time.AfterFunc(s.debounce, s.flush)
}

// flush persists the settled state. A failure is logged and not retried;
// in-memory state stays authoritative and the next mutation's debounce
// cycle writes again.
func (s *Store) flush() {
	s.mu.Lock()
	s.flushTimer = nil
	doc := model.TaskDocument{
		Tasks:         append([]model.Task(nil), s.tasks...),
		FocusedTaskID: s.focusedID,
	}
	s.mu.Unlock()

	raw, err := json.Marshal(doc)
	if err != nil {
		s.log.Errorw("encode tasks", "key", s.key, "error", err)
		return
	}
	if err := s.docs.Write(context.Background(), s.key, store.Document{store.FieldTasks: raw}); err != nil {
		s.log.Errorw("persist tasks", "key", s.key, "error", err)
	}
}
