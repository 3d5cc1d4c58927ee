package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"focusvillage/backend/internal/clock"
	"focusvillage/backend/internal/model"
	"focusvillage/backend/internal/progression"
	"focusvillage/backend/internal/store"
	"focusvillage/backend/internal/task"
)

// Identity names the owner of a runtime: an authenticated user or a
// device-scoped guest. Key is the document-store key for all persisted
// state of that identity.
type Identity struct {
	Key      string
	UserID   string
	DeviceID string
	Guest    bool
}

func UserKey(userID string) string {
	return "user:" + userID
}

func GuestKey(deviceID string) string {
	return "guest:" + deviceID
}

// UserSession bundles the per-identity runtime: the countdown engine, the
// task store, and the progression engine, wired so focus completions credit
// the focused task and the profile.
type UserSession struct {
	Identity Identity
	Clock    *clock.Engine
	Tasks    *task.Store
	Progress *progression.Engine
}

// handleCompletion is the single consumer of clock completion events.
// Minutes are floor-divided from the countdown's total seconds.
func (us *UserSession) handleCompletion(completion clock.Completion) {
	ctx := context.Background()
	minutes := completion.TotalSeconds / 60

	if completion.Mode != model.ModeFocus {
		us.Progress.OnBreakSessionCompleted(ctx, minutes, completion.Mode)
		return
	}

	category := ""
	focused, ok := us.Tasks.FocusedTask()
	if ok {
		category = focused.Category
	}
	us.Progress.OnFocusSessionCompleted(ctx, minutes, category)
	if ok {
		us.Tasks.IncrementSessionCount(focused.ID)
	}
}

type SessionsConfig struct {
	SuppressWindow time.Duration
	FlushDebounce  time.Duration

	// TickInterval overrides the clock engines' one second tick; tests
	// shrink it.
	TickInterval time.Duration
}

// Sessions creates runtimes on first touch after identity resolution and
// tears them all down on Close.
type Sessions struct {
	mu       sync.Mutex
	cfg      SessionsConfig
	remote   store.DocumentStore
	guest    store.DocumentStore
	log      *zap.SugaredLogger
	sessions map[string]*UserSession
}

func NewSessions(remote, guest store.DocumentStore, cfg SessionsConfig, log *zap.SugaredLogger) *Sessions {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	return &Sessions{
		cfg:      cfg,
		remote:   remote,
		guest:    guest,
		log:      log,
		sessions: make(map[string]*UserSession),
	}
}

// Get returns the identity's runtime, building it on first use.
func (s *Sessions) Get(ctx context.Context, identity Identity) *UserSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.sessions[identity.Key]; ok {
		return existing
	}

	docs := s.remote
	if identity.Guest {
		docs = s.guest
	}

	taskCfg := task.Config{
		Key:            identity.Key,
		Docs:           docs,
		SuppressWindow: s.cfg.SuppressWindow,
		FlushDebounce:  s.cfg.FlushDebounce,
	}
	// An authenticated identity arriving from a known device adopts that
	// device's guest data when no remote record exists yet.
	if !identity.Guest && identity.DeviceID != "" {
		taskCfg.Fallback = s.guest
		taskCfg.FallbackKey = GuestKey(identity.DeviceID)
	}

	session := &UserSession{
		Identity: identity,
		Tasks:    task.NewStore(ctx, taskCfg, s.log),
		Progress: progression.Load(ctx, identity.Key, docs, s.log),
	}
	session.Clock = clock.NewEngine(s.log, session.handleCompletion, clock.WithTickInterval(s.cfg.TickInterval))
	session.Tasks.SetTaskCompletedHook(func() {
		session.Progress.OnTaskCompleted(context.Background())
	})

	s.sessions[identity.Key] = session
	s.log.Infow("session created", "key", identity.Key, "guest", identity.Guest)
	return session
}

// Teardown drops one identity's runtime, flushing pending task writes.
func (s *Sessions) Teardown(key string) {
	s.mu.Lock()
	session, ok := s.sessions[key]
	delete(s.sessions, key)
	s.mu.Unlock()

	if ok {
		session.Clock.Pause()
		session.Tasks.Close()
	}
}

// Close tears down every runtime; used on server shutdown.
func (s *Sessions) Close() {
	s.mu.Lock()
	sessions := make([]*UserSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.sessions = make(map[string]*UserSession)
	s.mu.Unlock()

	for _, session := range sessions {
		session.Clock.Pause()
		session.Tasks.Close()
	}
}
