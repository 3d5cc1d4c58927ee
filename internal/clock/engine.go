// Package clock implements the countdown engine: one ticking goroutine per
// active countdown, decrementing once per interval, with an exactly-once
// completion signal when the countdown reaches zero.
package clock

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"focusvillage/backend/internal/model"
)

// Completion describes one naturally expired countdown.
type Completion struct {
	Mode         string
	TotalSeconds int
	CompletedAt  time.Time
}

// State is a read-only snapshot of the engine.
type State struct {
	Mode             string `json:"mode"`
	RemainingSeconds int    `json:"remainingSeconds"`
	TotalSeconds     int    `json:"totalSeconds"`
	Running          bool   `json:"running"`
}

type Option func(*Engine)

// WithTickInterval overrides the one second tick, for tests.
func WithTickInterval(interval time.Duration) Option {
	return func(e *Engine) {
		e.interval = interval
	}
}

type Engine struct {
	mu         sync.Mutex
	mode       string
	remaining  int
	total      int
	running    bool
	stop       chan struct{}
	interval   time.Duration
	onComplete func(Completion)
	log        *zap.SugaredLogger
}

// NewEngine starts idle in focus mode at the nominal focus duration.
// onComplete is invoked exactly once per countdown that ticks to zero.
func NewEngine(log *zap.SugaredLogger, onComplete func(Completion), opts ...Option) *Engine {
	total := model.DurationForMode(model.ModeFocus)
	e := &Engine{
		mode:       model.ModeFocus,
		remaining:  total,
		total:      total,
		interval:   time.Second,
		onComplete: onComplete,
		log:        log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start begins ticking. A no-op while already running or at zero remaining;
// an expired countdown must be reset before it can run again.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running || e.remaining <= 0 {
		return
	}

	e.running = true
	e.stop = make(chan struct{})
	go e.run(e.stop)
}

// Pause stops the tick goroutine and preserves the remaining time exactly.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.haltLocked()
}

// Reset stops any active countdown and returns to idle at the nominal
// duration for the given mode. Switching modes discards partial progress.
func (e *Engine) Reset(mode string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.haltLocked()
	e.mode = mode
	e.total = model.DurationForMode(mode)
	e.remaining = e.total
}

// SetCustomDuration overrides both the total and remaining time.
// Non-positive input is ignored; the running flag is untouched.
func (e *Engine) SetCustomDuration(seconds int) {
	if seconds <= 0 {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.total = seconds
	e.remaining = seconds
}

func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return State{
		Mode:             e.mode,
		RemainingSeconds: e.remaining,
		TotalSeconds:     e.total,
		Running:          e.running,
	}
}

func (e *Engine) haltLocked() {
	if !e.running {
		return
	}
	e.running = false
	close(e.stop)
	e.stop = nil
}

func (e *Engine) run(stop chan struct{}) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			completion, done := e.tick()
			if completion != nil {
				e.fire(*completion)
			}
			if done {
				return
			}
		}
	}
}

// tick decrements by one second. The tick that reaches zero halts the
// countdown and yields the completion exactly once; a tick racing a pause
// finds running false and does nothing.
func (e *Engine) tick() (*Completion, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return nil, true
	}

	e.remaining--
	if e.remaining > 0 {
		return nil, false
	}

	e.remaining = 0
	e.running = false
	e.stop = nil
	return &Completion{
		Mode:         e.mode,
		TotalSeconds: e.total,
		CompletedAt:  time.Now().UTC(),
	}, true
}

// fire delivers the completion outside the engine lock. A panicking handler
// must not poison the engine; completion bookkeeping has already happened.
func (e *Engine) fire(completion Completion) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Errorw("completion handler panicked", "mode", completion.Mode, "panic", r)
		}
	}()
	if e.onComplete != nil {
		e.onComplete(completion)
	}
}
