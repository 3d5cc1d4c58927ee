// Package syncgate implements the suppression window that protects a just
// written local state from being clobbered by a stale remote echo. Every
// local mutation pushes the deadline forward; remote updates arriving before
// the deadline are discarded, updates after it are applied.
package syncgate

import (
	"sync"
	"time"
)

type Gate struct {
	mu       sync.Mutex
	window   time.Duration
	deadline time.Time
}

func New(window time.Duration) *Gate {
	return &Gate{window: window}
}

// MarkLocalWrite extends the suppression deadline to now+window.
func (g *Gate) MarkLocalWrite(now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deadline = now.Add(g.window)
}

// ShouldApply reports whether a remote update arriving at the given time is
// outside the suppression window. Updates landing exactly on the deadline
// are applied.
func (g *Gate) ShouldApply(at time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !at.Before(g.deadline)
}
