// Package store provides the persistent document stores backing the task
// and progression state. A document is a set of named JSON fields keyed by
// identity; writes merge named fields with last-write-wins semantics and
// fan out to in-process subscribers.
package store

import (
	"context"
	"encoding/json"
	"sync"
)

// Field names within an identity document. The task list is written
// independently of the profile so neither clobbers the other.
const (
	FieldTasks   = "tasks"
	FieldProfile = "profile"
)

type Document map[string]json.RawMessage

// DocumentStore is the narrow contract the engines persist through.
// Load returns errors.ErrNotFound when no document exists for the key.
type DocumentStore interface {
	Load(ctx context.Context, key string) (Document, error)
	Write(ctx context.Context, key string, fields Document) error
	Subscribe(key string, fn func(Document)) (unsubscribe func())
}

// notifier fans document changes out to in-process subscribers. Delivery is
// synchronous, in subscription order.
type notifier struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]func(Document)
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[string]map[int]func(Document))}
}

func (n *notifier) subscribe(key string, fn func(Document)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.subs[key] == nil {
		n.subs[key] = make(map[int]func(Document))
	}
	n.nextID++
	id := n.nextID
	n.subs[key][id] = fn

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs[key], id)
	}
}

func (n *notifier) notify(key string, doc Document) {
	n.mu.Lock()
	fns := make([]func(Document), 0, len(n.subs[key]))
	for _, fn := range n.subs[key] {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn(doc)
	}
}

func cloneDocument(doc Document) Document {
	out := make(Document, len(doc))
	for field, value := range doc {
		copied := make(json.RawMessage, len(value))
		copy(copied, value)
		out[field] = copied
	}
	return out
}
