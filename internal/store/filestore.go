package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	apperrors "focusvillage/backend/internal/errors"
)

// FileStore is the guest-mode backing store: one JSON file per key under a
// data directory, with the same field-merge semantics as the SQLite store.
type FileStore struct {
	dir      string
	mu       sync.Mutex
	notifier *notifier
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileStore{dir: dir, notifier: newNotifier()}, nil
}

func (s *FileStore) Load(ctx context.Context, key string) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(key)
}

func (s *FileStore) Write(ctx context.Context, key string, fields Document) error {
	if len(fields) == 0 {
		return nil
	}

	s.mu.Lock()
	doc, err := s.read(key)
	if err == apperrors.ErrNotFound {
		doc = Document{}
	} else if err != nil {
		s.mu.Unlock()
		return err
	}

	for field, value := range fields {
		doc[field] = value
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("encode document: %w", err)
	}
	if err := os.WriteFile(s.path(key), raw, 0o644); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("write document file: %w", err)
	}
	merged := cloneDocument(doc)
	s.mu.Unlock()

	s.notifier.notify(key, merged)
	return nil
}

func (s *FileStore) Subscribe(key string, fn func(Document)) func() {
	return s.notifier.subscribe(key, fn)
}

func (s *FileStore) read(key string) (Document, error) {
	raw, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read document file: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode document file: %w", err)
	}
	if len(doc) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return doc, nil
}

// path flattens the key into a safe file name; identity keys contain ':'
// separators.
func (s *FileStore) path(key string) string {
	name := strings.NewReplacer(":", "_", "/", "_").Replace(key)
	return filepath.Join(s.dir, name+".json")
}
