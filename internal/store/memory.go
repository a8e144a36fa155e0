package store

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-process ContentStore with the same compare-and-swap
// contract as RedisStore. Used by tests and by the CLI's offline paths.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string]memoryEntry
}

type memoryEntry struct {
	content string
	token   string
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]memoryEntry)}
}

// Read returns the stored content and token, or ErrNotFound.
func (s *MemoryStore) Read(_ context.Context, path string) (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.docs[path]
	if !ok {
		return "", "", ErrNotFound
	}
	return entry.content, entry.token, nil
}

// Write stores content iff the current token matches expectedToken, minting
// a fresh token. An empty expectedToken is valid only when the path is absent.
func (s *MemoryStore) Write(_ context.Context, path, content, expectedToken string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := ""
	if entry, ok := s.docs[path]; ok {
		current = entry.token
	}
	if current != expectedToken {
		return "", ErrConflict
	}

	token := uuid.New().String()
	s.docs[path] = memoryEntry{content: content, token: token}
	return token, nil
}
