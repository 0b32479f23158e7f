package cache

import (
	"context"
	"sync"

	"github.com/aqureshiest/parse-pdf/internal/models"
)

// MemoryStore is a process-local store, useful for local runs and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]models.ParsedDocument
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]models.ParsedDocument)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (*models.ParsedDocument, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[key]
	if !ok {
		return nil, false, nil
	}
	return &doc, true, nil
}

func (s *MemoryStore) Put(_ context.Context, key string, doc *models.ParsedDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[key] = *doc
	return nil
}

// Len reports the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func (s *MemoryStore) Close() error { return nil }
