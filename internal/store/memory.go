package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryStore keeps collections as marshaled JSON in a map. Round-tripping
// through JSON gives it the same copy semantics as the file store, which
// keeps tests honest about what actually persists.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Load decodes the stored collection into v, or ErrNotFound.
func (s *MemoryStore) Load(ctx context.Context, collection string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	data, ok := s.data[collection]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, collection)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode collection %s: %w", collection, err)
	}
	return nil
}

// Save encodes v and stores it under the collection name.
func (s *MemoryStore) Save(ctx context.Context, collection string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode collection %s: %w", collection, err)
	}
	s.mu.Lock()
	s.data[collection] = data
	s.mu.Unlock()
	return nil
}
