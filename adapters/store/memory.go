package store

import (
	"context"
	"sync"

	"github.com/pawhaven/voicecore/domain/repositories"
)

// MemoryStore is an in-memory KeyValueStore. It backs tests and serves
// as the degraded fallback when a durable backend cannot open.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// Ensure MemoryStore implements the KeyValueStore interface
var _ repositories.KeyValueStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: make(map[string][]byte),
	}
}

// Get implements repositories.KeyValueStore
func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, exists := m.values[key]
	if !exists {
		return nil, repositories.ErrKeyNotFound
	}

	// Return a copy to prevent external modifications
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Set implements repositories.KeyValueStore
func (m *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	m.values[key] = stored
	return nil
}

// Delete implements repositories.KeyValueStore
func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
	return nil
}

// Close implements repositories.KeyValueStore
func (m *MemoryStore) Close() error {
	return nil
}
