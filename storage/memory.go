package storage

import (
	"context"
	"sync"
)

// MemoryStore keeps snapshots in process memory. It is the default when no
// Redis address is configured.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Get returns a copy of the stored value.
func (ms *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	v, ok := ms.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set stores a copy of value.
func (ms *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.data[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes key.
func (ms *MemoryStore) Delete(ctx context.Context, key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.data, key)
	return nil
}

// Clear removes every key.
func (ms *MemoryStore) Clear(ctx context.Context) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.data = make(map[string][]byte)
	return nil
}

// Close is a no-op.
func (ms *MemoryStore) Close() error {
	return nil
}
