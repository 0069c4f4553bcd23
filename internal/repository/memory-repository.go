package repository

import (
	"context"
	"sync"
)

// MemoryKVRepository is a process-local KVStore. It backs the memory storage
// mode and tests.
type MemoryKVRepository struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryKVRepository() *MemoryKVRepository {
	return &MemoryKVRepository{data: make(map[string][]byte)}
}

func (r *MemoryKVRepository) Get(_ context.Context, key string) ([]byte, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (r *MemoryKVRepository) Set(_ context.Context, key string, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)
	r.mu.Lock()
	r.data[key] = v
	r.mu.Unlock()
	return nil
}

func (r *MemoryKVRepository) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	delete(r.data, key)
	r.mu.Unlock()
	return nil
}

// Len returns the number of stored keys
func (r *MemoryKVRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}
