package session

import (
	"context"
	"sync"
)

// MemoryBackend keeps every browser's values in process memory.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string]map[string]string
}

var _ Backend = (*MemoryBackend)(nil)

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string]map[string]string)}
}

func (m *MemoryBackend) Load(_ context.Context, browserID, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[browserID][key]
	return v, ok, nil
}

func (m *MemoryBackend) Save(_ context.Context, browserID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[browserID] == nil {
		m.data[browserID] = make(map[string]string)
	}
	m.data[browserID][key] = value
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, browserID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data[browserID], key)
	if len(m.data[browserID]) == 0 {
		delete(m.data, browserID)
	}
	return nil
}

func (m *MemoryBackend) Clear(_ context.Context, browserID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, browserID)
	return nil
}
