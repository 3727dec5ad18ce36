package securestore

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store. Snapshots do not survive a restart,
// so it is only suitable for tests and ephemeral deployments.
type MemoryStore struct {
	mu       sync.RWMutex
	services map[string]map[string]string
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		services: make(map[string]map[string]string),
	}
}

// Set stores value under (service, key)
func (m *MemoryStore) Set(ctx context.Context, service, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys, ok := m.services[service]
	if !ok {
		keys = make(map[string]string)
		m.services[service] = keys
	}
	keys[key] = value
	return nil
}

// Get retrieves the value under (service, key)
func (m *MemoryStore) Get(ctx context.Context, service, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys, ok := m.services[service]
	if !ok {
		return "", ErrNotFound
	}
	value, ok := keys[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

// Reset removes every key stored under service
func (m *MemoryStore) Reset(ctx context.Context, service string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.services, service)
	return nil
}
