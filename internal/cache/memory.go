package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryProvider is an in-process Provider for single-instance deployments
// and local development. Expired entries are dropped lazily on access.
type MemoryProvider struct {
	mu   sync.Mutex
	data map[string]memoryItem
}

type memoryItem struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryProvider creates an empty in-memory cache.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{data: make(map[string]memoryItem)}
}

func (m *MemoryProvider) get(key string) (memoryItem, bool) {
	it, ok := m.data[key]
	if !ok {
		return memoryItem{}, false
	}
	if !it.expiresAt.IsZero() && time.Now().After(it.expiresAt) {
		delete(m.data, key)
		return memoryItem{}, false
	}
	return it, true
}

// Get retrieves a cached value, returning ErrCacheMiss when absent or
// expired.
func (m *MemoryProvider) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.get(key)
	if !ok {
		return nil, ErrCacheMiss
	}
	value := make([]byte, len(it.value))
	copy(value, it.value)
	return value, nil
}

// Set stores a value with an optional TTL; ttl <= 0 means no expiry.
func (m *MemoryProvider) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set(key, value, ttl)
	return nil
}

// SetNX stores the value only when the key is absent, reporting whether the
// write happened.
func (m *MemoryProvider) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.get(key); exists {
		return false, nil
	}
	m.set(key, value, ttl)
	return true, nil
}

// Del removes an entry.
func (m *MemoryProvider) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Close releases the backing map.
func (m *MemoryProvider) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = nil
	return nil
}

func (m *MemoryProvider) set(key string, value []byte, ttl time.Duration) {
	if m.data == nil {
		m.data = make(map[string]memoryItem)
	}
	var expires time.Time
	if ttl > 0 {
		expires = time.Now().Add(ttl)
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	m.data[key] = memoryItem{value: stored, expiresAt: expires}
}
