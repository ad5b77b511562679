package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is an in-process TTLCache for tests and deployments without
// Redis. Expired keys are dropped lazily on read and swept periodically.
type MemoryCache struct {
	mu    sync.RWMutex
	items map[string]time.Time
	done  chan struct{}
}

func NewMemoryCache() *MemoryCache {
	m := &MemoryCache{
		items: make(map[string]time.Time),
		done:  make(chan struct{}),
	}
	go m.sweepLoop()
	return m
}

func (m *MemoryCache) Has(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	expires, ok := m.items[key]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if time.Now().After(expires) {
		m.mu.Lock()
		delete(m.items, key)
		m.mu.Unlock()
		return false, nil
	}
	return true, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	m.items[key] = time.Now().Add(ttl)
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) Close() error {
	close(m.done)
	return nil
}

func (m *MemoryCache) sweepLoop() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *MemoryCache) sweep() {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, expires := range m.items {
		if now.After(expires) {
			delete(m.items, key)
		}
	}
}
