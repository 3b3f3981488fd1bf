// Package cache holds small in-process caches for reference data such as the
// category list. Account balances are always computed and never cached here.
package cache

import (
	"log/slog"
	"sync"
	"time"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	// Purge drops every entry, used when the underlying data changes.
	Purge()
	Size() int
}

// Cleaner is implemented by caches that can evict expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Manager runs periodic cleanup for the registered caches.
type Manager struct {
	mu          sync.Mutex
	caches      map[string]Cleaner
	stopCleanup chan struct{}
	cleanupDone chan struct{}
	started     bool
}

func NewManager() *Manager {
	return &Manager{
		caches:      make(map[string]Cleaner),
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a named cache to the manager for cleanup
func (m *Manager) Register(name string, cache Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches[name] = cache
}

// CleanAll evicts expired entries from every registered cache.
func (m *Manager) CleanAll() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := 0
	for name, c := range m.caches {
		if n := c.CleanExpired(); n > 0 {
			slog.Debug("Cache entries expired", "cache", name, "removed", n)
			total += n
		}
	}
	return total
}

// StartCleanup begins periodic cleanup of all registered caches
func (m *Manager) StartCleanup(interval time.Duration) {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.CleanAll()
		case <-m.stopCleanup:
			return
		}
	}
}

// Stop stops the cleanup routine and waits for it to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	started := m.started
	m.started = false
	m.mu.Unlock()

	if started {
		close(m.stopCleanup)
		<-m.cleanupDone
	}
}
