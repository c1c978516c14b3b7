// Package cache holds rendered chart output between writes.
package cache

import (
	"log/slog"
	"slices"
	"sync"
	"time"
)

// Cache is what the chart handler needs from LRUCache.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Generation() uint64
	SetIfGeneration(key string, data T, gen uint64) bool
	Delete(key string)
	// Purge drops every entry, used when the underlying data changes
	Purge()
	Size() int
}

// Cleaner drops expired entries and reports how many.
type Cleaner interface {
	CleanExpired() int
}

// Manager sweeps expired entries from its caches on a ticker. A stopped
// Manager never starts again.
type Manager struct {
	mu      sync.Mutex
	caches  []Cleaner
	quit    chan struct{}
	done    chan struct{}
	stopped bool
}

func NewManager() *Manager {
	return &Manager{}
}

func (m *Manager) Register(c Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches = append(m.caches, c)
}

// StartCleanup sweeps every interval until Stop. Extra calls are ignored.
func (m *Manager) StartCleanup(interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.quit != nil || m.stopped || interval <= 0 {
		return
	}
	m.quit, m.done = make(chan struct{}), make(chan struct{})
	go m.sweepEvery(interval, m.quit, m.done)
}

// CleanNow sweeps once and reports how many entries were dropped.
func (m *Manager) CleanNow() int {
	m.mu.Lock()
	caches := slices.Clone(m.caches)
	m.mu.Unlock()

	dropped := 0
	for _, c := range caches {
		dropped += c.CleanExpired()
	}
	return dropped
}

func (m *Manager) sweepEvery(interval time.Duration, quit <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-quit:
			return
		case <-tick.C:
			if n := m.CleanNow(); n > 0 {
				slog.Debug("Expired cache entries removed", "component", "cache", "count", n)
			}
		}
	}
}

// Stop waits for a running sweep loop to exit. Safe before StartCleanup and
// when called twice.
func (m *Manager) Stop() {
	m.mu.Lock()
	quit, done := m.quit, m.done
	m.quit, m.stopped = nil, true
	m.mu.Unlock()
	if quit == nil {
		return
	}
	close(quit)
	<-done
}
