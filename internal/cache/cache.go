// Package cache holds small in-process caches used to spare the store
// repeated lookups, such as resolving the user behind a bearer token.
package cache

import (
	"context"
	"log/slog"
	"time"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// Cleaner is a cache that can drop expired entries on demand.
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically cleans registered caches until its context ends.
type Manager struct {
	caches []Cleaner
	done   chan struct{}
}

func NewManager(caches ...Cleaner) *Manager {
	return &Manager{caches: caches, done: make(chan struct{})}
}

// Run cleans every interval and returns when ctx is cancelled.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	defer close(m.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.CleanOnce(); n > 0 {
				slog.Debug("Expired cache entries removed", "component", "cache", "count", n)
			}
		case <-ctx.Done():
			return
		}
	}
}

// CleanOnce runs one cleanup pass over all caches.
func (m *Manager) CleanOnce() int {
	total := 0
	for _, c := range m.caches {
		total += c.CleanExpired()
	}
	return total
}

// Done is closed once Run has returned.
func (m *Manager) Done() <-chan struct{} { return m.done }
