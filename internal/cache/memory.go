package cache

import (
	"context"
	"sync"
	"time"

	"github.com/soen-app/praxis/pkg/envelope"
)

// entry pairs a stored response with its expiry. Entries are never mutated,
// only replaced, so a returned clone can be handed out without locking.
type entry struct {
	resp    *envelope.Response
	expires time.Time
}

// Memory is the in-process cache store. Eviction is lazy: an expired entry
// is removed by the lookup that finds it, and Sweep bounds memory between
// lookups.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get implements Store.
func (m *Memory) Get(ctx context.Context, key string) (*envelope.Response, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if m.now().After(e.expires) {
		m.mu.Lock()
		// Re-check under the write lock; a Put may have replaced the entry.
		if cur, still := m.entries[key]; still && m.now().After(cur.expires) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, false
	}
	return e.resp.Clone(), true
}

// Put implements Store. Concurrent puts for the same key race benignly;
// last write wins, entries for one key are expected to be equivalent.
func (m *Memory) Put(ctx context.Context, key string, resp *envelope.Response, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	m.mu.Lock()
	m.entries[key] = entry{
		resp:    resp.Clone(),
		expires: m.now().Add(ttl),
	}
	m.mu.Unlock()
}

// Sweep implements Store.
func (m *Memory) Sweep(ctx context.Context) {
	now := m.now()
	m.mu.Lock()
	for key, e := range m.entries {
		if now.After(e.expires) {
			delete(m.entries, key)
		}
	}
	m.mu.Unlock()
}

// Len returns the number of live and expired entries currently held.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
