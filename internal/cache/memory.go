package cache

import (
	"context"
	"sync"
	"time"
)

// entry holds a private copy of the value. A zero deadline never expires.
type entry struct {
	value    []byte
	deadline time.Time
}

func (e entry) liveAt(now time.Time) bool {
	return e.deadline.IsZero() || !now.After(e.deadline)
}

// MemoryStore is the in-process fallback used when no redis address is set.
// Expired entries are dropped lazily on read and in bulk by Sweep.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string]entry{}, now: time.Now}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	now := s.now()
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if e.liveAt(now) {
		return clone(e.value), true, nil
	}
	s.mu.Lock()
	// a concurrent Set may have replaced the entry since the read lock
	if cur, ok := s.entries[key]; ok && !cur.liveAt(now) {
		delete(s.entries, key)
	}
	s.mu.Unlock()
	return nil, false, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := entry{value: clone(value)}
	if ttl > 0 {
		e.deadline = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.entries[key] = e
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Sweep drops expired entries and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, e := range s.entries {
		if !e.liveAt(now) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte{}, b...)
}
