package store

import (
	"context"
	"path"
	"strconv"
	"sync"
	"time"
)

type entry struct {
	value     string
	expiresAt time.Time // zero = no expiry
}

// MemoryStore is an in-process Store with TTL support. Used by tests and
// single-node runs where sharing state across instances is not needed.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

func (s *MemoryStore) expired(e entry) bool {
	return !e.expiresAt.IsZero() && s.now().After(e.expiresAt)
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return "", false, nil
	}
	if s.expired(e) {
		delete(s.entries, key)
		return "", false, nil
	}
	return e.value, true, nil
}

func (s *MemoryStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.entries[key] = e
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || s.expired(e) {
		e = entry{value: "1"}
		if ttl > 0 {
			e.expiresAt = s.now().Add(ttl)
		}
		s.entries[key] = e
		return 1, nil
	}

	n, err := strconv.ParseInt(e.value, 10, 64)
	if err != nil {
		return 0, err
	}
	n++
	e.value = strconv.FormatInt(n, 10)
	s.entries[key] = e
	return n, nil
}

func (s *MemoryStore) DeleteMatching(ctx context.Context, pattern string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for key := range s.entries {
		ok, err := path.Match(pattern, key)
		if err != nil {
			return deleted, err
		}
		if ok {
			delete(s.entries, key)
			deleted++
		}
	}
	return deleted, nil
}

// Len reports the number of live entries. Test helper.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, e := range s.entries {
		if !s.expired(e) {
			n++
		}
	}
	return n
}
