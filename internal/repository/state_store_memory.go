package repository

import (
	"context"
	"sync"
	"time"
)

type memEntry struct {
	value     []byte
	expiresAt time.Time
	hasTTL    bool
}

func (e memEntry) isExpired(now time.Time) bool {
	return e.hasTTL && now.After(e.expiresAt)
}

type memoryStateStore struct {
	mu      sync.RWMutex
	entries map[string]memEntry
}

func NewMemoryStateStore() StateStore {
	return &memoryStateStore{
		entries: make(map[string]memEntry),
	}
}

func (s *memoryStateStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	if entry.isExpired(time.Now()) {
		s.mu.Lock()
		if cur, still := s.entries[key]; still && cur.isExpired(time.Now()) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return nil, nil
	}
	return clone(entry.value), nil
}

func (s *memoryStateStore) MGet(_ context.Context, keys ...string) ([][]byte, error) {
	now := time.Now()
	out := make([][]byte, len(keys))

	s.mu.RLock()
	defer s.mu.RUnlock()
	for i, key := range keys {
		entry, ok := s.entries[key]
		if !ok || entry.isExpired(now) {
			continue
		}
		out[i] = clone(entry.value)
	}
	return out, nil
}

func (s *memoryStateStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := memEntry{value: clone(value)}
	if ttl > 0 {
		entry.hasTTL = true
		entry.expiresAt = time.Now().Add(ttl)
	}
	s.entries[key] = entry
	return nil
}

func (s *memoryStateStore) MSet(_ context.Context, values map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range values {
		s.entries[k] = memEntry{value: clone(v)}
	}
	return nil
}

func (s *memoryStateStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.entries, key)
	}
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
