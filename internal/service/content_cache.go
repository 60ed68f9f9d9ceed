package service

import (
	"context"
	"sync"
	"time"
)

// ContentCacheStore is a read-through cache for rendered content payloads,
// keyed by the lookup the handler serves (currently post-by-slug).
type ContentCacheStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

type NoopContentCacheStore struct{}

func NewNoopContentCacheStore() *NoopContentCacheStore { return &NoopContentCacheStore{} }

func (s *NoopContentCacheStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, nil
}

func (s *NoopContentCacheStore) Set(context.Context, string, []byte, time.Duration) error {
	return nil
}

func (s *NoopContentCacheStore) Invalidate(context.Context, ...string) error { return nil }

type contentCacheEntry struct {
	payload   []byte
	expiresAt time.Time
}

// InMemoryContentCacheStore is the single-process fallback used when no
// redis is configured.
type InMemoryContentCacheStore struct {
	mu      sync.RWMutex
	entries map[string]contentCacheEntry
}

func NewInMemoryContentCacheStore() *InMemoryContentCacheStore {
	return &InMemoryContentCacheStore{entries: map[string]contentCacheEntry{}}
}

func (s *InMemoryContentCacheStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	now := time.Now().UTC()
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if now.After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, false, nil
	}
	return append([]byte(nil), entry.payload...), true, nil
}

func (s *InMemoryContentCacheStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	s.entries[key] = contentCacheEntry{
		payload:   append([]byte(nil), value...),
		expiresAt: time.Now().UTC().Add(ttl),
	}
	s.mu.Unlock()
	return nil
}

func (s *InMemoryContentCacheStore) Invalidate(_ context.Context, keys ...string) error {
	s.mu.Lock()
	for _, key := range keys {
		delete(s.entries, key)
	}
	s.mu.Unlock()
	return nil
}
