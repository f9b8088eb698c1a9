package session

import (
	"context"
	"sync"
	"time"

	"github.com/ticketless/admin-console/internal/domain"
)

type memoryEntry struct {
	principal domain.Principal
	expiresAt time.Time
}

// MemoryStore is the single-process Store used when no Redis is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(ctx context.Context, token string) (*domain.Principal, error) {
	key := tokenKey(token)

	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	if s.now().After(entry.expiresAt) {
		_ = s.Delete(ctx, token)
		return nil, ErrNotFound
	}

	p := entry.principal
	return &p, nil
}

func (s *MemoryStore) Set(ctx context.Context, token string, p *domain.Principal, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[tokenKey(token)] = memoryEntry{principal: *p, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, tokenKey(token))
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }
