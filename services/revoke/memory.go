package revokesvc

import (
	"context"
	"sync"
	"time"
)

type memoryStore struct {
	mu      sync.RWMutex
	revoked map[string]time.Time // jti -> expiry
}

var _ Store = (*memoryStore)(nil)

// NewMemoryStore returns a process-local Store for development and tests.
func NewMemoryStore() Store {
	return &memoryStore{revoked: make(map[string]time.Time)}
}

func (s *memoryStore) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	s.revoked[jti] = time.Now().Add(ttl)
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	s.mu.RLock()
	exp, ok := s.revoked[jti]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if time.Now().After(exp) {
		s.mu.Lock()
		delete(s.revoked, jti)
		s.mu.Unlock()
		return false, nil
	}
	return true, nil
}
