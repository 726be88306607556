package crm

import (
	"context"
	"sync"
	"time"
)

// TokenStore persists the CRM access token between process restarts so a
// fresh start does not always burn a refresh. Implementations must be safe
// for concurrent use.
type TokenStore interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, token string, ttl time.Duration) error
	Clear(ctx context.Context) error
}

// MemoryTokenStore keeps the token in process memory. It backs tests and
// deployments without Redis.
type MemoryTokenStore struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewMemoryTokenStore returns an empty in-memory store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

// Get returns the stored token, or empty when absent or expired.
func (s *MemoryTokenStore) Get(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" || (!s.expiresAt.IsZero() && time.Now().After(s.expiresAt)) {
		return "", nil
	}
	return s.token, nil
}

// Set stores the token with an optional TTL.
func (s *MemoryTokenStore) Set(ctx context.Context, token string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	if ttl > 0 {
		s.expiresAt = time.Now().Add(ttl)
	} else {
		s.expiresAt = time.Time{}
	}
	return nil
}

// Clear drops the stored token.
func (s *MemoryTokenStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.expiresAt = time.Time{}
	return nil
}
