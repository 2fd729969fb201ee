// Package nonce records one-time execution tokens. A consumed token is
// never released.
package nonce

import (
	"context"
	"sync"
)

// Store is the set of consumed tokens.
type Store interface {
	// Consume atomically records token. It reports false if the token had
	// already been consumed.
	Consume(ctx context.Context, token string) (bool, error)
}

// MemoryStore keeps tokens for the lifetime of the process.
type MemoryStore struct {
	mu   sync.Mutex
	used map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{used: make(map[string]struct{})}
}

func (s *MemoryStore) Consume(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.used[token]; ok {
		return false, nil
	}
	s.used[token] = struct{}{}
	return true, nil
}

// Len returns the number of consumed tokens.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.used)
}
