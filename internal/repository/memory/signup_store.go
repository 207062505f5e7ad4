package memory

import (
	"context"
	"sync"
	"time"

	"identity-sync-backend/internal/domain"
)

type signupEntry struct {
	flow      domain.SignupFlow
	expiresAt time.Time
}

// SignupStore is the single-process fallback used when Redis is not configured.
type SignupStore struct {
	mu      sync.Mutex
	entries map[string]signupEntry
	now     func() time.Time
}

func NewSignupStore() *SignupStore {
	return &SignupStore{
		entries: make(map[string]signupEntry),
		now:     time.Now,
	}
}

var _ domain.SignupStore = (*SignupStore)(nil)

func (s *SignupStore) Load(_ context.Context, id string) (*domain.SignupFlow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil, nil
	}
	if s.now().After(entry.expiresAt) {
		delete(s.entries, id)
		return nil, nil
	}
	flow := entry.flow
	return &flow, nil
}

func (s *SignupStore) Save(_ context.Context, flow *domain.SignupFlow, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()
	s.entries[flow.ID] = signupEntry{flow: *flow, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *SignupStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

func (s *SignupStore) sweepLocked() {
	now := s.now()
	for id, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, id)
		}
	}
}
