package credentials

import (
	"context"
	"sync"

	"github.com/octabyte/sentimind-session/models"
)

// MemoryStore keeps the pair in process memory. It does not survive a restart.
type MemoryStore struct {
	mu   sync.RWMutex
	pair *models.CredentialPair
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Get(_ context.Context) (*models.CredentialPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pair == nil {
		return nil, ErrNoCredentials
	}
	pair := *s.pair
	return &pair, nil
}

func (s *MemoryStore) Set(_ context.Context, pair models.CredentialPair) error {
	if !pair.Valid() {
		return ErrIncompletePair
	}
	s.mu.Lock()
	s.pair = &pair
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) CompareAndSet(_ context.Context, expectedRefresh string, pair models.CredentialPair) error {
	if !pair.Valid() {
		return ErrIncompletePair
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pair == nil || s.pair.Refresh != expectedRefresh {
		return ErrStale
	}
	s.pair = &pair
	return nil
}

func (s *MemoryStore) CompareAndClear(_ context.Context, expectedRefresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pair == nil || s.pair.Refresh != expectedRefresh {
		return ErrStale
	}
	s.pair = nil
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	s.pair = nil
	s.mu.Unlock()
	return nil
}
