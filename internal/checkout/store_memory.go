package checkout

import (
	"context"
	"sync"
)

type MemStore struct {
	mu sync.RWMutex
	m  map[string]Receipt
}

func NewMemStore() *MemStore {
	return &MemStore{m: map[string]Receipt{}}
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

func (s *MemStore) Create(ctx context.Context, rc Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.m[rc.ID]; ok {
		return ErrReceiptExists
	}
	s.m[rc.ID] = rc
	return nil
}

func (s *MemStore) Get(ctx context.Context, id string) (Receipt, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rc, ok := s.m[id]
	return rc, ok, nil
}
