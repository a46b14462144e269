package memory

import (
	"context"
	"sync"

	"github.com/kirillkom/drive-filing-bot/internal/core/domain"
)

// Store is the in-process BatchStore. A single RWMutex guards the map of
// owners; per-owner serialization for the check-then-flush sequences is
// the collector's job, the store only has to be individually atomic.
type Store struct {
	mu     sync.RWMutex
	owners map[string][]domain.PendingItem
}

func New() *Store {
	return &Store{owners: make(map[string][]domain.PendingItem)}
}

func (s *Store) Append(_ context.Context, ownerID string, item domain.PendingItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owners[ownerID] = append(s.owners[ownerID], item)
	return nil
}

func (s *Store) Items(_ context.Context, ownerID string) ([]domain.PendingItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := s.owners[ownerID]
	out := make([]domain.PendingItem, len(items))
	copy(out, items)
	return out, nil
}

func (s *Store) Replace(_ context.Context, ownerID string, items []domain.PendingItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(items) == 0 {
		delete(s.owners, ownerID)
		return nil
	}
	stored := make([]domain.PendingItem, len(items))
	copy(stored, items)
	s.owners[ownerID] = stored
	return nil
}

func (s *Store) Flush(_ context.Context, ownerID string) ([]domain.PendingItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.owners[ownerID]
	delete(s.owners, ownerID)
	return items, nil
}

func (s *Store) Size(_ context.Context, ownerID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.owners[ownerID]), nil
}
