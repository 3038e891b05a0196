package ballot

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"ecollect/internal/registry/models"
	"ecollect/pkg/platform/sentinel"
)

// MemoryStore keeps ballot items in memory for tests and local development.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*models.BallotItem
}

func NewMemory() *MemoryStore {
	return &MemoryStore{items: make(map[uuid.UUID]*models.BallotItem)}
}

func (s *MemoryStore) Create(_ context.Context, b *models.BallotItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.items {
		if existing.Slug == b.Slug {
			return sentinel.ErrConflict
		}
	}
	copied := *b
	s.items[b.ID] = &copied
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, id uuid.UUID) (*models.BallotItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, exists := s.items[id]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	copied := *b
	return &copied, nil
}

func (s *MemoryStore) FindBySlug(_ context.Context, slug string) (*models.BallotItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, b := range s.items {
		if b.Slug == slug {
			copied := *b
			return &copied, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) List(_ context.Context) ([]*models.BallotItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.BallotItem, 0, len(s.items))
	for _, b := range s.items {
		copied := *b
		out = append(out, &copied)
	}
	return out, nil
}
