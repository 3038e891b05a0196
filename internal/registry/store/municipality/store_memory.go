package municipality

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"ecollect/internal/registry/models"
	"ecollect/pkg/platform/sentinel"
)

// MemoryStore keeps municipalities in memory for tests and local development.
type MemoryStore struct {
	mu    sync.RWMutex
	byID  map[string]*models.Municipality
	byBFS map[string]*models.Municipality
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		byID:  make(map[string]*models.Municipality),
		byBFS: make(map[string]*models.Municipality),
	}
}

func (s *MemoryStore) Create(_ context.Context, m *models.Municipality) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byBFS[m.BFSNumber]; exists {
		return sentinel.ErrConflict
	}
	copied := *m
	s.byID[m.ID.String()] = &copied
	s.byBFS[m.BFSNumber] = &copied
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, id uuid.UUID) (*models.Municipality, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, exists := s.byID[id.String()]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	copied := *m
	return &copied, nil
}

func (s *MemoryStore) FindByBFS(_ context.Context, bfs string) (*models.Municipality, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, exists := s.byBFS[bfs]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	copied := *m
	return &copied, nil
}

func (s *MemoryStore) List(_ context.Context) ([]*models.Municipality, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Municipality, 0, len(s.byID))
	for _, m := range s.byID {
		copied := *m
		out = append(out, &copied)
	}
	return out, nil
}
