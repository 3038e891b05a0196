package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"ecollect/internal/flow/models"
	"ecollect/pkg/platform/sentinel"
)

// MemoryStore keeps flow sessions in memory for tests and single-instance
// deployments without Redis.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*models.Session
}

func NewMemory() *MemoryStore {
	return &MemoryStore{sessions: make(map[uuid.UUID]*models.Session)}
}

func (s *MemoryStore) Save(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *session
	s.sessions[session.ID] = &copied
	return nil
}

func (s *MemoryStore) Find(_ context.Context, id uuid.UUID) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.sessions[id]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	copied := *session
	return &copied, nil
}

func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}
