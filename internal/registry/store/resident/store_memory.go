package resident

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"ecollect/internal/registry/models"
	"ecollect/pkg/platform/sentinel"
)

// MemoryStore keeps residents in memory for tests and local development.
type MemoryStore struct {
	mu        sync.RWMutex
	residents map[uuid.UUID]*models.Resident
}

func NewMemory() *MemoryStore {
	return &MemoryStore{residents: make(map[uuid.UUID]*models.Resident)}
}

func (s *MemoryStore) Create(_ context.Context, r *models.Resident) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *r
	s.residents[r.ID] = &copied
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, id uuid.UUID) (*models.Resident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.residents[id]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	copied := *r
	return &copied, nil
}

func (s *MemoryStore) Match(_ context.Context, municipalityID uuid.UUID, givenName, familyName, birthDate string) (*models.Resident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.residents {
		if r.MunicipalityID != municipalityID {
			continue
		}
		if !strings.EqualFold(r.GivenName, givenName) || !strings.EqualFold(r.FamilyName, familyName) {
			continue
		}
		if r.BirthDate != birthDate {
			continue
		}
		copied := *r
		return &copied, nil
	}
	return nil, nil
}

func (s *MemoryStore) ListByMunicipality(_ context.Context, municipalityID uuid.UUID) ([]*models.Resident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Resident
	for _, r := range s.residents {
		if r.MunicipalityID == municipalityID {
			copied := *r
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.residents[id]; !exists {
		return sentinel.ErrNotFound
	}
	delete(s.residents, id)
	return nil
}
