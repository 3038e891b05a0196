package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"ecollect/internal/credential/models"
	"ecollect/pkg/platform/sentinel"
)

// MemoryStore keeps credential records in memory for tests and local
// development. Semantics match the Postgres store, minus the unique index.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*models.Record
}

func NewMemory() *MemoryStore {
	return &MemoryStore{records: make(map[uuid.UUID]*models.Record)}
}

func (s *MemoryStore) Create(_ context.Context, record *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *record
	s.records[record.ID] = &copied
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, id uuid.UUID) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.records[id]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	copied := *r
	return &copied, nil
}

func (s *MemoryStore) FindActive(_ context.Context, residentID, ballotItemID uuid.UUID) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.records {
		if r.ResidentID == residentID && r.BallotItemID == ballotItemID && r.Status == models.StatusIssued {
			copied := *r
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) PurgeNonIssued(_ context.Context, residentID, ballotItemID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, r := range s.records {
		if r.ResidentID == residentID && r.BallotItemID == ballotItemID && r.Status != models.StatusIssued {
			delete(s.records, id)
		}
	}
	return nil
}

func (s *MemoryStore) Update(_ context.Context, id uuid.UUID, patch models.Patch) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.records[id]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	if patch.Status != nil {
		r.Status = *patch.Status
	}
	if patch.IssuedDate != nil {
		r.IssuedDate = *patch.IssuedDate
	}
	if patch.RemoteCredentialID != nil {
		r.RemoteCredentialID = *patch.RemoteCredentialID
	}
	if patch.ManagementID != nil {
		r.ManagementID = *patch.ManagementID
	}
	if patch.OfferDeeplink != nil {
		r.OfferDeeplink = *patch.OfferDeeplink
	}
	if patch.LastError != nil {
		r.LastError = *patch.LastError
	}
	r.UpdatedAt = time.Now()
	copied := *r
	return &copied, nil
}

func (s *MemoryStore) ListByResident(_ context.Context, residentID uuid.UUID) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Record
	for _, r := range s.records {
		if r.ResidentID == residentID {
			copied := *r
			out = append(out, &copied)
		}
	}
	return out, nil
}
