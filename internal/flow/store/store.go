// Package store persists flow sessions. Sessions are short-lived working
// state, not records: Redis with a TTL in deployments, memory in tests.
package store

import (
	"context"

	"github.com/google/uuid"

	"ecollect/internal/flow/models"
)

// Store is the flow session store contract.
type Store interface {
	Save(ctx context.Context, session *models.Session) error
	Find(ctx context.Context, id uuid.UUID) (*models.Session, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
