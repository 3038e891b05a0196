package municipality

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"ecollect/internal/registry/models"
	"ecollect/pkg/platform/sentinel"
)

// PostgresStore persists municipalities in PostgreSQL.
// The store is pure I/O; canton derivation and BFS checks live in the service.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed municipality store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, m *models.Municipality) error {
	query := `
		INSERT INTO municipalities (id, name, bfs_number, canton, did, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query, m.ID, m.Name, m.BFSNumber, m.Canton, m.DID, m.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create municipality: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Municipality, error) {
	query := `
		SELECT id, name, bfs_number, canton, did, created_at
		FROM municipalities
		WHERE id = $1
	`
	return scanMunicipality(s.db.QueryRowContext(ctx, query, id))
}

// FindByBFS looks up a municipality by its normalized BFS number.
func (s *PostgresStore) FindByBFS(ctx context.Context, bfs string) (*models.Municipality, error) {
	query := `
		SELECT id, name, bfs_number, canton, did, created_at
		FROM municipalities
		WHERE bfs_number = $1
	`
	return scanMunicipality(s.db.QueryRowContext(ctx, query, bfs))
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Municipality, error) {
	query := `
		SELECT id, name, bfs_number, canton, did, created_at
		FROM municipalities
		ORDER BY name
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list municipalities: %w", err)
	}
	defer rows.Close()

	var out []*models.Municipality
	for rows.Next() {
		var m models.Municipality
		if err := rows.Scan(&m.ID, &m.Name, &m.BFSNumber, &m.Canton, &m.DID, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan municipality: %w", err)
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func scanMunicipality(row *sql.Row) (*models.Municipality, error) {
	var m models.Municipality
	err := row.Scan(&m.ID, &m.Name, &m.BFSNumber, &m.Canton, &m.DID, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan municipality: %w", err)
	}
	return &m, nil
}
