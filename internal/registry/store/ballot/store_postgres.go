package ballot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"ecollect/internal/registry/models"
	"ecollect/pkg/platform/sentinel"
)

// PostgresStore persists ballot items in PostgreSQL. Localized titles are
// stored as JSONB keyed by locale.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed ballot item store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, b *models.BallotItem) error {
	titleBytes, err := json.Marshal(b.Title)
	if err != nil {
		return fmt.Errorf("marshal ballot title: %w", err)
	}
	query := `
		INSERT INTO ballot_items (id, slug, type, level, title, committee, valid_until, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = s.db.ExecContext(ctx, query, b.ID, b.Slug, string(b.Type), b.Level, titleBytes, b.Committee, b.ValidUntil, b.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create ballot item: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*models.BallotItem, error) {
	query := `
		SELECT id, slug, type, level, title, committee, valid_until, created_at
		FROM ballot_items
		WHERE id = $1
	`
	return scanBallotItem(s.db.QueryRowContext(ctx, query, id))
}

func (s *PostgresStore) FindBySlug(ctx context.Context, slug string) (*models.BallotItem, error) {
	query := `
		SELECT id, slug, type, level, title, committee, valid_until, created_at
		FROM ballot_items
		WHERE slug = $1
	`
	return scanBallotItem(s.db.QueryRowContext(ctx, query, slug))
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.BallotItem, error) {
	query := `
		SELECT id, slug, type, level, title, committee, valid_until, created_at
		FROM ballot_items
		ORDER BY valid_until DESC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list ballot items: %w", err)
	}
	defer rows.Close()

	var out []*models.BallotItem
	for rows.Next() {
		var b models.BallotItem
		var titleBytes []byte
		var itemType string
		if err := rows.Scan(&b.ID, &b.Slug, &itemType, &b.Level, &titleBytes, &b.Committee, &b.ValidUntil, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ballot item: %w", err)
		}
		b.Type = models.BallotItemType(itemType)
		if err := json.Unmarshal(titleBytes, &b.Title); err != nil {
			return nil, fmt.Errorf("unmarshal ballot title: %w", err)
		}
		out = append(out, &b)
	}
	return out, rows.Err()
}

func scanBallotItem(row *sql.Row) (*models.BallotItem, error) {
	var b models.BallotItem
	var titleBytes []byte
	var itemType string
	var validUntil time.Time
	err := row.Scan(&b.ID, &b.Slug, &itemType, &b.Level, &titleBytes, &b.Committee, &validUntil, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan ballot item: %w", err)
	}
	b.Type = models.BallotItemType(itemType)
	b.ValidUntil = validUntil
	if err := json.Unmarshal(titleBytes, &b.Title); err != nil {
		return nil, fmt.Errorf("unmarshal ballot title: %w", err)
	}
	return &b, nil
}
